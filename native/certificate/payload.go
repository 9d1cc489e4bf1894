package certificate

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// Action tags prefix every packed payload so a signature for one action can
// never be reused for another.
const (
	ActionMint        = "certificate.mint"
	ActionSetTokenURI = "certificate.setTokenURI"
	ActionSetStatus   = "certificate.setStatus"
	ActionSetType     = "certificate.setType"
)

const capabilityRoyalty byte = 1 << 0

// RoyaltyTerms are optional per-token royalty terms carried by a mint.
type RoyaltyTerms struct {
	Receiver common.Address
	Bps      uint64
}

// MintPayload is the field set the verifier signs to authorise a mint.
type MintPayload struct {
	To           common.Address
	Beneficiary  common.Address
	PaymentToken common.Address
	Price        *big.Int
	Amount       *big.Int
	// Years overrides the collection expiration period when non-zero.
	Years   uint64
	Type    TokenType
	URI     string
	Royalty *RoyaltyTerms
}

// TokenURIPayload authorises a URI change for one token revision.
type TokenURIPayload struct {
	TokenID  uint64
	Revision uint64
	URI      string
}

// StatusPayload authorises an active flag change for one token revision.
type StatusPayload struct {
	TokenID  uint64
	Revision uint64
	Active   bool
}

// TypePayload authorises a lifecycle type change for one token revision.
type TypePayload struct {
	TokenID  uint64
	Revision uint64
	Type     TokenType
}

type packer struct {
	buf []byte
	err error
}

func newPacker(action string, collection common.Address) *packer {
	p := &packer{buf: make([]byte, 0, 256)}
	p.buf = append(p.buf, action...)
	p.putAddress(collection)
	return p
}

func (p *packer) putAddress(addr common.Address) {
	p.buf = append(p.buf, addr.Bytes()...)
}

func (p *packer) putBig(v *big.Int) {
	if p.err != nil {
		return
	}
	if v == nil {
		v = new(big.Int)
	}
	if v.Sign() < 0 {
		p.err = ErrValueOutOfRange
		return
	}
	word, overflow := uint256.FromBig(v)
	if overflow {
		p.err = ErrValueOutOfRange
		return
	}
	encoded := word.Bytes32()
	p.buf = append(p.buf, encoded[:]...)
}

func (p *packer) putUint(v uint64) {
	encoded := uint256.NewInt(v).Bytes32()
	p.buf = append(p.buf, encoded[:]...)
}

func (p *packer) putByte(b byte) { p.buf = append(p.buf, b) }

func (p *packer) putBool(v bool) {
	if v {
		p.putByte(1)
		return
	}
	p.putByte(0)
}

func (p *packer) putString(s string) { p.buf = append(p.buf, s...) }

func (p *packer) digest() (common.Hash, error) {
	if p.err != nil {
		return common.Hash{}, p.err
	}
	return crypto.Keccak256Hash(p.buf), nil
}

// Digest returns the keccak256 hash of the packed mint payload bound to the
// collection address.
func (m *MintPayload) Digest(collection common.Address) (common.Hash, error) {
	p := newPacker(ActionMint, collection)
	var caps byte
	if m.Royalty != nil {
		caps |= capabilityRoyalty
	}
	p.putByte(caps)
	p.putAddress(m.To)
	p.putAddress(m.Beneficiary)
	p.putAddress(m.PaymentToken)
	p.putBig(m.Price)
	p.putBig(m.Amount)
	p.putUint(m.Years)
	if m.Royalty != nil {
		p.putAddress(m.Royalty.Receiver)
		p.putUint(m.Royalty.Bps)
	}
	p.putByte(byte(m.Type))
	p.putString(m.URI)
	return p.digest()
}

// Digest returns the hash signed to authorise a URI update.
func (u *TokenURIPayload) Digest(collection common.Address) (common.Hash, error) {
	p := newPacker(ActionSetTokenURI, collection)
	p.putUint(u.TokenID)
	p.putUint(u.Revision)
	p.putString(u.URI)
	return p.digest()
}

// Digest returns the hash signed to authorise a status update.
func (s *StatusPayload) Digest(collection common.Address) (common.Hash, error) {
	p := newPacker(ActionSetStatus, collection)
	p.putUint(s.TokenID)
	p.putUint(s.Revision)
	p.putBool(s.Active)
	return p.digest()
}

// Digest returns the hash signed to authorise a type update.
func (t *TypePayload) Digest(collection common.Address) (common.Hash, error) {
	p := newPacker(ActionSetType, collection)
	p.putUint(t.TokenID)
	p.putUint(t.Revision)
	p.putByte(byte(t.Type))
	return p.digest()
}
