package certificate

import (
	"math"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// MintRequest pairs a mint payload with the verifier's signature over it.
type MintRequest struct {
	Payload   MintPayload
	Signature []byte
}

// Mint validates the authorisation, settles payment into escrow and creates
// the next certificate for Payload.To. caller pays; value is the native
// amount attached to the call.
func (e *Engine) Mint(caller common.Address, req MintRequest, value *big.Int) (*Token, error) {
	var minted *Token
	err := e.atomic(func() error {
		token, err := e.mint(caller, &req, value)
		if err != nil {
			return err
		}
		minted = token
		return nil
	})
	if err != nil {
		return nil, err
	}
	return minted.Clone(), nil
}

// MintWithRoyalty is Mint for requests that must carry per-token royalty
// terms.
func (e *Engine) MintWithRoyalty(caller common.Address, req MintRequest, value *big.Int) (*Token, error) {
	if req.Payload.Royalty == nil {
		return nil, ErrInvalidRoyaltyReceiver
	}
	return e.Mint(caller, req, value)
}

func (e *Engine) validateMint(p *MintPayload, value *big.Int) error {
	ok, err := e.plainAccount(p.To)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidAddress
	}
	if p.URI == "" {
		return ErrEmptyURI
	}
	if !positive(p.Price) {
		return ErrInvalidPrice
	}
	if p.Amount == nil || p.Amount.Cmp(p.Price) < 0 {
		return ErrAmountBelowPrice
	}
	if isZero(p.PaymentToken) {
		if value == nil || value.Cmp(p.Amount) != 0 {
			return ErrInvalidAttachedValue
		}
	} else {
		if value != nil && value.Sign() != 0 {
			return ErrUnexpectedAttachedValue
		}
		contract, err := e.isContract(p.PaymentToken)
		if err != nil {
			return err
		}
		if !contract {
			return ErrInvalidTokenAddress
		}
	}
	ok, err = e.plainAccount(p.Beneficiary)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidOwnerAddress
	}
	if p.Royalty != nil {
		if err := validateRoyalty(p.Royalty.Receiver, p.Royalty.Bps); err != nil {
			return err
		}
	}
	if p.Type != TypeNormal && p.Type != TypeFurusato {
		return ErrInvalidTokenType
	}
	if p.Years > math.MaxUint64/SecondsPerYear {
		return ErrValueOutOfRange
	}
	return nil
}

func (e *Engine) mint(caller common.Address, req *MintRequest, value *big.Int) (*Token, error) {
	p := &req.Payload
	if err := e.validateMint(p, value); err != nil {
		return nil, err
	}
	digest, err := p.Digest(e.cfg.Address)
	if err != nil {
		return nil, err
	}
	if err := e.authorize(digest, req.Signature); err != nil {
		return nil, err
	}
	if _, used, err := e.state.CertificateDigestTokenID(digest); err != nil {
		return nil, err
	} else if used {
		return nil, ErrSignatureUsed
	}
	sigHash := SignatureHash(req.Signature)
	if _, used, err := e.state.CertificateSignatureTokenID(sigHash); err != nil {
		return nil, err
	} else if used {
		return nil, ErrSignatureUsed
	}

	lastID, err := e.state.CertificateLastID()
	if err != nil {
		return nil, err
	}
	id := lastID + 1
	if err := e.state.CertificateSetLastID(id); err != nil {
		return nil, err
	}

	now := e.now()
	period := p.Years * SecondsPerYear
	if p.Years == 0 {
		params, err := e.params()
		if err != nil {
			return nil, err
		}
		period = params.ExpirationPeriod
	}
	token := &Token{
		ID:           id,
		Owner:        p.To,
		URI:          p.URI,
		PaymentToken: p.PaymentToken,
		Price:        copyBig(p.Price),
		Amount:       copyBig(p.Amount),
		Beneficiary:  p.Beneficiary,
		Active:       true,
		Type:         p.Type,
		Expiration:   saturatingAdd(now, period),
		YearPeriod:   p.Years,
		MintedAt:     now,
	}
	if err := e.state.CertificatePut(token); err != nil {
		return nil, err
	}
	if err := e.adjustHolderCount(p.To, 1); err != nil {
		return nil, err
	}

	change := new(big.Int).Sub(token.Amount, token.Price)
	if err := e.credit(token.PaymentToken, token.Beneficiary, token.Price, change); err != nil {
		return nil, err
	}
	if err := e.state.CertificatePutDigest(digest, id); err != nil {
		return nil, err
	}
	if err := e.state.CertificatePutSignature(sigHash, id); err != nil {
		return nil, err
	}
	if p.Royalty != nil {
		if err := e.state.CertificatePutRoyalty(id, &Royalty{Receiver: p.Royalty.Receiver, Bps: p.Royalty.Bps}); err != nil {
			return nil, err
		}
	}

	if token.NativePayment() {
		err = e.assets.TransferNative(caller, e.cfg.Address, token.Amount)
	} else {
		err = e.assets.TransferTokenFrom(token.PaymentToken, e.cfg.Address, caller, e.cfg.Address, token.Amount)
	}
	if err != nil {
		return nil, err
	}

	e.emit(TransferEvent(common.Address{}, token.Owner, id))
	e.emit(MintedEvent(token, caller, change))
	e.logger.Debug("certificate minted",
		"tokenId", id,
		"owner", token.Owner.Hex(),
		"asset", token.PaymentToken.Hex(),
		"amount", token.Amount.String())
	return token, nil
}

func saturatingAdd(a, b uint64) uint64 {
	if a > math.MaxUint64-b {
		return math.MaxUint64
	}
	return a + b
}
