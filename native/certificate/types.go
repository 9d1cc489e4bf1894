package certificate

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

const (
	// MaxRoyaltyBps is the basis-point denominator; royalties are expressed
	// as a fraction of it.
	MaxRoyaltyBps = 10_000
	// DefaultExpirationPeriod is the validity window applied when a mint
	// payload does not request a year period (one tropical year).
	DefaultExpirationPeriod uint64 = 31_556_926
	// SecondsPerYear is used for per-token year periods.
	SecondsPerYear uint64 = 31_536_000
)

// TokenType is the lifecycle class of a certificate.
type TokenType uint8

const (
	// TypeNormal certificates can be transferred and resold.
	TypeNormal TokenType = iota
	// TypeFurusato certificates are bound to their holder but can be donated
	// once.
	TypeFurusato
	// TypeDonated is terminal and only reachable through Donate.
	TypeDonated
)

func (t TokenType) String() string {
	switch t {
	case TypeNormal:
		return "normal"
	case TypeFurusato:
		return "furusato"
	case TypeDonated:
		return "donated"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// Valid reports whether t is a known lifecycle type.
func (t TokenType) Valid() bool { return t <= TypeDonated }

// ParseTokenType accepts the names returned by String as well as their
// numeric form.
func ParseTokenType(raw string) (TokenType, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "normal", "0":
		return TypeNormal, nil
	case "furusato", "1":
		return TypeFurusato, nil
	case "donated", "2":
		return TypeDonated, nil
	default:
		return 0, ErrInvalidTokenType
	}
}

// Token is a minted certificate.
type Token struct {
	ID           uint64
	Owner        common.Address
	URI          string
	PaymentToken common.Address
	Price        *big.Int
	Amount       *big.Int
	Beneficiary  common.Address
	Active       bool
	Type         TokenType
	Expiration   uint64
	YearPeriod   uint64
	MintedAt     uint64
	Revision     uint64
}

// Clone returns a deep copy of the token.
func (t *Token) Clone() *Token {
	if t == nil {
		return nil
	}
	clone := *t
	clone.Price = copyBig(t.Price)
	clone.Amount = copyBig(t.Amount)
	return &clone
}

// NativePayment reports whether the certificate was paid in the native
// currency.
func (t *Token) NativePayment() bool {
	return t != nil && t.PaymentToken == (common.Address{})
}

// Royalty is a (receiver, basis points) pair.
type Royalty struct {
	Receiver common.Address
	Bps      uint64
}

// Roles is the authority record of a collection. Only signatures from
// Verifier authorise mints and attribute updates.
type Roles struct {
	Owner    common.Address
	Admin    common.Address
	Verifier common.Address
}

// Params holds mutable collection parameters.
type Params struct {
	ExpirationPeriod uint64
}

// Config is the static configuration of a collection engine.
type Config struct {
	// Address is the collection's own account; it holds escrowed funds.
	Address common.Address
	Name    string
	Symbol  string
	// RefreshExpirationOnTransfer restarts the validity window whenever a
	// certificate changes hands.
	RefreshExpirationOnTransfer bool
}

func copyBig(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

func isZero(addr common.Address) bool { return addr == (common.Address{}) }
