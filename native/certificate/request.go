package certificate

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"

	certcrypto "certchain/crypto"
)

// RoyaltyFields is the textual form of RoyaltyTerms.
type RoyaltyFields struct {
	Receiver string `json:"receiver" yaml:"receiver"`
	Bps      uint64 `json:"bps" yaml:"bps"`
}

// MintFields is the textual form of a mint authorisation as accepted by the
// RPC API and by signing requests. Payload converts it into the MintPayload
// whose digest the verifier signs.
type MintFields struct {
	To           string         `json:"to" yaml:"to"`
	Beneficiary  string         `json:"beneficiary" yaml:"beneficiary"`
	PaymentToken string         `json:"paymentToken,omitempty" yaml:"paymentToken,omitempty"`
	Price        string         `json:"price" yaml:"price"`
	Amount       string         `json:"amount" yaml:"amount"`
	Years        uint64         `json:"years,omitempty" yaml:"years,omitempty"`
	Type         string         `json:"type,omitempty" yaml:"type,omitempty"`
	URI          string         `json:"uri" yaml:"uri"`
	Royalty      *RoyaltyFields `json:"royalty,omitempty" yaml:"royalty,omitempty"`
}

// Payload parses every field. An empty payment token selects the native
// currency and an empty type selects TypeNormal. Errors name the offending
// field.
func (m *MintFields) Payload() (MintPayload, error) {
	var out MintPayload
	var err error
	if out.To, err = requiredAddress("to", m.To); err != nil {
		return out, err
	}
	if out.Beneficiary, err = requiredAddress("beneficiary", m.Beneficiary); err != nil {
		return out, err
	}
	if strings.TrimSpace(m.PaymentToken) != "" {
		if out.PaymentToken, err = requiredAddress("paymentToken", m.PaymentToken); err != nil {
			return out, err
		}
	}
	if out.Price, err = ParseAmount(m.Price); err != nil {
		return out, fmt.Errorf("price: %w", err)
	}
	if out.Amount, err = ParseAmount(m.Amount); err != nil {
		return out, fmt.Errorf("amount: %w", err)
	}
	out.Type = TypeNormal
	if strings.TrimSpace(m.Type) != "" {
		if out.Type, err = ParseTokenType(m.Type); err != nil {
			return out, fmt.Errorf("type: %w", err)
		}
	}
	out.Years = m.Years
	out.URI = m.URI
	if m.Royalty != nil {
		receiver, err := requiredAddress("royalty.receiver", m.Royalty.Receiver)
		if err != nil {
			return out, err
		}
		out.Royalty = &RoyaltyTerms{Receiver: receiver, Bps: m.Royalty.Bps}
	}
	return out, nil
}

func requiredAddress(field, raw string) (common.Address, error) {
	if strings.TrimSpace(raw) == "" {
		return common.Address{}, fmt.Errorf("%s required", field)
	}
	addr, err := certcrypto.ParseAddress(raw)
	if err != nil {
		return common.Address{}, fmt.Errorf("%s: %w", field, err)
	}
	return addr, nil
}

// ParseAmount accepts decimal or 0x-prefixed hex integers of at most 256
// bits. Empty input is zero and negative values are rejected.
func ParseAmount(raw string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return new(big.Int), nil
	}
	value, ok := math.ParseBig256(trimmed)
	if !ok {
		return nil, fmt.Errorf("invalid integer %q", raw)
	}
	if value.Sign() < 0 {
		return nil, fmt.Errorf("must not be negative")
	}
	return value, nil
}
