package rpc

import (
	"encoding/json"
	"math/big"

	"certchain/native/certificate"
	"certchain/native/sale"
)

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      json.RawMessage   `json:"id,omitempty"`
}

type RPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *RPCError) Error() string { return e.Message }

// ErrorData is attached to errors raised by the ledger engines.
type ErrorData struct {
	Kind   string `json:"kind"`
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

type tokenJSON struct {
	ID           uint64 `json:"id"`
	Owner        string `json:"owner"`
	URI          string `json:"uri"`
	PaymentToken string `json:"paymentToken"`
	Price        string `json:"price"`
	Amount       string `json:"amount"`
	Beneficiary  string `json:"beneficiary"`
	Active       bool   `json:"active"`
	Type         string `json:"type"`
	Expiration   uint64 `json:"expiration"`
	YearPeriod   uint64 `json:"yearPeriod,omitempty"`
	MintedAt     uint64 `json:"mintedAt"`
	Revision     uint64 `json:"revision"`
}

func formatToken(t *certificate.Token) tokenJSON {
	return tokenJSON{
		ID:           t.ID,
		Owner:        t.Owner.Hex(),
		URI:          t.URI,
		PaymentToken: t.PaymentToken.Hex(),
		Price:        formatAmount(t.Price),
		Amount:       formatAmount(t.Amount),
		Beneficiary:  t.Beneficiary.Hex(),
		Active:       t.Active,
		Type:         t.Type.String(),
		Expiration:   t.Expiration,
		YearPeriod:   t.YearPeriod,
		MintedAt:     t.MintedAt,
		Revision:     t.Revision,
	}
}

type rolesJSON struct {
	Owner    string `json:"owner"`
	Admin    string `json:"admin"`
	Verifier string `json:"verifier"`
}

type royaltyInfoJSON struct {
	Receiver string `json:"receiver"`
	Amount   string `json:"amount"`
}

type saleItemJSON struct {
	TokenID      uint64 `json:"tokenId"`
	PaymentToken string `json:"paymentToken"`
	Price        string `json:"price"`
	Status       string `json:"status,omitempty"`
}

type saleJSON struct {
	ID         uint64         `json:"id"`
	Collection string         `json:"collection"`
	Manager    string         `json:"manager"`
	Status     string         `json:"status"`
	Items      []saleItemJSON `json:"items"`
	CreatedAt  uint64         `json:"createdAt"`
	UpdatedAt  uint64         `json:"updatedAt"`
}

func formatSale(s *sale.Sale) saleJSON {
	items := make([]saleItemJSON, len(s.Items))
	for i, item := range s.Items {
		items[i] = saleItemJSON{
			TokenID:      item.TokenID,
			PaymentToken: item.PaymentToken.Hex(),
			Price:        formatAmount(item.Price),
			Status:       item.Status.String(),
		}
	}
	return saleJSON{
		ID:         s.ID,
		Collection: s.Collection.Hex(),
		Manager:    s.Manager.Hex(),
		Status:     s.Status.String(),
		Items:      items,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.UpdatedAt,
	}
}

type eventJSON struct {
	Seq        uint64            `json:"seq"`
	Module     string            `json:"module"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
	CreatedAt  int64             `json:"createdAt"`
}

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
