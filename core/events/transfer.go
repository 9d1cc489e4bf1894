package events

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"certchain/core/types"
)

const (
	// TypeTransfer is emitted for native currency and fungible token balance movements.
	TypeTransfer = "bank.transfer"
	// TypeApproval is emitted when a holder sets a fungible token allowance.
	TypeApproval = "bank.approval"
)

// Transfer records a balance movement of a payment asset.
type Transfer struct {
	Asset  common.Address
	From   common.Address
	To     common.Address
	Amount *big.Int
}

func (Transfer) EventType() string { return TypeTransfer }

func (e Transfer) Event() *types.Event {
	return &types.Event{
		Type: TypeTransfer,
		Attributes: map[string]string{
			"asset":  AssetLabel(e.Asset),
			"from":   e.From.Hex(),
			"to":     e.To.Hex(),
			"amount": formatAmount(e.Amount),
		},
	}
}

// Approval records an allowance update on a fungible token.
type Approval struct {
	Token   common.Address
	Owner   common.Address
	Spender common.Address
	Amount  *big.Int
}

func (Approval) EventType() string { return TypeApproval }

func (e Approval) Event() *types.Event {
	return &types.Event{
		Type: TypeApproval,
		Attributes: map[string]string{
			"token":   e.Token.Hex(),
			"owner":   e.Owner.Hex(),
			"spender": e.Spender.Hex(),
			"amount":  formatAmount(e.Amount),
		},
	}
}
