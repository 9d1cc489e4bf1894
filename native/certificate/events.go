package certificate

import (
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"certchain/core/events"
	"certchain/core/types"
)

const (
	// EventTypeTransfer is emitted whenever ownership changes, including
	// mints (from the zero address).
	EventTypeTransfer = "certificate.transfer"
	// EventTypeMinted is emitted after a successful mint and settlement.
	EventTypeMinted         = "certificate.minted"
	EventTypeURIUpdated     = "certificate.uri_updated"
	EventTypeStatusUpdated  = "certificate.status_updated"
	EventTypeTypeUpdated    = "certificate.type_updated"
	EventTypeBought         = "certificate.bought"
	EventTypeDonated        = "certificate.donated"
	EventTypeClaimed        = "certificate.claimed"
	EventTypeWithdrawn      = "certificate.withdrawn"
	EventTypeAdminSet       = "certificate.admin_set"
	EventTypeVerifierSet    = "certificate.verifier_set"
	EventTypeExpirationSet  = "certificate.expiration_set"
	EventTypeDefaultRoyalty = "certificate.royalty_default_set"
	EventTypeApprovalForAll = "certificate.approval_for_all"
)

type eventEnvelope struct {
	evt *types.Event
}

func (e eventEnvelope) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e eventEnvelope) Event() *types.Event { return e.evt }

// WrapEvent converts a raw event payload into the emitter-friendly envelope.
func WrapEvent(evt *types.Event) events.Event { return eventEnvelope{evt: evt} }

func idString(id uint64) string { return strconv.FormatUint(id, 10) }

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// TransferEvent records an ownership change.
func TransferEvent(from, to common.Address, id uint64) *types.Event {
	return &types.Event{
		Type: EventTypeTransfer,
		Attributes: map[string]string{
			"from":    from.Hex(),
			"to":      to.Hex(),
			"tokenId": idString(id),
		},
	}
}

// MintedEvent captures the settlement split of a mint.
func MintedEvent(token *Token, payer common.Address, change *big.Int) *types.Event {
	attrs := map[string]string{
		"tokenId":     idString(token.ID),
		"owner":       token.Owner.Hex(),
		"payer":       payer.Hex(),
		"beneficiary": token.Beneficiary.Hex(),
		"asset":       events.AssetLabel(token.PaymentToken),
		"price":       amountString(token.Price),
		"amount":      amountString(token.Amount),
		"change":      amountString(change),
		"type":        token.Type.String(),
		"expiration":  strconv.FormatUint(token.Expiration, 10),
		"uri":         token.URI,
	}
	return &types.Event{Type: EventTypeMinted, Attributes: attrs}
}

// URIUpdatedEvent carries the previous and new token URI.
func URIUpdatedEvent(id uint64, oldURI, newURI string) *types.Event {
	return &types.Event{
		Type: EventTypeURIUpdated,
		Attributes: map[string]string{
			"tokenId": idString(id),
			"old":     oldURI,
			"new":     newURI,
		},
	}
}

// StatusUpdatedEvent carries the previous and new active flag.
func StatusUpdatedEvent(id uint64, oldActive, newActive bool) *types.Event {
	return &types.Event{
		Type: EventTypeStatusUpdated,
		Attributes: map[string]string{
			"tokenId": idString(id),
			"old":     strconv.FormatBool(oldActive),
			"new":     strconv.FormatBool(newActive),
		},
	}
}

// TypeUpdatedEvent carries the previous and new lifecycle type.
func TypeUpdatedEvent(id uint64, oldType, newType TokenType) *types.Event {
	return &types.Event{
		Type: EventTypeTypeUpdated,
		Attributes: map[string]string{
			"tokenId": idString(id),
			"old":     oldType.String(),
			"new":     newType.String(),
		},
	}
}

// BoughtEvent captures a secondary sale with its royalty split.
func BoughtEvent(id uint64, seller, buyer common.Address, asset common.Address, price *big.Int, royaltyReceiver common.Address, royalty *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeBought,
		Attributes: map[string]string{
			"tokenId":         idString(id),
			"seller":          seller.Hex(),
			"buyer":           buyer.Hex(),
			"asset":           events.AssetLabel(asset),
			"price":           amountString(price),
			"royaltyReceiver": royaltyReceiver.Hex(),
			"royalty":         amountString(royalty),
		},
	}
}

// DonatedEvent records a furusato donation.
func DonatedEvent(id uint64, from, to common.Address) *types.Event {
	return &types.Event{
		Type: EventTypeDonated,
		Attributes: map[string]string{
			"tokenId": idString(id),
			"from":    from.Hex(),
			"to":      to.Hex(),
		},
	}
}

// ClaimedEvent records a beneficiary payout.
func ClaimedEvent(caller, asset, beneficiary common.Address, amount *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeClaimed,
		Attributes: map[string]string{
			"caller":      caller.Hex(),
			"asset":       events.AssetLabel(asset),
			"beneficiary": beneficiary.Hex(),
			"amount":      amountString(amount),
		},
	}
}

// WithdrawnEvent records a platform change withdrawal.
func WithdrawnEvent(asset, to common.Address, amount *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeWithdrawn,
		Attributes: map[string]string{
			"asset":  events.AssetLabel(asset),
			"to":     to.Hex(),
			"amount": amountString(amount),
		},
	}
}

func roleChangedEvent(eventType string, oldAddr, newAddr common.Address) *types.Event {
	return &types.Event{
		Type: eventType,
		Attributes: map[string]string{
			"old": oldAddr.Hex(),
			"new": newAddr.Hex(),
		},
	}
}

// ExpirationSetEvent records a change of the default validity window.
func ExpirationSetEvent(oldPeriod, newPeriod uint64) *types.Event {
	return &types.Event{
		Type: EventTypeExpirationSet,
		Attributes: map[string]string{
			"old": strconv.FormatUint(oldPeriod, 10),
			"new": strconv.FormatUint(newPeriod, 10),
		},
	}
}

// DefaultRoyaltySetEvent records a change of the collection-wide royalty.
func DefaultRoyaltySetEvent(receiver common.Address, bps uint64) *types.Event {
	return &types.Event{
		Type: EventTypeDefaultRoyalty,
		Attributes: map[string]string{
			"receiver": receiver.Hex(),
			"bps":      strconv.FormatUint(bps, 10),
		},
	}
}

// ApprovalForAllEvent records an operator approval change.
func ApprovalForAllEvent(owner, operator common.Address, approved bool) *types.Event {
	return &types.Event{
		Type: EventTypeApprovalForAll,
		Attributes: map[string]string{
			"owner":    owner.Hex(),
			"operator": operator.Hex(),
			"approved": strconv.FormatBool(approved),
		},
	}
}
