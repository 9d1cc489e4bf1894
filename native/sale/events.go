package sale

import (
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"certchain/core/events"
	"certchain/core/types"
)

const (
	EventTypeCreated   = "sale.created"
	EventTypeUpdated   = "sale.updated"
	EventTypeCancelled = "sale.cancelled"
	EventTypeBought    = "sale.bought"
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

func joinIDs(ids []uint64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatUint(id, 10)
	}
	return strings.Join(parts, ",")
}

func listingEvent(eventType string, s *Sale) *types.Event {
	return &types.Event{
		Type: eventType,
		Attributes: map[string]string{
			"saleId":     strconv.FormatUint(s.ID, 10),
			"collection": s.Collection.Hex(),
			"manager":    s.Manager.Hex(),
			"tokenIds":   joinIDs(s.TokenIDs()),
		},
	}
}

// CancelledEvent records a cancelled sale.
func CancelledEvent(saleID uint64, manager common.Address) *types.Event {
	return &types.Event{
		Type: EventTypeCancelled,
		Attributes: map[string]string{
			"saleId":  strconv.FormatUint(saleID, 10),
			"manager": manager.Hex(),
		},
	}
}

// BoughtEvent records the purchase of one listed certificate.
func BoughtEvent(saleID, tokenID uint64, buyer, seller, asset common.Address, price *big.Int, royaltyReceiver common.Address, royalty *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeBought,
		Attributes: map[string]string{
			"saleId":          strconv.FormatUint(saleID, 10),
			"tokenId":         strconv.FormatUint(tokenID, 10),
			"buyer":           buyer.Hex(),
			"seller":          seller.Hex(),
			"asset":           events.AssetLabel(asset),
			"price":           price.String(),
			"royaltyReceiver": royaltyReceiver.Hex(),
			"royalty":         royalty.String(),
		},
	}
}
