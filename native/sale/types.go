package sale

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// MaxItems bounds how many certificates a single sale may list.
const MaxItems = 50

// Status is the lifecycle state of a sale.
type Status uint8

const (
	StatusLive Status = iota
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusLive:
		return "live"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// ItemStatus tracks whether a listed certificate is still for sale.
type ItemStatus uint8

const (
	ItemAvailable ItemStatus = iota
	ItemSold
)

func (s ItemStatus) String() string {
	switch s {
	case ItemAvailable:
		return "available"
	case ItemSold:
		return "sold"
	default:
		return "unknown"
	}
}

// Item is one listed certificate with its asking price.
type Item struct {
	TokenID      uint64
	PaymentToken common.Address
	Price        *big.Int
	Status       ItemStatus
}

// Sale is a manager's listing of certificates from one collection.
type Sale struct {
	ID         uint64
	Collection common.Address
	Manager    common.Address
	Status     Status
	Items      []Item
	CreatedAt  uint64
	UpdatedAt  uint64
}

// Clone returns a deep copy of the sale.
func (s *Sale) Clone() *Sale {
	if s == nil {
		return nil
	}
	clone := *s
	clone.Items = make([]Item, len(s.Items))
	for i, item := range s.Items {
		clone.Items[i] = item
		if item.Price != nil {
			clone.Items[i].Price = new(big.Int).Set(item.Price)
		}
	}
	return &clone
}

// TokenIDs returns the listed certificate ids in listing order.
func (s *Sale) TokenIDs() []uint64 {
	ids := make([]uint64, len(s.Items))
	for i, item := range s.Items {
		ids[i] = item.TokenID
	}
	return ids
}

func (s *Sale) item(tokenID uint64) (int, bool) {
	for i, item := range s.Items {
		if item.TokenID == tokenID {
			return i, true
		}
	}
	return -1, false
}
