package sale

import (
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"certchain/core/events"
	"certchain/core/types"
	"certchain/native/certificate"
)

type engineState interface {
	SaleLastID() (uint64, error)
	SaleSetLastID(id uint64) error
	SaleGet(id uint64) (*Sale, bool, error)
	SalePut(sale *Sale) error
	Snapshot() int
	RevertToSnapshot(id int)
}

// Collection is the certificate collection a sale lists tokens from.
type Collection interface {
	Address() common.Address
	Token(id uint64) (*certificate.Token, error)
	RoyaltyInfo(id uint64, salePrice *big.Int) (common.Address, *big.Int, error)
	TransferFrom(operator, from, to common.Address, id uint64) error
}

// Assets moves the buyer's payment.
type Assets interface {
	IsContract(addr common.Address) (bool, error)
	TransferNative(from, to common.Address, amount *big.Int) error
	TransferTokenFrom(token, spender, from, to common.Address, amount *big.Int) error
}

// Engine runs fixed-price sales of certificates. The sale account must be
// an approved operator of each manager so it can deliver sold tokens, and
// buyers paying with fungible tokens approve the sale account as spender.
type Engine struct {
	address     common.Address
	collections map[common.Address]Collection
	state       engineState
	assets      Assets
	emitter     events.Emitter
	logger      *slog.Logger
	nowFn       func() int64

	depth   int
	pending []*types.Event
}

// NewEngine constructs a sale engine operating from the given account.
func NewEngine(address common.Address) *Engine {
	return &Engine{
		address:     address,
		collections: make(map[common.Address]Collection),
		emitter:     events.NoopEmitter{},
		logger:      slog.Default(),
		nowFn: func() int64 {
			return time.Now().Unix()
		},
	}
}

// Address returns the sale account.
func (e *Engine) Address() common.Address { return e.address }

// RegisterCollection makes a certificate collection available for listing.
func (e *Engine) RegisterCollection(c Collection) {
	if c == nil {
		return
	}
	e.collections[c.Address()] = c
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetAssets configures the asset ledger used for payments.
func (e *Engine) SetAssets(assets Assets) { e.assets = assets }

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetLogger configures the structured logger.
func (e *Engine) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	e.logger = logger.With("component", "sale")
}

// SetNowFunc overrides the time source used for deterministic testing.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

func (e *Engine) now() uint64 {
	ts := e.nowFn()
	if ts < 0 {
		return 0
	}
	return uint64(ts)
}

func (e *Engine) atomic(fn func() error) error {
	if e.state == nil {
		return errNilState
	}
	if e.assets == nil {
		return errNilAssets
	}
	if e.depth > 0 {
		return fn()
	}
	snapshot := e.state.Snapshot()
	e.depth++
	err := fn()
	e.depth--
	if err != nil {
		e.state.RevertToSnapshot(snapshot)
		e.pending = nil
		return err
	}
	emitted := e.pending
	e.pending = nil
	for _, evt := range emitted {
		e.emitter.Emit(eventEnvelope{evt: evt})
	}
	return nil
}

func (e *Engine) emit(evt *types.Event) { e.pending = append(e.pending, evt) }

func (e *Engine) load(id uint64) (*Sale, error) {
	s, ok, err := e.state.SaleGet(id)
	if err != nil {
		return nil, err
	}
	if !ok || s == nil {
		return nil, ErrNonexistentSale
	}
	return s, nil
}

func (e *Engine) validateItems(collection Collection, manager common.Address, items []Item) error {
	if len(items) == 0 {
		return ErrEmptyTokenIDs
	}
	if len(items) > MaxItems {
		return ErrLimitLength
	}
	seen := make(map[uint64]struct{}, len(items))
	for _, item := range items {
		if item.Price == nil || item.Price.Sign() <= 0 {
			return ErrInvalidPrice
		}
		if item.PaymentToken != (common.Address{}) {
			contract, err := e.assets.IsContract(item.PaymentToken)
			if err != nil {
				return err
			}
			if !contract {
				return ErrInvalidTokenAddress
			}
		}
		if _, dup := seen[item.TokenID]; dup {
			return ErrDuplicateToken
		}
		seen[item.TokenID] = struct{}{}
		token, err := collection.Token(item.TokenID)
		if err != nil {
			return err
		}
		if token.Owner != manager {
			return ErrNotTokenOwner
		}
	}
	return nil
}

func freshItems(items []Item) []Item {
	out := make([]Item, len(items))
	for i, item := range items {
		out[i] = Item{
			TokenID:      item.TokenID,
			PaymentToken: item.PaymentToken,
			Price:        new(big.Int).Set(item.Price),
			Status:       ItemAvailable,
		}
	}
	return out
}

// Create lists certificates of collection owned by manager. ids,
// paymentTokens and prices are parallel slices.
func (e *Engine) Create(manager, collection common.Address, ids []uint64, paymentTokens []common.Address, prices []*big.Int) (*Sale, error) {
	var created *Sale
	err := e.atomic(func() error {
		c, ok := e.collections[collection]
		if !ok || collection == (common.Address{}) {
			return ErrInvalidTokenAddress
		}
		if len(ids) == 0 {
			return ErrEmptyTokenIDs
		}
		if len(ids) > MaxItems {
			return ErrLimitLength
		}
		if len(ids) != len(paymentTokens) || len(ids) != len(prices) {
			return ErrInconsistentLength
		}
		if manager == (common.Address{}) {
			return ErrInvalidAddress
		}
		items := make([]Item, len(ids))
		for i := range ids {
			items[i] = Item{TokenID: ids[i], PaymentToken: paymentTokens[i], Price: prices[i]}
		}
		if err := e.validateItems(c, manager, items); err != nil {
			return err
		}
		lastID, err := e.state.SaleLastID()
		if err != nil {
			return err
		}
		now := e.now()
		s := &Sale{
			ID:         lastID + 1,
			Collection: collection,
			Manager:    manager,
			Status:     StatusLive,
			Items:      freshItems(items),
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := e.state.SaleSetLastID(s.ID); err != nil {
			return err
		}
		if err := e.state.SalePut(s); err != nil {
			return err
		}
		e.emit(listingEvent(EventTypeCreated, s))
		created = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created.Clone(), nil
}

func (e *Engine) managed(manager common.Address, saleID uint64) (*Sale, error) {
	s, err := e.load(saleID)
	if err != nil {
		return nil, err
	}
	if s.Manager != manager {
		return nil, ErrNotManager
	}
	if s.Status == StatusCancelled {
		return nil, ErrSaleCancelled
	}
	return s, nil
}

// Update replaces the listing of a live sale. A sale that already sold a
// certificate can no longer be changed.
func (e *Engine) Update(manager common.Address, saleID uint64, items []Item) (*Sale, error) {
	var updated *Sale
	err := e.atomic(func() error {
		s, err := e.managed(manager, saleID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return ErrEmptyTokenIDs
		}
		if len(items) > MaxItems {
			return ErrLimitLength
		}
		for _, existing := range s.Items {
			if existing.Status == ItemSold {
				return ErrTokenSold
			}
		}
		c, ok := e.collections[s.Collection]
		if !ok {
			return ErrInvalidTokenAddress
		}
		if err := e.validateItems(c, manager, items); err != nil {
			return err
		}
		s.Items = freshItems(items)
		s.UpdatedAt = e.now()
		if err := e.state.SalePut(s); err != nil {
			return err
		}
		e.emit(listingEvent(EventTypeUpdated, s))
		updated = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated.Clone(), nil
}

// Cancel closes a live sale.
func (e *Engine) Cancel(manager common.Address, saleID uint64) error {
	return e.atomic(func() error {
		s, err := e.managed(manager, saleID)
		if err != nil {
			return err
		}
		s.Status = StatusCancelled
		s.UpdatedAt = e.now()
		if err := e.state.SalePut(s); err != nil {
			return err
		}
		e.emit(CancelledEvent(saleID, manager))
		return nil
	})
}

// Buy purchases one listed certificate. The manager receives the price
// minus the collection royalty, the royalty receiver receives the rest, and
// the certificate moves to the buyer.
func (e *Engine) Buy(buyer common.Address, saleID, tokenID uint64, value *big.Int) error {
	return e.atomic(func() error {
		if buyer == (common.Address{}) {
			return ErrInvalidAddress
		}
		s, err := e.load(saleID)
		if err != nil {
			return err
		}
		if s.Status == StatusCancelled {
			return ErrSaleCancelled
		}
		idx, ok := s.item(tokenID)
		if !ok {
			return ErrTokenNotListed
		}
		item := s.Items[idx]
		if item.Status == ItemSold {
			return ErrTokenSold
		}
		c, ok := e.collections[s.Collection]
		if !ok {
			return ErrInvalidTokenAddress
		}
		token, err := c.Token(tokenID)
		if err != nil {
			return err
		}
		if token.Owner != s.Manager {
			return ErrNotTokenOwner
		}
		if buyer == token.Owner {
			return ErrAlreadyOwned
		}
		native := item.PaymentToken == (common.Address{})
		if native {
			if value == nil || value.Cmp(item.Price) != 0 {
				return ErrInvalidAttachedValue
			}
		} else if value != nil && value.Sign() != 0 {
			return ErrUnexpectedAttachedValue
		}
		receiver, royalty, err := c.RoyaltyInfo(tokenID, item.Price)
		if err != nil {
			return err
		}
		if receiver == (common.Address{}) || royalty == nil {
			royalty = big.NewInt(0)
		}
		share := new(big.Int).Sub(item.Price, royalty)

		s.Items[idx].Status = ItemSold
		s.UpdatedAt = e.now()
		if err := e.state.SalePut(s); err != nil {
			return err
		}
		if err := e.pay(item.PaymentToken, buyer, s.Manager, share); err != nil {
			return err
		}
		if err := e.pay(item.PaymentToken, buyer, receiver, royalty); err != nil {
			return err
		}
		if err := c.TransferFrom(e.address, s.Manager, buyer, tokenID); err != nil {
			return err
		}
		e.emit(BoughtEvent(saleID, tokenID, buyer, s.Manager, item.PaymentToken, item.Price, receiver, royalty))
		return nil
	})
}

func (e *Engine) pay(asset, from, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return nil
	}
	if asset == (common.Address{}) {
		return e.assets.TransferNative(from, to, amount)
	}
	return e.assets.TransferTokenFrom(asset, e.address, from, to, amount)
}

// Sale returns a copy of the sale record.
func (e *Engine) Sale(id uint64) (*Sale, error) {
	if e.state == nil {
		return nil, errNilState
	}
	s, err := e.load(id)
	if err != nil {
		return nil, err
	}
	return s.Clone(), nil
}

// LastID returns the most recently created sale id.
func (e *Engine) LastID() (uint64, error) {
	if e.state == nil {
		return 0, errNilState
	}
	return e.state.SaleLastID()
}
