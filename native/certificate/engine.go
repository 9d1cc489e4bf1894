package certificate

import (
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"certchain/core/events"
	"certchain/core/types"
)

type engineState interface {
	CertificateLastID() (uint64, error)
	CertificateSetLastID(id uint64) error
	CertificateGet(id uint64) (*Token, bool, error)
	CertificatePut(token *Token) error
	CertificateDigestTokenID(digest common.Hash) (uint64, bool, error)
	CertificatePutDigest(digest common.Hash, id uint64) error
	CertificateSignatureTokenID(sigHash common.Hash) (uint64, bool, error)
	CertificatePutSignature(sigHash common.Hash, id uint64) error
	CertificateEscrowBalance(asset, beneficiary common.Address) (*big.Int, error)
	CertificatePutEscrowBalance(asset, beneficiary common.Address, amount *big.Int) error
	CertificateChangeBalance(asset common.Address) (*big.Int, error)
	CertificatePutChangeBalance(asset common.Address, amount *big.Int) error
	CertificateRoyalty(id uint64) (*Royalty, bool, error)
	CertificatePutRoyalty(id uint64, royalty *Royalty) error
	CertificateDefaultRoyalty() (*Royalty, error)
	CertificatePutDefaultRoyalty(royalty *Royalty) error
	CertificateRoles() (*Roles, error)
	CertificatePutRoles(roles *Roles) error
	CertificateParams() (*Params, bool, error)
	CertificatePutParams(params *Params) error
	CertificateHolderCount(owner common.Address) (uint64, error)
	CertificatePutHolderCount(owner common.Address, count uint64) error
	CertificateOperatorApproved(owner, operator common.Address) (bool, error)
	CertificatePutOperatorApproval(owner, operator common.Address, approved bool) error
	Snapshot() int
	RevertToSnapshot(id int)
}

// Assets is the ledger that holds native balances and fungible payment
// tokens, and knows which addresses are contracts.
type Assets interface {
	IsContract(addr common.Address) (bool, error)
	NativeBalance(addr common.Address) (*big.Int, error)
	TransferNative(from, to common.Address, amount *big.Int) error
	TokenBalance(token, holder common.Address) (*big.Int, error)
	TransferToken(token, from, to common.Address, amount *big.Int) error
	TransferTokenFrom(token, spender, from, to common.Address, amount *big.Int) error
}

// Engine implements minting, settlement, attribute updates and transfers
// for a single certificate collection.
type Engine struct {
	cfg     Config
	state   engineState
	assets  Assets
	emitter events.Emitter
	logger  *slog.Logger
	nowFn   func() int64

	depth   int
	pending []*types.Event
}

// NewEngine constructs a certificate engine with default dependencies.
func NewEngine(cfg Config) *Engine {
	return &Engine{
		cfg:     cfg,
		emitter: events.NoopEmitter{},
		logger:  slog.Default(),
		nowFn: func() int64 {
			return time.Now().Unix()
		},
	}
}

// Address returns the collection account.
func (e *Engine) Address() common.Address { return e.cfg.Address }

// Config returns the static collection configuration.
func (e *Engine) Config() Config { return e.cfg }

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
	e.logger = logger.With("component", "certificate", "collection", e.cfg.Address.Hex())
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

// atomic runs fn against a state snapshot. Any error rolls the state back
// and drops the events fn produced; on success the events are emitted in
// order. Nested calls join the outermost snapshot.
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
		e.emitter.Emit(WrapEvent(evt))
	}
	return nil
}

func (e *Engine) emit(evt *types.Event) {
	e.pending = append(e.pending, evt)
}

func (e *Engine) isContract(addr common.Address) (bool, error) {
	return e.assets.IsContract(addr)
}

func (e *Engine) plainAccount(addr common.Address) (bool, error) {
	if isZero(addr) {
		return false, nil
	}
	contract, err := e.isContract(addr)
	if err != nil {
		return false, err
	}
	return !contract, nil
}

func (e *Engine) roles() (*Roles, error) {
	roles, err := e.state.CertificateRoles()
	if err != nil {
		return nil, err
	}
	if roles == nil {
		roles = &Roles{}
	}
	return roles, nil
}

func (e *Engine) params() (*Params, error) {
	params, ok, err := e.state.CertificateParams()
	if err != nil {
		return nil, err
	}
	if !ok || params == nil {
		return &Params{ExpirationPeriod: DefaultExpirationPeriod}, nil
	}
	return params, nil
}

func (e *Engine) loadToken(id uint64) (*Token, error) {
	token, ok, err := e.state.CertificateGet(id)
	if err != nil {
		return nil, err
	}
	if !ok || token == nil {
		return nil, ErrNonexistentToken
	}
	return token, nil
}

func (e *Engine) adjustHolderCount(owner common.Address, delta int) error {
	count, err := e.state.CertificateHolderCount(owner)
	if err != nil {
		return err
	}
	switch {
	case delta > 0:
		count += uint64(delta)
	case uint64(-delta) > count:
		return fmt.Errorf("%w: holder %s has %d certificates, cannot remove %d", errHolderCountUnderflow, owner.Hex(), count, -delta)
	default:
		count -= uint64(-delta)
	}
	return e.state.CertificatePutHolderCount(owner, count)
}

func (e *Engine) requireState() error {
	if e.state == nil {
		return errNilState
	}
	return nil
}

// LastID returns the most recently minted token id, zero before the first
// mint.
func (e *Engine) LastID() (uint64, error) {
	if err := e.requireState(); err != nil {
		return 0, err
	}
	return e.state.CertificateLastID()
}

// Token returns a copy of the stored certificate.
func (e *Engine) Token(id uint64) (*Token, error) {
	if err := e.requireState(); err != nil {
		return nil, err
	}
	token, err := e.loadToken(id)
	if err != nil {
		return nil, err
	}
	return token.Clone(), nil
}

// OwnerOf returns the current holder of the token.
func (e *Engine) OwnerOf(id uint64) (common.Address, error) {
	token, err := e.Token(id)
	if err != nil {
		return common.Address{}, err
	}
	return token.Owner, nil
}

// TokenURI returns the metadata URI of the token.
func (e *Engine) TokenURI(id uint64) (string, error) {
	token, err := e.Token(id)
	if err != nil {
		return "", err
	}
	return token.URI, nil
}

// TypeOf returns the lifecycle type of the token.
func (e *Engine) TypeOf(id uint64) (TokenType, error) {
	token, err := e.Token(id)
	if err != nil {
		return 0, err
	}
	return token.Type, nil
}

// ExpirationOf returns the unix expiry of the token. Expiry is advisory and
// does not gate any operation.
func (e *Engine) ExpirationOf(id uint64) (uint64, error) {
	token, err := e.Token(id)
	if err != nil {
		return 0, err
	}
	return token.Expiration, nil
}

// TokenIDOf returns the token minted with sig, if any.
func (e *Engine) TokenIDOf(sig []byte) (uint64, bool, error) {
	if err := e.requireState(); err != nil {
		return 0, false, err
	}
	return e.state.CertificateSignatureTokenID(SignatureHash(sig))
}

// BalanceOf returns the number of certificates held by owner.
func (e *Engine) BalanceOf(owner common.Address) (uint64, error) {
	if err := e.requireState(); err != nil {
		return 0, err
	}
	if isZero(owner) {
		return 0, ErrInvalidAddress
	}
	return e.state.CertificateHolderCount(owner)
}

// IsApprovedForAll reports whether operator may move every token of owner.
func (e *Engine) IsApprovedForAll(owner, operator common.Address) (bool, error) {
	if err := e.requireState(); err != nil {
		return false, err
	}
	return e.state.CertificateOperatorApproved(owner, operator)
}

// Roles returns the authority record.
func (e *Engine) Roles() (*Roles, error) {
	if err := e.requireState(); err != nil {
		return nil, err
	}
	roles, err := e.roles()
	if err != nil {
		return nil, err
	}
	clone := *roles
	return &clone, nil
}

// ExpirationPeriod returns the default validity window in seconds.
func (e *Engine) ExpirationPeriod() (uint64, error) {
	if err := e.requireState(); err != nil {
		return 0, err
	}
	params, err := e.params()
	if err != nil {
		return 0, err
	}
	return params.ExpirationPeriod, nil
}
