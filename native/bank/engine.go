package bank

import (
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	coreerrors "certchain/core/errors"
	"certchain/core/events"
	"certchain/core/types"
)

func newError(kind coreerrors.Kind, code, reason string) *coreerrors.Error {
	return coreerrors.New("bank", kind, code, reason)
}

var (
	// ErrInsufficientNative is returned when a native transfer exceeds the
	// sender's balance.
	ErrInsufficientNative = newError(coreerrors.KindEconomic, "insufficient_native", "Address: insufficient balance")
	// ErrInsufficientBalance is returned when a token transfer exceeds the
	// holder's balance.
	ErrInsufficientBalance = newError(coreerrors.KindEconomic, "insufficient_token_balance", "ERC20: transfer amount exceeds balance")
	// ErrInsufficientAllowance is returned when a delegated transfer exceeds
	// the approved allowance.
	ErrInsufficientAllowance = newError(coreerrors.KindEconomic, "insufficient_allowance", "ERC20: insufficient allowance")

	ErrInvalidAmount  = newError(coreerrors.KindValidation, "invalid_amount", "Invalid amount")
	ErrInvalidAddress = newError(coreerrors.KindValidation, "invalid_address", "Invalid address")
	ErrUnknownToken   = newError(coreerrors.KindState, "unknown_token", "Unknown token")
	ErrTokenExists    = newError(coreerrors.KindState, "token_exists", "Token already deployed")
	ErrAccountInUse   = newError(coreerrors.KindState, "account_in_use", "Account already registered")
	ErrNotMinter      = newError(coreerrors.KindAuthorization, "not_minter", "Caller is not minter")

	errNilState = newError(coreerrors.KindUnknown, "internal", "state not configured")
)

type engineState interface {
	BankAccountGet(addr common.Address) (*types.Account, bool, error)
	BankAccountPut(addr common.Address, account *types.Account) error
	BankTokenGet(token common.Address) (*Token, bool, error)
	BankTokenPut(token common.Address, meta *Token) error
	BankBalanceGet(token, holder common.Address) (*big.Int, error)
	BankBalancePut(token, holder common.Address, amount *big.Int) error
	BankAllowanceGet(token, owner, spender common.Address) (*big.Int, error)
	BankAllowancePut(token, owner, spender common.Address, amount *big.Int) error
}

// Token describes a fungible payment token.
type Token struct {
	Name     string
	Symbol   string
	Decimals uint8
	Minter   common.Address
	Supply   *big.Int
}

// Engine keeps native balances, fungible token ledgers and the account kind
// registry used to tell contracts from plain accounts.
type Engine struct {
	state   engineState
	emitter events.Emitter
	logger  *slog.Logger
}

// NewEngine constructs a bank engine with default dependencies.
func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}, logger: slog.Default()}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

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
	e.logger = logger.With("component", "bank")
}

func (e *Engine) account(addr common.Address) (*types.Account, error) {
	if e.state == nil {
		return nil, errNilState
	}
	account, ok, err := e.state.BankAccountGet(addr)
	if err != nil {
		return nil, err
	}
	if !ok || account == nil {
		return &types.Account{Kind: types.AccountExternal, Balance: big.NewInt(0)}, nil
	}
	if account.Balance == nil {
		account.Balance = big.NewInt(0)
	}
	return account, nil
}

// RegisterAccount records the kind of addr. Contract accounts cannot become
// plain accounts again.
func (e *Engine) RegisterAccount(addr common.Address, kind types.AccountKind, label string) error {
	if addr == (common.Address{}) {
		return ErrInvalidAddress
	}
	account, err := e.account(addr)
	if err != nil {
		return err
	}
	if account.IsContract() && kind != types.AccountContract {
		return ErrAccountInUse
	}
	account.Kind = kind
	if label != "" {
		account.Label = label
	}
	return e.state.BankAccountPut(addr, account)
}

// Account returns a copy of the account record.
func (e *Engine) Account(addr common.Address) (*types.Account, error) {
	account, err := e.account(addr)
	if err != nil {
		return nil, err
	}
	return account.Clone(), nil
}

// IsContract reports whether addr is registered as a contract.
func (e *Engine) IsContract(addr common.Address) (bool, error) {
	account, err := e.account(addr)
	if err != nil {
		return false, err
	}
	return account.IsContract(), nil
}

// NativeBalance returns the native currency balance of addr.
func (e *Engine) NativeBalance(addr common.Address) (*big.Int, error) {
	account, err := e.account(addr)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(account.Balance), nil
}

// TokenInfo returns the metadata of a deployed token.
func (e *Engine) TokenInfo(token common.Address) (*Token, error) {
	meta, err := e.token(token)
	if err != nil {
		return nil, err
	}
	clone := *meta
	clone.Supply = new(big.Int).Set(meta.Supply)
	return &clone, nil
}

func (e *Engine) token(token common.Address) (*Token, error) {
	if e.state == nil {
		return nil, errNilState
	}
	meta, ok, err := e.state.BankTokenGet(token)
	if err != nil {
		return nil, err
	}
	if !ok || meta == nil {
		return nil, ErrUnknownToken
	}
	if meta.Supply == nil {
		meta.Supply = big.NewInt(0)
	}
	return meta, nil
}

// DeployToken registers a fungible token at addr. The address becomes a
// contract account.
func (e *Engine) DeployToken(addr common.Address, meta Token) error {
	if addr == (common.Address{}) {
		return ErrInvalidAddress
	}
	if e.state == nil {
		return errNilState
	}
	if _, ok, err := e.state.BankTokenGet(addr); err != nil {
		return err
	} else if ok {
		return ErrTokenExists
	}
	if err := e.RegisterAccount(addr, types.AccountContract, meta.Symbol); err != nil {
		return err
	}
	meta.Supply = big.NewInt(0)
	return e.state.BankTokenPut(addr, &meta)
}

// TokenBalance returns the balance of holder in token.
func (e *Engine) TokenBalance(token, holder common.Address) (*big.Int, error) {
	if _, err := e.token(token); err != nil {
		return nil, err
	}
	balance, err := e.state.BankBalanceGet(token, holder)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(balance), nil
}

// Allowance returns how much spender may move from owner's token balance.
func (e *Engine) Allowance(token, owner, spender common.Address) (*big.Int, error) {
	if _, err := e.token(token); err != nil {
		return nil, err
	}
	allowance, err := e.state.BankAllowanceGet(token, owner, spender)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(allowance), nil
}
