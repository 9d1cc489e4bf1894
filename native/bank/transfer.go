package bank

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"certchain/core/events"
)

func validAmount(amount *big.Int) bool {
	return amount != nil && amount.Sign() >= 0
}

// CreditNative mints native currency into addr. It backs genesis
// allocations and the development faucet.
func (e *Engine) CreditNative(addr common.Address, amount *big.Int) error {
	if !validAmount(amount) {
		return ErrInvalidAmount
	}
	account, err := e.account(addr)
	if err != nil {
		return err
	}
	account.Balance = new(big.Int).Add(account.Balance, amount)
	if err := e.state.BankAccountPut(addr, account); err != nil {
		return err
	}
	e.emitter.Emit(events.Transfer{Asset: common.Address{}, To: addr, Amount: new(big.Int).Set(amount)})
	return nil
}

// TransferNative moves native currency between accounts.
func (e *Engine) TransferNative(from, to common.Address, amount *big.Int) error {
	if !validAmount(amount) {
		return ErrInvalidAmount
	}
	if to == (common.Address{}) {
		return ErrInvalidAddress
	}
	sender, err := e.account(from)
	if err != nil {
		return err
	}
	if sender.Balance.Cmp(amount) < 0 {
		return ErrInsufficientNative
	}
	if amount.Sign() == 0 || from == to {
		return nil
	}
	recipient, err := e.account(to)
	if err != nil {
		return err
	}
	sender.Balance = new(big.Int).Sub(sender.Balance, amount)
	recipient.Balance = new(big.Int).Add(recipient.Balance, amount)
	if err := e.state.BankAccountPut(from, sender); err != nil {
		return err
	}
	if err := e.state.BankAccountPut(to, recipient); err != nil {
		return err
	}
	e.emitter.Emit(events.Transfer{Asset: common.Address{}, From: from, To: to, Amount: new(big.Int).Set(amount)})
	return nil
}

// MintToken creates new units of token for to. Only the token's minter may
// call it.
func (e *Engine) MintToken(caller, token, to common.Address, amount *big.Int) error {
	if !validAmount(amount) {
		return ErrInvalidAmount
	}
	if to == (common.Address{}) {
		return ErrInvalidAddress
	}
	meta, err := e.token(token)
	if err != nil {
		return err
	}
	if meta.Minter != caller {
		return ErrNotMinter
	}
	balance, err := e.state.BankBalanceGet(token, to)
	if err != nil {
		return err
	}
	meta.Supply = new(big.Int).Add(meta.Supply, amount)
	if err := e.state.BankTokenPut(token, meta); err != nil {
		return err
	}
	if err := e.state.BankBalancePut(token, to, new(big.Int).Add(balance, amount)); err != nil {
		return err
	}
	e.emitter.Emit(events.Transfer{Asset: token, To: to, Amount: new(big.Int).Set(amount)})
	return nil
}

func (e *Engine) moveToken(token, from, to common.Address, amount *big.Int) error {
	if to == (common.Address{}) {
		return ErrInvalidAddress
	}
	balance, err := e.state.BankBalanceGet(token, from)
	if err != nil {
		return err
	}
	if balance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	if amount.Sign() == 0 || from == to {
		return nil
	}
	received, err := e.state.BankBalanceGet(token, to)
	if err != nil {
		return err
	}
	if err := e.state.BankBalancePut(token, from, new(big.Int).Sub(balance, amount)); err != nil {
		return err
	}
	if err := e.state.BankBalancePut(token, to, new(big.Int).Add(received, amount)); err != nil {
		return err
	}
	e.emitter.Emit(events.Transfer{Asset: token, From: from, To: to, Amount: new(big.Int).Set(amount)})
	return nil
}

// TransferToken moves token units held by from.
func (e *Engine) TransferToken(token, from, to common.Address, amount *big.Int) error {
	if !validAmount(amount) {
		return ErrInvalidAmount
	}
	if _, err := e.token(token); err != nil {
		return err
	}
	return e.moveToken(token, from, to, amount)
}

// Approve sets the allowance spender may draw from owner's balance.
func (e *Engine) Approve(token, owner, spender common.Address, amount *big.Int) error {
	if !validAmount(amount) {
		return ErrInvalidAmount
	}
	if owner == (common.Address{}) || spender == (common.Address{}) {
		return ErrInvalidAddress
	}
	if _, err := e.token(token); err != nil {
		return err
	}
	if err := e.state.BankAllowancePut(token, owner, spender, new(big.Int).Set(amount)); err != nil {
		return err
	}
	e.emitter.Emit(events.Approval{Token: token, Owner: owner, Spender: spender, Amount: new(big.Int).Set(amount)})
	return nil
}

// TransferTokenFrom moves token units from one holder to another using the
// allowance granted to spender. The allowance is checked before the
// balance.
func (e *Engine) TransferTokenFrom(token, spender, from, to common.Address, amount *big.Int) error {
	if !validAmount(amount) {
		return ErrInvalidAmount
	}
	if _, err := e.token(token); err != nil {
		return err
	}
	allowance, err := e.state.BankAllowanceGet(token, from, spender)
	if err != nil {
		return err
	}
	if allowance.Cmp(amount) < 0 {
		return ErrInsufficientAllowance
	}
	if err := e.moveToken(token, from, to, amount); err != nil {
		return err
	}
	if amount.Sign() == 0 {
		return nil
	}
	return e.state.BankAllowancePut(token, from, spender, new(big.Int).Sub(allowance, amount))
}
