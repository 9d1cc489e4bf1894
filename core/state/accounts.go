package state

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"certchain/core/types"
	"certchain/native/bank"
)

// BankAccountGet loads the account record of addr.
func (m *Manager) BankAccountGet(addr common.Address) (*types.Account, bool, error) {
	account := new(types.Account)
	ok, err := m.KVGet(bankAccountKey(addr), account)
	if err != nil || !ok {
		return nil, false, err
	}
	if account.Balance == nil {
		account.Balance = big.NewInt(0)
	}
	return account, true, nil
}

// BankAccountPut stores the account record of addr.
func (m *Manager) BankAccountPut(addr common.Address, account *types.Account) error {
	if account == nil {
		return m.KVDelete(bankAccountKey(addr))
	}
	record := account.Clone()
	if record.Balance == nil {
		record.Balance = big.NewInt(0)
	}
	return m.KVPut(bankAccountKey(addr), record)
}

// BankTokenGet loads fungible token metadata.
func (m *Manager) BankTokenGet(token common.Address) (*bank.Token, bool, error) {
	meta := new(bank.Token)
	ok, err := m.KVGet(bankTokenKey(token), meta)
	if err != nil || !ok {
		return nil, false, err
	}
	if meta.Supply == nil {
		meta.Supply = big.NewInt(0)
	}
	return meta, true, nil
}

// BankTokenPut stores fungible token metadata.
func (m *Manager) BankTokenPut(token common.Address, meta *bank.Token) error {
	if meta == nil {
		return m.KVDelete(bankTokenKey(token))
	}
	record := *meta
	if record.Supply == nil {
		record.Supply = big.NewInt(0)
	}
	return m.KVPut(bankTokenKey(token), &record)
}

// BankBalanceGet returns holder's balance of token.
func (m *Manager) BankBalanceGet(token, holder common.Address) (*big.Int, error) {
	return m.loadBig(bankBalanceKey(token, holder))
}

// BankBalancePut stores holder's balance of token.
func (m *Manager) BankBalancePut(token, holder common.Address, amount *big.Int) error {
	return m.storeBig(bankBalanceKey(token, holder), amount)
}

// BankAllowanceGet returns the allowance owner granted spender.
func (m *Manager) BankAllowanceGet(token, owner, spender common.Address) (*big.Int, error) {
	return m.loadBig(bankAllowanceKey(token, owner, spender))
}

// BankAllowancePut stores the allowance owner granted spender.
func (m *Manager) BankAllowancePut(token, owner, spender common.Address, amount *big.Int) error {
	return m.storeBig(bankAllowanceKey(token, owner, spender), amount)
}
