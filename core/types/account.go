package types

import "math/big"

// AccountKind distinguishes plain externally owned accounts from accounts
// that carry code. Recipients and beneficiaries of certificates must be plain
// accounts; payment tokens must be contracts.
type AccountKind uint8

const (
	AccountExternal AccountKind = iota
	AccountContract
)

func (k AccountKind) String() string {
	switch k {
	case AccountExternal:
		return "external"
	case AccountContract:
		return "contract"
	default:
		return "unknown"
	}
}

// Account holds the native-currency balance and the registered kind of an
// address.
type Account struct {
	Kind    AccountKind `json:"kind"`
	Balance *big.Int    `json:"balance"`
	Label   string      `json:"label,omitempty"`
}

// IsContract reports whether the account is registered as a contract.
func (a *Account) IsContract() bool {
	return a != nil && a.Kind == AccountContract
}

// Clone returns a deep copy of the account.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	clone := *a
	if a.Balance != nil {
		clone.Balance = new(big.Int).Set(a.Balance)
	} else {
		clone.Balance = big.NewInt(0)
	}
	return &clone
}
