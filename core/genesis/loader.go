package genesis

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"certchain/core/types"
	"certchain/native/bank"
	"certchain/native/certificate"
)

// Ledger names the engines a genesis document is applied to. Sale is
// optional.
type Ledger struct {
	Bank         *bank.Engine
	Certificates *certificate.Engine
	Sale         interface{ Address() common.Address }
}

func accountKind(raw string) types.AccountKind {
	if strings.EqualFold(strings.TrimSpace(raw), "contract") {
		return types.AccountContract
	}
	return types.AccountExternal
}

// Apply seeds the ledger from spec. Callers run it inside a single atomic
// host operation so a failure leaves no partial genesis behind.
func Apply(spec *GenesisSpec, ledger Ledger) error {
	if spec == nil {
		return fmt.Errorf("genesis spec must not be nil")
	}
	if ledger.Bank == nil || ledger.Certificates == nil {
		return fmt.Errorf("genesis: bank and certificate engines are required")
	}
	b := ledger.Bank
	certs := ledger.Certificates

	if err := b.RegisterAccount(certs.Address(), types.AccountContract, "collection"); err != nil {
		return fmt.Errorf("register collection: %w", err)
	}
	if ledger.Sale != nil {
		if err := b.RegisterAccount(ledger.Sale.Address(), types.AccountContract, "sale"); err != nil {
			return fmt.Errorf("register sale: %w", err)
		}
	}

	for i, acct := range spec.Accounts {
		if err := b.RegisterAccount(acct.addr, accountKind(acct.Kind), acct.Label); err != nil {
			return fmt.Errorf("accounts[%d]: %w", i, err)
		}
		if acct.balance.Sign() > 0 {
			if err := b.CreditNative(acct.addr, acct.balance); err != nil {
				return fmt.Errorf("accounts[%d]: %w", i, err)
			}
		}
	}

	for i, token := range spec.Tokens {
		meta := bank.Token{
			Name:     token.Name,
			Symbol:   token.Symbol,
			Decimals: token.Decimals,
			Minter:   token.minter,
		}
		if err := b.DeployToken(token.addr, meta); err != nil {
			return fmt.Errorf("tokens[%d]: %w", i, err)
		}
		for _, alloc := range token.alloc {
			if err := b.MintToken(token.minter, token.addr, alloc.holder, alloc.amount); err != nil {
				return fmt.Errorf("tokens[%d]: alloc %s: %w", i, alloc.holder.Hex(), err)
			}
		}
	}

	if err := certs.InitRoles(spec.Roles.roles); err != nil {
		return fmt.Errorf("roles: %w", err)
	}
	owner := spec.Roles.roles.Owner
	if spec.ExpirationPeriod > 0 {
		if err := certs.SetExpiration(owner, spec.ExpirationPeriod); err != nil {
			return fmt.Errorf("expirationPeriod: %w", err)
		}
	}
	if spec.DefaultRoyalty != nil {
		if err := certs.SetDefaultRoyalty(owner, spec.DefaultRoyalty.receiver, spec.DefaultRoyalty.Bps); err != nil {
			return fmt.Errorf("defaultRoyalty: %w", err)
		}
	}
	return nil
}
