package certificate

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

func positive(amount *big.Int) bool {
	return amount != nil && amount.Sign() > 0
}

// payout moves amount of asset from the collection account to recipient.
func (e *Engine) payout(asset, to common.Address, amount *big.Int) error {
	if !positive(amount) {
		return nil
	}
	if isZero(asset) {
		return e.assets.TransferNative(e.cfg.Address, to, amount)
	}
	return e.assets.TransferToken(asset, e.cfg.Address, to, amount)
}

func (e *Engine) credit(asset, beneficiary common.Address, price, change *big.Int) error {
	if positive(price) {
		balance, err := e.state.CertificateEscrowBalance(asset, beneficiary)
		if err != nil {
			return err
		}
		if err := e.state.CertificatePutEscrowBalance(asset, beneficiary, new(big.Int).Add(balance, price)); err != nil {
			return err
		}
	}
	if positive(change) {
		current, err := e.state.CertificateChangeBalance(asset)
		if err != nil {
			return err
		}
		if err := e.state.CertificatePutChangeBalance(asset, new(big.Int).Add(current, change)); err != nil {
			return err
		}
	}
	return nil
}

// EscrowBalance returns the amount of asset owed to beneficiary.
func (e *Engine) EscrowBalance(asset, beneficiary common.Address) (*big.Int, error) {
	if err := e.requireState(); err != nil {
		return nil, err
	}
	balance, err := e.state.CertificateEscrowBalance(asset, beneficiary)
	if err != nil {
		return nil, err
	}
	return copyBig(balance), nil
}

// ChangeBalance returns the platform's withdrawable change in asset.
func (e *Engine) ChangeBalance(asset common.Address) (*big.Int, error) {
	if err := e.requireState(); err != nil {
		return nil, err
	}
	balance, err := e.state.CertificateChangeBalance(asset)
	if err != nil {
		return nil, err
	}
	return copyBig(balance), nil
}

// Claim pays out a beneficiary's escrowed sale proceeds. The beneficiary
// itself or the platform owner may trigger it; funds always go to the
// beneficiary.
func (e *Engine) Claim(caller, asset, beneficiary common.Address, amount *big.Int) error {
	return e.atomic(func() error {
		if isZero(beneficiary) {
			return ErrInvalidAddress
		}
		if !positive(amount) {
			return ErrInvalidAmount
		}
		if caller != beneficiary {
			roles, err := e.roles()
			if err != nil {
				return err
			}
			if isZero(caller) || caller != roles.Owner {
				return ErrNotBeneficiary
			}
		}
		balance, err := e.state.CertificateEscrowBalance(asset, beneficiary)
		if err != nil {
			return err
		}
		if balance == nil || balance.Cmp(amount) < 0 {
			return ErrInsufficientBalance
		}
		if err := e.state.CertificatePutEscrowBalance(asset, beneficiary, new(big.Int).Sub(balance, amount)); err != nil {
			return err
		}
		if err := e.payout(asset, beneficiary, amount); err != nil {
			return err
		}
		e.emit(ClaimedEvent(caller, asset, beneficiary, amount))
		return nil
	})
}

// Withdraw sends platform change to the given address. It is bounded both
// by the tracked change balance and by what the collection actually holds.
func (e *Engine) Withdraw(caller, asset, to common.Address, amount *big.Int) error {
	return e.atomic(func() error {
		roles, err := e.roles()
		if err != nil {
			return err
		}
		if isZero(caller) || caller != roles.Owner {
			return ErrNotOwner
		}
		if isZero(to) {
			return ErrInvalidAddress
		}
		if !positive(amount) {
			return ErrInvalidAmount
		}
		change, err := e.state.CertificateChangeBalance(asset)
		if err != nil {
			return err
		}
		if change == nil || change.Cmp(amount) < 0 {
			return ErrInsufficientBalance
		}
		if err := e.state.CertificatePutChangeBalance(asset, new(big.Int).Sub(change, amount)); err != nil {
			return err
		}
		// The payout itself is bounded by the collection's real holdings.
		if err := e.payout(asset, to, amount); err != nil {
			return err
		}
		e.emit(WithdrawnEvent(asset, to, amount))
		e.logger.Info("certificate change withdrawn", "asset", asset.Hex(), "to", to.Hex(), "amount", amount.String())
		return nil
	})
}
