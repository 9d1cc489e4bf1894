package certificate

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

func checkTransferable(token *Token) error {
	if !token.Active {
		return ErrTokenDeactive
	}
	if token.Type != TypeNormal {
		return ErrNotTransferable
	}
	return nil
}

// move reassigns ownership and records the transfer. Callers have already
// validated the move.
func (e *Engine) move(token *Token, to common.Address) error {
	from := token.Owner
	token.Owner = to
	if e.cfg.RefreshExpirationOnTransfer {
		params, err := e.params()
		if err != nil {
			return err
		}
		period := params.ExpirationPeriod
		if token.YearPeriod > 0 {
			period = token.YearPeriod * SecondsPerYear
		}
		token.Expiration = saturatingAdd(e.now(), period)
	}
	if err := e.state.CertificatePut(token); err != nil {
		return err
	}
	if err := e.adjustHolderCount(from, -1); err != nil {
		return err
	}
	if err := e.adjustHolderCount(to, 1); err != nil {
		return err
	}
	e.emit(TransferEvent(from, to, token.ID))
	return nil
}

// Transfer moves a token held by caller to another account.
func (e *Engine) Transfer(caller, to common.Address, id uint64) error {
	return e.atomic(func() error {
		token, err := e.loadToken(id)
		if err != nil {
			return err
		}
		if token.Owner != caller {
			return ErrNotTokenOwner
		}
		if to == caller {
			return ErrTransferToSelf
		}
		if isZero(to) {
			return ErrInvalidAddress
		}
		if err := checkTransferable(token); err != nil {
			return err
		}
		return e.move(token, to)
	})
}

// SetApprovalForAll lets operator move every token caller holds.
func (e *Engine) SetApprovalForAll(caller, operator common.Address, approved bool) error {
	return e.atomic(func() error {
		if isZero(caller) || isZero(operator) || caller == operator {
			return ErrInvalidAddress
		}
		if err := e.state.CertificatePutOperatorApproval(caller, operator, approved); err != nil {
			return err
		}
		e.emit(ApprovalForAllEvent(caller, operator, approved))
		return nil
	})
}

// TransferFrom moves a token on behalf of its owner. The operator must be
// the owner or an approved operator.
func (e *Engine) TransferFrom(operator, from, to common.Address, id uint64) error {
	return e.atomic(func() error {
		token, err := e.loadToken(id)
		if err != nil {
			return err
		}
		if token.Owner != from {
			return ErrNotTokenOwner
		}
		if operator != from {
			approved, err := e.state.CertificateOperatorApproved(from, operator)
			if err != nil {
				return err
			}
			if !approved {
				return ErrNotOwnerOrApproved
			}
		}
		if to == from {
			return ErrTransferToSelf
		}
		if isZero(to) {
			return ErrInvalidAddress
		}
		if err := checkTransferable(token); err != nil {
			return err
		}
		return e.move(token, to)
	})
}

// Buy purchases a token from its current holder at the stored price. The
// royalty share goes to the royalty receiver and the rest to the seller,
// both by direct transfer. value is the native amount attached to the call.
func (e *Engine) Buy(caller common.Address, id uint64, value *big.Int) error {
	return e.atomic(func() error {
		if isZero(caller) {
			return ErrInvalidAddress
		}
		token, err := e.loadToken(id)
		if err != nil {
			return err
		}
		if err := checkTransferable(token); err != nil {
			return err
		}
		if token.Owner == caller {
			return ErrAlreadyOwned
		}
		price := copyBig(token.Price)
		if token.NativePayment() {
			if value == nil || value.Cmp(price) != 0 {
				return ErrInvalidAttachedValue
			}
		} else if value != nil && value.Sign() != 0 {
			return ErrUnexpectedAttachedValue
		}
		royalty, err := e.royaltyFor(id)
		if err != nil {
			return err
		}
		royaltyAmount := computeRoyalty(price, royalty.Bps)
		if isZero(royalty.Receiver) {
			royaltyAmount = big.NewInt(0)
		}
		sellerShare := new(big.Int).Sub(price, royaltyAmount)
		seller := token.Owner

		if err := e.move(token, caller); err != nil {
			return err
		}

		if token.NativePayment() {
			if err := e.assets.TransferNative(caller, e.cfg.Address, price); err != nil {
				return err
			}
			if err := e.payout(token.PaymentToken, seller, sellerShare); err != nil {
				return err
			}
			if err := e.payout(token.PaymentToken, royalty.Receiver, royaltyAmount); err != nil {
				return err
			}
		} else {
			if err := e.pull(token.PaymentToken, caller, seller, sellerShare); err != nil {
				return err
			}
			if err := e.pull(token.PaymentToken, caller, royalty.Receiver, royaltyAmount); err != nil {
				return err
			}
		}
		e.emit(BoughtEvent(id, seller, caller, token.PaymentToken, price, royalty.Receiver, royaltyAmount))
		return nil
	})
}

func (e *Engine) pull(asset, from, to common.Address, amount *big.Int) error {
	if !positive(amount) {
		return nil
	}
	return e.assets.TransferTokenFrom(asset, e.cfg.Address, from, to, amount)
}

// Donate hands a furusato certificate to another account without payment.
// The token becomes donated, which is terminal.
func (e *Engine) Donate(caller common.Address, id uint64, to common.Address) error {
	return e.atomic(func() error {
		token, err := e.loadToken(id)
		if err != nil {
			return err
		}
		if token.Owner != caller {
			return ErrNotTokenOwner
		}
		if isZero(to) {
			return ErrInvalidAddress
		}
		if to == caller {
			return ErrTransferToSelf
		}
		if !token.Active || token.Type != TypeFurusato {
			return ErrNotDonatable
		}
		token.Type = TypeDonated
		if err := e.move(token, to); err != nil {
			return err
		}
		e.emit(DonatedEvent(id, caller, to))
		return nil
	})
}
