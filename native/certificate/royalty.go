package certificate

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

var bpsDenominator = big.NewInt(MaxRoyaltyBps)

// computeRoyalty returns salePrice * bps / 10000 truncated toward zero.
func computeRoyalty(salePrice *big.Int, bps uint64) *big.Int {
	if salePrice == nil || salePrice.Sign() <= 0 || bps == 0 {
		return big.NewInt(0)
	}
	amount := new(big.Int).Mul(salePrice, new(big.Int).SetUint64(bps))
	return amount.Quo(amount, bpsDenominator)
}

func validateRoyalty(receiver common.Address, bps uint64) error {
	if isZero(receiver) {
		return ErrInvalidRoyaltyReceiver
	}
	if bps > MaxRoyaltyBps {
		return ErrInvalidRoyaltyPercent
	}
	return nil
}

func (e *Engine) royaltyFor(id uint64) (*Royalty, error) {
	override, ok, err := e.state.CertificateRoyalty(id)
	if err != nil {
		return nil, err
	}
	if ok && override != nil {
		return override, nil
	}
	def, err := e.state.CertificateDefaultRoyalty()
	if err != nil {
		return nil, err
	}
	if def == nil {
		return &Royalty{}, nil
	}
	return def, nil
}

// RoyaltyInfo returns the royalty receiver and amount owed on a sale of the
// token at salePrice. The per-token terms set at mint take precedence over
// the collection default.
func (e *Engine) RoyaltyInfo(id uint64, salePrice *big.Int) (common.Address, *big.Int, error) {
	if err := e.requireState(); err != nil {
		return common.Address{}, nil, err
	}
	if salePrice != nil && salePrice.Sign() < 0 {
		return common.Address{}, nil, ErrValueOutOfRange
	}
	if _, err := e.loadToken(id); err != nil {
		return common.Address{}, nil, err
	}
	royalty, err := e.royaltyFor(id)
	if err != nil {
		return common.Address{}, nil, err
	}
	return royalty.Receiver, computeRoyalty(salePrice, royalty.Bps), nil
}

// DefaultRoyalty returns the collection-wide royalty terms.
func (e *Engine) DefaultRoyalty() (*Royalty, error) {
	if err := e.requireState(); err != nil {
		return nil, err
	}
	def, err := e.state.CertificateDefaultRoyalty()
	if err != nil {
		return nil, err
	}
	if def == nil {
		return &Royalty{}, nil
	}
	clone := *def
	return &clone, nil
}

// SetDefaultRoyalty updates the collection-wide royalty. A zero receiver
// with zero bps clears it.
func (e *Engine) SetDefaultRoyalty(caller, receiver common.Address, bps uint64) error {
	return e.atomic(func() error {
		roles, err := e.roles()
		if err != nil {
			return err
		}
		if !isAdmin(roles, caller) {
			return ErrNotAdmin
		}
		if !(isZero(receiver) && bps == 0) {
			if err := validateRoyalty(receiver, bps); err != nil {
				return err
			}
		}
		if err := e.state.CertificatePutDefaultRoyalty(&Royalty{Receiver: receiver, Bps: bps}); err != nil {
			return err
		}
		e.emit(DefaultRoyaltySetEvent(receiver, bps))
		return nil
	})
}
