package events

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// NativeAsset is the label used for the native currency sentinel.
const NativeAsset = "native"

// AssetLabel renders a payment asset for event attributes: the zero address
// is the native currency.
func AssetLabel(asset common.Address) string {
	if asset == (common.Address{}) {
		return NativeAsset
	}
	return asset.Hex()
}

func formatAmount(amount *big.Int) string {
	if amount == nil {
		return "0"
	}
	return amount.String()
}
