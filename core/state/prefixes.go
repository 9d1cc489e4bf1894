package state

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
)

var (
	certificateTokenPrefix     = []byte("certificate/token/")
	certificateLastIDKey       = []byte("certificate/last-id")
	certificateDigestPrefix    = []byte("certificate/digest/")
	certificateSignaturePrefix = []byte("certificate/signature/")
	certificateEscrowPrefix    = []byte("certificate/escrow/")
	certificateChangePrefix    = []byte("certificate/change/")
	certificateRoyaltyPrefix   = []byte("certificate/royalty/")
	certificateDefaultRoyalty  = []byte("certificate/royalty-default")
	certificateRolesKey        = []byte("certificate/roles")
	certificateParamsKey       = []byte("certificate/params")
	certificateHolderPrefix    = []byte("certificate/holder/")
	certificateOperatorPrefix  = []byte("certificate/operator/")

	bankAccountPrefix   = []byte("bank/account/")
	bankTokenPrefix     = []byte("bank/token/")
	bankBalancePrefix   = []byte("bank/balance/")
	bankAllowancePrefix = []byte("bank/allowance/")

	saleLastIDKey = []byte("sale/last-id")
	salePrefix    = []byte("sale/record/")
)

func joinKey(prefix []byte, parts ...[]byte) []byte {
	size := len(prefix)
	for _, part := range parts {
		size += len(part)
	}
	buf := make([]byte, 0, size)
	buf = append(buf, prefix...)
	for _, part := range parts {
		buf = append(buf, part...)
	}
	return buf
}

func idBytes(id uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], id)
	return buf[:]
}

func certificateTokenKey(id uint64) []byte {
	return joinKey(certificateTokenPrefix, idBytes(id))
}

func certificateDigestKey(digest [32]byte) []byte {
	return joinKey(certificateDigestPrefix, digest[:])
}

func certificateSignatureKey(hash [32]byte) []byte {
	return joinKey(certificateSignaturePrefix, hash[:])
}

func certificateEscrowKey(asset, beneficiary common.Address) []byte {
	return joinKey(certificateEscrowPrefix, asset.Bytes(), beneficiary.Bytes())
}

func certificateChangeKey(asset common.Address) []byte {
	return joinKey(certificateChangePrefix, asset.Bytes())
}

func certificateRoyaltyKey(id uint64) []byte {
	return joinKey(certificateRoyaltyPrefix, idBytes(id))
}

func certificateHolderKey(owner common.Address) []byte {
	return joinKey(certificateHolderPrefix, owner.Bytes())
}

func certificateOperatorKey(owner, operator common.Address) []byte {
	return joinKey(certificateOperatorPrefix, owner.Bytes(), operator.Bytes())
}

func bankAccountKey(addr common.Address) []byte {
	return joinKey(bankAccountPrefix, addr.Bytes())
}

func bankTokenKey(token common.Address) []byte {
	return joinKey(bankTokenPrefix, token.Bytes())
}

func bankBalanceKey(token, holder common.Address) []byte {
	return joinKey(bankBalancePrefix, token.Bytes(), holder.Bytes())
}

func bankAllowanceKey(token, owner, spender common.Address) []byte {
	return joinKey(bankAllowancePrefix, token.Bytes(), owner.Bytes(), spender.Bytes())
}

func saleKey(id uint64) []byte {
	return joinKey(salePrefix, idBytes(id))
}
