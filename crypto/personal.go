package crypto

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// SignatureLength is the size of an r || s || v secp256k1 signature.
const SignatureLength = 65

var (
	// ErrSignatureLength indicates the signature is not 65 bytes.
	ErrSignatureLength = errors.New("crypto: signature must be 65 bytes")
	// ErrSignatureRecoveryID indicates v is not one of 0, 1, 27 or 28.
	ErrSignatureRecoveryID = errors.New("crypto: invalid signature recovery id")
	// ErrSignatureMalleable indicates the signature values are out of range
	// or use the upper half of the curve order for s.
	ErrSignatureMalleable = errors.New("crypto: invalid signature values")
)

// PersonalHash applies the "\x19Ethereum Signed Message:\n32" prefix to a
// 32-byte digest, matching what wallets produce for personal_sign over the
// raw digest bytes.
func PersonalHash(digest []byte) []byte {
	return accounts.TextHash(digest)
}

// SignPersonal signs digest with the personal-message prefix. The returned
// signature uses v ∈ {27, 28} like wallet implementations do.
func SignPersonal(digest []byte, key *PrivateKey) ([]byte, error) {
	if key == nil || key.PrivateKey == nil {
		return nil, errors.New("crypto: nil private key")
	}
	sig, err := ethcrypto.Sign(PersonalHash(digest), key.PrivateKey)
	if err != nil {
		return nil, err
	}
	sig[64] += 27
	return sig, nil
}

// RecoverPersonal returns the address that produced sig over the prefixed
// digest.
func RecoverPersonal(digest, sig []byte) (common.Address, error) {
	if len(sig) != SignatureLength {
		return common.Address{}, ErrSignatureLength
	}
	normalized := make([]byte, SignatureLength)
	copy(normalized, sig)
	switch v := normalized[64]; v {
	case 0, 1:
	case 27, 28:
		normalized[64] = v - 27
	default:
		return common.Address{}, ErrSignatureRecoveryID
	}
	r := new(big.Int).SetBytes(normalized[:32])
	s := new(big.Int).SetBytes(normalized[32:64])
	if !ethcrypto.ValidateSignatureValues(normalized[64], r, s, true) {
		return common.Address{}, ErrSignatureMalleable
	}
	pub, err := ethcrypto.SigToPub(PersonalHash(digest), normalized)
	if err != nil {
		return common.Address{}, err
	}
	return ethcrypto.PubkeyToAddress(*pub), nil
}

// VerifyPersonal reports whether sig over digest was produced by expected.
// It never fails loudly: malformed signatures simply do not verify.
func VerifyPersonal(expected common.Address, digest, sig []byte) bool {
	if expected == (common.Address{}) {
		return false
	}
	recovered, err := RecoverPersonal(digest, sig)
	if err != nil {
		return false
	}
	return recovered == expected
}
