package certificate

import (
	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	certcrypto "certchain/crypto"
)

// Verify reports whether sig is the expected signer's personal-message
// signature over digest. Malformed signatures yield false.
func Verify(expected common.Address, digest common.Hash, sig []byte) bool {
	return certcrypto.VerifyPersonal(expected, digest.Bytes(), sig)
}

// SignatureHash is the index key used to look up the token minted with a
// given signature.
func SignatureHash(sig []byte) common.Hash {
	return ethcrypto.Keccak256Hash(sig)
}

func (e *Engine) authorize(digest common.Hash, sig []byte) error {
	roles, err := e.roles()
	if err != nil {
		return err
	}
	if isZero(roles.Verifier) {
		return ErrVerifierNotSet
	}
	if !Verify(roles.Verifier, digest, sig) {
		return ErrInvalidSignature
	}
	return nil
}
