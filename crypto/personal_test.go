package crypto

import (
	"bytes"
	"encoding/json"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

func mustKey(t *testing.T) *PrivateKey {
	t.Helper()
	key, err := GeneratePrivateKey()
	require.NoError(t, err)
	return key
}

func TestSignPersonalRoundTrip(t *testing.T) {
	key := mustKey(t)
	digest := ethcrypto.Keccak256([]byte("certificate"))

	sig, err := SignPersonal(digest, key)
	require.NoError(t, err)
	require.Len(t, sig, SignatureLength)
	require.True(t, sig[64] == 27 || sig[64] == 28)

	recovered, err := RecoverPersonal(digest, sig)
	require.NoError(t, err)
	require.Equal(t, key.Address(), recovered)
	require.True(t, VerifyPersonal(key.Address(), digest, sig))
}

func TestVerifyPersonalAcceptsZeroBasedRecoveryID(t *testing.T) {
	key := mustKey(t)
	digest := ethcrypto.Keccak256([]byte("zero-based"))
	sig, err := SignPersonal(digest, key)
	require.NoError(t, err)
	sig[64] -= 27
	require.True(t, VerifyPersonal(key.Address(), digest, sig))
}

func TestVerifyPersonalRejects(t *testing.T) {
	key := mustKey(t)
	other := mustKey(t)
	digest := ethcrypto.Keccak256([]byte("payload"))
	sig, err := SignPersonal(digest, key)
	require.NoError(t, err)

	// Raw signature without the message prefix must not verify.
	raw, err := ethcrypto.Sign(digest, key.PrivateKey)
	require.NoError(t, err)

	highS := append([]byte(nil), sig...)
	s := new(big.Int).SetBytes(highS[32:64])
	flipped := new(big.Int).Sub(ethcrypto.S256().Params().N, s)
	copy(highS[32:64], common.LeftPadBytes(flipped.Bytes(), 32))
	highS[64] = 55 - highS[64]

	badV := append([]byte(nil), sig...)
	badV[64] = 5

	tampered := ethcrypto.Keccak256([]byte("payload!"))

	cases := []struct {
		name     string
		expected common.Address
		digest   []byte
		sig      []byte
	}{
		{"wrong signer", other.Address(), digest, sig},
		{"zero expected", common.Address{}, digest, sig},
		{"tampered digest", key.Address(), tampered, sig},
		{"short signature", key.Address(), digest, sig[:64]},
		{"empty signature", key.Address(), digest, nil},
		{"bad recovery id", key.Address(), digest, badV},
		{"high s", key.Address(), digest, highS},
		{"unprefixed", key.Address(), digest, raw},
		{"garbage", key.Address(), digest, bytes.Repeat([]byte{0xff}, 65)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.False(t, VerifyPersonal(tc.expected, tc.digest, tc.sig))
		})
	}
}

func TestParseAddress(t *testing.T) {
	key := mustKey(t)
	addr := key.Address()

	parsed, err := ParseAddress(addr.Hex())
	require.NoError(t, err)
	require.Equal(t, addr, parsed)

	parsed, err = ParseAddress(addr.Hex()[2:])
	require.NoError(t, err)
	require.Equal(t, addr, parsed)

	_, err = ParseAddress("0x1234")
	require.ErrorIs(t, err, ErrInvalidAddress)
	_, err = ParseAddress("")
	require.ErrorIs(t, err, ErrInvalidAddress)
}

func TestKeystoreRoundTrip(t *testing.T) {
	key := mustKey(t)
	path := filepath.Join(t.TempDir(), "keys", "verifier.json")

	require.NoError(t, saveToKeystore(path, key, "secret", keystore.LightScryptN, keystore.LightScryptP))
	loaded, err := LoadFromKeystore(path, "secret")
	require.NoError(t, err)
	require.Equal(t, key.Address(), loaded.Address())

	_, err = LoadFromKeystore(path, "wrong")
	require.Error(t, err)
}

func TestSaveToKeystoreUsesStandardScrypt(t *testing.T) {
	key := mustKey(t)
	path := filepath.Join(t.TempDir(), "verifier.json")
	require.NoError(t, SaveToKeystore(path, key, "secret"))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var encrypted struct {
		Crypto struct {
			KDF       string `json:"kdf"`
			KDFParams struct {
				N int `json:"n"`
				P int `json:"p"`
			} `json:"kdfparams"`
		} `json:"crypto"`
	}
	require.NoError(t, json.Unmarshal(raw, &encrypted))
	require.Equal(t, "scrypt", encrypted.Crypto.KDF)
	require.Equal(t, keystore.StandardScryptN, encrypted.Crypto.KDFParams.N)
	require.Equal(t, keystore.StandardScryptP, encrypted.Crypto.KDFParams.P)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestPrivateKeyFromHex(t *testing.T) {
	key := mustKey(t)
	encoded := common.Bytes2Hex(key.Bytes())

	loaded, err := PrivateKeyFromHex("0x" + encoded)
	require.NoError(t, err)
	require.Equal(t, key.Address(), loaded.Address())

	_, err = PrivateKeyFromHex("")
	require.Error(t, err)
}
