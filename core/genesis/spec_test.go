package genesis

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"certchain/core/state"
	"certchain/native/bank"
	"certchain/native/certificate"
	"certchain/storage"
)

const sampleGenesis = `
accounts:
  - address: "0x00000000000000000000000000000000000000a0"
    label: owner
    balance: "1000"
  - address: "0x00000000000000000000000000000000000000b0"
    label: government
tokens:
  - address: "0x000000000000000000000000000000000000ca5e"
    name: Cash
    symbol: CASH
    decimals: 6
    minter: "0x00000000000000000000000000000000000000a0"
    alloc:
      "0x00000000000000000000000000000000000000b0": "250"
roles:
  owner: "0x00000000000000000000000000000000000000a0"
  verifier: "0x00000000000000000000000000000000000000a2"
expirationPeriod: 3600
defaultRoyalty:
  receiver: "0x00000000000000000000000000000000000000b1"
  bps: 250
`

var (
	collectionAddr = common.HexToAddress("0x000000000000000000000000000000000000c011")
	ownerAddr      = common.HexToAddress("0x00000000000000000000000000000000000000a0")
	governmentAddr = common.HexToAddress("0x00000000000000000000000000000000000000b0")
	cashAddr       = common.HexToAddress("0x000000000000000000000000000000000000ca5e")
)

func TestLoadGenesisSpec(t *testing.T) {
	path := filepath.Join(t.TempDir(), "genesis.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleGenesis), 0o600))

	spec, err := LoadGenesisSpec(path)
	require.NoError(t, err)
	require.Len(t, spec.Accounts, 2)
	require.Equal(t, ownerAddr, spec.Roles.roles.Owner)
	require.Equal(t, uint64(250), spec.DefaultRoyalty.Bps)
	require.NotEqual(t, common.Hash{}, spec.Hash())

	_, err = LoadGenesisSpec("")
	require.Error(t, err)
}

func TestParseGenesisSpecRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"unknown field":    "roles:\n  owner: \"0x00000000000000000000000000000000000000a0\"\nextra: 1\n",
		"missing owner":    "accounts: []\n",
		"bad account":      "accounts:\n  - address: nope\nroles:\n  owner: \"0x00000000000000000000000000000000000000a0\"\n",
		"negative balance": "accounts:\n  - address: \"0x00000000000000000000000000000000000000a0\"\n    balance: \"-1\"\nroles:\n  owner: \"0x00000000000000000000000000000000000000a0\"\n",
		"unknown kind":     "accounts:\n  - address: \"0x00000000000000000000000000000000000000a0\"\n    kind: robot\nroles:\n  owner: \"0x00000000000000000000000000000000000000a0\"\n",
		"alloc no minter":  "tokens:\n  - address: \"0x000000000000000000000000000000000000ca5e\"\n    symbol: C\n    alloc:\n      \"0x00000000000000000000000000000000000000a0\": \"1\"\nroles:\n  owner: \"0x00000000000000000000000000000000000000a0\"\n",
		"royalty bps":      "roles:\n  owner: \"0x00000000000000000000000000000000000000a0\"\ndefaultRoyalty:\n  receiver: \"0x00000000000000000000000000000000000000b1\"\n  bps: 10001\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseGenesisSpec([]byte(doc))
			require.Error(t, err)
		})
	}
}

func TestApply(t *testing.T) {
	spec, err := ParseGenesisSpec([]byte(sampleGenesis))
	require.NoError(t, err)

	st := state.NewManager(storage.NewMemDB())
	b := bank.NewEngine()
	b.SetState(st)
	certs := certificate.NewEngine(certificate.Config{Address: collectionAddr})
	certs.SetState(st)
	certs.SetAssets(b)

	require.NoError(t, Apply(spec, Ledger{Bank: b, Certificates: certs}))

	contract, err := b.IsContract(collectionAddr)
	require.NoError(t, err)
	require.True(t, contract)
	contract, err = b.IsContract(cashAddr)
	require.NoError(t, err)
	require.True(t, contract)

	balance, err := b.NativeBalance(ownerAddr)
	require.NoError(t, err)
	require.Equal(t, "1000", balance.String())
	cash, err := b.TokenBalance(cashAddr, governmentAddr)
	require.NoError(t, err)
	require.Equal(t, "250", cash.String())

	period, err := certs.ExpirationPeriod()
	require.NoError(t, err)
	require.Equal(t, uint64(3600), period)
	royalty, err := certs.DefaultRoyalty()
	require.NoError(t, err)
	require.Equal(t, uint64(250), royalty.Bps)

	require.Error(t, Apply(nil, Ledger{Bank: b, Certificates: certs}))
	require.Error(t, Apply(spec, Ledger{}))
}
