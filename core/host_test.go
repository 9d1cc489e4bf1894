package core

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"certchain/core/events"
	"certchain/core/genesis"
	certcrypto "certchain/crypto"
	"certchain/native/certificate"
	"certchain/storage"
)

var (
	hostCollection = common.HexToAddress("0x000000000000000000000000000000000000c011")
	hostSale       = common.HexToAddress("0x0000000000000000000000000000000000005a1e")
	hostOwner      = common.HexToAddress("0x00000000000000000000000000000000000000a0")
	hostGov        = common.HexToAddress("0x00000000000000000000000000000000000000b0")
	hostUser       = common.HexToAddress("0x0000000000000000000000000000000000000100")
)

func hostGenesis(t *testing.T, verifier common.Address, balance string) *genesis.GenesisSpec {
	t.Helper()
	doc := fmt.Sprintf(`
accounts:
  - address: "%s"
    balance: "%s"
roles:
  owner: "%s"
  verifier: "%s"
`, hostUser.Hex(), balance, hostOwner.Hex(), verifier.Hex())
	spec, err := genesis.ParseGenesisSpec([]byte(doc))
	require.NoError(t, err)
	return spec
}

type hostFixture struct {
	host     *Host
	sink     *events.Buffer
	verifier *certcrypto.PrivateKey
}

func newHostFixture(t *testing.T, db storage.Database) *hostFixture {
	t.Helper()
	verifier, err := certcrypto.GeneratePrivateKey()
	require.NoError(t, err)
	sink := &events.Buffer{}
	host, err := NewHost(Options{
		DB:          db,
		Collection:  certificate.Config{Address: hostCollection, Name: "Certificate", Symbol: "CRT"},
		SaleAddress: hostSale,
		Sink:        sink,
		Now:         func() int64 { return 1_700_000_000 },
	})
	require.NoError(t, err)
	require.NoError(t, host.ApplyGenesis(context.Background(), hostGenesis(t, verifier.Address(), "100")))
	sink.Reset()
	return &hostFixture{host: host, sink: sink, verifier: verifier}
}

func (f *hostFixture) request(t *testing.T, uri string) certificate.MintRequest {
	t.Helper()
	p := certificate.MintPayload{
		To:          hostUser,
		Beneficiary: hostGov,
		Price:       big.NewInt(10),
		Amount:      big.NewInt(10),
		Type:        certificate.TypeNormal,
		URI:         uri,
	}
	digest, err := p.Digest(hostCollection)
	require.NoError(t, err)
	sig, err := certcrypto.SignPersonal(digest.Bytes(), f.verifier)
	require.NoError(t, err)
	return certificate.MintRequest{Payload: p, Signature: sig}
}

func TestExecuteCommitsAndReleasesEvents(t *testing.T) {
	f := newHostFixture(t, storage.NewMemDB())
	ctx := context.Background()

	err := f.host.Execute(ctx, "mint", func(l Ledger) error {
		_, err := l.Certificates.Mint(hostUser, f.request(t, "ipfs://a"), big.NewInt(10))
		return err
	})
	require.NoError(t, err)

	var types []string
	for _, evt := range f.sink.Drain() {
		types = append(types, evt.EventType())
	}
	require.Contains(t, types, certificate.EventTypeMinted)
	require.Contains(t, types, certificate.EventTypeTransfer)

	require.NoError(t, f.host.Query(ctx, func(l Ledger) error {
		owner, err := l.Certificates.OwnerOf(1)
		require.NoError(t, err)
		require.Equal(t, hostUser, owner)
		return nil
	}))
}

func TestExecuteRollsBackOnError(t *testing.T) {
	f := newHostFixture(t, storage.NewMemDB())
	ctx := context.Background()
	boom := errors.New("boom")

	err := f.host.Execute(ctx, "mint", func(l Ledger) error {
		if _, err := l.Certificates.Mint(hostUser, f.request(t, "ipfs://a"), big.NewInt(10)); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.Zero(t, f.sink.Len())

	require.NoError(t, f.host.Query(ctx, func(l Ledger) error {
		lastID, err := l.Certificates.LastID()
		require.NoError(t, err)
		require.Zero(t, lastID)
		balance, err := l.Bank.NativeBalance(hostUser)
		require.NoError(t, err)
		require.Equal(t, "100", balance.String())
		return nil
	}))
}

func TestQueryDiscardsWrites(t *testing.T) {
	f := newHostFixture(t, storage.NewMemDB())
	ctx := context.Background()
	require.NoError(t, f.host.Query(ctx, func(l Ledger) error {
		return l.Bank.CreditNative(hostUser, big.NewInt(5))
	}))
	require.NoError(t, f.host.Query(ctx, func(l Ledger) error {
		balance, err := l.Bank.NativeBalance(hostUser)
		require.NoError(t, err)
		require.Equal(t, "100", balance.String())
		return nil
	}))
}

func TestExecuteHonoursCancelledContext(t *testing.T) {
	f := newHostFixture(t, storage.NewMemDB())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := f.host.Execute(ctx, "noop", func(Ledger) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, called)
}

func TestApplyGenesisOnce(t *testing.T) {
	db := storage.NewMemDB()
	f := newHostFixture(t, db)
	ctx := context.Background()

	other := hostGenesis(t, f.verifier.Address(), "999")
	require.ErrorIs(t, f.host.ApplyGenesis(ctx, other), ErrGenesisApplied)

	reopened, err := NewHost(Options{DB: db, Collection: certificate.Config{Address: hostCollection}, SaleAddress: hostSale})
	require.NoError(t, err)
	require.NoError(t, reopened.ApplyGenesis(ctx, hostGenesis(t, f.verifier.Address(), "100")))
	require.NoError(t, reopened.Query(ctx, func(l Ledger) error {
		roles, err := l.Certificates.Roles()
		require.NoError(t, err)
		require.Equal(t, hostOwner, roles.Owner)
		contract, err := l.Bank.IsContract(hostSale)
		require.NoError(t, err)
		require.True(t, contract)
		return nil
	}))
}

func TestHostPersistsToLevelDB(t *testing.T) {
	dir := t.TempDir()
	db, err := storage.NewLevelDB(dir)
	require.NoError(t, err)
	f := newHostFixture(t, db)
	require.NoError(t, f.host.Execute(context.Background(), "mint", func(l Ledger) error {
		_, err := l.Certificates.Mint(hostUser, f.request(t, "ipfs://persisted"), big.NewInt(10))
		return err
	}))
	f.host.Close()

	db, err = storage.NewLevelDB(dir)
	require.NoError(t, err)
	host, err := NewHost(Options{DB: db, Collection: certificate.Config{Address: hostCollection}})
	require.NoError(t, err)
	defer host.Close()
	require.NoError(t, host.Query(context.Background(), func(l Ledger) error {
		uri, err := l.Certificates.TokenURI(1)
		require.NoError(t, err)
		require.Equal(t, "ipfs://persisted", uri)
		return nil
	}))
}

func TestNewHostValidatesOptions(t *testing.T) {
	_, err := NewHost(Options{})
	require.Error(t, err)
	_, err = NewHost(Options{DB: storage.NewMemDB()})
	require.Error(t, err)
}
