package certificate_test

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"certchain/core/events"
	"certchain/core/state"
	"certchain/core/types"
	certcrypto "certchain/crypto"
	"certchain/native/bank"
	"certchain/native/certificate"
	"certchain/storage"
)

const fixtureNow int64 = 1_700_000_000

var (
	collectionAddr = common.HexToAddress("0x000000000000000000000000000000000000c011")
	cashAddr       = common.HexToAddress("0x000000000000000000000000000000000000ca5e")
	ownerAddr      = common.HexToAddress("0x00000000000000000000000000000000000000a0")
	adminAddr      = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	governmentAddr = common.HexToAddress("0x00000000000000000000000000000000000000b0")
	artistAddr     = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	minterAddr     = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	user0          = common.HexToAddress("0x0000000000000000000000000000000000000100")
	user1          = common.HexToAddress("0x0000000000000000000000000000000000000101")
	user2          = common.HexToAddress("0x0000000000000000000000000000000000000102")
	poorAddr       = common.HexToAddress("0x0000000000000000000000000000000000000103")
)

var startingBalance = big.NewInt(1_000_000)

type fixture struct {
	t        *testing.T
	state    *state.Manager
	bank     *bank.Engine
	engine   *certificate.Engine
	events   *events.Buffer
	verifier *certcrypto.PrivateKey
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithConfig(t, certificate.Config{Address: collectionAddr, Name: "Certificate", Symbol: "CRT"})
}

func newFixtureWithConfig(t *testing.T, cfg certificate.Config) *fixture {
	t.Helper()
	st := state.NewManager(storage.NewMemDB())
	buf := &events.Buffer{}

	b := bank.NewEngine()
	b.SetState(st)
	if err := b.RegisterAccount(cfg.Address, types.AccountContract, "collection"); err != nil {
		t.Fatalf("register collection: %v", err)
	}
	if err := b.DeployToken(cashAddr, bank.Token{Name: "Cash", Symbol: "CASH", Decimals: 6, Minter: minterAddr}); err != nil {
		t.Fatalf("deploy cash: %v", err)
	}
	for _, user := range []common.Address{user0, user1, user2} {
		if err := b.CreditNative(user, startingBalance); err != nil {
			t.Fatalf("credit %s: %v", user.Hex(), err)
		}
		if err := b.MintToken(minterAddr, cashAddr, user, startingBalance); err != nil {
			t.Fatalf("mint cash for %s: %v", user.Hex(), err)
		}
		if err := b.Approve(cashAddr, user, cfg.Address, startingBalance); err != nil {
			t.Fatalf("approve collection for %s: %v", user.Hex(), err)
		}
	}

	engine := certificate.NewEngine(cfg)
	engine.SetState(st)
	engine.SetAssets(b)
	engine.SetEmitter(buf)
	engine.SetNowFunc(func() int64 { return fixtureNow })

	verifier, err := certcrypto.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate verifier: %v", err)
	}
	if err := engine.InitRoles(certificate.Roles{Owner: ownerAddr}); err != nil {
		t.Fatalf("init roles: %v", err)
	}
	if err := engine.SetAdmin(ownerAddr, adminAddr); err != nil {
		t.Fatalf("set admin: %v", err)
	}
	if err := engine.SetVerifier(adminAddr, verifier.Address()); err != nil {
		t.Fatalf("set verifier: %v", err)
	}
	buf.Reset()

	return &fixture{t: t, state: st, bank: b, engine: engine, events: buf, verifier: verifier}
}

func (f *fixture) payload(to common.Address, asset common.Address, price, amount int64) certificate.MintPayload {
	return certificate.MintPayload{
		To:           to,
		Beneficiary:  governmentAddr,
		PaymentToken: asset,
		Price:        big.NewInt(price),
		Amount:       big.NewInt(amount),
		Type:         certificate.TypeNormal,
		URI:          "ipfs://certificate",
	}
}

func (f *fixture) signWith(key *certcrypto.PrivateKey, digest common.Hash) []byte {
	f.t.Helper()
	sig, err := certcrypto.SignPersonal(digest.Bytes(), key)
	if err != nil {
		f.t.Fatalf("sign digest: %v", err)
	}
	return sig
}

func (f *fixture) request(p certificate.MintPayload) certificate.MintRequest {
	f.t.Helper()
	digest, err := p.Digest(collectionAddr)
	if err != nil {
		f.t.Fatalf("mint digest: %v", err)
	}
	return certificate.MintRequest{Payload: p, Signature: f.signWith(f.verifier, digest)}
}

func (f *fixture) mint(caller common.Address, p certificate.MintPayload) *certificate.Token {
	f.t.Helper()
	var value *big.Int
	if p.PaymentToken == (common.Address{}) {
		value = p.Amount
	}
	token, err := f.engine.Mint(caller, f.request(p), value)
	if err != nil {
		f.t.Fatalf("mint: %v", err)
	}
	return token
}

func (f *fixture) signStatus(id uint64, active bool) []byte {
	f.t.Helper()
	token := f.token(id)
	p := certificate.StatusPayload{TokenID: id, Revision: token.Revision, Active: active}
	digest, err := p.Digest(collectionAddr)
	if err != nil {
		f.t.Fatalf("digest: %v", err)
	}
	return f.signWith(f.verifier, digest)
}

func (f *fixture) signType(id uint64, typ certificate.TokenType) []byte {
	f.t.Helper()
	token := f.token(id)
	p := certificate.TypePayload{TokenID: id, Revision: token.Revision, Type: typ}
	digest, err := p.Digest(collectionAddr)
	if err != nil {
		f.t.Fatalf("digest: %v", err)
	}
	return f.signWith(f.verifier, digest)
}

func (f *fixture) signURI(id uint64, uri string) []byte {
	f.t.Helper()
	token := f.token(id)
	p := certificate.TokenURIPayload{TokenID: id, Revision: token.Revision, URI: uri}
	digest, err := p.Digest(collectionAddr)
	if err != nil {
		f.t.Fatalf("digest: %v", err)
	}
	return f.signWith(f.verifier, digest)
}

func (f *fixture) token(id uint64) *certificate.Token {
	f.t.Helper()
	token, err := f.engine.Token(id)
	if err != nil {
		f.t.Fatalf("token %d: %v", id, err)
	}
	return token
}

func (f *fixture) lastID() uint64 {
	f.t.Helper()
	last, err := f.engine.LastID()
	if err != nil {
		f.t.Fatalf("last id: %v", err)
	}
	return last
}

func (f *fixture) expectOwner(id uint64, want common.Address) {
	f.t.Helper()
	owner, err := f.engine.OwnerOf(id)
	if err != nil {
		f.t.Fatalf("owner of %d: %v", id, err)
	}
	if owner != want {
		f.t.Fatalf("expected token %d owned by %s, got %s", id, want.Hex(), owner.Hex())
	}
}

func (f *fixture) holderCount(owner common.Address) uint64 {
	f.t.Helper()
	count, err := f.engine.BalanceOf(owner)
	if err != nil {
		f.t.Fatalf("balance of %s: %v", owner.Hex(), err)
	}
	return count
}

func (f *fixture) native(addr common.Address) *big.Int {
	f.t.Helper()
	balance, err := f.bank.NativeBalance(addr)
	if err != nil {
		f.t.Fatalf("native balance: %v", err)
	}
	return balance
}

func (f *fixture) cash(addr common.Address) *big.Int {
	f.t.Helper()
	balance, err := f.bank.TokenBalance(cashAddr, addr)
	if err != nil {
		f.t.Fatalf("cash balance: %v", err)
	}
	return balance
}

func (f *fixture) escrow(asset, beneficiary common.Address) *big.Int {
	f.t.Helper()
	balance, err := f.engine.EscrowBalance(asset, beneficiary)
	if err != nil {
		f.t.Fatalf("escrow balance: %v", err)
	}
	return balance
}

func (f *fixture) change(asset common.Address) *big.Int {
	f.t.Helper()
	balance, err := f.engine.ChangeBalance(asset)
	if err != nil {
		f.t.Fatalf("change balance: %v", err)
	}
	return balance
}

func (f *fixture) eventsOf(eventType string) []*types.Event {
	var out []*types.Event
	for _, evt := range f.events.Drain() {
		if evt.EventType() != eventType {
			continue
		}
		out = append(out, events.Payload(evt))
	}
	return out
}

// singleEvent drains the buffer and returns the only event of eventType.
func (f *fixture) singleEvent(eventType string) *types.Event {
	f.t.Helper()
	evts := f.eventsOf(eventType)
	if len(evts) != 1 {
		f.t.Fatalf("expected one %s event, got %d", eventType, len(evts))
	}
	return evts[0]
}

func expectAttr(t *testing.T, evt *types.Event, key, want string) {
	t.Helper()
	if got := evt.Attributes[key]; got != want {
		t.Fatalf("expected %s=%q, got %q", key, want, got)
	}
}

func requireBig(t *testing.T, expected int64, actual *big.Int) {
	t.Helper()
	if actual == nil || big.NewInt(expected).Cmp(actual) != 0 {
		t.Fatalf("expected %d, got %v", expected, actual)
	}
}

func expectErr(t *testing.T, err, want error) {
	t.Helper()
	if !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
}

func expectOK(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
