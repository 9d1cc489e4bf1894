package sale_test

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
	"certchain/native/sale"
	"certchain/storage"
)

var (
	collectionAddr = common.HexToAddress("0x000000000000000000000000000000000000c011")
	saleAddr       = common.HexToAddress("0x0000000000000000000000000000000000005a1e")
	cashAddr       = common.HexToAddress("0x000000000000000000000000000000000000ca5e")
	ownerAddr      = common.HexToAddress("0x00000000000000000000000000000000000000a0")
	artistAddr     = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	minterAddr     = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	managerAddr    = common.HexToAddress("0x0000000000000000000000000000000000000100")
	buyerAddr      = common.HexToAddress("0x0000000000000000000000000000000000000101")
	otherAddr      = common.HexToAddress("0x0000000000000000000000000000000000000102")
)

type saleFixture struct {
	t        *testing.T
	bank     *bank.Engine
	certs    *certificate.Engine
	sales    *sale.Engine
	buf      *events.Buffer
	verifier *certcrypto.PrivateKey
}

func newSaleFixture(t *testing.T) *saleFixture {
	t.Helper()
	st := state.NewManager(storage.NewMemDB())
	buf := &events.Buffer{}
	funds := big.NewInt(1_000_000)

	b := bank.NewEngine()
	b.SetState(st)
	must(t, "register collection", b.RegisterAccount(collectionAddr, types.AccountContract, "collection"))
	must(t, "register sale", b.RegisterAccount(saleAddr, types.AccountContract, "sale"))
	must(t, "deploy cash", b.DeployToken(cashAddr, bank.Token{Name: "Cash", Symbol: "CASH", Minter: minterAddr}))
	for _, user := range []common.Address{managerAddr, buyerAddr, otherAddr} {
		must(t, "credit native", b.CreditNative(user, funds))
		must(t, "mint cash", b.MintToken(minterAddr, cashAddr, user, funds))
		must(t, "approve collection", b.Approve(cashAddr, user, collectionAddr, funds))
		must(t, "approve sale", b.Approve(cashAddr, user, saleAddr, funds))
	}

	certs := certificate.NewEngine(certificate.Config{Address: collectionAddr})
	certs.SetState(st)
	certs.SetAssets(b)
	certs.SetEmitter(buf)
	verifier, err := certcrypto.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate verifier: %v", err)
	}
	must(t, "init roles", certs.InitRoles(certificate.Roles{Owner: ownerAddr, Verifier: verifier.Address()}))
	must(t, "default royalty", certs.SetDefaultRoyalty(ownerAddr, artistAddr, 1000))

	sales := sale.NewEngine(saleAddr)
	sales.SetState(st)
	sales.SetAssets(b)
	sales.SetEmitter(buf)
	sales.SetNowFunc(func() int64 { return 1_700_000_000 })
	sales.RegisterCollection(certs)

	f := &saleFixture{t: t, bank: b, certs: certs, sales: sales, buf: buf, verifier: verifier}
	for i := 0; i < 3; i++ {
		f.mint(managerAddr)
	}
	must(t, "approve sale operator", certs.SetApprovalForAll(managerAddr, saleAddr, true))
	buf.Reset()
	return f
}

func must(t *testing.T, step string, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: %v", step, err)
	}
}

func expectErr(t *testing.T, err, want error) {
	t.Helper()
	if !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
}

func expectBig(t *testing.T, want, got *big.Int) {
	t.Helper()
	if got == nil || want.Cmp(got) != 0 {
		t.Fatalf("expected %s, got %v", want, got)
	}
}

func (f *saleFixture) mint(to common.Address) uint64 {
	f.t.Helper()
	p := certificate.MintPayload{
		To:          to,
		Beneficiary: ownerAddr,
		Price:       big.NewInt(1),
		Amount:      big.NewInt(1),
		Type:        certificate.TypeNormal,
		URI:         "ipfs://listed",
	}
	digest, err := p.Digest(collectionAddr)
	must(f.t, "digest", err)
	sig, err := certcrypto.SignPersonal(digest.Bytes(), f.verifier)
	must(f.t, "sign", err)
	token, err := f.certs.Mint(to, certificate.MintRequest{Payload: p, Signature: sig}, big.NewInt(1))
	must(f.t, "mint", err)
	return token.ID
}

func (f *saleFixture) create(ids ...uint64) *sale.Sale {
	f.t.Helper()
	assets := make([]common.Address, len(ids))
	prices := make([]*big.Int, len(ids))
	for i := range ids {
		prices[i] = big.NewInt(1000)
	}
	s, err := f.sales.Create(managerAddr, collectionAddr, ids, assets, prices)
	must(f.t, "create sale", err)
	return s
}

func (f *saleFixture) native(addr common.Address) *big.Int {
	f.t.Helper()
	balance, err := f.bank.NativeBalance(addr)
	must(f.t, "native balance", err)
	return balance
}

func (f *saleFixture) cash(addr common.Address) *big.Int {
	f.t.Helper()
	balance, err := f.bank.TokenBalance(cashAddr, addr)
	must(f.t, "cash balance", err)
	return balance
}

func (f *saleFixture) sale(id uint64) *sale.Sale {
	f.t.Helper()
	stored, err := f.sales.Sale(id)
	must(f.t, "load sale", err)
	return stored
}

func TestCreateValidation(t *testing.T) {
	f := newSaleFixture(t)
	one := []*big.Int{big.NewInt(1)}
	native := []common.Address{{}}

	_, err := f.sales.Create(managerAddr, otherAddr, []uint64{1}, native, one)
	expectErr(t, err, sale.ErrInvalidTokenAddress)
	_, err = f.sales.Create(managerAddr, collectionAddr, nil, nil, nil)
	expectErr(t, err, sale.ErrEmptyTokenIDs)
	_, err = f.sales.Create(managerAddr, collectionAddr, []uint64{1, 2}, native, one)
	expectErr(t, err, sale.ErrInconsistentLength)
	_, err = f.sales.Create(managerAddr, collectionAddr, []uint64{1}, native, []*big.Int{big.NewInt(0)})
	expectErr(t, err, sale.ErrInvalidPrice)
	_, err = f.sales.Create(managerAddr, collectionAddr, []uint64{1}, []common.Address{otherAddr}, one)
	expectErr(t, err, sale.ErrInvalidTokenAddress)
	_, err = f.sales.Create(managerAddr, collectionAddr, []uint64{1, 1}, []common.Address{{}, {}}, []*big.Int{big.NewInt(1), big.NewInt(1)})
	expectErr(t, err, sale.ErrDuplicateToken)
	_, err = f.sales.Create(otherAddr, collectionAddr, []uint64{1}, native, one)
	expectErr(t, err, sale.ErrNotTokenOwner)
	_, err = f.sales.Create(managerAddr, collectionAddr, []uint64{42}, native, one)
	expectErr(t, err, certificate.ErrNonexistentToken)

	many := make([]uint64, sale.MaxItems+1)
	_, err = f.sales.Create(managerAddr, collectionAddr, many, make([]common.Address, len(many)), make([]*big.Int, len(many)))
	expectErr(t, err, sale.ErrLimitLength)

	lastID, err := f.sales.LastID()
	must(t, "last id", err)
	if lastID != 0 {
		t.Fatalf("expected no sales, got last id %d", lastID)
	}
	if evts := f.buf.Drain(); len(evts) != 0 {
		t.Fatalf("expected no events, got %d", len(evts))
	}
}

func TestCreateAndBuyNative(t *testing.T) {
	f := newSaleFixture(t)
	s := f.create(1, 2)
	if s.ID != 1 || s.Status != sale.StatusLive {
		t.Fatalf("unexpected sale %+v", s)
	}

	managerBefore := f.native(managerAddr)
	buyerBefore := f.native(buyerAddr)

	expectErr(t, f.sales.Buy(buyerAddr, s.ID, 1, big.NewInt(999)), sale.ErrInvalidAttachedValue)
	expectErr(t, f.sales.Buy(buyerAddr, s.ID, 3, big.NewInt(1000)), sale.ErrTokenNotListed)
	expectErr(t, f.sales.Buy(managerAddr, s.ID, 1, big.NewInt(1000)), sale.ErrAlreadyOwned)

	must(t, "buy", f.sales.Buy(buyerAddr, s.ID, 1, big.NewInt(1000)))
	owner, err := f.certs.OwnerOf(1)
	must(t, "owner of", err)
	if owner != buyerAddr {
		t.Fatalf("expected buyer to own token 1, got %s", owner.Hex())
	}

	expectBig(t, new(big.Int).Sub(buyerBefore, big.NewInt(1000)), f.native(buyerAddr))
	expectBig(t, new(big.Int).Add(managerBefore, big.NewInt(900)), f.native(managerAddr))
	expectBig(t, big.NewInt(100), f.native(artistAddr))

	expectErr(t, f.sales.Buy(otherAddr, s.ID, 1, big.NewInt(1000)), sale.ErrTokenSold)

	stored := f.sale(s.ID)
	if stored.Items[0].Status != sale.ItemSold || stored.Items[1].Status != sale.ItemAvailable {
		t.Fatalf("unexpected item statuses %v/%v", stored.Items[0].Status, stored.Items[1].Status)
	}

	var bought int
	for _, evt := range f.buf.Drain() {
		if evt.EventType() != sale.EventTypeBought {
			continue
		}
		bought++
		payload := events.Payload(evt)
		if payload.Attributes["price"] != "1000" || payload.Attributes["royalty"] != "100" {
			t.Fatalf("unexpected bought attributes %v", payload.Attributes)
		}
	}
	if bought != 1 {
		t.Fatalf("expected one bought event, got %d", bought)
	}
}

func TestBuyWithTokenPayment(t *testing.T) {
	f := newSaleFixture(t)
	s, err := f.sales.Create(managerAddr, collectionAddr, []uint64{2}, []common.Address{cashAddr}, []*big.Int{big.NewInt(500)})
	must(t, "create sale", err)

	expectErr(t, f.sales.Buy(buyerAddr, s.ID, 2, big.NewInt(1)), sale.ErrUnexpectedAttachedValue)
	must(t, "buy", f.sales.Buy(buyerAddr, s.ID, 2, nil))

	expectBig(t, big.NewInt(50), f.cash(artistAddr))
	expectBig(t, big.NewInt(1_000_450), f.cash(managerAddr))
}

func TestBuyRevertsWhenDeliveryFails(t *testing.T) {
	f := newSaleFixture(t)
	s := f.create(1)
	must(t, "revoke operator", f.certs.SetApprovalForAll(managerAddr, saleAddr, false))
	buyerBefore := f.native(buyerAddr)

	expectErr(t, f.sales.Buy(buyerAddr, s.ID, 1, big.NewInt(1000)), certificate.ErrNotOwnerOrApproved)
	expectBig(t, buyerBefore, f.native(buyerAddr))

	if status := f.sale(s.ID).Items[0].Status; status != sale.ItemAvailable {
		t.Fatalf("expected item to stay available, got %v", status)
	}
}

func TestBuyAfterManagerTransferredToken(t *testing.T) {
	f := newSaleFixture(t)
	s := f.create(1)
	must(t, "transfer", f.certs.Transfer(managerAddr, otherAddr, 1))
	expectErr(t, f.sales.Buy(buyerAddr, s.ID, 1, big.NewInt(1000)), sale.ErrNotTokenOwner)
}

func TestUpdateAndCancel(t *testing.T) {
	f := newSaleFixture(t)
	s := f.create(1, 2)

	_, err := f.sales.Update(otherAddr, s.ID, []sale.Item{{TokenID: 3, Price: big.NewInt(5)}})
	expectErr(t, err, sale.ErrNotManager)
	_, err = f.sales.Update(managerAddr, s.ID, nil)
	expectErr(t, err, sale.ErrEmptyTokenIDs)

	updated, err := f.sales.Update(managerAddr, s.ID, []sale.Item{{TokenID: 3, Price: big.NewInt(5), Status: sale.ItemSold}})
	must(t, "update", err)
	if ids := updated.TokenIDs(); len(ids) != 1 || ids[0] != 3 {
		t.Fatalf("expected listing of token 3, got %v", ids)
	}
	if updated.Items[0].Status != sale.ItemAvailable {
		t.Fatalf("expected updated item to be available, got %v", updated.Items[0].Status)
	}

	must(t, "buy", f.sales.Buy(buyerAddr, s.ID, 3, big.NewInt(5)))
	_, err = f.sales.Update(managerAddr, s.ID, []sale.Item{{TokenID: 2, Price: big.NewInt(5)}})
	expectErr(t, err, sale.ErrTokenSold)

	expectErr(t, f.sales.Cancel(otherAddr, s.ID), sale.ErrNotManager)
	must(t, "cancel", f.sales.Cancel(managerAddr, s.ID))
	expectErr(t, f.sales.Cancel(managerAddr, s.ID), sale.ErrSaleCancelled)
	expectErr(t, f.sales.Buy(buyerAddr, s.ID, 2, big.NewInt(1000)), sale.ErrSaleCancelled)
	expectErr(t, f.sales.Cancel(managerAddr, 9), sale.ErrNonexistentSale)
}
