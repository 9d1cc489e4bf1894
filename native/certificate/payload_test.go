package certificate

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	certcrypto "certchain/crypto"
)

var testCollection = common.HexToAddress("0x000000000000000000000000000000000000c011")

func baseMintPayload() MintPayload {
	return MintPayload{
		To:           common.HexToAddress("0x0000000000000000000000000000000000000001"),
		Beneficiary:  common.HexToAddress("0x0000000000000000000000000000000000000002"),
		PaymentToken: common.Address{},
		Price:        big.NewInt(100),
		Amount:       big.NewInt(150),
		Years:        0,
		Type:         TypeNormal,
		URI:          "ipfs://certificate",
	}
}

type digester interface {
	Digest(collection common.Address) (common.Hash, error)
}

func mustDigest(t *testing.T, p digester) common.Hash {
	t.Helper()
	digest, err := p.Digest(testCollection)
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	return digest
}

func TestMintDigestChangesWithEveryField(t *testing.T) {
	base := baseMintPayload()
	baseDigest := mustDigest(t, &base)

	mutations := map[string]func(p *MintPayload){
		"to":           func(p *MintPayload) { p.To = common.HexToAddress("0x09") },
		"beneficiary":  func(p *MintPayload) { p.Beneficiary = common.HexToAddress("0x09") },
		"paymentToken": func(p *MintPayload) { p.PaymentToken = common.HexToAddress("0x09") },
		"price":        func(p *MintPayload) { p.Price = big.NewInt(101) },
		"amount":       func(p *MintPayload) { p.Amount = big.NewInt(151) },
		"years":        func(p *MintPayload) { p.Years = 1 },
		"type":         func(p *MintPayload) { p.Type = TypeFurusato },
		"uri":          func(p *MintPayload) { p.URI = "ipfs://certificatf" },
		"zero royalty": func(p *MintPayload) { p.Royalty = &RoyaltyTerms{} },
		"royalty":      func(p *MintPayload) { p.Royalty = &RoyaltyTerms{Receiver: common.HexToAddress("0x09"), Bps: 1} },
	}
	seen := map[common.Hash]string{baseDigest: "base"}
	for name, mutate := range mutations {
		p := baseMintPayload()
		mutate(&p)
		digest, err := p.Digest(testCollection)
		if err != nil {
			t.Fatalf("%s: digest: %v", name, err)
		}
		if prev, dup := seen[digest]; dup {
			t.Fatalf("%s collides with %s", name, prev)
		}
		seen[digest] = name
	}

	other, err := base.Digest(common.HexToAddress("0x000000000000000000000000000000000000c012"))
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	if other == baseDigest {
		t.Fatalf("expected digest bound to the collection")
	}
	if again := mustDigest(t, &base); again != baseDigest {
		t.Fatalf("expected deterministic digest")
	}
}

func TestRoyaltyTermsChangeDigest(t *testing.T) {
	withBps := func(bps uint64) common.Hash {
		p := baseMintPayload()
		p.Royalty = &RoyaltyTerms{Receiver: common.HexToAddress("0x05"), Bps: bps}
		return mustDigest(t, &p)
	}
	if withBps(1000) == withBps(1001) {
		t.Fatalf("expected royalty bps to change the digest")
	}
}

func TestDigestRejectsOutOfRangeValues(t *testing.T) {
	p := baseMintPayload()
	p.Price = big.NewInt(-1)
	if _, err := p.Digest(testCollection); !errors.Is(err, ErrValueOutOfRange) {
		t.Fatalf("expected out of range for negative price, got %v", err)
	}

	p = baseMintPayload()
	p.Amount = new(big.Int).Lsh(big.NewInt(1), 256)
	if _, err := p.Digest(testCollection); !errors.Is(err, ErrValueOutOfRange) {
		t.Fatalf("expected out of range for 2^256 amount, got %v", err)
	}
}

func TestAttributeDigestsAreActionScoped(t *testing.T) {
	uri := TokenURIPayload{TokenID: 1, Revision: 0, URI: "x"}
	status := StatusPayload{TokenID: 1, Revision: 0, Active: false}
	typ := TypePayload{TokenID: 1, Revision: 0, Type: TypeNormal}

	d1 := mustDigest(t, &uri)
	d2 := mustDigest(t, &status)
	d3 := mustDigest(t, &typ)
	if d1 == d2 || d2 == d3 || d1 == d3 {
		t.Fatalf("expected distinct digests per action")
	}

	bumped := StatusPayload{TokenID: 1, Revision: 1, Active: false}
	if mustDigest(t, &bumped) == d2 {
		t.Fatalf("expected revision to change the digest")
	}
}

func TestSignatureBoundToPayload(t *testing.T) {
	key, err := certcrypto.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	p := baseMintPayload()
	digest := mustDigest(t, &p)
	sig, err := certcrypto.SignPersonal(digest.Bytes(), key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if !Verify(key.Address(), digest, sig) {
		t.Fatalf("expected signature to verify")
	}

	p.Price = big.NewInt(99)
	tampered := mustDigest(t, &p)
	if Verify(key.Address(), tampered, sig) {
		t.Fatalf("expected tampered payload to fail verification")
	}
	if Verify(key.Address(), digest, sig[:10]) {
		t.Fatalf("expected truncated signature to fail verification")
	}
}

func TestComputeRoyaltyBound(t *testing.T) {
	prices := []*big.Int{
		big.NewInt(0),
		big.NewInt(1),
		big.NewInt(9_999),
		big.NewInt(1_000_000_007),
		new(big.Int).Exp(big.NewInt(10), big.NewInt(30), nil),
	}
	for _, price := range prices {
		for bps := uint64(0); bps <= MaxRoyaltyBps; bps += 97 {
			amount := computeRoyalty(price, bps)
			expected := new(big.Int).Mul(price, new(big.Int).SetUint64(bps))
			expected.Quo(expected, big.NewInt(MaxRoyaltyBps))
			if amount.Cmp(expected) != 0 {
				t.Fatalf("price=%s bps=%d: expected %s, got %s", price, bps, expected, amount)
			}
			if amount.Cmp(price) > 0 {
				t.Fatalf("price=%s bps=%d: royalty %s exceeds price", price, bps, amount)
			}
		}
		if full := computeRoyalty(price, MaxRoyaltyBps); full.Cmp(price) != 0 {
			t.Fatalf("expected full royalty %s, got %s", price, full)
		}
	}
	if got := computeRoyalty(big.NewInt(1000), 1000).Int64(); got != 100 {
		t.Fatalf("expected 100, got %d", got)
	}
	if got := computeRoyalty(big.NewInt(9), 1000).Int64(); got != 0 {
		t.Fatalf("expected rounding down to 0, got %d", got)
	}
}

func TestParseTokenType(t *testing.T) {
	for _, typ := range []TokenType{TypeNormal, TypeFurusato, TypeDonated} {
		parsed, err := ParseTokenType(typ.String())
		if err != nil {
			t.Fatalf("parse %s: %v", typ, err)
		}
		if parsed != typ {
			t.Fatalf("expected %v, got %v", typ, parsed)
		}
	}
	if _, err := ParseTokenType("gift"); !errors.Is(err, ErrInvalidTokenType) {
		t.Fatalf("expected invalid token type, got %v", err)
	}
}
