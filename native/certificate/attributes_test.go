package certificate_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"certchain/native/certificate"
)

func TestSetTokenURI(t *testing.T) {
	f := newFixture(t)
	token := f.mint(user0, f.payload(user0, common.Address{}, 1, 1))
	f.events.Reset()

	expectErr(t, f.engine.SetTokenURI(token.ID, "", f.signURI(token.ID, "")), certificate.ErrEmptyURI)

	sig := f.signURI(token.ID, "ipfs://updated")
	if err := f.engine.SetTokenURI(token.ID, "ipfs://updated", sig); err != nil {
		t.Fatalf("set token uri: %v", err)
	}
	uri, err := f.engine.TokenURI(token.ID)
	if err != nil {
		t.Fatalf("token uri: %v", err)
	}
	if uri != "ipfs://updated" {
		t.Fatalf("expected updated uri, got %q", uri)
	}

	// The revision moved on, so the same authorisation cannot be replayed.
	expectErr(t, f.engine.SetTokenURI(token.ID, "ipfs://updated", sig), certificate.ErrInvalidSignature)

	updated := f.singleEvent(certificate.EventTypeURIUpdated)
	expectAttr(t, updated, "old", "ipfs://certificate")
	expectAttr(t, updated, "new", "ipfs://updated")
}

func TestSetStatus(t *testing.T) {
	f := newFixture(t)
	token := f.mint(user0, f.payload(user0, common.Address{}, 1, 1))

	expectErr(t, f.engine.SetStatus(token.ID, true, f.signStatus(token.ID, true)), certificate.ErrDuplicateValue)
	expectErr(t, f.engine.SetStatus(99, false, nil), certificate.ErrNonexistentToken)

	// A signature for the type action does not authorise a status change.
	expectErr(t, f.engine.SetStatus(token.ID, false, f.signType(token.ID, certificate.TypeNormal)), certificate.ErrInvalidSignature)

	if err := f.engine.SetStatus(token.ID, false, f.signStatus(token.ID, false)); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if err := f.engine.SetStatus(token.ID, true, f.signStatus(token.ID, true)); err != nil {
		t.Fatalf("reactivate: %v", err)
	}

	updated := f.eventsOf(certificate.EventTypeStatusUpdated)
	if len(updated) != 2 {
		t.Fatalf("expected two status events, got %d", len(updated))
	}
	expectAttr(t, updated[0], "old", "true")
	expectAttr(t, updated[0], "new", "false")

	if revision := f.token(token.ID).Revision; revision != 2 {
		t.Fatalf("expected revision 2, got %d", revision)
	}
}

func TestSetType(t *testing.T) {
	f := newFixture(t)
	token := f.mint(user0, f.payload(user0, common.Address{}, 1, 1))

	expectErr(t, f.engine.SetType(token.ID, certificate.TypeNormal, f.signType(token.ID, certificate.TypeNormal)), certificate.ErrDuplicateValue)
	expectErr(t, f.engine.SetType(token.ID, certificate.TypeDonated, f.signType(token.ID, certificate.TypeDonated)), certificate.ErrInvalidTokenType)
	expectErr(t, f.engine.SetType(token.ID, certificate.TokenType(9), nil), certificate.ErrInvalidTokenType)

	if err := f.engine.SetType(token.ID, certificate.TypeFurusato, f.signType(token.ID, certificate.TypeFurusato)); err != nil {
		t.Fatalf("set type: %v", err)
	}
	typ, err := f.engine.TypeOf(token.ID)
	if err != nil {
		t.Fatalf("type of: %v", err)
	}
	if typ != certificate.TypeFurusato {
		t.Fatalf("expected furusato, got %v", typ)
	}

	updated := f.singleEvent(certificate.EventTypeTypeUpdated)
	expectAttr(t, updated, "old", "normal")
	expectAttr(t, updated, "new", "furusato")
}
