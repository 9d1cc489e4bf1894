package events

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestTransferEventNativeAsset(t *testing.T) {
	evt := Transfer{
		From:   common.HexToAddress("0x01"),
		To:     common.HexToAddress("0x02"),
		Amount: big.NewInt(250),
	}.Event()
	if evt.Type != TypeTransfer {
		t.Fatalf("unexpected type: %s", evt.Type)
	}
	if evt.Attributes["asset"] != NativeAsset {
		t.Fatalf("unexpected asset attr: %s", evt.Attributes["asset"])
	}
	if evt.Attributes["amount"] != "250" {
		t.Fatalf("unexpected amount attr: %s", evt.Attributes["amount"])
	}
}

func TestApprovalEventNilAmount(t *testing.T) {
	evt := Approval{Token: common.HexToAddress("0xaa")}.Event()
	if evt.Attributes["amount"] != "0" {
		t.Fatalf("expected zero amount, got %s", evt.Attributes["amount"])
	}
}

func TestBufferDrainAndReset(t *testing.T) {
	var buf Buffer
	buf.Emit(Transfer{})
	buf.Emit(nil)
	buf.Emit(Approval{})
	if buf.Len() != 2 {
		t.Fatalf("expected 2 buffered events, got %d", buf.Len())
	}
	drained := buf.Drain()
	if len(drained) != 2 || buf.Len() != 0 {
		t.Fatalf("drain did not empty buffer")
	}
	buf.Emit(Transfer{})
	buf.Reset()
	if buf.Len() != 0 {
		t.Fatalf("reset did not empty buffer")
	}
}

func TestMultiFansOut(t *testing.T) {
	var a, b Buffer
	Multi{&a, nil, &b}.Emit(Transfer{})
	if a.Len() != 1 || b.Len() != 1 {
		t.Fatalf("expected both buffers to receive the event")
	}
}

func TestPayload(t *testing.T) {
	if Payload(nil) != nil {
		t.Fatalf("expected nil payload")
	}
	if got := Payload(Transfer{}); got == nil || got.Type != TypeTransfer {
		t.Fatalf("unexpected payload: %+v", got)
	}
}
