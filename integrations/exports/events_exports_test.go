package exports

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"

	"certchain/integrations/eventlog"
)

func sampleRecords() []eventlog.Record {
	created := time.Unix(1700, 0).UTC()
	return []eventlog.Record{
		{Seq: 1, Module: "certificate", Type: "certificate.minted", Attributes: `{"tokenId":"1","price":"10"}`, CreatedAt: created},
		{Seq: 2, Module: "sale", Type: "sale.bought", Attributes: `{"uri":"ipfs://a<b>"}`, CreatedAt: created},
	}
}

func TestEventsCSV(t *testing.T) {
	data, checksum, err := EventsCSV(sampleRecords())
	if err != nil {
		t.Fatalf("csv: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and two rows, got %d", len(lines))
	}
	if lines[1] != "1,certificate,certificate.minted,price=10;tokenId=1,1970-01-01T00:28:20Z" {
		t.Fatalf("unexpected row %q", lines[1])
	}
	sum := sha256.Sum256(data)
	if checksum != hex.EncodeToString(sum[:]) {
		t.Fatalf("checksum mismatch")
	}
}

func TestEventsJSONL(t *testing.T) {
	data, checksum, err := EventsJSONL(sampleRecords())
	if err != nil {
		t.Fatalf("jsonl: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected two lines, got %d", len(lines))
	}
	if !strings.Contains(lines[1], `"uri":"ipfs://a<b>"`) {
		t.Fatalf("html escaping should be disabled: %s", lines[1])
	}
	if checksum == "" {
		t.Fatalf("expected checksum")
	}
}

func TestEventsExportRejectsCorruptAttributes(t *testing.T) {
	records := []eventlog.Record{{Seq: 1, Type: "x.y", Attributes: "{"}}
	if _, _, err := EventsJSONL(records); err == nil {
		t.Fatalf("expected decode error")
	}
	if _, _, err := EventsCSV(records); err == nil {
		t.Fatalf("expected decode error")
	}
}

func readParquet(t *testing.T, data []byte) []eventRow {
	t.Helper()
	path := filepath.Join(t.TempDir(), "events.parquet")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write parquet: %v", err)
	}
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		t.Fatalf("open parquet: %v", err)
	}
	defer fr.Close()
	pr, err := reader.NewParquetReader(fr, new(eventRow), 1)
	if err != nil {
		t.Fatalf("parquet reader: %v", err)
	}
	defer pr.ReadStop()
	rows := make([]eventRow, int(pr.GetNumRows()))
	if err := pr.Read(&rows); err != nil {
		t.Fatalf("read rows: %v", err)
	}
	return rows
}

func TestEventsParquetRoundTrip(t *testing.T) {
	data, checksum, err := EventsParquet(sampleRecords())
	if err != nil {
		t.Fatalf("parquet: %v", err)
	}
	sum := sha256.Sum256(data)
	if checksum != hex.EncodeToString(sum[:]) {
		t.Fatalf("checksum mismatch")
	}
	rows := readParquet(t, data)
	if len(rows) != 2 {
		t.Fatalf("expected two rows, got %d", len(rows))
	}
	want := eventRow{
		Seq:        1,
		Module:     "certificate",
		Type:       "certificate.minted",
		Attributes: "price=10;tokenId=1",
		CreatedAt:  "1970-01-01T00:28:20Z",
	}
	if rows[0] != want {
		t.Fatalf("unexpected first row %+v", rows[0])
	}
	if rows[1].Seq != 2 || rows[1].Attributes != "uri=ipfs://a<b>" {
		t.Fatalf("unexpected second row %+v", rows[1])
	}
}

func TestEventsParquetRejectsCorruptAttributes(t *testing.T) {
	records := []eventlog.Record{{Seq: 1, Type: "x.y", Attributes: "{"}}
	if _, _, err := EventsParquet(records); err == nil {
		t.Fatalf("expected decode error")
	}
}
