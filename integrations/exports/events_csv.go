package exports

import (
	"bytes"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
	"time"

	"certchain/integrations/eventlog"
)

// EventsCSV builds a CSV export of records. Attributes are flattened into a
// single "key=value;..." column with keys in sorted order.
func EventsCSV(records []eventlog.Record) ([]byte, string, error) {
	buffer := &bytes.Buffer{}
	writer := csv.NewWriter(buffer)
	if err := writer.Write([]string{"seq", "module", "type", "attributes", "created_at"}); err != nil {
		return nil, "", err
	}
	for _, record := range records {
		evt, err := record.Event()
		if err != nil {
			return nil, "", err
		}
		row := []string{
			strconv.FormatUint(record.Seq, 10),
			record.Module,
			record.Type,
			flatten(evt.Attributes),
			record.CreatedAt.UTC().Format(time.RFC3339Nano),
		}
		if err := writer.Write(row); err != nil {
			return nil, "", err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, "", err
	}
	data := buffer.Bytes()
	checksum := sha256.Sum256(data)
	return data, hex.EncodeToString(checksum[:]), nil
}

func flatten(attrs map[string]string) string {
	keys := make([]string, 0, len(attrs))
	for key := range attrs {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, key := range keys {
		parts[i] = key + "=" + attrs[key]
	}
	return strings.Join(parts, ";")
}
