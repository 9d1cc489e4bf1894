package exports

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"certchain/integrations/eventlog"
)

// EventsJSONL builds a JSON Lines export of records and returns the payload
// alongside its SHA-256 checksum.
func EventsJSONL(records []eventlog.Record) ([]byte, string, error) {
	buffer := &bytes.Buffer{}
	encoder := json.NewEncoder(buffer)
	encoder.SetEscapeHTML(false)
	for _, record := range records {
		evt, err := record.Event()
		if err != nil {
			return nil, "", err
		}
		payload := map[string]interface{}{
			"seq":        record.Seq,
			"module":     record.Module,
			"type":       record.Type,
			"attributes": evt.Attributes,
			"created_at": record.CreatedAt.UTC().Format(time.RFC3339Nano),
		}
		if err := encoder.Encode(payload); err != nil {
			return nil, "", err
		}
	}
	data := buffer.Bytes()
	checksum := sha256.Sum256(data)
	return data, hex.EncodeToString(checksum[:]), nil
}
