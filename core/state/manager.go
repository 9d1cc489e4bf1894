package state

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/rlp"

	"certchain/storage"
)

// Manager layers a journaled write overlay on top of a key-value database.
// Reads fall through the overlay to the database; writes stay pending until
// Commit flushes them in a single batch. Snapshot and RevertToSnapshot let
// callers roll back a failed operation without touching the database.
//
// A Manager is not safe for concurrent use. core.Host serialises access.
type Manager struct {
	db      storage.Database
	pending map[string]pendingValue
	journal []journalEntry
}

type pendingValue struct {
	value   []byte
	deleted bool
}

type journalEntry struct {
	key     string
	prev    pendingValue
	hadPrev bool
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db, pending: make(map[string]pendingValue)}
}

func (m *Manager) get(key []byte) ([]byte, bool, error) {
	if entry, ok := m.pending[string(key)]; ok {
		if entry.deleted {
			return nil, false, nil
		}
		return entry.value, true, nil
	}
	value, err := m.db.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (m *Manager) record(key string) {
	prev, ok := m.pending[key]
	m.journal = append(m.journal, journalEntry{key: key, prev: prev, hadPrev: ok})
}

func (m *Manager) set(key, value []byte) {
	k := string(key)
	m.record(k)
	m.pending[k] = pendingValue{value: append([]byte(nil), value...)}
}

func (m *Manager) remove(key []byte) {
	k := string(key)
	m.record(k)
	m.pending[k] = pendingValue{deleted: true}
}

// Snapshot returns an identifier for the current overlay revision.
func (m *Manager) Snapshot() int { return len(m.journal) }

// RevertToSnapshot undoes every pending write made after the snapshot was
// taken. Reverting to a stale or unknown id is a no-op.
func (m *Manager) RevertToSnapshot(id int) {
	if id < 0 || id > len(m.journal) {
		return
	}
	for i := len(m.journal) - 1; i >= id; i-- {
		entry := m.journal[i]
		if entry.hadPrev {
			m.pending[entry.key] = entry.prev
		} else {
			delete(m.pending, entry.key)
		}
	}
	m.journal = m.journal[:id]
}

// Dirty reports the number of keys with pending writes.
func (m *Manager) Dirty() int { return len(m.pending) }

// Commit flushes pending writes to the database and clears the journal.
func (m *Manager) Commit() error {
	if len(m.pending) == 0 {
		m.journal = m.journal[:0]
		return nil
	}
	keys := make([]string, 0, len(m.pending))
	for key := range m.pending {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	batch := m.db.NewBatch()
	for _, key := range keys {
		entry := m.pending[key]
		if entry.deleted {
			batch.Delete([]byte(key))
			continue
		}
		batch.Put([]byte(key), entry.value)
	}
	if err := batch.Write(); err != nil {
		return fmt.Errorf("state: commit: %w", err)
	}
	m.pending = make(map[string]pendingValue)
	m.journal = m.journal[:0]
	return nil
}

// Discard drops every pending write.
func (m *Manager) Discard() {
	m.pending = make(map[string]pendingValue)
	m.journal = m.journal[:0]
}

// KVPut RLP-encodes value and stores it under key.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	m.set(key, encoded)
	return nil
}

// KVGet retrieves the value stored under the supplied key and decodes it into
// the provided destination. The boolean return value indicates whether the key
// existed in state.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	if len(key) == 0 {
		return false, fmt.Errorf("kv: key must not be empty")
	}
	data, ok, err := m.get(key)
	if err != nil || !ok {
		return false, err
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, fmt.Errorf("kv: decode %q: %w", key, err)
	}
	return true, nil
}

// KVDelete removes key from state.
func (m *Manager) KVDelete(key []byte) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	m.remove(key)
	return nil
}
