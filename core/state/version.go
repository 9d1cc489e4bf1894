package state

import (
	"errors"
	"fmt"
	"math"
)

// StateVersion identifies the expected on-disk schema layout. Increment it
// whenever stored records change shape.
const StateVersion uint32 = 1

var (
	stateVersionKey = []byte("state/version")
	genesisKey      = []byte("state/genesis")

	// ErrStateVersionMismatch indicates the stored schema version does not
	// match the version supported by the current binary.
	ErrStateVersionMismatch = errors.New("state: schema version mismatch")
)

// SetStateVersion records the schema version in state.
func (m *Manager) SetStateVersion(version uint32) error {
	return m.KVPut(stateVersionKey, uint64(version))
}

// StateVersion returns the stored schema version and whether it was present.
func (m *Manager) StateVersion() (uint32, bool, error) {
	var stored uint64
	ok, err := m.KVGet(stateVersionKey, &stored)
	if err != nil || !ok {
		return 0, false, err
	}
	if stored > uint64(math.MaxUint32) {
		return 0, false, fmt.Errorf("state: schema version overflow: %d", stored)
	}
	return uint32(stored), true, nil
}

// EnsureStateVersion verifies the stored schema version. An empty database
// is stamped with the current version as a pending write.
func (m *Manager) EnsureStateVersion() error {
	version, ok, err := m.StateVersion()
	if err != nil {
		return err
	}
	if !ok {
		return m.SetStateVersion(StateVersion)
	}
	if version != StateVersion {
		return fmt.Errorf("%w: on-disk=%d expected=%d", ErrStateVersionMismatch, version, StateVersion)
	}
	return nil
}

// GenesisHash returns the hash of the genesis document applied to this
// state, if any.
func (m *Manager) GenesisHash() ([32]byte, bool, error) {
	var hash [32]byte
	ok, err := m.KVGet(genesisKey, &hash)
	return hash, ok, err
}

// MarkGenesis records that the genesis document with hash has been applied.
func (m *Manager) MarkGenesis(hash [32]byte) error {
	return m.KVPut(genesisKey, hash)
}
