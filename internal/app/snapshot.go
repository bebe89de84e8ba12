package app

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/evanschultz/tuikan/internal/domain"
)

// SnapshotVersion defines a package constant value.
const SnapshotVersion = "tuikan.snapshot.v1"

// Snapshot is the export envelope around a state document.
type Snapshot struct {
	Version    string    `json:"version"`
	ExportedAt time.Time `json:"exported_at"`
	Document   Document  `json:"state"`
}

// NewSnapshot captures st at now.
func NewSnapshot(st domain.State, now time.Time) Snapshot {
	return Snapshot{
		Version:    SnapshotVersion,
		ExportedAt: now.UTC(),
		Document:   documentFromState(st),
	}
}

// Validate validates the requested operation.
func (s Snapshot) Validate() error {
	if s.Version != "" && s.Version != SnapshotVersion {
		return fmt.Errorf("unsupported snapshot version: %q", s.Version)
	}
	_, err := s.State()
	return err
}

// State decodes the embedded document.
func (s Snapshot) State() (domain.State, error) {
	if s.Version != "" && s.Version != SnapshotVersion {
		return domain.State{}, fmt.Errorf("unsupported snapshot version: %q", s.Version)
	}
	encoded, err := json.Marshal(s.Document)
	if err != nil {
		return domain.State{}, fmt.Errorf("encode snapshot document: %w", err)
	}
	return DecodeState(encoded)
}

// ParseSnapshot accepts either a snapshot envelope or a bare state document.
func ParseSnapshot(data []byte) (Snapshot, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	if _, ok := fields["state"]; ok {
		var snap Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return Snapshot{}, fmt.Errorf("%w: snapshot: %v", ErrCorruptState, err)
		}
		return snap, snap.Validate()
	}
	st, err := DecodeState(data)
	if err != nil {
		return Snapshot{}, err
	}
	return NewSnapshot(st, time.Time{}), nil
}
