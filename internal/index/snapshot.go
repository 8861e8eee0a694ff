package index

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/brokerhub/knowbot/internal/core/domain"
)

// snapshotVersion guards against loading snapshots written by an
// incompatible build. Version mismatches are not an error: the caller falls
// back to a full refresh.
const snapshotVersion = 1

// snapshot is the serialised index state. Only the fragments are
// authoritative; every derived structure is rebuilt on load.
type snapshot struct {
	Version   int
	BuiltAt   time.Time
	Fragments []domain.Fragment
}

// SaveSnapshot serialises the current corpus for fast cold start. The write
// goes through a temp file and rename so a crash never leaves a torn
// snapshot behind.
func (i *Index) SaveSnapshot(path string) error {
	snap := snapshot{
		Version:   snapshotVersion,
		BuiltAt:   time.Now(),
		Fragments: i.Fragments(),
	}
	if len(snap.Fragments) == 0 {
		return domain.ErrNoIndex
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".snapshot-*")
	if err != nil {
		return fmt.Errorf("creating snapshot temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := gob.NewEncoder(tmp).Encode(snap); err != nil {
		tmp.Close()
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing snapshot temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot restores a previously saved corpus and rebuilds the derived
// structures. Returns domain.ErrNotFound when no snapshot exists.
func (i *Index) LoadSnapshot(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()

	var snap snapshot
	if err := gob.NewDecoder(f).Decode(&snap); err != nil {
		return fmt.Errorf("decoding snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		return domain.ErrNotFound
	}

	i.Replace(snap.Fragments)
	return nil
}
