// Package persist mirrors the roster store into a durable key-value store
// so a session survives restarts.
package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"rollcall/internal/domain"
	"rollcall/internal/roster"
)

// SnapshotKey is the fixed key the session snapshot is stored under.
const SnapshotKey = "attendance_session_data"

type Adapter struct {
	kv     KV
	key    string
	logger *slog.Logger

	once   sync.Once
	loaded domain.Snapshot
	found  bool
}

func NewAdapter(kv KV, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{kv: kv, key: SnapshotKey, logger: logger}
}

// Load reads the persisted snapshot. It touches storage only on the first
// call; later calls return the same result. Missing, malformed or
// unreadable state all report found=false.
func (a *Adapter) Load(ctx context.Context) (domain.Snapshot, bool) {
	a.once.Do(func() {
		data, err := a.kv.Get(ctx, a.key)
		if err != nil {
			if !errors.Is(err, ErrNotFound) {
				a.logger.Warn("load snapshot failed", "key", a.key, "err", fmt.Errorf("%w: %v", domain.ErrPersistenceUnavailable, err))
			}
			return
		}
		snap, err := Decode(data)
		if err != nil {
			a.logger.Warn("discarding malformed snapshot", "key", a.key, "err", err)
			return
		}
		a.loaded, a.found = snap, true
	})
	return a.loaded.Clone(), a.found
}

// Attach restores the persisted snapshot into store, then saves every
// subsequent change. It must run before the store accepts mutations.
func (a *Adapter) Attach(ctx context.Context, store *roster.Store) {
	if snap, ok := a.Load(ctx); ok {
		store.Restore(snap)
	}
	store.Subscribe(func(c roster.Change) {
		if err := a.Save(ctx, c.Snapshot); err != nil {
			a.logger.Warn("save snapshot failed", "op", string(c.Op), "err", err)
		}
	})
}

// Save writes snap, or removes the stored record when snap has no roster
// or no session.
func (a *Adapter) Save(ctx context.Context, snap domain.Snapshot) error {
	if snap.Empty() {
		if err := a.kv.Remove(ctx, a.key); err != nil {
			return fmt.Errorf("%w: remove %s: %v", domain.ErrPersistenceUnavailable, a.key, err)
		}
		return nil
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("%w: encode snapshot: %v", domain.ErrPersistenceUnavailable, err)
	}
	if err := a.kv.Set(ctx, a.key, data); err != nil {
		return fmt.Errorf("%w: write %s: %v", domain.ErrPersistenceUnavailable, a.key, err)
	}
	return nil
}

// Decode parses a stored snapshot and rejects anything that does not pair a
// non-empty roster with a known session variant.
func Decode(data []byte) (domain.Snapshot, error) {
	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return domain.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.Empty() {
		return domain.Snapshot{}, errors.New("snapshot missing roster or session")
	}
	if !snap.Session.Variant.Known() {
		return domain.Snapshot{}, fmt.Errorf("snapshot has unknown variant %q", snap.Session.Variant)
	}
	for _, p := range snap.Roster {
		if p.ID == "" {
			return domain.Snapshot{}, errors.New("snapshot participant without id")
		}
	}
	return snap, nil
}
