// Package pvpmode holds per-player combat modes and the rules for changing them.
package pvpmode

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/udisondev/pvpguard/internal/clock"
	"github.com/udisondev/pvpguard/internal/model"
	"github.com/udisondev/pvpguard/internal/storage"
)

// DefaultSaveTimeout bounds a single write-through to the backend.
const DefaultSaveTimeout = 5 * time.Second

// Store is the in-memory authority for mode records, written through to a
// storage.Backend after every mutation.
//
// Reads take the read lock. Mutations go through Controller; persistence
// failures are logged and the in-memory state is kept.
type Store struct {
	mu      sync.RWMutex
	records storage.Records

	// saveMu orders flushes so a later snapshot never lands before an earlier one.
	saveMu      sync.Mutex
	backend     storage.Backend
	clock       clock.Clock
	saveTimeout time.Duration
}

// NewStore creates an empty store bound to backend.
func NewStore(backend storage.Backend, clk clock.Clock) *Store {
	return &Store{
		records:     make(storage.Records),
		backend:     backend,
		clock:       clk,
		saveTimeout: DefaultSaveTimeout,
	}
}

// SetSaveTimeout overrides DefaultSaveTimeout.
func (s *Store) SetSaveTimeout(d time.Duration) {
	if d > 0 {
		s.saveTimeout = d
	}
}

// LoadAll replaces the in-memory records with the persisted set.
// On error the store is left empty and usable; the error is returned for logging.
func (s *Store) LoadAll(ctx context.Context) error {
	loaded, err := s.backend.Load(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.records = make(storage.Records)
		return err
	}
	if loaded == nil {
		loaded = make(storage.Records)
	}
	s.records = loaded
	slog.Info("loaded player modes", "count", len(loaded))
	return nil
}

// Get returns the record for id, creating and persisting the default record
// when none exists.
func (s *Store) Get(id model.PlayerID) model.ModeRecord {
	rec, _ := s.GetOrCreate(id)
	return rec
}

// GetOrCreate is Get that also reports whether the record was created.
func (s *Store) GetOrCreate(id model.PlayerID) (model.ModeRecord, bool) {
	s.mu.RLock()
	rec, ok := s.records[id]
	s.mu.RUnlock()
	if ok {
		return rec, false
	}

	s.mu.Lock()
	if rec, ok = s.records[id]; ok {
		s.mu.Unlock()
		return rec, false
	}
	rec = model.DefaultModeRecord(s.clock.Now())
	s.records[id] = rec
	s.flushLocked([]model.PlayerID{id})
	return rec, true
}

// Lookup returns the record for id without creating one.
func (s *Store) Lookup(id model.PlayerID) (model.ModeRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	return rec, ok
}

// Set applies fn to the record of id (creating the default first) and
// persists the result.
func (s *Store) Set(id model.PlayerID, fn func(*model.ModeRecord)) model.ModeRecord {
	s.mu.Lock()
	rec, ok := s.records[id]
	if !ok {
		rec = model.DefaultModeRecord(s.clock.Now())
	}
	fn(&rec)
	s.records[id] = rec
	s.flushLocked([]model.PlayerID{id})
	return rec
}

// UpdateAll calls fn for every record; records for which fn returns true are
// stored back and persisted in one flush. Returns the changed ids.
func (s *Store) UpdateAll(fn func(id model.PlayerID, rec *model.ModeRecord) bool) []model.PlayerID {
	s.mu.Lock()
	var changed []model.PlayerID
	for id, rec := range s.records {
		if fn(id, &rec) {
			s.records[id] = rec
			changed = append(changed, id)
		}
	}
	if len(changed) == 0 {
		s.mu.Unlock()
		return nil
	}
	s.flushLocked(changed)
	return changed
}

// Snapshot returns a copy of all records.
func (s *Store) Snapshot() storage.Records {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records.Clone()
}

// Len returns the number of known players.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// PersistAll writes every record to the backend.
func (s *Store) PersistAll(ctx context.Context) error {
	s.mu.RLock()
	all := s.records.Clone()
	s.saveMu.Lock()
	s.mu.RUnlock()
	defer s.saveMu.Unlock()

	return s.backend.Save(ctx, all, nil)
}

// flushLocked must be called with mu held for writing; it releases mu.
func (s *Store) flushLocked(changed []model.PlayerID) {
	all := s.records.Clone()
	s.saveMu.Lock()
	s.mu.Unlock()
	defer s.saveMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.saveTimeout)
	defer cancel()

	if err := s.backend.Save(ctx, all, changed); err != nil {
		slog.Error("persisting player modes", "changed", len(changed), "error", err)
	}
}
