// Package memory is an in-process storage.Backend, used when persistence
// is disabled and in tests.
package memory

import (
	"context"
	"sync"

	"github.com/udisondev/pvpguard/internal/model"
	"github.com/udisondev/pvpguard/internal/storage"
)

// Storage keeps the last saved record set in memory.
type Storage struct {
	mu      sync.Mutex
	records storage.Records
	saves   int

	// LoadErr and SaveErr, when set, are returned by Load and Save.
	LoadErr error
	SaveErr error
}

var _ storage.Backend = (*Storage)(nil)

// New creates an empty in-memory backend.
func New() *Storage {
	return &Storage{records: storage.Records{}}
}

// NewWithRecords creates a backend pre-populated with records.
func NewWithRecords(records storage.Records) *Storage {
	return &Storage{records: records.Clone()}
}

// Load returns a copy of the stored records.
func (s *Storage) Load(context.Context) (storage.Records, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.LoadErr != nil {
		return nil, s.LoadErr
	}
	return s.records.Clone(), nil
}

// Save replaces the stored records with a copy of all.
func (s *Storage) Save(_ context.Context, all storage.Records, _ []model.PlayerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.records = all.Clone()
	s.saves++
	return nil
}

// Close is a no-op.
func (s *Storage) Close() error { return nil }

// Records returns a copy of the last saved set.
func (s *Storage) Records() storage.Records {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records.Clone()
}

// Saves returns the number of successful Save calls.
func (s *Storage) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
