// Package storage defines the persistence contract of the player mode store.
package storage

import (
	"context"
	"errors"
	"maps"

	"github.com/udisondev/pvpguard/internal/model"
)

// ErrCorrupt is returned by Load when persisted data exists but cannot be decoded.
var ErrCorrupt = errors.New("corrupt mode data")

// Records is the full set of persisted mode records keyed by player.
type Records map[model.PlayerID]model.ModeRecord

// Clone returns a shallow copy (records are values).
func (r Records) Clone() Records {
	if r == nil {
		return Records{}
	}
	return maps.Clone(r)
}

// Backend persists mode records.
//
// Load returns an empty set (and nil error) when nothing was persisted yet.
// Save receives the complete record set plus the ids changed by the
// triggering mutation; document backends rewrite everything, row backends
// upsert only changed ids (all of them when changed is empty).
type Backend interface {
	Load(ctx context.Context) (Records, error)
	Save(ctx context.Context, all Records, changed []model.PlayerID) error
	Close() error
}

// ChangedOrAll returns changed, or every key of all when changed is empty.
func ChangedOrAll(all Records, changed []model.PlayerID) []model.PlayerID {
	if len(changed) > 0 {
		return changed
	}
	ids := make([]model.PlayerID, 0, len(all))
	for id := range all {
		ids = append(ids, id)
	}
	return ids
}
