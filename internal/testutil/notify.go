package testutil

import (
	"context"
	"sync"

	"github.com/udisondev/pvpguard/internal/model"
	"github.com/udisondev/pvpguard/internal/notify"
)

// RecordingNotifier collects notices for assertions.
type RecordingNotifier struct {
	mu      sync.Mutex
	notices []notify.Notice
}

// Notify implements notify.Notifier.
func (r *RecordingNotifier) Notify(_ context.Context, n notify.Notice) {
	r.mu.Lock()
	r.notices = append(r.notices, n)
	r.mu.Unlock()
}

// All returns a copy of every notice received so far.
func (r *RecordingNotifier) All() []notify.Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Notice(nil), r.notices...)
}

// For returns the notices addressed to player.
func (r *RecordingNotifier) For(player model.PlayerID) []notify.Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []notify.Notice
	for _, n := range r.notices {
		if n.Player == player {
			out = append(out, n)
		}
	}
	return out
}

// Kinds returns the kinds of notices addressed to player, in order.
func (r *RecordingNotifier) Kinds(player model.PlayerID) []notify.Kind {
	var kinds []notify.Kind
	for _, n := range r.For(player) {
		kinds = append(kinds, n.Kind)
	}
	return kinds
}

// Reset drops all recorded notices.
func (r *RecordingNotifier) Reset() {
	r.mu.Lock()
	r.notices = nil
	r.mu.Unlock()
}
