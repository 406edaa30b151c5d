package zone

import (
	"sync"

	"github.com/udisondev/pvpguard/internal/model"
)

// Transition is the result of revalidating a player's zone status.
type Transition uint8

const (
	// TransitionNone means the status did not change.
	TransitionNone Transition = iota
	// TransitionEntered means the player crossed into a zone.
	TransitionEntered
	// TransitionExited means the player left every zone.
	TransitionExited
)

func (t Transition) String() string {
	switch t {
	case TransitionEntered:
		return "entered"
	case TransitionExited:
		return "exited"
	default:
		return "none"
	}
}

// Tracker remembers, per player, whether they were last seen inside a zone.
// Unknown players are considered outside.
type Tracker struct {
	detector *Detector
	inside   sync.Map // model.PlayerID -> struct{}
}

// NewTracker creates a Tracker over detector.
func NewTracker(detector *Detector) *Tracker {
	return &Tracker{detector: detector}
}

// Revalidate updates the status of id at pos and returns the crossing, if any.
// A player staying on one side yields TransitionNone.
func (t *Tracker) Revalidate(id model.PlayerID, pos model.Position) Transition {
	if t.detector.IsNearAnyBase(pos) {
		if _, loaded := t.inside.LoadOrStore(id, struct{}{}); !loaded {
			return TransitionEntered
		}
		return TransitionNone
	}

	if _, loaded := t.inside.LoadAndDelete(id); loaded {
		return TransitionExited
	}
	return TransitionNone
}

// IsInside reports the last known status of id.
func (t *Tracker) IsInside(id model.PlayerID) bool {
	_, ok := t.inside.Load(id)
	return ok
}

// Forget drops id without emitting a transition.
func (t *Tracker) Forget(id model.PlayerID) {
	t.inside.Delete(id)
}
