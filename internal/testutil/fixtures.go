package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/udisondev/pvpguard/internal/model"
)

// Epoch is the reference start time used across tests.
var Epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// PlayerRef returns a player entity reference at pos.
func PlayerRef(id model.PlayerID, pos model.Position) model.EntityRef {
	return model.EntityRef{Kind: model.EntityPlayer, PlayerID: id, Position: pos}
}

// StructureRef returns an owned structure reference at pos.
func StructureRef(owner model.PlayerID, pos model.Position) model.EntityRef {
	return model.EntityRef{Kind: model.EntityStructure, OwnerID: owner, Position: pos}
}

// PlayerHit builds a damage event from one player to another.
func PlayerHit(attacker, target model.EntityRef) *model.DamageEvent {
	a := attacker
	return &model.DamageEvent{
		Attacker:     &a,
		Target:       target,
		DamageTypes:  map[string]float64{"bullet": 35, "bleeding": 2},
		HitMaterial:  1395914656,
		DoHitEffects: true,
		HitPosition:  target.Position,
	}
}

// StructureHit builds a damage event against a structure. attacker may be nil.
func StructureHit(attacker *model.EntityRef, target model.EntityRef) *model.DamageEvent {
	return &model.DamageEvent{
		Attacker:     attacker,
		Target:       target,
		DamageTypes:  map[string]float64{"explosion": 275},
		HitMaterial:  7,
		DoHitEffects: true,
		HitPosition:  target.Position,
	}
}

// ContextWithTimeout returns a context bounded by d and cancelled on test cleanup.
func ContextWithTimeout(tb testing.TB, d time.Duration) context.Context {
	tb.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	tb.Cleanup(cancel)
	return ctx
}
