package model

// EntityKind classifies the entities taking part in a damage event.
type EntityKind uint8

const (
	EntityOther EntityKind = iota
	EntityPlayer
	EntityStructure
	EntityNPC
)

// String returns the wire name of the kind.
func (k EntityKind) String() string {
	switch k {
	case EntityPlayer:
		return "player"
	case EntityStructure:
		return "structure"
	case EntityNPC:
		return "npc"
	default:
		return "other"
	}
}

// ParseEntityKind maps a wire name to an EntityKind. Unknown names map to EntityOther.
func ParseEntityKind(s string) EntityKind {
	switch s {
	case "player":
		return EntityPlayer
	case "structure":
		return EntityStructure
	case "npc":
		return EntityNPC
	default:
		return EntityOther
	}
}

// EntityRef references an entity as seen by the game engine.
// PlayerID is set for players, OwnerID for owned structures.
type EntityRef struct {
	Kind     EntityKind
	PlayerID PlayerID
	OwnerID  PlayerID
	Position Position
}

// IsPlayer reports whether the entity is a player.
func (e *EntityRef) IsPlayer() bool {
	return e != nil && e.Kind == EntityPlayer
}

// DamageEvent is one hit about to be applied by the engine.
// It is transient: the engine owns it, authorization may veto it in place.
type DamageEvent struct {
	Attacker     *EntityRef // nil for environmental damage
	Target       EntityRef
	DamageTypes  map[string]float64
	HitMaterial  uint32
	DoHitEffects bool
	HitPosition  Position
}

// AttackerPlayer returns the attacking player's identity, if the attacker is a player.
func (ev *DamageEvent) AttackerPlayer() (PlayerID, bool) {
	if !ev.Attacker.IsPlayer() {
		return 0, false
	}
	return ev.Attacker.PlayerID, true
}

// TotalDamage sums all damage types.
func (ev *DamageEvent) TotalDamage() float64 {
	var total float64
	for _, v := range ev.DamageTypes {
		total += v
	}
	return total
}

// BaseAnchor is a claimed base (building privilege) with a world position.
type BaseAnchor struct {
	ID       uint64
	Position Position
}
