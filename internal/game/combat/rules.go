// Package combat decides whether a damage event may be applied.
//
// Rules are evaluated in order by an Authorizer; the first rule that denies
// wins and the event is vetoed in place.
package combat

import (
	"fmt"

	"github.com/udisondev/pvpguard/internal/model"
	"github.com/udisondev/pvpguard/internal/notify"
)

// Outcome is a single rule's opinion about an event.
type Outcome uint8

const (
	// OutcomeAbstain means the rule does not apply to the event.
	OutcomeAbstain Outcome = iota
	// OutcomeAllow means the rule applies and lets the event through.
	OutcomeAllow
	// OutcomeDeny means the event must be vetoed.
	OutcomeDeny
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAllow:
		return "allow"
	case OutcomeDeny:
		return "deny"
	default:
		return "abstain"
	}
}

// Verdict is returned by Rule.Evaluate. Notice is the text shown to the
// attacking player on deny.
type Verdict struct {
	Outcome Outcome
	Reason  string
	Notice  string
}

var (
	abstain = Verdict{Outcome: OutcomeAbstain}
	allow   = Verdict{Outcome: OutcomeAllow}
)

// Rule is one authorization policy. Evaluate must not mutate the event.
type Rule interface {
	Name() string
	Evaluate(ev *model.DamageEvent) Verdict
}

// ModeSource resolves a player's current combat mode.
type ModeSource interface {
	ModeOf(id model.PlayerID) model.Mode
}

// ProximitySource tells whether a position lies inside a base zone.
type ProximitySource interface {
	IsNearAnyBase(pos model.Position) bool
}

// Rule names accepted by BuildRules.
const (
	RuleStructure = "structure"
	RuleMode      = "mode"
	RuleZone      = "zone"
)

// DefaultRuleNames is the default pipeline order.
var DefaultRuleNames = []string{RuleStructure, RuleMode, RuleZone}

// StructureRule protects structures of PvE owners from everyone but the owner.
type StructureRule struct {
	Modes ModeSource
}

func (StructureRule) Name() string { return RuleStructure }

// Evaluate denies when the target is a structure whose owner is in PvE and
// the attacker is not the owner. Environmental damage is denied as well.
func (r StructureRule) Evaluate(ev *model.DamageEvent) Verdict {
	if ev.Target.Kind != model.EntityStructure || ev.Target.OwnerID == 0 {
		return abstain
	}
	if ev.Attacker.IsPlayer() && ev.Attacker.PlayerID == 0 {
		return abstain
	}

	owner := ev.Target.OwnerID
	if r.Modes.ModeOf(owner) != model.ModePvE {
		return allow
	}
	if attacker, ok := ev.AttackerPlayer(); ok && attacker == owner {
		return allow
	}

	return Verdict{
		Outcome: OutcomeDeny,
		Reason:  fmt.Sprintf("structure owner %d is in PvE", owner),
		Notice:  notify.TextStructureDenied,
	}
}

// ModeRule allows player-versus-player damage only between two PvP players.
type ModeRule struct {
	Modes ModeSource
}

func (ModeRule) Name() string { return RuleMode }

func (r ModeRule) Evaluate(ev *model.DamageEvent) Verdict {
	attacker, target, ok := playerPair(ev)
	if !ok {
		return abstain
	}

	am := r.Modes.ModeOf(attacker)
	tm := r.Modes.ModeOf(target)
	if am == model.ModePvP && tm == model.ModePvP {
		return allow
	}

	return Verdict{
		Outcome: OutcomeDeny,
		Reason:  fmt.Sprintf("attacker %s, target %s", am, tm),
		Notice:  notify.TextPlayerDenied,
	}
}

// ZoneRule allows player-versus-player damage only when both players stand
// inside a base zone. The two zones may belong to different anchors.
type ZoneRule struct {
	Zones ProximitySource
}

func (ZoneRule) Name() string { return RuleZone }

func (r ZoneRule) Evaluate(ev *model.DamageEvent) Verdict {
	if _, _, ok := playerPair(ev); !ok {
		return abstain
	}

	attackerNear := r.Zones.IsNearAnyBase(ev.Attacker.Position)
	targetNear := r.Zones.IsNearAnyBase(ev.Target.Position)
	if attackerNear && targetNear {
		return allow
	}

	return Verdict{
		Outcome: OutcomeDeny,
		Reason:  fmt.Sprintf("attacker in zone %t, target in zone %t", attackerNear, targetNear),
		Notice:  notify.TextZoneDenied,
	}
}

// playerPair returns both identities when attacker and target are resolved players.
func playerPair(ev *model.DamageEvent) (attacker, target model.PlayerID, ok bool) {
	if !ev.Attacker.IsPlayer() || !ev.Target.IsPlayer() {
		return 0, 0, false
	}
	if ev.Attacker.PlayerID == 0 || ev.Target.PlayerID == 0 {
		return 0, 0, false
	}
	return ev.Attacker.PlayerID, ev.Target.PlayerID, true
}

// BuildRules instantiates rules by name, in order.
func BuildRules(names []string, modes ModeSource, zones ProximitySource) ([]Rule, error) {
	if len(names) == 0 {
		names = DefaultRuleNames
	}

	seen := make(map[string]bool, len(names))
	rules := make([]Rule, 0, len(names))
	for _, name := range names {
		if seen[name] {
			return nil, fmt.Errorf("duplicate rule %q", name)
		}
		seen[name] = true

		switch name {
		case RuleStructure:
			rules = append(rules, StructureRule{Modes: modes})
		case RuleMode:
			rules = append(rules, ModeRule{Modes: modes})
		case RuleZone:
			rules = append(rules, ZoneRule{Zones: zones})
		default:
			return nil, fmt.Errorf("unknown rule %q", name)
		}
	}
	return rules, nil
}
