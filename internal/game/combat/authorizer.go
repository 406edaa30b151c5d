package combat

import (
	"log/slog"

	"github.com/udisondev/pvpguard/internal/model"
)

// Decision is the outcome of authorizing one event.
type Decision struct {
	Allowed bool
	// Rule, Reason and Notice come from the denying rule.
	Rule   string
	Reason string
	Notice string
	// Attacker is the attacking player, captured before veto. Zero when the
	// attacker was not a resolved player.
	Attacker model.PlayerID
}

// Authorizer runs rules in order; any deny wins and stops evaluation.
type Authorizer struct {
	rules []Rule
}

// NewAuthorizer creates an Authorizer over rules.
func NewAuthorizer(rules ...Rule) *Authorizer {
	return &Authorizer{rules: rules}
}

// Rules returns the rule names in evaluation order.
func (a *Authorizer) Rules() []string {
	names := make([]string, len(a.rules))
	for i, r := range a.rules {
		names[i] = r.Name()
	}
	return names
}

// Authorize evaluates ev. When a rule denies, ev is vetoed in place.
// An allowed event is left untouched.
func (a *Authorizer) Authorize(ev *model.DamageEvent) Decision {
	attacker, _ := ev.AttackerPlayer()

	for _, r := range a.rules {
		v := r.Evaluate(ev)
		if v.Outcome != OutcomeDeny {
			continue
		}

		Veto(ev)
		slog.Debug("damage denied",
			"rule", r.Name(),
			"reason", v.Reason,
			"attacker", attacker,
			"target_kind", ev.Target.Kind)

		return Decision{
			Rule:     r.Name(),
			Reason:   v.Reason,
			Notice:   v.Notice,
			Attacker: attacker,
		}
	}

	return Decision{Allowed: true, Attacker: attacker}
}

// Veto nullifies ev so the engine applies no damage and no hit effects.
func Veto(ev *model.DamageEvent) {
	clear(ev.DamageTypes)
	ev.HitMaterial = 0
	ev.DoHitEffects = false
	ev.Attacker = nil
	ev.HitPosition = model.Position{}
}
