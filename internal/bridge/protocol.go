// Package bridge connects game engines to the authorization loop over
// websockets.
//
// Text frames carry JSON, binary frames carry msgpack with the same field
// names. Replies use the encoding of the request.
package bridge

import (
	"github.com/udisondev/pvpguard/internal/game/combat"
	"github.com/udisondev/pvpguard/internal/model"
	"github.com/udisondev/pvpguard/internal/notify"
)

// MsgType identifies a bridge message.
type MsgType string

// Engine to server.
const (
	MsgConnect      MsgType = "connect"
	MsgDisconnect   MsgType = "disconnect"
	MsgPosition     MsgType = "position"
	MsgAnchorAdd    MsgType = "anchor_add"
	MsgAnchorRemove MsgType = "anchor_remove"
	MsgChat         MsgType = "chat"
	MsgDamage       MsgType = "damage"
)

// Server to engine.
const (
	MsgDecision   MsgType = "decision"
	MsgChatResult MsgType = "chat_result"
	MsgNotice     MsgType = "notice"
	MsgError      MsgType = "error"
)

// Message is the envelope of every frame. Only the fields relevant to Type are set.
type Message struct {
	Type     MsgType        `json:"type"`
	Seq      uint64         `json:"seq,omitempty"`
	Player   model.PlayerID `json:"player,omitempty"`
	Pos      *Vec           `json:"pos,omitempty"`
	Anchor   *AnchorMsg     `json:"anchor,omitempty"`
	Text     string         `json:"text,omitempty"`
	Damage   *DamageMsg     `json:"damage,omitempty"`
	Decision *DecisionMsg   `json:"decision,omitempty"`
	Handled  bool           `json:"handled,omitempty"`
	Notice   *notify.Notice `json:"notice,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// Vec is a world position.
type Vec struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func vecOf(p model.Position) Vec { return Vec{X: p.X, Y: p.Y, Z: p.Z} }

func (v Vec) position() model.Position { return model.NewPosition(v.X, v.Y, v.Z) }

// AnchorMsg is a base anchor (tool cupboard) placement.
type AnchorMsg struct {
	ID  uint64 `json:"id"`
	Pos Vec    `json:"pos"`
}

// EntityMsg describes one side of a damage event.
type EntityMsg struct {
	Kind   string         `json:"kind"`
	Player model.PlayerID `json:"player,omitempty"`
	Owner  model.PlayerID `json:"owner,omitempty"`
	Pos    Vec            `json:"pos"`
}

func (e EntityMsg) ref() model.EntityRef {
	return model.EntityRef{
		Kind:     model.ParseEntityKind(e.Kind),
		PlayerID: e.Player,
		OwnerID:  e.Owner,
		Position: e.Pos.position(),
	}
}

func entityOf(r model.EntityRef) EntityMsg {
	return EntityMsg{
		Kind:   r.Kind.String(),
		Player: r.PlayerID,
		Owner:  r.OwnerID,
		Pos:    vecOf(r.Position),
	}
}

// DamageMsg is a damage event about to be applied.
type DamageMsg struct {
	Attacker     *EntityMsg         `json:"attacker,omitempty"`
	Target       EntityMsg          `json:"target"`
	DamageTypes  map[string]float64 `json:"damage_types"`
	HitMaterial  uint32             `json:"hit_material"`
	DoHitEffects bool               `json:"do_hit_effects"`
	HitPosition  Vec                `json:"hit_position"`
}

// Event converts the message into a model.DamageEvent.
func (d DamageMsg) Event() *model.DamageEvent {
	ev := &model.DamageEvent{
		Target:       d.Target.ref(),
		DamageTypes:  make(map[string]float64, len(d.DamageTypes)),
		HitMaterial:  d.HitMaterial,
		DoHitEffects: d.DoHitEffects,
		HitPosition:  d.HitPosition.position(),
	}
	for k, v := range d.DamageTypes {
		ev.DamageTypes[k] = v
	}
	if d.Attacker != nil {
		a := d.Attacker.ref()
		ev.Attacker = &a
	}
	return ev
}

// DamageMsgOf converts a model.DamageEvent into its wire form.
func DamageMsgOf(ev *model.DamageEvent) *DamageMsg {
	d := &DamageMsg{
		Target:       entityOf(ev.Target),
		DamageTypes:  ev.DamageTypes,
		HitMaterial:  ev.HitMaterial,
		DoHitEffects: ev.DoHitEffects,
		HitPosition:  vecOf(ev.HitPosition),
	}
	if d.DamageTypes == nil {
		d.DamageTypes = map[string]float64{}
	}
	if ev.Attacker != nil {
		a := entityOf(*ev.Attacker)
		d.Attacker = &a
	}
	return d
}

// DecisionMsg answers a damage message. Event is the event as it must be
// applied: unchanged when allowed, vetoed when denied.
type DecisionMsg struct {
	Allow  bool       `json:"allow"`
	Rule   string     `json:"rule,omitempty"`
	Reason string     `json:"reason,omitempty"`
	Event  *DamageMsg `json:"event"`
}

func decisionOf(d combat.Decision, ev *model.DamageEvent) *DecisionMsg {
	return &DecisionMsg{
		Allow:  d.Allowed,
		Rule:   d.Rule,
		Reason: d.Reason,
		Event:  DamageMsgOf(ev),
	}
}
