// Package aura answers questions about aura source effects: whether they are
// suppressed, how far they reach, how they rank against stack-mates and what
// they leave visible on their owner.
package aura

import (
	"context"
	"math"

	"github.com/KirkDiggler/auras/internal/actor"
	"github.com/KirkDiggler/auras/internal/effects"
	"github.com/KirkDiggler/auras/internal/formula"
	"github.com/KirkDiggler/auras/internal/host"
	"github.com/KirkDiggler/auras/internal/uuid"
)

// Config holds the model's dependencies
type Config struct {
	Documents host.Reader
	Formulas  *formula.Evaluator
}

// Model evaluates source effects against live document state
type Model struct {
	docs     host.Reader
	formulas *formula.Evaluator
}

// NewModel creates a Model
func NewModel(cfg *Config) *Model {
	if cfg.Documents == nil {
		panic("documents reader is required")
	}
	if cfg.Formulas == nil {
		panic("formula evaluator is required")
	}
	return &Model{docs: cfg.Documents, formulas: cfg.Formulas}
}

// Owner resolves the actor owning an effect, directly or through an item
func (m *Model) Owner(ctx context.Context, effectUUID string) (*actor.Actor, bool) {
	return m.docs.Actor(ctx, uuid.OwningActor(effectUUID))
}

// IsSuppressed reports whether a source is switched off by combat or
// visibility state. Suppression is never stored.
func (m *Model) IsSuppressed(ctx context.Context, effect *effects.Effect) bool {
	if !effect.IsAuraSource() {
		return false
	}
	if effect.System.CombatOnly && !m.docs.CombatActive(ctx) {
		return true
	}
	if effect.System.DisableOnHidden {
		if t, ok := m.docs.ActiveToken(ctx, uuid.OwningActor(effect.UUID)); ok && t.Hidden {
			return true
		}
	}
	return false
}

// IsActive reports whether a source currently propagates
func (m *Model) IsActive(ctx context.Context, effect *effects.Effect) bool {
	return effect.IsAuraSource() && !effect.Disabled && !m.IsSuppressed(ctx, effect)
}

// ResolvedDistance evaluates the radius formula against the owner's roll
// data. Failures and negative results resolve to 0, which disables the source.
func (m *Model) ResolvedDistance(effect *effects.Effect, owner *actor.Actor) float64 {
	if !effect.IsAuraSource() {
		return 0
	}
	return math.Max(0, m.formulas.EvaluateOrZero(effect.System.DistanceFormula, rollData(owner)))
}

// Score evaluates the best-of-stack formula against the owner's roll data
func (m *Model) Score(effect *effects.Effect, owner *actor.Actor) float64 {
	f := "0"
	if effect.System != nil && effect.System.BestFormula != "" {
		f = effect.System.BestFormula
	}
	return m.formulas.EvaluateOrZero(f, rollData(owner))
}

// Sources splits an actor's aura sources, including those on owned items,
// into active and inactive-or-suppressed
func (m *Model) Sources(ctx context.Context, a *actor.Actor) (active, inactive effects.List) {
	active, inactive = effects.List{}, effects.List{}
	for _, e := range a.AllEffects().Sources() {
		if m.IsActive(ctx, e) {
			active = append(active, e)
		} else {
			inactive = append(inactive, e)
		}
	}
	return active, inactive
}

// SelfPayload returns the source as it applies to its own owner. The payload
// is stripped unless applyToSelf is set and, for non-stacking sources, no
// derived stack-mate is already applied to the owner.
func SelfPayload(effect *effects.Effect, owner *actor.Actor) *effects.Effect {
	out := effect.Clone()
	if !effect.IsAuraSource() {
		return out
	}
	strip := !effect.System.ApplyToSelf
	if !strip && !effect.System.CanStack {
		key := effect.StackKey()
		for _, e := range owner.AppliedEffects() {
			if e.IsDerived() && e.StackKey() == key {
				strip = true
				break
			}
		}
	}
	if strip {
		out.Changes = []effects.Change{}
		out.Statuses = []string{}
	}
	return out
}

// AppliedPayloads returns the enabled effects active on a, each aura source
// reduced to its SelfPayload
func AppliedPayloads(a *actor.Actor) effects.List {
	out := effects.List{}
	if a == nil {
		return out
	}
	for _, e := range a.AppliedEffects() {
		if e.IsAuraSource() {
			e = SelfPayload(e, a)
		}
		out = append(out, e)
	}
	return out
}

func rollData(a *actor.Actor) map[string]any {
	if a == nil {
		return nil
	}
	return a.RollData
}
