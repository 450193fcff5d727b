package effects

import (
	"github.com/KirkDiggler/auras/internal/scene"
	"github.com/KirkDiggler/auras/internal/uuid"
)

// Builder helps create effect documents
type Builder struct {
	effect *Effect
}

// NewBuilder creates a builder for a plain effect embedded in parentUUID
func NewBuilder(parentUUID, id, name string) *Builder {
	return &Builder{
		effect: &Effect{
			ID:       id,
			UUID:     uuid.Effect(parentUUID, id),
			Name:     name,
			Type:     TypeBase,
			Changes:  []Change{},
			Statuses: []string{},
		},
	}
}

// NewAuraBuilder creates a builder for an aura source with schema defaults
func NewAuraBuilder(parentUUID, id, name string) *Builder {
	b := NewBuilder(parentUUID, id, name)
	b.effect.Type = TypeAura
	b.effect.System = DefaultAuraData()
	return b
}

// WithDistance sets the radius formula
func (b *Builder) WithDistance(formula string) *Builder {
	b.aura().DistanceFormula = formula
	return b
}

// WithDisposition sets the disposition filter
func (b *Builder) WithDisposition(d Disposition) *Builder {
	b.aura().Disposition = d
	return b
}

// WithCollisionTypes replaces the blocking categories
func (b *Builder) WithCollisionTypes(types ...scene.CollisionType) *Builder {
	b.aura().CollisionTypes = append([]scene.CollisionType{}, types...)
	return b
}

// NonStacking marks the aura as competing on its stack key, scored by formula
func (b *Builder) NonStacking(bestFormula string) *Builder {
	b.aura().CanStack = false
	b.aura().BestFormula = bestFormula
	return b
}

// Stacking allows the aura to coexist with same-named auras
func (b *Builder) Stacking() *Builder {
	b.aura().CanStack = true
	return b
}

// WithOverrideName sets the stack key
func (b *Builder) WithOverrideName(name string) *Builder {
	b.aura().OverrideName = name
	return b
}

// WithScript sets the per-candidate predicate
func (b *Builder) WithScript(script string) *Builder {
	b.aura().Script = script
	return b
}

// CombatOnly suppresses the aura outside of combat
func (b *Builder) CombatOnly() *Builder {
	b.aura().CombatOnly = true
	return b
}

// WithDisableOnHidden sets whether hiding the owner suppresses the aura
func (b *Builder) WithDisableOnHidden(v bool) *Builder {
	b.aura().DisableOnHidden = v
	return b
}

// WithApplyToSelf sets whether the payload applies to the owner
func (b *Builder) WithApplyToSelf(v bool) *Builder {
	b.aura().ApplyToSelf = v
	return b
}

// EvaluatePreApply freezes every change value at apply time
func (b *Builder) EvaluatePreApply() *Builder {
	b.aura().EvaluatePreApply = true
	return b
}

// Disabled marks the effect disabled
func (b *Builder) Disabled() *Builder {
	b.effect.Disabled = true
	return b
}

// WithOrigin sets the origin reference
func (b *Builder) WithOrigin(origin string) *Builder {
	b.effect.Origin = origin
	return b
}

// AddChange appends a change
func (b *Builder) AddChange(key string, mode ChangeMode, value string) *Builder {
	b.effect.Changes = append(b.effect.Changes, Change{Key: key, Mode: mode, Value: value})
	return b
}

// AddStatus appends a status id
func (b *Builder) AddStatus(status string) *Builder {
	b.effect.Statuses = append(b.effect.Statuses, status)
	return b
}

// Build returns the built effect
func (b *Builder) Build() *Effect {
	return b.effect
}

func (b *Builder) aura() *AuraData {
	if b.effect.System == nil {
		b.effect.Type = TypeAura
		b.effect.System = DefaultAuraData()
	}
	return b.effect.System
}
