package effects

import (
	"github.com/KirkDiggler/auras/internal/scene"
)

// Type is the document subtype of an active effect
type Type string

const (
	TypeBase Type = "base"
	TypeAura Type = "auras.aura"
)

// ChangeMode mirrors the host's change application modes
type ChangeMode int

const (
	ModeCustom    ChangeMode = 0
	ModeMultiply  ChangeMode = 1
	ModeAdd       ChangeMode = 2
	ModeDowngrade ChangeMode = 3
	ModeUpgrade   ChangeMode = 4
	ModeOverride  ChangeMode = 5
)

// Change is a single stat modification carried by an effect
type Change struct {
	Key   string     `yaml:"key" json:"key"`
	Mode  ChangeMode `yaml:"mode" json:"mode"`
	Value string     `yaml:"value" json:"value"`
}

// Disposition is the relative-stance filter of an aura
type Disposition int

const (
	DispositionHostile  Disposition = -1
	DispositionAny      Disposition = 0
	DispositionFriendly Disposition = 1
)

// Matches reports whether a relative stance (see scene.Relative) passes the filter
func (d Disposition) Matches(relative int) bool {
	return d == DispositionAny || int(d) == relative
}

// AuraData is the schema of an aura source effect
type AuraData struct {
	ApplyToSelf      bool                  `yaml:"applyToSelf" json:"applyToSelf"`
	BestFormula      string                `yaml:"bestFormula" json:"bestFormula"`
	CanStack         bool                  `yaml:"canStack" json:"canStack"`
	CollisionTypes   []scene.CollisionType `yaml:"collisionTypes" json:"collisionTypes"`
	Color            string                `yaml:"color" json:"color"`
	CombatOnly       bool                  `yaml:"combatOnly" json:"combatOnly"`
	DisableOnHidden  bool                  `yaml:"disableOnHidden" json:"disableOnHidden"`
	DistanceFormula  string                `yaml:"distance" json:"distanceFormula"`
	Disposition      Disposition           `yaml:"disposition" json:"disposition"`
	EvaluatePreApply bool                  `yaml:"evaluatePreApply" json:"evaluatePreApply"`
	Opacity          float64               `yaml:"opacity" json:"opacity"`
	OverrideName     string                `yaml:"overrideName" json:"overrideName"`
	Script           string                `yaml:"script" json:"script"`
	ShowRadius       bool                  `yaml:"showRadius" json:"showRadius"`
}

// Flags holds module-owned flags on an effect document
type Flags struct {
	// FromAura marks an effect as derived from an aura source
	FromAura bool `yaml:"fromAura,omitempty" json:"fromAura,omitempty"`
	// OriginalType is restored on derived copies of an aura source
	OriginalType Type `yaml:"originalType,omitempty" json:"originalType,omitempty"`
	// StackKey is the source's stack key, recorded on derived copies
	StackKey string `yaml:"stackKey,omitempty" json:"stackKey,omitempty"`
	// Legacy holds an unmigrated predecessor flag bag
	Legacy map[string]any `yaml:"ActiveAuras,omitempty" json:"ActiveAuras,omitempty"`
}

// Effect is an active effect document
type Effect struct {
	ID       string    `yaml:"id" json:"_id"`
	UUID     string    `yaml:"-" json:"uuid,omitempty"`
	Name     string    `yaml:"name" json:"name"`
	Type     Type      `yaml:"type" json:"type"`
	Disabled bool      `yaml:"disabled" json:"disabled"`
	Origin   string    `yaml:"origin" json:"origin,omitempty"`
	Changes  []Change  `yaml:"changes" json:"changes"`
	Statuses []string  `yaml:"statuses" json:"statuses"`
	System   *AuraData `yaml:"system,omitempty" json:"system,omitempty"`
	Flags    Flags     `yaml:"flags" json:"flags"`
}

// IsAuraSource reports whether the effect radiates an aura
func (e *Effect) IsAuraSource() bool {
	return e != nil && e.Type == TypeAura && e.System != nil
}

// IsDerived reports whether the effect was instantiated from an aura source
func (e *Effect) IsDerived() bool {
	return e != nil && e.Flags.FromAura
}

// StackKey is the identity used to decide whether two auras compete. Derived
// copies report the key recorded from their source.
func (e *Effect) StackKey() string {
	if e.Flags.StackKey != "" {
		return e.Flags.StackKey
	}
	if e.System != nil && e.System.OverrideName != "" {
		return e.System.OverrideName
	}
	return e.Name
}

// Clone deep-copies the effect
func (e *Effect) Clone() *Effect {
	if e == nil {
		return nil
	}
	c := *e
	c.Changes = append([]Change(nil), e.Changes...)
	c.Statuses = append([]string(nil), e.Statuses...)
	if e.System != nil {
		sys := *e.System
		sys.CollisionTypes = append([]scene.CollisionType(nil), e.System.CollisionTypes...)
		c.System = &sys
	}
	if e.Flags.Legacy != nil {
		c.Flags.Legacy = make(map[string]any, len(e.Flags.Legacy))
		for k, v := range e.Flags.Legacy {
			c.Flags.Legacy[k] = v
		}
	}
	return &c
}
