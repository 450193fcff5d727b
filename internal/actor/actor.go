package actor

import (
	"github.com/KirkDiggler/auras/internal/effects"
)

// Item is an owned item carrying its own effects
type Item struct {
	ID      string       `yaml:"id" json:"_id"`
	UUID    string       `yaml:"-" json:"uuid"`
	Name    string       `yaml:"name" json:"name"`
	Effects effects.List `yaml:"effects" json:"effects"`
}

// Actor owns effects directly and through items. RollData is the derived
// data formulas resolve "@path" references against.
type Actor struct {
	ID       string         `yaml:"id" json:"_id"`
	UUID     string         `yaml:"-" json:"uuid"`
	Name     string         `yaml:"name" json:"name"`
	RollData map[string]any `yaml:"data" json:"data"`
	Effects  effects.List   `yaml:"effects" json:"effects"`
	Items    []*Item        `yaml:"items" json:"items"`
}

// AllEffects returns the actor's own effects followed by item effects
func (a *Actor) AllEffects() effects.List {
	if a == nil {
		return nil
	}
	all := append(effects.List{}, a.Effects...)
	for _, item := range a.Items {
		all = append(all, item.Effects...)
	}
	return all
}

// AppliedEffects returns the enabled effects the actor currently carries
func (a *Actor) AppliedEffects() effects.List {
	out := effects.List{}
	for _, e := range a.AllEffects() {
		if !e.Disabled {
			out = append(out, e)
		}
	}
	return out
}

// Clone deep-copies the actor, its items and effects. RollData is shared:
// callers treat it as read-only.
func (a *Actor) Clone() *Actor {
	if a == nil {
		return nil
	}
	c := *a
	c.Effects = a.Effects.Clone()
	c.Items = make([]*Item, len(a.Items))
	for i, item := range a.Items {
		ic := *item
		ic.Effects = item.Effects.Clone()
		c.Items[i] = &ic
	}
	return &c
}
