// Package memory is an in-process host: actors, items, compendium packs and
// scenes held in maps, with mutations that emit the same events a live host
// would. The simulator and the engine tests run against it.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/KirkDiggler/auras/internal/actor"
	"github.com/KirkDiggler/auras/internal/effects"
	"github.com/KirkDiggler/auras/internal/errors"
	"github.com/KirkDiggler/auras/internal/events"
	"github.com/KirkDiggler/auras/internal/geometry"
	"github.com/KirkDiggler/auras/internal/host"
	"github.com/KirkDiggler/auras/internal/scene"
	"github.com/KirkDiggler/auras/internal/uuid"
)

// Pack is a compendium of actors and items
type Pack struct {
	Name   string        `yaml:"name"`
	Locked bool          `yaml:"locked"`
	Actors []*actor.Actor `yaml:"actors"`
	Items  []*actor.Item  `yaml:"items"`
}

// Config holds the world's collaborators
type Config struct {
	Bus           *events.Bus
	UUIDGenerator uuid.Generator
	// Settle runs after every movement segment has been announced. Callers
	// driving an engine pass it the engine's Wait so segments do not overlap.
	Settle func()
}

// World is the in-memory document store
type World struct {
	mu     sync.RWMutex
	actors map[string]*actor.Actor
	items  map[string]*actor.Item
	packs  []*Pack
	scenes map[string]*Scene
	combat bool

	bus    *events.Bus
	ids    uuid.Generator
	settle func()
}

var _ host.Documents = (*World)(nil)
var _ host.MigrationStore = (*World)(nil)

// NewWorld creates an empty world
func NewWorld(cfg *Config) *World {
	if cfg == nil {
		cfg = &Config{}
	}
	bus := cfg.Bus
	if bus == nil {
		bus = events.NewBus()
	}
	ids := cfg.UUIDGenerator
	if ids == nil {
		ids = uuid.NewGoogleUUIDGenerator()
	}
	return &World{
		actors: make(map[string]*actor.Actor),
		items:  make(map[string]*actor.Item),
		scenes: make(map[string]*Scene),
		bus:    bus,
		ids:    ids,
		settle: cfg.Settle,
	}
}

// Bus returns the bus mutations are announced on
func (w *World) Bus() *events.Bus {
	return w.bus
}

// SetSettle replaces the post-segment hook
func (w *World) SetSettle(fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.settle = fn
}

// AddActor stores a copy of a and assigns document UUIDs to it, its items and
// their effects. Returns the actor UUID.
func (w *World) AddActor(a *actor.Actor) string {
	c := a.Clone()
	if c.ID == "" {
		c.ID = w.ids.New()
	}
	assignActorUUIDs(c, uuid.Actor(c.ID))

	w.mu.Lock()
	defer w.mu.Unlock()
	w.actors[c.UUID] = c
	return c.UUID
}

// AddItem stores a world item not owned by any actor
func (w *World) AddItem(item *actor.Item) string {
	c := *item
	c.Effects = item.Effects.Clone()
	if c.ID == "" {
		c.ID = w.ids.New()
	}
	c.UUID = "Item." + c.ID
	assignEffectUUIDs(c.Effects, c.UUID)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.items[c.UUID] = &c
	return c.UUID
}

// AddPack stores a compendium pack
func (w *World) AddPack(p *Pack) {
	c := &Pack{Name: p.Name, Locked: p.Locked}
	for _, a := range p.Actors {
		ac := a.Clone()
		assignActorUUIDs(ac, "Compendium."+p.Name+"."+uuid.Actor(ac.ID))
		c.Actors = append(c.Actors, ac)
	}
	for _, item := range p.Items {
		ic := *item
		ic.Effects = item.Effects.Clone()
		ic.UUID = "Compendium." + p.Name + ".Item." + ic.ID
		assignEffectUUIDs(ic.Effects, ic.UUID)
		c.Items = append(c.Items, &ic)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.packs = append(w.packs, c)
}

// AddScene registers a scene
func (w *World) AddScene(s *Scene) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.scenes[s.ID()] = s
}

// AddToken places a token on a scene without emitting events
func (w *World) AddToken(sceneID string, t *scene.Token) error {
	s, ok := w.scene(sceneID)
	if !ok {
		return errors.NotFoundf("scene %s", sceneID)
	}
	c := t.Clone()
	if c.ID == "" {
		c.ID = w.ids.New()
	}
	if c.Width == 0 {
		c.Width = 1
	}
	if c.Height == 0 {
		c.Height = 1
	}
	if c.ActorUUID != "" && !strings.Contains(c.ActorUUID, ".") {
		c.ActorUUID = uuid.Actor(c.ActorUUID)
	}
	if c.Movement.State == "" {
		c.Movement = scene.Movement{
			State:       scene.MovementIdle,
			Destination: scene.Point{X: c.X, Y: c.Y, Elevation: c.Elevation},
		}
	}
	s.put(c)
	return nil
}

func assignActorUUIDs(a *actor.Actor, actorUUID string) {
	a.UUID = actorUUID
	assignEffectUUIDs(a.Effects, a.UUID)
	for _, item := range a.Items {
		item.UUID = uuid.Item(a.UUID, item.ID)
		assignEffectUUIDs(item.Effects, item.UUID)
	}
}

func assignEffectUUIDs(list effects.List, parentUUID string) {
	for _, e := range list {
		e.UUID = uuid.Effect(parentUUID, e.ID)
		if e.Type == "" {
			e.Type = effects.TypeBase
		}
		if e.System != nil {
			e.System.Normalize()
		}
	}
}

func (w *World) scene(id string) (*Scene, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	s, ok := w.scenes[id]
	return s, ok
}

// effectsOf returns a pointer to the effect collection of an actor or item.
// Caller holds w.mu.
func (w *World) effectsOf(parentUUID string) (*effects.List, bool) {
	if a, ok := w.actors[parentUUID]; ok {
		return &a.Effects, true
	}
	if item, ok := w.items[parentUUID]; ok {
		return &item.Effects, true
	}
	if owner, ok := w.actors[uuid.OwningActor(parentUUID)]; ok {
		for _, item := range owner.Items {
			if item.UUID == parentUUID {
				return &item.Effects, true
			}
		}
	}
	for _, p := range w.packs {
		for _, a := range p.Actors {
			if a.UUID == parentUUID {
				return &a.Effects, true
			}
			for _, item := range a.Items {
				if item.UUID == parentUUID {
					return &item.Effects, true
				}
			}
		}
		for _, item := range p.Items {
			if item.UUID == parentUUID {
				return &item.Effects, true
			}
		}
	}
	return nil, false
}

// Actor returns a copy of the actor
func (w *World) Actor(_ context.Context, actorUUID string) (*actor.Actor, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	a, ok := w.actors[actorUUID]
	if !ok {
		return nil, false
	}
	return a.Clone(), true
}

// Effect returns a copy of the effect
func (w *World) Effect(_ context.Context, effectUUID string) (*effects.Effect, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	list, ok := w.effectsOf(uuid.Parent(effectUUID))
	if !ok {
		return nil, false
	}
	for _, e := range *list {
		if e.UUID == effectUUID {
			return e.Clone(), true
		}
	}
	return nil, false
}

// ActiveToken returns the first token representing the actor, scanning
// scenes and tokens in ID order
func (w *World) ActiveToken(_ context.Context, actorUUID string) (*scene.Token, bool) {
	for _, s := range w.sortedScenes() {
		for _, t := range s.Tokens() {
			if t.ActorUUID == actorUUID {
				return t, true
			}
		}
	}
	return nil, false
}

// CombatActive reports whether combat is running
func (w *World) CombatActive(context.Context) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.combat
}

// Scene returns the live scene geometry
func (w *World) Scene(_ context.Context, sceneID string) (geometry.Scene, bool) {
	s, ok := w.scene(sceneID)
	if !ok {
		return nil, false
	}
	return s, true
}

// Token returns a copy of a token
func (w *World) Token(_ context.Context, sceneID, tokenID string) (*scene.Token, bool) {
	s, ok := w.scene(sceneID)
	if !ok {
		return nil, false
	}
	return s.Token(tokenID)
}

// Tokens returns copies of every token on a scene
func (w *World) Tokens(_ context.Context, sceneID string) []*scene.Token {
	s, ok := w.scene(sceneID)
	if !ok {
		return nil
	}
	return s.Tokens()
}

// CreateEffects embeds copies of docs on the parent, assigning fresh IDs
func (w *World) CreateEffects(_ context.Context, parentUUID string, docs []*effects.Effect) ([]*effects.Effect, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	list, ok := w.effectsOf(parentUUID)
	if !ok {
		return nil, errors.NotFoundf("effect parent %s", parentUUID)
	}

	created := make([]*effects.Effect, 0, len(docs))
	for _, doc := range docs {
		e := doc.Clone()
		e.ID = w.ids.New()
		e.UUID = uuid.Effect(parentUUID, e.ID)
		*list = append(*list, e)
		created = append(created, e.Clone())
	}
	return created, nil
}

// DeleteEffects removes effects from the parent by ID. Unknown IDs are ignored.
func (w *World) DeleteEffects(_ context.Context, parentUUID string, effectIDs []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	list, ok := w.effectsOf(parentUUID)
	if !ok {
		return errors.NotFoundf("effect parent %s", parentUUID)
	}
	remove := make(map[string]bool, len(effectIDs))
	for _, id := range effectIDs {
		remove[id] = true
	}
	kept := (*list)[:0]
	for _, e := range *list {
		if !remove[e.ID] {
			kept = append(kept, e)
		}
	}
	*list = kept
	return nil
}

// EffectParents lists every actor and item that owns effects: world actors,
// their items, world items, then compendium contents
func (w *World) EffectParents(context.Context) ([]*host.EffectParent, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := []*host.EffectParent{}
	addActor := func(a *actor.Actor, locked bool) {
		out = append(out, &host.EffectParent{UUID: a.UUID, Name: a.Name, Locked: locked, Effects: a.Effects.Clone()})
		for _, item := range a.Items {
			out = append(out, &host.EffectParent{UUID: item.UUID, Name: item.Name, Locked: locked, Effects: item.Effects.Clone()})
		}
	}

	for _, key := range sortedKeys(w.actors) {
		addActor(w.actors[key], false)
	}
	for _, key := range sortedKeys(w.items) {
		item := w.items[key]
		out = append(out, &host.EffectParent{UUID: item.UUID, Name: item.Name, Effects: item.Effects.Clone()})
	}
	for _, p := range w.packs {
		for _, a := range p.Actors {
			addActor(a, p.Locked)
		}
		for _, item := range p.Items {
			out = append(out, &host.EffectParent{UUID: item.UUID, Name: item.Name, Locked: p.Locked, Effects: item.Effects.Clone()})
		}
	}
	return out, nil
}

// UpdateEffects replaces effects on the parent matched by ID
func (w *World) UpdateEffects(_ context.Context, parentUUID string, updates []*effects.Effect) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	list, ok := w.effectsOf(parentUUID)
	if !ok {
		return errors.NotFoundf("effect parent %s", parentUUID)
	}
	for _, u := range updates {
		for i, e := range *list {
			if e.ID == u.ID {
				c := u.Clone()
				c.UUID = e.UUID
				(*list)[i] = c
			}
		}
	}
	return nil
}

func (w *World) sortedScenes() []*Scene {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]*Scene, 0, len(w.scenes))
	for _, key := range sortedKeys(w.scenes) {
		out = append(out, w.scenes[key])
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
