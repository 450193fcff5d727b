package engine

import (
	"context"
	"sort"

	"github.com/KirkDiggler/auras/internal/actor"
	"github.com/KirkDiggler/auras/internal/coordinator"
	"github.com/KirkDiggler/auras/internal/host"
)

type pairKey struct {
	actorUUID  string
	sourceUUID string
}

// plan accumulates one pass's mutations, deduplicated by actor and source.
// A pair found in range is never removed in the same pass.
type plan struct {
	docs   host.Reader
	actors map[string]*actor.Actor

	keep     map[pairKey]bool
	derived  map[pairKey]string
	removals map[pairKey]bool
	adds     coordinator.ActorSources
}

func newPlan(docs host.Reader) *plan {
	return &plan{
		docs:     docs,
		actors:   map[string]*actor.Actor{},
		keep:     map[pairKey]bool{},
		derived:  map[pairKey]string{},
		removals: map[pairKey]bool{},
		adds:     coordinator.ActorSources{},
	}
}

// actor resolves and caches an actor for the rest of the pass
func (p *plan) actor(ctx context.Context, actorUUID string) (*actor.Actor, bool) {
	if a, ok := p.actors[actorUUID]; ok {
		return a, a != nil
	}
	a, ok := p.docs.Actor(ctx, actorUUID)
	if !ok {
		a = nil
	}
	p.actors[actorUUID] = a
	return a, ok
}

func (p *plan) holds(ctx context.Context, actorUUID, sourceUUID string) (string, bool) {
	a, ok := p.actor(ctx, actorUUID)
	if !ok {
		return "", false
	}
	e := a.Effects.ByOrigin(sourceUUID)
	if e == nil {
		return "", false
	}
	return e.UUID, true
}

// inRange records that the actor should hold the source. Additions are only
// queued on the final segment of a movement.
func (p *plan) inRange(ctx context.Context, actorUUID, sourceUUID string, final bool) {
	key := pairKey{actorUUID, sourceUUID}
	p.keep[key] = true
	if !final {
		return
	}
	if _, held := p.holds(ctx, actorUUID, sourceUUID); held {
		return
	}
	p.adds.Add(actorUUID, sourceUUID)
}

// deleteDerived queues the actor's derived copy of source for deletion by
// effect UUID
func (p *plan) deleteDerived(ctx context.Context, actorUUID, sourceUUID string) {
	if effectUUID, held := p.holds(ctx, actorUUID, sourceUUID); held {
		p.derived[pairKey{actorUUID, sourceUUID}] = effectUUID
	}
}

// removeAura queues removal of the actor's copies of source by origin
func (p *plan) removeAura(ctx context.Context, actorUUID, sourceUUID string) {
	if _, held := p.holds(ctx, actorUUID, sourceUUID); held {
		p.removals[pairKey{actorUUID, sourceUUID}] = true
	}
}

// dropped reports whether the pass takes the actor's copy of source away
func (p *plan) dropped(actorUUID, sourceUUID string) bool {
	key := pairKey{actorUUID, sourceUUID}
	if p.keep[key] {
		return false
	}
	_, deleted := p.derived[key]
	return deleted || p.removals[key]
}

// vacated returns, per actor, the stack keys of non-stacking derived effects
// the pass takes away without leaving another copy of that key behind
func (p *plan) vacated(ctx context.Context) map[string]map[string]bool {
	out := map[string]map[string]bool{}
	mark := func(key pairKey) {
		if !p.dropped(key.actorUUID, key.sourceUUID) {
			return
		}
		a, ok := p.actor(ctx, key.actorUUID)
		if !ok {
			return
		}
		d := a.Effects.ByOrigin(key.sourceUUID)
		if d == nil {
			return
		}
		if src, ok := p.docs.Effect(ctx, key.sourceUUID); ok && src.System != nil && src.System.CanStack {
			return
		}
		if out[key.actorUUID] == nil {
			out[key.actorUUID] = map[string]bool{}
		}
		out[key.actorUUID][d.StackKey()] = true
	}
	for key := range p.derived {
		mark(key)
	}
	for key := range p.removals {
		mark(key)
	}

	for actorUUID, keys := range out {
		a, _ := p.actor(ctx, actorUUID)
		for _, d := range a.Effects.Derived() {
			if keys[d.StackKey()] && !p.dropped(actorUUID, d.Origin) {
				delete(keys, d.StackKey())
			}
		}
		if len(keys) == 0 {
			delete(out, actorUUID)
		}
	}
	return out
}

func (p *plan) empty() bool {
	return len(p.derived) == 0 && len(p.removals) == 0 && len(p.adds) == 0
}

// commit submits deletions before additions
func (p *plan) commit(ctx context.Context, client *coordinator.Client) error {
	var effectUUIDs []string
	for key, effectUUID := range p.derived {
		if !p.keep[key] {
			effectUUIDs = append(effectUUIDs, effectUUID)
		}
	}
	sort.Strings(effectUUIDs)
	if len(effectUUIDs) > 0 {
		if err := client.DeleteEffects(ctx, effectUUIDs); err != nil {
			return err
		}
	}

	removals := coordinator.ActorSources{}
	for key := range p.removals {
		if p.keep[key] {
			continue
		}
		if _, queued := p.derived[key]; queued {
			continue
		}
		removals.Add(key.actorUUID, key.sourceUUID)
	}
	for _, sources := range removals {
		sort.Strings(sources)
	}
	if len(removals) > 0 {
		if err := client.DeleteAuraEffects(ctx, removals); err != nil {
			return err
		}
	}

	if len(p.adds) > 0 {
		return client.ApplyAuraEffects(ctx, p.adds)
	}
	return nil
}
