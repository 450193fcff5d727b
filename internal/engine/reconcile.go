package engine

import (
	"context"
	"log"
	"sort"

	"github.com/KirkDiggler/auras/internal/actor"
	"github.com/KirkDiggler/auras/internal/coordinator"
	"github.com/KirkDiggler/auras/internal/effects"
	"github.com/KirkDiggler/auras/internal/errors"
	"github.com/KirkDiggler/auras/internal/geometry"
	"github.com/KirkDiggler/auras/internal/scene"
	"github.com/KirkDiggler/auras/internal/uuid"
)

// eligible reports whether a token can receive or radiate auras relative to
// the actor under reconciliation
func eligible(t *scene.Token, actorUUID string) bool {
	return t.ActorUUID != "" && t.ActorUUID != actorUUID
}

// neighborActors returns the actors whose tokens are within radius of from,
// before any predicate is applied
func neighborActors(sc geometry.Scene, from *scene.Token, src *effects.Effect, radius float64) map[string]bool {
	out := map[string]bool{}
	for _, t := range geometry.CandidateNeighbors(sc, from, radius, src.System.Disposition, src.System.CollisionTypes) {
		if eligible(t, from.ActorUUID) {
			out[t.ActorUUID] = true
		}
	}
	return out
}

// reconcileToken runs the movement pass for one token. before is the token
// as it was prior to the update; ticket is nil when the token did not move.
func (e *Engine) reconcileToken(ctx context.Context, sceneID string, before *scene.Token, ticket *Ticket) error {
	client, err := e.client(ctx)
	if err != nil {
		return err
	}
	sc, ok := e.docs.Scene(ctx, sceneID)
	if !ok {
		return errors.NotFoundf("scene %s", sceneID)
	}
	moverUUID := before.ActorUUID
	mover, ok := e.docs.Actor(ctx, moverUUID)
	if !ok {
		return errors.NotFoundf("actor %s", moverUUID)
	}

	pre := map[string]map[string]bool{}
	active, _ := e.model.Sources(ctx, mover)
	for _, src := range active {
		if radius := e.model.ResolvedDistance(src, mover); radius > 0 {
			pre[src.UUID] = neighborActors(sc, before, src, radius)
		}
	}

	if err := e.await(ctx, ticket); err != nil {
		return errors.Wrapf(err, "awaiting movement of token %s", before.ID)
	}

	token, ok := e.docs.Token(ctx, sceneID, before.ID)
	if !ok {
		return errors.NotFoundf("token %s", before.ID)
	}
	final := token.IsFinalMovementComplete()

	p := newPlan(e.docs)
	mover, ok = p.actor(ctx, moverUUID)
	if !ok {
		return errors.NotFoundf("actor %s", moverUUID)
	}
	active, inactive := e.model.Sources(ctx, mover)

	stale := map[string]bool{}
	for _, src := range inactive {
		stale[src.UUID] = true
	}
	for _, src := range active {
		radius := e.model.ResolvedDistance(src, mover)
		if radius <= 0 {
			stale[src.UUID] = true
			continue
		}
		post := map[string]bool{}
		for _, t := range geometry.CandidateNeighbors(sc, token, radius, src.System.Disposition, src.System.CollisionTypes) {
			if !eligible(t, moverUUID) {
				continue
			}
			target, ok := p.actor(ctx, t.ActorUUID)
			if !ok || !e.scripts.Evaluate(token, t, target, src) {
				continue
			}
			post[t.ActorUUID] = true
			p.inRange(ctx, t.ActorUUID, src.UUID, final)
		}
		for actorUUID := range pre[src.UUID] {
			if !post[actorUUID] {
				p.deleteDerived(ctx, actorUUID, src.UUID)
			}
		}
	}

	tokens := e.docs.Tokens(ctx, sceneID)
	if len(stale) > 0 {
		for _, t := range tokens {
			if !eligible(t, moverUUID) {
				continue
			}
			target, ok := p.actor(ctx, t.ActorUUID)
			if !ok {
				continue
			}
			for _, d := range target.Effects.OriginIn(stale) {
				p.removeAura(ctx, t.ActorUUID, d.Origin)
			}
		}
	}

	for _, other := range tokens {
		if !eligible(other, moverUUID) {
			continue
		}
		owner, ok := p.actor(ctx, other.ActorUUID)
		if !ok {
			continue
		}
		ownerActive, ownerInactive := e.model.Sources(ctx, owner)
		for _, src := range ownerInactive {
			p.removeAura(ctx, moverUUID, src.UUID)
		}
		for _, src := range ownerActive {
			if e.reaches(sc, other, owner, token, mover, src) {
				p.inRange(ctx, moverUUID, src.UUID, final)
			} else {
				p.removeAura(ctx, moverUUID, src.UUID)
			}
		}
	}

	for _, d := range mover.Effects.Derived() {
		src, ok := e.docs.Effect(ctx, d.Origin)
		if !ok || !e.model.IsActive(ctx, src) {
			p.removeAura(ctx, moverUUID, d.Origin)
		}
	}

	e.backfill(ctx, p, sc, sceneID, moverUUID, final)
	return e.commit(ctx, client, p, "token "+token.ID)
}

// backfill offers the remaining stack-mates of every vacated non-stacking
// derived effect to its target; the coordinator keeps the best of them. Until
// its movement is final the mover neither gains nor radiates additions.
func (e *Engine) backfill(ctx context.Context, p *plan, sc geometry.Scene, sceneID, moverUUID string, final bool) {
	vacated := p.vacated(ctx)
	if len(vacated) == 0 {
		return
	}
	tokens := e.docs.Tokens(ctx, sceneID)
	targets := map[string]*scene.Token{}
	for _, t := range tokens {
		if _, seen := targets[t.ActorUUID]; !seen && t.ActorUUID != "" {
			targets[t.ActorUUID] = t
		}
	}

	for _, targetUUID := range sortedKeys(vacated) {
		if targetUUID == moverUUID && !final {
			continue
		}
		target, ok := targets[targetUUID]
		if !ok {
			continue
		}
		targetActor, ok := p.actor(ctx, targetUUID)
		if !ok {
			continue
		}
		for _, t := range tokens {
			if !eligible(t, targetUUID) || (t.ActorUUID == moverUUID && !final) {
				continue
			}
			owner, ok := p.actor(ctx, t.ActorUUID)
			if !ok {
				continue
			}
			active, _ := e.model.Sources(ctx, owner)
			for _, src := range active {
				if src.System.CanStack || !vacated[targetUUID][src.StackKey()] || p.dropped(targetUUID, src.UUID) {
					continue
				}
				if e.reaches(sc, t, owner, target, targetActor, src) {
					p.inRange(ctx, targetUUID, src.UUID, true)
				}
			}
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// reaches reports whether src, radiating from sourceToken, applies to target
func (e *Engine) reaches(sc geometry.Scene, sourceToken *scene.Token, owner *actor.Actor, target *scene.Token, targetActor *actor.Actor, src *effects.Effect) bool {
	radius := e.model.ResolvedDistance(src, owner)
	if radius <= 0 {
		return false
	}
	if !src.System.Disposition.Matches(scene.Relative(sourceToken.Disposition, target.Disposition)) {
		return false
	}
	if geometry.TokenDistance(sc, sourceToken, target, src.System.CollisionTypes) > radius {
		return false
	}
	return e.scripts.Evaluate(sourceToken, target, targetActor, src)
}

// reconcileSource re-evaluates a single source after its disabled flag changed
func (e *Engine) reconcileSource(ctx context.Context, effectUUID string) error {
	client, err := e.client(ctx)
	if err != nil {
		return err
	}
	src, ok := e.docs.Effect(ctx, effectUUID)
	if !ok {
		return errors.NotFoundf("effect %s", effectUUID)
	}
	owner, ok := e.model.Owner(ctx, effectUUID)
	if !ok {
		return errors.NotFoundf("owner of effect %s", effectUUID)
	}
	sourceToken, ok := e.docs.ActiveToken(ctx, owner.UUID)
	if !ok {
		log.Printf("Engine: %s has no token on a scene, nothing to reconcile", owner.UUID)
		return nil
	}
	sc, ok := e.docs.Scene(ctx, sourceToken.SceneID)
	if !ok {
		return errors.NotFoundf("scene %s", sourceToken.SceneID)
	}

	p := newPlan(e.docs)
	e.evaluateSource(ctx, p, sc, sourceToken, owner, src)
	e.backfill(ctx, p, sc, sourceToken.SceneID, "", true)
	return e.commit(ctx, client, p, "effect "+effectUUID)
}

// withdrawDeleted removes every derived copy of a deleted source from the
// scene's actors
func (e *Engine) withdrawDeleted(ctx context.Context, sceneID string, src *effects.Effect) error {
	client, err := e.client(ctx)
	if err != nil {
		return err
	}
	p := newPlan(e.docs)
	e.withdraw(ctx, p, sceneID, uuid.OwningActor(src.UUID), src.UUID)
	if sc, ok := e.docs.Scene(ctx, sceneID); ok {
		e.backfill(ctx, p, sc, sceneID, "", true)
	}
	return e.commit(ctx, client, p, "deleted effect "+src.UUID)
}

// reconcileCombat re-evaluates every combat-only source radiating on the scene
func (e *Engine) reconcileCombat(ctx context.Context, sceneID string) error {
	client, err := e.client(ctx)
	if err != nil {
		return err
	}
	sc, ok := e.docs.Scene(ctx, sceneID)
	if !ok {
		return errors.NotFoundf("scene %s", sceneID)
	}

	p := newPlan(e.docs)
	for _, t := range e.docs.Tokens(ctx, sceneID) {
		if t.ActorUUID == "" {
			continue
		}
		owner, ok := p.actor(ctx, t.ActorUUID)
		if !ok {
			continue
		}
		for _, src := range owner.AllEffects().Sources() {
			if src.System.CombatOnly && !src.Disabled {
				e.evaluateSource(ctx, p, sc, t, owner, src)
			}
		}
	}
	e.backfill(ctx, p, sc, sceneID, "", true)
	return e.commit(ctx, client, p, "combat on "+sceneID)
}

// evaluateSource recomputes, from scratch, which actors on the source token's
// scene should hold src
func (e *Engine) evaluateSource(ctx context.Context, p *plan, sc geometry.Scene, sourceToken *scene.Token, owner *actor.Actor, src *effects.Effect) {
	radius := e.model.ResolvedDistance(src, owner)
	if !e.model.IsActive(ctx, src) || radius <= 0 {
		e.withdraw(ctx, p, sourceToken.SceneID, owner.UUID, src.UUID)
		return
	}

	reached := map[string]bool{}
	for _, t := range geometry.CandidateNeighbors(sc, sourceToken, radius, src.System.Disposition, src.System.CollisionTypes) {
		if !eligible(t, owner.UUID) {
			continue
		}
		target, ok := p.actor(ctx, t.ActorUUID)
		if !ok || !e.scripts.Evaluate(sourceToken, t, target, src) {
			continue
		}
		reached[t.ActorUUID] = true
		p.inRange(ctx, t.ActorUUID, src.UUID, true)
	}
	for _, t := range e.docs.Tokens(ctx, sourceToken.SceneID) {
		if eligible(t, owner.UUID) && !reached[t.ActorUUID] {
			p.removeAura(ctx, t.ActorUUID, src.UUID)
		}
	}
}

func (e *Engine) withdraw(ctx context.Context, p *plan, sceneID, ownerUUID, sourceUUID string) {
	for _, t := range e.docs.Tokens(ctx, sceneID) {
		if eligible(t, ownerUUID) {
			p.removeAura(ctx, t.ActorUUID, sourceUUID)
		}
	}
}

func (e *Engine) commit(ctx context.Context, client *coordinator.Client, p *plan, what string) error {
	if p.empty() {
		return nil
	}
	if err := p.commit(ctx, client); err != nil {
		return errors.Wrapf(err, "commit for %s", what)
	}
	log.Printf("Engine: reconciled %s (%d deletions, %d removals, %d additions)", what, len(p.derived), len(p.removals), p.adds.Len())
	return nil
}
