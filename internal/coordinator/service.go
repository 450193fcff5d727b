// Package coordinator applies derived-effect mutations on the elected writer.
// Every procedure runs through one FIFO queue so reads of an actor's effect
// list are never interleaved with another request's writes.
package coordinator

import (
	"context"
	"log"
	"math"
	"sort"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/KirkDiggler/auras/internal/actor"
	"github.com/KirkDiggler/auras/internal/aura"
	"github.com/KirkDiggler/auras/internal/effects"
	"github.com/KirkDiggler/auras/internal/errors"
	"github.com/KirkDiggler/auras/internal/formula"
	"github.com/KirkDiggler/auras/internal/host"
	"github.com/KirkDiggler/auras/internal/uuid"
)

// Documents is the host surface the service reads and writes
type Documents interface {
	host.Reader
	host.Writer
}

// ServiceConfig holds the service's dependencies
type ServiceConfig struct {
	Documents Documents
	Model     *aura.Model
	Formulas  *formula.Evaluator
	// Queue is optional; a fresh queue is created when nil
	Queue *Queue
}

// Service implements the four coordinator procedures
type Service struct {
	docs     Documents
	model    *aura.Model
	formulas *formula.Evaluator
	queue    *Queue
}

// NewService creates a Service
func NewService(cfg *ServiceConfig) *Service {
	if cfg.Documents == nil {
		panic("documents are required")
	}
	if cfg.Model == nil {
		panic("aura model is required")
	}
	if cfg.Formulas == nil {
		panic("formula evaluator is required")
	}
	q := cfg.Queue
	if q == nil {
		q = NewQueue()
	}
	return &Service{docs: cfg.Documents, model: cfg.Model, formulas: cfg.Formulas, queue: q}
}

// ApplyAuraEffects instantiates derived copies of each requested source on
// each actor. Sources already represented on the actor are skipped. Among
// non-stacking sources sharing a stack key only the highest score survives;
// an exact tie keeps what the actor already has.
func (s *Service) ApplyAuraEffects(ctx context.Context, req ActorSources) error {
	return s.queue.Do(ctx, func(ctx context.Context) error {
		return s.fanOut(ctx, req, s.applyToActor)
	})
}

// DeleteAuraEffects deletes every effect on each actor whose origin is one of
// the listed sources
func (s *Service) DeleteAuraEffects(ctx context.Context, req ActorSources) error {
	return s.queue.Do(ctx, func(ctx context.Context) error {
		return s.fanOut(ctx, req, s.deleteFromActor)
	})
}

// DeleteEffects deletes effects by UUID. Duplicates are collapsed and UUIDs
// that no longer resolve are skipped.
func (s *Service) DeleteEffects(ctx context.Context, effectUUIDs []string) error {
	return s.queue.Do(ctx, func(ctx context.Context) error {
		byParent := map[string][]string{}
		seen := map[string]bool{}
		for _, effectUUID := range effectUUIDs {
			if effectUUID == "" || seen[effectUUID] {
				continue
			}
			seen[effectUUID] = true
			e, ok := s.docs.Effect(ctx, effectUUID)
			if !ok {
				log.Printf("Coordinator: skipping missing effect %s", effectUUID)
				continue
			}
			parent := uuid.Parent(effectUUID)
			byParent[parent] = append(byParent[parent], e.ID)
		}

		g, ctx := errgroup.WithContext(ctx)
		for parent, ids := range byParent {
			parent, ids := parent, ids
			g.Go(func() error {
				return s.absorbStale(s.docs.DeleteEffects(ctx, parent, ids), parent)
			})
		}
		return g.Wait()
	})
}

// ApplyEffect creates one copy of effectData on each listed actor
func (s *Service) ApplyEffect(ctx context.Context, effectData *effects.Effect, actorUUIDs []string) error {
	if effectData == nil {
		return errors.InvalidArgumentf("effect data is required")
	}
	return s.queue.Do(ctx, func(ctx context.Context) error {
		seen := map[string]bool{}
		g, ctx := errgroup.WithContext(ctx)
		for _, actorUUID := range actorUUIDs {
			if seen[actorUUID] {
				continue
			}
			seen[actorUUID] = true
			actorUUID := actorUUID
			g.Go(func() error {
				if _, ok := s.docs.Actor(ctx, actorUUID); !ok {
					log.Printf("Coordinator: skipping missing actor %s", actorUUID)
					return nil
				}
				_, err := s.docs.CreateEffects(ctx, actorUUID, []*effects.Effect{effectData.Clone()})
				return s.absorbStale(err, actorUUID)
			})
		}
		return g.Wait()
	})
}

// fanOut runs fn for each actor concurrently. Actors are independent
// documents, so only work on different actors overlaps.
func (s *Service) fanOut(ctx context.Context, req ActorSources, fn func(ctx context.Context, a *actor.Actor, sources []string) error) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, actorUUID := range sortedActors(req) {
		actorUUID := actorUUID
		sources := req[actorUUID]
		g.Go(func() error {
			a, ok := s.docs.Actor(ctx, actorUUID)
			if !ok {
				log.Printf("Coordinator: skipping missing actor %s", actorUUID)
				return nil
			}
			return fn(ctx, a, sources)
		})
	}
	return g.Wait()
}

type held struct {
	score    float64
	existing []string
	pending  *effects.Effect
}

func (s *Service) applyToActor(ctx context.Context, a *actor.Actor, sources []string) error {
	current := a.AllEffects()
	best := map[string]*held{}
	for _, e := range current.Derived() {
		key := e.StackKey()
		score := s.existingScore(ctx, e)
		h, ok := best[key]
		if !ok {
			h = &held{score: score}
			best[key] = h
		}
		h.score = math.Max(h.score, score)
		h.existing = append(h.existing, e.ID)
	}

	var create []*effects.Effect
	var deposed []string
	seen := map[string]bool{}
	for _, sourceUUID := range sources {
		if seen[sourceUUID] || current.ByOrigin(sourceUUID) != nil {
			continue
		}
		seen[sourceUUID] = true

		source, ok := s.docs.Effect(ctx, sourceUUID)
		if !ok {
			log.Printf("Coordinator: skipping missing source %s", sourceUUID)
			continue
		}
		owner, _ := s.model.Owner(ctx, sourceUUID)
		derived := s.derive(source, owner)

		if source.System == nil || source.System.CanStack {
			create = append(create, derived)
			continue
		}

		key := source.StackKey()
		score := s.model.Score(source, owner)
		h, ok := best[key]
		if !ok {
			best[key] = &held{score: score, pending: derived}
			continue
		}
		if score <= h.score {
			continue
		}
		deposed = append(deposed, h.existing...)
		best[key] = &held{score: score, pending: derived}
	}

	for _, key := range sortedKeys(best) {
		if p := best[key].pending; p != nil {
			create = append(create, p)
		}
	}

	if len(deposed) > 0 {
		if err := s.docs.DeleteEffects(ctx, a.UUID, deposed); err != nil {
			return s.absorbStale(err, a.UUID)
		}
	}
	if len(create) == 0 {
		return nil
	}
	_, err := s.docs.CreateEffects(ctx, a.UUID, create)
	return s.absorbStale(err, a.UUID)
}

func (s *Service) deleteFromActor(ctx context.Context, a *actor.Actor, sources []string) error {
	origins := make(map[string]bool, len(sources))
	for _, src := range sources {
		origins[src] = true
	}
	var ids []string
	for _, e := range a.Effects.OriginIn(origins) {
		ids = append(ids, e.ID)
	}
	if len(ids) == 0 {
		return nil
	}
	return s.absorbStale(s.docs.DeleteEffects(ctx, a.UUID, ids), a.UUID)
}

// existingScore ranks an applied derived effect by its source. A derived
// effect whose source is gone ranks below everything.
func (s *Service) existingScore(ctx context.Context, derived *effects.Effect) float64 {
	source, ok := s.docs.Effect(ctx, derived.Origin)
	if !ok {
		return math.Inf(-1)
	}
	owner, _ := s.model.Owner(ctx, derived.Origin)
	return s.model.Score(source, owner)
}

// derive builds the derived copy of a source. Change values that reference
// roll data, or every value when the source evaluates before applying, are
// resolved against the owner now and stored as plain numbers.
func (s *Service) derive(source *effects.Effect, owner *actor.Actor) *effects.Effect {
	d := source.Clone()
	d.ID = ""
	d.UUID = ""
	d.Origin = source.UUID
	d.Disabled = false
	d.Type = effects.TypeBase
	if source.Flags.OriginalType != "" {
		d.Type = source.Flags.OriginalType
	}
	d.System = nil
	d.Flags = effects.Flags{FromAura: true, StackKey: source.StackKey()}

	preApply := source.System != nil && source.System.EvaluatePreApply
	var data map[string]any
	if owner != nil {
		data = owner.RollData
	}
	for i, c := range d.Changes {
		if !preApply && !formula.HasReferences(c.Value) {
			continue
		}
		d.Changes[i].Value = s.freeze(c.Value, data)
	}
	return d
}

func (s *Service) freeze(value string, data map[string]any) string {
	if n, err := s.formulas.Evaluate(value, data); err == nil {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	if substituted, err := s.formulas.Substitute(value, data); err == nil {
		return substituted
	}
	return value
}

// absorbStale turns a missing-document error into a logged skip
func (s *Service) absorbStale(err error, docUUID string) error {
	if err == nil {
		return nil
	}
	if errors.IsNotFound(err) {
		log.Printf("Coordinator: skipping stale document %s: %v", docUUID, err)
		return nil
	}
	return errors.Wrapf(err, "failed to update %s", docUUID)
}

func sortedActors(req ActorSources) []string {
	keys := make([]string, 0, len(req))
	for k := range req {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedKeys(m map[string]*held) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
