package simulator

import (
	"context"
	"fmt"
	"io"
	"log"
	"slices"
	"sort"
	"strings"

	"github.com/KirkDiggler/auras/internal/errors"
	"github.com/KirkDiggler/auras/internal/host/memory"
)

// Waiter blocks until queued aura passes have finished
type Waiter interface {
	Wait()
}

// Config holds the simulator's dependencies
type Config struct {
	World  *memory.World
	Engine Waiter
	// UserID acts for steps that do not name a user
	UserID string
	// Out receives the per-step report; nil discards it
	Out io.Writer
}

// Simulator plays scenario steps against a world
type Simulator struct {
	world  *memory.World
	engine Waiter
	userID string
	out    io.Writer
}

// New creates a Simulator
func New(cfg *Config) *Simulator {
	if cfg.World == nil {
		panic("world is required")
	}
	if cfg.Engine == nil {
		panic("engine is required")
	}
	out := cfg.Out
	if out == nil {
		out = io.Discard
	}
	return &Simulator{world: cfg.World, engine: cfg.Engine, userID: cfg.UserID, out: out}
}

// Run plays every step in order. It stops at the first failed mutation or
// unmet expectation.
func (s *Simulator) Run(ctx context.Context, steps []*Step) error {
	for i, step := range steps {
		if err := s.apply(ctx, step); err != nil {
			return errors.Wrapf(err, "step %d (%s)", i+1, step.Action)
		}
		s.engine.Wait()

		fmt.Fprintf(s.out, "step %d: %s %s%s\n", i+1, step.Action, step.Token, step.Effect)
		for _, actorUUID := range sortedKeys(step.Expect) {
			got := s.DerivedNames(ctx, actorUUID)
			fmt.Fprintf(s.out, "  %s: [%s]\n", actorUUID, strings.Join(got, ", "))
			if want := sorted(step.Expect[actorUUID]); !slices.Equal(got, want) {
				return errors.Validationf("step %d: %s carries [%s], expected [%s]",
					i+1, actorUUID, strings.Join(got, ", "), strings.Join(want, ", "))
			}
		}
	}
	log.Printf("Simulator: %d steps played", len(steps))
	return nil
}

func (s *Simulator) apply(ctx context.Context, step *Step) error {
	user := step.User
	if user == "" {
		user = s.userID
	}
	switch step.Action {
	case ActionMove:
		return s.world.MoveToken(ctx, user, step.Scene, step.Token, step.To)
	case ActionPath:
		return s.world.MovePath(ctx, user, step.Scene, step.Token, step.Path)
	case ActionStop:
		return s.world.StopMovement(user, step.Scene, step.Token)
	case ActionHide:
		return s.world.SetHidden(user, step.Scene, step.Token, true)
	case ActionReveal:
		return s.world.SetHidden(user, step.Scene, step.Token, false)
	case ActionDisable:
		return s.world.SetEffectDisabled(ctx, user, step.Effect, true)
	case ActionEnable:
		return s.world.SetEffectDisabled(ctx, user, step.Effect, false)
	case ActionDelete:
		return s.world.DeleteEffect(ctx, user, step.Effect)
	case ActionCombat:
		s.world.SetCombat(user, step.Scene, true)
	case ActionPeace:
		s.world.SetCombat(user, step.Scene, false)
	default:
		return errors.Validationf("unknown action %q", step.Action)
	}
	return nil
}

// DerivedNames returns the sorted names of the derived effects an actor
// carries, including those on its items
func (s *Simulator) DerivedNames(ctx context.Context, actorUUID string) []string {
	a, ok := s.world.Actor(ctx, actorUUID)
	if !ok {
		return []string{}
	}
	names := []string{}
	for _, e := range a.AllEffects().Derived() {
		names = append(names, e.Name)
	}
	sort.Strings(names)
	return names
}

func sorted(in []string) []string {
	out := append([]string{}, in...)
	sort.Strings(out)
	return out
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
