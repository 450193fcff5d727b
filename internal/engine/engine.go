// Package engine keeps derived aura effects in step with token movement,
// visibility, source toggles and combat state. Only the user who caused an
// update reconciles it, and every resulting mutation is sent to the elected
// coordinator.
package engine

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/KirkDiggler/auras/internal/aura"
	"github.com/KirkDiggler/auras/internal/coordinator"
	"github.com/KirkDiggler/auras/internal/errors"
	"github.com/KirkDiggler/auras/internal/events"
	"github.com/KirkDiggler/auras/internal/host"
	"github.com/KirkDiggler/auras/internal/notify"
	"github.com/KirkDiggler/auras/internal/script"
)

// Config holds the engine's dependencies
type Config struct {
	Session   *Session
	Documents host.Documents
	Elector   coordinator.Elector
	Model     *aura.Model
	Scripts   *script.Evaluator
	Notifier  notify.Notifier
	// Settler defaults to a SegmentTracker fed by HandleMovementSegmentComplete
	Settler Settler
	// SettleTimeout bounds the wait for a segment to complete; zero waits forever
	SettleTimeout time.Duration
}

// Engine reconciles derived effects in response to host events
type Engine struct {
	session       *Session
	docs          host.Documents
	elector       coordinator.Elector
	model         *aura.Model
	scripts       *script.Evaluator
	notifier      notify.Notifier
	settler       Settler
	settleTimeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates an Engine
func New(cfg *Config) *Engine {
	if cfg.Session == nil {
		panic("session is required")
	}
	if cfg.Documents == nil {
		panic("documents are required")
	}
	if cfg.Elector == nil {
		panic("elector is required")
	}
	if cfg.Model == nil {
		panic("aura model is required")
	}
	if cfg.Scripts == nil {
		panic("script evaluator is required")
	}

	notifier := cfg.Notifier
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}
	settler := cfg.Settler
	if settler == nil {
		settler = NewSegmentTracker()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		session:       cfg.Session,
		docs:          cfg.Documents,
		elector:       cfg.Elector,
		model:         cfg.Model,
		scripts:       cfg.Scripts,
		notifier:      notifier,
		settler:       settler,
		settleTimeout: cfg.SettleTimeout,
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Wait blocks until every pass started so far has finished
func (e *Engine) Wait() {
	e.wg.Wait()
}

// Close cancels running passes and waits for them to return
func (e *Engine) Close() {
	e.cancel()
	e.wg.Wait()
}

// HandleTokenUpdated starts a pass when the local user moved a token or
// toggled its visibility. The settle ticket is taken before returning so a
// segment-complete signal emitted right after the update is not missed.
func (e *Engine) HandleTokenUpdated(ev *events.TokenUpdatedEvent) {
	if !e.initiatedHere(ev) || ev.After == nil || ev.After.ActorUUID == "" {
		return
	}
	moved := ev.Changed.Has(events.FieldX, events.FieldY, events.FieldElevation)
	if !moved && !ev.Changed.Has(events.FieldHidden) {
		return
	}

	var ticket *Ticket
	if moved {
		ticket = e.settler.Expect(ev.SceneID, ev.After.ID)
	}
	before := ev.Before
	if before == nil {
		before = ev.After
	}
	e.goPass("token "+ev.After.ID, func(ctx context.Context) error {
		return e.reconcileToken(ctx, ev.SceneID, before, ticket)
	})
}

// HandleMovementSegmentComplete releases passes awaiting the token's segment
func (e *Engine) HandleMovementSegmentComplete(ev *events.MovementSegmentCompleteEvent) {
	e.settler.Complete(ev.SceneID, ev.TokenID)
}

// HandleEffectUpdated propagates or withdraws a source whose disabled flag
// the local user toggled
func (e *Engine) HandleEffectUpdated(ev *events.EffectUpdatedEvent) {
	if !e.initiatedHere(ev) || !ev.Effect.IsAuraSource() || !ev.Changed.Has(events.FieldDisabled) {
		return
	}
	if ev.SceneID == "" {
		return
	}
	e.goPass("effect "+ev.Effect.UUID, func(ctx context.Context) error {
		return e.reconcileSource(ctx, ev.Effect.UUID)
	})
}

// HandleEffectDeleted withdraws every derived copy of a deleted source
func (e *Engine) HandleEffectDeleted(ev *events.EffectDeletedEvent) {
	if ev.Effect == nil || !ev.Effect.IsAuraSource() {
		return
	}
	e.scripts.Forget(ev.Effect.UUID)
	if !e.initiatedHere(ev) || ev.SceneID == "" {
		return
	}
	e.goPass("deleted effect "+ev.Effect.UUID, func(ctx context.Context) error {
		return e.withdrawDeleted(ctx, ev.SceneID, ev.Effect)
	})
}

// HandleCombatChanged re-evaluates combat-only sources on the scene
func (e *Engine) HandleCombatChanged(ev *events.CombatChangedEvent) {
	if !e.initiatedHere(ev) {
		return
	}
	e.goPass("combat on "+ev.SceneID, func(ctx context.Context) error {
		return e.reconcileCombat(ctx, ev.SceneID)
	})
}

func (e *Engine) initiatedHere(ev events.Event) bool {
	return ev.GetUserID() == e.session.UserID
}

func (e *Engine) goPass(name string, fn func(ctx context.Context) error) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		err := fn(e.ctx)
		switch {
		case errors.IsUnavailable(err):
			log.Printf("Engine: skipping pass for %s: %v", name, err)
		case err != nil:
			log.Printf("Engine: pass for %s failed: %v", name, err)
		}
	}()
}

// client returns the elected coordinator. With none elected the user is
// warned once per session and an Unavailable error abandons the pass.
func (e *Engine) client(ctx context.Context) (*coordinator.Client, error) {
	handle, ok := e.elector.Active(ctx)
	if ok {
		return coordinator.NewClient(handle), nil
	}
	if e.session.FirstWarning() {
		if err := e.notifier.Notify(ctx, notify.LevelWarn, notify.MessageNoCoordinator); err != nil {
			log.Printf("Engine: failed to deliver warning: %v", err)
		}
	}
	return nil, errors.Unavailable("no coordinator elected")
}

func (e *Engine) await(ctx context.Context, ticket *Ticket) error {
	if e.settleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.settleTimeout)
		defer cancel()
	}
	return ticket.Wait(ctx)
}

// Bind subscribes the engine to the host's events
func (e *Engine) Bind(bus *events.Bus) {
	l := &listener{engine: e}
	for _, et := range []events.EventType{
		events.EventTypeTokenUpdated,
		events.EventTypeEffectUpdated,
		events.EventTypeEffectDeleted,
		events.EventTypeMovementSegmentComplete,
		events.EventTypeCombatChanged,
	} {
		bus.Subscribe(et, l)
	}
}

type listener struct {
	engine *Engine
}

func (l *listener) ID() string    { return "auras-engine" }
func (l *listener) Priority() int { return events.PriorityAuras }

func (l *listener) HandleEvent(event events.Event) error {
	switch ev := event.(type) {
	case *events.TokenUpdatedEvent:
		l.engine.HandleTokenUpdated(ev)
	case *events.EffectUpdatedEvent:
		l.engine.HandleEffectUpdated(ev)
	case *events.EffectDeletedEvent:
		l.engine.HandleEffectDeleted(ev)
	case *events.MovementSegmentCompleteEvent:
		l.engine.HandleMovementSegmentComplete(ev)
	case *events.CombatChangedEvent:
		l.engine.HandleCombatChanged(ev)
	}
	return nil
}
