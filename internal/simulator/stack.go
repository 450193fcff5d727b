package simulator

import (
	"time"

	"github.com/KirkDiggler/auras/internal/aura"
	"github.com/KirkDiggler/auras/internal/coordinator"
	"github.com/KirkDiggler/auras/internal/dice"
	"github.com/KirkDiggler/auras/internal/engine"
	"github.com/KirkDiggler/auras/internal/formula"
	"github.com/KirkDiggler/auras/internal/host/memory"
	"github.com/KirkDiggler/auras/internal/notify"
	"github.com/KirkDiggler/auras/internal/script"
)

// StackConfig describes how to wire an engine and coordinator to a world
type StackConfig struct {
	World  *memory.World
	UserID string
	// Elector builds the election over this process's coordinator handle.
	// Nil always elects the local handle.
	Elector       func(local coordinator.Handle) coordinator.Elector
	Notifier      notify.Notifier
	SettleTimeout time.Duration
}

// Stack is a world's engine plus the coordinator that serves it
type Stack struct {
	Registry *coordinator.Registry
	Handle   *coordinator.LocalHandle
	Elector  coordinator.Elector
	Engine   *engine.Engine
}

// NewStack wires the coordinator procedures and the engine, binds the engine
// to the world's bus and serializes movement segments behind engine passes
func NewStack(cfg *StackConfig) *Stack {
	if cfg.World == nil {
		panic("world is required")
	}

	formulas := formula.NewEvaluator(dice.NewRandomRoller())
	model := aura.NewModel(&aura.Config{Documents: cfg.World, Formulas: formulas})

	registry := coordinator.NewRegistry()
	coordinator.RegisterProcedures(registry, coordinator.NewService(&coordinator.ServiceConfig{
		Documents: cfg.World,
		Model:     model,
		Formulas:  formulas,
	}))
	handle := coordinator.NewLocalHandle(registry)

	var elector coordinator.Elector = coordinator.NewStaticElector(handle)
	if cfg.Elector != nil {
		elector = cfg.Elector(handle)
	}

	eng := engine.New(&engine.Config{
		Session:       engine.NewSession(cfg.UserID),
		Documents:     cfg.World,
		Elector:       elector,
		Model:         model,
		Scripts:       script.NewEvaluator(),
		Notifier:      cfg.Notifier,
		SettleTimeout: cfg.SettleTimeout,
	})
	eng.Bind(cfg.World.Bus())
	cfg.World.SetSettle(eng.Wait)

	return &Stack{Registry: registry, Handle: handle, Elector: elector, Engine: eng}
}

// Close stops the engine
func (s *Stack) Close() {
	s.Engine.Close()
}
