package script

import (
	"log"
	"strings"
	"sync"

	"github.com/Shopify/go-lua"

	"github.com/KirkDiggler/auras/internal/actor"
	"github.com/KirkDiggler/auras/internal/aura"
	"github.com/KirkDiggler/auras/internal/effects"
	"github.com/KirkDiggler/auras/internal/sandbox"
	"github.com/KirkDiggler/auras/internal/scene"
)

// Context is the fixed set of bindings a predicate can see. The names are
// stable so hand-written scripts keep working across versions.
type Context struct {
	SourceToken *scene.Token
	Token       *scene.Token
	Actor       *actor.Actor
	Effect      *effects.Effect
}

// Predicate decides whether an aura applies to a candidate
type Predicate interface {
	Evaluate(ctx Context) bool
}

// Always passes every candidate. Used for empty scripts and scripts that fail
// to compile.
type Always struct{}

// Evaluate implements Predicate
func (Always) Evaluate(Context) bool { return true }

// Compiled runs a Lua chunk in its own sandboxed state. The compiled chunk
// stays at stack index 1 between calls and every call gets a fresh
// environment.
type Compiled struct {
	mu     sync.Mutex
	state  *lua.State
	source string
	budget int
}

// Compile builds a Predicate from source. Source that compiles as an
// expression is treated as "return (<expr>)"; anything else must compile as a
// chunk of statements.
func Compile(source string, budget int) (*Compiled, error) {
	body := strings.TrimSpace(source)
	l := sandbox.NewState()
	if err := lua.LoadString(l, "return (\n"+body+"\n)"); err != nil {
		l.SetTop(0)
		if err := lua.LoadString(l, body); err != nil {
			return nil, err
		}
	}
	return &Compiled{state: l, source: source, budget: budget}, nil
}

// Evaluate implements Predicate. Runtime errors fail open.
func (c *Compiled) Evaluate(ctx Context) bool {
	ok, err := c.Run(ctx)
	if err != nil {
		log.Printf("Script: predicate failed, treating as pass: %v", err)
		return true
	}
	return ok
}

// Run evaluates the chunk and reports runtime errors to the caller
func (c *Compiled) Run(ctx Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	l := c.state
	defer l.SetTop(1)

	l.PushValue(1)
	err := sandbox.ProtectedCallIn(l, map[string]any{
		"sourceToken": tokenValue(ctx.SourceToken),
		"token":       tokenValue(ctx.Token),
		"actor":       actorValue(ctx.Actor),
		"effect":      effectValue(ctx.Effect),
	}, 1, c.budget)
	if err != nil {
		return false, err
	}
	return l.ToBoolean(-1), nil
}

func tokenValue(t *scene.Token) any {
	if t == nil {
		return nil
	}
	return map[string]any{
		"id":          t.ID,
		"uuid":        t.UUID,
		"name":        t.Name,
		"actorUuid":   t.ActorUUID,
		"x":           t.X,
		"y":           t.Y,
		"elevation":   t.Elevation,
		"width":       t.Width,
		"height":      t.Height,
		"disposition": int(t.Disposition),
		"hidden":      t.Hidden,
	}
}

func actorValue(a *actor.Actor) any {
	if a == nil {
		return nil
	}
	system := a.RollData
	if system == nil {
		system = map[string]any{}
	}
	statuses := []string{}
	for _, e := range aura.AppliedPayloads(a) {
		statuses = append(statuses, e.Statuses...)
	}
	return map[string]any{
		"id":       a.ID,
		"uuid":     a.UUID,
		"name":     a.Name,
		"system":   system,
		"statuses": statuses,
	}
}

func effectValue(e *effects.Effect) any {
	if e == nil {
		return nil
	}
	v := map[string]any{
		"id":       e.ID,
		"uuid":     e.UUID,
		"name":     e.Name,
		"origin":   e.Origin,
		"disabled": e.Disabled,
		"statuses": e.Statuses,
	}
	if e.System != nil {
		v["system"] = map[string]any{
			"distance":     e.System.DistanceFormula,
			"disposition":  int(e.System.Disposition),
			"overrideName": e.System.OverrideName,
			"canStack":     e.System.CanStack,
		}
	}
	return v
}
