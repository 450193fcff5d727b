// Package script evaluates per-candidate aura predicates written in Lua.
package script

import (
	"log"
	"strings"
	"sync"

	"github.com/KirkDiggler/auras/internal/actor"
	"github.com/KirkDiggler/auras/internal/effects"
	"github.com/KirkDiggler/auras/internal/sandbox"
	"github.com/KirkDiggler/auras/internal/scene"
)

type entry struct {
	source    string
	predicate Predicate
}

// Evaluator compiles each effect's script once and caches it by effect UUID.
// A changed script is recompiled on next use.
type Evaluator struct {
	mu     sync.Mutex
	cache  map[string]*entry
	budget int
}

// NewEvaluator creates an evaluator with the default instruction budget
func NewEvaluator() *Evaluator {
	return &Evaluator{
		cache:  make(map[string]*entry),
		budget: sandbox.DefaultInstructionBudget,
	}
}

// Predicate returns the cached strategy for effect
func (e *Evaluator) Predicate(effect *effects.Effect) Predicate {
	source := ""
	if effect.System != nil {
		source = effect.System.Script
	}
	if strings.TrimSpace(source) == "" {
		return Always{}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if cached, ok := e.cache[effect.UUID]; ok && cached.source == source {
		return cached.predicate
	}

	var predicate Predicate = Always{}
	compiled, err := Compile(source, e.budget)
	if err != nil {
		log.Printf("Script: failed to compile script for %s, treating as pass: %v", effect.UUID, err)
	} else {
		predicate = compiled
	}
	e.cache[effect.UUID] = &entry{source: source, predicate: predicate}
	return predicate
}

// Evaluate runs effect's predicate for a candidate token. Empty scripts,
// compile errors and runtime errors all pass.
func (e *Evaluator) Evaluate(sourceToken, token *scene.Token, target *actor.Actor, effect *effects.Effect) bool {
	return e.Predicate(effect).Evaluate(Context{
		SourceToken: sourceToken,
		Token:       token,
		Actor:       target,
		Effect:      effect,
	})
}

// Forget drops the cached predicate of a deleted effect
func (e *Evaluator) Forget(effectUUID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.cache, effectUUID)
}
