// Package host declares the document and scene collaborators the aura engine
// and coordinator consume. Every UUID lookup is a weak reference: callers must
// handle ok=false.
package host

import (
	"context"

	"github.com/KirkDiggler/auras/internal/actor"
	"github.com/KirkDiggler/auras/internal/effects"
	"github.com/KirkDiggler/auras/internal/geometry"
	"github.com/KirkDiggler/auras/internal/scene"
)

// Reader resolves documents. Returned documents are copies.
type Reader interface {
	Actor(ctx context.Context, actorUUID string) (*actor.Actor, bool)
	Effect(ctx context.Context, effectUUID string) (*effects.Effect, bool)
	// ActiveToken returns the first token on any scene representing the actor
	ActiveToken(ctx context.Context, actorUUID string) (*scene.Token, bool)
	CombatActive(ctx context.Context) bool
}

// Scenes exposes scene geometry and token lookups
type Scenes interface {
	Scene(ctx context.Context, sceneID string) (geometry.Scene, bool)
	Token(ctx context.Context, sceneID, tokenID string) (*scene.Token, bool)
	Tokens(ctx context.Context, sceneID string) []*scene.Token
}

// Writer mutates embedded effect collections. parentUUID is an actor or item UUID.
type Writer interface {
	CreateEffects(ctx context.Context, parentUUID string, docs []*effects.Effect) ([]*effects.Effect, error)
	DeleteEffects(ctx context.Context, parentUUID string, effectIDs []string) error
}

// Documents is the full document surface
type Documents interface {
	Reader
	Scenes
	Writer
}

// EffectParent is a document owning embedded effects: an actor or an item,
// in the world or in a compendium pack
type EffectParent struct {
	UUID    string
	Name    string
	Locked  bool
	Effects effects.List
}

// MigrationStore enumerates effect parents and applies effect updates
type MigrationStore interface {
	EffectParents(ctx context.Context) ([]*EffectParent, error)
	UpdateEffects(ctx context.Context, parentUUID string, updates []*effects.Effect) error
}
