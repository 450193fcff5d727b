package events

import (
	"github.com/KirkDiggler/auras/internal/effects"
	"github.com/KirkDiggler/auras/internal/scene"
)

// EventType represents the type of host event
type EventType string

// Event is the base interface for all host events
type Event interface {
	GetType() EventType
	// GetUserID is the user whose input caused the event
	GetUserID() string
}

// BaseEvent provides common implementation for all events
type BaseEvent struct {
	Type   EventType
	UserID string
}

func (e *BaseEvent) GetType() EventType { return e.Type }
func (e *BaseEvent) GetUserID() string  { return e.UserID }

// Changes is the set of fields an update touched
type Changes map[string]bool

// Has reports whether any of the fields changed
func (c Changes) Has(fields ...string) bool {
	for _, f := range fields {
		if c[f] {
			return true
		}
	}
	return false
}

// NewChanges builds a change set from field names
func NewChanges(fields ...string) Changes {
	c := make(Changes, len(fields))
	for _, f := range fields {
		c[f] = true
	}
	return c
}

// TokenUpdatedEvent is emitted after a token document update. Before holds
// the document as it was prior to the update.
type TokenUpdatedEvent struct {
	BaseEvent
	SceneID string
	Before  *scene.Token
	After   *scene.Token
	Changed Changes
}

// EffectUpdatedEvent is emitted after an active effect update
type EffectUpdatedEvent struct {
	BaseEvent
	SceneID string
	Effect  *effects.Effect
	Changed Changes
}

// EffectDeletedEvent is emitted after an active effect is deleted
type EffectDeletedEvent struct {
	BaseEvent
	SceneID string
	Effect  *effects.Effect
}

// MovementSegmentCompleteEvent is emitted when a token's queued movement
// segment has finished animating
type MovementSegmentCompleteEvent struct {
	BaseEvent
	SceneID string
	TokenID string
}

// CombatChangedEvent is emitted when combat starts or ends on a scene
type CombatChangedEvent struct {
	BaseEvent
	SceneID string
	Active  bool
}

// NewTokenUpdated builds a TokenUpdatedEvent
func NewTokenUpdated(userID, sceneID string, before, after *scene.Token, changed Changes) *TokenUpdatedEvent {
	return &TokenUpdatedEvent{
		BaseEvent: BaseEvent{Type: EventTypeTokenUpdated, UserID: userID},
		SceneID:   sceneID,
		Before:    before,
		After:     after,
		Changed:   changed,
	}
}

// NewEffectUpdated builds an EffectUpdatedEvent
func NewEffectUpdated(userID, sceneID string, effect *effects.Effect, changed Changes) *EffectUpdatedEvent {
	return &EffectUpdatedEvent{
		BaseEvent: BaseEvent{Type: EventTypeEffectUpdated, UserID: userID},
		SceneID:   sceneID,
		Effect:    effect,
		Changed:   changed,
	}
}

// NewEffectDeleted builds an EffectDeletedEvent
func NewEffectDeleted(userID, sceneID string, effect *effects.Effect) *EffectDeletedEvent {
	return &EffectDeletedEvent{
		BaseEvent: BaseEvent{Type: EventTypeEffectDeleted, UserID: userID},
		SceneID:   sceneID,
		Effect:    effect,
	}
}

// NewMovementSegmentComplete builds a MovementSegmentCompleteEvent
func NewMovementSegmentComplete(sceneID, tokenID string) *MovementSegmentCompleteEvent {
	return &MovementSegmentCompleteEvent{
		BaseEvent: BaseEvent{Type: EventTypeMovementSegmentComplete},
		SceneID:   sceneID,
		TokenID:   tokenID,
	}
}

// NewCombatChanged builds a CombatChangedEvent
func NewCombatChanged(userID, sceneID string, active bool) *CombatChangedEvent {
	return &CombatChangedEvent{
		BaseEvent: BaseEvent{Type: EventTypeCombatChanged, UserID: userID},
		SceneID:   sceneID,
		Active:    active,
	}
}
