package memory

import (
	"context"
	"log"

	"github.com/KirkDiggler/auras/internal/effects"
	"github.com/KirkDiggler/auras/internal/errors"
	"github.com/KirkDiggler/auras/internal/events"
	"github.com/KirkDiggler/auras/internal/scene"
	"github.com/KirkDiggler/auras/internal/uuid"
)

// MoveToken moves a token in a single segment
func (w *World) MoveToken(ctx context.Context, userID, sceneID, tokenID string, to scene.Point) error {
	return w.MovePath(ctx, userID, sceneID, tokenID, []scene.Point{to})
}

// MovePath moves a token through each waypoint in turn. Every waypoint is one
// segment: the token update is announced, then the segment completes, then
// the settle hook runs.
func (w *World) MovePath(ctx context.Context, userID, sceneID, tokenID string, waypoints []scene.Point) error {
	s, ok := w.scene(sceneID)
	if !ok {
		return errors.NotFoundf("scene %s", sceneID)
	}
	if len(waypoints) == 0 {
		return errors.InvalidArgumentf("empty path for token %s", tokenID)
	}
	destination := waypoints[len(waypoints)-1]

	for i, wp := range waypoints {
		pending := 0.0
		for j := i + 1; j < len(waypoints); j++ {
			pending += s.MeasurePath(waypoints[j-1], waypoints[j])
		}
		state := scene.MovementMoving
		if pending == 0 {
			state = scene.MovementIdle
		}

		before, after, ok := s.update(tokenID, func(t *scene.Token) {
			t.X, t.Y, t.Elevation = wp.X, wp.Y, wp.Elevation
			t.Movement = scene.Movement{State: state, PendingDistance: pending, Destination: destination}
		})
		if !ok {
			return errors.NotFoundf("token %s on scene %s", tokenID, sceneID)
		}

		changed := positionChanges(before, after)
		w.emit(events.NewTokenUpdated(userID, sceneID, before, after, changed))
		w.emit(events.NewMovementSegmentComplete(sceneID, tokenID))
		w.runSettle()

		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}

// StopMovement halts a token mid-path at its current position
func (w *World) StopMovement(userID, sceneID, tokenID string) error {
	s, ok := w.scene(sceneID)
	if !ok {
		return errors.NotFoundf("scene %s", sceneID)
	}
	before, after, ok := s.update(tokenID, func(t *scene.Token) {
		t.Movement.State = scene.MovementStopped
		t.Movement.PendingDistance = 0
	})
	if !ok {
		return errors.NotFoundf("token %s on scene %s", tokenID, sceneID)
	}
	w.emit(events.NewTokenUpdated(userID, sceneID, before, after, events.NewChanges("movement")))
	return nil
}

// SetHidden toggles a token's hidden flag
func (w *World) SetHidden(userID, sceneID, tokenID string, hidden bool) error {
	s, ok := w.scene(sceneID)
	if !ok {
		return errors.NotFoundf("scene %s", sceneID)
	}
	before, after, ok := s.update(tokenID, func(t *scene.Token) {
		t.Hidden = hidden
	})
	if !ok {
		return errors.NotFoundf("token %s on scene %s", tokenID, sceneID)
	}
	if before.Hidden == after.Hidden {
		return nil
	}
	w.emit(events.NewTokenUpdated(userID, sceneID, before, after, events.NewChanges(events.FieldHidden)))
	return nil
}

// SetEffectDisabled toggles an effect's disabled flag
func (w *World) SetEffectDisabled(ctx context.Context, userID, effectUUID string, disabled bool) error {
	w.mu.Lock()
	list, ok := w.effectsOf(uuid.Parent(effectUUID))
	var updated *effects.Effect
	if ok {
		for _, e := range *list {
			if e.UUID == effectUUID {
				if e.Disabled == disabled {
					w.mu.Unlock()
					return nil
				}
				e.Disabled = disabled
				updated = e.Clone()
			}
		}
	}
	w.mu.Unlock()

	if updated == nil {
		return errors.NotFoundf("effect %s", effectUUID)
	}
	w.emit(events.NewEffectUpdated(userID, w.sceneOf(ctx, effectUUID), updated, events.NewChanges(events.FieldDisabled)))
	return nil
}

// DeleteEffect removes an effect by UUID
func (w *World) DeleteEffect(ctx context.Context, userID, effectUUID string) error {
	deleted, ok := w.Effect(ctx, effectUUID)
	if !ok {
		return errors.NotFoundf("effect %s", effectUUID)
	}
	sceneID := w.sceneOf(ctx, effectUUID)
	if err := w.DeleteEffects(ctx, uuid.Parent(effectUUID), []string{deleted.ID}); err != nil {
		return err
	}
	w.emit(events.NewEffectDeleted(userID, sceneID, deleted))
	return nil
}

// SetCombat starts or ends combat on a scene
func (w *World) SetCombat(userID, sceneID string, active bool) {
	w.mu.Lock()
	if w.combat == active {
		w.mu.Unlock()
		return
	}
	w.combat = active
	w.mu.Unlock()

	w.emit(events.NewCombatChanged(userID, sceneID, active))
}

// sceneOf returns the scene of the token representing the effect's owner
func (w *World) sceneOf(ctx context.Context, effectUUID string) string {
	if t, ok := w.ActiveToken(ctx, uuid.OwningActor(effectUUID)); ok {
		return t.SceneID
	}
	return ""
}

func (w *World) emit(e events.Event) {
	if err := w.bus.Emit(e); err != nil {
		log.Printf("World: %s listeners failed: %v", e.GetType(), err)
	}
}

func (w *World) runSettle() {
	w.mu.RLock()
	settle := w.settle
	w.mu.RUnlock()
	if settle != nil {
		settle()
	}
}

func positionChanges(before, after *scene.Token) events.Changes {
	changed := events.Changes{}
	if before.X != after.X {
		changed[events.FieldX] = true
	}
	if before.Y != after.Y {
		changed[events.FieldY] = true
	}
	if before.Elevation != after.Elevation {
		changed[events.FieldElevation] = true
	}
	return changed
}
