package events

// Event type constants for the host document hooks the engine listens to
const (
	EventTypeTokenUpdated            EventType = "token_updated"
	EventTypeEffectUpdated           EventType = "effect_updated"
	EventTypeEffectDeleted           EventType = "effect_deleted"
	EventTypeMovementSegmentComplete EventType = "movement_segment_complete"
	EventTypeCombatChanged           EventType = "combat_changed"
)

// Priority levels for listener ordering
const (
	PriorityPresentation = 100 // radius overlays and other read-only observers
	PriorityAuras        = 200 // aura reconciliation
)

// Changed field names carried on update events
const (
	FieldX         = "x"
	FieldY         = "y"
	FieldElevation = "elevation"
	FieldHidden    = "hidden"
	FieldDisabled  = "disabled"
)
