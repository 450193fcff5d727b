package coordinator

import (
	"github.com/KirkDiggler/auras/internal/effects"
)

// Procedure names registered on the coordinator
const (
	ProcedureApplyAuraEffects  = "auras.applyAuraEffects"
	ProcedureDeleteAuraEffects = "auras.deleteAuraEffects"
	ProcedureDeleteEffects     = "auras.deleteEffects"
	ProcedureApplyEffect       = "auras.applyEffect"
)

// ActorSources maps actor UUIDs to source effect UUIDs
type ActorSources map[string][]string

// Add appends a source to an actor's list, skipping duplicates
func (m ActorSources) Add(actorUUID, sourceUUID string) {
	for _, s := range m[actorUUID] {
		if s == sourceUUID {
			return
		}
	}
	m[actorUUID] = append(m[actorUUID], sourceUUID)
}

// Len counts every actor/source pair
func (m ActorSources) Len() int {
	n := 0
	for _, sources := range m {
		n += len(sources)
	}
	return n
}

// DeleteEffectsRequest is the payload of auras.deleteEffects
type DeleteEffectsRequest struct {
	EffectUUIDs []string `json:"effectUuids"`
}

// ApplyEffectRequest is the payload of auras.applyEffect
type ApplyEffectRequest struct {
	EffectData *effects.Effect `json:"effectData"`
	ActorUUIDs []string        `json:"actorUuids"`
}
