package coordinator

import (
	"context"
	"encoding/json"
	"log"
	"sort"
	"sync"

	"github.com/KirkDiggler/auras/internal/errors"
)

// Handler serves one procedure. Payloads and results are JSON.
type Handler func(ctx context.Context, payload []byte) ([]byte, error)

// Registry maps procedure names to handlers
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register binds a handler to a procedure name, replacing any previous one
func (r *Registry) Register(name string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = h
}

// Procedures lists the registered names
func (r *Registry) Procedures() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch invokes the named procedure
func (r *Registry) Dispatch(ctx context.Context, name string, payload []byte) ([]byte, error) {
	r.mu.RLock()
	h, ok := r.handlers[name]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.NotFoundf("procedure %s", name)
	}
	return h(ctx, payload)
}

var ack = []byte("true")

// RegisterProcedures binds the service's four procedures
func RegisterProcedures(r *Registry, s *Service) {
	r.Register(ProcedureApplyAuraEffects, func(ctx context.Context, payload []byte) ([]byte, error) {
		var req ActorSources
		if err := decode(ProcedureApplyAuraEffects, payload, &req); err != nil {
			return nil, err
		}
		if err := s.ApplyAuraEffects(ctx, req); err != nil {
			return nil, err
		}
		return ack, nil
	})

	r.Register(ProcedureDeleteAuraEffects, func(ctx context.Context, payload []byte) ([]byte, error) {
		var req ActorSources
		if err := decode(ProcedureDeleteAuraEffects, payload, &req); err != nil {
			return nil, err
		}
		if err := s.DeleteAuraEffects(ctx, req); err != nil {
			return nil, err
		}
		return ack, nil
	})

	r.Register(ProcedureDeleteEffects, func(ctx context.Context, payload []byte) ([]byte, error) {
		var req DeleteEffectsRequest
		if err := decode(ProcedureDeleteEffects, payload, &req); err != nil {
			return nil, err
		}
		if err := s.DeleteEffects(ctx, req.EffectUUIDs); err != nil {
			return nil, err
		}
		return ack, nil
	})

	r.Register(ProcedureApplyEffect, func(ctx context.Context, payload []byte) ([]byte, error) {
		var req ApplyEffectRequest
		if err := decode(ProcedureApplyEffect, payload, &req); err != nil {
			return nil, err
		}
		if err := s.ApplyEffect(ctx, req.EffectData, req.ActorUUIDs); err != nil {
			return nil, err
		}
		return ack, nil
	})

	log.Printf("Coordinator: registered %d procedures", len(r.Procedures()))
}

func decode(procedure string, payload []byte, v any) error {
	if err := json.Unmarshal(payload, v); err != nil {
		return errors.WrapWithCode(err, errors.CodeInvalidArgument, "invalid payload").
			WithMeta("procedure", procedure)
	}
	return nil
}
