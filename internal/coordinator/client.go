package coordinator

import (
	"context"
	"encoding/json"

	"github.com/KirkDiggler/auras/internal/effects"
	"github.com/KirkDiggler/auras/internal/errors"
)

// Client is a typed wrapper over a Handle
type Client struct {
	handle Handle
}

// NewClient creates a Client
func NewClient(handle Handle) *Client {
	return &Client{handle: handle}
}

// ApplyAuraEffects calls auras.applyAuraEffects
func (c *Client) ApplyAuraEffects(ctx context.Context, req ActorSources) error {
	return c.call(ctx, ProcedureApplyAuraEffects, req)
}

// DeleteAuraEffects calls auras.deleteAuraEffects
func (c *Client) DeleteAuraEffects(ctx context.Context, req ActorSources) error {
	return c.call(ctx, ProcedureDeleteAuraEffects, req)
}

// DeleteEffects calls auras.deleteEffects
func (c *Client) DeleteEffects(ctx context.Context, effectUUIDs []string) error {
	return c.call(ctx, ProcedureDeleteEffects, &DeleteEffectsRequest{EffectUUIDs: effectUUIDs})
}

// ApplyEffect calls auras.applyEffect
func (c *Client) ApplyEffect(ctx context.Context, effectData *effects.Effect, actorUUIDs []string) error {
	return c.call(ctx, ProcedureApplyEffect, &ApplyEffectRequest{EffectData: effectData, ActorUUIDs: actorUUIDs})
}

func (c *Client) call(ctx context.Context, procedure string, req any) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return errors.Wrapf(err, "failed to encode %s", procedure)
	}
	result, err := c.handle.Call(ctx, procedure, payload)
	if err != nil {
		return errors.Wrapf(err, "%s failed", procedure)
	}
	var ok bool
	if err := json.Unmarshal(result, &ok); err != nil {
		return errors.WrapWithCode(err, errors.CodeInternal, procedure+" returned an invalid acknowledgement")
	}
	if !ok {
		return errors.Internalf("%s was not acknowledged", procedure)
	}
	return nil
}
