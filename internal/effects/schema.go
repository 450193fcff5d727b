package effects

import (
	"encoding/json"

	"gopkg.in/yaml.v3"

	"github.com/KirkDiggler/auras/internal/errors"
	"github.com/KirkDiggler/auras/internal/scene"
)

const defaultOpacity = 0.25

// DefaultAuraData returns the schema defaults for a new aura source
func DefaultAuraData() *AuraData {
	return &AuraData{
		ApplyToSelf:     true,
		CollisionTypes:  []scene.CollisionType{scene.CollisionMove},
		DisableOnHidden: true,
		DistanceFormula: "0",
		Disposition:     DispositionAny,
		Opacity:         defaultOpacity,
	}
}

// Normalize coerces out-of-range values the way the host schema does:
// unknown collision types are dropped, duplicates collapsed, opacity clamped.
func (a *AuraData) Normalize() {
	if a.DistanceFormula == "" {
		a.DistanceFormula = "0"
	}
	seen := make(map[scene.CollisionType]bool, len(a.CollisionTypes))
	kept := a.CollisionTypes[:0]
	for _, c := range a.CollisionTypes {
		if !c.Valid() || seen[c] {
			continue
		}
		seen[c] = true
		kept = append(kept, c)
	}
	a.CollisionTypes = kept
	if a.Opacity < 0 {
		a.Opacity = 0
	}
	if a.Opacity > 1 {
		a.Opacity = 1
	}
}

// Validate rejects values the schema cannot represent
func (a *AuraData) Validate() error {
	switch a.Disposition {
	case DispositionHostile, DispositionAny, DispositionFriendly:
	default:
		return errors.Validationf("invalid disposition %d", a.Disposition)
	}
	for _, c := range a.CollisionTypes {
		if !c.Valid() {
			return errors.Validationf("invalid collision type %q", c)
		}
	}
	if a.Opacity < 0 || a.Opacity > 1 {
		return errors.Validationf("opacity %v outside [0, 1]", a.Opacity)
	}
	return nil
}

// UnmarshalYAML fills omitted fields with the schema defaults
func (a *AuraData) UnmarshalYAML(value *yaml.Node) error {
	type plain AuraData
	d := plain(*DefaultAuraData())
	if err := value.Decode(&d); err != nil {
		return err
	}
	*a = AuraData(d)
	a.Normalize()
	return nil
}

// UnmarshalJSON fills omitted fields with the schema defaults
func (a *AuraData) UnmarshalJSON(data []byte) error {
	type plain AuraData
	d := plain(*DefaultAuraData())
	if err := json.Unmarshal(data, &d); err != nil {
		return err
	}
	*a = AuraData(d)
	a.Normalize()
	return nil
}
