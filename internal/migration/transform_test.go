package migration_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KirkDiggler/auras/internal/actor"
	"github.com/KirkDiggler/auras/internal/effects"
	"github.com/KirkDiggler/auras/internal/migration"
	"github.com/KirkDiggler/auras/internal/sandbox"
	"github.com/KirkDiggler/auras/internal/scene"
	"github.com/KirkDiggler/auras/internal/script"
)

func legacyEffect(flags map[string]any) *effects.Effect {
	return &effects.Effect{
		ID:       "e1",
		UUID:     "Actor.cleric.ActiveEffect.e1",
		Name:     "Spirit Guardians",
		Type:     effects.TypeBase,
		Changes:  []effects.Change{{Key: "system.attributes.movement.walk", Mode: effects.ModeMultiply, Value: "0.5"}},
		Statuses: []string{"slowed"},
		Flags:    effects.Flags{Legacy: flags},
	}
}

// run evaluates a migrated script against a target actor's system data
func run(t *testing.T, src string, system map[string]any) bool {
	t.Helper()
	compiled, err := script.Compile(src, sandbox.DefaultInstructionBudget)
	require.NoError(t, err, src)
	ok, err := compiled.Run(script.Context{
		SourceToken: &scene.Token{ID: "src", Disposition: scene.DispositionFriendly},
		Token:       &scene.Token{ID: "target", Disposition: scene.DispositionFriendly},
		Actor:       &actor.Actor{ID: "target", RollData: system},
	})
	require.NoError(t, err, src)
	return ok
}

func TestTransformLegacy_NoFlags(t *testing.T) {
	_, ok := migration.TransformLegacy(&effects.Effect{ID: "plain"}, migration.LegacyOptions{})
	assert.False(t, ok)
}

func TestTransformLegacy_Aura(t *testing.T) {
	in := legacyEffect(map[string]any{
		"isAura":       true,
		"radius":       "15",
		"aura":         "Allies",
		"ignoreSelf":   true,
		"hidden":       false,
		"nameOverride": "Guardians",
		"statuses":     []any{"slowed", "frightened"},
		"displayTemp":  true,
	})

	out, ok := migration.TransformLegacy(in, migration.LegacyOptions{WallsBlock: true})
	require.True(t, ok)

	assert.Equal(t, effects.TypeAura, out.Type)
	require.NotNil(t, out.System)
	assert.Equal(t, "15", out.System.DistanceFormula)
	assert.Equal(t, effects.DispositionFriendly, out.System.Disposition)
	assert.False(t, out.System.ApplyToSelf)
	assert.False(t, out.System.DisableOnHidden)
	assert.Equal(t, "Guardians", out.System.OverrideName)
	assert.Equal(t, []scene.CollisionType{scene.CollisionMove}, out.System.CollisionTypes)
	assert.Empty(t, out.System.Script)
	assert.Equal(t, []string{"slowed", "frightened"}, out.Statuses)
	assert.Nil(t, out.Flags.Legacy)
	assert.Equal(t, in.Changes, out.Changes)

	assert.NotNil(t, in.Flags.Legacy, "input is not modified")
	assert.Equal(t, effects.TypeBase, in.Type)
}

func TestTransformLegacy_Defaults(t *testing.T) {
	out, ok := migration.TransformLegacy(legacyEffect(map[string]any{"isAura": true}), migration.LegacyOptions{})
	require.True(t, ok)

	assert.Equal(t, "0", out.System.DistanceFormula)
	assert.Equal(t, effects.DispositionAny, out.System.Disposition)
	assert.True(t, out.System.ApplyToSelf)
	assert.True(t, out.System.DisableOnHidden)
	assert.Empty(t, out.System.CollisionTypes)
}

func TestTransformLegacy_KeepsSystemTypeAsOriginal(t *testing.T) {
	in := legacyEffect(map[string]any{"isAura": true})
	in.Type = "dnd5e.enchantment"

	out, _ := migration.TransformLegacy(in, migration.LegacyOptions{})
	assert.Equal(t, effects.Type("dnd5e.enchantment"), out.Flags.OriginalType)
}

func TestTransformLegacy_WallsBlock(t *testing.T) {
	tests := []struct {
		name   string
		flag   any
		global bool
		want   []scene.CollisionType
	}{
		{name: "system setting on", flag: "system", global: true, want: []scene.CollisionType{scene.CollisionMove}},
		{name: "system setting off", flag: "system", global: false, want: []scene.CollisionType{}},
		{name: "forced on", flag: "true", global: false, want: []scene.CollisionType{scene.CollisionMove}},
		{name: "forced on as bool", flag: true, global: false, want: []scene.CollisionType{scene.CollisionMove}},
		{name: "forced off", flag: "false", global: true, want: []scene.CollisionType{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _ := migration.TransformLegacy(
				legacyEffect(map[string]any{"isAura": true, "wallsBlock": tt.flag}),
				migration.LegacyOptions{WallsBlock: tt.global})
			assert.Equal(t, tt.want, out.System.CollisionTypes)
		})
	}
}

func TestTransformLegacy_Disposition(t *testing.T) {
	for aura, want := range map[string]effects.Disposition{
		"All":     effects.DispositionAny,
		"Allies":  effects.DispositionFriendly,
		"Enemy":   effects.DispositionHostile,
		"Hostile": effects.DispositionHostile,
	} {
		out, _ := migration.TransformLegacy(legacyEffect(map[string]any{"isAura": true, "aura": aura}), migration.LegacyOptions{})
		assert.Equal(t, want, out.System.Disposition, aura)
	}
}

func TestTransformLegacy_NumericRadius(t *testing.T) {
	out, _ := migration.TransformLegacy(legacyEffect(map[string]any{"isAura": true, "radius": float64(10)}), migration.LegacyOptions{})
	assert.Equal(t, "10", out.System.DistanceFormula)

	out, _ = migration.TransformLegacy(legacyEffect(map[string]any{"isAura": true, "radius": "@details.level"}), migration.LegacyOptions{})
	assert.Equal(t, "@details.level", out.System.DistanceFormula)
}

func TestTransformLegacy_AppliedBecomesDerived(t *testing.T) {
	in := legacyEffect(map[string]any{"applied": true, "statuses": []any{"blessed"}})
	in.Origin = "Actor.paladin.ActiveEffect.aura"

	out, ok := migration.TransformLegacy(in, migration.LegacyOptions{})
	require.True(t, ok)

	assert.True(t, out.IsDerived())
	assert.Nil(t, out.Flags.Legacy)
	assert.Nil(t, out.System)
	assert.Equal(t, effects.TypeBase, out.Type)
	assert.Equal(t, in.Origin, out.Origin)
	assert.Equal(t, []string{"slowed", "blessed"}, out.Statuses)
}

func TestTransformLegacy_NeitherOnlyMergesStatuses(t *testing.T) {
	out, ok := migration.TransformLegacy(legacyEffect(map[string]any{"statuses": []string{"prone"}}), migration.LegacyOptions{})
	require.True(t, ok)

	assert.Equal(t, []string{"slowed", "prone"}, out.Statuses)
	assert.NotNil(t, out.Flags.Legacy)
	assert.False(t, out.IsDerived())
}

func TestTransformLegacy_CustomCheck(t *testing.T) {
	out, _ := migration.TransformLegacy(legacyEffect(map[string]any{
		"isAura":      true,
		"customCheck": "auraEntity.disposition === token.disposition && !token.hidden",
	}), migration.LegacyOptions{})

	assert.Equal(t, "return sourceToken.disposition == token.disposition and not token.hidden", out.System.Script)
	assert.True(t, run(t, out.System.Script, nil))
}

func TestTransformLegacy_Alignment(t *testing.T) {
	out, _ := migration.TransformLegacy(legacyEffect(map[string]any{"isAura": true, "alignment": "Good"}), migration.LegacyOptions{System: migration.SystemDnD5e})

	details := func(alignment string) map[string]any {
		return map[string]any{"details": map[string]any{"alignment": alignment}}
	}
	assert.True(t, run(t, out.System.Script, details("Lawful Good")))
	assert.False(t, run(t, out.System.Script, details("Chaotic Evil")))
	assert.False(t, run(t, out.System.Script, nil))
}

func TestTransformLegacy_CreatureType(t *testing.T) {
	t.Run("dnd5e", func(t *testing.T) {
		out, _ := migration.TransformLegacy(legacyEffect(map[string]any{"isAura": true, "type": "Undead;Fiend"}), migration.LegacyOptions{System: migration.SystemDnD5e})
		creature := func(kind, race string) map[string]any {
			return map[string]any{"details": map[string]any{
				"type": map[string]any{"value": kind, "subtype": ""},
				"race": map[string]any{"name": race},
			}}
		}
		assert.True(t, run(t, out.System.Script, creature("undead", "")))
		assert.True(t, run(t, out.System.Script, creature("humanoid", "Fiend")))
		assert.False(t, run(t, out.System.Script, creature("humanoid", "Human")))
	})

	t.Run("swade", func(t *testing.T) {
		out, _ := migration.TransformLegacy(legacyEffect(map[string]any{"isAura": true, "type": "orc"}), migration.LegacyOptions{System: migration.SystemSWADE})
		orc := map[string]any{"details": map[string]any{"species": map[string]any{"name": "Orc"}}}
		elf := map[string]any{"details": map[string]any{"species": map[string]any{"name": "Elf"}}}
		assert.True(t, run(t, out.System.Script, orc))
		assert.False(t, run(t, out.System.Script, elf))
	})

	t.Run("dnd4e", func(t *testing.T) {
		out, _ := migration.TransformLegacy(legacyEffect(map[string]any{"isAura": true, "type": "shadow"}), migration.LegacyOptions{System: migration.SystemDnD4e})
		assert.True(t, run(t, out.System.Script, map[string]any{"details": map[string]any{"origin": "Shadow"}}))
		assert.False(t, run(t, out.System.Script, map[string]any{"details": map[string]any{"type": "Beast"}}))
	})

	t.Run("unsupported system drops the check", func(t *testing.T) {
		out, _ := migration.TransformLegacy(legacyEffect(map[string]any{"isAura": true, "type": "undead"}), migration.LegacyOptions{System: "pf2e"})
		assert.Empty(t, out.System.Script)
	})
}

func TestTransformLegacy_Wildcard(t *testing.T) {
	wildcardOnly, _ := migration.TransformLegacy(legacyEffect(map[string]any{"isAura": true, "wildcard": true}), migration.LegacyOptions{System: migration.SystemSWADE})
	extrasOnly, _ := migration.TransformLegacy(legacyEffect(map[string]any{"isAura": true, "extra": true}), migration.LegacyOptions{System: migration.SystemSWADE})
	both, _ := migration.TransformLegacy(legacyEffect(map[string]any{"isAura": true, "wildcard": true, "extra": true}), migration.LegacyOptions{System: migration.SystemSWADE})

	hero := map[string]any{"wildcard": true}
	mook := map[string]any{"wildcard": false}

	assert.True(t, run(t, wildcardOnly.System.Script, hero))
	assert.False(t, run(t, wildcardOnly.System.Script, mook))
	assert.False(t, run(t, extrasOnly.System.Script, hero))
	assert.True(t, run(t, extrasOnly.System.Script, mook))
	assert.Empty(t, both.System.Script)
}

func TestTransformLegacy_CombinesConditions(t *testing.T) {
	out, _ := migration.TransformLegacy(legacyEffect(map[string]any{
		"isAura":      true,
		"customCheck": "token.disposition == 1",
		"alignment":   "evil",
		"type":        "fiend",
	}), migration.LegacyOptions{System: migration.SystemDnD5e})

	evilFiend := map[string]any{"details": map[string]any{
		"alignment": "Lawful Evil",
		"type":      map[string]any{"value": "fiend"},
	}}
	goodFiend := map[string]any{"details": map[string]any{
		"alignment": "Lawful Good",
		"type":      map[string]any{"value": "fiend"},
	}}
	assert.True(t, run(t, out.System.Script, evilFiend))
	assert.False(t, run(t, out.System.Script, goodFiend))
}
