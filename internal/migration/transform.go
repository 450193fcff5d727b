// Package migration converts effect data written by earlier aura modules into
// the current schema, and runs versioned migrations once per installation.
package migration

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/KirkDiggler/auras/internal/effects"
	"github.com/KirkDiggler/auras/internal/scene"
)

// Game systems with a creature-type check
const (
	SystemDnD5e = "dnd5e"
	SystemSWADE = "swade"
	SystemDnD4e = "dnd4e"
)

// LegacyOptions carries the installation state the legacy transform depends on
type LegacyOptions struct {
	// System is the game system ID, e.g. "dnd5e"
	System string
	// WallsBlock is the predecessor's global "walls block auras" setting
	WallsBlock bool
}

// legacyFlags is the predecessor's flag bag with its defaults applied
type legacyFlags struct {
	isAura       bool
	applied      bool
	creature     string
	customCheck  string
	alignment    string
	radius       string
	nameOverride string
	wallsBlock   string
	ignoreSelf   bool
	aura         string
	statuses     []string
	wildcard     bool
	extra        bool
	hidden       bool
}

func readLegacy(m map[string]any) legacyFlags {
	return legacyFlags{
		isAura:       boolFlag(m, "isAura", false),
		applied:      boolFlag(m, "applied", false),
		creature:     stringFlag(m, "type", ""),
		customCheck:  stringFlag(m, "customCheck", ""),
		alignment:    stringFlag(m, "alignment", ""),
		radius:       stringFlag(m, "radius", "0"),
		nameOverride: stringFlag(m, "nameOverride", ""),
		wallsBlock:   stringFlag(m, "wallsBlock", "system"),
		ignoreSelf:   boolFlag(m, "ignoreSelf", false),
		aura:         stringFlag(m, "aura", "All"),
		statuses:     stringsFlag(m, "statuses"),
		wildcard:     boolFlag(m, "wildcard", false),
		extra:        boolFlag(m, "extra", false),
		hidden:       boolFlag(m, "hidden", true),
	}
}

// TransformLegacy converts one effect carrying predecessor flags. The input
// is not modified. Reports false when the effect has no legacy flags.
func TransformLegacy(e *effects.Effect, opts LegacyOptions) (*effects.Effect, bool) {
	if e.Flags.Legacy == nil {
		return nil, false
	}
	old := readLegacy(e.Flags.Legacy)
	out := e.Clone()
	out.Statuses = mergeStatuses(e.Statuses, old.statuses)

	switch {
	case old.isAura:
		if out.Type != effects.TypeAura && out.Type != effects.TypeBase && out.Type != "" {
			out.Flags.OriginalType = out.Type
		}
		out.Type = effects.TypeAura
		sys := effects.DefaultAuraData()
		sys.ApplyToSelf = !old.ignoreSelf
		sys.CollisionTypes = collisionTypes(old.wallsBlock, opts.WallsBlock)
		sys.DisableOnHidden = old.hidden
		sys.DistanceFormula = radiusFormula(old.radius)
		sys.Disposition = disposition(old.aura)
		sys.OverrideName = old.nameOverride
		sys.Script = buildScript(old, opts.System)
		out.System = sys
		out.Flags.Legacy = nil
	case old.applied:
		out.Flags.FromAura = true
		out.Flags.Legacy = nil
	}
	return out, true
}

func collisionTypes(wallsBlock string, global bool) []scene.CollisionType {
	switch wallsBlock {
	case "system":
		if global {
			return []scene.CollisionType{scene.CollisionMove}
		}
	case "true":
		return []scene.CollisionType{scene.CollisionMove}
	}
	return []scene.CollisionType{}
}

func disposition(aura string) effects.Disposition {
	switch aura {
	case "All":
		return effects.DispositionAny
	case "Allies":
		return effects.DispositionFriendly
	}
	return effects.DispositionHostile
}

// radiusFormula keeps numeric radii as plain numbers and other values as
// formulas
func radiusFormula(radius string) string {
	r := strings.TrimSpace(radius)
	if r == "" {
		return "0"
	}
	if n, err := strconv.ParseFloat(r, 64); err == nil {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	return r
}

func mergeStatuses(current, legacy []string) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, s := range append(append([]string{}, current...), legacy...) {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// buildScript joins the predecessor's conditions into one Lua chunk that
// starts with an explicit return
func buildScript(old legacyFlags, system string) string {
	var clauses []string
	if check := translateCheck(old.customCheck); check != "" {
		clauses = append(clauses, check)
	}
	if old.alignment != "" {
		clauses = append(clauses, fmt.Sprintf(
			`string.find(string.lower(tostring(((actor.system or {}).details or {}).alignment or "")), %s, 1, true) ~= nil`,
			strconv.Quote(strings.ToLower(old.alignment))))
	}
	if old.creature != "" {
		if check := creatureCheck(system, strings.ToLower(old.creature)); check != "" {
			clauses = append(clauses, check)
		}
	}
	if system == SystemSWADE && old.wildcard != old.extra {
		if old.wildcard {
			clauses = append(clauses, `(actor.system or {}).wildcard == true`)
		} else {
			clauses = append(clauses, `not (actor.system or {}).wildcard`)
		}
	}
	if len(clauses) == 0 {
		return ""
	}
	if len(clauses) == 1 {
		return "return " + clauses[0]
	}
	return "return (" + strings.Join(clauses, ") and (") + ")"
}

// creatureCheck matches the target's creature type against a ";"-separated
// allow list. Each system keeps the type in different fields.
func creatureCheck(system, allowed string) string {
	var fields string
	switch system {
	case SystemDnD5e:
		fields = `local d = (actor.system or {}).details or {}
	if type(d.type) == "table" then for _, v in pairs(d.type) do add(v) end end
	if type(d.race) == "table" then add(d.race.name) end`
	case SystemSWADE:
		fields = `local d = (actor.system or {}).details or {}
	if type(d.species) == "table" then add(d.species.name) end`
	case SystemDnD4e:
		fields = `local d = (actor.system or {}).details or {}
	add(d.type) add(d.other) add(d.origin)`
	default:
		return ""
	}
	var entries []string
	for _, t := range strings.Split(allowed, ";") {
		if t = strings.TrimSpace(t); t != "" {
			entries = append(entries, "["+strconv.Quote(t)+"] = true")
		}
	}
	if len(entries) == 0 {
		return ""
	}
	return fmt.Sprintf(`(function()
	local allowed = {%s}
	local found = false
	local function add(v)
		if type(v) == "string" and allowed[string.lower(v)] then found = true end
	end
	%s
	return found
end)()`, strings.Join(entries, ", "), fields)
}

var checkReplacer = strings.NewReplacer(
	"!==", " ~= ",
	"===", " == ",
	"!=", " ~= ",
	"&&", " and ",
	"||", " or ",
	"?.", ".",
)

// translateCheck rewrites a predecessor expression into Lua. The rewrite is
// token level; anything it cannot express fails at runtime and the predicate
// then passes.
func translateCheck(check string) string {
	check = strings.TrimSpace(check)
	if check == "" {
		return ""
	}
	check = strings.ReplaceAll(check, "sourceToken", "sourceTokenOld")
	check = strings.ReplaceAll(check, "auraEntity", "sourceToken")
	check = checkReplacer.Replace(check)
	check = strings.ReplaceAll(check, "!", " not ")
	return strings.Join(strings.Fields(check), " ")
}

func boolFlag(m map[string]any, key string, def bool) bool {
	switch v := m[key].(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func stringFlag(m map[string]any, key, def string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return def
}

func stringsFlag(m map[string]any, key string) []string {
	var out []string
	switch v := m[key].(type) {
	case []string:
		out = append(out, v...)
	case []any:
		for _, s := range v {
			if str, ok := s.(string); ok {
				out = append(out, str)
			}
		}
	}
	return out
}
