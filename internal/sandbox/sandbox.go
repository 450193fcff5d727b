// Package sandbox builds restricted Lua states for user-authored formulas and
// predicates. Only the base, string, math and table libraries are loaded;
// anything that can reach the filesystem, load code or escape the state is
// removed.
package sandbox

import (
	"fmt"
	"sort"

	"github.com/Shopify/go-lua"
)

// DefaultInstructionBudget bounds a single protected call
const DefaultInstructionBudget = 100000

const maxPushDepth = 16

var unsafeGlobals = []string{
	"collectgarbage",
	"dofile",
	"load",
	"loadfile",
	"loadstring",
	"print",
	"rawequal",
	"rawget",
	"rawlen",
	"rawset",
	"require",
}

var libraries = []lua.RegistryFunction{
	{Name: "_G", Function: lua.BaseOpen},
	{Name: "string", Function: lua.StringOpen},
	{Name: "math", Function: lua.MathOpen},
	{Name: "table", Function: lua.TableOpen},
}

// NewState returns a Lua state with the restricted library set
func NewState() *lua.State {
	l := lua.NewState()
	for _, lib := range libraries {
		lua.Require(l, lib.Name, lib.Function, true)
		l.Pop(1)
	}
	for _, name := range unsafeGlobals {
		l.PushNil()
		l.SetGlobal(name)
	}

	// hide the shared string library behind getmetatable("")
	l.PushString("")
	if l.MetaTable(-1) {
		l.PushBoolean(false)
		l.SetField(-2, "__metatable")
		l.Pop(1)
	}
	l.Pop(1)
	return l
}

// PushEnv pushes a fresh environment table: a copy of the state's globals,
// library tables included, with bindings set on top. Writes made through it
// never reach the globals or a later environment.
func PushEnv(l *lua.State, bindings map[string]any) {
	l.NewTable()
	env := l.Top()
	l.PushGlobalTable()
	globals := l.Top()
	l.PushNil()
	for l.Next(globals) {
		if l.RawEqual(-1, globals) {
			l.Pop(1)
			continue
		}
		if l.IsTable(-1) {
			copyTable(l, -1)
			l.Remove(-2)
		}
		l.PushValue(-2)
		l.Insert(-2)
		l.RawSet(env)
	}
	l.Pop(1)

	l.PushValue(env)
	l.SetField(env, "_G")
	for name, v := range bindings {
		Push(l, v)
		l.SetField(env, name)
	}
}

func copyTable(l *lua.State, index int) {
	index = l.AbsIndex(index)
	l.NewTable()
	l.PushNil()
	for l.Next(index) {
		l.PushValue(-2)
		l.Insert(-2)
		l.RawSet(-4)
	}
}

// ProtectedCallIn runs the chunk on top of the stack against a fresh
// environment holding bindings (see PushEnv), under the instruction budget
func ProtectedCallIn(l *lua.State, bindings map[string]any, results, budget int) error {
	chunk := l.AbsIndex(-1)
	PushEnv(l, bindings)
	if _, ok := lua.SetUpValue(l, chunk, 1); !ok {
		l.Pop(1)
	}
	return ProtectedCall(l, 0, results, budget)
}

// ProtectedCall calls the function below the arguments on the stack with an
// instruction budget; exceeding it raises a Lua error caught by the call.
func ProtectedCall(l *lua.State, args, results, budget int) error {
	if budget <= 0 {
		return l.ProtectedCall(args, results, 0)
	}
	lua.SetDebugHook(l, func(state *lua.State, _ lua.Debug) {
		lua.Errorf(state, "instruction budget of %d exceeded", budget)
	}, lua.MaskCount, budget)
	defer lua.SetDebugHook(l, nil, 0, 0)
	return l.ProtectedCall(args, results, 0)
}

// Push converts a Go value into its Lua equivalent. Maps become tables with
// string keys, slices become sequences, unknown types become strings.
func Push(l *lua.State, v any) {
	push(l, v, 0)
}

func push(l *lua.State, v any, depth int) {
	if depth > maxPushDepth {
		l.PushNil()
		return
	}
	switch val := v.(type) {
	case nil:
		l.PushNil()
	case bool:
		l.PushBoolean(val)
	case int:
		l.PushNumber(float64(val))
	case int32:
		l.PushNumber(float64(val))
	case int64:
		l.PushNumber(float64(val))
	case float32:
		l.PushNumber(float64(val))
	case float64:
		l.PushNumber(val)
	case string:
		l.PushString(val)
	case []string:
		l.NewTable()
		for i, s := range val {
			l.PushString(s)
			l.RawSetInt(-2, i+1)
		}
	case []any:
		l.NewTable()
		for i, item := range val {
			push(l, item, depth+1)
			l.RawSetInt(-2, i+1)
		}
	case map[string]any:
		l.NewTable()
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			push(l, val[k], depth+1)
			l.SetField(-2, k)
		}
	default:
		l.PushString(fmt.Sprint(val))
	}
}
