// Package formula resolves roll formulas ("@abilities.cha.mod * 5", "1d4 + 2")
// against an actor's roll data.
package formula

import (
	"log"
	"math"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/Shopify/go-lua"

	"github.com/KirkDiggler/auras/internal/dice"
	"github.com/KirkDiggler/auras/internal/errors"
	"github.com/KirkDiggler/auras/internal/sandbox"
)

const instructionBudget = 10000

var referencePattern = regexp.MustCompile(`@([A-Za-z_][A-Za-z0-9_.\-]*)`)

var helpers = map[string]lua.Function{
	"floor": func(l *lua.State) int { l.PushNumber(math.Floor(lua.CheckNumber(l, 1))); return 1 },
	"ceil":  func(l *lua.State) int { l.PushNumber(math.Ceil(lua.CheckNumber(l, 1))); return 1 },
	"round": func(l *lua.State) int { l.PushNumber(math.Round(lua.CheckNumber(l, 1))); return 1 },
	"abs":   func(l *lua.State) int { l.PushNumber(math.Abs(lua.CheckNumber(l, 1))); return 1 },
	"sqrt":  func(l *lua.State) int { l.PushNumber(math.Sqrt(lua.CheckNumber(l, 1))); return 1 },
	"max":   func(l *lua.State) int { l.PushNumber(fold(l, math.Max)); return 1 },
	"min":   func(l *lua.State) int { l.PushNumber(fold(l, math.Min)); return 1 },
}

func fold(l *lua.State, f func(a, b float64) float64) float64 {
	acc := lua.CheckNumber(l, 1)
	for i := 2; i <= l.Top(); i++ {
		acc = f(acc, lua.CheckNumber(l, i))
	}
	return acc
}

// Evaluator resolves formulas. It is safe for concurrent use.
type Evaluator struct {
	mu     sync.Mutex
	state  *lua.State
	roller dice.Roller
}

// NewEvaluator creates an evaluator rolling dice terms with roller
func NewEvaluator(roller dice.Roller) *Evaluator {
	l := sandbox.NewState()
	for name, fn := range helpers {
		l.PushGoFunction(fn)
		l.SetGlobal(name)
	}
	return &Evaluator{state: l, roller: roller}
}

// Evaluate resolves formula against data and returns its numeric total
func (e *Evaluator) Evaluate(formula string, data map[string]any) (float64, error) {
	expr, err := e.Substitute(formula, data)
	if err != nil {
		return 0, err
	}
	if expr == "" {
		return 0, errors.InvalidArgumentf("empty formula")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	l := e.state
	defer l.SetTop(0)
	if err := lua.LoadString(l, "return ("+expr+")"); err != nil {
		return 0, errors.WrapWithCode(err, errors.CodeInvalidArgument, "compile formula "+strconv.Quote(formula))
	}
	if err := sandbox.ProtectedCallIn(l, nil, 1, instructionBudget); err != nil {
		return 0, errors.WrapWithCode(err, errors.CodeInvalidArgument, "evaluate formula "+strconv.Quote(formula))
	}
	if l.TypeOf(-1) != lua.TypeNumber {
		return 0, errors.InvalidArgumentf("formula %q is not numeric", formula)
	}
	n, _ := l.ToNumber(-1)
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, errors.InvalidArgumentf("formula %q is not finite", formula)
	}
	return n, nil
}

// EvaluateOrZero is Evaluate with failures treated as zero
func (e *Evaluator) EvaluateOrZero(formula string, data map[string]any) float64 {
	n, err := e.Evaluate(formula, data)
	if err != nil {
		log.Printf("Formula: %v, using 0", err)
		return 0
	}
	return n
}

// Substitute replaces "@path" references with roll data values (missing
// references become 0) and dice terms with rolled totals.
func (e *Evaluator) Substitute(formula string, data map[string]any) (string, error) {
	expr := referencePattern.ReplaceAllStringFunc(strings.TrimSpace(formula), func(ref string) string {
		return resolveReference(data, strings.TrimSuffix(ref[1:], "."))
	})
	return dice.ReplaceTerms(expr, e.roller)
}

// HasReferences reports whether the value references roll data
func HasReferences(value string) bool {
	return referencePattern.MatchString(value)
}

func resolveReference(data map[string]any, path string) string {
	var cur any = data
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return "0"
		}
		cur, ok = m[part]
		if !ok {
			return "0"
		}
	}
	switch v := cur.(type) {
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		if v {
			return "1"
		}
		return "0"
	case string:
		if strings.TrimSpace(v) == "" {
			return "0"
		}
		return "(" + v + ")"
	}
	return "0"
}
