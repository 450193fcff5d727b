package formula_test

import (
	"sync"
	"testing"

	mockdice "github.com/KirkDiggler/auras/internal/dice/mock"
	"github.com/KirkDiggler/auras/internal/errors"
	"github.com/KirkDiggler/auras/internal/formula"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var rollData = map[string]any{
	"prof": 3,
	"abilities": map[string]any{
		"cha": map[string]any{"mod": 4.0},
		"wis": map[string]any{"mod": -1},
	},
	"details": map[string]any{"level": int64(7), "aura": "10 + 5"},
	"blank":   "",
	"flag":    true,
}

func TestEvaluator_Evaluate(t *testing.T) {
	eval := formula.NewEvaluator(nil)

	tests := []struct {
		name    string
		formula string
		want    float64
	}{
		{name: "constant", formula: "10", want: 10},
		{name: "reference", formula: "@prof * 5", want: 15},
		{name: "nested reference", formula: "@abilities.cha.mod + @abilities.wis.mod", want: 3},
		{name: "missing reference is zero", formula: "@abilities.str.mod + 2", want: 2},
		{name: "string reference is inlined", formula: "@details.aura * 2", want: 30},
		{name: "blank string is zero", formula: "@blank + 1", want: 1},
		{name: "bool reference", formula: "@flag * 10", want: 10},
		{name: "int64 reference", formula: "@details.level", want: 7},
		{name: "helpers", formula: "max(10, @prof * 5, 12) + floor(2.7) - ceil(0.2) + abs(-1)", want: 17},
		{name: "min and round", formula: "min(3, 1, 2) + round(1.5)", want: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := eval.Evaluate(tt.formula, rollData)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluator_Failures(t *testing.T) {
	eval := formula.NewEvaluator(nil)

	for _, f := range []string{"", "   ", "10 +", "'ten'", "1 / 0", "nil", "os.exit()", "1d4"} {
		_, err := eval.Evaluate(f, rollData)
		assert.Error(t, err, f)
		assert.Zero(t, eval.EvaluateOrZero(f, rollData), f)
	}

	_, err := eval.Evaluate("10 +", nil)
	assert.True(t, errors.IsInvalidArgument(err))
}

func TestEvaluator_Dice(t *testing.T) {
	eval := formula.NewEvaluator(mockdice.NewSequence(3, 2, 5))

	got, err := eval.Evaluate("1d4 + 2d6 + @prof", rollData)
	require.NoError(t, err)
	assert.Equal(t, 13.0, got)

	_, err = eval.Evaluate("d8", rollData)
	assert.Error(t, err, "roller exhausted")
}

func TestEvaluator_Concurrent(t *testing.T) {
	eval := formula.NewEvaluator(nil)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := eval.Evaluate("@prof * 5", rollData)
			assert.NoError(t, err)
			assert.Equal(t, 15.0, got)
		}()
	}
	wg.Wait()
}

func TestHasReferences(t *testing.T) {
	assert.True(t, formula.HasReferences("@abilities.cha.mod"))
	assert.False(t, formula.HasReferences("+2"))
	assert.False(t, formula.HasReferences("advantage"))
}
