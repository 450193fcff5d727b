// Package dice rolls the dice terms ("2d6", "d8") that may appear in aura
// formulas.
package dice

//go:generate mockgen -destination=mock/mock_roller.go -package=mockdice -source=roller.go

import (
	"regexp"
	"strconv"

	"github.com/KirkDiggler/auras/internal/errors"
)

// MaxCount caps the dice rolled for a single term
const MaxCount = 100

var termPattern = regexp.MustCompile(`\b(\d*)d(\d+)\b`)

// Term is a count of dice with the same number of sides
type Term struct {
	Count int
	Sides int
}

func (t Term) String() string {
	return strconv.Itoa(t.Count) + "d" + strconv.Itoa(t.Sides)
}

// Validate rejects terms that cannot be rolled
func (t Term) Validate() error {
	if t.Count < 1 || t.Count > MaxCount {
		return errors.InvalidArgumentf("dice count %d out of range in %s", t.Count, t)
	}
	if t.Sides < 1 {
		return errors.InvalidArgumentf("invalid die size in %s", t)
	}
	return nil
}

// Result is the outcome of one term
type Result struct {
	Term  Term
	Rolls []int
	Total int
}

// Roller rolls dice terms
type Roller interface {
	Roll(term Term) (*Result, error)
}

// ReplaceTerms rolls every dice term in expr and substitutes its total. A
// bare "d8" rolls one die.
func ReplaceTerms(expr string, roller Roller) (string, error) {
	var firstErr error
	out := termPattern.ReplaceAllStringFunc(expr, func(match string) string {
		m := termPattern.FindStringSubmatch(match)
		term := Term{Count: 1}
		if m[1] != "" {
			term.Count, _ = strconv.Atoi(m[1])
		}
		term.Sides, _ = strconv.Atoi(m[2])

		var err error
		var result *Result
		switch {
		case roller == nil:
			err = errors.InvalidArgumentf("dice term %q without a roller", match)
		default:
			if err = term.Validate(); err == nil {
				result, err = roller.Roll(term)
			}
		}
		if err != nil {
			if firstErr == nil {
				firstErr = errors.Wrapf(err, "roll %s", match)
			}
			return "0"
		}
		return strconv.Itoa(result.Total)
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}

// HasTerms reports whether expr contains a dice term
func HasTerms(expr string) bool {
	return termPattern.MatchString(expr)
}
