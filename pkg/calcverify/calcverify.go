// Package calcverify defines the arithmetic-claim verification capability
// and ships a local evaluator for it.
//
// The engine treats the verifier as an optional external collaborator: a
// nil Verifier (or a failing one) degrades gracefully and is never fatal.
// The local evaluator handles plain binary arithmetic claims of the form
// "A op B = C" found in free text; anything it cannot parse is reported as
// a low-confidence unparseable item rather than aborting the batch.
//
// Example Usage:
//
//	v := calcverify.NewLocalVerifier()
//	results, _ := v.EvaluateClaims(ctx, "We measured 12 * 4 = 48 and 7 + 2 = 10.")
//	for _, r := range results {
//		fmt.Printf("%s -> correct=%v (computed %s, claimed %s)\n",
//			r.Expression, r.IsCorrect, r.Computed, r.Claimed)
//	}
//	// 12 * 4 = 48 -> correct=true
//	// 7 + 2 = 10 -> correct=false (computed 9)
package calcverify

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Result is the outcome of checking one arithmetic claim.
type Result struct {
	Expression string  `json:"expression"`
	Computed   string  `json:"computed"`
	Claimed    string  `json:"claimed"`
	IsCorrect  bool    `json:"isCorrect"`
	Confidence float64 `json:"confidence"`

	// Unparseable marks expressions the evaluator could not compute.
	// These carry low confidence and never count as correct.
	Unparseable bool `json:"unparseable,omitempty"`
}

// Verifier detects and evaluates arithmetic claims in text.
type Verifier interface {
	EvaluateClaims(ctx context.Context, text string) ([]Result, error)
}

// claimPattern matches "A op B = C" with decimal numbers.
var claimPattern = regexp.MustCompile(
	`(-?\d+(?:[.,]\d+)?)\s*([-+*/×÷^])\s*(-?\d+(?:[.,]\d+)?)\s*=\s*(-?\d+(?:[.,]\d+)?)`)

// LocalVerifier evaluates binary arithmetic claims without any external
// dependency. Stateless and safe for concurrent use.
type LocalVerifier struct {
	// Tolerance is the maximum absolute error accepted when comparing the
	// computed value against the claimed one. Covers rounded percentages.
	Tolerance float64
}

// NewLocalVerifier returns a verifier with a 0.005 comparison tolerance.
func NewLocalVerifier() *LocalVerifier {
	return &LocalVerifier{Tolerance: 0.005}
}

// EvaluateClaims finds every arithmetic claim in text and checks it.
// A claim that cannot be evaluated (division by zero, overflow) becomes an
// unparseable low-confidence item; the rest of the batch still completes.
func (v *LocalVerifier) EvaluateClaims(ctx context.Context, text string) ([]Result, error) {
	matches := claimPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil, nil
	}

	results := make([]Result, 0, len(matches))
	for _, m := range matches {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		expr := strings.Join(strings.Fields(m[0]), " ")
		a, errA := parseNumber(m[1])
		b, errB := parseNumber(m[3])
		claimed, errC := parseNumber(m[4])
		if errA != nil || errB != nil || errC != nil {
			results = append(results, unparseable(expr, m[4]))
			continue
		}

		computed, err := apply(a, m[2], b)
		if err != nil || math.IsNaN(computed) || math.IsInf(computed, 0) {
			results = append(results, unparseable(expr, m[4]))
			continue
		}

		results = append(results, Result{
			Expression: expr,
			Computed:   formatNumber(computed),
			Claimed:    formatNumber(claimed),
			IsCorrect:  math.Abs(computed-claimed) <= v.Tolerance,
			Confidence: 0.95,
		})
	}
	return results, nil
}

func unparseable(expr, claimed string) Result {
	return Result{
		Expression:  expr,
		Claimed:     claimed,
		Confidence:  0.1,
		Unparseable: true,
	}
}

func apply(a float64, op string, b float64) (float64, error) {
	switch op {
	case "+":
		return a + b, nil
	case "-":
		return a - b, nil
	case "*", "×":
		return a * b, nil
	case "/", "÷":
		if b == 0 {
			return 0, fmt.Errorf("division by zero")
		}
		return a / b, nil
	case "^":
		return math.Pow(a, b), nil
	}
	return 0, fmt.Errorf("unknown operator %q", op)
}

func parseNumber(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
