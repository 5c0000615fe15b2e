package negotiation

import (
	"math"
	"strconv"
	"strings"

	"github.com/antzucaro/matchr"

	"github.com/callistoworks/parley/pkg/types"
)

// Tolerance tunes when two claim values count as "different".
type Tolerance struct {
	// NumericEpsilon is the maximum relative difference between two numeric
	// claims before they conflict. 500 vs 500.0001 is a rounding artifact,
	// not a changed story.
	NumericEpsilon float64

	// FuzzyThreshold is the Jaro-Winkler similarity above which two
	// categorical values are treated as the same claim retold with a typo.
	FuzzyThreshold float64
}

// DefaultTolerance returns the standard comparison tolerance.
func DefaultTolerance() Tolerance {
	return Tolerance{
		NumericEpsilon: 0.01,
		FuzzyThreshold: 0.92,
	}
}

// CheckContradictions compares each incoming claim against every existing
// claim in the same slot, and incoming claims against each other, returning
// one ContradictionRef per conflicting pair. Restating an earlier claim never
// flags, and near-duplicates under the fuzzy threshold are treated as
// restatements. A player can contradict themselves within a single response,
// so incoming pairs count too. Stateless: callers own the claim history.
func CheckContradictions(existing, incoming []types.Claim, tol Tolerance) []types.ContradictionRef {
	var refs []types.ContradictionRef
	for i, in := range incoming {
		for _, ex := range existing {
			refs = appendConflict(refs, ex, in, tol)
		}
		for _, prev := range incoming[:i] {
			refs = appendConflict(refs, prev, in, tol)
		}
	}
	return refs
}

func appendConflict(refs []types.ContradictionRef, prior, next types.Claim, tol Tolerance) []types.ContradictionRef {
	if prior.Slot != next.Slot || !claimsConflict(prior, next, tol) {
		return refs
	}
	return append(refs, types.ContradictionRef{
		Slot:       next.Slot,
		PriorTurn:  prior.Turn,
		PriorValue: claimValue(prior),
		NewTurn:    next.Turn,
		NewValue:   claimValue(next),
	})
}

func claimsConflict(prior, next types.Claim, tol Tolerance) bool {
	if prior.IsNumber && next.IsNumber {
		return relativeDiff(prior.Number, next.Number) > tol.NumericEpsilon
	}
	a := normalizeValue(prior.Value)
	b := normalizeValue(next.Value)
	if a == b || a == "" || b == "" {
		return false
	}
	// A typo'd repeat of the same value is not a new story.
	return matchr.JaroWinkler(a, b, true) < tol.FuzzyThreshold
}

func relativeDiff(a, b float64) float64 {
	diff := math.Abs(a - b)
	scale := math.Max(math.Abs(a), math.Abs(b))
	if scale == 0 {
		return 0
	}
	return diff / scale
}

func normalizeValue(v string) string {
	return strings.Join(strings.Fields(strings.ToLower(v)), " ")
}

func claimValue(c types.Claim) string {
	if c.IsNumber {
		return strconv.FormatFloat(c.Number, 'f', -1, 64)
	}
	return c.Value
}
