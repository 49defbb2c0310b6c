// Package match implements the specificity-ranked dimension matcher used
// to resolve which eligibility or merch volume candidate row applies to a
// context row (an inventory stand or a disturbance event).
//
// A candidate is compatible with a context iff every non-nil candidate
// dimension equals the context value for that column. Nil on the candidate
// side is a wildcard; nil on the context side never satisfies a non-nil
// filter. Compatible candidates are ranked by specificity (count of non-nil
// dimensions, higher wins) and ties are broken by lexicographic comparison
// of the dimension tuple in fixed column order, nil sorting before any
// value. Candidates whose tuples are identical cannot be separated: the
// match is classified ambiguous and the first-constructed row wins so
// downstream processing stays deterministic.
package match

import (
	"github.com/silvics/cbmconv/internal/schema"
)

// Outcome classifies a match result.
type Outcome int

const (
	// NoMatch means no candidate was compatible with the context.
	NoMatch Outcome = iota
	// Matched means exactly one candidate won the specificity rank.
	Matched
	// Ambiguous means more than one candidate shared the winning rank
	// with an identical dimension tuple. The first-constructed of them is
	// still reported as the winner.
	Ambiguous
)

// String returns the outcome name used in logs and issue messages.
func (o Outcome) String() string {
	switch o {
	case Matched:
		return "matched"
	case Ambiguous:
		return "ambiguous"
	default:
		return "no match"
	}
}

// Candidate pairs a candidate row's id with its dimension filters.
type Candidate struct {
	ID   int64
	Dims schema.Dimensions
}

// Result is the outcome of matching one context against a candidate table.
type Result struct {
	Outcome     Outcome
	CandidateID int64 // winning candidate id; 0 when Outcome is NoMatch
	Specificity int   // winning candidate's specificity
}

// Best returns the single best-matching candidate for the context.
// Candidates must be supplied in construction order; that order is the
// final tie-break for indistinguishable tuples.
func Best(context schema.Dimensions, candidates []Candidate) Result {
	winner := -1
	ambiguous := false

	for i, cand := range candidates {
		if !compatible(context, cand.Dims) {
			continue
		}
		if winner < 0 {
			winner = i
			ambiguous = false
			continue
		}
		switch rank(cand.Dims, candidates[winner].Dims) {
		case rankHigher:
			winner = i
			ambiguous = false
		case rankEqual:
			// Identical specificity and identical tuple: the earlier
			// candidate keeps winning, but the match is ambiguous.
			ambiguous = true
		}
	}

	if winner < 0 {
		return Result{Outcome: NoMatch}
	}
	out := Matched
	if ambiguous {
		out = Ambiguous
	}
	return Result{
		Outcome:     out,
		CandidateID: candidates[winner].ID,
		Specificity: candidates[winner].Dims.Specificity(),
	}
}

// compatible reports whether every non-nil candidate dimension equals the
// context's value for that column.
func compatible(context, candidate schema.Dimensions) bool {
	ctxCols := context.Columns()
	for i, filter := range candidate.Columns() {
		if filter == nil {
			continue // wildcard
		}
		if ctxCols[i] == nil || *ctxCols[i] != *filter {
			return false
		}
	}
	return true
}

type rankResult int

const (
	rankLower  rankResult = iota // a ranks below b
	rankEqual                    // same specificity, identical tuple
	rankHigher                   // a ranks above b
)

// rank orders candidate a against candidate b: higher specificity wins,
// then the lexicographically smaller dimension tuple (nil before any
// value) wins. rankEqual is returned only for identical tuples.
func rank(a, b schema.Dimensions) rankResult {
	sa, sb := a.Specificity(), b.Specificity()
	if sa != sb {
		if sa > sb {
			return rankHigher
		}
		return rankLower
	}
	switch CompareTuples(a, b) {
	case -1:
		return rankHigher
	case 1:
		return rankLower
	default:
		return rankEqual
	}
}

// CompareTuples lexicographically compares two dimension tuples in fixed
// column order, treating nil as sorting before any non-nil value. Returns
// -1, 0 or 1. Distinct tuples never compare equal, so the tie-break is a
// strict total order.
func CompareTuples(a, b schema.Dimensions) int {
	ac, bc := a.Columns(), b.Columns()
	for i := range ac {
		av, bv := ac[i], bc[i]
		switch {
		case av == nil && bv == nil:
			continue
		case av == nil:
			return -1
		case bv == nil:
			return 1
		case *av < *bv:
			return -1
		case *av > *bv:
			return 1
		}
	}
	return 0
}
