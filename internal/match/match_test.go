package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/silvics/cbmconv/internal/schema"
)

func dims(mutate func(*schema.Dimensions)) schema.Dimensions {
	var d schema.Dimensions
	if mutate != nil {
		mutate(&d)
	}
	return d
}

func TestBest_SpecificityWins(t *testing.T) {
	// Context (spuid=5, classifier_set_id=2, others nil) against:
	//   A: spuid=5                      (specificity 1)
	//   B: spuid=5 & classifier_set=2   (specificity 2)
	//   C: classifier_set=2             (specificity 1)
	// B must win.
	context := dims(func(d *schema.Dimensions) {
		d.SPUID = schema.ID(5)
		d.ClassifierSetID = schema.ID(2)
	})
	candidates := []Candidate{
		{ID: 1, Dims: dims(func(d *schema.Dimensions) { d.SPUID = schema.ID(5) })},
		{ID: 2, Dims: dims(func(d *schema.Dimensions) {
			d.SPUID = schema.ID(5)
			d.ClassifierSetID = schema.ID(2)
		})},
		{ID: 3, Dims: dims(func(d *schema.Dimensions) { d.ClassifierSetID = schema.ID(2) })},
	}

	result := Best(context, candidates)
	assert.Equal(t, Matched, result.Outcome)
	assert.Equal(t, int64(2), result.CandidateID)
	assert.Equal(t, 2, result.Specificity)
}

func TestBest_WildcardCandidateMatchesAnything(t *testing.T) {
	context := dims(func(d *schema.Dimensions) { d.ClassifierSetID = schema.ID(9) })
	candidates := []Candidate{{ID: 7, Dims: dims(nil)}}

	result := Best(context, candidates)
	assert.Equal(t, Matched, result.Outcome)
	assert.Equal(t, int64(7), result.CandidateID)
	assert.Equal(t, 0, result.Specificity)
}

func TestBest_NilContextNeverSatisfiesFilter(t *testing.T) {
	// Candidate filters on spuid, context has no spuid.
	context := dims(func(d *schema.Dimensions) { d.ClassifierSetID = schema.ID(1) })
	candidates := []Candidate{
		{ID: 1, Dims: dims(func(d *schema.Dimensions) { d.SPUID = schema.ID(5) })},
	}

	result := Best(context, candidates)
	assert.Equal(t, NoMatch, result.Outcome)
	assert.Zero(t, result.CandidateID)
}

func TestBest_IdenticalTuplesAreAmbiguous(t *testing.T) {
	// Two candidates with identical tuple (spuid=5): ambiguous, the
	// first-constructed row still wins.
	context := dims(func(d *schema.Dimensions) { d.SPUID = schema.ID(5) })
	candidates := []Candidate{
		{ID: 11, Dims: dims(func(d *schema.Dimensions) { d.SPUID = schema.ID(5) })},
		{ID: 12, Dims: dims(func(d *schema.Dimensions) { d.SPUID = schema.ID(5) })},
	}

	result := Best(context, candidates)
	assert.Equal(t, Ambiguous, result.Outcome)
	assert.Equal(t, int64(11), result.CandidateID)
}

func TestBest_TieBrokenLexicographically(t *testing.T) {
	// Equal specificity, different tuples: nil sorts before any value, so
	// the candidate whose earlier column is nil wins when compared on the
	// first differing column.
	context := dims(func(d *schema.Dimensions) {
		d.DefaultSPUID = schema.ID(1)
		d.SPUID = schema.ID(5)
	})
	candidates := []Candidate{
		{ID: 1, Dims: dims(func(d *schema.Dimensions) { d.DefaultSPUID = schema.ID(1) })},
		{ID: 2, Dims: dims(func(d *schema.Dimensions) { d.SPUID = schema.ID(5) })},
	}

	result := Best(context, candidates)
	require.Equal(t, Matched, result.Outcome)
	// Candidate 2's tuple is (nil, nil, 5, ...), candidate 1's is
	// (1, nil, nil, ...): nil < 1 in the first column, so candidate 2 wins.
	assert.Equal(t, int64(2), result.CandidateID)
}

func TestBest_Deterministic(t *testing.T) {
	context := dims(func(d *schema.Dimensions) {
		d.SPUID = schema.ID(5)
		d.ClassifierSetID = schema.ID(2)
	})
	candidates := []Candidate{
		{ID: 1, Dims: dims(func(d *schema.Dimensions) { d.SPUID = schema.ID(5) })},
		{ID: 2, Dims: dims(func(d *schema.Dimensions) { d.ClassifierSetID = schema.ID(2) })},
		{ID: 3, Dims: dims(func(d *schema.Dimensions) { d.SPUID = schema.ID(5) })},
	}

	first := Best(context, candidates)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, Best(context, candidates))
	}
}

func TestBest_SpecificityMonotonicity(t *testing.T) {
	// A's non-nil columns are a strict superset of B's with matching
	// values; both compatible. A must be chosen over B regardless of
	// declaration order.
	context := dims(func(d *schema.Dimensions) {
		d.DefaultSPUID = schema.ID(3)
		d.SPUID = schema.ID(5)
		d.ClassifierSetID = schema.ID(2)
	})
	a := dims(func(d *schema.Dimensions) {
		d.DefaultSPUID = schema.ID(3)
		d.SPUID = schema.ID(5)
	})
	b := dims(func(d *schema.Dimensions) { d.SPUID = schema.ID(5) })

	forward := Best(context, []Candidate{{ID: 1, Dims: a}, {ID: 2, Dims: b}})
	reverse := Best(context, []Candidate{{ID: 2, Dims: b}, {ID: 1, Dims: a}})

	assert.Equal(t, int64(1), forward.CandidateID)
	assert.Equal(t, int64(1), reverse.CandidateID)
}

func TestBest_NoCandidates(t *testing.T) {
	result := Best(dims(nil), nil)
	assert.Equal(t, NoMatch, result.Outcome)
}

func TestCompareTuples_StrictTotalOrder(t *testing.T) {
	// Any two distinct tuples must compare non-equal, and the order must
	// be antisymmetric.
	tuples := []schema.Dimensions{
		dims(nil),
		dims(func(d *schema.Dimensions) { d.DefaultSPUID = schema.ID(1) }),
		dims(func(d *schema.Dimensions) { d.DefaultSPUID = schema.ID(2) }),
		dims(func(d *schema.Dimensions) { d.SPUID = schema.ID(1) }),
		dims(func(d *schema.Dimensions) {
			d.DefaultSPUID = schema.ID(1)
			d.SPUID = schema.ID(1)
		}),
		dims(func(d *schema.Dimensions) { d.ClassifierSetID = schema.ID(1) }),
	}

	for i := range tuples {
		for j := range tuples {
			got := CompareTuples(tuples[i], tuples[j])
			mirrored := CompareTuples(tuples[j], tuples[i])
			assert.Equal(t, -mirrored, got, "antisymmetry for %d,%d", i, j)
			if i == j {
				assert.Zero(t, got)
			} else {
				assert.NotZero(t, got, "distinct tuples %d,%d must not tie", i, j)
			}
		}
	}
}

func TestCompareTuples_NilSortsFirst(t *testing.T) {
	withValue := dims(func(d *schema.Dimensions) { d.DefaultSPUID = schema.ID(0) })
	assert.Equal(t, -1, CompareTuples(dims(nil), withValue))
	assert.Equal(t, 1, CompareTuples(withValue, dims(nil)))
}
