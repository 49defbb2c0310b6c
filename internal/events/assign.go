package events

import (
	"fmt"

	"github.com/silvics/cbmconv/internal/match"
	"github.com/silvics/cbmconv/internal/schema"
)

// EligibilityCandidate is a dimension-qualified eligibility declaration
// from the project: when a disturbance event carries no explicit
// eligibility reference, the specificity matcher picks the best candidate
// for the event's dimensions.
type EligibilityCandidate struct {
	Dims          schema.Dimensions
	EligibilityID int64
}

// AssignEligibility resolves the eligibility reference of every canonical
// disturbance event that does not already carry one. No compatible
// candidate leaves the reference nil (an event without eligibility is
// legal); an ambiguous winning rank is reported and the first-constructed
// candidate is used.
func AssignEligibility(ds *schema.Dataset, candidates []EligibilityCandidate, rep *schema.Report) {
	if len(candidates) == 0 {
		return
	}
	pool := make([]match.Candidate, len(candidates))
	for i, c := range candidates {
		pool[i] = match.Candidate{ID: c.EligibilityID, Dims: c.Dims}
	}

	for _, event := range ds.DisturbanceEvents.Rows() {
		if event.EligibilityID != nil {
			continue
		}
		result := match.Best(event.Dims, pool)
		switch result.Outcome {
		case match.NoMatch:
			continue
		case match.Ambiguous:
			rep.Issue(schema.SeverityWarning, schema.CategoryAmbiguousMatch,
				schema.TableDisturbanceEvents, event.ID,
				fmt.Sprintf("eligibility match ambiguous at specificity %d; using eligibility %d",
					result.Specificity, result.CandidateID))
		}
		id := result.CandidateID
		ds.DisturbanceEvents.Mutate(event.ID, func(e *schema.DisturbanceEvent) {
			e.EligibilityID = &id
		})
	}
}
