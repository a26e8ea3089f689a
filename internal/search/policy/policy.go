// Package policy decides whether a resolution run is conclusive or should
// stop and ask the user clarifying questions.
package policy

import (
	"fmt"
	"sort"

	"deepsearch/internal/search/models"
)

// Thresholds for the decision table.
const (
	// singleCandidateFloor is the confidence below which a lone candidate
	// still needs confirming.
	singleCandidateFloor = 0.7
	// crowdedFloor is the confidence below which a multi-candidate set is
	// considered unresolved when the leaders are close.
	crowdedFloor = 0.6
	// closeRaceMargin is the score gap under which the top two candidates
	// count as indistinguishable.
	closeRaceMargin = 0.15
)

// Decision is the outcome of the disambiguation policy.
type Decision struct {
	NeedsDisambiguation bool
	Questions           []string
}

// Decide applies the decision table, first match wins:
//
//	no candidates                          → ask 3 generic fallback questions
//	one candidate, confidence < 0.7        → ask 2 confirmation questions
//	2+ candidates, confidence < 0.6 and
//	top-two scores within 0.15             → ask 2 discriminating questions
//	otherwise                              → resolved
func Decide(candidates []models.IdentityCandidate, overallConfidence float64) Decision {
	switch {
	case len(candidates) == 0:
		return Decision{
			NeedsDisambiguation: true,
			Questions: []string{
				"What is the person's most recent employer?",
				"What school did the person most recently attend?",
				"Do you know a public username or profile handle for the person?",
			},
		}
	case len(candidates) == 1 && overallConfidence < singleCandidateFloor:
		return Decision{
			NeedsDisambiguation: true,
			Questions: []string{
				confirmIdentityQuestion(candidates[0]),
				"What is the person's current employer?",
			},
		}
	case len(candidates) >= 2 && overallConfidence < crowdedFloor && topTwoGap(candidates) < closeRaceMargin:
		return Decision{
			NeedsDisambiguation: true,
			Questions: []string{
				"Which city does the person live in?",
				"Who is the person's current employer?",
			},
		}
	default:
		return Decision{}
	}
}

func confirmIdentityQuestion(candidate models.IdentityCandidate) string {
	if candidate.DisplayName != "" {
		return fmt.Sprintf("Is %q the person you are looking for?", candidate.DisplayName)
	}
	return "Can you confirm the person's full name?"
}

// topTwoGap returns the score difference between the two highest-scoring
// candidates. The sort is stable so ties keep original order, matching the
// aggregator's primary-candidate discipline.
func topTwoGap(candidates []models.IdentityCandidate) float64 {
	scores := make([]float64, len(candidates))
	for i, c := range candidates {
		scores[i] = c.Score
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i] > scores[j] })
	return scores[0] - scores[1]
}
