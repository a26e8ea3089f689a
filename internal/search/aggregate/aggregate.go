// Package aggregate folds adapter outputs into one profile and one flat
// candidate list. The merge is pure: the same inputs always produce the same
// output.
package aggregate

import (
	"deepsearch/internal/search/dispatch"
	"deepsearch/internal/search/models"
	strutil "deepsearch/pkg/platform/strings"
)

// Merge concatenates evidence and candidates in dispatch order, picks the
// highest-scoring candidate as primary (first seen wins ties), and builds the
// profile. The name comes from the primary alone, but contact fields are the
// union across all candidates: breadth is kept wide here and narrowed later
// by the judge and the disambiguation policy.
func Merge(results []dispatch.StepResult) (models.PersonProfile, []models.IdentityCandidate) {
	var evidences []models.EvidenceItem
	var candidates []models.IdentityCandidate
	for _, r := range results {
		evidences = append(evidences, r.Result.Evidences...)
		candidates = append(candidates, r.Result.Candidates...)
	}

	profile := models.PersonProfile{
		Names:     []string{},
		Evidences: evidences,
	}

	primary := primaryCandidate(candidates)
	if primary != nil && primary.DisplayName != "" {
		profile.Names = []string{primary.DisplayName}
	}

	profile.Emails = unionField(candidates, func(c models.IdentityCandidate) []string { return c.Emails })
	profile.Phones = unionField(candidates, func(c models.IdentityCandidate) []string { return c.Phones })
	profile.Usernames = unionField(candidates, func(c models.IdentityCandidate) []string { return c.Usernames })
	profile.Locations = unionField(candidates, func(c models.IdentityCandidate) []string { return c.Locations })
	profile.Links = unionField(candidates, func(c models.IdentityCandidate) []string { return c.Links })

	for _, c := range candidates {
		if c.Score > profile.OverallConfidence {
			profile.OverallConfidence = c.Score
		}
	}

	return profile, candidates
}

// primaryCandidate returns the stable max-score candidate, or nil when the
// set is empty. Strict greater-than keeps the first seen on ties.
func primaryCandidate(candidates []models.IdentityCandidate) *models.IdentityCandidate {
	var primary *models.IdentityCandidate
	for i := range candidates {
		if primary == nil || candidates[i].Score > primary.Score {
			primary = &candidates[i]
		}
	}
	return primary
}

// unionField collects unique values of one field across all candidates in
// first-seen order. Order is not meaningful downstream; the judge sorts the
// fields that need deterministic comparison.
func unionField(candidates []models.IdentityCandidate, field func(models.IdentityCandidate) []string) []string {
	all := []string{}
	for _, c := range candidates {
		all = append(all, field(c)...)
	}
	return strutil.DedupeAndTrim(all)
}
