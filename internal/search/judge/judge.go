// Package judge is the single place confidence is guaranteed correct. It
// repairs aggregator/caller mismatches, clamps confidence into [0,1], and
// makes the profile's comparable fields deterministic.
package judge

import (
	"math"
	"sort"

	"deepsearch/internal/search/models"
	strutil "deepsearch/pkg/platform/strings"
)

// Judge corrects a result in place: overall confidence is raised to the best
// candidate score if needed and clamped to [0,1], and emails, usernames and
// locations are deduplicated, stripped of empties, and sorted. It performs no
// I/O and cannot fail; malformed confidence values degrade to 0.
func Judge(result *models.Result) {
	if result == nil {
		return
	}
	profile := &result.Profile

	top := 0.0
	for _, c := range result.Candidates {
		if s := sanitize(c.Score); s > top {
			top = s
		}
	}
	overall := sanitize(profile.OverallConfidence)
	if len(result.Candidates) > 0 && top > overall {
		overall = top
	}
	profile.OverallConfidence = clamp(overall)

	profile.Emails = sortedUnique(profile.Emails)
	profile.Usernames = sortedUnique(profile.Usernames)
	profile.Locations = sortedUnique(profile.Locations)
}

func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// sortedUnique drops empty strings, dedupes, and sorts lexicographically.
func sortedUnique(values []string) []string {
	out := strutil.DedupeAndTrim(append([]string{}, values...))
	sort.Strings(out)
	return out
}
