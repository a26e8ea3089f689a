package aggregate

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"deepsearch/internal/search/dispatch"
	"deepsearch/internal/search/models"
	"deepsearch/internal/source"
)

type AggregateSuite struct {
	suite.Suite
}

func TestAggregateSuite(t *testing.T) {
	suite.Run(t, new(AggregateSuite))
}

func stepResult(name source.Name, candidates ...models.IdentityCandidate) dispatch.StepResult {
	return dispatch.StepResult{
		Source: name,
		Result: source.Result{Candidates: candidates},
	}
}

func (s *AggregateSuite) TestEmptyInput() {
	profile, candidates := Merge(nil)
	s.Empty(candidates)
	s.Equal([]string{}, profile.Names, "names default to an empty list, not nil")
	s.Zero(profile.OverallConfidence)
}

func (s *AggregateSuite) TestConfidenceIsMaxCandidateScore() {
	profile, candidates := Merge([]dispatch.StepResult{
		stepResult(source.Enrich, models.IdentityCandidate{DisplayName: "Jane Doe", Score: 0.5}),
		stepResult(source.Handle, models.IdentityCandidate{DisplayName: "janedoe", Score: 0.35}),
	})
	s.Len(candidates, 2)
	s.InDelta(0.5, profile.OverallConfidence, 1e-9)
}

func (s *AggregateSuite) TestPrimaryCandidate() {
	s.Run("highest score names the profile", func() {
		profile, _ := Merge([]dispatch.StepResult{
			stepResult(source.NameSearch, models.IdentityCandidate{DisplayName: "J. Doe", Score: 0.4}),
			stepResult(source.Enrich, models.IdentityCandidate{DisplayName: "Jane Doe", Score: 0.5}),
		})
		s.Equal([]string{"Jane Doe"}, profile.Names)
	})

	s.Run("ties keep the first seen", func() {
		profile, _ := Merge([]dispatch.StepResult{
			stepResult(source.Identify, models.IdentityCandidate{DisplayName: "First", Score: 0.45}),
			stepResult(source.NameSearch, models.IdentityCandidate{DisplayName: "Second", Score: 0.45}),
		})
		s.Equal([]string{"First"}, profile.Names)
	})

	s.Run("primary without a display name leaves names empty", func() {
		profile, _ := Merge([]dispatch.StepResult{
			stepResult(source.Handle, models.IdentityCandidate{Score: 0.2}),
		})
		s.Equal([]string{}, profile.Names)
	})
}

func (s *AggregateSuite) TestContactFieldsAreUnions() {
	profile, _ := Merge([]dispatch.StepResult{
		stepResult(source.Enrich, models.IdentityCandidate{
			Score:  0.5,
			Emails: []string{"jane@example.com"},
			Links:  []string{"https://example.com/jane"},
		}),
		stepResult(source.Handle, models.IdentityCandidate{
			Score:     0.35,
			Emails:    []string{"jane@example.com", "jd@corp.example"},
			Usernames: []string{"janedoe"},
		}),
	})
	s.ElementsMatch([]string{"jane@example.com", "jd@corp.example"}, profile.Emails)
	s.Equal([]string{"janedoe"}, profile.Usernames)
	s.Equal([]string{"https://example.com/jane"}, profile.Links)
}

func (s *AggregateSuite) TestEvidenceConcatenatesInDispatchOrder() {
	first := models.EvidenceItem{Field: "full_name", Confidence: 0.7}
	second := models.EvidenceItem{Field: "username", Confidence: 0.6}
	profile, _ := Merge([]dispatch.StepResult{
		{Source: source.Enrich, Result: source.Result{Evidences: []models.EvidenceItem{first}}},
		{Source: source.Handle, Result: source.Result{Evidences: []models.EvidenceItem{second}}},
	})
	s.Equal([]models.EvidenceItem{first, second}, profile.Evidences)
}

func (s *AggregateSuite) TestIdempotence() {
	input := []dispatch.StepResult{
		stepResult(source.Enrich, models.IdentityCandidate{
			DisplayName: "Jane Doe",
			Score:       0.5,
			Emails:      []string{"jane@example.com"},
		}),
		stepResult(source.WebSearch,
			models.IdentityCandidate{DisplayName: "Jane Doe", Score: 0.6, Locations: []string{"Austin"}},
			models.IdentityCandidate{DisplayName: "Jane A. Doe", Score: 0.3},
		),
	}
	profileA, candidatesA := Merge(input)
	profileB, candidatesB := Merge(input)
	s.Equal(profileA, profileB)
	s.Equal(candidatesA, candidatesB)
}
