package policy

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"deepsearch/internal/search/models"
)

type PolicySuite struct {
	suite.Suite
}

func TestPolicySuite(t *testing.T) {
	suite.Run(t, new(PolicySuite))
}

func (s *PolicySuite) TestNoCandidates() {
	decision := Decide(nil, 0)
	s.True(decision.NeedsDisambiguation)
	s.Len(decision.Questions, 3, "generic fallback questions")
}

func (s *PolicySuite) TestSingleCandidate() {
	candidate := []models.IdentityCandidate{{DisplayName: "Jane Doe", Score: 0.69}}

	s.Run("below the floor asks for confirmation", func() {
		decision := Decide(candidate, 0.69)
		s.True(decision.NeedsDisambiguation)
		s.Require().Len(decision.Questions, 2)
		s.Contains(decision.Questions[0], "Jane Doe")
	})

	s.Run("at the floor is resolved", func() {
		decision := Decide(candidate, 0.70)
		s.False(decision.NeedsDisambiguation)
		s.Empty(decision.Questions)
	})

	s.Run("nameless candidate gets the generic confirmation", func() {
		decision := Decide([]models.IdentityCandidate{{Score: 0.3}}, 0.3)
		s.True(decision.NeedsDisambiguation)
		s.Equal("Can you confirm the person's full name?", decision.Questions[0])
	})
}

func (s *PolicySuite) TestMultipleCandidates() {
	s.Run("close race below the floor needs discriminating questions", func() {
		candidates := []models.IdentityCandidate{{Score: 0.50}, {Score: 0.40}}
		decision := Decide(candidates, 0.50)
		s.True(decision.NeedsDisambiguation)
		s.Len(decision.Questions, 2)
	})

	s.Run("clear gap resolves even at low confidence", func() {
		candidates := []models.IdentityCandidate{{Score: 0.50}, {Score: 0.30}}
		decision := Decide(candidates, 0.50)
		s.False(decision.NeedsDisambiguation)
	})

	s.Run("high confidence resolves even in a close race", func() {
		candidates := []models.IdentityCandidate{{Score: 0.65}, {Score: 0.60}}
		decision := Decide(candidates, 0.65)
		s.False(decision.NeedsDisambiguation)
	})

	s.Run("gap uses the two best regardless of input order", func() {
		candidates := []models.IdentityCandidate{{Score: 0.10}, {Score: 0.50}, {Score: 0.45}}
		decision := Decide(candidates, 0.50)
		s.True(decision.NeedsDisambiguation, "0.50 vs 0.45 is a close race")
	})
}

func (s *PolicySuite) TestResolvedDecisionHasNoQuestions() {
	decision := Decide([]models.IdentityCandidate{{Score: 0.9}}, 0.9)
	s.False(decision.NeedsDisambiguation)
	s.Nil(decision.Questions)
}
