package normalize

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"
	"github.com/tmc/langchaingo/llms"

	"deepsearch/internal/search/models"
)

// fakeModel returns canned completions in order, then repeats the last one.
type fakeModel struct {
	responses []string
	calls     int
}

func (f *fakeModel) GenerateContent(_ context.Context, _ []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	content := f.responses[min(f.calls, len(f.responses)-1)]
	f.calls++
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: content}},
	}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	resp, err := f.GenerateContent(ctx, nil)
	if err != nil {
		return "", err
	}
	return resp.Choices[0].Content, nil
}

type ExtractorSuite struct {
	suite.Suite
	ctx    context.Context
	logger *slog.Logger
}

func (s *ExtractorSuite) SetupTest() {
	s.ctx = context.Background()
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestExtractorSuite(t *testing.T) {
	suite.Run(t, new(ExtractorSuite))
}

func (s *ExtractorSuite) TestWithoutLLM() {
	s.Run("normalizes structured fields", func() {
		e := NewExtractor(s.logger)
		query := e.Extract(s.ctx, models.SearchInput{Name: "jane_doe", Email: "Jane@Example.com"})
		s.Equal("Jane Doe", query.FullName)
		s.Equal("jane@example.com", query.Email)
	})

	s.Run("fills gaps from context heuristics", func() {
		e := NewExtractor(s.logger)
		query := e.Extract(s.ctx, models.SearchInput{
			ContextText: "a person named Jane Doe who lives in Austin",
		})
		s.Equal("Jane Doe", query.FullName)
		s.Equal("Austin", query.Location)
	})

	s.Run("structured fields beat context guesses", func() {
		e := NewExtractor(s.logger)
		query := e.Extract(s.ctx, models.SearchInput{
			Name:        "Mary Major",
			ContextText: "a person named Jane Doe who lives in Austin",
		})
		s.Equal("Mary Major", query.FullName)
		s.Equal("Austin", query.Location, "location gap is still filled")
	})
}

func (s *ExtractorSuite) TestWithLLM() {
	s.Run("fills only empty fields", func() {
		model := &fakeModel{responses: []string{
			`{"full_name": "Jane Doe", "email": "llm@example.com", "phone": null, "username": "janedoe", "location": null}`,
		}}
		e := NewExtractor(s.logger, WithLLM(model))
		query := e.Extract(s.ctx, models.SearchInput{
			Email:       "user@example.com",
			ContextText: "someone from the Austin meetup scene",
		})
		s.Equal("user@example.com", query.Email, "caller-supplied email wins")
		s.Equal("Jane Doe", query.FullName)
		s.Equal("janedoe", query.Username)
	})

	s.Run("tolerates JSON wrapped in prose", func() {
		model := &fakeModel{responses: []string{
			`Sure! Here is the extraction: {"full_name": "Jane Doe", "email": null, "phone": null, "username": null, "location": "Austin"} Hope that helps.`,
		}}
		e := NewExtractor(s.logger, WithLLM(model))
		query := e.Extract(s.ctx, models.SearchInput{ContextText: "notes about a contact"})
		s.Equal("Jane Doe", query.FullName)
		s.Equal("Austin", query.Location)
	})

	s.Run("retries once on a malformed completion", func() {
		model := &fakeModel{responses: []string{
			`not json at all`,
			`{"full_name": "Jane Doe", "email": null, "phone": null, "username": null, "location": null}`,
		}}
		e := NewExtractor(s.logger, WithLLM(model))
		query := e.Extract(s.ctx, models.SearchInput{ContextText: "notes about a contact"})
		s.Equal("Jane Doe", query.FullName)
		s.Equal(2, model.calls)
	})

	s.Run("gives up after two bad completions", func() {
		model := &fakeModel{responses: []string{`garbage`}}
		e := NewExtractor(s.logger, WithLLM(model))
		query := e.Extract(s.ctx, models.SearchInput{ContextText: "notes about a contact"})
		s.Empty(query.FullName)
		s.Equal(2, model.calls)
	})

	s.Run("not consulted without context text", func() {
		model := &fakeModel{responses: []string{`{}`}}
		e := NewExtractor(s.logger, WithLLM(model))
		e.Extract(s.ctx, models.SearchInput{Name: "Jane Doe"})
		s.Zero(model.calls)
	})
}
