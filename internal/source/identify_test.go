package source

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/suite"

	"deepsearch/internal/platform/fetch"
	"deepsearch/internal/search/models"
)

type IdentifySuite struct {
	suite.Suite
	ctx    context.Context
	logger *slog.Logger
	client *fetch.Client
}

func (s *IdentifySuite) SetupTest() {
	s.ctx = context.Background()
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	s.client = fetch.New(s.logger)
}

func TestIdentifySuite(t *testing.T) {
	suite.Run(t, new(IdentifySuite))
}

func (s *IdentifySuite) TestDisabledWithoutAPIKey() {
	adapter := NewIdentifyAdapter(s.client, "", s.logger)
	result, err := adapter.Fetch(s.ctx, models.Query{FullName: "Jane Doe", Location: "Austin"})
	s.Require().NoError(err)
	s.Empty(result.Candidates)
}

func (s *IdentifySuite) TestMatches() {
	var attempts []map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts = append(attempts, map[string]string{
			"first_name": r.URL.Query().Get("first_name"),
			"last_name":  r.URL.Query().Get("last_name"),
			"region":     r.URL.Query().Get("region"),
		})
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"matches": [
				{"full_name": "Jane Doe", "location_name": "Austin", "links": ["https://example.com/jane"]},
				{"first_name": "Jane", "last_name": "Dough"}
			]
		}`))
	}))
	defer server.Close()

	adapter := NewIdentifyAdapter(s.client, "secret", s.logger)
	adapter.baseURL = server.URL

	result, err := adapter.Fetch(s.ctx, models.Query{FullName: "Jane Q. Doe", Location: "Austin"})
	s.Require().NoError(err)

	s.Require().Len(attempts, 1, "the first attempt succeeded, no fallback needed")
	s.Equal("Jane", attempts[0]["first_name"])
	s.Equal("Doe", attempts[0]["last_name"])
	s.Equal("Austin", attempts[0]["region"])

	s.Require().Len(result.Candidates, 2)
	s.Equal("Jane Doe", result.Candidates[0].DisplayName)
	s.InDelta(0.45, result.Candidates[0].Score, 1e-9)
	s.Equal([]string{"Austin"}, result.Candidates[0].Locations)
	s.Equal("Jane Dough", result.Candidates[1].DisplayName)
	s.Equal([]string{"Austin"}, result.Candidates[1].Locations, "query location backfills missing ones")

	s.Require().Len(result.Evidences, 1)
	s.Equal("link", result.Evidences[0].Field)
}

func (s *IdentifySuite) TestFallbackAttempt() {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Query().Get("last_name") != "" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"matches": [{"full_name": "Jane Doe"}]}`))
	}))
	defer server.Close()

	adapter := NewIdentifyAdapter(s.client, "secret", s.logger)
	adapter.baseURL = server.URL

	result, err := adapter.Fetch(s.ctx, models.Query{FullName: "Jane Doe", Location: "Austin"})
	s.Require().NoError(err)
	s.Equal(2, calls, "first-name-only retry after the full-name attempt failed")
	s.Require().Len(result.Candidates, 1)
}

func (s *IdentifySuite) TestNoUsableResponse() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	adapter := NewIdentifyAdapter(s.client, "secret", s.logger)
	adapter.baseURL = server.URL

	_, err := adapter.Fetch(s.ctx, models.Query{FullName: "Jane Doe", Location: "Austin"})
	s.Error(err)
}
