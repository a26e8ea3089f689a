package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"deepsearch/internal/platform/fetch"
	"deepsearch/internal/search/models"
)

const nameSearchURL = "https://api.peopledatalabs.com/v5/person/search"

// maxSearchDocs bounds how many search hits become candidates.
const maxSearchDocs = 5

// NameSearchAdapter runs a structured people search over name and location.
type NameSearchAdapter struct {
	client  *fetch.Client
	apiKey  string
	baseURL string
	logger  *slog.Logger
}

// NewNameSearchAdapter builds the name/location search adapter.
func NewNameSearchAdapter(client *fetch.Client, apiKey string, logger *slog.Logger) *NameSearchAdapter {
	return &NameSearchAdapter{client: client, apiKey: apiKey, baseURL: nameSearchURL, logger: logger}
}

func (a *NameSearchAdapter) Name() Name { return NameSearch }

func (a *NameSearchAdapter) Fetch(ctx context.Context, query models.Query) (Result, error) {
	if a.apiKey == "" {
		return Result{}, nil
	}
	if query.FullName == "" && query.Location == "" {
		return Result{}, nil
	}

	// Widest to narrowest: name+location, name only, first-name+location.
	var attempts []string
	if query.FullName != "" && query.Location != "" {
		attempts = append(attempts, fmt.Sprintf(
			"full_name:%q AND (location_name:%q OR location_country:%q)",
			query.FullName, query.Location, query.Location))
	}
	if query.FullName != "" {
		attempts = append(attempts, fmt.Sprintf("full_name:%q", query.FullName))
	}
	if query.FullName != "" && query.Location != "" {
		first := strings.Fields(query.FullName)[0]
		attempts = append(attempts, fmt.Sprintf(
			"full_name:%q AND location_name:%q", first, query.Location))
	}

	headers := http.Header{}
	headers.Set("X-API-Key", a.apiKey)

	var docs []pdlPerson
	for _, q := range attempts {
		params := url.Values{}
		params.Set("query", q)
		params.Set("size", fmt.Sprint(maxSearchDocs))

		resp, err := a.client.Get(ctx, a.baseURL, params, fetch.WithHeaders(headers), fetch.NoCache())
		if err != nil || resp.StatusCode != http.StatusOK {
			continue
		}
		var payload struct {
			Data []pdlPerson `json:"data"`
		}
		if err := resp.DecodeJSON(&payload); err != nil {
			continue
		}
		if len(payload.Data) > 0 {
			docs = payload.Data
			break
		}
	}
	if len(docs) == 0 {
		return Result{}, fmt.Errorf("name search: no usable response")
	}
	if len(docs) > maxSearchDocs {
		docs = docs[:maxSearchDocs]
	}

	prov := models.Provenance{SourceName: string(NameSearch), Method: models.MethodAPI}
	var out Result
	for _, person := range docs {
		cand := models.IdentityCandidate{
			DisplayName: person.displayName(),
			Emails:      flexStrings(person.Emails),
			Phones:      flexStrings(person.PhoneNumbers),
			Links:       flexStrings(person.Links),
			Score:       0.4,
		}
		if loc := person.location(); loc != "" {
			cand.Locations = []string{loc}
		}
		if cand.DisplayName != "" {
			cand.TopEvidence = []models.EvidenceItem{
				{Field: "full_name", Value: cand.DisplayName, Confidence: 0.6, Provenance: prov},
			}
		}
		out.Candidates = append(out.Candidates, cand)

		for _, link := range cand.Links {
			out.Evidences = append(out.Evidences, models.EvidenceItem{
				Field: "link", Value: link, Confidence: 0.4, Provenance: prov,
			})
		}
	}
	return out, nil
}
