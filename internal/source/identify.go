package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"deepsearch/internal/platform/fetch"
	"deepsearch/internal/search/models"
)

const identifyURL = "https://api.peopledatalabs.com/v5/person/identify"

// IdentifyAdapter resolves a name plus region into scored person matches.
type IdentifyAdapter struct {
	client  *fetch.Client
	apiKey  string
	baseURL string
	logger  *slog.Logger
}

// NewIdentifyAdapter builds the identify adapter.
func NewIdentifyAdapter(client *fetch.Client, apiKey string, logger *slog.Logger) *IdentifyAdapter {
	return &IdentifyAdapter{client: client, apiKey: apiKey, baseURL: identifyURL, logger: logger}
}

func (a *IdentifyAdapter) Name() Name { return Identify }

func (a *IdentifyAdapter) Fetch(ctx context.Context, query models.Query) (Result, error) {
	if a.apiKey == "" {
		return Result{}, nil
	}
	if query.FullName == "" && query.Location == "" {
		return Result{}, nil
	}

	first, last := splitName(query.FullName)
	var attempts []url.Values
	if first != "" || last != "" {
		params := url.Values{}
		if first != "" {
			params.Set("first_name", first)
		}
		if last != "" {
			params.Set("last_name", last)
		}
		if query.Location != "" {
			params.Set("region", query.Location)
		}
		attempts = append(attempts, params)
	}
	if first != "" && query.Location != "" {
		params := url.Values{}
		params.Set("first_name", first)
		params.Set("region", query.Location)
		attempts = append(attempts, params)
	}

	headers := http.Header{}
	headers.Set("X-API-Key", a.apiKey)

	var payload struct {
		Matches []pdlPerson `json:"matches"`
		Data    *pdlPerson  `json:"data"`
		pdlPerson
	}
	found := false
	for _, params := range attempts {
		resp, err := a.client.Get(ctx, a.baseURL, params, fetch.WithHeaders(headers), fetch.NoCache())
		if err != nil || resp.StatusCode != http.StatusOK {
			continue
		}
		if err := resp.DecodeJSON(&payload); err != nil {
			continue
		}
		if len(payload.Matches) > 0 || payload.Data != nil || payload.FullName != "" {
			found = true
			break
		}
	}
	if !found {
		return Result{}, fmt.Errorf("identify: no usable response")
	}

	docs := payload.Matches
	if len(docs) == 0 {
		if payload.Data != nil {
			docs = []pdlPerson{*payload.Data}
		} else {
			docs = []pdlPerson{payload.pdlPerson}
		}
	}

	prov := models.Provenance{SourceName: string(Identify), Method: models.MethodAPI}
	var out Result
	for _, person := range docs {
		fullName := person.displayName()
		if fullName == "" {
			fullName = query.FullName
		}
		cand := models.IdentityCandidate{
			DisplayName: fullName,
			Emails:      flexStrings(person.Emails),
			Phones:      flexStrings(person.PhoneNumbers),
			Links:       flexStrings(person.Links),
			Score:       0.45,
		}
		if loc := person.location(); loc != "" {
			cand.Locations = []string{loc}
		} else if query.Location != "" {
			cand.Locations = []string{query.Location}
		}
		if fullName != "" {
			cand.TopEvidence = []models.EvidenceItem{
				{Field: "full_name", Value: fullName, Confidence: 0.65, Provenance: prov},
			}
		}
		out.Candidates = append(out.Candidates, cand)

		for _, link := range cand.Links {
			out.Evidences = append(out.Evidences, models.EvidenceItem{
				Field: "link", Value: link, Confidence: 0.5, Provenance: prov,
			})
		}
	}
	return out, nil
}
