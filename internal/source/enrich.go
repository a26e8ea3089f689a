package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"deepsearch/internal/platform/fetch"
	"deepsearch/internal/search/models"
	"deepsearch/pkg/email"
)

const enrichURL = "https://api.peopledatalabs.com/v5/person/enrich"

// EnrichAdapter performs a keyed person enrichment lookup. Without an API key
// it degrades to a low-confidence heuristic candidate built from the query
// itself, so the rest of the pipeline stays exercisable in development.
type EnrichAdapter struct {
	client  *fetch.Client
	apiKey  string
	baseURL string
	logger  *slog.Logger
}

// NewEnrichAdapter builds the enrichment adapter.
func NewEnrichAdapter(client *fetch.Client, apiKey string, logger *slog.Logger) *EnrichAdapter {
	return &EnrichAdapter{client: client, apiKey: apiKey, baseURL: enrichURL, logger: logger}
}

func (a *EnrichAdapter) Name() Name { return Enrich }

func (a *EnrichAdapter) Fetch(ctx context.Context, query models.Query) (Result, error) {
	if a.apiKey == "" {
		return a.heuristic(query), nil
	}

	params := url.Values{}
	if query.Email != "" {
		params.Set("email", query.Email)
	}
	if query.Phone != "" {
		params.Set("phone", query.Phone)
	}
	if query.FullName != "" {
		params.Set("name", query.FullName)
	}
	if query.Username != "" {
		params.Set("username", query.Username)
	}
	if query.Location != "" {
		params.Set("location", query.Location)
	}

	headers := http.Header{}
	headers.Set("X-API-Key", a.apiKey)

	resp, err := a.client.Get(ctx, a.baseURL, params, fetch.WithHeaders(headers))
	if err != nil {
		return Result{}, fmt.Errorf("enrich fetch: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("enrich status %d", resp.StatusCode)
	}

	var payload struct {
		Data *pdlPerson `json:"data"`
		pdlPerson
	}
	if err := resp.DecodeJSON(&payload); err != nil {
		return Result{}, fmt.Errorf("enrich decode: %w", err)
	}
	person := payload.Data
	if person == nil {
		person = &payload.pdlPerson
	}

	return a.parse(person, query), nil
}

func (a *EnrichAdapter) heuristic(query models.Query) Result {
	if query.Email == "" {
		return Result{}
	}
	display := query.FullName
	if display == "" {
		display = email.DeriveName(query.Email)
	}
	prov := models.Provenance{SourceName: string(Enrich), Method: models.MethodAPI}
	cand := models.IdentityCandidate{
		DisplayName: display,
		Emails:      []string{query.Email},
		Score:       0.3,
		TopEvidence: []models.EvidenceItem{
			{Field: "email", Value: query.Email, Confidence: 0.6, Provenance: prov},
		},
	}
	if query.Username != "" {
		cand.Usernames = []string{query.Username}
	}
	if query.Location != "" {
		cand.Locations = []string{query.Location}
	}
	return Result{Candidates: []models.IdentityCandidate{cand}}
}

func (a *EnrichAdapter) parse(person *pdlPerson, query models.Query) Result {
	prov := models.Provenance{SourceName: string(Enrich), Method: models.MethodAPI}

	emails := flexStrings(person.Emails)
	phones := flexStrings(person.PhoneNumbers)
	links := flexStrings(person.Links)
	fullName := person.displayName()
	if fullName == "" {
		fullName = query.FullName
	}

	var out Result
	if len(emails) > 0 || len(phones) > 0 || fullName != "" {
		cand := models.IdentityCandidate{
			DisplayName: fullName,
			Emails:      emails,
			Phones:      phones,
			Links:       links,
			Score:       0.5,
		}
		if len(cand.Emails) == 0 && query.Email != "" {
			cand.Emails = []string{query.Email}
		}
		if len(cand.Phones) == 0 && query.Phone != "" {
			cand.Phones = []string{query.Phone}
		}
		if query.Username != "" {
			cand.Usernames = []string{query.Username}
		}
		if loc := person.location(); loc != "" {
			cand.Locations = []string{loc}
		} else if query.Location != "" {
			cand.Locations = []string{query.Location}
		}
		if fullName != "" {
			cand.TopEvidence = []models.EvidenceItem{
				{Field: "full_name", Value: fullName, Confidence: 0.7, Provenance: prov},
			}
		}
		out.Candidates = append(out.Candidates, cand)
	}

	// Structured fields ride along as evidence for traceability.
	for _, link := range links {
		out.Evidences = append(out.Evidences, models.EvidenceItem{
			Field: "link", Value: link, Confidence: 0.5, Provenance: prov,
		})
	}
	for _, emp := range person.employment() {
		out.Evidences = append(out.Evidences, models.EvidenceItem{
			Field: "employment", Value: emp, Confidence: 0.5, Provenance: prov,
		})
	}
	for _, edu := range person.education() {
		out.Evidences = append(out.Evidences, models.EvidenceItem{
			Field: "education", Value: edu, Confidence: 0.5, Provenance: prov,
		})
	}
	return out
}
