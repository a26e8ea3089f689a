package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"deepsearch/internal/platform/fetch"
	"deepsearch/internal/search/models"
)

const githubAPIBase = "https://api.github.com"

// HandleAdapter looks a username up on GitHub. A missing or unreachable
// profile still yields a minimal candidate carrying the username itself, so
// handle-only queries always surface something for the policy layer.
type HandleAdapter struct {
	client  *fetch.Client
	token   string
	baseURL string
	logger  *slog.Logger
}

// NewHandleAdapter builds the handle-lookup adapter. The token is optional
// and only raises the unauthenticated rate limit.
func NewHandleAdapter(client *fetch.Client, token string, logger *slog.Logger) *HandleAdapter {
	return &HandleAdapter{client: client, token: token, baseURL: githubAPIBase, logger: logger}
}

func (a *HandleAdapter) Name() Name { return Handle }

type githubUser struct {
	Name     string `json:"name"`
	Bio      string `json:"bio"`
	Blog     string `json:"blog"`
	Company  string `json:"company"`
	Location string `json:"location"`
	HTMLURL  string `json:"html_url"`
}

func (a *HandleAdapter) Fetch(ctx context.Context, query models.Query) (Result, error) {
	if query.Username == "" {
		return Result{}, nil
	}

	headers := http.Header{}
	headers.Set("Accept", "application/vnd.github+json")
	if a.token != "" {
		headers.Set("Authorization", "Bearer "+a.token)
	}

	resp, err := a.client.Get(ctx,
		fmt.Sprintf("%s/users/%s", a.baseURL, query.Username), nil,
		fetch.WithHeaders(headers))
	if err != nil || resp.StatusCode != http.StatusOK {
		return a.minimal(query), nil
	}

	var user githubUser
	if err := resp.DecodeJSON(&user); err != nil {
		return a.minimal(query), nil
	}

	prov := models.Provenance{
		SourceName: string(Handle),
		Method:     models.MethodScrape,
		URL:        user.HTMLURL,
	}
	display := user.Name
	if display == "" {
		display = query.FullName
	}

	cand := models.IdentityCandidate{
		DisplayName: display,
		Usernames:   []string{query.Username},
		Score:       0.35,
		TopEvidence: []models.EvidenceItem{
			{Field: "username", Value: query.Username, Confidence: 0.6, Provenance: prov},
		},
	}
	if user.Location != "" {
		cand.Locations = []string{user.Location}
	}
	if user.HTMLURL != "" {
		cand.Links = []string{user.HTMLURL}
	}

	out := Result{Candidates: []models.IdentityCandidate{cand}}
	if user.Bio != "" {
		out.Evidences = append(out.Evidences, models.EvidenceItem{
			Field: "bio", Value: user.Bio, Confidence: 0.5, Provenance: prov,
		})
	}
	if user.Blog != "" {
		out.Evidences = append(out.Evidences, models.EvidenceItem{
			Field: "website", Value: user.Blog, Confidence: 0.5, Provenance: prov,
		})
	}
	if user.Company != "" {
		out.Evidences = append(out.Evidences, models.EvidenceItem{
			Field: "employment", Value: models.Employment{Organization: user.Company}, Confidence: 0.4, Provenance: prov,
		})
	}
	if user.Location != "" {
		out.Evidences = append(out.Evidences, models.EvidenceItem{
			Field: "location", Value: user.Location, Confidence: 0.5, Provenance: prov,
		})
	}
	return out, nil
}

// minimal is the degraded candidate for unknown or unreachable profiles.
func (a *HandleAdapter) minimal(query models.Query) Result {
	prov := models.Provenance{SourceName: string(Handle), Method: models.MethodScrape}
	return Result{Candidates: []models.IdentityCandidate{{
		DisplayName: query.FullName,
		Usernames:   []string{query.Username},
		Score:       0.2,
		TopEvidence: []models.EvidenceItem{
			{Field: "username", Value: query.Username, Confidence: 0.5, Provenance: prov},
		},
	}}}
}
