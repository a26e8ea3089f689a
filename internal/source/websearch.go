package source

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"deepsearch/internal/platform/fetch"
	"deepsearch/internal/search/models"
)

const ddgEndpoint = "https://html.duckduckgo.com/html/"

const (
	// Sub-query limits: at most 10 planned, 8 executed, stop early once
	// enough raw hits accumulate. Each sub-query gets a short timeout and
	// the whole pass runs under one aggregate ceiling.
	maxPlannedQueries  = 10
	maxExecutedQueries = 8
	maxRawResults      = 24
	perQueryTimeout    = 2500 * time.Millisecond
	aggregateCeiling   = 7500 * time.Millisecond
	maxResultsPerQuery = 4
	maxRankedHits      = 5
)

// Profile-bearing sites queried with site: scoping, in priority order.
var allowDomains = []string{
	"linkedin.com", "github.com", "twitter.com", "x.com", "instagram.com",
	"facebook.com", "crunchbase.com", "about.me", "medium.com", "angel.co",
}

var scopedSites = []string{
	"linkedin.com/in", "twitter.com", "x.com", "github.com",
	"crunchbase.com", "facebook.com", "instagram.com",
}

var blockDomains = []string{
	"support.microsoft.com", "yelp.com", "roofing", "stackoverflow.com",
}

// regionSynonyms widens ambiguous location strings into the variants people
// actually write in profiles.
var regionSynonyms = map[string][]string{
	"kashmir":  {"Kashmir", "Jammu and Kashmir", "J&K", "Srinagar", "Jammu"},
	"new york": {"New York", "NYC", "New York, NY"},
}

// WebSearchAdapter scrapes a search engine for public profile links matching
// the query. It is the free-text fallback when no keyed lookup applies.
type WebSearchAdapter struct {
	client  *fetch.Client
	baseURL string
	logger  *slog.Logger
}

// NewWebSearchAdapter builds the search-engine adapter.
func NewWebSearchAdapter(client *fetch.Client, logger *slog.Logger) *WebSearchAdapter {
	return &WebSearchAdapter{client: client, baseURL: ddgEndpoint, logger: logger}
}

func (a *WebSearchAdapter) Name() Name { return WebSearch }

type searchHit struct {
	url     string
	title   string
	snippet string
	host    string
	score   float64
}

func (a *WebSearchAdapter) Fetch(ctx context.Context, query models.Query) (Result, error) {
	if query.FullName == "" && query.Location == "" && query.ContextText == "" {
		return Result{}, nil
	}

	name := strings.TrimSpace(query.FullName)
	loc := strings.TrimSpace(query.Location)
	locVariants := regionSynonyms[strings.ToLower(loc)]
	if locVariants == nil && loc != "" {
		locVariants = []string{loc}
	}

	queries := buildQueries(name, query.ContextText, locVariants)
	if len(queries) > maxPlannedQueries {
		queries = queries[:maxPlannedQueries]
	}

	ctx, cancel := context.WithTimeout(ctx, aggregateCeiling)
	defer cancel()

	var raw []searchHit
	executed := 0
	for _, q := range queries {
		if ctx.Err() != nil {
			break
		}
		raw = append(raw, a.runQuery(ctx, q)...)
		executed++
		if len(raw) >= maxRawResults || executed >= maxExecutedQueries {
			break
		}
	}
	if executed == 0 {
		return Result{}, fmt.Errorf("web search: no sub-query executed")
	}

	ranked := rankHits(raw, name, locVariants)

	prov := models.Provenance{SourceName: string(WebSearch), Method: models.MethodScrape}
	var out Result
	for _, hit := range ranked {
		display := name
		if display == "" {
			display = hit.title
		}
		cand := models.IdentityCandidate{
			DisplayName: display,
			Links:       []string{hit.url},
			Score:       hit.score,
			TopEvidence: []models.EvidenceItem{
				{Field: "link", Value: hit.url, Confidence: 0.6, Provenance: prov, Snippet: hit.snippet},
			},
		}
		if loc != "" {
			cand.Locations = []string{loc}
		}
		out.Candidates = append(out.Candidates, cand)
		out.Evidences = append(out.Evidences, models.EvidenceItem{
			Field:      "search_result",
			Value:      map[string]string{"title": hit.title, "url": hit.url},
			Confidence: 0.45,
			Provenance: prov,
			Snippet:    hit.snippet,
		})
	}
	return out, nil
}

// buildQueries produces tiered sub-queries: site-scoped first, then general
// with location, then name only, then bare context text.
func buildQueries(name, contextText string, locVariants []string) []string {
	var queries []string
	namePhrase := ""
	if name != "" {
		namePhrase = fmt.Sprintf("%q", name)
	}

	if namePhrase != "" {
		for _, site := range scopedSites {
			if len(locVariants) > 0 {
				for _, lv := range locVariants {
					queries = append(queries, fmt.Sprintf("%s %q site:%s", namePhrase, lv, site))
				}
			} else {
				queries = append(queries, fmt.Sprintf("%s site:%s", namePhrase, site))
			}
		}
		if len(locVariants) > 0 {
			for _, lv := range locVariants {
				queries = append(queries, fmt.Sprintf("%s %q", namePhrase, lv))
			}
		}
		queries = append(queries, namePhrase)
	}
	if namePhrase == "" && contextText != "" {
		queries = append(queries, contextText)
	}
	return queries
}

// runQuery fetches one search-engine page under its own short timeout.
// Failures are per-query: the caller keeps whatever earlier queries produced.
func (a *WebSearchAdapter) runQuery(ctx context.Context, q string) []searchHit {
	qctx, cancel := context.WithTimeout(ctx, perQueryTimeout)
	defer cancel()

	params := url.Values{}
	params.Set("q", q)
	resp, err := a.client.Get(qctx, a.baseURL, params)
	if err != nil || resp.StatusCode != 200 {
		return nil
	}
	hits := parseResultsPage(string(resp.Body))
	if len(hits) > maxResultsPerQuery {
		hits = hits[:maxResultsPerQuery]
	}
	return hits
}

var (
	resultLinkRe    = regexp.MustCompile(`(?s)<a[^>]+class="result__a"[^>]+href="([^"]+)"[^>]*>(.*?)</a>`)
	resultSnippetRe = regexp.MustCompile(`(?s)class="result__snippet"[^>]*>(.*?)</a>`)
	tagRe           = regexp.MustCompile(`<[^>]+>`)
)

// parseResultsPage extracts (url, title, snippet) triples from the HTML
// results page. The redirect wrapper around each link is unwrapped to the
// destination URL.
func parseResultsPage(page string) []searchHit {
	links := resultLinkRe.FindAllStringSubmatch(page, -1)
	snippets := resultSnippetRe.FindAllStringSubmatch(page, -1)

	hits := make([]searchHit, 0, len(links))
	for i, m := range links {
		target := unwrapRedirect(html.UnescapeString(m[1]))
		if target == "" {
			continue
		}
		u, err := url.Parse(target)
		if err != nil || u.Host == "" {
			continue
		}
		hit := searchHit{
			url:   target,
			title: strings.TrimSpace(html.UnescapeString(tagRe.ReplaceAllString(m[2], ""))),
			host:  strings.ToLower(u.Host),
		}
		if i < len(snippets) {
			hit.snippet = strings.TrimSpace(html.UnescapeString(tagRe.ReplaceAllString(snippets[i][1], "")))
		}
		hits = append(hits, hit)
	}
	return hits
}

// unwrapRedirect resolves the engine's /l/?uddg=<encoded> indirection.
func unwrapRedirect(href string) string {
	if !strings.Contains(href, "uddg=") {
		if strings.HasPrefix(href, "//") {
			return "https:" + href
		}
		return href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return ""
}

// rankHits filters, scores, dedupes by canonical URL and returns the top hits.
func rankHits(raw []searchHit, name string, locVariants []string) []searchHit {
	nameTokens := tokenize(name)
	locTokens := make([]string, 0, len(locVariants))
	for _, lv := range locVariants {
		locTokens = append(locTokens, strings.ToLower(lv))
	}

	best := make(map[string]searchHit)
	order := make([]string, 0, len(raw))
	for _, hit := range raw {
		if hit.url == "" || blockedHost(hit.host) {
			continue
		}
		// Top-priority hosts are held to a stricter bar: every name token
		// must appear somewhere; elsewhere any token will do.
		strict := domainPriority(hit.host) <= 2
		if len(nameTokens) > 0 && !nameMatches(hit, nameTokens, strict) {
			continue
		}

		combined := strings.ToLower(hit.title + " " + hit.snippet + " " + hit.url)
		locHit := len(locTokens) == 0
		for _, lt := range locTokens {
			if strings.Contains(combined, lt) {
				locHit = true
				break
			}
		}

		score := 0.2
		if locHit {
			score += 0.4
		}
		if bonus := 0.6 - float64(domainPriority(hit.host))*0.05; bonus > 0 {
			score += bonus
		}
		hit.score = score

		key := canonicalURL(hit.url)
		if existing, ok := best[key]; ok {
			if existing.score >= hit.score {
				continue
			}
		} else {
			order = append(order, key)
		}
		hit.url = key
		best[key] = hit
	}

	ranked := make([]searchHit, 0, len(order))
	for _, key := range order {
		ranked = append(ranked, best[key])
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	if len(ranked) > maxRankedHits {
		ranked = ranked[:maxRankedHits]
	}
	return ranked
}

func tokenize(s string) []string {
	fields := strings.Fields(strings.ToLower(s))
	out := fields[:0]
	for _, f := range fields {
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

func nameMatches(hit searchHit, tokens []string, strict bool) bool {
	texts := []string{strings.ToLower(hit.title), strings.ToLower(hit.snippet), strings.ToLower(hit.url)}
	if strict {
		for _, text := range texts {
			all := true
			for _, tok := range tokens {
				if !strings.Contains(text, tok) {
					all = false
					break
				}
			}
			if all {
				return true
			}
		}
		return false
	}
	for _, text := range texts {
		for _, tok := range tokens {
			if strings.Contains(text, tok) {
				return true
			}
		}
	}
	return false
}

func blockedHost(host string) bool {
	for _, bd := range blockDomains {
		if strings.Contains(host, bd) {
			return true
		}
	}
	return false
}

// domainPriority ranks hosts by position in the allow list; unknown hosts
// sort after every allowed one.
func domainPriority(host string) int {
	for i, ad := range allowDomains {
		if strings.Contains(host, ad) {
			return i
		}
	}
	return len(allowDomains) + 10
}

// canonicalURL strips query strings and trailing slashes so the same profile
// reached through different redirects dedupes to one entry.
func canonicalURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	clean := fmt.Sprintf("%s://%s%s", u.Scheme, u.Host, u.Path)
	return strings.TrimRight(clean, "/")
}
