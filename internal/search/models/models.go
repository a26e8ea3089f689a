// Package models holds the data model for person resolution: queries,
// evidence, candidates, profiles, and jobs.
package models

import "time"

// SourceMethod says how a piece of evidence was obtained.
type SourceMethod string

const (
	MethodAPI      SourceMethod = "api"
	MethodScrape   SourceMethod = "scrape"
	MethodLLM      SourceMethod = "llm"
	MethodInferred SourceMethod = "inferred"
)

// Provenance attributes an evidence item to the adapter that produced it.
// Adapters stamp provenance at creation time; nothing downstream infers it.
type Provenance struct {
	SourceName string       `json:"source_name"`
	Method     SourceMethod `json:"method"`
	URL        string       `json:"url,omitempty"`
	CapturedAt string       `json:"captured_at,omitempty"`
	Note       string       `json:"note,omitempty"`
}

// EvidenceItem is a single attributed fact. Evidence is append-only: items
// are accumulated across adapters and never mutated after creation.
type EvidenceItem struct {
	Field      string     `json:"field"`
	Value      any        `json:"value"`
	Confidence float64    `json:"confidence"`
	Provenance Provenance `json:"provenance"`
	Snippet    string     `json:"snippet,omitempty"`
}

// IdentityCandidate is one adapter's hypothesis about the person. Multiple
// candidates may coexist; merging happens in the aggregator, not in adapters.
type IdentityCandidate struct {
	DisplayName string         `json:"display_name,omitempty"`
	Emails      []string       `json:"emails"`
	Phones      []string       `json:"phones"`
	Usernames   []string       `json:"usernames"`
	Locations   []string       `json:"locations"`
	Links       []string       `json:"links"`
	Score       float64        `json:"score"`
	TopEvidence []EvidenceItem `json:"top_evidence"`
}

// Employment is one position parsed from an enrichment response.
type Employment struct {
	Title        string `json:"title,omitempty"`
	Organization string `json:"organization,omitempty"`
	Start        string `json:"start,omitempty"`
	End          string `json:"end,omitempty"`
}

// Education is one school record parsed from an enrichment response.
type Education struct {
	School string `json:"school,omitempty"`
	Degree string `json:"degree,omitempty"`
	Start  string `json:"start,omitempty"`
	End    string `json:"end,omitempty"`
}

// PersonProfile is the aggregated view over all candidates for a job. It is
// derived state: recomputed on every aggregation pass and only hand-edited by
// the explicit candidate-choice operation.
type PersonProfile struct {
	Names             []string       `json:"names"`
	Emails            []string       `json:"emails"`
	Phones            []string       `json:"phones"`
	Usernames         []string       `json:"usernames"`
	Locations         []string       `json:"locations"`
	Employment        []Employment   `json:"employment"`
	Education         []Education    `json:"education"`
	Links             []string       `json:"links"`
	Bios              []string       `json:"bios"`
	Skills            []string       `json:"skills"`
	Organizations     []string       `json:"organizations"`
	Websites          []string       `json:"websites"`
	Evidences         []EvidenceItem `json:"evidences"`
	OverallConfidence float64        `json:"overall_confidence"`
}

// Query is the canonical, normalized representation of the search subject.
// An empty string means the field is absent; the normalizer guarantees no
// field survives as a non-empty string of whitespace or an invalid value.
type Query struct {
	FullName    string `json:"full_name,omitempty"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Username    string `json:"username,omitempty"`
	Location    string `json:"location,omitempty"`
	ContextText string `json:"context_text,omitempty"`
}

// HasIdentifier reports whether any identifying field (everything except the
// free-text context) is populated.
func (q Query) HasIdentifier() bool {
	return q.FullName != "" || q.Email != "" || q.Phone != "" || q.Username != "" || q.Location != ""
}

// SearchInput is the raw, un-normalized request payload.
type SearchInput struct {
	Name        string `json:"name,omitempty"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Username    string `json:"username,omitempty"`
	Location    string `json:"location,omitempty"`
	ContextText string `json:"context_text,omitempty"`
}

// Diagnostics carries pipeline internals surfaced to callers.
type Diagnostics struct {
	NumCandidates int `json:"num_candidates"`
}

// Metrics summarizes resource usage for one resolution run.
type Metrics struct {
	LatencyMS   int64       `json:"latency_ms"`
	ToolsUsed   []string    `json:"tools_used"`
	APICostUSD  float64     `json:"api_cost_usd"`
	Diagnostics Diagnostics `json:"diagnostics"`
}

// Result is the persisted outcome of a resolution run.
type Result struct {
	NormalizedQuery Query               `json:"normalized_query"`
	Profile         PersonProfile       `json:"profile"`
	Candidates      []IdentityCandidate `json:"candidates"`
	Metrics         Metrics             `json:"metrics"`
}

// JobStatus enumerates the job state machine:
// queued → running → {needs_disambiguation, completed, failed}.
// needs_disambiguation may still advance to completed via candidate choice.
type JobStatus string

const (
	StatusQueued              JobStatus = "queued"
	StatusRunning             JobStatus = "running"
	StatusNeedsDisambiguation JobStatus = "needs_disambiguation"
	StatusCompleted           JobStatus = "completed"
	StatusFailed              JobStatus = "failed"
)

// Terminal reports whether the status has no outbound transitions.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job is one resolution request and its lifecycle state. The job owns its
// result snapshot; pipeline stages produce values that are copied in under a
// single store update.
type Job struct {
	ID        string    `json:"job_id"`
	Status    JobStatus `json:"status"`
	Result    *Result   `json:"result,omitempty"`
	Error     string    `json:"error,omitempty"`
	Questions []string  `json:"questions,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy so store snapshots never share slices with
// callers.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	out := *j
	out.Questions = append([]string(nil), j.Questions...)
	if j.Result != nil {
		res := *j.Result
		res.Candidates = cloneCandidates(j.Result.Candidates)
		res.Profile = cloneProfile(j.Result.Profile)
		res.Metrics.ToolsUsed = append([]string(nil), j.Result.Metrics.ToolsUsed...)
		out.Result = &res
	}
	return &out
}

func cloneCandidates(in []IdentityCandidate) []IdentityCandidate {
	if in == nil {
		return nil
	}
	out := make([]IdentityCandidate, len(in))
	for i, c := range in {
		out[i] = c
		out[i].Emails = append([]string(nil), c.Emails...)
		out[i].Phones = append([]string(nil), c.Phones...)
		out[i].Usernames = append([]string(nil), c.Usernames...)
		out[i].Locations = append([]string(nil), c.Locations...)
		out[i].Links = append([]string(nil), c.Links...)
		out[i].TopEvidence = append([]EvidenceItem(nil), c.TopEvidence...)
	}
	return out
}

func cloneProfile(p PersonProfile) PersonProfile {
	p.Names = append([]string(nil), p.Names...)
	p.Emails = append([]string(nil), p.Emails...)
	p.Phones = append([]string(nil), p.Phones...)
	p.Usernames = append([]string(nil), p.Usernames...)
	p.Locations = append([]string(nil), p.Locations...)
	p.Employment = append([]Employment(nil), p.Employment...)
	p.Education = append([]Education(nil), p.Education...)
	p.Links = append([]string(nil), p.Links...)
	p.Bios = append([]string(nil), p.Bios...)
	p.Skills = append([]string(nil), p.Skills...)
	p.Organizations = append([]string(nil), p.Organizations...)
	p.Websites = append([]string(nil), p.Websites...)
	p.Evidences = append([]EvidenceItem(nil), p.Evidences...)
	return p
}
