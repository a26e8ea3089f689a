package normalize

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"deepsearch/internal/search/models"
)

const extractionPrompt = `Extract the following fields from the text below and answer with a single JSON object, using null for unknown fields:
{"full_name": string|null, "email": string|null, "phone": string|null, "username": string|null, "location": string|null}

Text:
%TEXT%`

// Extractor produces a canonical query from raw input. The deterministic
// normalizers always run; a configured LLM only proposes values for fields
// they left empty.
type Extractor struct {
	model  llms.Model
	logger *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLLM enables LLM-assisted extraction of free-text context.
func WithLLM(model llms.Model) Option {
	return func(e *Extractor) { e.model = model }
}

// NewExtractor builds an Extractor.
func NewExtractor(logger *slog.Logger, opts ...Option) *Extractor {
	e := &Extractor{logger: logger}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract normalizes input into a canonical query, filling gaps from the
// free-text context via regex heuristics and, when configured, the LLM.
// Deterministically normalized fields always win over proposed ones.
func (e *Extractor) Extract(ctx context.Context, input models.SearchInput) models.Query {
	query := Normalize(input)
	if input.ContextText == "" {
		return query
	}

	if query.FullName == "" || query.Location == "" {
		guess := FromContext(input.ContextText)
		if query.FullName == "" {
			query.FullName = guess.FullName
		}
		if query.Location == "" {
			query.Location = guess.Location
		}
	}

	if e.model != nil {
		e.fillFromLLM(ctx, input.ContextText, &query)
	}
	return query
}

type llmProposal struct {
	FullName *string `json:"full_name"`
	Email    *string `json:"email"`
	Phone    *string `json:"phone"`
	Username *string `json:"username"`
	Location *string `json:"location"`
}

func (e *Extractor) fillFromLLM(ctx context.Context, contextText string, query *models.Query) {
	prompt := strings.Replace(extractionPrompt, "%TEXT%", contextText, 1)

	var proposal llmProposal
	ok := false
	// One retry: small models intermittently wrap the JSON in prose.
	for attempt := 0; attempt < 2; attempt++ {
		content, err := llms.GenerateFromSinglePrompt(ctx, e.model, prompt, llms.WithTemperature(0))
		if err != nil {
			e.logger.WarnContext(ctx, "llm extraction call failed", "error", err.Error())
			continue
		}
		if err := json.Unmarshal([]byte(extractJSON(content)), &proposal); err != nil {
			e.logger.WarnContext(ctx, "llm extraction returned non-JSON", "error", err.Error())
			continue
		}
		ok = true
		break
	}
	if !ok {
		return
	}

	if query.FullName == "" && proposal.FullName != nil {
		query.FullName = Name(*proposal.FullName)
	}
	if query.Email == "" && proposal.Email != nil {
		query.Email = Email(*proposal.Email)
	}
	if query.Phone == "" && proposal.Phone != nil {
		query.Phone = Phone(*proposal.Phone)
	}
	if query.Username == "" && proposal.Username != nil {
		query.Username = strings.TrimSpace(*proposal.Username)
	}
	if query.Location == "" && proposal.Location != nil {
		query.Location = strings.TrimSpace(*proposal.Location)
	}
}

// extractJSON trims prose around the first top-level JSON object.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}
