// Package planner decides which source adapters to invoke for a query and
// under what per-adapter timeout, inside a global wall-clock budget.
package planner

import (
	"time"

	"deepsearch/internal/search/models"
	"deepsearch/internal/source"
)

// Step is one planned adapter invocation.
type Step struct {
	Source  source.Name
	Timeout time.Duration
}

// Default per-adapter timeouts. Each step consumes its timeout from the
// remaining budget as it is appended.
const (
	webSearchTimeout = 6 * time.Second
	keyedTimeout     = 5 * time.Second
	handleTimeout    = 4 * time.Second
)

// Plan produces the ordered adapter steps for a query. The rules run in a
// fixed priority order and the output is fully determined by the query and
// budget; no randomness, no external state.
//
// A context-only query (free text but no identifying field) plans exactly one
// web search step and nothing else. Otherwise: email drives the keyed
// enrichment; name+location drives identify, then name search, then web
// search; a username adds the handle lookup; and if nothing matched, the
// enrichment adapter is the fallback.
func Plan(query models.Query, budget time.Duration) []Step {
	p := &plan{remaining: budget}

	if !query.HasIdentifier() && query.ContextText != "" {
		p.append(source.WebSearch, webSearchTimeout)
		return p.steps
	}

	if query.Email != "" {
		p.append(source.Enrich, keyedTimeout)
	} else if query.FullName != "" && query.Location != "" {
		p.append(source.Identify, keyedTimeout)
		p.append(source.NameSearch, keyedTimeout)
		p.append(source.WebSearch, keyedTimeout)
	}

	if query.Username != "" {
		p.append(source.Handle, handleTimeout)
	}

	if len(p.steps) == 0 {
		p.append(source.Enrich, keyedTimeout)
	}

	return p.steps
}

type plan struct {
	steps     []Step
	remaining time.Duration
}

// append adds a step only while budget remains, capping its timeout at the
// remainder.
func (p *plan) append(name source.Name, timeout time.Duration) {
	if p.remaining <= 0 {
		return
	}
	if timeout > p.remaining {
		timeout = p.remaining
	}
	p.steps = append(p.steps, Step{Source: name, Timeout: timeout})
	p.remaining -= timeout
}
