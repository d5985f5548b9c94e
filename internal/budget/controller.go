// Package budget enforces per-scan resource ceilings. Each scan owns one
// Controller instance; admission checks are serialized under a single
// mutex so parallel workers can never over-admit.
package budget

import (
	"sync"

	"github.com/jonesrussell/aeoscan/internal/domain"
)

// Limits holds the ceilings read once at scan start. They never change
// mid-scan.
type Limits struct {
	MaxPages         int `json:"max_pages"           mapstructure:"max_pages"`
	MaxRenders       int `json:"max_renders"         mapstructure:"max_renders"`
	MaxLLMCalls      int `json:"max_llm_calls"       mapstructure:"max_llm_calls"`
	MaxTokensPerCall int `json:"max_tokens_per_call" mapstructure:"max_tokens_per_call"`
}

// Overrides carries optional per-scan ceiling overrides. Zero fields
// keep the configured limit.
type Overrides struct {
	MaxPages         int `json:"max_pages,omitempty"`
	MaxRenders       int `json:"max_renders,omitempty"`
	MaxLLMCalls      int `json:"max_llm_calls,omitempty"`
	MaxTokensPerCall int `json:"max_tokens_per_call,omitempty"`
}

// Apply returns a copy of the limits with non-zero overrides applied.
func (l Limits) Apply(o Overrides) Limits {
	if o.MaxPages > 0 {
		l.MaxPages = o.MaxPages
	}
	if o.MaxRenders > 0 {
		l.MaxRenders = o.MaxRenders
	}
	if o.MaxLLMCalls > 0 {
		l.MaxLLMCalls = o.MaxLLMCalls
	}
	if o.MaxTokensPerCall > 0 {
		l.MaxTokensPerCall = o.MaxTokensPerCall
	}
	return l
}

// Usage is a point-in-time snapshot of consumed budget.
type Usage struct {
	PagesFetched  int `json:"pages_fetched"`
	PagesRendered int `json:"pages_rendered"`
	LLMCalls      int `json:"llm_calls"`
	EstTokens     int `json:"est_tokens"`
}

// Controller is the sole authority for admitting budgeted work within a
// scan. Denial is a normal skip signal, never an error.
type Controller struct {
	mu       sync.Mutex
	limits   Limits
	usage    Usage
	limitHit map[domain.BudgetKind]bool
}

// NewController creates a controller with the given ceilings.
func NewController(limits Limits) *Controller {
	return &Controller{
		limits:   limits,
		limitHit: make(map[domain.BudgetKind]bool),
	}
}

// TryAdmit atomically checks whether cost units of the given kind fit
// under the ceiling. On success the counter is incremented and true is
// returned. On denial the limit-hit flag for that kind is recorded and
// false is returned; the caller must skip that unit of work.
func (c *Controller) TryAdmit(kind domain.BudgetKind, cost int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	current, ceiling := c.counterLocked(kind)
	if current+cost > ceiling {
		c.limitHit[kind] = true
		return false
	}

	c.addLocked(kind, cost)
	return true
}

// AdmitTokens admits one LLM call's token estimate, truncating rather
// than denying when the estimate exceeds the per-call ceiling. It
// returns the granted token count and whether truncation occurred.
func (c *Controller) AdmitTokens(estimated int) (granted int, truncated bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	granted = estimated
	if granted > c.limits.MaxTokensPerCall {
		granted = c.limits.MaxTokensPerCall
		truncated = true
		c.limitHit[domain.BudgetTokens] = true
	}

	c.usage.EstTokens += granted
	return granted, truncated
}

// Usage returns a snapshot of consumed budget.
func (c *Controller) Usage() Usage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.usage
}

// LimitsHit returns the budget kinds whose ceilings were reached,
// as a map suitable for the Scan's budget_limits field.
func (c *Controller) LimitsHit() domain.JSONBMap {
	c.mu.Lock()
	defer c.mu.Unlock()

	hit := domain.JSONBMap{}
	for kind, v := range c.limitHit {
		if v {
			hit[string(kind)] = true
		}
	}
	return hit
}

// AnyLimitHit reports whether any ceiling was reached during the scan.
func (c *Controller) AnyLimitHit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, v := range c.limitHit {
		if v {
			return true
		}
	}
	return false
}

// counterLocked returns the current counter and ceiling for a kind.
// Callers must hold c.mu.
func (c *Controller) counterLocked(kind domain.BudgetKind) (current, ceiling int) {
	switch kind {
	case domain.BudgetFetch:
		return c.usage.PagesFetched, c.limits.MaxPages
	case domain.BudgetRender:
		return c.usage.PagesRendered, c.limits.MaxRenders
	case domain.BudgetLLMCall:
		return c.usage.LLMCalls, c.limits.MaxLLMCalls
	case domain.BudgetTokens:
		// The token ceiling is per call, not cumulative.
		return 0, c.limits.MaxTokensPerCall
	default:
		return 0, 0
	}
}

// addLocked increments the counter for a kind. Callers must hold c.mu.
func (c *Controller) addLocked(kind domain.BudgetKind, cost int) {
	switch kind {
	case domain.BudgetFetch:
		c.usage.PagesFetched += cost
	case domain.BudgetRender:
		c.usage.PagesRendered += cost
	case domain.BudgetLLMCall:
		c.usage.LLMCalls += cost
	case domain.BudgetTokens:
		c.usage.EstTokens += cost
	}
}
