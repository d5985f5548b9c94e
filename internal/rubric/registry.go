// Package rubric defines the versioned evaluation rubric: pillars,
// checks, and the evaluator that scores cluster representatives under
// the scan's LLM budget.
package rubric

import (
	"github.com/jonesrussell/aeoscan/internal/domain"
)

// CheckKind distinguishes deterministic checks from semantic ones that
// require an LLM call.
type CheckKind string

// Check kinds.
const (
	KindDeterministic CheckKind = "deterministic"
	KindSemantic      CheckKind = "semantic"
)

// FailingScore is the score below which a check result becomes an issue.
const FailingScore = 3.0

// MaxCheckScore is the top of the internal check scale.
const MaxCheckScore = 5.0

// Pillar is a named grouping of checks contributing a weighted
// sub-score to the overall score.
type Pillar struct {
	ID     string  `json:"id"     yaml:"id"`
	Name   string  `json:"name"   yaml:"name"`
	Weight float64 `json:"weight" yaml:"weight"`
}

// Check is a single testable rule within a pillar. Deterministic checks
// score via Eval; semantic checks build a prompt and score via the LLM.
type Check struct {
	ID          string
	PillarID    string
	Weight      float64
	Kind        CheckKind
	IssueCode   string
	Title       string
	Description string
	Severity    domain.Severity
	// Scope is the inherent breadth of the defect this check detects.
	// Page-scoped checks never generalize to a template.
	Scope       domain.Scope
	NeedsRender bool

	// Eval scores a deterministic check on the 0-5 scale.
	Eval func(pc *PageContext) (float64, []domain.Evidence)
	// Prompt builds the LLM prompt for a semantic check.
	Prompt func(pc *PageContext) string
}

// Registry is the immutable, versioned rubric loaded once per process
// and passed explicitly to the evaluator.
type Registry struct {
	Version string
	Pillars []Pillar
	Checks  []*Check
}

// PillarByID returns a pillar by ID, or false when unknown.
func (r *Registry) PillarByID(id string) (Pillar, bool) {
	for _, p := range r.Pillars {
		if p.ID == id {
			return p, true
		}
	}
	return Pillar{}, false
}

// CheckResult is the outcome of running one check against one page.
type CheckResult struct {
	CheckID      string            `json:"check_id"`
	PillarID     string            `json:"pillar_id"`
	Score        float64           `json:"score"`
	Skipped      bool              `json:"skipped,omitempty"`
	SkipReason   string            `json:"skip_reason,omitempty"`
	Inconclusive bool              `json:"inconclusive,omitempty"`
	Truncated    bool              `json:"truncated,omitempty"`
	Evidence     []domain.Evidence `json:"evidence,omitempty"`
}

// Failing reports whether a scored result should become an issue.
// Skipped and inconclusive results never fail.
func (r CheckResult) Failing() bool {
	return !r.Skipped && !r.Inconclusive && r.Score < FailingScore
}

// Outcome ties a check result to the cluster and page it was evaluated
// against, carrying enough context for issue aggregation.
type Outcome struct {
	Check            *Check
	Result           CheckResult
	ClusterID        string
	ClusterName      string
	ClusterPageCount int
	PageURL          string
}
