package domain

import (
	"errors"
	"time"
)

// Severity classifies how damaging an issue is.
type Severity string

// Severity values in ascending order of weight.
const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Scope describes the breadth of an issue.
type Scope string

// Scope values. Site-scoped issues carry the highest fix leverage.
const (
	ScopeSite    Scope = "site"
	ScopeCluster Scope = "cluster"
	ScopePage    Scope = "page"
)

var (
	// ErrInvalidSeverity is returned when constructing an issue with an unknown severity.
	ErrInvalidSeverity = errors.New("invalid severity")
	// ErrInvalidScope is returned when constructing an issue with an unknown scope.
	ErrInvalidScope = errors.New("invalid scope")
)

// severityWeights orders severities for priority computation.
var severityWeights = map[Severity]int{
	SeverityLow:      1,
	SeverityMedium:   2,
	SeverityHigh:     3,
	SeverityCritical: 4,
}

// scopeWeights reflects fix leverage: a site-wide fix pays off more than
// a page-local one.
var scopeWeights = map[Scope]int{
	ScopeSite:    3,
	ScopeCluster: 2,
	ScopePage:    1,
}

// Weight returns the numeric weight of a severity, or 0 for unknown values.
func (s Severity) Weight() int { return severityWeights[s] }

// Weight returns the numeric weight of a scope, or 0 for unknown values.
func (s Scope) Weight() int { return scopeWeights[s] }

// Valid reports whether the severity is a known value.
func (s Severity) Valid() bool { _, ok := severityWeights[s]; return ok }

// Valid reports whether the scope is a known value.
func (s Scope) Valid() bool { _, ok := scopeWeights[s]; return ok }

// Evidence is a snippet supporting a check result or issue.
type Evidence struct {
	Type    string `db:"type"     json:"type"`
	Content string `db:"content"  json:"content"`
	PageURL string `db:"page_url" json:"page_url,omitempty"`
}

// Issue is a deduplicated finding produced by aggregating failing checks.
// Issues are created once per (issueCode, scope, cluster) per scan and
// never mutated afterwards; re-scans create new issues.
type Issue struct {
	ID            string     `db:"id"             json:"id"`
	ScanID        string     `db:"scan_id"        json:"scan_id"`
	IssueCode     string     `db:"issue_code"     json:"issue_code"`
	Title         string     `db:"title"          json:"title"`
	Description   string     `db:"description"    json:"description"`
	Severity      Severity   `db:"severity"       json:"severity"`
	Scope         Scope      `db:"scope"          json:"scope"`
	AffectedCount int        `db:"affected_count" json:"affected_count"`
	PriorityScore int        `db:"priority_score" json:"priority_score"`
	ClusterID     *string    `db:"cluster_id"     json:"cluster_id,omitempty"`
	ClusterName   *string    `db:"cluster_name"   json:"cluster_name,omitempty"`
	PageURL       *string    `db:"page_url"       json:"page_url,omitempty"`
	Evidence      []Evidence `db:"-"              json:"evidence,omitempty"`
	CreatedAt     time.Time  `db:"created_at"     json:"created_at"`
}

// NewIssueParams holds validated inputs for constructing an issue.
type NewIssueParams struct {
	ScanID        string
	IssueCode     string
	Title         string
	Description   string
	Severity      Severity
	Scope         Scope
	AffectedCount int
	ClusterID     *string
	ClusterName   *string
	PageURL       *string
	Evidence      []Evidence
}

// NewIssue constructs an issue with a computed priority score.
// Severity and scope are validated here so malformed metadata can never
// reach persistence.
func NewIssue(p NewIssueParams) (*Issue, error) {
	if !p.Severity.Valid() {
		return nil, ErrInvalidSeverity
	}
	if !p.Scope.Valid() {
		return nil, ErrInvalidScope
	}

	return &Issue{
		ScanID:        p.ScanID,
		IssueCode:     p.IssueCode,
		Title:         p.Title,
		Description:   p.Description,
		Severity:      p.Severity,
		Scope:         p.Scope,
		AffectedCount: p.AffectedCount,
		PriorityScore: PriorityScore(p.Severity, p.Scope, p.AffectedCount),
		ClusterID:     p.ClusterID,
		ClusterName:   p.ClusterName,
		PageURL:       p.PageURL,
		Evidence:      p.Evidence,
		CreatedAt:     time.Now(),
	}, nil
}

// PriorityScore computes the deterministic priority of an issue:
// severity weight x affected count x scope weight.
func PriorityScore(severity Severity, scope Scope, affectedCount int) int {
	if affectedCount < 1 {
		affectedCount = 1
	}
	return severity.Weight() * scope.Weight() * affectedCount
}
