// Package domain provides domain models used across the application.
package domain

import (
	"time"
)

// ScanStatus represents the lifecycle state of a scan.
type ScanStatus string

// Scan status values. A scan is terminal once its status is non-running.
const (
	ScanStatusRunning             ScanStatus = "running"
	ScanStatusCompleted           ScanStatus = "completed"
	ScanStatusCompletedWithLimits ScanStatus = "completed_with_limits"
	ScanStatusFailed              ScanStatus = "failed"
)

// BudgetKind identifies one of the per-scan resource budgets.
type BudgetKind string

// Budget kinds admitted by the budget controller.
const (
	BudgetFetch   BudgetKind = "fetch"
	BudgetRender  BudgetKind = "render"
	BudgetLLMCall BudgetKind = "llm_call"
	BudgetTokens  BudgetKind = "tokens"
)

// Scan represents one crawl-and-evaluate run against a target site.
type Scan struct {
	ID            string     `db:"id"             json:"id"`
	TargetURL     string     `db:"target_url"     json:"target_url"`
	Status        ScanStatus `db:"status"         json:"status"`
	PagesFetched  int        `db:"pages_fetched"  json:"pages_fetched"`
	PagesRendered int        `db:"pages_rendered" json:"pages_rendered"`
	LLMCalls      int        `db:"llm_calls"      json:"llm_calls"`
	EstTokens     int        `db:"est_tokens"     json:"est_tokens"`
	BudgetLimits  JSONBMap   `db:"budget_limits"  json:"budget_limits"`
	CreatedAt     time.Time  `db:"created_at"     json:"created_at"`
	CompletedAt   *time.Time `db:"completed_at"   json:"completed_at,omitempty"`
}

// Terminal reports whether the scan has reached a terminal status.
func (s *Scan) Terminal() bool {
	return s.Status != ScanStatusRunning
}

// Page represents one fetched URL within a scan. Immutable once created.
type Page struct {
	ID        string    `db:"id"          json:"id"`
	ScanID    string    `db:"scan_id"     json:"scan_id"`
	URL       string    `db:"url"         json:"url"`
	Rendered  bool      `db:"rendered"    json:"rendered"`
	RawRef    string    `db:"raw_ref"     json:"raw_ref"`
	FetchedAt time.Time `db:"fetched_at"  json:"fetched_at"`
}
