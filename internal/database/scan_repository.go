package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/aeoscan/internal/budget"
	"github.com/jonesrussell/aeoscan/internal/domain"
)

// ErrScanNotFound is returned when a scan ID does not exist.
// Callers should check with errors.Is().
var ErrScanNotFound = errors.New("scan not found")

// scanSelectColumns lists columns for SELECT queries on scans.
const scanSelectColumns = `id, target_url, status, pages_fetched, pages_rendered,
	llm_calls, est_tokens, budget_limits, created_at, completed_at`

// ScanRepository handles database operations for scans.
type ScanRepository struct {
	db *sqlx.DB
}

// NewScanRepository creates a new scan repository.
func NewScanRepository(db *sqlx.DB) *ScanRepository {
	return &ScanRepository{db: db}
}

// Create inserts a new scan in running status and returns it with its
// generated ID.
func (r *ScanRepository) Create(ctx context.Context, targetURL string) (*domain.Scan, error) {
	scan := &domain.Scan{
		ID:           uuid.New().String(),
		TargetURL:    targetURL,
		Status:       domain.ScanStatusRunning,
		BudgetLimits: domain.JSONBMap{},
		CreatedAt:    time.Now().UTC(),
	}

	query := `
		INSERT INTO scans (id, target_url, status, budget_limits, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.ExecContext(ctx, query,
		scan.ID, scan.TargetURL, scan.Status, scan.BudgetLimits, scan.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scan: %w", err)
	}

	return scan, nil
}

// GetByID returns a scan, or ErrScanNotFound.
func (r *ScanRepository) GetByID(ctx context.Context, id string) (*domain.Scan, error) {
	query := `SELECT ` + scanSelectColumns + ` FROM scans WHERE id = $1`

	var scan domain.Scan
	err := r.db.GetContext(ctx, &scan, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrScanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scan: %w", err)
	}

	return &scan, nil
}

// Complete moves a scan to a terminal status and records final usage
// counters and the budget ceilings that were hit.
func (r *ScanRepository) Complete(
	ctx context.Context,
	id string,
	status domain.ScanStatus,
	usage budget.Usage,
	limitsHit domain.JSONBMap,
) error {
	query := `
		UPDATE scans SET
			status = $2,
			pages_fetched = $3,
			pages_rendered = $4,
			llm_calls = $5,
			est_tokens = $6,
			budget_limits = $7,
			completed_at = NOW()
		WHERE id = $1 AND status = 'running'
	`

	result, err := r.db.ExecContext(ctx, query,
		id, status, usage.PagesFetched, usage.PagesRendered,
		usage.LLMCalls, usage.EstTokens, limitsHit,
	)
	if err != nil {
		return fmt.Errorf("failed to complete scan: %w", err)
	}

	// A zero-row update means the scan is gone or already terminal; the
	// running-status guard keeps Complete from firing twice.
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to complete scan: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("failed to complete scan: %w", ErrScanNotFound)
	}

	return nil
}

// ListRecent returns the most recently created scans, newest first.
func (r *ScanRepository) ListRecent(ctx context.Context, limit int) ([]*domain.Scan, error) {
	query := `SELECT ` + scanSelectColumns + ` FROM scans ORDER BY created_at DESC LIMIT $1`

	var scans []*domain.Scan
	if err := r.db.SelectContext(ctx, &scans, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list scans: %w", err)
	}

	return scans, nil
}

// ListCompletedTargets returns the distinct target URLs of completed
// scans, used by the rescan scheduler.
func (r *ScanRepository) ListCompletedTargets(ctx context.Context) ([]string, error) {
	query := `
		SELECT DISTINCT target_url FROM scans
		WHERE status IN ('completed', 'completed_with_limits')
		ORDER BY target_url
	`

	var targets []string
	if err := r.db.SelectContext(ctx, &targets, query); err != nil {
		return nil, fmt.Errorf("failed to list completed targets: %w", err)
	}

	return targets, nil
}
