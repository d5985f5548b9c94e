package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/aeoscan/internal/domain"
)

// ErrIssueNotFound is returned when an issue ID does not exist.
// Callers should check with errors.Is().
var ErrIssueNotFound = errors.New("issue not found")

// issueSelectColumns lists columns for SELECT queries on issues.
const issueSelectColumns = `id, scan_id, issue_code, title, description, severity, scope,
	affected_count, priority_score, cluster_id, cluster_name, page_url, evidence, created_at`

// IssueRepository handles database operations for aggregated issues.
type IssueRepository struct {
	db *sqlx.DB
}

// NewIssueRepository creates a new issue repository.
func NewIssueRepository(db *sqlx.DB) *IssueRepository {
	return &IssueRepository{db: db}
}

// issueRow mirrors the issues table, with evidence as raw JSONB.
type issueRow struct {
	domain.Issue
	EvidenceJSON []byte `db:"evidence"`
}

func (row *issueRow) toDomain() (*domain.Issue, error) {
	issue := row.Issue
	if len(row.EvidenceJSON) > 0 {
		if err := json.Unmarshal(row.EvidenceJSON, &issue.Evidence); err != nil {
			return nil, fmt.Errorf("failed to decode issue evidence: %w", err)
		}
	}
	return &issue, nil
}

// BatchInsert persists a scan's issues in one transaction, assigning IDs.
func (r *IssueRepository) BatchInsert(ctx context.Context, issues []*domain.Issue) error {
	if len(issues) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin issue insert transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	query := `
		INSERT INTO issues (id, scan_id, issue_code, title, description, severity, scope,
			affected_count, priority_score, cluster_id, cluster_name, page_url, evidence, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	for _, issue := range issues {
		if issue.ID == "" {
			issue.ID = uuid.New().String()
		}

		evidence, marshalErr := json.Marshal(issue.Evidence)
		if marshalErr != nil {
			return fmt.Errorf("failed to encode issue evidence: %w", marshalErr)
		}

		if _, execErr := tx.ExecContext(ctx, query,
			issue.ID, issue.ScanID, issue.IssueCode, issue.Title, issue.Description,
			issue.Severity, issue.Scope, issue.AffectedCount, issue.PriorityScore,
			issue.ClusterID, issue.ClusterName, issue.PageURL, evidence, issue.CreatedAt,
		); execErr != nil {
			return fmt.Errorf("failed to insert issue %s: %w", issue.IssueCode, execErr)
		}
	}

	if commitErr := tx.Commit(); commitErr != nil {
		return fmt.Errorf("failed to commit issue insert: %w", commitErr)
	}

	return nil
}

// GetIssue returns one issue of a scan, or ErrIssueNotFound.
func (r *IssueRepository) GetIssue(ctx context.Context, scanID, issueID string) (*domain.Issue, error) {
	query := `SELECT ` + issueSelectColumns + ` FROM issues WHERE scan_id = $1 AND id = $2`

	var row issueRow
	err := r.db.GetContext(ctx, &row, query, scanID, issueID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrIssueNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get issue: %w", err)
	}

	return row.toDomain()
}

// ListByScan returns a scan's issues ordered by priority descending,
// matching the aggregator's tie-break chain.
func (r *IssueRepository) ListByScan(ctx context.Context, scanID string) ([]*domain.Issue, error) {
	query := `
		SELECT ` + issueSelectColumns + `
		FROM issues
		WHERE scan_id = $1
		ORDER BY priority_score DESC, affected_count DESC,
			CASE severity
				WHEN 'critical' THEN 4
				WHEN 'high' THEN 3
				WHEN 'medium' THEN 2
				ELSE 1
			END DESC,
			issue_code
	`

	var rows []issueRow
	if err := r.db.SelectContext(ctx, &rows, query, scanID); err != nil {
		return nil, fmt.Errorf("failed to list issues: %w", err)
	}

	issues := make([]*domain.Issue, 0, len(rows))
	for i := range rows {
		issue, convErr := rows[i].toDomain()
		if convErr != nil {
			return nil, convErr
		}
		issues = append(issues, issue)
	}

	return issues, nil
}
