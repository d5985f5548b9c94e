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

// ErrReportNotFound is returned when a scan has no report yet.
// Callers should check with errors.Is().
var ErrReportNotFound = errors.New("report not found")

// ReportRepository handles database operations for score reports.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository creates a new report repository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// reportRow mirrors the reports table, with pillar scores as raw JSONB.
type reportRow struct {
	domain.Report
	ScoresJSON []byte `db:"scores"`
}

// Create inserts an immutable report snapshot, assigning its ID.
func (r *ReportRepository) Create(ctx context.Context, report *domain.Report) error {
	if report.ID == "" {
		report.ID = uuid.New().String()
	}

	scores, err := json.Marshal(report.Scores)
	if err != nil {
		return fmt.Errorf("failed to encode pillar scores: %w", err)
	}

	query := `
		INSERT INTO reports (id, scan_id, overall_score, scores, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	if _, execErr := r.db.ExecContext(ctx, query,
		report.ID, report.ScanID, report.OverallScore, scores, report.CreatedAt,
	); execErr != nil {
		return fmt.Errorf("failed to create report: %w", execErr)
	}

	return nil
}

// GetLatestByScan returns the newest report of a scan, or
// ErrReportNotFound.
func (r *ReportRepository) GetLatestByScan(ctx context.Context, scanID string) (*domain.Report, error) {
	query := `
		SELECT id, scan_id, overall_score, scores, created_at
		FROM reports
		WHERE scan_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	var row reportRow
	err := r.db.GetContext(ctx, &row, query, scanID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	report := row.Report
	if len(row.ScoresJSON) > 0 {
		if unmarshalErr := json.Unmarshal(row.ScoresJSON, &report.Scores); unmarshalErr != nil {
			return nil, fmt.Errorf("failed to decode pillar scores: %w", unmarshalErr)
		}
	}

	return &report, nil
}
