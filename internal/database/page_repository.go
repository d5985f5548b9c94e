package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/aeoscan/internal/domain"
)

// ErrPageNotFound is returned when a page ID does not exist in a scan.
var ErrPageNotFound = errors.New("page not found")

// pageSelectColumns lists columns for SELECT queries on pages (aliased as p).
const pageSelectColumns = `p.id, p.scan_id, p.url, p.rendered, p.raw_ref, p.fetched_at`

// PageRepository handles database operations for crawled pages.
type PageRepository struct {
	db *sqlx.DB
}

// NewPageRepository creates a new page repository.
func NewPageRepository(db *sqlx.DB) *PageRepository {
	return &PageRepository{db: db}
}

// BatchInsert inserts the pages of a scan in one transaction. Pages are
// immutable once written.
func (r *PageRepository) BatchInsert(ctx context.Context, pages []*domain.Page) error {
	if len(pages) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin page insert transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	query := `
		INSERT INTO pages (id, scan_id, url, rendered, raw_ref, fetched_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	for _, p := range pages {
		if _, execErr := tx.ExecContext(ctx, query,
			p.ID, p.ScanID, p.URL, p.Rendered, p.RawRef, p.FetchedAt,
		); execErr != nil {
			return fmt.Errorf("failed to insert page %s: %w", p.URL, execErr)
		}
	}

	if commitErr := tx.Commit(); commitErr != nil {
		return fmt.Errorf("failed to commit page insert: %w", commitErr)
	}

	return nil
}

// GetByID returns one page of a scan, or ErrPageNotFound.
func (r *PageRepository) GetByID(ctx context.Context, scanID, pageID string) (*domain.Page, error) {
	query := `SELECT ` + pageSelectColumns + ` FROM pages p WHERE p.scan_id = $1 AND p.id = $2`

	var page domain.Page
	if err := r.db.GetContext(ctx, &page, query, scanID, pageID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPageNotFound
		}
		return nil, fmt.Errorf("failed to get page: %w", err)
	}

	return &page, nil
}

// ListPagesByScan returns every page of a scan ordered by URL.
func (r *PageRepository) ListPagesByScan(ctx context.Context, scanID string) ([]*domain.Page, error) {
	query := `SELECT ` + pageSelectColumns + ` FROM pages p WHERE p.scan_id = $1 ORDER BY p.url`

	var pages []*domain.Page
	if err := r.db.SelectContext(ctx, &pages, query, scanID); err != nil {
		return nil, fmt.Errorf("failed to list pages by scan: %w", err)
	}

	return pages, nil
}

// ListPagesByCluster returns the pages assigned to one cluster ordered
// by URL.
func (r *PageRepository) ListPagesByCluster(ctx context.Context, clusterID string) ([]*domain.Page, error) {
	query := `
		SELECT ` + pageSelectColumns + `
		FROM pages p
		JOIN cluster_pages cp ON cp.page_id = p.id
		WHERE cp.cluster_id = $1
		ORDER BY p.url
	`

	var pages []*domain.Page
	if err := r.db.SelectContext(ctx, &pages, query, clusterID); err != nil {
		return nil, fmt.Errorf("failed to list pages by cluster: %w", err)
	}

	return pages, nil
}
