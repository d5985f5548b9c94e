package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/aeoscan/internal/domain"
)

// ClusterRepository handles database operations for template clusters
// and their page assignments.
type ClusterRepository struct {
	db *sqlx.DB
}

// NewClusterRepository creates a new cluster repository.
func NewClusterRepository(db *sqlx.DB) *ClusterRepository {
	return &ClusterRepository{db: db}
}

// BatchInsert persists a scan's clusters and page assignments in one
// transaction.
func (r *ClusterRepository) BatchInsert(
	ctx context.Context,
	clusters []*domain.Cluster,
	assignments []*domain.ClusterPage,
) error {
	if len(clusters) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin cluster insert transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	clusterQuery := `
		INSERT INTO clusters (id, scan_id, name, page_count)
		VALUES ($1, $2, $3, $4)
	`
	for _, c := range clusters {
		if _, execErr := tx.ExecContext(ctx, clusterQuery,
			c.ID, c.ScanID, c.Name, c.PageCount,
		); execErr != nil {
			return fmt.Errorf("failed to insert cluster %s: %w", c.Name, execErr)
		}
	}

	assignQuery := `
		INSERT INTO cluster_pages (cluster_id, page_id, representative_type)
		VALUES ($1, $2, NULLIF($3, ''))
	`
	for _, a := range assignments {
		if _, execErr := tx.ExecContext(ctx, assignQuery,
			a.ClusterID, a.PageID, string(a.RepresentativeType),
		); execErr != nil {
			return fmt.Errorf("failed to insert cluster page %s: %w", a.PageID, execErr)
		}
	}

	if commitErr := tx.Commit(); commitErr != nil {
		return fmt.Errorf("failed to commit cluster insert: %w", commitErr)
	}

	return nil
}

// ListByScan returns a scan's clusters ordered by page count descending.
func (r *ClusterRepository) ListByScan(ctx context.Context, scanID string) ([]*domain.Cluster, error) {
	query := `
		SELECT id, scan_id, name, page_count
		FROM clusters
		WHERE scan_id = $1
		ORDER BY page_count DESC, name
	`

	var clusters []*domain.Cluster
	if err := r.db.SelectContext(ctx, &clusters, query, scanID); err != nil {
		return nil, fmt.Errorf("failed to list clusters: %w", err)
	}

	return clusters, nil
}
