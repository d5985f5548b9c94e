package database

import (
	"context"

	"github.com/jonesrussell/aeoscan/internal/budget"
	"github.com/jonesrussell/aeoscan/internal/domain"
)

// ScanRepositoryInterface defines the contract for scan data access.
type ScanRepositoryInterface interface {
	Create(ctx context.Context, targetURL string) (*domain.Scan, error)
	GetByID(ctx context.Context, id string) (*domain.Scan, error)
	Complete(ctx context.Context, id string, status domain.ScanStatus, usage budget.Usage, limitsHit domain.JSONBMap) error
	ListRecent(ctx context.Context, limit int) ([]*domain.Scan, error)
	ListCompletedTargets(ctx context.Context) ([]string, error)
}

// PageRepositoryInterface defines the contract for page data access.
type PageRepositoryInterface interface {
	BatchInsert(ctx context.Context, pages []*domain.Page) error
	GetByID(ctx context.Context, scanID, pageID string) (*domain.Page, error)
	ListPagesByScan(ctx context.Context, scanID string) ([]*domain.Page, error)
	ListPagesByCluster(ctx context.Context, clusterID string) ([]*domain.Page, error)
}

// ClusterRepositoryInterface defines the contract for cluster data access.
type ClusterRepositoryInterface interface {
	BatchInsert(ctx context.Context, clusters []*domain.Cluster, assignments []*domain.ClusterPage) error
	ListByScan(ctx context.Context, scanID string) ([]*domain.Cluster, error)
}

// IssueRepositoryInterface defines the contract for issue data access.
type IssueRepositoryInterface interface {
	BatchInsert(ctx context.Context, issues []*domain.Issue) error
	GetIssue(ctx context.Context, scanID, issueID string) (*domain.Issue, error)
	ListByScan(ctx context.Context, scanID string) ([]*domain.Issue, error)
}

// ReportRepositoryInterface defines the contract for report data access.
type ReportRepositoryInterface interface {
	Create(ctx context.Context, report *domain.Report) error
	GetLatestByScan(ctx context.Context, scanID string) (*domain.Report, error)
}
