package report

import (
	"context"
	"fmt"

	"github.com/jonesrussell/aeoscan/internal/database"
	"github.com/jonesrussell/aeoscan/internal/domain"
	"github.com/jonesrussell/aeoscan/internal/fixes"
	"github.com/jonesrussell/aeoscan/internal/issue"
	"github.com/jonesrussell/aeoscan/internal/logger"
)

// topFixCount is how many high-leverage fixes a report view surfaces.
const topFixCount = 5

// View is the full read model of a finished scan.
type View struct {
	Scan        *domain.Scan          `json:"scan"`
	Report      *domain.Report        `json:"report"`
	PublicScore float64               `json:"public_score"`
	Clusters    []*domain.Cluster     `json:"clusters"`
	TopFixes    []domain.IssueWithFix `json:"top_fixes"`
	Issues      []*domain.Issue       `json:"issues"`
}

// Service assembles report views from persisted scan data.
type Service struct {
	scans    database.ScanRepositoryInterface
	clusters database.ClusterRepositoryInterface
	issues   database.IssueRepositoryInterface
	reports  database.ReportRepositoryInterface
	fixes    *fixes.Registry
	log      logger.Interface
}

// NewService creates a report read service.
func NewService(
	scans database.ScanRepositoryInterface,
	clusters database.ClusterRepositoryInterface,
	issues database.IssueRepositoryInterface,
	reports database.ReportRepositoryInterface,
	fixRegistry *fixes.Registry,
	log logger.Interface,
) *Service {
	return &Service{
		scans:    scans,
		clusters: clusters,
		issues:   issues,
		reports:  reports,
		fixes:    fixRegistry,
		log:      log,
	}
}

// GetView loads everything needed to present one scan's results.
// Running and failed scans return the scan alone without a report.
func (s *Service) GetView(ctx context.Context, scanID string) (*View, error) {
	scan, err := s.scans.GetByID(ctx, scanID)
	if err != nil {
		return nil, fmt.Errorf("load scan: %w", err)
	}

	view := &View{Scan: scan}
	if scan.Status == domain.ScanStatusRunning || scan.Status == domain.ScanStatusFailed {
		return view, nil
	}

	rpt, err := s.reports.GetLatestByScan(ctx, scanID)
	if err != nil {
		return nil, fmt.Errorf("load report: %w", err)
	}
	view.Report = rpt
	view.PublicScore = domain.PublicScore(rpt.OverallScore)

	clusters, err := s.clusters.ListByScan(ctx, scanID)
	if err != nil {
		return nil, fmt.Errorf("load clusters: %w", err)
	}
	view.Clusters = clusters

	issues, err := s.issues.ListByScan(ctx, scanID)
	if err != nil {
		return nil, fmt.Errorf("load issues: %w", err)
	}
	view.Issues = issues
	view.TopFixes = s.fixes.Attach(issue.TopFixes(issues, topFixCount))

	return view, nil
}

// GetIssueDetail returns one issue with its fix templates attached.
func (s *Service) GetIssueDetail(ctx context.Context, scanID, issueID string) (*domain.IssueWithFix, error) {
	found, err := s.issues.GetIssue(ctx, scanID, issueID)
	if err != nil {
		return nil, fmt.Errorf("load issue: %w", err)
	}

	return &domain.IssueWithFix{
		Issue: found,
		Fixes: s.fixes.Lookup(found.IssueCode),
	}, nil
}
