// Package export produces downloadable artifacts from scan results.
// The only format today is a CSV of URLs affected by an issue.
package export

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/jonesrussell/aeoscan/internal/domain"
	"github.com/jonesrussell/aeoscan/internal/logger"
)

// csvHeader is the single-column header of an affected-URLs export.
var csvHeader = []string{"URL"}

// ErrIssueNotFound is returned when exporting an unknown issue.
var ErrIssueNotFound = errors.New("issue not found")

// IssueSource resolves an issue by ID.
type IssueSource interface {
	GetIssue(ctx context.Context, scanID, issueID string) (*domain.Issue, error)
}

// PageSource lists the pages relevant to an issue's scope.
type PageSource interface {
	ListPagesByScan(ctx context.Context, scanID string) ([]*domain.Page, error)
	ListPagesByCluster(ctx context.Context, clusterID string) ([]*domain.Page, error)
}

// Service streams affected-URL exports for issues.
type Service struct {
	issues IssueSource
	pages  PageSource
	log    logger.Interface
}

// NewService creates an export service.
func NewService(issues IssueSource, pages PageSource, log logger.Interface) *Service {
	return &Service{issues: issues, pages: pages, log: log}
}

// AffectedURLs resolves the sorted URL list an issue affects.
// Site-scoped issues cover every crawled page, cluster-scoped issues
// cover the cluster's pages and page-scoped issues cover exactly the
// issue's own page.
func (s *Service) AffectedURLs(ctx context.Context, scanID, issueID string) ([]string, error) {
	issue, err := s.issues.GetIssue(ctx, scanID, issueID)
	if err != nil {
		return nil, fmt.Errorf("resolve issue: %w", err)
	}

	if issue.Scope == domain.ScopePage && issue.PageURL != nil {
		return []string{*issue.PageURL}, nil
	}

	pages, err := s.resolvePages(ctx, issue)
	if err != nil {
		return nil, fmt.Errorf("resolve affected pages: %w", err)
	}

	urls := make([]string, 0, len(pages))
	for _, p := range pages {
		urls = append(urls, p.URL)
	}
	sort.Strings(urls)

	return urls, nil
}

// WriteAffectedURLs streams an issue's affected URLs as CSV.
func (s *Service) WriteAffectedURLs(ctx context.Context, w io.Writer, scanID, issueID string) error {
	urls, err := s.AffectedURLs(ctx, scanID, issueID)
	if err != nil {
		return err
	}

	s.log.Debug("exporting affected urls",
		"scan_id", scanID,
		"issue_id", issueID,
		"urls", len(urls),
	)

	return WriteURLs(w, urls)
}

// resolvePages picks the page set for site and cluster scoped issues.
func (s *Service) resolvePages(ctx context.Context, issue *domain.Issue) ([]*domain.Page, error) {
	if issue.Scope == domain.ScopeSite || issue.ClusterID == nil {
		return s.pages.ListPagesByScan(ctx, issue.ScanID)
	}
	return s.pages.ListPagesByCluster(ctx, *issue.ClusterID)
}

// WriteURLs writes a header row and one URL per row. The csv writer
// handles quoting of commas, quotes and newlines in URLs.
func WriteURLs(w io.Writer, urls []string) error {
	sorted := make([]string, len(urls))
	copy(sorted, urls)
	sort.Strings(sorted)

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, u := range sorted {
		if err := cw.Write([]string{u}); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}

	return nil
}
