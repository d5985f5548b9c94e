// Package scan orchestrates the audit pipeline: crawl, cluster,
// evaluate, aggregate and report, all under one per-scan budget.
package scan

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jonesrussell/aeoscan/internal/budget"
	"github.com/jonesrussell/aeoscan/internal/cluster"
	"github.com/jonesrussell/aeoscan/internal/crawl"
	"github.com/jonesrussell/aeoscan/internal/database"
	"github.com/jonesrussell/aeoscan/internal/domain"
	"github.com/jonesrussell/aeoscan/internal/issue"
	"github.com/jonesrussell/aeoscan/internal/logger"
	"github.com/jonesrussell/aeoscan/internal/report"
	"github.com/jonesrussell/aeoscan/internal/rubric"
	"github.com/jonesrussell/aeoscan/internal/storage"
)

// ErrNoPagesFetched is returned when a crawl produces zero pages, which
// means the target was unreachable or fully disallowed.
var ErrNoPagesFetched = errors.New("no pages fetched from target")

// Repositories bundles the persistence dependencies of a runner.
type Repositories struct {
	Scans    database.ScanRepositoryInterface
	Pages    database.PageRepositoryInterface
	Clusters database.ClusterRepositoryInterface
	Issues   database.IssueRepositoryInterface
	Reports  database.ReportRepositoryInterface
}

// Runner executes scans end to end. One runner serves many scans; each
// scan gets its own budget controller and crawler.
type Runner struct {
	repos      Repositories
	archive    storage.RawPageStore
	renderer   crawl.Renderer
	llm        rubric.LLMClient
	registry   *rubric.Registry
	aggregator *issue.Aggregator
	builder    *report.Builder
	limits     budget.Limits
	crawlCfg   crawl.Config
	httpClient *http.Client
	log        logger.Interface
}

// RunnerParams holds the dependencies for constructing a runner.
// Archive, Renderer and LLM are optional; absent ones degrade the scan
// (no raw HTML archive, render checks skipped, semantic checks skipped)
// without failing it.
type RunnerParams struct {
	Repos      Repositories
	Archive    storage.RawPageStore
	Renderer   crawl.Renderer
	LLM        rubric.LLMClient
	Registry   *rubric.Registry
	Limits     budget.Limits
	CrawlCfg   crawl.Config
	HTTPClient *http.Client
	Logger     logger.Interface
}

// NewRunner creates a scan runner.
func NewRunner(p RunnerParams) *Runner {
	if p.HTTPClient == nil {
		p.HTTPClient = http.DefaultClient
	}

	return &Runner{
		repos:      p.Repos,
		archive:    p.Archive,
		renderer:   p.Renderer,
		llm:        p.LLM,
		registry:   p.Registry,
		aggregator: issue.NewAggregator(p.Logger),
		builder:    report.NewBuilder(p.Registry, p.Logger),
		limits:     p.Limits,
		crawlCfg:   p.CrawlCfg,
		httpClient: p.HTTPClient,
		log:        p.Logger,
	}
}

// Start creates the scan record and runs the pipeline in the
// background. Ceilings come from configuration with any non-zero
// overrides applied for this scan only. The caller gets the running
// scan back immediately and polls for completion.
func (r *Runner) Start(ctx context.Context, targetURL string, overrides budget.Overrides) (*domain.Scan, error) {
	if _, err := crawl.NormalizeURL(targetURL); err != nil {
		return nil, fmt.Errorf("%w: %s", crawl.ErrInvalidTarget, targetURL)
	}

	scan, err := r.repos.Scans.Create(ctx, targetURL)
	if err != nil {
		return nil, fmt.Errorf("create scan: %w", err)
	}

	limits := r.limits.Apply(overrides)

	go func() {
		// The pipeline outlives the request context.
		if runErr := r.execute(context.Background(), scan, limits); runErr != nil {
			r.log.Error("scan failed", "scan_id", scan.ID, "error", runErr.Error())
		}
	}()

	return scan, nil
}

// Execute runs the full pipeline synchronously under the configured
// ceilings and records the terminal status.
func (r *Runner) Execute(ctx context.Context, scan *domain.Scan) error {
	return r.execute(ctx, scan, r.limits)
}

// ExecuteWithOverrides is Execute with per-scan ceiling overrides.
func (r *Runner) ExecuteWithOverrides(ctx context.Context, scan *domain.Scan, overrides budget.Overrides) error {
	return r.execute(ctx, scan, r.limits.Apply(overrides))
}

// execute runs the pipeline under the given ceilings. Pipeline errors
// mark the scan failed; budget ceilings do not.
func (r *Runner) execute(ctx context.Context, scan *domain.Scan, limits budget.Limits) error {
	ctrl := budget.NewController(limits)

	if err := r.runPipeline(ctx, scan, ctrl); err != nil {
		r.markFailed(ctx, scan.ID, ctrl)
		return err
	}

	status := domain.ScanStatusCompleted
	if ctrl.AnyLimitHit() {
		status = domain.ScanStatusCompletedWithLimits
	}

	if err := r.repos.Scans.Complete(ctx, scan.ID, status, ctrl.Usage(), ctrl.LimitsHit()); err != nil {
		return fmt.Errorf("finalize scan: %w", err)
	}

	r.log.Info("scan finished",
		"scan_id", scan.ID,
		"status", status,
		"pages_fetched", ctrl.Usage().PagesFetched,
		"llm_calls", ctrl.Usage().LLMCalls,
	)

	return nil
}

// runPipeline performs crawl through report. Any returned error is a
// scan failure; budget exhaustion along the way is not an error.
func (r *Runner) runPipeline(ctx context.Context, scan *domain.Scan, ctrl *budget.Controller) error {
	pages, err := r.crawlTarget(ctx, scan, ctrl)
	if err != nil {
		return err
	}

	r.archivePages(ctx, scan, pages)

	clusters, err := r.clusterPages(scan.ID, pages)
	if err != nil {
		return err
	}

	evaluator := rubric.NewEvaluator(r.registry, ctrl, r.llm, r.renderer, r.log)
	outcomes := evaluator.EvaluateClusters(ctx, clusters)

	// Pages persist after evaluation so the render state of the
	// representatives lands on the page records.
	pageRecords := make([]*domain.Page, 0, len(pages))
	for _, p := range pages {
		record := p.Page
		pageRecords = append(pageRecords, &record)
	}
	if err := r.repos.Pages.BatchInsert(ctx, pageRecords); err != nil {
		return fmt.Errorf("persist pages: %w", err)
	}

	if err := r.persistClusters(ctx, clusters); err != nil {
		return err
	}

	issues, err := r.aggregator.Aggregate(scan.ID, outcomes)
	if err != nil {
		return fmt.Errorf("aggregate issues: %w", err)
	}
	if err := r.repos.Issues.BatchInsert(ctx, issues); err != nil {
		return fmt.Errorf("persist issues: %w", err)
	}

	rpt := r.builder.Build(scan.ID, outcomes)
	if err := r.repos.Reports.Create(ctx, rpt); err != nil {
		return fmt.Errorf("persist report: %w", err)
	}

	return nil
}

// crawlTarget runs the budgeted crawl and fails the scan only when the
// target yields nothing at all.
func (r *Runner) crawlTarget(ctx context.Context, scan *domain.Scan, ctrl *budget.Controller) ([]*crawl.PageData, error) {
	robots := crawl.NewRobotsChecker(r.httpClient, r.crawlCfg.UserAgent, 0)
	crawler := crawl.NewCrawler(ctrl, robots, r.log, r.crawlCfg)

	pages, failures, err := crawler.Run(ctx, scan.ID, scan.TargetURL)
	if err != nil {
		return nil, fmt.Errorf("crawl: %w", err)
	}

	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: %s (%d fetch failures)", ErrNoPagesFetched, scan.TargetURL, len(failures))
	}

	return pages, nil
}

// archivePages stores raw HTML in the archive when one is configured.
// Archive failures degrade to unarchived pages, never a failed scan.
func (r *Runner) archivePages(ctx context.Context, scan *domain.Scan, pages []*crawl.PageData) {
	if r.archive == nil {
		return
	}

	r.ensureArchiveIndex(ctx, scan.TargetURL)

	for _, p := range pages {
		rawRef, err := r.archive.Save(ctx, &p.Page, p.HTML)
		if err != nil {
			r.log.Warn("raw page archive failed", "url", p.Page.URL, "error", err.Error())
			continue
		}
		p.Page.RawRef = rawRef
	}
}

// ensureArchiveIndex creates the target host's raw page index up front
// so documents land with the archive mapping instead of a dynamic one.
func (r *Runner) ensureArchiveIndex(ctx context.Context, targetURL string) {
	target, err := crawl.NormalizeURL(targetURL)
	if err != nil {
		return
	}
	host, err := crawl.ExtractHost(target)
	if err != nil {
		return
	}
	if ensureErr := r.archive.EnsureIndex(ctx, host); ensureErr != nil {
		r.log.Warn("raw page index setup failed", "host", host, "error", ensureErr.Error())
	}
}

// clusterPages groups pages into template clusters.
func (r *Runner) clusterPages(scanID string, pages []*crawl.PageData) ([]*cluster.PageCluster, error) {
	clusterer := cluster.NewClusterer(cluster.DefaultThreshold, nil, r.log)

	clusters, err := clusterer.Cluster(scanID, pages)
	if err != nil {
		return nil, fmt.Errorf("cluster pages: %w", err)
	}

	return clusters, nil
}

// persistClusters writes the clusters with their page assignments.
func (r *Runner) persistClusters(ctx context.Context, clusters []*cluster.PageCluster) error {
	records := make([]*domain.Cluster, 0, len(clusters))
	var assignments []*domain.ClusterPage

	for _, pc := range clusters {
		c := pc.Cluster
		records = append(records, &c)

		repTypes := make(map[string]domain.RepresentativeType, len(pc.Representatives))
		for repType, rep := range pc.Representatives {
			repTypes[rep.Page.ID] = repType
		}

		for _, p := range pc.Pages {
			assignments = append(assignments, &domain.ClusterPage{
				ClusterID:          pc.Cluster.ID,
				PageID:             p.Page.ID,
				URL:                p.Page.URL,
				RepresentativeType: repTypes[p.Page.ID],
			})
		}
	}

	if err := r.repos.Clusters.BatchInsert(ctx, records, assignments); err != nil {
		return fmt.Errorf("persist clusters: %w", err)
	}

	return nil
}

// markFailed records a failed terminal status, keeping whatever usage
// was consumed before the failure.
func (r *Runner) markFailed(ctx context.Context, scanID string, ctrl *budget.Controller) {
	if err := r.repos.Scans.Complete(ctx, scanID, domain.ScanStatusFailed, ctrl.Usage(), ctrl.LimitsHit()); err != nil {
		r.log.Error("failed to mark scan as failed", "scan_id", scanID, "error", err.Error())
	}
}
