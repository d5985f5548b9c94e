package issue_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/aeoscan/internal/domain"
	"github.com/jonesrussell/aeoscan/internal/issue"
	"github.com/jonesrussell/aeoscan/internal/logger"
	"github.com/jonesrussell/aeoscan/internal/rubric"
)

var (
	clusterCheck = &rubric.Check{
		ID: "meta_description", PillarID: "crawlability", Weight: 1,
		Kind: rubric.KindDeterministic, IssueCode: "meta_description_weak",
		Title: "Weak meta description", Description: "Pages lack a usable meta description.",
		Severity: domain.SeverityMedium, Scope: domain.ScopeCluster,
	}
	pageCheck = &rubric.Check{
		ID: "content_depth", PillarID: "content", Weight: 1,
		Kind: rubric.KindDeterministic, IssueCode: "thin_content",
		Title: "Thin content", Description: "Page body is too short to answer anything.",
		Severity: domain.SeverityHigh, Scope: domain.ScopePage,
	}
	criticalCheck = &rubric.Check{
		ID: "robots_noindex", PillarID: "crawlability", Weight: 2,
		Kind: rubric.KindDeterministic, IssueCode: "noindex_blocking",
		Title: "Noindex blocking", Description: "Robots meta blocks indexing.",
		Severity: domain.SeverityCritical, Scope: domain.ScopeCluster,
	}
)

func failingOutcome(check *rubric.Check, clusterID string, pageCount int, url string) rubric.Outcome {
	return rubric.Outcome{
		Check: check,
		Result: rubric.CheckResult{
			CheckID:  check.ID,
			PillarID: check.PillarID,
			Score:    1,
			Evidence: []domain.Evidence{{Type: "excerpt", Content: "snippet", PageURL: url}},
		},
		ClusterID:        clusterID,
		ClusterName:      "/" + clusterID + "/*",
		ClusterPageCount: pageCount,
		PageURL:          url,
	}
}

func passingOutcome(check *rubric.Check, clusterID string, url string) rubric.Outcome {
	o := failingOutcome(check, clusterID, 1, url)
	o.Result.Score = rubric.MaxCheckScore
	o.Result.Evidence = nil
	return o
}

func TestAggregate_DeduplicatesWithinCluster(t *testing.T) {
	t.Parallel()

	a := issue.NewAggregator(logger.NewNoop())

	// Same check failing on two representatives of the same cluster
	// produces one issue.
	outcomes := []rubric.Outcome{
		failingOutcome(clusterCheck, "c1", 12, "https://example.com/blog/a"),
		failingOutcome(clusterCheck, "c1", 12, "https://example.com/blog/b"),
	}

	issues, err := a.Aggregate("scan-1", outcomes)
	require.NoError(t, err)
	require.Len(t, issues, 1)

	got := issues[0]
	require.Equal(t, "meta_description_weak", got.IssueCode)
	require.Equal(t, domain.ScopeCluster, got.Scope)
	require.Equal(t, 12, got.AffectedCount)
	require.NotNil(t, got.ClusterID)
	require.Equal(t, "c1", *got.ClusterID)
	require.Equal(t, domain.PriorityScore(domain.SeverityMedium, domain.ScopeCluster, 12), got.PriorityScore)
}

func TestAggregate_PromotesToSiteScope(t *testing.T) {
	t.Parallel()

	a := issue.NewAggregator(logger.NewNoop())

	outcomes := []rubric.Outcome{
		failingOutcome(clusterCheck, "c1", 12, "https://example.com/blog/a"),
		failingOutcome(clusterCheck, "c2", 30, "https://example.com/products/x"),
	}

	issues, err := a.Aggregate("scan-1", outcomes)
	require.NoError(t, err)
	require.Len(t, issues, 1)

	got := issues[0]
	require.Equal(t, domain.ScopeSite, got.Scope)
	require.Equal(t, 42, got.AffectedCount)
	require.Nil(t, got.ClusterID)
}

func TestAggregate_PageScopeNeverPromotes(t *testing.T) {
	t.Parallel()

	a := issue.NewAggregator(logger.NewNoop())

	outcomes := []rubric.Outcome{
		failingOutcome(pageCheck, "c1", 12, "https://example.com/blog/a"),
		failingOutcome(pageCheck, "c2", 30, "https://example.com/products/x"),
	}

	issues, err := a.Aggregate("scan-1", outcomes)
	require.NoError(t, err)
	require.Len(t, issues, 2)

	for _, got := range issues {
		require.Equal(t, domain.ScopePage, got.Scope)
		require.Equal(t, 1, got.AffectedCount)
		require.NotNil(t, got.PageURL)
	}
}

func TestAggregate_SkippedAndPassingProduceNoIssues(t *testing.T) {
	t.Parallel()

	a := issue.NewAggregator(logger.NewNoop())

	skipped := failingOutcome(clusterCheck, "c1", 12, "https://example.com/blog/a")
	skipped.Result.Skipped = true
	skipped.Result.Score = 0

	outcomes := []rubric.Outcome{
		skipped,
		passingOutcome(clusterCheck, "c1", "https://example.com/blog/b"),
	}

	issues, err := a.Aggregate("scan-1", outcomes)
	require.NoError(t, err)
	require.Empty(t, issues)
}

func TestAggregate_Idempotent(t *testing.T) {
	t.Parallel()

	a := issue.NewAggregator(logger.NewNoop())

	outcomes := []rubric.Outcome{
		failingOutcome(clusterCheck, "c2", 30, "https://example.com/products/x"),
		failingOutcome(clusterCheck, "c1", 12, "https://example.com/blog/a"),
		failingOutcome(criticalCheck, "c1", 12, "https://example.com/blog/a"),
		failingOutcome(pageCheck, "c1", 12, "https://example.com/blog/a"),
	}

	first, err := a.Aggregate("scan-1", outcomes)
	require.NoError(t, err)
	second, err := a.Aggregate("scan-1", outcomes)
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		require.Equal(t, first[i].IssueCode, second[i].IssueCode)
		require.Equal(t, first[i].Scope, second[i].Scope)
		require.Equal(t, first[i].PriorityScore, second[i].PriorityScore)
	}
}

func TestAggregate_OrderedByPriority(t *testing.T) {
	t.Parallel()

	a := issue.NewAggregator(logger.NewNoop())

	outcomes := []rubric.Outcome{
		failingOutcome(clusterCheck, "c1", 2, "https://example.com/blog/a"),
		failingOutcome(criticalCheck, "c1", 2, "https://example.com/blog/a"),
	}

	issues, err := a.Aggregate("scan-1", outcomes)
	require.NoError(t, err)
	require.Len(t, issues, 2)
	require.Equal(t, "noindex_blocking", issues[0].IssueCode)
	require.Greater(t, issues[0].PriorityScore, issues[1].PriorityScore)
}

func TestAggregate_SeverityBreaksPriorityTies(t *testing.T) {
	t.Parallel()

	a := issue.NewAggregator(logger.NewNoop())

	criticalPageCheck := &rubric.Check{
		ID: "robots_noindex_page", PillarID: "crawlability", Weight: 2,
		Kind: rubric.KindDeterministic, IssueCode: "noindex_blocking",
		Title: "Noindex blocking", Description: "Robots meta blocks indexing.",
		Severity: domain.SeverityCritical, Scope: domain.ScopePage,
	}

	// Both issues land on priority 8 with 2 affected pages: medium x
	// cluster scope x 2 versus critical x page scope x 2. The critical
	// issue must come first even though its code sorts later.
	outcomes := []rubric.Outcome{
		failingOutcome(clusterCheck, "c1", 2, "https://example.com/blog/a"),
		failingOutcome(criticalPageCheck, "c2", 5, "https://example.com/products/x"),
		failingOutcome(criticalPageCheck, "c2", 5, "https://example.com/products/y"),
	}

	issues, err := a.Aggregate("scan-1", outcomes)
	require.NoError(t, err)
	require.Len(t, issues, 2)

	require.Equal(t, issues[0].PriorityScore, issues[1].PriorityScore)
	require.Equal(t, issues[0].AffectedCount, issues[1].AffectedCount)
	require.Equal(t, "noindex_blocking", issues[0].IssueCode)
	require.Equal(t, domain.SeverityCritical, issues[0].Severity)
}

func TestTopFixes_ExcludesPageScope(t *testing.T) {
	t.Parallel()

	a := issue.NewAggregator(logger.NewNoop())

	outcomes := []rubric.Outcome{
		failingOutcome(criticalCheck, "c1", 50, "https://example.com/blog/a"),
		failingOutcome(criticalCheck, "c2", 50, "https://example.com/products/x"),
		failingOutcome(clusterCheck, "c1", 12, "https://example.com/blog/a"),
		failingOutcome(pageCheck, "c2", 30, "https://example.com/products/x"),
	}

	issues, err := a.Aggregate("scan-1", outcomes)
	require.NoError(t, err)

	fixes := issue.TopFixes(issues, 3)
	require.NotEmpty(t, fixes)
	for _, f := range fixes {
		require.NotEqual(t, domain.ScopePage, f.Scope)
	}
	require.Equal(t, "noindex_blocking", fixes[0].IssueCode)
	require.Equal(t, domain.ScopeSite, fixes[0].Scope)
}
