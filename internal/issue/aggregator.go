// Package issue turns failing rubric check results into deduplicated,
// prioritized issues. Failures observed on cluster representatives are
// extrapolated to the whole template, and defects repeated across
// clusters are promoted to site scope.
package issue

import (
	"sort"

	"github.com/jonesrussell/aeoscan/internal/domain"
	"github.com/jonesrussell/aeoscan/internal/logger"
	"github.com/jonesrussell/aeoscan/internal/rubric"
)

// sitePromotionThreshold is the number of distinct clusters a defect
// must appear in before it is reported once at site scope.
const sitePromotionThreshold = 2

// maxEvidencePerIssue bounds how many snippets a single issue carries.
const maxEvidencePerIssue = 5

// Aggregator builds the issue list for one scan from raw check outcomes.
type Aggregator struct {
	log logger.Interface
}

// NewAggregator creates an aggregator.
func NewAggregator(log logger.Interface) *Aggregator {
	return &Aggregator{log: log}
}

// clusterFailures collects the failing results for one issue code within
// one cluster.
type clusterFailures struct {
	clusterID   string
	clusterName string
	pageCount   int
	pageURLs    []string
	evidence    []domain.Evidence
}

// codeFailures collects all failures for one issue code across clusters.
type codeFailures struct {
	check    *rubric.Check
	clusters map[string]*clusterFailures
}

// Aggregate deduplicates failing outcomes into issues. The same inputs
// always produce the same issues in the same order, so re-running
// aggregation is safe.
func (a *Aggregator) Aggregate(scanID string, outcomes []rubric.Outcome) ([]*domain.Issue, error) {
	grouped := groupFailures(outcomes)

	codes := make([]string, 0, len(grouped))
	for code := range grouped {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	var issues []*domain.Issue
	for _, code := range codes {
		built, err := a.buildIssues(scanID, code, grouped[code])
		if err != nil {
			return nil, err
		}
		issues = append(issues, built...)
	}

	sortIssues(issues)

	a.log.Info("issues aggregated",
		"scan_id", scanID,
		"failing_codes", len(grouped),
		"issues", len(issues),
	)

	return issues, nil
}

// groupFailures indexes failing outcomes by issue code, then by cluster.
func groupFailures(outcomes []rubric.Outcome) map[string]*codeFailures {
	grouped := make(map[string]*codeFailures)

	for _, o := range outcomes {
		if !o.Result.Failing() {
			continue
		}

		cf, ok := grouped[o.Check.IssueCode]
		if !ok {
			cf = &codeFailures{check: o.Check, clusters: make(map[string]*clusterFailures)}
			grouped[o.Check.IssueCode] = cf
		}

		cl, ok := cf.clusters[o.ClusterID]
		if !ok {
			cl = &clusterFailures{
				clusterID:   o.ClusterID,
				clusterName: o.ClusterName,
				pageCount:   o.ClusterPageCount,
			}
			cf.clusters[o.ClusterID] = cl
		}

		cl.pageURLs = append(cl.pageURLs, o.PageURL)
		cl.evidence = append(cl.evidence, o.Result.Evidence...)
	}

	return grouped
}

// buildIssues converts one issue code's failures into issues. A
// cluster-scoped defect failing in enough clusters collapses into a
// single site-scoped issue; otherwise one issue per affected cluster.
func (a *Aggregator) buildIssues(scanID, code string, cf *codeFailures) ([]*domain.Issue, error) {
	clusters := sortedClusters(cf.clusters)

	if cf.check.Scope != domain.ScopePage && len(clusters) >= sitePromotionThreshold {
		issue, err := a.buildSiteIssue(scanID, code, cf.check, clusters)
		if err != nil {
			return nil, err
		}
		return []*domain.Issue{issue}, nil
	}

	issues := make([]*domain.Issue, 0, len(clusters))
	for _, cl := range clusters {
		issue, err := a.buildClusterIssue(scanID, code, cf.check, cl)
		if err != nil {
			return nil, err
		}
		issues = append(issues, issue)
	}

	return issues, nil
}

// buildSiteIssue merges failures across clusters into one site-scoped
// issue whose affected count sums every affected template's page count.
func (a *Aggregator) buildSiteIssue(
	scanID, code string,
	check *rubric.Check,
	clusters []*clusterFailures,
) (*domain.Issue, error) {
	affected := 0
	var evidence []domain.Evidence
	for _, cl := range clusters {
		affected += extrapolatedCount(cl)
		evidence = append(evidence, cl.evidence...)
	}

	a.log.Debug("issue promoted to site scope",
		"issue_code", code,
		"clusters", len(clusters),
		"affected_count", affected,
	)

	return domain.NewIssue(domain.NewIssueParams{
		ScanID:        scanID,
		IssueCode:     code,
		Title:         check.Title,
		Description:   check.Description,
		Severity:      check.Severity,
		Scope:         domain.ScopeSite,
		AffectedCount: affected,
		Evidence:      capEvidence(evidence),
	})
}

// buildClusterIssue creates one issue for one affected cluster. The
// issue keeps the check's inherent scope: page-scoped defects stay
// page-scoped even though they were found via a representative.
func (a *Aggregator) buildClusterIssue(
	scanID, code string,
	check *rubric.Check,
	cl *clusterFailures,
) (*domain.Issue, error) {
	params := domain.NewIssueParams{
		ScanID:        scanID,
		IssueCode:     code,
		Title:         check.Title,
		Description:   check.Description,
		Severity:      check.Severity,
		Scope:         check.Scope,
		AffectedCount: extrapolatedCount(cl),
		ClusterID:     &cl.clusterID,
		ClusterName:   &cl.clusterName,
		Evidence:      capEvidence(cl.evidence),
	}

	if check.Scope == domain.ScopePage {
		params.AffectedCount = len(uniqueSorted(cl.pageURLs))
		if urls := uniqueSorted(cl.pageURLs); len(urls) > 0 {
			params.PageURL = &urls[0]
		}
	}

	return domain.NewIssue(params)
}

// extrapolatedCount estimates how many pages share a cluster's defect.
// Representatives stand in for the template, so the whole cluster
// counts, not just the sampled pages.
func extrapolatedCount(cl *clusterFailures) int {
	if cl.pageCount > 0 {
		return cl.pageCount
	}
	return len(uniqueSorted(cl.pageURLs))
}

// sortedClusters orders cluster failures by cluster ID for determinism.
func sortedClusters(m map[string]*clusterFailures) []*clusterFailures {
	clusters := make([]*clusterFailures, 0, len(m))
	for _, cl := range m {
		clusters = append(clusters, cl)
	}
	sort.Slice(clusters, func(i, j int) bool {
		return clusters[i].clusterID < clusters[j].clusterID
	})
	return clusters
}

// sortIssues orders issues by priority descending, breaking ties by
// affected count descending, then severity descending, then issue code
// for stability.
func sortIssues(issues []*domain.Issue) {
	sort.Slice(issues, func(i, j int) bool {
		if issues[i].PriorityScore != issues[j].PriorityScore {
			return issues[i].PriorityScore > issues[j].PriorityScore
		}
		if issues[i].AffectedCount != issues[j].AffectedCount {
			return issues[i].AffectedCount > issues[j].AffectedCount
		}
		if issues[i].Severity.Weight() != issues[j].Severity.Weight() {
			return issues[i].Severity.Weight() > issues[j].Severity.Weight()
		}
		if issues[i].IssueCode != issues[j].IssueCode {
			return issues[i].IssueCode < issues[j].IssueCode
		}
		return clusterIDOf(issues[i]) < clusterIDOf(issues[j])
	})
}

func clusterIDOf(issue *domain.Issue) string {
	if issue.ClusterID == nil {
		return ""
	}
	return *issue.ClusterID
}

// TopFixes returns the n highest-leverage issues. Page-scoped issues
// are excluded: the list exists to surface fixes that repair many pages
// at once.
func TopFixes(issues []*domain.Issue, n int) []*domain.Issue {
	fixes := make([]*domain.Issue, 0, n)
	for _, issue := range issues {
		if issue.Scope == domain.ScopePage {
			continue
		}
		fixes = append(fixes, issue)
		if len(fixes) == n {
			break
		}
	}
	return fixes
}

// uniqueSorted returns the distinct values of s in sorted order.
func uniqueSorted(s []string) []string {
	seen := make(map[string]struct{}, len(s))
	out := make([]string, 0, len(s))
	for _, v := range s {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// capEvidence bounds the evidence attached to one issue.
func capEvidence(evidence []domain.Evidence) []domain.Evidence {
	if len(evidence) <= maxEvidencePerIssue {
		return evidence
	}
	return evidence[:maxEvidencePerIssue]
}
