package cluster

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/jonesrussell/aeoscan/internal/crawl"
	"github.com/jonesrussell/aeoscan/internal/domain"
	"github.com/jonesrussell/aeoscan/internal/logger"
)

// DefaultThreshold is the fingerprint distance below which two pages
// belong to the same template cluster.
const DefaultThreshold = 0.3

// PageCluster is a cluster with its member pages and sampled
// representatives.
type PageCluster struct {
	Cluster         domain.Cluster
	Pages           []*crawl.PageData
	Representatives map[domain.RepresentativeType]*crawl.PageData
}

// Clusterer groups pages by structural fingerprint distance.
type Clusterer struct {
	threshold float64
	scorer    RepresentativeScorer
	log       logger.Interface
}

// NewClusterer creates a clusterer. A nil scorer falls back to the
// markup completeness scorer.
func NewClusterer(threshold float64, scorer RepresentativeScorer, log logger.Interface) *Clusterer {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if scorer == nil {
		scorer = NewCompletenessScorer()
	}

	return &Clusterer{threshold: threshold, scorer: scorer, log: log}
}

// group is an intermediate cluster during assignment.
type group struct {
	exemplar Fingerprint
	pages    []*crawl.PageData
}

// Cluster assigns pages to template clusters. Pages are processed in
// URL order so the assignment is deterministic for unchanged input.
// Pages that cluster alone form singleton clusters.
func (c *Clusterer) Cluster(scanID string, pages []*crawl.PageData) ([]*PageCluster, error) {
	ordered := make([]*crawl.PageData, len(pages))
	copy(ordered, pages)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Page.URL < ordered[j].Page.URL
	})

	var groups []*group

	for _, page := range ordered {
		fp, fpErr := NewFingerprint(page.HTML)
		if fpErr != nil {
			return nil, fmt.Errorf("cluster page %s: %w", page.Page.URL, fpErr)
		}

		assigned := false
		for _, g := range groups {
			if Distance(g.exemplar, fp) < c.threshold {
				g.pages = append(g.pages, page)
				assigned = true
				break
			}
		}

		if !assigned {
			groups = append(groups, &group{exemplar: fp, pages: []*crawl.PageData{page}})
		}
	}

	clusters := make([]*PageCluster, 0, len(groups))
	for _, g := range groups {
		clusters = append(clusters, c.buildCluster(scanID, g))
	}

	c.log.Info("clustering complete",
		"pages", len(pages),
		"clusters", len(clusters),
	)

	return clusters, nil
}

// buildCluster finalizes a group: assigns an ID and name and selects
// representatives via the scorer.
func (c *Clusterer) buildCluster(scanID string, g *group) *PageCluster {
	pc := &PageCluster{
		Cluster: domain.Cluster{
			ID:        uuid.New().String(),
			ScanID:    scanID,
			Name:      clusterName(g.pages),
			PageCount: len(g.pages),
		},
		Pages:           g.pages,
		Representatives: SelectRepresentatives(g.pages, c.scorer),
	}

	return pc
}

// clusterName derives a human-readable template name from the common
// leading path segment of the cluster's pages.
func clusterName(pages []*crawl.PageData) string {
	if len(pages) == 0 {
		return "empty"
	}

	parsed, err := url.Parse(pages[0].Page.URL)
	if err != nil {
		return "unknown"
	}

	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	if segments[0] == "" {
		return parsed.Hostname() + "/"
	}

	prefix := segments[0]
	for _, p := range pages[1:] {
		pp, parseErr := url.Parse(p.Page.URL)
		if parseErr != nil {
			continue
		}
		ps := strings.Split(strings.Trim(pp.Path, "/"), "/")
		if ps[0] != prefix {
			return parsed.Hostname() + "/mixed"
		}
	}

	if len(pages) > 1 {
		return "/" + prefix + "/*"
	}

	return parsed.Path
}
