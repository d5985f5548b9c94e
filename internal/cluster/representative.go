package cluster

import (
	"bytes"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonesrussell/aeoscan/internal/crawl"
	"github.com/jonesrussell/aeoscan/internal/domain"
)

// RepresentativeScorer ranks pages within a cluster; higher is better.
// The selection strategy is pluggable so it can be swapped and tested
// independently of clustering.
type RepresentativeScorer interface {
	Score(page *crawl.PageData) float64
}

// minPagesForSpread is the cluster size at which typical and worst
// representatives are sampled in addition to best.
const minPagesForSpread = 3

// SelectRepresentatives picks the best, and for larger clusters the
// typical and worst, pages by scorer rank. Every cluster gets exactly
// one best representative.
func SelectRepresentatives(
	pages []*crawl.PageData,
	scorer RepresentativeScorer,
) map[domain.RepresentativeType]*crawl.PageData {
	if len(pages) == 0 {
		return nil
	}

	type scored struct {
		page  *crawl.PageData
		score float64
	}

	ranked := make([]scored, 0, len(pages))
	for _, p := range pages {
		ranked = append(ranked, scored{page: p, score: scorer.Score(p)})
	}

	// Ties break by URL so selection is deterministic across runs.
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].page.Page.URL < ranked[j].page.Page.URL
	})

	reps := map[domain.RepresentativeType]*crawl.PageData{
		domain.RepresentativeBest: ranked[0].page,
	}

	if len(ranked) >= minPagesForSpread {
		reps[domain.RepresentativeTypical] = ranked[len(ranked)/2].page
		reps[domain.RepresentativeWorst] = ranked[len(ranked)-1].page
	}

	return reps
}

// CompletenessScorer scores pages by markup completeness: the page with
// the most fully-populated head and content skeleton makes the best
// representative.
type CompletenessScorer struct{}

// NewCompletenessScorer creates the default representative scorer.
func NewCompletenessScorer() *CompletenessScorer {
	return &CompletenessScorer{}
}

// Score awards one point per completeness signal present.
func (s *CompletenessScorer) Score(page *crawl.PageData) float64 {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.HTML))
	if err != nil {
		return 0
	}

	var score float64

	if strings.TrimSpace(doc.Find("title").First().Text()) != "" {
		score++
	}
	if desc, ok := doc.Find("meta[name='description']").Attr("content"); ok && strings.TrimSpace(desc) != "" {
		score++
	}
	if doc.Find("h1").Length() > 0 {
		score++
	}
	if doc.Find("script[type='application/ld+json']").Length() > 0 {
		score++
	}
	if _, ok := doc.Find("link[rel='canonical']").Attr("href"); ok {
		score++
	}

	// Fractional bonus for body text volume, capped at one point.
	words := len(strings.Fields(doc.Find("body").Text()))
	const wordTarget = 500
	bonus := float64(words) / wordTarget
	if bonus > 1 {
		bonus = 1
	}

	return score + bonus
}
