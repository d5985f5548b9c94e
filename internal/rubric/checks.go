package rubric

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonesrussell/aeoscan/internal/domain"
)

// RegistryVersion identifies the built-in rubric. Reports produced
// against different versions are comparable only within a version.
const RegistryVersion = "2025.2"

// Title length bounds for the title check.
const (
	minTitleLen = 10
	maxTitleLen = 70
)

// Meta description length bounds.
const (
	minDescriptionLen = 50
	maxDescriptionLen = 160
)

// Body text thresholds for the content depth check.
const (
	depthFullWords    = 300
	depthPartialWords = 120
)

// renderedContentRatio is the raw/rendered visible-text ratio below
// which a page is considered JS-dependent.
const renderedContentRatio = 0.5

// promptExcerptLen caps how much body text a semantic check sends.
const promptExcerptLen = 1500

// DefaultRegistry builds the built-in rubric. The registry is immutable
// once constructed; tests substitute fixture registries instead of
// mutating this one.
func DefaultRegistry() *Registry {
	return &Registry{
		Version: RegistryVersion,
		Pillars: []Pillar{
			{ID: "crawlability", Name: "Crawlability & Access", Weight: 0.35},
			{ID: "structure", Name: "Structured Data & Markup", Weight: 0.35},
			{ID: "content", Name: "Content Clarity", Weight: 0.3},
		},
		Checks: []*Check{
			titleCheck(),
			metaDescriptionCheck(),
			canonicalCheck(),
			noindexCheck(),
			structuredDataCheck(),
			headingCheck(),
			clientSideContentCheck(),
			contentDepthCheck(),
			answerClarityCheck(),
			questionCoverageCheck(),
		},
	}
}

func titleCheck() *Check {
	return &Check{
		ID:          "title_tag",
		PillarID:    "crawlability",
		Weight:      1,
		Kind:        KindDeterministic,
		IssueCode:   "title_missing",
		Title:       "Missing or weak page title",
		Description: "Answer engines rely on the title tag to identify what a page answers.",
		Severity:    domain.SeverityHigh,
		Scope:       domain.ScopeCluster,
		Eval: func(pc *PageContext) (float64, []domain.Evidence) {
			title := strings.TrimSpace(pc.Doc.Find("title").First().Text())
			if title == "" {
				return 0, []domain.Evidence{{
					Type: "missing_element", Content: "no <title> tag found", PageURL: pc.URL,
				}}
			}
			if len(title) < minTitleLen || len(title) > maxTitleLen {
				return 3, []domain.Evidence{{
					Type: "excerpt", Content: title, PageURL: pc.URL,
				}}
			}
			return MaxCheckScore, nil
		},
	}
}

func metaDescriptionCheck() *Check {
	return &Check{
		ID:          "meta_description",
		PillarID:    "crawlability",
		Weight:      1,
		Kind:        KindDeterministic,
		IssueCode:   "meta_description_weak",
		Title:       "Missing or weak meta description",
		Description: "Meta descriptions seed answer-engine snippets; missing ones force extraction guesses.",
		Severity:    domain.SeverityMedium,
		Scope:       domain.ScopeCluster,
		Eval: func(pc *PageContext) (float64, []domain.Evidence) {
			desc, ok := pc.Doc.Find("meta[name='description']").Attr("content")
			desc = strings.TrimSpace(desc)
			if !ok || desc == "" {
				return 0, []domain.Evidence{{
					Type: "missing_element", Content: "no meta description found", PageURL: pc.URL,
				}}
			}
			if len(desc) < minDescriptionLen || len(desc) > maxDescriptionLen {
				return 3, []domain.Evidence{{
					Type: "excerpt", Content: desc, PageURL: pc.URL,
				}}
			}
			return MaxCheckScore, nil
		},
	}
}

func canonicalCheck() *Check {
	return &Check{
		ID:          "canonical_link",
		PillarID:    "crawlability",
		Weight:      0.5,
		Kind:        KindDeterministic,
		IssueCode:   "canonical_missing",
		Title:       "Missing canonical link",
		Description: "Without rel=canonical, duplicate URLs split answer-engine signals across variants.",
		Severity:    domain.SeverityLow,
		Scope:       domain.ScopeCluster,
		Eval: func(pc *PageContext) (float64, []domain.Evidence) {
			if href, ok := pc.Doc.Find("link[rel='canonical']").Attr("href"); ok && href != "" {
				return MaxCheckScore, nil
			}
			return 2, []domain.Evidence{{
				Type: "missing_element", Content: "no rel=canonical link found", PageURL: pc.URL,
			}}
		},
	}
}

func noindexCheck() *Check {
	return &Check{
		ID:          "robots_noindex",
		PillarID:    "crawlability",
		Weight:      1.5,
		Kind:        KindDeterministic,
		IssueCode:   "noindex_blocking",
		Title:       "Page blocked by noindex",
		Description: "A noindex robots directive removes the page from every answer engine.",
		Severity:    domain.SeverityCritical,
		Scope:       domain.ScopeCluster,
		Eval: func(pc *PageContext) (float64, []domain.Evidence) {
			robots, _ := pc.Doc.Find("meta[name='robots']").Attr("content")
			if strings.Contains(strings.ToLower(robots), "noindex") {
				return 0, []domain.Evidence{{
					Type: "directive", Content: robots, PageURL: pc.URL,
				}}
			}
			return MaxCheckScore, nil
		},
	}
}

func structuredDataCheck() *Check {
	return &Check{
		ID:          "structured_data",
		PillarID:    "structure",
		Weight:      1.5,
		Kind:        KindDeterministic,
		IssueCode:   "structured_data_missing",
		Title:       "No structured data",
		Description: "JSON-LD structured data lets answer engines consume facts without inference.",
		Severity:    domain.SeverityHigh,
		Scope:       domain.ScopeCluster,
		Eval: func(pc *PageContext) (float64, []domain.Evidence) {
			if pc.Doc.Find("script[type='application/ld+json']").Length() > 0 {
				return MaxCheckScore, nil
			}
			return 0, []domain.Evidence{{
				Type: "missing_element", Content: "no application/ld+json blocks found", PageURL: pc.URL,
			}}
		},
	}
}

func headingCheck() *Check {
	return &Check{
		ID:          "heading_hierarchy",
		PillarID:    "structure",
		Weight:      1,
		Kind:        KindDeterministic,
		IssueCode:   "heading_structure_weak",
		Title:       "Weak heading structure",
		Description: "A single clear h1 and ordered headings give extractors the page's outline.",
		Severity:    domain.SeverityMedium,
		Scope:       domain.ScopeCluster,
		Eval: func(pc *PageContext) (float64, []domain.Evidence) {
			h1Count := pc.Doc.Find("h1").Length()
			switch {
			case h1Count == 1:
				return MaxCheckScore, nil
			case h1Count == 0:
				return 1, []domain.Evidence{{
					Type: "missing_element", Content: "no h1 heading found", PageURL: pc.URL,
				}}
			default:
				return 3, []domain.Evidence{{
					Type: "structure", Content: fmt.Sprintf("%d h1 headings found", h1Count), PageURL: pc.URL,
				}}
			}
		},
	}
}

func clientSideContentCheck() *Check {
	return &Check{
		ID:          "client_side_content",
		PillarID:    "structure",
		Weight:      1,
		Kind:        KindDeterministic,
		IssueCode:   "js_dependent_content",
		Title:       "Content requires JavaScript",
		Description: "Content that only exists after JavaScript execution is invisible to most answer-engine crawlers.",
		Severity:    domain.SeverityHigh,
		Scope:       domain.ScopeCluster,
		NeedsRender: true,
		Eval: func(pc *PageContext) (float64, []domain.Evidence) {
			rawWords := len(strings.Fields(pc.BodyText()))
			renderedWords := len(strings.Fields(pc.RenderedBodyText()))
			if renderedWords == 0 {
				return MaxCheckScore, nil
			}

			ratio := float64(rawWords) / float64(renderedWords)
			if ratio < renderedContentRatio {
				return 2, []domain.Evidence{{
					Type:    "render_diff",
					Content: fmt.Sprintf("raw markup has %d words, rendered DOM has %d", rawWords, renderedWords),
					PageURL: pc.URL,
				}}
			}
			return MaxCheckScore, nil
		},
	}
}

func contentDepthCheck() *Check {
	return &Check{
		ID:          "content_depth",
		PillarID:    "content",
		Weight:      1,
		Kind:        KindDeterministic,
		IssueCode:   "thin_content",
		Title:       "Thin content",
		Description: "Pages with little extractable text rarely surface as answers.",
		Severity:    domain.SeverityMedium,
		Scope:       domain.ScopeCluster,
		Eval: func(pc *PageContext) (float64, []domain.Evidence) {
			words := len(strings.Fields(pc.BodyText()))
			switch {
			case words >= depthFullWords:
				return MaxCheckScore, nil
			case words >= depthPartialWords:
				return 3, []domain.Evidence{{
					Type: "measurement", Content: fmt.Sprintf("%d words of body text", words), PageURL: pc.URL,
				}}
			default:
				return 1, []domain.Evidence{{
					Type: "measurement", Content: fmt.Sprintf("%d words of body text", words), PageURL: pc.URL,
				}}
			}
		},
	}
}

func answerClarityCheck() *Check {
	return &Check{
		ID:          "answer_clarity",
		PillarID:    "content",
		Weight:      1.5,
		Kind:        KindSemantic,
		IssueCode:   "unclear_answers",
		Title:       "Content does not answer directly",
		Description: "Answer engines prefer pages that state the answer up front instead of burying it.",
		Severity:    domain.SeverityHigh,
		Scope:       domain.ScopeCluster,
		Prompt: func(pc *PageContext) string {
			return fmt.Sprintf(
				"Rate from 0 to 5 how directly this page answers the question implied by its title. "+
					"Respond with only the number.\n\nTitle: %s\n\nContent:\n%s",
				strings.TrimSpace(pc.Doc.Find("title").First().Text()),
				excerpt(pc.BodyText(), promptExcerptLen),
			)
		},
	}
}

func questionCoverageCheck() *Check {
	return &Check{
		ID:          "question_coverage",
		PillarID:    "content",
		Weight:      1,
		Kind:        KindSemantic,
		IssueCode:   "low_question_coverage",
		Title:       "Headings do not map to user questions",
		Description: "Headings phrased as user questions make sections directly quotable as answers.",
		Severity:    domain.SeverityLow,
		Scope:       domain.ScopeCluster,
		Prompt: func(pc *PageContext) string {
			var headings []string
			pc.Doc.Find("h1, h2, h3").Each(func(_ int, s *goquery.Selection) {
				if text := strings.TrimSpace(s.Text()); text != "" {
					headings = append(headings, text)
				}
			})
			return fmt.Sprintf(
				"Rate from 0 to 5 how well these page headings correspond to questions a user would "+
					"ask an AI assistant. Respond with only the number.\n\nHeadings:\n- %s",
				strings.Join(headings, "\n- "),
			)
		},
	}
}

// excerpt truncates text to at most n bytes on a word boundary.
func excerpt(text string, n int) string {
	if len(text) <= n {
		return text
	}

	cut := text[:n]
	if idx := strings.LastIndexByte(cut, ' '); idx > 0 {
		cut = cut[:idx]
	}
	return cut
}
