// Package fixes maps issue codes to remediation templates. The built-in
// templates cover every rubric issue code; operators can override or
// extend them from a YAML file.
package fixes

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jonesrussell/aeoscan/internal/domain"
)

// Registry resolves issue codes to fix templates. An issue code may
// carry several templates when more than one remediation strategy
// applies.
type Registry struct {
	templates map[string][]domain.FixTemplate
}

// NewRegistry returns a registry seeded with the built-in templates.
func NewRegistry() *Registry {
	r := &Registry{templates: make(map[string][]domain.FixTemplate, len(defaultTemplates))}
	for _, t := range defaultTemplates {
		r.templates[t.IssueCode] = append(r.templates[t.IssueCode], t)
	}
	return r
}

// LoadOverrides merges templates from a YAML file into the registry.
// File entries extend the built-ins for the same issue code rather than
// replacing them, so operators can add house remediation strategies.
func (r *Registry) LoadOverrides(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read fix templates: %w", err)
	}

	var file struct {
		Templates []domain.FixTemplate `yaml:"templates"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse fix templates: %w", err)
	}

	for _, t := range file.Templates {
		if t.IssueCode == "" {
			return fmt.Errorf("fix template %q: missing issue_code", t.Title)
		}
		r.templates[t.IssueCode] = append(r.templates[t.IssueCode], t)
	}

	return nil
}

// Lookup returns every fix template registered for an issue code, in
// registration order. Unknown codes return nil.
func (r *Registry) Lookup(issueCode string) []domain.FixTemplate {
	return r.templates[issueCode]
}

// Attach decorates issues with their fix templates where any exist.
func (r *Registry) Attach(issues []*domain.Issue) []domain.IssueWithFix {
	out := make([]domain.IssueWithFix, 0, len(issues))
	for _, issue := range issues {
		out = append(out, domain.IssueWithFix{
			Issue: issue,
			Fixes: r.Lookup(issue.IssueCode),
		})
	}
	return out
}

var defaultTemplates = []domain.FixTemplate{
	{
		IssueCode:   "title_missing",
		Title:       "Add a descriptive title tag",
		Description: "Answer engines lean heavily on the title tag to decide what a page answers. Templates without one are near-invisible.",
		Steps: []string{
			"Locate the template's head section.",
			"Add a title tag of 30 to 60 characters that states the page's main topic.",
			"Make the title unique per page by interpolating the page subject.",
		},
		CodeExample: `<title>How to configure DNS records | Example Docs</title>`,
	},
	{
		IssueCode:   "meta_description_weak",
		Title:       "Write a meta description that summarizes the answer",
		Description: "A concrete one-sentence summary gives engines a ready-made snippet and improves citation odds.",
		Steps: []string{
			"Add a meta description of 70 to 160 characters to the template head.",
			"Lead with the answer, not the brand.",
			"Generate it from page content rather than repeating the title.",
		},
		CodeExample: `<meta name="description" content="Step-by-step guide to adding A, CNAME and TXT records at any registrar.">`,
	},
	{
		IssueCode:   "canonical_missing",
		Title:       "Declare a canonical URL",
		Description: "Without a canonical link, parameterized and duplicate URLs split the page's authority.",
		Steps: []string{
			"Add a canonical link element to the template head.",
			"Point it at the clean, parameter-free URL of the page.",
		},
		CodeExample: `<link rel="canonical" href="https://example.com/docs/dns">`,
	},
	{
		IssueCode:   "noindex_blocking",
		Title:       "Remove the noindex directive",
		Description: "A robots noindex meta tag tells every engine to drop the page entirely. Nothing else on the page matters until it is removed.",
		Steps: []string{
			"Find where the robots meta tag is emitted, often a staging flag left enabled.",
			"Remove noindex from pages meant to be discoverable.",
			"Re-deploy and confirm the tag is gone from production markup.",
		},
		CodeExample: `<meta name="robots" content="index, follow">`,
	},
	{
		IssueCode:   "structured_data_missing",
		Title:       "Add JSON-LD structured data",
		Description: "Structured data lets engines extract entities and answers without guessing. FAQPage and Article types pay off most.",
		Steps: []string{
			"Pick the schema.org type that matches the template, such as Article or FAQPage.",
			"Emit a JSON-LD script in the template head populated from page data.",
			"Validate the output with a structured data testing tool.",
		},
		CodeExample: `<script type="application/ld+json">
{"@context":"https://schema.org","@type":"Article","headline":"How to configure DNS records"}
</script>`,
	},
	{
		IssueCode:   "heading_structure_weak",
		Title:       "Fix the heading hierarchy",
		Description: "Engines use headings to segment a page into answerable chunks. A missing or duplicated h1 breaks that segmentation.",
		Steps: []string{
			"Give the template exactly one h1 containing the page topic.",
			"Nest subsections under h2 and h3 without skipping levels.",
		},
	},
	{
		IssueCode:   "js_dependent_content",
		Title:       "Server-render the primary content",
		Description: "Most answer-engine crawlers read raw HTML only. Content that appears after hydration is invisible to them.",
		Steps: []string{
			"Enable server-side rendering or static generation for the affected templates.",
			"Verify the main content is present in the raw response with a plain HTTP fetch.",
		},
	},
	{
		IssueCode:   "thin_content",
		Title:       "Expand the page body",
		Description: "Pages under a few hundred words rarely contain a complete answer and rarely get cited.",
		Steps: []string{
			"Identify the question the page should answer.",
			"Expand the body to cover the answer fully, aiming past 300 words of substance.",
			"Merge or retire pages that cannot justify standalone depth.",
		},
	},
	{
		IssueCode:   "unclear_answers",
		Title:       "Lead with a direct answer",
		Description: "Engines favor pages that answer the query in the first screen of content.",
		Steps: []string{
			"Open the page with a one-paragraph direct answer to its core question.",
			"Move background and caveats below the answer.",
		},
	},
	{
		IssueCode:   "low_question_coverage",
		Title:       "Cover the questions users actually ask",
		Description: "Pages that address related follow-up questions earn more citations than single-point pages.",
		Steps: []string{
			"List the follow-up questions adjacent to the page topic.",
			"Add a section or FAQ block answering each one.",
			"Mark the block up as FAQPage structured data where appropriate.",
		},
	},
}
