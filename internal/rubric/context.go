package rubric

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PageContext is the parsed view of one page handed to checks. The
// rendered document is present only when a render was admitted and
// succeeded.
type PageContext struct {
	URL      string
	Doc      *goquery.Document
	Rendered *goquery.Document
}

// NewPageContext parses raw markup into a check-ready context.
func NewPageContext(pageURL string, html []byte) (*PageContext, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("page context %s: %w", pageURL, err)
	}

	return &PageContext{URL: pageURL, Doc: doc}, nil
}

// AttachRendered parses post-JavaScript markup into the context.
func (pc *PageContext) AttachRendered(html string) error {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return fmt.Errorf("rendered context %s: %w", pc.URL, err)
	}

	pc.Rendered = doc
	return nil
}

// BodyText returns the visible body text of the raw document with
// scripts and styles removed.
func (pc *PageContext) BodyText() string {
	body := pc.Doc.Find("body").Clone()
	body.Find("script, style, noscript").Remove()
	return strings.Join(strings.Fields(body.Text()), " ")
}

// RenderedBodyText returns the visible body text of the rendered
// document, or the empty string when no render is attached.
func (pc *PageContext) RenderedBodyText() string {
	if pc.Rendered == nil {
		return ""
	}
	body := pc.Rendered.Find("body").Clone()
	body.Find("script, style, noscript").Remove()
	return strings.Join(strings.Fields(body.Text()), " ")
}
