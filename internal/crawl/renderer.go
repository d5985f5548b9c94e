package crawl

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

// defaultRenderTimeout bounds a single headless render.
const defaultRenderTimeout = 45 * time.Second

// Renderer produces post-JavaScript markup for a URL. Rendering is
// expensive and must be admitted through the render budget by callers.
type Renderer interface {
	Render(ctx context.Context, pageURL string) (string, error)
}

// ChromeRenderer renders pages in a headless Chrome instance via the
// DevTools protocol.
type ChromeRenderer struct {
	timeout time.Duration
}

// NewChromeRenderer creates a renderer with the given per-render timeout.
func NewChromeRenderer(timeout time.Duration) *ChromeRenderer {
	if timeout == 0 {
		timeout = defaultRenderTimeout
	}
	return &ChromeRenderer{timeout: timeout}
}

// Render navigates to pageURL and returns the serialized DOM after load.
func (r *ChromeRenderer) Render(ctx context.Context, pageURL string) (string, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, chromedp.DefaultExecAllocatorOptions[:]...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	renderCtx, cancelTimeout := context.WithTimeout(browserCtx, r.timeout)
	defer cancelTimeout()

	var html string
	err := chromedp.Run(renderCtx,
		chromedp.Navigate(pageURL),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", pageURL, err)
	}

	return html, nil
}
