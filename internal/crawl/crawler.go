package crawl

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	colly "github.com/gocolly/colly/v2"
	"github.com/google/uuid"

	"github.com/jonesrussell/aeoscan/internal/budget"
	"github.com/jonesrussell/aeoscan/internal/domain"
	"github.com/jonesrussell/aeoscan/internal/logger"
)

// Crawler defaults.
const (
	defaultParallelism    = 4
	defaultRequestTimeout = 30 * time.Second
	defaultUserAgent      = "aeoscan/1.0 (+https://github.com/jonesrussell/aeoscan)"

	// maxResponseBodyBytes limits the size of fetched page responses.
	maxResponseBodyBytes = 10 * 1024 * 1024 // 10 MB
)

// ErrInvalidTarget is returned when the target URL cannot be normalized.
var ErrInvalidTarget = errors.New("invalid target url")

// PageData is one fetched page with its raw markup, produced by the
// crawler and consumed by the clusterer and evaluator.
type PageData struct {
	Page domain.Page
	HTML []byte
}

// FetchFailure records a URL that could not be fetched. Failures are
// non-fatal: the crawl keeps going and the failure surfaces as evidence
// on whichever check depended on the page.
type FetchFailure struct {
	URL    string
	Reason string
}

// Config configures the crawler.
type Config struct {
	UserAgent      string        `json:"user_agent"      mapstructure:"user_agent"`
	Parallelism    int           `json:"parallelism"     mapstructure:"parallelism"`
	RequestTimeout time.Duration `json:"request_timeout" mapstructure:"request_timeout"`
}

// Crawler fetches same-origin pages breadth-first from a target URL,
// admitting every fetch through the scan's budget controller.
type Crawler struct {
	budget   *budget.Controller
	robots   *RobotsChecker
	frontier *Frontier
	log      logger.Interface
	cfg      Config

	mu       sync.Mutex
	pages    []*PageData
	failures []FetchFailure
}

// NewCrawler creates a crawler bound to one scan's budget controller.
func NewCrawler(ctrl *budget.Controller, robots *RobotsChecker, log logger.Interface, cfg Config) *Crawler {
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = defaultParallelism
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}

	return &Crawler{
		budget:   ctrl,
		robots:   robots,
		frontier: NewFrontier(),
		log:      log,
		cfg:      cfg,
	}
}

// Run crawls from targetURL until the frontier is empty or the fetch
// budget is exhausted, whichever comes first. Fetch failures are
// recorded and skipped, never fatal.
func (c *Crawler) Run(ctx context.Context, scanID, targetURL string) ([]*PageData, []FetchFailure, error) {
	target, normalizeErr := NormalizeURL(targetURL)
	if normalizeErr != nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrInvalidTarget, targetURL)
	}

	host, hostErr := ExtractHost(target)
	if hostErr != nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrInvalidTarget, targetURL)
	}

	collector, buildErr := c.buildCollector(ctx, scanID, target, host)
	if buildErr != nil {
		return nil, nil, buildErr
	}

	c.frontier.Add(target)

	// Drain the frontier in waves: visiting pages discovers links, which
	// refill the frontier after Wait returns.
	for {
		visited := c.drainFrontier(ctx, collector)
		collector.Wait()

		if !visited || c.frontier.Len() == 0 {
			break
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.log.Info("crawl finished",
		"target", target,
		"pages_fetched", len(c.pages),
		"failures", len(c.failures),
	)

	return c.pages, c.failures, nil
}

// drainFrontier visits every currently-queued URL that passes robots and
// budget admission. Returns true if at least one visit was issued.
func (c *Crawler) drainFrontier(ctx context.Context, collector *colly.Collector) bool {
	visited := false

	for {
		next, ok := c.frontier.Next()
		if !ok {
			return visited
		}

		select {
		case <-ctx.Done():
			return visited
		default:
		}

		allowed, robotsErr := c.robots.IsAllowed(ctx, next)
		if robotsErr != nil || !allowed {
			c.log.Debug("URL skipped by robots", "url", next)
			continue
		}

		// Denied fetch budget is final for this URL this scan: the URL
		// is simply never visited, not an error.
		if !c.budget.TryAdmit(domain.BudgetFetch, 1) {
			c.log.Info("fetch budget exhausted, stopping crawl", "url", next)
			return visited
		}

		if visitErr := collector.Visit(next); visitErr != nil {
			c.recordFailure(next, visitErr.Error())
		}

		visited = true
	}
}

// buildCollector configures the colly collector for one scan.
func (c *Crawler) buildCollector(ctx context.Context, scanID, target, host string) (*colly.Collector, error) {
	collector := colly.NewCollector(
		colly.UserAgent(c.cfg.UserAgent),
		colly.AllowedDomains(host),
		colly.MaxBodySize(maxResponseBodyBytes),
		colly.Async(true),
		colly.StdlibContext(ctx),
	)

	collector.SetRequestTimeout(c.cfg.RequestTimeout)

	if limitErr := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: c.cfg.Parallelism,
	}); limitErr != nil {
		return nil, fmt.Errorf("set crawl limit: %w", limitErr)
	}

	collector.OnResponse(func(r *colly.Response) {
		c.recordPage(scanID, r.Request.URL.String(), r.Body)
	})

	collector.OnHTML("a[href]", func(e *colly.HTMLElement) {
		absURL := e.Request.AbsoluteURL(e.Attr("href"))
		if absURL == "" || !SameOrigin(target, absURL) {
			return
		}
		c.frontier.Add(absURL)
	})

	collector.OnError(func(r *colly.Response, err error) {
		c.recordFailure(r.Request.URL.String(), err.Error())
	})

	return collector, nil
}

// recordPage appends a fetched page under the result lock.
func (c *Crawler) recordPage(scanID, pageURL string, body []byte) {
	html := make([]byte, len(body))
	copy(html, body)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.pages = append(c.pages, &PageData{
		Page: domain.Page{
			ID:        uuid.New().String(),
			ScanID:    scanID,
			URL:       pageURL,
			FetchedAt: time.Now(),
		},
		HTML: html,
	})
}

// recordFailure appends a fetch failure under the result lock.
func (c *Crawler) recordFailure(pageURL, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.failures = append(c.failures, FetchFailure{URL: pageURL, Reason: reason})
	c.log.Warn("URL fetch failed", "url", pageURL, "error", reason)
}
