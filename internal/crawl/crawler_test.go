package crawl_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/aeoscan/internal/budget"
	"github.com/jonesrussell/aeoscan/internal/crawl"
	"github.com/jonesrussell/aeoscan/internal/logger"
)

// newCrawlTarget serves the provided path->HTML map. Unknown paths 404.
func newCrawlTarget(content map[string]string) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		html, ok := content[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, html)
	})
	return httptest.NewServer(mux)
}

func linkedPage(title string, links ...string) string {
	body := ""
	for _, l := range links {
		body += fmt.Sprintf(`<a href=%q>%s</a>`, l, l)
	}
	return fmt.Sprintf("<html><head><title>%s</title></head><body>%s</body></html>", title, body)
}

func newTestCrawler(ctrl *budget.Controller) *crawl.Crawler {
	robots := crawl.NewRobotsChecker(&http.Client{Timeout: 5 * time.Second}, "aeoscan-test", 0)
	return crawl.NewCrawler(ctrl, robots, logger.NewNoop(), crawl.Config{
		UserAgent:      "aeoscan-test",
		Parallelism:    2,
		RequestTimeout: 5 * time.Second,
	})
}

func TestCrawler_FollowsSameOriginLinks(t *testing.T) {
	t.Parallel()

	srv := newCrawlTarget(map[string]string{
		"/":      linkedPage("Home", "/about", "/pricing", "https://external.example/x"),
		"/about": linkedPage("About", "/"),
		"/pricing": linkedPage("Pricing",
			"/about#team", // duplicate of /about after normalization
		),
	})
	defer srv.Close()

	ctrl := budget.NewController(budget.Limits{MaxPages: 10})
	c := newTestCrawler(ctrl)

	pages, failures, err := c.Run(context.Background(), "scan-1", srv.URL)
	require.NoError(t, err)
	require.Empty(t, failures)
	require.Len(t, pages, 3)

	urls := make(map[string]bool)
	for _, p := range pages {
		urls[p.Page.URL] = true
		require.Equal(t, "scan-1", p.Page.ScanID)
		require.NotEmpty(t, p.HTML)
	}

	require.True(t, urls[srv.URL+"/"])
	require.True(t, urls[srv.URL+"/about"])
	require.True(t, urls[srv.URL+"/pricing"])

	require.Equal(t, 3, ctrl.Usage().PagesFetched)
}

func TestCrawler_StopsAtFetchBudget(t *testing.T) {
	t.Parallel()

	// A site with more reachable pages than the fetch budget allows.
	content := map[string]string{}
	var links []string
	for i := 0; i < 8; i++ {
		links = append(links, fmt.Sprintf("/page-%d", i))
	}
	content["/"] = linkedPage("Home", links...)
	for i := 0; i < 8; i++ {
		content[fmt.Sprintf("/page-%d", i)] = linkedPage(fmt.Sprintf("Page %d", i))
	}

	srv := newCrawlTarget(content)
	defer srv.Close()

	const maxPages = 5

	ctrl := budget.NewController(budget.Limits{MaxPages: maxPages})
	c := newTestCrawler(ctrl)

	pages, _, err := c.Run(context.Background(), "scan-1", srv.URL)
	require.NoError(t, err)

	require.Len(t, pages, maxPages)
	require.Equal(t, maxPages, ctrl.Usage().PagesFetched)
	require.True(t, ctrl.AnyLimitHit())
	require.Equal(t, true, ctrl.LimitsHit()["fetch"])
}

func TestCrawler_RecordsFetchFailures(t *testing.T) {
	t.Parallel()

	srv := newCrawlTarget(map[string]string{
		"/": linkedPage("Home", "/missing"),
	})
	defer srv.Close()

	ctrl := budget.NewController(budget.Limits{MaxPages: 10})
	c := newTestCrawler(ctrl)

	pages, failures, err := c.Run(context.Background(), "scan-1", srv.URL)
	require.NoError(t, err)

	require.Len(t, pages, 1)
	require.Len(t, failures, 1)
	require.Contains(t, failures[0].URL, "/missing")
}

func TestCrawler_RespectsRobots(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "User-agent: *\nDisallow: /private\n")
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, linkedPage("Home", "/private", "/public"))
	})
	mux.HandleFunc("/public", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, linkedPage("Public"))
	})
	mux.HandleFunc("/private", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, linkedPage("Private"))
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	ctrl := budget.NewController(budget.Limits{MaxPages: 10})
	c := newTestCrawler(ctrl)

	pages, _, err := c.Run(context.Background(), "scan-1", srv.URL)
	require.NoError(t, err)

	for _, p := range pages {
		require.NotContains(t, p.Page.URL, "/private")
	}
}
