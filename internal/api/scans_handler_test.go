package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/aeoscan/internal/budget"
	"github.com/jonesrussell/aeoscan/internal/crawl"
	"github.com/jonesrussell/aeoscan/internal/database"
	"github.com/jonesrussell/aeoscan/internal/domain"
	"github.com/jonesrussell/aeoscan/internal/export"
	"github.com/jonesrussell/aeoscan/internal/fixes"
	"github.com/jonesrussell/aeoscan/internal/logger"
	"github.com/jonesrussell/aeoscan/internal/report"
	"github.com/jonesrussell/aeoscan/internal/storage"
)

type stubStarter struct {
	scan *domain.Scan
	err  error
}

func (s *stubStarter) Start(_ context.Context, _ string, _ budget.Overrides) (*domain.Scan, error) {
	return s.scan, s.err
}

type stubScanRepo struct {
	scan *domain.Scan
}

func (s *stubScanRepo) Create(_ context.Context, _ string) (*domain.Scan, error) { return s.scan, nil }

func (s *stubScanRepo) GetByID(_ context.Context, id string) (*domain.Scan, error) {
	if s.scan == nil || s.scan.ID != id {
		return nil, database.ErrScanNotFound
	}
	return s.scan, nil
}

func (s *stubScanRepo) Complete(_ context.Context, _ string, _ domain.ScanStatus, _ budget.Usage, _ domain.JSONBMap) error {
	return nil
}

func (s *stubScanRepo) ListRecent(_ context.Context, _ int) ([]*domain.Scan, error) {
	if s.scan == nil {
		return nil, nil
	}
	return []*domain.Scan{s.scan}, nil
}

func (s *stubScanRepo) ListCompletedTargets(_ context.Context) ([]string, error) { return nil, nil }

type stubClusterRepo struct{}

func (stubClusterRepo) BatchInsert(_ context.Context, _ []*domain.Cluster, _ []*domain.ClusterPage) error {
	return nil
}

func (stubClusterRepo) ListByScan(_ context.Context, _ string) ([]*domain.Cluster, error) {
	return nil, nil
}

type stubIssueRepo struct {
	issue *domain.Issue
}

func (s *stubIssueRepo) BatchInsert(_ context.Context, _ []*domain.Issue) error { return nil }

func (s *stubIssueRepo) GetIssue(_ context.Context, _, issueID string) (*domain.Issue, error) {
	if s.issue == nil || s.issue.ID != issueID {
		return nil, database.ErrIssueNotFound
	}
	return s.issue, nil
}

func (s *stubIssueRepo) ListByScan(_ context.Context, _ string) ([]*domain.Issue, error) {
	if s.issue == nil {
		return nil, nil
	}
	return []*domain.Issue{s.issue}, nil
}

type stubReportRepo struct {
	report *domain.Report
}

func (s *stubReportRepo) Create(_ context.Context, _ *domain.Report) error { return nil }

func (s *stubReportRepo) GetLatestByScan(_ context.Context, _ string) (*domain.Report, error) {
	if s.report == nil {
		return nil, database.ErrReportNotFound
	}
	return s.report, nil
}

type stubPageRepo struct {
	page *domain.Page
}

func (s *stubPageRepo) BatchInsert(_ context.Context, _ []*domain.Page) error { return nil }

func (s *stubPageRepo) GetByID(_ context.Context, _, pageID string) (*domain.Page, error) {
	if s.page == nil || s.page.ID != pageID {
		return nil, database.ErrPageNotFound
	}
	return s.page, nil
}

func (s *stubPageRepo) ListPagesByScan(_ context.Context, _ string) ([]*domain.Page, error) {
	return []*domain.Page{{URL: "https://example.com/"}}, nil
}

func (s *stubPageRepo) ListPagesByCluster(_ context.Context, _ string) ([]*domain.Page, error) {
	return nil, nil
}

// stubArchive serves archived HTML from a map keyed by raw reference.
type stubArchive struct {
	html map[string][]byte
}

func (s *stubArchive) EnsureIndex(_ context.Context, _ string) error { return nil }

func (s *stubArchive) Save(_ context.Context, _ *domain.Page, _ []byte) (string, error) {
	return "", nil
}

func (s *stubArchive) Get(_ context.Context, rawRef string) ([]byte, error) {
	html, ok := s.html[rawRef]
	if !ok {
		return nil, storage.ErrRawPageNotFound
	}
	return html, nil
}

func testEngine(starter ScanStarter, scans *stubScanRepo, issues *stubIssueRepo, reports *stubReportRepo) *gin.Engine {
	return testEngineWithArchive(starter, scans, &stubPageRepo{}, issues, reports, nil)
}

func testEngineWithArchive(
	starter ScanStarter,
	scans *stubScanRepo,
	pages *stubPageRepo,
	issues *stubIssueRepo,
	reports *stubReportRepo,
	archive storage.RawPageStore,
) *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := logger.NewNoop()

	reportSvc := report.NewService(scans, stubClusterRepo{}, issues, reports, fixes.NewRegistry(), log)
	exportSvc := export.NewService(issues, pages, log)

	handler := NewScansHandler(starter, scans, pages, reportSvc, exportSvc, archive, log)

	engine := gin.New()
	registerRoutes(engine, handler)
	return engine
}

func TestCreateScan(t *testing.T) {
	t.Parallel()

	scan := &domain.Scan{ID: "scan-1", TargetURL: "https://example.com", Status: domain.ScanStatusRunning}
	engine := testEngine(&stubStarter{scan: scan}, &stubScanRepo{scan: scan}, &stubIssueRepo{}, &stubReportRepo{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/scans",
		strings.NewReader(`{"target_url":"https://example.com"}`))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusAccepted, w.Code)
	require.Contains(t, w.Body.String(), "scan-1")
}

func TestCreateScan_MissingTargetURL(t *testing.T) {
	t.Parallel()

	engine := testEngine(&stubStarter{}, &stubScanRepo{}, &stubIssueRepo{}, &stubReportRepo{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/scans", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateScan_InvalidTarget(t *testing.T) {
	t.Parallel()

	engine := testEngine(&stubStarter{err: crawl.ErrInvalidTarget}, &stubScanRepo{}, &stubIssueRepo{}, &stubReportRepo{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/scans",
		strings.NewReader(`{"target_url":"not a url"}`))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetScan_RunningScanHasNoReport(t *testing.T) {
	t.Parallel()

	scan := &domain.Scan{ID: "scan-1", Status: domain.ScanStatusRunning}
	engine := testEngine(&stubStarter{}, &stubScanRepo{scan: scan}, &stubIssueRepo{}, &stubReportRepo{})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/scans/scan-1", nil))

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"running"`)
	require.NotContains(t, w.Body.String(), `"overall_score"`)
}

func TestGetScan_CompletedScanIncludesReport(t *testing.T) {
	t.Parallel()

	now := time.Now()
	scan := &domain.Scan{ID: "scan-1", Status: domain.ScanStatusCompleted, CompletedAt: &now}
	rpt := &domain.Report{ID: "r1", ScanID: "scan-1", OverallScore: 82}
	engine := testEngine(&stubStarter{}, &stubScanRepo{scan: scan}, &stubIssueRepo{}, &stubReportRepo{report: rpt})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/scans/scan-1", nil))

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"public_score":8.2`)
}

func TestGetScan_NotFound(t *testing.T) {
	t.Parallel()

	engine := testEngine(&stubStarter{}, &stubScanRepo{}, &stubIssueRepo{}, &stubReportRepo{})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/scans/missing", nil))

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetIssueWithFixTemplate(t *testing.T) {
	t.Parallel()

	issue := &domain.Issue{ID: "i1", ScanID: "scan-1", IssueCode: "thin_content", Scope: domain.ScopePage}
	engine := testEngine(&stubStarter{}, &stubScanRepo{}, &stubIssueRepo{issue: issue}, &stubReportRepo{})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/scans/scan-1/issues/i1", nil))

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "Expand the page body")
	require.Contains(t, w.Body.String(), `"affected_urls":["https://example.com/"]`)
}

func TestExportIssueURLs(t *testing.T) {
	t.Parallel()

	issue := &domain.Issue{ID: "i1", ScanID: "scan-1", IssueCode: "noindex_blocking", Scope: domain.ScopeSite}
	engine := testEngine(&stubStarter{}, &stubScanRepo{}, &stubIssueRepo{issue: issue}, &stubReportRepo{})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/scans/scan-1/issues/i1/export", nil))

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	require.True(t, strings.HasPrefix(w.Body.String(), "URL\n"))
	require.Contains(t, w.Body.String(), "https://example.com/")
}

func TestExportIssueURLs_NotFound(t *testing.T) {
	t.Parallel()

	engine := testEngine(&stubStarter{}, &stubScanRepo{}, &stubIssueRepo{}, &stubReportRepo{})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/scans/scan-1/issues/missing/export", nil))

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetRawPage(t *testing.T) {
	t.Parallel()

	pages := &stubPageRepo{page: &domain.Page{
		ID: "p1", ScanID: "scan-1", URL: "https://example.com/",
		RawRef: "example_com_raw_pages/p1",
	}}
	archive := &stubArchive{html: map[string][]byte{
		"example_com_raw_pages/p1": []byte("<html><body>as fetched</body></html>"),
	}}
	engine := testEngineWithArchive(&stubStarter{}, &stubScanRepo{}, pages, &stubIssueRepo{}, &stubReportRepo{}, archive)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/scans/scan-1/pages/p1/raw", nil))

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	require.Contains(t, w.Body.String(), "as fetched")
}

func TestGetRawPage_UnarchivedPage(t *testing.T) {
	t.Parallel()

	// The page exists but was never archived, so there is no raw copy.
	pages := &stubPageRepo{page: &domain.Page{ID: "p1", ScanID: "scan-1", URL: "https://example.com/"}}
	archive := &stubArchive{}
	engine := testEngineWithArchive(&stubStarter{}, &stubScanRepo{}, pages, &stubIssueRepo{}, &stubReportRepo{}, archive)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/scans/scan-1/pages/p1/raw", nil))

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetRawPage_UnknownPage(t *testing.T) {
	t.Parallel()

	engine := testEngine(&stubStarter{}, &stubScanRepo{}, &stubIssueRepo{}, &stubReportRepo{})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/scans/scan-1/pages/missing/raw", nil))

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealth(t *testing.T) {
	t.Parallel()

	engine := testEngine(&stubStarter{}, &stubScanRepo{}, &stubIssueRepo{}, &stubReportRepo{})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
}
