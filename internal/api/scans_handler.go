package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/aeoscan/internal/budget"
	"github.com/jonesrussell/aeoscan/internal/crawl"
	"github.com/jonesrussell/aeoscan/internal/database"
	"github.com/jonesrussell/aeoscan/internal/domain"
	"github.com/jonesrussell/aeoscan/internal/export"
	"github.com/jonesrussell/aeoscan/internal/logger"
	"github.com/jonesrussell/aeoscan/internal/report"
	"github.com/jonesrussell/aeoscan/internal/storage"
)

// defaultListLimit bounds GET /api/v1/scans responses.
const defaultListLimit = 50

// ScanStarter starts scans asynchronously.
type ScanStarter interface {
	Start(ctx context.Context, targetURL string, overrides budget.Overrides) (*domain.Scan, error)
}

// ScansHandler handles scan-related HTTP requests. The archive is
// optional; without one the raw page endpoint reports not found.
type ScansHandler struct {
	starter ScanStarter
	scans   database.ScanRepositoryInterface
	pages   database.PageRepositoryInterface
	reports *report.Service
	export  *export.Service
	archive storage.RawPageStore
	log     logger.Interface
}

// NewScansHandler creates a new scans handler.
func NewScansHandler(
	starter ScanStarter,
	scans database.ScanRepositoryInterface,
	pages database.PageRepositoryInterface,
	reports *report.Service,
	exportSvc *export.Service,
	archive storage.RawPageStore,
	log logger.Interface,
) *ScansHandler {
	return &ScansHandler{
		starter: starter,
		scans:   scans,
		pages:   pages,
		reports: reports,
		export:  exportSvc,
		archive: archive,
		log:     log,
	}
}

// CreateScanRequest is the body of POST /api/v1/scans. Budget fields
// override the configured ceilings for this scan only.
type CreateScanRequest struct {
	TargetURL string           `json:"target_url" binding:"required"`
	Budget    budget.Overrides `json:"budget"`
}

// CreateScan handles POST /api/v1/scans.
func (h *ScansHandler) CreateScan(c *gin.Context) {
	var req CreateScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request: "+err.Error())
		return
	}

	scan, err := h.starter.Start(c.Request.Context(), req.TargetURL, req.Budget)
	if err != nil {
		if errors.Is(err, crawl.ErrInvalidTarget) {
			respondBadRequest(c, "Invalid target URL")
			return
		}
		h.log.Error("failed to start scan", "target_url", req.TargetURL, "error", err.Error())
		respondInternalError(c, "Failed to start scan")
		return
	}

	c.JSON(http.StatusAccepted, scan)
}

// ListScans handles GET /api/v1/scans.
func (h *ScansHandler) ListScans(c *gin.Context) {
	scans, err := h.scans.ListRecent(c.Request.Context(), defaultListLimit)
	if err != nil {
		respondInternalError(c, "Failed to list scans")
		return
	}

	c.JSON(http.StatusOK, gin.H{"scans": scans})
}

// GetScan handles GET /api/v1/scans/:id. Finished scans include the
// full report view; running scans return status only.
func (h *ScansHandler) GetScan(c *gin.Context) {
	id := c.Param("id")
	if id == "" || id == "undefined" {
		respondBadRequest(c, "Invalid scan ID")
		return
	}

	view, err := h.reports.GetView(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrScanNotFound) {
			respondNotFound(c, "Scan")
			return
		}
		h.log.Error("failed to load scan view", "scan_id", id, "error", err.Error())
		respondInternalError(c, "Failed to load scan")
		return
	}

	c.JSON(http.StatusOK, view)
}

// IssueDetailResponse is the body of GET /api/v1/scans/:id/issues/:issueID.
type IssueDetailResponse struct {
	domain.IssueWithFix
	AffectedURLs []string `json:"affected_urls"`
}

// GetIssue handles GET /api/v1/scans/:id/issues/:issueID.
func (h *ScansHandler) GetIssue(c *gin.Context) {
	scanID := c.Param("id")
	issueID := c.Param("issueID")

	detail, err := h.reports.GetIssueDetail(c.Request.Context(), scanID, issueID)
	if err != nil {
		if errors.Is(err, database.ErrIssueNotFound) {
			respondNotFound(c, "Issue")
			return
		}
		respondInternalError(c, "Failed to load issue")
		return
	}

	urls, err := h.export.AffectedURLs(c.Request.Context(), scanID, issueID)
	if err != nil {
		h.log.Error("failed to resolve affected urls", "scan_id", scanID, "issue_id", issueID, "error", err.Error())
		respondInternalError(c, "Failed to load issue")
		return
	}

	c.JSON(http.StatusOK, IssueDetailResponse{IssueWithFix: *detail, AffectedURLs: urls})
}

// ExportIssueURLs handles GET /api/v1/scans/:id/issues/:issueID/export.
// The response streams a CSV of every URL the issue affects.
func (h *ScansHandler) ExportIssueURLs(c *gin.Context) {
	scanID := c.Param("id")
	issueID := c.Param("issueID")

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="affected-urls.csv"`)

	err := h.export.WriteAffectedURLs(c.Request.Context(), c.Writer, scanID, issueID)
	if err != nil {
		if errors.Is(err, database.ErrIssueNotFound) {
			c.Header("Content-Type", "application/json")
			c.Header("Content-Disposition", "")
			respondNotFound(c, "Issue")
			return
		}
		h.log.Error("csv export failed", "scan_id", scanID, "issue_id", issueID, "error", err.Error())
		respondInternalError(c, "Failed to export URLs")
	}
}

// GetRawPage handles GET /api/v1/scans/:id/pages/:pageID/raw. It serves
// the archived HTML exactly as fetched, for inspecting what a crawler
// actually saw.
func (h *ScansHandler) GetRawPage(c *gin.Context) {
	scanID := c.Param("id")
	pageID := c.Param("pageID")

	page, err := h.pages.GetByID(c.Request.Context(), scanID, pageID)
	if err != nil {
		if errors.Is(err, database.ErrPageNotFound) {
			respondNotFound(c, "Page")
			return
		}
		h.log.Error("failed to load page", "scan_id", scanID, "page_id", pageID, "error", err.Error())
		respondInternalError(c, "Failed to load page")
		return
	}

	if h.archive == nil || page.RawRef == "" {
		respondNotFound(c, "Raw page")
		return
	}

	html, err := h.archive.Get(c.Request.Context(), page.RawRef)
	if err != nil {
		if errors.Is(err, storage.ErrRawPageNotFound) || errors.Is(err, storage.ErrInvalidRawRef) {
			respondNotFound(c, "Raw page")
			return
		}
		h.log.Error("failed to load raw page", "raw_ref", page.RawRef, "error", err.Error())
		respondInternalError(c, "Failed to load raw page")
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", html)
}

// Health handles GET /health.
func (h *ScansHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
