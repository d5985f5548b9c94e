// Package report assembles score reports from check outcomes and serves
// the read side of finished scans.
package report

import (
	"time"

	"github.com/jonesrussell/aeoscan/internal/domain"
	"github.com/jonesrussell/aeoscan/internal/logger"
	"github.com/jonesrussell/aeoscan/internal/rubric"
)

// Builder turns a scan's check outcomes into an immutable report
// snapshot.
type Builder struct {
	registry *rubric.Registry
	log      logger.Interface
}

// NewBuilder creates a report builder bound to one rubric version.
func NewBuilder(registry *rubric.Registry, log logger.Interface) *Builder {
	return &Builder{registry: registry, log: log}
}

// Build computes pillar and overall scores for a finished scan. The
// returned report has no ID yet; persistence assigns one.
func (b *Builder) Build(scanID string, outcomes []rubric.Outcome) *domain.Report {
	pillarScores := rubric.ComputePillarScores(b.registry, outcomes)
	overall := rubric.ComputeOverallScore(b.registry, pillarScores)

	b.log.Info("report built",
		"scan_id", scanID,
		"rubric_version", b.registry.Version,
		"overall_score", overall,
		"public_score", domain.PublicScore(overall),
	)

	return &domain.Report{
		ScanID:       scanID,
		OverallScore: overall,
		Scores:       pillarScores,
		CreatedAt:    time.Now().UTC(),
	}
}
