package domain

import (
	"time"
)

// publicScoreCap is the maximum public-facing score. A perfect internal
// score still reports as 9.5 publicly.
const publicScoreCap = 9.5

// PillarScore is one pillar's normalized sub-score within a report.
type PillarScore struct {
	PillarID string  `json:"pillar_id"`
	Name     string  `json:"name"`
	Score    float64 `json:"score"`
}

// Report is an immutable snapshot of a scan's scores. A scan may have
// multiple reports over time; the latest is authoritative.
type Report struct {
	ID           string        `db:"id"            json:"id"`
	ScanID       string        `db:"scan_id"       json:"scan_id"`
	OverallScore float64       `db:"overall_score" json:"overall_score"`
	Scores       []PillarScore `db:"-"             json:"scores"`
	CreatedAt    time.Time     `db:"created_at"    json:"created_at"`
}

// PublicScore converts the internal 0-100 overall score to the
// user-facing 0-9.5 scale. The cap is product policy: a perfect score
// is never claimed publicly.
func PublicScore(overallScore float64) float64 {
	score := overallScore / 10
	if score > publicScoreCap {
		return publicScoreCap
	}
	if score < 0 {
		return 0
	}
	return score
}
