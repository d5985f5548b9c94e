package report_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/aeoscan/internal/domain"
	"github.com/jonesrussell/aeoscan/internal/logger"
	"github.com/jonesrussell/aeoscan/internal/report"
	"github.com/jonesrussell/aeoscan/internal/rubric"
)

func twoCheckRegistry() *rubric.Registry {
	return &rubric.Registry{
		Version: "test",
		Pillars: []rubric.Pillar{
			{ID: "crawlability", Name: "Crawlability", Weight: 0.6},
			{ID: "content", Name: "Content", Weight: 0.4},
		},
		Checks: []*rubric.Check{
			{ID: "a", PillarID: "crawlability", Weight: 1, Kind: rubric.KindDeterministic},
			{ID: "b", PillarID: "content", Weight: 1, Kind: rubric.KindSemantic},
		},
	}
}

func TestBuilder_Build(t *testing.T) {
	t.Parallel()

	reg := twoCheckRegistry()
	b := report.NewBuilder(reg, logger.NewNoop())

	outcomes := []rubric.Outcome{
		{Check: reg.Checks[0], Result: rubric.CheckResult{CheckID: "a", PillarID: "crawlability", Score: 5}},
		{Check: reg.Checks[1], Result: rubric.CheckResult{CheckID: "b", PillarID: "content", Score: 2.5}},
	}

	rpt := b.Build("scan-1", outcomes)
	require.Equal(t, "scan-1", rpt.ScanID)
	require.Len(t, rpt.Scores, 2)
	// 100*0.6 + 50*0.4 = 80.
	require.InDelta(t, 80, rpt.OverallScore, 0.001)
}

func TestBuilder_BuildWithNoScoredChecks(t *testing.T) {
	t.Parallel()

	reg := twoCheckRegistry()
	b := report.NewBuilder(reg, logger.NewNoop())

	outcomes := []rubric.Outcome{
		{Check: reg.Checks[0], Result: rubric.CheckResult{CheckID: "a", PillarID: "crawlability", Skipped: true}},
	}

	rpt := b.Build("scan-1", outcomes)
	require.Empty(t, rpt.Scores)
	require.Zero(t, rpt.OverallScore)
}

func TestPublicScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		overall  float64
		expected float64
	}{
		{"perfect internal score is capped", 100, 9.5},
		{"near perfect is capped", 96, 9.5},
		{"typical score divides by ten", 82, 8.2},
		{"zero stays zero", 0, 0},
		{"negative clamps to zero", -5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.InDelta(t, tt.expected, domain.PublicScore(tt.overall), 0.0001)
		})
	}
}
