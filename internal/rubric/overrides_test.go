package rubric

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/aeoscan/internal/domain"
)

func writeOverrides(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rubric.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadOverrides_AdjustsWeightsAndVersion(t *testing.T) {
	t.Parallel()

	reg := DefaultRegistry()
	path := writeOverrides(t, `
version: "2025.09-custom"
pillars:
  - id: content
    weight: 0.5
checks:
  - id: title_tag
    weight: 2
    severity: critical
`)

	require.NoError(t, reg.LoadOverrides(path))
	require.Equal(t, "2025.09-custom", reg.Version)

	pillar, ok := reg.PillarByID("content")
	require.True(t, ok)
	require.InDelta(t, 0.5, pillar.Weight, 0.0001)

	check := reg.checkByID("title_tag")
	require.NotNil(t, check)
	require.InDelta(t, 2.0, check.Weight, 0.0001)
	require.Equal(t, domain.SeverityCritical, check.Severity)
}

func TestLoadOverrides_UnknownCheckRejected(t *testing.T) {
	t.Parallel()

	reg := DefaultRegistry()
	path := writeOverrides(t, `
checks:
  - id: no_such_check
    weight: 1
`)

	require.Error(t, reg.LoadOverrides(path))
}

func TestLoadOverrides_InvalidSeverityRejected(t *testing.T) {
	t.Parallel()

	reg := DefaultRegistry()
	path := writeOverrides(t, `
checks:
  - id: title_tag
    severity: catastrophic
`)

	err := reg.LoadOverrides(path)
	require.ErrorIs(t, err, domain.ErrInvalidSeverity)
}
