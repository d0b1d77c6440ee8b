package report

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteCharts(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, testReport().WriteCharts(dir))

	page, err := os.ReadFile(filepath.Join(dir, chartsFileName))
	require.NoError(t, err)
	assert.Contains(t, string(page), "outcomes-by-source")
}
