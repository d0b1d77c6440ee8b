package report

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestSaveXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, testReport().SaveXLSX(path))

	wb, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer wb.Close()

	assert.Equal(t, []string{sheetWorkflows, sheetClients, sheetThirdParty}, wb.GetSheetList())

	rows, err := wb.GetRows(sheetClients)
	require.NoError(t, err)
	// header, two tests of the client run, one pipeline-failure row
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"Client", "Build", "Test", "Outcome", "Reported"}, rows[0])
	assert.Equal(t, "boot", rows[1][2])
	assert.Equal(t, "(result processing failed)", rows[3][2])
}
