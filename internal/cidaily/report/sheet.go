package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/cidaily/cidaily/internal/cidaily/source/clientresult"
)

const (
	sheetWorkflows  = "workflows"
	sheetClients    = "clients"
	sheetThirdParty = "third-party"
)

// SaveXLSX exports the report as a spreadsheet with one sheet per source,
// one row per job, test or build, for offline review.
func (r *Report) SaveXLSX(path string) error {
	wb := excelize.NewFile()

	if err := r.writeWorkflowSheet(wb); err != nil {
		return err
	}
	if err := r.writeClientSheet(wb); err != nil {
		return err
	}
	if err := r.writeThirdPartySheet(wb); err != nil {
		return err
	}
	if err := wb.DeleteSheet("Sheet1"); err != nil {
		return errors.Wrap(err, "couldn't drop default sheet")
	}
	if err := wb.SaveAs(path); err != nil {
		return errors.Wrapf(err, "couldn't save spreadsheet %s", path)
	}
	return nil
}

func (r *Report) writeWorkflowSheet(wb *excelize.File) error {
	if err := createSheet(wb, sheetWorkflows, []string{"Workflow", "Run", "Job", "Outcome", "Completed", "URL"}); err != nil {
		return err
	}
	row := 2
	for _, run := range r.Runs {
		for _, job := range run.Jobs {
			setRow(wb, sheetWorkflows, row,
				run.File, run.RunNumber, job.Name, job.Outcome.String(),
				job.CompletedAt.Format(time.RFC3339), job.URL)
			row++
		}
	}
	return nil
}

func (r *Report) writeClientSheet(wb *excelize.File) error {
	if err := createSheet(wb, sheetClients, []string{"Client", "Build", "Test", "Outcome", "Reported"}); err != nil {
		return err
	}
	row := 2
	for _, rec := range r.ClientRecords {
		when := rec.When().Format(time.RFC3339)
		switch rec := rec.(type) {
		case *clientresult.ClientRun:
			names := make([]string, 0, len(rec.Results))
			for name := range rec.Results {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				setRow(wb, sheetClients, row, rec.ClientID, rec.Build, name, rec.Results[name].String(), when)
				row++
			}
		case *clientresult.ClientError:
			setRow(wb, sheetClients, row, rec.ClientID, rec.Build, "(result processing failed)", "error", when)
			row++
		}
	}
	return nil
}

func (r *Report) writeThirdPartySheet(wb *excelize.File) error {
	if err := createSheet(wb, sheetThirdParty, []string{"Build", "Version", "Job", "Outcome", "Finished"}); err != nil {
		return err
	}
	row := 2
	for _, b := range r.ThirdParty {
		finished := b.FinishedAt.Format(time.RFC3339)
		for _, j := range b.Jobs {
			setRow(wb, sheetThirdParty, row, b.ID, b.Version, j.Name, j.Outcome.String(), finished)
			row++
		}
	}
	return nil
}

// createSheet adds a sheet with its header row.
func createSheet(wb *excelize.File, name string, header []string) error {
	if _, err := wb.NewSheet(name); err != nil {
		return errors.Wrapf(err, "couldn't create sheet %s", name)
	}
	for i, title := range header {
		cell := fmt.Sprintf("%c1", 'A'+i)
		_ = wb.SetCellValue(name, cell, title)
	}
	return nil
}

// setRow fills one row with the given values, column by column.
func setRow(wb *excelize.File, name string, row int, values ...interface{}) {
	for i, v := range values {
		cell := fmt.Sprintf("%c%d", 'A'+i, row)
		_ = wb.SetCellValue(name, cell, v)
	}
}
