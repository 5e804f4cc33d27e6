package report

import (
	"bytes"
	"fmt"

	"github.com/ahmedelhadi17776/worklog/internal/domain/task"
	"github.com/xuri/excelize/v2"
)

const (
	sheetStatus   = "Status"
	sheetProjects = "Projects"
	sheetUsers    = "Productivity"
)

// ExportXLSX renders the report as a workbook with one sheet per section
func ExportXLSX(r *Report) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetStatus); err != nil {
		return nil, err
	}
	for _, name := range []string{sheetProjects, sheetUsers} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("creating sheet %s: %w", name, err)
		}
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	percent, err := f.NewStyle(&excelize.Style{NumFmt: 10})
	if err != nil {
		return nil, err
	}

	statusRows := make([][]interface{}, 0, len(task.Statuses))
	for _, s := range task.Statuses {
		statusRows = append(statusRows, []interface{}{string(s), r.StatusDistribution[s]})
	}
	if err := writeTable(f, sheetStatus, header, []interface{}{"Status", "Tasks"}, statusRows); err != nil {
		return nil, err
	}

	projectRows := make([][]interface{}, 0, len(r.Projects))
	for _, p := range r.Projects {
		projectRows = append(projectRows, []interface{}{p.Name, p.Total, p.Completed, p.CompletionRatio})
	}
	if err := writeTable(f, sheetProjects, header, []interface{}{"Project", "Tasks", "Completed", "Completion"}, projectRows); err != nil {
		return nil, err
	}
	if len(projectRows) > 0 {
		if err := f.SetCellStyle(sheetProjects, "D2", fmt.Sprintf("D%d", len(projectRows)+1), percent); err != nil {
			return nil, err
		}
	}

	userRows := make([][]interface{}, 0, len(r.Users))
	for _, u := range r.Users {
		userRows = append(userRows, []interface{}{u.Name, u.Minutes, float64(u.Minutes) / 60, u.Tasks, u.LogCount})
	}
	if err := writeTable(f, sheetUsers, header, []interface{}{"User", "Minutes", "Hours", "Tasks", "Entries"}, userRows); err != nil {
		return nil, err
	}

	return f.WriteToBuffer()
}

func writeTable(f *excelize.File, sheet string, headerStyle int, header []interface{}, rows [][]interface{}) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("writing %s header: %w", sheet, err)
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return err
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := row
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("writing %s row %d: %w", sheet, i+2, err)
		}
	}
	return f.SetColWidth(sheet, "A", "A", 32)
}
