package report

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Utilization"

// RangeWorkbook renders a range report as an Excel workbook for the
// dashboard's EXPORT button.
func RangeWorkbook(rows []RangeRow, from, to time.Time) (*excelize.File, error) {
	f := excelize.NewFile()
	f.SetSheetName("Sheet1", exportSheet)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"E0E0E0"}, Pattern: 1},
		Border: []excelize.Border{{Type: "bottom", Color: "000000", Style: 2}},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	headers := []string{
		"Machine", "Group", "Run", "Warning", "Stop",
		"Actual Ratio 1", "Actual Ratio 2", "True Ratio 1", "True Ratio 2", "Warning Ratio",
	}
	for i, name := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(exportSheet, cell, name)
	}
	lastCol, _ := excelize.CoordinatesToCellName(len(headers), 1)
	f.SetCellStyle(exportSheet, "A1", lastCol, headerStyle)

	for rowIdx, r := range rows {
		rowNum := rowIdx + 2
		values := []any{
			r.MachineName, r.GroupName, r.RunHour, r.WarningHour, r.StopHour,
			r.ActualRatio1, r.ActualRatio2, r.TrueRatio1, r.TrueRatio2, r.WarningRatio,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, rowNum)
			f.SetCellValue(exportSheet, cell, v)
		}
	}

	footerRow := len(rows) + 3
	cell, _ := excelize.CoordinatesToCellName(1, footerRow)
	f.SetCellValue(exportSheet, cell, fmt.Sprintf("Window: %s to %s",
		from.Format("2006-01-02 15:04"), to.Format("2006-01-02 15:04")))

	return f, nil
}
