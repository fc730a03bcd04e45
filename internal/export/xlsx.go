package export

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/spec-kit/complaint-service/internal/domain"
)

const reportSheet = "Complaints Report"

// BuildWorkbook renders report rows into a styled XLSX workbook. Recurrent
// rows are highlighted so repeat-offender meters stand out.
func BuildWorkbook(rows []domain.ReportRow) (*excelize.File, error) {
	f := excelize.NewFile()
	f.SetSheetName("Sheet1", reportSheet)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return nil, err
	}
	recurrentStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#FCE4EC"}},
	})
	if err != nil {
		return nil, err
	}

	for col, title := range reportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(reportSheet, cell, title); err != nil {
			return nil, err
		}
	}
	endHeader, _ := excelize.CoordinatesToCellName(len(reportHeader), 1)
	if err := f.SetCellStyle(reportSheet, "A1", endHeader, headerStyle); err != nil {
		return nil, err
	}

	for i, row := range rows {
		rowIdx := i + 2
		values := []any{
			row.ComplaintID,
			row.CustomerName,
			row.MeterNo,
			string(row.MeterType),
			row.IssueType,
			row.DaysPending,
			row.AssignedTo,
			row.Supervisor,
			yesNo(row.Escalated),
			yesNo(row.Recurrent),
			row.LoggedAt.Format(time.RFC3339),
			formatResolvedAt(row.ResolvedAt),
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, rowIdx)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(reportSheet, cell, value); err != nil {
				return nil, err
			}
		}
		if row.Recurrent {
			start := fmt.Sprintf("A%d", rowIdx)
			end, _ := excelize.CoordinatesToCellName(len(reportHeader), rowIdx)
			if err := f.SetCellStyle(reportSheet, start, end, recurrentStyle); err != nil {
				return nil, err
			}
		}
	}

	return f, nil
}
