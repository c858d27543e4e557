package infra

// excel.go — spreadsheet export of the merged transfer feed using excelize.
// Admins download the feed for offline reconciliation against the remote
// ledgers.

import (
	"bytes"
	"fmt"

	"stocklink/internal/dto"

	"github.com/xuri/excelize/v2"
)

// GenerateHistoryWorkbook renders the merged history feed into an xlsx file.
func GenerateHistoryWorkbook(entries []dto.HistoryFeedEntry) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Transfers"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{
		"Date", "Status", "Source", "User", "Destination",
		"Items", "Successful", "Failed", "Total Qty", "Has Errors",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DDDDDD"}},
	})
	if err == nil {
		f.SetRowStyle(sheet, 1, 1, headerStyle)
	}

	for i, e := range entries {
		row := i + 2
		values := []any{
			e.Timestamp.Format("2006-01-02 15:04:05"),
			e.Status,
			e.Source,
			e.Username,
			e.DestinationName,
			e.TotalItems,
			e.SuccessfulItems,
			e.FailedItems,
			e.TotalQuantity,
			e.HasErrors,
		}
		for j, v := range values {
			cell, _ := excelize.CoordinatesToCellName(j+1, row)
			f.SetCellValue(sheet, cell, v)
		}
	}

	f.SetColWidth(sheet, "A", "A", 20)
	f.SetColWidth(sheet, "E", "E", 24)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("excel: write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
