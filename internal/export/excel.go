package export

import (
	"fmt"

	"fitstudio/internal/models"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Bookings"

var headers = []string{"ID", "Class ID", "Class Name", "Client Name", "Client Email", "Created At"}

// BookingsWorkbook renders the booking ledger as an .xlsx workbook.
// The caller owns the returned file and must Close it.
func BookingsWorkbook(bookings []models.Booking) (*excelize.File, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheetName, cell, header)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err == nil {
		lastHeader, _ := excelize.CoordinatesToCellName(len(headers), 1)
		_ = f.SetCellStyle(sheetName, "A1", lastHeader, headerStyle)
	}

	for i, b := range bookings {
		row := i + 2
		values := []any{b.ID, b.ClassID, b.ClassName, b.ClientName, b.ClientEmail, b.CreatedAt.Format("2006-01-02 15:04:05")}
		for j, v := range values {
			cell, _ := excelize.CoordinatesToCellName(j+1, row)
			_ = f.SetCellValue(sheetName, cell, v)
		}
	}

	_ = f.SetColWidth(sheetName, "A", "B", 10)
	_ = f.SetColWidth(sheetName, "C", "F", 25)

	return f, nil
}
