package api

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"salonvox/internal/models"

	"github.com/xuri/excelize/v2"
)

// exportBookings создает Excel файл со списком бронирований за период
func exportBookings(bookings []*models.Booking, exportPath string, from, to time.Time) (string, error) {
	if err := os.MkdirAll(exportPath, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %v", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Rendez-vous"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)

	_ = f.SetCellValue(sheetName, "A1", fmt.Sprintf("Période : %s - %s",
		from.Format("02/01/2006"), to.Format("02/01/2006")))

	headers := []string{"Date", "Heure", "Service", "Nom", "E-mail", "Téléphone", "Créé le"}
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(sheetName, cell, header)
		_ = f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for i, booking := range bookings {
		row := i + 3
		_ = f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), booking.StartTime.Format("02/01/2006"))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), booking.StartTime.Format("15:04"))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), string(booking.Service))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), booking.ClientName)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), booking.ClientEmail)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), booking.ClientPhone)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), booking.CreatedAt.Format("02/01/2006 15:04"))
	}

	_ = f.SetColWidth(sheetName, "A", "B", 12)
	_ = f.SetColWidth(sheetName, "C", "C", 16)
	_ = f.SetColWidth(sheetName, "D", "F", 24)
	_ = f.SetColWidth(sheetName, "G", "G", 20)

	_ = f.MergeCell(sheetName, "A1", "G1")
	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(sheetName, "A1", "A1", titleStyle)

	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("bookings_%s_to_%s.xlsx",
		from.Format("2006-01-02"), to.Format("2006-01-02"))
	filePath := filepath.Join(exportPath, fileName)

	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %v", err)
	}
	return filePath, nil
}
