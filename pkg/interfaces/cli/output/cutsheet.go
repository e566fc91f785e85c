package output

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/vsinha/wirecut/pkg/domain/entities"
)

const cutSheetName = "Cut Sheet"

var cutSheetHeaders = []string{
	"Item", "Part", "Quantity To Cut", "Quantity Cut", "Remaining", "Status", "Order Items",
}

// BuildCutSheet lays a job out as a printable workbook for the cutter operator
func BuildCutSheet(job *entities.CutJob) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", cutSheetName); err != nil {
		return nil, err
	}

	boldStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	f.SetCellValue(cutSheetName, "A1", fmt.Sprintf("Cut Job %d", job.ID))
	f.SetCellValue(cutSheetName, "C1", fmt.Sprintf("Cutter %d", job.WireCutterID))
	f.SetCellValue(cutSheetName, "E1", job.Status.String())

	for i, h := range cutSheetHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "3"
		f.SetCellValue(cutSheetName, cell, h)
		f.SetCellStyle(cutSheetName, cell, cell, boldStyle)
	}

	for rowIdx, item := range job.Items {
		row := rowIdx + 4
		toCut, _ := item.QuantityToCut.Float64()
		cut, _ := item.QuantityCut.Float64()
		remaining, _ := item.QuantityRemaining().Float64()

		f.SetCellValue(cutSheetName, fmt.Sprintf("A%d", row), item.ID)
		f.SetCellValue(cutSheetName, fmt.Sprintf("B%d", row), string(item.PartNumber))
		f.SetCellValue(cutSheetName, fmt.Sprintf("C%d", row), toCut)
		f.SetCellValue(cutSheetName, fmt.Sprintf("D%d", row), cut)
		f.SetCellValue(cutSheetName, fmt.Sprintf("E%d", row), remaining)
		f.SetCellValue(cutSheetName, fmt.Sprintf("F%d", row), item.Status.String())
		f.SetCellValue(cutSheetName, fmt.Sprintf("G%d", row), len(item.OrderItems))
	}

	f.SetColWidth(cutSheetName, "B", "B", 14)
	f.SetColWidth(cutSheetName, "C", "E", 16)
	return f, nil
}

// WriteCutSheet saves the job's cut sheet to path
func WriteCutSheet(job *entities.CutJob, path string) error {
	f, err := BuildCutSheet(job)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to write cut sheet %s: %w", path, err)
	}
	return nil
}
