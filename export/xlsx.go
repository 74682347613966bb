// Package export writes case records to spreadsheet workbooks.
package export

import (
	"bytes"
	"fmt"
	"strings"

	"casedb-backend/models"

	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet holding the cases.
const SheetName = "Cases"

var headers = []string{
	"Case Name",
	"Court",
	"Tribunal/Court",
	"Decision Date",
	"Offence Titles",
	"Statutes",
	"Citations",
	"Mitigation Discussed",
	"Aggravation Discussed",
	"Link",
}

// WriteXLSX returns an XLSX workbook with one row per record.
func WriteXLSX(records []models.CaseRecord) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(SheetName, cell, h); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
	}

	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		_ = f.SetRowStyle(SheetName, 1, 1, style)
	}

	for i, r := range records {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(SheetName, cell, v)
		}

		write(1, r.CaseName)
		write(2, string(r.Court))
		write(3, r.Tribunal)
		if !r.DecisionDate.IsZero() {
			write(4, r.DecisionDate.Format(models.DateLayout))
		} else {
			write(4, "")
		}
		write(5, strings.Join(r.OffenceTitles, ", "))
		write(6, strings.Join(r.StatuteKeys(), ", "))
		write(7, strings.Join(r.Citations, "; "))
		write(8, yesNo(r.MitigationDiscussed))
		write(9, yesNo(r.AggravationDiscussed))
		write(10, r.Link)
	}

	_ = f.SetColWidth(SheetName, "A", "A", 40) // case name
	_ = f.SetColWidth(SheetName, "B", "D", 16)
	_ = f.SetColWidth(SheetName, "E", "G", 48)
	_ = f.SetColWidth(SheetName, "H", "I", 12)
	_ = f.SetColWidth(SheetName, "J", "J", 60) // link

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
