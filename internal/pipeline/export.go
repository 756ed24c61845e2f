package pipeline

import (
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"leadscreen/internal"
)

// MaterializeWorkbook turns an extracted table into a workbook so that
// html/csv/pdf sources flow through the same annotation pass an uploaded
// workbook does. Header lands in row 1, data rows from row 2.
func MaterializeWorkbook(t *LeadTable) (*excelize.File, string, error) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	for c, h := range t.Header {
		cell, err := excelize.CoordinatesToCellName(c+1, 1)
		if err != nil {
			return nil, "", err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, "", err
		}
	}
	for r, row := range t.Rows {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return nil, "", err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, "", err
			}
		}
	}
	return f, sheet, nil
}

// ExportLeadsToXLSX rebuilds a results workbook from persisted lead rows.
// Used by the export command when the original output artifact is gone.
func ExportLeadsToXLSX(leads []internal.LeadResult, outputPath string) error {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	headers := []string{
		"line_no", "source", "first_name", "last_name", "company_name",
		"email", "phone", "skipped", "match_status", "client_code_status", "date_status",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, lead := range leads {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}

		set(1, lead.LineNo)
		set(2, string(lead.Source))
		set(3, lead.Fields.FirstName)
		set(4, lead.Fields.LastName)
		set(5, lead.Fields.CompanyName)
		set(6, lead.Email)
		set(7, lead.Phone)
		set(8, lead.Skipped)
		set(9, lead.MatchStatus)
		set(10, lead.ClientStatus)
		set(11, lead.DateStatus)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}
