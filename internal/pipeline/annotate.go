package pipeline

import (
	"context"

	"github.com/xuri/excelize/v2"

	"leadscreen/internal"
	"leadscreen/internal/events"
	"leadscreen/internal/fingerprint"
)

// Lookup is the suppression query surface the annotator drives.
// *suppression.Client implements it.
type Lookup interface {
	Lookup(ctx context.Context, fp internal.Fingerprint) (internal.MatchResult, error)
}

// RunOptions are fixed once per run and held for every row.
type RunOptions struct {
	// ClientScope narrows lookups to one client code. Empty means unscoped.
	ClientScope string
	// RecencyMonths is the calendar-month recency window. Zero disables
	// date classification and the Date Status column.
	RecencyMonths int
	// SplitStatusColumns writes Match Status and Client Code Status as two
	// columns (kept in sync from the same lookup) instead of a single
	// Status column.
	SplitStatusColumns bool
}

// StatusHeaders returns the labels of the appended columns, in write order.
func (o RunOptions) StatusHeaders() []string {
	headers := []string{"Status"}
	if o.SplitStatusColumns {
		headers = []string{"Match Status", "Client Code Status"}
	}
	if o.RecencyMonths > 0 {
		headers = append(headers, "Date Status")
	}
	return headers
}

// Annotator streams over one workbook's data rows: normalize the identity
// fields, derive the fingerprint, query the store, write status cells.
// Rows are processed strictly in order; the first store failure aborts the
// run with no output.
type Annotator struct {
	lookup     Lookup
	opts       RunOptions
	emit       events.Emitter
	file       *excelize.File
	sheet      string
	statusCols []int // 1-based workbook columns, parallel to StatusHeaders
}

// NewAnnotator binds an annotator to a workbook and writes the status
// column headers. firstStatusCol is the 1-based column right after the
// original header width.
func NewAnnotator(lookup Lookup, opts RunOptions, emit events.Emitter, file *excelize.File, sheet string, firstStatusCol int) (*Annotator, error) {
	a := &Annotator{
		lookup: lookup,
		opts:   opts,
		emit:   emit,
		file:   file,
		sheet:  sheet,
	}
	for i, header := range opts.StatusHeaders() {
		col := firstStatusCol + i
		cell, err := excelize.CoordinatesToCellName(col, 1)
		if err != nil {
			return nil, err
		}
		if err := file.SetCellValue(sheet, cell, header); err != nil {
			return nil, err
		}
		a.statusCols = append(a.statusCols, col)
	}
	return a, nil
}

// AnnotateRow screens one data row. lineNo is the 1-based workbook row
// (header is row 1). A row with all identity fields blank is skipped whole:
// no fingerprint, no lookup, no cells written.
func (a *Annotator) AnnotateRow(ctx context.Context, runID string, lineNo int, row []string, cols ColumnIndex) (internal.LeadResult, error) {
	fields := identityAt(row, cols)
	lead := internal.LeadResult{
		LineNo: lineNo,
		Fields: fields,
		Email:  fingerprint.Normalize(cellAt(row, cols.Email)),
		Phone:  fingerprint.Normalize(cellAt(row, cols.Phone)),
	}

	if fields.Blank() {
		lead.Skipped = true
		a.emit.RowSkipped(runID, lineNo)
		return lead, nil
	}

	fp := fingerprint.Derive(fields)
	result, err := a.lookup.Lookup(ctx, fp)
	if err != nil {
		return lead, err
	}

	label := result.Label()
	lead.MatchStatus = label
	values := []string{label}
	if a.opts.SplitStatusColumns {
		lead.ClientStatus = label
		values = append(values, label)
	}
	if a.opts.RecencyMonths > 0 {
		lead.DateStatus = string(result.DateStatus)
		values = append(values, string(result.DateStatus))
	}

	for i, value := range values {
		cell, err := excelize.CoordinatesToCellName(a.statusCols[i], lineNo)
		if err != nil {
			return lead, err
		}
		if err := a.file.SetCellValue(a.sheet, cell, value); err != nil {
			return lead, err
		}
	}

	a.emit.RowChecked(runID, lineNo, result.Exists, string(result.DateStatus))
	return lead, nil
}
