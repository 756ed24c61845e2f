package pipeline

import (
	"errors"
	"strings"

	"leadscreen/internal"
	"leadscreen/internal/fingerprint"
)

// Header labels the screening pipeline knows about. Column positions vary
// between source files, so columns are always resolved by label, once, before
// any row is touched.
const (
	LabelCompanyName = "Company Name"
	LabelFirstName   = "First Name"
	LabelLastName    = "Last Name"
	LabelEmailID     = "Email ID"
	LabelPhoneNumber = "Phone Number"
)

// ErrMalformedInput marks input that could not be read as a table at all.
var ErrMalformedInput = errors.New("input could not be parsed as a table")

// MissingColumnsError names the required header labels absent from the
// input. It fails the run before any store query is issued.
type MissingColumnsError struct {
	Labels []string
}

func (e *MissingColumnsError) Error() string {
	return "missing required columns: " + strings.Join(e.Labels, ", ")
}

// ColumnIndex maps the known labels to 0-based column positions. Email and
// Phone are optional and may stay -1; the three identity columns never are.
type ColumnIndex struct {
	Company   int
	FirstName int
	LastName  int
	Email     int
	Phone     int
}

// ResolveColumns scans a header row and maps labels to positions. Labels
// are matched on their trimmed form. The three identity columns are
// required; a MissingColumnsError lists every absent one.
func ResolveColumns(header []string) (ColumnIndex, error) {
	idx := ColumnIndex{Company: -1, FirstName: -1, LastName: -1, Email: -1, Phone: -1}
	for i, cell := range header {
		switch strings.TrimSpace(cell) {
		case LabelCompanyName:
			idx.Company = i
		case LabelFirstName:
			idx.FirstName = i
		case LabelLastName:
			idx.LastName = i
		case LabelEmailID:
			idx.Email = i
		case LabelPhoneNumber:
			idx.Phone = i
		}
	}

	var missing []string
	if idx.Company == -1 {
		missing = append(missing, LabelCompanyName)
	}
	if idx.FirstName == -1 {
		missing = append(missing, LabelFirstName)
	}
	if idx.LastName == -1 {
		missing = append(missing, LabelLastName)
	}
	if len(missing) > 0 {
		return idx, &MissingColumnsError{Labels: missing}
	}
	return idx, nil
}

// LeadTable is an extracted contact table: one header row plus data rows,
// decoupled from whatever artifact it came out of.
type LeadTable struct {
	Source internal.LeadSource
	Header []string
	Rows   [][]string
}

// Resolve maps the table's header. It is the HeaderResolved transition of a
// run; failure means no row gets processed.
func (t *LeadTable) Resolve() (ColumnIndex, error) {
	if len(t.Header) == 0 {
		return ColumnIndex{}, &MissingColumnsError{Labels: []string{LabelCompanyName, LabelFirstName, LabelLastName}}
	}
	return ResolveColumns(t.Header)
}

// identityAt reads and normalizes the three identity fields of a data row.
// Rows may be ragged; an index past the row's end reads as absent.
func identityAt(row []string, cols ColumnIndex) internal.IdentityFields {
	return internal.IdentityFields{
		FirstName:   fingerprint.Normalize(cellAt(row, cols.FirstName)),
		LastName:    fingerprint.Normalize(cellAt(row, cols.LastName)),
		CompanyName: fingerprint.Normalize(cellAt(row, cols.Company)),
	}
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}
