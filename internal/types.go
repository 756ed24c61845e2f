package internal

import "time"

type LeadSource string

const (
	SourceXLSX           LeadSource = "xlsx"
	SourceCSV            LeadSource = "csv"
	SourceEmailHTMLTable LeadSource = "email_html_table"
	SourcePDF            LeadSource = "pdf"
)

// IdentityFields is the per-row tuple the fingerprint is derived from.
// Values are already normalized: trimmed, empty string when the cell is absent.
type IdentityFields struct {
	FirstName   string
	LastName    string
	CompanyName string
}

// Blank reports whether every identity field is empty. Blank rows are
// skipped entirely: no fingerprint, no store lookup, no status cells.
func (f IdentityFields) Blank() bool {
	return f.FirstName == "" && f.LastName == "" && f.CompanyName == ""
}

// Fingerprint is the pair of blocking keys used against the suppression
// store: 3- and 4-character prefixes of first name, last name and company
// name, concatenated in that order with no separator.
type Fingerprint struct {
	Key3 string
	Key4 string
}

type DateStatus string

const (
	DateStatusFresh      DateStatus = "Fresh Lead GTG"
	DateStatusCleared    DateStatus = "Suppression Cleared"
	DateStatusSuppressed DateStatus = "Still Suppressed"
)

// MatchResult is the outcome of one suppression lookup. DateStatus is the
// zero value when the run has no recency window configured; MatchedAt is nil
// when no record matched.
type MatchResult struct {
	Exists     bool
	MatchedAt  *time.Time
	DateStatus DateStatus
}

const (
	LabelMatch   = "Match"
	LabelUnmatch = "Unmatch"
)

// Label is the two-valued status written into the annotated workbook.
func (r MatchResult) Label() string {
	if r.Exists {
		return LabelMatch
	}
	return LabelUnmatch
}

// LeadResult is one screened row as persisted and exported.
type LeadResult struct {
	LineNo       int
	Source       LeadSource
	Fields       IdentityFields
	Email        string
	Phone        string
	Skipped      bool
	MatchStatus  string
	ClientStatus string
	DateStatus   string
}

// MessageRow mirrors one row of the local messages table.
type MessageRow struct {
	ID         int
	Provider   string
	MessageID  string
	Subject    string
	Sender     string
	ReceivedAt string
	Hash       string
	Status     string
	RawRef     string
}

// InboundMessage is a raw mail message handed over by a connector.
type InboundMessage struct {
	Provider   string
	MessageID  string
	Subject    string
	From       string
	ReceivedAt string
	Raw        []byte
}
