package pipeline

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jhillyerd/enmime"
	pdf "github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"

	"leadscreen/internal"
)

// MessageExtract is everything pulled out of one raw mail message: the
// detection inputs plus the first lead table found, if any.
type MessageExtract struct {
	Subject         string
	Text            string
	AttachmentNames []string
	Table           *LeadTable
}

// ExtractFromMessageRaw parses a raw RFC 5322 message and hunts for a lead
// table. Attachments win over the HTML body; within attachments, document
// order decides. An unreadable attachment is ignored rather than fatal —
// only an unparseable message itself is MalformedInput.
func ExtractFromMessageRaw(raw []byte) (*MessageExtract, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}

	out := &MessageExtract{
		Subject: env.GetHeader("Subject"),
		Text:    env.Text,
	}

	for _, att := range env.Attachments {
		name := strings.TrimSpace(att.FileName)
		if name == "" {
			name = "attachment"
		}
		out.AttachmentNames = append(out.AttachmentNames, name)
	}

	for _, att := range env.Attachments {
		if out.Table != nil {
			break
		}
		lower := strings.ToLower(strings.TrimSpace(att.FileName))
		switch {
		case strings.HasSuffix(lower, ".xlsx") || strings.HasSuffix(lower, ".xls"):
			if table, err := TableFromXLSX(att.Content); err == nil {
				out.Table = table
			}
		case strings.HasSuffix(lower, ".csv"):
			if table, err := TableFromCSV(att.Content); err == nil {
				out.Table = table
			}
		case strings.HasSuffix(lower, ".pdf"):
			if table, err := TableFromPDF(att.Content); err == nil {
				out.Table = table
			}
		}
	}

	if out.Table == nil && env.HTML != "" {
		out.Table = TableFromHTML(env.HTML)
	}

	return out, nil
}

// TableFromXLSX reads the first non-empty sheet of a workbook blob.
func TableFromXLSX(content []byte) (*LeadTable, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil || len(rows) == 0 {
			continue
		}
		return &LeadTable{
			Source: internal.SourceXLSX,
			Header: rows[0],
			Rows:   rows[1:],
		}, nil
	}
	return nil, fmt.Errorf("%w: workbook has no rows", ErrMalformedInput)
}

// TableFromCSV reads a CSV blob; ragged rows are allowed.
func TableFromCSV(content []byte) (*LeadTable, error) {
	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: csv has no rows", ErrMalformedInput)
	}
	return &LeadTable{
		Source: internal.SourceCSV,
		Header: records[0],
		Rows:   records[1:],
	}, nil
}

var pdfColumnSplit = regexp.MustCompile(`\t|\s{2,}`)

// TableFromPDF is the best-effort path: page text is split into lines and
// lines into columns on tabs or runs of spaces. Good enough for the
// machine-generated lead sheets that arrive as PDF, hopeless for anything
// fancier — callers must treat a resolve failure as "no table here".
func TableFromPDF(content []byte) (*LeadTable, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}

	var lines []string
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		lines = append(lines, splitLines(text)...)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: pdf has no extractable text", ErrMalformedInput)
	}

	table := &LeadTable{Source: internal.SourcePDF, Header: splitPDFColumns(lines[0])}
	for _, line := range lines[1:] {
		table.Rows = append(table.Rows, splitPDFColumns(line))
	}
	return table, nil
}

func splitPDFColumns(line string) []string {
	parts := pdfColumnSplit.Split(line, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// TableFromHTML scans the email body for tables and returns the first one
// whose header carries the required labels, falling back to the first table
// with at least a header and one data row. Returns nil when the body has no
// usable table.
func TableFromHTML(html string) *LeadTable {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var fallback *LeadTable
	var resolved *LeadTable
	doc.Find("table").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		trs := sel.Find("tr")
		if trs.Length() < 2 {
			return true
		}

		table := &LeadTable{Source: internal.SourceEmailHTMLTable}
		trs.First().Find("th,td").Each(func(_ int, cell *goquery.Selection) {
			table.Header = append(table.Header, strings.TrimSpace(cell.Text()))
		})
		trs.Slice(1, trs.Length()).Each(func(_ int, tr *goquery.Selection) {
			var row []string
			tr.Find("th,td").Each(func(_ int, cell *goquery.Selection) {
				row = append(row, strings.TrimSpace(cell.Text()))
			})
			if len(row) > 0 {
				table.Rows = append(table.Rows, row)
			}
		})
		if len(table.Rows) == 0 {
			return true
		}

		if fallback == nil {
			fallback = table
		}
		if _, err := table.Resolve(); err == nil {
			resolved = table
			return false
		}
		return true
	})

	if resolved != nil {
		return resolved
	}
	return fallback
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	parts := strings.Split(text, "\n")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
