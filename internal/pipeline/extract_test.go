package pipeline

import (
	"strings"
	"testing"

	"leadscreen/internal"
)

func TestTableFromCSV(t *testing.T) {
	blob := []byte("First Name,Last Name,Company Name,Email ID\nJohn,Smith,Acme,john@acme.test\nJane,Doe,Globex,\n")
	table, err := TableFromCSV(blob)
	if err != nil {
		t.Fatal(err)
	}
	if table.Source != internal.SourceCSV {
		t.Errorf("source = %s", table.Source)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("rows = %d", len(table.Rows))
	}
	if _, err := table.Resolve(); err != nil {
		t.Errorf("header should resolve: %v", err)
	}
}

func TestTableFromCSVEmpty(t *testing.T) {
	if _, err := TableFromCSV(nil); err == nil {
		t.Error("empty csv should be malformed")
	}
}

func TestTableFromHTML(t *testing.T) {
	html := `<html><body>
<p>Attached leads below.</p>
<table>
  <tr><td>decorative</td><td>layout</td></tr>
  <tr><td>x</td><td>y</td></tr>
</table>
<table>
  <tr><th>First Name</th><th>Last Name</th><th>Company Name</th></tr>
  <tr><td>John</td><td>Smith</td><td>Acme</td></tr>
  <tr><td>Jane</td><td>Doe</td><td>Globex</td></tr>
</table>
</body></html>`

	table := TableFromHTML(html)
	if table == nil {
		t.Fatal("no table extracted")
	}
	if table.Source != internal.SourceEmailHTMLTable {
		t.Errorf("source = %s", table.Source)
	}
	// The resolvable table wins over the decorative one.
	if _, err := table.Resolve(); err != nil {
		t.Fatalf("picked the wrong table: %v", err)
	}
	if len(table.Rows) != 2 || table.Rows[0][0] != "John" {
		t.Errorf("rows = %v", table.Rows)
	}
}

func TestTableFromHTMLNoTable(t *testing.T) {
	if table := TableFromHTML("<html><body><p>hi</p></body></html>"); table != nil {
		t.Errorf("expected nil, got %+v", table)
	}
}

func TestExtractFromMessageRawHTMLBody(t *testing.T) {
	raw := strings.Join([]string{
		"From: sender@example.test",
		"To: screening@example.test",
		"Subject: Lead list for suppression check",
		"MIME-Version: 1.0",
		`Content-Type: text/html; charset="UTF-8"`,
		"",
		`<html><body><table>`,
		`<tr><th>First Name</th><th>Last Name</th><th>Company Name</th></tr>`,
		`<tr><td>John</td><td>Smith</td><td>Acme</td></tr>`,
		`</table></body></html>`,
	}, "\r\n")

	extract, err := ExtractFromMessageRaw([]byte(raw))
	if err != nil {
		t.Fatal(err)
	}
	if extract.Subject != "Lead list for suppression check" {
		t.Errorf("subject = %q", extract.Subject)
	}
	if extract.Table == nil {
		t.Fatal("no table extracted from html body")
	}
	if len(extract.Table.Rows) != 1 {
		t.Errorf("rows = %v", extract.Table.Rows)
	}
}

func TestExtractFromMessageRawGarbage(t *testing.T) {
	// enmime degrades gracefully on header-less input, so only assert that
	// nothing table-like comes back.
	extract, err := ExtractFromMessageRaw([]byte("complete nonsense"))
	if err == nil && extract.Table != nil {
		t.Errorf("garbage produced a table: %+v", extract.Table)
	}
}

func TestSplitPDFColumns(t *testing.T) {
	cols := splitPDFColumns("First Name  Last Name\tCompany Name")
	if len(cols) != 3 {
		t.Fatalf("cols = %v", cols)
	}
	if cols[2] != "Company Name" {
		t.Errorf("cols = %v", cols)
	}
}
