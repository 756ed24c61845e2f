package pipeline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"leadscreen/internal"
	"leadscreen/internal/config"
	"leadscreen/internal/events"
	"leadscreen/internal/suppression"
)

// fakeStore is an in-memory suppression.Store that counts queries.
type fakeStore struct {
	records []suppression.Record
	err     error
	calls   int
}

func (f *fakeStore) Find(_ context.Context, key3, key4, clientScope string) (*suppression.Record, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	for i := range f.records {
		r := f.records[i]
		if r.Key3 != key3 || r.Key4 != key4 {
			continue
		}
		if clientScope != "" && r.Client != clientScope {
			continue
		}
		return &r, nil
	}
	return nil, nil
}

func mkXLSX(t *testing.T, dir string, rows [][]any) string {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for r, row := range rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}
	path := filepath.Join(dir, "input.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestService(t *testing.T, store suppression.Store) (*Service, string) {
	t.Helper()
	outDir := t.TempDir()
	cfg := config.Config{OutputDir: outDir}
	return NewService(store, nil, cfg, events.Nop{}), outDir
}

func readSheet(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		t.Fatal(err)
	}
	return rows
}

func cell(rows [][]string, r, c int) string {
	if r >= len(rows) || c >= len(rows[r]) {
		return ""
	}
	return rows[r][c]
}

var leadHeader = []any{"Company Name", "First Name", "Last Name", "Email ID", "Phone Number"}

func TestCheckWorkbookEmptyStore(t *testing.T) {
	store := &fakeStore{}
	svc, _ := newTestService(t, store)

	input := mkXLSX(t, t.TempDir(), [][]any{
		leadHeader,
		{"Acme", "John", "Smith", "john@acme.test", "555-0100"},
		{"", "", "", "orphan@nowhere.test", ""},
	})

	opts := RunOptions{RecencyMonths: 12, SplitStatusColumns: true}
	sum, err := svc.CheckWorkbookFile(context.Background(), input, opts)
	if err != nil {
		t.Fatal(err)
	}

	if sum.Checked != 1 || sum.Skipped != 1 || sum.Matched != 0 {
		t.Errorf("summary = %+v", sum)
	}
	if store.calls != 1 {
		t.Errorf("store queried %d times, want 1 (blank row must not hit the store)", store.calls)
	}

	rows := readSheet(t, sum.OutputPath)
	if cell(rows, 0, 5) != "Match Status" || cell(rows, 0, 6) != "Client Code Status" || cell(rows, 0, 7) != "Date Status" {
		t.Errorf("status headers = %v", rows[0])
	}
	if cell(rows, 1, 5) != "Unmatch" || cell(rows, 1, 6) != "Unmatch" {
		t.Errorf("row 2 status = %q/%q", cell(rows, 1, 5), cell(rows, 1, 6))
	}
	if cell(rows, 1, 7) != string(internal.DateStatusFresh) {
		t.Errorf("row 2 date status = %q", cell(rows, 1, 7))
	}
	// Skipped row gets no status cells at all.
	if cell(rows, 2, 5) != "" || cell(rows, 2, 6) != "" || cell(rows, 2, 7) != "" {
		t.Errorf("blank row was annotated: %v", rows[2])
	}
}

func TestCheckWorkbookMatchCleared(t *testing.T) {
	store := &fakeStore{records: []suppression.Record{
		{Key3: "JohSmiAcm", Key4: "JohnSmitAcme", Client: "C1", Date: time.Now().AddDate(0, -13, 0)},
	}}
	svc, _ := newTestService(t, store)

	input := mkXLSX(t, t.TempDir(), [][]any{
		leadHeader,
		{"Acme", "John", "Smith", "", ""},
	})

	opts := RunOptions{ClientScope: "C1", RecencyMonths: 12, SplitStatusColumns: true}
	sum, err := svc.CheckWorkbookFile(context.Background(), input, opts)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Matched != 1 {
		t.Errorf("matched = %d", sum.Matched)
	}

	rows := readSheet(t, sum.OutputPath)
	if cell(rows, 1, 5) != "Match" || cell(rows, 1, 6) != "Match" {
		t.Errorf("status = %q/%q", cell(rows, 1, 5), cell(rows, 1, 6))
	}
	if cell(rows, 1, 7) != string(internal.DateStatusCleared) {
		t.Errorf("date status = %q", cell(rows, 1, 7))
	}
}

func TestCheckWorkbookClientScopeExcludes(t *testing.T) {
	store := &fakeStore{records: []suppression.Record{
		{Key3: "JohSmiAcm", Key4: "JohnSmitAcme", Client: "C1", Date: time.Now().AddDate(0, -13, 0)},
	}}
	svc, _ := newTestService(t, store)

	input := mkXLSX(t, t.TempDir(), [][]any{
		leadHeader,
		{"Acme", "John", "Smith", "", ""},
	})

	opts := RunOptions{ClientScope: "C2", RecencyMonths: 12, SplitStatusColumns: true}
	sum, err := svc.CheckWorkbookFile(context.Background(), input, opts)
	if err != nil {
		t.Fatal(err)
	}

	rows := readSheet(t, sum.OutputPath)
	if cell(rows, 1, 5) != "Unmatch" {
		t.Errorf("status = %q, want Unmatch for out-of-scope record", cell(rows, 1, 5))
	}
	if cell(rows, 1, 7) != string(internal.DateStatusFresh) {
		t.Errorf("date status = %q", cell(rows, 1, 7))
	}
}

func TestCheckWorkbookSingleStatusColumn(t *testing.T) {
	store := &fakeStore{}
	svc, _ := newTestService(t, store)

	input := mkXLSX(t, t.TempDir(), [][]any{
		leadHeader,
		{"Acme", "John", "Smith", "", ""},
	})

	// Lighter variant: no client scoping, no recency window, one column.
	sum, err := svc.CheckWorkbookFile(context.Background(), input, RunOptions{})
	if err != nil {
		t.Fatal(err)
	}

	rows := readSheet(t, sum.OutputPath)
	if cell(rows, 0, 5) != "Status" {
		t.Errorf("header = %q, want Status", cell(rows, 0, 5))
	}
	if cell(rows, 1, 5) != "Unmatch" {
		t.Errorf("status = %q", cell(rows, 1, 5))
	}
	if len(rows[0]) > 6 {
		t.Errorf("unexpected extra columns: %v", rows[0])
	}
}

func TestCheckWorkbookMissingColumns(t *testing.T) {
	store := &fakeStore{}
	svc, _ := newTestService(t, store)

	input := mkXLSX(t, t.TempDir(), [][]any{
		{"Company Name", "Last Name", "Email ID"},
		{"Acme", "Smith", "x@y.test"},
	})

	_, err := svc.CheckWorkbookFile(context.Background(), input, RunOptions{RecencyMonths: 12})
	var missing *MissingColumnsError
	if !errors.As(err, &missing) {
		t.Fatalf("err = %v, want MissingColumnsError", err)
	}
	if store.calls != 0 {
		t.Errorf("store queried %d times before header validation, want 0", store.calls)
	}
}

func TestCheckWorkbookStoreFailureAborts(t *testing.T) {
	store := &fakeStore{err: suppression.ErrStoreUnavailable}
	svc, outDir := newTestService(t, store)

	input := mkXLSX(t, t.TempDir(), [][]any{
		leadHeader,
		{"Acme", "John", "Smith", "", ""},
	})

	_, err := svc.CheckWorkbookFile(context.Background(), input, RunOptions{})
	if !errors.Is(err, suppression.ErrStoreUnavailable) {
		t.Fatalf("err = %v, want ErrStoreUnavailable", err)
	}

	// No output artifact may exist after an aborted run.
	entries, readErr := os.ReadDir(outDir)
	if readErr != nil {
		t.Fatal(readErr)
	}
	if len(entries) != 0 {
		t.Errorf("aborted run left output artifacts: %v", entries)
	}
}

func TestCheckWorkbookMalformedInput(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "junk.xlsx")
	if err := os.WriteFile(path, bytes.Repeat([]byte("not a workbook"), 10), 0o644); err != nil {
		t.Fatal(err)
	}

	svc, _ := newTestService(t, &fakeStore{})
	_, err := svc.CheckWorkbookFile(context.Background(), path, RunOptions{})
	if !errors.Is(err, ErrMalformedInput) {
		t.Fatalf("err = %v, want ErrMalformedInput", err)
	}
}

func TestCheckCSVFile(t *testing.T) {
	store := &fakeStore{}
	svc, _ := newTestService(t, store)

	dir := t.TempDir()
	path := filepath.Join(dir, "leads.csv")
	csvData := "First Name,Last Name,Company Name\nJane,Doe,Globex\n"
	if err := os.WriteFile(path, []byte(csvData), 0o644); err != nil {
		t.Fatal(err)
	}

	sum, err := svc.CheckCSVFile(context.Background(), path, RunOptions{RecencyMonths: 6})
	if err != nil {
		t.Fatal(err)
	}
	if sum.Checked != 1 {
		t.Errorf("checked = %d", sum.Checked)
	}

	rows := readSheet(t, sum.OutputPath)
	if cell(rows, 0, 3) != "Status" || cell(rows, 0, 4) != "Date Status" {
		t.Errorf("headers = %v", rows[0])
	}
	if cell(rows, 1, 4) != string(internal.DateStatusFresh) {
		t.Errorf("date status = %q", cell(rows, 1, 4))
	}
}

func TestOutputNamesAreUnique(t *testing.T) {
	a := uniqueOutputName("/tmp/list.xlsx")
	b := uniqueOutputName("/tmp/list.xlsx")
	if a == b {
		t.Errorf("two runs produced the same output name: %s", a)
	}
}
