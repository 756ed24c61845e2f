package pipeline

import (
	"errors"
	"strings"
	"testing"
)

func TestResolveColumns(t *testing.T) {
	// Column order is whatever the source file says, including extras.
	header := []string{"Phone Number", "Last Name", "Email ID", "Company Name", "First Name", "Notes"}
	cols, err := ResolveColumns(header)
	if err != nil {
		t.Fatal(err)
	}
	if cols.Company != 3 || cols.FirstName != 4 || cols.LastName != 1 {
		t.Errorf("identity columns mismapped: %+v", cols)
	}
	if cols.Email != 2 || cols.Phone != 0 {
		t.Errorf("optional columns mismapped: %+v", cols)
	}
}

func TestResolveColumnsTrimsLabels(t *testing.T) {
	cols, err := ResolveColumns([]string{" Company Name ", "First Name", "Last Name"})
	if err != nil {
		t.Fatal(err)
	}
	if cols.Company != 0 {
		t.Errorf("padded label not matched: %+v", cols)
	}
}

func TestResolveColumnsMissing(t *testing.T) {
	_, err := ResolveColumns([]string{"Company Name", "Last Name", "Email ID"})
	var missing *MissingColumnsError
	if !errors.As(err, &missing) {
		t.Fatalf("err = %v, want MissingColumnsError", err)
	}
	if len(missing.Labels) != 1 || missing.Labels[0] != LabelFirstName {
		t.Errorf("labels = %v, want [%s]", missing.Labels, LabelFirstName)
	}
	if !strings.Contains(missing.Error(), LabelFirstName) {
		t.Errorf("error text should name the missing label: %q", missing.Error())
	}
}

func TestResolveColumnsAllMissing(t *testing.T) {
	_, err := ResolveColumns([]string{"foo", "bar"})
	var missing *MissingColumnsError
	if !errors.As(err, &missing) {
		t.Fatalf("err = %v", err)
	}
	if len(missing.Labels) != 3 {
		t.Errorf("labels = %v, want all three identity labels", missing.Labels)
	}
}

func TestIdentityAtRaggedRow(t *testing.T) {
	cols := ColumnIndex{Company: 4, FirstName: 0, LastName: 1, Email: -1, Phone: -1}
	fields := identityAt([]string{" John ", "Smith"}, cols)
	if fields.FirstName != "John" || fields.LastName != "Smith" {
		t.Errorf("fields = %+v", fields)
	}
	if fields.CompanyName != "" {
		t.Errorf("cell past row end must read as absent, got %q", fields.CompanyName)
	}
}
