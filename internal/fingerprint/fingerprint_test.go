package fingerprint

import (
	"testing"

	"leadscreen/internal"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"":          "",
		"  Acme  ":  "Acme",
		"\tJohn\n":  "John",
		"O'Brien":   "O'Brien",
		"  a  b  ":  "a  b",
		"MixedCase": "MixedCase",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDerive(t *testing.T) {
	fp := Derive(internal.IdentityFields{FirstName: "John", LastName: "Smith", CompanyName: "Acme"})
	if fp.Key3 != "JohSmiAcm" {
		t.Errorf("Key3 = %q, want JohSmiAcm", fp.Key3)
	}
	if fp.Key4 != "JohnSmitAcme" {
		t.Errorf("Key4 = %q, want JohnSmitAcme", fp.Key4)
	}
}

func TestDeriveShortFields(t *testing.T) {
	// Fields shorter than the prefix length contribute as-is, no padding.
	fp := Derive(internal.IdentityFields{FirstName: "Al", LastName: "Wu", CompanyName: "IBM"})
	if fp.Key3 != "AlWuIBM" {
		t.Errorf("Key3 = %q, want AlWuIBM", fp.Key3)
	}
	if fp.Key4 != "AlWuIBM" {
		t.Errorf("Key4 = %q, want AlWuIBM", fp.Key4)
	}
}

func TestDeriveBoundaryLengths(t *testing.T) {
	// Exactly 3 and exactly 4 characters hit the truncation boundaries.
	fp := Derive(internal.IdentityFields{FirstName: "Abc", LastName: "Wxyz", CompanyName: "Qq"})
	if fp.Key3 != "AbcWxyQq" {
		t.Errorf("Key3 = %q", fp.Key3)
	}
	if fp.Key4 != "AbcWxyzQq" {
		t.Errorf("Key4 = %q", fp.Key4)
	}
}

func TestDeriveEmpty(t *testing.T) {
	fp := Derive(internal.IdentityFields{})
	if fp.Key3 != "" || fp.Key4 != "" {
		t.Errorf("empty fields should give empty keys, got (%q, %q)", fp.Key3, fp.Key4)
	}
}

func TestDeriveDeterministic(t *testing.T) {
	fields := internal.IdentityFields{FirstName: "Jane", LastName: "Doe", CompanyName: "Globex"}
	a := Derive(fields)
	b := Derive(fields)
	if a != b {
		t.Errorf("Derive is not deterministic: %+v vs %+v", a, b)
	}
}
