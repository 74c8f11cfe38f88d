package textnorm

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestNormalize_FoldsCaseAndDiacritics(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"Ração":          "racao",
		"RACAO":          "racao",
		"  São Paulo  ":  "sao paulo",
		"AÇÚCAR CRISTAL": "acucar cristal",
		"Ñandú":          "nandu",
		"":               "",
		"   ":            "",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Fatalf("Normalize(%q) = %q; want %q", in, got, want)
		}
	}

	if Normalize("Ração") != Normalize("RACAO") {
		t.Fatalf("expected Ração and RACAO to normalize equally")
	}
}

func TestNormalize_NilAndNonStrings(t *testing.T) {
	t.Parallel()

	var nilStr *string
	var nilDec *decimal.Decimal
	if got := Normalize(nil); got != "" {
		t.Fatalf("Normalize(nil) = %q", got)
	}
	if got := Normalize(nilStr); got != "" {
		t.Fatalf("Normalize((*string)(nil)) = %q", got)
	}
	if got := Normalize(nilDec); got != "" {
		t.Fatalf("Normalize((*decimal.Decimal)(nil)) = %q", got)
	}
	if got := Normalize(12345); got != "12345" {
		t.Fatalf("Normalize(12345) = %q", got)
	}
	if got := Normalize(decimal.RequireFromString("10.50")); got != "10.5" {
		t.Fatalf("Normalize(decimal) = %q", got)
	}
	s := " Élan "
	if got := Normalize(&s); got != "elan" {
		t.Fatalf("Normalize(&s) = %q", got)
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{"Ração", "PARAFUSO SEXTAVADO 1/4\"", "  Ôlá Mundo ", "İstanbul", "ÅNGSTRÖM", "x́y"}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Fatalf("not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}
