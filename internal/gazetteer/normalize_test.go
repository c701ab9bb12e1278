package gazetteer

import "testing"

func TestNormalizeName(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"  Paris ", "paris"},
		{"São Paulo", "sao paulo"},
		{"Côte d'Ivoire", "cote d'ivoire"},
		{"NEW   YORK", "new york"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := NormalizeName(tc.in); got != tc.want {
			t.Fatalf("NormalizeName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSlug(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"São Paulo", "sao-paulo"},
		{"Côte d'Ivoire", "cote-d-ivoire"},
		{"United Kingdom", "united-kingdom"},
		{"--", ""},
	}
	for _, tc := range cases {
		if got := Slug(tc.in); got != tc.want {
			t.Fatalf("Slug(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseKind(t *testing.T) {
	t.Parallel()

	if kind, err := ParseKind(" City "); err != nil || kind != KindCity {
		t.Fatalf("ParseKind(City) = %q, %v", kind, err)
	}
	if _, err := ParseKind("planet"); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}
