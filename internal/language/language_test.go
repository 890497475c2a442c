package language

import "testing"

func TestCanonical(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"en", "en"},
		{"EN", "en"},
		{"en-US", "en"},
		{"pt_BR", "pt"},
		{"zh-Hant", "zh"},
		{"fre", "fr"},
		{"fra", "fr"},
		{"ger", "de"},
		{"French", "fr"},
		{"sv", "sv"},
		{"no", "no"},
		{"", ""},
		{" ", ""},
		{"not a tag!", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Canonical(tt.input); got != tt.expected {
				t.Errorf("Canonical(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestToISO3(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"en", "eng"},
		{"fr", "fra"},
		{"de", "deu"},
		{"zh", "zho"},
		{"fi", "fin"},
		{"en-GB", "eng"},
		{"", "und"},
		{"???", "und"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ToISO3(tt.input); got != tt.expected {
				t.Errorf("ToISO3(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"en", "English"},
		{"fre", "French"},
		{"nld", "Dutch"},
		{"", "Unknown"},
		{"xyz", "XYZ"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := DisplayName(tt.input); got != tt.expected {
				t.Errorf("DisplayName(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestIsSupported(t *testing.T) {
	allowed := []string{"en", "fr", "ja"}
	for _, code := range []string{"en", "fr-CA", "JA", "fre"} {
		if !IsSupported(code, allowed) {
			t.Errorf("expected %q to be supported", code)
		}
	}
	for _, code := range []string{"", "de", "klingon!!"} {
		if IsSupported(code, allowed) {
			t.Errorf("expected %q to be rejected", code)
		}
	}
}

func TestNormalizeList(t *testing.T) {
	got := NormalizeList([]string{" en ", "eng", "fr-FR", "", "fr", "ja"})
	want := []string{"en", "fr", "ja"}
	if len(got) != len(want) {
		t.Fatalf("NormalizeList = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("NormalizeList[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if NormalizeList(nil) != nil {
		t.Fatal("expected nil for nil input")
	}
}
