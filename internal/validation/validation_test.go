package validation

import (
	"errors"
	"strings"
	"testing"

	"dubsy/internal/services"
)

var (
	extensions = []string{".mp4", ".avi", ".mov", ".mkv"}
	languages  = []string{"en", "fr", "es", "de"}
)

func TestVideoFileName(t *testing.T) {
	valid := []string{"clip.mp4", "CLIP.MKV", "my movie.mov"}
	for _, name := range valid {
		if err := VideoFileName(name, extensions); err != nil {
			t.Fatalf("%q should be valid: %v", name, err)
		}
	}
	invalid := []string{"", "  ", "notes.txt", "noext", "archive.mp4.zip"}
	for _, name := range invalid {
		err := VideoFileName(name, extensions)
		if !errors.Is(err, services.ErrValidation) {
			t.Fatalf("%q should be rejected, got %v", name, err)
		}
	}
}

func TestLanguageCode(t *testing.T) {
	code, err := LanguageCode("source", "EN", languages)
	if err != nil || code != "en" {
		t.Fatalf("expected en, got %q %v", code, err)
	}
	if code, err := LanguageCode("target", "fr-CA", languages); err != nil || code != "fr" {
		t.Fatalf("expected fr, got %q %v", code, err)
	}
	_, err = LanguageCode("target", "xx", languages)
	if !errors.Is(err, services.ErrValidation) || !strings.Contains(err.Error(), "target") {
		t.Fatalf("expected target validation error, got %v", err)
	}
	if _, err := LanguageCode("source", "ja", languages); err == nil {
		t.Fatal("language outside the allow list should be rejected")
	}
}

func TestSize(t *testing.T) {
	limit := int64(100 * 1024 * 1024)
	if err := Size(limit, limit); err != nil {
		t.Fatalf("exact limit should pass: %v", err)
	}
	err := Size(limit+1, limit)
	if !errors.Is(err, services.ErrPayloadTooLarge) || !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected payload too large, got %v", err)
	}
	if !strings.Contains(err.Error(), "100 MiB") {
		t.Fatalf("expected human readable limit, got %q", err.Error())
	}
	if err := Size(1<<40, 0); err != nil {
		t.Fatal("zero limit disables the check")
	}
}

func TestLimitDescription(t *testing.T) {
	if LimitDescription(0) != "unlimited" || LimitDescription(1024) != "1.0 KiB" {
		t.Fatalf("unexpected descriptions %q %q", LimitDescription(0), LimitDescription(1024))
	}
}
