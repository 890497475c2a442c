package validation

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"dubsy/internal/language"
	"dubsy/internal/services"
)

const stageName = "upload"

// VideoFileName checks that name is present and carries an allowed extension
// (case-insensitive).
func VideoFileName(name string, allowed []string) error {
	if strings.TrimSpace(name) == "" {
		return services.Wrap(services.ErrValidation, stageName, "filename", "file name missing", nil)
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, candidate := range allowed {
		if ext != "" && ext == strings.ToLower(candidate) {
			return nil
		}
	}
	return services.Wrap(services.ErrValidation, stageName, "extension",
		fmt.Sprintf("unsupported format %q; allowed extensions: %s", ext, strings.Join(allowed, ", ")), nil)
}

// LanguageCode returns the canonical ISO 639-1 form of code when it is in
// allowed. role names the field ("source" or "target") in the error.
func LanguageCode(role, code string, allowed []string) (string, error) {
	if !language.IsSupported(code, allowed) {
		return "", services.Wrap(services.ErrValidation, stageName, "language",
			fmt.Sprintf("invalid %s language code: %q", role, code), nil)
	}
	return language.Canonical(code), nil
}

// Size rejects payloads larger than limit. A non-positive limit disables
// the check.
func Size(size, limit int64) error {
	if limit <= 0 || size <= limit {
		return nil
	}
	return services.Wrap(services.ErrPayloadTooLarge, stageName, "size",
		fmt.Sprintf("file too large (%s); maximum size: %s", humanize.IBytes(uint64(size)), humanize.IBytes(uint64(limit))), nil)
}

// LimitDescription renders limit for logs and help text.
func LimitDescription(limit int64) string {
	if limit <= 0 {
		return "unlimited"
	}
	return humanize.IBytes(uint64(limit))
}
