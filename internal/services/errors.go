package services

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// kind is a sentinel that can specialise one or more parent kinds so that
// errors.Is matches both the specific marker and every ancestor.
type kind struct {
	name    string
	parents []error
}

func (k *kind) Error() string { return k.name }

func (k *kind) Unwrap() []error { return k.parents }

func newKind(name string, parents ...error) error {
	return &kind{name: name, parents: parents}
}

var (
	ErrProcessing    = errors.New("processing error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")

	ErrValidation         = newKind("validation error", ErrProcessing)
	ErrPayloadTooLarge    = newKind("payload too large", ErrValidation)
	ErrAudioExtraction    = newKind("audio extraction error", ErrProcessing)
	ErrTranscription      = newKind("transcription error", ErrProcessing)
	ErrTranslation        = newKind("translation error", ErrProcessing)
	ErrSubtitleGeneration = newKind("subtitle generation error", ErrProcessing)
	ErrVideoProcessing    = newKind("video processing error", ErrProcessing)
	ErrTimeout            = newKind("timeout", ErrVideoProcessing)
	ErrDependencyMissing  = newKind("dependency missing", ErrVideoProcessing, ErrConfiguration)
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrProcessing
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// HTTPStatus maps a pipeline or validation error to the status code the
// transport layer should answer with.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// IsProcessing reports whether err belongs to the processing-failure taxonomy
// (as opposed to an unanticipated failure).
func IsProcessing(err error) bool {
	return errors.Is(err, ErrProcessing)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
