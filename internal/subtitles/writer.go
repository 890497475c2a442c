package subtitles

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"dubsy/internal/logging"
	"dubsy/internal/services"
	"dubsy/internal/transcript"
)

const stageName = "subtitle_generation"

// Writer serializes segments into SRT files inside a directory.
type Writer struct {
	dir    string
	token  func() string
	logger *slog.Logger
}

// Option configures a Writer.
type Option func(*Writer)

// WithTokenSource overrides the random token used in file names.
func WithTokenSource(fn func() string) Option {
	return func(w *Writer) {
		if fn != nil {
			w.token = fn
		}
	}
}

// NewWriter constructs a Writer that places files in dir.
func NewWriter(dir string, logger *slog.Logger, opts ...Option) *Writer {
	w := &Writer{
		dir:    dir,
		token:  func() string { return strings.ReplaceAll(uuid.NewString(), "-", "") },
		logger: logging.NewComponentLogger(logger, "subtitle-writer"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write emits segments as subtitles_<token>.srt and returns its path. An
// empty segment list is rejected and no file is created.
func (w *Writer) Write(ctx context.Context, segments []transcript.Segment) (string, error) {
	if len(segments) == 0 {
		return "", services.Wrap(services.ErrSubtitleGeneration, stageName, "validate", "no segments to write", nil)
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", services.Wrap(services.ErrSubtitleGeneration, stageName, "prepare", "create output dir", err)
	}

	path := filepath.Join(w.dir, "subtitles_"+w.token()+".srt")
	tmpPath := filepath.Join(w.dir, "."+filepath.Base(path)+".tmp")
	if err := os.WriteFile(tmpPath, []byte(Encode(segments)), 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return "", services.Wrap(services.ErrSubtitleGeneration, stageName, "write", "serialize srt", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return "", services.Wrap(services.ErrSubtitleGeneration, stageName, "write", "finalize srt", err)
	}

	logging.WithContext(ctx, w.logger).Info("subtitle file written",
		logging.String(logging.FieldEventType, "subtitles_written"),
		logging.String("srt_path", path),
		logging.Int("cues", len(segments)),
	)
	return path, nil
}

// ReadText returns the raw content of a subtitle file.
func ReadText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", services.Wrap(services.ErrSubtitleGeneration, stageName, "read", fmt.Sprintf("read %s", filepath.Base(path)), err)
	}
	return string(data), nil
}
