package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"dubsy/internal/fileutil"
	"dubsy/internal/logging"
	"dubsy/internal/media/ffprobe"
	"dubsy/internal/services"
)

const stageName = "audio_extraction"

// Inspector reports the streams contained in a media file.
type Inspector interface {
	Inspect(ctx context.Context, path string) (ffprobe.Result, error)
}

type commandRunner func(ctx context.Context, name string, args ...string) error

// Extractor writes the first audio stream of a video to a uniquely named mono
// 16 kHz WAV file, the format both transcription backends accept.
type Extractor struct {
	ffmpeg  string
	tempDir string
	probe   Inspector
	run     commandRunner
	token   func() string
	logger  *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithCommandRunner allows injecting a custom command runner for tests.
func WithCommandRunner(r commandRunner) Option {
	return func(e *Extractor) {
		if r != nil {
			e.run = r
		}
	}
}

// WithTokenSource overrides the random token used in temporary file names.
func WithTokenSource(fn func() string) Option {
	return func(e *Extractor) {
		if fn != nil {
			e.token = fn
		}
	}
}

// NewExtractor constructs an Extractor that writes into tempDir.
func NewExtractor(ffmpegBinary, tempDir string, probe Inspector, logger *slog.Logger, opts ...Option) *Extractor {
	if strings.TrimSpace(ffmpegBinary) == "" {
		ffmpegBinary = "ffmpeg"
	}
	e := &Extractor{
		ffmpeg:  ffmpegBinary,
		tempDir: tempDir,
		probe:   probe,
		run:     defaultCommandRunner,
		token:   func() string { return strings.ReplaceAll(uuid.NewString(), "-", "") },
		logger:  logging.NewComponentLogger(logger, "extractor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract writes the audio track of videoPath to a new temporary file and
// returns its path. The caller owns the returned file.
func (e *Extractor) Extract(ctx context.Context, videoPath string) (string, error) {
	if e == nil {
		return "", services.Wrap(services.ErrAudioExtraction, stageName, "init", "extractor not initialized", nil)
	}
	info, err := os.Stat(videoPath)
	if err != nil {
		return "", services.Wrap(services.ErrAudioExtraction, stageName, "open", "video not readable", err)
	}
	if info.IsDir() {
		return "", services.Wrap(services.ErrAudioExtraction, stageName, "open", fmt.Sprintf("%s is a directory", videoPath), nil)
	}

	if e.probe != nil {
		result, err := e.probe.Inspect(ctx, videoPath)
		if err != nil {
			return "", services.Wrap(services.ErrAudioExtraction, stageName, "probe", "cannot open container", err)
		}
		if result.AudioStreamCount() == 0 {
			return "", services.Wrap(services.ErrAudioExtraction, stageName, "probe", "video has no audio stream", nil)
		}
	}

	if err := os.MkdirAll(e.tempDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrAudioExtraction, stageName, "prepare", "create temp dir", err)
	}
	outputPath := filepath.Join(e.tempDir, "audio_"+e.token()+".wav")

	args := []string{
		"-nostdin", "-hide_banner", "-loglevel", "error",
		"-i", videoPath,
		"-map", "0:a:0",
		"-vn", "-ac", "1", "-ar", "16000",
		"-c:a", "pcm_s16le",
		"-y", outputPath,
	}
	logger := logging.WithContext(ctx, e.logger)
	logger.Debug("extracting audio",
		logging.String("video_path", videoPath),
		logging.String("audio_path", outputPath),
	)

	if err := e.run(ctx, e.ffmpeg, args...); err != nil {
		_ = os.Remove(outputPath)
		if errors.Is(ctx.Err(), context.Canceled) {
			return "", services.Wrap(services.ErrAudioExtraction, stageName, "ffmpeg", "cancelled", ctx.Err())
		}
		return "", services.Wrap(services.ErrAudioExtraction, stageName, "ffmpeg", "audio extraction failed", err)
	}

	written, err := os.Stat(outputPath)
	if err != nil || written.Size() == 0 {
		_ = os.Remove(outputPath)
		return "", services.Wrap(services.ErrAudioExtraction, stageName, "verify", "ffmpeg produced no audio", err)
	}

	logger.Info("audio extracted",
		logging.String(logging.FieldEventType, "audio_extracted"),
		logging.String("audio_path", outputPath),
		logging.Int64("bytes", written.Size()),
	)
	return outputPath, nil
}

// Cleanup removes an extracted audio file. Missing files are not an error.
func (e *Extractor) Cleanup(path string) error {
	return fileutil.RemoveIfExists(strings.TrimSpace(path))
}

func defaultCommandRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}
