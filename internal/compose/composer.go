package compose

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"dubsy/internal/config"
	"dubsy/internal/deps"
	"dubsy/internal/language"
	"dubsy/internal/logging"
	"dubsy/internal/media/ffprobe"
	"dubsy/internal/services"
	"dubsy/internal/textutil"
)

const stageName = "video_composition"

// Subtitle modes.
const (
	ModeHard = "hard"
	ModeSoft = "soft"
)

// NormalizeMode maps anything other than "soft" to "hard".
func NormalizeMode(mode string) string {
	if strings.EqualFold(strings.TrimSpace(mode), ModeSoft) {
		return ModeSoft
	}
	return ModeHard
}

type commandRunner func(ctx context.Context, name string, args ...string) error

// Inspector reports the streams of a produced file.
type Inspector interface {
	Inspect(ctx context.Context, path string) (ffprobe.Result, error)
}

// Settings holds encoding parameters and per-mode timeouts.
type Settings struct {
	FFmpegBinary string
	OutputDir    string
	VideoCodec   string
	Preset       string
	CRF          int
	BurnTimeout  time.Duration
	SoftTimeout  time.Duration
}

// SettingsFromConfig extracts composer settings from cfg.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		FFmpegBinary: cfg.Composer.FFmpegBinary,
		OutputDir:    cfg.Paths.TempDir,
		VideoCodec:   cfg.Composer.VideoCodec,
		Preset:       cfg.Composer.Preset,
		CRF:          cfg.Composer.CRF,
		BurnTimeout:  time.Duration(cfg.Composer.BurnTimeoutSeconds) * time.Second,
		SoftTimeout:  time.Duration(cfg.Composer.SoftTimeoutSeconds) * time.Second,
	}
}

// Composer produces subtitled videos with ffmpeg.
type Composer struct {
	settings Settings
	run      commandRunner
	check    func(ctx context.Context, binary string) (string, error)
	verify   Inspector
	token    func() string
	logger   *slog.Logger
}

// Option configures a Composer.
type Option func(*Composer)

// WithCommandRunner allows injecting a custom command runner for tests.
func WithCommandRunner(r commandRunner) Option {
	return func(c *Composer) {
		if r != nil {
			c.run = r
		}
	}
}

// WithDependencyCheck replaces the ffmpeg presence probe.
func WithDependencyCheck(fn func(ctx context.Context, binary string) (string, error)) Option {
	return func(c *Composer) {
		if fn != nil {
			c.check = fn
		}
	}
}

// WithVerifier enables a stream check of every produced file.
func WithVerifier(inspector Inspector) Option {
	return func(c *Composer) {
		c.verify = inspector
	}
}

// WithTokenSource overrides the random suffix used in output names.
func WithTokenSource(fn func() string) Option {
	return func(c *Composer) {
		if fn != nil {
			c.token = fn
		}
	}
}

// New constructs a Composer and confirms ffmpeg is invocable. A missing
// binary yields ErrDependencyMissing.
func New(ctx context.Context, settings Settings, logger *slog.Logger, opts ...Option) (*Composer, error) {
	if strings.TrimSpace(settings.FFmpegBinary) == "" {
		settings.FFmpegBinary = "ffmpeg"
	}
	if settings.VideoCodec == "" {
		settings.VideoCodec = "libx264"
	}
	if settings.Preset == "" {
		settings.Preset = "medium"
	}
	if settings.BurnTimeout <= 0 {
		settings.BurnTimeout = 10 * time.Minute
	}
	if settings.SoftTimeout <= 0 {
		settings.SoftTimeout = 5 * time.Minute
	}
	c := &Composer{
		settings: settings,
		run:      defaultCommandRunner,
		check:    deps.ProbeVersion,
		token:    func() string { return strings.ReplaceAll(uuid.NewString(), "-", "")[:8] },
		logger:   logging.NewComponentLogger(logger, "composer"),
	}
	for _, opt := range opts {
		opt(c)
	}

	version, err := c.check(ctx, settings.FFmpegBinary)
	if err != nil {
		return nil, services.Wrap(services.ErrDependencyMissing, stageName, "init",
			fmt.Sprintf("%s is not installed or not invocable", settings.FFmpegBinary), err)
	}
	c.logger.Debug("ffmpeg available", logging.String("version", version))
	return c, nil
}

// Compose dispatches to Burn or MuxSoft according to mode.
func (c *Composer) Compose(ctx context.Context, mode, videoPath, subtitlePath, lang string) (string, error) {
	if NormalizeMode(mode) == ModeSoft {
		return c.MuxSoft(ctx, videoPath, subtitlePath, lang)
	}
	return c.Burn(ctx, videoPath, subtitlePath)
}

// Burn re-encodes the video with subtitles rendered into the frame and copies
// the audio stream. The result is <stem>_with_subtitles_<token>.mp4.
func (c *Composer) Burn(ctx context.Context, videoPath, subtitlePath string) (string, error) {
	output := c.outputPath(videoPath, "_with_subtitles_", ".mp4")
	args := []string{
		"-nostdin", "-hide_banner", "-loglevel", "error",
		"-i", videoPath,
		"-vf", "subtitles=" + quoteFilterPath(subtitlePath),
		"-c:a", "copy",
		"-c:v", c.settings.VideoCodec,
		"-preset", c.settings.Preset,
		"-crf", strconv.Itoa(c.settings.CRF),
		"-y", output,
	}
	return c.execute(ctx, "burn", ModeHard, videoPath, subtitlePath, output, c.settings.BurnTimeout, args)
}

// MuxSoft adds the subtitle file as a separate, selectable SRT track in a
// Matroska container. Audio and video are stream-copied.
func (c *Composer) MuxSoft(ctx context.Context, videoPath, subtitlePath, lang string) (string, error) {
	output := c.outputPath(videoPath, "_with_soft_subs_", ".mkv")
	args := []string{
		"-nostdin", "-hide_banner", "-loglevel", "error",
		"-i", videoPath,
		"-i", subtitlePath,
		"-map", "0:v",
		"-map", "0:a?",
		"-map", "1:0",
		"-c:v", "copy",
		"-c:a", "copy",
		"-c:s", "srt",
		"-metadata:s:s:0", "language=" + language.ToISO3(lang),
		"-metadata:s:s:0", "title=" + language.DisplayName(lang),
		"-disposition:s:0", "default",
		"-y", output,
	}
	return c.execute(ctx, "mux_soft", ModeSoft, videoPath, subtitlePath, output, c.settings.SoftTimeout, args)
}

func (c *Composer) execute(ctx context.Context, op, mode, videoPath, subtitlePath, output string, timeout time.Duration, args []string) (string, error) {
	if c == nil {
		return "", services.Wrap(services.ErrVideoProcessing, stageName, op, "composer not initialized", nil)
	}
	for _, input := range []string{videoPath, subtitlePath} {
		if _, err := os.Stat(input); err != nil {
			return "", services.Wrap(services.ErrVideoProcessing, stageName, op, "input not readable: "+filepath.Base(input), err)
		}
	}

	logger := logging.WithContext(ctx, c.logger)
	logger.Info("composing video",
		logging.String(logging.FieldEventType, "composition_started"),
		logging.String("mode", mode),
		logging.String("output_path", output),
		logging.Duration("timeout", timeout),
	)
	started := time.Now()

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := c.run(runCtx, c.settings.FFmpegBinary, args...); err != nil {
		_ = os.Remove(output)
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return "", services.Wrap(services.ErrTimeout, stageName, op,
				fmt.Sprintf("ffmpeg exceeded %s", timeout), err)
		}
		return "", services.Wrap(services.ErrVideoProcessing, stageName, op, "ffmpeg failed", err)
	}

	info, err := os.Stat(output)
	if err != nil {
		return "", services.Wrap(services.ErrVideoProcessing, stageName, op, "ffmpeg produced no output file", err)
	}
	if info.Size() == 0 {
		_ = os.Remove(output)
		return "", services.Wrap(services.ErrVideoProcessing, stageName, op, "ffmpeg produced an empty output file", nil)
	}
	if err := c.verifyOutput(ctx, mode, output); err != nil {
		_ = os.Remove(output)
		return "", services.Wrap(services.ErrVideoProcessing, stageName, op, "output failed verification", err)
	}

	logger.Info("video composed",
		logging.String(logging.FieldEventType, "composition_completed"),
		logging.String("mode", mode),
		logging.String("output_path", output),
		logging.Int64("bytes", info.Size()),
		logging.Duration("elapsed", time.Since(started)),
	)
	return output, nil
}

func (c *Composer) verifyOutput(ctx context.Context, mode, output string) error {
	if c.verify == nil {
		return nil
	}
	result, err := c.verify.Inspect(ctx, output)
	if err != nil {
		return err
	}
	if result.VideoStreamCount() == 0 {
		return errors.New("no video stream")
	}
	if mode == ModeSoft && result.SubtitleStreamCount() == 0 {
		return errors.New("no subtitle stream")
	}
	return nil
}

func (c *Composer) outputPath(videoPath, infix, ext string) string {
	stem := textutil.SanitizeFileName(textutil.StemOf(videoPath))
	dir := c.settings.OutputDir
	if dir == "" {
		dir = filepath.Dir(videoPath)
	}
	return filepath.Join(dir, stem+infix+c.token()+ext)
}

// quoteFilterPath wraps a path in single quotes for an ffmpeg filter argument.
// Embedded single quotes close, escape and reopen the quoted run.
func quoteFilterPath(path string) string {
	return "'" + strings.ReplaceAll(path, "'", `'\''`) + "'"
}

func defaultCommandRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}
