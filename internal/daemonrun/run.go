package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gofrs/flock"

	"dubsy/internal/config"
	"dubsy/internal/deps"
	"dubsy/internal/logging"
	"dubsy/internal/pipeline"
	"dubsy/internal/progress"
	"dubsy/internal/server"
)

// ErrAlreadyRunning reports that another server holds the instance lock.
var ErrAlreadyRunning = errors.New("another dubsy server is already running")

// Options configures the server runtime.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the HTTP server and blocks until SIGINT, SIGTERM or cmdCtx
// cancellation.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	logger, err := newLogger(cfg, opts)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	lock, err := AcquireLock(cfg.LockPath())
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("release instance lock", logging.Error(err))
		}
	}()

	logDependencySnapshot(logger, cfg)

	broadcaster := progress.NewBroadcaster(logger)
	orchestrator, err := pipeline.NewFromConfig(signalCtx, cfg, logger, broadcaster)
	if err != nil {
		logger.Error("pipeline unavailable",
			logging.Error(err),
			logging.String(logging.FieldEventType, "pipeline_init_failed"),
			logging.String(logging.FieldErrorHint, "install ffmpeg or set composer.ffmpeg in the config"),
		)
		return err
	}

	srv := server.New(cfg, orchestrator, broadcaster, logger)
	if err := srv.Run(signalCtx); err != nil {
		return err
	}
	logger.Info("dubsy server shutting down")
	return nil
}

// AcquireLock takes the single-instance file lock without blocking.
func AcquireLock(path string) (*flock.Flock, error) {
	lock := flock.New(path)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w (lock held on %s)", ErrAlreadyRunning, path)
	}
	return lock, nil
}

func newLogger(cfg *config.Config, opts Options) (*slog.Logger, error) {
	if strings.TrimSpace(opts.LogLevel) == "" && !opts.Development {
		return logging.NewFromConfig(cfg)
	}
	level := opts.LogLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	return logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout"},
		Development: opts.Development,
	})
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	statuses := deps.CheckBinaries(deps.MediaRequirements(
		cfg.Composer.FFmpegBinary,
		cfg.Composer.FFprobeBinary,
		cfg.Transcription.Provider == config.ProviderWhisperX,
	))
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.Bool("openai_key_present", strings.TrimSpace(cfg.OpenAI.APIKey) != ""),
		logging.String("transcription_provider", cfg.Transcription.Provider),
		logging.String("translation_model", cfg.OpenAI.TranslationModel),
		logging.Int("pid", os.Getpid()),
	}
	for _, status := range statuses {
		attrs = append(attrs, logging.Bool(strings.ToLower(status.Name)+"_available", status.Available))
	}
	logger.Info("dependency snapshot", logging.Args(attrs...)...)
}
