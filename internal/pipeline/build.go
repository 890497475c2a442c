package pipeline

import (
	"context"
	"log/slog"

	"dubsy/internal/compose"
	"dubsy/internal/config"
	"dubsy/internal/media/audio"
	"dubsy/internal/media/ffprobe"
	"dubsy/internal/subtitles"
	"dubsy/internal/transcription"
	"dubsy/internal/translation"
)

// NewFromConfig wires the production stages. The composer probes ffmpeg
// here so that a missing binary is reported before any job runs.
func NewFromConfig(ctx context.Context, cfg *config.Config, logger *slog.Logger, publisher Publisher) (*Orchestrator, error) {
	prober := ffprobe.New(cfg.Composer.FFprobeBinary)
	transcriber, err := transcription.NewFromConfig(cfg, logger)
	if err != nil {
		return nil, err
	}
	composer, err := compose.New(ctx, compose.SettingsFromConfig(cfg), logger, compose.WithVerifier(prober))
	if err != nil {
		return nil, err
	}
	return New(Dependencies{
		Extractor:   audio.NewExtractor(cfg.Composer.FFmpegBinary, cfg.Paths.TempDir, prober, logger),
		Transcriber: transcriber,
		Translator:  translation.NewFromConfig(cfg, logger),
		Writer:      subtitles.NewWriter(cfg.Paths.TempDir, logger),
		Composer:    composer,
		Publisher:   publisher,
	}, logger), nil
}
