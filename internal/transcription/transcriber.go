package transcription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"dubsy/internal/config"
	"dubsy/internal/logging"
	"dubsy/internal/services"
	"dubsy/internal/services/whisperapi"
	"dubsy/internal/services/whisperx"
	"dubsy/internal/transcript"
)

const stageName = "transcription"

// Backend performs the raw speech-to-text call.
type Backend interface {
	Transcribe(ctx context.Context, audioPath, language string) (transcript.Transcript, error)
}

// Transcriber turns an audio file into a timed transcript and classifies
// every failure as a transcription error.
type Transcriber struct {
	backend Backend
	name    string
	logger  *slog.Logger
}

// New wraps a backend. name is used only for logging.
func New(backend Backend, name string, logger *slog.Logger) *Transcriber {
	return &Transcriber{
		backend: backend,
		name:    strings.TrimSpace(name),
		logger:  logging.NewComponentLogger(logger, "transcriber"),
	}
}

// NewFromConfig selects the backend named by cfg.Transcription.Provider.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) (*Transcriber, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, stageName, "init", "configuration required", nil)
	}
	switch cfg.Transcription.Provider {
	case config.ProviderOpenAI, "":
		client := whisperapi.NewClient(whisperapi.Config{
			APIKey:         cfg.OpenAI.APIKey,
			BaseURL:        cfg.OpenAI.BaseURL,
			Model:          cfg.OpenAI.TranscriptionModel,
			TimeoutSeconds: cfg.OpenAI.TimeoutSeconds,
		})
		return New(client, "openai:"+client.Model(), logger), nil
	case config.ProviderWhisperX:
		svc := whisperx.NewService(whisperx.Config{
			Model:       cfg.Transcription.WhisperXModel,
			CUDAEnabled: cfg.Transcription.CUDAEnabled,
			VADMethod:   cfg.Transcription.VADMethod,
			HFToken:     cfg.Transcription.HFToken,
		})
		return New(svc, "whisperx:"+svc.Model(), logger), nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, stageName, "init",
			fmt.Sprintf("unknown transcription provider %q", cfg.Transcription.Provider), nil)
	}
}

// Transcribe returns the segment sequence for audioPath. A response without
// any segment is a failure.
func (t *Transcriber) Transcribe(ctx context.Context, audioPath, language string) (transcript.Transcript, error) {
	if t == nil || t.backend == nil {
		return transcript.Transcript{}, services.Wrap(services.ErrTranscription, stageName, "init", "transcriber not initialized", nil)
	}
	if _, err := os.Stat(audioPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return transcript.Transcript{}, services.Wrap(services.ErrTranscription, stageName, "open", "audio file not found: "+audioPath, err)
		}
		return transcript.Transcript{}, services.Wrap(services.ErrTranscription, stageName, "open", "audio not readable", err)
	}

	logger := logging.WithContext(ctx, t.logger)
	logger.Info("transcription started",
		logging.String(logging.FieldEventType, "transcription_started"),
		logging.String("backend", t.name),
		logging.String("language_hint", language),
	)
	started := time.Now()

	result, err := t.backend.Transcribe(ctx, audioPath, language)
	if err != nil {
		return transcript.Transcript{}, services.Wrap(services.ErrTranscription, stageName, "backend", t.name+" request failed", err)
	}
	if len(result.Segments) == 0 {
		return transcript.Transcript{}, services.Wrap(services.ErrTranscription, stageName, "validate", "no segments found in transcription", nil)
	}
	for i, seg := range result.Segments {
		if err := seg.Validate(); err != nil {
			logging.WarnWithContext(logger, "segment timing out of range",
				"segment_timing_invalid",
				logging.Int("segment", i+1),
				logging.String(logging.FieldErrorHint, err.Error()),
				logging.String(logging.FieldImpact, "subtitle entry may display incorrectly"),
			)
		}
	}
	if result.Text == "" {
		result.Text = transcript.JoinedText(result.Segments)
	}

	logger.Info("transcription completed",
		logging.String(logging.FieldEventType, "transcription_completed"),
		logging.Int("segments", len(result.Segments)),
		logging.String("detected_language", result.Language),
		logging.Duration("elapsed", time.Since(started)),
	)
	return result, nil
}
