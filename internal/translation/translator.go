package translation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"dubsy/internal/config"
	"dubsy/internal/language"
	"dubsy/internal/logging"
	"dubsy/internal/services"
	"dubsy/internal/services/llm"
	"dubsy/internal/transcript"
)

const (
	stageName        = "translation"
	defaultMaxTokens = 200
	defaultTemp      = 0.1
)

const systemPromptTemplate = "You are a professional translator. Translate text to %s while preserving meaning, tone, and style. Only return the translation, no additional text."

// Completer issues a single chat completion.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (string, error)
}

// Settings controls sampling and pacing.
type Settings struct {
	// Delay is inserted between consecutive segment calls.
	Delay       time.Duration
	MaxTokens   int
	Temperature float64
}

// Translator translates transcript segments one at a time, keeping the
// original text for any segment whose call fails.
type Translator struct {
	client   Completer
	settings Settings
	logger   *slog.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

// Option configures a Translator.
type Option func(*Translator)

// WithSleeper replaces the inter-call delay implementation (tests).
func WithSleeper(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(t *Translator) {
		if fn != nil {
			t.sleep = fn
		}
	}
}

// New constructs a Translator around client.
func New(client Completer, settings Settings, logger *slog.Logger, opts ...Option) *Translator {
	if settings.MaxTokens <= 0 {
		settings.MaxTokens = defaultMaxTokens
	}
	if settings.Delay < 0 {
		settings.Delay = 0
	}
	t := &Translator{
		client:   client,
		settings: settings,
		logger:   logging.NewComponentLogger(logger, "translator"),
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// NewFromConfig builds a Translator backed by the configured chat model.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) *Translator {
	client := llm.NewClient(llm.Config{
		APIKey:         cfg.OpenAI.APIKey,
		BaseURL:        cfg.OpenAI.BaseURL,
		Model:          cfg.OpenAI.TranslationModel,
		TimeoutSeconds: cfg.OpenAI.TimeoutSeconds,
	}, llm.WithRetryMaxAttempts(cfg.Translation.RetryAttempts))
	return New(client, Settings{
		Delay:       time.Duration(cfg.Translation.DelayMS) * time.Millisecond,
		MaxTokens:   cfg.Translation.MaxTokens,
		Temperature: cfg.Translation.Temperature,
	}, logger)
}

// SystemPrompt returns the fixed instruction sent with every segment.
func SystemPrompt(targetLang string) string {
	return fmt.Sprintf(systemPromptTemplate, language.PromptName(targetLang))
}

// Translate returns a sequence of the same length and order as segments with
// translated text and unchanged timings. Only a nil client or a cancelled
// context fails the batch.
func (t *Translator) Translate(ctx context.Context, segments []transcript.Segment, targetLang string) ([]transcript.Segment, error) {
	if t == nil || t.client == nil {
		return nil, services.Wrap(services.ErrTranslation, stageName, "init", "translator not initialized", nil)
	}
	if len(segments) == 0 {
		return []transcript.Segment{}, nil
	}

	logger := logging.WithContext(ctx, t.logger)
	system := SystemPrompt(targetLang)
	out := make([]transcript.Segment, len(segments))
	failed := 0
	started := time.Now()

	for i, seg := range segments {
		if err := ctx.Err(); err != nil {
			return nil, services.Wrap(services.ErrTranslation, stageName, "segment", fmt.Sprintf("aborted at segment %d of %d", i+1, len(segments)), err)
		}
		out[i] = seg
		if text, err := t.translateOne(ctx, system, seg.Text); err != nil {
			failed++
			logging.WarnWithContext(logger, "segment translation failed; keeping original text",
				"segment_translation_failed",
				logging.Int("segment", i+1),
				logging.Int("segments_total", len(segments)),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check API quota and connectivity"),
				logging.String(logging.FieldImpact, "subtitle entry stays in the source language"),
			)
		} else {
			out[i].Text = text
		}

		if i < len(segments)-1 && t.settings.Delay > 0 {
			if err := t.sleep(ctx, t.settings.Delay); err != nil {
				return nil, services.Wrap(services.ErrTranslation, stageName, "delay", "interrupted between segments", err)
			}
		}
	}

	logger.Info("translation completed",
		logging.String(logging.FieldEventType, "translation_completed"),
		logging.String("target_lang", targetLang),
		logging.Int("segments", len(segments)),
		logging.Int("segments_kept_original", failed),
		logging.Duration("elapsed", time.Since(started)),
	)
	return out, nil
}

func (t *Translator) translateOne(ctx context.Context, system, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("empty segment text")
	}
	translated, err := t.client.Complete(ctx, llm.Request{
		System:      system,
		User:        text,
		Temperature: t.settings.Temperature,
		MaxTokens:   t.settings.MaxTokens,
	})
	if err != nil {
		return "", err
	}
	translated = strings.TrimSpace(translated)
	if translated == "" {
		return "", fmt.Errorf("empty translation")
	}
	return translated, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
