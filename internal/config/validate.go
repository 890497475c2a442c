package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateOpenAI(); err != nil {
		return err
	}
	if err := c.validateTranslation(); err != nil {
		return err
	}
	if err := c.validateComposer(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.MaxUploadBytes < 0 {
		return errors.New("server.max_upload_bytes must be positive")
	}
	if len(c.Server.Languages) == 0 {
		return errors.New("server.languages must list at least one language code")
	}
	return nil
}

func (c *Config) validateOpenAI() error {
	switch c.Transcription.Provider {
	case ProviderOpenAI, ProviderWhisperX:
	default:
		return fmt.Errorf("transcription.provider must be %q or %q, got %q", ProviderOpenAI, ProviderWhisperX, c.Transcription.Provider)
	}
	// Translation always goes through the chat API, so a key is needed for
	// every provider.
	if c.OpenAI.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("openai.api_key is required. Set OPENAI_API_KEY env var or edit %s (create with 'dubsy config init')", defaultPath)
	}
	if c.OpenAI.TimeoutSeconds < 0 {
		return errors.New("openai.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateTranslation() error {
	if c.Translation.DelayMS < 0 {
		return errors.New("translation.delay_ms must be zero or positive")
	}
	if c.Translation.MaxTokens < 0 {
		return errors.New("translation.max_tokens must be positive")
	}
	if c.Translation.Temperature < 0 || c.Translation.Temperature > 2 {
		return errors.New("translation.temperature must be between 0 and 2")
	}
	if c.Translation.RetryAttempts < 0 {
		return errors.New("translation.retry_attempts must be zero or positive")
	}
	return nil
}

func (c *Config) validateComposer() error {
	if c.Composer.CRF < 0 || c.Composer.CRF > 51 {
		return fmt.Errorf("composer.crf must be between 0 and 51, got %d", c.Composer.CRF)
	}
	if c.Composer.BurnTimeoutSeconds < 0 {
		return errors.New("composer.burn_timeout_seconds must be positive")
	}
	if c.Composer.SoftTimeoutSeconds < 0 {
		return errors.New("composer.soft_timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Format) {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
