package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"dubsy/internal/language"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeServer(); err != nil {
		return err
	}
	c.normalizeOpenAI()
	c.normalizeTranscription()
	c.normalizeTranslation()
	c.normalizeComposer()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if value, ok := lookupEnv("DUBSY_TEMP_DIR", "TEMP_DIR"); ok {
		c.Paths.TempDir = value
	}
	if strings.TrimSpace(c.Paths.TempDir) == "" {
		c.Paths.TempDir = defaultTempDir()
	}
	var err error
	if c.Paths.TempDir, err = expandPath(c.Paths.TempDir); err != nil {
		return fmt.Errorf("paths.temp_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeServer() error {
	if value, ok := lookupEnv("HOST"); ok {
		c.Server.Host = value
	}
	if value, ok := lookupEnv("PORT"); ok {
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("PORT: invalid integer %q", value)
		}
		c.Server.Port = port
	}
	c.Server.Host = strings.TrimSpace(c.Server.Host)
	if c.Server.Host == "" {
		c.Server.Host = defaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = defaultPort
	}
	if c.Server.MaxUploadBytes == 0 {
		c.Server.MaxUploadBytes = defaultMaxUploadBytes
	}
	c.Server.AllowedExtensions = normalizeList(c.Server.AllowedExtensions, defaultExtensions, func(s string) string {
		s = strings.ToLower(s)
		if !strings.HasPrefix(s, ".") {
			s = "." + s
		}
		return s
	})
	c.Server.Languages = language.NormalizeList(c.Server.Languages)
	if len(c.Server.Languages) == 0 {
		c.Server.Languages = append([]string(nil), defaultLanguages...)
	}
	c.Server.LockFile = strings.TrimSpace(c.Server.LockFile)
	if c.Server.LockFile == "" {
		c.Server.LockFile = defaultLockFile
	}
	return nil
}

func (c *Config) normalizeOpenAI() {
	c.OpenAI.APIKey = strings.TrimSpace(c.OpenAI.APIKey)
	if c.OpenAI.APIKey == "" {
		if value, ok := lookupEnv("OPENAI_API_KEY"); ok {
			c.OpenAI.APIKey = value
		}
	}
	c.OpenAI.BaseURL = strings.TrimRight(strings.TrimSpace(c.OpenAI.BaseURL), "/")
	if c.OpenAI.BaseURL == "" {
		c.OpenAI.BaseURL = defaultOpenAIBaseURL
	}
	if strings.TrimSpace(c.OpenAI.TranscriptionModel) == "" {
		c.OpenAI.TranscriptionModel = defaultTranscriptionModel
	}
	if strings.TrimSpace(c.OpenAI.TranslationModel) == "" {
		c.OpenAI.TranslationModel = defaultTranslationModel
	}
	if c.OpenAI.TimeoutSeconds == 0 {
		c.OpenAI.TimeoutSeconds = defaultOpenAITimeout
	}
}

func (c *Config) normalizeTranscription() {
	c.Transcription.Provider = strings.ToLower(strings.TrimSpace(c.Transcription.Provider))
	if c.Transcription.Provider == "" {
		c.Transcription.Provider = defaultProvider
	}
	if strings.TrimSpace(c.Transcription.WhisperXModel) == "" {
		c.Transcription.WhisperXModel = defaultWhisperXModel
	}
	c.Transcription.VADMethod = strings.ToLower(strings.TrimSpace(c.Transcription.VADMethod))
	if c.Transcription.VADMethod == "" {
		c.Transcription.VADMethod = defaultVADMethod
	}
	c.Transcription.HFToken = strings.TrimSpace(c.Transcription.HFToken)
	if c.Transcription.HFToken == "" {
		if value, ok := lookupEnv("HUGGING_FACE_HUB_TOKEN", "HF_TOKEN"); ok {
			c.Transcription.HFToken = value
		}
	}
}

func (c *Config) normalizeTranslation() {
	if c.Translation.MaxTokens == 0 {
		c.Translation.MaxTokens = defaultMaxTokens
	}
	if c.Translation.RetryAttempts == 0 {
		c.Translation.RetryAttempts = defaultRetryAttempts
	}
}

func (c *Config) normalizeComposer() {
	if strings.TrimSpace(c.Composer.FFmpegBinary) == "" {
		c.Composer.FFmpegBinary = defaultFFmpegBinary
	}
	if strings.TrimSpace(c.Composer.FFprobeBinary) == "" {
		c.Composer.FFprobeBinary = defaultFFprobeBinary
	}
	if strings.TrimSpace(c.Composer.VideoCodec) == "" {
		c.Composer.VideoCodec = defaultVideoCodec
	}
	if strings.TrimSpace(c.Composer.Preset) == "" {
		c.Composer.Preset = defaultPreset
	}
	if c.Composer.BurnTimeoutSeconds == 0 {
		c.Composer.BurnTimeoutSeconds = defaultBurnTimeout
	}
	if c.Composer.SoftTimeoutSeconds == 0 {
		c.Composer.SoftTimeoutSeconds = defaultSoftTimeout
	}
}

func (c *Config) normalizeLogging() {
	if value, ok := lookupEnv("DEBUG"); ok {
		c.Logging.Debug = strings.EqualFold(value, "true") || value == "1"
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

// lookupEnv returns the first non-blank value among keys.
func lookupEnv(keys ...string) (string, bool) {
	for _, key := range keys {
		if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value), true
		}
	}
	return "", false
}

func normalizeList(values, fallback []string, canon func(string) string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		value = canon(value)
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	if len(out) == 0 {
		return append([]string(nil), fallback...)
	}
	return out
}
