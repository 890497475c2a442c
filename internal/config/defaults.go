package config

import (
	"os"
	"path/filepath"
)

const (
	defaultConfigPath         = "~/.config/dubsy/config.toml"
	projectConfigName         = "dubsy.toml"
	defaultHost               = "0.0.0.0"
	defaultPort               = 8000
	defaultMaxUploadBytes     = 100 * 1024 * 1024
	defaultLockFile           = "dubsy.lock"
	defaultOpenAIBaseURL      = "https://api.openai.com/v1"
	defaultTranscriptionModel = "whisper-1"
	defaultTranslationModel   = "gpt-3.5-turbo"
	defaultOpenAITimeout      = 120
	defaultProvider           = ProviderOpenAI
	defaultWhisperXModel      = "large-v3"
	defaultVADMethod          = "silero"
	defaultTranslationDelayMS = 100
	defaultMaxTokens          = 200
	defaultTemperature        = 0.1
	defaultRetryAttempts      = 3
	defaultFFmpegBinary       = "ffmpeg"
	defaultFFprobeBinary      = "ffprobe"
	defaultVideoCodec         = "libx264"
	defaultPreset             = "medium"
	defaultCRF                = 23
	defaultBurnTimeout        = 600
	defaultSoftTimeout        = 300
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// Transcription providers.
const (
	ProviderOpenAI   = "openai"
	ProviderWhisperX = "whisperx"
)

var (
	defaultExtensions = []string{".mp4", ".avi", ".mov", ".mkv"}
	defaultLanguages  = []string{
		"en", "fr", "es", "de", "it", "pt", "zh", "ja", "ko",
		"ru", "ar", "hi", "nl", "sv", "no", "da", "fi",
	}
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			TempDir: defaultTempDir(),
		},
		Server: Server{
			Host:              defaultHost,
			Port:              defaultPort,
			MaxUploadBytes:    defaultMaxUploadBytes,
			AllowedExtensions: append([]string(nil), defaultExtensions...),
			Languages:         append([]string(nil), defaultLanguages...),
			LockFile:          defaultLockFile,
		},
		OpenAI: OpenAI{
			BaseURL:            defaultOpenAIBaseURL,
			TranscriptionModel: defaultTranscriptionModel,
			TranslationModel:   defaultTranslationModel,
			TimeoutSeconds:     defaultOpenAITimeout,
		},
		Transcription: Transcription{
			Provider:      defaultProvider,
			WhisperXModel: defaultWhisperXModel,
			VADMethod:     defaultVADMethod,
		},
		Translation: Translation{
			DelayMS:       defaultTranslationDelayMS,
			MaxTokens:     defaultMaxTokens,
			Temperature:   defaultTemperature,
			RetryAttempts: defaultRetryAttempts,
		},
		Composer: Composer{
			FFmpegBinary:       defaultFFmpegBinary,
			FFprobeBinary:      defaultFFprobeBinary,
			VideoCodec:         defaultVideoCodec,
			Preset:             defaultPreset,
			CRF:                defaultCRF,
			BurnTimeoutSeconds: defaultBurnTimeout,
			SoftTimeoutSeconds: defaultSoftTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

func defaultTempDir() string {
	return filepath.Join(os.TempDir(), "dubsy")
}
