package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	TempDir string `toml:"temp_dir" yaml:"temp_dir"`
	LogDir  string `toml:"log_dir" yaml:"log_dir"`
}

// Server contains HTTP transport and upload validation settings.
type Server struct {
	Host              string   `toml:"host" yaml:"host"`
	Port              int      `toml:"port" yaml:"port"`
	MaxUploadBytes    int64    `toml:"max_upload_bytes" yaml:"max_upload_bytes"`
	AllowedExtensions []string `toml:"allowed_extensions" yaml:"allowed_extensions"`
	Languages         []string `toml:"languages" yaml:"languages"`
	LockFile          string   `toml:"lock_file" yaml:"lock_file"`
}

// OpenAI contains connection settings for the speech-to-text and chat APIs.
type OpenAI struct {
	APIKey             string `toml:"api_key" yaml:"api_key"`
	BaseURL            string `toml:"base_url" yaml:"base_url"`
	TranscriptionModel string `toml:"transcription_model" yaml:"transcription_model"`
	TranslationModel   string `toml:"translation_model" yaml:"translation_model"`
	TimeoutSeconds     int    `toml:"timeout_seconds" yaml:"timeout_seconds"`
}

// Transcription selects the speech-to-text backend.
type Transcription struct {
	// Provider is "openai" (remote Whisper API) or "whisperx" (local, via uvx).
	Provider      string `toml:"provider" yaml:"provider"`
	WhisperXModel string `toml:"whisperx_model" yaml:"whisperx_model"`
	CUDAEnabled   bool   `toml:"cuda_enabled" yaml:"cuda_enabled"`
	VADMethod     string `toml:"vad_method" yaml:"vad_method"`
	HFToken       string `toml:"hf_token" yaml:"hf_token"`
}

// Translation contains per-segment translation pacing and sampling settings.
type Translation struct {
	DelayMS       int     `toml:"delay_ms" yaml:"delay_ms"`
	MaxTokens     int     `toml:"max_tokens" yaml:"max_tokens"`
	Temperature   float64 `toml:"temperature" yaml:"temperature"`
	RetryAttempts int     `toml:"retry_attempts" yaml:"retry_attempts"`
}

// Composer contains ffmpeg settings for burning and muxing subtitles.
type Composer struct {
	FFmpegBinary       string `toml:"ffmpeg" yaml:"ffmpeg"`
	FFprobeBinary      string `toml:"ffprobe" yaml:"ffprobe"`
	VideoCodec         string `toml:"video_codec" yaml:"video_codec"`
	Preset             string `toml:"preset" yaml:"preset"`
	CRF                int    `toml:"crf" yaml:"crf"`
	BurnTimeoutSeconds int    `toml:"burn_timeout_seconds" yaml:"burn_timeout_seconds"`
	SoftTimeoutSeconds int    `toml:"soft_timeout_seconds" yaml:"soft_timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format" yaml:"format"`
	Level  string `toml:"level" yaml:"level"`
	Debug  bool   `toml:"debug" yaml:"debug"`
}

// Config encapsulates all configuration values for dubsy.
//
// Configuration sections by subsystem:
//   - Paths: artifact and log directories
//   - Server: HTTP bind address and upload validation
//   - OpenAI: remote transcription and translation API
//   - Transcription: speech-to-text backend selection
//   - Translation: pacing and sampling for per-segment translation
//   - Composer: ffmpeg binaries, encoding parameters, and timeouts
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths" yaml:"paths"`
	Server        Server        `toml:"server" yaml:"server"`
	OpenAI        OpenAI        `toml:"openai" yaml:"openai"`
	Transcription Transcription `toml:"transcription" yaml:"transcription"`
	Translation   Translation   `toml:"translation" yaml:"translation"`
	Composer      Composer      `toml:"composer" yaml:"composer"`
	Logging       Logging       `toml:"logging" yaml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. A .env file in the
// working directory (or beside the config file) is loaded first so that env
// fallbacks see its values. The returned config has all path fields expanded.
func Load(path string) (*Config, string, bool, error) {
	cfg, resolvedPath, exists, err := Inspect(path)
	if err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return cfg, resolvedPath, exists, nil
}

// Inspect behaves like Load but skips validation, for diagnostics that must
// report on an incomplete configuration.
func Inspect(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	loadDotEnv(filepath.Dir(resolvedPath))

	if exists {
		if err := decodeFile(resolvedPath, &cfg); err != nil {
			return nil, "", false, err
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func decodeFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.NewDecoder(file).Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("parse config: %w", err)
		}
	default:
		if err := toml.NewDecoder(file).Decode(cfg); err != nil {
			return fmt.Errorf("parse config: %w", err)
		}
	}
	return nil
}

func loadDotEnv(configDir string) {
	candidates := []string{".env"}
	if configDir != "" {
		candidates = append(candidates, filepath.Join(configDir, ".env"))
	}
	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			// godotenv never overrides variables already present in the environment.
			_ = godotenv.Load(candidate)
		}
	}
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the artifact directory and, when configured, the
// log directory.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.TempDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// Address returns the host:port pair the HTTP server binds to.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// LockPath returns the absolute path of the single-instance lock file.
func (c *Config) LockPath() string {
	if filepath.IsAbs(c.Server.LockFile) {
		return c.Server.LockFile
	}
	return filepath.Join(c.Paths.TempDir, c.Server.LockFile)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	return WriteSample(path, sampleConfig)
}

// SampleTOML returns the embedded sample configuration.
func SampleTOML() string {
	return sampleConfig
}

// WriteSample writes the provided configuration text to path, creating parent
// directories as needed.
func WriteSample(path, content string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders cfg as TOML, e.g. for `dubsy config show`.
func Encode(cfg *Config) ([]byte, error) {
	return toml.Marshal(cfg)
}
