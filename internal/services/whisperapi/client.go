package whisperapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dubsy/internal/language"
	"dubsy/internal/transcript"
)

const (
	defaultBaseURL     = "https://api.openai.com/v1"
	defaultModel       = "whisper-1"
	defaultHTTPTimeout = 10 * time.Minute
	responseFormat     = "verbose_json"
)

// Config captures the settings needed to reach the transcription endpoint.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	TimeoutSeconds int
}

// Client uploads audio to an OpenAI-compatible /audio/transcriptions endpoint.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a transcription client.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	c := &Client{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			Model:          strings.TrimSpace(cfg.Model),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	if c.cfg.BaseURL == "" {
		c.cfg.BaseURL = defaultBaseURL
	}
	if c.cfg.Model == "" {
		c.cfg.Model = defaultModel
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.cfg.Model
}

type verboseResponse struct {
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
	Text     string  `json:"text"`
	Segments []struct {
		ID    int     `json:"id"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Transcribe uploads audioPath and returns the segment-level transcript. The
// language hint is sent as ISO 639-1 when it can be resolved.
func (c *Client) Transcribe(ctx context.Context, audioPath, lang string) (transcript.Transcript, error) {
	var result transcript.Transcript
	if c.cfg.APIKey == "" {
		return result, errors.New("whisper api: api key required")
	}
	file, err := os.Open(audioPath)
	if err != nil {
		return result, fmt.Errorf("whisper api: open audio: %w", err)
	}
	defer file.Close()

	body, contentType, err := c.encodeForm(file, filepath.Base(audioPath), lang)
	if err != nil {
		return result, err
	}

	endpoint, err := url.JoinPath(c.cfg.BaseURL, "audio", "transcriptions")
	if err != nil {
		return result, fmt.Errorf("whisper api: build url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return result, fmt.Errorf("whisper api: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return result, fmt.Errorf("whisper api: http error: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return result, fmt.Errorf("whisper api: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return result, fmt.Errorf("whisper api: http %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var decoded verboseResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return result, fmt.Errorf("whisper api: decode response: %w", err)
	}
	if decoded.Error != nil {
		return result, fmt.Errorf("whisper api: api error: %s", strings.TrimSpace(decoded.Error.Message))
	}

	result.Language = language.Canonical(decoded.Language)
	result.Duration = decoded.Duration
	result.Text = strings.TrimSpace(decoded.Text)
	result.Segments = make([]transcript.Segment, 0, len(decoded.Segments))
	for _, seg := range decoded.Segments {
		result.Segments = append(result.Segments, transcript.Segment{
			Start: seg.Start,
			End:   seg.End,
			Text:  strings.TrimSpace(seg.Text),
		})
	}
	return result, nil
}

func (c *Client) encodeForm(audio io.Reader, filename, lang string) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)
	fields := [][2]string{
		{"model", c.cfg.Model},
		{"response_format", responseFormat},
		{"timestamp_granularities[]", "segment"},
	}
	if code := language.ToISO2(lang); code != "" {
		fields = append(fields, [2]string{"language", code})
	}
	for _, field := range fields {
		if err := writer.WriteField(field[0], field[1]); err != nil {
			return nil, "", fmt.Errorf("whisper api: encode %s: %w", field[0], err)
		}
	}
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, "", fmt.Errorf("whisper api: encode file: %w", err)
	}
	if _, err := io.Copy(part, audio); err != nil {
		return nil, "", fmt.Errorf("whisper api: copy audio: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("whisper api: close form: %w", err)
	}
	return buf, writer.FormDataContentType(), nil
}
