//go:build integration

package steps

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cucumber/godog"

	"dubsy/internal/compose"
	"dubsy/internal/config"
	"dubsy/internal/logging"
	"dubsy/internal/media/audio"
	"dubsy/internal/media/ffprobe"
	"dubsy/internal/pipeline"
	"dubsy/internal/progress"
	"dubsy/internal/server"
	"dubsy/internal/services/llm"
	"dubsy/internal/services/whisperapi"
	"dubsy/internal/subtitles"
	"dubsy/internal/transcription"
	"dubsy/internal/translation"
)

// fakeOpenAI serves the two OpenAI endpoints the pipeline calls.
type fakeOpenAI struct {
	mu         sync.Mutex
	heard      []string
	down       bool
	prefix     string
	rejections map[string]bool
}

func (f *fakeOpenAI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch {
	case strings.HasSuffix(r.URL.Path, "/audio/transcriptions"):
		if f.down {
			http.Error(w, `{"error":{"message":"overloaded"}}`, http.StatusServiceUnavailable)
			return
		}
		type segment struct {
			Start float64 `json:"start"`
			End   float64 `json:"end"`
			Text  string  `json:"text"`
		}
		segments := make([]segment, 0, len(f.heard))
		for i, text := range f.heard {
			segments = append(segments, segment{Start: float64(i) * 2, End: float64(i)*2 + 1.5, Text: " " + text})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"language": "english",
			"duration": float64(len(f.heard)) * 2,
			"text":     strings.Join(f.heard, " "),
			"segments": segments,
		})
	case strings.HasSuffix(r.URL.Path, "/chat/completions"):
		var payload struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&payload)
		text := ""
		if n := len(payload.Messages); n > 0 {
			text = payload.Messages[n-1].Content
		}
		if f.rejections[text] {
			http.Error(w, `{"error":{"message":"content rejected"}}`, http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": f.prefix + " " + text}}},
		})
	default:
		http.NotFound(w, r)
	}
}

type pipelineContext struct {
	cfg         *config.Config
	api         *fakeOpenAI
	apiServer   *httptest.Server
	broadcaster *progress.Broadcaster
	listeners   map[string]*progress.ChannelListener
	ffmpegCalls [][]string
	uploadPath  string
	status      int
	body        map[string]any
}

func (p *pipelineContext) fakeFFmpeg(_ context.Context, _ string, args ...string) error {
	p.ffmpegCalls = append(p.ffmpegCalls, args)
	return os.WriteFile(args[len(args)-1], []byte("media"), 0o644)
}

func fakeProbe(_ context.Context, _ string, _ ...string) ([]byte, error) {
	return []byte(`{"streams":[{"index":0,"codec_type":"video"},{"index":1,"codec_type":"audio"},{"index":2,"codec_type":"subtitle"}],"format":{"duration":"4.0"}}`), nil
}

func (p *pipelineContext) handler(ctx context.Context) (http.Handler, error) {
	logger := logging.NewNop()
	prober := ffprobe.New("ffprobe", ffprobe.WithRunner(fakeProbe))
	composer, err := compose.New(ctx, compose.SettingsFromConfig(p.cfg), logger,
		compose.WithCommandRunner(p.fakeFFmpeg),
		compose.WithDependencyCheck(func(context.Context, string) (string, error) { return "ffmpeg version test", nil }),
		compose.WithVerifier(prober),
	)
	if err != nil {
		return nil, err
	}
	whisper := whisperapi.NewClient(whisperapi.Config{APIKey: "test", BaseURL: p.apiServer.URL})
	chat := llm.NewClient(llm.Config{APIKey: "test", BaseURL: p.apiServer.URL, Model: "gpt-3.5-turbo"}, llm.WithRetryMaxAttempts(1))

	orchestrator := pipeline.New(pipeline.Dependencies{
		Extractor:   audio.NewExtractor("ffmpeg", p.cfg.Paths.TempDir, prober, logger, audio.WithCommandRunner(p.fakeFFmpeg)),
		Transcriber: transcription.New(whisper, "openai:test", logger),
		Translator:  translation.New(chat, translation.Settings{}, logger),
		Writer:      subtitles.NewWriter(p.cfg.Paths.TempDir, logger),
		Composer:    composer,
		Publisher:   p.broadcaster,
	}, logger)

	srv := server.New(p.cfg, orchestrator, p.broadcaster, logger,
		server.WithTokenSource(func() string { return "feature" }),
	)
	return srv.Handler(), nil
}

var shared *pipelineContext

func InitializePipelineScenario(ctx *godog.ScenarioContext) {
	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		base, err := os.MkdirTemp("", "dubsy-features-")
		if err != nil {
			return c, err
		}
		cfgVal := config.Default()
		cfgVal.Paths.TempDir = filepath.Join(base, "tmp")
		cfgVal.OpenAI.APIKey = "test"
		if err := cfgVal.EnsureDirectories(); err != nil {
			return c, err
		}
		api := &fakeOpenAI{rejections: map[string]bool{}}
		shared = &pipelineContext{
			cfg:         &cfgVal,
			api:         api,
			apiServer:   httptest.NewServer(api),
			broadcaster: progress.NewBroadcaster(logging.NewNop()),
			listeners:   map[string]*progress.ChannelListener{},
		}
		return c, nil
	})
	ctx.After(func(c context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if shared != nil {
			shared.apiServer.Close()
			_ = os.RemoveAll(filepath.Dir(shared.cfg.Paths.TempDir))
		}
		return c, nil
	})

	ctx.Step(`^a transcription service that hears "([^"]*)" and "([^"]*)"$`, aTranscriptionServiceThatHears)
	ctx.Step(`^the transcription service is down$`, theTranscriptionServiceIsDown)
	ctx.Step(`^a translation service that prefixes "([^"]*)"$`, aTranslationServiceThatPrefixes)
	ctx.Step(`^the translation service rejects "([^"]*)"$`, theTranslationServiceRejects)
	ctx.Step(`^I upload "([^"]*)" from "([^"]*)" to "([^"]*)" as "([^"]*)" subtitles for job "([^"]*)"$`, iUpload)
	ctx.Step(`^the response status is (\d+)$`, theResponseStatusIs)
	ctx.Step(`^the response reports (\d+) segments$`, theResponseReportsSegments)
	ctx.Step(`^the subtitle file contains "([^"]*)"$`, theSubtitleFileContains)
	ctx.Step(`^the subtitled video ends with "([^"]*)"$`, theSubtitledVideoEndsWith)
	ctx.Step(`^ffmpeg was asked to tag the subtitle track as "([^"]*)"$`, ffmpegTaggedSubtitleTrack)
	ctx.Step(`^job "([^"]*)" received the events "([^"]*)"$`, jobReceivedEvents)
	ctx.Step(`^job "([^"]*)" received no events$`, jobReceivedNoEvents)
	ctx.Step(`^the uploaded video was removed$`, theUploadedVideoWasRemoved)
}

func aTranscriptionServiceThatHears(first, second string) error {
	shared.api.heard = []string{first, second}
	return nil
}

func theTranscriptionServiceIsDown() error {
	shared.api.down = true
	return nil
}

func aTranslationServiceThatPrefixes(prefix string) error {
	shared.api.prefix = prefix
	return nil
}

func theTranslationServiceRejects(text string) error {
	shared.api.rejections[text] = true
	return nil
}

func iUpload(ctx context.Context, filename, source, target, subtitleType, jobID string) error {
	listener := progress.NewChannelListener(8)
	shared.broadcaster.Subscribe(jobID, listener)
	shared.listeners[jobID] = listener

	handler, err := shared.handler(ctx)
	if err != nil {
		return err
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for key, value := range map[string]string{
		"source_lang":   source,
		"target_lang":   target,
		"subtitle_type": subtitleType,
		"job_id":        jobID,
	} {
		if err := writer.WriteField(key, value); err != nil {
			return err
		}
	}
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return err
	}
	if _, err := part.Write([]byte("fake video bytes")); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}

	req := httptest.NewRequest(http.MethodPost, "/upload-and-translate", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	shared.uploadPath = filepath.Join(shared.cfg.Paths.TempDir, "temp_feature_"+filename)
	shared.status = rec.Code
	shared.body = map[string]any{}
	if err := json.Unmarshal(rec.Body.Bytes(), &shared.body); err != nil {
		return fmt.Errorf("decode response %q: %w", rec.Body.String(), err)
	}
	return nil
}

func theResponseStatusIs(status int) error {
	if shared.status != status {
		return fmt.Errorf("expected status %d, got %d (%v)", status, shared.status, shared.body)
	}
	return nil
}

func theResponseReportsSegments(count int) error {
	got, _ := shared.body["segments_count"].(float64)
	if int(got) != count {
		return fmt.Errorf("expected %d segments, got %v", count, shared.body["segments_count"])
	}
	return nil
}

func theSubtitleFileContains(text string) error {
	name, _ := shared.body["srt_file_path"].(string)
	if name == "" {
		return fmt.Errorf("response has no srt_file_path: %v", shared.body)
	}
	content, err := subtitles.ReadText(filepath.Join(shared.cfg.Paths.TempDir, name))
	if err != nil {
		return err
	}
	if !strings.Contains(content, text) {
		return fmt.Errorf("subtitle file lacks %q:\n%s", text, content)
	}
	return nil
}

func theSubtitledVideoEndsWith(suffix string) error {
	name, _ := shared.body["video_with_subtitles"].(string)
	if !strings.HasSuffix(name, suffix) {
		return fmt.Errorf("expected video ending with %q, got %q", suffix, name)
	}
	if _, err := os.Stat(filepath.Join(shared.cfg.Paths.TempDir, name)); err != nil {
		return fmt.Errorf("subtitled video not downloadable: %w", err)
	}
	return nil
}

func ffmpegTaggedSubtitleTrack(code string) error {
	want := "language=" + code
	for _, call := range shared.ffmpegCalls {
		for _, arg := range call {
			if arg == want {
				return nil
			}
		}
	}
	return fmt.Errorf("no ffmpeg call carried %q: %v", want, shared.ffmpegCalls)
}

func drain(jobID string) []string {
	listener := shared.listeners[jobID]
	var types []string
	for {
		select {
		case event := <-listener.Events():
			types = append(types, event.Type)
		default:
			return types
		}
	}
}

func jobReceivedEvents(jobID, expected string) error {
	got := strings.Join(drain(jobID), ",")
	if got != expected {
		return fmt.Errorf("expected events %q, got %q", expected, got)
	}
	return nil
}

func jobReceivedNoEvents(jobID string) error {
	if got := drain(jobID); len(got) != 0 {
		return fmt.Errorf("expected no events, got %v", got)
	}
	return nil
}

func theUploadedVideoWasRemoved() error {
	if _, err := os.Stat(shared.uploadPath); !os.IsNotExist(err) {
		return fmt.Errorf("expected %s to be removed (stat err=%v)", shared.uploadPath, err)
	}
	return nil
}
