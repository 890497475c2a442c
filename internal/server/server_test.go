package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"dubsy/internal/config"
	"dubsy/internal/deps"
	"dubsy/internal/logging"
	"dubsy/internal/pipeline"
	"dubsy/internal/progress"
	"dubsy/internal/server"
	"dubsy/internal/services"
)

type fakeProcessor struct {
	calls    int
	request  pipeline.Request
	sawVideo bool
	result   pipeline.Result
	err      error
}

func (f *fakeProcessor) Process(_ context.Context, req pipeline.Request) (pipeline.Result, error) {
	f.calls++
	f.request = req
	if _, err := os.Stat(req.VideoPath); err == nil {
		f.sawVideo = true
	}
	if f.err != nil {
		return pipeline.Result{}, f.err
	}
	return f.result, nil
}

func newTestServer(t *testing.T, processor server.Processor, broadcaster *progress.Broadcaster) (*config.Config, http.Handler) {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.TempDir = t.TempDir()
	srv := server.New(&cfg, processor, broadcaster, logging.NewNop(),
		server.WithTokenSource(func() string { return "abc123" }),
		server.WithDependencyCheck(func() []deps.Status {
			return []deps.Status{
				{Name: "FFmpeg", Available: true},
				{Name: "FFprobe", Available: false},
			}
		}),
	)
	return &cfg, srv.Handler()
}

func uploadRequest(t *testing.T, fields map[string]string, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if filename != "" {
		part, err := writer.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write(content); err != nil {
			t.Fatalf("write file: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/upload-and-translate", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return payload
}

func TestUploadSuccess(t *testing.T) {
	processor := &fakeProcessor{result: pipeline.Result{
		SubtitlePath:    "/tmp/dubsy/subtitles_1.srt",
		VideoOutputPath: "/tmp/dubsy/clip_with_subtitles_deadbeef.mp4",
		SegmentsCount:   4,
		SubtitleType:    "hard",
		Status:          pipeline.StatusSuccess,
	}}
	cfg, handler := newTestServer(t, processor, nil)

	req := uploadRequest(t, map[string]string{
		"source_lang": "EN",
		"target_lang": "fr",
		"job_id":      "job-1",
	}, "my clip.mp4", []byte("video"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	if processor.calls != 1 || !processor.sawVideo {
		t.Fatalf("expected processor to see stored video, calls=%d saw=%v", processor.calls, processor.sawVideo)
	}
	got := processor.request
	if got.SourceLang != "en" || got.TargetLang != "fr" || got.SubtitleType != "hard" || got.JobID != "job-1" {
		t.Fatalf("unexpected request %+v", got)
	}
	wantPath := filepath.Join(cfg.Paths.TempDir, "temp_abc123_my_clip.mp4")
	if got.VideoPath != wantPath {
		t.Fatalf("video path = %q, want %q", got.VideoPath, wantPath)
	}
	if _, err := os.Stat(wantPath); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected uploaded video removed, stat err=%v", err)
	}

	payload := decodeBody(t, rec)
	if payload["srt_file_path"] != "subtitles_1.srt" {
		t.Fatalf("srt_file_path = %v", payload["srt_file_path"])
	}
	if payload["video_with_subtitles"] != "clip_with_subtitles_deadbeef.mp4" {
		t.Fatalf("video_with_subtitles = %v", payload["video_with_subtitles"])
	}
	if payload["segments_count"].(float64) != 4 || payload["status"] != "success" {
		t.Fatalf("unexpected payload %v", payload)
	}
	if !strings.Contains(payload["message"].(string), "completed") {
		t.Fatalf("unexpected message %v", payload["message"])
	}
}

func TestUploadSoftSubtitleType(t *testing.T) {
	processor := &fakeProcessor{result: pipeline.Result{Status: pipeline.StatusSuccess, SubtitleType: "soft"}}
	_, handler := newTestServer(t, processor, nil)

	req := uploadRequest(t, map[string]string{
		"source_lang":   "en",
		"target_lang":   "es",
		"subtitle_type": "SOFT",
	}, "clip.mkv", []byte("video"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	if processor.request.SubtitleType != "soft" {
		t.Fatalf("subtitle type = %q", processor.request.SubtitleType)
	}
}

func TestUploadValidationFailures(t *testing.T) {
	cases := []struct {
		name     string
		fields   map[string]string
		filename string
	}{
		{"bad extension", map[string]string{"source_lang": "en", "target_lang": "fr"}, "notes.txt"},
		{"bad source", map[string]string{"source_lang": "xx", "target_lang": "fr"}, "clip.mp4"},
		{"bad target", map[string]string{"source_lang": "en", "target_lang": ""}, "clip.mp4"},
		{"missing file", map[string]string{"source_lang": "en", "target_lang": "fr"}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			processor := &fakeProcessor{}
			_, handler := newTestServer(t, processor, nil)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, uploadRequest(t, tc.fields, tc.filename, []byte("x")))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
			}
			if processor.calls != 0 {
				t.Fatal("processor should not run on invalid input")
			}
			payload := decodeBody(t, rec)
			if payload["error"] == "" || payload["detail"] == nil {
				t.Fatalf("expected error and detail, got %v", payload)
			}
		})
	}
}

func TestUploadTooLarge(t *testing.T) {
	processor := &fakeProcessor{}
	cfg := config.Default()
	cfg.Paths.TempDir = t.TempDir()
	cfg.Server.MaxUploadBytes = 16
	handler := server.New(&cfg, processor, nil, logging.NewNop()).Handler()

	req := uploadRequest(t, map[string]string{"source_lang": "en", "target_lang": "fr"}, "clip.mp4", bytes.Repeat([]byte("v"), 64))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	if processor.calls != 0 {
		t.Fatal("processor should not run for oversize upload")
	}
}

func TestUploadProcessingFailurePublishesFailed(t *testing.T) {
	broadcaster := progress.NewBroadcaster(logging.NewNop())
	listener := progress.NewChannelListener(4)
	broadcaster.Subscribe("job-9", listener)

	processor := &fakeProcessor{err: services.Wrap(services.ErrTranscription, "transcribe", "api", "backend down", nil)}
	cfg, handler := newTestServer(t, processor, broadcaster)

	req := uploadRequest(t, map[string]string{"source_lang": "en", "target_lang": "fr", "job_id": "job-9"}, "clip.mp4", []byte("video"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	payload := decodeBody(t, rec)
	if !strings.Contains(payload["detail"].(string), "backend down") {
		t.Fatalf("expected detail to carry cause, got %v", payload)
	}
	select {
	case event := <-listener.Events():
		if event.Type != progress.EventFailed {
			t.Fatalf("event type = %q", event.Type)
		}
	default:
		t.Fatal("expected failed event")
	}
	entries, err := os.ReadDir(cfg.Paths.TempDir)
	if err != nil {
		t.Fatalf("read temp dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected uploaded video removed after failure, found %d entries", len(entries))
	}
}

func TestDownloadServesArtifacts(t *testing.T) {
	cfg, handler := newTestServer(t, &fakeProcessor{}, nil)
	if err := os.WriteFile(filepath.Join(cfg.Paths.TempDir, "subtitles_1.srt"), []byte("1\n"), 0o644); err != nil {
		t.Fatalf("write srt: %v", err)
	}
	if err := os.WriteFile(filepath.Join(cfg.Paths.TempDir, "clip_with_soft_subs_1.mkv"), []byte("mkv"), 0o644); err != nil {
		t.Fatalf("write video: %v", err)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/download-srt/subtitles_1.srt", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "1\n" {
		t.Fatalf("srt download status=%d body=%q", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), "subtitles_1.srt") {
		t.Fatalf("missing attachment header: %q", rec.Header().Get("Content-Disposition"))
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/download-video/clip_with_soft_subs_1.mkv", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("video download status=%d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "video/x-matroska" {
		t.Fatalf("content type = %q", got)
	}
}

func TestDownloadMissingAndUnsafe(t *testing.T) {
	cfg, handler := newTestServer(t, &fakeProcessor{}, nil)
	outside := filepath.Join(filepath.Dir(cfg.Paths.TempDir), "secret.srt")
	_ = os.WriteFile(outside, []byte("secret"), 0o644)
	t.Cleanup(func() { _ = os.Remove(outside) })

	for _, target := range []string{
		"/download-video/missing.mp4",
		"/download-srt/..",
		"/download-srt/..%2Fsecret.srt",
	} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		if rec.Code == http.StatusOK {
			t.Fatalf("%s: expected failure, got 200 body=%q", target, rec.Body.String())
		}
		if rec.Body.String() == "secret" {
			t.Fatalf("%s: leaked file contents", target)
		}
	}
}

func TestHealth(t *testing.T) {
	_, handler := newTestServer(t, &fakeProcessor{}, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var payload server.HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Status != "healthy" || payload.Service != server.ServiceName || payload.Version != "1.0.0" {
		t.Fatalf("unexpected identity %+v", payload)
	}
	if len(payload.Features) != 4 {
		t.Fatalf("features = %v", payload.Features)
	}
	if !payload.Dependencies["ffmpeg"] || payload.Dependencies["ffprobe"] {
		t.Fatalf("dependencies = %v", payload.Dependencies)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatal("expected permissive CORS header")
	}
}

func TestProgressWebSocketReceivesEvents(t *testing.T) {
	broadcaster := progress.NewBroadcaster(logging.NewNop())
	_, handler := newTestServer(t, &fakeProcessor{}, broadcaster)
	ts := httptest.NewServer(handler)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/job-ws"
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	deadline := time.Now().Add(2 * time.Second)
	for broadcaster.Count("job-ws") == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	broadcaster.Publish(ctx, "job-ws", progress.EventStarted, map[string]string{"filename": "clip.mp4"})

	var event struct {
		Type string            `json:"type"`
		Data map[string]string `json:"data"`
	}
	if err := wsjson.Read(ctx, conn, &event); err != nil {
		t.Fatalf("read: %v", err)
	}
	if event.Type != progress.EventStarted || event.Data["filename"] != "clip.mp4" {
		t.Fatalf("unexpected event %+v", event)
	}

	conn.Close(websocket.StatusNormalClosure, "")
	deadline = time.Now().Add(2 * time.Second)
	for broadcaster.Count("job-ws") != 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber not removed after disconnect")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
