package whisperapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audio_1.wav")
	if err := os.WriteFile(path, []byte("RIFFdata"), 0o644); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	return path
}

func TestTranscribeUploadsMultipart(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/transcriptions" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer key" {
			t.Fatalf("unexpected auth %q", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if r.FormValue("model") != "whisper-1" || r.FormValue("response_format") != "verbose_json" {
			t.Fatalf("unexpected form %v", r.MultipartForm.Value)
		}
		if r.FormValue("language") != "en" {
			t.Fatalf("expected language hint en, got %q", r.FormValue("language"))
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if header.Filename != "audio_1.wav" || string(data) != "RIFFdata" {
			t.Fatalf("unexpected upload %s %q", header.Filename, data)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"language": "english",
			"duration": 3.5,
			"text":     "Hello world. Bye.",
			"segments": []map[string]any{
				{"id": 0, "start": 0.0, "end": 1.5, "text": " Hello world."},
				{"id": 1, "start": 1.5, "end": 3.5, "text": " Bye."},
			},
		})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "key", BaseURL: server.URL + "/v1"})
	result, err := client.Transcribe(context.Background(), writeAudio(t), "EN")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if len(result.Segments) != 2 || result.Segments[0].Text != "Hello world." || result.Segments[1].End != 3.5 {
		t.Fatalf("unexpected segments %+v", result.Segments)
	}
	if result.Language != "en" || result.Duration != 3.5 {
		t.Fatalf("unexpected metadata %+v", result)
	}
}

func TestTranscribeSurfacesHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"quota exceeded"}}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "key", BaseURL: server.URL})
	_, err := client.Transcribe(context.Background(), writeAudio(t), "fr")
	if err == nil || !strings.Contains(err.Error(), "429") || !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("expected http diagnostics, got %v", err)
	}
}

func TestTranscribeMissingFile(t *testing.T) {
	client := NewClient(Config{APIKey: "key", BaseURL: "http://127.0.0.1:1"})
	if _, err := client.Transcribe(context.Background(), filepath.Join(t.TempDir(), "missing.wav"), "en"); err == nil {
		t.Fatal("expected error for missing audio")
	}
}

func TestTranscribeRequiresAPIKey(t *testing.T) {
	client := NewClient(Config{})
	if _, err := client.Transcribe(context.Background(), writeAudio(t), "en"); err == nil {
		t.Fatal("expected api key error")
	}
	if client.Model() != "whisper-1" {
		t.Fatalf("unexpected default model %q", client.Model())
	}
}
