package audio

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dubsy/internal/media/ffprobe"
	"dubsy/internal/services"
)

type stubInspector struct {
	result ffprobe.Result
	err    error
}

func (s stubInspector) Inspect(context.Context, string) (ffprobe.Result, error) {
	return s.result, s.err
}

func withAudio() stubInspector {
	return stubInspector{result: ffprobe.Result{Streams: []ffprobe.Stream{{CodecType: "video"}, {CodecType: "audio"}}}}
}

func writeVideo(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, []byte("video"), 0o644); err != nil {
		t.Fatalf("write video: %v", err)
	}
	return path
}

func TestExtractWritesTokenNamedWAV(t *testing.T) {
	tempDir := t.TempDir()
	video := writeVideo(t)
	var gotArgs []string
	runner := func(_ context.Context, name string, args ...string) error {
		if name != "ffmpeg" {
			t.Fatalf("unexpected binary %q", name)
		}
		gotArgs = args
		return os.WriteFile(args[len(args)-1], []byte("RIFF"), 0o644)
	}
	extractor := NewExtractor("", tempDir, withAudio(), nil,
		WithCommandRunner(runner),
		WithTokenSource(func() string { return "abc123" }),
	)

	path, err := extractor.Extract(context.Background(), video)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if path != filepath.Join(tempDir, "audio_abc123.wav") {
		t.Fatalf("unexpected path %q", path)
	}
	joined := strings.Join(gotArgs, " ")
	for _, want := range []string{"-i " + video, "-map 0:a:0", "-ac 1", "-ar 16000", "-vn"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("expected %q in args %q", want, joined)
		}
	}
}

func TestExtractUsesUniqueNamesByDefault(t *testing.T) {
	tempDir := t.TempDir()
	video := writeVideo(t)
	runner := func(_ context.Context, _ string, args ...string) error {
		return os.WriteFile(args[len(args)-1], []byte("RIFF"), 0o644)
	}
	extractor := NewExtractor("ffmpeg", tempDir, withAudio(), nil, WithCommandRunner(runner))

	first, err := extractor.Extract(context.Background(), video)
	if err != nil {
		t.Fatalf("first Extract: %v", err)
	}
	second, err := extractor.Extract(context.Background(), video)
	if err != nil {
		t.Fatalf("second Extract: %v", err)
	}
	if first == second {
		t.Fatalf("expected distinct temp names, got %q twice", first)
	}
}

func TestExtractFailures(t *testing.T) {
	okRunner := func(_ context.Context, _ string, args ...string) error {
		return os.WriteFile(args[len(args)-1], []byte("RIFF"), 0o644)
	}
	cases := []struct {
		name   string
		video  func(t *testing.T) string
		probe  Inspector
		runner commandRunner
	}{
		{"missing video", func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.mp4") }, withAudio(), okRunner},
		{"unreadable container", writeVideo, stubInspector{err: errors.New("invalid data")}, okRunner},
		{"no audio stream", writeVideo, stubInspector{result: ffprobe.Result{Streams: []ffprobe.Stream{{CodecType: "video"}}}}, okRunner},
		{"ffmpeg fails", writeVideo, withAudio(), func(context.Context, string, ...string) error { return errors.New("exit status 1") }},
		{"empty output", writeVideo, withAudio(), func(_ context.Context, _ string, args ...string) error {
			return os.WriteFile(args[len(args)-1], nil, 0o644)
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tempDir := t.TempDir()
			extractor := NewExtractor("ffmpeg", tempDir, tc.probe, nil, WithCommandRunner(tc.runner))
			_, err := extractor.Extract(context.Background(), tc.video(t))
			if !errors.Is(err, services.ErrAudioExtraction) {
				t.Fatalf("expected audio extraction error, got %v", err)
			}
			leftovers, _ := filepath.Glob(filepath.Join(tempDir, "audio_*"))
			if len(leftovers) != 0 {
				t.Fatalf("expected no partial artifacts, found %v", leftovers)
			}
		})
	}
}

func TestCleanupIgnoresMissing(t *testing.T) {
	extractor := NewExtractor("ffmpeg", t.TempDir(), nil, nil)
	if err := extractor.Cleanup(filepath.Join(t.TempDir(), "gone.wav")); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if err := extractor.Cleanup(""); err != nil {
		t.Fatalf("Cleanup empty: %v", err)
	}
}
