package compose

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"dubsy/internal/logging"
	"dubsy/internal/media/ffprobe"
	"dubsy/internal/services"
)

func okCheck(context.Context, string) (string, error) { return "ffmpeg version 7.1", nil }

func writeInputs(t *testing.T) (string, string, string) {
	t.Helper()
	dir := t.TempDir()
	video := filepath.Join(dir, "temp_abcd_My Movie.mp4")
	srt := filepath.Join(dir, "subtitles_1.srt")
	if err := os.WriteFile(video, []byte("video"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(srt, []byte("1\n00:00:00,000 --> 00:00:01,000\nhi\n\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir, video, srt
}

type recorder struct {
	name string
	args []string
}

func (r *recorder) writeOutput(_ context.Context, name string, args ...string) error {
	r.name = name
	r.args = args
	return os.WriteFile(args[len(args)-1], []byte("output"), 0o644)
}

func newComposer(t *testing.T, dir string, opts ...Option) *Composer {
	t.Helper()
	base := []Option{WithDependencyCheck(okCheck), WithTokenSource(func() string { return "deadbeef" })}
	c, err := New(context.Background(), Settings{OutputDir: dir, CRF: 23}, logging.NewNop(), append(base, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNewReportsMissingDependency(t *testing.T) {
	_, err := New(context.Background(), Settings{FFmpegBinary: "ffmpeg-none"}, logging.NewNop(),
		WithDependencyCheck(func(context.Context, string) (string, error) {
			return "", errors.New(`binary "ffmpeg-none" not found`)
		}))
	if !errors.Is(err, services.ErrDependencyMissing) {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("missing dependency should be a configuration failure, got %v", err)
	}
}

func TestBurnBuildsReencodeCommand(t *testing.T) {
	dir, video, srt := writeInputs(t)
	rec := &recorder{}
	c := newComposer(t, dir, WithCommandRunner(rec.writeOutput))

	out, err := c.Burn(context.Background(), video, srt)
	if err != nil {
		t.Fatalf("Burn: %v", err)
	}
	if want := filepath.Join(dir, "temp_abcd_My_Movie_with_subtitles_deadbeef.mp4"); out != want {
		t.Fatalf("output = %s, want %s", out, want)
	}
	if rec.name != "ffmpeg" {
		t.Fatalf("unexpected binary %s", rec.name)
	}
	joined := strings.Join(rec.args, " ")
	for _, fragment := range []string{"-vf subtitles='" + srt + "'", "-c:a copy", "-c:v libx264", "-preset medium", "-crf 23"} {
		if !strings.Contains(joined, fragment) {
			t.Fatalf("expected %q in %q", fragment, joined)
		}
	}
}

func TestMuxSoftAddsSubtitleTrack(t *testing.T) {
	dir, video, srt := writeInputs(t)
	rec := &recorder{}
	c := newComposer(t, dir, WithCommandRunner(rec.writeOutput))

	out, err := c.Compose(context.Background(), "SOFT", video, srt, "fr")
	if err != nil {
		t.Fatalf("Compose soft: %v", err)
	}
	if !strings.HasSuffix(out, "_with_soft_subs_deadbeef.mkv") {
		t.Fatalf("unexpected output %s", out)
	}
	joined := strings.Join(rec.args, " ")
	for _, fragment := range []string{"-i " + srt, "-c:v copy", "-c:s srt", "language=fra", "-map 1:0"} {
		if !strings.Contains(joined, fragment) {
			t.Fatalf("expected %q in %q", fragment, joined)
		}
	}
	if slices.Contains(rec.args, "-vf") {
		t.Fatal("soft mode must not burn subtitles")
	}
}

func TestComposeFailureIncludesDiagnostics(t *testing.T) {
	dir, video, srt := writeInputs(t)
	c := newComposer(t, dir, WithCommandRunner(func(context.Context, string, ...string) error {
		return errors.New("exit status 1: Unable to open subtitles")
	}))
	_, err := c.Burn(context.Background(), video, srt)
	if !errors.Is(err, services.ErrVideoProcessing) {
		t.Fatalf("expected video processing error, got %v", err)
	}
	if errors.Is(err, services.ErrTimeout) {
		t.Fatal("plain failure must not be a timeout")
	}
	if !strings.Contains(err.Error(), "Unable to open subtitles") {
		t.Fatalf("expected ffmpeg diagnostics, got %v", err)
	}
}

func TestComposeTimeout(t *testing.T) {
	dir, video, srt := writeInputs(t)
	c, err := New(context.Background(), Settings{OutputDir: dir, BurnTimeout: 20 * time.Millisecond}, logging.NewNop(),
		WithDependencyCheck(okCheck),
		WithCommandRunner(func(ctx context.Context, _ string, _ ...string) error {
			<-ctx.Done()
			return ctx.Err()
		}))
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.Burn(context.Background(), video, srt)
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout error, got %v", err)
	}
}

func TestComposeRejectsEmptyOutput(t *testing.T) {
	dir, video, srt := writeInputs(t)
	var output string
	c := newComposer(t, dir, WithCommandRunner(func(_ context.Context, _ string, args ...string) error {
		output = args[len(args)-1]
		return os.WriteFile(output, nil, 0o644)
	}))
	_, err := c.Burn(context.Background(), video, srt)
	if !errors.Is(err, services.ErrVideoProcessing) {
		t.Fatalf("expected video processing error, got %v", err)
	}
	if _, statErr := os.Stat(output); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatal("empty output should be removed")
	}
}

func TestComposeRejectsMissingOutput(t *testing.T) {
	dir, video, srt := writeInputs(t)
	c := newComposer(t, dir, WithCommandRunner(func(context.Context, string, ...string) error { return nil }))
	if _, err := c.Burn(context.Background(), video, srt); !errors.Is(err, services.ErrVideoProcessing) {
		t.Fatalf("expected video processing error, got %v", err)
	}
}

type fakeInspector struct{ result ffprobe.Result }

func (f fakeInspector) Inspect(context.Context, string) (ffprobe.Result, error) { return f.result, nil }

func TestVerifierRequiresSubtitleTrackForSoft(t *testing.T) {
	dir, video, srt := writeInputs(t)
	rec := &recorder{}
	onlyVideo := ffprobe.Result{Streams: []ffprobe.Stream{{CodecType: "video"}}}
	c := newComposer(t, dir, WithCommandRunner(rec.writeOutput), WithVerifier(fakeInspector{onlyVideo}))

	if _, err := c.Burn(context.Background(), video, srt); err != nil {
		t.Fatalf("burn with video stream should pass: %v", err)
	}
	if _, err := c.MuxSoft(context.Background(), video, srt, "fr"); !errors.Is(err, services.ErrVideoProcessing) {
		t.Fatalf("expected verification failure, got %v", err)
	}
}

func TestNormalizeMode(t *testing.T) {
	cases := map[string]string{"soft": ModeSoft, " Soft ": ModeSoft, "hard": ModeHard, "": ModeHard, "weird": ModeHard}
	for in, want := range cases {
		if got := NormalizeMode(in); got != want {
			t.Fatalf("NormalizeMode(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestQuoteFilterPath(t *testing.T) {
	if got := quoteFilterPath("/tmp/it's.srt"); got != `'/tmp/it'\''s.srt'` {
		t.Fatalf("unexpected quoting %s", got)
	}
}
