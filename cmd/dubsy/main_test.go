package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"dubsy/internal/config"
	"dubsy/internal/pipeline"
	"dubsy/internal/testsupport"
)

func isolateEnv(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, key := range []string{"OPENAI_API_KEY", "DUBSY_TEMP_DIR", "TEMP_DIR", "HOST", "PORT", "DEBUG"} {
		t.Setenv(key, "")
	}
}

func writeTestConfig(t *testing.T, cfg *config.Config) string {
	t.Helper()
	encoded, err := config.Encode(cfg)
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	path := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	if err := os.WriteFile(path, encoded, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCLI(t *testing.T, args []string, configPath string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected %q in output:\n%s", needle, haystack)
	}
}

func TestConfigInitWritesSampleOnce(t *testing.T) {
	isolateEnv(t)
	target := filepath.Join(t.TempDir(), "config.toml")

	out, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected refusal to overwrite without --overwrite")
	}
}

type scriptedPrompter struct {
	inputs  map[string]string
	secret  string
	choice  string
	confirm bool
}

func (p *scriptedPrompter) Input(message, defaultValue string) (string, error) {
	for prefix, value := range p.inputs {
		if strings.HasPrefix(message, prefix) {
			return value, nil
		}
	}
	return defaultValue, nil
}

func (p *scriptedPrompter) Password(string) (string, error) { return p.secret, nil }

func (p *scriptedPrompter) Select(string, []string, string) (string, error) { return p.choice, nil }

func (p *scriptedPrompter) Confirm(string, bool) (bool, error) { return p.confirm, nil }

func TestConfigInitInteractive(t *testing.T) {
	isolateEnv(t)
	previous := defaultPrompter
	t.Cleanup(func() { defaultPrompter = previous })
	tempDir := t.TempDir()
	defaultPrompter = &scriptedPrompter{
		secret:  "sk-interactive-1234",
		choice:  config.ProviderWhisperX,
		confirm: true,
		inputs: map[string]string{
			"Server port":    "9100",
			"Temp directory": tempDir,
		},
	}
	target := filepath.Join(t.TempDir(), "dubsy.toml")

	out, err := runCLI(t, []string{"config", "init", "--interactive", "--path", target}, "")
	if err != nil {
		t.Fatalf("interactive init: %v", err)
	}
	requireContains(t, out, "Wrote configuration")

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	var written config.Config
	if err := toml.Unmarshal(data, &written); err != nil {
		t.Fatalf("decode written config: %v", err)
	}
	if written.Server.Port != 9100 || written.Paths.TempDir != tempDir {
		t.Fatalf("prompted values not written: %+v %+v", written.Server, written.Paths)
	}
	if written.Transcription.Provider != config.ProviderWhisperX || !written.Transcription.CUDAEnabled {
		t.Fatalf("unexpected transcription section %+v", written.Transcription)
	}
	info, err := os.Stat(target)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected 0600 for a file holding a key, got %v", info.Mode().Perm())
	}
}

func TestConfigShowRedactsKey(t *testing.T) {
	isolateEnv(t)
	cfg := testsupport.NewConfig(t, testsupport.WithAPIKey("sk-supersecretvalue"))
	path := writeTestConfig(t, cfg)

	out, err := runCLI(t, []string{"config", "show"}, path)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if strings.Contains(out, "supersecret") {
		t.Fatalf("key leaked in output:\n%s", out)
	}
	requireContains(t, out, "sk-...alue")
	requireContains(t, out, "source: "+path)
}

func TestConfigValidate(t *testing.T) {
	isolateEnv(t)
	cfg := testsupport.NewConfig(t)
	path := writeTestConfig(t, cfg)

	out, err := runCLI(t, []string{"config", "validate"}, path)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
}

func TestCheckReportsMissingKey(t *testing.T) {
	isolateEnv(t)
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries(), testsupport.WithAPIKey(""))
	path := writeTestConfig(t, cfg)

	out, err := runCLI(t, []string{"check"}, path)
	if !errors.Is(err, errChecksFailed) {
		t.Fatalf("expected checks to fail on missing key, got %v", err)
	}
	requireContains(t, out, "Temp directory")
	requireContains(t, out, "FFmpeg")
	requireContains(t, out, "OpenAI API key")
	requireContains(t, out, "FAIL")
}

func TestCheckPassesWithStubbedTools(t *testing.T) {
	isolateEnv(t)
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	path := writeTestConfig(t, cfg)

	out, err := runCLI(t, []string{"check"}, path)
	if err != nil {
		t.Fatalf("check: %v\n%s", err, out)
	}
	if strings.Contains(out, "FAIL") {
		t.Fatalf("unexpected failure in output:\n%s", out)
	}
}

type stubProcessor struct {
	request pipeline.Request
	result  pipeline.Result
}

func (s *stubProcessor) Process(_ context.Context, req pipeline.Request) (pipeline.Result, error) {
	s.request = req
	return s.result, nil
}

func TestProcessCommandPrintsResult(t *testing.T) {
	isolateEnv(t)
	cfg := testsupport.NewConfig(t)
	path := writeTestConfig(t, cfg)
	video := testsupport.WriteVideo(t, t.TempDir(), "clip.mov")

	stub := &stubProcessor{result: pipeline.Result{
		SubtitlePath:    filepath.Join(cfg.Paths.TempDir, "subtitles_x.srt"),
		VideoOutputPath: filepath.Join(cfg.Paths.TempDir, "clip_with_soft_subs_x.mkv"),
		SegmentsCount:   3,
		SubtitleType:    "soft",
		Status:          pipeline.StatusSuccess,
	}}
	previous := processorFactory
	t.Cleanup(func() { processorFactory = previous })
	processorFactory = func(context.Context, *config.Config, *slog.Logger, pipeline.Publisher) (processor, error) {
		return stub, nil
	}

	out, err := runCLI(t, []string{"process", video, "EN", "de", "--subtitle-type", "soft", "--job-id", "cli-1"}, path)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	requireContains(t, out, "subtitles_x.srt")
	requireContains(t, out, "clip_with_soft_subs_x.mkv")
	requireContains(t, out, "Segments:      3")
	if stub.request.SourceLang != "en" || stub.request.TargetLang != "de" || stub.request.SubtitleType != "soft" || stub.request.JobID != "cli-1" {
		t.Fatalf("unexpected request %+v", stub.request)
	}
	if _, err := os.Stat(video); err != nil {
		t.Fatalf("process must not delete the caller's video: %v", err)
	}
}

func TestProcessCommandRejectsBadInput(t *testing.T) {
	isolateEnv(t)
	cfg := testsupport.NewConfig(t)
	path := writeTestConfig(t, cfg)
	video := testsupport.WriteVideo(t, t.TempDir(), "clip.mp4")

	if _, err := runCLI(t, []string{"process", video, "en", "xx"}, path); err == nil {
		t.Fatal("expected invalid target language to fail")
	}
	if _, err := runCLI(t, []string{"process", filepath.Join(t.TempDir(), "missing.mp4"), "en", "fr"}, path); err == nil {
		t.Fatal("expected missing video to fail")
	}
}
