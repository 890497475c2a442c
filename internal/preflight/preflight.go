package preflight

import (
	"context"

	"dubsy/internal/config"
	"dubsy/internal/services/llm"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Options selects the optional checks.
type Options struct {
	// PingLLM contacts the chat API with a one-token request.
	PingLLM    bool
	LLMOptions []llm.Option
}

// RunAll executes the checks that apply to cfg.
func RunAll(ctx context.Context, cfg *config.Config, opts Options) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{CheckDirectoryAccess("Temp directory", cfg.Paths.TempDir)}
	results = append(results, DependencyResults(CheckSystemDeps(cfg))...)
	results = append(results, CheckAPIKey(cfg))

	if opts.PingLLM {
		results = append(results, CheckLLM(ctx, "Translation API", llm.Config{
			APIKey:         cfg.OpenAI.APIKey,
			BaseURL:        cfg.OpenAI.BaseURL,
			Model:          cfg.OpenAI.TranslationModel,
			TimeoutSeconds: cfg.OpenAI.TimeoutSeconds,
		}, opts.LLMOptions...))
	}
	return results
}

// AllPassed reports whether every result passed.
func AllPassed(results []Result) bool {
	for _, result := range results {
		if !result.Passed {
			return false
		}
	}
	return true
}
