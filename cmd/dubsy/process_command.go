package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"dubsy/internal/compose"
	"dubsy/internal/config"
	"dubsy/internal/logging"
	"dubsy/internal/pipeline"
	"dubsy/internal/progress"
	"dubsy/internal/services"
	"dubsy/internal/validation"
)

// processorFactory builds the pipeline for the process command. Tests swap it.
var processorFactory = func(ctx context.Context, cfg *config.Config, logger *slog.Logger, publisher pipeline.Publisher) (processor, error) {
	orchestrator, err := pipeline.NewFromConfig(ctx, cfg, logger, publisher)
	if err != nil {
		return nil, err
	}
	return orchestrator, nil
}

type processor interface {
	Process(ctx context.Context, req pipeline.Request) (pipeline.Result, error)
}

type processOptions struct {
	subtitleType string
	jobID        string
	srtOnly      bool
	jsonOutput   bool
}

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var opts processOptions

	cmd := &cobra.Command{
		Use:   "process <video> <source-lang> <target-lang>",
		Short: "Translate a local video's subtitles without the server",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return runProcess(cmd.Context(), cmd.OutOrStdout(), cfg, args[0], args[1], args[2], opts)
		},
	}
	cmd.Flags().StringVar(&opts.subtitleType, "subtitle-type", compose.ModeHard, "hard (burned in) or soft (separate track)")
	cmd.Flags().StringVar(&opts.jobID, "job-id", "", "Job id used in logs and progress events (generated when empty)")
	cmd.Flags().BoolVar(&opts.srtOnly, "srt-only", false, "Stop after writing the subtitle file")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Print the full result as JSON")
	return cmd
}

func runProcess(ctx context.Context, out io.Writer, cfg *config.Config, videoPath, source, target string, opts processOptions) error {
	if err := validation.VideoFileName(videoPath, cfg.Server.AllowedExtensions); err != nil {
		return err
	}
	info, err := os.Stat(videoPath)
	if err != nil {
		return services.Wrap(services.ErrValidation, "process", "input", "video not readable", err)
	}
	if info.IsDir() {
		return services.Wrap(services.ErrValidation, "process", "input", videoPath+" is a directory", nil)
	}
	sourceLang, err := validation.LanguageCode("source", source, cfg.Server.Languages)
	if err != nil {
		return err
	}
	targetLang, err := validation.LanguageCode("target", target, cfg.Server.Languages)
	if err != nil {
		return err
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	jobID := strings.TrimSpace(opts.jobID)
	if jobID == "" {
		jobID = uuid.NewString()
	}
	broadcaster := progress.NewBroadcaster(logger)
	broadcaster.Subscribe(jobID, progress.NewLogListener(logger))

	proc, err := processorFactory(ctx, cfg, logger, broadcaster)
	if err != nil {
		return err
	}

	abs, err := filepath.Abs(videoPath)
	if err != nil {
		abs = videoPath
	}
	result, err := proc.Process(ctx, pipeline.Request{
		JobID:           jobID,
		VideoPath:       abs,
		Filename:        filepath.Base(abs),
		SourceLang:      sourceLang,
		TargetLang:      targetLang,
		SubtitleType:    compose.NormalizeMode(opts.subtitleType),
		SkipComposition: opts.srtOnly,
	})
	if err != nil {
		broadcaster.Publish(ctx, jobID, progress.EventFailed, map[string]string{"error": err.Error()})
		return err
	}

	if opts.jsonOutput {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	}
	fmt.Fprintf(out, "Subtitle file: %s\n", result.SubtitlePath)
	if result.VideoOutputPath != "" {
		fmt.Fprintf(out, "Video output:  %s (%s)\n", result.VideoOutputPath, result.SubtitleType)
	}
	fmt.Fprintf(out, "Segments:      %d\n", result.SegmentsCount)
	return nil
}
