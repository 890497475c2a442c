package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dubsy/internal/compose"
	"dubsy/internal/logging"
	"dubsy/internal/progress"
	"dubsy/internal/services"
	"dubsy/internal/transcript"
)

// Stage names used for logging context and error wrapping.
const (
	StageExtraction    = "audio_extraction"
	StageTranscription = "transcription"
	StageTranslation   = "translation"
	StageSubtitles     = "subtitle_generation"
	StageComposition   = "video_composition"
)

// StatusSuccess is the only status a returned Result carries.
const StatusSuccess = "success"

// AudioExtractor produces and disposes of the intermediate audio file.
type AudioExtractor interface {
	Extract(ctx context.Context, videoPath string) (string, error)
	Cleanup(path string) error
}

// Transcriber converts audio into timed segments.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, language string) (transcript.Transcript, error)
}

// Translator translates segments, preserving length, order and timing.
type Translator interface {
	Translate(ctx context.Context, segments []transcript.Segment, targetLang string) ([]transcript.Segment, error)
}

// SubtitleWriter serializes segments into a subtitle file.
type SubtitleWriter interface {
	Write(ctx context.Context, segments []transcript.Segment) (string, error)
}

// VideoComposer merges a subtitle file into the source video.
type VideoComposer interface {
	Compose(ctx context.Context, mode, videoPath, subtitlePath, lang string) (string, error)
}

// Publisher receives lifecycle events keyed by job id.
type Publisher interface {
	Publish(ctx context.Context, jobID, eventType string, data any)
}

// Request describes one job.
type Request struct {
	JobID        string
	VideoPath    string
	Filename     string
	SourceLang   string
	TargetLang   string
	SubtitleType string
	// SkipComposition stops after the subtitle file is written.
	SkipComposition bool
}

// Result is the durable outcome of a job. The subtitle and video files are
// owned by the caller.
type Result struct {
	JobID              string                `json:"job_id,omitempty"`
	SubtitlePath       string                `json:"srt_file_path"`
	VideoOutputPath    string                `json:"video_with_subtitles"`
	SegmentsCount      int                   `json:"segments_count"`
	SubtitleType       string                `json:"subtitle_type"`
	Status             string                `json:"status"`
	OriginalTranscript transcript.Transcript `json:"original_transcript"`
	TranslatedSegments []transcript.Segment  `json:"translated_segments"`
}

// Dependencies wires the stage implementations.
type Dependencies struct {
	Extractor   AudioExtractor
	Transcriber Transcriber
	Translator  Translator
	Writer      SubtitleWriter
	Composer    VideoComposer
	Publisher   Publisher
}

// Orchestrator runs extraction, transcription, translation, subtitle writing
// and optional composition strictly in sequence.
type Orchestrator struct {
	deps   Dependencies
	logger *slog.Logger
}

// New constructs an Orchestrator. Publisher and Composer may be nil.
func New(deps Dependencies, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{deps: deps, logger: logging.NewComponentLogger(logger, "pipeline")}
}

// Process runs one job. The intermediate audio file is removed on every exit
// path. On failure the error is returned and no event is published; emitting
// "failed" is the caller's decision.
func (o *Orchestrator) Process(ctx context.Context, req Request) (result Result, err error) {
	if err := o.validate(); err != nil {
		return Result{}, err
	}
	mode := compose.NormalizeMode(req.SubtitleType)
	ctx = services.WithJobID(ctx, req.JobID)
	logger := logging.WithContext(ctx, o.logger)

	filename := strings.TrimSpace(req.Filename)
	if filename == "" {
		filename = filepath.Base(req.VideoPath)
	}
	o.publish(ctx, req.JobID, progress.EventStarted, map[string]string{"filename": filename})
	logger.Info("job started",
		logging.String(logging.FieldEventType, "job_started"),
		logging.String("video_path", req.VideoPath),
		logging.String("source_lang", req.SourceLang),
		logging.String("target_lang", req.TargetLang),
		logging.String("subtitle_type", mode),
	)
	started := time.Now()

	if _, statErr := os.Stat(req.VideoPath); statErr != nil {
		return Result{}, services.Wrap(services.ErrAudioExtraction, StageExtraction, "open", "video not readable", statErr)
	}

	var audioPath string
	defer func() {
		if audioPath == "" {
			return
		}
		if cleanupErr := o.deps.Extractor.Cleanup(audioPath); cleanupErr != nil {
			logging.WarnWithContext(logger, "failed to remove intermediate audio",
				"audio_cleanup_failed",
				logging.String("audio_path", audioPath),
				logging.Error(cleanupErr),
				logging.String(logging.FieldImpact, "temporary audio file left on disk"),
			)
		}
	}()

	err = o.runStage(ctx, StageExtraction, func(stageCtx context.Context) error {
		path, err := o.deps.Extractor.Extract(stageCtx, req.VideoPath)
		audioPath = path
		return err
	})
	if err != nil {
		return Result{}, err
	}

	var original transcript.Transcript
	err = o.runStage(ctx, StageTranscription, func(stageCtx context.Context) error {
		var err error
		original, err = o.deps.Transcriber.Transcribe(stageCtx, audioPath, req.SourceLang)
		return err
	})
	if err != nil {
		return Result{}, err
	}

	var translated []transcript.Segment
	err = o.runStage(ctx, StageTranslation, func(stageCtx context.Context) error {
		var err error
		translated, err = o.deps.Translator.Translate(stageCtx, original.Segments, req.TargetLang)
		if err == nil && len(translated) != len(original.Segments) {
			err = services.Wrap(services.ErrTranslation, StageTranslation, "verify",
				fmt.Sprintf("translator returned %d segments for %d inputs", len(translated), len(original.Segments)), nil)
		}
		return err
	})
	if err != nil {
		return Result{}, err
	}

	var subtitlePath string
	err = o.runStage(ctx, StageSubtitles, func(stageCtx context.Context) error {
		var err error
		subtitlePath, err = o.deps.Writer.Write(stageCtx, translated)
		return err
	})
	if err != nil {
		return Result{}, err
	}

	var videoOut string
	if !req.SkipComposition && o.deps.Composer != nil {
		err = o.runStage(ctx, StageComposition, func(stageCtx context.Context) error {
			var err error
			videoOut, err = o.deps.Composer.Compose(stageCtx, mode, req.VideoPath, subtitlePath, req.TargetLang)
			return err
		})
		if err != nil {
			return Result{}, err
		}
	}

	result = Result{
		JobID:              req.JobID,
		SubtitlePath:       subtitlePath,
		VideoOutputPath:    videoOut,
		SegmentsCount:      len(translated),
		SubtitleType:       mode,
		Status:             StatusSuccess,
		OriginalTranscript: original,
		TranslatedSegments: translated,
	}
	logger.Info("job completed",
		logging.String(logging.FieldEventType, "job_completed"),
		logging.String("srt_path", subtitlePath),
		logging.String("video_output", videoOut),
		logging.Int("segments", result.SegmentsCount),
		logging.Duration("elapsed", time.Since(started)),
	)
	o.publish(ctx, req.JobID, progress.EventCompleted, result)
	return result, nil
}

func (o *Orchestrator) runStage(ctx context.Context, stage string, fn func(context.Context) error) error {
	stageCtx := services.WithStage(ctx, stage)
	logger := logging.WithContext(stageCtx, o.logger)
	logger.Debug("stage started", logging.String(logging.FieldEventType, "stage_start"))
	started := time.Now()

	if err := fn(stageCtx); err != nil {
		wrapped := wrapStageError(stage, err)
		logging.ErrorWithContext(logger, "stage failed", "stage_failure",
			logging.Error(wrapped),
			logging.Duration("elapsed", time.Since(started)),
		)
		return wrapped
	}
	logger.Debug("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("elapsed", time.Since(started)),
	)
	return nil
}

// wrapStageError attaches the stage name. Errors outside the processing
// taxonomy are classified as generic processing failures.
func wrapStageError(stage string, err error) error {
	if services.IsProcessing(err) {
		return fmt.Errorf("%s stage: %w", stage, err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return services.Wrap(services.ErrProcessing, stage, "", "cancelled", err)
	}
	return services.Wrap(services.ErrProcessing, stage, "", "unexpected failure", err)
}

func (o *Orchestrator) validate() error {
	if o == nil {
		return services.Wrap(services.ErrConfiguration, "pipeline", "init", "orchestrator not initialized", nil)
	}
	missing := make([]string, 0, 4)
	if o.deps.Extractor == nil {
		missing = append(missing, "extractor")
	}
	if o.deps.Transcriber == nil {
		missing = append(missing, "transcriber")
	}
	if o.deps.Translator == nil {
		missing = append(missing, "translator")
	}
	if o.deps.Writer == nil {
		missing = append(missing, "subtitle writer")
	}
	if len(missing) > 0 {
		return services.Wrap(services.ErrConfiguration, "pipeline", "init", "missing "+strings.Join(missing, ", "), nil)
	}
	return nil
}

func (o *Orchestrator) publish(ctx context.Context, jobID, eventType string, data any) {
	if o.deps.Publisher == nil || jobID == "" {
		return
	}
	o.deps.Publisher.Publish(ctx, jobID, eventType, data)
}
