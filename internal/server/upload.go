package server

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"dubsy/internal/compose"
	"dubsy/internal/fileutil"
	"dubsy/internal/logging"
	"dubsy/internal/pipeline"
	"dubsy/internal/progress"
	"dubsy/internal/services"
	"dubsy/internal/textutil"
	"dubsy/internal/validation"
)

const (
	multipartMemory   = 32 << 20
	multipartOverhead = 1 << 20
	successMessage    = "Translation and subtitle integration completed successfully"
)

// UploadResponse is the body returned by a successful upload.
type UploadResponse struct {
	Message            string `json:"message"`
	SRTFilePath        string `json:"srt_file_path"`
	VideoWithSubtitles string `json:"video_with_subtitles"`
	SegmentsCount      int    `json:"segments_count"`
	SubtitleType       string `json:"subtitle_type"`
	Status             string `json:"status"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := services.WithRequestID(r.Context(), uuid.NewString())
	limit := s.cfg.Server.MaxUploadBytes
	if limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			s.writeFailure(w, validation.Size(limit+1, limit))
			return
		}
		s.writeFailure(w, services.Wrap(services.ErrValidation, "upload", "form", "malformed multipart body", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeFailure(w, services.Wrap(services.ErrValidation, "upload", "file", "file field missing", err))
		return
	}
	defer file.Close()

	jobID := strings.TrimSpace(r.FormValue("job_id"))
	ctx = services.WithJobID(ctx, jobID)
	logger := logging.WithContext(ctx, s.logger)

	if err := validation.VideoFileName(header.Filename, s.cfg.Server.AllowedExtensions); err != nil {
		s.writeFailure(w, err)
		return
	}
	sourceLang, err := validation.LanguageCode("source", r.FormValue("source_lang"), s.cfg.Server.Languages)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	targetLang, err := validation.LanguageCode("target", r.FormValue("target_lang"), s.cfg.Server.Languages)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	if err := validation.Size(header.Size, limit); err != nil {
		s.writeFailure(w, err)
		return
	}
	subtitleType := compose.NormalizeMode(r.FormValue("subtitle_type"))

	safeName := textutil.SanitizeFileName(filepath.Base(header.Filename))
	videoPath := filepath.Join(s.cfg.Paths.TempDir, fmt.Sprintf("temp_%s_%s", s.token(), safeName))
	defer func() {
		if err := fileutil.RemoveIfExists(videoPath); err != nil {
			logging.WarnWithContext(logger, "failed to remove uploaded video", "upload_cleanup_failed",
				logging.String("video_path", videoPath),
				logging.Error(err),
			)
		}
	}()
	stored, err := fileutil.StreamToNewFile(file, videoPath, 0o644)
	if err != nil {
		s.writeFailure(w, services.Wrap(services.ErrProcessing, "upload", "store", "cannot save upload", err))
		return
	}

	logger.Info("upload accepted",
		logging.String(logging.FieldEventType, "upload_accepted"),
		logging.String("filename", safeName),
		logging.String("size", validation.LimitDescription(stored.Size)),
		logging.String("sha256", stored.SHA256),
		logging.String("source_lang", sourceLang),
		logging.String("target_lang", targetLang),
		logging.String("subtitle_type", subtitleType),
	)

	result, err := s.processor.Process(ctx, pipeline.Request{
		JobID:        jobID,
		VideoPath:    videoPath,
		Filename:     safeName,
		SourceLang:   sourceLang,
		TargetLang:   targetLang,
		SubtitleType: subtitleType,
	})
	if err != nil {
		if jobID != "" && s.broadcaster != nil {
			s.broadcaster.Publish(ctx, jobID, progress.EventFailed, map[string]string{"error": err.Error()})
		}
		s.writeFailure(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, UploadResponse{
		Message:            successMessage,
		SRTFilePath:        baseOrEmpty(result.SubtitlePath),
		VideoWithSubtitles: baseOrEmpty(result.VideoOutputPath),
		SegmentsCount:      result.SegmentsCount,
		SubtitleType:       result.SubtitleType,
		Status:             result.Status,
	})
}

// writeFailure maps err onto the status taxonomy. Unclassified errors get a
// generic label.
func (s *Server) writeFailure(w http.ResponseWriter, err error) {
	status := services.HTTPStatus(err)
	switch {
	case errors.Is(err, services.ErrValidation):
		s.writeError(w, status, "invalid request", err.Error())
	case errors.Is(err, services.ErrNotFound):
		s.writeError(w, status, "not found", err.Error())
	case services.IsProcessing(err):
		s.logger.Error("video processing failed", logging.Error(err))
		s.writeError(w, status, "video processing failed", err.Error())
	default:
		s.logger.Error("unexpected failure", logging.Error(err))
		s.writeError(w, http.StatusInternalServerError, "internal error", err.Error())
	}
}

func baseOrEmpty(path string) string {
	if path == "" {
		return ""
	}
	return filepath.Base(path)
}
