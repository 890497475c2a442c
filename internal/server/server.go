package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"dubsy/internal/config"
	"dubsy/internal/deps"
	"dubsy/internal/logging"
	"dubsy/internal/pipeline"
	"dubsy/internal/progress"
)

// Service identity reported by /health.
const (
	ServiceName    = "Video Subtitle Translator"
	ServiceVersion = "1.0.0"
)

// Processor runs one pipeline job.
type Processor interface {
	Process(ctx context.Context, req pipeline.Request) (pipeline.Result, error)
}

// Server exposes the pipeline over HTTP and WebSocket.
type Server struct {
	cfg         *config.Config
	processor   Processor
	broadcaster *progress.Broadcaster
	logger      *slog.Logger
	token       func() string
	depCheck    func() []deps.Status

	httpServer *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithTokenSource overrides the random token in stored upload names.
func WithTokenSource(fn func() string) Option {
	return func(s *Server) {
		if fn != nil {
			s.token = fn
		}
	}
}

// WithDependencyCheck overrides the binary probe used by /health.
func WithDependencyCheck(fn func() []deps.Status) Option {
	return func(s *Server) {
		if fn != nil {
			s.depCheck = fn
		}
	}
}

// New constructs a Server. broadcaster may be nil, in which case the
// progress channel accepts connections that never receive events.
func New(cfg *config.Config, processor Processor, broadcaster *progress.Broadcaster, logger *slog.Logger, opts ...Option) *Server {
	s := &Server{
		cfg:         cfg,
		processor:   processor,
		broadcaster: broadcaster,
		logger:      logging.NewComponentLogger(logger, "api-server"),
		token:       func() string { return strings.ReplaceAll(uuid.NewString(), "-", "") },
	}
	s.depCheck = func() []deps.Status {
		return deps.CheckBinaries(deps.MediaRequirements(
			cfg.Composer.FFmpegBinary,
			cfg.Composer.FFprobeBinary,
			cfg.Transcription.Provider == config.ProviderWhisperX,
		))
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /upload-and-translate", s.handleUpload)
	mux.HandleFunc("GET /ws/{job_id}", s.handleProgress)
	mux.HandleFunc("GET /download-video/{filename}", s.handleDownloadVideo)
	mux.HandleFunc("GET /download-srt/{filename}", s.handleDownloadSRT)
	mux.HandleFunc("GET /health", s.handleHealth)
	return withCORS(s.withRequestLogging(mux))
}

// Run listens on the configured address until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.cfg.Address())
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	return s.Serve(ctx, listener)
}

// Serve handles connections on listener until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.Serve(listener)
	}()
	s.logger.Info("api server listening",
		logging.String(logging.FieldEventType, "server_listening"),
		logging.String("address", listener.Addr().String()),
	)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("api serve: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("api server shutdown incomplete", logging.Error(err))
		}
		return nil
	}
}

func (s *Server) withRequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request handled",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.Duration("elapsed", time.Since(started)),
		)
	})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message, detail string) {
	body := map[string]string{"error": message}
	if detail != "" {
		body["detail"] = detail
	}
	s.writeJSON(w, status, body)
}
