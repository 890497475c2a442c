package server

import (
	"errors"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"dubsy/internal/services"
	"dubsy/internal/textutil"
)

func (s *Server) handleDownloadVideo(w http.ResponseWriter, r *http.Request) {
	s.serveArtifact(w, r, "video")
}

func (s *Server) handleDownloadSRT(w http.ResponseWriter, r *http.Request) {
	s.serveArtifact(w, r, "subtitle")
}

// serveArtifact serves a file from the temp dir by sanitized name only.
func (s *Server) serveArtifact(w http.ResponseWriter, r *http.Request, kind string) {
	name := textutil.SanitizeFileName(r.PathValue("filename"))
	if !textutil.IsSafeFileName(name) {
		s.writeFailure(w, services.Wrap(services.ErrNotFound, "download", kind, kind+" file not found", nil))
		return
	}
	path := filepath.Join(s.cfg.Paths.TempDir, name)
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.writeFailure(w, services.Wrap(services.ErrNotFound, "download", kind, kind+" file not found", nil))
			return
		}
		s.writeFailure(w, services.Wrap(services.ErrProcessing, "download", kind, "cannot open file", err))
		return
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil || info.IsDir() {
		s.writeFailure(w, services.Wrap(services.ErrNotFound, "download", kind, kind+" file not found", err))
		return
	}

	w.Header().Set("Content-Type", contentType(kind, name))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	http.ServeContent(w, r, name, info.ModTime(), file)
}

func contentType(kind, name string) string {
	if kind == "subtitle" {
		return "text/plain; charset=utf-8"
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".mkv":
		return "video/x-matroska"
	default:
		return "video/mp4"
	}
}
