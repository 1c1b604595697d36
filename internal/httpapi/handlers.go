package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"stcgate/internal/artifact"
	"stcgate/internal/compile"
	"stcgate/internal/journal"
	"stcgate/internal/render"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 500

	msgManualMissing = "Manual no encontrado"
	msgBadLimit      = "Parámetro limite inválido"
)

// errorBody is the JSON shape of every failed response.
type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) handleCompile(w http.ResponseWriter, r *http.Request) {
	c, b, err := s.compileUpload(w, r)
	if c != nil {
		defer s.release(w, c)
	}
	if err != nil {
		writeJSON(w, compile.StatusFor(err), errorBody{Error: compile.ClientMessage(err)})
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	c, b, err := s.compileUpload(w, r)
	view := render.View{Bundle: b}
	if c != nil {
		defer s.release(w, c)
		view.Filename, view.RequestID = c.Filename, c.ID
	}
	status := compile.StatusFor(err)
	if err != nil {
		view.Bundle, view.Error = nil, compile.ClientMessage(err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := render.HTML(w, view); err != nil {
		s.logger.Error("write result page", "error", err)
	}
}

// compileUpload stages the uploaded file and runs it. A non-nil Compilation
// must be released once the response has been written, whatever the error.
func (s *Server) compileUpload(w http.ResponseWriter, r *http.Request) (*compile.Compilation, *artifact.Bundle, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	file, hdr, err := r.FormFile(uploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || errors.Is(err, multipart.ErrMessageTooLarge) {
			s.logger.Info("upload rejected", "error", err, "limit", s.cfg.MaxUploadBytes)
			return nil, nil, &compile.Error{Kind: compile.KindPayloadTooLarge, Err: err}
		}
		s.logger.Info("upload rejected", "error", err)
		return nil, nil, &compile.Error{Kind: compile.KindTransport, Err: fmt.Errorf("read field %q: %w", uploadField, err)}
	}
	defer file.Close()

	c, err := s.svc.Stage(r.Context(), hdr.Filename, file)
	if err != nil {
		s.logger.Error("stage upload", "error", err)
		return nil, nil, err
	}
	w.Header().Set("X-Request-ID", c.ID)
	b, err := c.Run(r.Context())
	return c, b, err
}

// release pushes the response to the client, then schedules cleanup.
func (s *Server) release(w http.ResponseWriter, c *compile.Compilation) {
	if err := http.NewResponseController(w).Flush(); err != nil {
		s.logger.Debug("flush before cleanup", "error", err)
	}
	c.Close()
}

func (s *Server) handleForm(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := render.Form(w); err != nil {
		s.logger.Error("write form page", "error", err)
	}
}

func (s *Server) handleManual(w http.ResponseWriter, r *http.Request) {
	f, err := os.Open(s.cfg.ManualPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("open manual", "error", err)
		}
		writeJSON(w, http.StatusNotFound, errorBody{Error: msgManualMissing})
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil || info.IsDir() {
		writeJSON(w, http.StatusNotFound, errorBody{Error: msgManualMissing})
		return
	}
	name := filepath.Base(s.cfg.ManualPath)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeContent(w, r, name, info.ModTime(), f)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limite"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: msgBadLimit})
			return
		}
		limit = min(n, maxHistoryLimit)
	}
	entries, err := s.journal.Recent(limit)
	if err != nil {
		s.logger.Error("read journal", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Historial no disponible"})
		return
	}
	if entries == nil {
		entries = []*journal.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.logger.Debug("health check", "remote_addr", r.RemoteAddr)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
