package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/himanishpuri/QuizMix/pkg/logger"
	"github.com/himanishpuri/QuizMix/pkg/quizmix"
	"github.com/himanishpuri/QuizMix/pkg/quizmix/ingest"
	"github.com/himanishpuri/QuizMix/pkg/quizmix/prompts"
)

// Server encapsulates the HTTP server and its dependencies
type Server struct {
	service quizmix.Service
	config  *ServerConfig
	log     quizmix.Logger
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            int
	DBPath          string
	MaxRequestBytes int64 // whole multipart body; single files are capped by the service
	AllowedOrigins  []string
	LogRequests     bool
}

// NewServer creates a new server instance
func NewServer(service quizmix.Service, config *ServerConfig) *Server {
	return &Server{
		service: service,
		config:  config,
		log:     logger.GetLogger().With("http"),
	}
}

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Errorf("Failed to encode JSON response: %v", err)
	}
}

// respondError writes an error response
func (s *Server) respondError(w http.ResponseWriter, statusCode int, message string) {
	s.respondJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}

// respondServiceError maps service errors to status codes
func (s *Server) respondServiceError(w http.ResponseWriter, err error) {
	if question, ok := quizmix.IsConfirmation(err); ok {
		s.respondJSON(w, http.StatusConflict, ConfirmationResponse{
			Error:    http.StatusText(http.StatusConflict),
			Question: question,
			Confirm:  "repeat the request with ?confirm=true",
		})
		return
	}

	switch {
	case errors.Is(err, quizmix.ErrSessionNotFound),
		errors.Is(err, quizmix.ErrClipNotFound),
		errors.Is(err, quizmix.ErrExportNotFound):
		s.respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, quizmix.ErrNoPromptSource), errors.Is(err, prompts.ErrNotFound):
		s.log.Errorf("Prompt clips unavailable: %v", err)
		s.respondError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		s.respondError(w, http.StatusGatewayTimeout, err.Error())
	default:
		s.log.Errorf("Request failed: %v", err)
		s.respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*quizmix.Session, bool) {
	sess, err := s.service.Session(r.PathValue("id"))
	if err != nil {
		s.respondServiceError(w, err)
		return nil, false
	}
	return sess, true
}

func confirmed(r *http.Request) bool {
	ok, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
	return ok
}

// handleRoot handles GET /
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"service": "QuizMix API",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"health":        "GET /health",
			"createSession": "POST /api/sessions",
			"getSession":    "GET /api/sessions/{id}",
			"endSession":    "DELETE /api/sessions/{id}",
			"upload":        "POST /api/sessions/{id}/clips",
			"clear":         "DELETE /api/sessions/{id}/clips?confirm=true",
			"reorder":       "POST /api/sessions/{id}/reorder",
			"sort":          "POST /api/sessions/{id}/sort?confirm=true",
			"preview":       "GET /api/sessions/{id}/clips/{fingerprint}/audio",
			"concatenate":   "POST /api/sessions/{id}/concatenate",
			"download":      "GET /api/exports/{id}",
		},
	})
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:   "healthy",
		Time:     time.Now().Format(time.RFC3339),
		Sessions: s.service.SessionCount(),
		Database: s.config.DBPath,
	}
	n, err := s.service.ClipCount(r.Context())
	if err != nil {
		s.log.Errorf("Health check failed: %v", err)
		resp.Status = "degraded"
	}
	resp.Clips = n
	s.respondJSON(w, http.StatusOK, resp)
}

// handleCreateSession handles POST /api/sessions
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.service.NewSession(r.Context())
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	w.Header().Set("Location", "/api/sessions/"+sess.ID)
	s.respondJSON(w, http.StatusCreated, sessionResponse(sess))
}

// handleGetSession handles GET /api/sessions/{id}
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	s.respondJSON(w, http.StatusOK, sessionResponse(sess))
}

// handleEndSession handles DELETE /api/sessions/{id}
func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	if err := s.service.EndSession(r.Context(), r.PathValue("id")); err != nil {
		s.respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleUpload handles POST /api/sessions/{id}/clips (multipart, field "files")
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	if s.config.MaxRequestBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxRequestBytes)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return
		}
		s.log.Errorf("Failed to parse form: %v", err)
		s.respondError(w, http.StatusBadRequest, "Failed to parse form data")
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		s.respondError(w, http.StatusBadRequest, "at least one file is required in field \"files\"")
		return
	}

	files := make([]ingest.File, len(headers))
	for i, fh := range headers {
		files[i] = ingest.MultipartFile(fh)
	}

	report, err := sess.Upload(ctx, files)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	// The report's notices are already in the session queue and are
	// returned with the session below.
	s.respondJSON(w, http.StatusOK, UploadResponse{
		SessionResponse: sessionResponse(sess),
		Accepted:        len(report.Accepted),
		Duplicates:      len(report.Duplicates),
		Failed:          len(report.Failed),
	})
}

// handleClear handles DELETE /api/sessions/{id}/clips
func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if _, err := sess.Clear(r.Context(), quizmix.Confirmed(confirmed(r))); err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, sessionResponse(sess))
}

// handleReorder handles POST /api/sessions/{id}/reorder
func (s *Server) handleReorder(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var req ReorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	from, to := sess.Reorder(*req.From, *req.To)
	s.respondJSON(w, http.StatusOK, ReorderResponse{
		SessionResponse: sessionResponse(sess),
		From:            from,
		To:              to,
	})
}

// handleSort handles POST /api/sessions/{id}/sort
func (s *Server) handleSort(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if _, err := sess.SortByName(r.Context(), quizmix.Confirmed(confirmed(r))); err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, sessionResponse(sess))
}

// handlePreview handles GET /api/sessions/{id}/clips/{fingerprint}/audio
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	preview, err := sess.Preview(r.Context(), r.PathValue("fingerprint"))
	if err != nil {
		if errors.Is(err, quizmix.ErrClipNotFound) {
			s.respondServiceError(w, err)
			return
		}
		s.respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if preview.Item.ContentType != "" {
		w.Header().Set("Content-Type", preview.Item.ContentType)
	}
	w.Header().Set("Cache-Control", "no-store")
	http.ServeContent(w, r, preview.Item.Name, preview.Item.AddedAt, preview.Reader())
}

// handleConcatenate handles POST /api/sessions/{id}/concatenate
func (s *Server) handleConcatenate(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Minute)
	defer cancel()

	exp, err := sess.Concatenate(ctx)
	if errors.Is(err, quizmix.ErrEmptyPlaylist) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	s.respondJSON(w, http.StatusCreated, exportResponse(exp))
}

// handleDownload handles GET /api/exports/{id}
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	exp, err := s.service.Export(r.Context(), r.PathValue("id"))
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", exp.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": exp.FileName}))
	w.Header().Set("Content-Length", fmt.Sprint(exp.Size()))
	if _, err := w.Write(exp.Data); err != nil {
		s.log.Warnf("Export %s download interrupted: %v", exp.ID, err)
	}
}
