package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"meetingintel/internal/analysis"
	"meetingintel/internal/calendar"
	"meetingintel/internal/export"
	"meetingintel/internal/logging"
	"meetingintel/internal/services"
	"meetingintel/internal/stage"
	"meetingintel/internal/store"
)

// DefaultMaxUploadBytes bounds the multipart body accepted by /api/analyze.
const DefaultMaxUploadBytes int64 = 512 << 20

// Server routes HTTP requests to an analysis service.
type Server struct {
	service   *analysis.Service
	logger    *slog.Logger
	maxUpload int64
	token     string
	clock     func() time.Time
	handler   http.Handler
}

// Option customizes a Server.
type Option func(*Server)

// WithMaxUploadBytes overrides DefaultMaxUploadBytes.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUpload = n
		}
	}
}

// WithToken requires "Authorization: Bearer <token>" on /api routes.
func WithToken(token string) Option {
	return func(s *Server) {
		s.token = strings.TrimSpace(token)
	}
}

// WithClock overrides the time source used for calendar exports.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.clock = now
		}
	}
}

// NewServer builds the route table around svc.
func NewServer(svc *analysis.Service, logger *slog.Logger, opts ...Option) *Server {
	s := &Server{
		service:   svc,
		logger:    logging.NewComponentLogger(logger, "api"),
		maxUpload: DefaultMaxUploadBytes,
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	routes := http.NewServeMux()
	routes.HandleFunc("POST /api/analyze", s.handleAnalyze)
	routes.HandleFunc("GET /api/analyses", s.handleList)
	routes.HandleFunc("GET /api/analyses/{id}", s.handleGet)
	routes.HandleFunc("DELETE /api/analyses/{id}", s.handleDelete)
	routes.HandleFunc("GET /api/analyses/{id}/export", s.handleExport)
	routes.HandleFunc("GET /api/analyses/{id}/calendar.ics", s.handleCalendar)
	routes.HandleFunc("GET /api/stages", s.handleStages)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("/api/", authMiddleware(s.token, routes))

	s.handler = requestID(accessLog(s.logger, mux))
	return s
}

// Handler returns the root handler including middleware.
func (s *Server) Handler() http.Handler { return s.handler }

// ListResponse is the body of GET /api/analyses.
type ListResponse struct {
	Analyses []store.Summary `json:"analyses"`
	Count    int             `json:"count"`
}

// StageView describes one registered stage.
type StageView struct {
	ID        string   `json:"id"`
	Kind      string   `json:"kind"`
	DependsOn []string `json:"depends_on"`
	Timeout   string   `json:"timeout"`
}

// StagesResponse is the body of GET /api/stages.
type StagesResponse struct {
	Order   []string       `json:"order"`
	Batches [][]string     `json:"batches"`
	Stages  []StageView    `json:"stages"`
	Health  []stage.Health `json:"health"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			s.writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit))
		case errors.Is(err, http.ErrMissingFile):
			s.writeError(w, http.StatusBadRequest, "no file provided")
		default:
			s.writeError(w, http.StatusBadRequest, "invalid multipart upload: "+err.Error())
		}
		return
	}
	defer file.Close()

	doc, err := s.service.Analyze(r.Context(), header.Filename, file)
	if err != nil {
		logging.WithContext(r.Context(), s.logger).Error(
			"analysis request failed",
			logging.String(logging.FieldEventType, "analysis_failed"),
			logging.String("file", header.Filename),
			logging.Error(err),
		)
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}
	items, err := s.service.List(r.Context(), limit)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if items == nil {
		items = []store.Summary{}
	}
	s.writeJSON(w, http.StatusOK, ListResponse{Analyses: items, Count: len(items)})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	doc, err := s.service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.service.Delete(r.Context(), id); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"deleted": id})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("format")
	if strings.TrimSpace(name) == "" {
		name = string(export.FormatJSON)
	}
	format, err := export.ParseFormat(name)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	doc, err := s.service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := export.Write(&buf, format, doc.Result); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", export.ContentType(format))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(doc.AnalysisID, format)))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	doc, err := s.service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := calendar.WriteICS(&buf, doc.Calendar, s.clock()); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "meeting-followups-"+doc.AnalysisID+".ics"))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleStages(w http.ResponseWriter, r *http.Request) {
	reg := s.service.Registries().Load()
	if reg == nil {
		s.writeError(w, http.StatusServiceUnavailable, "no stage registry loaded")
		return
	}
	order, err := reg.ResolveOrder()
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	batches, err := reg.Batches()
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	specs := reg.Specs()
	views := make([]StageView, 0, len(specs))
	for _, spec := range specs {
		deps := spec.DependsOn
		if deps == nil {
			deps = []string{}
		}
		views = append(views, StageView{
			ID:        spec.ID,
			Kind:      string(spec.Kind),
			DependsOn: deps,
			Timeout:   spec.Timeout.String(),
		})
	}
	s.writeJSON(w, http.StatusOK, StagesResponse{
		Order:   order,
		Batches: batches,
		Stages:  views,
		Health:  reg.Health(r.Context()),
	})
}

// statusFor maps service error markers onto HTTP codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrConfiguration):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	s.writeError(w, statusFor(err), err.Error())
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

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
