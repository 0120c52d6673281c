package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/labadmin/pulldown/derive"
	"github.com/labadmin/pulldown/export"
	"github.com/labadmin/pulldown/internal/logger"
	"github.com/labadmin/pulldown/survey"
)

// Pinger reports whether the backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	engine    *survey.Engine
	profiles  *derive.Manager
	pinger    Pinger
	separator string
	router    *chi.Mux
}

// NewServer wires the HTTP API. pinger may be nil.
func NewServer(engine *survey.Engine, profiles *derive.Manager, pinger Pinger, separator string) *Server {
	s := &Server{
		engine:    engine,
		profiles:  profiles,
		pinger:    pinger,
		separator: separator,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))

	r.Get("/api/v1/health", s.handleHealth)

	r.Get("/api/v1/questions", s.handleListQuestions)
	r.Post("/api/v1/catalog/refresh", s.handleRefreshCatalog)

	r.Get("/api/v1/pulldown", s.handlePulldown)

	r.Route("/api/v1/profiles", func(r chi.Router) {
		r.Get("/", s.handleListProfiles)
		r.Get("/{name}", s.handleGetProfile)
		r.Put("/{name}", s.handlePutProfile)
		r.Delete("/{name}", s.handleDeleteProfile)
	})

	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:   "healthy",
		Profiles: len(s.profiles.List()),
		Counters: logger.Counters(),
	}

	if s.pinger != nil {
		if err := s.pinger.Ping(r.Context()); err != nil {
			resp.Status = "unhealthy"
			resp.Error = err.Error()
			respondJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
	}

	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListQuestions(w http.ResponseWriter, r *http.Request) {
	catalog, err := s.engine.Catalog(r.Context())
	if err != nil {
		respondError(w, statusFor(err), "failed to read question catalog", err)
		return
	}

	resp := QuestionsListResponse{Questions: []QuestionResponse{}}
	for _, q := range catalog.Questions() {
		item := QuestionResponse{
			QuestionID:  q.QuestionID,
			ShortName:   q.ShortName,
			Cardinality: q.Cardinality.String(),
		}
		if catalog.IsMultiple(q.QuestionID) {
			item.Responses = catalog.Domain(q.QuestionID)
		}
		resp.Questions = append(resp.Questions, item)
	}

	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRefreshCatalog(w http.ResponseWriter, r *http.Request) {
	s.engine.InvalidateCatalog()
	w.WriteHeader(http.StatusNoContent)
}

// handlePulldown runs a tabulation. Query parameters: format (json, tsv, csv)
// and profile (optional export profile name).
func (s *Server) handlePulldown(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	var comma rune
	switch format {
	case "json":
	case "tsv":
		comma = '\t'
	case "csv":
		comma = ','
	default:
		respondError(w, http.StatusBadRequest, "format must be one of: json, tsv, csv", nil)
		return
	}

	var transforms []survey.Transform
	profileName := r.URL.Query().Get("profile")
	if profileName != "" {
		p, err := s.profiles.Get(profileName)
		if err != nil {
			respondError(w, http.StatusNotFound, "profile not found", err)
			return
		}
		transforms = append(transforms, p)
	}

	res, err := s.engine.Run(r.Context(), transforms...)
	if err != nil {
		respondError(w, statusFor(err), "tabulation failed", err)
		return
	}

	w.Header().Set("X-Pulldown-Run", res.RunID)
	w.Header().Set("X-Pulldown-Schema", export.Fingerprint(res.Table, s.separator))

	if format == "json" {
		doc, err := export.NewDocument(res.Table, s.separator)
		if err != nil {
			respondError(w, http.StatusUnprocessableEntity, "failed to render table", err)
			return
		}
		warnings := res.Warnings
		if warnings == nil {
			warnings = []survey.Warning{}
		}
		respondJSON(w, http.StatusOK, PulldownResponse{
			RunID:    res.RunID,
			Schema:   export.Fingerprint(res.Table, s.separator),
			Profile:  profileName,
			Duration: res.Duration.String(),
			Warnings: warnings,
			Document: doc,
		})
		return
	}

	var buf bytes.Buffer
	err = export.WriteDelimited(&buf, res.Table, export.Options{Comma: comma, Separator: s.separator})
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, "failed to render table", err)
		return
	}

	if format == "csv" {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	} else {
		w.Header().Set("Content-Type", "text/tab-separated-values; charset=utf-8")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	resp := ProfilesListResponse{Profiles: []ProfileResponse{}}
	for _, name := range s.profiles.List() {
		p, err := s.profiles.Get(name)
		if err != nil {
			// deleted between List and Get
			continue
		}
		resp.Profiles = append(resp.Profiles, ProfileResponse{Name: name, Fields: p.Fields()})
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	p, err := s.profiles.Get(name)
	if err != nil {
		respondError(w, http.StatusNotFound, "profile not found", err)
		return
	}
	respondJSON(w, http.StatusOK, ProfileResponse{Name: name, Fields: p.Fields()})
}

func (s *Server) handlePutProfile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var req ProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	p, err := s.profiles.Put(name, req.Fields)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to compile profile", err)
		return
	}

	logger.Info("profile replaced", "profile", name, "fields", len(req.Fields))
	respondJSON(w, http.StatusOK, ProfileResponse{Name: name, Fields: p.Fields()})
}

func (s *Server) handleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	if err := s.profiles.Delete(name); err != nil {
		respondError(w, http.StatusNotFound, "profile not found", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// statusFor maps tabulation errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, survey.ErrSourceRead):
		return http.StatusBadGateway
	case errors.Is(err, survey.ErrUnknownQuestion),
		errors.Is(err, survey.ErrAmbiguousShortName),
		errors.Is(err, survey.ErrOutOfDomainResponse),
		errors.Is(err, survey.ErrUndefinedDomain):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	logger.RecordHTTPStatus(status)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	respondJSON(w, status, resp)
}
