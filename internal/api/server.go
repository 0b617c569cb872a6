package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"SearchAggregator/internal/domain"
	"SearchAggregator/internal/usecase"
)

// Server exposes the aggregation pipeline over HTTP. It is a thin
// collaborator: a degraded pipeline outcome is a 200 with an empty list,
// never a 5xx.
type Server struct {
	pipeline *usecase.Pipeline
	logger   *slog.Logger
}

// NewServer wires handlers around the pipeline.
func NewServer(pipeline *usecase.Pipeline, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{pipeline: pipeline, logger: logger}
}

// Router builds the chi router for the service.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/search", s.handleSearch)
	r.Post("/mark-relevant", s.handleMarkRelevant)

	return r
}

type errorResponse struct {
	Error string `json:"error"`
}

type searchResponse struct {
	Query      string             `json:"query"`
	TimeFilter string             `json:"time_filter,omitempty"`
	Results    domain.ResultBatch `json:"results"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "query is required"})
		return
	}
	window := domain.ParseWindow(strings.TrimSpace(r.URL.Query().Get("time_filter")))

	batch := s.pipeline.Run(ctx, query, window)
	if batch == nil {
		batch = domain.ResultBatch{}
	}

	writeJSON(w, http.StatusOK, searchResponse{
		Query:      query,
		TimeFilter: string(window),
		Results:    batch,
	})
}

func (s *Server) handleMarkRelevant(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var req usecase.MarkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}

	updated, err := s.pipeline.MarkRelevant(ctx, req)
	if err != nil {
		if errors.Is(err, usecase.ErrMissingField) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		s.logger.Error("mark relevant failed", "query", req.Query, "link", req.Link, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "relevance update failed"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"data": map[string]any{
			"query":       req.Query,
			"link":        req.Link,
			"title":       updated.Title,
			"click_count": updated.ClickCount,
			"relevance":   updated.Relevance,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
