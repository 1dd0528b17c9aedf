package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ferncroft/helper-audit/internal/analysis"
)

// maxRunListLimit caps the ?limit query parameter on the run list endpoint.
const maxRunListLimit = 200

// handleListRuns returns stored run summaries, newest first.
// The optional ?limit parameter bounds the result; it defaults in the
// repository and is capped here.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		if n > maxRunListLimit {
			n = maxRunListLimit
		}
		limit = n
	}

	summaries, err := s.repo.ListRuns(r.Context(), limit)
	if err != nil {
		s.logger.Error("failed to list runs", "error", err)
		writeInternalError(w, "failed to list runs")
		return
	}
	if summaries == nil {
		summaries = []analysis.RunSummary{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"runs":  summaries,
		"count": len(summaries),
	})
}

// handleLatestRun returns the full result document of the most recent run.
func (s *Server) handleLatestRun(w http.ResponseWriter, r *http.Request) {
	result, err := s.repo.LatestRun(r.Context())
	if errors.Is(err, analysis.ErrNoRuns) {
		writeNotFound(w, "no analysis runs recorded")
		return
	}
	if err != nil {
		s.logger.Error("failed to load latest run", "error", err)
		writeInternalError(w, "failed to load latest run")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleAnalyze triggers a new analysis run and returns its summary.
// Only one analysis runs at a time; concurrent triggers get a 409.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if s.analyzer == nil {
		writeConflict(w, "analysis trigger not available")
		return
	}
	if !s.analysing.CompareAndSwap(false, true) {
		writeConflict(w, "an analysis is already running")
		return
	}
	defer s.analysing.Store(false)

	result, err := s.analyzer.Analyze(r.Context())
	if err != nil {
		s.logger.Error("triggered analysis failed", "error", err)
		writeInternalError(w, "analysis failed: "+err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"run_id":      result.RunID,
		"timestamp":   result.Timestamp,
		"counts":      result.Counts,
		"load_errors": len(result.LoadErrors),
	})
}
