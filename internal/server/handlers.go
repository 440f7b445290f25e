package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/wadi/materializer/internal/materializer"
	"github.com/wadi/materializer/internal/types"
)

// MaterializeRequest represents the request body for materializing a project.
type MaterializeRequest struct {
	DryRun    bool                    `json:"dry_run,omitempty"`
	Structure *types.ProjectStructure `json:"structure,omitempty"`
}

// RunResponse represents a single run record.
type RunResponse struct {
	RunID         string         `json:"run_id"`
	ProjectID     string         `json:"project_id"`
	StepName      string         `json:"step_name"`
	Status        string         `json:"status"`
	CorrelationID string         `json:"correlation_id"`
	Logs          map[string]any `json:"logs,omitempty"`
	ErrorMessage  string         `json:"error_message,omitempty"`
	CreatedAt     string         `json:"created_at"`
	CompletedAt   string         `json:"completed_at,omitempty"`
}

// MetricsResponse represents the aggregated metrics snapshot.
type MetricsResponse struct {
	DeployFailureRate float64        `json:"deploy_failure_rate"`
	BuildHistogram    map[string]int `json:"build_histogram"`
}

// handleMaterialize runs the materialization pipeline for a project.
func (s *Server) handleMaterialize(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("id")
	if projectID == "" {
		s.errorResponse(w, http.StatusBadRequest, "project id is required")
		return
	}

	var req MaterializeRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
			return
		}
	}

	result := s.svc.Materialize(r.Context(), projectID, materializer.Options{
		DryRun:            req.DryRun,
		OverrideStructure: req.Structure,
	})
	s.jsonResponse(w, http.StatusOK, result)
}

// handleGetRun returns a single run by ID.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "persistence is not configured")
		return
	}

	runID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid run id")
		return
	}

	run, err := s.db.GetRun(r.Context(), runID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "failed to load run")
		return
	}
	if run == nil {
		s.errorResponse(w, http.StatusNotFound, "run not found")
		return
	}
	s.jsonResponse(w, http.StatusOK, runResponse(run))
}

// handleListRuns returns the most recent runs for a project.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "persistence is not configured")
		return
	}

	projectID := r.PathValue("id")
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 || parsed > 100 {
			s.errorResponse(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = parsed
	}

	runs, err := s.db.ListRuns(r.Context(), projectID, limit)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "failed to list runs")
		return
	}

	out := make([]RunResponse, 0, len(runs))
	for i := range runs {
		out = append(out, runResponse(&runs[i]))
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"project_id": projectID, "runs": out})
}

// handleMetrics returns the in-memory metrics snapshot.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	if s.metrics == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "metrics are not configured")
		return
	}
	s.jsonResponse(w, http.StatusOK, MetricsResponse{
		DeployFailureRate: s.metrics.DeployFailureRate(),
		BuildHistogram:    s.metrics.BuildHistogram(),
	})
}

func runResponse(run *types.Run) RunResponse {
	resp := RunResponse{
		RunID:         run.ID.String(),
		ProjectID:     run.ProjectID,
		StepName:      run.StepName,
		Status:        string(run.Status),
		CorrelationID: run.CorrelationID,
		Logs:          run.Logs,
		ErrorMessage:  run.ErrorMessage,
		CreatedAt:     run.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if run.CompletedAt != nil {
		resp.CompletedAt = run.CompletedAt.Format("2006-01-02T15:04:05Z07:00")
	}
	return resp
}
