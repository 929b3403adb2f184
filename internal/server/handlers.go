package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/leapstack-labs/sqlexplain/internal/state"
	"github.com/leapstack-labs/sqlexplain/pkg/core"
)

const maxBodyBytes = 10 << 20

// ExplainRequest is the body of POST /v1/sql-explanations.
type ExplainRequest struct {
	Question string      `json:"question"`
	Steps    []core.Step `json:"steps"`
}

// ExplainResponse carries one record list per step. ID is empty when
// history is disabled.
type ExplainResponse struct {
	ID      string                     `json:"id,omitempty"`
	Results [][]core.ExplanationRecord `json:"results"`
}

// RunResponse is a stored run.
type RunResponse struct {
	ID        string                     `json:"id"`
	Question  string                     `json:"question"`
	Provider  string                     `json:"provider,omitempty"`
	Model     string                     `json:"model,omitempty"`
	CreatedAt time.Time                  `json:"created_at"`
	Steps     []state.StepInfo           `json:"steps"`
	Results   [][]core.ExplanationRecord `json:"results"`
}

// RunSummaryResponse is one entry of the run listing.
type RunSummaryResponse struct {
	ID          string    `json:"id"`
	Question    string    `json:"question"`
	StepCount   int       `json:"step_count"`
	RecordCount int       `json:"record_count"`
	CreatedAt   time.Time `json:"created_at"`
}

type handlers struct {
	explainer StepsExplainer
	store     state.Store
	logger    *slog.Logger
	provider  string
	model     string
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (h *handlers) createExplanation(w http.ResponseWriter, r *http.Request) {
	var req ExplainRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	if len(req.Steps) == 0 {
		writeError(w, r, http.StatusBadRequest, "INVALID_BODY", "at least one step is required")
		return
	}

	results, err := h.explainer.ExplainSteps(r.Context(), req.Question, req.Steps)
	if err != nil {
		if r.Context().Err() != nil {
			h.logger.Warn("explanation cancelled", slog.String("error", err.Error()))
			writeError(w, r, http.StatusServiceUnavailable, "CANCELLED", err.Error())
			return
		}
		h.logger.Error("explanation failed", slog.String("error", err.Error()))
		writeError(w, r, http.StatusInternalServerError, "EXPLAIN_FAILED", err.Error())
		return
	}

	resp := ExplainResponse{Results: results}
	if h.store != nil {
		run := &state.Run{
			Question: req.Question,
			Provider: h.provider,
			Model:    h.model,
			Steps:    state.StepsFromCore(req.Steps),
			Results:  results,
		}
		if err := h.store.SaveRun(r.Context(), run); err != nil {
			// The explanation itself succeeded; return it without an id.
			h.logger.Error("failed to save run", slog.String("error", err.Error()))
		} else {
			resp.ID = run.ID
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) listExplanations(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, r, http.StatusNotFound, "HISTORY_DISABLED", "run history is disabled")
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, r, http.StatusBadRequest, "INVALID_LIMIT", "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	runs, err := h.store.ListRuns(r.Context(), limit)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "HISTORY_ERROR", err.Error())
		return
	}
	out := make([]RunSummaryResponse, len(runs))
	for i, run := range runs {
		out[i] = RunSummaryResponse{
			ID:          run.ID,
			Question:    run.Question,
			StepCount:   run.StepCount,
			RecordCount: run.RecordCount,
			CreatedAt:   run.CreatedAt,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": out})
}

func (h *handlers) getExplanation(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, r, http.StatusNotFound, "HISTORY_DISABLED", "run history is disabled")
		return
	}
	run, err := h.store.GetRun(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, state.ErrRunNotFound) {
		writeError(w, r, http.StatusNotFound, "NOT_FOUND", err.Error())
		return
	}
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "HISTORY_ERROR", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, RunResponse{
		ID:        run.ID,
		Question:  run.Question,
		Provider:  run.Provider,
		Model:     run.Model,
		CreatedAt: run.CreatedAt,
		Steps:     run.Steps,
		Results:   run.Results,
	})
}

func (h *handlers) deleteExplanation(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, r, http.StatusNotFound, "HISTORY_DISABLED", "run history is disabled")
		return
	}
	err := h.store.DeleteRun(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, state.ErrRunNotFound) {
		writeError(w, r, http.StatusNotFound, "NOT_FOUND", err.Error())
		return
	}
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "HISTORY_ERROR", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error_code": code,
		"message":    message,
		"request_id": middleware.GetReqID(r.Context()),
	})
}
