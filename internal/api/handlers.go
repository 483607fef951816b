package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"tasker/internal/models"
	"tasker/internal/service"

	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "invalid JSON body")
		return false
	}
	if details := validateStruct(v); details != nil {
		writeValidation(w, details)
		return false
	}
	return true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	failed := map[string]string{}
	for _, hc := range s.deps.Health {
		if err := hc.Check(r.Context()); err != nil {
			failed[hc.Name] = err.Error()
		}
	}
	if len(failed) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "degraded", "failed": failed})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleServices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"services": s.deps.Catalog.Entries()})
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	var in models.SelectionInput
	if !decodeJSON(w, r, &in) {
		return
	}
	quote, err := s.deps.Booking.Quote(r.Context(), in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

type draftRequest struct {
	Step      string                `json:"step"`
	Selection models.SelectionInput `json:"selection"`
}

func (s *Server) handleGetDraft(w http.ResponseWriter, r *http.Request) {
	draft, err := s.deps.Drafts.GetDraft(r.Context(), sessionKey(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if draft == nil {
		writeError(w, http.StatusNotFound, codeNotFound, "no booking in progress")
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

func (s *Server) handleSaveDraft(w http.ResponseWriter, r *http.Request) {
	var req draftRequest
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "invalid JSON body")
		return
	}
	// черновик может быть неполным, поэтому без validateStruct

	draft, err := s.deps.Drafts.SaveDraft(r.Context(), sessionKey(r), req.Step, req.Selection)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

func (s *Server) handleClearDraft(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Drafts.ClearDraft(r.Context(), sessionKey(r)); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleQuoteDraft(w http.ResponseWriter, r *http.Request) {
	quote, err := s.deps.Booking.QuoteDraft(r.Context(), sessionKey(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var in models.SelectionInput
	if !decodeJSON(w, r, &in) {
		return
	}
	sub, err := s.deps.Booking.Submit(r.Context(), sessionKey(r), in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (s *Server) handleClientJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.deps.Jobs.ClientJobs(r.Context(), r.URL.Query().Get("tab"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	s.perform(w, r, models.RoleClient, models.ActionCancel, nil)
}

func (s *Server) handleRate(w http.ResponseWriter, r *http.Request) {
	var rating models.Rating
	if !decodeJSON(w, r, &rating) {
		return
	}
	s.perform(w, r, models.RoleClient, models.ActionRate, &rating)
}

func (s *Server) handleWorkerJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.deps.Jobs.WorkerJobs(r.Context(), r.URL.Query().Get("tab"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

func (s *Server) handleWorkerHistory(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.deps.Jobs.WorkerHistory(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	dash, err := s.deps.Jobs.Dashboard(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dash)
}

func (s *Server) handleWorkerAction(w http.ResponseWriter, r *http.Request) {
	action, err := models.ParseAction(chi.URLParam(r, "action"))
	if err != nil || (action != models.ActionReceive && action != models.ActionStart && action != models.ActionComplete) {
		writeError(w, http.StatusNotFound, codeNotFound, "unknown worker action")
		return
	}
	s.perform(w, r, models.RoleWorker, action, nil)
}

func (s *Server) perform(w http.ResponseWriter, r *http.Request, role models.Role, action models.Action, rating *models.Rating) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "job id is required")
		return
	}

	res, err := s.deps.Jobs.Perform(r.Context(), role, id, action, rating)
	if err != nil {
		if res == nil {
			s.writeServiceError(w, r, err)
			return
		}
		status, body := classify(err)
		body.NeedsRefresh = res.NeedsRefresh
		s.log(r).Warn().Err(err).Str("job_id", id).Str("action", string(action)).Msg("job action rejected by backend")
		writeJSON(w, status, map[string]any{"error": body, "job": res.Job})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	month, err := s.deps.Reports.ParseMonth(r.URL.Query().Get("month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
		return
	}

	path, err := s.deps.Reports.WorkerReport(r.Context(), month)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	defer func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.log(r).Warn().Err(err).Str("file_path", path).Msg("failed to remove report file")
		}
	}()

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
	http.ServeFile(w, r, path)
}

var _ Booking = (*service.BookingService)(nil)
var _ Jobs = (*service.JobService)(nil)
var _ Reports = (*service.ReportService)(nil)
