package httpapi

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/MimeLyc/qtube-dashboard/internal/config"
	"github.com/MimeLyc/qtube-dashboard/internal/dashboard"
	"github.com/MimeLyc/qtube-dashboard/internal/jobs"
	"github.com/MimeLyc/qtube-dashboard/internal/remote"
	"github.com/MimeLyc/qtube-dashboard/internal/view"
)

type urlRequest struct {
	URL *string `json:"url"`
}

type selectRequest struct {
	JobID string `json:"job_id"`
}

type formatRequest struct {
	FormatID string `json:"format_id"`
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, s.dash.View())
}

func (s *Server) handleComposeURL(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req urlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == nil {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	s.dash.SetURL(*req.URL)
	writeJSON(w, http.StatusOK, s.dash.View().Compose)
}

// decodeOptionalURL applies a url field, when present, before an action.
// An empty body keeps the compose URL as is.
func (s *Server) decodeOptionalURL(w http.ResponseWriter, r *http.Request) bool {
	if r.ContentLength == 0 {
		return true
	}
	var req urlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return false
	}
	if req.URL != nil {
		s.dash.SetURL(*req.URL)
	}
	return true
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !s.decodeOptionalURL(w, r) {
		return
	}
	preview, err := s.dash.Preview(r.Context())
	if err != nil {
		writeDashboardError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, previewResponse{Preview: preview, Compose: s.dash.View().Compose})
}

type previewResponse struct {
	Preview *jobs.Preview    `json:"preview"`
	Compose view.ComposeForm `json:"compose"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !s.decodeOptionalURL(w, r) {
		return
	}
	resp, err := s.dash.Submit(r.Context())
	if err != nil {
		writeDashboardError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	s.dash.Select(req.JobID)
	writeJSON(w, http.StatusOK, s.dash.View())
}

func (s *Server) handleFormat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req formatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := s.dash.SelectFormat(req.FormatID); err != nil {
		writeDashboardError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.dash.View().Compose)
}

// handleJob serves DELETE /api/jobs/{id}?confirm=true. The browser asks the
// operator first; a request without confirm is refused.
func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jobID := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/api/jobs/"), "/")
	if decoded, err := url.PathUnescape(jobID); err == nil {
		jobID = decoded
	}
	if jobID == "" || strings.Contains(jobID, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	confirmed, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
	resp, err := s.dash.DeleteJob(r.Context(), jobID, func(jobs.Job) bool { return confirmed })
	if err != nil {
		writeDashboardError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleClientSettings(w http.ResponseWriter, r *http.Request) {
	if s.settings == nil {
		writeError(w, http.StatusNotImplemented, "settings store is not configured")
		return
	}

	switch r.Method {
	case http.MethodGet:
		settings, err := s.settings.GetClientSettings()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, settings)
	case http.MethodPut:
		var req config.ClientSettings
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		if err := req.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		saved, err := s.settings.UpdateClientSettings(req)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, saved)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// statusForError maps dashboard error kinds to HTTP status codes. Client
// errors from the job store are passed through.
func statusForError(err error) int {
	switch {
	case dashboard.IsKind(err, dashboard.ErrValidation):
		return http.StatusBadRequest
	case dashboard.IsKind(err, dashboard.ErrNotConfirmed):
		return http.StatusPreconditionRequired
	case dashboard.IsKind(err, dashboard.ErrAction):
		if code := remote.StatusCode(err); code >= 400 && code < 500 {
			return code
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeDashboardError(w http.ResponseWriter, err error) {
	writeError(w, statusForError(err), dashboard.UserMessage(err))
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}
