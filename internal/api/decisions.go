package api

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/TimurManjosov/pawswipe/internal/audit"
	"github.com/TimurManjosov/pawswipe/internal/session"
	"github.com/TimurManjosov/pawswipe/internal/store"
	"github.com/TimurManjosov/pawswipe/internal/validation"
)

const (
	formatJSON  = "json"
	formatJSONL = "jsonl"
	formatCSV   = "csv"

	defaultAuditLimit = 100
)

type listDecisionsResponse struct {
	Decisions []store.Decision `json:"decisions"`
	Count     int              `json:"count"`
}

type listSessionsResponse struct {
	Sessions []session.Info `json:"sessions"`
	Count    int            `json:"count"`
}

type reloadResponse struct {
	Reloaded int    `json:"reloaded"`
	Error    string `json:"error,omitempty"`
}

type listAuditResponse struct {
	Events []audit.Event `json:"events"`
	Count  int           `json:"count"`
}

// exportFormat reads ?format=, defaulting to a plain JSON envelope ("").
func exportFormat(w http.ResponseWriter, r *http.Request) (string, bool) {
	format := r.URL.Query().Get("format")
	switch format {
	case "", formatJSON, formatJSONL, formatCSV:
		return format, true
	}
	ValidationError(w, r, "Invalid format", map[string]string{
		"format": "Format must be csv, json, or jsonl",
	})
	return "", false
}

// handleListDecisions lists recorded decisions, newest first (readonly+)
func (s *Server) handleListDecisions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result, query := validation.ValidateDecisionQuery(validation.DecisionQueryParams{
		SessionID: q.Get("session"),
		Outcome:   q.Get("outcome"),
		Limit:     q.Get("limit"),
	})
	if validationFailed(w, r, result) {
		return
	}
	format, ok := exportFormat(w, r)
	if !ok {
		return
	}

	decisions, err := s.store.ListDecisions(r.Context(), query)
	if err != nil {
		s.log.Error().Err(err).Msg("list decisions")
		InternalError(w, r, "Failed to list decisions")
		return
	}
	if decisions == nil {
		decisions = []store.Decision{}
	}

	switch format {
	case formatCSV:
		rows := make([][]string, 0, len(decisions))
		for _, d := range decisions {
			rows = append(rows, []string{d.ID, d.SessionID, d.CandidateID, d.Outcome, d.DecidedAt.Format(time.RFC3339Nano)})
		}
		exportCSV(w, "decisions.csv", []string{"ID", "SessionID", "CandidateID", "Outcome", "DecidedAt"}, rows)
	case formatJSON:
		exportJSON(w, "decisions.json", decisions)
	case formatJSONL:
		exportJSONL(w, "decisions.jsonl", decisions)
	default:
		writeJSON(w, http.StatusOK, listDecisionsResponse{Decisions: decisions, Count: len(decisions)})
	}
}

// handleGetDecision returns one decision by id (readonly+)
func (s *Server) handleGetDecision(w http.ResponseWriter, r *http.Request) {
	d, err := s.store.GetDecision(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrDecisionNotFound) {
		NotFoundError(w, r, ErrCodeDecisionNotFound, "Decision not found")
		return
	}
	if err != nil {
		s.log.Error().Err(err).Msg("get decision")
		InternalError(w, r, "Failed to load decision")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// ---- admin ----

// handleAdminListSessions describes every live session (admin)
func (s *Server) handleAdminListSessions(w http.ResponseWriter, r *http.Request) {
	infos := s.sessions.List()
	writeJSON(w, http.StatusOK, listSessionsResponse{Sessions: infos, Count: len(infos)})
}

// handleAdminReload rebuilds every session's deck from the catalog (admin)
func (s *Server) handleAdminReload(w http.ResponseWriter, r *http.Request) {
	n, err := s.sessions.ReloadAll(r.Context())
	resp := reloadResponse{Reloaded: n}
	status := audit.StatusSuccess
	if err != nil {
		resp.Error = err.Error()
		status = audit.StatusFailure
	}
	s.recordAudit(r, audit.Event{
		Action:       audit.ActionReloaded,
		ResourceType: audit.ResourceTypeCatalog,
		Status:       status,
		Details:      map[string]any{"sessions": n},
	})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleAdminAudit returns recent audit events, newest first (admin)
func (s *Server) handleAdminAudit(w http.ResponseWriter, r *http.Request) {
	limit := defaultAuditLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 1 || n > 1000 {
			ValidationError(w, r, "Invalid limit", map[string]string{"limit": "Limit must be between 1 and 1000"})
			return
		}
		limit = n
	}
	format, ok := exportFormat(w, r)
	if !ok {
		return
	}

	events := []audit.Event{}
	if s.auditLog != nil {
		events = s.auditLog.Recent(limit)
	}

	switch format {
	case formatCSV:
		rows := make([][]string, 0, len(events))
		for _, e := range events {
			rows = append(rows, []string{
				e.ID, e.OccurredAt.Format(time.RFC3339), e.Action, e.ResourceType, e.ResourceID,
				e.Actor, e.IPAddress, e.RequestID, e.Status,
			})
		}
		exportCSV(w, "audit-logs.csv",
			[]string{"ID", "Timestamp", "Action", "ResourceType", "ResourceID", "Actor", "IPAddress", "RequestID", "Status"},
			rows)
	case formatJSON:
		exportJSON(w, "audit-logs.json", events)
	case formatJSONL:
		exportJSONL(w, "audit-logs.jsonl", events)
	default:
		writeJSON(w, http.StatusOK, listAuditResponse{Events: events, Count: len(events)})
	}
}

// ---- exporters ----

// exportCSV writes rows as CSV using proper CSV encoding
func exportCSV(w http.ResponseWriter, filename string, header []string, rows [][]string) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)

	csvWriter := csv.NewWriter(w)
	defer csvWriter.Flush()

	if err := csvWriter.Write(header); err != nil {
		// Header already sent, nothing left to report to the client.
		return
	}
	for _, row := range rows {
		if err := csvWriter.Write(row); err != nil {
			return
		}
	}
}

// exportJSON writes items as one JSON array
func exportJSON[T any](w http.ResponseWriter, filename string, items []T) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	_ = json.NewEncoder(w).Encode(items)
}

// exportJSONL writes items as JSON Lines (one JSON object per line)
func exportJSONL[T any](w http.ResponseWriter, filename string, items []T) {
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)

	encoder := json.NewEncoder(w)
	for _, item := range items {
		if err := encoder.Encode(item); err != nil {
			return
		}
	}
}
