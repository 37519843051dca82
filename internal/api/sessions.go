package api

import (
	"errors"
	"net/http"

	"github.com/TimurManjosov/pawswipe/internal/audit"
	"github.com/TimurManjosov/pawswipe/internal/catalog"
	"github.com/TimurManjosov/pawswipe/internal/session"
	"github.com/TimurManjosov/pawswipe/internal/swipe"
	"github.com/TimurManjosov/pawswipe/internal/validation"
)

// ---- DTOs ----

type deckRequest struct {
	Filter  catalog.Filter `json:"filter"`
	Shuffle bool           `json:"shuffle"`
}

type createSessionResponse struct {
	ID    string      `json:"id"`
	Frame swipe.Frame `json:"frame"`
}

type commitRequest struct {
	Outcome string `json:"outcome"`
}

type commitResponse struct {
	Accepted bool        `json:"accepted"`
	Frame    swipe.Frame `json:"frame"`
}

type pointerRequest struct {
	Type string  `json:"type"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// ---- handlers ----

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req deckRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if validationFailed(w, r, validation.ValidateFilter(req.Filter)) {
		return
	}

	sess, err := s.sessions.Create(r.Context(), session.CreateOptions{Filter: req.Filter, Shuffle: req.Shuffle})
	if err != nil {
		s.writeSessionError(w, r, err)
		return
	}

	frame := sess.Frame()
	s.recordAudit(r, audit.Event{
		Action:       audit.ActionCreated,
		ResourceType: audit.ResourceTypeSession,
		ResourceID:   sess.ID(),
		Details:      map[string]any{"deck_size": frame.State.DeckSize, "shuffle": req.Shuffle},
	})
	writeJSON(w, http.StatusCreated, createSessionResponse{ID: sess.ID(), Frame: frame})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionFrom(r).Info())
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	if err := s.sessions.Delete(sess.ID()); err != nil {
		s.writeSessionError(w, r, err)
		return
	}
	s.recordAudit(r, audit.Event{
		Action:       audit.ActionDeleted,
		ResourceType: audit.ResourceTypeSession,
		ResourceID:   sess.ID(),
	})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReloadDeck(w http.ResponseWriter, r *http.Request) {
	var req deckRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if validationFailed(w, r, validation.ValidateFilter(req.Filter)) {
		return
	}

	sess := sessionFrom(r)
	err := s.sessions.Reload(r.Context(), sess.ID(), session.CreateOptions{Filter: req.Filter, Shuffle: req.Shuffle})
	if err != nil {
		s.writeSessionError(w, r, err)
		return
	}

	info := sess.Info()
	s.recordAudit(r, audit.Event{
		Action:       audit.ActionReloaded,
		ResourceType: audit.ResourceTypeDeck,
		ResourceID:   sess.ID(),
		Details:      map[string]any{"deck_size": info.Frame.State.DeckSize},
	})
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	var req commitRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, outcome := validation.ValidateOutcome(req.Outcome)
	if validationFailed(w, r, result) {
		return
	}

	sess := sessionFrom(r)
	if !sess.Commit(outcome) {
		ConflictError(w, r, ErrCodeSwipeDropped, "Swipe dropped: a transition is in flight or the deck is empty")
		return
	}
	writeJSON(w, http.StatusAccepted, commitResponse{Accepted: true, Frame: sess.Frame()})
}

func (s *Server) handlePointer(w http.ResponseWriter, r *http.Request) {
	var req pointerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if validationFailed(w, r, validation.ValidatePointer(validation.PointerParams{Type: req.Type, X: req.X, Y: req.Y})) {
		return
	}

	if err := sessionFrom(r).Pointer(req.Type, req.X, req.Y); err != nil {
		BadRequestError(w, r, ErrCodeValidation, err.Error())
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// writeSessionError maps manager and filter errors to responses.
func (s *Server) writeSessionError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		NotFoundError(w, r, ErrCodeSessionNotFound, "Session not found")
	case errors.Is(err, catalog.ErrInvalidExpr), errors.Is(err, catalog.ErrInvalidLogic):
		BadRequestError(w, r, ErrCodeInvalidFilter, err.Error())
	case errors.Is(err, session.ErrManagerClosed):
		errResp := NewErrorResponse(http.StatusServiceUnavailable, ErrCodeInternal, "Server is shutting down")
		writeErrorResponse(w, r, http.StatusServiceUnavailable, errResp)
	default:
		s.log.Error().Err(err).Str("path", r.URL.Path).Msg("session operation failed")
		InternalError(w, r, "Session operation failed")
	}
}
