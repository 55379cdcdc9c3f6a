package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/playperu/spotguess/internal/session"
	"github.com/playperu/spotguess/internal/spotguess"
	"github.com/playperu/spotguess/internal/viewport"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func readJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// statusFor maps session errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrWrongPhase):
		return http.StatusConflict
	case errors.Is(err, session.ErrCatalogUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, session.ErrPrecondition),
		errors.Is(err, session.ErrNoMapSelected),
		errors.Is(err, session.ErrUnknownMap),
		errors.Is(err, session.ErrOutsideImage),
		errors.Is(err, session.ErrNoHintsLeft),
		errors.Is(err, session.ErrNoHintPrompt),
		errors.Is(err, viewport.ErrNotReady):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeSessionError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	writeError(w, status, msg)
}

// redact hides the answer while it can still be guessed: the spot's map,
// its correct points, and the image tiers not yet unlocked. CurrentImage
// carries the tier in use.
func redact(s session.Snapshot) session.Snapshot {
	if s.CurrentSpot == nil {
		return s
	}
	switch s.Phase {
	case spotguess.PhasePlaying, spotguess.PhaseLoading:
		s.CurrentSpot = &spotguess.Spot{ID: s.CurrentSpot.ID}
	}
	return s
}
