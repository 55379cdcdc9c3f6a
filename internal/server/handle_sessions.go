package server

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/playperu/spotguess/internal/session"
	"github.com/playperu/spotguess/internal/spotguess"
	"github.com/playperu/spotguess/internal/viewport"
)

type CreateSessionRequest struct {
	TotalRounds  int `json:"totalRounds,omitempty"`
	RoundSeconds int `json:"roundSeconds,omitempty"`
}

type SelectMapRequest struct {
	MapID string `json:"mapId"`
}

type ViewportRequest struct {
	Container spotguess.Size `json:"container"`
	// Natural may be left out when the map has a stored size.
	Natural spotguess.Size `json:"natural"`
}

// GuessRequest is a pointer position relative to the map container.
type GuessRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func handleCreateSession(logger *slog.Logger, reg *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateSessionRequest
		if err := readJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.TotalRounds < 0 || req.RoundSeconds < 0 {
			writeError(w, http.StatusBadRequest, "totalRounds and roundSeconds must not be negative")
			return
		}

		s, err := reg.Create(r.Context(), req.TotalRounds, req.RoundSeconds)
		if err != nil {
			logger.Error("creating session", "error", err)
			writeSessionError(w, err)
			return
		}

		w.Header().Set("Location", "/api/sessions/"+s.ID())
		writeJSON(w, http.StatusCreated, redact(s.Snapshot()))
	}
}

func handleGetSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, redact(sessionFrom(r).Snapshot()))
	}
}

func handleDeleteSession(reg *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := sessionFrom(r)
		if err := reg.Remove(s.ID()); err != nil {
			writeSessionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, redact(s.Snapshot()))
	}
}

// command runs fn against the request's session and answers with the
// resulting snapshot.
func command(fn func(s *session.Session, r *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := sessionFrom(r)
		if err := fn(s, r); err != nil {
			var bad badRequest
			if errors.As(err, &bad) {
				writeError(w, http.StatusBadRequest, bad.Error())
				return
			}
			writeSessionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, redact(s.Snapshot()))
	}
}

type badRequest struct{ msg string }

func (b badRequest) Error() string { return b.msg }

func decode(r *http.Request, v any) error {
	if err := readJSON(r, v); err != nil {
		return badRequest{"invalid request body"}
	}
	return nil
}

func handleSelectMap() http.HandlerFunc {
	return command(func(s *session.Session, r *http.Request) error {
		var req SelectMapRequest
		if err := decode(r, &req); err != nil {
			return err
		}
		return s.SelectMap(req.MapID)
	})
}

func handleLayoutViewport() http.HandlerFunc {
	return command(func(s *session.Session, r *http.Request) error {
		var req ViewportRequest
		if err := decode(r, &req); err != nil {
			return err
		}
		if !req.Container.Valid() {
			return badRequest{"container size must be positive"}
		}
		return s.LayoutViewport(req.Container, req.Natural)
	})
}

func handleInput() http.HandlerFunc {
	return command(func(s *session.Session, r *http.Request) error {
		var ev viewport.Event
		if err := decode(r, &ev); err != nil {
			return err
		}
		err := s.Input(ev)
		if err != nil && !isSessionError(err) {
			// Unknown event kinds are the client's fault.
			return badRequest{err.Error()}
		}
		return err
	})
}

func handlePlaceGuess() http.HandlerFunc {
	return command(func(s *session.Session, r *http.Request) error {
		var req GuessRequest
		if err := decode(r, &req); err != nil {
			return err
		}
		return s.PlaceGuess(spotguess.Point{X: req.X, Y: req.Y})
	})
}

func handleSubmit() http.HandlerFunc {
	return command(func(s *session.Session, _ *http.Request) error { return s.SubmitGuess() })
}

func handleHint() http.HandlerFunc {
	return command(func(s *session.Session, _ *http.Request) error { return requestHint(s) })
}

// requestHint opens the hint prompt. With every hint spent the request is a
// no-op and the unchanged snapshot is returned.
func requestHint(s *session.Session) error {
	if err := s.RequestHint(); !errors.Is(err, session.ErrNoHintsLeft) {
		return err
	}
	return nil
}

func handleHintConfirm() http.HandlerFunc {
	return command(func(s *session.Session, _ *http.Request) error { return s.ConfirmHint() })
}

func handleHintCancel() http.HandlerFunc {
	return command(func(s *session.Session, _ *http.Request) error { return s.CancelHint() })
}

func handleAdvance() http.HandlerFunc {
	return command(func(s *session.Session, _ *http.Request) error { return s.AdvanceRound() })
}

func isSessionError(err error) bool {
	return statusFor(err) != http.StatusInternalServerError
}
