package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/playperu/spotguess/internal/session"
	"github.com/playperu/spotguess/internal/spotguess"
	"github.com/playperu/spotguess/internal/viewport"
)

// WSCommand is a client message on the session socket. Type selects the
// command; the other fields are read as the command needs them.
type WSCommand struct {
	Type      string          `json:"type"`
	MapID     string          `json:"mapId,omitempty"`
	Container spotguess.Size  `json:"container,omitempty"`
	Natural   spotguess.Size  `json:"natural,omitempty"`
	Event     *viewport.Event `json:"event,omitempty"`
	X         float64         `json:"x,omitempty"`
	Y         float64         `json:"y,omitempty"`
}

// WSMessage is a server message: a forwarded session Event, a "snapshot"
// reply to a command, or an "error" reply.
type WSMessage struct {
	Event
	Error  string `json:"error,omitempty"`
	Status int    `json:"status,omitempty"`
}

const (
	wsSnapshot = "snapshot"
	wsError    = "error"
)

// handleWS drives a session over one socket. Every command is answered with
// a snapshot or an error; session events are forwarded as they happen. Each
// received message keeps the session from being swept as idle.
func handleWS(logger *slog.Logger, broker *Broker, reg *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := sessionFrom(r)

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			logger.Error("websocket accept failed", "error", err)
			return
		}
		defer conn.CloseNow()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		ch := broker.Subscribe(s.ID())
		defer broker.Unsubscribe(s.ID(), ch)

		go func() {
			defer cancel()
			for {
				select {
				case <-ctx.Done():
					return
				case data, ok := <-ch:
					if !ok {
						conn.Close(websocket.StatusGoingAway, "session closed")
						return
					}
					if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
						logger.Debug("websocket write failed", "error", err)
						return
					}
				}
			}
		}()

		first := snapshotMessage(s)
		if err := wsjson.Write(ctx, conn, first); err != nil {
			logger.Debug("websocket write failed", "error", err)
			return
		}
		if first.Snapshot.Phase == spotguess.PhaseExited {
			// Removed before the subscription; nothing more will arrive.
			conn.Close(websocket.StatusGoingAway, "session closed")
			return
		}

		for {
			_, msg, err := conn.Read(ctx)
			if err != nil {
				logger.Debug("websocket read ended", "session", s.ID(), "error", err)
				return
			}
			reg.Touch(s.ID())

			if err := wsjson.Write(ctx, conn, applyCommand(s, msg)); err != nil {
				logger.Debug("websocket write failed", "error", err)
				return
			}
		}
	}
}

func snapshotMessage(s *session.Session) WSMessage {
	snap := redact(s.Snapshot())
	return WSMessage{Event: Event{Type: wsSnapshot, Snapshot: &snap}}
}

func errorMessage(status int, msg string) WSMessage {
	return WSMessage{Event: Event{Type: wsError}, Error: msg, Status: status}
}

func applyCommand(s *session.Session, msg []byte) WSMessage {
	var cmd WSCommand
	if err := json.Unmarshal(msg, &cmd); err != nil {
		return errorMessage(http.StatusBadRequest, "invalid message")
	}

	var err error
	switch cmd.Type {
	case wsSnapshot:
	case "select_map":
		err = s.SelectMap(cmd.MapID)
	case "viewport":
		err = s.LayoutViewport(cmd.Container, cmd.Natural)
	case "input":
		if cmd.Event == nil {
			return errorMessage(http.StatusBadRequest, "input needs an event")
		}
		err = s.Input(*cmd.Event)
	case "guess":
		err = s.PlaceGuess(spotguess.Point{X: cmd.X, Y: cmd.Y})
	case "submit":
		err = s.SubmitGuess()
	case "hint":
		err = requestHint(s)
	case "hint_confirm":
		err = s.ConfirmHint()
	case "hint_cancel":
		err = s.CancelHint()
	case "advance":
		err = s.AdvanceRound()
	default:
		return errorMessage(http.StatusBadRequest, fmt.Sprintf("unknown command %q", cmd.Type))
	}

	if err != nil {
		if !isSessionError(err) {
			return errorMessage(http.StatusBadRequest, err.Error())
		}
		return errorMessage(statusFor(err), err.Error())
	}
	return snapshotMessage(s)
}
