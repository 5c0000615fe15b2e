package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/callistoworks/parley/internal/negotiation"
	"github.com/callistoworks/parley/internal/observe"
	"github.com/callistoworks/parley/pkg/store"
)

// liveTurnTimeout bounds one scored turn over the socket. It is deliberately
// wider than the judge chain timeout so a slow-but-successful evaluation is
// not cut off mid-turn.
const liveTurnTimeout = 30 * time.Second

// liveEvent is one server-to-client frame on the live socket.
type liveEvent struct {
	// Type is "prompt", "turn", "outcome" or "error".
	Type string `json:"type"`

	Prompt string        `json:"prompt,omitempty"`
	Turn   *turnResponse `json:"turn,omitempty"`
	Error  string        `json:"error,omitempty"`
}

// liveCommand is one client-to-server frame: the player's next response.
type liveCommand struct {
	Response string `json:"response"`
}

// handleLive upgrades to a WebSocket and plays the session interactively:
// the server pushes the current prompt, the client answers, the server pushes
// the scored turn, until an outcome closes the conversation.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	sess, prompt, err := s.sessions.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
		} else {
			s.internalError(w, r, "get session", err)
		}
		return
	}
	if sess.Resolved() {
		writeError(w, http.StatusConflict, "session already resolved")
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		observe.Logger(r.Context()).Warn("websocket accept failed", "session_id", id, "error", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "connection abandoned")

	ctx := r.Context()
	log := observe.Logger(ctx)
	log.Info("live session attached", "session_id", id)

	if err := writeEvent(ctx, conn, liveEvent{Type: "prompt", Prompt: prompt}); err != nil {
		return
	}

	for {
		var cmd liveCommand
		if err := readCommand(ctx, conn, &cmd); err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				log.Debug("live session detached", "session_id", id)
			} else if ctx.Err() == nil {
				log.Warn("live session read failed", "session_id", id, "error", err)
			}
			return
		}

		turnCtx, cancel := context.WithTimeout(ctx, liveTurnTimeout)
		res, _, err := s.sessions.Advance(turnCtx, id, cmd.Response)
		cancel()
		if err != nil {
			if isTurnRejection(err) {
				// The response was unusable; tell the player and keep the
				// socket open for another try.
				if werr := writeEvent(ctx, conn, liveEvent{Type: "error", Error: err.Error()}); werr != nil {
					return
				}
				continue
			}
			log.Error("live session advance failed", "session_id", id, "error", err)
			conn.Close(websocket.StatusInternalError, "turn failed")
			return
		}

		turn := &turnResponse{
			Exchange:   res.Exchange,
			NextPrompt: res.NextPrompt,
			Outcome:    res.Outcome,
		}
		if res.Outcome != nil {
			if err := writeEvent(ctx, conn, liveEvent{Type: "outcome", Turn: turn}); err != nil {
				return
			}
			conn.Close(websocket.StatusNormalClosure, "session resolved")
			return
		}
		if err := writeEvent(ctx, conn, liveEvent{Type: "turn", Turn: turn}); err != nil {
			return
		}
	}
}

// isTurnRejection reports whether err is a per-turn validation failure the
// player can recover from by sending a different response.
func isTurnRejection(err error) bool {
	return errors.Is(err, negotiation.ErrEmptyResponse) ||
		errors.Is(err, negotiation.ErrResponseTooLong)
}

func writeEvent(ctx context.Context, conn *websocket.Conn, ev liveEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}

func readCommand(ctx context.Context, conn *websocket.Conn, cmd *liveCommand) error {
	_, data, err := conn.Read(ctx)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, cmd)
}
