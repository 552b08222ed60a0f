package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/coder/websocket"

	"github.com/MrWong99/intervox/internal/orchestrator"
)

// Client-to-server channel events.
const (
	eventJoin          = "join"
	eventEndAnswer     = "end-answer"
	eventProctorUpdate = "proctor-update"

	// eventProctorStatus is the rebroadcast of a proctor-update to the room.
	eventProctorStatus = "proctor-status"
)

type joinPayload struct {
	InterviewID string `json:"interviewId"`
}

// handleInterviewWS upgrades the connection and runs its read loop. Text
// frames carry JSON envelopes, binary frames carry raw audio for the joined
// session's current turn.
func (s *Server) handleInterviewWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.originPatterns,
	})
	if err != nil {
		s.log.Warn("websocket accept failed", "error", err, "remote", r.RemoteAddr)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	// Answers can be minutes of audio; chunks themselves stay small, but
	// allow headroom over the library default.
	conn.SetReadLimit(1 << 20)

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	go c.writeLoop()
	defer close(c.send)
	defer s.hub.leave(c)

	s.readLoop(r.Context(), c)
}

func (s *Server) readLoop(ctx context.Context, c *client) {
	for {
		typ, data, err := c.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == -1 && !errors.Is(err, io.EOF) && ctx.Err() == nil {
				s.log.Debug("websocket read ended", "error", err)
			}
			return
		}

		switch typ {
		case websocket.MessageBinary:
			if id := c.session(); id != "" {
				s.orch.AudioChunk(id, data)
			}
		case websocket.MessageText:
			s.handleEvent(ctx, c, data)
		}
	}
}

func (s *Server) handleEvent(ctx context.Context, c *client, data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		s.log.Debug("malformed channel event", "error", err)
		return
	}

	switch env.Event {
	case eventJoin:
		var p joinPayload
		if err := json.Unmarshal(env.Data, &p); err != nil || p.InterviewID == "" {
			s.hub.notifyTo(c, orchestrator.EventSessionMissing, struct{}{})
			return
		}
		s.hub.join(c, p.InterviewID)
		s.orch.Join(p.InterviewID)

	case eventEndAnswer:
		id := c.session()
		if id == "" {
			s.hub.notifyTo(c, orchestrator.EventSessionMissing, struct{}{})
			return
		}
		// The grace wait and the pipeline calls run here, off the read
		// loop, so the connection keeps draining frames meanwhile.
		go s.orch.EndAnswer(context.WithoutCancel(ctx), id)

	case eventProctorUpdate:
		// Pass-through: the server attaches no meaning to proctor metadata.
		if id := c.session(); id != "" {
			s.hub.Notify(id, eventProctorStatus, env.Data)
		}

	default:
		s.log.Debug("unknown channel event", "event", env.Event)
	}
}
