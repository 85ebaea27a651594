package server

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/ziadkadry99/notedraft/internal/history"
	"github.com/ziadkadry99/notedraft/internal/pipeline"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// streamMessage is the outgoing websocket message format.
type streamMessage struct {
	Type         string          `json:"type"` // "attempt", "result" or "error"
	RunID        string          `json:"run_id,omitempty"`
	Attempt      int             `json:"attempt,omitempty"`
	State        string          `json:"state,omitempty"`
	Error        string          `json:"error,omitempty"`
	Output       pipeline.Record `json:"output,omitempty"`
	Raw          string          `json:"raw,omitempty"`
	ArtifactPath string          `json:"artifact_path,omitempty"`
}

// handleStream drafts one note per incoming message and reports each
// attempt as it finishes.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade")
		return
	}
	defer conn.Close()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Msg("websocket read")
			}
			return
		}

		var req draftRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			send(conn, streamMessage{Type: "error", Error: "invalid message format"})
			continue
		}
		in, level, flags, err := req.parse()
		if err != nil {
			send(conn, streamMessage{Type: "error", Error: err.Error()})
			continue
		}

		progress := pipeline.ObserverFunc(func(a pipeline.Attempt) {
			send(conn, streamMessage{Type: "attempt", Attempt: a.Index, State: a.State.String(), Error: a.Err})
		})
		res, runID, err := s.draft(r.Context(), history.SourceHTTP, in, level, flags, progress)
		if err != nil {
			_, body := errorStatus(err)
			send(conn, streamMessage{Type: "error", RunID: runID, Error: body.Error, ArtifactPath: body.ArtifactPath})
			continue
		}
		send(conn, streamMessage{Type: "result", RunID: runID, Output: res.Record, Raw: res.Raw})
	}
}

func send(conn *websocket.Conn, m streamMessage) {
	if err := conn.WriteJSON(m); err != nil {
		log.Warn().Err(err).Msg("websocket write")
	}
}
