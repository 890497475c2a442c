package server

import (
	"context"
	"net/http"
	"strings"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"dubsy/internal/logging"
	"dubsy/internal/progress"
)

// wsListener forwards progress events to one WebSocket connection.
type wsListener struct {
	conn *websocket.Conn
}

func (l *wsListener) Send(ctx context.Context, event progress.Event) error {
	return wsjson.Write(ctx, l.conn, event)
}

// handleProgress subscribes the connection to a job until the client goes
// away. Client messages are read and discarded to detect disconnects.
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	jobID := strings.TrimSpace(r.PathValue("job_id"))
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		s.logger.Warn("websocket accept failed", logging.Error(err))
		return
	}
	defer conn.CloseNow()

	if s.broadcaster != nil {
		listener := &wsListener{conn: conn}
		s.broadcaster.Subscribe(jobID, listener)
		defer s.broadcaster.Unsubscribe(jobID, listener)
	}
	s.logger.Debug("progress subscriber connected", logging.String(logging.FieldJobID, jobID))

	ctx := r.Context()
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			break
		}
	}
	s.logger.Debug("progress subscriber disconnected", logging.String(logging.FieldJobID, jobID))
}
