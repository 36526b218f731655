package server

import (
	"net/http"
	"time"

	"ccmonitor/cli/internal/monitor"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// snapshotType tags the first message on a new event stream.
const snapshotType = "snapshot"

type snapshotMsg struct {
	Type    string          `json:"type"`
	Entries []monitor.Entry `json:"entries"`
}

// events upgrades to a websocket and streams engine events until either side
// closes. The first message is a snapshot of the current result set.
func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.d.Log.Debug("websocket upgrade failed", s.d.Log.Args("error", err.Error()))
		return
	}
	defer conn.Close()

	ctx := r.Context()
	sub, cancel, err := s.d.Engine.Subscribe(ctx)
	if err != nil {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "monitor stopped"))
		return
	}
	defer cancel()

	entries, err := s.d.Engine.Entries(ctx)
	if err != nil {
		return
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(snapshotMsg{Type: snapshotType, Entries: entries}); err != nil {
		return
	}

	// the read loop only notices the client going away
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			return
		case ev, ok := <-sub:
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "monitor stopped"))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		}
	}
}
