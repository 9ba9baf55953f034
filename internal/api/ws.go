// internal/api/ws.go
package api

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// writeWait bounds a single websocket write so one stuck client cannot
// pin its handler goroutine.
const writeWait = 10 * time.Second

// handleStateStream upgrades the connection and pushes the /api/state
// payload: one snapshot immediately, then one per dashboard refresh
// tick, until the client goes away.
func (s *Server) handleStateStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("Websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	remote := conn.RemoteAddr().String()
	s.logger.Debug("Websocket client connected", zap.String("remote", remote))

	// Reader goroutine: the stream is one-way, but control frames still
	// have to be consumed to notice the close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.refresh)
	defer ticker.Stop()

	for {
		if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			return
		}
		if err := conn.WriteJSON(s.statePayload()); err != nil {
			s.logger.Debug("Websocket client disconnected",
				zap.String("remote", remote), zap.Error(err))
			return
		}

		select {
		case <-closed:
			s.logger.Debug("Websocket client disconnected", zap.String("remote", remote))
			return
		case <-ticker.C:
		}
	}
}
