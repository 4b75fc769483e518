package server

import (
	"time"

	"ircchat/internal/protocol"
)

// heartbeatLoop broadcasts HEART_BEAT to every session at the configured
// interval until shutdown. Clients consume heartbeats only to keep their
// read deadline fed; a failed write doubles as disconnect detection.
func (s *Server) heartbeatLoop() {
	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			for _, dead := range s.router.BroadcastAll(protocol.Message{Op: protocol.OpHeartBeat}) {
				go s.dropSession(dead)
			}
		case <-s.done:
			return
		}
	}
}
