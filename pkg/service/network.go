package service

import (
	"github.com/waqiti/realtime-go/pkg/connection"
	"github.com/waqiti/realtime-go/pkg/netmon"
)

func (s *RealtimeService) handleReachability(from, to netmon.Reachability) {
	s.metrics.NetworkReachable(to == netmon.Reachable)
	if to != netmon.Reachable {
		s.logger.Info("network unreachable")
		return
	}
	s.NetworkRestored()
}

// NetworkRestored skips the pending backoff and reconnects at once when the
// connection was lost and credentials are still present. It is called by
// the configured netmon.Monitor; hosts with their own connectivity source
// may call it directly.
func (s *RealtimeService) NetworkRestored() {
	if s.manager.IsConnected() {
		return
	}
	if _, _, ok := s.credentials(); !ok {
		return
	}
	switch s.manager.State() {
	case connection.StateReconnecting, connection.StateFailed:
		if s.manager.ReconnectNow() {
			s.logger.Info("network restored, reconnecting now")
		}
	}
}
