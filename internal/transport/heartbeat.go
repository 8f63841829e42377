package transport

import (
	"context"
	"time"

	"github.com/otcollab/otsync/internal/wire"
)

// RunHeartbeat evicts idle clients and pings the rest every
// HeartbeatIntervalMS until ctx is cancelled. It is meant to run in its
// own goroutine for the lifetime of the server.
func (s *Server) RunHeartbeat(ctx context.Context) {
	interval := time.Duration(s.cfg.HeartbeatIntervalMS) * time.Millisecond
	timeout := time.Duration(s.cfg.ClientTimeoutMS) * time.Millisecond

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(timeout)
		}
	}
}

func (s *Server) tick(timeout time.Duration) {
	seq := s.nextPingSeq()
	ping := wire.EncodePing(seq)

	for _, entry := range s.registry.Snapshot() {
		if entry.IdleFor() > timeout {
			s.registry.Remove(entry.ClientID)
			entry.Close()
			s.metrics.HeartbeatEvictionsTotal.Inc()
			s.logger.Infow("client evicted", "client_id", entry.ClientID, "reason", "heartbeat timeout")
			continue
		}
		if !entry.TryEnqueue(ping) {
			s.evict(entry, "outbound queue full")
		}
	}
}
