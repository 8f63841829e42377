package transport

import (
	"context"
	"errors"
	"net"
)

// ErrRegistryFull names the condition under which an accepted connection
// is rejected because the registry is already at MaxClients. Serve does
// not return it: it logs the rejection and closes the connection.
var ErrRegistryFull = errors.New("transport: registry at capacity")

// Serve runs the accept loop on ln until ctx is cancelled or Accept
// returns an error. Each admitted connection is handled in its own
// goroutine via HandleConnection.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			return err
		}

		if s.registry.Len() >= s.cfg.MaxClients {
			s.metrics.ConnectionsRejected.Inc()
			s.logger.Warnw("rejecting connection: registry full", "remote_addr", conn.RemoteAddr(), "max_clients", s.cfg.MaxClients)
			_ = conn.Close()
			continue
		}

		go s.HandleConnection(conn)
	}
}
