package transport

// Broadcast hands payload to every registered client except origin,
// attempting a non-blocking enqueue on each. A client whose outbound
// queue is full is evicted — dropped from the registry and its
// connection closed — rather than letting the broadcaster block on a
// slow consumer.
func (s *Server) Broadcast(origin string, payload []byte) {
	for _, entry := range s.registry.Snapshot() {
		if entry.ClientID == origin {
			continue
		}
		if !entry.TryEnqueue(payload) {
			s.evict(entry, "outbound queue full")
		}
	}
}

// evict removes entry from the registry and closes its connection,
// which unblocks both its reader and writer goroutines so they can
// exit on their own.
func (s *Server) evict(entry *Entry, reason string) {
	s.registry.Remove(entry.ClientID)
	entry.Close()
	s.metrics.ObserveEviction(reason)
	s.logger.Infow("client evicted", "client_id", entry.ClientID, "reason", reason)
}
