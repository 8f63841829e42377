package transport

import (
	"errors"
	"net"
	"time"

	"github.com/otcollab/otsync/internal/pipeline"
	"github.com/otcollab/otsync/internal/transform"
	"github.com/otcollab/otsync/internal/wire"
)

// HandleConnection owns one accepted connection end to end: registration,
// the initial sync-snapshot, spawning the writer goroutine, and running
// the reader loop inline until disconnect. It never returns an error —
// every failure path is a local teardown of this one connection.
func (s *Server) HandleConnection(conn net.Conn) {
	clientID := NewClientID()
	entry := s.registry.Register(clientID, conn, s.cfg.OutboundQueue)
	s.metrics.ConnectionsActive.Inc()
	s.metrics.ConnectionsTotal.Inc()
	s.logger.Infow("client connected", "client_id", clientID, "remote_addr", conn.RemoteAddr())

	defer func() {
		s.registry.Remove(clientID)
		entry.Close()
		s.metrics.ConnectionsActive.Dec()
		s.logger.Infow("client disconnected", "client_id", clientID)
	}()

	if err := s.sendInitialSnapshot(entry); err != nil {
		s.logger.Warnw("sending initial snapshot failed", "client_id", clientID, "error", err)
		return
	}

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writeLoop(entry)
	}()

	s.readLoop(entry)

	// The reader exiting means the connection is already unusable; Close
	// wakes the writer whether it's blocked on the socket or idling on
	// an empty outbound queue, then we wait for it to exit.
	entry.Close()
	<-writerDone
}

func (s *Server) sendInitialSnapshot(entry *Entry) error {
	content, version := s.pipeline.Doc.Snapshot()
	payload, err := wire.EncodeSyncDocument(wire.SyncDocumentMessage{
		DocID:   s.pipeline.Doc.ID,
		Content: content,
		Version: version,
	})
	if err != nil {
		return err
	}
	return wire.WriteFrameLimit(entry.Conn, payload, s.cfg.MaxPayloadBytes)
}

// writeLoop drains entry's outbound queue onto the socket until the
// entry is closed or a write fails.
func (s *Server) writeLoop(entry *Entry) {
	for {
		select {
		case <-entry.done:
			return
		case payload := <-entry.Outbound:
			if err := wire.WriteFrameLimit(entry.Conn, payload, s.cfg.MaxPayloadBytes); err != nil {
				s.logger.Debugw("write failed, dropping connection", "client_id", entry.ClientID, "error", err)
				return
			}
		}
	}
}

// readLoop decodes frames from entry's connection and dispatches them
// until EOF, a read error, or a framing violation. Operations are run
// through the pipeline; pongs touch the entry's activity clock directly
// since the reader owns the only reference to the frame that carried
// them. Structural and future-version rejections are logged and do not
// terminate the connection, matching the pipeline's failure semantics.
func (s *Server) readLoop(entry *Entry) {
	for {
		payload, err := wire.ReadFrameLimit(entry.Conn, s.cfg.MaxPayloadBytes)
		if err != nil {
			s.logger.Debugw("connection closed", "client_id", entry.ClientID, "error", err)
			return
		}
		entry.Touch()
		if payload == nil {
			continue // zero-length frame: accepted no-op
		}

		decoded, err := wire.Decode(payload)
		if err != nil {
			s.metrics.FramesDecodeErrorsTotal.Inc()
			s.logger.Warnw("dropping connection on malformed envelope", "client_id", entry.ClientID, "error", err)
			return
		}

		switch decoded.Type {
		case wire.TypeOperation:
			s.handleOperation(entry, decoded.Operation)
		case wire.TypePong:
			// Touch already recorded above; nothing further to do.
		default:
			// Sync-document and ping frames arriving from a client are
			// ignored: this core only ever sends them, never expects them.
		}
	}
}

func (s *Server) handleOperation(entry *Entry, msg wire.OperationMessage) {
	msg.ClientID = entry.ClientID
	op, err := wire.MessageToOp(msg)
	if err != nil {
		s.metrics.ObserveRejection("malformed_operation")
		s.logger.Warnw("rejecting malformed operation", "client_id", entry.ClientID, "error", err)
		return
	}

	started := time.Now()
	result, err := s.pipeline.Apply(msg.DocID, op)
	if err != nil {
		reason := rejectionReason(err)
		s.metrics.ObserveRejection(reason)
		s.logger.Infow("operation rejected", "client_id", entry.ClientID, "reason", reason, "error", err)
		return
	}
	if !result.Applied {
		return // collapsed to Noop: no log entry, no broadcast
	}
	s.metrics.ObserveApply(result.Op.Kind.String(), time.Since(started))

	payload, err := wire.EncodeSyncDocument(wire.SyncDocumentMessage{
		DocID:   s.pipeline.Doc.ID,
		Content: result.Content,
		Version: result.Version,
	})
	if err != nil {
		s.logger.Errorw("encoding sync-document snapshot failed", "error", err)
		return
	}
	s.Broadcast(entry.ClientID, payload)
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, pipeline.ErrFutureVersion):
		return "future_version"
	case errors.Is(err, pipeline.ErrInvalidData):
		return "invalid_data"
	default:
		return "internal_error"
	}
}

