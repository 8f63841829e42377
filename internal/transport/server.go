package transport

import (
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/otcollab/otsync/internal/metrics"
	"github.com/otcollab/otsync/internal/pipeline"
	"github.com/otcollab/otsync/pkg/otlog"
)

// Config holds the tunables the transport layer needs; internal/config
// is responsible for sourcing these from flags, env, and .env files.
type Config struct {
	MaxClients         int
	ClientTimeoutMS    int
	HeartbeatIntervalMS int
	OutboundQueue      int
	MaxPayloadBytes    int
}

// Server ties the registry, the pipeline, and observability together. It
// is the receiver for the connection lifecycle methods in listener.go,
// client.go, broadcast.go, and heartbeat.go.
type Server struct {
	pipeline *pipeline.Pipeline
	registry *Registry
	metrics  *metrics.Metrics
	logger   *otlog.Logger
	cfg      Config

	pingSeq atomic.Uint64
}

// nextPingSeq returns the next monotonically increasing heartbeat sequence
// number, shared across every client pinged in a single heartbeat tick.
func (s *Server) nextPingSeq() uint64 {
	return s.pingSeq.Add(1)
}

// NewServer wires a pipeline to a fresh client registry under the given
// configuration.
func NewServer(p *pipeline.Pipeline, logger *otlog.Logger, m *metrics.Metrics, cfg Config) *Server {
	return &Server{
		pipeline: p,
		registry: NewRegistry(),
		metrics:  m,
		logger:   logger,
		cfg:      cfg,
	}
}

// NewClientID mints an opaque client identifier, stable for the lifetime
// of a connection.
func NewClientID() string {
	return uuid.NewString()
}
