// Package main provides the otsync server's command-line entry point.
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/otcollab/otsync/internal/config"
	"github.com/otcollab/otsync/internal/metrics"
	"github.com/otcollab/otsync/internal/pipeline"
	"github.com/otcollab/otsync/internal/transport"
	"github.com/otcollab/otsync/pkg/otlog"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "otsync",
		Short: "otsync - real-time collaborative text-editing server",
		Long: `otsync coordinates concurrent edits from many clients into a single
convergent document using Operational Transformation: each connection
rebases its operations against the ones it missed, the server applies
the rebased result, and broadcasts the resulting snapshot to everyone
else.`,
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("otsync v%s (%s)\n", version, commit)
		},
	})

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the otsync server",
		RunE:  runServe,
	}
	config.BindFlags(serveCmd.Flags())
	serveCmd.Flags().String("env-file", "", "path to a .env file (optional)")
	rootCmd.AddCommand(serveCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	envFile, _ := cmd.Flags().GetString("env-file")
	cfg, err := config.Load(cmd.Flags(), envFile)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	log, err := otlog.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	m := metrics.Get()

	docID := uuid.NewString()
	p := pipeline.New(docID)
	srv := transport.NewServer(p, log, m, transport.Config{
		MaxClients:          cfg.MaxClients,
		ClientTimeoutMS:     cfg.ClientTimeoutMS,
		HeartbeatIntervalMS: cfg.HeartbeatIntervalMS,
		OutboundQueue:       cfg.OutboundQueue,
		MaxPayloadBytes:     cfg.MaxPayloadBytes,
	})

	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", cfg.ListenAddr, err)
	}
	log.Infow("listening", "addr", cfg.ListenAddr, "doc_id", docID)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metricsServer := &http.Server{Addr: cfg.MetricsAddr, Handler: promhttp.Handler()}
	go func() {
		log.Infow("serving metrics", "addr", cfg.MetricsAddr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorw("metrics server stopped", "error", err)
		}
	}()

	go srv.RunHeartbeat(ctx)

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(ctx, ln) }()

	select {
	case <-ctx.Done():
		log.Infow("shutting down")
		_ = metricsServer.Close()
		return nil
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("serving: %w", err)
		}
		return nil
	}
}
