package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"FlowSpectra/internal/engine/manager"
	"FlowSpectra/internal/metrics"
	"FlowSpectra/internal/probe"
	"FlowSpectra/internal/query"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the ingestion pipeline and the HTTP query API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger.Info("configuration loaded", "path", configPath)

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	m, err := manager.NewManager(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create manager: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	m.Start(ctx)

	// The history endpoint reads what an enabled ClickHouse writer stores.
	var history query.Querier
	for _, w := range cfg.Writers {
		if !w.Enabled || w.Type != "clickhouse" {
			continue
		}
		history, err = query.NewClickHouseQuerier(w.ClickHouse)
		if err != nil {
			logger.Warn("history endpoint disabled", "error", err)
			history = nil
		}
		break
	}

	server := &http.Server{
		Addr:              cfg.API.ListenAddr,
		Handler:           query.NewRouter(m, history, prometheus.DefaultGatherer, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	var sub *probe.Subscriber
	if cfg.Probe.Enabled {
		sub, err = probe.NewSubscriber(cfg.Probe, logger)
		if err != nil {
			_ = m.Stop()
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("API server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("could not listen on %s: %w", server.Addr, err)
		}
		return nil
	})
	if sub != nil {
		g.Go(func() error { return sub.Run(gctx, m) })
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		if sub != nil {
			sub.Close()
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	if stopErr := m.Stop(); stopErr != nil && err == nil {
		err = stopErr
	}
	logger.Info("shutdown complete")
	return err
}
