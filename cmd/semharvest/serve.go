package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/c360studio/semstreams/component"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/c360studio/semharvest/processor/harvester"
)

const shutdownTimeout = 30 * time.Second

func serveCmd(flags *globalFlags) *cobra.Command {
	var componentConfig string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Consume harvest requests from NATS",
		Long: `Serve connects to NATS, ensures the HARVEST and GRAPH streams and runs the
harvester component. Publish a request to harvest.repo.run to harvest a
repository and to harvest.repo.remove to purge one. Prometheus metrics are
served on metrics.addr.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := flags.setup()
			if err != nil {
				return err
			}
			var raw json.RawMessage
			if componentConfig != "" {
				raw, err = os.ReadFile(componentConfig)
				if err != nil {
					return fmt.Errorf("read component config: %w", err)
				}
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			a := newApp(cfg, logger)
			defer a.close(context.Background())

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)

			h, err := a.build(ctx, buildOptions{NATS: true, Registerer: reg})
			if err != nil {
				return err
			}

			componentRegistry := component.NewRegistry()
			if err := harvester.Register(componentRegistry, h); err != nil {
				return fmt.Errorf("register harvester: %w", err)
			}
			logger.Debug("Component factories registered", "count", len(componentRegistry.ListFactories()))

			comp, err := harvester.NewComponent(raw, component.Dependencies{
				NATSClient: a.nc,
				Logger:     logger,
			}, h)
			if err != nil {
				return fmt.Errorf("create harvester: %w", err)
			}
			if err := comp.Initialize(); err != nil {
				return fmt.Errorf("initialize harvester: %w", err)
			}
			if err := comp.Start(ctx); err != nil {
				return fmt.Errorf("start harvester: %w", err)
			}

			srv := newHTTPServer(cfg.Metrics.Addr, reg, comp)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("HTTP server failed", "addr", srv.Addr, "error", err)
				}
			}()

			logger.Info("Semharvest ready",
				"version", Version,
				"metrics_addr", cfg.Metrics.Addr,
				"triple_store", cfg.TripleStore.Backend)

			<-ctx.Done()
			logger.Info("Received shutdown signal")
			return shutdown(srv, comp, logger)
		},
	}

	cmd.Flags().StringVar(&componentConfig, "component-config", "", "Harvester component config file (JSON)")

	return cmd
}

// newHTTPServer serves Prometheus metrics on /metrics and the component
// health on /healthz.
func newHTTPServer(addr string, gatherer prometheus.Gatherer, comp component.Discoverable) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		health := comp.Health()
		w.Header().Set("Content-Type", "application/json")
		if !health.Healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(health)
	})
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func shutdown(srv *http.Server, comp *harvester.Component, logger *slog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if err := comp.Stop(shutdownTimeout); err != nil {
		errs = append(errs, fmt.Errorf("stop harvester: %w", err))
	}
	if err := srv.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("stop http server: %w", err))
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	logger.Info("Semharvest shutdown complete")
	return nil
}
