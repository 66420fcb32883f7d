package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/c360studio/semstreams/natsclient"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360studio/semharvest/config"
	"github.com/c360studio/semharvest/csvingest"
	"github.com/c360studio/semharvest/graph"
	"github.com/c360studio/semharvest/harvest"
	"github.com/c360studio/semharvest/metrics"
	"github.com/c360studio/semharvest/processor/harvester"
	"github.com/c360studio/semharvest/repository"
	"github.com/c360studio/semharvest/searchindex"
	"github.com/c360studio/semharvest/storage"
	"github.com/c360studio/semharvest/triplestore"
	"github.com/c360studio/semharvest/vocabstore"
)

// Streams used by the harvester.
const (
	harvestStream = "HARVEST"
	graphStream   = "GRAPH"
)

// app wires the configured stores into a harvester and owns their
// connections.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	nc      *natsclient.Client
	runs    *storage.RunStore
	closers []func(context.Context)
}

func newApp(cfg *config.Config, logger *slog.Logger) *app {
	return &app{cfg: cfg, logger: logger}
}

// close releases every connection in reverse order of opening.
func (a *app) close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i](ctx)
	}
	a.closers = nil
}

// buildOptions selects what a command needs beyond the stores.
type buildOptions struct {
	// Source overrides the git source built from the harvest config.
	Source harvest.RepositorySource
	// Registerer receives the harvest metrics. Nil leaves them unregistered.
	Registerer prometheus.Registerer
	// NATS connects to NATS even when the triple-store does not need it,
	// enabling entity publishing, run summaries and stream events.
	NATS bool
}

// build opens the stores and builds a harvester over them.
func (a *app) build(ctx context.Context, opts buildOptions) (*harvest.Harvester, error) {
	settings, err := a.cfg.HarvestSettings()
	if err != nil {
		return nil, err
	}

	if opts.NATS || a.cfg.TripleStore.Backend == config.TripleStoreNATS {
		if _, err := a.connectNATS(ctx); err != nil {
			return nil, err
		}
	}

	index, err := searchindex.Open(a.cfg.SearchIndex, a.logger)
	if err != nil {
		return nil, fmt.Errorf("open search index: %w", err)
	}
	a.closers = append(a.closers, func(context.Context) { _ = index.Close() })

	triples, err := a.tripleStore(ctx)
	if err != nil {
		return nil, err
	}

	vocab, err := vocabstore.Open(ctx, a.cfg.Vocabulary, a.logger)
	if err != nil {
		return nil, fmt.Errorf("open vocabulary store: %w", err)
	}
	a.closers = append(a.closers, func(context.Context) { _ = vocab.Close() })

	m, err := metrics.New(opts.Registerer)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	source := opts.Source
	if source == nil {
		source = repository.NewGit(a.cfg.Harvest.WorkDir, a.cfg.Harvest.CloneTimeout, a.cfg.Harvest.CloneDepth, a.logger)
	}

	deps := harvest.Dependencies{
		Index:      index,
		Triples:    triples,
		Vocabulary: vocab,
		Source:     source,
		Events:     a.events(),
		Metrics:    m,
		CSV:        csvingest.NewParser(),
		Logger:     a.logger,
	}
	if a.nc != nil {
		deps.Publisher = a.nc
	}
	return harvest.New(settings, deps)
}

// tripleStore opens the configured triple-store backend.
func (a *app) tripleStore(ctx context.Context) (harvest.TripleStore, error) {
	switch a.cfg.TripleStore.Backend {
	case config.TripleStoreNeo4j:
		store, err := triplestore.Open(ctx, a.cfg.TripleStore.Neo4j, a.logger)
		if err != nil {
			return nil, fmt.Errorf("open neo4j triple-store: %w", err)
		}
		a.closers = append(a.closers, func(ctx context.Context) { _ = store.Close(ctx) })
		return store, nil
	default:
		js, err := a.nc.JetStream()
		if err != nil {
			return nil, fmt.Errorf("get jetstream: %w", err)
		}
		store, err := storage.NewGraphStore(ctx, js, a.logger)
		if err != nil {
			return nil, fmt.Errorf("open graph store: %w", err)
		}
		return store, nil
	}
}

// events fans harvest events out to the log and, with NATS, to the run
// store and the event streams.
func (a *app) events() harvest.Events {
	events := harvest.MultiEvents{harvest.LogEvents{Logger: a.logger}}
	if a.nc == nil {
		return events
	}
	if a.runs != nil {
		events = append(events, a.runs.Events())
	}
	return append(events, harvester.NewStreamEvents(a.nc, a.logger))
}

// connectNATS connects once and prepares the streams and the run store.
func (a *app) connectNATS(ctx context.Context) (*natsclient.Client, error) {
	if a.nc != nil {
		return a.nc, nil
	}
	nc, err := connectToNATS(ctx, a.cfg.NATS.URL, a.logger)
	if err != nil {
		return nil, err
	}
	a.nc = nc
	a.closers = append(a.closers, func(ctx context.Context) { nc.Close(ctx) })

	js, err := nc.JetStream()
	if err != nil {
		return nil, fmt.Errorf("get jetstream: %w", err)
	}
	if err := ensureStreams(ctx, js, a.logger); err != nil {
		return nil, err
	}
	runs, err := storage.NewRunStore(ctx, js, a.logger)
	if err != nil {
		return nil, fmt.Errorf("open run store: %w", err)
	}
	a.runs = runs
	return nc, nil
}

func connectToNATS(ctx context.Context, url string, logger *slog.Logger) (*natsclient.Client, error) {
	logger.Info("Connecting to NATS", "url", url)

	client, err := natsclient.NewClient(url,
		natsclient.WithName(appName),
		natsclient.WithMaxReconnects(-1),
		natsclient.WithReconnectWait(time.Second),
		natsclient.WithCircuitBreakerThreshold(20),
		natsclient.WithHealthInterval(30*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("create NATS client: %w", err)
	}

	if err := client.Connect(ctx); err != nil {
		return nil, wrapNATSError(err, url)
	}

	connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := client.WaitForConnection(connCtx); err != nil {
		return nil, wrapNATSError(err, url)
	}

	logger.Info("Connected to NATS", "url", url)
	return client, nil
}

// wrapNATSError provides helpful guidance when NATS connection fails.
func wrapNATSError(err error, url string) error {
	errStr := err.Error()

	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no servers available") ||
		strings.Contains(errStr, "timeout") {
		return fmt.Errorf(`NATS connection failed: %w

NATS is not running at %s.

To start NATS:
  docker compose up -d nats

Or set NATS_URL environment variable to point to your NATS server.
Use triple_store.backend: neo4j to harvest without NATS.`, err, url)
	}

	return fmt.Errorf("NATS connection failed: %w", err)
}

// streamConfigs lists the streams the harvester publishes to and consumes.
func streamConfigs() []jetstream.StreamConfig {
	return []jetstream.StreamConfig{
		{
			Name:        harvestStream,
			Description: "Harvest requests, run summaries and alerts",
			Subjects:    []string{"harvest.>"},
			MaxAge:      7 * 24 * time.Hour,
			Storage:     jetstream.FileStorage,
			Replicas:    1,
		},
		{
			Name:        graphStream,
			Description: "Catalogue entities for graph ingestion",
			Subjects:    []string{graph.GraphIngestSubject},
			MaxAge:      24 * time.Hour,
			Storage:     jetstream.FileStorage,
			Replicas:    1,
		},
	}
}

func ensureStreams(ctx context.Context, js jetstream.JetStream, logger *slog.Logger) error {
	logger.Debug("Creating JetStream streams")
	for _, sc := range streamConfigs() {
		if _, err := js.CreateOrUpdateStream(ctx, sc); err != nil {
			return fmt.Errorf("ensure stream %s: %w", sc.Name, err)
		}
	}
	logger.Debug("JetStream streams ready")
	return nil
}
