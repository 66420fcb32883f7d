package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360studio/semharvest/export"
	"github.com/c360studio/semharvest/graph"
)

// GraphEntry is the statements one source file contributed to a named
// graph, serialized as N-Triples.
type GraphEntry struct {
	Graph    string    `json:"graph"`
	Source   string    `json:"source"`
	Triples  int       `json:"triples"`
	NTriples string    `json:"ntriples"`
	SavedAt  time.Time `json:"saved_at"`
}

// GraphStore is a triple-store backed by a KV bucket. Each Save writes
// one entry, so a graph is the union of its entries.
type GraphStore struct {
	kv     jetstream.KeyValue
	logger *slog.Logger
}

// NewGraphStore creates the graphs bucket if it doesn't exist.
func NewGraphStore(ctx context.Context, js jetstream.JetStream, logger *slog.Logger) (*GraphStore, error) {
	kv, err := getOrCreateBucket(ctx, js, BucketGraphs)
	if err != nil {
		return nil, fmt.Errorf("create graphs bucket: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GraphStore{kv: kv, logger: logger}, nil
}

// Save stores g under graphName. Saving the same source again replaces
// its previous statements.
func (s *GraphStore) Save(ctx context.Context, graphName string, g *graph.Graph) error {
	entry := GraphEntry{
		Graph:    graphName,
		Source:   g.Name(),
		Triples:  g.Len(),
		NTriples: export.NTriples(g),
		SavedAt:  time.Now(),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal graph entry: %w", err)
	}
	key := GraphKey(graphName, g.Name())
	if _, err := s.kv.Put(ctx, key.String(), data); err != nil {
		return fmt.Errorf("store graph %s: %w", g.Name(), err)
	}
	return nil
}

// ClearGraph deletes every entry of graphName.
func (s *GraphStore) ClearGraph(ctx context.Context, graphName string) error {
	ks, err := s.graphKeys(ctx, graphName)
	if err != nil {
		return err
	}
	for _, k := range ks {
		if err := s.kv.Delete(ctx, k); err != nil && !isNotFound(err) {
			return fmt.Errorf("delete graph entry %s: %w", k, err)
		}
	}
	s.logger.Debug("Cleared graph", "graph", graphName, "entries", len(ks))
	return nil
}

// Entries returns the entries of graphName ordered by source.
func (s *GraphStore) Entries(ctx context.Context, graphName string) ([]*GraphEntry, error) {
	ks, err := s.graphKeys(ctx, graphName)
	if err != nil {
		return nil, err
	}
	entries := make([]*GraphEntry, 0, len(ks))
	for _, k := range ks {
		kve, err := s.kv.Get(ctx, k)
		if err != nil {
			if isNotFound(err) {
				continue
			}
			return nil, fmt.Errorf("get graph entry %s: %w", k, err)
		}
		var e GraphEntry
		if err := json.Unmarshal(kve.Value(), &e); err != nil {
			s.logger.Warn("Skipping corrupt graph entry", "key", k, "error", err)
			continue
		}
		entries = append(entries, &e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Source < entries[j].Source })
	return entries, nil
}

// Graph reads graphName back as one graph.
func (s *GraphStore) Graph(ctx context.Context, graphName string) (*graph.Graph, error) {
	entries, err := s.Entries(ctx, graphName)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("graph %s: %w", graphName, ErrNotFound)
	}
	out := graph.New(graphName)
	for _, e := range entries {
		part, err := export.ReadNTriples(strings.NewReader(e.NTriples), e.Source)
		if err != nil {
			return nil, err
		}
		for _, t := range part.Triples() {
			out.Add(t.S, t.P, t.O)
		}
	}
	return out, nil
}

func (s *GraphStore) graphKeys(ctx context.Context, graphName string) ([]string, error) {
	prefix := Key{Kind: KeyKindGraph, Scope: hash(graphName)}.String()
	ks, err := keys(ctx, s.kv, prefix)
	if err != nil {
		return nil, fmt.Errorf("list graph keys: %w", err)
	}
	return ks, nil
}
