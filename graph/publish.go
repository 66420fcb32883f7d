package graph

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/c360studio/semstreams/message"

	"github.com/c360studio/semharvest/asset"
	"github.com/c360studio/semharvest/vocabulary/catalog"
)

// Subject for graph ingestion.
const GraphIngestSubject = "graph.ingest.entity"

// publishSource tags triples written by the harvester.
const publishSource = "semharvest.harvest"

// StreamPublisher publishes to a JetStream subject. *natsclient.Client
// satisfies it.
type StreamPublisher interface {
	PublishToStream(ctx context.Context, subject string, data []byte) error
}

// PublishAsset publishes a harvested asset as a knowledge graph entity.
func PublishAsset(ctx context.Context, nc StreamPublisher, m asset.Metadata, runID string) error {
	if nc == nil {
		return nil
	}
	now := time.Now()
	payload := &AssetPayload{
		EntityID_:  AssetEntityID(m.Type, m.IRI),
		TripleData: AssetTriples(m, runID, now),
		UpdatedAt:  now,
	}
	return publish(ctx, nc, payload)
}

// PublishRepository publishes the outcome of a repository harvest.
func PublishRepository(ctx context.Context, nc StreamPublisher, repoURL string, assets, failures int, finishedAt time.Time) error {
	if nc == nil {
		return nil
	}
	id := RepositoryEntityID(repoURL)
	triples := []message.Triple{
		triple(id, catalog.RepoURL, repoURL, finishedAt),
		triple(id, catalog.RepoLastHarvested, finishedAt.Format(time.RFC3339), finishedAt),
		triple(id, catalog.RepoAssetCount, assets, finishedAt),
		triple(id, catalog.RepoFailureCount, failures, finishedAt),
	}
	return publish(ctx, nc, &RepositoryPayload{EntityID_: id, TripleData: triples, UpdatedAt: finishedAt})
}

type entityPayload interface {
	message.Payload
	EntityID() string
}

// publish wraps payload in a BaseMessage and publishes it to the graph
// ingestion stream.
func publish(ctx context.Context, nc StreamPublisher, payload entityPayload) error {
	if err := payload.Validate(); err != nil {
		return fmt.Errorf("invalid entity %s: %w", payload.EntityID(), err)
	}
	msg := message.NewBaseMessage(payload.Schema(), payload, publishSource)
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal entity message: %w", err)
	}
	if err := nc.PublishToStream(ctx, GraphIngestSubject, data); err != nil {
		return fmt.Errorf("publish entity %s: %w", payload.EntityID(), err)
	}
	return nil
}

// AssetTriples builds the entity triples describing m.
func AssetTriples(m asset.Metadata, runID string, now time.Time) []message.Triple {
	id := AssetEntityID(m.Type, m.IRI)
	triples := []message.Triple{
		triple(id, catalog.AssetType, string(m.Type), now),
		triple(id, catalog.AssetIRI, m.IRI, now),
		triple(id, catalog.AssetTitle, m.Title, now),
		triple(id, catalog.AssetDescription, m.Description, now),
		triple(id, catalog.AssetRepository, RepositoryEntityID(m.RepoURL), now),
	}
	if !m.Modified.IsZero() {
		triples = append(triples, triple(id, catalog.AssetModified, m.Modified.Format(time.RFC3339), now))
	}
	for _, th := range m.Themes {
		triples = append(triples, triple(id, catalog.AssetTheme, th, now))
	}
	for _, kw := range m.Keywords {
		triples = append(triples, triple(id, catalog.AssetKeyword, kw, now))
	}
	if m.RightsHolderID != "" {
		triples = append(triples, triple(id, catalog.AssetRightsHolder, m.RightsHolderID, now))
	}
	if m.KeyConcept != "" {
		triples = append(triples, triple(id, catalog.AssetKeyConcept, m.KeyConcept, now))
	}
	if m.EndpointURL != "" {
		triples = append(triples, triple(id, catalog.AssetEndpoint, m.EndpointURL, now))
	}
	if runID != "" {
		triples = append(triples, triple(id, catalog.AssetHarvestRun, runID, now))
	}
	return triples
}

func triple(subject, predicate string, object any, now time.Time) message.Triple {
	return message.Triple{
		Subject:    subject,
		Predicate:  predicate,
		Object:     object,
		Source:     publishSource,
		Timestamp:  now,
		Confidence: 1.0,
	}
}

// AssetEntityID generates a consistent entity ID for an asset.
// Format: semharvest.catalog.asset.<type>.<hash of IRI>
func AssetEntityID(t asset.Type, iri string) string {
	return fmt.Sprintf("semharvest.catalog.asset.%s.%s", t, shortHash(iri))
}

// RepositoryEntityID generates a consistent entity ID for a repository.
// Format: semharvest.catalog.repo.repository.<hash of URL>
func RepositoryEntityID(repoURL string) string {
	return fmt.Sprintf("semharvest.catalog.repo.repository.%s", shortHash(strings.TrimSuffix(repoURL, ".git")))
}

func shortHash(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:8])
}
