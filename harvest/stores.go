package harvest

import (
	"context"

	"github.com/c360studio/semharvest/asset"
	"github.com/c360studio/semharvest/csvingest"
	"github.com/c360studio/semharvest/graph"
)

// SearchIndex stores the indexable metadata of harvested assets.
type SearchIndex interface {
	// Save upserts m by IRI.
	Save(ctx context.Context, m asset.Metadata) error
	FindByRepoAndType(ctx context.Context, repoURL string, t asset.Type) ([]asset.Metadata, error)
	DeleteByRepoURL(ctx context.Context, repoURL string) error
}

// TripleStore stores RDF graphs in named graphs.
type TripleStore interface {
	// Save adds the triples of g to the named graph.
	Save(ctx context.Context, graphName string, g *graph.Graph) error
	ClearGraph(ctx context.Context, graphName string) error
}

// VocabularyStore stores the flattened rows of controlled vocabularies, one
// collection per vocabulary.
type VocabularyStore interface {
	// IndexRecords replaces the content of collection with records.
	IndexRecords(ctx context.Context, collection string, records *csvingest.Result) error
	DropCollection(ctx context.Context, collection string) error
}

// RepositorySource provides checkouts of repositories.
type RepositorySource interface {
	Clone(ctx context.Context, repoURL, branch string) (string, error)
	Remove(root string) error
}
