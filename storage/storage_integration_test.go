//go:build integration

package storage

import (
	"context"
	"testing"
	"time"

	"github.com/c360studio/semstreams/natsclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/semharvest/asset"
	"github.com/c360studio/semharvest/graph"
	"github.com/c360studio/semharvest/harvest"
)

func TestGraphStore(t *testing.T) {
	tc := natsclient.NewTestClient(t, natsclient.WithJetStream())
	ctx := context.Background()
	js, err := tc.Client.JetStream()
	require.NoError(t, err)

	store, err := NewGraphStore(ctx, js, nil)
	require.NoError(t, err)

	const repo = "https://github.com/example/assets"
	a := graph.New("onto/A.ttl")
	a.Add(graph.IRI("urn:a"), graph.IRI(graph.RDFType), graph.IRI("urn:Ontology"))
	a.Add(graph.IRI("urn:a"), graph.IRI("urn:title"), graph.LangLiteral("A", "it"))
	b := graph.New("onto/B.ttl")
	b.Add(graph.IRI("urn:b"), graph.IRI(graph.RDFType), graph.IRI("urn:Ontology"))

	require.NoError(t, store.Save(ctx, repo, a))
	require.NoError(t, store.Save(ctx, repo, b))
	require.NoError(t, store.Save(ctx, repo, a))
	require.NoError(t, store.Save(ctx, "https://github.com/example/other", b))

	entries, err := store.Entries(ctx, repo)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "onto/A.ttl", entries[0].Source)
	assert.Equal(t, 2, entries[0].Triples)

	g, err := store.Graph(ctx, repo)
	require.NoError(t, err)
	assert.Equal(t, 3, g.Len())

	require.NoError(t, store.ClearGraph(ctx, repo))
	_, err = store.Graph(ctx, repo)
	assert.ErrorIs(t, err, ErrNotFound)

	other, err := store.Graph(ctx, "https://github.com/example/other")
	require.NoError(t, err)
	assert.Equal(t, 1, other.Len())
}

func TestRunStore(t *testing.T) {
	tc := natsclient.NewTestClient(t, natsclient.WithJetStream())
	ctx := context.Background()
	js, err := tc.Client.JetStream()
	require.NoError(t, err)

	store, err := NewRunStore(ctx, js, nil)
	require.NoError(t, err)

	now := time.Now().UTC()
	older := &harvest.Summary{RunID: "run-1", RepoURL: "https://github.com/a/b", StartedAt: now.Add(-time.Hour),
		Counts: map[asset.Type]harvest.TypeCounts{asset.TypeOntology: {Succeeded: 2}}}
	newer := &harvest.Summary{RunID: "run-2", RepoURL: "https://github.com/a/b", StartedAt: now}
	elsewhere := &harvest.Summary{RunID: "run-3", RepoURL: "https://github.com/c/d", StartedAt: now}

	require.NoError(t, store.SaveRun(ctx, older))
	require.NoError(t, store.SaveRun(ctx, newer))
	store.Events().RunFinished(ctx, nil, elsewhere)

	got, err := store.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Succeeded())

	runs, err := store.ListRuns(ctx, "https://github.com/a/b")
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-2", runs[0].RunID)

	all, err := store.ListRuns(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = store.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Error(t, store.SaveRun(ctx, &harvest.Summary{}))
}
