package harvest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/semharvest/asset"
	"github.com/c360studio/semharvest/extract"
	"github.com/c360studio/semharvest/graph"
	"github.com/c360studio/semharvest/scanner"
	"github.com/c360studio/semharvest/vocabulary/catalog"
)

func TestRunHarvestsEveryType(t *testing.T) {
	f := newFixture()
	h := f.harvester(t, DefaultConfig())
	root := writeRepo(t)

	ec := NewExecutionContext(Repository{URL: testRepoURL}, WithStartedBy("tester"))
	summary, err := h.Run(context.Background(), ec, root)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Succeeded())
	assert.Equal(t, 0, summary.Failed())
	assert.Empty(t, summary.Failures)
	assert.Equal(t, TypeCounts{Succeeded: 1}, summary.Counts[asset.TypeOntology])
	assert.Equal(t, TypeCounts{Succeeded: 1}, summary.Counts[asset.TypeControlledVocabulary])
	assert.Equal(t, TypeCounts{Succeeded: 1}, summary.Counts[asset.TypeSchema])
	assert.Equal(t, "tester", summary.StartedBy)
	assert.Equal(t, ec.RunID, summary.CorrelationID)

	// Assets are processed in type order.
	require.Len(t, summary.Assets, 3)
	assert.Equal(t, asset.TypeOntology, summary.Assets[0].Type)
	assert.Equal(t, asset.TypeControlledVocabulary, summary.Assets[1].Type)
	assert.Equal(t, asset.TypeSchema, summary.Assets[2].Type)
	assert.Equal(t, 2, summary.Assets[1].Records)

	// Previous data is removed before harvesting.
	assert.Equal(t, []string{"find", "delete"}, f.index.calls[:2])
	assert.Equal(t, []string{testRepoURL}, f.triples.cleared)

	cpv, ok := f.index.get("https://w3id.org/italia/onto/CPV")
	require.True(t, ok)
	assert.Equal(t, "cpv", cpv.Prefix)
	assert.Equal(t, testRepoURL, cpv.RepoURL)

	licences, ok := f.index.get("https://w3id.org/italia/controlled-vocabulary/licences")
	require.True(t, ok)
	assert.Equal(t, "https://schema.gov.it/api/vocabularies/agid/licences", licences.EndpointURL)

	records := f.vocab.collections["agid.licences"]
	require.Len(t, records, 2)
	assert.Equal(t, "Alpha", records[0]["label_it"])

	assert.NotEmpty(t, f.triples.graphs[testRepoURL])

	// agid is seen twice, istat once.
	require.Len(t, summary.RightsHolders, 2)
	assert.Equal(t, "agid", summary.RightsHolders[0].ID)
	assert.Equal(t, "istat", summary.RightsHolders[1].ID)
	require.Len(t, summary.Maintainers, 1)
	assert.Equal(t, "dati@example.org", summary.Maintainers[0].Email)

	assert.Equal(t, 1, f.events.started)
	require.Len(t, f.events.finished, 1)
	assert.Same(t, summary, f.events.finished[0])
}

func TestRunEnrichesVocabularyGraph(t *testing.T) {
	f := newFixture()
	h := f.harvester(t, Config{Types: []asset.Type{asset.TypeControlledVocabulary}, DataServiceBaseURL: "https://api.example.org/"})

	_, err := h.Run(context.Background(), NewExecutionContext(Repository{URL: testRepoURL}), writeRepo(t))
	require.NoError(t, err)

	g := graph.New("stored")
	for _, tr := range f.triples.graphs[testRepoURL] {
		g.Add(tr.S, tr.P, tr.O)
	}
	main := graph.IRI("https://w3id.org/italia/controlled-vocabulary/licences")
	service := graph.IRI("https://w3id.org/italia/controlled-vocabulary/licences/DataService")
	assert.Equal(t, []graph.Term{service}, g.Objects(main, catalog.PropHasDataService))
	assert.Equal(t, []graph.Term{graph.IRI(catalog.ClassDataService)}, g.Objects(service, catalog.PropType))
	assert.Equal(t, []graph.Term{graph.IRI("https://api.example.org/vocabularies/agid/licences")}, g.Objects(service, catalog.PropEndpointURL))
	assert.Equal(t, []graph.Term{main}, g.Objects(service, catalog.PropServesDataset))
}

func TestVocabularyWithoutCSVIsNotEnriched(t *testing.T) {
	f := newFixture()
	h := f.harvester(t, Config{Types: []asset.Type{asset.TypeControlledVocabulary}})
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "assets/controlled-vocabularies/licences/licences.ttl"), vocabularyTurtle)

	summary, err := h.Run(context.Background(), NewExecutionContext(Repository{URL: testRepoURL}), root)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded())
	assert.Empty(t, f.vocab.collections)

	m, ok := f.index.get("https://w3id.org/italia/controlled-vocabulary/licences")
	require.True(t, ok)
	assert.Empty(t, m.EndpointURL)
}

func TestPathIsolation(t *testing.T) {
	f := newFixture()
	h := f.harvester(t, Config{Types: []asset.Type{asset.TypeOntology}})
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "assets/ontologies/A/broken.ttl"), notAnOntologyTurtle)
	writeFile(t, filepath.Join(root, "assets/ontologies/B/CPV.ttl"), ontologyTurtle)

	summary, err := h.Run(context.Background(), NewExecutionContext(Repository{URL: testRepoURL}), root)
	require.NoError(t, err)

	assert.Equal(t, TypeCounts{Succeeded: 1, Failed: 1}, summary.Counts[asset.TypeOntology])
	require.Len(t, summary.Failures, 1)
	assert.False(t, summary.Failures[0].Fatal)
	assert.Equal(t, filepath.Join(root, "assets/ontologies/A/broken.ttl"), summary.Failures[0].Path)
	assert.Contains(t, summary.Failures[0].Cause, "main resource")
	assert.Equal(t, 1, f.index.saves)
}

type listScanner[P asset.SourcePath] struct {
	paths []P
	err   error
}

func (s listScanner[P]) Scan(string) (scanner.Result[P], error) {
	return scanner.Result[P]{Paths: s.paths}, s.err
}

func TestRunVariantProcessesEveryPathOnce(t *testing.T) {
	f := newFixture()
	h := f.harvester(t, Config{})
	ec := NewExecutionContext(Repository{URL: testRepoURL})

	first, second := asset.NewPath("/repo/a.ttl"), asset.NewPath("/repo/b.ttl")
	calls := map[string]int{}
	v := variant[asset.Path]{
		typ:     asset.TypeOntology,
		h:       h,
		scanner: listScanner[asset.Path]{paths: []asset.Path{first, second}},
		process: func(_ context.Context, _ *ExecutionContext, p asset.Path) (PathStats, error) {
			calls[p.RDFFile()]++
			if p == first {
				return PathStats{}, pathFailure(asset.TypeOntology, p, true, errors.New("boom"))
			}
			return PathStats{Type: asset.TypeOntology, IRI: "https://example.org/b"}, nil
		},
	}

	require.NoError(t, runVariant(context.Background(), h, ec, t.TempDir(), v))
	assert.Equal(t, map[string]int{"/repo/a.ttl": 1, "/repo/b.ttl": 1}, calls)

	failures := ec.Failures()
	require.Len(t, failures, 1)
	assert.True(t, failures[0].Fatal)
	require.Len(t, ec.Assets(), 1)
	assert.Equal(t, "https://example.org/b", ec.Assets()[0].IRI)
}

func TestRunVariantWrapsUntypedErrors(t *testing.T) {
	f := newFixture()
	h := f.harvester(t, Config{})
	ec := NewExecutionContext(Repository{URL: testRepoURL})
	v := variant[asset.Path]{
		typ:     asset.TypeSchema,
		h:       h,
		scanner: listScanner[asset.Path]{paths: []asset.Path{asset.NewPath("/repo/index.ttl")}},
		process: func(context.Context, *ExecutionContext, asset.Path) (PathStats, error) {
			return PathStats{}, errors.New("unexpected")
		},
	}
	require.NoError(t, runVariant(context.Background(), h, ec, t.TempDir(), v))
	failures := ec.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, asset.TypeSchema, failures[0].Type)
	assert.True(t, failures[0].Fatal)
}

func TestRunVariantScanFailure(t *testing.T) {
	f := newFixture()
	h := f.harvester(t, Config{})
	ec := NewExecutionContext(Repository{URL: testRepoURL})
	v := variant[asset.Path]{
		typ:     asset.TypeOntology,
		h:       h,
		scanner: listScanner[asset.Path]{err: errors.New("permission denied")},
		process: func(context.Context, *ExecutionContext, asset.Path) (PathStats, error) {
			t.Fatal("process must not run")
			return PathStats{}, nil
		},
	}
	require.NoError(t, runVariant(context.Background(), h, ec, t.TempDir(), v))
	failures := ec.Failures()
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0].Error(), "permission denied")
	assert.Empty(t, ec.Summarize(nil).Counts)
}

func TestRunVariantStopsOnCancel(t *testing.T) {
	f := newFixture()
	h := f.harvester(t, Config{})
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	v := variant[asset.Path]{
		typ:     asset.TypeOntology,
		h:       h,
		scanner: listScanner[asset.Path]{paths: []asset.Path{asset.NewPath("/a.ttl"), asset.NewPath("/b.ttl")}},
		process: func(context.Context, *ExecutionContext, asset.Path) (PathStats, error) {
			calls++
			cancel()
			return PathStats{}, nil
		},
	}
	err := runVariant(ctx, h, NewExecutionContext(Repository{URL: testRepoURL}), t.TempDir(), v)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestInvalidVocabularyFolderIsReported(t *testing.T) {
	f := newFixture()
	h := f.harvester(t, Config{Types: []asset.Type{asset.TypeControlledVocabulary}})
	root := writeRepo(t)
	writeFile(t, filepath.Join(root, "assets/controlled-vocabularies/twice/a.ttl"), vocabularyTurtle)
	writeFile(t, filepath.Join(root, "assets/controlled-vocabularies/twice/b.ttl"), vocabularyTurtle)

	summary, err := h.Run(context.Background(), NewExecutionContext(Repository{URL: testRepoURL}), root)
	require.NoError(t, err)
	assert.Equal(t, TypeCounts{Succeeded: 1, Failed: 1}, summary.Counts[asset.TypeControlledVocabulary])
	require.Len(t, summary.Failures, 1)
	assert.True(t, summary.Failures[0].Fatal)
	assert.Len(t, summary.Failures[0].Files, 2)
}

func TestMetadataSaveFailureIsFatal(t *testing.T) {
	f := newFixture()
	f.index.saveErr = errors.New("index unavailable")
	h := f.harvester(t, Config{Types: []asset.Type{asset.TypeOntology}})

	summary, err := h.Run(context.Background(), NewExecutionContext(Repository{URL: testRepoURL}), writeRepo(t))
	require.NoError(t, err)
	require.Len(t, summary.Failures, 1)
	assert.True(t, summary.Failures[0].Fatal)
	assert.Contains(t, summary.Failures[0].Cause, "index unavailable")
	assert.Empty(t, f.triples.graphs)
}

func TestRDFSaveFailureIsFatal(t *testing.T) {
	f := newFixture()
	f.triples.saveErr = errors.New("triple-store down")
	h := f.harvester(t, Config{Types: []asset.Type{asset.TypeSchema}})

	summary, err := h.Run(context.Background(), NewExecutionContext(Repository{URL: testRepoURL}), writeRepo(t))
	require.NoError(t, err)
	require.Len(t, summary.Failures, 1)
	assert.True(t, summary.Failures[0].Fatal)
	assert.Empty(t, summary.RightsHolders)
}

func TestCSVFailureKeepsMetadata(t *testing.T) {
	f := newFixture()
	h := f.harvester(t, Config{Types: []asset.Type{asset.TypeControlledVocabulary}})
	root := writeRepo(t)
	writeFile(t, filepath.Join(root, "assets/controlled-vocabularies/licences/licences.csv"), "")

	summary, err := h.Run(context.Background(), NewExecutionContext(Repository{URL: testRepoURL}), root)
	require.NoError(t, err)
	require.Len(t, summary.Failures, 1)
	assert.False(t, summary.Failures[0].Fatal)
	assert.Contains(t, summary.Failures[0].Cause, "invalid csv")

	_, ok := f.index.get("https://w3id.org/italia/controlled-vocabulary/licences")
	assert.True(t, ok)
	assert.NotEmpty(t, f.triples.graphs[testRepoURL])
	// The rights holder is recorded before the CSV step.
	assert.Len(t, summary.RightsHolders, 1)
}

func TestMissingRequiredFieldsFailPath(t *testing.T) {
	f := newFixture()
	h := f.harvester(t, Config{Types: []asset.Type{asset.TypeOntology}})
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "assets/ontologies/X/x.ttl"), `
@prefix owl: <http://www.w3.org/2002/07/owl#> .
@prefix dct: <http://purl.org/dc/terms/> .
<https://w3id.org/italia/onto/X> a owl:Ontology ; dct:title "X"@it .
`)

	summary, err := h.Run(context.Background(), NewExecutionContext(Repository{URL: testRepoURL}), root)
	require.NoError(t, err)
	require.Len(t, summary.Failures, 1)
	assert.False(t, summary.Failures[0].Fatal)
	assert.Contains(t, summary.Failures[0].Cause, extract.MsgCannotFindProperty)
	assert.Equal(t, 0, f.index.saves)
}

func TestFileTooBigNotice(t *testing.T) {
	f := newFixture()
	cfg := DefaultConfig()
	cfg.MaxFileSize = 1 << 20
	h := f.harvester(t, cfg)
	root := writeRepo(t)

	ec := NewExecutionContext(Repository{URL: testRepoURL, MaxFileSize: 60})
	summary, err := h.Run(context.Background(), ec, root)
	require.NoError(t, err)

	// Oversize files are still processed.
	assert.Equal(t, 3, summary.Succeeded())
	require.Len(t, f.events.tooBig, 3)
	vocab := f.events.tooBig[1]
	assert.Equal(t, int64(60), vocab.MaxSize)
	assert.Equal(t, ec.RunID, vocab.RunID)
	require.Len(t, vocab.Files, 1, "the CSV fits below the limit")
	assert.Greater(t, vocab.Files[0].Size, int64(60))
	assert.Len(t, summary.Oversize, 3)
}

func TestFileSizeCheckDisabled(t *testing.T) {
	f := newFixture()
	h := f.harvester(t, Config{MaxFileSize: 0})
	_, err := h.Run(context.Background(), NewExecutionContext(Repository{URL: testRepoURL}), writeRepo(t))
	require.NoError(t, err)
	assert.Empty(t, f.events.tooBig)
}

func TestCleanupDropsPreviousCollections(t *testing.T) {
	f := newFixture()
	for _, kc := range []string{"Old", "Failing"} {
		f.index.items["https://example.org/"+kc] = asset.Metadata{
			IRI:        "https://example.org/" + kc,
			Type:       asset.TypeControlledVocabulary,
			RepoURL:    testRepoURL,
			AgencyID:   "AGID",
			KeyConcept: kc,
		}
	}
	f.index.items["https://example.org/other"] = asset.Metadata{
		IRI: "https://example.org/other", Type: asset.TypeControlledVocabulary,
		RepoURL: "https://github.com/other/repo", AgencyID: "x", KeyConcept: "y",
	}
	f.vocab.dropErr["agid.failing"] = errors.New("drop refused")
	h := f.harvester(t, DefaultConfig())

	summary, err := h.Run(context.Background(), NewExecutionContext(Repository{URL: testRepoURL}), writeRepo(t))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"agid.old", "agid.failing"}, f.vocab.dropped)
	assert.Equal(t, 3, summary.Succeeded())

	_, ok := f.index.get("https://example.org/Old")
	assert.False(t, ok)
	_, ok = f.index.get("https://example.org/other")
	assert.True(t, ok)
}

func TestCleanupLookupFailureDoesNotAbort(t *testing.T) {
	f := newFixture()
	f.index.findErr = errors.New("search unavailable")
	h := f.harvester(t, DefaultConfig())

	summary, err := h.Run(context.Background(), NewExecutionContext(Repository{URL: testRepoURL}), writeRepo(t))
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Succeeded())
}

func TestReharvestReplacesRecords(t *testing.T) {
	f := newFixture()
	h := f.harvester(t, Config{Types: []asset.Type{asset.TypeControlledVocabulary}})
	root := writeRepo(t)

	_, err := h.Run(context.Background(), NewExecutionContext(Repository{URL: testRepoURL}), root)
	require.NoError(t, err)

	writeFile(t, filepath.Join(root, "assets/controlled-vocabularies/licences/licences.csv"), "codice_1_livello,label\nC,Gamma\n")
	_, err = h.Run(context.Background(), NewExecutionContext(Repository{URL: testRepoURL}), root)
	require.NoError(t, err)

	assert.Equal(t, []string{"agid.licences"}, f.vocab.dropped)
	records := f.vocab.collections["agid.licences"]
	require.Len(t, records, 1)
	assert.Equal(t, "C", records[0]["codice_1_livello"])
}

func TestClearGraphFailureAbortsRun(t *testing.T) {
	f := newFixture()
	f.triples.clearErr = errors.New("triple-store down")
	h := f.harvester(t, DefaultConfig())

	summary, err := h.Run(context.Background(), NewExecutionContext(Repository{URL: testRepoURL}), writeRepo(t))
	require.Error(t, err)
	assert.Contains(t, summary.Error, "triple-store down")
	assert.Equal(t, 0, f.index.saves)
	require.Len(t, f.events.finished, 1)
}

func TestRunRequiresRepositoryURL(t *testing.T) {
	f := newFixture()
	h := f.harvester(t, DefaultConfig())
	_, err := h.Run(context.Background(), NewExecutionContext(Repository{}), writeRepo(t))
	assert.Error(t, err)
}

func TestMissingAssetFolderIsSkipped(t *testing.T) {
	f := newFixture()
	h := f.harvester(t, DefaultConfig())
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "assets/schemas/person/index.ttl"), schemaTurtle)

	summary, err := h.Run(context.Background(), NewExecutionContext(Repository{URL: testRepoURL}), root)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded())
	assert.Empty(t, summary.Failures)
}

func TestAssetRootsOverride(t *testing.T) {
	f := newFixture()
	cfg := Config{
		Types:      []asset.Type{asset.TypeOntology},
		AssetRoots: map[asset.Type]string{asset.TypeOntology: "onto"},
	}
	h := f.harvester(t, cfg)
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "onto/CPV/CPV.ttl"), ontologyTurtle)

	summary, err := h.Run(context.Background(), NewExecutionContext(Repository{URL: testRepoURL}), root)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded())
}

func TestHarvestRepository(t *testing.T) {
	f := newFixture()
	root := writeRepo(t)
	f.source.roots[testRepoURL] = root
	h := f.harvester(t, DefaultConfig())

	ec := NewExecutionContext(Repository{URL: testRepoURL})
	summary, err := h.HarvestRepository(context.Background(), ec)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Succeeded())
	assert.Equal(t, root, ec.Root())
	assert.Equal(t, []string{root}, f.source.removed)
}

func TestHarvestRepositoryCloneFailure(t *testing.T) {
	f := newFixture()
	f.source.cloneErr = errors.New("authentication required")
	h := f.harvester(t, DefaultConfig())

	summary, err := h.HarvestRepository(context.Background(), NewExecutionContext(Repository{URL: testRepoURL}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "authentication required")
	assert.NotEmpty(t, summary.Error)
	assert.Empty(t, f.triples.cleared)
	assert.Empty(t, f.source.removed)
}

func TestHarvestAll(t *testing.T) {
	f := newFixture()
	repos := []Repository{
		{URL: "https://github.com/a/one"},
		{URL: "https://github.com/a/two"},
		{URL: "https://github.com/a/missing"},
	}
	f.source.roots[repos[0].URL] = writeRepo(t)
	f.source.roots[repos[1].URL] = writeRepo(t)
	h := f.harvester(t, DefaultConfig())

	summaries, err := h.HarvestAll(context.Background(), repos, 2, WithStartedBy("scheduler"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
	require.Len(t, summaries, 3)
	assert.Equal(t, 3, summaries[0].Succeeded())
	assert.Equal(t, 3, summaries[1].Succeeded())
	assert.NotEqual(t, summaries[0].RunID, summaries[1].RunID)
	assert.Equal(t, "scheduler", summaries[1].StartedBy)
	assert.NotEmpty(t, summaries[2].Error)
}

func TestPurge(t *testing.T) {
	f := newFixture()
	h := f.harvester(t, DefaultConfig())
	_, err := h.Run(context.Background(), NewExecutionContext(Repository{URL: testRepoURL}), writeRepo(t))
	require.NoError(t, err)

	require.NoError(t, h.Purge(context.Background(), testRepoURL))
	assert.Empty(t, f.index.items)
	assert.Empty(t, f.triples.graphs)
	assert.Empty(t, f.vocab.collections)

	f.triples.clearErr = errors.New("down")
	f.index.deleteErr = errors.New("also down")
	err = h.Purge(context.Background(), testRepoURL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "down")
	assert.Contains(t, err.Error(), "also down")
}

func TestNewValidation(t *testing.T) {
	_, err := New(DefaultConfig(), Dependencies{})
	assert.Error(t, err)

	f := newFixture()
	deps := Dependencies{Index: f.index, Triples: f.triples, Vocabulary: f.vocab}
	cfg := DefaultConfig()
	cfg.SkipWords = []string{"ab"}
	_, err = New(cfg, deps)
	assert.ErrorIs(t, err, scanner.ErrSkipWordTooShort)

	cfg = DefaultConfig()
	cfg.Types = []asset.Type{"dataset"}
	_, err = New(cfg, deps)
	assert.Error(t, err)
}

func TestRootCause(t *testing.T) {
	base := errors.New("connection refused")
	wrapped := fmt.Errorf("save rdf: %w", fmt.Errorf("write tx: %w", base))
	pathErr := &PathError{Type: asset.TypeOntology, Path: "/a.ttl", Fatal: true, Err: wrapped}

	assert.Equal(t, "write tx: connection refused", RootCause(pathErr).Error())
	assert.ErrorIs(t, pathErr, base)
	assert.Nil(t, RootCause(nil))
	assert.Equal(t, base, RootCause(base))

	prop := &extract.PropertyError{Resource: "<x>", Property: catalog.PropTitle}
	assert.Equal(t, prop, RootCause(fmt.Errorf("extract metadata: %w", prop)))
	assert.Contains(t, pathErr.Error(), "fatal ontology failure on /a.ttl")
}
