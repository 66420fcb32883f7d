package harvest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/c360studio/semharvest/asset"
	"github.com/c360studio/semharvest/csvingest"
	"github.com/c360studio/semharvest/graph"
)

const testRepoURL = "https://github.com/italia/dati-semantic-assets"

type fakeIndex struct {
	mu        sync.Mutex
	items     map[string]asset.Metadata
	saveErr   error
	findErr   error
	deleteErr error
	saves     int
	calls     []string
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{items: make(map[string]asset.Metadata)}
}

func (f *fakeIndex) Save(_ context.Context, m asset.Metadata) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "save")
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saves++
	f.items[m.IRI] = m
	return nil
}

func (f *fakeIndex) FindByRepoAndType(_ context.Context, repoURL string, t asset.Type) ([]asset.Metadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "find")
	if f.findErr != nil {
		return nil, f.findErr
	}
	var out []asset.Metadata
	for _, m := range f.items {
		if m.RepoURL == repoURL && m.Type == t {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeIndex) DeleteByRepoURL(_ context.Context, repoURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "delete")
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for iri, m := range f.items {
		if m.RepoURL == repoURL {
			delete(f.items, iri)
		}
	}
	return nil
}

func (f *fakeIndex) get(iri string) (asset.Metadata, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.items[iri]
	return m, ok
}

type fakeTriples struct {
	mu       sync.Mutex
	graphs   map[string][]graph.Triple
	cleared  []string
	saveErr  error
	clearErr error
}

func newFakeTriples() *fakeTriples {
	return &fakeTriples{graphs: make(map[string][]graph.Triple)}
}

func (f *fakeTriples) Save(_ context.Context, name string, g *graph.Graph) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.graphs[name] = append(f.graphs[name], g.Triples()...)
	return nil
}

func (f *fakeTriples) ClearGraph(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared = append(f.cleared, name)
	if f.clearErr != nil {
		return f.clearErr
	}
	delete(f.graphs, name)
	return nil
}

type fakeVocab struct {
	mu          sync.Mutex
	collections map[string][]csvingest.Record
	dropped     []string
	dropErr     map[string]error
	indexErr    error
}

func newFakeVocab() *fakeVocab {
	return &fakeVocab{collections: make(map[string][]csvingest.Record), dropErr: make(map[string]error)}
}

func (f *fakeVocab) IndexRecords(_ context.Context, collection string, res *csvingest.Result) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.indexErr != nil {
		return f.indexErr
	}
	f.collections[collection] = append([]csvingest.Record(nil), res.Records...)
	return nil
}

func (f *fakeVocab) DropCollection(_ context.Context, collection string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dropped = append(f.dropped, collection)
	if err := f.dropErr[collection]; err != nil {
		return err
	}
	delete(f.collections, collection)
	return nil
}

type recordingEvents struct {
	mu       sync.Mutex
	started  int
	tooBig   []FileTooBigNotice
	finished []*Summary
}

func (e *recordingEvents) RunStarted(context.Context, *ExecutionContext) {
	e.mu.Lock()
	e.started++
	e.mu.Unlock()
}

func (e *recordingEvents) FileTooBig(_ context.Context, _ *ExecutionContext, n FileTooBigNotice) {
	e.mu.Lock()
	e.tooBig = append(e.tooBig, n)
	e.mu.Unlock()
}

func (e *recordingEvents) RunFinished(_ context.Context, _ *ExecutionContext, s *Summary) {
	e.mu.Lock()
	e.finished = append(e.finished, s)
	e.mu.Unlock()
}

type fakeSource struct {
	mu       sync.Mutex
	roots    map[string]string
	cloneErr error
	removed  []string
}

func (f *fakeSource) Clone(_ context.Context, repoURL, _ string) (string, error) {
	if f.cloneErr != nil {
		return "", f.cloneErr
	}
	root, ok := f.roots[repoURL]
	if !ok {
		return "", errors.New("repository not found")
	}
	return root, nil
}

func (f *fakeSource) Remove(root string) error {
	f.mu.Lock()
	f.removed = append(f.removed, root)
	f.mu.Unlock()
	return nil
}

const ontologyTurtle = `
@prefix owl: <http://www.w3.org/2002/07/owl#> .
@prefix dct: <http://purl.org/dc/terms/> .
@prefix dcat: <http://www.w3.org/ns/dcat#> .
@prefix foaf: <http://xmlns.com/foaf/0.1/> .
@prefix vann: <http://purl.org/vocab/vann/> .

<https://w3id.org/italia/onto/CPV> a owl:Ontology ;
    dct:title "Persone"@it ;
    dct:description "Ontologia delle persone"@it ;
    dct:modified "2023-01-10"^^<http://www.w3.org/2001/XMLSchema#date> ;
    dcat:theme <http://publications.europa.eu/resource/authority/data-theme/SOCI> ;
    vann:preferredNamespacePrefix "cpv" ;
    dct:rightsHolder <https://w3id.org/italia/data/public-organization/agid> .

<https://w3id.org/italia/data/public-organization/agid> dct:identifier "agid" ;
    foaf:name "Agenzia per l'Italia Digitale"@it .
`

const vocabularyTurtle = `
@prefix skos: <http://www.w3.org/2004/02/skos/core#> .
@prefix dct: <http://purl.org/dc/terms/> .
@prefix dcat: <http://www.w3.org/ns/dcat#> .
@prefix foaf: <http://xmlns.com/foaf/0.1/> .
@prefix vcard: <http://www.w3.org/2006/vcard/ns#> .
@prefix ndc: <https://w3id.org/italia/onto/NDC-profile/> .

<https://w3id.org/italia/controlled-vocabulary/licences> a skos:ConceptScheme ;
    dct:title "Licenze"@it ;
    dct:description "Vocabolario delle licenze"@it ;
    dct:modified "2022-11-30"^^<http://www.w3.org/2001/XMLSchema#date> ;
    dcat:theme <http://publications.europa.eu/resource/authority/data-theme/GOVE> ;
    ndc:keyConcept "licences" ;
    dct:rightsHolder <https://w3id.org/italia/data/public-organization/agid> ;
    dcat:contactPoint <https://example.org/contact> .

<https://w3id.org/italia/data/public-organization/agid> dct:identifier "agid" ;
    foaf:name "Agenzia per l'Italia Digitale"@it .

<https://example.org/contact> vcard:fn "Team Dati" ;
    vcard:hasEmail <mailto:dati@example.org> .
`

const schemaTurtle = `
@prefix dct: <http://purl.org/dc/terms/> .
@prefix dcat: <http://www.w3.org/ns/dcat#> .

<https://w3id.org/italia/schema/person> a dcat:Dataset ;
    dct:title "Schema persona"@it ;
    dct:description "Schema dati della persona"@it ;
    dct:modified "2023-03-01"^^<http://www.w3.org/2001/XMLSchema#date> ;
    dcat:theme <http://publications.europa.eu/resource/authority/data-theme/SOCI> ;
    dct:rightsHolder <https://w3id.org/italia/data/public-organization/istat> .

<https://w3id.org/italia/data/public-organization/istat> dct:identifier "istat" .
`

// notAnOntologyTurtle parses but has no owl:Ontology subject.
const notAnOntologyTurtle = `
@prefix skos: <http://www.w3.org/2004/02/skos/core#> .
<https://w3id.org/italia/onto/broken> a skos:ConceptScheme .
`

const licencesCSV = "codice_1_livello,label.it\nA,Alpha\nB,Beta\n"

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// writeRepo lays out one asset of each type below a fresh checkout.
func writeRepo(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "assets/ontologies/CPV/latest/CPV.ttl"), ontologyTurtle)
	writeFile(t, filepath.Join(root, "assets/controlled-vocabularies/licences/licences.ttl"), vocabularyTurtle)
	writeFile(t, filepath.Join(root, "assets/controlled-vocabularies/licences/licences.csv"), licencesCSV)
	writeFile(t, filepath.Join(root, "assets/schemas/person/index.ttl"), schemaTurtle)
	return root
}

type fixture struct {
	index   *fakeIndex
	triples *fakeTriples
	vocab   *fakeVocab
	events  *recordingEvents
	source  *fakeSource
}

func newFixture() *fixture {
	return &fixture{
		index:   newFakeIndex(),
		triples: newFakeTriples(),
		vocab:   newFakeVocab(),
		events:  &recordingEvents{},
		source:  &fakeSource{roots: make(map[string]string)},
	}
}

func (f *fixture) harvester(t *testing.T, cfg Config) *Harvester {
	t.Helper()
	h, err := New(cfg, Dependencies{
		Index:      f.index,
		Triples:    f.triples,
		Vocabulary: f.vocab,
		Source:     f.source,
		Events:     f.events,
	})
	require.NoError(t, err)
	return h
}
