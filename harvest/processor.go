package harvest

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/c360studio/semharvest/asset"
	"github.com/c360studio/semharvest/csvingest"
	"github.com/c360studio/semharvest/extract"
	"github.com/c360studio/semharvest/graph"
	"github.com/c360studio/semharvest/validation"
	"github.com/c360studio/semharvest/vocabulary/catalog"
)

// PathStats describes one processed path.
type PathStats struct {
	Type asset.Type
	IRI  string
	// Validation counts the issues raised while extracting metadata.
	Validation validation.Counts
	// Records is the number of indexed CSV rows, for vocabularies.
	Records int
}

// Processor turns one discovered path into stored metadata, RDF and, for
// controlled vocabularies, flattened records.
type Processor struct {
	index     SearchIndex
	triples   TripleStore
	vocab     VocabularyStore
	csv       *csvingest.Parser
	publisher graph.StreamPublisher
	baseURL   string
	logger    *slog.Logger
}

// ProcessorConfig holds the processor collaborators and settings.
type ProcessorConfig struct {
	Index      SearchIndex
	Triples    TripleStore
	Vocabulary VocabularyStore
	// CSV parses vocabulary CSV files. Nil uses the default strategies.
	CSV *csvingest.Parser
	// Publisher receives catalogue entities. Nil disables publishing.
	Publisher graph.StreamPublisher
	// DataServiceBaseURL is the base of the vocabulary endpoints advertised
	// in enriched graphs.
	DataServiceBaseURL string
	Logger             *slog.Logger
}

// NewProcessor creates a path processor.
func NewProcessor(cfg ProcessorConfig) *Processor {
	p := &Processor{
		index:     cfg.Index,
		triples:   cfg.Triples,
		vocab:     cfg.Vocabulary,
		csv:       cfg.CSV,
		publisher: cfg.Publisher,
		baseURL:   strings.TrimSuffix(cfg.DataServiceBaseURL, "/"),
		logger:    cfg.Logger,
	}
	if p.csv == nil {
		p.csv = csvingest.NewParser()
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// loaded is an RDF file with its main resource resolved.
type loaded struct {
	graph *graph.Graph
	main  graph.Resource
}

func (p *Processor) load(t asset.Type, path asset.SourcePath) (*loaded, error) {
	g, err := graph.Load(path.RDFFile())
	if err != nil {
		return nil, pathFailure(t, path, false, err)
	}
	main, err := g.MainResource(t.MainClass())
	if err != nil {
		return nil, pathFailure(t, path, false, fmt.Errorf("locate main resource: %w", err))
	}
	return &loaded{graph: g, main: main}, nil
}

// ProcessOntology processes an ontology path.
func (p *Processor) ProcessOntology(ctx context.Context, ec *ExecutionContext, path asset.Path) (PathStats, error) {
	return p.processRDF(ctx, ec, asset.TypeOntology, path, nil)
}

// ProcessSchema processes a schema path.
func (p *Processor) ProcessSchema(ctx context.Context, ec *ExecutionContext, path asset.Path) (PathStats, error) {
	return p.processRDF(ctx, ec, asset.TypeSchema, path, nil)
}

// ProcessVocabulary processes a controlled vocabulary path. With a CSV the
// graph advertises the vocabulary data service and the rows are indexed
// after the metadata and RDF are stored.
func (p *Processor) ProcessVocabulary(ctx context.Context, ec *ExecutionContext, path asset.CvPath) (PathStats, error) {
	csvFile, hasCSV := path.CSVFile()
	var enrich func(*loaded)
	if hasCSV {
		enrich = p.addDataService
	}

	stats, m, err := p.processRDFMetadata(ctx, ec, asset.TypeControlledVocabulary, path, enrich)
	if err != nil || !hasCSV {
		return stats, err
	}

	n, err := p.indexRecords(ctx, m, csvFile)
	if err != nil {
		return stats, pathFailure(asset.TypeControlledVocabulary, path, false, err)
	}
	stats.Records = n
	return stats, nil
}

func (p *Processor) processRDF(ctx context.Context, ec *ExecutionContext, t asset.Type, path asset.SourcePath, enrich func(*loaded)) (PathStats, error) {
	stats, _, err := p.processRDFMetadata(ctx, ec, t, path, enrich)
	return stats, err
}

// processRDFMetadata runs the steps shared by every asset type: load,
// enrich, extract, store metadata, store RDF and record the rights holder
// and maintainers on the execution context.
func (p *Processor) processRDFMetadata(ctx context.Context, ec *ExecutionContext, t asset.Type, path asset.SourcePath, enrich func(*loaded)) (PathStats, asset.Metadata, error) {
	stats := PathStats{Type: t}

	l, err := p.load(t, path)
	if err != nil {
		return stats, asset.Metadata{}, err
	}
	stats.IRI = l.main.IRI()

	if enrich != nil {
		enrich(l)
	}

	result, report, err := extract.AssetMetadata(l.main, t, ec.Repository.URL)
	stats.Validation = report.Counts()
	ec.recordValidation(stats.Validation)
	for _, w := range report.Warnings() {
		p.logger.Debug("Metadata warning",
			"run_id", ec.RunID,
			"path", path.RDFFile(),
			"field", w.Field,
			"message", w.Message)
	}
	if err != nil {
		return stats, asset.Metadata{}, pathFailure(t, path, false, fmt.Errorf("extract metadata: %w", err))
	}
	m := result.Metadata

	if err := p.index.Save(ctx, m); err != nil {
		return stats, m, pathFailure(t, path, true, fmt.Errorf("save metadata: %w", err))
	}
	if err := p.triples.Save(ctx, ec.Repository.URL, l.graph); err != nil {
		return stats, m, pathFailure(t, path, true, fmt.Errorf("save rdf: %w", err))
	}

	p.recordPeople(ec, path, result)

	if err := graph.PublishAsset(ctx, p.publisher, m, ec.RunID); err != nil {
		p.logger.Warn("Failed to publish asset entity",
			"run_id", ec.RunID,
			"iri", m.IRI,
			"error", err)
	}

	p.logger.Info("Asset harvested",
		"run_id", ec.RunID,
		"type", t,
		"iri", m.IRI,
		"path", path.RDFFile(),
		"errors", stats.Validation.Errors,
		"warnings", stats.Validation.Warnings)
	return stats, m, nil
}

func (p *Processor) recordPeople(ec *ExecutionContext, path asset.SourcePath, result extract.Result) {
	if result.RightsHolder.ID == "" {
		p.logger.Warn("Rights holder without identifier not recorded",
			"run_id", ec.RunID,
			"path", path.RDFFile())
	} else {
		ec.AddRightsHolder(result.RightsHolder)
	}
	if len(result.Maintainers) > 0 {
		ec.AddMaintainers(result.Maintainers...)
	}
}

// addDataService links the vocabulary to the data service serving its
// flattened records. Blank-node vocabularies and vocabularies missing the
// rights holder or key concept are left untouched; extraction reports the
// missing fields.
func (p *Processor) addDataService(l *loaded) {
	if !l.main.Term().IsIRI() {
		return
	}
	holder, _, err := extract.RightsHolder(l.main)
	if err != nil {
		return
	}
	keyConcept, _, err := extract.Literal(l.main, catalog.PropKeyConcept)
	if err != nil {
		return
	}

	service := graph.IRI(l.main.IRI() + "/DataService")
	l.main.Add(catalog.PropHasDataService, service)
	svc := l.graph.Resource(service)
	svc.Add(catalog.PropType, graph.IRI(catalog.ClassDataService))
	svc.Add(catalog.PropEndpointURL, graph.IRI(VocabularyEndpoint(p.baseURL, holder.ID, keyConcept)))
	svc.Add(catalog.PropServesDataset, l.main.Term())
}

// VocabularyEndpoint returns the endpoint URL of a flattened vocabulary.
func VocabularyEndpoint(baseURL, rightsHolderID, keyConcept string) string {
	return fmt.Sprintf("%s/vocabularies/%s/%s",
		strings.TrimSuffix(baseURL, "/"),
		url.PathEscape(rightsHolderID),
		url.PathEscape(keyConcept))
}

func (p *Processor) indexRecords(ctx context.Context, m asset.Metadata, csvFile string) (int, error) {
	id := m.VocabularyID()
	if !id.Valid() {
		return 0, fmt.Errorf("vocabulary %s has no identifier", m.IRI)
	}
	records, err := p.csv.ParseFile(csvFile)
	if err != nil {
		return 0, fmt.Errorf("ingest csv: %w", err)
	}
	if err := p.vocab.IndexRecords(ctx, id.Key(), records); err != nil {
		return 0, fmt.Errorf("index records of %s: %w", id, err)
	}
	return len(records.Records), nil
}

// dropVocabularies drops the collections of every vocabulary the search
// index holds for repoURL. Failures are logged per collection.
func (p *Processor) dropVocabularies(ctx context.Context, repoURL string, onDrop func()) error {
	vocabularies, err := p.index.FindByRepoAndType(ctx, repoURL, asset.TypeControlledVocabulary)
	if err != nil {
		return fmt.Errorf("find vocabularies: %w", err)
	}
	for _, m := range vocabularies {
		id := m.VocabularyID()
		if !id.Valid() {
			continue
		}
		if err := p.vocab.DropCollection(ctx, id.Key()); err != nil {
			p.logger.Error("Failed to drop vocabulary collection",
				"repo", repoURL,
				"collection", id.Key(),
				"error", err)
			continue
		}
		if onDrop != nil {
			onDrop()
		}
		p.logger.Debug("Dropped vocabulary collection", "repo", repoURL, "collection", id.Key())
	}
	return nil
}
