// Package harvest drives the harvest of semantic assets from a repository
// checkout into the search index, the triple-store and the vocabulary
// store.
package harvest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/c360studio/semharvest/asset"
	"github.com/c360studio/semharvest/csvingest"
	"github.com/c360studio/semharvest/graph"
	"github.com/c360studio/semharvest/metrics"
	"github.com/c360studio/semharvest/scanner"
)

// Config holds the harvest settings.
type Config struct {
	// Types lists the asset types to harvest, in order. Empty means all.
	Types []asset.Type
	// MaxFileSize is the size in bytes above which a file triggers a
	// file-too-big notice. Zero disables the check.
	MaxFileSize int64
	// DataServiceBaseURL is the base of advertised vocabulary endpoints.
	DataServiceBaseURL string
	// SkipWords exclude files whose name contains any of them.
	SkipWords         []string
	MinSkipWordLength int
	LatestVersionOnly bool
	// AssetRoots overrides the folder, relative to the checkout, holding
	// the assets of a type.
	AssetRoots map[asset.Type]string
}

// DefaultConfig returns the default harvest settings.
func DefaultConfig() Config {
	return Config{
		Types:              asset.Types(),
		MaxFileSize:        10 << 20,
		DataServiceBaseURL: "https://schema.gov.it/api",
		SkipWords:          []string{"aligns", "example"},
		MinSkipWordLength:  scanner.DefaultMinSkipWordLength,
		LatestVersionOnly:  true,
	}
}

// Dependencies are the collaborators of a Harvester.
type Dependencies struct {
	Index      SearchIndex
	Triples    TripleStore
	Vocabulary VocabularyStore
	Source     RepositorySource
	// Events defaults to LogEvents.
	Events Events
	// Publisher receives catalogue entities. Nil disables publishing.
	Publisher graph.StreamPublisher
	Metrics   *metrics.Metrics
	CSV       *csvingest.Parser
	Logger    *slog.Logger
}

// Harvester runs harvests of repositories.
type Harvester struct {
	cfg       Config
	processor *Processor
	index     SearchIndex
	triples   TripleStore
	source    RepositorySource
	events    Events
	publisher graph.StreamPublisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	variants  []typeHarvester
}

// New creates a harvester. It fails when a store is missing or the skip
// words are invalid.
func New(cfg Config, deps Dependencies) (*Harvester, error) {
	if deps.Index == nil || deps.Triples == nil || deps.Vocabulary == nil {
		return nil, errors.New("search index, triple-store and vocabulary store are required")
	}
	if cfg.MinSkipWordLength <= 0 {
		cfg.MinSkipWordLength = scanner.DefaultMinSkipWordLength
	}
	if len(cfg.Types) == 0 {
		cfg.Types = asset.Types()
	}
	skip, err := scanner.NewSkipList(cfg.SkipWords, cfg.MinSkipWordLength)
	if err != nil {
		return nil, fmt.Errorf("build skip list: %w", err)
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	events := deps.Events
	if events == nil {
		events = LogEvents{Logger: logger}
	}

	h := &Harvester{
		cfg:       cfg,
		index:     deps.Index,
		triples:   deps.Triples,
		source:    deps.Source,
		events:    events,
		publisher: deps.Publisher,
		metrics:   deps.Metrics,
		logger:    logger,
	}
	h.processor = NewProcessor(ProcessorConfig{
		Index:              deps.Index,
		Triples:            deps.Triples,
		Vocabulary:         deps.Vocabulary,
		CSV:                deps.CSV,
		Publisher:          deps.Publisher,
		DataServiceBaseURL: cfg.DataServiceBaseURL,
		Logger:             logger,
	})

	opts := scanner.Options{Skip: skip, LatestVersionOnly: cfg.LatestVersionOnly, Logger: logger}
	for _, t := range cfg.Types {
		switch t {
		case asset.TypeOntology:
			h.variants = append(h.variants, variant[asset.Path]{
				typ:     t,
				h:       h,
				scanner: scanner.NewOntologyScanner(opts),
				process: h.processor.ProcessOntology,
			})
		case asset.TypeControlledVocabulary:
			h.variants = append(h.variants, variant[asset.CvPath]{
				typ:     t,
				h:       h,
				scanner: scanner.NewVocabularyScanner(opts),
				process: h.processor.ProcessVocabulary,
				clean:   h.dropVocabularies,
			})
		case asset.TypeSchema:
			h.variants = append(h.variants, variant[asset.Path]{
				typ:     t,
				h:       h,
				scanner: scanner.NewSchemaScanner(opts),
				process: h.processor.ProcessSchema,
			})
		default:
			return nil, fmt.Errorf("unknown asset type %q", t)
		}
	}
	return h, nil
}

// Run harvests the checkout at root for the repository of ec.
func (h *Harvester) Run(ctx context.Context, ec *ExecutionContext, root string) (*Summary, error) {
	h.events.RunStarted(ctx, ec)
	ec.setRoot(root)
	err := h.run(ctx, ec, root)
	return h.finish(ctx, ec, err), err
}

// HarvestRepository clones the repository of ec, harvests it and removes
// the checkout. Clone failures are returned without touching the stores.
func (h *Harvester) HarvestRepository(ctx context.Context, ec *ExecutionContext) (*Summary, error) {
	if h.source == nil {
		return nil, errors.New("no repository source configured")
	}
	h.events.RunStarted(ctx, ec)

	root, err := h.source.Clone(ctx, ec.Repository.URL, ec.Repository.Branch)
	if err != nil {
		err = fmt.Errorf("clone %s: %w", ec.Repository.URL, err)
		return h.finish(ctx, ec, err), err
	}
	ec.setRoot(root)
	defer func() {
		if rmErr := h.source.Remove(root); rmErr != nil {
			h.logger.Warn("Failed to remove checkout", "run_id", ec.RunID, "path", root, "error", rmErr)
		}
	}()

	err = h.run(ctx, ec, root)
	return h.finish(ctx, ec, err), err
}

func (h *Harvester) run(ctx context.Context, ec *ExecutionContext, root string) error {
	repoURL := ec.Repository.URL
	if repoURL == "" {
		return errors.New("repository URL is required")
	}

	// Collections are found through the search index, so they go first.
	for _, v := range h.variants {
		v.cleanup(ctx, ec)
	}
	if err := h.triples.ClearGraph(ctx, repoURL); err != nil {
		return fmt.Errorf("clear graph %s: %w", repoURL, err)
	}
	if err := h.index.DeleteByRepoURL(ctx, repoURL); err != nil {
		return fmt.Errorf("delete metadata of %s: %w", repoURL, err)
	}

	for _, v := range h.variants {
		typeRoot := filepath.Join(root, h.assetRoot(v.assetType()))
		if err := v.harvest(ctx, ec, typeRoot); err != nil {
			return err
		}
	}
	return nil
}

func (h *Harvester) finish(ctx context.Context, ec *ExecutionContext, err error) *Summary {
	summary := ec.Summarize(err)
	h.metrics.RunFinished(summary.FinishedAt.Sub(summary.StartedAt), err)
	if pubErr := graph.PublishRepository(ctx, h.publisher, summary.RepoURL, summary.Succeeded(), summary.Failed(), summary.FinishedAt); pubErr != nil {
		h.logger.Warn("Failed to publish repository entity", "run_id", ec.RunID, "error", pubErr)
	}
	h.events.RunFinished(ctx, ec, summary)
	return summary
}

func (h *Harvester) assetRoot(t asset.Type) string {
	if dir, ok := h.cfg.AssetRoots[t]; ok && dir != "" {
		return dir
	}
	return t.Folder()
}

func (h *Harvester) dropVocabularies(ctx context.Context, ec *ExecutionContext) {
	if err := h.processor.dropVocabularies(ctx, ec.Repository.URL, h.metrics.CollectionDropped); err != nil {
		h.logger.Error("Vocabulary cleanup failed", "run_id", ec.RunID, "repo", ec.Repository.URL, "error", err)
	}
}

// checkSize emits a file-too-big notice for the files of path above the
// size threshold.
func (h *Harvester) checkSize(ctx context.Context, ec *ExecutionContext, path asset.SourcePath) {
	limit := h.cfg.MaxFileSize
	if ec.Repository.MaxFileSize > 0 {
		limit = ec.Repository.MaxFileSize
	}
	if limit <= 0 {
		return
	}

	var big []FileSize
	for _, f := range path.Files() {
		info, err := os.Stat(f)
		if err != nil {
			continue
		}
		if info.Size() > limit {
			big = append(big, FileSize{Path: f, Size: info.Size()})
		}
	}
	if len(big) == 0 {
		return
	}

	notice := FileTooBigNotice{
		RunID:   ec.RunID,
		RepoURL: ec.Repository.URL,
		Path:    path.RDFFile(),
		MaxSize: limit,
		Files:   big,
	}
	ec.addOversize(notice)
	h.metrics.FileTooBig(len(big))
	h.events.FileTooBig(ctx, ec, notice)
}

// Purge removes everything repoURL contributed: vocabulary collections,
// the named graph and the indexed metadata.
func (h *Harvester) Purge(ctx context.Context, repoURL string) error {
	var errs []error
	if err := h.processor.dropVocabularies(ctx, repoURL, h.metrics.CollectionDropped); err != nil {
		errs = append(errs, err)
	}
	if err := h.triples.ClearGraph(ctx, repoURL); err != nil {
		errs = append(errs, fmt.Errorf("clear graph: %w", err))
	}
	if err := h.index.DeleteByRepoURL(ctx, repoURL); err != nil {
		errs = append(errs, fmt.Errorf("delete metadata: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("purge %s: %w", repoURL, errors.Join(errs...))
	}
	h.logger.Info("Repository purged", "repo", repoURL)
	return nil
}

// HarvestAll harvests repos concurrently, at most limit at a time, each in
// its own execution context. Every repository is attempted; the returned
// error joins the failed runs.
func (h *Harvester) HarvestAll(ctx context.Context, repos []Repository, limit int, opts ...ContextOption) ([]*Summary, error) {
	summaries := make([]*Summary, len(repos))
	errs := make([]error, len(repos))

	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, repo := range repos {
		g.Go(func() error {
			ec := NewExecutionContext(repo, opts...)
			summaries[i], errs[i] = h.HarvestRepository(gctx, ec)
			return nil
		})
	}
	_ = g.Wait()
	return summaries, errors.Join(errs...)
}
