package harvest

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/c360studio/semharvest/asset"
	"github.com/c360studio/semharvest/validation"
)

// Repository describes the repository a run harvests.
type Repository struct {
	URL    string `json:"url"`
	Branch string `json:"branch,omitempty"`
	// MaxFileSize overrides the configured oversize threshold in bytes for
	// this repository. Zero keeps the configured value.
	MaxFileSize int64 `json:"max_file_size,omitempty"`
}

// AssetRef identifies one successfully harvested asset.
type AssetRef struct {
	Type       asset.Type        `json:"type"`
	IRI        string            `json:"iri"`
	Path       string            `json:"path"`
	Validation validation.Counts `json:"validation"`
	Records    int               `json:"records,omitempty"`
}

// ExecutionContext is the state of one harvest run of one repository. It is
// created per run and passed down the call chain; it must never be shared
// between runs. Accumulated lists are append-only and safe for concurrent
// use.
type ExecutionContext struct {
	RunID         string
	CorrelationID string
	StartedBy     string
	Repository    Repository
	StartedAt     time.Time

	mu            sync.Mutex
	root          string
	rightsHolders []asset.RightsHolder
	maintainers   []asset.Maintainer
	failures      []*PathError
	assets        []AssetRef
	oversize      []FileTooBigNotice
	processed     map[asset.Type]*TypeCounts
	validation    validation.Counts
}

// ContextOption configures an ExecutionContext.
type ContextOption func(*ExecutionContext)

// WithCorrelationID sets the id correlating the run with its trigger.
func WithCorrelationID(id string) ContextOption {
	return func(ec *ExecutionContext) { ec.CorrelationID = id }
}

// WithStartedBy sets the user or system that started the run.
func WithStartedBy(who string) ContextOption {
	return func(ec *ExecutionContext) { ec.StartedBy = who }
}

// WithRunID overrides the generated run id.
func WithRunID(id string) ContextOption {
	return func(ec *ExecutionContext) { ec.RunID = id }
}

// NewExecutionContext starts the context of a new run of repo.
func NewExecutionContext(repo Repository, opts ...ContextOption) *ExecutionContext {
	ec := &ExecutionContext{
		RunID:      uuid.NewString(),
		Repository: repo,
		StartedAt:  time.Now().UTC(),
		processed:  make(map[asset.Type]*TypeCounts),
	}
	for _, opt := range opts {
		opt(ec)
	}
	if ec.CorrelationID == "" {
		ec.CorrelationID = ec.RunID
	}
	return ec
}

// Root returns the checkout being harvested, empty before the clone.
func (ec *ExecutionContext) Root() string {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return ec.root
}

func (ec *ExecutionContext) setRoot(root string) {
	ec.mu.Lock()
	ec.root = root
	ec.mu.Unlock()
}

// AddRightsHolder records a rights holder seen during the run.
func (ec *ExecutionContext) AddRightsHolder(rh asset.RightsHolder) {
	ec.mu.Lock()
	ec.rightsHolders = append(ec.rightsHolders, rh)
	ec.mu.Unlock()
}

// AddMaintainers records maintainers seen during the run.
func (ec *ExecutionContext) AddMaintainers(ms ...asset.Maintainer) {
	ec.mu.Lock()
	ec.maintainers = append(ec.maintainers, ms...)
	ec.mu.Unlock()
}

// AddFailure records a failure that is not tied to one processed path,
// such as a failed scan.
func (ec *ExecutionContext) AddFailure(err *PathError) {
	ec.mu.Lock()
	ec.failures = append(ec.failures, err)
	ec.mu.Unlock()
}

func (ec *ExecutionContext) addFailedPath(err *PathError) {
	ec.mu.Lock()
	ec.failures = append(ec.failures, err)
	ec.countsLocked(err.Type).Failed++
	ec.mu.Unlock()
}

func (ec *ExecutionContext) addAsset(ref AssetRef) {
	ec.mu.Lock()
	ec.assets = append(ec.assets, ref)
	ec.countsLocked(ref.Type).Succeeded++
	ec.mu.Unlock()
}

func (ec *ExecutionContext) addOversize(n FileTooBigNotice) {
	ec.mu.Lock()
	ec.oversize = append(ec.oversize, n)
	ec.mu.Unlock()
}

func (ec *ExecutionContext) countsLocked(t asset.Type) *TypeCounts {
	c, ok := ec.processed[t]
	if !ok {
		c = &TypeCounts{}
		ec.processed[t] = c
	}
	return c
}

// RightsHolders returns a copy of the rights holders seen so far.
func (ec *ExecutionContext) RightsHolders() []asset.RightsHolder {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return append([]asset.RightsHolder(nil), ec.rightsHolders...)
}

// Maintainers returns a copy of the maintainers seen so far.
func (ec *ExecutionContext) Maintainers() []asset.Maintainer {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return append([]asset.Maintainer(nil), ec.maintainers...)
}

// Failures returns a copy of the failures recorded so far.
func (ec *ExecutionContext) Failures() []*PathError {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return append([]*PathError(nil), ec.failures...)
}

// Assets returns a copy of the assets harvested so far.
func (ec *ExecutionContext) Assets() []AssetRef {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return append([]AssetRef(nil), ec.assets...)
}

// Validation returns the issue totals of the assets processed so far.
func (ec *ExecutionContext) Validation() validation.Counts {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return ec.validation
}

func (ec *ExecutionContext) recordValidation(c validation.Counts) {
	ec.mu.Lock()
	ec.validation.Errors += c.Errors
	ec.validation.Warnings += c.Warnings
	ec.mu.Unlock()
}
