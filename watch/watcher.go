// Package watch watches a local checkout for changes to harvestable files.
package watch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	// eventChannelBuffer is the size of the batch channel.
	eventChannelBuffer = 16
)

// Config configures checkout watching.
type Config struct {
	// DebounceDelay is how long to wait for more changes before emitting a batch.
	DebounceDelay string `yaml:"debounce_delay"`

	// FileExtensions lists file extensions to watch.
	FileExtensions []string `yaml:"file_extensions"`

	// ExcludeDirs lists directory names to skip.
	ExcludeDirs []string `yaml:"exclude_dirs"`
}

// DefaultConfig returns default watch configuration.
func DefaultConfig() Config {
	return Config{
		DebounceDelay:  "2s",
		FileExtensions: []string{".ttl", ".csv"},
		ExcludeDirs:    []string{".git"},
	}
}

// GetDebounceDelay returns the debounce delay as a duration.
func (c *Config) GetDebounceDelay() time.Duration {
	if c.DebounceDelay == "" {
		return 2 * time.Second
	}
	d, err := time.ParseDuration(c.DebounceDelay)
	if err != nil {
		return 2 * time.Second
	}
	return d
}

// Operation indicates the type of file operation.
type Operation string

// OpCreate, OpModify, and OpDelete enumerate the file operation types.
const (
	OpCreate Operation = "create"
	OpModify Operation = "modify"
	OpDelete Operation = "delete"
)

// Change is one changed file.
type Change struct {
	// Path is relative to the watched root.
	Path      string
	AbsPath   string
	Operation Operation
}

// Batch is the set of changes collected during one debounce window,
// sorted by path.
type Batch struct {
	Changes []Change
}

// Watcher watches a checkout and emits debounced batches of changes.
type Watcher struct {
	config     Config
	root       string
	watcher    *fsnotify.Watcher
	logger     *slog.Logger
	extensions map[string]bool
	excludes   map[string]bool

	// Debouncing: collect changes before emitting
	pendingMu sync.Mutex
	pending   map[string]fsnotify.Op

	// Hash-based change detection
	hashMu sync.RWMutex
	hashes map[string]string

	batches chan Batch

	droppedBatches atomic.Int64
}

// New creates a watcher for root.
func New(config Config, root string, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = slog.Default()
	}

	extensions := make(map[string]bool)
	exts := config.FileExtensions
	if len(exts) == 0 {
		exts = DefaultConfig().FileExtensions
	}
	for _, ext := range exts {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		extensions[strings.ToLower(ext)] = true
	}

	excludes := make(map[string]bool)
	dirs := config.ExcludeDirs
	if len(dirs) == 0 {
		dirs = DefaultConfig().ExcludeDirs
	}
	for _, dir := range dirs {
		excludes[dir] = true
	}

	return &Watcher{
		config:     config,
		root:       root,
		watcher:    fsw,
		logger:     logger,
		extensions: extensions,
		excludes:   excludes,
		pending:    make(map[string]fsnotify.Op),
		hashes:     make(map[string]string),
		batches:    make(chan Batch, eventChannelBuffer),
	}, nil
}

// Batches returns the channel of change batches. It is closed when the
// watcher stops.
func (w *Watcher) Batches() <-chan Batch {
	return w.batches
}

// Start records the current content of watched files and begins watching.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.walk(w.root); err != nil {
		return err
	}

	go w.processEvents(ctx)

	w.logger.Info("Checkout watcher started",
		"root", w.root,
		"debounce", w.config.GetDebounceDelay())

	return nil
}

// Stop stops the watcher.
// The batches channel is closed by processEvents when it exits.
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

// walk adds watches to every directory under dir and hashes the watched
// files it finds.
func (w *Watcher) walk(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			if w.watched(path) {
				if h, err := hashFile(path); err == nil {
					w.setHash(w.rel(path), h)
				}
			}
			return nil
		}

		// Skip excluded and hidden directories
		base := filepath.Base(path)
		if path != dir && w.skipDir(base) {
			return filepath.SkipDir
		}

		if err := w.watcher.Add(path); err != nil {
			w.logger.Warn("Failed to watch directory",
				"path", path,
				"error", err)
		} else {
			w.logger.Debug("Watching directory", "path", path)
		}
		return nil
	})
}

func (w *Watcher) skipDir(base string) bool {
	return w.excludes[base] || (strings.HasPrefix(base, ".") && base != ".")
}

func (w *Watcher) watched(path string) bool {
	return w.extensions[strings.ToLower(filepath.Ext(path))]
}

func (w *Watcher) rel(path string) string {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return path
	}
	return rel
}

// processEvents handles fsnotify events with debouncing.
func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.batches)
	ticker := time.NewTicker(w.config.GetDebounceDelay())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Watcher error", "error", err)

		case <-ticker.C:
			w.flushPending()
		}
	}
}

// handleFSEvent processes a single fsnotify event.
func (w *Watcher) handleFSEvent(event fsnotify.Event) {
	path := event.Name

	if !w.watched(path) {
		// But handle directory creation (for new watches)
		if event.Has(fsnotify.Create) {
			if info, err := os.Stat(path); err == nil && info.IsDir() && !w.skipDir(filepath.Base(path)) {
				if err := w.walk(path); err != nil {
					w.logger.Warn("Failed to watch new directory", "path", path, "error", err)
				}
				// Files created with the directory count as changes.
				w.pendingMu.Lock()
				w.pending[path] = fsnotify.Create
				w.pendingMu.Unlock()
			}
		}
		return
	}

	w.pendingMu.Lock()
	w.pending[path] |= event.Op
	w.pendingMu.Unlock()

	w.logger.Debug("Checkout change detected",
		"path", w.rel(path),
		"op", event.Op.String())
}

// flushPending turns the accumulated changes into a batch.
func (w *Watcher) flushPending() {
	w.pendingMu.Lock()
	if len(w.pending) == 0 {
		w.pendingMu.Unlock()
		return
	}
	toProcess := w.pending
	w.pending = make(map[string]fsnotify.Op)
	w.pendingMu.Unlock()

	var batch Batch
	seen := make(map[string]bool)
	add := func(c Change) {
		if !seen[c.AbsPath] {
			seen[c.AbsPath] = true
			batch.Changes = append(batch.Changes, c)
		}
	}
	for path, op := range toProcess {
		if w.watched(path) {
			if c, ok := w.change(path, op); ok {
				add(c)
			}
			continue
		}
		// A new directory: report every watched file below it.
		_ = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err == nil && !d.IsDir() && w.watched(p) {
				add(Change{Path: w.rel(p), AbsPath: p, Operation: OpCreate})
			}
			return nil
		})
	}
	if len(batch.Changes) == 0 {
		return
	}
	sort.Slice(batch.Changes, func(i, j int) bool { return batch.Changes[i].Path < batch.Changes[j].Path })
	w.sendBatch(batch)
}

// change classifies one pending path. Files whose content did not change
// are ignored.
func (w *Watcher) change(path string, op fsnotify.Op) (Change, bool) {
	relPath := w.rel(path)
	c := Change{Path: relPath, AbsPath: path}

	h, err := hashFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			w.logger.Warn("Failed to read file for hash check", "path", relPath, "error", err)
			return Change{}, false
		}
		w.hashMu.Lock()
		_, known := w.hashes[relPath]
		delete(w.hashes, relPath)
		w.hashMu.Unlock()
		c.Operation = OpDelete
		return c, known || op.Has(fsnotify.Remove) || op.Has(fsnotify.Rename)
	}

	old, had := w.getHash(relPath)
	if had && old == h {
		return Change{}, false
	}
	w.setHash(relPath, h)
	if had {
		c.Operation = OpModify
	} else {
		c.Operation = OpCreate
	}
	return c, true
}

func (w *Watcher) setHash(path, hash string) {
	w.hashMu.Lock()
	defer w.hashMu.Unlock()
	w.hashes[path] = hash
}

func (w *Watcher) getHash(path string) (string, bool) {
	w.hashMu.RLock()
	defer w.hashMu.RUnlock()
	hash, ok := w.hashes[path]
	return hash, ok
}

// sendBatch sends a batch to the output channel.
func (w *Watcher) sendBatch(b Batch) {
	select {
	case w.batches <- b:
		w.logger.Debug("Sent change batch", "changes", len(b.Changes))
	default:
		dropped := w.droppedBatches.Add(1)
		w.logger.Warn("Batch channel full, dropping batch",
			"changes", len(b.Changes),
			"total_dropped", dropped)
	}
}

// DroppedBatches returns the number of batches dropped due to channel overflow.
func (w *Watcher) DroppedBatches() int64 {
	return w.droppedBatches.Load()
}

func hashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
