package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"sort"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360studio/semharvest/harvest"
)

var runIDPattern = regexp.MustCompile(`^[-_a-zA-Z0-9]+$`)

// RunStore persists run summaries.
type RunStore struct {
	kv     jetstream.KeyValue
	logger *slog.Logger
}

// NewRunStore creates the runs bucket if it doesn't exist.
func NewRunStore(ctx context.Context, js jetstream.JetStream, logger *slog.Logger) (*RunStore, error) {
	kv, err := getOrCreateBucket(ctx, js, BucketRuns)
	if err != nil {
		return nil, fmt.Errorf("create runs bucket: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RunStore{kv: kv, logger: logger}, nil
}

func runKey(runID string) string {
	if !runIDPattern.MatchString(runID) {
		runID = hash(runID)
	}
	return RunKey(runID).String()
}

// SaveRun stores a summary, replacing any previous one for the run.
func (s *RunStore) SaveRun(ctx context.Context, sum *harvest.Summary) error {
	if sum.RunID == "" {
		return fmt.Errorf("run ID is required")
	}
	data, err := json.Marshal(sum)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	if _, err := s.kv.Put(ctx, runKey(sum.RunID), data); err != nil {
		return fmt.Errorf("store summary: %w", err)
	}
	return nil
}

// GetRun retrieves a summary by run ID.
func (s *RunStore) GetRun(ctx context.Context, runID string) (*harvest.Summary, error) {
	entry, err := s.kv.Get(ctx, runKey(runID))
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get summary: %w", err)
	}
	var sum harvest.Summary
	if err := json.Unmarshal(entry.Value(), &sum); err != nil {
		return nil, fmt.Errorf("unmarshal summary: %w", err)
	}
	return &sum, nil
}

// ListRuns returns the stored summaries, most recent first. An empty
// repoURL matches every repository.
func (s *RunStore) ListRuns(ctx context.Context, repoURL string) ([]*harvest.Summary, error) {
	ks, err := keys(ctx, s.kv, string(KeyKindRun)+".")
	if err != nil {
		return nil, fmt.Errorf("list run keys: %w", err)
	}

	runs := make([]*harvest.Summary, 0, len(ks))
	for _, key := range ks {
		entry, err := s.kv.Get(ctx, key)
		if err != nil {
			continue // Skip entries that fail to load
		}
		var sum harvest.Summary
		if err := json.Unmarshal(entry.Value(), &sum); err != nil {
			continue
		}
		if repoURL != "" && sum.RepoURL != repoURL {
			continue
		}
		runs = append(runs, &sum)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].StartedAt.After(runs[j].StartedAt) })
	return runs, nil
}

// Events returns a sink that persists every finished run.
func (s *RunStore) Events() harvest.Events {
	return runEvents{store: s}
}

type runEvents struct {
	store *RunStore
}

func (runEvents) RunStarted(context.Context, *harvest.ExecutionContext) {}

func (runEvents) FileTooBig(context.Context, *harvest.ExecutionContext, harvest.FileTooBigNotice) {}

func (e runEvents) RunFinished(ctx context.Context, _ *harvest.ExecutionContext, sum *harvest.Summary) {
	if err := e.store.SaveRun(ctx, sum); err != nil {
		e.store.logger.Warn("Failed to persist run summary", "run_id", sum.RunID, "error", err)
	}
}
