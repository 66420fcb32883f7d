package harvest

import (
	"context"
	"log/slog"
)

// FileSize is one file and its size in bytes.
type FileSize struct {
	Path string `json:"path"`
	Size int64  `json:"size"`
}

// FileTooBigNotice reports files above the size threshold. It is a policy
// signal, not an error: the path is processed regardless.
type FileTooBigNotice struct {
	RunID   string     `json:"run_id"`
	RepoURL string     `json:"repo_url"`
	Path    string     `json:"path"`
	MaxSize int64      `json:"max_size"`
	Files   []FileSize `json:"files"`
}

// Events receives run notifications. Implementations are best-effort: a
// failing sink never affects the harvest.
type Events interface {
	RunStarted(ctx context.Context, ec *ExecutionContext)
	FileTooBig(ctx context.Context, ec *ExecutionContext, notice FileTooBigNotice)
	RunFinished(ctx context.Context, ec *ExecutionContext, summary *Summary)
}

// LogEvents writes run notifications to a logger.
type LogEvents struct {
	Logger *slog.Logger
}

func (e LogEvents) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

func (e LogEvents) RunStarted(_ context.Context, ec *ExecutionContext) {
	e.logger().Info("Harvest started",
		"run_id", ec.RunID,
		"correlation_id", ec.CorrelationID,
		"repo", ec.Repository.URL,
		"started_by", ec.StartedBy)
}

func (e LogEvents) FileTooBig(_ context.Context, ec *ExecutionContext, n FileTooBigNotice) {
	e.logger().Warn("File too big",
		"run_id", ec.RunID,
		"repo", n.RepoURL,
		"path", n.Path,
		"max_size", n.MaxSize,
		"files", n.Files)
}

func (e LogEvents) RunFinished(_ context.Context, ec *ExecutionContext, s *Summary) {
	attrs := []any{
		"run_id", ec.RunID,
		"repo", s.RepoURL,
		"succeeded", s.Succeeded(),
		"failed", s.Failed(),
		"rights_holders", len(s.RightsHolders),
		"duration", s.FinishedAt.Sub(s.StartedAt),
	}
	if s.Error != "" {
		e.logger().Error("Harvest failed", append(attrs, "error", s.Error)...)
		return
	}
	e.logger().Info("Harvest finished", attrs...)
}

// MultiEvents fans notifications out to every sink in order.
type MultiEvents []Events

func (m MultiEvents) RunStarted(ctx context.Context, ec *ExecutionContext) {
	for _, e := range m {
		e.RunStarted(ctx, ec)
	}
}

func (m MultiEvents) FileTooBig(ctx context.Context, ec *ExecutionContext, n FileTooBigNotice) {
	for _, e := range m {
		e.FileTooBig(ctx, ec, n)
	}
}

func (m MultiEvents) RunFinished(ctx context.Context, ec *ExecutionContext, s *Summary) {
	for _, e := range m {
		e.RunFinished(ctx, ec, s)
	}
}
