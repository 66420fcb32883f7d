package harvester

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/c360studio/semstreams/message"

	"github.com/c360studio/semharvest/graph"
	"github.com/c360studio/semharvest/harvest"
)

// publishSource tags messages published by the harvester.
const publishSource = "semharvest.harvester"

// StreamEvents publishes run notifications to JetStream.
type StreamEvents struct {
	nc     graph.StreamPublisher
	logger *slog.Logger
}

// NewStreamEvents creates an Events sink publishing through nc.
func NewStreamEvents(nc graph.StreamPublisher, logger *slog.Logger) *StreamEvents {
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamEvents{nc: nc, logger: logger}
}

// RunStarted is not published; the request message marks the start.
func (e *StreamEvents) RunStarted(context.Context, *harvest.ExecutionContext) {}

// FileTooBig publishes an oversize notice.
func (e *StreamEvents) FileTooBig(ctx context.Context, _ *harvest.ExecutionContext, n harvest.FileTooBigNotice) {
	if err := e.publish(ctx, FileTooBigSubject, &FileTooBigPayload{Notice: n}); err != nil {
		e.logger.Warn("Failed to publish file too big notice", "path", n.Path, "error", err)
	}
}

// RunFinished publishes the run summary.
func (e *StreamEvents) RunFinished(ctx context.Context, _ *harvest.ExecutionContext, s *harvest.Summary) {
	if err := e.publish(ctx, FinishedSubject, &RunFinishedPayload{Summary: s}); err != nil {
		e.logger.Warn("Failed to publish run summary", "run_id", s.RunID, "error", err)
	}
}

func (e *StreamEvents) publish(ctx context.Context, subject string, payload message.Payload) error {
	if e.nc == nil {
		return nil
	}
	if err := payload.Validate(); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	msg := message.NewBaseMessage(payload.Schema(), payload, publishSource)
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	return e.nc.PublishToStream(ctx, subject, data)
}
