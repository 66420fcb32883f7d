// Package harvester provides a component that harvests repositories on
// request over NATS JetStream.
package harvester

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360studio/semstreams/component"
	"github.com/c360studio/semstreams/natsclient"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360studio/semharvest/harvest"
	"github.com/c360studio/semharvest/repository"
)

// harvesterSchema defines the configuration schema.
var harvesterSchema = component.GenerateConfigSchema(reflect.TypeOf(Config{}))

// Runner performs harvests. *harvest.Harvester satisfies it.
type Runner interface {
	HarvestRepository(ctx context.Context, ec *harvest.ExecutionContext) (*harvest.Summary, error)
	Purge(ctx context.Context, repoURL string) error
}

// ackAction is what to do with a request once handled.
type ackAction int

const (
	ack ackAction = iota
	// retry redelivers the request after the retry delay.
	retry
	// reject drops a request that can never succeed.
	reject
)

// Component implements the harvester processor.
type Component struct {
	name       string
	config     Config
	natsClient *natsclient.Client
	logger     *slog.Logger
	runner     Runner

	// Lifecycle management
	running   bool
	startTime time.Time
	mu        sync.RWMutex
	cancel    context.CancelFunc
	done      chan struct{}

	// Metrics
	runsCompleted  atomic.Int64
	reposRemoved   atomic.Int64
	errors         atomic.Int64
	lastActivityMu sync.RWMutex
	lastActivity   time.Time
}

// NewComponent creates a new harvester processor component.
func NewComponent(rawConfig json.RawMessage, deps component.Dependencies, runner Runner) (*Component, error) {
	config := DefaultConfig()
	if len(rawConfig) > 0 {
		if err := json.Unmarshal(rawConfig, &config); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}
	if config.Ports == nil {
		config.Ports = DefaultConfig().Ports
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if runner == nil {
		return nil, fmt.Errorf("harvest runner required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Component{
		name:       "harvester",
		config:     config,
		natsClient: deps.NATSClient,
		logger:     logger,
		runner:     runner,
	}, nil
}

// Initialize prepares the component.
func (c *Component) Initialize() error {
	return nil
}

// Start begins processing harvest requests.
func (c *Component) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("component already running")
	}
	if c.natsClient == nil {
		c.mu.Unlock()
		return fmt.Errorf("NATS client required")
	}
	js, err := c.natsClient.JetStream()
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("get jetstream: %w", err)
	}

	consumer, err := js.CreateOrUpdateConsumer(ctx, c.config.StreamName, jetstream.ConsumerConfig{
		Durable:       c.config.ConsumerName,
		FilterSubject: "harvest.repo.>",
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       c.config.GetRunTimeout() + time.Minute,
		MaxDeliver:    c.config.MaxDeliver,
	})
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("create consumer %s: %w", c.config.ConsumerName, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	c.running = true
	c.startTime = time.Now()
	c.mu.Unlock()

	go c.consumeMessages(runCtx, consumer)

	c.logger.Info("Harvester started",
		"stream", c.config.StreamName,
		"consumer", c.config.ConsumerName)

	return nil
}

// consumeMessages processes incoming harvest requests one at a time.
func (c *Component) consumeMessages(ctx context.Context, consumer jetstream.Consumer) {
	defer close(c.done)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		// Fetch next message with timeout
		msgs, err := consumer.Fetch(1, jetstream.FetchMaxWait(5*time.Second))
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			continue // Timeout, try again
		}

		for msg := range msgs.Messages() {
			select {
			case <-ctx.Done():
				_ = msg.Nak()
				return
			default:
				c.handleMessage(ctx, msg)
			}
		}
	}
}

// handleMessage processes a single request and acknowledges it.
func (c *Component) handleMessage(ctx context.Context, msg jetstream.Msg) {
	switch c.process(ctx, msg.Subject(), msg.Data()) {
	case ack:
		_ = msg.Ack()
	case retry:
		_ = msg.NakWithDelay(c.config.GetRetryDelay())
	case reject:
		_ = msg.Term()
	}
}

// process handles a request by subject.
func (c *Component) process(ctx context.Context, subject string, data []byte) ackAction {
	c.updateLastActivity()

	// harvest.repo.<action>
	parts := strings.Split(subject, ".")
	if len(parts) < 3 {
		c.logger.Warn("Invalid subject format", "subject", subject)
		return reject
	}

	switch parts[2] {
	case "run":
		return c.handleRun(ctx, data)
	case "remove":
		return c.handleRemove(ctx, data)
	default:
		c.logger.Warn("Unknown action", "action", parts[2], "subject", subject)
		return reject
	}
}

// handleRun harvests one repository.
func (c *Component) handleRun(ctx context.Context, data []byte) ackAction {
	var req RunRequest
	if err := json.Unmarshal(data, &req); err != nil {
		c.logger.Warn("Failed to parse harvest request", "error", err)
		c.errors.Add(1)
		return reject
	}
	if err := repository.ValidateURL(req.URL); err != nil {
		c.logger.Warn("Rejected harvest request", "url", req.URL, "error", err)
		c.errors.Add(1)
		return reject
	}

	opts := []harvest.ContextOption{harvest.WithStartedBy(req.StartedBy)}
	if req.CorrelationID != "" {
		opts = append(opts, harvest.WithCorrelationID(req.CorrelationID))
	}
	ec := harvest.NewExecutionContext(harvest.Repository{
		URL:         req.URL,
		Branch:      req.Branch,
		MaxFileSize: req.MaxFileSize,
	}, opts...)

	runCtx, cancel := context.WithTimeout(ctx, c.config.GetRunTimeout())
	defer cancel()

	c.logger.Info("Processing harvest request", "url", req.URL, "branch", req.Branch, "run_id", ec.RunID)
	summary, err := c.runner.HarvestRepository(runCtx, ec)
	if err != nil {
		c.logger.Error("Harvest failed", "url", req.URL, "run_id", ec.RunID, "error", err)
		c.errors.Add(1)
		return retry
	}

	c.runsCompleted.Add(1)
	c.logger.Info("Harvest request completed",
		"url", req.URL,
		"run_id", ec.RunID,
		"succeeded", summary.Succeeded(),
		"failed", summary.Failed())
	return ack
}

// handleRemove drops a repository's harvested data.
func (c *Component) handleRemove(ctx context.Context, data []byte) ackAction {
	var req RemoveRequest
	if err := json.Unmarshal(data, &req); err != nil || req.URL == "" {
		c.logger.Warn("Failed to parse remove request", "error", err)
		c.errors.Add(1)
		return reject
	}

	if err := c.runner.Purge(ctx, req.URL); err != nil {
		c.logger.Error("Failed to remove repository", "url", req.URL, "error", err)
		c.errors.Add(1)
		return retry
	}

	c.reposRemoved.Add(1)
	c.logger.Info("Repository removed", "url", req.URL)
	return ack
}

// updateLastActivity safely updates the last activity timestamp.
func (c *Component) updateLastActivity() {
	c.lastActivityMu.Lock()
	c.lastActivity = time.Now()
	c.lastActivityMu.Unlock()
}

// getLastActivity safely retrieves the last activity timestamp.
func (c *Component) getLastActivity() time.Time {
	c.lastActivityMu.RLock()
	defer c.lastActivityMu.RUnlock()
	return c.lastActivity
}

// Stop gracefully stops the component within the given timeout.
func (c *Component) Stop(timeout time.Duration) error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return nil
	}
	if c.cancel != nil {
		c.cancel()
	}
	c.running = false
	done := c.done
	c.mu.Unlock()

	if done != nil {
		select {
		case <-done:
		case <-time.After(timeout):
			c.logger.Warn("Harvester did not stop in time", "timeout", timeout)
		}
	}

	c.logger.Info("Harvester stopped",
		"runs_completed", c.runsCompleted.Load(),
		"repos_removed", c.reposRemoved.Load(),
		"errors", c.errors.Load())

	return nil
}

// Discoverable interface implementation

// Meta returns component metadata.
func (c *Component) Meta() component.Metadata {
	return component.Metadata{
		Name:        "harvester",
		Type:        "processor",
		Description: "Semantic asset harvester for ontologies, controlled vocabularies and schemas",
		Version:     "0.1.0",
	}
}

// InputPorts returns configured input port definitions.
func (c *Component) InputPorts() []component.Port {
	if c.config.Ports == nil {
		return []component.Port{}
	}

	ports := make([]component.Port, len(c.config.Ports.Inputs))
	for i, portDef := range c.config.Ports.Inputs {
		ports[i] = buildPort(portDef, component.DirectionInput)
	}
	return ports
}

// OutputPorts returns configured output port definitions.
func (c *Component) OutputPorts() []component.Port {
	if c.config.Ports == nil {
		return []component.Port{}
	}

	ports := make([]component.Port, len(c.config.Ports.Outputs))
	for i, portDef := range c.config.Ports.Outputs {
		ports[i] = buildPort(portDef, component.DirectionOutput)
	}
	return ports
}

// buildPort creates a component.Port from a PortDefinition.
func buildPort(portDef component.PortDefinition, direction component.Direction) component.Port {
	port := component.Port{
		Name:        portDef.Name,
		Direction:   direction,
		Required:    portDef.Required,
		Description: portDef.Description,
	}
	if portDef.Type == "jetstream" {
		port.Config = component.JetStreamPort{
			StreamName: portDef.StreamName,
			Subjects:   []string{portDef.Subject},
		}
	} else {
		port.Config = component.NATSPort{
			Subject: portDef.Subject,
		}
	}
	return port
}

// ConfigSchema returns the configuration schema.
func (c *Component) ConfigSchema() component.ConfigSchema {
	return harvesterSchema
}

// Health returns the current health status.
func (c *Component) Health() component.HealthStatus {
	c.mu.RLock()
	running := c.running
	startTime := c.startTime
	c.mu.RUnlock()

	status := "stopped"
	if running {
		status = "running"
	}
	return component.HealthStatus{
		Healthy:    running,
		LastCheck:  time.Now(),
		ErrorCount: int(c.errors.Load()),
		Uptime:     time.Since(startTime),
		Status:     status,
	}
}

// DataFlow returns current data flow metrics.
func (c *Component) DataFlow() component.FlowMetrics {
	return component.FlowMetrics{
		LastActivity: c.getLastActivity(),
	}
}
