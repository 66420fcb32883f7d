package harvester

import (
	"fmt"
	"time"

	"github.com/c360studio/semstreams/component"
)

// Subjects used by the harvester.
const (
	RunSubject        = "harvest.repo.run"
	RemoveSubject     = "harvest.repo.remove"
	FinishedSubject   = "harvest.run.finished"
	FileTooBigSubject = "harvest.alert.file_too_big"
)

// Config holds configuration for the harvester processor component.
type Config struct {
	Ports *component.PortConfig `json:"ports" schema:"type:ports,description:Port configuration,category:basic"`

	// StreamName is the JetStream stream for harvest messages.
	StreamName string `json:"stream_name" schema:"type:string,description:JetStream stream name,category:basic,default:HARVEST"`

	// ConsumerName is the durable consumer name.
	ConsumerName string `json:"consumer_name" schema:"type:string,description:Durable consumer name,category:basic,default:harvester"`

	// RunTimeout is the maximum time for harvesting one repository.
	RunTimeout string `json:"run_timeout" schema:"type:string,description:Repository harvest timeout,category:advanced,default:30m"`

	// MaxDeliver bounds redelivery of a failed request.
	MaxDeliver int `json:"max_deliver" schema:"type:int,description:Maximum deliveries of a request,category:advanced,default:3"`

	// RetryDelay is the delay before a failed request is redelivered.
	RetryDelay string `json:"retry_delay" schema:"type:string,description:Redelivery delay after a failed harvest,category:advanced,default:1m"`
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.StreamName == "" {
		return fmt.Errorf("stream_name is required")
	}
	if c.ConsumerName == "" {
		return fmt.Errorf("consumer_name is required")
	}
	if c.MaxDeliver < 0 {
		return fmt.Errorf("max_deliver must not be negative")
	}
	if c.RunTimeout != "" {
		if _, err := time.ParseDuration(c.RunTimeout); err != nil {
			return fmt.Errorf("invalid run_timeout format: %w", err)
		}
	}
	if c.RetryDelay != "" {
		if _, err := time.ParseDuration(c.RetryDelay); err != nil {
			return fmt.Errorf("invalid retry_delay format: %w", err)
		}
	}
	return nil
}

// GetRunTimeout returns the run timeout as a duration.
func (c *Config) GetRunTimeout() time.Duration {
	if c.RunTimeout == "" {
		return 30 * time.Minute
	}
	d, err := time.ParseDuration(c.RunTimeout)
	if err != nil {
		return 30 * time.Minute
	}
	return d
}

// GetRetryDelay returns the redelivery delay as a duration.
func (c *Config) GetRetryDelay() time.Duration {
	if c.RetryDelay == "" {
		return time.Minute
	}
	d, err := time.ParseDuration(c.RetryDelay)
	if err != nil {
		return time.Minute
	}
	return d
}

// DefaultConfig returns default configuration for the harvester processor.
func DefaultConfig() Config {
	inputDefs := []component.PortDefinition{
		{
			Name:        "requests.in",
			Type:        "jetstream",
			Subject:     "harvest.repo.>",
			StreamName:  "HARVEST",
			Required:    true,
			Description: "Repository harvest and removal requests",
		},
	}

	outputDefs := []component.PortDefinition{
		{
			Name:        "runs.out",
			Type:        "jetstream",
			Subject:     FinishedSubject,
			StreamName:  "HARVEST",
			Required:    true,
			Description: "Summaries of finished harvest runs",
		},
		{
			Name:        "alerts.out",
			Type:        "jetstream",
			Subject:     FileTooBigSubject,
			StreamName:  "HARVEST",
			Required:    false,
			Description: "Oversize file notices",
		},
		{
			Name:        "graph.out",
			Type:        "jetstream",
			Subject:     "graph.ingest.entity",
			StreamName:  "GRAPH",
			Required:    false,
			Description: "Catalogue entities for graph ingestion",
		},
	}

	return Config{
		Ports: &component.PortConfig{
			Inputs:  inputDefs,
			Outputs: outputDefs,
		},
		StreamName:   "HARVEST",
		ConsumerName: "harvester",
		RunTimeout:   "30m",
		MaxDeliver:   3,
		RetryDelay:   "1m",
	}
}
