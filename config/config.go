// Package config provides configuration loading and management for semharvest.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360studio/semharvest/asset"
	"github.com/c360studio/semharvest/harvest"
	"github.com/c360studio/semharvest/searchindex"
	"github.com/c360studio/semharvest/triplestore"
	"github.com/c360studio/semharvest/vocabstore"
)

// Triple-store backends.
const (
	TripleStoreNATS  = "nats"
	TripleStoreNeo4j = "neo4j"
)

// Config represents the complete semharvest configuration
type Config struct {
	Harvest      HarvestConfig      `yaml:"harvest"`
	Repositories []RepositoryConfig `yaml:"repositories"`
	SearchIndex  searchindex.Config `yaml:"search_index"`
	TripleStore  TripleStoreConfig  `yaml:"triple_store"`
	Vocabulary   vocabstore.Config  `yaml:"vocabulary_store"`
	NATS         NATSConfig         `yaml:"nats"`
	Metrics      MetricsConfig      `yaml:"metrics"`
}

// HarvestConfig configures the harvest run
type HarvestConfig struct {
	// Types lists the asset types to harvest (empty = all)
	Types []string `yaml:"types"`
	// MaxFileSize is the size in bytes above which a file-too-big notice is sent
	MaxFileSize int64 `yaml:"max_file_size"`
	// DataServiceBaseURL is the base of advertised vocabulary endpoints
	DataServiceBaseURL string   `yaml:"data_service_base_url"`
	SkipWords          []string `yaml:"skip_words"`
	MinSkipWordLength  int      `yaml:"min_skip_word_length"`
	// LatestVersionOnly keeps only the newest version folder of each asset
	LatestVersionOnly bool `yaml:"latest_version_only"`
	// WorkDir holds the repository clones
	WorkDir      string        `yaml:"work_dir"`
	CloneTimeout time.Duration `yaml:"clone_timeout"`
	// CloneDepth limits the cloned history (0 = full)
	CloneDepth int `yaml:"clone_depth"`
	// Concurrency is the number of repositories harvested at once
	Concurrency int `yaml:"concurrency"`
}

// RepositoryConfig is one repository to harvest
type RepositoryConfig struct {
	URL         string `yaml:"url"`
	Branch      string `yaml:"branch"`
	MaxFileSize int64  `yaml:"max_file_size"`
}

// TripleStoreConfig selects and configures the triple-store
type TripleStoreConfig struct {
	// Backend is "nats" (JetStream KV) or "neo4j"
	Backend string             `yaml:"backend"`
	Neo4j   triplestore.Config `yaml:"neo4j"`
}

// NATSConfig configures the NATS connection
type NATSConfig struct {
	// URL is the NATS server URL
	URL string `yaml:"url"`
}

// MetricsConfig configures the Prometheus endpoint
type MetricsConfig struct {
	// Addr is the listen address of /metrics (empty = disabled)
	Addr string `yaml:"addr"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	h := harvest.DefaultConfig()
	types := make([]string, 0, len(h.Types))
	for _, t := range h.Types {
		types = append(types, string(t))
	}
	return &Config{
		Harvest: HarvestConfig{
			Types:              types,
			MaxFileSize:        h.MaxFileSize,
			DataServiceBaseURL: h.DataServiceBaseURL,
			SkipWords:          h.SkipWords,
			MinSkipWordLength:  h.MinSkipWordLength,
			LatestVersionOnly:  h.LatestVersionOnly,
			WorkDir:            filepath.Join(os.TempDir(), "semharvest"),
			CloneTimeout:       5 * time.Minute,
			CloneDepth:         1,
			Concurrency:        2,
		},
		SearchIndex: searchindex.Config{
			Driver:        searchindex.DriverSQLite,
			DSN:           "semharvest.db",
			SlowThreshold: 500 * time.Millisecond,
		},
		TripleStore: TripleStoreConfig{
			Backend: TripleStoreNATS,
			Neo4j: triplestore.Config{
				User:        "neo4j",
				MaxPoolSize: 50,
				Timeout:     10 * time.Second,
				BatchSize:   triplestore.DefaultBatchSize,
			},
		},
		Vocabulary: vocabstore.Config{
			Addr:        "localhost:6379",
			Prefix:      vocabstore.DefaultPrefix,
			DialTimeout: 5 * time.Second,
		},
		NATS: NATSConfig{
			URL: "nats://localhost:4222",
		},
		Metrics: MetricsConfig{
			Addr: ":9090",
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if _, err := c.AssetTypes(); err != nil {
		return err
	}
	if c.Harvest.MaxFileSize < 0 {
		return fmt.Errorf("harvest.max_file_size must not be negative")
	}
	if c.Harvest.Concurrency < 1 {
		return fmt.Errorf("harvest.concurrency must be at least 1")
	}
	switch c.SearchIndex.Driver {
	case searchindex.DriverPostgres, searchindex.DriverSQLite:
	default:
		return fmt.Errorf("search_index.driver must be %q or %q", searchindex.DriverPostgres, searchindex.DriverSQLite)
	}
	switch c.TripleStore.Backend {
	case TripleStoreNATS:
		if c.NATS.URL == "" {
			return fmt.Errorf("nats.url is required by the nats triple-store")
		}
	case TripleStoreNeo4j:
		if c.TripleStore.Neo4j.URI == "" {
			return fmt.Errorf("triple_store.neo4j.uri is required")
		}
	default:
		return fmt.Errorf("triple_store.backend must be %q or %q", TripleStoreNATS, TripleStoreNeo4j)
	}
	if c.Vocabulary.Addr == "" {
		return fmt.Errorf("vocabulary_store.addr is required")
	}
	for i, r := range c.Repositories {
		if r.URL == "" {
			return fmt.Errorf("repositories[%d].url is required", i)
		}
	}
	return nil
}

// AssetTypes parses the configured asset types.
func (c *Config) AssetTypes() ([]asset.Type, error) {
	out := make([]asset.Type, 0, len(c.Harvest.Types))
	for _, s := range c.Harvest.Types {
		t, err := asset.ParseType(strings.TrimSpace(s))
		if err != nil {
			return nil, fmt.Errorf("harvest.types: %w", err)
		}
		out = append(out, t)
	}
	return out, nil
}

// HarvestSettings converts the harvest section into harvester settings.
func (c *Config) HarvestSettings() (harvest.Config, error) {
	types, err := c.AssetTypes()
	if err != nil {
		return harvest.Config{}, err
	}
	return harvest.Config{
		Types:              types,
		MaxFileSize:        c.Harvest.MaxFileSize,
		DataServiceBaseURL: c.Harvest.DataServiceBaseURL,
		SkipWords:          c.Harvest.SkipWords,
		MinSkipWordLength:  c.Harvest.MinSkipWordLength,
		LatestVersionOnly:  c.Harvest.LatestVersionOnly,
	}, nil
}

// HarvestRepositories converts the repositories section.
func (c *Config) HarvestRepositories() []harvest.Repository {
	out := make([]harvest.Repository, 0, len(c.Repositories))
	for _, r := range c.Repositories {
		out = append(out, harvest.Repository{URL: r.URL, Branch: r.Branch, MaxFileSize: r.MaxFileSize})
	}
	return out
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values).
// Booleans are not merged.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Harvest
	h, o := &c.Harvest, other.Harvest
	if len(o.Types) > 0 {
		h.Types = o.Types
	}
	if o.MaxFileSize != 0 {
		h.MaxFileSize = o.MaxFileSize
	}
	if o.DataServiceBaseURL != "" {
		h.DataServiceBaseURL = o.DataServiceBaseURL
	}
	if len(o.SkipWords) > 0 {
		h.SkipWords = o.SkipWords
	}
	if o.MinSkipWordLength != 0 {
		h.MinSkipWordLength = o.MinSkipWordLength
	}
	if o.WorkDir != "" {
		h.WorkDir = o.WorkDir
	}
	if o.CloneTimeout != 0 {
		h.CloneTimeout = o.CloneTimeout
	}
	if o.CloneDepth != 0 {
		h.CloneDepth = o.CloneDepth
	}
	if o.Concurrency != 0 {
		h.Concurrency = o.Concurrency
	}

	// Repositories
	if len(other.Repositories) > 0 {
		c.Repositories = other.Repositories
	}

	// Search index
	if other.SearchIndex.Driver != "" {
		c.SearchIndex.Driver = other.SearchIndex.Driver
	}
	if other.SearchIndex.DSN != "" {
		c.SearchIndex.DSN = other.SearchIndex.DSN
	}
	if other.SearchIndex.SlowThreshold != 0 {
		c.SearchIndex.SlowThreshold = other.SearchIndex.SlowThreshold
	}

	// Triple-store
	if other.TripleStore.Backend != "" {
		c.TripleStore.Backend = other.TripleStore.Backend
	}
	n, on := &c.TripleStore.Neo4j, other.TripleStore.Neo4j
	if on.URI != "" {
		n.URI = on.URI
	}
	if on.User != "" {
		n.User = on.User
	}
	if on.Password != "" {
		n.Password = on.Password
	}
	if on.Database != "" {
		n.Database = on.Database
	}
	if on.MaxPoolSize != 0 {
		n.MaxPoolSize = on.MaxPoolSize
	}
	if on.Timeout != 0 {
		n.Timeout = on.Timeout
	}
	if on.BatchSize != 0 {
		n.BatchSize = on.BatchSize
	}

	// Vocabulary store
	v, ov := &c.Vocabulary, other.Vocabulary
	if ov.Addr != "" {
		v.Addr = ov.Addr
	}
	if ov.Password != "" {
		v.Password = ov.Password
	}
	if ov.DB != 0 {
		v.DB = ov.DB
	}
	if ov.Prefix != "" {
		v.Prefix = ov.Prefix
	}
	if ov.DialTimeout != 0 {
		v.DialTimeout = ov.DialTimeout
	}

	// NATS
	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
	}

	// Metrics
	if other.Metrics.Addr != "" {
		c.Metrics.Addr = other.Metrics.Addr
	}
}
