package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// ProjectConfigFile is the name of the project-level config file
	ProjectConfigFile = "semharvest.yaml"
	// UserConfigDir is the directory for user-level config
	UserConfigDir = ".config/semharvest"
	// UserConfigFile is the name of the user-level config file
	UserConfigFile = "config.yaml"
)

// Loader handles configuration loading with layered precedence
type Loader struct {
	logger *slog.Logger
	getenv func(string) string
	// explicit replaces the project config search when set
	explicit string
}

// NewLoader creates a new configuration loader
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger, getenv: os.Getenv}
}

// WithFile makes the loader read path instead of searching for a project config.
func (l *Loader) WithFile(path string) *Loader {
	l.explicit = path
	return l
}

// Load loads configuration with layered precedence:
// 1. Default config
// 2. User config (~/.config/semharvest/config.yaml)
// 3. Project config (semharvest.yaml in current or parent directories, or the explicit file)
// 4. Environment variables
func (l *Loader) Load() (*Config, error) {
	// Start with defaults
	config := DefaultConfig()

	// Load user config
	userConfigPath := l.userConfigPath()
	if err := overlay(config, userConfigPath); err == nil {
		l.logger.Debug("Loaded user config", slog.String("path", userConfigPath))
	} else if !errors.Is(err, os.ErrNotExist) {
		l.logger.Warn("Failed to load user config", slog.String("path", userConfigPath), slog.String("error", err.Error()))
	}

	// Load project config
	if l.explicit != "" {
		if err := overlay(config, l.explicit); err != nil {
			return nil, err
		}
		l.logger.Debug("Loaded config file", slog.String("path", l.explicit))
	} else if projectConfigPath := l.findProjectConfig(); projectConfigPath != "" {
		if err := overlay(config, projectConfigPath); err == nil {
			l.logger.Debug("Loaded project config", slog.String("path", projectConfigPath))
		} else {
			l.logger.Warn("Failed to load project config", slog.String("path", projectConfigPath), slog.String("error", err.Error()))
		}
	} else {
		l.logger.Debug("No project config found")
	}

	if err := l.applyEnv(config); err != nil {
		return nil, err
	}

	// Validate final config
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// overlay decodes the file at path onto config. Keys absent from the file
// keep their current value.
func overlay(config *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// applyEnv overrides config from environment variables.
func (l *Loader) applyEnv(c *Config) error {
	str := func(name string, dst *string) {
		if v := strings.TrimSpace(l.getenv(name)); v != "" {
			*dst = v
		}
	}
	integer := func(name string, dst *int) error {
		v := strings.TrimSpace(l.getenv(name))
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
		*dst = n
		return nil
	}

	if v := strings.TrimSpace(l.getenv("SEMHARVEST_MAX_FILE_SIZE")); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid SEMHARVEST_MAX_FILE_SIZE: %w", err)
		}
		c.Harvest.MaxFileSize = n
	}
	if v := strings.TrimSpace(l.getenv("SEMHARVEST_TYPES")); v != "" {
		c.Harvest.Types = strings.Split(v, ",")
	}
	str("SEMHARVEST_WORK_DIR", &c.Harvest.WorkDir)
	str("SEMHARVEST_DATA_SERVICE_BASE_URL", &c.Harvest.DataServiceBaseURL)
	if err := integer("SEMHARVEST_CONCURRENCY", &c.Harvest.Concurrency); err != nil {
		return err
	}
	str("SEMHARVEST_SEARCH_DRIVER", &c.SearchIndex.Driver)
	str("SEMHARVEST_SEARCH_DSN", &c.SearchIndex.DSN)
	str("SEMHARVEST_TRIPLE_STORE", &c.TripleStore.Backend)
	str("SEMHARVEST_METRICS_ADDR", &c.Metrics.Addr)

	str("NATS_URL", &c.NATS.URL)

	str("NEO4J_URI", &c.TripleStore.Neo4j.URI)
	str("NEO4J_USER", &c.TripleStore.Neo4j.User)
	str("NEO4J_PASSWORD", &c.TripleStore.Neo4j.Password)
	str("NEO4J_DATABASE", &c.TripleStore.Neo4j.Database)
	if err := integer("NEO4J_MAX_POOL_SIZE", &c.TripleStore.Neo4j.MaxPoolSize); err != nil {
		return err
	}

	str("REDIS_ADDR", &c.Vocabulary.Addr)
	str("REDIS_PASSWORD", &c.Vocabulary.Password)
	return nil
}

// userConfigPath returns the path to the user config file
func (l *Loader) userConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, UserConfigDir, UserConfigFile)
}

// findProjectConfig searches for semharvest.yaml in current and parent directories
func (l *Loader) findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	dir := cwd
	for {
		configPath := filepath.Join(dir, ProjectConfigFile)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		// Move to parent directory
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			break
		}
		dir = parent
	}

	return ""
}
