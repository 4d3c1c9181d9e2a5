package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for graphoni-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values.
// Secrets (passwords) must only come from environment variables.
type Config struct {
	Env     string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version string `yaml:"-"` // Set at load time, not from config

	// MigrationsPath is the directory holding SQL migration files.
	MigrationsPath string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"migrations"`

	// Database configuration for the proposal/audit store (PostgreSQL)
	Database DatabaseConfig `yaml:"database"`

	// Graph store configuration (Neo4j)
	Graph GraphConfig `yaml:"graph"`

	// Executor configuration for graph mutations
	Executor ExecutorConfig `yaml:"executor"`

	// MCP session actor. Credential resolution happens upstream of the
	// engine; the stdio MCP server runs as one already-resolved actor.
	Actor ActorConfig `yaml:"actor"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"graphoni"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"graphoni_engine"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// GraphConfig holds Neo4j graph store configuration.
type GraphConfig struct {
	URI      string `yaml:"uri" env:"NEO4J_URI" env-default:"bolt://localhost:7687"`
	User     string `yaml:"user" env:"NEO4J_USER" env-default:"neo4j"`
	Password string `yaml:"-" env:"NEO4J_PASSWORD"` // Secret - not in YAML
	Database string `yaml:"database" env:"NEO4J_DATABASE" env-default:"neo4j"`
}

// ExecutorConfig bounds graph mutation execution.
type ExecutorConfig struct {
	// MutationTimeoutSeconds caps each graph store call. A timeout resolves
	// the proposal to failed rather than leaving it approved.
	MutationTimeoutSeconds int `yaml:"mutation_timeout_seconds" env:"MUTATION_TIMEOUT_SECONDS" env-default:"10"`
}

// MutationTimeout returns the mutation timeout as a duration.
func (c *ExecutorConfig) MutationTimeout() time.Duration {
	return time.Duration(c.MutationTimeoutSeconds) * time.Second
}

// ActorConfig identifies the resolved actor for the MCP session.
type ActorConfig struct {
	ID   string `yaml:"id" env:"GRAPHONI_ACTOR_ID" env-default:""`
	Name string `yaml:"name" env:"GRAPHONI_ACTOR_NAME" env-default:"mcp"`
	Role string `yaml:"role" env:"GRAPHONI_ACTOR_ROLE" env-default:"user"`
}

// Load reads configuration from config.yaml (if present) with environment
// variable overrides.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment config: %w", err)
		}
	}

	if cfg.Executor.MutationTimeoutSeconds <= 0 {
		return nil, fmt.Errorf("mutation_timeout_seconds must be positive, got %d", cfg.Executor.MutationTimeoutSeconds)
	}

	return cfg, nil
}
