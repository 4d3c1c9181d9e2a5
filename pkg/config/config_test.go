package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("test-version")
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, "test-version", cfg.Version)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "graphoni_engine", cfg.Database.Database)
	assert.Equal(t, "bolt://localhost:7687", cfg.Graph.URI)
	assert.Equal(t, "neo4j", cfg.Graph.Database)
	assert.Equal(t, 10*time.Second, cfg.Executor.MutationTimeout())
	assert.Equal(t, "user", cfg.Actor.Role)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PGHOST", "db.internal")
	t.Setenv("PGPASSWORD", "s3cret")
	t.Setenv("NEO4J_URI", "bolt://graph.internal:7687")
	t.Setenv("MUTATION_TIMEOUT_SECONDS", "3")
	t.Setenv("GRAPHONI_ACTOR_ROLE", "admin")

	cfg, err := Load("dev")
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "s3cret", cfg.Database.Password)
	assert.Equal(t, "bolt://graph.internal:7687", cfg.Graph.URI)
	assert.Equal(t, 3*time.Second, cfg.Executor.MutationTimeout())
	assert.Equal(t, "admin", cfg.Actor.Role)
}

func TestLoadFromYAMLFile(t *testing.T) {
	doc := map[string]any{
		"env":             "staging",
		"migrations_path": "db/migrations",
		"database": map[string]any{
			"host":     "pg.staging",
			"port":     5433,
			"user":     "graphoni",
			"database": "graphoni_engine",
			"ssl_mode": "require",
		},
		"graph": map[string]any{
			"uri":      "bolt://neo4j.staging:7687",
			"user":     "neo4j",
			"database": "wiki",
		},
		"executor": map[string]any{
			"mutation_timeout_seconds": 5,
		},
		"actor": map[string]any{
			"name": "staging-mcp",
			"role": "moderator",
		},
	}
	data, err := yaml.Marshal(doc)
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), data, 0o600))
	t.Chdir(dir)
	// Passwords never come from YAML.
	t.Setenv("PGPASSWORD", "yaml-test-secret")

	cfg, err := Load("dev")
	require.NoError(t, err)

	assert.Equal(t, "staging", cfg.Env)
	assert.Equal(t, "db/migrations", cfg.MigrationsPath)
	assert.Equal(t, "pg.staging", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, "require", cfg.Database.SSLMode)
	assert.Equal(t, "yaml-test-secret", cfg.Database.Password)
	assert.Equal(t, "bolt://neo4j.staging:7687", cfg.Graph.URI)
	assert.Equal(t, "wiki", cfg.Graph.Database)
	assert.Equal(t, 5*time.Second, cfg.Executor.MutationTimeout())
	assert.Equal(t, "moderator", cfg.Actor.Role)
}

func TestLoadRejectsNonPositiveTimeout(t *testing.T) {
	t.Setenv("MUTATION_TIMEOUT_SECONDS", "0")

	_, err := Load("dev")
	require.Error(t, err)
}

func TestConnectionString(t *testing.T) {
	c := &DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "graphoni",
		Password: "pw",
		Database: "graphoni_engine",
		SSLMode:  "disable",
	}
	assert.Equal(t,
		"host=localhost port=5432 user=graphoni password=pw dbname=graphoni_engine sslmode=disable",
		c.ConnectionString())
}
