package config

import (
	_ "embed"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:embed thresholds.yaml
var thresholdsYAML []byte

type Config struct {
	Embedder   EmbedderConfig
	Database   DatabaseConfig
	Registry   RegistryConfig
	Web        WebConfig
	Thresholds ThresholdsConfig
}

type EmbedderConfig struct {
	URL   string // face embedding service base URL (defaults to http://localhost:8000)
	Model string // embedding model name, used for threshold lookup (defaults to facenet)
	Dim   int    // embedding dimension (defaults to 128)
}

type DatabaseConfig struct {
	URL           string // PostgreSQL connection URL
	MaxOpenConns  int    // Maximum open connections (default 25)
	MaxIdleConns  int    // Maximum idle connections (default 5)
	HNSWIndexPath string // Path to persist enrollment HNSW index (optional, if empty index is rebuilt on startup)
}

type RegistryConfig struct {
	DSN string // MariaDB DSN of the electoral roll registry (e.g., roll:roll@tcp(mariadb:3306)/electoral_roll)
}

type WebConfig struct {
	Port int
	Host string
}

type ThresholdsConfig struct {
	Models map[string]ModelThresholds `yaml:"models"`
}

type ModelThresholds struct {
	Verify   float64 `yaml:"verify"`
	Identify float64 `yaml:"identify"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

func Load() *Config {
	var thresholds ThresholdsConfig
	if err := yaml.Unmarshal(thresholdsYAML, &thresholds); err != nil {
		// This is an embedded file so this error should never happen in practice.
		panic("failed to unmarshal embedded thresholds.yaml: " + err.Error())
	}

	model := os.Getenv("EMBEDDER_MODEL")
	if model == "" {
		model = "facenet"
	}

	return &Config{
		Embedder: EmbedderConfig{
			URL:   os.Getenv("EMBEDDER_URL"),
			Model: model,
			Dim:   envInt("EMBEDDING_DIM", 128),
		},
		Database: DatabaseConfig{
			URL:           os.Getenv("DATABASE_URL"),
			MaxOpenConns:  envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:  envInt("DATABASE_MAX_IDLE_CONNS", 5),
			HNSWIndexPath: os.Getenv("HNSW_INDEX_PATH"),
		},
		Registry: RegistryConfig{
			DSN: os.Getenv("REGISTRY_DATABASE_URL"),
		},
		Web: WebConfig{
			Port: envInt("WEB_PORT", 8080),
			Host: envOr("WEB_HOST", "0.0.0.0"),
		},
		Thresholds: thresholds,
	}
}

// envOr returns the env var value or a default when unset.
func envOr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// GetModelThresholds returns thresholds for a specific embedding model,
// falling back to the facenet defaults for unknown models.
func (c *Config) GetModelThresholds(modelName string) ModelThresholds {
	if t, ok := c.Thresholds.Models[modelName]; ok {
		return t
	}
	return c.Thresholds.Models["facenet"]
}
