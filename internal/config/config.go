package config

import (
	_ "embed"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Database  DatabaseConfig
	Embedding EmbeddingConfig
	Matching  MatchingConfig
	Import    ImportConfig
	Web       WebConfig
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type EmbeddingConfig struct {
	URL string `yaml:"url"` // face embedding service, defaults to http://localhost:8000
	Dim int    `yaml:"dim"` // defaults to 512
}

type MatchingConfig struct {
	Threshold           float64 `yaml:"threshold"`
	LookAlikeSimilarity float64 `yaml:"look_alike_similarity"`
}

type ImportConfig struct {
	MaxRows        int `yaml:"max_rows"`
	PasswordLength int `yaml:"password_length"`
}

type WebConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	AllowedOrigins string `yaml:"-"`
}

// Defaults holds the embedded policy defaults.
type Defaults struct {
	Matching  MatchingConfig  `yaml:"matching"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Import    ImportConfig    `yaml:"import"`
	Web       WebConfig       `yaml:"web"`
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

// envFloat reads an environment variable and parses it as a float in [0, 1].
// Returns the default value if the env var is unset, empty, or out of range.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 0 && f <= 1 {
		return f
	}
	return defaultVal
}

// envString returns the env var value or the default when unset.
func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// LoadDefaults parses the embedded defaults.yaml.
func LoadDefaults() Defaults {
	var d Defaults
	if err := yaml.Unmarshal(defaultsYAML, &d); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}
	return d
}

func Load() *Config {
	d := LoadDefaults()

	return &Config{
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Embedding: EmbeddingConfig{
			URL: envString("EMBEDDING_URL", d.Embedding.URL),
			Dim: envInt("EMBEDDING_DIM", d.Embedding.Dim),
		},
		Matching: MatchingConfig{
			Threshold:           envFloat("MATCH_THRESHOLD", d.Matching.Threshold),
			LookAlikeSimilarity: envFloat("LOOK_ALIKE_SIMILARITY", d.Matching.LookAlikeSimilarity),
		},
		Import: ImportConfig{
			MaxRows:        envInt("IMPORT_MAX_ROWS", d.Import.MaxRows),
			PasswordLength: envInt("IMPORT_PASSWORD_LENGTH", d.Import.PasswordLength),
		},
		Web: WebConfig{
			Host:           envString("WEB_HOST", d.Web.Host),
			Port:           envInt("WEB_PORT", d.Web.Port),
			AllowedOrigins: os.Getenv("WEB_ALLOWED_ORIGINS"),
		},
	}
}
