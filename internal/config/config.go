package config

import (
	"fmt"
	"os"

	"dario.cat/mergo"
	"github.com/caarlos0/env/v6"
	"github.com/ghodss/yaml"

	"github.com/mfortes/fincasa-backend/internal/domain"
)

// ProcessConfig is the environment-driven configuration of the importer
// process. Database settings follow the usual individual-variable form
// with an optional full connection string override.
type ProcessConfig struct {
	DBConnStr  string `env:"DB_CONN_STR"`
	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`
	DBUser     string `env:"DB_USER" envDefault:"postgres"`
	DBPassword string `env:"DB_PASSWORD" envDefault:"postgres"`
	DBName     string `env:"DB_NAME" envDefault:"fincasa"`

	LogLevel string `env:"FINCASA_LOG_LEVEL" envDefault:"info"`
	// PipelineFile optionally points at a yaml file overriding the
	// default pipeline tunables.
	PipelineFile string `env:"FINCASA_PIPELINE_CONFIG"`
}

// Load reads the process configuration from the environment.
func Load() (*ProcessConfig, error) {
	cfg := &ProcessConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment config: %w", err)
	}
	return cfg, nil
}

// ConnString returns the postgres connection string, honoring the full
// override when set.
func (c *ProcessConfig) ConnString() string {
	if c.DBConnStr != "" {
		return c.DBConnStr
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName)
}

// LoadPipeline resolves the effective pipeline configuration for this
// process: the defaults, with any values from the optional yaml file
// layered on top. The resolved value is passed down explicitly; nothing
// else in the pipeline reads configuration at run time.
//
// The merge cannot tell a tunable explicitly set to its zero value in
// the file from one left unset; both fall back to the default.
func LoadPipeline(path string) (domain.PipelineConfig, error) {
	cfg := domain.PipelineConfig{}

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read pipeline config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse pipeline config %s: %w", path, err)
		}
	}

	// Fill everything the file left unset from the defaults.
	if err := mergo.Merge(&cfg, domain.DefaultPipelineConfig()); err != nil {
		return cfg, fmt.Errorf("failed to merge pipeline config defaults: %w", err)
	}

	return cfg, nil
}
