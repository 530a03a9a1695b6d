// Package config loads the application configuration from file and
// environment and initializes the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Engine  EngineConfig  `yaml:"engine" mapstructure:"engine"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// EngineConfig configures the remote reduction service client.
type EngineConfig struct {
	BaseURL         string  `yaml:"base_url" mapstructure:"base_url"`
	APIKey          string  `yaml:"api_key" mapstructure:"api_key"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec" mapstructure:"rate_limit_per_sec"`
	RateBurst       int     `yaml:"rate_burst" mapstructure:"rate_burst"`
}

// MetricsConfig holds one block per metric: the slug it publishes under
// plus the raster dataset reference(s) it reduces against.
type MetricsConfig struct {
	BiodiversityIntactness DatasetConfig      `yaml:"biodiversity_intactness" mapstructure:"biodiversity_intactness"`
	TreeLoss               DatasetConfig      `yaml:"tree_loss" mapstructure:"tree_loss"`
	LandCover              DatasetConfig      `yaml:"land_cover" mapstructure:"land_cover"`
	ProtectedAreas         DatasetConfig      `yaml:"protected_areas" mapstructure:"protected_areas"`
	HumanImpact            DatasetConfig      `yaml:"human_impact" mapstructure:"human_impact"`
	HumanFootprint         MultiDatasetConfig `yaml:"human_footprint" mapstructure:"human_footprint"`
	TerrestrialCarbon      MultiDatasetConfig `yaml:"terrestrial_carbon" mapstructure:"terrestrial_carbon"`
	ModisFire              FireConfig         `yaml:"modis_fire" mapstructure:"modis_fire"`
	ModisEvi               MultiDatasetConfig `yaml:"modis_evi" mapstructure:"modis_evi"`
}

// DatasetConfig references a single raster dataset.
type DatasetConfig struct {
	Slug    string `yaml:"slug" mapstructure:"slug"`
	Dataset string `yaml:"dataset" mapstructure:"dataset"`
}

// MultiDatasetConfig references a keyed family of raster datasets,
// e.g. one per year or one per measured quantity.
type MultiDatasetConfig struct {
	Slug     string            `yaml:"slug" mapstructure:"slug"`
	Datasets map[string]string `yaml:"datasets" mapstructure:"datasets"`
}

// FireConfig references the burned-area image collection and the default
// analysis window applied when the caller does not supply one.
type FireConfig struct {
	Slug      string `yaml:"slug" mapstructure:"slug"`
	Dataset   string `yaml:"dataset" mapstructure:"dataset"`
	StartDate string `yaml:"start_date" mapstructure:"start_date"`
	EndDate   string `yaml:"end_date" mapstructure:"end_date"`
}

// StoreConfig configures the local results database.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Validate checks that the fields required for the given run mode are
// present and within bounds. Mode is "measure", "serve", or "results".
func (c *Config) Validate(mode string) error {
	var problems []string

	checkEngine := func() {
		if c.Engine.BaseURL == "" {
			problems = append(problems, "engine.base_url is required")
		}
		if c.Engine.RateLimitPerSec <= 0 {
			problems = append(problems, "engine.rate_limit_per_sec must be > 0")
		}
	}

	switch mode {
	case "measure":
		checkEngine()
	case "serve":
		checkEngine()
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	case "results":
		if c.Store.Path == "" {
			problems = append(problems, "store.path is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ZONAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("store.path", "zonal-metrics.db")
	v.SetDefault("engine.rate_limit_per_sec", 5)
	v.SetDefault("engine.rate_burst", 5)
	v.SetDefault("metrics.biodiversity_intactness.slug", "biodiversity-intactness")
	v.SetDefault("metrics.tree_loss.slug", "tree-loss")
	v.SetDefault("metrics.land_cover.slug", "land-use")
	v.SetDefault("metrics.protected_areas.slug", "protected-areas")
	v.SetDefault("metrics.human_impact.slug", "human-impact")
	v.SetDefault("metrics.human_footprint.slug", "human-footprint")
	v.SetDefault("metrics.terrestrial_carbon.slug", "terrestrial-carbon")
	v.SetDefault("metrics.modis_fire.slug", "modis-fire")
	v.SetDefault("metrics.modis_fire.start_date", "2018-01-01")
	v.SetDefault("metrics.modis_fire.end_date", "2018-12-31")
	v.SetDefault("metrics.modis_evi.slug", "modis-evi")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
