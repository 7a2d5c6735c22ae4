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
	Layers     LayersConfig     `yaml:"layers" mapstructure:"layers"`
	Thresholds ThresholdsConfig `yaml:"thresholds" mapstructure:"thresholds"`
	Source     SourceConfig     `yaml:"source" mapstructure:"source"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// LayersConfig points at the boundary layers and how to read them.
type LayersConfig struct {
	StatesPath   string `yaml:"states_path" mapstructure:"states_path"`
	CountiesPath string `yaml:"counties_path" mapstructure:"counties_path"`
	StateField   string `yaml:"state_field" mapstructure:"state_field"`
	CountyField  string `yaml:"county_field" mapstructure:"county_field"`
	Projection   string `yaml:"projection" mapstructure:"projection"`
}

// ThresholdsConfig holds the decision-table thresholds.
type ThresholdsConfig struct {
	MinCoordUncerForPreciseM      float64 `yaml:"min_coord_uncer_for_precise_m" mapstructure:"min_coord_uncer_for_precise_m"`
	MaxPrecisionUncerForceCountyM float64 `yaml:"max_precision_uncer_force_county_m" mapstructure:"max_precision_uncer_force_county_m"`
	MaxPrecisionUncerForceStateM  float64 `yaml:"max_precision_uncer_force_state_m" mapstructure:"max_precision_uncer_force_state_m"`
	MaxAreaKM2                    float64 `yaml:"max_area_km2" mapstructure:"max_area_km2"`
}

// SourceConfig selects the boundary source backend: "shapefile" reads
// the layers into memory, "postgis" queries the database per record.
type SourceConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SRID        int    `yaml:"srid" mapstructure:"srid"`
}

// StoreConfig configures the classification run store.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// PipelineConfig configures batch classification.
type PipelineConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// ServerConfig configures the classification API server.
type ServerConfig struct {
	Port           int     `yaml:"port" mapstructure:"port"`
	RequestsPerSec float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
	Burst          int     `yaml:"burst" mapstructure:"burst"`
	MaxBatchSize   int     `yaml:"max_batch_size" mapstructure:"max_batch_size"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("OCCUNCER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("layers.state_field", "NAME_1")
	v.SetDefault("layers.county_field", "NAME_2")
	v.SetDefault("layers.projection", "+proj=cea +lon_0=0 +lat_ts=30")
	v.SetDefault("thresholds.min_coord_uncer_for_precise_m", 100)
	v.SetDefault("thresholds.max_precision_uncer_force_county_m", 100)
	v.SetDefault("thresholds.max_precision_uncer_force_state_m", 500)
	v.SetDefault("thresholds.max_area_km2", 0)
	v.SetDefault("source.driver", "shapefile")
	v.SetDefault("source.srid", 6933)
	v.SetDefault("store.path", "occuncertainty.db")
	v.SetDefault("pipeline.workers", 8)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.requests_per_sec", 20)
	v.SetDefault("server.burst", 40)
	v.SetDefault("server.max_batch_size", 10000)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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
