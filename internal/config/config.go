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
	Dataset DatasetConfig `yaml:"dataset" mapstructure:"dataset"`
	Export  ExportConfig  `yaml:"export" mapstructure:"export"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// DatasetConfig configures where parcels are read from and how they are projected.
type DatasetConfig struct {
	Source           string `yaml:"source" mapstructure:"source"`
	Projection       string `yaml:"projection" mapstructure:"projection"`
	FetchTimeoutSecs int    `yaml:"fetch_timeout_secs" mapstructure:"fetch_timeout_secs"`
	FetchRetries     int    `yaml:"fetch_retries" mapstructure:"fetch_retries"`
	ReprojectWorkers int    `yaml:"reproject_workers" mapstructure:"reproject_workers"`
}

// ExportConfig configures output writers.
type ExportConfig struct {
	Dir     string        `yaml:"dir" mapstructure:"dir"`
	PostGIS PostGISConfig `yaml:"postgis" mapstructure:"postgis"`
}

// PostGISConfig configures the PostGIS publication target.
type PostGISConfig struct {
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	Schema      string `yaml:"schema" mapstructure:"schema"`
	Table       string `yaml:"table" mapstructure:"table"`
	BatchSize   int    `yaml:"batch_size" mapstructure:"batch_size"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	RateLimit   float64  `yaml:"rate_limit" mapstructure:"rate_limit"`
	RateBurst   int      `yaml:"rate_burst" mapstructure:"rate_burst"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	MaxBodyMB   int      `yaml:"max_body_mb" mapstructure:"max_body_mb"`
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
	v.SetEnvPrefix("LOTES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("dataset.source", "")
	v.SetDefault("dataset.projection", "23s")
	v.SetDefault("dataset.fetch_timeout_secs", 60)
	v.SetDefault("dataset.fetch_retries", 3)
	v.SetDefault("dataset.reproject_workers", 4)
	v.SetDefault("export.dir", ".")
	v.SetDefault("export.postgis.database_url", "")
	v.SetDefault("export.postgis.schema", "public")
	v.SetDefault("export.postgis.table", "lotes")
	v.SetDefault("export.postgis.batch_size", 5000)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_limit", 20.0)
	v.SetDefault("server.rate_burst", 40)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.max_body_mb", 64)
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

// Validate checks the settings a command mode depends on.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "load":
		if c.Dataset.Source == "" {
			problems = append(problems, "dataset.source is required")
		}
	case "postgis":
		if c.Dataset.Source == "" {
			problems = append(problems, "dataset.source is required")
		}
		if c.Export.PostGIS.DatabaseURL == "" {
			problems = append(problems, "export.postgis.database_url is required")
		}
		if c.Export.PostGIS.Table == "" {
			problems = append(problems, "export.postgis.table is required")
		}
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			problems = append(problems, "server.port must be between 1 and 65535")
		}
		if c.Server.RateLimit <= 0 {
			problems = append(problems, "server.rate_limit must be positive")
		}
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
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
