// Package config loads application configuration from file, environment and
// defaults, and bootstraps the global logger.
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
	City     string         `yaml:"city" mapstructure:"city"`
	Amap     AmapConfig     `yaml:"amap" mapstructure:"amap"`
	Export   ExportConfig   `yaml:"export" mapstructure:"export"`
	Geometry GeometryConfig `yaml:"geometry" mapstructure:"geometry"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// AmapConfig holds provider API settings.
type AmapConfig struct {
	Key       string  `yaml:"key" mapstructure:"key"`
	BaseURL   string  `yaml:"base_url" mapstructure:"base_url"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// ExportConfig configures the batch export run.
type ExportConfig struct {
	OutDir         string `yaml:"outdir" mapstructure:"outdir"`
	Overwrite      bool   `yaml:"overwrite" mapstructure:"overwrite"`
	Preview        bool   `yaml:"preview" mapstructure:"preview"`
	PreviewName    string `yaml:"preview_name" mapstructure:"preview_name"`
	BothDirections bool   `yaml:"both_directions" mapstructure:"both_directions"`
	Shapefile      bool   `yaml:"shapefile" mapstructure:"shapefile"`
	Report         string `yaml:"report" mapstructure:"report"`
	Concurrency    int    `yaml:"concurrency" mapstructure:"concurrency"`
}

// GeometryConfig holds the presentation tuning knobs. None of these affect
// persisted geometry, only overlap grouping and the rendered preview.
type GeometryConfig struct {
	OverlapToleranceM float64 `yaml:"overlap_tolerance_m" mapstructure:"overlap_tolerance_m"`
	OverlapMinM       float64 `yaml:"overlap_min_m" mapstructure:"overlap_min_m"`
	OverlapFraction   float64 `yaml:"overlap_fraction" mapstructure:"overlap_fraction"`
	SampleStepM       float64 `yaml:"sample_step_m" mapstructure:"sample_step_m"`
	OffsetSpacingM    float64 `yaml:"offset_spacing_m" mapstructure:"offset_spacing_m"`
	JitterRadiusM     float64 `yaml:"jitter_radius_m" mapstructure:"jitter_radius_m"`
}

// ServerConfig configures the preview file server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
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
	v.SetEnvPrefix("LINEMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("city", "温州")
	v.SetDefault("amap.key", "")
	v.SetDefault("amap.base_url", "https://restapi.amap.com/v3")
	v.SetDefault("amap.rate_limit", 5.0)
	v.SetDefault("export.outdir", "out")
	v.SetDefault("export.overwrite", false)
	v.SetDefault("export.preview", true)
	v.SetDefault("export.preview_name", "preview.html")
	v.SetDefault("export.both_directions", false)
	v.SetDefault("export.shapefile", false)
	v.SetDefault("export.report", "")
	v.SetDefault("export.concurrency", 4)
	v.SetDefault("geometry.overlap_tolerance_m", 30.0)
	v.SetDefault("geometry.overlap_min_m", 300.0)
	v.SetDefault("geometry.overlap_fraction", 0.4)
	v.SetDefault("geometry.sample_step_m", 25.0)
	v.SetDefault("geometry.offset_spacing_m", 4.0)
	v.SetDefault("geometry.jitter_radius_m", 5.0)
	v.SetDefault("server.port", 8090)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

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
