// Package config loads treedensity configuration from config.yaml, .env and
// TREEDENSITY_* environment variables, and initializes the global logger.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "TREEDENSITY"

// Config holds the full application configuration.
type Config struct {
	Sources    SourcesConfig    `yaml:"sources" mapstructure:"sources"`
	Analysis   AnalysisConfig   `yaml:"analysis" mapstructure:"analysis"`
	Choropleth ChoroplethConfig `yaml:"choropleth" mapstructure:"choropleth"`
	Fetch      FetchConfig      `yaml:"fetch" mapstructure:"fetch"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Report     ReportConfig     `yaml:"report" mapstructure:"report"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// SourcesConfig locates the two input datasets. Each is a URL
// (http, https, ftp, file) or a local path; municipalities may be a .shp.
type SourcesConfig struct {
	Municipalities string `yaml:"municipalities" mapstructure:"municipalities"`
	Centres        string `yaml:"centres" mapstructure:"centres"`
}

// AnalysisConfig configures the density ranking.
type AnalysisConfig struct {
	TopN        int    `yaml:"top_n" mapstructure:"top_n"`
	InvalidArea string `yaml:"invalid_area" mapstructure:"invalid_area"`
}

// ChoroplethConfig configures the quantile classification.
type ChoroplethConfig struct {
	Classes int `yaml:"classes" mapstructure:"classes"`
}

// FetchConfig configures dataset downloads.
type FetchConfig struct {
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int     `yaml:"max_retries" mapstructure:"max_retries"`
	RatePerHost float64 `yaml:"rate_per_host" mapstructure:"rate_per_host"`
}

// Timeout returns the per-request timeout.
func (f FetchConfig) Timeout() time.Duration {
	return time.Duration(f.TimeoutSecs) * time.Second
}

// StoreConfig configures the download cache.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	TTLHours    int    `yaml:"ttl_hours" mapstructure:"ttl_hours"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// TTL returns how long a cached download is served without revalidation.
func (s StoreConfig) TTL() time.Duration {
	return time.Duration(s.TTLHours) * time.Hour
}

// ReportConfig configures report output.
type ReportConfig struct {
	Locale string `yaml:"locale" mapstructure:"locale"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

var (
	storeDrivers  = []string{"sqlite", "postgres", "none"}
	areaPolicies  = []string{"exclude", "reject"}
	reportFormats = []string{"text", "json", "yaml", "csv"}
	logFormats    = []string{"json", "console"}
)

// Load reads configuration from .env, config.yaml and the environment, in
// increasing order of precedence.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("sources.municipalities", "data/arbres_communes.geojson")
	v.SetDefault("sources.centres", "data/centres_communes.geojson")
	v.SetDefault("analysis.top_n", 10)
	v.SetDefault("analysis.invalid_area", "exclude")
	v.SetDefault("choropleth.classes", 5)
	v.SetDefault("fetch.user_agent", "treedensity/1.0")
	v.SetDefault("fetch.timeout_secs", 30)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.rate_per_host", 5)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "treedensity.db")
	v.SetDefault("store.ttl_hours", 24)
	v.SetDefault("report.locale", "fr-CH")
	v.SetDefault("report.format", "text")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
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

// Validate checks enum values and numeric bounds, reporting every problem
// at once.
func (c *Config) Validate() error {
	var problems []string
	oneOf := func(key, val string, allowed []string) {
		if !slices.Contains(allowed, val) {
			problems = append(problems, fmt.Sprintf("%s must be one of %s, got %q", key, strings.Join(allowed, ", "), val))
		}
	}

	if c.Sources.Municipalities == "" {
		problems = append(problems, "sources.municipalities is required")
	}
	if c.Analysis.TopN < 0 {
		problems = append(problems, "analysis.top_n must not be negative")
	}
	oneOf("analysis.invalid_area", c.Analysis.InvalidArea, areaPolicies)
	if c.Choropleth.Classes < 3 || c.Choropleth.Classes > 9 {
		problems = append(problems, "choropleth.classes must be between 3 and 9")
	}
	if c.Fetch.TimeoutSecs < 0 || c.Fetch.MaxRetries < 0 || c.Fetch.RatePerHost < 0 {
		problems = append(problems, "fetch timeout, retries and rate must not be negative")
	}
	oneOf("store.driver", c.Store.Driver, storeDrivers)
	if c.Store.Driver == "postgres" && c.Store.DatabaseURL == "" {
		problems = append(problems, "store.database_url is required for postgres")
	}
	oneOf("report.format", c.Report.Format, reportFormats)
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		problems = append(problems, "server.port must be between 1 and 65535")
	}
	oneOf("log.format", c.Log.Format, logFormats)

	if len(problems) > 0 {
		return eris.Errorf("config: invalid: %s", strings.Join(problems, "; "))
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
