package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Backend  BackendConfig  `yaml:"backend" mapstructure:"backend"`
	Mapbox   MapboxConfig   `yaml:"mapbox" mapstructure:"mapbox"`
	Search   SearchConfig   `yaml:"search" mapstructure:"search"`
	Map      MapConfig      `yaml:"map" mapstructure:"map"`
	Optimize OptimizeConfig `yaml:"optimize" mapstructure:"optimize"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// BackendConfig configures the optimization service client.
type BackendConfig struct {
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// Timeout returns TimeoutSecs as a duration.
func (c BackendConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// MapboxConfig configures the forward geocoder.
type MapboxConfig struct {
	Token        string  `yaml:"token" mapstructure:"token"`
	BaseURL      string  `yaml:"base_url" mapstructure:"base_url"`
	RateLimit    float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	Limit        int     `yaml:"limit" mapstructure:"limit"`
	Country      string  `yaml:"country" mapstructure:"country"`
	CacheSize    int     `yaml:"cache_size" mapstructure:"cache_size"`
	CacheTTLSecs int     `yaml:"cache_ttl_secs" mapstructure:"cache_ttl_secs"`
}

// SearchConfig configures the address search session.
type SearchConfig struct {
	DebounceMS int `yaml:"debounce_ms" mapstructure:"debounce_ms"`
}

// Debounce returns DebounceMS as a duration.
func (c SearchConfig) Debounce() time.Duration {
	return time.Duration(c.DebounceMS) * time.Millisecond
}

// MapConfig configures scene composition.
type MapConfig struct {
	PaddingPx    int  `yaml:"padding_px" mapstructure:"padding_px"`
	ShowTooltips bool `yaml:"show_tooltips" mapstructure:"show_tooltips"`
}

// OptimizeConfig holds solver defaults for the calculate command.
type OptimizeConfig struct {
	Method          string `yaml:"method" mapstructure:"method"`
	DistanceFormula string `yaml:"distance_formula" mapstructure:"distance_formula"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
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
	v.SetEnvPrefix("SITEOPT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("backend.base_url", "http://127.0.0.1:8000")
	v.SetDefault("backend.timeout_secs", 300)
	v.SetDefault("mapbox.base_url", "https://api.mapbox.com")
	v.SetDefault("mapbox.rate_limit", 10)
	v.SetDefault("mapbox.limit", 5)
	v.SetDefault("mapbox.cache_size", 256)
	v.SetDefault("mapbox.cache_ttl_secs", 600)
	v.SetDefault("search.debounce_ms", 500)
	v.SetDefault("map.padding_px", 50)
	v.SetDefault("map.show_tooltips", true)
	v.SetDefault("optimize.method", "numerical")
	v.SetDefault("optimize.distance_formula", "road")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// AutomaticEnv only resolves keys viper already knows; the token has no default.
	if err := v.BindEnv("mapbox.token", "SITEOPT_MAPBOX_TOKEN", "MAPBOX_TOKEN"); err != nil {
		return nil, eris.Wrap(err, "config: bind env")
	}

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

// Validate checks the settings a command needs. Mode is the command name.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "transform":
		errs = append(errs, c.validateBackend()...)
	case "calculate":
		errs = append(errs, c.validateBackend()...)
		errs = append(errs, c.validateMap()...)
	case "search":
		errs = append(errs, c.validateMapbox()...)
		if c.Search.DebounceMS < 0 {
			errs = append(errs, "search.debounce_ms must be >= 0")
		}
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be > 0 and <= 65535")
		}
		errs = append(errs, c.validateMap()...)
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.New(fmt.Sprintf("config: %s", strings.Join(errs, "; ")))
	}
	return nil
}

func (c *Config) validateBackend() []string {
	var errs []string
	if c.Backend.BaseURL == "" {
		errs = append(errs, "backend.base_url is required")
	}
	if c.Backend.TimeoutSecs <= 0 {
		errs = append(errs, "backend.timeout_secs must be > 0")
	}
	return errs
}

func (c *Config) validateMapbox() []string {
	var errs []string
	if c.Mapbox.Token == "" {
		errs = append(errs, "mapbox.token is required")
	}
	if c.Mapbox.Limit < 1 || c.Mapbox.Limit > 10 {
		errs = append(errs, "mapbox.limit must be between 1 and 10")
	}
	if c.Mapbox.RateLimit <= 0 {
		errs = append(errs, "mapbox.rate_limit must be > 0")
	}
	return errs
}

func (c *Config) validateMap() []string {
	if c.Map.PaddingPx < 0 {
		return []string{"map.padding_px must be >= 0"}
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
