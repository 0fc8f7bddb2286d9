package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"cambioproxy/internal/cachepolicy"
)

// EnvPrefix namespaces every config key in the environment, e.g.
// CAMBIO_SERVER_PORT for server.port.
const EnvPrefix = "CAMBIO"

type Server struct {
	Port              string  `mapstructure:"port"`
	RequestTimeoutSec int     `mapstructure:"request_timeout_sec"`
	LogLevel          string  `mapstructure:"log_level"`
	LogFormat         string  `mapstructure:"log_format"`
	RateLimitRPS      float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst    int     `mapstructure:"rate_limit_burst"`
	CacheMaxItems     int     `mapstructure:"cache_max_items"`
}

type Providers struct {
	AlphaVantageKey      string `mapstructure:"alphavantage_api_key"`
	AlphaVantageRPM      int    `mapstructure:"alphavantage_max_rpm"`
	AwesomeAPIToken      string `mapstructure:"awesomeapi_token"`
	RealTimeTimeoutSec   int    `mapstructure:"realtime_timeout_sec"`
	HistoricalTimeoutSec int    `mapstructure:"historical_timeout_sec"`
}

type Cache struct {
	RealTimeTTLSec   int `mapstructure:"realtime_ttl_sec"`
	HistoricalTTLSec int `mapstructure:"historical_ttl_sec"`
	IndicatorTTLSec  int `mapstructure:"indicator_ttl_sec"`
}

type Config struct {
	Server    Server    `mapstructure:"server"`
	Providers Providers `mapstructure:"providers"`
	Cache     Cache     `mapstructure:"cache"`
}

func Default() Config {
	return Config{
		Server: Server{
			Port:              "8080",
			RequestTimeoutSec: 20,
			LogLevel:          "info",
			LogFormat:         "json",
			RateLimitRPS:      20,
			RateLimitBurst:    40,
			CacheMaxItems:     1024,
		},
		Providers: Providers{
			AlphaVantageRPM:      5,
			RealTimeTimeoutSec:   5,
			HistoricalTimeoutSec: 8,
		},
		Cache: Cache{
			RealTimeTTLSec:   300,
			HistoricalTTLSec: 3600,
			IndicatorTTLSec:  300,
		},
	}
}

// aliases are the bare environment names accepted besides the prefixed form.
var aliases = map[string]string{
	"server.port":                    "PORT",
	"server.log_level":               "LOG_LEVEL",
	"server.log_format":              "LOG_FORMAT",
	"providers.alphavantage_api_key": "ALPHAVANTAGE_API_KEY",
	"providers.awesomeapi_token":     "AWESOMEAPI_TOKEN",
}

// Load reads a JSON or YAML config file from path (CONFIG_FILE when empty,
// then ./config.json if present). A missing file yields defaults. A .env file
// in the working directory is loaded first; environment variables override
// file values.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Default(), fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v, Default())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, alias := range aliases {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, alias); err != nil {
			return Default(), fmt.Errorf("bind env %s: %w", alias, err)
		}
	}

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path == "" {
		if _, err := os.Stat("config.json"); err == nil {
			path = "config.json"
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Default(), fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Default(), fmt.Errorf("parse config: %w", err)
	}
	return cfg, cfg.Validate()
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.request_timeout_sec", d.Server.RequestTimeoutSec)
	v.SetDefault("server.log_level", d.Server.LogLevel)
	v.SetDefault("server.log_format", d.Server.LogFormat)
	v.SetDefault("server.rate_limit_rps", d.Server.RateLimitRPS)
	v.SetDefault("server.rate_limit_burst", d.Server.RateLimitBurst)
	v.SetDefault("server.cache_max_items", d.Server.CacheMaxItems)
	v.SetDefault("providers.alphavantage_api_key", d.Providers.AlphaVantageKey)
	v.SetDefault("providers.alphavantage_max_rpm", d.Providers.AlphaVantageRPM)
	v.SetDefault("providers.awesomeapi_token", d.Providers.AwesomeAPIToken)
	v.SetDefault("providers.realtime_timeout_sec", d.Providers.RealTimeTimeoutSec)
	v.SetDefault("providers.historical_timeout_sec", d.Providers.HistoricalTimeoutSec)
	v.SetDefault("cache.realtime_ttl_sec", d.Cache.RealTimeTTLSec)
	v.SetDefault("cache.historical_ttl_sec", d.Cache.HistoricalTTLSec)
	v.SetDefault("cache.indicator_ttl_sec", d.Cache.IndicatorTTLSec)
}

// Validate reports the first setting that cannot run.
func (c Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Server.Port) == "":
		return errors.New("server.port must be set")
	case c.Server.RequestTimeoutSec <= 0:
		return errors.New("server.request_timeout_sec must be > 0")
	case c.Server.LogFormat != "json" && c.Server.LogFormat != "console":
		return fmt.Errorf("server.log_format must be json or console, got %q", c.Server.LogFormat)
	case c.Server.RateLimitRPS < 0:
		return errors.New("server.rate_limit_rps must be >= 0")
	case c.Server.RateLimitRPS > 0 && c.Server.RateLimitBurst < 1:
		return errors.New("server.rate_limit_burst must be >= 1 when rate limiting is on")
	case c.Server.CacheMaxItems <= 0:
		return errors.New("server.cache_max_items must be > 0")
	case c.Providers.AlphaVantageRPM <= 0:
		return errors.New("providers.alphavantage_max_rpm must be > 0")
	case c.Providers.RealTimeTimeoutSec <= 0 || c.Providers.HistoricalTimeoutSec <= 0:
		return errors.New("providers timeouts must be > 0")
	}
	return c.Policy().Validate()
}

// Policy converts the cache section into response TTLs.
func (c Config) Policy() cachepolicy.Policy {
	return cachepolicy.Policy{
		RealTime:   seconds(c.Cache.RealTimeTTLSec),
		Historical: seconds(c.Cache.HistoricalTTLSec),
		Indicator:  seconds(c.Cache.IndicatorTTLSec),
	}
}

func (p Providers) RealTimeTimeout() time.Duration   { return seconds(p.RealTimeTimeoutSec) }
func (p Providers) HistoricalTimeout() time.Duration { return seconds(p.HistoricalTimeoutSec) }
func (s Server) RequestTimeout() time.Duration       { return seconds(s.RequestTimeoutSec) }

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }
