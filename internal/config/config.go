// Package config defines the top-level configuration for the price index
// service and provides validation helpers. The Config value is built once at
// startup and injected by reference; nothing mutates it afterwards.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by GPI_* environment variables.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Exchange  ExchangeConfig  `toml:"exchange"`
	Weighting WeightingConfig `toml:"weighting"`
	Redis     RedisConfig     `toml:"redis"`
	LogLevel  string          `toml:"log_level"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Host        string   `toml:"host"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

// Addr returns the listen address in "host:port" form.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// ExchangeConfig groups the per-exchange endpoints and the shared streaming
// session tuning.
type ExchangeConfig struct {
	Binance BinanceConfig `toml:"binance"`
	Kraken  KrakenConfig  `toml:"kraken"`
	Huobi   HuobiConfig   `toml:"huobi"`
	Session SessionConfig `toml:"session"`
}

// BinanceConfig holds the Binance depth stream and snapshot endpoints.
type BinanceConfig struct {
	WsURL   string `toml:"ws_url"`
	RestURL string `toml:"rest_url"`
}

// KrakenConfig holds the Kraken depth endpoint.
type KrakenConfig struct {
	URL string `toml:"url"`
}

// HuobiConfig holds the Huobi depth endpoint.
type HuobiConfig struct {
	URL string `toml:"url"`
}

// SessionConfig tunes the streaming session's reconnect and keepalive
// behaviour.
type SessionConfig struct {
	InitialReconnectDelay duration `toml:"initial_reconnect_delay"`
	MaxReconnectDelay     duration `toml:"max_reconnect_delay"`
	PingInterval          duration `toml:"ping_interval"`
	PingRetryCount        int      `toml:"ping_retry_count"`
}

// WeightingConfig holds the time-decay parameters for the aggregator.
type WeightingConfig struct {
	// DecayFactor is the time constant, in seconds, controlling how fast an
	// exchange price's influence fades.
	DecayFactor float64 `toml:"decay_factor"`
}

// RedisConfig holds Redis connection parameters for the latest-index cache.
// The cache is skipped entirely when Enabled is false.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "30s", "5m").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings.
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values. These
// match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Host:        "127.0.0.1",
			Port:        8080,
			CORSOrigins: []string{},
		},
		Exchange: ExchangeConfig{
			Binance: BinanceConfig{
				WsURL:   "wss://stream.binance.com:9443/ws/btcusdt@depth",
				RestURL: "https://api.binance.com/api/v3/depth?symbol=BTCUSDT&limit=1000",
			},
			Kraken: KrakenConfig{
				URL: "https://api.kraken.com/0/public/Depth",
			},
			Huobi: HuobiConfig{
				URL: "https://api.huobi.pro/market/depth",
			},
			Session: SessionConfig{
				InitialReconnectDelay: duration{1 * time.Second},
				MaxReconnectDelay:     duration{300 * time.Second},
				PingInterval:          duration{30 * time.Second},
				PingRetryCount:        3,
			},
		},
		Weighting: WeightingConfig{
			DecayFactor: 300.0, // 5 minutes
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   10,
			MaxRetries: 3,
		},
		LogLevel: "info",
	}
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
	}

	if c.Exchange.Binance.WsURL == "" {
		errs = append(errs, "exchange.binance: ws_url must not be empty")
	}
	if c.Exchange.Binance.RestURL == "" {
		errs = append(errs, "exchange.binance: rest_url must not be empty")
	}
	if c.Exchange.Kraken.URL == "" {
		errs = append(errs, "exchange.kraken: url must not be empty")
	}
	if c.Exchange.Huobi.URL == "" {
		errs = append(errs, "exchange.huobi: url must not be empty")
	}

	if c.Exchange.Session.InitialReconnectDelay.Duration <= 0 {
		errs = append(errs, "exchange.session: initial_reconnect_delay must be positive")
	}
	if c.Exchange.Session.MaxReconnectDelay.Duration < c.Exchange.Session.InitialReconnectDelay.Duration {
		errs = append(errs, "exchange.session: max_reconnect_delay must not be below initial_reconnect_delay")
	}
	if c.Exchange.Session.PingInterval.Duration <= 0 {
		errs = append(errs, "exchange.session: ping_interval must be positive")
	}
	if c.Exchange.Session.PingRetryCount < 1 {
		errs = append(errs, "exchange.session: ping_retry_count must be >= 1")
	}

	if c.Weighting.DecayFactor <= 0 {
		errs = append(errs, "weighting: decay_factor must be > 0")
	}

	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty when enabled")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
