package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies GPI_* environment variable overrides, and returns
// the final Config. A missing file is not an error; the defaults are used.
// The returned Config has NOT been validated; the caller should invoke
// Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known GPI_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators adjust endpoints and tuning at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Server ──
	setStr(&cfg.Server.Host, "GPI_SERVER_HOST")
	setInt(&cfg.Server.Port, "GPI_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "GPI_SERVER_CORS_ORIGINS")

	// ── Exchanges ──
	setStr(&cfg.Exchange.Binance.WsURL, "GPI_BINANCE_WS_URL")
	setStr(&cfg.Exchange.Binance.RestURL, "GPI_BINANCE_REST_URL")
	setStr(&cfg.Exchange.Kraken.URL, "GPI_KRAKEN_URL")
	setStr(&cfg.Exchange.Huobi.URL, "GPI_HUOBI_URL")

	// ── Session tuning ──
	setDuration(&cfg.Exchange.Session.InitialReconnectDelay, "GPI_SESSION_INITIAL_RECONNECT_DELAY")
	setDuration(&cfg.Exchange.Session.MaxReconnectDelay, "GPI_SESSION_MAX_RECONNECT_DELAY")
	setDuration(&cfg.Exchange.Session.PingInterval, "GPI_SESSION_PING_INTERVAL")
	setInt(&cfg.Exchange.Session.PingRetryCount, "GPI_SESSION_PING_RETRY_COUNT")

	// ── Weighting ──
	setFloat64(&cfg.Weighting.DecayFactor, "GPI_WEIGHTING_DECAY_FACTOR")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "GPI_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "GPI_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "GPI_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "GPI_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "GPI_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "GPI_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "GPI_REDIS_TLS_ENABLED")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "GPI_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
