package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Addr())
	assert.Equal(t, "wss://stream.binance.com:9443/ws/btcusdt@depth", cfg.Exchange.Binance.WsURL)
	assert.Equal(t, 1*time.Second, cfg.Exchange.Session.InitialReconnectDelay.Duration)
	assert.Equal(t, 300*time.Second, cfg.Exchange.Session.MaxReconnectDelay.Duration)
	assert.Equal(t, 30*time.Second, cfg.Exchange.Session.PingInterval.Duration)
	assert.Equal(t, 3, cfg.Exchange.Session.PingRetryCount)
	assert.Equal(t, 300.0, cfg.Weighting.DecayFactor)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, "info", cfg.LogLevel)

	require.NoError(t, cfg.Validate())
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level = "debug"

[server]
host = "0.0.0.0"
port = 9090

[exchange.kraken]
url = "http://localhost:7001/depth"

[exchange.session]
ping_interval = "15s"
ping_retry_count = 5

[weighting]
decay_factor = 120.0
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "0.0.0.0:9090", cfg.Server.Addr())
	assert.Equal(t, "http://localhost:7001/depth", cfg.Exchange.Kraken.URL)
	assert.Equal(t, 15*time.Second, cfg.Exchange.Session.PingInterval.Duration)
	assert.Equal(t, 5, cfg.Exchange.Session.PingRetryCount)
	assert.Equal(t, 120.0, cfg.Weighting.DecayFactor)

	// Untouched sections keep their defaults.
	assert.Equal(t, "https://api.huobi.pro/market/depth", cfg.Exchange.Huobi.URL)
	assert.Equal(t, 1*time.Second, cfg.Exchange.Session.InitialReconnectDelay.Duration)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
port = 9090
`), 0o600))

	t.Setenv("GPI_SERVER_PORT", "9999")
	t.Setenv("GPI_BINANCE_WS_URL", "ws://localhost:7000/ws")
	t.Setenv("GPI_SESSION_PING_INTERVAL", "45s")
	t.Setenv("GPI_WEIGHTING_DECAY_FACTOR", "60")
	t.Setenv("GPI_REDIS_ENABLED", "true")
	t.Setenv("GPI_SERVER_CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "ws://localhost:7000/ws", cfg.Exchange.Binance.WsURL)
	assert.Equal(t, 45*time.Second, cfg.Exchange.Session.PingInterval.Duration)
	assert.Equal(t, 60.0, cfg.Weighting.DecayFactor)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
}

func TestLoad_MalformedEnvValueIgnored(t *testing.T) {
	t.Setenv("GPI_SERVER_PORT", "not-a-number")
	t.Setenv("GPI_SESSION_PING_INTERVAL", "soon")

	cfg, err := Load(filepath.Join(t.TempDir(), "none.toml"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Exchange.Session.PingInterval.Duration)
}

func TestLoad_BadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`log_level = `), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(cfg *Config) {},
		},
		{
			name:    "bad log level",
			mutate:  func(cfg *Config) { cfg.LogLevel = "verbose" },
			wantErr: "unknown log_level",
		},
		{
			name:    "port out of range",
			mutate:  func(cfg *Config) { cfg.Server.Port = 70000 },
			wantErr: "port must be 1-65535",
		},
		{
			name:    "missing binance ws url",
			mutate:  func(cfg *Config) { cfg.Exchange.Binance.WsURL = "" },
			wantErr: "ws_url must not be empty",
		},
		{
			name: "max reconnect below initial",
			mutate: func(cfg *Config) {
				cfg.Exchange.Session.InitialReconnectDelay = duration{10 * time.Second}
				cfg.Exchange.Session.MaxReconnectDelay = duration{5 * time.Second}
			},
			wantErr: "max_reconnect_delay must not be below",
		},
		{
			name:    "zero ping retry count",
			mutate:  func(cfg *Config) { cfg.Exchange.Session.PingRetryCount = 0 },
			wantErr: "ping_retry_count must be >= 1",
		},
		{
			name:    "non-positive decay factor",
			mutate:  func(cfg *Config) { cfg.Weighting.DecayFactor = 0 },
			wantErr: "decay_factor must be > 0",
		},
		{
			name: "redis enabled without addr",
			mutate: func(cfg *Config) {
				cfg.Redis.Enabled = true
				cfg.Redis.Addr = ""
			},
			wantErr: "addr must not be empty when enabled",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	cfg := Defaults()
	cfg.LogLevel = "verbose"
	cfg.Server.Port = 0
	cfg.Weighting.DecayFactor = -1

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown log_level")
	assert.Contains(t, err.Error(), "port must be 1-65535")
	assert.Contains(t, err.Error(), "decay_factor must be > 0")
}
