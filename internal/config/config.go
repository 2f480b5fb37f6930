package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/lazypower/warmth/internal/warmth"
	"github.com/m-mizutani/goerr/v2"
)

// Config holds all warmth configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Warmth   WarmthConfig
	Log      LogConfig
}

type ServerConfig struct {
	Bind            string        `env:"WARMTH_BIND"`
	Port            int           `env:"WARMTH_PORT"`
	ShutdownTimeout time.Duration `env:"WARMTH_SHUTDOWN_TIMEOUT"`
}

type DatabaseConfig struct {
	Driver string `env:"WARMTH_DB_DRIVER"` // "sqlite", "postgres", "mysql"
	// Path is the sqlite file; empty resolves to store.DefaultDBPath().
	Path string `env:"WARMTH_DB_PATH"`
	// DSN is the connection string for postgres and mysql. It carries credentials.
	DSN    string `env:"WARMTH_DB_DSN" masq:"secret"`
	NodeID int64  `env:"WARMTH_NODE_ID"`
}

// WarmthConfig tunes the decay engine.
type WarmthConfig struct {
	DefaultMode      warmth.Mode   `env:"WARMTH_DEFAULT_MODE"`
	InitialScore     float64       `env:"WARMTH_INITIAL_SCORE"`
	FreshnessWindow  time.Duration `env:"WARMTH_FRESHNESS_WINDOW"`
	StoreTimeout     time.Duration `env:"WARMTH_STORE_TIMEOUT"`
	RefreshInterval  time.Duration `env:"WARMTH_REFRESH_INTERVAL"` // 0 disables the refresh timer
	RefreshBatch     int           `env:"WARMTH_REFRESH_BATCH"`
	HistoryStep      time.Duration `env:"WARMTH_HISTORY_STEP"`
	MaxHistoryPoints int           `env:"WARMTH_MAX_HISTORY_POINTS"`
	// Strict fails loudly on out-of-range scores instead of clamping.
	Strict        bool `env:"WARMTH_STRICT"`
	AllowTestMode bool `env:"WARMTH_ALLOW_TEST_MODE"`
}

type LogConfig struct {
	Level  string `env:"WARMTH_LOG_LEVEL"`  // debug, info, warn, error
	Format string `env:"WARMTH_LOG_FORMAT"` // console, json
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind:            "127.0.0.1",
			Port:            37780,
			ShutdownTimeout: 5 * time.Second,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			Path:   "", // resolved at runtime via store.DefaultDBPath()
			NodeID: 1,
		},
		Warmth: WarmthConfig{
			DefaultMode:      warmth.ModeMedium,
			InitialScore:     100,
			FreshnessWindow:  60 * time.Second,
			StoreTimeout:     2 * time.Second,
			RefreshInterval:  15 * time.Minute,
			RefreshBatch:     500,
			HistoryStep:      24 * time.Hour,
			MaxHistoryPoints: 2000,
			Strict:           false,
			AllowTestMode:    true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load returns the defaults overridden by an optional .env file and then the
// process environment. envFile may be empty; a missing file is not an error.
func Load(envFile string) (Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		// godotenv never overrides variables already set in the environment.
		if err := godotenv.Load(envFile); err != nil {
			return Config{}, goerr.Wrap(err, "load env file", goerr.V("path", envFile))
		}
	}

	cfg := Default()
	if err := env.Parse(&cfg); err != nil {
		return Config{}, goerr.Wrap(err, "parse env")
	}
	cfg.Warmth.DefaultMode = warmth.Mode(strings.ToLower(strings.TrimSpace(string(cfg.Warmth.DefaultMode))))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres", "mysql":
	default:
		return goerr.New("unsupported database driver", goerr.V("driver", c.Database.Driver))
	}
	if c.Database.Driver != "sqlite" && c.Database.DSN == "" {
		return goerr.New("database dsn required", goerr.V("driver", c.Database.Driver))
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return goerr.New("port out of range", goerr.V("port", c.Server.Port))
	}

	w := c.Warmth
	if !w.DefaultMode.Valid() {
		return goerr.Wrap(warmth.ErrInvalidMode, "default mode", goerr.V("mode", w.DefaultMode))
	}
	if w.DefaultMode == warmth.ModeTest && !w.AllowTestMode {
		return goerr.Wrap(warmth.ErrInvalidMode, "default mode is test but test mode is disabled")
	}
	if w.InitialScore < warmth.Floor || w.InitialScore > warmth.MaxScore {
		return goerr.New("initial score out of range", goerr.V("initial_score", w.InitialScore))
	}
	if w.FreshnessWindow < 0 {
		return goerr.New("freshness window must not be negative", goerr.V("freshness_window", w.FreshnessWindow))
	}
	if w.StoreTimeout <= 0 {
		return goerr.New("store timeout must be positive", goerr.V("store_timeout", w.StoreTimeout))
	}
	if w.RefreshInterval < 0 {
		return goerr.New("refresh interval must not be negative", goerr.V("refresh_interval", w.RefreshInterval))
	}
	if w.RefreshBatch <= 0 {
		return goerr.New("refresh batch must be positive", goerr.V("refresh_batch", w.RefreshBatch))
	}
	if w.HistoryStep <= 0 {
		return goerr.New("history step must be positive", goerr.V("history_step", w.HistoryStep))
	}
	if w.MaxHistoryPoints <= 0 {
		return goerr.New("max history points must be positive", goerr.V("max_history_points", w.MaxHistoryPoints))
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return goerr.New("unknown log level", goerr.V("level", c.Log.Level))
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return goerr.New("unknown log format", goerr.V("format", c.Log.Format))
	}
	return nil
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}
