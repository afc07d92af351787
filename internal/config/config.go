package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
)

type Config struct {
	Server    ServerConfig    `toml:"server"`
	Database  DatabaseConfig  `toml:"database"`
	Scheduler SchedulerConfig `toml:"scheduler"`
	Game      GameConfig      `toml:"game"`
	Console   ConsoleConfig   `toml:"console"`
	Logging   LoggingConfig   `toml:"logging"`
}

type ServerConfig struct {
	Name      string `toml:"name" env:"GITB_SERVER_NAME"`
	StartTime int64  // set at boot, not from config
}

type DatabaseConfig struct {
	DSN             string        `toml:"dsn" env:"GITB_DATABASE_DSN"` // postgres://... or a SQLite file; empty disables persistence
	MaxOpenConns    int           `toml:"max_open_conns"`
	MaxIdleConns    int           `toml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `toml:"conn_max_lifetime"`
}

type SchedulerConfig struct {
	RegionSize    int `toml:"region_size" env:"GITB_REGION_SIZE"` // blocks per region edge
	QueueCapacity int `toml:"queue_capacity"`                     // initial per-region queue capacity
}

type GameConfig struct {
	TickRate       time.Duration `toml:"tick_rate" env:"GITB_TICK_RATE"`
	ArenasFile     string        `toml:"arenas_file" env:"GITB_ARENAS_FILE"`
	ScriptsDir     string        `toml:"scripts_dir" env:"GITB_SCRIPTS_DIR"`
	ClearTimeout   time.Duration `toml:"clear_timeout"` // how long shutdown waits for a running clear before forcing
	PreloadRegions bool          `toml:"preload_regions"`
	StatusInterval time.Duration `toml:"status_interval"` // 0 disables the periodic status line
}

type ConsoleConfig struct {
	Stdin       bool   `toml:"stdin" env:"GITB_CONSOLE_STDIN"`
	BindAddress string `toml:"bind_address" env:"GITB_CONSOLE_BIND"` // empty disables the TCP console
}

type LoggingConfig struct {
	Level  string `toml:"level" env:"GITB_LOG_LEVEL"`
	Format string `toml:"format" env:"GITB_LOG_FORMAT"` // "json" or "console"
}

// Load reads the TOML file at path over the defaults, then applies GITB_*
// environment overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("env overrides: %w", err)
	}
	cfg.Server.StartTime = time.Now().Unix()
	return cfg, nil
}

// Default returns the built-in configuration with environment overrides
// applied, for running without a config file.
func Default() (*Config, error) {
	cfg := defaults()
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("env overrides: %w", err)
	}
	cfg.Server.StartTime = time.Now().Unix()
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Name: "GamesInTheBox",
		},
		Database: DatabaseConfig{
			DSN:             "file:gitb.db?_pragma=busy_timeout(5000)",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Scheduler: SchedulerConfig{
			RegionSize:    16,
			QueueCapacity: 32,
		},
		Game: GameConfig{
			TickRate:       200 * time.Millisecond,
			ArenasFile:     "data/arenas.yaml",
			ScriptsDir:     "scripts",
			ClearTimeout:   5 * time.Second,
			PreloadRegions: true,
			StatusInterval: time.Minute,
		},
		Console: ConsoleConfig{
			Stdin: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
