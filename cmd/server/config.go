package main

import (
	"flag"
	"fmt"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

const envPrefix = "CREWLINE_"

// serverConfig is built from flags, then overridden by CREWLINE_* variables.
type serverConfig struct {
	Addr           string        `env:"ADDR"`
	ConfigDir      string        `env:"CONFIGS"`
	DataDir        string        `env:"DATA"`
	Game           string        `env:"GAME"`
	Seed           int64         `env:"SEED"`
	Manager        string        `env:"MANAGER"`
	NewGame        bool          `env:"NEW_GAME"`
	DisableDB      bool          `env:"DISABLE_DB"`
	LogFile        string        `env:"LOG_FILE"`
	DebugHTTP      bool          `env:"DEBUG_HTTP"`
	ConfirmTimeout time.Duration `env:"CONFIRM_TIMEOUT"`
}

func parseConfig(args []string, environ map[string]string) (serverConfig, error) {
	var cfg serverConfig
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.StringVar(&cfg.Addr, "addr", ":8080", "http listen address")
	fs.StringVar(&cfg.ConfigDir, "configs", "./configs", "config directory")
	fs.StringVar(&cfg.DataDir, "data", "./data", "runtime data directory")
	fs.StringVar(&cfg.Game, "game", "game_1", "game id")
	fs.Int64Var(&cfg.Seed, "seed", 1337, "seed (used only when starting a new game)")
	fs.StringVar(&cfg.Manager, "manager", "Robin Marsh", "manager name (used only when starting a new game)")
	fs.BoolVar(&cfg.NewGame, "new", false, "start a new game even if a save exists")
	fs.BoolVar(&cfg.DisableDB, "disable_db", false, "disable the sqlite read model")
	fs.StringVar(&cfg.LogFile, "log_file", "", "write logs to a rotating file instead of stdout")
	fs.BoolVar(&cfg.DebugHTTP, "debug_http", true, "serve the loopback-only truth view at /debug/state")
	fs.DurationVar(&cfg.ConfirmTimeout, "confirm_timeout", 10*time.Second, "how long CONFIRM waits for the previous save")
	if err := fs.Parse(args); err != nil {
		return serverConfig{}, err
	}

	opts := env.Options{Prefix: envPrefix}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return serverConfig{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.Game == "" || filepath.Base(cfg.Game) != cfg.Game {
		return serverConfig{}, fmt.Errorf("invalid game id %q", cfg.Game)
	}
	if cfg.Manager == "" {
		return serverConfig{}, fmt.Errorf("manager name is empty")
	}
	return cfg, nil
}

func (c serverConfig) gameDir() string { return filepath.Join(c.DataDir, "games", c.Game) }
func (c serverConfig) saveDir() string { return filepath.Join(c.gameDir(), "save") }
