package main

import (
	"path/filepath"
	"testing"
	"time"
)

func TestParseConfig_Defaults(t *testing.T) {
	cfg, err := parseConfig(nil, map[string]string{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Addr != ":8080" || cfg.Seed != 1337 || cfg.ConfirmTimeout != 10*time.Second {
		t.Fatalf("cfg=%+v", cfg)
	}
	if got, want := cfg.saveDir(), filepath.Join("data", "games", "game_1", "save"); got != want {
		t.Fatalf("saveDir=%q want %q", got, want)
	}
}

func TestParseConfig_EnvOverridesFlags(t *testing.T) {
	cfg, err := parseConfig(
		[]string{"-addr", ":9000", "-seed", "5"},
		map[string]string{
			"CREWLINE_SEED":            "77",
			"CREWLINE_MANAGER":         "Kit Vale",
			"CREWLINE_DISABLE_DB":      "true",
			"CREWLINE_CONFIRM_TIMEOUT": "250ms",
		},
	)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Addr != ":9000" {
		t.Fatalf("addr=%q", cfg.Addr)
	}
	if cfg.Seed != 77 || cfg.Manager != "Kit Vale" || !cfg.DisableDB || cfg.ConfirmTimeout != 250*time.Millisecond {
		t.Fatalf("cfg=%+v", cfg)
	}
}

func TestParseConfig_Rejects(t *testing.T) {
	if _, err := parseConfig([]string{"-game", "../escape"}, map[string]string{}); err == nil {
		t.Fatalf("expected game id rejection")
	}
	if _, err := parseConfig(nil, map[string]string{"CREWLINE_SEED": "many"}); err == nil {
		t.Fatalf("expected env parse error")
	}
}
