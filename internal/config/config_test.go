package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"inverted spawn bounds", func(c *Config) { c.SpawnMulMin, c.SpawnMulMax = 1.2, 0.8 }},
		{"zero life min", func(c *Config) { c.LifeMulMin = 0 }},
		{"nan bound", func(c *Config) { c.SpawnMulMax = math.NaN() }},
		{"alpha above one", func(c *Config) { c.ReactionAlpha = 1.5 }},
		{"history too large", func(c *Config) { c.HistoryCapacity = 33 }},
		{"history zero", func(c *Config) { c.HistoryCapacity = 0 }},
		{"sticky negative", func(c *Config) { c.PatternStickyChance = -0.1 }},
		{"unknown run mode", func(c *Config) { c.RunMode = "arcade" }},
		{"unknown difficulty", func(c *Config) { c.Difficulty = "nightmare" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("Validate() error %v does not wrap ErrInvalid", err)
			}
		})
	}
}

func TestNormalizedRepairsEveryField(t *testing.T) {
	cfg := Config{
		SpawnMulMin:         math.Inf(1),
		SpawnMulMax:         1,
		LifeMulMin:          2,
		LifeMulMax:          1,
		ReactionAlpha:       math.NaN(),
		PacingSmoothAlpha:   -1,
		PatternStickyChance: 3,
		HistoryCapacity:     500,
		SampleCandidates:    0,
		EdgeMarginPct:       0.9,
		RunMode:             "bogus",
	}
	n := cfg.Normalized()
	if err := n.Validate(); err != nil {
		t.Fatalf("Normalized().Validate() = %v", err)
	}
	if n.HistoryCapacity != MaxHistoryCapacity {
		t.Errorf("HistoryCapacity = %d, want %d", n.HistoryCapacity, MaxHistoryCapacity)
	}
	if n.RunMode != RunModePlay {
		t.Errorf("RunMode = %q, want play", n.RunMode)
	}
}

func TestCapabilities(t *testing.T) {
	tests := []struct {
		mode RunMode
		want Capabilities
	}{
		{RunModePlay, Capabilities{Adaptive: true}},
		{RunModeResearch, Capabilities{Adaptive: false, RequireSeed: true}},
		{RunModePractice, Capabilities{Adaptive: false}},
		{"", Capabilities{Adaptive: true}},
	}
	for _, tt := range tests {
		if got := tt.mode.Capabilities(); got != tt.want {
			t.Errorf("%q.Capabilities() = %+v, want %+v", tt.mode, got, tt.want)
		}
	}
}

func TestParseRunModeAndDifficulty(t *testing.T) {
	if m, err := ParseRunMode(" Study "); err != nil || m != RunModeResearch {
		t.Errorf("ParseRunMode(study) = %q, %v", m, err)
	}
	if _, err := ParseRunMode("arcade"); !errors.Is(err, ErrInvalid) {
		t.Errorf("ParseRunMode(arcade) error = %v", err)
	}
	if d, err := ParseDifficulty("HARD"); err != nil || d != DifficultyHard {
		t.Errorf("ParseDifficulty(HARD) = %q, %v", d, err)
	}
	if d, _ := ParseDifficulty(""); d != DifficultyNormal {
		t.Errorf("ParseDifficulty(\"\") = %q", d)
	}
	if DifficultyEasy.Level() >= DifficultyNormal.Level() || DifficultyNormal.Level() >= DifficultyHard.Level() {
		t.Error("difficulty levels are not increasing")
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fairpace.yaml")
	body := []byte("spawnMulMax: 1.25\nhistoryCapacity: 8\nrunMode: research\nserver:\n  addr: \":9000\"\njournal:\n  path: journal.db\n")
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("FAIRPACE_DIFFICULTY", "hard")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if cfg.SpawnMulMax != 1.25 {
		t.Errorf("SpawnMulMax = %v, want 1.25", cfg.SpawnMulMax)
	}
	if cfg.HistoryCapacity != 8 {
		t.Errorf("HistoryCapacity = %d, want 8", cfg.HistoryCapacity)
	}
	if cfg.RunMode != RunModeResearch {
		t.Errorf("RunMode = %q, want research", cfg.RunMode)
	}
	if cfg.Difficulty != DifficultyHard {
		t.Errorf("Difficulty = %q, want hard from env", cfg.Difficulty)
	}
	if cfg.Server.Addr != ":9000" || cfg.Journal.Path != "journal.db" {
		t.Errorf("nested keys not loaded: %+v %+v", cfg.Server, cfg.Journal)
	}
	if cfg.SpawnMulMin != Default().SpawnMulMin {
		t.Errorf("unset key lost its default: SpawnMulMin = %v", cfg.SpawnMulMin)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("lifeMulMin: 2\nlifeMulMax: 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); !errors.Is(err, ErrInvalid) {
		t.Errorf("Load() error = %v, want ErrInvalid", err)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() of missing file returned nil error")
	}
}
