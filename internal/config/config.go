package config

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("config: invalid")

// Config holds the tunables for one session plus the service settings.
type Config struct {
	SpawnMulMin float64 `mapstructure:"spawnMulMin" json:"spawnMulMin"`
	SpawnMulMax float64 `mapstructure:"spawnMulMax" json:"spawnMulMax"`
	LifeMulMin  float64 `mapstructure:"lifeMulMin" json:"lifeMulMin"`
	LifeMulMax  float64 `mapstructure:"lifeMulMax" json:"lifeMulMax"`

	ReactionAlpha     float64 `mapstructure:"reactionAlpha" json:"reactionAlpha"`
	PacingSmoothAlpha float64 `mapstructure:"pacingSmoothAlpha" json:"pacingSmoothAlpha"`
	PacingSettleStep  float64 `mapstructure:"pacingSettleStep" json:"pacingSettleStep"`

	PatternStickyChance float64 `mapstructure:"patternStickyChance" json:"patternStickyChance"`
	ForceRerollEvery    int     `mapstructure:"forceRerollEvery" json:"forceRerollEvery"`

	HistoryCapacity  int     `mapstructure:"historyCapacity" json:"historyCapacity"`
	SampleCandidates int     `mapstructure:"sampleCandidates" json:"sampleCandidates"`
	EdgeMarginPct    float64 `mapstructure:"edgeMarginPct" json:"edgeMarginPct"`
	ExclusionPadPct  float64 `mapstructure:"exclusionPadPct" json:"exclusionPadPct"`
	MinSeparation    float64 `mapstructure:"minSeparation" json:"minSeparation"`

	MissFloorThreshold int `mapstructure:"missFloorThreshold" json:"missFloorThreshold"`

	RunMode    RunMode    `mapstructure:"runMode" json:"runMode"`
	Difficulty Difficulty `mapstructure:"difficulty" json:"difficulty"`

	Server  ServerConfig  `mapstructure:"server" json:"-"`
	Journal JournalConfig `mapstructure:"journal" json:"-"`
}

// ServerConfig configures the HTTP service.
type ServerConfig struct {
	Addr           string        `mapstructure:"addr"`
	RequestTimeout time.Duration `mapstructure:"requestTimeout"`
	KeyringService string        `mapstructure:"keyringService"`
}

// JournalConfig configures the session journal. An empty Path disables it.
type JournalConfig struct {
	Path      string `mapstructure:"path"`
	FlushSize int    `mapstructure:"flushSize"`
}

const (
	MinHistoryCapacity = 1
	MaxHistoryCapacity = 32
)

// Default returns the standard configuration.
func Default() Config {
	return Config{
		SpawnMulMin:         0.82,
		SpawnMulMax:         1.18,
		LifeMulMin:          0.88,
		LifeMulMax:          1.12,
		ReactionAlpha:       0.18,
		PacingSmoothAlpha:   0.25,
		PacingSettleStep:    0.02,
		PatternStickyChance: 0.65,
		ForceRerollEvery:    8,
		HistoryCapacity:     6,
		SampleCandidates:    16,
		EdgeMarginPct:       0.04,
		ExclusionPadPct:     0.02,
		MinSeparation:       0.09,
		MissFloorThreshold:  10,
		RunMode:             RunModePlay,
		Difficulty:          DifficultyNormal,
		Server: ServerConfig{
			Addr:           ":8088",
			RequestTimeout: 60 * time.Second,
			KeyringService: "fairpace",
		},
		Journal: JournalConfig{
			FlushSize: 64,
		},
	}
}

// Validate reports the first out-of-range value.
func (c Config) Validate() error {
	checks := []struct {
		ok  bool
		msg string
	}{
		{finite(c.SpawnMulMin, c.SpawnMulMax, c.LifeMulMin, c.LifeMulMax), "multiplier bounds must be finite"},
		{c.SpawnMulMin > 0 && c.SpawnMulMin <= c.SpawnMulMax, "spawnMulMin must be positive and <= spawnMulMax"},
		{c.LifeMulMin > 0 && c.LifeMulMin <= c.LifeMulMax, "lifeMulMin must be positive and <= lifeMulMax"},
		{c.ReactionAlpha > 0 && c.ReactionAlpha <= 1, "reactionAlpha must be in (0,1]"},
		{c.PacingSmoothAlpha > 0 && c.PacingSmoothAlpha <= 1, "pacingSmoothAlpha must be in (0,1]"},
		{c.PacingSettleStep >= 0 && c.PacingSettleStep < 1, "pacingSettleStep must be in [0,1)"},
		{c.PatternStickyChance >= 0 && c.PatternStickyChance <= 1, "patternStickyChance must be in [0,1]"},
		{c.ForceRerollEvery >= 0, "forceRerollEvery must be >= 0"},
		{c.HistoryCapacity >= MinHistoryCapacity && c.HistoryCapacity <= MaxHistoryCapacity, "historyCapacity must be in [1,32]"},
		{c.SampleCandidates >= 1 && c.SampleCandidates <= 64, "sampleCandidates must be in [1,64]"},
		{c.EdgeMarginPct >= 0 && c.EdgeMarginPct < 0.5, "edgeMarginPct must be in [0,0.5)"},
		{c.ExclusionPadPct >= 0 && c.ExclusionPadPct < 0.5, "exclusionPadPct must be in [0,0.5)"},
		{c.MinSeparation >= 0 && c.MinSeparation < 1, "minSeparation must be in [0,1)"},
		{c.MissFloorThreshold >= 1, "missFloorThreshold must be >= 1"},
		{c.RunMode.Valid(), fmt.Sprintf("unknown runMode %q", c.RunMode)},
		{c.Difficulty.Valid(), fmt.Sprintf("unknown difficulty %q", c.Difficulty)},
	}
	for _, chk := range checks {
		if !chk.ok {
			return fmt.Errorf("%w: %s", ErrInvalid, chk.msg)
		}
	}
	return nil
}

// Normalized returns a copy with every out-of-range field replaced by its
// default, so the controllers always receive usable values.
func (c Config) Normalized() Config {
	d := Default()
	if !finite(c.SpawnMulMin, c.SpawnMulMax) || c.SpawnMulMin <= 0 || c.SpawnMulMin > c.SpawnMulMax {
		c.SpawnMulMin, c.SpawnMulMax = d.SpawnMulMin, d.SpawnMulMax
	}
	if !finite(c.LifeMulMin, c.LifeMulMax) || c.LifeMulMin <= 0 || c.LifeMulMin > c.LifeMulMax {
		c.LifeMulMin, c.LifeMulMax = d.LifeMulMin, d.LifeMulMax
	}
	c.ReactionAlpha = orDefault(c.ReactionAlpha, d.ReactionAlpha, c.ReactionAlpha > 0 && c.ReactionAlpha <= 1)
	c.PacingSmoothAlpha = orDefault(c.PacingSmoothAlpha, d.PacingSmoothAlpha, c.PacingSmoothAlpha > 0 && c.PacingSmoothAlpha <= 1)
	c.PacingSettleStep = orDefault(c.PacingSettleStep, d.PacingSettleStep, c.PacingSettleStep >= 0 && c.PacingSettleStep < 1)
	c.PatternStickyChance = orDefault(c.PatternStickyChance, d.PatternStickyChance, c.PatternStickyChance >= 0 && c.PatternStickyChance <= 1)
	c.EdgeMarginPct = orDefault(c.EdgeMarginPct, d.EdgeMarginPct, c.EdgeMarginPct >= 0 && c.EdgeMarginPct < 0.5)
	c.ExclusionPadPct = orDefault(c.ExclusionPadPct, d.ExclusionPadPct, c.ExclusionPadPct >= 0 && c.ExclusionPadPct < 0.5)
	c.MinSeparation = orDefault(c.MinSeparation, d.MinSeparation, c.MinSeparation >= 0 && c.MinSeparation < 1)

	if c.ForceRerollEvery < 0 {
		c.ForceRerollEvery = d.ForceRerollEvery
	}
	if c.HistoryCapacity < MinHistoryCapacity {
		c.HistoryCapacity = d.HistoryCapacity
	} else if c.HistoryCapacity > MaxHistoryCapacity {
		c.HistoryCapacity = MaxHistoryCapacity
	}
	if c.SampleCandidates < 1 || c.SampleCandidates > 64 {
		c.SampleCandidates = d.SampleCandidates
	}
	if c.MissFloorThreshold < 1 {
		c.MissFloorThreshold = d.MissFloorThreshold
	}
	if !c.RunMode.Valid() {
		c.RunMode = d.RunMode
	}
	if !c.Difficulty.Valid() {
		c.Difficulty = d.Difficulty
	}
	return c
}

// Load reads configuration from an optional file, then FAIRPACE_* environment
// variables, on top of Default(). Nested keys use "_" in the environment
// (FAIRPACE_SERVER_ADDR).
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix("FAIRPACE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("spawnMulMin", d.SpawnMulMin)
	v.SetDefault("spawnMulMax", d.SpawnMulMax)
	v.SetDefault("lifeMulMin", d.LifeMulMin)
	v.SetDefault("lifeMulMax", d.LifeMulMax)
	v.SetDefault("reactionAlpha", d.ReactionAlpha)
	v.SetDefault("pacingSmoothAlpha", d.PacingSmoothAlpha)
	v.SetDefault("pacingSettleStep", d.PacingSettleStep)
	v.SetDefault("patternStickyChance", d.PatternStickyChance)
	v.SetDefault("forceRerollEvery", d.ForceRerollEvery)
	v.SetDefault("historyCapacity", d.HistoryCapacity)
	v.SetDefault("sampleCandidates", d.SampleCandidates)
	v.SetDefault("edgeMarginPct", d.EdgeMarginPct)
	v.SetDefault("exclusionPadPct", d.ExclusionPadPct)
	v.SetDefault("minSeparation", d.MinSeparation)
	v.SetDefault("missFloorThreshold", d.MissFloorThreshold)
	v.SetDefault("runMode", string(d.RunMode))
	v.SetDefault("difficulty", string(d.Difficulty))
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.requestTimeout", d.Server.RequestTimeout)
	v.SetDefault("server.keyringService", d.Server.KeyringService)
	v.SetDefault("journal.path", d.Journal.Path)
	v.SetDefault("journal.flushSize", d.Journal.FlushSize)
}

func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func orDefault(v, def float64, ok bool) float64 {
	if !ok || !finite(v) {
		return def
	}
	return v
}
