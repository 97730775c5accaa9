package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/papertrade/market"
	"github.com/rustyeddy/papertrade/sim"
)

// Config represents the complete papertrade configuration
type Config struct {
	Simulation  SimulationConfig             `json:"simulation" yaml:"simulation"`
	Settlement  SettlementConfig             `json:"settlement" yaml:"settlement"`
	Journal     JournalConfig                `json:"journal" yaml:"journal"`
	Server      ServerConfig                 `json:"server" yaml:"server"`
	Log         LogConfig                    `json:"log" yaml:"log"`
	Users       []UserConfig                 `json:"users,omitempty" yaml:"users,omitempty"`
	Instruments map[string]market.Instrument `json:"instruments,omitempty" yaml:"instruments,omitempty"`
}

// SimulationConfig contains price model and chart parameters
type SimulationConfig struct {
	Epsilon         float64 `json:"epsilon" yaml:"epsilon"`
	SeedEpsilon     float64 `json:"seed_epsilon" yaml:"seed_epsilon"`
	SeedWick        float64 `json:"seed_wick" yaml:"seed_wick"`
	HistoryCapacity int     `json:"history_capacity" yaml:"history_capacity"`
	SeedInterval    string  `json:"seed_interval" yaml:"seed_interval"` // e.g. "15m"
	TickEvery       string  `json:"tick_every" yaml:"tick_every"`       // e.g. "1s"
	RNGSeed         uint64  `json:"rng_seed,omitempty" yaml:"rng_seed,omitempty"`
}

// SettlementConfig contains the cash rules applied to every fill
type SettlementConfig struct {
	Fee       float64 `json:"fee" yaml:"fee"`
	Precision int32   `json:"precision" yaml:"precision"`
	AvgPrice  string  `json:"avg_price" yaml:"avg_price"` // "last_fill" or "weighted"
}

// JournalConfig contains persistence parameters
type JournalConfig struct {
	Type   string `json:"type" yaml:"type"` // "sqlite" or "memory"
	DBPath string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// ServerConfig contains the HTTP surface parameters
type ServerConfig struct {
	Addr                 string   `json:"addr" yaml:"addr"`
	AllowedOrigins       []string `json:"allowed_origins,omitempty" yaml:"allowed_origins,omitempty"`
	CalibrationThreshold float64  `json:"calibration_threshold" yaml:"calibration_threshold"`
}

type LogConfig struct {
	Level string `json:"level" yaml:"level"`
	File  string `json:"file,omitempty" yaml:"file,omitempty"`
}

// UserConfig is an account created at startup if it does not exist yet
type UserConfig struct {
	Username string  `json:"username" yaml:"username"`
	Password string  `json:"password" yaml:"password"`
	Balance  float64 `json:"balance" yaml:"balance"`
	Role     string  `json:"role,omitempty" yaml:"role,omitempty"`
}

// Environment variables that override file values.
const (
	EnvDBPath   = "PAPERTRADE_DB_PATH"
	EnvAddr     = "PAPERTRADE_ADDR"
	EnvLogLevel = "PAPERTRADE_LOG_LEVEL"
)

// TickInterval converts tick_every to a time.Duration
func (s SimulationConfig) TickInterval() (time.Duration, error) {
	return parseDuration(s.TickEvery)
}

// SeedSpacing converts seed_interval to a time.Duration
func (s SimulationConfig) SeedSpacing() (time.Duration, error) {
	return parseDuration(s.SeedInterval)
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

// LoadFromFile loads configuration from a file (YAML or JSON), then
// applies environment overrides. Missing fields keep their defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		cfg = Default()
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Load reads path when it is non-empty and the defaults otherwise. A
// .env file in the working directory is loaded first if present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	if path != "" {
		return LoadFromFile(path)
	}
	cfg := Default()
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides file values with the PAPERTRADE_* variables.
// Priority: ENV > .env file > config file > defaults
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvDBPath); v != "" {
		c.Journal.DBPath = v
	}
	if v := os.Getenv(EnvAddr); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	s := c.Simulation
	if s.Epsilon <= 0 || s.Epsilon >= 1 {
		return fmt.Errorf("simulation.epsilon must be between 0 and 1")
	}
	if s.SeedEpsilon < 0 || s.SeedEpsilon >= 1 {
		return fmt.Errorf("simulation.seed_epsilon must be between 0 and 1")
	}
	if s.SeedWick < 0 || s.SeedWick >= 1 {
		return fmt.Errorf("simulation.seed_wick must be between 0 and 1")
	}
	if s.HistoryCapacity <= 0 {
		return fmt.Errorf("simulation.history_capacity must be positive")
	}
	if d, err := s.TickInterval(); err != nil || d <= 0 {
		return fmt.Errorf("simulation.tick_every must be a positive duration")
	}
	if d, err := s.SeedSpacing(); err != nil || d <= 0 {
		return fmt.Errorf("simulation.seed_interval must be a positive duration")
	}

	if c.Settlement.Fee < 0 {
		return fmt.Errorf("settlement.fee must not be negative")
	}
	if c.Settlement.Precision < 0 {
		return fmt.Errorf("settlement.precision must not be negative")
	}
	if _, err := sim.ParseAvgPricePolicy(c.Settlement.AvgPrice); err != nil {
		return fmt.Errorf("settlement.avg_price: %w", err)
	}

	switch c.Journal.Type {
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	case "memory":
	default:
		return fmt.Errorf("journal.type must be 'sqlite' or 'memory'")
	}

	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Server.CalibrationThreshold < 0 {
		return fmt.Errorf("server.calibration_threshold must not be negative")
	}

	seen := make(map[string]bool, len(c.Users))
	for i, u := range c.Users {
		if u.Username == "" {
			return fmt.Errorf("users[%d].username is required", i)
		}
		if seen[u.Username] {
			return fmt.Errorf("users[%d]: duplicate username %q", i, u.Username)
		}
		seen[u.Username] = true
		if u.Balance < 0 {
			return fmt.Errorf("users[%d].balance must not be negative", i)
		}
	}

	if len(c.Instruments) > 0 {
		if _, err := market.NewRegistry(c.Instruments); err != nil {
			return fmt.Errorf("instruments: %w", err)
		}
	}
	return nil
}

// Registry returns the configured instrument table, or the built-in one.
func (c *Config) Registry() (*market.Registry, error) {
	if len(c.Instruments) == 0 {
		return market.DefaultRegistry(), nil
	}
	return market.NewRegistry(c.Instruments)
}

// SeedOptions returns the chart backfill parameters.
func (c *Config) SeedOptions() market.SeedOptions {
	spacing, _ := c.Simulation.SeedSpacing()
	return market.SeedOptions{
		Points:   c.Simulation.HistoryCapacity,
		Interval: spacing,
		Epsilon:  c.Simulation.SeedEpsilon,
		Wick:     c.Simulation.SeedWick,
	}
}

// EngineConfig converts the settlement section into sim.Config.
func (c *Config) EngineConfig() sim.Config {
	policy, _ := sim.ParseAvgPricePolicy(c.Settlement.AvgPrice)
	cfg := sim.DefaultConfig()
	cfg.Fee = c.Settlement.Fee
	cfg.Precision = c.Settlement.Precision
	cfg.AvgPrice = policy
	return cfg
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Simulation: SimulationConfig{
			Epsilon:         market.DefaultEpsilon,
			SeedEpsilon:     market.DefaultSeedEpsilon,
			SeedWick:        market.DefaultSeedWick,
			HistoryCapacity: market.DefaultHistoryCapacity,
			SeedInterval:    "15m",
			TickEvery:       "1s",
		},
		Settlement: SettlementConfig{
			Fee:       sim.DefaultFee,
			Precision: sim.DefaultPrecision,
			AvgPrice:  string(sim.AvgPriceLastFill),
		},
		Journal: JournalConfig{
			Type:   "sqlite",
			DBPath: "./papertrade.db",
		},
		Server: ServerConfig{
			Addr:                 ":8080",
			AllowedOrigins:       []string{"*"},
			CalibrationThreshold: 0.5,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
