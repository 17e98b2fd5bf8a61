// Package config loads and validates the bot configuration. Files may be
// YAML or JSON; secrets (broker credentials, tokens, DSNs) are never stored
// in the file itself — the file names the environment variables they come
// from.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/igfx/market"
	"github.com/rustyeddy/igfx/risk"
	"github.com/rustyeddy/igfx/strategies"
)

// Trading modes accepted by ResolveMode.
const (
	ModeDemo = "DEMO"
	ModeLive = "LIVE"
)

// Config represents the complete bot configuration
type Config struct {
	Mode        string             `json:"mode,omitempty" yaml:"mode,omitempty"`
	LogLevel    string             `json:"log_level,omitempty" yaml:"log_level,omitempty"`
	IG          IGConfig           `json:"ig" yaml:"ig"`
	Data        DataConfig         `json:"data" yaml:"data"`
	Instruments []InstrumentConfig `json:"instruments" yaml:"instruments"`
	Strategy    StrategyConfig     `json:"strategy" yaml:"strategy"`
	Risk        risk.Config        `json:"risk" yaml:"risk"`
	Scheduler   SchedulerConfig    `json:"scheduler" yaml:"scheduler"`
	Database    DatabaseConfig     `json:"database" yaml:"database"`
	Telegram    TelegramConfig     `json:"telegram" yaml:"telegram"`
	Metrics     MetricsConfig      `json:"metrics" yaml:"metrics"`
}

// CredentialEnv names the environment variables holding one set of broker
// credentials.
type CredentialEnv struct {
	APIKeyEnv      string `json:"api_key_env,omitempty" yaml:"api_key_env,omitempty"`
	UsernameEnv    string `json:"username_env,omitempty" yaml:"username_env,omitempty"`
	PasswordEnv    string `json:"password_env,omitempty" yaml:"password_env,omitempty"`
	AccountTypeEnv string `json:"account_type_env,omitempty" yaml:"account_type_env,omitempty"`
	AccountIDEnv   string `json:"account_id_env,omitempty" yaml:"account_id_env,omitempty"`
}

// IGConfig names broker credential environment variables, with optional
// per-mode overrides under credentials.
type IGConfig struct {
	CredentialEnv `yaml:",inline"`

	Credentials map[string]CredentialEnv `json:"credentials,omitempty" yaml:"credentials,omitempty"`
}

// DataConfig contains market data parameters
type DataConfig struct {
	HistoryPoints int `json:"history_points" yaml:"history_points"`
}

// InstrumentConfig describes one tradable instrument
type InstrumentConfig struct {
	Symbol           string  `json:"symbol" yaml:"symbol"`
	Epic             string  `json:"ig_epic" yaml:"ig_epic"`
	PipSize          float64 `json:"pip_size" yaml:"pip_size"`
	LotSize          int     `json:"lot_size" yaml:"lot_size"`
	Timeframe        string  `json:"timeframe,omitempty" yaml:"timeframe,omitempty"`
	StopDistancePips float64 `json:"stop_distance_pips,omitempty" yaml:"stop_distance_pips,omitempty"`
}

// Instrument converts the config entry to a market.Instrument.
func (ic InstrumentConfig) Instrument() market.Instrument {
	return market.Instrument{
		Symbol:           ic.Symbol,
		Epic:             ic.Epic,
		PipSize:          ic.PipSize,
		LotSize:          ic.LotSize,
		Timeframe:        ic.Timeframe,
		StopDistancePips: ic.StopDistancePips,
	}
}

// StrategyConfig contains the strategy name and its parameters
type StrategyConfig struct {
	Name   string            `json:"name" yaml:"name"`
	Params strategies.Params `json:"params" yaml:"params"`
}

// SchedulerConfig contains polling cadence and session window
type SchedulerConfig struct {
	RunIntervalSeconds int           `json:"run_interval_seconds" yaml:"run_interval_seconds"`
	Session            SessionConfig `json:"session" yaml:"session"`
}

// Interval returns the polling period.
func (sc SchedulerConfig) Interval() time.Duration {
	if sc.RunIntervalSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(sc.RunIntervalSeconds) * time.Second
}

// SessionConfig is a trading window in UTC hours; start > end wraps midnight
type SessionConfig struct {
	StartHour int `json:"start_hour" yaml:"start_hour"`
	EndHour   int `json:"end_hour" yaml:"end_hour"`
}

// DatabaseConfig selects and configures the candle/trade sink
type DatabaseConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Driver  string `json:"driver,omitempty" yaml:"driver,omitempty"` // "postgres" or "sqlite"
	DSNEnv  string `json:"dsn_env,omitempty" yaml:"dsn_env,omitempty"`
	Path    string `json:"path,omitempty" yaml:"path,omitempty"` // sqlite file
}

// TelegramConfig configures trade alerts and confirmation
type TelegramConfig struct {
	Enabled                    bool    `json:"enabled" yaml:"enabled"`
	BotTokenEnv                string  `json:"bot_token_env,omitempty" yaml:"bot_token_env,omitempty"`
	ChatIDEnv                  string  `json:"chat_id_env,omitempty" yaml:"chat_id_env,omitempty"`
	RequireTradeConfirmation   bool    `json:"require_trade_confirmation" yaml:"require_trade_confirmation"`
	ConfirmationTimeoutSeconds int     `json:"confirmation_timeout_seconds,omitempty" yaml:"confirmation_timeout_seconds,omitempty"`
	PollIntervalSeconds        float64 `json:"poll_interval_seconds,omitempty" yaml:"poll_interval_seconds,omitempty"`
}

// MetricsConfig enables the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Addr    string `json:"addr,omitempty" yaml:"addr,omitempty"`
}

// ResolveMode picks the trading mode: the CLI flag wins over the config
// file, and anything other than DEMO or LIVE falls back to DEMO.
func ResolveMode(cliMode, cfgMode string) string {
	for _, candidate := range []string{cliMode, cfgMode} {
		mode := strings.ToUpper(strings.TrimSpace(candidate))
		if mode == ModeDemo || mode == ModeLive {
			return mode
		}
	}
	return ModeDemo
}

// ResolveEnvNames returns the credential env-var names for the given mode:
// a mode-specific entry under credentials overrides the top-level names
// field by field.
func (ig IGConfig) ResolveEnvNames(mode string) CredentialEnv {
	names := ig.CredentialEnv
	for key, override := range ig.Credentials {
		if strings.ToUpper(strings.TrimSpace(key)) != mode {
			continue
		}
		if override.APIKeyEnv != "" {
			names.APIKeyEnv = override.APIKeyEnv
		}
		if override.UsernameEnv != "" {
			names.UsernameEnv = override.UsernameEnv
		}
		if override.PasswordEnv != "" {
			names.PasswordEnv = override.PasswordEnv
		}
		if override.AccountTypeEnv != "" {
			names.AccountTypeEnv = override.AccountTypeEnv
		}
		if override.AccountIDEnv != "" {
			names.AccountIDEnv = override.AccountIDEnv
		}
		break
	}
	return names
}

// ReadEnv reads the named environment variable, or returns the default
// when the name is empty or the variable is unset.
func ReadEnv(name, def string) string {
	if name == "" {
		return def
	}
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

// PostgresDSN resolves the database connection string. The named DSN
// variable wins; when it is unset a keyword DSN is assembled from the
// conventional discrete PGHOST/PGPORT/PGUSER/PGPASSWORD/PGDATABASE
// variables instead.
func PostgresDSN(dsnEnv string) (string, error) {
	if dsnEnv == "" {
		dsnEnv = "PG_DSN"
	}
	if dsn := os.Getenv(dsnEnv); dsn != "" {
		return dsn, nil
	}

	host := os.Getenv("PGHOST")
	if host == "" {
		return "", fmt.Errorf("neither %s nor PGHOST is set", dsnEnv)
	}
	parts := []string{"host=" + host}
	port := os.Getenv("PGPORT")
	if port == "" {
		port = "5432"
	}
	parts = append(parts, "port="+port)
	if v := os.Getenv("PGUSER"); v != "" {
		parts = append(parts, "user="+v)
	}
	if v := os.Getenv("PGPASSWORD"); v != "" {
		parts = append(parts, "password="+v)
	}
	if v := os.Getenv("PGDATABASE"); v != "" {
		parts = append(parts, "dbname="+v)
	}
	return strings.Join(parts, " "), nil
}

// LoadFromFile loads configuration from a file (YAML or JSON based on content)
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
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
	if len(c.Instruments) == 0 {
		return fmt.Errorf("at least one instrument is required")
	}
	for i, inst := range c.Instruments {
		if inst.Symbol == "" {
			return fmt.Errorf("instruments[%d].symbol is required", i)
		}
		if inst.Epic == "" {
			return fmt.Errorf("instruments[%d].ig_epic is required", i)
		}
		if inst.PipSize <= 0 {
			return fmt.Errorf("instruments[%d].pip_size must be positive", i)
		}
		if inst.LotSize <= 0 {
			return fmt.Errorf("instruments[%d].lot_size must be positive", i)
		}
	}

	if c.Strategy.Name == "" {
		return fmt.Errorf("strategy.name is required")
	}
	if _, err := strategies.ByName(c.Strategy.Name, c.Strategy.Params); err != nil {
		return err
	}

	if c.Risk.Balance <= 0 {
		return fmt.Errorf("risk.balance must be positive")
	}
	if c.Risk.RiskPerTradePct <= 0 || c.Risk.RiskPerTradePct > 100 {
		return fmt.Errorf("risk.risk_per_trade_pct must be between 0 and 100")
	}
	if c.Risk.RRRatio <= 0 {
		return fmt.Errorf("risk.rr_ratio must be positive")
	}

	if c.Data.HistoryPoints <= 0 {
		return fmt.Errorf("data.history_points must be positive")
	}

	s := c.Scheduler.Session
	if s.StartHour < 0 || s.StartHour > 23 {
		return fmt.Errorf("scheduler.session.start_hour must be between 0 and 23")
	}
	if s.EndHour < 0 || s.EndHour > 24 {
		return fmt.Errorf("scheduler.session.end_hour must be between 0 and 24")
	}

	if c.Database.Enabled {
		switch c.Database.Driver {
		case "postgres":
		case "sqlite":
			if c.Database.Path == "" {
				return fmt.Errorf("database.path required for sqlite driver")
			}
		default:
			return fmt.Errorf("database.driver must be 'postgres' or 'sqlite'")
		}
	}

	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return fmt.Errorf("metrics.addr required when metrics are enabled")
	}
	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Mode:     ModeDemo,
		LogLevel: "info",
		IG: IGConfig{
			CredentialEnv: CredentialEnv{
				APIKeyEnv:      "IG_API_KEY",
				UsernameEnv:    "IG_USERNAME",
				PasswordEnv:    "IG_PASSWORD",
				AccountTypeEnv: "IG_ACCOUNT_TYPE",
				AccountIDEnv:   "IG_ACCOUNT_ID",
			},
		},
		Data: DataConfig{HistoryPoints: 400},
		Instruments: []InstrumentConfig{
			{
				Symbol:           "EURUSD",
				Epic:             "CS.D.EURUSD.MINI.IP",
				PipSize:          0.0001,
				LotSize:          1000,
				Timeframe:        "5min",
				StopDistancePips: 10,
			},
		},
		Strategy: StrategyConfig{Name: "sma_ema_crossover"},
		Risk:     risk.Default(),
		Scheduler: SchedulerConfig{
			RunIntervalSeconds: 60,
			Session:            SessionConfig{StartHour: 0, EndHour: 24},
		},
		Database: DatabaseConfig{Driver: "sqlite", Path: "./igfx.db"},
		Telegram: TelegramConfig{
			BotTokenEnv:                "TELEGRAM_BOT_TOKEN",
			ChatIDEnv:                  "TELEGRAM_CHAT_ID",
			RequireTradeConfirmation:   true,
			ConfirmationTimeoutSeconds: 45,
			PollIntervalSeconds:        2,
		},
		Metrics: MetricsConfig{Addr: ":9090"},
	}
}
