package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestResolveMode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cli  string
		cfg  string
		want string
	}{
		{"cli wins over config", "live", "demo", ModeLive},
		{"config used when cli empty", "", "live", ModeLive},
		{"unknown falls back to demo", "", "paper", ModeDemo},
		{"both empty defaults to demo", "", "", ModeDemo},
		{"case and whitespace normalized", " Demo ", "", ModeDemo},
		{"unknown cli falls through to config", "paper", "live", ModeLive},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ResolveMode(tt.cli, tt.cfg))
		})
	}
}

func TestResolveEnvNamesModeSpecificOverrides(t *testing.T) {
	t.Parallel()

	ig := IGConfig{
		CredentialEnv: CredentialEnv{APIKeyEnv: "IG_API_KEY"},
		Credentials: map[string]CredentialEnv{
			"LIVE": {
				APIKeyEnv:   "IG_API_KEY_LIVE",
				UsernameEnv: "IG_USERNAME_LIVE",
			},
		},
	}

	names := ig.ResolveEnvNames(ModeLive)
	assert.Equal(t, "IG_API_KEY_LIVE", names.APIKeyEnv)
	assert.Equal(t, "IG_USERNAME_LIVE", names.UsernameEnv)
	assert.Empty(t, names.PasswordEnv)
}

func TestResolveEnvNamesTopLevelDefaults(t *testing.T) {
	t.Parallel()

	ig := IGConfig{
		CredentialEnv: CredentialEnv{
			APIKeyEnv:   "IG_API_KEY",
			UsernameEnv: "IG_USERNAME",
			PasswordEnv: "IG_PASSWORD",
		},
		Credentials: map[string]CredentialEnv{
			"LIVE": {APIKeyEnv: "IG_API_KEY_LIVE"},
		},
	}

	names := ig.ResolveEnvNames(ModeDemo)
	assert.Equal(t, "IG_API_KEY", names.APIKeyEnv)
	assert.Equal(t, "IG_USERNAME", names.UsernameEnv)
	assert.Equal(t, "IG_PASSWORD", names.PasswordEnv)
}

func TestReadEnv(t *testing.T) {
	t.Setenv("IGFX_TEST_VAR", "value")

	assert.Equal(t, "value", ReadEnv("IGFX_TEST_VAR", "fallback"))
	assert.Equal(t, "fallback", ReadEnv("IGFX_TEST_UNSET", "fallback"))
	assert.Equal(t, "fallback", ReadEnv("", "fallback"))
}

func TestPostgresDSNPrefersNamedVariable(t *testing.T) {
	t.Setenv("IGFX_TEST_DSN", "postgres://bot:secret@db:5432/igfx")
	t.Setenv("PGHOST", "ignored")

	dsn, err := PostgresDSN("IGFX_TEST_DSN")
	require.NoError(t, err)
	assert.Equal(t, "postgres://bot:secret@db:5432/igfx", dsn)
}

func TestPostgresDSNFallsBackToDiscreteVariables(t *testing.T) {
	t.Setenv("PG_DSN", "")
	t.Setenv("PGHOST", "db.internal")
	t.Setenv("PGPORT", "")
	t.Setenv("PGUSER", "bot")
	t.Setenv("PGPASSWORD", "secret")
	t.Setenv("PGDATABASE", "igfx")

	dsn, err := PostgresDSN("")
	require.NoError(t, err)
	assert.Equal(t, "host=db.internal port=5432 user=bot password=secret dbname=igfx", dsn)
}

func TestPostgresDSNErrorsWhenNothingSet(t *testing.T) {
	t.Setenv("PG_DSN", "")
	t.Setenv("PGHOST", "")

	_, err := PostgresDSN("")
	assert.Error(t, err)
}

func TestDefaultValidates(t *testing.T) {
	t.Parallel()
	assert.NoError(t, Default().Validate())
}

func TestLoadFromFileYAML(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "config.yaml", `
mode: live
ig:
  api_key_env: IG_API_KEY
  credentials:
    LIVE:
      api_key_env: IG_API_KEY_LIVE
data:
  history_points: 300
instruments:
  - symbol: GBPUSD
    ig_epic: CS.D.GBPUSD.MINI.IP
    pip_size: 0.0001
    lot_size: 1000
    timeframe: 5min
    stop_distance_pips: 12
strategy:
  name: rsi_reversal
  params:
    rsi_len: 10
risk:
  balance: 25000
  risk_per_trade_pct: 0.5
  rr_ratio: 3
scheduler:
  run_interval_seconds: 120
  session:
    start_hour: 7
    end_hour: 21
database:
  enabled: true
  driver: postgres
  dsn_env: PG_DSN
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "live", cfg.Mode)
	assert.Equal(t, 300, cfg.Data.HistoryPoints)
	require.Len(t, cfg.Instruments, 1)
	assert.Equal(t, "GBPUSD", cfg.Instruments[0].Symbol)
	assert.Equal(t, 12.0, cfg.Instruments[0].StopDistancePips)
	assert.Equal(t, "rsi_reversal", cfg.Strategy.Name)
	assert.Equal(t, 10, cfg.Strategy.Params.RSILength)
	assert.Equal(t, 25000.0, cfg.Risk.Balance)
	assert.Equal(t, "IG_API_KEY_LIVE", cfg.IG.ResolveEnvNames(ModeLive).APIKeyEnv)
	assert.Equal(t, 120, cfg.Scheduler.RunIntervalSeconds)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	// Defaults survive for sections the file does not mention.
	assert.True(t, cfg.Telegram.RequireTradeConfirmation)
}

func TestLoadFromFileJSON(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "config.json", `{
  "instruments": [
    {"symbol": "EURUSD", "ig_epic": "CS.D.EURUSD.MINI.IP", "pip_size": 0.0001, "lot_size": 1000}
  ],
  "strategy": {"name": "alligator"},
  "risk": {"balance": 10000, "risk_per_trade_pct": 1, "rr_ratio": 2},
  "data": {"history_points": 400}
}`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "alligator", cfg.Strategy.Name)
}

func TestLoadFromFileErrors(t *testing.T) {
	t.Parallel()

	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := writeFile(t, "bad.yaml", "strategy:\n  name: no_such_strategy\n")
	_, err = LoadFromFile(bad)
	assert.Error(t, err)
}

func TestValidateRejectsBadInstrument(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Instruments[0].PipSize = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Instruments = nil
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsBadDatabase(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Database.Enabled = true
	cfg.Database.Driver = "mysql"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Database.Enabled = true
	cfg.Database.Driver = "sqlite"
	cfg.Database.Path = ""
	assert.Error(t, cfg.Validate())
}

func TestSaveToFileRoundTrip(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Mode = ModeLive
	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, cfg.SaveToFile(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, ModeLive, loaded.Mode)
}