package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/igfx/broker/ig"
	"github.com/rustyeddy/igfx/config"
	"github.com/rustyeddy/igfx/metrics"
	"github.com/rustyeddy/igfx/notify"
	"github.com/rustyeddy/igfx/risk"
	"github.com/rustyeddy/igfx/runner"
	"github.com/rustyeddy/igfx/sink"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the trading bot from a config file",
	Long: `Start the scheduled trading loop using settings from a configuration
file. Broker credentials, the Telegram token and database DSN are read from
the environment variables the config file names (a .env file is honoured).

Example:
  igfx run --config igfx.yaml --mode demo`,
	RunE: runRun,
}

var (
	runConfigPath string
	runMode       string
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "config", "f", "", "path to config file (YAML or JSON) (required)")
	runCmd.Flags().StringVarP(&runMode, "mode", "m", "", "trading mode: demo or live (overrides the config file)")
	runCmd.MarkFlagRequired("config")
}

func runRun(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(); err != nil {
		// Not an error; the environment may be set by the shell or unit file.
		fmt.Fprintln(os.Stderr, "no .env file found, using process environment")
	}

	cfg, err := config.LoadFromFile(runConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := newLogger(cfg.LogLevel)

	mode := config.ResolveMode(runMode, cfg.Mode)
	log.Info().Str("mode", mode).Msg("selected trading mode")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	names := cfg.IG.ResolveEnvNames(mode)
	client := ig.NewClient(ig.Config{
		APIKey:      config.ReadEnv(names.APIKeyEnv, ""),
		Identifier:  config.ReadEnv(names.UsernameEnv, ""),
		Password:    config.ReadEnv(names.PasswordEnv, ""),
		AccountType: config.ReadEnv(names.AccountTypeEnv, mode),
		AccountID:   config.ReadEnv(names.AccountIDEnv, ""),
	}, log)
	if err := client.Login(ctx); err != nil {
		return fmt.Errorf("broker login: %w", err)
	}
	defer func() {
		if err := client.Logout(context.Background()); err != nil {
			log.Warn().Err(err).Msg("broker logout failed")
		}
	}()

	store, err := newSink(cfg, log)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	notifier, err := newNotifier(cfg, log)
	if err != nil {
		return err
	}

	if cfg.Metrics.Enabled {
		go func() {
			log.Info().Str("addr", cfg.Metrics.Addr).Msg("serving metrics")
			if err := metrics.Serve(cfg.Metrics.Addr); err != nil {
				log.Error().Err(err).Msg("metrics server stopped")
			}
		}()
	}

	rm := risk.NewManager(cfg.Risk, log)
	r, err := runner.New(cfg, client, store, notifier, rm, log)
	if err != nil {
		return fmt.Errorf("build runner: %w", err)
	}

	if notifier != nil {
		notifier.SendMessage(fmt.Sprintf("🤖 igfx started in %s mode (%d instruments, strategy %s).",
			mode, len(cfg.Instruments), cfg.Strategy.Name))
	}

	err = r.Run(ctx)
	if errors.Is(err, context.Canceled) {
		log.Info().Msg("shutdown complete")
		return nil
	}
	return err
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return zerolog.New(writer).Level(lvl).With().Timestamp().Logger()
}

func newSink(cfg *config.Config, log zerolog.Logger) (sink.Sink, error) {
	if !cfg.Database.Enabled {
		return nil, nil
	}

	switch cfg.Database.Driver {
	case "postgres":
		dsn, err := config.PostgresDSN(cfg.Database.DSNEnv)
		if err != nil {
			return nil, fmt.Errorf("database enabled but no connection settings: %w", err)
		}
		s, err := sink.NewPostgres(dsn, log)
		if err != nil {
			return nil, fmt.Errorf("open postgres sink: %w", err)
		}
		log.Info().Msg("persisting to postgres")
		return s, nil
	case "sqlite":
		s, err := sink.NewSQLite(cfg.Database.Path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite sink: %w", err)
		}
		log.Info().Str("path", cfg.Database.Path).Msg("persisting to sqlite")
		return s, nil
	}
	return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
}

func newNotifier(cfg *config.Config, log zerolog.Logger) (runner.Notifier, error) {
	tc := cfg.Telegram
	if !tc.Enabled {
		return nil, nil
	}

	token := config.ReadEnv(tc.BotTokenEnv, "")
	chatIDRaw := config.ReadEnv(tc.ChatIDEnv, "")
	if token == "" || chatIDRaw == "" {
		log.Warn().Msg("telegram enabled but bot token or chat id is missing")
		return nil, nil
	}
	chatID, err := strconv.ParseInt(chatIDRaw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("telegram chat id: %w", err)
	}

	tg, err := notify.NewTelegram(token, notify.Options{
		ChatID:              chatID,
		RequireConfirmation: tc.RequireTradeConfirmation,
		ConfirmationTimeout: time.Duration(tc.ConfirmationTimeoutSeconds) * time.Second,
		PollInterval:        time.Duration(tc.PollIntervalSeconds * float64(time.Second)),
	}, log)
	if err != nil {
		return nil, err
	}
	return tg, nil
}
