package cli

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"motomaster/internal/commons"
	"motomaster/internal/config"
	"motomaster/internal/infrastructure/database"
	"motomaster/internal/infrastructure/logger"
	"motomaster/internal/telegram"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	EnvFile    string
	ConfigFile string
}

// NewRootCommand creates the root command for the motomaster CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "motomaster",
		Short: "Motomaster intake bot",
		Long:  "Telegram bot that collects service orders and announces them to the operator channel.",
		// Without a subcommand the binary serves.
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "optional YAML config file; environment variables override it")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewWebhookCommand(opts))

	return cmd
}

func loadConfig(opts *RootOptions) (*config.Config, *zap.Logger, error) {
	cfg, err := commons.LoadConfig(opts.EnvFile, opts.ConfigFile)
	if err != nil {
		return nil, nil, err
	}

	zapLogger, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, fmt.Errorf("creating logger: %w", err)
	}
	return cfg, zapLogger, nil
}

func openDatabase(ctx context.Context, cfg *config.Config, zapLogger *zap.Logger) (*sql.DB, database.Dialect, error) {
	db, dialect, err := database.NewConnection(cfg.Database)
	if err != nil {
		return nil, database.Dialect{}, fmt.Errorf("connecting to database: %w", err)
	}
	zapLogger.Info("database connected", zap.String("driver", dialect.Name))

	if err := database.Migrate(ctx, db, dialect); err != nil {
		db.Close()
		return nil, database.Dialect{}, err
	}
	return db, dialect, nil
}

func newTelegramClient(cfg *config.Config) *telegram.Client {
	return telegram.NewClient(telegram.ClientOptions{
		BaseURL: cfg.Telegram.APIURL,
		Token:   cfg.Telegram.BotToken,
	})
}
