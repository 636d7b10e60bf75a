package cli

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"trivia-service/internal/config"
	"trivia-service/internal/lib/slogcustom"
)

var (
	port       string
	configPath string
)

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	envPort := os.Getenv("PORT")
	envConfig := os.Getenv("CONFIG_PATH")
	if envConfig == "" {
		envConfig = "config/config.yaml"
	}

	cmd := &cobra.Command{
		Use:           "trivia-service",
		Short:         "Trivia scoring service: answers, streaks, tiers and prize rounds",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// .env is optional; real environment variables always win.
			if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&port, "port", envPort, "port to listen on (defaults to server.port)")
	cmd.PersistentFlags().StringVar(&configPath, "config", envConfig, "path to YAML config")
	cmd.AddCommand(NewStartCmd(&configPath, &port))
	cmd.AddCommand(NewMigrateCmd(&configPath))
	cmd.AddCommand(NewSettleCmd(&configPath))
	cmd.AddCommand(NewDrawCmd(&configPath))
	cmd.AddCommand(NewResetWeekCmd(&configPath))
	return cmd
}

// loadConfig reads the YAML file, applies environment overrides and installs
// the process logger.
func loadConfig(path string) (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, nil, err
	}
	cfg.ApplyEnv(os.LookupEnv)
	logger := slog.New(slogcustom.NewHandler(os.Stderr, slogcustom.ParseLevel(cfg.Log.Level)))
	slog.SetDefault(logger)
	return cfg, logger, nil
}
