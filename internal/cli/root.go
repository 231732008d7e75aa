package cli

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/menta2k/photo-grid/internal/config"
	"github.com/menta2k/photo-grid/internal/logger"
	"github.com/menta2k/photo-grid/internal/utils"
)

// app carries state shared by every subcommand
type app struct {
	configPath string
	logLevel   string
	cfg        *config.Config
}

// NewRootCmd builds the photo-grid command tree
func NewRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "photo-grid",
		Short: "Lay photos out onto printable 4x6 grid pages",
		Long: `Photo Grid sorts photos by orientation and composes them onto 1200x1800
pages: portraits four to a page in a 2x2 grid, landscapes two to a page.
Pages are exported as JPEG files inside a zip archive.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// .env file is optional
			_ = godotenv.Load()
			return a.init()
		},
	}

	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default ~/.config/photo-grid/config.yaml)")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug|info|warn|error")

	cmd.AddCommand(newBuildCmd(a))
	cmd.AddCommand(newStatsCmd(a))
	cmd.AddCommand(newConfigCmd(a))

	return cmd
}

func (a *app) init() error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := logger.Init(logger.Options{
		Level:      cfg.Log.Level,
		Pretty:     cfg.Log.Pretty,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	a.cfg = cfg
	log.Debug().Interface("config", cfg).Msg("configuration loaded")
	return nil
}

// loadConfig reads --config if given, else the default path when it exists
func (a *app) loadConfig() (*config.Config, error) {
	path := a.configPath
	if path == "" {
		path = config.GetConfigPath()
		if !utils.FileExists(path) {
			return config.Default(), nil
		}
	}

	return config.LoadFromFile(path)
}
