package cli

import (
	"context"
	"fmt"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	bettercover "github.com/menta2k/better-cover"
	"github.com/menta2k/better-cover/internal/config"
	"github.com/menta2k/better-cover/internal/utils"
)

// Execute runs the better-cover CLI and returns an error if any command fails.
// Cancelling ctx stops long-running commands such as serve.
//
// Logging:
//   - Default: info level (logs to stderr)
//   - With --verbose (-v): debug level
func Execute(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	var (
		verbose    bool
		configPath string
	)

	root := &cobra.Command{
		Use:          "better-cover",
		Short:        "Focus-aware object-fit: cover for responsive images",
		Long:         `better-cover scales and positions images so they always cover their container while the important part of the picture stays inside a target zone.`,
		Version:      bettercover.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := charmlog.InfoLevel
			if verbose {
				level = charmlog.DebugLevel
			}
			logger := newLogger(cmd.ErrOrStderr(), level)

			cfg, err := loadConfig(configPath, cmd.Flags().Changed("config"))
			if err != nil {
				return err
			}
			logger.Debug("configuration loaded", "path", configPath)

			ctx := withLogger(cmd.Context(), logger)
			cmd.SetContext(withConfig(ctx, cfg))
			return nil
		},
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVarP(&configPath, "config", "c", config.GetConfigPath(), "configuration file (TOML or JSON)")

	root.AddCommand(newSolveCmd())
	root.AddCommand(newRenderCmd())
	root.AddCommand(newDetectCmd())
	root.AddCommand(newServeCmd())

	return root
}

// loadConfig reads path when it exists. A missing file is only an error
// when the user named it explicitly.
func loadConfig(path string, explicit bool) (*config.Config, error) {
	cfg := config.Default()
	if utils.FileExists(path) {
		var err error
		cfg, err = config.LoadFromFile(path)
		if err != nil {
			return nil, err
		}
	} else if explicit {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
