package main

import (
	"github.com/spf13/cobra"

	"github.com/himanishpuri/QuizMix/internal/config"
	"github.com/himanishpuri/QuizMix/pkg/logger"
)

type commandContext struct {
	configPath string
	verbose    bool
	cfg        *config.Config
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}

	log := logger.GetLogger()
	log.SetLevel(logger.ParseLevel(cfg.Log.Level))
	if c.verbose {
		log.SetLevel(logger.DEBUG)
	}
	if cfg.Log.NoColor {
		log.SetColorize(false)
	}

	c.cfg = cfg
	return cfg, nil
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "quizmix",
		Short:         "Assemble quiz tracks from audio clips",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&ctx.configPath, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().BoolVarP(&ctx.verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(newBuildCommand(ctx))
	rootCmd.AddCommand(newHashCommand(ctx))
	rootCmd.AddCommand(newPreviewCommand(ctx))

	return rootCmd
}
