package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/lexcodex/reliquary/agents"
	"github.com/lexcodex/reliquary/internal/logging"
)

var (
	cfgFile   string
	workspace string

	settings *agents.Settings
	rootLog  zerolog.Logger
)

// Execute is the entry point for the CLI.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// NewRootCmd wires the cobra tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "reliquary",
		Short:         "Agentic filesystem excavation and cleanup",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// best effort, a missing .env is fine
			_ = godotenv.Load()
			if workspace == "" {
				wd, err := os.Getwd()
				if err != nil {
					return err
				}
				workspace = wd
			}
			if cfgFile == "" {
				cfgFile = agents.DefaultConfigPath(workspace)
			}
			cfg, err := agents.LoadSettings(cfgFile)
			if err != nil {
				return err
			}
			settings = cfg
			rootLog = logging.Setup(cfg.Logging.Level, cfg.Logging.Pretty)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&workspace, "workspace", "", "Workspace directory")
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to reliquary config file")

	root.AddCommand(
		newExcavateCmd(),
		newMemoryCmd(),
		newConfigCmd(),
	)
	return root
}
