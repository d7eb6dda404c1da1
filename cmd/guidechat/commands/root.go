// Package commands defines all Cobra CLI commands for the guidechat binary.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/guidechat-ai/guidechat/internal/audit"
	"github.com/guidechat-ai/guidechat/internal/config"
	"github.com/guidechat-ai/guidechat/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "guidechat",
		Short: "GuideChat — a grounded chat assistant for your product guides",
		Long: `GuideChat answers questions about your product documentation.

It indexes per-category guide documents (PDF, text, or markdown) into a
vector store and answers questions strictly from the retrieved passages,
streaming responses over SSE when serving HTTP.

Model provider is selected via the MODEL_PROVIDER environment variable
or a YAML config file (~/.guidechat/config.yaml).
See 'guidechat --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New()

			// Load YAML config (env vars always override YAML values).
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			loadedConfigPath = path

			// Emit structured audit log for every command invocation.
			audit.LogCommandStart(log, cmd.Name(), loadedConfigPath)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.guidechat/config.yaml)")

	root.AddCommand(
		NewAskCmd(),
		NewServeCmd(),
		NewIndexCmd(),
		NewVersionCmd(),
	)

	return root
}
