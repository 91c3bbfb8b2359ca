// Package cli implements the paperchat command-line interface.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/ramavio/paperchat/internal/logging"
)

var (
	cfgFile  string
	logLevel string

	// loaded at init time
	log *logging.Logger
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "paperchat",
		Short: "paperchat — LLM-assisted academic paper chat service",
		Long:  "Paperchat is a web service for chatting about academic papers: an LLM agent pair decides when to search a scholarly repository and enriches its answers with the papers it finds.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := logLevel
			if level == "" {
				level = "info"
			}
			log = logging.New(nil, level)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./paperchat.yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error, fatal, silent)")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}
