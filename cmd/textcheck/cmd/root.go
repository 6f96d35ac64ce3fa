// Package cmd provides the commands of the textcheck CLI.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/docsearch-tools/pkg/logger"
)

// NewRootCmd creates the root command for the textcheck CLI.
func NewRootCmd() *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:   "textcheck",
		Short: "PESEL verification and document index queries from the terminal",
		Long: `textcheck runs the PESEL checksum validator and the in-memory document
index without starting the HTTP server.

Results go to stdout, prompts and logs to stderr.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			logger.SetupWriter(cmd.ErrOrStderr(), logLevel, "text")
		},
	}

	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	cmd.AddCommand(newPeselCmd())
	cmd.AddCommand(newIndexCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
