// Package cli implements the qqbridge command-line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/moepig/qqbridge/internal/config"
	"github.com/moepig/qqbridge/internal/logging"
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string

	// loaded at init time
	paths config.Paths
	log   *logging.Logger
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "qqbridge",
		Short: "qqbridge bridges NapCat QQ chats to an OpenResponses backend",
		Long:  "qqbridge connects a NapCat (OneBot v11) gateway to a text-generation backend, relaying chat messages both ways.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Local .env files are a convenient place for NAPCAT_TOKEN etc.
			godotenv.Load()

			var err error
			paths, err = config.ResolvePaths()
			if err != nil {
				return err
			}
			if cfgFile != "" {
				paths.Config = cfgFile
			}
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

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.qqbridge/config.yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error, fatal, silent)")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newSendCmd())
	cmd.AddCommand(newHistoryCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	err := newRootCmd().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "qqbridge:", err)
	}
	return err
}
