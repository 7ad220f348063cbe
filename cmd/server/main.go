package main

import (
	"os"
	"time"

	"github.com/jrsteele09/funeral-coordinator/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	serve := newServeCmd()
	root := &cobra.Command{
		Use:   "funeral-coordinator",
		Short: "Funeral Coordinator web service with the Canva Connect integration",
		// Running without a subcommand starts the server.
		RunE:          serve.RunE,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(config.New())
		},
	}
	root.Flags().AddFlagSet(serve.Flags())
	root.SetVersionTemplate(`{{printf "funeral-coordinator version %s\n" .Version}}`)

	root.AddCommand(serve, newConfigCmd(), newVersionCmd())
	return root
}

func setupLogging(c config.EnvConfig) {
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if c.GetEnv() == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	zerolog.DefaultContextLogger = &log.Logger
}
