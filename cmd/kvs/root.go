// Package main is the kvs command-line adaptor: a thin translator from
// three subcommands (set, get, rm) onto the engine's public API. It is
// deliberately outside the storage engine itself — see internal/engine
// for the part this tool front-ends.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/pouriaamini/kvs/internal/engine"
)

// version is overridden at build time via -ldflags "-X main.version=...".
var version = "dev"

var verbose bool

var rootCmd = &cobra.Command{
	Use:           "kvs",
	Short:         "A log-structured embedded key/value store",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log engine events (segment rollover, compaction) to stderr")
	// -v belongs to --verbose, so the version flag is declared here with
	// -V as its shorthand; cobra picks up a flag named "version" as-is.
	rootCmd.Flags().BoolP("version", "V", false, "version for kvs")
	rootCmd.AddCommand(setCmd, getCmd, rmCmd)
}

// openStore opens the store rooted at the current working directory,
// wiring a development logger in when --verbose was passed.
func openStore() (*engine.KVStore, error) {
	dir, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	cfg := engine.Config{}
	if verbose {
		logger, err := zapDevelopmentLogger()
		if err != nil {
			return nil, err
		}
		cfg.Logger = logger
	}
	return engine.Open(dir, cfg)
}
