package main

import (
	"github.com/spf13/cobra"

	"github.com/goliatone/go-output-cache/internal/config"
)

type rootOptions struct {
	envFile string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "outputcache",
		Short:         "Tag invalidated output cache for a catalog storefront",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env", ".env", "dotenv file loaded before the environment")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newPurgeCommand(opts))
	return cmd
}

func (o *rootOptions) load() (*config.Config, error) {
	return config.LoadFile(o.envFile)
}
