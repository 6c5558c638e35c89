package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:           "monitor",
		Short:         "OKX portfolio monitor: live account state, observers and balance snapshots",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to yaml config (default $CONFIG_DIR/$CONFIG_FILE)")

	root.AddCommand(
		newServeCmd(),
		newCollectCmd(),
		newPruneCmd(),
	)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
