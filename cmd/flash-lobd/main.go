// Command flash-lobd runs a single matching-engine instance for one
// symbol, serving Prometheus metrics and driving the engine loop, or
// replays a recorded command file against it offline.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "flash-lobd",
		Short: "A single-symbol, single-writer limit order book matching engine.",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "directory containing flash-lob.yaml")

	root.AddCommand(newRunCmd(&configPath))
	root.AddCommand(newReplayCmd(&configPath))
	return root
}
