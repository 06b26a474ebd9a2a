package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "renderd",
	Short: "renderd is an HTTP render gateway for a USD stage renderer",
	Long: `renderd fronts a USD stage renderer (such as an Omniverse Kit host) with
a small JSON API: open a stage, render it from a camera position, and fetch
the resulting color and depth frames.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to the YAML config file")
}
