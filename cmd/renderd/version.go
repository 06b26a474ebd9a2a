package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mirislabs/renderd"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of renderd",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("renderd version %s\n", strings.TrimSpace(renderd.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
