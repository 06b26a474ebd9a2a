package main

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mirislabs/renderd/internal/presentation/tui"
)

//go:embed docs.md
var apiGuide string

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Show the API guide in the terminal",
	Run: func(cmd *cobra.Command, args []string) {
		plain, _ := cmd.Flags().GetBool("plain")
		if plain || !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Print(apiGuide)
			return
		}

		tui.PrintBanner()

		width, _, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil || width > 100 {
			width = 100
		}
		render := tui.NewRenderer(width)
		out, err := render(apiGuide)
		if err != nil {
			fmt.Print(apiGuide)
			return
		}
		fmt.Print(out)
	},
}

func init() {
	rootCmd.AddCommand(docsCmd)
	docsCmd.Flags().Bool("plain", false, "Print raw markdown without styling")
}
