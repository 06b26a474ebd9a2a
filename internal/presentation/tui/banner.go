package tui

import (
	"fmt"

	"github.com/muesli/termenv"
)

// PrintBanner outputs the renderd ASCII art banner.
func PrintBanner() {
	p := termenv.ColorProfile()
	// Amber-to-orange ramp, roughly the Omniverse palette.
	s1 := termenv.String("                      _               _ ").Foreground(p.Color("#fbbf24"))
	s2 := termenv.String("  _ __ ___ _ __   __| | ___ _ __ __| |").Foreground(p.Color("#f59e0b"))
	s3 := termenv.String(" | '__/ _ \\ '_ \\ / _` |/ _ \\ '__/ _` |").Foreground(p.Color("#f97316"))
	s4 := termenv.String(" | | |  __/ | | | (_| |  __/ | | (_| |").Foreground(p.Color("#ea580c"))
	s5 := termenv.String(" |_|  \\___|_| |_|\\__,_|\\___|_|  \\__,_|").Foreground(p.Color("#dc2626"))

	fmt.Println()
	fmt.Println(s1)
	fmt.Println(s2)
	fmt.Println(s3)
	fmt.Println(s4)
	fmt.Println(s5)
	fmt.Println()
}
