package main

import (
	"os"
	"sync"

	"github.com/mattn/go-isatty"
)

var (
	colorOnce sync.Once
	colorOn   bool
)

// stderrColor reports whether diagnostics on stderr may use ANSI colors.
func stderrColor() bool {
	colorOnce.Do(func() {
		// NO_COLOR convention: https://no-color.org/
		if _, ok := os.LookupEnv("NO_COLOR"); ok {
			return
		}
		if os.Getenv("TERM") == "dumb" {
			return
		}
		fd := os.Stderr.Fd()
		colorOn = isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	})
	return colorOn
}

func red(s string) string {
	if !stderrColor() {
		return s
	}
	return "\x1b[31m" + s + "\x1b[0m"
}
