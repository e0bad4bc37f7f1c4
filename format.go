package main

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// statusf prints a status message to stderr unless quiet mode is set.
func statusf(quiet bool, format string, args ...any) {
	if !quiet {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}

// plural picks the singular or plural form for n.
func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}

	return many
}

// printFields writes label/value pairs with the values aligned.
func printFields(w io.Writer, fields [][2]string) {
	width := 0
	for _, f := range fields {
		if len(f[0]) > width {
			width = len(f[0])
		}
	}

	for _, f := range fields {
		fmt.Fprintf(w, "%-*s  %s\n", width+1, f[0]+":", strings.TrimSpace(f[1]))
	}
}
