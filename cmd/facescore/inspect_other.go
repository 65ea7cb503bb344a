//go:build !darwin

package main

import (
	"fmt"
	"io"
)

func printLayers(out io.Writer, _ string) {
	fmt.Fprintln(out, "\nLayer listing requires go-metal (macOS only).")
}
