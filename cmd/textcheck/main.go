// Package main provides the entry point for the textcheck CLI.
package main

import (
	"os"

	"github.com/Adithya-Monish-Kumar-K/docsearch-tools/cmd/textcheck/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
