package main

import (
	"fmt"
	"os"

	"github.com/tphakala/reckless-court/cmd"
	"github.com/tphakala/reckless-court/internal/conf"
)

func main() {
	settings := &conf.Settings{}

	rootCmd := cmd.RootCommand(settings)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Command execution error: %v\n", err)
		os.Exit(1)
	}
}
