// Package main provides the CLI entry point for requant.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const (
	appName    = "requant"
	appVersion = "0.3.0"
)

func main() {
	root := &cobra.Command{
		Use:   appName,
		Short: "Adaptive HEVC re-encoding with x265",
		Long: `Requant analyzes a source's complexity and content type, adapts
rate-control parameters to fit, and drives single- or multi-pass x265
encodes with live progress feedback and post-encode validation.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newEncodeCommand())
	root.AddCommand(newAnalyzeCommand())
	root.AddCommand(newVersionCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s\n", appName, appVersion)
		},
	}
}
