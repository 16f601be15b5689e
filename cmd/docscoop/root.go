// Package main provides the entry point for the DocScoop CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// exit codes mirror shell conventions: 130 for SIGINT-style
// interruption, 1 for every other failure.
const (
	exitOK          = 0
	exitError       = 1
	exitInterrupted = 130
)

// NewRootCmd creates the root command for DocScoop.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docscoop",
		Short: "Discover and analyze publicly exposed documents on a web site",
		Long: `DocScoop crawls a web site looking for publicly exposed documents
(PDFs, spreadsheets, text files) and analyzes whether they look
sensitive or unintended for public release.

With --anonymous, all crawl and download traffic is routed through a
Tor SOCKS proxy; --launch-tor starts a Tor process if none is running.
Analysis requires a Gemini API key in the GEMINI_API_KEY environment
variable (a .env file in the working directory is honored).`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command and exits the process with the
// appropriate status code.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "scan interrupted")
			os.Exit(exitInterrupted)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitError)
	}
}
