package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "debugwire",
		Short: "WebSocket debugging gateway for instrumented host processes",
		Long: `debugwire exposes a JSON debugging protocol over WebSocket.

Debugger clients connect concurrently, send named events, and receive
both direct responses and unsolicited notifications (logs, stepping,
game lifecycle). Host start/stop transitions are serialized against
in-flight debugger activity, and shutdown waits for every session to
drain.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Printf("debugwire %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}
