// Ewego-fleet is the operator dashboard for EweGo field devices.
//
// It discovers Raspberry Pi sensor units on the local network (mDNS
// announcements plus an active subnet sweep), polls every known
// device's health endpoint on a fast cadence, and serves the merged
// fleet view over HTTP and as a terminal dashboard.
//
// Usage:
//
//	ewego-fleet serve [flags]
//	ewego-fleet scan [flags]
//	ewego-fleet discover [flags]
//	ewego-fleet tui [flags]
//
// See 'ewego-fleet --help' for available commands and options.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ewego/fleet/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ewego-fleet",
	Short: "EweGo fleet dashboard",
	Long: `Discover and monitor EweGo field devices on the local network.

The dashboard finds devices two ways: passively, by listening for their
mDNS announcements (service type "_ewego._tcp"), and actively, by
sweeping the local subnet for hosts answering the device health
endpoint. Every known device is then polled continuously and the
combined view is served to operators.`,
	Version: version.Version,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Full())
	},
}
