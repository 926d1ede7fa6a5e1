// Package main is the CLI entry point for duende.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	Version   = "0.1.0"
	Commit    = "dev"
	BuildTime = "unknown"
)

var (
	pidFilePath        string
	defaultPIDFilePath = "/var/run/duende.pid"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "duende",
	Short: "Cross-platform daemon supervisor",
	Long: `duende supervises long-running background processes through a uniform
lifecycle across native processes, systemd units, launchd agents, OCI
containers, microVMs, and WASM OS, restarting them according to policy
and guarding against the resource-exhaustion failure modes a supervisor
process is uniquely positioned to hit itself.`,
	Version: Version,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run:   runVersion,
}

var jsonOutput bool

func init() {
	versionCmd.Flags().BoolVar(&jsonOutput, "json", false, "output version info as JSON")
	rootCmd.AddCommand(versionCmd)
}

func runVersion(cmd *cobra.Command, args []string) {
	if jsonOutput {
		fmt.Printf(`{"version":"%s","commit":"%s","build_time":"%s"}`+"\n", Version, Commit, BuildTime)
		return
	}
	fmt.Printf("duende %s (commit: %s, built: %s)\n", Version, Commit, BuildTime)
}
