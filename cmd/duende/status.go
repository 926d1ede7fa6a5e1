package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/paiml/duende/internal/config"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report whether the supervisor process is running",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&pidFilePath, "pidfile", defaultPIDFilePath, "path to the supervisor's pidfile")
	statusCmd.Flags().StringVar(&configDir, "config", defaultConfigDir, "directory of per-daemon TOML config files")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	pid, err := readPIDFile(pidFilePath)
	if err != nil || !pidIsAlive(pid) {
		fmt.Println("status: NOT RUNNING")
		return nil
	}
	fmt.Printf("status: RUNNING (pid %d)\n", pid)

	configs, err := config.LoadDir(configDir)
	if err == nil {
		fmt.Printf("configured daemons: %d\n", len(configs))
	}
	return nil
}
