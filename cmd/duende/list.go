package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/paiml/duende/internal/config"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List daemons defined under --config",
	RunE:  runList,
}

func init() {
	listCmd.Flags().StringVar(&configDir, "config", defaultConfigDir, "directory of per-daemon TOML config files")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	configs, err := config.LoadDir(configDir)
	if err != nil {
		return err
	}
	if len(configs) == 0 {
		fmt.Printf("no daemon configs found under %s\n", configDir)
		return nil
	}

	for _, cfg := range configs {
		fmt.Printf("%s\n", cfg.Name)
		fmt.Printf("  binary:  %s %v\n", cfg.BinaryPath, cfg.Args)
		fmt.Printf("  restart: %v (max_retries=%d)\n", cfg.Restart.Kind, cfg.Restart.MaxRetries)
		if cfg.Resources.MemoryBytes > 0 {
			fmt.Printf("  memory_bytes: %d\n", cfg.Resources.MemoryBytes)
		}
	}
	return nil
}
