// Package config loads and validates the on-disk TOML configuration
// record that binds one daemon to a Manager, per SPEC_FULL.md §6.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/paiml/duende/internal/core"
)

// fileResources mirrors core.ResourceConfig with the on-disk key set
// from SPEC_FULL.md §6's [resources] table.
type fileResources struct {
	MemoryBytes        uint64  `toml:"memory_bytes"`
	MemorySwapBytes    uint64  `toml:"memory_swap_bytes"`
	CPUQuotaPercent    float64 `toml:"cpu_quota_percent"`
	CPUShares          uint64  `toml:"cpu_shares"`
	IOReadBPS          uint64  `toml:"io_read_bps"`
	IOWriteBPS         uint64  `toml:"io_write_bps"`
	PidsMax            uint64  `toml:"pids_max"`
	OpenFilesMax       uint64  `toml:"open_files_max"`
	LockMemory         bool    `toml:"lock_memory"`
	LockMemoryRequired bool    `toml:"lock_memory_required"`
}

// fileHealthCheck mirrors core.HealthCheckConfig, with durations as
// suffixed strings ("30s", "10s") per SPEC_FULL.md §6.
type fileHealthCheck struct {
	Interval   string `toml:"interval"`
	Timeout    string `toml:"timeout"`
	RetryCount int    `toml:"retry_count"`
}

// fileRestart mirrors core.RestartPolicy, with Policy as one of
// "never", "always", "on-failure", "unless-stopped".
type fileRestart struct {
	Policy     string `toml:"policy"`
	MaxRetries int    `toml:"max_retries"`
}

// fileConfig is the root document shape decoded from a daemon's TOML
// configuration file.
type fileConfig struct {
	Name        string            `toml:"name"`
	Version     string            `toml:"version"`
	Description string            `toml:"description"`
	BinaryPath  string            `toml:"binary_path"`
	ConfigPath  string            `toml:"config_path"`
	Args        []string          `toml:"args"`
	Env         map[string]string `toml:"env"`
	User        string            `toml:"user"`
	Group       string            `toml:"group"`
	WorkingDir  string            `toml:"working_dir"`

	Resources   fileResources          `toml:"resources"`
	HealthCheck fileHealthCheck        `toml:"health_check"`
	Restart     fileRestart            `toml:"restart"`
	Platform    map[string]interface{} `toml:"platform"`

	ShutdownTimeout string `toml:"shutdown_timeout"`
}

// Load reads, strictly decodes, and translates a daemon configuration
// file into a core.DaemonConfig, validating it in the same pass. An
// unknown top-level key, or an unknown key in [resources],
// [health_check] or [restart], is a load-time error, matching
// go-toml/v2's DisallowUnknownFields decoder option. The [platform]
// table is free-form: any key in it is accepted.
func Load(path string) (*core.DaemonConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var fc fileConfig
	dec := toml.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&fc); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg, err := fc.toDaemonConfig()
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDir loads every *.toml file in dir as a separate daemon config, in
// lexical filename order, so a Manager can be seeded with one file per
// daemon rather than one monolithic document.
func LoadDir(dir string) ([]*core.DaemonConfig, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.toml"))
	if err != nil {
		return nil, fmt.Errorf("config: glob %s: %w", dir, err)
	}
	sort.Strings(matches)

	configs := make([]*core.DaemonConfig, 0, len(matches))
	for _, path := range matches {
		cfg, err := Load(path)
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}
	return configs, nil
}

func (fc fileConfig) toDaemonConfig() (*core.DaemonConfig, error) {
	shutdownTimeout, err := parseDuration(fc.ShutdownTimeout)
	if err != nil {
		return nil, fmt.Errorf("shutdown_timeout: %w", err)
	}
	interval, err := parseDuration(fc.HealthCheck.Interval)
	if err != nil {
		return nil, fmt.Errorf("health_check.interval: %w", err)
	}
	timeout, err := parseDuration(fc.HealthCheck.Timeout)
	if err != nil {
		return nil, fmt.Errorf("health_check.timeout: %w", err)
	}
	restartKind, err := parseRestartKind(fc.Restart.Policy)
	if err != nil {
		return nil, err
	}

	return &core.DaemonConfig{
		Name:        fc.Name,
		Version:     fc.Version,
		Description: fc.Description,

		BinaryPath: fc.BinaryPath,
		Args:       fc.Args,
		Env:        fc.Env,
		User:       fc.User,
		Group:      fc.Group,
		WorkingDir: fc.WorkingDir,

		Resources: core.ResourceConfig{
			MemoryBytes:        fc.Resources.MemoryBytes,
			MemorySwapBytes:    fc.Resources.MemorySwapBytes,
			CPUQuotaPercent:    fc.Resources.CPUQuotaPercent,
			CPUShares:          fc.Resources.CPUShares,
			IOReadBPS:          fc.Resources.IOReadBPS,
			IOWriteBPS:         fc.Resources.IOWriteBPS,
			MaxChildProcesses:  fc.Resources.PidsMax,
			MaxFileDescriptors: fc.Resources.OpenFilesMax,
			LockMemory:         fc.Resources.LockMemory,
			LockMemoryRequired: fc.Resources.LockMemoryRequired,
		},
		Restart: core.RestartPolicy{
			Kind:       restartKind,
			MaxRetries: fc.Restart.MaxRetries,
		},
		ShutdownTimeout: shutdownTimeout,
		HealthCheck: core.HealthCheckConfig{
			Interval:   interval,
			Timeout:    timeout,
			RetryCount: fc.HealthCheck.RetryCount,
		},
		Platform: fc.Platform,
	}, nil
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

func parseRestartKind(policy string) (core.RestartPolicyKind, error) {
	switch policy {
	case "", "never":
		return core.RestartNever, nil
	case "always":
		return core.RestartAlways, nil
	case "on-failure":
		return core.RestartOnFailure, nil
	case "unless-stopped":
		return core.RestartUnlessStopped, nil
	default:
		return 0, fmt.Errorf("restart.policy: unrecognized value %q", policy)
	}
}
