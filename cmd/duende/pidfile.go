package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/process"
)

// writePIDFile records the current process id so a later `duende status`
// or `duende signal` invocation can find the running supervisor.
func writePIDFile(path string) error {
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0644)
}

// readPIDFile returns the pid recorded by writePIDFile, or an error if
// no supervisor has been started against this path.
func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read pidfile %s: %w", path, err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parse pidfile %s: %w", path, err)
	}
	return pid, nil
}

// pidIsAlive reports whether a process with the given pid is currently
// running, using the same gopsutil surface internal/observe samples
// with, rather than a raw signal-0 probe.
func pidIsAlive(pid int) bool {
	exists, err := process.PidExists(int32(pid))
	return err == nil && exists
}
