package core

import "time"

// RestartPolicyKind selects how the manager reacts to a daemon exiting.
type RestartPolicyKind int

const (
	RestartNever RestartPolicyKind = iota
	RestartAlways
	RestartOnFailure
	RestartUnlessStopped
)

func (k RestartPolicyKind) String() string {
	switch k {
	case RestartNever:
		return "never"
	case RestartAlways:
		return "always"
	case RestartOnFailure:
		return "on-failure"
	case RestartUnlessStopped:
		return "unless-stopped"
	default:
		return "unknown"
	}
}

// RestartPolicy governs whether an exited daemon is restarted.
// MaxRetries is only meaningful when Kind == RestartOnFailure.
type RestartPolicy struct {
	Kind       RestartPolicyKind
	MaxRetries int
}

// HealthCheckConfig controls the cadence and tolerance of health checks.
type HealthCheckConfig struct {
	Interval   time.Duration
	Timeout    time.Duration
	RetryCount int
}

// ResourceConfig bounds what a daemon may consume. Fields left at zero
// value are treated as "no limit" by policy enforcement.
type ResourceConfig struct {
	MemoryBytes        uint64
	MemorySwapBytes    uint64
	CPUQuotaPercent    float64
	CPUShares          uint64
	IOReadBPS          uint64
	IOWriteBPS         uint64
	MaxChildProcesses  uint64
	MaxFileDescriptors uint64
	LockMemory         bool
	LockMemoryRequired bool
}

// DaemonConfig is the immutable configuration record bound to one
// daemon at registration time.
type DaemonConfig struct {
	// Identity
	Name        string
	Version     string
	Description string

	// Execution
	BinaryPath string
	Args       []string
	Env        map[string]string
	User       string
	Group      string
	WorkingDir string

	Resources     ResourceConfig
	Restart       RestartPolicy
	ShutdownTimeout time.Duration
	HealthCheck   HealthCheckConfig

	// Platform holds backend-specific options as one flat map whose keys
	// carry the backend's prefix (e.g. "container_image",
	// "wos_priority"); options are not nested under a per-backend table.
	// Adapters ignore keys that are not theirs.
	Platform map[string]any
}

// Validate performs the load-time checks a configuration must pass
// before it can be bound to a daemon. It does not know about specific
// backends; adapter-specific validation happens in the adapter itself.
func (c *DaemonConfig) Validate() error {
	if c.Name == "" {
		return NewError(KindConfiguration, "", DaemonID{}, "name", errEmptyField)
	}
	if c.BinaryPath == "" {
		return NewError(KindConfiguration, c.Name, DaemonID{}, "binary_path", errEmptyField)
	}
	if c.ShutdownTimeout < 0 {
		return NewError(KindConfiguration, c.Name, DaemonID{}, "shutdown_timeout", errNegativeDuration)
	}
	seen := make(map[string]struct{}, len(c.Env))
	for k := range c.Env {
		if _, dup := seen[k]; dup {
			return NewError(KindConfiguration, c.Name, DaemonID{}, "env", errDuplicateKey)
		}
		seen[k] = struct{}{}
	}
	if c.Restart.Kind == RestartOnFailure && c.Restart.MaxRetries < 0 {
		return NewError(KindConfiguration, c.Name, DaemonID{}, "restart.max_retries", errNegativeValue)
	}
	return nil
}

var (
	errEmptyField       = simpleErr("field must not be empty")
	errNegativeDuration = simpleErr("duration must not be negative")
	errDuplicateKey     = simpleErr("duplicate key")
	errNegativeValue    = simpleErr("value must not be negative")
)

type simpleErr string

func (e simpleErr) Error() string { return string(e) }
