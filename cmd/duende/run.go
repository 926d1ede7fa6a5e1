package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/paiml/duende/internal/config"
	"github.com/paiml/duende/internal/core"
	"github.com/paiml/duende/internal/logging"
	"github.com/paiml/duende/internal/manager"
	"github.com/paiml/duende/internal/metrics"
	"github.com/paiml/duende/internal/mlock"
	"github.com/paiml/duende/internal/platform"
	"github.com/paiml/duende/internal/platform/registry"
	"github.com/paiml/duende/internal/policy"
)

const (
	exitGraceful          = 0
	exitConfigurationFail = 1
	exitCapabilityFail    = 2
	exitSupervisionFail   = 3
)

// syncInterval is how often metrics are pulled from every daemon's
// DaemonMetrics block and resource limits are (re)applied to native pids.
const syncInterval = 5 * time.Second

// shutdownTimeout bounds how long ShutdownAll waits for every daemon to
// stop once a terminating signal arrives.
const shutdownTimeout = 30 * time.Second

var (
	configDir        string
	metricsAddr      string
	nativeLockDir    string
	defaultConfigDir = "/etc/duende/daemons.d"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the supervisor in the foreground",
	Long: `Loads every daemon config under --config, detects the host platform,
selects the matching backend, and supervises each daemon until a
terminating signal arrives.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&configDir, "config", defaultConfigDir, "directory of per-daemon TOML config files")
	runCmd.Flags().StringVar(&pidFilePath, "pidfile", defaultPIDFilePath, "where to record this process's pid")
	runCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "127.0.0.1:9090", "address to serve Prometheus metrics on")
	runCmd.Flags().StringVar(&nativeLockDir, "native-lock-dir", "/var/run/duende", "flock directory for the native backend's single-instance guarantee")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	logger := logging.New(logging.Options{OutputPaths: []string{"stdout"}})
	defer func() { _ = logger.Sync() }()

	configs, err := config.LoadDir(configDir)
	if err != nil {
		logger.Error("failed to load daemon configs", zap.Error(err))
		os.Exit(exitConfigurationFail)
	}
	if len(configs) == 0 {
		logger.Warn("no daemon configs found", zap.String("config_dir", configDir))
	}

	detected := platform.Detect()
	adapter, err := registry.Select(detected, registry.Options{NativeLockDir: nativeLockDir})
	if err != nil {
		logger.Error("failed to select platform adapter", zap.Error(err), zap.String("platform", detected.String()))
		os.Exit(exitConfigurationFail)
	}
	logger.Info("selected platform adapter", zap.String("platform", detected.String()), zap.String("adapter", adapter.Name()))

	mgr := manager.New(adapter, logger)
	collector := metrics.NewCollector("duende")
	limiter := policy.NewResourceLimiter()

	daemons := make([]*manager.ProcessDaemon, 0, len(configs))
	for _, cfg := range configs {
		pd := manager.NewProcessDaemon(cfg.Name, adapter)
		if err := mgr.Register(pd, cfg); err != nil {
			logger.Error("failed to register daemon", zap.String("name", cfg.Name), zap.Error(err))
			os.Exit(exitConfigurationFail)
		}
		daemons = append(daemons, pd)

		if cfg.Resources.LockMemory {
			opts := mlock.Options{Current: true, Future: true, Required: cfg.Resources.LockMemoryRequired}
			if lockErr := mlock.Lock(opts); lockErr != nil {
				logger.Warn("mlock failed", zap.String("name", cfg.Name), zap.Error(lockErr))
				if cfg.Resources.LockMemoryRequired {
					os.Exit(exitCapabilityFail)
				}
			}
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for _, pd := range daemons {
		if err := mgr.Start(ctx, pd.ID()); err != nil {
			logger.Error("failed to start daemon", zap.String("name", pd.Name()), zap.Error(err))
		}
	}

	if err := writePIDFile(pidFilePath); err != nil {
		logger.Warn("failed to write pidfile", zap.Error(err))
	}
	defer os.Remove(pidFilePath)

	go serveMetrics(logger, collector)
	go syncLoop(ctx, mgr, daemons, configs, collector, limiter, logger)

	waitForShutdown(ctx, cancel, mgr, logger)

	if allDaemonsFailed(mgr.List()) {
		os.Exit(exitSupervisionFail)
	}
	return nil
}

func serveMetrics(logger *zap.Logger, collector *metrics.Collector) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(collector.Registry(), promhttp.HandlerOpts{}))
	if err := http.ListenAndServe(metricsAddr, mux); err != nil {
		logger.Warn("metrics server stopped", zap.Error(err))
	}
}

// syncLoop periodically pulls each daemon's metrics into the Prometheus
// collector and, for daemons running under the native backend, applies
// resource limits to the live pid via the platform ResourceLimiter.
func syncLoop(ctx context.Context, mgr *manager.Manager, daemons []*manager.ProcessDaemon, configs []*core.DaemonConfig, collector *metrics.Collector, limiter policy.ResourceLimiter, logger *zap.Logger) {
	ticker := time.NewTicker(syncInterval)
	defer ticker.Stop()

	cfgByName := make(map[string]*core.DaemonConfig, len(configs))
	for _, cfg := range configs {
		cfgByName[cfg.Name] = cfg
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, d := range daemons {
				collector.Sync(d.Name(), d.Metrics())

				handle, ok := d.Handle()
				if !ok {
					continue
				}
				pid, ok := handle.PID()
				if !ok {
					continue
				}
				cfg := cfgByName[d.Name()]
				if cfg == nil {
					continue
				}
				limits := policy.Limits{
					MemoryBytes:  cfg.Resources.MemoryBytes,
					MaxPIDs:      cfg.Resources.MaxChildProcesses,
					MaxOpenFiles: cfg.Resources.MaxFileDescriptors,
				}
				if unsupported, err := limiter.Apply(pid, limits); err != nil {
					logger.Warn("resource limit apply failed", zap.String("name", d.Name()), zap.Error(err))
				} else if len(unsupported) > 0 {
					logger.Debug("resource limits unsupported on this platform", zap.String("name", d.Name()), zap.Strings("unsupported", unsupported))
				}
			}
		}
	}
}

// waitForShutdown blocks until a terminating signal arrives, relaying
// Hup/Usr1/Usr2/Cont to every daemon's context and treating Term/Int/Quit
// as the start of a coordinated ShutdownAll.
func waitForShutdown(ctx context.Context, cancel context.CancelFunc, mgr *manager.Manager, logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM, syscall.SIGUSR1, syscall.SIGUSR2, syscall.SIGCONT)
	defer signal.Stop(sigCh)

	for sig := range sigCh {
		logical, ok := mapOSSignal(sig)
		if !ok {
			continue
		}
		if logical.IsShutdownSignal() {
			logger.Info("received shutdown signal", zap.String("signal", logical.Name()))
			cancel()
			mgr.ShutdownAll(shutdownTimeout)
			return
		}
		logger.Info("relaying signal to all daemons", zap.String("signal", logical.Name()))
		for _, snap := range mgr.List() {
			_ = mgr.Signal(ctx, snap.ID, logical)
		}
	}
}

// allDaemonsFailed reports whether the supervision loop ended with
// every registered daemon in Failed state, per the exit code 3
// contract: a single failed daemon among otherwise-graceful ones must
// not fail the whole process.
func allDaemonsFailed(snaps []manager.Snapshot) bool {
	if len(snaps) == 0 {
		return false
	}
	for _, snap := range snaps {
		if snap.Status != core.StatusFailed {
			return false
		}
	}
	return true
}

func mapOSSignal(sig os.Signal) (core.Signal, bool) {
	switch sig {
	case syscall.SIGHUP:
		return core.SigHup, true
	case syscall.SIGINT:
		return core.SigInt, true
	case syscall.SIGQUIT:
		return core.SigQuit, true
	case syscall.SIGTERM:
		return core.SigTerm, true
	case syscall.SIGUSR1:
		return core.SigUsr1, true
	case syscall.SIGUSR2:
		return core.SigUsr2, true
	case syscall.SIGCONT:
		return core.SigCont, true
	default:
		return 0, false
	}
}
