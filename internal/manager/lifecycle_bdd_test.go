package manager_test

import (
	"context"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/paiml/duende/internal/core"
	"github.com/paiml/duende/internal/manager"
)

// scriptedDaemon is a core.Daemon whose Run behavior is driven entirely
// by test code: it exits with exitKind the first N times, then runs
// until signaled, so specs can exercise restart-policy transitions
// without racing real process lifetimes.
type scriptedDaemon struct {
	id   core.DaemonID
	name string

	failCount int32 // number of Run calls that should exit with exitKind before succeeding
	exitKind  core.ExitReasonKind

	runs    atomic.Int32
	signals atomic.Int32
	metrics *core.DaemonMetrics
}

func newScriptedDaemon(name string) *scriptedDaemon {
	return &scriptedDaemon{
		id:      core.NewDaemonID(),
		name:    name,
		metrics: core.NewDaemonMetrics(),
	}
}

func (d *scriptedDaemon) ID() core.DaemonID { return d.id }
func (d *scriptedDaemon) Name() string      { return d.name }

func (d *scriptedDaemon) Init(ctx context.Context, cfg *core.DaemonConfig) error { return nil }

func (d *scriptedDaemon) Run(ctx context.Context, dctx *core.DaemonContext) core.ExitReason {
	n := d.runs.Add(1)
	if n <= d.failCount {
		return core.ExitReason{Kind: d.exitKind, FailedAt: time.Now()}
	}
	for {
		select {
		case sig, ok := <-dctx.Signals():
			if !ok {
				return core.ExitReason{Kind: core.ExitGraceful}
			}
			d.signals.Add(1)
			if sig.IsShutdownSignal() {
				return core.ExitReason{Kind: core.ExitGraceful}
			}
		case <-ctx.Done():
			return core.ExitReason{Kind: core.ExitGraceful}
		}
	}
}

func (d *scriptedDaemon) Shutdown(ctx context.Context) error { return nil }

func (d *scriptedDaemon) HealthCheck() core.HealthStatus { return core.Healthy(5, 0) }

func (d *scriptedDaemon) Metrics() *core.DaemonMetrics { return d.metrics }

func lifecycleConfig(name string, restart core.RestartPolicy) *core.DaemonConfig {
	return &core.DaemonConfig{
		Name:            name,
		BinaryPath:      "/bin/true",
		ShutdownTimeout: time.Second,
		Restart:         restart,
	}
}

var _ = Describe("Manager lifecycle", func() {
	var mgr *manager.Manager

	BeforeEach(func() {
		mgr = manager.New(nil, nil)
	})

	Describe("registering and starting a daemon", func() {
		It("runs to completion and reaches Stopped on a graceful exit", func() {
			d := newScriptedDaemon("worker")
			Expect(mgr.Register(d, lifecycleConfig("worker", core.RestartPolicy{Kind: core.RestartNever}))).To(Succeed())

			Expect(mgr.Start(context.Background(), d.ID())).To(Succeed())

			Eventually(func() core.DaemonStatus {
				snap, err := mgr.Status(d.ID())
				Expect(err).NotTo(HaveOccurred())
				return snap.Status
			}, time.Second, 10*time.Millisecond).Should(Equal(core.StatusRunning))

			Expect(mgr.Signal(context.Background(), d.ID(), core.SigTerm)).To(Succeed())

			Eventually(func() core.DaemonStatus {
				snap, err := mgr.Status(d.ID())
				Expect(err).NotTo(HaveOccurred())
				return snap.Status
			}, 2*time.Second, 10*time.Millisecond).Should(Equal(core.StatusStopped))
		})
	})

	Describe("a daemon configured with RestartAlways", func() {
		It("is relaunched after every exit, including failures", func() {
			d := newScriptedDaemon("flaky")
			d.failCount = 2
			d.exitKind = core.ExitError
			Expect(mgr.Register(d, lifecycleConfig("flaky", core.RestartPolicy{Kind: core.RestartAlways}))).To(Succeed())

			Expect(mgr.Start(context.Background(), d.ID())).To(Succeed())

			Eventually(func() int32 {
				return d.runs.Load()
			}, 3*time.Second, 10*time.Millisecond).Should(BeNumerically(">=", 3))

			Expect(mgr.Stop(d.ID(), 2*time.Second)).To(Succeed())
		})
	})

	Describe("a daemon configured with RestartNever", func() {
		It("reaches Failed and is not relaunched after an error exit", func() {
			d := newScriptedDaemon("onceonly")
			d.failCount = 1
			d.exitKind = core.ExitError
			Expect(mgr.Register(d, lifecycleConfig("onceonly", core.RestartPolicy{Kind: core.RestartNever}))).To(Succeed())

			Expect(mgr.Start(context.Background(), d.ID())).To(Succeed())

			Eventually(func() core.DaemonStatus {
				snap, err := mgr.Status(d.ID())
				Expect(err).NotTo(HaveOccurred())
				return snap.Status
			}, 2*time.Second, 10*time.Millisecond).Should(Equal(core.StatusFailed))

			Consistently(func() int32 {
				return d.runs.Load()
			}, 200*time.Millisecond, 20*time.Millisecond).Should(Equal(int32(1)))
		})
	})

	Describe("signal relay", func() {
		It("delivers a non-shutdown signal through the daemon's context without stopping it", func() {
			d := newScriptedDaemon("signaled")
			Expect(mgr.Register(d, lifecycleConfig("signaled", core.RestartPolicy{Kind: core.RestartNever}))).To(Succeed())
			Expect(mgr.Start(context.Background(), d.ID())).To(Succeed())

			Eventually(func() core.DaemonStatus {
				snap, err := mgr.Status(d.ID())
				Expect(err).NotTo(HaveOccurred())
				return snap.Status
			}, time.Second, 10*time.Millisecond).Should(Equal(core.StatusRunning))

			Expect(mgr.Signal(context.Background(), d.ID(), core.SigHup)).To(Succeed())

			Eventually(func() int32 {
				return d.signals.Load()
			}, time.Second, 10*time.Millisecond).Should(BeNumerically(">=", 1))

			snap, err := mgr.Status(d.ID())
			Expect(err).NotTo(HaveOccurred())
			Expect(snap.Status).To(Equal(core.StatusRunning))

			Expect(mgr.Stop(d.ID(), 2*time.Second)).To(Succeed())
		})
	})

	Describe("ShutdownAll", func() {
		It("drives every registered daemon to a terminal state within the timeout", func() {
			a := newScriptedDaemon("alpha")
			b := newScriptedDaemon("beta")
			Expect(mgr.Register(a, lifecycleConfig("alpha", core.RestartPolicy{Kind: core.RestartNever}))).To(Succeed())
			Expect(mgr.Register(b, lifecycleConfig("beta", core.RestartPolicy{Kind: core.RestartNever}))).To(Succeed())

			Expect(mgr.Start(context.Background(), a.ID())).To(Succeed())
			Expect(mgr.Start(context.Background(), b.ID())).To(Succeed())

			mgr.ShutdownAll(2 * time.Second)

			for _, snap := range mgr.List() {
				Expect(snap.Status.IsTerminal()).To(BeTrue())
			}
		})
	})
})
