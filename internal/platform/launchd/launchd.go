// Package launchd implements the PlatformAdapter backed by macOS
// launchd, generalizing the teacher's fixed single-plist manager
// (internal/infra/launchd.go) into a per-daemon plist keyed by name.
package launchd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"

	"github.com/paiml/duende/internal/core"
	"github.com/paiml/duende/internal/platform"
)

// Mode selects whether daemons are installed as per-user LaunchAgents
// or system-wide LaunchDaemons, mirroring the teacher's
// ExecModeUser/ExecModeSystem split.
type Mode int

const (
	ModeUser Mode = iota
	ModeSystem
)

const agentTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>{{.Label}}</string>

    <key>ProgramArguments</key>
    <array>
        <string>{{.ExecutablePath}}</string>
        {{range .Args}}<string>{{.}}</string>
        {{end}}
    </array>

    {{if .WorkingDir}}<key>WorkingDirectory</key>
    <string>{{.WorkingDir}}</string>{{end}}

    {{if .EnvVars}}<key>EnvironmentVariables</key>
    <dict>
        {{range $k, $v := .EnvVars}}<key>{{$k}}</key>
        <string>{{$v}}</string>
        {{end}}
    </dict>{{end}}

    <key>RunAtLoad</key>
    <true/>

    <key>KeepAlive</key>
    <dict>
        <key>Crashed</key>
        <true/>
    </dict>

    <key>StandardOutPath</key>
    <string>{{.LogPath}}</string>

    <key>StandardErrorPath</key>
    <string>{{.ErrorLogPath}}</string>

    <key>ProcessType</key>
    <string>Background</string>

    <key>ThrottleInterval</key>
    <integer>10</integer>
</dict>
</plist>`

const daemonTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>{{.Label}}</string>

    <key>ProgramArguments</key>
    <array>
        <string>{{.ExecutablePath}}</string>
        {{range .Args}}<string>{{.}}</string>
        {{end}}
    </array>

    {{if .WorkingDir}}<key>WorkingDirectory</key>
    <string>{{.WorkingDir}}</string>{{end}}

    {{if .EnvVars}}<key>EnvironmentVariables</key>
    <dict>
        {{range $k, $v := .EnvVars}}<key>{{$k}}</key>
        <string>{{$v}}</string>
        {{end}}
    </dict>{{end}}

    <key>RunAtLoad</key>
    <true/>

    <key>KeepAlive</key>
    <true/>

    <key>StandardOutPath</key>
    <string>{{.LogPath}}</string>

    <key>StandardErrorPath</key>
    <string>{{.ErrorLogPath}}</string>

    <key>ThrottleInterval</key>
    <integer>10</integer>
</dict>
</plist>`

type plistConfig struct {
	Label          string
	ExecutablePath string
	Args           []string
	WorkingDir     string
	EnvVars        map[string]string
	LogPath        string
	ErrorLogPath   string
}

// Adapter installs and drives per-daemon launchd jobs.
type Adapter struct {
	Mode   Mode
	LogDir string // defaults to /var/tmp, matching the teacher
}

// New constructs a launchd adapter for the given mode.
func New(mode Mode) *Adapter {
	return &Adapter{Mode: mode, LogDir: "/var/tmp"}
}

// Detect picks ModeSystem when running as root, ModeUser otherwise,
// exactly the teacher's DetectExecMode euid check.
func Detect() Mode {
	if os.Geteuid() == 0 {
		return ModeSystem
	}
	return ModeUser
}

func (a *Adapter) Name() string { return "launchd" }

func label(daemonName string) string {
	return "com.duende." + daemonName
}

func (a *Adapter) plistDirectory() (string, error) {
	if a.Mode == ModeSystem {
		return "/Library/LaunchDaemons", nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "Library", "LaunchAgents"), nil
}

func (a *Adapter) plistPath(daemonName string) (string, error) {
	dir, err := a.plistDirectory()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, label(daemonName)+".plist"), nil
}

func (a *Adapter) generatePlist(cfg *core.DaemonConfig) ([]byte, error) {
	tmplStr := agentTemplate
	if a.Mode == ModeSystem {
		tmplStr = daemonTemplate
	}

	logDir := a.LogDir
	if logDir == "" {
		logDir = "/var/tmp"
	}

	pc := plistConfig{
		Label:          label(cfg.Name),
		ExecutablePath: cfg.BinaryPath,
		Args:           cfg.Args,
		WorkingDir:     cfg.WorkingDir,
		EnvVars:        cfg.Env,
		LogPath:        filepath.Join(logDir, cfg.Name+".log"),
		ErrorLogPath:   filepath.Join(logDir, cfg.Name+".error.log"),
	}

	tmpl, err := template.New("plist").Parse(tmplStr)
	if err != nil {
		return nil, fmt.Errorf("parse plist template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, pc); err != nil {
		return nil, fmt.Errorf("execute plist template: %w", err)
	}
	return buf.Bytes(), nil
}

// Spawn writes the per-daemon plist and loads it via launchctl.
func (a *Adapter) Spawn(ctx context.Context, cfg *core.DaemonConfig) (core.DaemonHandle, error) {
	dir, err := a.plistDirectory()
	if err != nil {
		return core.DaemonHandle{}, core.NewError(core.KindSpawn, cfg.Name, core.DaemonID{}, "plist_dir", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return core.DaemonHandle{}, core.NewError(core.KindSpawn, cfg.Name, core.DaemonID{}, "plist_dir", err)
	}

	content, err := a.generatePlist(cfg)
	if err != nil {
		return core.DaemonHandle{}, core.NewError(core.KindSpawn, cfg.Name, core.DaemonID{}, "plist", err)
	}

	path, err := a.plistPath(cfg.Name)
	if err != nil {
		return core.DaemonHandle{}, core.NewError(core.KindSpawn, cfg.Name, core.DaemonID{}, "plist_path", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return core.DaemonHandle{}, core.NewError(core.KindSpawn, cfg.Name, core.DaemonID{}, path, err)
	}

	if err := exec.CommandContext(ctx, "launchctl", "load", path).Run(); err != nil {
		return core.DaemonHandle{}, core.NewError(core.KindSpawn, cfg.Name, core.DaemonID{}, "launchctl load", err)
	}

	return core.NewLaunchdHandle(label(cfg.Name)), nil
}

// Signal translates a logical signal into the closest launchctl
// equivalent: Term and Kill unload the job (launchd has no supervised
// restart-on-signal concept once unloaded), everything else is
// forwarded with `launchctl kill`.
func (a *Adapter) Signal(ctx context.Context, handle core.DaemonHandle, sig core.Signal) error {
	l, ok := handle.Label()
	if !ok {
		return core.NewError(core.KindSignal, "", core.DaemonID{}, "handle", fmt.Errorf("not a launchd handle"))
	}

	if sig == core.SigTerm || sig == core.SigKill {
		path, err := a.plistPath(strings.TrimPrefix(l, "com.duende."))
		if err != nil {
			return core.NewError(core.KindSignal, "", core.DaemonID{}, l, err)
		}
		return exec.CommandContext(ctx, "launchctl", "unload", path).Run()
	}

	target, err := a.domainTarget(l)
	if err != nil {
		return core.NewError(core.KindSignal, "", core.DaemonID{}, l, err)
	}
	return exec.CommandContext(ctx, "launchctl", "kill", strconv.Itoa(int(sig)), target).Run()
}

func (a *Adapter) domainTarget(l string) (string, error) {
	if a.Mode == ModeSystem {
		return "system/" + l, nil
	}
	u, err := user.Current()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("gui/%s/%s", u.Uid, l), nil
}

// Status runs `launchctl list <label>` and inspects its exit status
// and PID column: a present numeric PID means Running, a "-" with a
// zero exit code means Stopped (loaded but not running), and a
// nonzero exit code means the job is not loaded at all.
func (a *Adapter) Status(ctx context.Context, handle core.DaemonHandle) (core.DaemonStatus, error) {
	l, ok := handle.Label()
	if !ok {
		return core.StatusFailed, core.NewError(core.KindStatus, "", core.DaemonID{}, "handle", fmt.Errorf("not a launchd handle"))
	}

	out, err := exec.CommandContext(ctx, "launchctl", "list", l).Output()
	if err != nil {
		return core.StatusStopped, nil
	}

	fields := strings.Fields(strings.SplitN(string(out), "\n", 2)[0])
	if len(fields) > 0 && fields[0] != "PID" {
		if _, err := strconv.Atoi(fields[0]); err == nil {
			return core.StatusRunning, nil
		}
	}
	return core.StatusStopped, nil
}

// Reap unloads and removes the plist file.
func (a *Adapter) Reap(ctx context.Context, handle core.DaemonHandle) error {
	l, ok := handle.Label()
	if !ok {
		return core.NewError(core.KindInternal, "", core.DaemonID{}, "handle", fmt.Errorf("not a launchd handle"))
	}

	path, err := a.plistPath(strings.TrimPrefix(l, "com.duende."))
	if err != nil {
		return core.NewError(core.KindInternal, "", core.DaemonID{}, l, err)
	}

	_ = exec.CommandContext(ctx, "launchctl", "unload", path).Run()
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return core.NewError(core.KindInternal, "", core.DaemonID{}, path, err)
	}
	return nil
}

var _ platform.Adapter = (*Adapter)(nil)
