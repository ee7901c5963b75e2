package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

var errDaemonNotRunning = errors.New("spendburn daemon is not running")

// daemonRuntimeState is written next to the pid file so `daemon status` can
// find the API address and ledger of the running watcher.
type daemonRuntimeState struct {
	PID        int       `json:"pid"`
	Addr       string    `json:"addr"`
	StartedAt  time.Time `json:"started_at"`
	LedgerPath string    `json:"ledger_path"`
}

// daemonFiles is the pid file plus its JSON state sidecar.
type daemonFiles struct {
	pidPath string
}

func (f daemonFiles) statePath() string { return f.pidPath + ".json" }

func (f daemonFiles) clear() {
	_ = os.Remove(f.pidPath)
	_ = os.Remove(f.statePath())
}

// livePID returns the pid of a running watcher. A pid file whose process is
// gone is removed and reported as errDaemonNotRunning.
func (f daemonFiles) livePID() (int, error) {
	//nolint:gosec // pid path comes from the local user's flags
	data, err := os.ReadFile(f.pidPath)
	if errors.Is(err, os.ErrNotExist) {
		return 0, errDaemonNotRunning
	}
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("pid file %s is corrupt", f.pidPath)
	}
	if !processAlive(pid) {
		f.clear()
		return 0, errDaemonNotRunning
	}
	return pid, nil
}

// claim records st as the running watcher. It fails when another watcher
// already owns the pid file.
func (f daemonFiles) claim(st daemonRuntimeState) error {
	pid, err := f.livePID()
	switch {
	case err == nil:
		return fmt.Errorf("spendburn daemon already running (pid %d)", pid)
	case !errors.Is(err, errDaemonNotRunning):
		return err
	}

	if err := os.MkdirAll(filepath.Dir(f.pidPath), 0o750); err != nil {
		return fmt.Errorf("create daemon directory: %w", err)
	}
	if err := os.WriteFile(f.pidPath, []byte(strconv.Itoa(st.PID)+"\n"), 0o600); err != nil {
		return err
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(f.statePath(), append(data, '\n'), 0o600)
}

func (f daemonFiles) state() (daemonRuntimeState, error) {
	var st daemonRuntimeState
	//nolint:gosec // state path comes from the local user's flags
	data, err := os.ReadFile(f.statePath())
	if err != nil {
		return st, err
	}
	err = json.Unmarshal(data, &st)
	return st, err
}

func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}

// terminate sends SIGTERM and polls until pid exits or timeout passes.
func terminate(pid int, timeout time.Duration) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find daemon process: %w", err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("signal daemon process: %w", err)
	}
	for deadline := time.Now().Add(timeout); time.Now().Before(deadline); {
		if !processAlive(pid) {
			return nil
		}
		time.Sleep(150 * time.Millisecond)
	}
	return fmt.Errorf("spendburn daemon (pid %d) did not exit within %s", pid, timeout)
}

// spawnDetached re-runs the current command line without --detach, marked as
// the child, with output appended to logPath.
func spawnDetached(logPath string) (int, error) {
	exe, err := os.Executable()
	if err != nil {
		return 0, fmt.Errorf("resolve executable: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(logPath), 0o750); err != nil {
		return 0, fmt.Errorf("create daemon log directory: %w", err)
	}
	//nolint:gosec // log path comes from the local user's flags
	logf, err := os.OpenFile(logPath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return 0, fmt.Errorf("open daemon log file: %w", err)
	}
	defer func() { _ = logf.Close() }()

	args := append(withoutDetach(os.Args[1:]), "--child")
	child := exec.Command(exe, args...) //nolint:gosec // re-executes this binary with its own arguments
	child.Stdout = logf
	child.Stderr = logf
	child.Env = os.Environ()
	if err := child.Start(); err != nil {
		return 0, fmt.Errorf("start detached daemon: %w", err)
	}
	return child.Process.Pid, nil
}

func withoutDetach(args []string) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		if a == "--detach" || strings.HasPrefix(a, "--detach=") {
			continue
		}
		out = append(out, a)
	}
	return out
}
