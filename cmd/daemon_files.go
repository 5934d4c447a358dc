package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

type daemonRuntimeState struct {
	PID       int       `json:"pid"`
	Addr      string    `json:"addr"`
	StartedAt time.Time `json:"started_at"`
	Source    string    `json:"source"`
}

// daemonFiles locates the PID file and the JSON state file written beside it.
type daemonFiles struct {
	pid string
}

func (f daemonFiles) statePath() string {
	return f.pid + ".json"
}

// running reads the PID file. err is non-nil when there is no usable PID.
func (f daemonFiles) running() (pid int, alive bool, err error) {
	//nolint:gosec // daemon pid path is configured by the local user
	data, err := os.ReadFile(f.pid)
	if err != nil {
		return 0, false, err
	}
	pid, err = strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false, fmt.Errorf("invalid pid in %s", f.pid)
	}
	return pid, processAlive(pid), nil
}

// ensureStopped fails if a live daemon owns the PID file and removes stale files.
func (f daemonFiles) ensureStopped() error {
	pid, alive, err := f.running()
	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil
	case err != nil:
		return err
	case alive:
		return fmt.Errorf("daemon already running (pid %d)", pid)
	}
	f.clear()
	return nil
}

// claim writes the PID and state files. The returned func removes them.
func (f daemonFiles) claim(st daemonRuntimeState) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(f.pid), 0o750); err != nil {
		return nil, fmt.Errorf("create daemon directory: %w", err)
	}
	if err := os.WriteFile(f.pid, []byte(strconv.Itoa(st.PID)+"\n"), 0o600); err != nil {
		return nil, fmt.Errorf("write pid file: %w", err)
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err == nil {
		err = os.WriteFile(f.statePath(), append(data, '\n'), 0o600)
	}
	if err != nil {
		f.clear()
		return nil, fmt.Errorf("write daemon state: %w", err)
	}
	return f.clear, nil
}

func (f daemonFiles) readState() (daemonRuntimeState, error) {
	var st daemonRuntimeState
	//nolint:gosec // daemon state path is configured by the local user
	data, err := os.ReadFile(f.statePath())
	if err != nil {
		return st, err
	}
	err = json.Unmarshal(data, &st)
	return st, err
}

func (f daemonFiles) clear() {
	_ = os.Remove(f.pid)
	_ = os.Remove(f.statePath())
}

func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}
