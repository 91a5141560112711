package daemon

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"
)

// Process records a running server in its pid file.
type Process struct {
	PID       int       `json:"pid"`
	Addr      string    `json:"addr"`
	StartedAt time.Time `json:"started_at"`
	Config    string    `json:"config,omitempty"`
}

// Alive reports whether the recorded process still exists.
func (p Process) Alive() bool {
	proc, err := os.FindProcess(p.PID)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}

// Terminate sends SIGTERM and waits up to timeout for the process to exit.
func (p Process) Terminate(timeout time.Duration) error {
	proc, err := os.FindProcess(p.PID)
	if err != nil {
		return fmt.Errorf("find server process: %w", err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("signal server process: %w", err)
	}
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if !p.Alive() {
			return nil
		}
		time.Sleep(150 * time.Millisecond)
	}
	return fmt.Errorf("server (pid %d) did not exit in time", p.PID)
}

// WritePIDFile records p at path.
func WritePIDFile(path string, p Process) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}

// ReadPIDFile loads the process recorded at path. A missing file yields an
// error matching os.ErrNotExist.
func ReadPIDFile(path string) (Process, error) {
	var p Process
	//nolint:gosec // pid path is configured by the local user
	data, err := os.ReadFile(path)
	if err != nil {
		return p, err
	}
	if err := json.Unmarshal(data, &p); err != nil || p.PID <= 0 {
		return Process{}, fmt.Errorf("invalid pid file %s", path)
	}
	return p, nil
}

// ClaimPIDFile fails if path records a live server and clears a stale one.
func ClaimPIDFile(path string) error {
	p, err := ReadPIDFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil
	case err == nil && p.Alive():
		return fmt.Errorf("server already running (pid %d)", p.PID)
	}
	_ = os.Remove(path)
	return nil
}
