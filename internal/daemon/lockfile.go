// Package daemon tracks the running survey server. The serve command writes
// a lockfile recording its pid and listen port so a second `crsurvey serve`
// can refuse to start and operators can see where the server listens.
package daemon

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Lockfile is the on-disk record of a running serve process. The file holds
// a single line: "<pid> <port>".
type Lockfile struct {
	Path string
}

// NewLockfile creates a Lockfile manager for the given path.
func NewLockfile(path string) *Lockfile {
	return &Lockfile{Path: path}
}

// Acquire records the current process and its listen port.
func (l *Lockfile) Acquire(port int) error {
	line := fmt.Sprintf("%d %d\n", os.Getpid(), port)
	return os.WriteFile(l.Path, []byte(line), 0o644)
}

// Read returns the recorded pid and port.
func (l *Lockfile) Read() (pid, port int, err error) {
	data, err := os.ReadFile(l.Path)
	if err != nil {
		return 0, 0, err
	}
	fields := strings.Fields(string(data))
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("invalid lockfile content: %q", strings.TrimSpace(string(data)))
	}
	pid, err = strconv.Atoi(fields[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid lockfile pid: %w", err)
	}
	port, err = strconv.Atoi(fields[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid lockfile port: %w", err)
	}
	return pid, port, nil
}

// Release deletes the lockfile.
func (l *Lockfile) Release() error {
	return os.Remove(l.Path)
}

// LiveServer reports whether the recorded process is still alive. A lockfile
// left behind by a crashed or killed server is removed so the next serve
// starts cleanly.
func (l *Lockfile) LiveServer() (pid, port int, ok bool) {
	pid, port, err := l.Read()
	if err != nil {
		if !os.IsNotExist(err) {
			_ = l.Release()
		}
		return 0, 0, false
	}
	if !processAlive(pid) {
		_ = l.Release()
		return 0, 0, false
	}
	return pid, port, true
}
