// Package pidfile maintains one <name>.pid file per started container so
// external supervisors can track container processes.
package pidfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/moby/sys/atomicwriter"
)

// Dir is a directory of pid files. A nil *Dir or an empty path disables
// every operation.
type Dir struct {
	path string
}

// New returns a Dir rooted at path. An empty path returns nil.
func New(path string) *Dir {
	if path == "" {
		return nil
	}
	return &Dir{path: path}
}

// Enabled reports whether pid files are written.
func (d *Dir) Enabled() bool {
	return d != nil && d.path != ""
}

// Path returns the pid file location for a container.
func (d *Dir) Path(name string) string {
	return filepath.Join(d.path, name+".pid")
}

// Write records pid for name, replacing any previous file atomically.
func (d *Dir) Write(name string, pid int) error {
	if !d.Enabled() {
		return nil
	}
	if pid <= 0 {
		return fmt.Errorf("pidfile: invalid pid %d for '%s'", pid, name)
	}
	if err := os.MkdirAll(d.path, 0o755); err != nil {
		return fmt.Errorf("pidfile: failed to create directory: %w", err)
	}
	if err := atomicwriter.WriteFile(d.Path(name), []byte(strconv.Itoa(pid)+"\n"), 0o644); err != nil {
		return fmt.Errorf("pidfile: failed to write '%s': %w", name, err)
	}
	return nil
}

// Remove deletes the pid file for name. A missing file is not an error.
func (d *Dir) Remove(name string) error {
	if !d.Enabled() {
		return nil
	}
	if err := os.Remove(d.Path(name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("pidfile: failed to remove '%s': %w", name, err)
	}
	return nil
}
