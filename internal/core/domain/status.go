package domain

import "time"

// =============================================================================
// Container Status
// =============================================================================

// ContainerStatus is the live state of one container as reported by the
// runtime. It is read fresh for every command and never cached.
type ContainerStatus struct {
	Name      string
	ID        string
	PID       int
	IP        string
	Running   bool
	StartedAt *time.Time
	ExitCode  *int
	Error     string
}

// Placeholder is the status used for a container that does not exist.
func Placeholder(name string) ContainerStatus {
	return ContainerStatus{Name: name}
}

// ShortID returns the first 12 characters of the container ID.
func (s ContainerStatus) ShortID() string {
	if len(s.ID) > 12 {
		return s.ID[:12]
	}
	return s.ID
}

// =============================================================================
// State Map
// =============================================================================

// StateMap maps container names to their status. A missing key means the
// container has not been created.
type StateMap map[string]ContainerStatus

// Has reports whether name exists in the runtime.
func (m StateMap) Has(name string) bool {
	_, ok := m[name]
	return ok
}

// Running reports whether name exists and is running.
func (m StateMap) Running(name string) bool {
	s, ok := m[name]
	return ok && s.Running
}

// StatusOf returns the status of name, or a placeholder when absent.
func (m StateMap) StatusOf(name string) ContainerStatus {
	if s, ok := m[name]; ok {
		return s
	}
	return Placeholder(name)
}
