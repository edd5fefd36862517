// Package docker provides a Docker client for container lifecycle management.
package docker

import (
	"context"
	"time"
)

// =============================================================================
// Container Types
// =============================================================================

// ContainerSpec defines the specification for creating a container.
type ContainerSpec struct {
	Name          string
	Image         string
	Command       []string
	Entrypoint    []string
	Env           map[string]string
	Labels        map[string]string
	Ports         []string // "[ip:]host:container[/proto]" or "container[/proto]"
	Binds         []string // "src:dst[:opts]", src already absolute for host paths
	Links         []string // "name:alias"
	Hostname      string
	WorkingDir    string
	User          string
	NetworkMode   string
	RestartPolicy string // "no", "always", "on-failure", "unless-stopped"
	Privileged    bool
}

// =============================================================================
// Container Info
// =============================================================================

// ContainerInfo contains information about a container.
type ContainerInfo struct {
	ID         string
	Name       string
	Image      string
	State      string // "running", "exited", "created", etc.
	Running    bool
	PID        int
	IP         string
	CreatedAt  time.Time
	StartedAt  *time.Time
	FinishedAt *time.Time
	Labels     map[string]string
	ExitCode   int
	Error      string
}

// =============================================================================
// Options
// =============================================================================

// ListOptions defines options for listing containers.
type ListOptions struct {
	All     bool              // Include stopped containers
	Filters map[string]string // e.g., {"label": "com.dockwrkr.managed=true"}
}

// =============================================================================
// Client Interface
// =============================================================================

// Client defines the Docker client interface.
type Client interface {
	// Container operations
	CreateContainer(ctx context.Context, spec ContainerSpec) (containerID string, err error)
	StartContainer(ctx context.Context, containerID string) error
	StopContainer(ctx context.Context, containerID string, timeout *time.Duration) error
	RemoveContainer(ctx context.Context, containerID string) error
	InspectContainer(ctx context.Context, containerID string) (*ContainerInfo, error)
	ListContainers(ctx context.Context, opts ListOptions) ([]ContainerInfo, error)

	// Image operations
	PullImage(ctx context.Context, image string) error

	// Health operations
	Ping(ctx context.Context) error
	Close() error
}

// =============================================================================
// Label Constants
// =============================================================================

const (
	LabelManaged = "com.dockwrkr.managed"
	LabelConfig  = "com.dockwrkr.config"
	LabelName    = "com.dockwrkr.name"
)
