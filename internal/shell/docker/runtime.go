package docker

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/artpar/dockwrkr/internal/core/domain"
)

// =============================================================================
// Runtime - Container Primitives Over Docker
// =============================================================================

// Runtime exposes the container primitives the orchestrator needs on top of
// a Docker Client. Containers are addressed by name.
type Runtime struct {
	docker Client
}

// NewRuntime wraps a Docker client.
func NewRuntime(docker Client) *Runtime {
	return &Runtime{docker: docker}
}

// CreateContainer creates name from its definition. Relative host paths in
// volumes resolve against basePath.
func (r *Runtime) CreateContainer(ctx context.Context, def domain.ContainerDefinition, basePath, configFile string) error {
	_, err := r.docker.CreateContainer(ctx, BuildContainerSpec(def, basePath, configFile))
	return err
}

// BuildContainerSpec converts a definition into a ContainerSpec carrying the
// managed labels.
func BuildContainerSpec(def domain.ContainerDefinition, basePath, configFile string) ContainerSpec {
	spec := ContainerSpec{
		Name:          def.Name,
		Image:         def.Image,
		Command:       def.Command,
		Entrypoint:    def.Entrypoint,
		Env:           def.Env,
		Ports:         def.Ports,
		Binds:         def.ResolveVolumes(basePath),
		Hostname:      def.Hostname,
		WorkingDir:    def.WorkingDir,
		User:          def.User,
		NetworkMode:   def.Network,
		RestartPolicy: def.Restart,
		Privileged:    def.Privileged,
		Labels: map[string]string{
			LabelManaged: "true",
			LabelName:    def.Name,
		},
	}
	if configFile != "" {
		spec.Labels[LabelConfig] = configFile
	}

	// Docker rejects links without an alias
	for _, l := range def.Links {
		alias := l.Alias
		if alias == "" {
			alias = l.Name
		}
		spec.Links = append(spec.Links, l.Name+":"+alias)
	}

	// Definition labels never override the managed labels
	for k, v := range def.Labels {
		if _, reserved := spec.Labels[k]; !reserved {
			spec.Labels[k] = v
		}
	}

	return spec
}

// StartContainer starts an existing container.
func (r *Runtime) StartContainer(ctx context.Context, name string) error {
	return r.docker.StartContainer(ctx, name)
}

// StopContainer stops name, killing it once grace has elapsed.
func (r *Runtime) StopContainer(ctx context.Context, name string, grace time.Duration) error {
	return r.docker.StopContainer(ctx, name, &grace)
}

// RemoveContainer removes a stopped container.
func (r *Runtime) RemoveContainer(ctx context.Context, name string) error {
	return r.docker.RemoveContainer(ctx, name)
}

// PullImage pulls image from its registry.
func (r *Runtime) PullImage(ctx context.Context, image string) error {
	return r.docker.PullImage(ctx, image)
}

// ExistingContainers returns the subset of names that exist in Docker,
// running or not.
func (r *Runtime) ExistingContainers(ctx context.Context, names []string) (map[string]bool, error) {
	containers, err := r.docker.ListContainers(ctx, ListOptions{All: true})
	if err != nil {
		return nil, err
	}

	present := make(map[string]bool, len(containers))
	for _, c := range containers {
		present[c.Name] = true
	}

	existing := make(map[string]bool, len(names))
	for _, n := range names {
		if present[n] {
			existing[n] = true
		}
	}
	return existing, nil
}

// ReadStatus inspects every name. All names must exist; a container that
// disappears between listing and inspection fails the whole read.
func (r *Runtime) ReadStatus(ctx context.Context, names []string) (domain.StateMap, error) {
	state := make(domain.StateMap, len(names))
	for _, n := range names {
		info, err := r.docker.InspectContainer(ctx, n)
		if err != nil {
			return nil, err
		}
		state[n] = statusOf(n, info)
	}
	return state, nil
}

func statusOf(name string, info *ContainerInfo) domain.ContainerStatus {
	s := domain.ContainerStatus{
		Name:    name,
		ID:      info.ID,
		IP:      info.IP,
		Running: info.Running,
		Error:   info.Error,
	}
	if info.Running {
		s.PID = info.PID
		s.StartedAt = info.StartedAt
	} else if info.FinishedAt != nil {
		code := info.ExitCode
		s.ExitCode = &code
	}
	return s
}

// ManagedContainers lists containers carrying the managed label, oldest
// first.
func (r *Runtime) ManagedContainers(ctx context.Context) ([]string, error) {
	containers, err := r.docker.ListContainers(ctx, ListOptions{
		All: true,
		Filters: map[string]string{
			"label": fmt.Sprintf("%s=true", LabelManaged),
		},
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(containers, func(i, j int) bool {
		if containers[i].CreatedAt.Equal(containers[j].CreatedAt) {
			return containers[i].Name < containers[j].Name
		}
		return containers[i].CreatedAt.Before(containers[j].CreatedAt)
	})

	names := make([]string, 0, len(containers))
	for _, c := range containers {
		if c.Name != "" {
			names = append(names, c.Name)
		}
	}
	return names, nil
}
