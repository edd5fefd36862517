package domain

import (
	"path/filepath"
	"strings"
)

// =============================================================================
// Container Definition
// =============================================================================

// ContainerDefinition is a named container declaration from the loaded
// configuration. It is immutable once loaded.
type ContainerDefinition struct {
	Name       string            `validate:"required,containername"`
	Image      string            `validate:"required"`
	Links      []Link            `validate:"dive"`
	Env        map[string]string
	Ports      []string
	Volumes    []string
	Command    []string
	Entrypoint []string
	WorkingDir string
	User       string
	Hostname   string
	Restart    string `validate:"omitempty,oneof=no always on-failure unless-stopped"`
	Network    string
	Labels     map[string]string
	Privileged bool
}

// Dependencies returns the names this container links to, aliases stripped,
// in declaration order and without duplicates.
func (d ContainerDefinition) Dependencies() []string {
	seen := make(map[string]bool, len(d.Links))
	deps := make([]string, 0, len(d.Links))
	for _, l := range d.Links {
		if seen[l.Name] {
			continue
		}
		seen[l.Name] = true
		deps = append(deps, l.Name)
	}
	return deps
}

// ResolveVolumes returns the volume specs with relative host paths made
// absolute against basePath. Named volumes are left as they are.
func (d ContainerDefinition) ResolveVolumes(basePath string) []string {
	out := make([]string, 0, len(d.Volumes))
	for _, v := range d.Volumes {
		src, rest, found := strings.Cut(v, ":")
		if found && isRelativePath(src) {
			src = filepath.Join(basePath, src)
		}
		if found {
			out = append(out, src+":"+rest)
		} else {
			out = append(out, v)
		}
	}
	return out
}

func isRelativePath(src string) bool {
	return strings.HasPrefix(src, "./") || strings.HasPrefix(src, "../") || src == "." || src == ".."
}

// =============================================================================
// Links
// =============================================================================

// Link is a declared runtime dependency in the form name[:alias].
type Link struct {
	Name  string `validate:"required,containername"`
	Alias string
}

// ParseLink parses a link reference. The alias defaults to empty.
func ParseLink(ref string) Link {
	name, alias, _ := strings.Cut(strings.TrimSpace(ref), ":")
	return Link{Name: name, Alias: alias}
}

// String renders the link the way Docker expects it.
func (l Link) String() string {
	if l.Alias == "" {
		return l.Name
	}
	return l.Name + ":" + l.Alias
}

// =============================================================================
// Results
// =============================================================================

// Result describes one per-container action that ran successfully.
type Result struct {
	Container   string
	Action      string
	Description string
}
