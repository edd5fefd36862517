package domain

import "path/filepath"

// =============================================================================
// Project
// =============================================================================

// Project is the loaded configuration handed to the orchestrator. It replaces
// any process-wide configuration: callers build one per invocation.
type Project struct {
	// ConfigFile is the path of the document the project was loaded from.
	ConfigFile string

	// Definitions in document order. Order matters: it seeds the
	// dependency traversal and makes the execution order deterministic.
	Definitions []ContainerDefinition

	// PidsDir, when set, receives a <name>.pid file per started container.
	PidsDir string

	// DockerHost overrides the Docker endpoint from the environment.
	DockerHost string

	index map[string]int
}

// NewProject builds a project from ordered definitions.
func NewProject(configFile string, defs []ContainerDefinition) *Project {
	p := &Project{
		ConfigFile:  configFile,
		Definitions: defs,
		index:       make(map[string]int, len(defs)),
	}
	for i, d := range defs {
		p.index[d.Name] = i
	}
	return p
}

// BasePath is the directory relative paths inside definitions resolve against.
func (p *Project) BasePath() string {
	if p.ConfigFile == "" {
		return "."
	}
	return filepath.Dir(p.ConfigFile)
}

// Names returns the defined container names in document order.
func (p *Project) Names() []string {
	names := make([]string, len(p.Definitions))
	for i, d := range p.Definitions {
		names[i] = d.Name
	}
	return names
}

// Lookup returns the definition for name.
func (p *Project) Lookup(name string) (ContainerDefinition, bool) {
	i, ok := p.index[name]
	if !ok {
		return ContainerDefinition{}, false
	}
	return p.Definitions[i], true
}

// Defined reports whether name is declared.
func (p *Project) Defined(name string) bool {
	_, ok := p.index[name]
	return ok
}

// Undefined returns every name in names that the project does not declare,
// preserving input order.
func (p *Project) Undefined(names []string) []string {
	var missing []string
	for _, n := range names {
		if !p.Defined(n) {
			missing = append(missing, n)
		}
	}
	return missing
}
