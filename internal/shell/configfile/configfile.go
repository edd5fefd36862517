// Package configfile locates and decodes the dockwrkr.yml container
// document into a domain.Project.
//
// # Document Shape
//
//	pids: /var/run/dockwrkr      # optional
//	docker: unix:///var/run/docker.sock  # optional
//	containers:
//	  db:
//	    image: postgres:16
//	  web:
//	    image: nginx
//	    link: db:database        # string or list
//	    env: {MODE: prod}        # map or K=V list
//	    publish: ["8080:80"]
//
// Documents without a containers key use the legacy shape: every top-level
// mapping other than pids and docker is a container.
package configfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/artpar/dockwrkr/internal/core/domain"
	"gopkg.in/yaml.v3"
)

// FileName is the document searched for by Find.
const FileName = "dockwrkr.yml"

// Document keys that are never container names.
const (
	keyContainers = "containers"
	keyPids       = "pids"
	keyDocker     = "docker"
)

// =============================================================================
// Discovery
// =============================================================================

// Find walks up from dir looking for FileName and returns its absolute path.
func Find(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrConfigNotFound, err)
	}

	for current := abs; ; {
		candidate := filepath.Join(current, FileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}
	return "", fmt.Errorf("%w: could not locate %s from %s", domain.ErrConfigNotFound, FileName, abs)
}

// =============================================================================
// Loading
// =============================================================================

// Load reads and parses the document at path.
func Load(path string) (*domain.Project, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfigNotFound, err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrConfigNotFound, abs)
		}
		return nil, fmt.Errorf("failed to read %s: %w", abs, err)
	}
	return Parse(data, abs)
}

// Parse decodes a document. configFile is recorded on the project and
// anchors relative volume paths.
func Parse(data []byte, configFile string) (*domain.Project, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrInvalidConfig, configFile, err)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, fmt.Errorf("%w: %s: document is empty", domain.ErrInvalidConfig, configFile)
	}
	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: %s: document must be a mapping", domain.ErrInvalidConfig, configFile)
	}

	var (
		pidsDir    string
		dockerHost string
		containers *yaml.Node
	)
	for i := 0; i+1 < len(doc.Content); i += 2 {
		key, value := doc.Content[i].Value, doc.Content[i+1]
		switch key {
		case keyPids:
			pidsDir = value.Value
		case keyDocker:
			dockerHost = value.Value
		case keyContainers:
			containers = value
		}
	}

	legacy := containers == nil
	if legacy {
		containers = doc
	}
	if containers.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: %s: containers must be a mapping", domain.ErrInvalidConfig, configFile)
	}

	defs, err := decodeContainers(containers, legacy)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrInvalidConfig, configFile, err)
	}
	if err := domain.ValidateDefinitions(defs); err != nil {
		return nil, err
	}

	project := domain.NewProject(configFile, defs)
	project.PidsDir = resolvePath(pidsDir, project.BasePath())
	project.DockerHost = dockerHost
	return project, nil
}

// decodeContainers decodes definitions in document order.
func decodeContainers(node *yaml.Node, legacy bool) ([]domain.ContainerDefinition, error) {
	defs := make([]domain.ContainerDefinition, 0, len(node.Content)/2)
	seen := make(map[string]bool, len(node.Content)/2)

	for i := 0; i+1 < len(node.Content); i += 2 {
		name, body := node.Content[i].Value, node.Content[i+1]
		if legacy && (name == keyPids || name == keyDocker) {
			continue
		}
		if seen[name] {
			return nil, fmt.Errorf("container '%s' defined more than once", name)
		}
		seen[name] = true

		if body.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("container '%s' must be a mapping (line %d)", name, body.Line)
		}
		var raw rawContainer
		if err := body.Decode(&raw); err != nil {
			return nil, fmt.Errorf("container '%s': %v", name, err)
		}
		defs = append(defs, raw.definition(name))
	}
	return defs, nil
}

func resolvePath(path, base string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

// =============================================================================
// Raw Document Types
// =============================================================================

type rawContainer struct {
	Image      string      `yaml:"image"`
	Link       stringList  `yaml:"link"`
	Env        keyValues   `yaml:"env"`
	Publish    stringList  `yaml:"publish"`
	Volume     stringList  `yaml:"volume"`
	Command    commandLine `yaml:"command"`
	Entrypoint commandLine `yaml:"entrypoint"`
	Workdir    string      `yaml:"workdir"`
	User       string      `yaml:"user"`
	Hostname   string      `yaml:"hostname"`
	Restart    string      `yaml:"restart"`
	Net        string      `yaml:"net"`
	Label      keyValues   `yaml:"label"`
	Privileged bool        `yaml:"privileged"`
}

func (r rawContainer) definition(name string) domain.ContainerDefinition {
	def := domain.ContainerDefinition{
		Name:       name,
		Image:      r.Image,
		Env:        r.Env,
		Ports:      r.Publish,
		Volumes:    r.Volume,
		Command:    r.Command,
		Entrypoint: r.Entrypoint,
		WorkingDir: r.Workdir,
		User:       r.User,
		Hostname:   r.Hostname,
		Restart:    r.Restart,
		Network:    r.Net,
		Labels:     r.Label,
		Privileged: r.Privileged,
	}
	for _, ref := range r.Link {
		def.Links = append(def.Links, domain.ParseLink(ref))
	}
	return def
}

// stringList accepts a scalar or a sequence of scalars.
type stringList []string

func (l *stringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*l = []string{node.Value}
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := node.Decode(&items); err != nil {
			return err
		}
		*l = items
		return nil
	}
	return fmt.Errorf("line %d: expected a string or a list of strings", node.Line)
}

// commandLine accepts a sequence of arguments, or a scalar split on
// whitespace.
type commandLine []string

func (c *commandLine) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*c = strings.Fields(node.Value)
		return nil
	}
	var items stringList
	if err := items.UnmarshalYAML(node); err != nil {
		return err
	}
	*c = commandLine(items)
	return nil
}

// keyValues accepts a mapping or a list of KEY=VALUE entries.
type keyValues map[string]string

func (kv *keyValues) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.MappingNode:
		var m map[string]string
		if err := node.Decode(&m); err != nil {
			return err
		}
		*kv = m
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := node.Decode(&items); err != nil {
			return err
		}
		m := make(map[string]string, len(items))
		for _, item := range items {
			k, v, _ := strings.Cut(item, "=")
			if k == "" {
				return fmt.Errorf("line %d: invalid entry %q", node.Line, item)
			}
			m[k] = v
		}
		*kv = m
		return nil
	}
	return fmt.Errorf("line %d: expected a mapping or a list of KEY=VALUE entries", node.Line)
}
