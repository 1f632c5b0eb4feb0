package packager

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	perrors "git.home.luguber.info/inful/packhooks/internal/errors"
)

// ManifestFile is the default manifest file name.
const ManifestFile = "package.yaml"

// Manifest describes a package and its entry points.
type Manifest struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	// Source is the primary entry point's source directory.
	Source string `yaml:"source"`
	Dest   string `yaml:"dest"`
	// Bundle overrides the configured bundle format for this package.
	Bundle      string      `yaml:"bundle,omitempty"`
	EntryPoints []EntrySpec `yaml:"entryPoints,omitempty"`
}

// EntrySpec declares a secondary entry point.
type EntrySpec struct {
	Name   string `yaml:"name"`
	Source string `yaml:"source"`
}

var entryNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*(/[a-z0-9][a-z0-9._-]*)*$`)

// LoadManifest reads and validates a manifest, applying defaults.
func LoadManifest(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path) // #nosec G304 -- manifest path is supplied by the operator
	if err != nil {
		if os.IsNotExist(err) {
			return nil, perrors.ConfigNotFound(path)
		}
		return nil, perrors.FileSystemError("read manifest", err).WithContext("path", path)
	}
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, perrors.ConfigInvalid("manifest", err.Error()).WithContext("path", path)
	}
	m.applyDefaults()
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Manifest) applyDefaults() {
	if m.Source == "" {
		m.Source = "src"
	}
	if m.Dest == "" {
		m.Dest = "dist"
	}
	if m.Version == "" {
		m.Version = "0.0.0"
	}
}

// Validate checks names and paths.
func (m *Manifest) Validate() error {
	if m.Name == "" {
		return perrors.ConfigRequired("name")
	}
	if !entryNamePattern.MatchString(strings.TrimPrefix(m.Name, "@")) {
		return perrors.ConfigInvalid("name", fmt.Sprintf("%q is not a valid package name", m.Name))
	}
	seen := map[string]bool{}
	for i, ep := range m.EntryPoints {
		field := fmt.Sprintf("entryPoints[%d]", i)
		if !entryNamePattern.MatchString(ep.Name) {
			return perrors.ConfigInvalid(field+".name", fmt.Sprintf("%q is not a valid entry point name", ep.Name))
		}
		if seen[ep.Name] {
			return perrors.ConfigInvalid(field+".name", fmt.Sprintf("duplicate entry point %q", ep.Name))
		}
		seen[ep.Name] = true
		if ep.Source == "" {
			return perrors.ConfigRequired(field + ".source")
		}
	}
	for _, p := range append([]string{m.Source, m.Dest}, sources(m.EntryPoints)...) {
		if filepath.IsAbs(p) || strings.HasPrefix(filepath.Clean(p), "..") {
			return perrors.ConfigInvalid("paths", fmt.Sprintf("%q must be relative to the manifest directory", p))
		}
	}
	// Outputs are wiped on every build, so dest may not hold any source.
	for _, src := range append([]string{m.Source}, sources(m.EntryPoints)...) {
		if withinAny(filepath.Clean(src), []string{filepath.Clean(m.Dest)}) {
			return perrors.ConfigInvalid("dest", fmt.Sprintf("%q contains source directory %q", m.Dest, src))
		}
	}
	return nil
}

func sources(eps []EntrySpec) []string {
	out := make([]string, 0, len(eps))
	for _, ep := range eps {
		out = append(out, ep.Source)
	}
	return out
}

// SetManifestVersion rewrites the version field of the manifest at path,
// keeping the rest of the document (comments and ordering) intact.
func SetManifestVersion(path, version string) error {
	raw, err := os.ReadFile(path) // #nosec G304 -- manifest path is supplied by the operator
	if err != nil {
		return perrors.FileSystemError("read manifest", err).WithContext("path", path)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return perrors.ConfigInvalid("manifest", err.Error()).WithContext("path", path)
	}
	if len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return perrors.ConfigInvalid("manifest", "document is not a mapping").WithContext("path", path)
	}
	root := doc.Content[0]
	updated := false
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value == "version" {
			root.Content[i+1].Value = version
			root.Content[i+1].Tag = "!!str"
			updated = true
			break
		}
	}
	if !updated {
		root.Content = append(root.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: "version"},
			&yaml.Node{Kind: yaml.ScalarNode, Value: version, Tag: "!!str"})
	}
	out, err := yaml.Marshal(&doc)
	if err != nil {
		return perrors.InternalError("encode manifest", err)
	}
	if err := os.WriteFile(path, out, 0o600); err != nil {
		return perrors.FileSystemError("write manifest", err).WithContext("path", path)
	}
	return nil
}
