// Package manifest reads the package.json fields lockfile translation needs.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/anthr76/lockbridge/internal/ordered"
)

// FileName is the manifest file inside a project directory.
const FileName = "package.json"

// Manifest contains parsed information from package.json.
type Manifest struct {
	Name                 string
	Version              string
	Dependencies         *ordered.Map[string]
	DevDependencies      *ordered.Map[string]
	OptionalDependencies *ordered.Map[string]
	BundledDependencies  []string
}

// Dependency is one declared requirement of the project.
type Dependency struct {
	Name     string
	Range    string
	Dev      bool
	Optional bool
}

type packageJSON struct {
	Name                 string               `json:"name"`
	Version              string               `json:"version"`
	Dependencies         *ordered.Map[string] `json:"dependencies"`
	DevDependencies      *ordered.Map[string] `json:"devDependencies"`
	OptionalDependencies *ordered.Map[string] `json:"optionalDependencies"`
	BundledDependencies  json.RawMessage      `json:"bundledDependencies"`
	BundleDependencies   json.RawMessage      `json:"bundleDependencies"`
}

// Load reads package.json from dir.
func Load(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", FileName, err)
	}
	return Parse(data)
}

// Parse decodes package.json content.
func Parse(data []byte) (*Manifest, error) {
	var raw packageJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", FileName, err)
	}

	m := &Manifest{
		Name:                 raw.Name,
		Version:              raw.Version,
		Dependencies:         raw.Dependencies,
		DevDependencies:      raw.DevDependencies,
		OptionalDependencies: raw.OptionalDependencies,
	}

	bundled := raw.BundledDependencies
	if len(bundled) == 0 {
		bundled = raw.BundleDependencies
	}
	names, err := parseBundled(bundled, m.Dependencies)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", FileName, err)
	}
	m.BundledDependencies = names

	return m, nil
}

// parseBundled accepts the list form and the boolean form, where true
// bundles every runtime dependency.
func parseBundled(raw json.RawMessage, deps *ordered.Map[string]) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var all bool
	if err := json.Unmarshal(raw, &all); err == nil {
		if !all {
			return nil, nil
		}
		return append([]string(nil), deps.Keys()...), nil
	}
	var names []string
	if err := json.Unmarshal(raw, &names); err != nil {
		return nil, fmt.Errorf("bundledDependencies: %w", err)
	}
	return names, nil
}

// Requirements lists the project's direct requirements: dependencies,
// then devDependencies, then optionalDependencies, each in file order.
// An optional dependency also listed under dependencies appears once, as
// optional, matching how npm installs it.
func (m *Manifest) Requirements() []Dependency {
	var out []Dependency
	m.Dependencies.Each(func(name, rng string) {
		if _, ok := m.OptionalDependencies.Get(name); ok {
			return
		}
		out = append(out, Dependency{Name: name, Range: rng})
	})
	m.DevDependencies.Each(func(name, rng string) {
		if _, ok := m.Dependencies.Get(name); ok {
			return
		}
		out = append(out, Dependency{Name: name, Range: rng, Dev: true})
	})
	m.OptionalDependencies.Each(func(name, rng string) {
		out = append(out, Dependency{Name: name, Range: rng, Optional: true})
	})
	return out
}

// IsBundled reports whether the project bundles name.
func (m *Manifest) IsBundled(name string) bool {
	for _, b := range m.BundledDependencies {
		if b == name {
			return true
		}
	}
	return false
}
