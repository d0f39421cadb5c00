// Package npmlock reads and writes npm package-lock.json files
// (lockfileVersion 1).
package npmlock

import "github.com/anthr76/lockbridge/internal/ordered"

// LockfileVersion is the package-lock schema this package handles.
const LockfileVersion = 1

// Lockfile represents the package-lock.json file structure.
type Lockfile struct {
	Name            string                    `json:"name"`
	Version         string                    `json:"version,omitempty"`
	LockfileVersion int                       `json:"lockfileVersion"`
	Requires        bool                      `json:"requires,omitempty"`
	Dependencies    *ordered.Map[*Dependency] `json:"dependencies,omitempty"`
}

// Dependency is one node of the nested dependency tree.
type Dependency struct {
	Version   string `json:"version"`
	From      string `json:"from,omitempty"`
	Resolved  string `json:"resolved,omitempty"`
	Integrity string `json:"integrity,omitempty"`
	Bundled   bool   `json:"bundled,omitempty"`
	Dev       bool   `json:"dev,omitempty"`
	Optional  bool   `json:"optional,omitempty"`

	// Requires maps each declared dependency name to its range.
	Requires     *ordered.Map[string]      `json:"requires,omitempty"`
	Dependencies *ordered.Map[*Dependency] `json:"dependencies,omitempty"`
}

// New creates an empty Lockfile for the named project.
func New(name, version string) *Lockfile {
	return &Lockfile{
		Name:            name,
		Version:         version,
		LockfileVersion: LockfileVersion,
		Requires:        true,
		Dependencies:    ordered.NewMap[*Dependency](),
	}
}
