// Package graph is the dependency graph shared by both lockfile formats.
package graph

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/anthr76/lockbridge/internal/hash"
)

// Spec is a dependency edge as a parent declares it.
type Spec struct {
	Name     string
	Range    string
	Dev      bool
	Optional bool
	Bundled  bool
}

// Key is the "name@range" form both lockfiles use to refer to a requirement.
func (s Spec) Key() string {
	return s.Name + "@" + s.Range
}

// Instance is a concrete resolved package.
type Instance struct {
	Name     string
	Version  string
	Resolved string
	// Integrity is the strongest digest known for the tarball.
	Integrity hash.Hash
	// IntegrityList is every digest of the source integrity field, in the
	// order it was written.
	IntegrityList []hash.Hash
	// Shasum is the sha1 yarn stores in the resolved URL fragment.
	Shasum hash.Hash
	Git    *GitRef

	Dependencies []Spec
	Bundled      map[string]bool

	Dev      bool
	Optional bool
}

// ID is the resolution identity: name plus resolved URL, or name plus
// version while the URL is unknown.
func (i *Instance) ID() string {
	switch {
	case i.Git != nil && i.Git.Commit != "":
		return i.Name + "@" + i.Git.TarballURL()
	case i.Resolved != "":
		return i.Name + "@" + i.Resolved
	}
	return i.Name + "@" + i.Version
}

// IsBundled reports whether name ships inside this package's tarball.
func (i *Instance) IsBundled(name string) bool {
	return i.Bundled[name]
}

// AddBundled records name as bundled into this package.
func (i *Instance) AddBundled(name string) {
	if i.Bundled == nil {
		i.Bundled = make(map[string]bool)
	}
	i.Bundled[name] = true
}

// Sha1 returns the sha1 digest known for the instance, from either field.
func (i *Instance) Sha1() hash.Hash {
	if !i.Shasum.IsZero() {
		return i.Shasum
	}
	if i.Integrity.Algorithm == hash.SHA1 {
		return i.Integrity
	}
	return hash.Hash{}
}

// IntegrityField renders the integrity field for output: the source list
// when one was read, otherwise the strongest known digest.
func (i *Instance) IntegrityField() string {
	if len(i.IntegrityList) > 0 {
		return hash.FormatIntegrity(i.IntegrityList)
	}
	return i.Integrity.SRI()
}

func (i *Instance) String() string {
	return i.Name + "@" + i.Version
}

// Graph holds the root project and every instance reachable from it,
// indexed by the requirement keys that resolve to them.
type Graph struct {
	Root *Instance

	byID  map[string]*Instance
	byKey map[string]*Instance
	order []*Instance
}

// New creates an empty graph for the given root.
func New(root *Instance) *Graph {
	return &Graph{
		Root:  root,
		byID:  make(map[string]*Instance),
		byKey: make(map[string]*Instance),
	}
}

// Add inserts inst unless an instance with the same ID exists, and returns
// the instance held by the graph.
func (g *Graph) Add(inst *Instance) *Instance {
	if existing, ok := g.byID[inst.ID()]; ok {
		return existing
	}
	g.byID[inst.ID()] = inst
	g.order = append(g.order, inst)
	return inst
}

// Link maps a requirement key to an instance. It reports false when the
// key already points elsewhere; the first link wins.
func (g *Graph) Link(s Spec, inst *Instance) bool {
	if existing, ok := g.byKey[s.Key()]; ok {
		return existing == inst
	}
	g.byKey[s.Key()] = inst
	return true
}

// Resolve returns the instance a requirement points at.
func (g *Graph) Resolve(s Spec) (*Instance, bool) {
	inst, ok := g.byKey[s.Key()]
	return inst, ok
}

// ByName returns every instance with the given name in insertion order.
func (g *Graph) ByName(name string) []*Instance {
	var out []*Instance
	for _, inst := range g.order {
		if inst.Name == name {
			out = append(out, inst)
		}
	}
	return out
}

// Instances returns all instances ordered by name, then version.
func (g *Graph) Instances() []*Instance {
	out := make([]*Instance, len(g.order))
	copy(out, g.order)
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].Name != out[b].Name {
			return out[a].Name < out[b].Name
		}
		return CompareVersions(out[a].Version, out[b].Version) < 0
	})
	return out
}

// Keys returns the sorted requirement keys that resolve to inst.
func (g *Graph) Keys(inst *Instance) []string {
	var keys []string
	for k, v := range g.byKey {
		if v == inst {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Walk visits every instance reachable from the root through non-bundled
// edges, breadth first in declaration order.
func (g *Graph) Walk(fn func(parent *Instance, s Spec, child *Instance)) {
	seen := map[*Instance]bool{g.Root: true}
	queue := []*Instance{g.Root}
	for len(queue) > 0 {
		parent := queue[0]
		queue = queue[1:]
		for _, s := range parent.Dependencies {
			if s.Bundled {
				continue
			}
			child, ok := g.Resolve(s)
			if !ok {
				continue
			}
			fn(parent, s, child)
			if !seen[child] {
				seen[child] = true
				queue = append(queue, child)
			}
		}
	}
}

// Reachable returns the reachable instances, excluding the root.
func (g *Graph) Reachable() []*Instance {
	var out []*Instance
	seen := make(map[*Instance]bool)
	g.Walk(func(_ *Instance, _ Spec, child *Instance) {
		if !seen[child] {
			seen[child] = true
			out = append(out, child)
		}
	})
	return out
}

// Validate reports requirements that resolve to nothing.
func (g *Graph) Validate() error {
	var dangling []string
	visit := func(parent *Instance) {
		for _, s := range parent.Dependencies {
			if s.Bundled {
				continue
			}
			if _, ok := g.Resolve(s); !ok {
				dangling = append(dangling, fmt.Sprintf("%s (required by %s)", s.Key(), parent.Name))
			}
		}
	}
	visit(g.Root)
	for _, inst := range g.Reachable() {
		visit(inst)
	}
	if len(dangling) > 0 {
		return fmt.Errorf("unresolved dependencies: %s", strings.Join(dangling, ", "))
	}
	return nil
}

// CompareVersions orders npm versions using semver precedence. Versions
// that are not valid semver sort after valid ones, lexically.
func CompareVersions(a, b string) int {
	va, vb := "v"+a, "v"+b
	okA, okB := semver.IsValid(va), semver.IsValid(vb)
	switch {
	case okA && okB:
		if c := semver.Compare(va, vb); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	case okA:
		return -1
	case okB:
		return 1
	}
	return strings.Compare(a, b)
}
