package convert

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/anthr76/lockbridge/internal/graph"
	"github.com/anthr76/lockbridge/internal/hash"
	"github.com/anthr76/lockbridge/internal/manifest"
	"github.com/anthr76/lockbridge/internal/npmlock"
	"github.com/anthr76/lockbridge/internal/ordered"
)

// npmNode is a position in the package-lock tree. The same package may
// sit at several positions.
type npmNode struct {
	name     string
	dep      *npmlock.Dependency
	parent   *npmNode
	children *ordered.Map[*npmlock.Dependency]
	inst     *graph.Instance
}

// lookup finds the node that satisfies name from n, searching n's own
// nested dependencies first and then each ancestor's, the way node's
// module resolution does.
func (n *npmNode) lookup(name string) (*npmNode, bool) {
	for at := n; at != nil; at = at.parent {
		if dep, ok := at.children.Get(name); ok {
			return &npmNode{name: name, dep: dep, parent: at, children: dep.Dependencies}, true
		}
	}
	return nil, false
}

// BuildFromNpm builds the dependency graph described by package.json and
// package-lock.json. Only packages reachable from the manifest are kept.
func BuildFromNpm(m *manifest.Manifest, lf *npmlock.Lockfile, logger *log.Logger) (*graph.Graph, error) {
	if logger == nil {
		logger = log.Default()
	}

	root := &graph.Instance{Name: m.Name, Version: m.Version}
	if root.Name == "" {
		root.Name = lf.Name
	}
	for _, d := range m.Requirements() {
		spec := graph.Spec{Name: d.Name, Range: d.Range, Dev: d.Dev, Optional: d.Optional}
		if m.IsBundled(d.Name) {
			spec.Bundled = true
			root.AddBundled(d.Name)
		}
		root.Dependencies = append(root.Dependencies, spec)
	}

	g := graph.New(root)
	queue := []*npmNode{{inst: root, children: lf.Dependencies}}
	visited := make(map[*npmlock.Dependency]bool)

	for len(queue) > 0 {
		parent := queue[0]
		queue = queue[1:]

		specs := make([]graph.Spec, 0, len(parent.inst.Dependencies))
		for _, spec := range parent.inst.Dependencies {
			if spec.Bundled {
				specs = append(specs, spec)
				continue
			}

			node, ok := parent.lookup(spec.Name)
			if !ok {
				if spec.Optional {
					logger.Debug("skipping missing optional dependency", "dependency", spec.Key(), "parent", parent.inst.Name)
					continue
				}
				return nil, &MalformedLockfileError{
					File:   npmlock.DefaultLockfile,
					Reason: fmt.Sprintf("%s required by %s has no entry", spec.Key(), parent.inst.Name),
				}
			}

			if node.dep.Bundled {
				logger.Debug("skipping bundled dependency", "dependency", spec.Name, "parent", parent.inst.Name)
				spec.Bundled = true
				parent.inst.AddBundled(spec.Name)
				specs = append(specs, spec)
				continue
			}

			// package-lock.json does not mark optional edges; an optional
			// package required by a non-optional one was declared optional
			if parent.dep != nil && node.dep.Optional && !parent.dep.Optional {
				spec.Optional = true
			}

			inst := g.Add(npmInstance(node.name, node.dep, logger))
			if !g.Link(spec, inst) {
				existing, _ := g.Resolve(spec)
				logger.Warn("conflicting resolution, keeping first", "dependency", spec.Key(), "kept", existing.Version, "ignored", inst.Version)
				inst = existing
			}
			specs = append(specs, spec)

			if visited[node.dep] {
				continue
			}
			visited[node.dep] = true
			if inst.Dependencies == nil {
				inst.Dependencies = npmRequires(node.dep)
			}
			node.inst = inst
			queue = append(queue, node)
		}
		parent.inst.Dependencies = specs
	}

	return g, nil
}

// npmRequires turns a node's requires map into specs in file order.
func npmRequires(dep *npmlock.Dependency) []graph.Spec {
	var specs []graph.Spec
	dep.Requires.Each(func(name, rng string) {
		specs = append(specs, graph.Spec{Name: name, Range: rng})
	})
	return specs
}

func npmInstance(name string, dep *npmlock.Dependency, logger *log.Logger) *graph.Instance {
	inst := &graph.Instance{
		Name:     name,
		Version:  dep.Version,
		Resolved: dep.Resolved,
		Dev:      dep.Dev,
		Optional: dep.Optional,
	}

	if ref, ok := gitSource(dep.Version, dep.Resolved); ok {
		inst.Git = ref
		if _, isGit := graph.ParseGitRange(dep.Version); isGit {
			inst.Version = ""
		}
		if _, isGit := graph.ParseGitRange(dep.Resolved); isGit {
			inst.Resolved = ""
		}
		if from, ok := graph.ParseGitRange(dep.From); ok && from.Committish != "" {
			ref.Committish = from.Committish
		}
		return inst
	}

	inst.Resolved, inst.Shasum = splitResolved(dep.Resolved)
	applyIntegrity(inst, dep.Integrity, logger)
	return inst
}

// applyIntegrity records every digest of an integrity field. A sha1 in the
// list fills Shasum when the resolved URL carried none.
func applyIntegrity(inst *graph.Instance, field string, logger *log.Logger) {
	if field == "" {
		return
	}
	hashes, err := hash.ParseIntegrityList(field)
	if err != nil {
		logger.Warn("ignoring integrity", "package", inst.Name, "err", err)
		return
	}
	inst.IntegrityList = hashes
	inst.Integrity = hash.Strongest(hashes)
	if sha1, ok := hash.Find(hashes, hash.SHA1); ok && inst.Shasum.IsZero() {
		inst.Shasum = sha1
	}
}

// gitSource recognizes a GitHub dependency from the version or resolved
// field, preferring whichever names a commit.
func gitSource(fields ...string) (*graph.GitRef, bool) {
	var found *graph.GitRef
	for _, f := range fields {
		if f == "" {
			continue
		}
		ref, ok := graph.ParseGitRange(f)
		if !ok {
			continue
		}
		if ref.Commit != "" {
			return ref, true
		}
		if found == nil {
			found = ref
		}
	}
	return found, found != nil
}

// splitResolved separates a yarn style "#<sha1>" fragment from a tarball
// URL. Other fragments are left in place.
func splitResolved(resolved string) (string, hash.Hash) {
	base, frag, ok := strings.Cut(resolved, "#")
	if !ok {
		return resolved, hash.Hash{}
	}
	h, err := hash.FromHex(hash.SHA1, frag)
	if err != nil {
		return resolved, hash.Hash{}
	}
	return base, h
}
