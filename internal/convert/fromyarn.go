package convert

import (
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/anthr76/lockbridge/internal/graph"
	"github.com/anthr76/lockbridge/internal/manifest"
	"github.com/anthr76/lockbridge/internal/yarnlock"
)

// BuildFromYarn builds the dependency graph described by package.json and
// yarn.lock.
func BuildFromYarn(m *manifest.Manifest, lf *yarnlock.Lockfile, logger *log.Logger) (*graph.Graph, error) {
	if logger == nil {
		logger = log.Default()
	}

	root := &graph.Instance{Name: m.Name, Version: m.Version}
	g := graph.New(root)

	byName := make(map[string][]*graph.Instance)
	entries := make(map[*graph.Instance]*yarnlock.Entry)
	var order []*graph.Instance
	for _, e := range lf.Entries {
		inst := g.Add(yarnInstance(e, logger))
		if _, seen := entries[inst]; !seen {
			entries[inst] = e
			order = append(order, inst)
			byName[inst.Name] = append(byName[inst.Name], inst)
		}
		for _, key := range e.Keys {
			name, rng := yarnlock.SplitKey(key)
			if !g.Link(graph.Spec{Name: name, Range: rng}, inst) {
				logger.Warn("duplicate lockfile key, keeping first", "key", key)
			}
		}
	}

	// resolve finds the entry for a requirement, falling back to the only
	// entry with that name when the exact key is absent
	resolve := func(spec graph.Spec) (*graph.Instance, bool) {
		if inst, ok := g.Resolve(spec); ok {
			return inst, true
		}
		if candidates := byName[spec.Name]; len(candidates) == 1 {
			logger.Debug("resolving by name", "dependency", spec.Key(), "version", candidates[0].Version)
			g.Link(spec, candidates[0])
			return candidates[0], true
		}
		return nil, false
	}

	for _, d := range m.Requirements() {
		spec := graph.Spec{Name: d.Name, Range: d.Range, Dev: d.Dev, Optional: d.Optional}
		if m.IsBundled(d.Name) {
			spec.Bundled = true
			root.AddBundled(d.Name)
		}
		if _, ok := resolve(spec); !ok && !spec.Bundled {
			if spec.Optional {
				logger.Debug("skipping missing optional dependency", "dependency", spec.Key())
				continue
			}
			return nil, &MalformedLockfileError{
				File:   yarnlock.DefaultLockfile,
				Reason: fmt.Sprintf("no entry for %s", spec.Key()),
			}
		}
		root.Dependencies = append(root.Dependencies, spec)
	}

	for _, inst := range order {
		inst.Dependencies = yarnSpecs(entries[inst])
		for i, spec := range inst.Dependencies {
			if _, ok := resolve(spec); ok {
				continue
			}
			// yarn lists bundled dependencies without giving them an entry
			logger.Debug("treating dependency without entry as bundled", "dependency", spec.Key(), "parent", inst.Name)
			inst.Dependencies[i].Bundled = true
			inst.AddBundled(spec.Name)
		}
	}

	return g, nil
}

func yarnSpecs(e *yarnlock.Entry) []graph.Spec {
	var specs []graph.Spec
	e.Dependencies.Each(func(name, rng string) {
		if _, ok := e.OptionalDependencies.Get(name); ok {
			return
		}
		specs = append(specs, graph.Spec{Name: name, Range: rng})
	})
	e.OptionalDependencies.Each(func(name, rng string) {
		specs = append(specs, graph.Spec{Name: name, Range: rng, Optional: true})
	})
	return specs
}

func yarnInstance(e *yarnlock.Entry, logger *log.Logger) *graph.Instance {
	inst := &graph.Instance{Name: e.Name(), Version: e.Version}

	keyRanges := make([]string, 0, len(e.Keys))
	for _, key := range e.Keys {
		_, rng := yarnlock.SplitKey(key)
		keyRanges = append(keyRanges, rng)
	}

	if ref, ok := gitSource(append([]string{e.Resolved}, keyRanges...)...); ok {
		for _, rng := range keyRanges {
			if from, ok := graph.ParseGitRange(rng); ok && from.Committish != "" {
				ref.Committish = from.Committish
				break
			}
		}
		inst.Git = ref
		inst.Resolved = e.Resolved
		return inst
	}

	inst.Resolved, inst.Shasum = splitResolved(e.Resolved)
	applyIntegrity(inst, e.Integrity, logger)
	return inst
}
