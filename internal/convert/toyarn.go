package convert

import (
	"fmt"
	"sort"

	"github.com/anthr76/lockbridge/internal/graph"
	"github.com/anthr76/lockbridge/internal/ordered"
	"github.com/anthr76/lockbridge/internal/yarnlock"
)

// ToYarn renders a reconciled graph as yarn.lock. Every reachable
// instance becomes one entry keyed by the requirements that resolve to
// it; bundled dependencies get no entry.
func ToYarn(g *graph.Graph) ([]byte, error) {
	keys := make(map[*graph.Instance]map[string]bool)
	var insts []*graph.Instance
	g.Walk(func(_ *graph.Instance, s graph.Spec, child *graph.Instance) {
		if keys[child] == nil {
			keys[child] = make(map[string]bool)
			insts = append(insts, child)
		}
		keys[child][s.Key()] = true
	})

	sort.SliceStable(insts, func(a, b int) bool {
		if insts[a].Name != insts[b].Name {
			return insts[a].Name < insts[b].Name
		}
		return graph.CompareVersions(insts[a].Version, insts[b].Version) < 0
	})

	lf := &yarnlock.Lockfile{}
	for _, inst := range insts {
		entry, err := yarnEntry(inst)
		if err != nil {
			return nil, err
		}
		for k := range keys[inst] {
			entry.Keys = append(entry.Keys, k)
		}
		sort.Strings(entry.Keys)
		lf.Entries = append(lf.Entries, entry)
	}
	return lf.Stringify(), nil
}

func yarnEntry(inst *graph.Instance) (*yarnlock.Entry, error) {
	if inst.Version == "" {
		return nil, fmt.Errorf("writing %s: %s has no version", yarnlock.DefaultLockfile, inst.Name)
	}
	entry := &yarnlock.Entry{Version: inst.Version}

	switch {
	case inst.Git != nil && inst.Git.Commit != "":
		entry.Resolved = inst.Git.TarballURL()
	case inst.Git != nil:
		entry.Resolved = inst.Resolved
	default:
		entry.Resolved = inst.Resolved
		if sha1 := inst.Sha1(); !sha1.IsZero() && entry.Resolved != "" {
			entry.Resolved += "#" + sha1.Hex()
		}
		entry.Integrity = inst.IntegrityField()
	}

	for _, s := range inst.Dependencies {
		if s.Optional {
			if entry.OptionalDependencies == nil {
				entry.OptionalDependencies = ordered.NewMap[string]()
			}
			entry.OptionalDependencies.Set(s.Name, s.Range)
			continue
		}
		if entry.Dependencies == nil {
			entry.Dependencies = ordered.NewMap[string]()
		}
		entry.Dependencies.Set(s.Name, s.Range)
	}
	return entry, nil
}
