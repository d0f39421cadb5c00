package convert

import (
	"fmt"
	"sort"

	"github.com/anthr76/lockbridge/internal/graph"
	"github.com/anthr76/lockbridge/internal/npmlock"
	"github.com/anthr76/lockbridge/internal/ordered"
)

// placement is an instance's position in the hoisted node_modules tree.
type placement struct {
	inst     *graph.Instance
	from     string
	parent   *placement
	depth    int
	children map[string]*placement
	// uses maps each dependency name to the level it was found at.
	uses map[string]*placement
}

func newPlacement(inst *graph.Instance, from string, parent *placement) *placement {
	p := &placement{
		inst:     inst,
		from:     from,
		parent:   parent,
		children: make(map[string]*placement),
		uses:     make(map[string]*placement),
	}
	if parent != nil {
		p.depth = parent.depth + 1
	}
	return p
}

// ToNpm renders a reconciled graph as a lockfileVersion 1
// package-lock.json. Each instance is hoisted to the highest ancestor
// where its name does not collide with a different instance.
func ToNpm(g *graph.Graph) ([]byte, error) {
	root := newPlacement(g.Root, "", nil)
	queue := []*placement{root}

	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]

		for _, s := range p.inst.Dependencies {
			if s.Bundled {
				continue
			}
			child, ok := g.Resolve(s)
			if !ok {
				return nil, fmt.Errorf("writing %s: %s required by %s does not resolve", npmlock.DefaultLockfile, s.Key(), p.inst.Name)
			}

			level, satisfied := hoist(p, s.Name, child)
			if level == nil {
				return nil, fmt.Errorf("writing %s: %s requires two versions of %s", npmlock.DefaultLockfile, p.inst.Name, s.Name)
			}
			p.uses[s.Name] = level
			if satisfied {
				continue
			}

			placed := newPlacement(child, s.Range, level)
			level.children[s.Name] = placed
			queue = append(queue, placed)
		}
	}

	dev := notReachable(g,
		func(s graph.Spec) bool { return !s.Dev },
		func(graph.Spec) bool { return true })
	optional := notReachable(g,
		func(s graph.Spec) bool { return !s.Optional },
		func(s graph.Spec) bool { return !s.Optional })

	lf := npmlock.New(g.Root.Name, g.Root.Version)
	lf.Dependencies = npmChildren(root, dev, optional)
	return lf.Marshal()
}

// hoist walks up from p looking for where name should live. It returns
// the level already holding inst with satisfied set, or the highest free
// level whose subtree does not already resolve name from further up. A
// nil level means p itself holds a different name.
func hoist(p *placement, name string, inst *graph.Instance) (level *placement, satisfied bool) {
	blocked := false
	for at := p; at != nil; at = at.parent {
		if existing, ok := at.children[name]; ok {
			if existing.inst == inst {
				return at, true
			}
			return level, false
		}
		if !blocked && resolvesAbove(at, name, at.depth) {
			blocked = true
		}
		if !blocked {
			level = at
		}
	}
	return level, false
}

// resolvesAbove reports whether q or anything placed under it found name
// at a level shallower than depth. A copy of name placed at depth would
// shadow that resolution.
func resolvesAbove(q *placement, name string, depth int) bool {
	if l, ok := q.uses[name]; ok && l.depth < depth {
		return true
	}
	for _, c := range q.children {
		if resolvesAbove(c, name, depth) {
			return true
		}
	}
	return false
}

// notReachable returns the instances that cannot be reached from root
// specs passing rootOK through edges passing edgeOK.
func notReachable(g *graph.Graph, rootOK, edgeOK func(graph.Spec) bool) map[*graph.Instance]bool {
	reached := make(map[*graph.Instance]bool)
	var queue []*graph.Instance
	visit := func(s graph.Spec) {
		if s.Bundled {
			return
		}
		if inst, ok := g.Resolve(s); ok && !reached[inst] {
			reached[inst] = true
			queue = append(queue, inst)
		}
	}

	for _, s := range g.Root.Dependencies {
		if rootOK(s) {
			visit(s)
		}
	}
	for len(queue) > 0 {
		inst := queue[0]
		queue = queue[1:]
		for _, s := range inst.Dependencies {
			if edgeOK(s) {
				visit(s)
			}
		}
	}

	out := make(map[*graph.Instance]bool)
	for _, inst := range g.Reachable() {
		if !reached[inst] {
			out[inst] = true
		}
	}
	return out
}

// npmChildren converts a placement's children, sorted by name as npm
// writes them.
func npmChildren(p *placement, dev, optional map[*graph.Instance]bool) *ordered.Map[*npmlock.Dependency] {
	if len(p.children) == 0 {
		return nil
	}
	names := make([]string, 0, len(p.children))
	for name := range p.children {
		names = append(names, name)
	}
	sort.Strings(names)

	out := ordered.NewMap[*npmlock.Dependency]()
	for _, name := range names {
		out.Set(name, npmDependency(p.children[name], dev, optional))
	}
	return out
}

func npmDependency(p *placement, dev, optional map[*graph.Instance]bool) *npmlock.Dependency {
	inst := p.inst
	dep := &npmlock.Dependency{
		Dev:      dev[inst],
		Optional: optional[inst],
	}

	if inst.Git != nil && inst.Git.Commit != "" {
		dep.Version = inst.Git.NpmVersion()
		dep.From = inst.Git.NpmFrom(p.from)
	} else {
		dep.Version = inst.Version
		dep.Resolved = inst.Resolved
		dep.Integrity = inst.IntegrityField()
		if dep.Integrity == "" {
			dep.Integrity = inst.Sha1().SRI()
		}
	}

	if len(inst.Dependencies) > 0 {
		dep.Requires = ordered.NewMap[string]()
		for _, s := range inst.Dependencies {
			dep.Requires.Set(s.Name, s.Range)
		}
	}
	dep.Dependencies = npmChildren(p, dev, optional)
	return dep
}
