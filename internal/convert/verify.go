package convert

import (
	"fmt"
	"sort"

	"github.com/anthr76/lockbridge/internal/graph"
	"github.com/anthr76/lockbridge/internal/hash"
)

// Mismatch is a package both lockfiles contain with different metadata.
type Mismatch struct {
	Package string
	Reason  string
}

// Report lists the differences between a project's two lockfiles.
type Report struct {
	// MissingFromYarn are packages package-lock.json has and yarn.lock lacks.
	MissingFromYarn []string
	// MissingFromNpm are packages yarn.lock has and package-lock.json lacks.
	MissingFromNpm []string
	Mismatched     []Mismatch
}

// OK reports whether the lockfiles agree.
func (r *Report) OK() bool {
	return len(r.MissingFromYarn) == 0 && len(r.MissingFromNpm) == 0 && len(r.Mismatched) == 0
}

// Verify checks that package-lock.json and yarn.lock in dir describe the
// same packages. It compares what the files contain and performs no
// lookups, so hashes only one side records are not checked.
func (c *Converter) Verify(dir string) (*Report, error) {
	npmGraph, err := c.loadNpm(dir)
	if err != nil {
		return nil, err
	}
	yarnGraph, err := c.loadYarn(dir)
	if err != nil {
		return nil, err
	}

	npmPkgs := indexByIdentity(npmGraph)
	yarnPkgs := indexByIdentity(yarnGraph)

	report := &Report{}
	for id, a := range npmPkgs {
		b, ok := yarnPkgs[id]
		if !ok {
			report.MissingFromYarn = append(report.MissingFromYarn, id)
			continue
		}
		if reason := compareInstances(a, b); reason != "" {
			report.Mismatched = append(report.Mismatched, Mismatch{Package: id, Reason: reason})
		}
	}
	for id := range yarnPkgs {
		if _, ok := npmPkgs[id]; !ok {
			report.MissingFromNpm = append(report.MissingFromNpm, id)
		}
	}

	sort.Strings(report.MissingFromYarn)
	sort.Strings(report.MissingFromNpm)
	sort.Slice(report.Mismatched, func(i, j int) bool {
		return report.Mismatched[i].Package < report.Mismatched[j].Package
	})
	return report, nil
}

// indexByIdentity keys reachable instances by name and version, or by
// name and commit for git dependencies.
func indexByIdentity(g *graph.Graph) map[string]*graph.Instance {
	out := make(map[string]*graph.Instance)
	for _, inst := range g.Reachable() {
		id := inst.Name + "@" + inst.Version
		if inst.Git != nil && inst.Git.Commit != "" {
			id = inst.Name + "@" + inst.Git.Commit
		}
		out[id] = inst
	}
	return out
}

func compareInstances(a, b *graph.Instance) string {
	if sa, sb := a.Sha1(), b.Sha1(); !sa.IsZero() && !sb.IsZero() && !sa.Equal(sb) {
		return fmt.Sprintf("sha1 %s != %s", sa.Hex(), sb.Hex())
	}
	if !a.Integrity.IsZero() && !b.Integrity.IsZero() && !hash.Equivalent(a.Integrity, b.Integrity) {
		return fmt.Sprintf("integrity %s != %s", a.Integrity.SRI(), b.Integrity.SRI())
	}
	return ""
}
