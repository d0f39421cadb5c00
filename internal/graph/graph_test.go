package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anthr76/lockbridge/internal/hash"
)

func newTestGraph() (*Graph, *Instance, *Instance, *Instance) {
	root := &Instance{Name: "app", Version: "1.0.0"}
	a := &Instance{Name: "a", Version: "1.0.0", Resolved: "https://registry.npmjs.org/a/-/a-1.0.0.tgz"}
	c1 := &Instance{Name: "c", Version: "1.2.0", Resolved: "https://registry.npmjs.org/c/-/c-1.2.0.tgz"}
	c2 := &Instance{Name: "c", Version: "2.0.0", Resolved: "https://registry.npmjs.org/c/-/c-2.0.0.tgz"}

	root.Dependencies = []Spec{{Name: "a", Range: "^1.0.0"}, {Name: "c", Range: "^2.0.0"}}
	a.Dependencies = []Spec{{Name: "c", Range: "^1.0.0"}, {Name: "inner", Range: "^1.0.0", Bundled: true}}
	a.AddBundled("inner")

	g := New(root)
	g.Link(root.Dependencies[0], g.Add(a))
	g.Link(root.Dependencies[1], g.Add(c2))
	g.Link(a.Dependencies[0], g.Add(c1))
	return g, a, c1, c2
}

func TestAddDeduplicatesByResolution(t *testing.T) {
	g, a, _, _ := newTestGraph()

	dup := &Instance{Name: "a", Version: "1.0.0", Resolved: a.Resolved}
	assert.Same(t, a, g.Add(dup))
	assert.Len(t, g.ByName("a"), 1)

	// same name, different resolution coexists
	other := &Instance{Name: "a", Version: "1.1.0", Resolved: "https://registry.npmjs.org/a/-/a-1.1.0.tgz"}
	assert.Same(t, other, g.Add(other))
	assert.Len(t, g.ByName("a"), 2)
}

func TestLinkFirstWins(t *testing.T) {
	g, a, c1, c2 := newTestGraph()

	assert.True(t, g.Link(Spec{Name: "c", Range: "^1.0.0"}, c1))
	assert.False(t, g.Link(Spec{Name: "c", Range: "^1.0.0"}, c2))

	got, ok := g.Resolve(Spec{Name: "c", Range: "^1.0.0"})
	require.True(t, ok)
	assert.Same(t, c1, got)

	got, ok = g.Resolve(Spec{Name: "a", Range: "^1.0.0"})
	require.True(t, ok)
	assert.Same(t, a, got)
}

func TestInstancesOrder(t *testing.T) {
	g, _, _, _ := newTestGraph()

	var ids []string
	for _, inst := range g.Instances() {
		ids = append(ids, inst.String())
	}
	assert.Equal(t, []string{"a@1.0.0", "c@1.2.0", "c@2.0.0"}, ids)
}

func TestWalkSkipsBundled(t *testing.T) {
	g, _, _, _ := newTestGraph()

	var visited []string
	g.Walk(func(parent *Instance, s Spec, child *Instance) {
		visited = append(visited, parent.Name+"->"+child.String())
	})
	assert.Equal(t, []string{"app->a@1.0.0", "app->c@2.0.0", "a->c@1.2.0"}, visited)
	assert.Len(t, g.Reachable(), 3)
	assert.NoError(t, g.Validate())
}

func TestValidateReportsDangling(t *testing.T) {
	g, a, _, _ := newTestGraph()
	a.Dependencies = append(a.Dependencies, Spec{Name: "missing", Range: "^3.0.0"})

	err := g.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing@^3.0.0 (required by a)")
}

func TestKeys(t *testing.T) {
	g, _, c1, _ := newTestGraph()
	g.Link(Spec{Name: "c", Range: "~1.2.0"}, c1)

	assert.Equal(t, []string{"c@^1.0.0", "c@~1.2.0"}, g.Keys(c1))
}

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.0.0", "1.0.0", 0},
		{"1.2.0", "1.10.0", -1},
		{"2.0.0", "2.0.0-beta.1", 1},
		{"1.0.0", "not-semver", -1},
		{"abc", "abd", -1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CompareVersions(tt.a, tt.b), "%s vs %s", tt.a, tt.b)
	}
}

func TestIntegrityField(t *testing.T) {
	const field = "sha1-QXCBC941kIyJbgQKFThXxMKqGsI= sha512-HvT1N2ZImHjm8fzNjKxzEByoyjAX1cPy1QQvyTeT6Qs1YTsANyinaHGotqvpaEKsaLzbdk6qqOGyum0B0uRe4w=="
	hashes, err := hash.ParseIntegrityList(field)
	require.NoError(t, err)

	inst := &Instance{Name: "a", Integrity: hash.Strongest(hashes), IntegrityList: hashes}
	assert.Equal(t, field, inst.IntegrityField())

	inst.IntegrityList = nil
	assert.Equal(t, hashes[1].SRI(), inst.IntegrityField())

	assert.Empty(t, (&Instance{Name: "b"}).IntegrityField())
}
