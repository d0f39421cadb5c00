package convert

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anthr76/lockbridge/internal/graph"
	"github.com/anthr76/lockbridge/internal/registry"
)

// stallingResolver fails one package once every other lookup is in
// flight, and holds the others until their context is canceled.
type stallingResolver struct {
	failing string
	err     error
	started sync.WaitGroup

	mu       sync.Mutex
	canceled []string
}

func (r *stallingResolver) Resolve(ctx context.Context, req registry.Request) (*registry.Metadata, error) {
	if req.Name == r.failing {
		r.started.Wait()
		return nil, r.err
	}
	r.started.Done()
	<-ctx.Done()
	r.mu.Lock()
	r.canceled = append(r.canceled, req.Name)
	r.mu.Unlock()
	return nil, ctx.Err()
}

func (r *stallingResolver) ResolveGit(context.Context, *graph.GitRef) (*registry.Metadata, error) {
	return nil, errors.New("unexpected git lookup")
}

func TestReconcileCancelsPendingLookups(t *testing.T) {
	root := &graph.Instance{Name: "app", Version: "1.0.0"}
	g := graph.New(root)
	for _, name := range []string{"a", "b", "c"} {
		s := graph.Spec{Name: name, Range: "^1.0.0"}
		root.Dependencies = append(root.Dependencies, s)
		g.Link(s, g.Add(&graph.Instance{
			Name:     name,
			Version:  "1.0.0",
			Resolved: "https://registry.npmjs.org/" + name + "/-/" + name + "-1.0.0.tgz",
		}))
	}

	r := &stallingResolver{failing: "b", err: errors.New("registry exploded")}
	r.started.Add(2)

	done := make(chan error, 1)
	go func() {
		done <- Reconcile(context.Background(), g, Yarn, r, 3, quietLogger())
	}()

	select {
	case err := <-done:
		assert.Same(t, r.err, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Reconcile did not return after a failed lookup")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	sort.Strings(r.canceled)
	require.Equal(t, []string{"a", "c"}, r.canceled)
}
