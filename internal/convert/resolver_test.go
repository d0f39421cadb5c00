package convert

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/anthr76/lockbridge/internal/graph"
	"github.com/anthr76/lockbridge/internal/hash"
	"github.com/anthr76/lockbridge/internal/registry"
)

// fakeResolver serves canned metadata and records every call.
type fakeResolver struct {
	mu       sync.Mutex
	packages map[string]*registry.Metadata
	git      map[string]*registry.Metadata
	errs     map[string]error
	calls    []string
	gitCalls []string
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{
		packages: make(map[string]*registry.Metadata),
		git:      make(map[string]*registry.Metadata),
		errs:     make(map[string]error),
	}
}

func (f *fakeResolver) addSha1(t *testing.T, name, version, sha1Hex string) {
	t.Helper()
	h, err := hash.FromHex(hash.SHA1, sha1Hex)
	require.NoError(t, err)
	f.packages[name+"@"+version] = &registry.Metadata{Name: name, Version: version, Shasum: h}
}

func (f *fakeResolver) Resolve(_ context.Context, req registry.Request) (*registry.Metadata, error) {
	key := req.Name + "@" + req.Version
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, key)
	if err, ok := f.errs[key]; ok {
		return nil, err
	}
	if md, ok := f.packages[key]; ok {
		return md, nil
	}
	return nil, &registry.NotFoundError{Name: req.Name, URL: req.TarballURL}
}

func (f *fakeResolver) ResolveGit(_ context.Context, ref *graph.GitRef) (*registry.Metadata, error) {
	key := ref.Owner + "/" + ref.Repo
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gitCalls = append(f.gitCalls, key)
	if md, ok := f.git[key]; ok {
		return md, nil
	}
	return nil, &registry.NotFoundError{Name: key, URL: ref.TarballURL()}
}
