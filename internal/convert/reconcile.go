package convert

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/anthr76/lockbridge/internal/graph"
	"github.com/anthr76/lockbridge/internal/registry"
)

// Target is the lockfile format a graph is being prepared for.
type Target int

const (
	Yarn Target = iota
	Npm
)

func (t Target) String() string {
	if t == Npm {
		return "npm"
	}
	return "yarn"
}

// DefaultConcurrency bounds parallel resolver lookups.
const DefaultConcurrency = 8

// Resolver supplies metadata a lockfile lacks. *registry.Client
// implements it.
type Resolver interface {
	Resolve(ctx context.Context, req registry.Request) (*registry.Metadata, error)
	ResolveGit(ctx context.Context, ref *graph.GitRef) (*registry.Metadata, error)
}

// Reconcile fills in the metadata target needs for every reachable
// instance. Whatever can be derived from data already in the graph is;
// the rest is looked up through resolver, concurrently. The first lookup
// error cancels the others and is returned as is.
func Reconcile(ctx context.Context, g *graph.Graph, target Target, resolver Resolver, concurrency int, logger *log.Logger) error {
	if logger == nil {
		logger = log.Default()
	}
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}

	var pending []*graph.Instance
	for _, inst := range g.Reachable() {
		deriveLocal(inst)
		if needsLookup(inst, target) {
			pending = append(pending, inst)
		}
	}
	if len(pending) == 0 {
		return nil
	}
	if resolver == nil {
		return fmt.Errorf("%s is missing %s metadata and no resolver is configured", pending[0], target)
	}

	logger.Debug("resolving missing metadata", "packages", len(pending), "target", target)

	var resolved atomic.Int32
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(concurrency)
	for _, inst := range pending {
		if ctx.Err() != nil {
			break
		}
		eg.Go(func() error {
			if err := lookup(ctx, inst, resolver, logger); err != nil {
				return err
			}
			resolved.Add(1)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	logger.Infof("Resolved %d packages", resolved.Load())
	return nil
}

// deriveLocal fills each hash field from the other when the sha1 is known.
func deriveLocal(inst *graph.Instance) {
	if inst.Git != nil {
		return
	}
	if sha1 := inst.Sha1(); !sha1.IsZero() {
		if inst.Shasum.IsZero() {
			inst.Shasum = sha1
		}
		if inst.Integrity.IsZero() {
			inst.Integrity = sha1
		}
	}
}

func needsLookup(inst *graph.Instance, target Target) bool {
	if inst.Git != nil {
		if inst.Git.Commit == "" {
			return true
		}
		return target == Yarn && inst.Version == ""
	}
	if inst.Version == "" || inst.Resolved == "" {
		return true
	}
	if target == Yarn {
		return inst.Shasum.IsZero()
	}
	return inst.Integrity.IsZero()
}

// lookup queries resolver for one instance. It only writes to inst, and
// never overwrites metadata inst already has.
func lookup(ctx context.Context, inst *graph.Instance, resolver Resolver, logger *log.Logger) error {
	if inst.Git != nil {
		logger.Debug("looking up git dependency", "package", inst.Name, "repo", inst.Git.Owner+"/"+inst.Git.Repo)
		md, err := resolver.ResolveGit(ctx, inst.Git)
		if err != nil {
			return err
		}
		if inst.Version == "" {
			inst.Version = md.Version
		}
		if inst.Git.Commit == "" && md.Commit != "" {
			ref := *inst.Git
			ref.Commit = md.Commit
			inst.Git = &ref
		}
		return nil
	}

	logger.Debug("looking up package", "package", inst.Name, "version", inst.Version)
	md, err := resolver.Resolve(ctx, registry.Request{
		Name:       inst.Name,
		Version:    inst.Version,
		TarballURL: inst.Resolved,
	})
	if err != nil {
		return err
	}
	if inst.Version == "" {
		inst.Version = md.Version
	}
	if inst.Resolved == "" {
		inst.Resolved = md.Tarball
	}
	if inst.Shasum.IsZero() {
		inst.Shasum = md.Shasum
	}
	if inst.Integrity.IsZero() {
		inst.Integrity = md.Integrity
		if inst.Integrity.IsZero() {
			inst.Integrity = md.Shasum
		}
	}
	return nil
}
