// Package convert translates between package-lock.json and yarn.lock by
// way of a shared dependency graph.
package convert

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"

	"github.com/anthr76/lockbridge/internal/graph"
	"github.com/anthr76/lockbridge/internal/manifest"
	"github.com/anthr76/lockbridge/internal/npmlock"
	"github.com/anthr76/lockbridge/internal/yarnlock"
)

// Converter runs translations for project directories. It holds no
// per-translation state and may be reused.
type Converter struct {
	resolver    Resolver
	logger      *log.Logger
	concurrency int
}

// Option configures a Converter.
type Option func(*Converter)

// WithLogger sets the logger used for progress and diagnostics.
func WithLogger(l *log.Logger) Option { return func(c *Converter) { c.logger = l } }

// WithConcurrency bounds the number of parallel resolver lookups.
func WithConcurrency(n int) Option { return func(c *Converter) { c.concurrency = n } }

// New creates a Converter. resolver may be nil when every lockfile it
// will see is complete.
func New(resolver Resolver, opts ...Option) *Converter {
	c := &Converter{
		resolver:    resolver,
		logger:      log.Default(),
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NpmToYarn reads package.json and package-lock.json from dir and returns
// the equivalent yarn.lock.
func (c *Converter) NpmToYarn(ctx context.Context, dir string) ([]byte, error) {
	g, err := c.loadNpm(dir)
	if err != nil {
		return nil, err
	}
	if err := Reconcile(ctx, g, Yarn, c.resolver, c.concurrency, c.logger); err != nil {
		return nil, err
	}
	return ToYarn(g)
}

// YarnToNpm reads package.json and yarn.lock from dir and returns the
// equivalent package-lock.json.
func (c *Converter) YarnToNpm(ctx context.Context, dir string) ([]byte, error) {
	g, err := c.loadYarn(dir)
	if err != nil {
		return nil, err
	}
	if err := Reconcile(ctx, g, Npm, c.resolver, c.concurrency, c.logger); err != nil {
		return nil, err
	}
	return ToNpm(g)
}

func (c *Converter) loadNpm(dir string) (*graph.Graph, error) {
	m, err := manifest.Load(dir)
	if err != nil {
		return nil, err
	}
	lf, err := npmlock.LoadDir(dir)
	if err != nil {
		var syntaxErr *npmlock.SyntaxError
		if errors.As(err, &syntaxErr) {
			return nil, &MalformedLockfileError{File: npmlock.DefaultLockfile, Err: err}
		}
		return nil, err
	}

	g, err := BuildFromNpm(m, lf, c.logger)
	if err != nil {
		return nil, err
	}
	if err := g.Validate(); err != nil {
		return nil, &MalformedLockfileError{File: npmlock.DefaultLockfile, Err: err}
	}
	c.logger.Debug("read package-lock.json", "packages", len(g.Reachable()))
	return g, nil
}

func (c *Converter) loadYarn(dir string) (*graph.Graph, error) {
	m, err := manifest.Load(dir)
	if err != nil {
		return nil, err
	}
	lf, err := yarnlock.LoadDir(dir)
	if err != nil {
		var syntaxErr *yarnlock.SyntaxError
		if errors.As(err, &syntaxErr) {
			return nil, &MalformedLockfileError{File: yarnlock.DefaultLockfile, Err: err}
		}
		return nil, err
	}

	g, err := BuildFromYarn(m, lf, c.logger)
	if err != nil {
		return nil, err
	}
	if err := g.Validate(); err != nil {
		return nil, &MalformedLockfileError{File: yarnlock.DefaultLockfile, Err: err}
	}
	c.logger.Debug("read yarn.lock", "packages", len(g.Reachable()))
	return g, nil
}
