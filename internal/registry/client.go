// Package registry looks up package metadata that a lockfile is missing,
// from an npm compatible registry or from GitHub for git dependencies.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/git-lfs/go-netrc/netrc"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/anthr76/lockbridge/internal/graph"
	"github.com/anthr76/lockbridge/internal/hash"
)

const (
	// DefaultRegistry is the public npm registry.
	DefaultRegistry  = "https://registry.npmjs.org"
	DefaultGitHubRaw = "https://raw.githubusercontent.com"
	DefaultGitHubAPI = "https://api.github.com"

	defaultMemoSize = 1024
)

// Request identifies a registry package version. TarballURL is the
// resolved URL from the lockfile, when it has one.
type Request struct {
	Name       string
	Version    string
	TarballURL string
}

// Metadata is what a lookup returns. Values are shared between callers
// through the memo and must not be modified.
type Metadata struct {
	Name      string
	Version   string
	Tarball   string
	Shasum    hash.Hash
	Integrity hash.Hash
	// Commit is set for git lookups.
	Commit string
}

// Options configures a Client.
type Options struct {
	Registry  string
	GitHubRaw string
	GitHubAPI string
	// CacheDir holds the on-disk metadata cache. Empty disables it.
	CacheDir string
	Timeout  time.Duration
	MemoSize int
	// Netrc supplies basic auth credentials per host.
	Netrc  *netrc.Netrc
	Logger *log.Logger
}

// Client resolves metadata over HTTP. It is safe for concurrent use.
type Client struct {
	registry  string
	githubRaw string
	githubAPI string
	cacheDir  string
	http      *http.Client
	logger    *log.Logger

	memo  *lru.Cache[string, *Metadata]
	group singleflight.Group
}

// NewClient creates a Client, filling unset options with the public
// registry and GitHub endpoints.
func NewClient(opts Options) (*Client, error) {
	c := &Client{
		registry:  strings.TrimRight(opts.Registry, "/"),
		githubRaw: strings.TrimRight(opts.GitHubRaw, "/"),
		githubAPI: strings.TrimRight(opts.GitHubAPI, "/"),
		cacheDir:  opts.CacheDir,
		logger:    opts.Logger,
	}
	if c.registry == "" {
		c.registry = DefaultRegistry
	}
	if c.githubRaw == "" {
		c.githubRaw = DefaultGitHubRaw
	}
	if c.githubAPI == "" {
		c.githubAPI = DefaultGitHubAPI
	}
	if c.logger == nil {
		c.logger = log.Default()
	}

	if c.cacheDir != "" {
		if err := os.MkdirAll(c.cacheDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	size := opts.MemoSize
	if size <= 0 {
		size = defaultMemoSize
	}
	memo, err := lru.New[string, *Metadata](size)
	if err != nil {
		return nil, fmt.Errorf("creating memo: %w", err)
	}
	c.memo = memo

	transport := http.DefaultTransport
	if opts.Netrc != nil {
		transport = &authTransport{base: transport, netrc: opts.Netrc}
	}
	c.http = &http.Client{Timeout: opts.Timeout, Transport: transport}

	return c, nil
}

// LoadNetrc parses $NETRC or ~/.netrc. A missing file yields an empty set.
func LoadNetrc() (*netrc.Netrc, error) {
	path := os.Getenv("NETRC")
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		path = filepath.Join(home, ".netrc")
	}

	n, err := netrc.ParseFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("parsing netrc: %w", err)
	}
	if n == nil {
		n = &netrc.Netrc{}
	}
	return n, nil
}

// Resolve returns the registry metadata for one package version. When the
// registry omits both digests the tarball is downloaded and hashed.
func (c *Client) Resolve(ctx context.Context, req Request) (*Metadata, error) {
	if req.Version == "" {
		return nil, fmt.Errorf("resolving %s: no version to look up", req.Name)
	}
	key := c.registry + "/" + req.Name + "@" + req.Version
	return c.lookup(ctx, key, func(ctx context.Context) (*Metadata, error) {
		return c.fetchVersion(ctx, req)
	})
}

// ResolveGit reads package.json from the repository at the referenced
// commit. A branch or tag is first resolved to a commit.
func (c *Client) ResolveGit(ctx context.Context, ref *graph.GitRef) (*Metadata, error) {
	key := "github:" + ref.Owner + "/" + ref.Repo + "#" + ref.Commit
	if ref.Commit == "" {
		key = "github:" + ref.Owner + "/" + ref.Repo + "#" + ref.Committish
	}
	return c.lookup(ctx, key, func(ctx context.Context) (*Metadata, error) {
		return c.fetchGit(ctx, ref)
	})
}

// lookup checks the memo and disk cache, then runs fetch once per key no
// matter how many goroutines ask.
func (c *Client) lookup(ctx context.Context, key string, fetch func(context.Context) (*Metadata, error)) (*Metadata, error) {
	if md, ok := c.memo.Get(key); ok {
		return md, nil
	}
	if md, ok := c.readCache(key); ok {
		c.memo.Add(key, md)
		return md, nil
	}

	v, err, shared := c.group.Do(key, func() (any, error) {
		md, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.memo.Add(key, md)
		c.writeCache(key, md)
		return md, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.logger.Debug("shared lookup", "key", key)
	}
	return v.(*Metadata), nil
}

type versionDoc struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Dist    struct {
		Tarball   string `json:"tarball"`
		Shasum    string `json:"shasum"`
		Integrity string `json:"integrity"`
	} `json:"dist"`
}

func (c *Client) fetchVersion(ctx context.Context, req Request) (*Metadata, error) {
	docURL := c.registry + "/" + escapeName(req.Name) + "/" + url.PathEscape(req.Version)
	c.logger.Debug("registry lookup", "package", req.Name, "version", req.Version, "url", docURL)

	resp, err := c.get(ctx, docURL, "application/json")
	if err != nil {
		return nil, &UnavailableError{URL: docURL, Err: err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, &NotFoundError{Name: req.Name, URL: c.tarballURL(req)}
	default:
		return nil, &UnavailableError{URL: docURL, Status: resp.Status}
	}

	var doc versionDoc
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", docURL, err)
	}

	md := &Metadata{
		Name:    req.Name,
		Version: doc.Version,
		Tarball: doc.Dist.Tarball,
	}
	if md.Version == "" {
		md.Version = req.Version
	}
	if md.Tarball == "" {
		md.Tarball = c.tarballURL(req)
	}
	if doc.Dist.Shasum != "" {
		if md.Shasum, err = hash.FromHex(hash.SHA1, doc.Dist.Shasum); err != nil {
			c.logger.Warn("ignoring registry shasum", "package", req.Name, "err", err)
		}
	}
	if doc.Dist.Integrity != "" {
		if md.Integrity, err = hash.ParseIntegrity(doc.Dist.Integrity); err != nil {
			c.logger.Warn("ignoring registry integrity", "package", req.Name, "err", err)
		}
	}
	if md.Shasum.IsZero() && md.Integrity.Algorithm == hash.SHA1 {
		md.Shasum = md.Integrity
	}

	if md.Shasum.IsZero() {
		sums, err := c.digestTarball(ctx, req.Name, md.Tarball)
		if err != nil {
			return nil, err
		}
		md.Shasum = sums[0]
		if md.Integrity.IsZero() {
			md.Integrity = sums[1]
		}
	}

	return md, nil
}

// digestTarball downloads a tarball and returns its sha1 and sha512.
func (c *Client) digestTarball(ctx context.Context, name, tarball string) ([]hash.Hash, error) {
	c.logger.Debug("hashing tarball", "package", name, "url", tarball)

	resp, err := c.get(ctx, tarball, "")
	if err != nil {
		return nil, &UnavailableError{URL: tarball, Err: err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, &NotFoundError{Name: name, URL: tarball}
	default:
		return nil, &UnavailableError{URL: tarball, Status: resp.Status}
	}

	sums, err := hash.Sum(resp.Body, hash.SHA1, hash.SHA512)
	if err != nil {
		return nil, &UnavailableError{URL: tarball, Err: err}
	}
	return sums, nil
}

func (c *Client) fetchGit(ctx context.Context, ref *graph.GitRef) (*Metadata, error) {
	repo := ref.Owner + "/" + ref.Repo
	commit := ref.Commit
	if commit == "" {
		var err error
		if commit, err = c.resolveCommit(ctx, ref); err != nil {
			return nil, err
		}
	}

	rawURL := c.githubRaw + "/" + repo + "/" + commit + "/package.json"
	c.logger.Debug("git lookup", "repo", repo, "commit", commit, "url", rawURL)

	resp, err := c.get(ctx, rawURL, "")
	if err != nil {
		return nil, &UnavailableError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, &NotFoundError{Name: repo, URL: rawURL}
	default:
		return nil, &UnavailableError{URL: rawURL, Status: resp.Status}
	}

	var pkg struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&pkg); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", rawURL, err)
	}

	resolved := *ref
	resolved.Commit = commit
	return &Metadata{
		Name:    pkg.Name,
		Version: pkg.Version,
		Tarball: resolved.TarballURL(),
		Commit:  commit,
	}, nil
}

// resolveCommit asks the GitHub API for the SHA a branch or tag points at.
func (c *Client) resolveCommit(ctx context.Context, ref *graph.GitRef) (string, error) {
	committish := ref.Committish
	if committish == "" {
		committish = "HEAD"
	}
	apiURL := c.githubAPI + "/repos/" + ref.Owner + "/" + ref.Repo + "/commits/" + url.PathEscape(committish)

	resp, err := c.get(ctx, apiURL, "application/vnd.github.sha")
	if err != nil {
		return "", &UnavailableError{URL: apiURL, Err: err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound, http.StatusUnprocessableEntity:
		return "", &NotFoundError{Name: ref.Owner + "/" + ref.Repo, URL: apiURL}
	default:
		return "", &UnavailableError{URL: apiURL, Status: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 256))
	if err != nil {
		return "", &UnavailableError{URL: apiURL, Err: err}
	}
	sha := strings.ToLower(strings.TrimSpace(string(body)))
	if len(sha) != 40 {
		return "", fmt.Errorf("resolving %s: unexpected commit %q", apiURL, sha)
	}
	return sha, nil
}

func (c *Client) get(ctx context.Context, target, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	return c.http.Do(req)
}

// tarballURL is the lockfile's URL when known, otherwise the registry's
// conventional tarball location.
func (c *Client) tarballURL(req Request) string {
	if req.TarballURL != "" {
		return req.TarballURL
	}
	return c.registry + "/" + req.Name + "/-/" + baseName(req.Name) + "-" + req.Version + ".tgz"
}

// escapeName encodes the scope separator the way the registry expects.
func escapeName(name string) string {
	return strings.Replace(name, "/", "%2f", 1)
}

// baseName strips the scope from a package name.
func baseName(name string) string {
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		return name[i+1:]
	}
	return name
}

// authTransport adds basic auth from netrc for the request's host.
type authTransport struct {
	base  http.RoundTripper
	netrc *netrc.Netrc
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("Authorization") == "" {
		if machine := t.netrc.FindMachine(req.URL.Hostname(), ""); machine != nil && machine.Login != "" {
			req = req.Clone(req.Context())
			req.SetBasicAuth(machine.Login, machine.Password)
		}
	}
	return t.base.RoundTrip(req)
}
