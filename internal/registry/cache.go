package registry

import (
	"net/url"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/anthr76/lockbridge/internal/hash"
)

// cacheEntry is the on-disk form of Metadata.
type cacheEntry struct {
	Name      string `yaml:"name"`
	Version   string `yaml:"version"`
	Tarball   string `yaml:"tarball"`
	Shasum    string `yaml:"shasum,omitempty"`
	Integrity string `yaml:"integrity,omitempty"`
	Commit    string `yaml:"commit,omitempty"`
}

func (c *Client) cachePath(key string) string {
	return filepath.Join(c.cacheDir, url.PathEscape(key)+".yaml")
}

// readCache loads a previous lookup. Unreadable entries count as misses.
func (c *Client) readCache(key string) (*Metadata, bool) {
	if c.cacheDir == "" {
		return nil, false
	}
	data, err := os.ReadFile(c.cachePath(key))
	if err != nil {
		return nil, false
	}

	var entry cacheEntry
	if err := yaml.Unmarshal(data, &entry); err != nil {
		c.logger.Debug("discarding cache entry", "key", key, "err", err)
		return nil, false
	}

	md := &Metadata{
		Name:    entry.Name,
		Version: entry.Version,
		Tarball: entry.Tarball,
		Commit:  entry.Commit,
	}
	if entry.Shasum != "" {
		if md.Shasum, err = hash.FromHex(hash.SHA1, entry.Shasum); err != nil {
			return nil, false
		}
	}
	if entry.Integrity != "" {
		if md.Integrity, err = hash.Parse(entry.Integrity); err != nil {
			return nil, false
		}
	}
	c.logger.Debug("cache hit", "key", key)
	return md, true
}

// writeCache stores a lookup. Failures only cost a future refetch.
func (c *Client) writeCache(key string, md *Metadata) {
	if c.cacheDir == "" {
		return
	}
	entry := cacheEntry{
		Name:      md.Name,
		Version:   md.Version,
		Tarball:   md.Tarball,
		Integrity: md.Integrity.SRI(),
		Commit:    md.Commit,
	}
	if !md.Shasum.IsZero() {
		entry.Shasum = md.Shasum.Hex()
	}

	data, err := yaml.Marshal(&entry)
	if err != nil {
		c.logger.Warn("failed to encode cache entry", "key", key, "err", err)
		return
	}
	if err := os.WriteFile(c.cachePath(key), data, 0o644); err != nil {
		c.logger.Warn("failed to cache metadata", "key", key, "err", err)
	}
}
