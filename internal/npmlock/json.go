package npmlock

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultLockfile is the default lockfile name.
	DefaultLockfile = "package-lock.json"
)

// SyntaxError reports a package-lock.json that cannot be decoded.
type SyntaxError struct {
	Err error
}

func (e *SyntaxError) Error() string {
	return "parsing " + DefaultLockfile + ": " + e.Err.Error()
}

func (e *SyntaxError) Unwrap() error { return e.Err }

// Load reads a lockfile from the given path.
func Load(path string) (*Lockfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading lockfile: %w", err)
	}
	return Parse(data)
}

// LoadDir reads package-lock.json from dir.
func LoadDir(dir string) (*Lockfile, error) {
	return Load(filepath.Join(dir, DefaultLockfile))
}

// Parse decodes package-lock.json content. A UTF-8 BOM and CRLF line
// endings are accepted.
func Parse(data []byte) (*Lockfile, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	var lf Lockfile
	if err := json.Unmarshal(data, &lf); err != nil {
		return nil, &SyntaxError{Err: err}
	}
	if lf.LockfileVersion != LockfileVersion {
		return nil, &SyntaxError{Err: fmt.Errorf("unsupported lockfileVersion %d", lf.LockfileVersion)}
	}
	return &lf, nil
}

// Marshal renders the lockfile the way npm writes it: two-space indent,
// no HTML escaping, trailing newline.
func (lf *Lockfile) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(lf); err != nil {
		return nil, fmt.Errorf("marshaling %s: %w", DefaultLockfile, err)
	}
	return buf.Bytes(), nil
}
