// Package hash normalizes and compares package integrity digests.
package hash

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

// Algorithm names a digest algorithm as it appears in an SRI token.
type Algorithm string

const (
	SHA1   Algorithm = "sha1"
	SHA256 Algorithm = "sha256"
	SHA384 Algorithm = "sha384"
	SHA512 Algorithm = "sha512"
)

// size is the digest length in bytes.
func (a Algorithm) size() int {
	switch a {
	case SHA1:
		return sha1.Size
	case SHA256:
		return sha256.Size
	case SHA384:
		return sha512.Size384
	case SHA512:
		return sha512.Size
	}
	return 0
}

// strength orders algorithms for ParseIntegrity.
func (a Algorithm) strength() int {
	switch a {
	case SHA1:
		return 1
	case SHA256:
		return 2
	case SHA384:
		return 3
	case SHA512:
		return 4
	}
	return 0
}

// Hash is a digest tagged with the algorithm that produced it.
type Hash struct {
	Algorithm Algorithm
	Digest    []byte
}

// MalformedHashError reports a hash token that could not be decoded.
type MalformedHashError struct {
	Input  string
	Reason string
}

func (e *MalformedHashError) Error() string {
	return fmt.Sprintf("malformed hash %q: %s", e.Input, e.Reason)
}

// Parse decodes an SRI token ("sha512-<base64>") or a bare 40 character
// hex sha1, the form yarn appends to resolved URLs.
func Parse(token string) (Hash, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Hash{}, &MalformedHashError{Input: token, Reason: "empty"}
	}

	algo, encoded, found := strings.Cut(token, "-")
	if !found {
		if len(token) == 2*sha1.Size {
			digest, err := hex.DecodeString(token)
			if err != nil {
				return Hash{}, &MalformedHashError{Input: token, Reason: "invalid hex"}
			}
			return Hash{Algorithm: SHA1, Digest: digest}, nil
		}
		return Hash{}, &MalformedHashError{Input: token, Reason: "missing algorithm prefix"}
	}

	a := Algorithm(strings.ToLower(algo))
	if a.size() == 0 {
		return Hash{}, &MalformedHashError{Input: token, Reason: "unsupported algorithm " + algo}
	}

	// SRI options ("?foo") are allowed after the digest
	if i := strings.IndexByte(encoded, '?'); i >= 0 {
		encoded = encoded[:i]
	}

	digest, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return Hash{}, &MalformedHashError{Input: token, Reason: "invalid base64"}
	}
	if len(digest) != a.size() {
		return Hash{}, &MalformedHashError{
			Input:  token,
			Reason: fmt.Sprintf("%s digest must be %d bytes, got %d", a, a.size(), len(digest)),
		}
	}

	return Hash{Algorithm: a, Digest: digest}, nil
}

// ParseIntegrity decodes a whitespace separated SRI list and returns the
// strongest hash in it.
func ParseIntegrity(field string) (Hash, error) {
	hashes, err := ParseIntegrityList(field)
	if err != nil {
		return Hash{}, err
	}
	return Strongest(hashes), nil
}

// ParseIntegrityList decodes every token of a whitespace separated SRI
// list, in order.
func ParseIntegrityList(field string) ([]Hash, error) {
	var hashes []Hash
	for _, token := range strings.Fields(field) {
		h, err := Parse(token)
		if err != nil {
			return nil, err
		}
		hashes = append(hashes, h)
	}
	if len(hashes) == 0 {
		return nil, &MalformedHashError{Input: field, Reason: "empty"}
	}
	return hashes, nil
}

// Strongest returns the hash with the strongest algorithm, the first one
// on a tie.
func Strongest(hashes []Hash) Hash {
	var best Hash
	for _, h := range hashes {
		if best.IsZero() || h.Algorithm.strength() > best.Algorithm.strength() {
			best = h
		}
	}
	return best
}

// Find returns the first hash using algo.
func Find(hashes []Hash, algo Algorithm) (Hash, bool) {
	for _, h := range hashes {
		if h.Algorithm == algo {
			return h, true
		}
	}
	return Hash{}, false
}

// FormatIntegrity renders hashes as a space separated SRI list.
func FormatIntegrity(hashes []Hash) string {
	tokens := make([]string, 0, len(hashes))
	for _, h := range hashes {
		if !h.IsZero() {
			tokens = append(tokens, h.SRI())
		}
	}
	return strings.Join(tokens, " ")
}

// FromHex builds a Hash from a hex digest.
func FromHex(algo Algorithm, digest string) (Hash, error) {
	raw, err := hex.DecodeString(digest)
	if err != nil || len(raw) != algo.size() {
		return Hash{}, &MalformedHashError{Input: digest, Reason: "invalid " + string(algo) + " hex digest"}
	}
	return Hash{Algorithm: algo, Digest: raw}, nil
}

// IsZero reports whether h carries no digest.
func (h Hash) IsZero() bool {
	return len(h.Digest) == 0
}

// Hex returns the digest as lowercase hex.
func (h Hash) Hex() string {
	return hex.EncodeToString(h.Digest)
}

// SRI returns the subresource-integrity form, e.g. "sha1-<base64>".
func (h Hash) SRI() string {
	if h.IsZero() {
		return ""
	}
	return string(h.Algorithm) + "-" + base64.StdEncoding.EncodeToString(h.Digest)
}

func (h Hash) String() string {
	return h.SRI()
}

// Equal reports an exact match of algorithm and digest.
func (h Hash) Equal(o Hash) bool {
	return h.Algorithm == o.Algorithm && string(h.Digest) == string(o.Digest)
}

// Equivalent compares two hashes of what should be the same artifact.
// Hashes of different algorithms cannot be checked against each other
// without the tarball bytes, so they are treated as equal.
func Equivalent(a, b Hash) bool {
	if a.IsZero() || b.IsZero() {
		return false
	}
	if a.Algorithm != b.Algorithm {
		return true
	}
	return a.Equal(b)
}
