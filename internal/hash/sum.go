package hash

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	gohash "hash"
	"io"
)

// Sum digests everything read from r with each of the given algorithms.
// The registry client uses it when metadata carries no digest at all.
func Sum(r io.Reader, algos ...Algorithm) ([]Hash, error) {
	writers := make([]gohash.Hash, len(algos))
	plain := make([]io.Writer, len(algos))
	for i, a := range algos {
		h, err := newHasher(a)
		if err != nil {
			return nil, err
		}
		writers[i] = h
		plain[i] = h
	}

	if _, err := io.Copy(io.MultiWriter(plain...), r); err != nil {
		return nil, fmt.Errorf("hashing stream: %w", err)
	}

	out := make([]Hash, len(algos))
	for i, a := range algos {
		out[i] = Hash{Algorithm: a, Digest: writers[i].Sum(nil)}
	}
	return out, nil
}

func newHasher(a Algorithm) (gohash.Hash, error) {
	switch a {
	case SHA1:
		return sha1.New(), nil
	case SHA256:
		return sha256.New(), nil
	case SHA384:
		return sha512.New384(), nil
	case SHA512:
		return sha512.New(), nil
	}
	return nil, fmt.Errorf("unsupported algorithm: %s", a)
}
