// Package hash computes streaming content digests for duplicate detection.
// Files are read in fixed-size chunks so memory use does not depend on
// file size.
package hash

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	gohash "hash"
	"io"
	"os"
	"sync"

	"github.com/zeebo/blake3"
)

// Algorithm names a supported digest.
type Algorithm string

const (
	BLAKE3 Algorithm = "blake3" // Default. Fast, 256-bit.
	SHA256 Algorithm = "sha256"
)

// ChunkSize is the read buffer size used when hashing files.
const ChunkSize = 64 * 1024

var bufPool = sync.Pool{
	New: func() any {
		b := make([]byte, ChunkSize)
		return &b
	},
}

// Hasher produces lowercase hex digests of files and byte slices.
type Hasher interface {
	Algorithm() Algorithm
	HashFile(ctx context.Context, path string) (string, error)
	HashBytes(data []byte) string
}

// New returns the hasher for algo.
func New(algo Algorithm) (Hasher, error) {
	switch algo {
	case BLAKE3, "":
		return streamHasher{algo: BLAKE3, newDigest: func() gohash.Hash { return blake3.New() }}, nil
	case SHA256:
		return streamHasher{algo: SHA256, newDigest: sha256.New}, nil
	default:
		return nil, fmt.Errorf("unsupported hash algorithm %q (use 'blake3' or 'sha256')", algo)
	}
}

// Default returns the BLAKE3 hasher.
func Default() Hasher {
	h, _ := New(BLAKE3)
	return h
}

type streamHasher struct {
	algo      Algorithm
	newDigest func() gohash.Hash
}

func (s streamHasher) Algorithm() Algorithm { return s.algo }

// HashFile streams path through the digest, checking ctx between chunks.
func (s streamHasher) HashFile(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	d := s.newDigest()
	bp := bufPool.Get().(*[]byte)
	defer bufPool.Put(bp)
	buf := *bp

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		n, err := f.Read(buf)
		if n > 0 {
			d.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", path, err)
		}
	}
	return hex.EncodeToString(d.Sum(nil)), nil
}

func (s streamHasher) HashBytes(data []byte) string {
	d := s.newDigest()
	d.Write(data)
	return hex.EncodeToString(d.Sum(nil))
}
