package hashing

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/blake2s"
	"golang.org/x/crypto/md4"
	"golang.org/x/crypto/ripemd160"
	"golang.org/x/crypto/sha3"
	"lukechampine.com/blake3"
)

var (
	// ErrUnknownAlgorithm is returned when no accumulator is registered for a
	// digest name.
	ErrUnknownAlgorithm = errors.New("digest method not supported")

	// ErrUnsupportedData is returned by an accumulator handed a value it
	// cannot append.
	ErrUnsupportedData = errors.New("unsupported data type")
)

// Accumulator is an incremental checksum state.
type Accumulator interface {
	// Update appends data. Implementations accept []byte and string (UTF-8).
	Update(data any) error
	// Digest returns the digest of everything appended so far without
	// resetting the state.
	Digest() []byte
	// HexDigest returns Digest as lowercase hex.
	HexDigest() string
}

// Factory builds a fresh accumulator.
type Factory func() (Accumulator, error)

var factories = map[string]Factory{
	"md4":        std(md4.New),
	"md5":        std(md5.New),
	"sha1":       std(sha1.New),
	"sha224":     std(sha256.New224),
	"sha256":     std(sha256.New),
	"sha384":     std(sha512.New384),
	"sha512":     std(sha512.New),
	"sha512-224": std(sha512.New512_224),
	"sha512-256": std(sha512.New512_256),
	"sha3-224":   std(sha3.New224),
	"sha3-256":   std(sha3.New256),
	"sha3-384":   std(sha3.New384),
	"sha3-512":   std(sha3.New512),
	"shake128":   shake(sha3.NewShake128, 16),
	"shake256":   shake(sha3.NewShake256, 32),
	"ripemd160":  std(ripemd160.New),
	"blake2b512": keyed(blake2b.New512),
	"blake2s256": keyed(blake2s.New256),
	"blake3":     newBlake3,
	"xxhash64":   newXXHash64,
}

var aliases = map[string]string{
	"sha-1":       "sha1",
	"sha-224":     "sha224",
	"sha-256":     "sha256",
	"sha-384":     "sha384",
	"sha-512":     "sha512",
	"sha512/224":  "sha512-224",
	"sha512/256":  "sha512-256",
	"sha-512/224": "sha512-224",
	"sha-512/256": "sha512-256",
	"sha2-256":    "sha256",
	"sha2-512":    "sha512",
	"ripemd":      "ripemd160",
	"ripemd-160":  "ripemd160",
	"rmd160":      "ripemd160",
	"xxh64":       "xxhash64",
}

// NewAccumulator returns a fresh accumulator for algorithm. Names are case
// insensitive and accept OpenSSL-style aliases such as "RSA-SHA256".
func NewAccumulator(algorithm string) (Accumulator, error) {
	f, ok := factories[normalizeAlgorithm(algorithm)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, algorithm)
	}
	return f()
}

// Algorithms lists the registered digest names in sorted order.
func Algorithms() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func normalizeAlgorithm(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.TrimPrefix(name, "rsa-")
	if canonical, ok := aliases[name]; ok {
		return canonical
	}
	return name
}

func std(newHash func() hash.Hash) Factory {
	return func() (Accumulator, error) {
		return &hashAccumulator{h: newHash()}, nil
	}
}

func keyed(newHash func(key []byte) (hash.Hash, error)) Factory {
	return func() (Accumulator, error) {
		h, err := newHash(nil)
		if err != nil {
			return nil, err
		}
		return &hashAccumulator{h: h}, nil
	}
}

func shake(newShake func() sha3.ShakeHash, size int) Factory {
	return func() (Accumulator, error) {
		return &shakeAccumulator{h: newShake(), size: size}, nil
	}
}

func newBlake3() (Accumulator, error) {
	return &hashAccumulator{h: blake3.New(32, nil)}, nil
}

func newXXHash64() (Accumulator, error) {
	return &xxhashAccumulator{hashAccumulator{h: xxhash.New()}}, nil
}

// hashAccumulator adapts a hash.Hash.
type hashAccumulator struct {
	h hash.Hash
}

func (a *hashAccumulator) Update(data any) error {
	return write(a.h, data)
}

func (a *hashAccumulator) Digest() []byte {
	return a.h.Sum(nil)
}

func (a *hashAccumulator) HexDigest() string {
	return hex.EncodeToString(a.Digest())
}

// xxhashAccumulator formats its hex digest from the native 64-bit sum.
type xxhashAccumulator struct {
	hashAccumulator
}

func (a *xxhashAccumulator) HexDigest() string {
	return fmt.Sprintf("%016x", a.h.(*xxhash.Digest).Sum64())
}

// shakeAccumulator reads a fixed-length output from a clone so the sponge
// stays absorbable.
type shakeAccumulator struct {
	h    sha3.ShakeHash
	size int
}

func (a *shakeAccumulator) Update(data any) error {
	return write(a.h, data)
}

func (a *shakeAccumulator) Digest() []byte {
	out := make([]byte, a.size)
	_, _ = a.h.Clone().Read(out)
	return out
}

func (a *shakeAccumulator) HexDigest() string {
	return hex.EncodeToString(a.Digest())
}

func write(w io.Writer, data any) error {
	switch v := data.(type) {
	case []byte:
		_, err := w.Write(v)
		return err
	case string:
		_, err := io.WriteString(w, v)
		return err
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedData, data)
	}
}
