package random

import (
	"crypto/rand"
	mrand "math/rand/v2"
	"sync"
	"time"
)

// Source is one entry of the probe list.
type Source struct {
	Name string
	// Secure is false for generators unfit for key material.
	Secure bool
	// Available is probed on every call; nil means always available.
	Available func() bool
	// Fill overwrites every byte of p.
	Fill func(p []byte) error
}

func (s Source) available() bool {
	return s.Fill != nil && (s.Available == nil || s.Available())
}

// SystemSource reads from the operating system CSPRNG via crypto/rand.
func SystemSource() Source {
	return Source{
		Name:   "crypto/rand",
		Secure: true,
		Fill: func(p []byte) error {
			_, err := rand.Read(p)
			return err
		},
	}
}

var (
	insecureRand   = mrand.New(mrand.NewPCG(uint64(time.Now().UnixNano()), 0x6e6f64657368696d)) //nolint:gosec // intentionally insecure fallback
	insecureRandMu sync.Mutex
)

// InsecureSource draws each byte independently from math/rand. It never
// fails and is never secure.
func InsecureSource() Source {
	return Source{
		Name:   "math/rand",
		Secure: false,
		Fill: func(p []byte) error {
			insecureRandMu.Lock()
			defer insecureRandMu.Unlock()
			for i := range p {
				p[i] = byte(insecureRand.UintN(256))
			}
			return nil
		},
	}
}

// DefaultSources is the probe list used when none is configured: the host
// CSPRNG, then the insecure fallback. Hosts that expose their own secure
// generator prepend it.
func DefaultSources() []Source {
	return []Source{SystemSource(), InsecureSource()}
}
