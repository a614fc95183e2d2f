// internal/farbling/session_cache.go
package farbling

import (
	"encoding/binary"
	"math/rand/v2"

	"go.uber.org/zap"
)

// Alphabet is the character set used for fabricated strings.
const Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

type stringRequest struct {
	label  string
	length int
}

// SessionCache holds the derived seed and generators for one browsing context.
//
// A SessionCache is owned by its document and shares the document's lifetime. It
// is not safe for concurrent use; all access happens on the sequence that owns
// the document.
type SessionCache struct {
	key       BrowsingContextKey
	domainKey [32]byte
	seed      uint64
	strings   map[stringRequest]string
	logger    *zap.Logger
}

// NewSessionCache derives the seed for key and returns an empty cache.
func NewSessionCache(key BrowsingContextKey, logger *zap.Logger) *SessionCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	dk := DeriveDomainKey(key)
	c := &SessionCache{
		key:       key,
		domainKey: dk,
		seed:      binary.LittleEndian.Uint64(dk[:8]),
		strings:   make(map[stringRequest]string),
		logger:    logger.Named("session_cache").With(zap.String("site", key.Site())),
	}
	c.logger.Debug("Session cache created.")
	return c
}

// Key returns the browsing context key the cache was derived from.
func (c *SessionCache) Key() BrowsingContextKey { return c.key }

// Seed returns the per-context farbling seed.
func (c *SessionCache) Seed() uint64 { return c.seed }

// DeriveSubSeed returns a seed scoped to label, independent of other labels.
func (c *SessionCache) DeriveSubSeed(label string) uint64 {
	sub := mac(c.domainKey[:], []byte(label))
	return binary.LittleEndian.Uint64(sub[:8])
}

// GenerateRandomString returns length characters from Alphabet, deterministic
// for (context, label, length). Results are memoized for the cache's lifetime.
func (c *SessionCache) GenerateRandomString(label string, length int) string {
	if length <= 0 {
		return ""
	}
	req := stringRequest{label: label, length: length}
	if s, ok := c.strings[req]; ok {
		return s
	}

	rng := c.NewSubGenerator(label)
	buf := make([]byte, length)
	for i := range buf {
		buf[i] = Alphabet[rng.IntN(len(Alphabet))]
	}
	s := string(buf)
	c.strings[req] = s
	return s
}

// MakePseudoRandomGenerator returns a new generator seeded from the context
// seed. Every call starts from the same state, so two shuffles of equal-length
// input within one context produce the same permutation.
func (c *SessionCache) MakePseudoRandomGenerator() *rand.Rand {
	return rand.New(rand.NewPCG(c.seed, binary.LittleEndian.Uint64(c.domainKey[8:16])))
}

// NewSubGenerator returns a generator seeded from DeriveSubSeed(label).
func (c *SessionCache) NewSubGenerator(label string) *rand.Rand {
	sub := mac(c.domainKey[:], []byte(label))
	return rand.New(rand.NewPCG(
		binary.LittleEndian.Uint64(sub[:8]),
		binary.LittleEndian.Uint64(sub[8:16]),
	))
}
