// internal/farbling/key.go
package farbling

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/net/publicsuffix"
)

// SessionKeySize is the length of keys produced by NewSessionKey.
const SessionKeySize = 32

var (
	// ErrEmptySessionKey is returned when a context key is built without a session key.
	ErrEmptySessionKey = errors.New("session key must not be empty")
	// ErrSessionKeyTooLong is returned for session keys the MAC cannot accept.
	ErrSessionKeyTooLong = fmt.Errorf("session key must be at most %d bytes", blake2b.Size)
	// ErrInvalidURL is returned when a document URL has no usable host.
	ErrInvalidURL = errors.New("invalid document url")
)

// BrowsingContextKey identifies a browsing context for seed derivation: the
// effective site of its document plus the secret of the browsing session.
// It is immutable once built.
type BrowsingContextKey struct {
	site       string
	sessionKey string
}

// NewBrowsingContextKey reduces rawURL to its effective site (eTLD+1) and binds
// it to sessionKey. Hosts without a registrable domain (IP literals, localhost,
// bare public suffixes) are used verbatim.
func NewBrowsingContextKey(rawURL string, sessionKey []byte) (BrowsingContextKey, error) {
	if len(sessionKey) == 0 {
		return BrowsingContextKey{}, ErrEmptySessionKey
	}
	if len(sessionKey) > blake2b.Size {
		return BrowsingContextKey{}, ErrSessionKeyTooLong
	}
	site, err := EffectiveSite(rawURL)
	if err != nil {
		return BrowsingContextKey{}, err
	}
	return BrowsingContextKey{site: site, sessionKey: string(sessionKey)}, nil
}

// EffectiveSite returns the registrable domain of rawURL's host.
func EffectiveSite(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if host == "" {
		return "", fmt.Errorf("%w: %q has no host", ErrInvalidURL, rawURL)
	}
	if net.ParseIP(host) != nil {
		return host, nil
	}
	site, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		// localhost, intranet names and bare suffixes have no eTLD+1.
		return host, nil
	}
	return site, nil
}

// Site returns the effective site the key was derived from.
func (k BrowsingContextKey) Site() string { return k.site }

// String returns the site only. The session key is never printed.
func (k BrowsingContextKey) String() string { return k.site }

// NewSessionKey returns a fresh random session key.
func NewSessionKey() ([]byte, error) {
	key := make([]byte, SessionKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to read session key entropy: %w", err)
	}
	return key, nil
}

// DeriveDomainKey returns the keyed BLAKE2b-256 MAC of the site under the session key.
func DeriveDomainKey(k BrowsingContextKey) [32]byte {
	return mac([]byte(k.sessionKey), []byte(k.site))
}

// DeriveSeed returns the per-context seed: the first eight bytes of the domain key.
func DeriveSeed(k BrowsingContextKey) uint64 {
	dk := DeriveDomainKey(k)
	return binary.LittleEndian.Uint64(dk[:8])
}

// mac computes a keyed BLAKE2b-256 digest. Keys are bounded by
// NewBrowsingContextKey, so New256 cannot fail here.
func mac(key, msg []byte) [32]byte {
	h, err := blake2b.New256(key)
	if err != nil {
		panic(fmt.Sprintf("farbling: blake2b key rejected: %v", err))
	}
	h.Write(msg)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
