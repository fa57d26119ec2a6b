package hashclock

import (
	"fmt"

	"github.com/tolelom/revclock/crypto"
)

// HashClockUpdater holds the secret seed and lifetime for a hash-chain
// clock and produces timestamp certificates. It is the only thing that
// ever sees the seed; never pack it onto an untrusted channel — use
// package keystore for local, password-protected persistence instead.
type HashClockUpdater struct {
	seed     []byte
	lifetime int64
}

// Lifetime returns the chain's declared maximum advancement count.
func (u *HashClockUpdater) Lifetime() int64 { return u.lifetime }

// Advance produces the certificate for time t: (t, H^(lifetime-t)(seed)).
// It fails if t is out of [0, lifetime].
func (u *HashClockUpdater) Advance(t int64) (Certificate, error) {
	if t < 0 || t > u.lifetime {
		return Certificate{}, fmt.Errorf("%w: time %d out of range [0,%d]", ErrInvalidArgument, t, u.lifetime)
	}
	digest := crypto.HashPow(u.seed, u.lifetime-t)
	return Certificate{Time: t, Digest: digest}, nil
}
