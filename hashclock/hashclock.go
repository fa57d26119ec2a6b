// Package hashclock implements the SHA-256 hash-chain reverse-entropy clock:
// an owner pre-computes a finite chain of iterated hashes and reveals
// intermediate digests in reverse order to advance time, while an observer
// holding only the chain's terminal digest (its uuid) verifies every
// advancement by re-hashing forward.
package hashclock

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/tolelom/revclock/crypto"
	"github.com/tolelom/revclock/events"
	"github.com/tolelom/revclock/wire"
)

// Error kinds. ErrBadFormat is wire.ErrBadFormat so callers can match either.
var (
	ErrInvalidArgument = errors.New("hashclock: invalid argument")
	ErrInvalidUpdate   = errors.New("hashclock: invalid update")
	ErrBadFormat       = wire.ErrBadFormat
)

// Certificate is a timestamp certificate: the claimed time and the chain
// digest at that depth. Digest is 32 bytes for every time except the chain's
// own terminal position (time == lifetime), where it is the raw seed.
type Certificate struct {
	Time   int64
	Digest []byte
}

// HashClock is a reverse-entropy hash-chain clock. The zero value (via New)
// is empty; call Setup to materialize a fresh chain, or Unpack to rebuild
// one from a packed observer clock.
type HashClock struct {
	isSetup  bool
	lifetime int64
	uuid     [32]byte
	time     int64
	digest   []byte
	emitter  *events.Emitter
}

// SetEmitter attaches e as the clock's lifecycle event sink; subsequent
// Update calls emit to it. A nil clock emitter (the default) makes Update
// a no-op with respect to events.
func (c *HashClock) SetEmitter(e *events.Emitter) { c.emitter = e }

func (c *HashClock) emit(typ events.EventType, data map[string]any) {
	if c.emitter == nil {
		return
	}
	c.emitter.Emit(events.Event{Type: typ, UUID: hex.EncodeToString(c.uuid[:]), Data: data})
}

// New returns an empty HashClock, ready for Setup.
func New() *HashClock {
	return &HashClock{time: -1}
}

// NewObserver returns a HashClock already bound to a known uuid and
// lifetime but with no advancements applied yet (time == -1, digest ==
// uuid). This is how a VectorHashClock seeds a per-node sub-clock whose
// uuid it already knows out of band, without ever holding that node's seed.
func NewObserver(uuid [32]byte, lifetime int64) (*HashClock, error) {
	if lifetime < 0 {
		return nil, fmt.Errorf("%w: lifetime must be >= 0, got %d", ErrInvalidArgument, lifetime)
	}
	return &HashClock{
		isSetup:  true,
		lifetime: lifetime,
		uuid:     uuid,
		time:     -1,
		digest:   append([]byte(nil), uuid[:]...),
	}, nil
}

// Setup generates a fresh random seed of seedSize bytes, computes the
// clock's uuid as H^(lifetime+1)(seed), and returns an updater that retains
// the seed. The clock itself never sees the seed.
func (c *HashClock) Setup(lifetime int64, seedSize int) (*HashClockUpdater, error) {
	if c.isSetup {
		return nil, fmt.Errorf("%w: clock already set up", ErrInvalidArgument)
	}
	if lifetime < 0 {
		return nil, fmt.Errorf("%w: lifetime must be >= 0, got %d", ErrInvalidArgument, lifetime)
	}
	if seedSize <= 0 {
		return nil, fmt.Errorf("%w: seed size must be > 0, got %d", ErrInvalidArgument, seedSize)
	}
	seed := make([]byte, seedSize)
	if _, err := rand.Read(seed); err != nil {
		return nil, fmt.Errorf("hashclock: generate seed: %w", err)
	}
	uuid := crypto.HashPow(seed, lifetime+1)

	c.isSetup = true
	c.lifetime = lifetime
	copy(c.uuid[:], uuid)
	c.time = -1
	c.digest = uuid

	return &HashClockUpdater{seed: seed, lifetime: lifetime}, nil
}

// UUID returns the clock's public identifier.
func (c *HashClock) UUID() [32]byte { return c.uuid }

// Lifetime returns the clock's declared maximum advancement count.
func (c *HashClock) Lifetime() int64 { return c.lifetime }

// Read returns the clock's current state.
func (c *HashClock) Read() Certificate {
	return Certificate{Time: c.time, Digest: append([]byte(nil), c.digest...)}
}

// Update validates cert against the clock's current state and, on success,
// advances the clock's state to it. On failure the clock is left unchanged
// and an error wrapping ErrInvalidUpdate is returned (strong exception
// safety). Update mutates the receiver and returns it, so callers may chain
// clk, err := clk.Update(cert) or discard the return value.
func (c *HashClock) Update(cert Certificate) (*HashClock, error) {
	if !c.isSetup {
		return c, fmt.Errorf("%w: clock not set up", ErrInvalidArgument)
	}
	if ok, reason := c.checkCertificate(cert); !ok {
		c.emit(events.EventRejected, map[string]any{"reason": reason, "time": cert.Time})
		return c, fmt.Errorf("%w: %s", ErrInvalidUpdate, reason)
	}
	c.time = cert.Time
	c.digest = append([]byte(nil), cert.Digest...)
	c.emit(events.EventAdvanced, map[string]any{"time": c.time})
	if c.HasTerminated() {
		c.emit(events.EventTerminated, nil)
	}
	return c, nil
}

// VerifyTimestamp reports whether cert would be accepted by Update, without
// mutating the clock.
func (c *HashClock) VerifyTimestamp(cert Certificate) bool {
	if !c.isSetup {
		return false
	}
	ok, _ := c.checkCertificate(cert)
	return ok
}

func (c *HashClock) checkCertificate(cert Certificate) (bool, string) {
	if cert.Time <= c.time {
		return false, fmt.Sprintf("time %d not strictly greater than current %d", cert.Time, c.time)
	}
	if cert.Time > c.lifetime {
		return false, fmt.Sprintf("time %d exceeds lifetime %d", cert.Time, c.lifetime)
	}
	k := cert.Time - c.time
	forwarded := crypto.HashPowFrom(cert.Digest, k)
	if !bytes.Equal(forwarded, c.digest) {
		return false, "certificate does not chain to the current state"
	}
	return true, ""
}

// Verify is a self-consistency check: it re-derives H^(time+1)(digest) and
// checks equality against uuid. This is what lets a deserialized clock
// (built purely from Unpack, with no access to the original seed) prove to
// itself that its own state is internally consistent.
func (c *HashClock) Verify() bool {
	if !c.isSetup {
		return false
	}
	forwarded := crypto.HashPowFrom(c.digest, c.time+1)
	return bytes.Equal(forwarded, c.uuid[:])
}

// HasTerminated reports whether the clock has reached its declared lifetime.
func (c *HashClock) HasTerminated() bool {
	return c.isSetup && c.time == c.lifetime
}

// CanBeUpdated reports whether at least one more advancement is possible.
func (c *HashClock) CanBeUpdated() bool {
	return c.isSetup && c.time < c.lifetime
}

// HappensBefore reports whether certificate a causally precedes certificate
// b on the same hash chain: a.Time < b.Time and iterating Hash on b.Digest
// exactly b.Time-a.Time times reproduces a.Digest.
func HappensBefore(a, b Certificate) bool {
	if !(a.Time < b.Time) {
		return false
	}
	k := b.Time - a.Time
	return bytes.Equal(crypto.HashPowFrom(b.Digest, k), a.Digest)
}
