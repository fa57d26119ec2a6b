// Package pointclock implements the Ed25519 point-chain reverse-entropy
// clock: an owner walks a private scalar chain backward from a
// pre-committed public point and reveals points (optionally signed) in
// reverse order to advance time. Unlike the hash chain it carries an
// attached signing capability, at the cost of having no termination
// argument — t <= lifetime is enforced purely as a policy bound.
package pointclock

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"filippo.io/edwards25519"

	"github.com/tolelom/revclock/crypto"
	"github.com/tolelom/revclock/events"
	"github.com/tolelom/revclock/wire"
)

// Error kinds. ErrBadFormat is wire.ErrBadFormat so callers can match either.
var (
	ErrInvalidArgument  = errors.New("pointclock: invalid argument")
	ErrInvalidUpdate    = errors.New("pointclock: invalid update")
	ErrInvalidSignature = errors.New("pointclock: invalid signature")
	ErrBadFormat        = wire.ErrBadFormat
)

// Certificate is a point-chain timestamp certificate. Message and
// Signature are both set or both nil: a bare certificate carries chain
// containment proof only, a signed one additionally proves the owner held
// the chain's private scalar at depth Time.
type Certificate struct {
	Time      int64
	Point     [32]byte
	Message   []byte
	Signature []byte
}

// Signed reports whether cert carries a message/signature pair.
func (cert Certificate) Signed() bool {
	return cert.Message != nil || cert.Signature != nil
}

// PointClock is a reverse-entropy point-chain clock. The zero value (via
// New) is empty; call Setup to materialize a fresh chain, or Unpack to
// rebuild one from a packed observer clock.
type PointClock struct {
	isSetup  bool
	lifetime int64
	uuid     [32]byte
	time     int64
	point    [32]byte
	emitter  *events.Emitter
}

// SetEmitter attaches e as the clock's lifecycle event sink; subsequent
// Update calls emit to it. A nil clock emitter (the default) makes Update
// a no-op with respect to events.
func (c *PointClock) SetEmitter(e *events.Emitter) { c.emitter = e }

func (c *PointClock) emit(typ events.EventType, data map[string]any) {
	if c.emitter == nil {
		return
	}
	c.emitter.Emit(events.Event{Type: typ, UUID: hex.EncodeToString(c.uuid[:]), Data: data})
}

// New returns an empty PointClock, ready for Setup.
func New() *PointClock {
	return &PointClock{time: -1}
}

// NewObserver returns a PointClock already bound to a known uuid and
// lifetime but with no advancements applied (time == -1, point == uuid's
// encoding). This mirrors hashclock.NewObserver and is how a
// VectorPointClock seeds a per-node sub-clock whose uuid is already known
// out of band.
func NewObserver(uuid [32]byte, lifetime int64) (*PointClock, error) {
	if lifetime < 0 {
		return nil, fmt.Errorf("%w: lifetime must be >= 0, got %d", ErrInvalidArgument, lifetime)
	}
	return &PointClock{
		isSetup:  true,
		lifetime: lifetime,
		uuid:     uuid,
		time:     -1,
		point:    uuid,
	}, nil
}

// Setup generates a fresh random seed of seedSize bytes, derives the
// depth-0 private scalar and public point, walks the point chain forward
// lifetime+1 times to compute the clock's uuid, and returns an updater
// that retains the seed. The clock itself never sees the seed or scalar.
func (c *PointClock) Setup(lifetime int64, seedSize int) (*PointClockUpdater, error) {
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
		return nil, fmt.Errorf("pointclock: generate seed: %w", err)
	}

	s0, err := crypto.ScalarFromSeed(seed)
	if err != nil {
		return nil, fmt.Errorf("pointclock: derive scalar: %w", err)
	}
	p0 := crypto.DerivePoint(s0)
	pUUID, err := crypto.IteratePoint(p0, lifetime+1)
	if err != nil {
		return nil, fmt.Errorf("pointclock: walk chain: %w", err)
	}

	var uuid, point [32]byte
	copy(uuid[:], pUUID.Bytes())
	point = uuid

	c.isSetup = true
	c.lifetime = lifetime
	c.uuid = uuid
	c.time = -1
	c.point = point

	return &PointClockUpdater{seed: seed, lifetime: lifetime}, nil
}

// UUID returns the clock's public identifier.
func (c *PointClock) UUID() [32]byte { return c.uuid }

// Lifetime returns the clock's declared policy bound.
func (c *PointClock) Lifetime() int64 { return c.lifetime }

// Read returns the clock's current bare state as an unsigned certificate.
func (c *PointClock) Read() Certificate {
	return Certificate{Time: c.time, Point: c.point}
}

// Update validates cert against the clock's current state and, on
// success, advances to it. On failure the clock is left unchanged
// (strong exception safety). Update mutates the receiver and returns it.
func (c *PointClock) Update(cert Certificate) (*PointClock, error) {
	if !c.isSetup {
		return c, fmt.Errorf("%w: clock not set up", ErrInvalidArgument)
	}
	if cert.Time <= c.time {
		reason := fmt.Sprintf("time %d not strictly greater than current %d", cert.Time, c.time)
		c.emit(events.EventRejected, map[string]any{"reason": reason, "time": cert.Time})
		return c, fmt.Errorf("%w: %s", ErrInvalidUpdate, reason)
	}
	if cert.Time > c.lifetime {
		reason := fmt.Sprintf("time %d exceeds lifetime %d", cert.Time, c.lifetime)
		c.emit(events.EventRejected, map[string]any{"reason": reason, "time": cert.Time})
		return c, fmt.Errorf("%w: %s", ErrInvalidUpdate, reason)
	}
	if err := checkChainContainment(cert.Point, c.point, cert.Time-c.time); err != nil {
		c.emit(events.EventRejected, map[string]any{"reason": err.Error(), "time": cert.Time})
		return c, fmt.Errorf("%w: %v", ErrInvalidUpdate, err)
	}
	if cert.Signed() {
		if err := checkSignature(cert); err != nil {
			c.emit(events.EventRejected, map[string]any{"reason": err.Error(), "time": cert.Time})
			return c, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
		}
	}
	c.time = cert.Time
	c.point = cert.Point
	c.emit(events.EventAdvanced, map[string]any{"time": c.time})
	return c, nil
}

// Verify is a self-consistency check: it re-derives the point chain
// forward time+1 steps from the current point and checks equality against
// uuid. This is what lets a deserialized clock (built purely from Unpack,
// with no access to the original seed) prove to itself that its own state
// is internally consistent.
func (c *PointClock) Verify() bool {
	if !c.isSetup {
		return false
	}
	return checkChainContainment(c.point, c.uuid, c.time+1) == nil
}

// VerifyTimestamp reports whether cert would be accepted by Update,
// without mutating the clock or checking any signature.
func (c *PointClock) VerifyTimestamp(cert Certificate) bool {
	if !c.isSetup || cert.Time <= c.time || cert.Time > c.lifetime {
		return false
	}
	return checkChainContainment(cert.Point, c.point, cert.Time-c.time) == nil
}

// VerifySignedTimestamp performs the combined chain-containment and
// signature check against the clock's current state, requiring the
// signed message to equal expectedMsg exactly. It does not mutate the
// clock.
func (c *PointClock) VerifySignedTimestamp(cert Certificate, expectedMsg []byte) bool {
	if !c.VerifyTimestamp(cert) {
		return false
	}
	if !cert.Signed() {
		return false
	}
	if !bytes.Equal(cert.Message, expectedMsg) {
		return false
	}
	return checkSignature(cert) == nil
}

// CanBeUpdated reports whether at least one more advancement is possible
// under the policy bound. The point chain has no preimage-exhaustion
// termination argument the way HashClock does.
func (c *PointClock) CanBeUpdated() bool {
	return c.isSetup && c.time < c.lifetime
}

// HappensBefore reports whether certificate a causally precedes b on the
// same point chain: a.Time < b.Time and iterating NextPoint on b.Point
// exactly b.Time-a.Time times reproduces a.Point.
func HappensBefore(a, b Certificate) bool {
	if !(a.Time < b.Time) {
		return false
	}
	return checkChainContainment(b.Point, a.Point, b.Time-a.Time) == nil
}

// checkChainContainment verifies next_p^k(younger) == older, i.e. walking
// forward from the certificate at the later chain position (closer to
// the seed) for k steps reproduces the earlier, already-known position.
func checkChainContainment(youngerEnc, olderEnc [32]byte, k int64) error {
	p, err := edwards25519.NewIdentityPoint().SetBytes(youngerEnc[:])
	if err != nil {
		return fmt.Errorf("decode certificate point: %w", err)
	}
	walked, err := crypto.IteratePoint(p, k)
	if err != nil {
		return fmt.Errorf("walk chain: %w", err)
	}
	var walkedEnc [32]byte
	copy(walkedEnc[:], walked.Bytes())
	eq, err := crypto.PointEqual(walkedEnc, olderEnc)
	if err != nil {
		return err
	}
	if !eq {
		return errors.New("certificate does not chain to the current state")
	}
	return nil
}

func checkSignature(cert Certificate) error {
	p, err := edwards25519.NewIdentityPoint().SetBytes(cert.Point[:])
	if err != nil {
		return fmt.Errorf("decode certificate point: %w", err)
	}
	if !crypto.Verify(p, cert.Message, cert.Signature) {
		return errors.New("signature does not verify")
	}
	return nil
}

