package pointclock

import (
	"fmt"

	"filippo.io/edwards25519"

	"github.com/tolelom/revclock/crypto"
)

// PointClockUpdater holds the secret seed and lifetime for a point-chain
// clock and produces bare or signed timestamp certificates. The private
// scalar is derived lazily on each call rather than cached; Setup derives
// it only to compute the uuid and does not keep it — only the seed is
// long-lived state.
type PointClockUpdater struct {
	seed     []byte
	lifetime int64
}

// Lifetime returns the chain's declared policy bound.
func (u *PointClockUpdater) Lifetime() int64 { return u.lifetime }

func (u *PointClockUpdater) scalarAt(t int64) (*edwards25519.Scalar, error) {
	s0, err := crypto.ScalarFromSeed(u.seed)
	if err != nil {
		return nil, fmt.Errorf("derive depth-0 scalar: %w", err)
	}
	walked, err := crypto.IterateScalar(s0, u.lifetime-t)
	if err != nil {
		return nil, fmt.Errorf("walk scalar chain: %w", err)
	}
	return walked, nil
}

// Advance produces the bare certificate for time t: (t, P_{lifetime-t}).
// It fails if t is out of [0, lifetime].
func (u *PointClockUpdater) Advance(t int64) (Certificate, error) {
	if t < 0 || t > u.lifetime {
		return Certificate{}, fmt.Errorf("%w: time %d out of range [0,%d]", ErrInvalidArgument, t, u.lifetime)
	}
	s, err := u.scalarAt(t)
	if err != nil {
		return Certificate{}, fmt.Errorf("pointclock: %w", err)
	}
	p := crypto.DerivePoint(s)
	var enc [32]byte
	copy(enc[:], p.Bytes())
	return Certificate{Time: t, Point: enc}, nil
}

// AdvanceAndSign produces a signed certificate for time t: the chain
// point at depth t together with msg signed under the chain's private
// scalar at that same depth. derive(scalar_t) equals point_t by the
// next_s/next_p algebraic identity, so a verifier holding only public
// points can confirm the signature was made under the chain's own key.
func (u *PointClockUpdater) AdvanceAndSign(t int64, msg []byte) (Certificate, error) {
	if t < 0 || t > u.lifetime {
		return Certificate{}, fmt.Errorf("%w: time %d out of range [0,%d]", ErrInvalidArgument, t, u.lifetime)
	}
	s, err := u.scalarAt(t)
	if err != nil {
		return Certificate{}, fmt.Errorf("pointclock: %w", err)
	}
	p := crypto.DerivePoint(s)
	var enc [32]byte
	copy(enc[:], p.Bytes())

	sig, err := crypto.Sign(s, msg)
	if err != nil {
		return Certificate{}, fmt.Errorf("pointclock: sign: %w", err)
	}
	return Certificate{Time: t, Point: enc, Message: append([]byte(nil), msg...), Signature: sig}, nil
}
