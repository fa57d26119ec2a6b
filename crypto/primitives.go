package crypto

import (
	"fmt"

	"filippo.io/edwards25519"
)

// ClampScalar reduces a 32-byte digest to a canonical Ed25519 scalar using
// the standard clamping procedure (clearing/setting the low and high bits
// before treating the result as a little-endian scalar mod the group order).
func ClampScalar(digest [32]byte) (*edwards25519.Scalar, error) {
	s, err := edwards25519.NewScalar().SetBytesWithClamping(digest[:])
	if err != nil {
		return nil, fmt.Errorf("clamp scalar: %w", err)
	}
	return s, nil
}

// DerivePoint returns s*G, the Ed25519 base-point scalar multiplication.
func DerivePoint(s *edwards25519.Scalar) *edwards25519.Point {
	return edwards25519.NewIdentityPoint().ScalarBaseMult(s)
}

// AddPoints returns p+q on the Ed25519 curve.
func AddPoints(p, q *edwards25519.Point) *edwards25519.Point {
	return edwards25519.NewIdentityPoint().Add(p, q)
}

// NextPoint computes next_p(p) = add_points(p, derive(clamp(H(p)))), the
// forward step of the point chain.
func NextPoint(p *edwards25519.Point) (*edwards25519.Point, error) {
	h := Hash(p.Bytes())
	s, err := ClampScalar(h)
	if err != nil {
		return nil, err
	}
	return AddPoints(p, DerivePoint(s)), nil
}

// NextScalar computes next_s(s) = s + clamp(H(derive(s))), reduced mod the
// group order. It is the scalar-side twin of NextPoint: for any scalar s,
// derive(NextScalar(s)) == NextPoint(derive(s)), which is what lets the
// point chain's owner sign under the chain's private scalar at depth t
// while observers verify purely with public points.
func NextScalar(s *edwards25519.Scalar) (*edwards25519.Scalar, error) {
	p := DerivePoint(s)
	h := Hash(p.Bytes())
	c, err := ClampScalar(h)
	if err != nil {
		return nil, err
	}
	return edwards25519.NewScalar().Add(s, c), nil
}

// IteratePoint applies NextPoint to p n times.
func IteratePoint(p *edwards25519.Point, n int64) (*edwards25519.Point, error) {
	cur := p
	for i := int64(0); i < n; i++ {
		next, err := NextPoint(cur)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

// IterateScalar applies NextScalar to s n times.
func IterateScalar(s *edwards25519.Scalar, n int64) (*edwards25519.Scalar, error) {
	cur := s
	for i := int64(0); i < n; i++ {
		next, err := NextScalar(cur)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

// PointEqual reports whether two compressed point encodings denote the same
// point, decoding both and comparing canonically rather than byte-for-byte
// (an encoding that is not a point on the curve is rejected with an error;
// a non-canonical encoding of a valid point decodes and compares equal to
// its canonical form).
func PointEqual(a, b [32]byte) (bool, error) {
	pa, err := edwards25519.NewIdentityPoint().SetBytes(a[:])
	if err != nil {
		return false, fmt.Errorf("decode point a: %w", err)
	}
	pb, err := edwards25519.NewIdentityPoint().SetBytes(b[:])
	if err != nil {
		return false, fmt.Errorf("decode point b: %w", err)
	}
	return pa.Equal(pb) == 1, nil
}
