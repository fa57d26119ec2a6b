package crypto

import (
	"crypto/sha512"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
)

// ScalarFromSeed derives the point chain's depth-0 private scalar from a
// seed: s0 = clamp(H(seed)).
func ScalarFromSeed(seed []byte) (*edwards25519.Scalar, error) {
	return ClampScalar(Hash(seed))
}

// Sign produces a deterministic Schnorr-style signature of msg under the
// chain scalar s, in the usual Ed25519 shape (R || S, 64 bytes): a nonce r
// is derived from s and msg, committed to as R = derive(r), a challenge k
// is derived from R, the public point, and msg, and S = k*s + r mod order.
//
// This is self-consistent within the point-chain construction (sign/verify
// only ever need to agree with each other) but is not byte-compatible with
// crypto/ed25519, whose secret scalar comes from a different seed expansion
// than next_s's chain walk.
func Sign(s *edwards25519.Scalar, msg []byte) ([]byte, error) {
	p := DerivePoint(s)

	nonceHash := sha512.New()
	nonceHash.Write(s.Bytes())
	nonceHash.Write(msg)
	r, err := edwards25519.NewScalar().SetUniformBytes(nonceHash.Sum(nil))
	if err != nil {
		return nil, fmt.Errorf("derive nonce scalar: %w", err)
	}
	R := DerivePoint(r)

	k, err := challengeScalar(R, p, msg)
	if err != nil {
		return nil, err
	}

	S := edwards25519.NewScalar().MultiplyAdd(k, s, r) // S = k*s + r
	sig := make([]byte, 0, 64)
	sig = append(sig, R.Bytes()...)
	sig = append(sig, S.Bytes()...)
	return sig, nil
}

// Verify checks sig (R || S, 64 bytes) against msg and public point p by
// confirming S*G == R + k*P for the same challenge derivation Sign uses.
func Verify(p *edwards25519.Point, msg, sig []byte) bool {
	if len(sig) != 64 {
		return false
	}
	R, err := edwards25519.NewIdentityPoint().SetBytes(sig[:32])
	if err != nil {
		return false
	}
	S, err := edwards25519.NewScalar().SetCanonicalBytes(sig[32:64])
	if err != nil {
		return false
	}
	k, err := challengeScalar(R, p, msg)
	if err != nil {
		return false
	}
	lhs := DerivePoint(S)
	rhs := AddPoints(R, edwards25519.NewIdentityPoint().ScalarMult(k, p))
	return lhs.Equal(rhs) == 1
}

func challengeScalar(R, P *edwards25519.Point, msg []byte) (*edwards25519.Scalar, error) {
	h := sha512.New()
	h.Write(R.Bytes())
	h.Write(P.Bytes())
	h.Write(msg)
	k, err := edwards25519.NewScalar().SetUniformBytes(h.Sum(nil))
	if err != nil {
		return nil, errors.New("derive challenge scalar")
	}
	return k, nil
}
