// Package crypto implements the one-way primitives the reverse-entropy
// clocks are built on: SHA-256 iterated hashing for the hash-chain clock,
// and Ed25519 scalar/point arithmetic for the point-chain clock.
package crypto

import "crypto/sha256"

// Hash returns the SHA-256 digest of data.
func Hash(data []byte) [32]byte {
	return sha256.Sum256(data)
}

// HashPowFrom applies Hash to digest exactly k times (k >= 0) and returns the
// result: H^k(digest). k == 0 returns a copy of digest unchanged — the one
// case in the hash chain where the "digest" at the chain's own terminal
// position is shorter than 32 bytes, namely the raw seed at depth 0.
func HashPowFrom(digest []byte, k int64) []byte {
	if k <= 0 {
		out := make([]byte, len(digest))
		copy(out, digest)
		return out
	}
	d := Hash(digest)
	for i := int64(1); i < k; i++ {
		d = Hash(d[:])
	}
	return d[:]
}

// HashPow applies Hash to seed exactly k times (k >= 0) and returns the
// result: H^k(seed). An owner walks it lifetime+1 times from the seed to
// compute a clock's uuid, and lifetime-t times to produce a certificate for
// time t (k == 0 yields the seed itself, the certificate for t == lifetime).
func HashPow(seed []byte, k int64) []byte {
	return HashPowFrom(seed, k)
}
