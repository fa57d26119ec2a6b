package hashclock

import (
	"fmt"

	"github.com/tolelom/revclock/wire"
)

// Pack serializes the clock as:
//
//	tag(1) || lifetime(u32) || time(i32) || uuid(32) || digest_len(u16) || digest
//
// digest is length-prefixed rather than fixed at 32 bytes because the
// chain's own terminal digest (time == lifetime) is the raw seed, which may
// be shorter than 32 bytes.
func (c *HashClock) Pack() ([]byte, error) {
	if !c.isSetup {
		return nil, fmt.Errorf("%w: cannot pack an unset clock", ErrInvalidArgument)
	}
	if c.lifetime < 0 || c.lifetime > 0xFFFFFFFF {
		return nil, fmt.Errorf("%w: lifetime %d out of range for wire format", ErrInvalidArgument, c.lifetime)
	}
	w := wire.NewWriter(wire.TagHashClock)
	c.packInto(w)
	return w.Out(), nil
}

// packInto writes the clock's fields (without a leading tag, which the
// caller's Writer already carries) onto w.
func (c *HashClock) packInto(w *wire.Writer) {
	w.Uint32(uint32(c.lifetime))
	w.Int32(int32(c.time))
	w.Bytes32(c.uuid[:])
	w.BytesLP16(c.digest)
}

// PackInto writes a full tag-prefixed HashClock payload onto w, appending
// in place rather than returning a fresh buffer. VectorHashClock.Pack
// uses this to embed each sub-clock inline; the digest's own length
// prefix keeps the embedded record self-delimiting, so no further outer
// length field is needed around it.
func (c *HashClock) PackInto(w *wire.Writer) error {
	if !c.isSetup {
		return fmt.Errorf("%w: cannot pack an unset clock", ErrInvalidArgument)
	}
	w.Byte(wire.TagHashClock)
	c.packInto(w)
	return nil
}

// Unpack deserializes a clock packed by Pack. It does not itself call
// Verify; callers that need a self-consistency guarantee should call
// Verify() on the result.
func Unpack(data []byte) (*HashClock, error) {
	r, err := wire.NewReader(data, wire.TagHashClock)
	if err != nil {
		return nil, err
	}
	return unpackFields(r)
}

// UnpackFrom reads a tag-prefixed HashClock directly off r, leaving r
// positioned just after it. Used by VectorHashClock.Unpack to decode a
// sequence of embedded sub-clocks from one shared buffer.
func UnpackFrom(r *wire.Reader) (*HashClock, error) {
	tag, err := r.Byte()
	if err != nil {
		return nil, err
	}
	if tag != wire.TagHashClock {
		return nil, fmt.Errorf("%w: tag %d, want %d", ErrBadFormat, tag, wire.TagHashClock)
	}
	return unpackFields(r)
}

func unpackFields(r *wire.Reader) (*HashClock, error) {
	lifetime, err := r.Uint32()
	if err != nil {
		return nil, err
	}
	t, err := r.Int32()
	if err != nil {
		return nil, err
	}
	uuid, err := r.Bytes32()
	if err != nil {
		return nil, err
	}
	digest, err := r.BytesLP16()
	if err != nil {
		return nil, err
	}
	return &HashClock{
		isSetup:  true,
		lifetime: int64(lifetime),
		time:     int64(t),
		uuid:     uuid,
		digest:   digest,
	}, nil
}

// Pack serializes the updater as: tag(1) || lifetime(u32) || seed_len(u16)
// || seed. This output holds the clock's entire secret — never write it to
// a channel or store you would not trust with the raw seed; package
// keystore provides password-protected local persistence instead.
func (u *HashClockUpdater) Pack() ([]byte, error) {
	if u.lifetime < 0 || u.lifetime > 0xFFFFFFFF {
		return nil, fmt.Errorf("%w: lifetime %d out of range for wire format", ErrInvalidArgument, u.lifetime)
	}
	w := wire.NewWriter(wire.TagHashClockUpdater)
	w.Uint32(uint32(u.lifetime))
	w.BytesLP16(u.seed)
	return w.Out(), nil
}

// UnpackUpdater deserializes an updater packed by Pack.
func UnpackUpdater(data []byte) (*HashClockUpdater, error) {
	r, err := wire.NewReader(data, wire.TagHashClockUpdater)
	if err != nil {
		return nil, err
	}
	lifetime, err := r.Uint32()
	if err != nil {
		return nil, err
	}
	seed, err := r.BytesLP16()
	if err != nil {
		return nil, err
	}
	return &HashClockUpdater{seed: seed, lifetime: int64(lifetime)}, nil
}
