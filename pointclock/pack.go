package pointclock

import (
	"fmt"

	"github.com/tolelom/revclock/wire"
)

// Pack serializes the clock as:
//
//	tag(1) || lifetime(u32) || time(i32) || uuid(32) || point(32)
//
// Unlike HashClock's digest, a point-chain position is always exactly 32
// bytes (a compressed Ed25519 point encoding), so no length prefix is
// needed here.
func (c *PointClock) Pack() ([]byte, error) {
	if !c.isSetup {
		return nil, fmt.Errorf("%w: cannot pack an unset clock", ErrInvalidArgument)
	}
	if c.lifetime < 0 || c.lifetime > 0xFFFFFFFF {
		return nil, fmt.Errorf("%w: lifetime %d out of range for wire format", ErrInvalidArgument, c.lifetime)
	}
	w := wire.NewWriter(wire.TagPointClock)
	c.packInto(w)
	return w.Out(), nil
}

func (c *PointClock) packInto(w *wire.Writer) {
	w.Uint32(uint32(c.lifetime))
	w.Int32(int32(c.time))
	w.Bytes32(c.uuid[:])
	w.Bytes32(c.point[:])
}

// PackInto writes a full tag-prefixed PointClock payload onto w, the
// point-chain analog of HashClock.PackInto: since every field here is
// fixed width, the embedded record's length is implied by the format
// itself and needs no outer length prefix either.
func (c *PointClock) PackInto(w *wire.Writer) error {
	if !c.isSetup {
		return fmt.Errorf("%w: cannot pack an unset clock", ErrInvalidArgument)
	}
	w.Byte(wire.TagPointClock)
	c.packInto(w)
	return nil
}

// Unpack deserializes a clock packed by Pack.
func Unpack(data []byte) (*PointClock, error) {
	r, err := wire.NewReader(data, wire.TagPointClock)
	if err != nil {
		return nil, err
	}
	return unpackFields(r)
}

// UnpackFrom reads a tag-prefixed PointClock directly off r, leaving r
// positioned just after it. Used by VectorPointClock.Unpack to decode a
// sequence of embedded sub-clocks from one shared buffer.
func UnpackFrom(r *wire.Reader) (*PointClock, error) {
	tag, err := r.Byte()
	if err != nil {
		return nil, err
	}
	if tag != wire.TagPointClock {
		return nil, fmt.Errorf("%w: tag %d, want %d", ErrBadFormat, tag, wire.TagPointClock)
	}
	return unpackFields(r)
}

func unpackFields(r *wire.Reader) (*PointClock, error) {
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
	point, err := r.Bytes32()
	if err != nil {
		return nil, err
	}
	return &PointClock{
		isSetup:  true,
		lifetime: int64(lifetime),
		time:     int64(t),
		uuid:     uuid,
		point:    point,
	}, nil
}

// Pack serializes the updater as: tag(1) || lifetime(u32) || seed_len(u16)
// || seed. As with HashClockUpdater, this holds the clock's entire
// secret — prefer package keystore over writing it to an untrusted store.
func (u *PointClockUpdater) Pack() ([]byte, error) {
	if u.lifetime < 0 || u.lifetime > 0xFFFFFFFF {
		return nil, fmt.Errorf("%w: lifetime %d out of range for wire format", ErrInvalidArgument, u.lifetime)
	}
	w := wire.NewWriter(wire.TagPointClockUpdater)
	w.Uint32(uint32(u.lifetime))
	w.BytesLP16(u.seed)
	return w.Out(), nil
}

// UnpackUpdater deserializes an updater packed by Pack.
func UnpackUpdater(data []byte) (*PointClockUpdater, error) {
	r, err := wire.NewReader(data, wire.TagPointClockUpdater)
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
	return &PointClockUpdater{seed: seed, lifetime: int64(lifetime)}, nil
}
