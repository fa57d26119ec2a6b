package vectorclock

import (
	"fmt"

	"github.com/tolelom/revclock/hashclock"
	"github.com/tolelom/revclock/pointclock"
	"github.com/tolelom/revclock/wire"
)

// ErrBadFormat is returned for any pack/unpack failure on a vector clock.
var ErrBadFormat = wire.ErrBadFormat

// Pack serializes the vector as:
//
//	tag(1) || uuid(32) || node_count(u32) ||
//	    [ node_id_len(u16) || node_id || inner_pack ]*
//
// in canonical node-id order, where inner_pack is that node's HashClock
// payload (its own tag plus fields), embedded inline rather than
// length-prefixed a second time — HashClock's own digest length prefix
// already makes it self-delimiting.
func (v *VectorHashClock) Pack() ([]byte, error) {
	w := wire.NewWriter(wire.TagVectorHashClock)
	w.Bytes32(v.uuid[:])
	w.Uint32(uint32(len(v.order)))
	for _, k := range v.order {
		id := []byte(k)
		if len(id) > 0xFFFF {
			return nil, fmt.Errorf("vectorclock: node id too long for wire format")
		}
		w.BytesLP16(id)
		if err := v.nodes[k].PackInto(w); err != nil {
			return nil, fmt.Errorf("vectorclock: pack node %q: %w", k, err)
		}
	}
	return w.Out(), nil
}

// UnpackHash deserializes a VectorHashClock packed by Pack.
func UnpackHash(data []byte) (*VectorHashClock, error) {
	r, err := wire.NewReader(data, wire.TagVectorHashClock)
	if err != nil {
		return nil, err
	}
	uuid, err := r.Bytes32()
	if err != nil {
		return nil, err
	}
	count, err := r.Uint32()
	if err != nil {
		return nil, err
	}
	order := make([]string, 0, count)
	nodes := make(map[string]*hashclock.HashClock, count)
	for i := uint32(0); i < count; i++ {
		id, err := r.BytesLP16()
		if err != nil {
			return nil, err
		}
		sub, err := hashclock.UnpackFrom(r)
		if err != nil {
			return nil, fmt.Errorf("%w: node %q: %v", ErrBadFormat, id, err)
		}
		k := string(id)
		order = append(order, k)
		nodes[k] = sub
	}
	return &VectorHashClock{uuid: uuid, order: order, nodes: nodes}, nil
}

// Pack serializes the vector the same way as VectorHashClock.Pack, using
// each node's PointClock payload as inner_pack.
func (v *VectorPointClock) Pack() ([]byte, error) {
	w := wire.NewWriter(wire.TagVectorPointClock)
	w.Bytes32(v.uuid[:])
	w.Uint32(uint32(len(v.order)))
	for _, k := range v.order {
		id := []byte(k)
		if len(id) > 0xFFFF {
			return nil, fmt.Errorf("vectorclock: node id too long for wire format")
		}
		w.BytesLP16(id)
		if err := v.nodes[k].PackInto(w); err != nil {
			return nil, fmt.Errorf("vectorclock: pack node %q: %w", k, err)
		}
	}
	return w.Out(), nil
}

// UnpackPoint deserializes a VectorPointClock packed by Pack.
func UnpackPoint(data []byte) (*VectorPointClock, error) {
	r, err := wire.NewReader(data, wire.TagVectorPointClock)
	if err != nil {
		return nil, err
	}
	uuid, err := r.Bytes32()
	if err != nil {
		return nil, err
	}
	count, err := r.Uint32()
	if err != nil {
		return nil, err
	}
	order := make([]string, 0, count)
	nodes := make(map[string]*pointclock.PointClock, count)
	for i := uint32(0); i < count; i++ {
		id, err := r.BytesLP16()
		if err != nil {
			return nil, err
		}
		sub, err := pointclock.UnpackFrom(r)
		if err != nil {
			return nil, fmt.Errorf("%w: node %q: %v", ErrBadFormat, id, err)
		}
		k := string(id)
		order = append(order, k)
		nodes[k] = sub
	}
	return &VectorPointClock{uuid: uuid, order: order, nodes: nodes}, nil
}
