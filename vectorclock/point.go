package vectorclock

import (
	"encoding/hex"
	"fmt"

	"github.com/tolelom/revclock/events"
	"github.com/tolelom/revclock/pointclock"
)

// PointUpdate wraps an inner PointClock certificate (bare or signed) with
// the node id it targets, ready to be dispatched to a VectorPointClock
// via Update.
type PointUpdate struct {
	NodeID []byte
	Inner  pointclock.Certificate
}

// PointTimestamp is a deterministic snapshot of a VectorPointClock's
// state: the vector's uuid and each node's sub-clock certificate, in
// canonical node-id order.
type PointTimestamp struct {
	UUID  [32]byte
	Order []string
	Sub   map[string]pointclock.Certificate
}

// VectorPointClock federates a PointClock per node id into one causally
// ordered vector, carrying each node's signing capability through to its
// sub-clock certificates.
type VectorPointClock struct {
	uuid    [32]byte
	order   []string
	nodes   map[string]*pointclock.PointClock
	emitter *events.Emitter
}

// SetEmitter attaches e as the vector's lifecycle event sink and as the
// sink for every sub-clock, so both per-node events (advanced/rejected)
// and the vector-level EventVectorUpdated reach the same subscriber.
func (v *VectorPointClock) SetEmitter(e *events.Emitter) {
	v.emitter = e
	for _, sub := range v.nodes {
		sub.SetEmitter(e)
	}
}

// SetupPoint builds an empty sub-clock per node id, analogous to Setup
// for VectorHashClock. uuids supplies each node's already-known public
// uuid so independently set-up PointClocks can be federated into one
// vector without ever sharing a seed.
func SetupPoint(nodeIDs [][]byte, uuids map[string][32]byte, lifetimes map[string]int64) (*VectorPointClock, error) {
	if err := validateNodeIDs(nodeIDs, uuids, lifetimes); err != nil {
		return nil, err
	}
	order := canonicalOrder(nodeIDs)
	nodes := make(map[string]*pointclock.PointClock, len(order))
	for _, k := range order {
		sub, err := pointclock.NewObserver(uuids[k], lifetimes[k])
		if err != nil {
			return nil, fmt.Errorf("vectorclock: build sub-clock for node %q: %w", k, err)
		}
		nodes[k] = sub
	}
	return &VectorPointClock{
		uuid:  vectorUUID(order, uuids),
		order: order,
		nodes: nodes,
	}, nil
}

// UUID returns the vector's identifier.
func (v *VectorPointClock) UUID() [32]byte { return v.uuid }

// Advance wraps inner with nodeID so it can be dispatched through Update.
func (v *VectorPointClock) Advance(nodeID []byte, inner pointclock.Certificate) PointUpdate {
	return PointUpdate{NodeID: append([]byte(nil), nodeID...), Inner: inner}
}

// Update dispatches update.Inner to the sub-clock for update.NodeID. An
// unknown node id returns ErrUnknownNode; a rejected inner certificate
// (chain mismatch or, for a signed certificate, a bad signature)
// propagates the sub-clock's own error.
func (v *VectorPointClock) Update(update PointUpdate) (*VectorPointClock, error) {
	k := string(update.NodeID)
	sub, ok := v.nodes[k]
	if !ok {
		return v, fmt.Errorf("%w: %q", ErrUnknownNode, k)
	}
	if _, err := sub.Update(update.Inner); err != nil {
		return v, err
	}
	if v.emitter != nil {
		v.emitter.Emit(events.Event{
			Type:   events.EventVectorUpdated,
			UUID:   hex.EncodeToString(v.uuid[:]),
			NodeID: k,
			Data:   map[string]any{"time": update.Inner.Time},
		})
	}
	return v, nil
}

// Verify checks every sub-clock's own self-consistency, so a deserialized
// vector (rebuilt with no access to any node's seed) can prove its entire
// state is internally consistent.
func (v *VectorPointClock) Verify() bool {
	for _, k := range v.order {
		if !v.nodes[k].Verify() {
			return false
		}
	}
	return true
}

// Read returns a deterministic snapshot of every sub-clock's current
// certificate, in canonical node-id order.
func (v *VectorPointClock) Read() PointTimestamp {
	sub := make(map[string]pointclock.Certificate, len(v.order))
	for _, k := range v.order {
		sub[k] = v.nodes[k].Read()
	}
	return PointTimestamp{UUID: v.uuid, Order: append([]string(nil), v.order...), Sub: sub}
}

// HappensBeforePoint implements the standard vector-clock rule over
// PointClock sub-states: every component of a is <= the corresponding
// component of b, and at least one is strictly less.
func HappensBeforePoint(a, b PointTimestamp) bool {
	if a.UUID != b.UUID || len(a.Sub) != len(b.Sub) {
		return false
	}
	strictlyLess := false
	for k, ac := range a.Sub {
		bc, ok := b.Sub[k]
		if !ok {
			return false
		}
		if ac.Time > bc.Time {
			return false
		}
		if ac.Time < bc.Time {
			strictlyLess = true
		}
	}
	return strictlyLess
}

// AreConcurrentPoint reports whether a and b are neither equal nor
// ordered by HappensBeforePoint in either direction.
func AreConcurrentPoint(a, b PointTimestamp) bool {
	if a.UUID != b.UUID || len(a.Sub) != len(b.Sub) {
		return false
	}
	if HappensBeforePoint(a, b) || HappensBeforePoint(b, a) {
		return false
	}
	for k, ac := range a.Sub {
		bc, ok := b.Sub[k]
		if !ok || ac.Time != bc.Time {
			return true
		}
	}
	return false
}
