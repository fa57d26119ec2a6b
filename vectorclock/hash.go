package vectorclock

import (
	"encoding/hex"
	"fmt"

	"github.com/tolelom/revclock/events"
	"github.com/tolelom/revclock/hashclock"
)

// HashUpdate wraps an inner HashClock certificate with the node id it
// targets, ready to be dispatched to a VectorHashClock via Update.
type HashUpdate struct {
	NodeID []byte
	Inner  hashclock.Certificate
}

// HashTimestamp is a deterministic snapshot of a VectorHashClock's state:
// the vector's uuid and each node's sub-clock certificate, in canonical
// node-id order.
type HashTimestamp struct {
	UUID  [32]byte
	Order []string
	Sub   map[string]hashclock.Certificate
}

// VectorHashClock federates a HashClock per node id into one causally
// ordered vector.
type VectorHashClock struct {
	uuid    [32]byte
	order   []string
	nodes   map[string]*hashclock.HashClock
	emitter *events.Emitter
}

// SetEmitter attaches e as the vector's lifecycle event sink and as the
// sink for every sub-clock, so both per-node events (advanced/rejected/
// terminated) and the vector-level EventVectorUpdated reach the same
// subscriber.
func (v *VectorHashClock) SetEmitter(e *events.Emitter) {
	v.emitter = e
	for _, sub := range v.nodes {
		sub.SetEmitter(e)
	}
}

// Setup builds an empty sub-clock per node id. uuids and lifetimes must
// both contain exactly one entry per id in nodeIDs; a per-node sub-clock
// cannot verify any incoming certificate without already knowing that
// node's public uuid and declared lifetime.
func Setup(nodeIDs [][]byte, uuids map[string][32]byte, lifetimes map[string]int64) (*VectorHashClock, error) {
	if err := validateNodeIDs(nodeIDs, uuids, lifetimes); err != nil {
		return nil, err
	}
	order := canonicalOrder(nodeIDs)
	nodes := make(map[string]*hashclock.HashClock, len(order))
	for _, k := range order {
		sub, err := hashclock.NewObserver(uuids[k], lifetimes[k])
		if err != nil {
			return nil, fmt.Errorf("vectorclock: build sub-clock for node %q: %w", k, err)
		}
		nodes[k] = sub
	}
	return &VectorHashClock{
		uuid:  vectorUUID(order, uuids),
		order: order,
		nodes: nodes,
	}, nil
}

// UUID returns the vector's identifier.
func (v *VectorHashClock) UUID() [32]byte { return v.uuid }

// Advance wraps inner, an certificate obtained from the named node's own
// HashClockUpdater, with that node's id so it can be dispatched through
// Update — including across a channel to a remote vector observer.
func (v *VectorHashClock) Advance(nodeID []byte, inner hashclock.Certificate) HashUpdate {
	return HashUpdate{NodeID: append([]byte(nil), nodeID...), Inner: inner}
}

// Update dispatches update.Inner to the sub-clock for update.NodeID. An
// unknown node id returns ErrUnknownNode; a rejected inner certificate
// propagates the sub-clock's own error unchanged. On failure
// the vector is left unchanged, mirroring the per-clock exception safety
// guarantee.
func (v *VectorHashClock) Update(update HashUpdate) (*VectorHashClock, error) {
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
func (v *VectorHashClock) Verify() bool {
	for _, k := range v.order {
		if !v.nodes[k].Verify() {
			return false
		}
	}
	return true
}

// Read returns a deterministic snapshot of every sub-clock's current
// certificate, in canonical node-id order.
func (v *VectorHashClock) Read() HashTimestamp {
	sub := make(map[string]hashclock.Certificate, len(v.order))
	for _, k := range v.order {
		sub[k] = v.nodes[k].Read()
	}
	return HashTimestamp{UUID: v.uuid, Order: append([]string(nil), v.order...), Sub: sub}
}

// HappensBefore implements the standard vector-clock rule: every
// component of a is <= the corresponding component of b, and at least
// one is strictly less. Timestamps from vectors with different uuids, or
// different node sets, are never comparable and return false.
func HappensBefore(a, b HashTimestamp) bool {
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

// AreConcurrent reports whether a and b are neither equal nor ordered by
// HappensBefore in either direction.
func AreConcurrent(a, b HashTimestamp) bool {
	if a.UUID != b.UUID || len(a.Sub) != len(b.Sub) {
		return false
	}
	if HappensBefore(a, b) || HappensBefore(b, a) {
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
