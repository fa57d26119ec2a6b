// Package vectorclock lifts HashClock and PointClock into vector clocks:
// one sub-clock per node id, compared componentwise for causal ordering
// across nodes the way a classic vector clock compares per-process
// counters. VectorHashClock and VectorPointClock share the same shape —
// a canonical node-id ordering, a vector-level uuid binding the whole
// topology together, and Update/Read/HappensBefore/AreConcurrent
// operating over per-node sub-clocks — but are implemented separately
// since Go has no natural way to parameterize over the two clocks'
// distinct certificate shapes without generics the rest of the module
// doesn't use.
package vectorclock

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/tolelom/revclock/crypto"
)

// Error kinds.
var (
	ErrInvalidArgument = errors.New("vectorclock: invalid argument")
	ErrUnknownNode     = errors.New("vectorclock: unknown node")
)

// canonicalOrder sorts node ids as unsigned big-endian byte strings and
// returns their string form (Go string comparison is byte-wise, so
// sort.Strings already implements the tie-break spec.md calls for).
func canonicalOrder(nodeIDs [][]byte) []string {
	keys := make([]string, len(nodeIDs))
	for i, id := range nodeIDs {
		keys[i] = string(id)
	}
	sort.Strings(keys)
	return keys
}

// vectorUUID computes H(uuid_0 || uuid_1 || ... || uuid_n) over the
// per-node uuids taken in canonical node-id order, binding the vector's
// identity to the specific set of federated sub-clocks it was built from.
func vectorUUID(order []string, uuids map[string][32]byte) [32]byte {
	var buf bytes.Buffer
	for _, k := range order {
		u := uuids[k]
		buf.Write(u[:])
	}
	return crypto.Hash(buf.Bytes())
}

func validateNodeIDs(nodeIDs [][]byte, uuids map[string][32]byte, lifetimes map[string]int64) error {
	if len(nodeIDs) == 0 {
		return fmt.Errorf("%w: vector must have at least one node", ErrInvalidArgument)
	}
	seen := make(map[string]bool, len(nodeIDs))
	for _, id := range nodeIDs {
		if len(id) == 0 {
			return fmt.Errorf("%w: node id must not be empty", ErrInvalidArgument)
		}
		k := string(id)
		if seen[k] {
			return fmt.Errorf("%w: duplicate node id %q", ErrInvalidArgument, k)
		}
		seen[k] = true
		if _, ok := uuids[k]; !ok {
			return fmt.Errorf("%w: missing uuid for node %q", ErrInvalidArgument, k)
		}
		if _, ok := lifetimes[k]; !ok {
			return fmt.Errorf("%w: missing lifetime for node %q", ErrInvalidArgument, k)
		}
	}
	if len(uuids) != len(nodeIDs) || len(lifetimes) != len(nodeIDs) {
		return fmt.Errorf("%w: mismatched uuids map", ErrInvalidArgument)
	}
	return nil
}
