package vectorclock

import (
	"bytes"
	"testing"

	"github.com/tolelom/revclock/events"
	"github.com/tolelom/revclock/hashclock"
	"github.com/tolelom/revclock/pointclock"
)

// buildHashPair returns a HashClock/updater pair the test keeps around to
// feed node-side Advance calls, plus the uuid/lifetime a federating
// vector needs to build its own observer sub-clock.
func buildHashPair(t *testing.T, lifetime int64) (*hashclock.HashClockUpdater, [32]byte, int64) {
	t.Helper()
	clk := hashclock.New()
	upd, err := clk.Setup(lifetime, 16)
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	return upd, clk.UUID(), lifetime
}

func TestVectorHashClockConcurrency(t *testing.T) {
	upd0, uuid0, lt0 := buildHashPair(t, 1)
	upd1, uuid1, lt1 := buildHashPair(t, 3)

	nodeIDs := [][]byte{[]byte("node0"), []byte("node1")}
	uuids := map[string][32]byte{"node0": uuid0, "node1": uuid1}
	lifetimes := map[string]int64{"node0": lt0, "node1": lt1}

	vecA, err := Setup(nodeIDs, uuids, lifetimes)
	if err != nil {
		t.Fatalf("Setup vecA: %v", err)
	}
	vecB, err := Setup(nodeIDs, uuids, lifetimes)
	if err != nil {
		t.Fatalf("Setup vecB: %v", err)
	}
	if vecA.UUID() != vecB.UUID() {
		t.Fatal("two vectors built from the same topology have different uuids")
	}

	initial := vecA.Read()

	cert0, err := upd0.Advance(1)
	if err != nil {
		t.Fatalf("upd0.Advance(1): %v", err)
	}
	cert1, err := upd1.Advance(1)
	if err != nil {
		t.Fatalf("upd1.Advance(1): %v", err)
	}

	if _, err := vecA.Update(vecA.Advance([]byte("node0"), cert0)); err != nil {
		t.Fatalf("vecA.Update(node0): %v", err)
	}
	if _, err := vecB.Update(vecB.Advance([]byte("node1"), cert1)); err != nil {
		t.Fatalf("vecB.Update(node1): %v", err)
	}

	tsA := vecA.Read()
	tsB := vecB.Read()
	if !AreConcurrent(tsA, tsB) {
		t.Fatal("vectors that advanced different nodes were not reported concurrent")
	}

	if _, err := vecA.Update(vecA.Advance([]byte("node1"), cert1)); err != nil {
		t.Fatalf("vecA.Update(node1): %v", err)
	}
	if _, err := vecB.Update(vecB.Advance([]byte("node0"), cert0)); err != nil {
		t.Fatalf("vecB.Update(node0): %v", err)
	}

	finalA := vecA.Read()
	finalB := vecB.Read()
	for _, k := range finalA.Order {
		if finalA.Sub[k].Time != finalB.Sub[k].Time || !bytes.Equal(finalA.Sub[k].Digest, finalB.Sub[k].Digest) {
			t.Fatalf("converged vectors disagree on node %q", k)
		}
	}
	if !HappensBefore(initial, finalA) {
		t.Fatal("HappensBefore(initial, final) = false after both nodes advanced")
	}
}

func TestVectorHashClockUnknownNode(t *testing.T) {
	upd0, uuid0, lt0 := buildHashPair(t, 2)
	nodeIDs := [][]byte{[]byte("node0")}
	vec, err := Setup(nodeIDs, map[string][32]byte{"node0": uuid0}, map[string]int64{"node0": lt0})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	cert, _ := upd0.Advance(1)
	if _, err := vec.Update(HashUpdate{NodeID: []byte("ghost"), Inner: cert}); err == nil {
		t.Fatal("Update accepted an unknown node id")
	}
}

func TestVectorHashClockPackUnpack(t *testing.T) {
	upd0, uuid0, lt0 := buildHashPair(t, 2)
	upd1, uuid1, lt1 := buildHashPair(t, 2)
	nodeIDs := [][]byte{[]byte("a"), []byte("b")}
	vec, err := Setup(nodeIDs,
		map[string][32]byte{"a": uuid0, "b": uuid1},
		map[string]int64{"a": lt0, "b": lt1})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	cert0, _ := upd0.Advance(1)
	if _, err := vec.Update(vec.Advance([]byte("a"), cert0)); err != nil {
		t.Fatalf("Update: %v", err)
	}
	_ = upd1

	packed, err := vec.Pack()
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	reloaded, err := UnpackHash(packed)
	if err != nil {
		t.Fatalf("UnpackHash: %v", err)
	}
	if reloaded.UUID() != vec.UUID() {
		t.Fatal("reloaded vector has a different uuid")
	}
	ts := reloaded.Read()
	if ts.Sub["a"].Time != 1 {
		t.Fatalf("reloaded node a time = %d, want 1", ts.Sub["a"].Time)
	}
	repacked, err := reloaded.Pack()
	if err != nil {
		t.Fatalf("repack: %v", err)
	}
	if !bytes.Equal(packed, repacked) {
		t.Fatal("pack(unpack(pack(x))) != pack(x)")
	}
}

func TestSetupRejectsMismatchedMaps(t *testing.T) {
	_, uuid0, lt0 := buildHashPair(t, 1)
	nodeIDs := [][]byte{[]byte("node0"), []byte("node1")}
	_, err := Setup(nodeIDs, map[string][32]byte{"node0": uuid0}, map[string]int64{"node0": lt0})
	if err == nil {
		t.Fatal("Setup accepted a uuids map missing an entry")
	}
}

func TestSetupRejectsEmptyNodeID(t *testing.T) {
	_, uuid0, lt0 := buildHashPair(t, 1)
	nodeIDs := [][]byte{[]byte("node0"), {}}
	uuids := map[string][32]byte{"node0": uuid0, "": uuid0}
	lifetimes := map[string]int64{"node0": lt0, "": lt0}
	if _, err := Setup(nodeIDs, uuids, lifetimes); err == nil {
		t.Fatal("Setup accepted a zero-length node id")
	}
}

func TestVectorHashClockVerify(t *testing.T) {
	upd0, uuid0, lt0 := buildHashPair(t, 2)
	nodeIDs := [][]byte{[]byte("node0")}
	vec, err := Setup(nodeIDs, map[string][32]byte{"node0": uuid0}, map[string]int64{"node0": lt0})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if !vec.Verify() {
		t.Fatal("freshly set up vector fails self-verification")
	}
	cert, _ := upd0.Advance(1)
	if _, err := vec.Update(vec.Advance([]byte("node0"), cert)); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !vec.Verify() {
		t.Fatal("vector fails self-verification after a valid update")
	}
}

func TestVectorHashClockEmitsVectorUpdated(t *testing.T) {
	upd0, uuid0, lt0 := buildHashPair(t, 2)
	nodeIDs := [][]byte{[]byte("node0")}
	vec, err := Setup(nodeIDs, map[string][32]byte{"node0": uuid0}, map[string]int64{"node0": lt0})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	emitter := events.NewEmitter()
	vec.SetEmitter(emitter)

	var vectorUpdated, advanced int
	emitter.Subscribe(events.EventVectorUpdated, func(ev events.Event) {
		vectorUpdated++
		if ev.NodeID != "node0" {
			t.Fatalf("NodeID = %q, want node0", ev.NodeID)
		}
	})
	emitter.Subscribe(events.EventAdvanced, func(events.Event) { advanced++ })

	cert, _ := upd0.Advance(1)
	if _, err := vec.Update(vec.Advance([]byte("node0"), cert)); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if vectorUpdated != 1 || advanced != 1 {
		t.Fatalf("vectorUpdated = %d, advanced = %d, want 1, 1", vectorUpdated, advanced)
	}
}

func buildPointPair(t *testing.T, lifetime int64) (*pointclock.PointClockUpdater, [32]byte, int64) {
	t.Helper()
	clk := pointclock.New()
	upd, err := clk.Setup(lifetime, 32)
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	return upd, clk.UUID(), lifetime
}

func TestVectorPointClockFederation(t *testing.T) {
	const n = 5
	nodeIDs := make([][]byte, n)
	updaters := make([]*pointclock.PointClockUpdater, n)
	uuids := make(map[string][32]byte, n)
	lifetimes := make(map[string]int64, n)

	for i := 0; i < n; i++ {
		upd, uuid, lt := buildPointPair(t, 256)
		id := []byte{byte('a' + i)}
		nodeIDs[i] = id
		updaters[i] = upd
		uuids[string(id)] = uuid
		lifetimes[string(id)] = lt
	}

	vecs := make([]*VectorPointClock, n)
	for i := 0; i < n; i++ {
		v, err := SetupPoint(nodeIDs, uuids, lifetimes)
		if err != nil {
			t.Fatalf("SetupPoint[%d]: %v", i, err)
		}
		vecs[i] = v
	}
	for i := 1; i < n; i++ {
		if vecs[i].UUID() != vecs[0].UUID() {
			t.Fatal("federated vectors built from the same topology diverge in uuid")
		}
	}

	initial := vecs[0].Read()

	msg := []byte("federated tick")
	certs := make([]pointclock.Certificate, n)
	for i := 0; i < n; i++ {
		cert, err := updaters[i].AdvanceAndSign(1, msg)
		if err != nil {
			t.Fatalf("AdvanceAndSign[%d]: %v", i, err)
		}
		certs[i] = cert
	}

	for _, v := range vecs {
		for i := 0; i < n; i++ {
			if _, err := v.Update(v.Advance(nodeIDs[i], certs[i])); err != nil {
				t.Fatalf("Update node %d: %v", i, err)
			}
		}
	}

	first := vecs[0].Read()
	for i := 1; i < n; i++ {
		ts := vecs[i].Read()
		for _, k := range first.Order {
			if ts.Sub[k].Time != first.Sub[k].Time || ts.Sub[k].Point != first.Sub[k].Point {
				t.Fatalf("vector observer %d disagrees with observer 0 on node %q", i, k)
			}
		}
	}
	if !HappensBeforePoint(initial, first) {
		t.Fatal("HappensBeforePoint(initial, post) = false after every node advanced")
	}
	if !vecs[0].Verify() {
		t.Fatal("vector fails self-verification after every node advanced")
	}
}
