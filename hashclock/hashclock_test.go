package hashclock

import (
	"bytes"
	"testing"

	"github.com/tolelom/revclock/crypto"
	"github.com/tolelom/revclock/events"
)

// seededUpdater builds a clock+updater pair from a fixed 16-byte all-zero
// seed, bypassing Setup's randomness so chain positions are reproducible —
// mirrors the deterministic seed used throughout spec scenario S1.
func seededUpdater(t *testing.T, lifetime int64) (*HashClock, *HashClockUpdater, []byte) {
	t.Helper()
	seed := make([]byte, 16)
	uuid := crypto.HashPow(seed, lifetime+1)
	clk := &HashClock{isSetup: true, lifetime: lifetime, time: -1}
	copy(clk.uuid[:], uuid)
	clk.digest = uuid
	return clk, &HashClockUpdater{seed: seed, lifetime: lifetime}, seed
}

func TestHappyPath(t *testing.T) {
	clk, upd, seed := seededUpdater(t, 2)

	wantUUID := crypto.HashPow(seed, 3)
	if !bytes.Equal(clk.uuid[:], wantUUID) {
		t.Fatalf("uuid = %x, want %x", clk.uuid, wantUUID)
	}
	if st := clk.Read(); st.Time != -1 || !bytes.Equal(st.Digest, wantUUID) {
		t.Fatalf("initial read = %+v, want (-1, uuid)", st)
	}

	cert, err := upd.Advance(0)
	if err != nil {
		t.Fatalf("Advance(0): %v", err)
	}
	wantDigest0 := crypto.HashPow(seed, 2)
	if cert.Time != 0 || !bytes.Equal(cert.Digest, wantDigest0) {
		t.Fatalf("Advance(0) = %+v, want (0, %x)", cert, wantDigest0)
	}
	if _, err := clk.Update(cert); err != nil {
		t.Fatalf("Update(0): %v", err)
	}
	if clk.Read().Time != 0 {
		t.Fatalf("time after update = %d, want 0", clk.Read().Time)
	}

	cert2, err := upd.Advance(2)
	if err != nil {
		t.Fatalf("Advance(2): %v", err)
	}
	if cert2.Time != 2 || !bytes.Equal(cert2.Digest, seed) {
		t.Fatalf("Advance(2) = %+v, want (2, seed)", cert2)
	}
	if _, err := clk.Update(cert2); err != nil {
		t.Fatalf("Update(2): %v", err)
	}
	if !clk.HasTerminated() {
		t.Fatal("HasTerminated() = false after reaching lifetime")
	}
	if !clk.Verify() {
		t.Fatal("Verify() = false after legitimate updates")
	}
}

func TestForgeryRejected(t *testing.T) {
	clk, upd, _ := seededUpdater(t, 2)
	cert, _ := upd.Advance(0)
	if _, err := clk.Update(cert); err != nil {
		t.Fatalf("Update(0): %v", err)
	}

	forged := Certificate{Time: 1, Digest: bytes.Repeat([]byte{0x11}, 32)}
	if _, err := clk.Update(forged); err == nil {
		t.Fatal("forged certificate was accepted")
	}
	if st := clk.Read(); st.Time != 0 {
		t.Fatalf("state mutated by rejected update: %+v", st)
	}
}

func TestMonotonic(t *testing.T) {
	clk, upd, _ := seededUpdater(t, 3)
	cert2, _ := upd.Advance(2)
	if _, err := clk.Update(cert2); err != nil {
		t.Fatalf("Update(2): %v", err)
	}
	cert1, _ := upd.Advance(1)
	if _, err := clk.Update(cert1); err == nil {
		t.Fatal("update with time <= current time was accepted")
	}
	cert2Again, _ := upd.Advance(2)
	if _, err := clk.Update(cert2Again); err == nil {
		t.Fatal("update with time == current time was accepted")
	}
}

func TestBeyondLifetimeRejected(t *testing.T) {
	_, upd, _ := seededUpdater(t, 2)
	if _, err := upd.Advance(3); err == nil {
		t.Fatal("Advance beyond lifetime was accepted")
	}
}

func TestCommutativity(t *testing.T) {
	seed := make([]byte, 16)
	lifetime := int64(3)
	upd := &HashClockUpdater{seed: seed, lifetime: lifetime}
	c1, _ := upd.Advance(1)
	c2, _ := upd.Advance(2)
	c3, _ := upd.Advance(3)

	orders := [][]Certificate{
		{c1, c2, c3},
		{c3, c2, c1},
		{c2, c1, c3},
	}
	var finalStates []Certificate
	for _, order := range orders {
		clk := New()
		if _, err := clk.Setup(lifetime, 16); err != nil {
			t.Fatalf("Setup: %v", err)
		}
		// Re-point the fresh clock at our fixed seed's chain so every
		// permutation starts from the same uuid.
		uuid := crypto.HashPow(seed, lifetime+1)
		copy(clk.uuid[:], uuid)
		clk.digest = uuid

		for _, cert := range order {
			// A certificate older than the current state is rejected
			// (monotonicity); every newer one must be accepted.
			stale := cert.Time <= clk.Read().Time
			if _, err := clk.Update(cert); (err != nil) != stale {
				t.Fatalf("Update(time %d) in order %v: err = %v, stale = %v", cert.Time, order, err, stale)
			}
		}
		finalStates = append(finalStates, clk.Read())
	}
	for i := 1; i < len(finalStates); i++ {
		if finalStates[i].Time != finalStates[0].Time || !bytes.Equal(finalStates[i].Digest, finalStates[0].Digest) {
			t.Fatalf("order %d produced a different final state: %+v vs %+v", i, finalStates[i], finalStates[0])
		}
	}
}

func TestIdempotent(t *testing.T) {
	clk, upd, _ := seededUpdater(t, 2)
	cert, _ := upd.Advance(1)
	if _, err := clk.Update(cert); err != nil {
		t.Fatalf("first Update: %v", err)
	}
	before := clk.Read()
	if _, err := clk.Update(cert); err == nil {
		t.Fatal("re-applying the same certificate was accepted a second time")
	}
	after := clk.Read()
	if after.Time != before.Time || !bytes.Equal(after.Digest, before.Digest) {
		t.Fatalf("state changed on duplicate apply: %+v -> %+v", before, after)
	}
}

func TestHappensBefore(t *testing.T) {
	seed := make([]byte, 16)
	lifetime := int64(3)
	upd := &HashClockUpdater{seed: seed, lifetime: lifetime}
	c1, _ := upd.Advance(1)
	c2, _ := upd.Advance(2)

	if !HappensBefore(c1, c2) {
		t.Fatal("HappensBefore(earlier, later) = false")
	}
	if HappensBefore(c2, c1) {
		t.Fatal("HappensBefore(later, earlier) = true")
	}
	if HappensBefore(c1, c1) {
		t.Fatal("HappensBefore(x, x) = true, want irreflexive")
	}
}

func TestPackUnpackRoundtrip(t *testing.T) {
	clk, upd, _ := seededUpdater(t, 2)
	cert, _ := upd.Advance(0)
	if _, err := clk.Update(cert); err != nil {
		t.Fatalf("Update: %v", err)
	}

	packed, err := clk.Pack()
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	reloaded, err := Unpack(packed)
	if err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	if !reloaded.Verify() {
		t.Fatal("unpacked clock fails self-verification")
	}
	repacked, err := reloaded.Pack()
	if err != nil {
		t.Fatalf("repack: %v", err)
	}
	if !bytes.Equal(packed, repacked) {
		t.Fatal("pack(unpack(pack(x))) != pack(x)")
	}

	updPacked, err := upd.Pack()
	if err != nil {
		t.Fatalf("updater Pack: %v", err)
	}
	reloadedUpd, err := UnpackUpdater(updPacked)
	if err != nil {
		t.Fatalf("UnpackUpdater: %v", err)
	}
	got, err := reloadedUpd.Advance(2)
	if err != nil {
		t.Fatalf("Advance after reload: %v", err)
	}
	want, _ := upd.Advance(2)
	if got.Time != want.Time || !bytes.Equal(got.Digest, want.Digest) {
		t.Fatalf("reloaded updater diverged: %+v vs %+v", got, want)
	}
}

func TestUnpackRejectsWrongTag(t *testing.T) {
	updPacked, _ := (&HashClockUpdater{seed: make([]byte, 16), lifetime: 1}).Pack()
	if _, err := Unpack(updPacked); err == nil {
		t.Fatal("Unpack accepted an updater payload")
	}
}

func TestSetupRejectsNegativeLifetime(t *testing.T) {
	if _, err := New().Setup(-1, 16); err == nil {
		t.Fatal("Setup accepted a negative lifetime")
	}
}

func TestEmitsLifecycleEvents(t *testing.T) {
	clk, upd, _ := seededUpdater(t, 2)
	emitter := events.NewEmitter()
	clk.SetEmitter(emitter)

	var advanced, rejected, terminated int
	emitter.Subscribe(events.EventAdvanced, func(events.Event) { advanced++ })
	emitter.Subscribe(events.EventRejected, func(events.Event) { rejected++ })
	emitter.Subscribe(events.EventTerminated, func(events.Event) { terminated++ })

	cert0, _ := upd.Advance(0)
	if _, err := clk.Update(cert0); err != nil {
		t.Fatalf("Update(0): %v", err)
	}
	if advanced != 1 || terminated != 0 {
		t.Fatalf("advanced = %d, terminated = %d, want 1, 0", advanced, terminated)
	}

	forged := Certificate{Time: 1, Digest: bytes.Repeat([]byte{0x11}, 32)}
	if _, err := clk.Update(forged); err == nil {
		t.Fatal("forged certificate was accepted")
	}
	if rejected != 1 {
		t.Fatalf("rejected = %d, want 1", rejected)
	}

	cert2, _ := upd.Advance(2)
	if _, err := clk.Update(cert2); err != nil {
		t.Fatalf("Update(2): %v", err)
	}
	if advanced != 2 || terminated != 1 {
		t.Fatalf("advanced = %d, terminated = %d, want 2, 1", advanced, terminated)
	}
}

func TestSetupTwiceRejected(t *testing.T) {
	clk := New()
	if _, err := clk.Setup(2, 16); err != nil {
		t.Fatalf("first Setup: %v", err)
	}
	if _, err := clk.Setup(2, 16); err == nil {
		t.Fatal("second Setup on the same clock was accepted")
	}
}
