// Package topology describes, as declarative JSON, a set of named clocks
// and named vectors built from them — letting tests and local
// experimentation stand up a multi-node scenario from one file instead
// of hand-assembling Go literals.
package topology

import (
	"encoding/json"
	"fmt"
	"os"
)

// ClockSpec describes one named hash- or point-chain clock.
type ClockSpec struct {
	Kind     string `json:"kind"`      // "hash" or "point"
	Lifetime int64  `json:"lifetime"`
	SeedSize int    `json:"seed_size"`
}

// VectorSpec describes one named vector built from a set of named clocks.
// All referenced clocks must share Kind with the vector itself.
type VectorSpec struct {
	Kind    string   `json:"kind"` // "hash" or "point"
	Members []string `json:"members"`
}

// Topology holds a named set of clocks and the vectors built from them.
type Topology struct {
	Clocks  map[string]ClockSpec  `json:"clocks"`
	Vectors map[string]VectorSpec `json:"vectors,omitempty"`
}

// Load reads a JSON topology document from path and validates it.
func Load(path string) (*Topology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var top Topology
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, err
	}
	if err := top.Validate(); err != nil {
		return nil, fmt.Errorf("topology validation: %w", err)
	}
	return &top, nil
}

// Validate checks that every vector's members reference clocks that
// exist, agree in kind with the vector, and are not duplicated within
// that vector, and that every clock spec names a known kind.
func (t *Topology) Validate() error {
	for name, c := range t.Clocks {
		if c.Kind != "hash" && c.Kind != "point" {
			return fmt.Errorf("clock %q: kind must be \"hash\" or \"point\", got %q", name, c.Kind)
		}
		if c.Lifetime < 0 {
			return fmt.Errorf("clock %q: lifetime must be >= 0, got %d", name, c.Lifetime)
		}
		if c.SeedSize <= 0 {
			return fmt.Errorf("clock %q: seed_size must be > 0, got %d", name, c.SeedSize)
		}
	}
	for name, v := range t.Vectors {
		if v.Kind != "hash" && v.Kind != "point" {
			return fmt.Errorf("vector %q: kind must be \"hash\" or \"point\", got %q", name, v.Kind)
		}
		if len(v.Members) == 0 {
			return fmt.Errorf("vector %q: must reference at least one clock", name)
		}
		seen := make(map[string]bool, len(v.Members))
		for _, m := range v.Members {
			if seen[m] {
				return fmt.Errorf("vector %q: duplicate member %q", name, m)
			}
			seen[m] = true
			clk, ok := t.Clocks[m]
			if !ok {
				return fmt.Errorf("vector %q: references unknown clock %q", name, m)
			}
			if clk.Kind != v.Kind {
				return fmt.Errorf("vector %q: member %q has kind %q, want %q", name, m, clk.Kind, v.Kind)
			}
		}
	}
	return nil
}

// Save writes the topology to path as formatted JSON.
func Save(t *Topology, path string) error {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
