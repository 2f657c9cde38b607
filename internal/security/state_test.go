package security

import (
	"encoding/hex"
	"testing"
)

func TestStateGenerator_Generate(t *testing.T) {
	g := NewStateGenerator()

	state, err := g.Generate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(state) != 64 {
		t.Errorf("expected 64-character state, got %d", len(state))
	}

	if _, err := hex.DecodeString(state); err != nil {
		t.Errorf("state is not valid hex: %v", err)
	}
}

func TestStateGenerator_Generate_Unique(t *testing.T) {
	g := NewStateGenerator()

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		state, err := g.Generate()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if seen[state] {
			t.Fatalf("duplicate state generated: %s", state)
		}
		seen[state] = true
	}
}
