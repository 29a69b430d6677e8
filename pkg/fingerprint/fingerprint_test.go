package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerate_KeyOrderIndependent(t *testing.T) {
	a := map[string]any{"state": "GOA", "pass": 6, "nested": map[string]any{"x": 1, "y": "z"}}
	b := map[string]any{"nested": map[string]any{"y": "z", "x": 1}, "pass": 6, "state": "GOA"}

	assert.Equal(t, Generate(a), Generate(b))
}

func TestGenerate_Exclusions(t *testing.T) {
	tests := []struct {
		name    string
		a       map[string]any
		b       map[string]any
		exclude []string
		same    bool
	}{
		{
			name:    "excluded timestamp ignored",
			a:       map[string]any{"pass": 2, "matched_at": "2024-01-01"},
			b:       map[string]any{"pass": 2, "matched_at": "2025-01-01"},
			exclude: []string{"matched_at"},
			same:    true,
		},
		{
			name:    "nested exclusion",
			a:       map[string]any{"pass": 2, "meta": map[string]any{"run": "a"}},
			b:       map[string]any{"pass": 2, "meta": map[string]any{"run": "b"}},
			exclude: []string{"meta"},
			same:    true,
		},
		{
			name: "value change detected",
			a:    map[string]any{"pass": 2},
			b:    map[string]any{"pass": 3},
			same: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			changed := HasChanged(Generate(tt.a, tt.exclude...), Generate(tt.b, tt.exclude...))
			assert.Equal(t, !tt.same, changed)
		})
	}
}
