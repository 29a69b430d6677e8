package database

import (
	"testing"

	"github.com/huandu/go-sqlbuilder"
	"github.com/stretchr/testify/assert"
)

func TestInsertBuilder_OnConflictUpdate(t *testing.T) {
	tests := []struct {
		name     string
		flavor   sqlbuilder.Flavor
		guard    string
		expected []string
	}{
		{
			name:     "postgres guarded",
			flavor:   sqlbuilder.PostgreSQL,
			guard:    "match_results.manual = FALSE",
			expected: []string{"VALUES ($1, $2, $3)", "ON CONFLICT (state, raw_name) DO UPDATE SET pass = EXCLUDED.pass WHERE match_results.manual = FALSE"},
		},
		{
			name:     "sqlite unguarded",
			flavor:   sqlbuilder.SQLite,
			expected: []string{"VALUES (?, ?, ?)", "ON CONFLICT (state, raw_name) DO UPDATE SET pass = EXCLUDED.pass"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ib := NewInsertBuilder(tt.flavor).
				InsertInto("match_results").
				Cols("state", "raw_name", "pass").
				Values("GOA", "XYZ", 6).
				OnConflictUpdate([]string{"state", "raw_name"}, []string{"pass"}, tt.guard)

			query, args := ib.Build()
			for _, fragment := range tt.expected {
				assert.Contains(t, query, fragment)
			}
			assert.Len(t, args, 3)
		})
	}
}

func TestFlavorFor(t *testing.T) {
	assert.Equal(t, sqlbuilder.SQLite, FlavorFor("sqlite"))
	assert.Equal(t, sqlbuilder.PostgreSQL, FlavorFor("postgres"))
}
