package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "json", cfg: Config{AppName: "clover", Level: "info"}},
		{name: "pretty", cfg: Config{Level: "debug", Pretty: true}},
		{name: "bad level falls back", cfg: Config{Level: "loud"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogger(tt.cfg)
			require.NoError(t, err)
			assert.NotNil(t, logger)
		})
	}
}
