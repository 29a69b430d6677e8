package startup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func TestStartup_StartsDependenciesInOrder(t *testing.T) {
	var started []string
	s := NewStartup(testLogger(), 1)

	record := func(name string) func(context.Context) error {
		return func(context.Context) error {
			started = append(started, name)
			return nil
		}
	}

	s.AddDependency(&Func{Name: "processor", Requires: []string{"database"}, StartFunc: record("processor")})
	s.AddDependency(&Func{Name: "database", StartFunc: record("database")})

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, []string{"database", "processor"}, started)
	assert.Equal(t, StartupStatusStarted, s.Status("processor"))
}

func TestStartup_RetriesUntilSuccess(t *testing.T) {
	attempts := 0
	s := NewStartup(testLogger(), 3)
	s.unit = time.Millisecond

	s.AddDependency(&Func{Name: "redis", StartFunc: func(context.Context) error {
		attempts++
		if attempts < 2 {
			return errors.New("connection refused")
		}
		return nil
	}})

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, 2, attempts)
}

func TestStartup_GivesUp(t *testing.T) {
	s := NewStartup(testLogger(), 2)
	s.unit = time.Millisecond
	s.AddDependency(&Func{Name: "kafka", StartFunc: func(context.Context) error {
		return errors.New("no brokers")
	}})

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempts")
	assert.Equal(t, StartupStatusFailed, s.Status("kafka"))
}

func TestStartup_StopReverseOrder(t *testing.T) {
	var stopped []string
	s := NewStartup(testLogger(), 1)
	for _, name := range []string{"database", "redis"} {
		name := name
		s.AddDependency(&Func{Name: name, StopFunc: func(context.Context) error {
			stopped = append(stopped, name)
			return nil
		}})
	}

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Stop(context.Background()))
	assert.Equal(t, []string{"redis", "database"}, stopped)
}
