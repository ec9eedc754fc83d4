package scheduler

import (
	"errors"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/newswire/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

type fakeStarter struct {
	calls atomic.Int32
	err   error
}

func (f *fakeStarter) Start() (string, error) {
	f.calls.Add(1)
	if f.err != nil {
		return "", f.err
	}
	return "run", nil
}

func TestNewRejectsInvalidSpec(t *testing.T) {
	_, err := New("every minute", &fakeStarter{}, testLogger)
	assert.Error(t, err)

	_, err = New("* * * * * *", &fakeStarter{}, testLogger)
	assert.Error(t, err, "six-field expressions are not accepted")
}

func TestTrigger(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"started", nil},
		{"already running", types.ErrAlreadyRunning},
		{"other error", errors.New("closed")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			starter := &fakeStarter{err: tt.err}
			s, err := New("*/5 * * * *", starter, testLogger)
			require.NoError(t, err)

			assert.NotPanics(t, s.Trigger)
			assert.Equal(t, int32(1), starter.calls.Load())
		})
	}
}

func TestStartStop(t *testing.T) {
	starter := &fakeStarter{}
	s, err := New("@hourly", starter, testLogger)
	require.NoError(t, err)

	require.NoError(t, s.Start())
	require.NoError(t, s.Start())
	assert.Len(t, s.cron.Entries(), 1)

	s.Stop()
	assert.Empty(t, s.cron.Entries())
	s.Stop()
}
