package diagnostics

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/funtimes-ledstrip/internal/errcode"
)

func TestFromError(t *testing.T) {
	err := fmt.Errorf("schedule: %w", errcode.New(errcode.NotFound, "strip.ParseAddress", "no strip \"attic\""))
	d := FromError("schedule evening", err)
	assert.Equal(t, Warn, d.Severity)
	assert.Equal(t, "CMD.not_found", d.Code)
	assert.Equal(t, "schedule evening failed", d.Summary)
	assert.Contains(t, d.Detail, "attic")
	assert.NotEmpty(t, d.SuggestedFixes)
	assert.Equal(t, "strip.ParseAddress", d.Evidence["op"])

	d = FromError("control", fmt.Errorf("plain"))
	assert.Equal(t, "CMD.error", d.Code)
	assert.Nil(t, d.Evidence)
}

func TestLogKeepsRecent(t *testing.T) {
	l := NewLog(3)
	for i := 0; i < 5; i++ {
		l.Push(Diagnostic{Code: fmt.Sprint(i)})
	}
	recent := l.Recent()
	require.Len(t, recent, 3)
	assert.Equal(t, "2", recent[0].Code)
	assert.Equal(t, "4", recent[2].Code)
	assert.False(t, recent[0].Time.IsZero())
}

func TestSubscribe(t *testing.T) {
	l := NewLog(0)
	ch, cancel := l.Subscribe(1)

	l.Push(Diagnostic{Code: "A"})
	l.Push(Diagnostic{Code: "B"}) // buffer full, dropped for this subscriber

	select {
	case d := <-ch:
		assert.Equal(t, "A", d.Code)
	case <-time.After(time.Second):
		t.Fatal("no diagnostic")
	}

	cancel()
	cancel()
	_, open := <-ch
	assert.False(t, open)
	l.Push(Diagnostic{Code: "C"})
	assert.Len(t, l.Recent(), 3)
}

func TestHook(t *testing.T) {
	l := NewLog(0)
	var out bytes.Buffer
	logger := zerolog.New(&out).Hook(Hook{Log: l})

	logger.Info().Msg("fine")
	logger.Warn().Msg("queue full")
	logger.Error().Msg("bus fault")

	recent := l.Recent()
	require.Len(t, recent, 2)
	assert.Equal(t, Diagnostic{Time: recent[0].Time, Severity: Warn, Code: "LOG.warn", Summary: "queue full"}, recent[0])
	assert.Equal(t, Err, recent[1].Severity)
	assert.Equal(t, "LOG.error", recent[1].Code)
}
