package app

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/funtimes-ledstrip/internal/animator"
	"github.com/coreman2200/funtimes-ledstrip/internal/color"
	"github.com/coreman2200/funtimes-ledstrip/internal/config"
	"github.com/coreman2200/funtimes-ledstrip/internal/errcode"
	"github.com/coreman2200/funtimes-ledstrip/internal/strip"
	"github.com/coreman2200/funtimes-ledstrip/internal/ws"
)

func testConfig() *config.Config {
	c := config.Default()
	c.Animator.TickMs = 5
	c.Control = config.Control{RatePerSec: 100, Burst: 10}
	c.Strips = []config.Strip{
		{Name: "desk", Type: "ws2812b", LEDs: 3, Driver: "sim"},
		{Name: "lamp", Type: "sk6812rgbw", LEDs: 1, Driver: "sim"},
	}
	return c
}

func TestNew(t *testing.T) {
	c := testConfig()
	c.Schedules = []config.Schedule{{Name: "tick", Spec: "@every 1h", Command: "status desk"}}
	s, err := New(c, nil)
	require.NoError(t, err)
	defer s.Strips.Close()

	assert.Equal(t, 4, s.Strips.Len())
	assert.Len(t, s.Schedule.Entries(), 1)
	assert.Equal(t, 4, len(s.Animator.Snapshot()))
}

func TestNewFailsFast(t *testing.T) {
	c := testConfig()
	c.Strips[1].Type = "ws9999"
	_, err := New(c, nil)
	assert.Equal(t, errcode.NotFound, errcode.Of(err))

	c = testConfig()
	c.Strips[0].LEDs = 0
	_, err = New(c, nil)
	assert.Equal(t, errcode.InvalidParams, errcode.Of(err))

	c = testConfig()
	c.Schedules = []config.Schedule{{Spec: "@every 1m", Command: "off attic"}}
	_, err = New(c, nil)
	assert.Equal(t, errcode.NotFound, errcode.Of(err))

	c = testConfig()
	c.Schedules = []config.Schedule{{Spec: "whenever", Command: "off desk"}}
	_, err = New(c, nil)
	assert.Equal(t, errcode.InvalidParams, errcode.Of(err))
}

func TestStatusBecomesDiagnostic(t *testing.T) {
	s, err := New(testConfig(), nil)
	require.NoError(t, err)
	defer s.Strips.Close()

	require.NoError(t, s.Animator.Submit(animator.Blink{LEDs: strip.Bit(3), Period: 500 * time.Millisecond, Colour: color.AsRGB(0, 0, 255)}))
	require.NoError(t, s.Animator.Submit(animator.Status{LEDs: strip.Bit(0) | strip.Bit(3)}))
	s.Animator.Step()

	recent := s.Diags.Recent()
	require.Len(t, recent, 2)
	assert.Equal(t, "LED.status", recent[0].Code)
	assert.Equal(t, "desk:0 off #000000", recent[0].Summary)
	assert.Equal(t, "lamp blink #0000FF", recent[1].Summary)
	assert.Equal(t, int64(500), recent[1].Evidence["period_ms"])
}

func TestServeRoundTrip(t *testing.T) {
	s, err := New(testConfig(), nil)
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+ln.Addr().String()+"/control", nil)
	require.NoError(t, err)
	defer conn.Close()

	var hello ws.Message
	require.NoError(t, conn.ReadJSON(&hello))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("colour desk:1 red")))
	var res ws.Message
	require.NoError(t, conn.ReadJSON(&res))
	require.True(t, res.Result.OK, res.Result.Error)

	red := color.AsRGB(255, 0, 0)
	require.Eventually(t, func() bool {
		return s.Animator.Snapshot()[1].Colour == red
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return")
	}

	for _, r := range s.Animator.Snapshot() {
		assert.Equal(t, animator.ModeOff, r.Mode)
		assert.True(t, r.Colour.IsBlack())
	}
	assert.Greater(t, s.Strips.Strips()[0].Frames(), 1)
	assert.Empty(t, s.Strips.Strips()[0].Frame(), "buffers dropped on close")

	// the control session is hung up, not left to the client
	assert.Equal(t, 0, s.State.Sessions())
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
}

func TestScheduleRemoveIsSaved(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	onDisk := testConfig()
	onDisk.Schedules = []config.Schedule{
		{Name: "evening", Spec: "0 0 19 * * *", Command: "rainbow desk 20000"},
		{Name: "night", Spec: "0 30 23 * * *", Command: "off desk"},
	}
	require.NoError(t, config.Save(path, onDisk))

	c, err := config.Load(path)
	require.NoError(t, err)
	c.Listen = "127.0.0.1:0" // runtime override, must not reach the file
	s, err := New(c, nil)
	require.NoError(t, err)
	defer s.Strips.Close()
	s.ConfigPath = path

	entries := s.Schedule.Entries()
	require.Len(t, entries, 2)
	require.NoError(t, s.Schedule.Remove(entries[0].ID))
	require.NoError(t, s.saveSchedules())

	saved, err := config.Load(path)
	require.NoError(t, err)
	require.Len(t, saved.Schedules, 1)
	assert.Equal(t, "night", saved.Schedules[0].Name)
	assert.Equal(t, "off desk", saved.Schedules[0].Command)
	assert.Equal(t, onDisk.Listen, saved.Listen)
	require.Len(t, saved.Strips, 2)
	assert.Equal(t, "sim", saved.Strips[0].Driver)
}

func TestScheduleSaveWithoutPath(t *testing.T) {
	s, err := New(testConfig(), nil)
	require.NoError(t, err)
	defer s.Strips.Close()
	assert.NoError(t, s.saveSchedules())
}
