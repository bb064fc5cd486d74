package main

import (
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/scenecore"
)

func newTestWorld(t *testing.T) *scenecore.World {
	t.Helper()
	w, err := scenecore.New(
		scenecore.WithTieredConfig(scenecore.TieredConfig{SmallBlockCount: 16, MediumBlockCount: 4, LargeCapacity: 1 << 16}),
		scenecore.WithCapacity(1),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func newTestScreen(t *testing.T, width, height int) tcell.SimulationScreen {
	t.Helper()
	s := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, s.Init())
	s.SetSize(width, height)
	t.Cleanup(s.Fini)
	return s
}

func cell(s tcell.Screen, x, y int) rune {
	r, _, _, _ := s.GetContent(x, y)
	return r
}

func TestDrawPool_Grid(t *testing.T) {
	w := newTestWorld(t)
	s := newTestScreen(t, 10, 10)

	var bufs [][]byte
	for i := 0; i < 3; i++ {
		b, err := w.Alloc(16)
		require.NoError(t, err)
		bufs = append(bufs, b)
	}
	require.NoError(t, w.Free(bufs[1], 16))

	small := w.BlockPools()[0]
	next := drawPool(s, 0, 0, 10, small)
	assert.Equal(t, 3, next, "header plus 16 blocks in rows of 10")

	assert.Equal(t, glyphUsed, cell(s, 0, 1))
	assert.Equal(t, glyphFree, cell(s, 1, 1))
	assert.Equal(t, glyphUsed, cell(s, 2, 1))
	assert.Equal(t, glyphFree, cell(s, 3, 1))
	assert.Equal(t, glyphFree, cell(s, 5, 2), "block 15 wraps to the second row")
}

func TestWorkload_StepAndDrain(t *testing.T) {
	w := newTestWorld(t)
	l := newWorkload(w, 3, 2048)

	require.NoError(t, l.step(200))
	assert.Equal(t, 200, l.allocs+l.frees+l.failures)
	assert.Equal(t, l.allocs-l.frees, len(l.live))

	require.NoError(t, l.drain())
	assert.Empty(t, l.live)
	for _, p := range w.BlockPools() {
		assert.Zero(t, p.Used, p.Name)
	}
}

func TestApp_Handle(t *testing.T) {
	w := newTestWorld(t)
	s := newTestScreen(t, 40, 20)
	a := newApp(s, newWorkload(w, 1, 64), 4)

	assert.True(t, a.handle(tcell.NewEventKey(tcell.KeyRune, ' ', tcell.ModNone)))
	assert.True(t, a.paused)
	assert.True(t, a.handle(tcell.NewEventKey(tcell.KeyRune, '+', tcell.ModNone)))
	assert.Equal(t, 8, a.rate)
	a.handle(tcell.NewEventKey(tcell.KeyRune, '-', tcell.ModNone))
	a.handle(tcell.NewEventKey(tcell.KeyRune, '-', tcell.ModNone))
	a.handle(tcell.NewEventKey(tcell.KeyRune, '-', tcell.ModNone))
	a.handle(tcell.NewEventKey(tcell.KeyRune, '-', tcell.ModNone))
	assert.Equal(t, 1, a.rate, "rate never drops below one")

	a.draw()
	assert.Equal(t, 'p', cell(s, 0, 0))

	assert.False(t, a.handle(tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone)))
	assert.False(t, a.handle(tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone)))
}
