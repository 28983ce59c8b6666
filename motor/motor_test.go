package motor

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/use-agent/chimera/session"
)

type fakePointer struct {
	mu      sync.Mutex
	pos     session.Point
	w, h    int
	clicks  []session.Point
	moves   int
	scrolls []session.Point
}

func newFakePointer() *fakePointer {
	return &fakePointer{pos: session.Point{X: 500, Y: 500}, w: 1920, h: 1080}
}

func (f *fakePointer) MoveTo(x, y float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pos = session.Point{X: x, Y: y}
	f.moves++
	return nil
}

func (f *fakePointer) Click(x, y float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pos = session.Point{X: x, Y: y}
	f.clicks = append(f.clicks, f.pos)
	return nil
}

func (f *fakePointer) Scroll(dx, dy float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scrolls = append(f.scrolls, session.Point{X: dx, Y: dy})
	return nil
}

func (f *fakePointer) LastPointer() session.Point {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pos
}

func (f *fakePointer) Viewport() (int, int) {
	return f.w, f.h
}

type fakeTyper struct {
	mu    sync.Mutex
	runes []rune
}

func (f *fakeTyper) TypeRune(r rune) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runes = append(f.runes, r)
	return nil
}

func TestMouse_ClickMovesThenClicksAtTarget(t *testing.T) {
	fp := newFakePointer()
	m := NewMouse(fp, 1)

	err := m.Click(600, 620, 5, 0.9)
	require.NoError(t, err)

	require.Len(t, fp.clicks, 1)
	require.InDelta(t, 600, fp.clicks[0].X, 0.5)
	require.InDelta(t, 620, fp.clicks[0].Y, 0.5)
	require.Greater(t, fp.moves, 0, "Click must play back a multi-point trajectory before pressing")
}

func TestMouse_ScrollIssuesMultipleSubSteps(t *testing.T) {
	fp := newFakePointer()
	m := NewMouse(fp, 2)

	require.NoError(t, m.Scroll(0, 300))
	require.GreaterOrEqual(t, len(fp.scrolls), 3)
	require.LessOrEqual(t, len(fp.scrolls), 8)

	var total float64
	for _, s := range fp.scrolls {
		total += s.Y
	}
	require.InDelta(t, 300, total, 30)
}

func TestMouse_FidgetStartStopIsClean(t *testing.T) {
	fp := newFakePointer()
	m := NewMouse(fp, 3)

	m.StartFidget()
	time.Sleep(250 * time.Millisecond)
	m.StopFidget()

	require.Greater(t, fp.moves, 0, "fidget should have nudged the pointer at least once")

	pos := fp.LastPointer()
	require.GreaterOrEqual(t, pos.X, 0.0)
	require.LessOrEqual(t, pos.X, float64(fp.w))
	require.GreaterOrEqual(t, pos.Y, 0.0)
	require.LessOrEqual(t, pos.Y, float64(fp.h))

	// Calling StopFidget again must be a safe no-op.
	m.StopFidget()
}

func TestKeyboard_TypeSendsEveryRune(t *testing.T) {
	ft := &fakeTyper{}
	k := NewKeyboard(ft, 4)

	require.NoError(t, k.Type("hi"))
	require.Equal(t, []rune("hi"), ft.runes)
}
