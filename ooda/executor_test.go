package ooda

import (
	"context"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/use-agent/chimera/models"
	"github.com/use-agent/chimera/motor"
	"github.com/use-agent/chimera/perception"
	"github.com/use-agent/chimera/session"
)

type fakeSession struct {
	mu        sync.Mutex
	hashes    []string
	hashIdx   int
	pos       session.Point
	w, h      int
	clicks    int
	typedText string
	scrolls   []session.Point
}

func newFakeSession(hashes []string) *fakeSession {
	return &fakeSession{hashes: hashes, pos: session.Point{X: 960, Y: 540}, w: 1920, h: 1080}
}

func (f *fakeSession) VisualHash() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h := f.hashes[f.hashIdx]
	if f.hashIdx < len(f.hashes)-1 {
		f.hashIdx++
	}
	return h, nil
}

func (f *fakeSession) Screenshot() ([]byte, error) { return []byte("png-bytes"), nil }
func (f *fakeSession) URL() string                  { return "https://example.test" }
func (f *fakeSession) Title() string                { return "Example" }

func (f *fakeSession) MoveTo(x, y float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pos = session.Point{X: x, Y: y}
	return nil
}

func (f *fakeSession) Click(x, y float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pos = session.Point{X: x, Y: y}
	f.clicks++
	return nil
}

func (f *fakeSession) Scroll(dx, dy float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scrolls = append(f.scrolls, session.Point{X: dx, Y: dy})
	return nil
}

func (f *fakeSession) LastPointer() session.Point {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pos
}

func (f *fakeSession) Viewport() (int, int) { return f.w, f.h }

func (f *fakeSession) TypeRune(r rune) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.typedText += string(r)
	return nil
}

type fakeVision struct {
	result VisionResult
	err    error
	calls  int
}

func (v *fakeVision) Coordinates(ctx context.Context, screenshot []byte, intent string) (VisionResult, error) {
	v.calls++
	return v.result, v.err
}

func newTestExecutor(t *testing.T, fs *fakeSession, vis Vision) *Executor {
	t.Helper()
	return &Executor{
		sess:     fs,
		mouse:    motor.NewMouse(fs, 1),
		keyboard: motor.NewKeyboard(fs, 2),
		vision:   vis,
		snapshot: func() (perception.AxTree, error) { return perception.AxTree{}, nil },
		world:    nil,
		rng:      rand.New(rand.NewSource(3)),
	}
}

func TestExecute_ClickSucceedsWhenHashChanges(t *testing.T) {
	fs := newFakeSession([]string{"h0", "h1"})
	vis := &fakeVision{result: VisionResult{X: 400, Y: 300, Confidence: 0.9, Found: true}}
	e := newTestExecutor(t, fs, vis)

	res, err := e.Execute(context.Background(), "submit button", models.ActionClick, "", 3)
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Contains(t, res.Message, "confidence: 0.90")
	require.Equal(t, 1, fs.clicks)
	require.Equal(t, 1, vis.calls)
}

func TestExecute_ClickFailsAfterExhaustingRetries(t *testing.T) {
	fs := newFakeSession([]string{"same", "same", "same", "same"})
	vis := &fakeVision{result: VisionResult{X: 10, Y: 10, Confidence: 0.8, Found: true}}
	e := newTestExecutor(t, fs, vis)

	_, err := e.Execute(context.Background(), "ghost button", models.ActionClick, "", 2)
	require.Error(t, err)

	agentErr, ok := err.(*models.AgentError)
	require.True(t, ok)
	require.Equal(t, models.ErrCodeActionFailed, agentErr.Code)
	require.Equal(t, 2, vis.calls)
}

func TestExecute_VisionFailurePropagates(t *testing.T) {
	fs := newFakeSession([]string{"h0"})
	vis := &fakeVision{err: models.NewAgentError(models.ErrCodeVisionFailure, "vision service error: down", nil)}
	e := newTestExecutor(t, fs, vis)

	_, err := e.Execute(context.Background(), "anything", models.ActionClick, "", 3)
	require.Error(t, err)
}

func TestExecute_TypeActionTypesText(t *testing.T) {
	fs := newFakeSession([]string{"h0", "h1"})
	vis := &fakeVision{result: VisionResult{X: 100, Y: 100, Confidence: 0.95, Found: true}}
	e := newTestExecutor(t, fs, vis)

	res, err := e.Execute(context.Background(), "email field", models.ActionTypeText, "hi", 2)
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Equal(t, "hi", fs.typedText)
}

func TestExecute_ScrollActionScrolls(t *testing.T) {
	fs := newFakeSession([]string{"h0", "h1"})
	vis := &fakeVision{result: VisionResult{X: 0, Y: 0, Confidence: 0.5, Found: true}}
	e := newTestExecutor(t, fs, vis)

	res, err := e.Execute(context.Background(), "scroll down", models.ActionScroll, "", 2)
	require.NoError(t, err)
	require.True(t, res.Success)
	require.NotEmpty(t, fs.scrolls)
}

func TestExecute_WaitAlwaysSucceedsWithoutVision(t *testing.T) {
	fs := newFakeSession([]string{"h0"})
	vis := &fakeVision{}
	e := newTestExecutor(t, fs, vis)

	res, err := e.Execute(context.Background(), "", models.ActionWait, "", 1)
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Equal(t, 0, vis.calls)
}

func TestRunObjective_EmitsObservingThinkingActingCompleteThenCloses(t *testing.T) {
	fs := newFakeSession([]string{"h0", "h1"})
	vis := &fakeVision{result: VisionResult{X: 50, Y: 60, Confidence: 0.7, Found: true}}
	e := newTestExecutor(t, fs, vis)

	events := make(chan models.ObjectiveEvent, 10)
	e.RunObjective(context.Background(), "find the login link", false, 0, events)

	var statuses []models.ObjectiveStatus
	for ev := range events {
		statuses = append(statuses, ev.Status)
	}

	require.Equal(t, []models.ObjectiveStatus{
		models.StatusObserving,
		models.StatusThinking,
		models.StatusActing,
		models.StatusComplete,
	}, statuses)
}
