// Package ooda implements the closed-loop action executor: Observe a visual
// hash, Orient by resolving an intent to coordinates through an external
// vision collaborator, Act with a humanized Motor gesture, and Verify by
// re-hashing and retrying on no visible change.
package ooda

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/use-agent/chimera/models"
	"github.com/use-agent/chimera/motor"
	"github.com/use-agent/chimera/perception"
	"github.com/use-agent/chimera/session"
	"github.com/use-agent/chimera/worldmodel"
)

const (
	defaultPrecision = 0.85
	lowConfidence    = 0.3
	settleDelay      = 2 * time.Second
	retryPause       = 1 * time.Second
)

// Session is the subset of session.Session the executor observes directly;
// pointer/keyboard actions go through motor.Mouse/motor.Keyboard instead.
type Session interface {
	VisualHash() (string, error)
	Screenshot() ([]byte, error)
	URL() string
	Title() string
}

// Result is the outcome of one Execute call.
type Result struct {
	Success    bool
	Message    string
	Confidence float64
	Screenshot []byte
	URL        string
	Title      string
}

// Executor drives one Session through the OODA loop.
type Executor struct {
	sess     Session
	mouse    *motor.Mouse
	keyboard *motor.Keyboard
	vision   Vision
	snapshot func() (perception.AxTree, error)
	world    *worldmodel.Model
	rng      *rand.Rand

	// lastClickableCount and lastIntent are set at the top of each Orient
	// pass and read by the act closures executeWithVerification invokes
	// for that same attempt.
	lastClickableCount int
	lastIntent         string
}

// New wires an Executor around a live session.Session. world may be nil —
// the world-model advisory is then skipped entirely.
func New(sess *session.Session, vision Vision, world *worldmodel.Model, seed int64) *Executor {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Executor{
		sess:     sess,
		mouse:    motor.NewMouse(sess, seed),
		keyboard: motor.NewKeyboard(sess, seed+1),
		vision:   vision,
		snapshot: func() (perception.AxTree, error) { return perception.Snapshot(sess.Page()) },
		world:    world,
		rng:      rand.New(rand.NewSource(seed + 2)),
	}
}

// Execute runs one action end to end, dispatching on actionType. maxRetries
// of 0 is treated as 1 (one attempt, no retry).
func (e *Executor) Execute(ctx context.Context, intent string, actionType models.ActionType, text string, maxRetries int) (Result, error) {
	if maxRetries <= 0 {
		maxRetries = 1
	}

	switch actionType {
	case models.ActionWait:
		time.Sleep(settleDelay)
		return e.snapshotResult(true, "wait completed", 1), nil
	case models.ActionScroll:
		return e.executeWithVerification(ctx, intent, maxRetries, e.actScroll)
	case models.ActionTypeText:
		return e.executeWithVerification(ctx, intent, maxRetries, func(x, y float64) error {
			if err := e.mouse.Click(x, y, e.lastClickableCount, defaultPrecision); err != nil {
				return err
			}
			time.Sleep(100 * time.Millisecond)
			return e.keyboard.Type(text)
		})
	default: // models.ActionClick
		return e.executeWithVerification(ctx, intent, maxRetries, func(x, y float64) error {
			return e.mouse.Click(x, y, e.lastClickableCount, defaultPrecision)
		})
	}
}

func (e *Executor) actScroll(_, _ float64) error {
	dy := 400.0
	if strings.Contains(strings.ToLower(e.lastIntent), "up") {
		dy = -400.0
	}
	return e.mouse.Scroll(0, dy)
}

// executeWithVerification implements the Observe/Orient/Act/Settle/Verify
// loop shared by Click, Type and Scroll actions. act receives the vision
// coordinates (ignored by Scroll, which derives its direction from intent).
func (e *Executor) executeWithVerification(ctx context.Context, intent string, maxRetries int, act func(x, y float64) error) (Result, error) {
	e.lastIntent = intent

	h0, err := e.sess.VisualHash()
	if err != nil {
		return Result{}, models.NewAgentError(models.ErrCodeBrowserFailure, "failed to compute initial visual hash", err)
	}

	var lastConfidence float64
	for attempt := 0; attempt < maxRetries; attempt++ {
		screenshot, err := e.sess.Screenshot()
		if err != nil {
			return Result{}, models.NewAgentError(models.ErrCodeBrowserFailure, "screenshot failed", err)
		}

		tree, err := e.snapshot()
		if err != nil {
			slog.Warn("ooda: accessibility snapshot failed, proceeding with zero clickable count", "error", err)
		}
		e.lastClickableCount = tree.ClickableCount()

		time.Sleep(motor.CognitiveDelay(e.rng, e.lastClickableCount))

		if advisory := e.world.Predict(h0); len(advisory.RiskIndicators) > 0 {
			slog.Warn("ooda: world model flagged risk before acting", "hash", h0, "risk", advisory.RiskIndicators)
		}

		e.mouse.StartFidget()
		vr, err := e.vision.Coordinates(ctx, screenshot, intent)
		e.mouse.StopFidget()
		if err != nil {
			return Result{}, err
		}
		lastConfidence = vr.Confidence
		if vr.Confidence < lowConfidence {
			slog.Warn("ooda: low vision confidence, proceeding anyway", "confidence", vr.Confidence, "intent", intent)
		}

		if err := act(vr.X, vr.Y); err != nil {
			return Result{}, err
		}

		time.Sleep(settleDelay)

		h1, err := e.sess.VisualHash()
		if err != nil {
			return Result{}, models.NewAgentError(models.ErrCodeBrowserFailure, "failed to compute post-action visual hash", err)
		}

		if h1 != h0 {
			e.world.Learn(h0, h1, worldmodel.OutcomeSuccess)
			return e.snapshotResult(true, fmt.Sprintf("action verified, confidence: %.2f", lastConfidence), lastConfidence), nil
		}

		if attempt < maxRetries-1 {
			time.Sleep(retryPause)
		}
	}

	return Result{}, models.NewAgentError(models.ErrCodeActionFailed,
		fmt.Sprintf("screen did not change after %d retries", maxRetries), nil)
}

func (e *Executor) snapshotResult(success bool, message string, confidence float64) Result {
	shot, _ := e.sess.Screenshot()
	return Result{
		Success:    success,
		Message:    message,
		Confidence: confidence,
		Screenshot: shot,
		URL:        e.sess.URL(),
		Title:      e.sess.Title(),
	}
}
