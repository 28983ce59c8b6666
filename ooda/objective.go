package ooda

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/use-agent/chimera/models"
)

const defaultMaxObjectiveIters = 20

// RunObjective streams the iterations of resolving instruction against the
// current page. multiStep gates the (unimplemented) v2 convergence loop —
// v1 always stops after its first iteration regardless of the flag, but
// logs that the limitation was hit when the caller asked for multi-step
// behavior. Closing ctx ends the stream after the in-flight send.
func (e *Executor) RunObjective(ctx context.Context, instruction string, multiStep bool, maxIters int, events chan<- models.ObjectiveEvent) {
	defer close(events)

	if maxIters <= 0 {
		maxIters = defaultMaxObjectiveIters
	}

	for iter := 0; iter < maxIters; iter++ {
		screenshot, err := e.sess.Screenshot()
		if err != nil {
			e.sendOrStop(ctx, events, models.ObjectiveEvent{
				Status:  models.StatusError,
				Message: "failed to capture screenshot: " + err.Error(),
			})
			return
		}
		if !e.sendOrStop(ctx, events, models.ObjectiveEvent{
			Status:     models.StatusObserving,
			Screenshot: screenshot,
		}) {
			return
		}

		e.mouse.StartFidget()
		vr, err := e.vision.Coordinates(ctx, screenshot, instruction)
		e.mouse.StopFidget()
		if err != nil {
			e.sendOrStop(ctx, events, models.ObjectiveEvent{
				Status:  models.StatusError,
				Message: err.Error(),
			})
			return
		}

		if !e.sendOrStop(ctx, events, models.ObjectiveEvent{
			Status:  models.StatusThinking,
			Message: pointMessage(vr),
		}) {
			return
		}

		if err := e.mouse.Click(vr.X, vr.Y, e.lastClickableCount, defaultPrecision); err != nil {
			e.sendOrStop(ctx, events, models.ObjectiveEvent{
				Status:  models.StatusError,
				Message: "click failed: " + err.Error(),
			})
			return
		}

		afterShot, err := e.sess.Screenshot()
		if err != nil {
			e.sendOrStop(ctx, events, models.ObjectiveEvent{
				Status:  models.StatusError,
				Message: "failed to capture post-action screenshot: " + err.Error(),
			})
			return
		}
		if !e.sendOrStop(ctx, events, models.ObjectiveEvent{
			Status:     models.StatusActing,
			Screenshot: afterShot,
			LastAction: pointMessage(vr),
		}) {
			return
		}

		time.Sleep(1 * time.Second)

		if multiStep {
			slog.Debug("objective stream: v1 single-step behavior, ignoring remaining iterations")
		}
		e.sendOrStop(ctx, events, models.ObjectiveEvent{
			Status:  models.StatusComplete,
			Message: "objective iteration complete",
		})
		return
	}
}

// sendOrStop sends ev on events unless ctx is already done, in which case
// it returns false so the caller can stop without blocking on a closed
// consumer.
func (e *Executor) sendOrStop(ctx context.Context, events chan<- models.ObjectiveEvent, ev models.ObjectiveEvent) bool {
	select {
	case <-ctx.Done():
		return false
	case events <- ev:
		return true
	}
}

func pointMessage(vr VisionResult) string {
	return fmt.Sprintf("(%.0f, %.0f) confidence %.2f", vr.X, vr.Y, vr.Confidence)
}
