// Package motor drives humanized pointer trajectories (WindMouse with
// gravity/wind/tremor), variable keystroke cadence, non-linear scroll, a
// micro-fidget background task, and Hick's-Law think delays, all playing
// back through a session.Session's raw primitives.
package motor

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/use-agent/chimera/session"
)

// Pointer is the subset of session.Session that Mouse drives. Kept as an
// interface so motor can be unit tested without a real browser.
type Pointer interface {
	MoveTo(x, y float64) error
	Click(x, y float64) error
	Scroll(dx, dy float64) error
	LastPointer() session.Point
	Viewport() (w, h int)
}

// Typer is the subset of session.Session that Keyboard drives.
type Typer interface {
	TypeRune(r rune) error
}

// Mouse orchestrates humanized pointer movement over a Pointer.
type Mouse struct {
	target Pointer
	rng    *rand.Rand
	gate   reactionGate
	mu     sync.Mutex

	fidgetCancel context.CancelFunc
	fidgetDone   chan struct{}
}

// NewMouse returns a Mouse driving target. seed of 0 derives a time-based
// seed so independent Mouse instances never share a trajectory sequence.
func NewMouse(target Pointer, seed int64) *Mouse {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Mouse{target: target, rng: rand.New(rand.NewSource(seed))}
}

// Click moves the pointer along a WindMouse trajectory to (x, y), thinks for
// a Hick's-Law delay scaled by the number of clickable alternatives, then
// presses. precision in [0,1] controls how tightly WindMouse converges on
// the true target before the final correction point.
func (m *Mouse) Click(x, y float64, clickableCount int, precision float64) error {
	m.gate.wait()

	m.mu.Lock()
	cur := m.target.LastPointer()
	rng := m.rng
	m.mu.Unlock()

	path := GenerateWindMouse(rng, Point{X: cur.X, Y: cur.Y}, Point{X: x, Y: y}, precision)
	for _, p := range path {
		if err := m.target.MoveTo(p.X, p.Y); err != nil {
			return err
		}
		if p.DelayUntilNext > 0 {
			time.Sleep(p.DelayUntilNext)
		}
	}

	time.Sleep(CognitiveDelay(rng, clickableCount))

	// Pre-press delay: the gap between the pointer settling and the button
	// going down, as if the cursor lingered a moment before committing.
	time.Sleep(randMillis(rng, 50, 150))
	if err := m.target.Click(x, y); err != nil {
		return err
	}
	// Post-click pause: session.Click issues press and release in one call,
	// so the button is already up while this pause runs.
	time.Sleep(randMillis(rng, 50, 200))
	return nil
}

// Scroll moves the viewport by (dx, dy) total pixels over k randomized
// sub-steps (k in [3,8]) following an accelerate/decelerate speed curve,
// with Gaussian jitter on the per-step delta and a small per-step pixel
// jitter, and a pause between each sub-step.
func (m *Mouse) Scroll(dx, dy float64) error {
	m.mu.Lock()
	rng := m.rng
	m.mu.Unlock()

	k := 3 + rng.Intn(6) // 3..8
	weights := make([]float64, k)
	var total float64
	for i := 0; i < k; i++ {
		// Sine-shaped accelerate/decelerate curve peaking at the midpoint.
		t := float64(i+1) / float64(k)
		w := math.Sin(math.Pi * t)
		if w < 0.05 {
			w = 0.05
		}
		weights[i] = w
		total += w
	}

	for i := 0; i < k; i++ {
		frac := weights[i] / total
		stepX := dx * frac
		stepY := dy*frac + rng.NormFloat64()*0.1*math.Abs(dy*frac)
		stepX += rng.Float64()*4 - 2
		stepY += rng.Float64()*4 - 2

		if err := m.target.Scroll(stepX, stepY); err != nil {
			return err
		}
		time.Sleep(randMillis(rng, 20, 80))
	}
	return nil
}

// StartFidget begins a background task that nudges the pointer by up to
// ±3px every 50-200ms, clamped to the viewport, until StopFidget is called.
// A no-op if a fidget is already running.
func (m *Mouse) StartFidget() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fidgetCancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	m.fidgetCancel = cancel
	m.fidgetDone = done

	rng := m.rng
	target := m.target

	go func() {
		defer close(done)
		w, h := target.Viewport()
		for {
			wait := randMillis(rng, 50, 200)
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
			cur := target.LastPointer()
			nx := cur.X + (rng.Float64()*6 - 3)
			ny := cur.Y + (rng.Float64()*6 - 3)
			if nx < 0 {
				nx = 0
			}
			if ny < 0 {
				ny = 0
			}
			if w > 0 && nx > float64(w) {
				nx = float64(w)
			}
			if h > 0 && ny > float64(h) {
				ny = float64(h)
			}
			_ = target.MoveTo(nx, ny)
		}
	}()
}

// StopFidget cancels the background fidget task and waits for it to exit.
// A no-op if no fidget is running.
func (m *Mouse) StopFidget() {
	m.mu.Lock()
	cancel := m.fidgetCancel
	done := m.fidgetDone
	m.fidgetCancel = nil
	m.fidgetDone = nil
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Keyboard orchestrates humanized typing over a Typer.
type Keyboard struct {
	target Typer
	rng    *rand.Rand
	mu     sync.Mutex
}

// NewKeyboard returns a Keyboard driving target.
func NewKeyboard(target Typer, seed int64) *Keyboard {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Keyboard{target: target, rng: rand.New(rand.NewSource(seed))}
}

// Type issues one keystroke per rune in text with a per-character delay
// uniformly distributed in [50,200]ms.
func (k *Keyboard) Type(text string) error {
	k.mu.Lock()
	rng := k.rng
	k.mu.Unlock()

	for _, r := range text {
		if err := k.target.TypeRune(r); err != nil {
			return err
		}
		time.Sleep(randMillis(rng, 50, 200))
	}
	return nil
}
