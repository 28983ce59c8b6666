// Package motor drives humanized pointer trajectories (WindMouse with
// gravity/wind/tremor), variable keystroke cadence, non-linear scroll, a
// micro-fidget background task, and Hick's-Law think delays.
package motor

import (
	"math"
	"math/rand"
	"time"
)

// Point is a 2D page-pixel coordinate.
type Point struct {
	X, Y float64
}

// TrajectoryPoint is one emitted point of a WindMouse trajectory.
type TrajectoryPoint struct {
	X, Y          float64
	DelayUntilNext time.Duration
}

const (
	gravityMagnitude = 9.0
	maxStep          = 10.0
	targetAreaRadius = 3.0
)

// stepBand returns the step-count range for a given euclidean distance
// (<100 → 10-20, <500 → 20-35, else → 35-50).
func stepBand(distance float64) (lo, hi int) {
	switch {
	case distance < 100:
		return 10, 20
	case distance < 500:
		return 20, 35
	default:
		return 35, 50
	}
}

// GenerateWindMouse produces a WindMouse trajectory from start to a target
// perturbed by a Gaussian sample N(0, (1-precision)*5) on each axis. Any two
// invocations with identical inputs produce different sequences of emitted
// points (nondeterminism is a required property, not an accident) because
// wind, tremor, and overshoot jitter are all independently sampled per call.
func GenerateWindMouse(rng *rand.Rand, start, target Point, precision float64) []TrajectoryPoint {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if precision < 0 {
		precision = 0
	}
	if precision > 1 {
		precision = 1
	}

	perturbStdDev := (1 - precision) * 5
	goal := Point{
		X: target.X + rng.NormFloat64()*perturbStdDev,
		Y: target.Y + rng.NormFloat64()*perturbStdDev,
	}

	distance := math.Hypot(goal.X-start.X, goal.Y-start.Y)
	lo, hi := stepBand(distance)
	steps := lo
	if hi > lo {
		steps += rng.Intn(hi - lo + 1)
	}

	// W is set once per trajectory in [0,10].
	W := rng.Float64() * 10

	points := make([]TrajectoryPoint, 0, steps+2)
	pos := start
	var vel Point

	for i := 0; i < steps; i++ {
		remaining := Point{X: goal.X - pos.X, Y: goal.Y - pos.Y}
		remainingDist := math.Hypot(remaining.X, remaining.Y)
		if remainingDist < targetAreaRadius {
			break
		}

		wind := Point{
			X: (rng.Float64()*2 - 1) * W,
			Y: (rng.Float64()*2 - 1) * W,
		}
		gravity := Point{}
		if remainingDist > 0 {
			gravity = Point{
				X: remaining.X / remainingDist * gravityMagnitude,
				Y: remaining.Y / remainingDist * gravityMagnitude,
			}
		}

		vel.X += wind.X + gravity.X
		vel.Y += wind.Y + gravity.Y
		speed := math.Hypot(vel.X, vel.Y)
		if speed > maxStep {
			vel.X = vel.X / speed * maxStep
			vel.Y = vel.Y / speed * maxStep
		}

		pos.X += vel.X
		pos.Y += vel.Y

		tremorX := rng.NormFloat64() * 0.3
		tremorY := rng.NormFloat64() * 0.3

		points = append(points, TrajectoryPoint{
			X:              pos.X + tremorX,
			Y:              pos.Y + tremorY,
			DelayUntilNext: randMillis(rng, 5, 15),
		})
	}

	// Overshoot 2-4px along the approach vector, then a correction point
	// with [-1,+1]px jitter around the true goal.
	approach := Point{X: goal.X - pos.X, Y: goal.Y - pos.Y}
	approachDist := math.Hypot(approach.X, approach.Y)
	if approachDist > 0 {
		overshootMag := 2 + rng.Float64()*2
		ux, uy := approach.X/approachDist, approach.Y/approachDist
		overshoot := Point{X: pos.X + ux*overshootMag, Y: pos.Y + uy*overshootMag}
		points = append(points, TrajectoryPoint{
			X:              overshoot.X,
			Y:              overshoot.Y,
			DelayUntilNext: randMillis(rng, 5, 15),
		})
	}

	correction := Point{
		X: goal.X + (rng.Float64()*2 - 1),
		Y: goal.Y + (rng.Float64()*2 - 1),
	}
	points = append(points, TrajectoryPoint{X: correction.X, Y: correction.Y, DelayUntilNext: 0})

	return points
}

func randMillis(rng *rand.Rand, loMs, hiMs int) time.Duration {
	return time.Duration(loMs+rng.Intn(hiMs-loMs+1)) * time.Millisecond
}
