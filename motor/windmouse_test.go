package motor

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateWindMouse_NondeterministicAcrossCalls(t *testing.T) {
	start := Point{X: 0, Y: 0}
	target := Point{X: 400, Y: 300}

	a := GenerateWindMouse(rand.New(rand.NewSource(1)), start, target, 0.8)
	b := GenerateWindMouse(rand.New(rand.NewSource(2)), start, target, 0.8)

	require.NotEmpty(t, a)
	require.NotEmpty(t, b)

	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	require.Greater(t, n, 0)

	differing := 0
	for i := 0; i < n; i++ {
		if a[i].X != b[i].X || a[i].Y != b[i].Y {
			differing++
		}
	}
	ratio := float64(differing) / float64(n)
	require.GreaterOrEqual(t, ratio, 0.95, "two trajectories with the same inputs but independent rngs must differ in at least 95%% of points")
}

func TestGenerateWindMouse_EndsNearTarget(t *testing.T) {
	start := Point{X: 0, Y: 0}
	target := Point{X: 200, Y: 150}
	path := GenerateWindMouse(rand.New(rand.NewSource(42)), start, target, 1.0)
	require.NotEmpty(t, path)
	last := path[len(path)-1]
	dist := ((last.X-target.X)*(last.X-target.X) + (last.Y-target.Y)*(last.Y-target.Y))
	require.Less(t, dist, 25.0*25.0, "final correction point must land within a small radius of the target at precision 1.0")
}

func TestStepBand(t *testing.T) {
	lo, hi := stepBand(50)
	require.Equal(t, 10, lo)
	require.Equal(t, 20, hi)

	lo, hi = stepBand(300)
	require.Equal(t, 20, lo)
	require.Equal(t, 35, hi)

	lo, hi = stepBand(900)
	require.Equal(t, 35, lo)
	require.Equal(t, 50, hi)
}
