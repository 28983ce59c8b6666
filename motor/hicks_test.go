package motor

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCognitiveDelay_GrowsWithChoiceCount(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	d1 := CognitiveDelay(rng, 1)
	d40 := CognitiveDelay(rng, 40)
	require.Greater(t, d40, d1-150*time.Millisecond, "delay for 40 alternatives should generally exceed delay for 1, allowing for jitter overlap")
	require.Greater(t, d1, 100*time.Millisecond)
}

func TestCognitiveDelay_NeverBelowBaseFloor(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 50; i++ {
		d := CognitiveDelay(rng, 0)
		require.Greater(t, d, time.Duration(0))
		// a=200 * variance-floor 0.7 = 140ms minimum before jitter.
		require.GreaterOrEqual(t, d, 130*time.Millisecond)
	}
}

func TestReactionGate_EnforcesFloor(t *testing.T) {
	var g reactionGate
	g.wait()
	start := time.Now()
	g.wait()
	elapsed := time.Since(start)
	require.GreaterOrEqual(t, elapsed, reactionFloor-2*time.Millisecond)
}
