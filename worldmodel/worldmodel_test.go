package worldmodel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNilModel_PredictAndLearnAreNoops(t *testing.T) {
	var m *Model
	p := m.Predict("somehash")
	require.Equal(t, "somehash", p.VisualHash)
	require.False(t, p.KnownSafe)
	require.Zero(t, p.RiskScore)

	require.NotPanics(t, func() { m.Learn("a", "b", OutcomeSuccess) })
}

func TestLearn_SuccessThenPredict_ReturnsKnownSafe(t *testing.T) {
	m := New()
	m.Learn("state1", "state2", OutcomeSuccess)

	p := m.Predict("state1")
	require.True(t, p.KnownSafe)
	require.Less(t, p.RiskScore, 0.1)
}

func TestLearn_HoneypotThenPredict_ReturnsHighRisk(t *testing.T) {
	m := New()
	m.Learn("danger-state", "", OutcomeHoneypot)

	p := m.Predict("danger-state")
	require.False(t, p.KnownSafe)
	require.Equal(t, 0.9, p.RiskScore)
	require.Contains(t, p.RiskIndicators, RiskHoneypotDetected)
}

func TestPredict_UnknownStateIsNeutral(t *testing.T) {
	m := New()
	p := m.Predict("never-seen")
	require.False(t, p.KnownSafe)
	require.Zero(t, p.RiskScore)
	require.Empty(t, p.RiskIndicators)
}
