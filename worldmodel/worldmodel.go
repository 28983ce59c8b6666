// Package worldmodel provides an optional, nil-accepting pre-click advisory:
// two hash-keyed pattern maps recording what has previously been safe or
// dangerous at a given visual state, updated only after an action's outcome
// is known.
package worldmodel

import "sync"

// RiskIndicator names a specific reason a predicted click looks dangerous.
type RiskIndicator string

const (
	RiskHoneypotDetected   RiskIndicator = "honeypot_detected"
	RiskCaptchaAppeared    RiskIndicator = "captcha_appeared"
	RiskErrorPage          RiskIndicator = "error_page"
	RiskUnexpectedRedirect RiskIndicator = "unexpected_redirect"
	RiskPopupBlocking      RiskIndicator = "popup_blocking"
	RiskInfiniteLoop       RiskIndicator = "infinite_loop"
)

// Outcome classifies what actually happened after an action, used by Learn
// to decide which map an observation belongs in.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeFailure  Outcome = "failure"
	OutcomeHoneypot Outcome = "honeypot"
	OutcomeCaptcha  Outcome = "captcha"
)

// safeEntry records an action known to have worked from a given state.
type safeEntry struct {
	expectedNextHash string
	confidence       float64
}

// dangerEntry records an action known to be risky from a given state.
type dangerEntry struct {
	risk        RiskIndicator
	description string
}

// PredictedState is the advisory returned for a proposed click.
type PredictedState struct {
	VisualHash     string
	RiskIndicators []RiskIndicator
	RiskScore      float64
	KnownSafe      bool
}

// Model holds learned safe/dangerous visual-hash patterns. A nil *Model is
// valid everywhere it's consulted; callers must not dereference it directly.
type Model struct {
	mu        sync.Mutex
	safe      map[string]safeEntry
	dangerous map[string]dangerEntry
}

// New returns an empty Model.
func New() *Model {
	return &Model{
		safe:      make(map[string]safeEntry),
		dangerous: make(map[string]dangerEntry),
	}
}

// Predict returns an advisory for clicking while the page is at stateHash.
// A nil Model always returns a zero-risk advisory with KnownSafe=false — the
// caller treats that as "no opinion", not "confirmed safe".
func (m *Model) Predict(stateHash string) PredictedState {
	if m == nil {
		return PredictedState{VisualHash: stateHash}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if d, ok := m.dangerous[stateHash]; ok {
		return PredictedState{
			VisualHash:     stateHash,
			RiskIndicators: []RiskIndicator{d.risk},
			RiskScore:      0.9,
		}
	}
	if s, ok := m.safe[stateHash]; ok {
		return PredictedState{
			VisualHash: stateHash,
			RiskScore:  0.1 * (1 - s.confidence),
			KnownSafe:  true,
		}
	}
	return PredictedState{VisualHash: stateHash}
}

// Learn records the outcome of an action taken from fromHash, resulting in
// toHash. A nil Model silently discards the observation.
func (m *Model) Learn(fromHash, toHash string, outcome Outcome) {
	if m == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	switch outcome {
	case OutcomeSuccess:
		m.safe[fromHash] = safeEntry{expectedNextHash: toHash, confidence: 0.8}
	case OutcomeHoneypot:
		m.dangerous[fromHash] = dangerEntry{risk: RiskHoneypotDetected, description: "learned from observed honeypot outcome"}
	case OutcomeCaptcha:
		m.dangerous[fromHash] = dangerEntry{risk: RiskCaptchaAppeared, description: "learned from observed captcha outcome"}
	}
}
