// Package models holds the request/response/event shapes for the agent's
// RPC surface. Types that are cross-cutting live here; types
// owned by one component (AxNode/AxTree, patcher.Pattern, SyntheticProfile,
// TrajectoryPoint) live in that component's package instead.
package models

// ActionType enumerates the PerformAction operation kinds.
type ActionType string

const (
	ActionClick  ActionType = "click"
	ActionTypeText ActionType = "type"
	ActionScroll ActionType = "scroll"
	ActionWait   ActionType = "wait"
)

// StartSessionRequest starts a new browser session.
type StartSessionRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Headless  bool   `json:"headless"`
}

// StartSessionResponse reports the outcome of StartSession.
type StartSessionResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Error   *ErrorDetail `json:"error,omitempty"`
}

// NavigateRequest drives an existing session to a URL.
type NavigateRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	URL       string `json:"url" binding:"required"`
}

// NavigateResponse reports the outcome of Navigate.
type NavigateResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Error   *ErrorDetail `json:"error,omitempty"`
}

// PerformActionRequest runs one OODA-mediated action against a session.
type PerformActionRequest struct {
	SessionID  string     `json:"session_id" binding:"required"`
	Intent     string     `json:"intent" binding:"required"`
	ActionType ActionType `json:"action_type" binding:"required"`
	Text       string     `json:"text,omitempty"`
	MaxRetries int        `json:"max_retries,omitempty"`
}

// PerformActionResponse carries the post-action state.
type PerformActionResponse struct {
	Success    bool         `json:"success"`
	Message    string       `json:"message"`
	Screenshot []byte       `json:"screenshot,omitempty"`
	URL        string       `json:"url,omitempty"`
	Title      string       `json:"title,omitempty"`
	Error      *ErrorDetail `json:"error,omitempty"`
}

// GetStateRequest asks for the current screenshot/url/title of a session.
type GetStateRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}

// GetStateResponse is the session's observable state.
type GetStateResponse struct {
	Screenshot []byte       `json:"screenshot,omitempty"`
	URL        string       `json:"url"`
	Title      string       `json:"title"`
	Error      *ErrorDetail `json:"error,omitempty"`
}

// RunObjectiveRequest starts a streaming objective loop.
type RunObjectiveRequest struct {
	SessionID   string `json:"session_id" binding:"required"`
	StartURL    string `json:"start_url" binding:"required"`
	Instruction string `json:"instruction" binding:"required"`
	Headless    bool   `json:"headless"`
}

// ObjectiveStatus enumerates RunObjective stream event kinds.
type ObjectiveStatus string

const (
	StatusObserving ObjectiveStatus = "observing"
	StatusThinking  ObjectiveStatus = "thinking"
	StatusActing    ObjectiveStatus = "acting"
	StatusComplete  ObjectiveStatus = "complete"
	StatusError     ObjectiveStatus = "error"
)

// ObjectiveEvent is one event in the RunObjective stream.
type ObjectiveEvent struct {
	Status     ObjectiveStatus `json:"status"`
	Message    string          `json:"message,omitempty"`
	Screenshot []byte          `json:"screenshot,omitempty"`
	LastAction string          `json:"last_action,omitempty"`
}

// CloseSessionRequest terminates a session's browser process.
type CloseSessionRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}

// CloseSessionResponse reports the outcome of CloseSession.
type CloseSessionResponse struct {
	Success bool         `json:"success"`
	Error   *ErrorDetail `json:"error,omitempty"`
}
