package ooda

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/use-agent/chimera/models"
)

// VisionResult is the resolved target of a vision-grounding call.
type VisionResult struct {
	X, Y       float64
	Confidence float64
	Found      bool
}

// Vision resolves an intent string against a screenshot to screen
// coordinates. The concrete grounding model lives entirely outside this
// module; only this interface is consumed.
type Vision interface {
	Coordinates(ctx context.Context, screenshot []byte, intent string) (VisionResult, error)
}

// coordinatesRequest is the wire body sent to the collaborator.
type coordinatesRequest struct {
	ScreenshotB64 string `json:"screenshot_bytes"`
	IntentText    string `json:"intent_text"`
}

// coordinatesResponse is the wire body the collaborator returns.
type coordinatesResponse struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Confidence float64 `json:"confidence"`
	Found      bool    `json:"found"`
}

// HTTPVisionClient calls the vision-grounding collaborator over plain JSON
// HTTP, one request per call — no persistent connection is assumed, since
// each objective-stream iteration opens a fresh one per its own contract.
type HTTPVisionClient struct {
	addr       string
	httpClient *http.Client
}

// NewHTTPVisionClient returns a client targeting addr (a base URL such as
// "http://localhost:9000"). Pass nil for httpClient to use a client with a
// 15s timeout.
func NewHTTPVisionClient(addr string, httpClient *http.Client) *HTTPVisionClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &HTTPVisionClient{addr: addr, httpClient: httpClient}
}

// Coordinates POSTs the screenshot and intent to the collaborator's
// /coordinates endpoint and returns the resolved point.
func (c *HTTPVisionClient) Coordinates(ctx context.Context, screenshot []byte, intent string) (VisionResult, error) {
	reqBody := coordinatesRequest{
		ScreenshotB64: base64.StdEncoding.EncodeToString(screenshot),
		IntentText:    intent,
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return VisionResult{}, models.NewAgentError(models.ErrCodeVisionFailure, "failed to marshal vision request", err)
	}

	endpoint := c.addr + "/coordinates"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return VisionResult{}, models.NewAgentError(models.ErrCodeVisionFailure, "failed to build vision request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return VisionResult{}, models.NewAgentError(models.ErrCodeVisionFailure, "vision service error: request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return VisionResult{}, models.NewAgentError(models.ErrCodeVisionFailure, "vision service error: failed to read response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return VisionResult{}, models.NewAgentError(models.ErrCodeVisionFailure,
			fmt.Sprintf("vision service error: returned status %d", resp.StatusCode), nil)
	}

	var out coordinatesResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return VisionResult{}, models.NewAgentError(models.ErrCodeVisionFailure, "vision service error: invalid response body", err)
	}
	if !out.Found {
		return VisionResult{}, models.NewAgentError(models.ErrCodeVisionFailure, "vision service error: target not found", nil)
	}

	return VisionResult{X: out.X, Y: out.Y, Confidence: out.Confidence, Found: out.Found}, nil
}
