package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// startSessionResponse mirrors the agent's StartSessionResponse.
type startSessionResponse struct {
	Success bool       `json:"success"`
	Message string     `json:"message"`
	Error   *errDetail `json:"error"`
}

// actionResponse mirrors the agent's PerformActionResponse.
type actionResponse struct {
	Success bool       `json:"success"`
	Message string     `json:"message"`
	URL     string     `json:"url"`
	Title   string     `json:"title"`
	Error   *errDetail `json:"error"`
}

// stateResponse mirrors the agent's GetStateResponse.
type stateResponse struct {
	URL   string     `json:"url"`
	Title string     `json:"title"`
	Error *errDetail `json:"error"`
}

type errDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func main() {
	apiURL := os.Getenv("CHIMERA_AGENT_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:50051"
	}
	apiKey := os.Getenv("CHIMERA_API_KEY")

	s := server.NewMCPServer(
		"chimera",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	s.AddTool(mcp.NewTool("start_session",
		mcp.WithDescription("Launch a new stealth browser session bound to the agent's network-laundering sidecar."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Caller-chosen unique id for the new session")),
		mcp.WithBoolean("headless", mcp.Description("Run without a visible window (default: true)")),
	), handleStartSession(apiURL, apiKey))

	s.AddTool(mcp.NewTool("navigate",
		mcp.WithDescription("Navigate an existing session's browser to a URL."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("The session to drive")),
		mcp.WithString("url", mcp.Required(), mcp.Description("The URL to load")),
	), handleNavigate(apiURL, apiKey))

	s.AddTool(mcp.NewTool("perform_action",
		mcp.WithDescription("Resolve an intent string to screen coordinates and perform one humanized action (click/type/scroll/wait), retrying until the screen visibly changes."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("The session to drive")),
		mcp.WithString("intent", mcp.Required(), mcp.Description("Natural-language description of the target element, e.g. 'submit button'")),
		mcp.WithString("action_type", mcp.Required(), mcp.Enum("click", "type", "scroll", "wait"), mcp.Description("The kind of action to perform")),
		mcp.WithString("text", mcp.Description("Text to type; required when action_type is 'type'")),
		mcp.WithNumber("max_retries", mcp.Description("Maximum visual-hash-change attempts (default: 3)")),
	), handlePerformAction(apiURL, apiKey))

	s.AddTool(mcp.NewTool("get_state",
		mcp.WithDescription("Fetch the current screenshot, URL and title of a session."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("The session to inspect")),
	), handleGetState(apiURL, apiKey))

	s.AddTool(mcp.NewTool("run_objective",
		mcp.WithDescription("Start a session (if needed), navigate to start_url, and drive a single observe-think-act iteration toward a natural-language instruction. Streams progress and returns once the iteration completes."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id to create or reuse")),
		mcp.WithString("start_url", mcp.Required(), mcp.Description("URL to navigate to before pursuing the instruction")),
		mcp.WithString("instruction", mcp.Required(), mcp.Description("What to accomplish, e.g. 'find the search box'")),
		mcp.WithBoolean("headless", mcp.Description("Run without a visible window (default: true)")),
	), handleRunObjective(apiURL, apiKey))

	s.AddTool(mcp.NewTool("close_session",
		mcp.WithDescription("Terminate a session's browser process."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("The session to close")),
	), handleCloseSession(apiURL, apiKey))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func handleStartSession(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 60 * time.Second}
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sessionID, err := request.RequireString("session_id")
		if err != nil {
			return mcp.NewToolResultError("session_id is required"), nil
		}
		headless := request.GetBool("headless", true)

		body, _ := json.Marshal(map[string]any{"session_id": sessionID, "headless": headless})
		raw, err := apiPost(ctx, client, apiURL, apiKey, http.MethodPost, "/api/v1/sessions", body)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var resp startSessionResponse
		if err := json.Unmarshal(raw, &resp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}
		if !resp.Success {
			return mcp.NewToolResultError(errMessage(resp.Error, "start_session failed")), nil
		}
		return mcp.NewToolResultText(resp.Message), nil
	}
}

func handleNavigate(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 60 * time.Second}
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sessionID, err := request.RequireString("session_id")
		if err != nil {
			return mcp.NewToolResultError("session_id is required"), nil
		}
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		body, _ := json.Marshal(map[string]any{"session_id": sessionID, "url": url})
		raw, err := apiPost(ctx, client, apiURL, apiKey, http.MethodPost, "/api/v1/sessions/"+sessionID+"/navigate", body)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var resp startSessionResponse
		if err := json.Unmarshal(raw, &resp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}
		if !resp.Success {
			return mcp.NewToolResultError(errMessage(resp.Error, "navigate failed")), nil
		}
		return mcp.NewToolResultText(resp.Message), nil
	}
}

func handlePerformAction(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 60 * time.Second}
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sessionID, err := request.RequireString("session_id")
		if err != nil {
			return mcp.NewToolResultError("session_id is required"), nil
		}
		intent, err := request.RequireString("intent")
		if err != nil {
			return mcp.NewToolResultError("intent is required"), nil
		}
		actionType, err := request.RequireString("action_type")
		if err != nil {
			return mcp.NewToolResultError("action_type is required"), nil
		}
		text := request.GetString("text", "")
		maxRetries := request.GetInt("max_retries", 0)

		body, _ := json.Marshal(map[string]any{
			"session_id":  sessionID,
			"intent":      intent,
			"action_type": actionType,
			"text":        text,
			"max_retries": maxRetries,
		})
		raw, err := apiPost(ctx, client, apiURL, apiKey, http.MethodPost, "/api/v1/sessions/"+sessionID+"/action", body)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var resp actionResponse
		if err := json.Unmarshal(raw, &resp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}
		if !resp.Success {
			return mcp.NewToolResultError(errMessage(resp.Error, "perform_action failed")), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("%s (url: %s, title: %s)", resp.Message, resp.URL, resp.Title)), nil
	}
}

func handleGetState(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 30 * time.Second}
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sessionID, err := request.RequireString("session_id")
		if err != nil {
			return mcp.NewToolResultError("session_id is required"), nil
		}

		raw, err := apiGet(ctx, client, apiURL, apiKey, "/api/v1/sessions/"+sessionID+"/state")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var resp stateResponse
		if err := json.Unmarshal(raw, &resp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}
		if resp.Error != nil {
			return mcp.NewToolResultError(errMessage(resp.Error, "get_state failed")), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("url: %s\ntitle: %s", resp.URL, resp.Title)), nil
	}
}

func handleRunObjective(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 5 * time.Minute}
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sessionID, err := request.RequireString("session_id")
		if err != nil {
			return mcp.NewToolResultError("session_id is required"), nil
		}
		startURL, err := request.RequireString("start_url")
		if err != nil {
			return mcp.NewToolResultError("start_url is required"), nil
		}
		instruction, err := request.RequireString("instruction")
		if err != nil {
			return mcp.NewToolResultError("instruction is required"), nil
		}
		headless := request.GetBool("headless", true)

		body, _ := json.Marshal(map[string]any{
			"session_id":  sessionID,
			"start_url":   startURL,
			"instruction": instruction,
			"headless":    headless,
		})

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+"/api/v1/sessions/"+sessionID+"/objective", bytes.NewReader(body))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to create request: %v", err)), nil
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Accept", "text/event-stream")
		if apiKey != "" {
			httpReq.Header.Set("X-API-Key", apiKey)
		}

		resp, err := client.Do(httpReq)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("API request failed: %v", err)), nil
		}
		defer resp.Body.Close()

		var transcript strings.Builder
		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			var ev struct {
				Status     string `json:"status"`
				Message    string `json:"message"`
				LastAction string `json:"last_action"`
			}
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev); err != nil {
				continue
			}
			fmt.Fprintf(&transcript, "[%s] %s\n", ev.Status, firstNonEmpty(ev.LastAction, ev.Message))
			if ev.Status == "complete" || ev.Status == "error" {
				break
			}
		}

		return mcp.NewToolResultText(transcript.String()), nil
	}
}

func handleCloseSession(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 30 * time.Second}
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sessionID, err := request.RequireString("session_id")
		if err != nil {
			return mcp.NewToolResultError("session_id is required"), nil
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodDelete, apiURL+"/api/v1/sessions/"+sessionID, nil)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to create request: %v", err)), nil
		}
		if apiKey != "" {
			httpReq.Header.Set("X-API-Key", apiKey)
		}
		resp, err := client.Do(httpReq)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("API request failed: %v", err)), nil
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, resp.Body)
		return mcp.NewToolResultText("session closed: " + sessionID), nil
	}
}

// apiPost sends method+body to the agent's HTTP API and returns the raw
// response body.
func apiPost(ctx context.Context, client *http.Client, apiURL, apiKey, method, path string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, apiURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

func apiGet(ctx context.Context, client *http.Client, apiURL, apiKey, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

func errMessage(e *errDetail, fallback string) string {
	if e == nil {
		return fallback
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
