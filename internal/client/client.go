// Package client provides an HTTP client for the automation server,
// used by the CLI.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lucasmaarin/automacoes-Mobile-Mercado/internal/automation"
	"github.com/lucasmaarin/automacoes-Mobile-Mercado/internal/metrics"
	"github.com/lucasmaarin/automacoes-Mobile-Mercado/internal/server"
)

// Client talks to the automation server's REST and WebSocket endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client. If baseURL is empty, MERCADO_SERVER_URL is used,
// then localhost with the default port.
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = os.Getenv("MERCADO_SERVER_URL")
	}
	if baseURL == "" {
		baseURL = "http://localhost:8474"
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	timeout := 10 * time.Minute
	if t := os.Getenv("MERCADO_CLIENT_TIMEOUT"); t != "" {
		if d, err := time.ParseDuration(t); err == nil {
			timeout = d
		}
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// apiError is the server's JSON error envelope.
type apiError struct {
	Error string `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %s (status %d)", method, path, apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// Start launches a run and returns its initial status. A nil status with
// a non-empty message means there was nothing to process.
func (c *Client) Start(ctx context.Context, tool string, req server.StartRequest) (*automation.RunStatus, string, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/api/"+tool+"/start", req, &raw); err != nil {
		return nil, "", err
	}

	// A no-op start comes back as {"message": ...} instead of a status.
	var msg struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &msg) == nil && msg.Message != "" {
		return nil, msg.Message, nil
	}

	var st automation.RunStatus
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, "", fmt.Errorf("decode run status: %w", err)
	}
	return &st, "", nil
}

// Stop requests a cooperative stop. Returns whether a run was stopping.
func (c *Client) Stop(ctx context.Context, tool string) (bool, error) {
	var resp map[string]bool
	if err := c.do(ctx, http.MethodPost, "/api/"+tool+"/stop", nil, &resp); err != nil {
		return false, err
	}
	return resp["stopping"], nil
}

// Status fetches the current run status; (nil, nil) means idle.
func (c *Client) Status(ctx context.Context, tool string) (*automation.RunStatus, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/api/"+tool+"/status", nil, &raw); err != nil {
		return nil, err
	}

	var idle struct {
		State string `json:"state"`
	}
	if json.Unmarshal(raw, &idle) == nil && idle.State == "idle" {
		return nil, nil
	}

	var st automation.RunStatus
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("decode run status: %w", err)
	}
	return &st, nil
}

// Logs fetches the run's bounded log buffer.
func (c *Client) Logs(ctx context.Context, tool string) ([]automation.LogEntry, error) {
	var logs []automation.LogEntry
	if err := c.do(ctx, http.MethodGet, "/api/"+tool+"/logs", nil, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

// UndoResult reports a rollback outcome.
type UndoResult struct {
	Reverted int `json:"reverted"`
	Failed   int `json:"failed"`
}

// Undo reverts the tool's recorded mutations.
func (c *Client) Undo(ctx context.Context, tool string) (UndoResult, error) {
	var res UndoResult
	err := c.do(ctx, http.MethodPost, "/api/"+tool+"/undo", nil, &res)
	return res, err
}

// UndoInfo describes what an undo would revert.
func (c *Client) UndoInfo(ctx context.Context, tool string) (automation.UndoInfo, error) {
	var info automation.UndoInfo
	err := c.do(ctx, http.MethodGet, "/api/"+tool+"/undo-info", nil, &info)
	return info, err
}

// Prompt holds a tool's default and custom prompt templates.
type Prompt struct {
	Tool    string `json:"tool"`
	Default string `json:"default"`
	Custom  string `json:"custom"`
}

// GetPrompt fetches a tool's prompt templates.
func (c *Client) GetPrompt(ctx context.Context, tool string) (Prompt, error) {
	var p Prompt
	err := c.do(ctx, http.MethodGet, "/api/prompts/"+tool, nil, &p)
	return p, err
}

// SavePrompt stores a custom prompt for a tool.
func (c *Client) SavePrompt(ctx context.Context, tool, prompt, description string) error {
	return c.do(ctx, http.MethodPut, "/api/prompts/"+tool, server.PromptRequest{
		Prompt:      prompt,
		Description: description,
	}, nil)
}

// UsageToday fetches today's token spend.
func (c *Client) UsageToday(ctx context.Context) (metrics.Snapshot, error) {
	var snap metrics.Snapshot
	err := c.do(ctx, http.MethodGet, "/api/usage/today", nil, &snap)
	return snap, err
}

// Event is one message from the server's event stream.
type Event struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// FollowEvents connects to the WebSocket stream and invokes handler for
// every event until ctx is canceled or the connection drops.
func (c *Client) FollowEvents(ctx context.Context, handler func(Event)) error {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/ws"

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("connect websocket: %w", err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	for {
		var ev Event
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read event: %w", err)
		}
		handler(ev)
	}
}
