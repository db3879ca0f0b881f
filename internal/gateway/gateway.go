package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lotas/labbook/internal/types"
)

// Client is the thin request layer over the backend's HTTP contract. It
// carries no retry or caching logic of its own — the pollers own retry
// cadence, and mutations are one-shot with rollback handled by the
// caller.
type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// BaseURL returns the configured backend address.
func (c *Client) BaseURL() string { return c.baseURL }

// ListSessions fetches session summaries (no blocks). A non-empty query
// is filtered server-side.
func (c *Client) ListSessions(ctx context.Context, query string) ([]types.Session, error) {
	path := "/sessions"
	if q := strings.TrimSpace(query); q != "" {
		path += "?query=" + url.QueryEscape(q)
	}
	var resp struct {
		Sessions []types.Session `json:"sessions"`
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Sessions, nil
}

// FetchNotebook fetches all sessions with their full block content.
func (c *Client) FetchNotebook(ctx context.Context) ([]types.Session, error) {
	var resp struct {
		Sessions []types.Session `json:"sessions"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/notebook", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Sessions, nil
}

// RenameSession sets a session title. The backend acknowledges with no
// body contract beyond success/failure.
func (c *Client) RenameSession(ctx context.Context, id int64, title string) error {
	body := map[string]any{"id": id, "title": title}
	path := fmt.Sprintf("/sessions/%d/title", id)
	return c.doJSON(ctx, http.MethodPut, path, body, nil)
}

// SetArchived flips a session's archive flag. The call is idempotent on
// the backend.
func (c *Client) SetArchived(ctx context.Context, id int64, archived bool) error {
	body := map[string]any{"id": id, "archived": archived}
	path := fmt.Sprintf("/sessions/%d/archive", id)
	return c.doJSON(ctx, http.MethodPost, path, body, nil)
}

// CommandResult is the backend's answer to a free-text command. The
// command is interpreted entirely server-side; the client only needs to
// know whether it was applied.
type CommandResult struct {
	Status  string `json:"status"` // "ok" or "error"
	Applied struct {
		Type      string `json:"type"`
		SessionID int64  `json:"session_id,omitempty"`
		Title     string `json:"title,omitempty"`
	} `json:"applied"`
}

// SubmitCommand sends free text to the backend's command interpreter.
func (c *Client) SubmitCommand(ctx context.Context, text string) (*CommandResult, error) {
	var resp CommandResult
	if err := c.doJSON(ctx, http.MethodPost, "/commands", map[string]string{"text": text}, &resp); err != nil {
		return nil, err
	}
	if resp.Status != "ok" {
		return &resp, fmt.Errorf("command rejected: %s", resp.Status)
	}
	return &resp, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("%s %s: HTTP %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
