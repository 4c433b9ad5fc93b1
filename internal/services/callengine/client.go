package callengine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cadence/internal/calls"
	"cadence/internal/config"
)

// HTTPDoer abstracts http.Client.Do for testing.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Client implements calls.Engine and calls.Promoter against the engine's
// HTTP API. Engine error codes are mapped onto the calls sentinels so the
// coordinator never sees transport details.
type Client struct {
	baseURL string
	token   string
	client  HTTPDoer
}

// NewClient builds a client from configuration with a timeout-bounded
// http.Client backend.
func NewClient(cfg *config.Config) *Client {
	timeout := time.Duration(cfg.Engine.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return NewClientWithDoer(cfg.Engine.BaseURL, cfg.Engine.APIToken, &http.Client{Timeout: timeout})
}

// NewClientWithDoer builds a client over an explicit HTTP backend.
func NewClientWithDoer(baseURL, token string, doer HTTPDoer) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  doer,
	}
}

// CreateCall asks the engine to open a call in the chat.
func (c *Client) CreateCall(ctx context.Context, chatID int64, randomID string) error {
	body := map[string]any{"chat_id": chatID, "random_id": randomID}
	return c.doJSON(ctx, http.MethodPost, "/v1/calls", body, nil)
}

// ResolveCall looks up the chat's active call reference.
func (c *Client) ResolveCall(ctx context.Context, chatID int64) (calls.CallRef, error) {
	var resp struct {
		ID     string `json:"id"`
		ChatID int64  `json:"chat_id"`
	}
	path := fmt.Sprintf("/v1/calls/%d", chatID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return calls.CallRef{}, err
	}
	return calls.CallRef{ID: resp.ID, ChatID: resp.ChatID}, nil
}

// DiscardCall tears the referenced call down.
func (c *Client) DiscardCall(ctx context.Context, ref calls.CallRef) error {
	path := fmt.Sprintf("/v1/calls/%d", ref.ChatID)
	body := map[string]any{"id": ref.ID}
	return c.doJSON(ctx, http.MethodDelete, path, body, nil)
}

// ActiveCalls lists the chat ids with a live call.
func (c *Client) ActiveCalls(ctx context.Context) ([]int64, error) {
	var resp struct {
		Chats []int64 `json:"chats"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/calls", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Chats, nil
}

// SetVolume adjusts the call volume for the chat.
func (c *Client) SetVolume(ctx context.Context, chatID int64, volume int) error {
	path := fmt.Sprintf("/v1/calls/%d/volume", chatID)
	return c.doJSON(ctx, http.MethodPost, path, map[string]any{"volume": volume}, nil)
}

// Pause suspends the chat's active stream.
func (c *Client) Pause(ctx context.Context, chatID int64) error {
	return c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/v1/calls/%d/pause", chatID), nil, nil)
}

// Resume continues the chat's paused stream.
func (c *Client) Resume(ctx context.Context, chatID int64) error {
	return c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/v1/calls/%d/resume", chatID), nil, nil)
}

// Leave exits the chat's call without discarding it for other members.
func (c *Client) Leave(ctx context.Context, chatID int64) error {
	return c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/v1/calls/%d/leave", chatID), nil, nil)
}

// ChangeStream switches the chat's call to a new media source.
func (c *Client) ChangeStream(ctx context.Context, chatID int64, src calls.StreamSource) error {
	body := map[string]any{
		"url":   src.URL,
		"audio": string(src.Audio),
	}
	if src.Video != "" {
		body["video"] = string(src.Video)
	}
	return c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/v1/calls/%d/stream", chatID), body, nil)
}

// ExportInviteLink fetches a join link for the chat.
func (c *Client) ExportInviteLink(ctx context.Context, chatID int64) (string, error) {
	var resp struct {
		Link string `json:"link"`
	}
	path := fmt.Sprintf("/v1/chats/%d/invite-link", chatID)
	if err := c.doJSON(ctx, http.MethodPost, path, nil, &resp); err != nil {
		return "", err
	}
	if resp.Link == "" {
		return "", fmt.Errorf("callengine: empty invite link for chat %d", chatID)
	}
	return resp.Link, nil
}

// JoinChat joins the engine account to a chat via invite link.
func (c *Client) JoinChat(ctx context.Context, inviteLink string) error {
	return c.doJSON(ctx, http.MethodPost, "/v1/chats/join", map[string]any{"invite_link": inviteLink}, nil)
}

// PromoteSelf grants the engine account call-management rights in the chat.
func (c *Client) PromoteSelf(ctx context.Context, chatID int64) error {
	return c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/v1/chats/%d/promote", chatID), nil, nil)
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("engine request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var apiErr apiError
		if json.Unmarshal(raw, &apiErr) == nil {
			switch apiErr.Code {
			case "invalid_peer":
				return fmt.Errorf("engine %s %s: %w", method, path, calls.ErrInvalidPeer)
			case "no_call":
				return fmt.Errorf("engine %s %s: %w", method, path, calls.ErrNoCall)
			}
		}
		return fmt.Errorf("engine %s %s returned %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
