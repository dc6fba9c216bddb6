package access

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"moderbot/internal/api"
	"moderbot/internal/services"
)

// Error is a non-2xx response from the daemon API.
type Error struct {
	Status     int
	Message    string
	Suggestion string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("daemon api: %s", http.StatusText(e.Status))
	}
	return e.Message
}

// Unwrap maps HTTP statuses back onto the services error markers.
func (e *Error) Unwrap() error {
	switch e.Status {
	case http.StatusNotFound:
		return services.ErrNotFound
	case http.StatusBadRequest, http.StatusConflict:
		return services.ErrValidation
	default:
		return nil
	}
}

var _ Access = (*Client)(nil)

// Client talks to the daemon HTTP API.
type Client struct {
	base  string
	token string
	http  *http.Client
}

// NewClient builds a client for the daemon listening on bind.
func NewClient(bind, token string) *Client {
	return &Client{
		base:  baseURL(bind),
		token: token,
		http:  &http.Client{Timeout: 5 * time.Minute},
	}
}

// Dial returns a client once the daemon answers GET /api/status.
func Dial(ctx context.Context, bind, token string) (*Client, error) {
	if strings.TrimSpace(bind) == "" {
		return nil, errors.New("daemon api disabled")
	}
	c := NewClient(bind, token)
	probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if _, err := c.Status(probeCtx); err != nil {
		return nil, err
	}
	return c, nil
}

func baseURL(bind string) string {
	host, port, err := net.SplitHostPort(strings.TrimSpace(bind))
	if err != nil {
		return "http://" + strings.TrimSpace(bind)
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("daemon api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var payload api.ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&payload)
		return &Error{Status: resp.StatusCode, Message: payload.Error, Suggestion: payload.Suggestion}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func withAdmin(path string, adminID int64) string {
	if adminID == 0 {
		return path
	}
	return path + "?admin=" + strconv.FormatInt(adminID, 10)
}

// Status implements Access.
func (c *Client) Status(ctx context.Context) (api.DaemonStatus, error) {
	var out api.DaemonStatus
	err := c.do(ctx, http.MethodGet, "/api/status", nil, &out)
	return out, err
}

// Stats implements Access.
func (c *Client) Stats(ctx context.Context) (api.Stats, error) {
	var out api.Stats
	err := c.do(ctx, http.MethodGet, "/api/stats", nil, &out)
	return out, err
}

// Posts implements Access.
func (c *Client) Posts(ctx context.Context, status string, limit int) ([]api.Post, error) {
	query := url.Values{}
	if status != "" {
		query.Set("status", status)
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	path := "/api/posts"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	var out api.PostListResponse
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out.Items, err
}

// Post implements Access. A missing post returns nil without error.
func (c *Client) Post(ctx context.Context, id int64) (*api.Post, error) {
	var out api.PostResponse
	err := c.do(ctx, http.MethodGet, "/api/posts/"+strconv.FormatInt(id, 10), nil, &out)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &out.Item, nil
}

// Logs implements Access.
func (c *Client) Logs(ctx context.Context, limit int) ([]api.LogEntry, error) {
	path := "/api/logs"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out api.LogListResponse
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out.Items, err
}

// Bans implements Access.
func (c *Client) Bans(ctx context.Context) ([]api.Ban, error) {
	var out api.BanListResponse
	err := c.do(ctx, http.MethodGet, "/api/bans", nil, &out)
	return out.Items, err
}

// Ban implements Access.
func (c *Client) Ban(ctx context.Context, req api.BanRequest) (api.Ban, error) {
	var out api.Ban
	err := c.do(ctx, http.MethodPost, "/api/bans", req, &out)
	return out, err
}

// Unban implements Access.
func (c *Client) Unban(ctx context.Context, userID, adminID int64) error {
	return c.do(ctx, http.MethodDelete, withAdmin("/api/bans/"+strconv.FormatInt(userID, 10), adminID), nil, nil)
}

// Keywords implements Access.
func (c *Client) Keywords(ctx context.Context) ([]api.Keyword, error) {
	var out api.KeywordListResponse
	err := c.do(ctx, http.MethodGet, "/api/keywords", nil, &out)
	return out.Items, err
}

// AddKeyword implements Access.
func (c *Client) AddKeyword(ctx context.Context, req api.KeywordRequest) (string, error) {
	var out api.KeywordResponse
	err := c.do(ctx, http.MethodPost, "/api/keywords", req, &out)
	return out.Keyword, err
}

// RemoveKeyword implements Access.
func (c *Client) RemoveKeyword(ctx context.Context, keyword string, adminID int64) (string, error) {
	var out api.KeywordResponse
	err := c.do(ctx, http.MethodDelete, withAdmin("/api/keywords/"+url.PathEscape(keyword), adminID), nil, &out)
	return out.Keyword, err
}

// Subscriptions implements Access.
func (c *Client) Subscriptions(ctx context.Context) ([]api.Subscription, error) {
	var out api.SubscriptionListResponse
	err := c.do(ctx, http.MethodGet, "/api/subscriptions", nil, &out)
	return out.Items, err
}

// AddSubscription implements Access.
func (c *Client) AddSubscription(ctx context.Context, req api.SubscriptionRequest) (api.Subscription, error) {
	var out api.SubscriptionResponse
	err := c.do(ctx, http.MethodPost, "/api/subscriptions", req, &out)
	return out.Item, err
}

// RemoveSubscription implements Access.
func (c *Client) RemoveSubscription(ctx context.Context, index int, adminID int64) (api.Subscription, error) {
	var out api.SubscriptionResponse
	err := c.do(ctx, http.MethodDelete, withAdmin("/api/subscriptions/"+strconv.Itoa(index), adminID), nil, &out)
	return out.Item, err
}

// Broadcast implements Access.
func (c *Client) Broadcast(ctx context.Context, req api.BroadcastRequest) (api.BroadcastResponse, error) {
	var out api.BroadcastResponse
	err := c.do(ctx, http.MethodPost, "/api/broadcast", req, &out)
	return out, err
}
