package rollcallsdk

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
)

// Client is a minimal client for the local rollcall HTTP API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Session selects the workflow of a new roster. Group and Meeting are only
// used by attendance sessions.
type Session struct {
	Variant string `json:"variant"`
	Group   string `json:"group,omitempty"`
	Meeting string `json:"meeting,omitempty"`
}

// Attendee is one participant as reported by the API.
type Attendee struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
	Label  string `json:"label"`
}

type Count struct {
	Status string `json:"status"`
	Label  string `json:"label"`
	Count  int    `json:"count"`
}

type Summary struct {
	Session  Session `json:"session"`
	Total    int     `json:"total"`
	Progress float64 `json:"progress"`
	Counts   []Count `json:"counts"`
}

// Event represents a journal entry.
type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id"`
	Payload    string `json:"payload_json"`
}

// PaginatedEvents wraps list responses with cursors.
type PaginatedEvents struct {
	Items      []Event `json:"items"`
	NextCursor string  `json:"next_cursor"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error: status=%d code=%s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// Attendees lists participants whose name contains query; an empty query
// lists everyone.
func (c *Client) Attendees(ctx context.Context, query string) ([]Attendee, error) {
	endpoint := "v0/attendees"
	if query != "" {
		endpoint += "?q=" + url.QueryEscape(query)
	}
	var resp []Attendee
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// LoadRoster starts a session from a list of names.
func (c *Client) LoadRoster(ctx context.Context, names []string, session Session) ([]Attendee, error) {
	body := map[string]any{
		"names":   names,
		"session": session,
	}
	var resp []Attendee
	err := c.do(ctx, http.MethodPost, "v0/roster", body, &resp)
	return resp, err
}

// ImportText starts a session from raw delimited text.
func (c *Client) ImportText(ctx context.Context, text string, session Session) ([]Attendee, error) {
	body := map[string]any{
		"text":    text,
		"session": session,
	}
	var resp []Attendee
	err := c.do(ctx, http.MethodPost, "v0/roster", body, &resp)
	return resp, err
}

// SetStatus records status for one participant.
func (c *Client) SetStatus(ctx context.Context, id, status string) (Attendee, error) {
	var resp Attendee
	endpoint := fmt.Sprintf("v0/attendees/%s", url.PathEscape(id))
	err := c.do(ctx, http.MethodPatch, endpoint, map[string]any{"status": status}, &resp)
	return resp, err
}

// Reset clears the roster and session.
func (c *Client) Reset(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "v0/roster", nil, nil)
}

func (c *Client) Summary(ctx context.Context) (Summary, error) {
	var resp Summary
	err := c.do(ctx, http.MethodGet, "v0/summary", nil, &resp)
	return resp, err
}

// EventsPage returns a paginated journal listing.
func (c *Client) EventsPage(ctx context.Context, limit int, cursor string) (PaginatedEvents, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", fmt.Sprint(limit))
	}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	endpoint := "v0/events"
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp PaginatedEvents
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(b)}
		var env struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(b, &env) == nil {
			apiErr.Code, apiErr.Message = env.Error.Code, env.Error.Message
		}
		return apiErr
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
