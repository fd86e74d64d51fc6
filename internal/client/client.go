// Package client talks to the daybook HTTP API and keeps a client-side
// session of one user's calendar.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"daybook/internal/auth"
	"daybook/internal/models"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"error"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api %d %s: %s", e.Status, e.Code, e.Message)
}

// CreateTaskInput is the payload of Client.CreateTask.
type CreateTaskInput struct {
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	DueDate     string          `json:"dueDate"`
	Category    models.Category `json:"category,omitempty"`
	Tags        []string        `json:"tags,omitempty"`
}

// Client is a cookie-carrying HTTP client for one session.
type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a client for baseURL. The given http.Client, when non-nil, gets
// a cookie jar if it has none.
func New(baseURL string, httpClient *http.Client) (*Client, error) {
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		httpClient.Jar = jar
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}, nil
}

// Register creates an account; the session cookies are kept in the jar.
func (c *Client) Register(ctx context.Context, in auth.RegisterInput) error {
	return c.do(ctx, http.MethodPost, "/auth/register", nil, in, nil)
}

// Login starts a session.
func (c *Client) Login(ctx context.Context, email, password string) error {
	body := map[string]string{"email": email, "password": password}
	return c.do(ctx, http.MethodPost, "/auth/login", nil, body, nil)
}

// Logout ends the session.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, nil, nil)
}

// ListTasks returns tasks due within start..end; empty bounds are open.
func (c *Client) ListTasks(ctx context.Context, start, end string) ([]models.Task, error) {
	q := url.Values{}
	if start != "" {
		q.Set("startDate", start)
	}
	if end != "" {
		q.Set("endDate", end)
	}
	var out []models.Task
	err := c.do(ctx, http.MethodGet, "/tasks/filter", q, nil, &out)
	return out, err
}

// SearchTasks matches task titles on the server.
func (c *Client) SearchTasks(ctx context.Context, query string) ([]models.Task, error) {
	var out []models.Task
	err := c.do(ctx, http.MethodGet, "/tasks/search", url.Values{"query": {query}}, nil, &out)
	return out, err
}

// CreateTask adds a task at the end of its day.
func (c *Client) CreateTask(ctx context.Context, in CreateTaskInput) (models.Task, error) {
	var out models.Task
	err := c.do(ctx, http.MethodPost, "/tasks", nil, in, &out)
	return out, err
}

// UpdateTask patches one task.
func (c *Client) UpdateTask(ctx context.Context, id string, patch models.TaskPatch) (models.Task, error) {
	var out models.Task
	err := c.do(ctx, http.MethodPatch, "/tasks/"+url.PathEscape(id), nil, patch, &out)
	return out, err
}

// DeleteTask removes one task.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/tasks/"+url.PathEscape(id), nil, nil, nil)
}

// Holidays lists the public holidays of the session user's country.
func (c *Client) Holidays(ctx context.Context, year int) ([]models.Holiday, error) {
	var out []models.Holiday
	err := c.do(ctx, http.MethodGet, "/tasks/holidays", url.Values{"year": {strconv.Itoa(year)}}, nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, body, out any) error {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		r = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, r)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(apiErr)
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
