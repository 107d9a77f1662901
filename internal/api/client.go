package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client talks to the backend REST API. The backend owns persistence and
// business-rule validation; this client only moves shapes.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// Message is the wire shape of a stored chat message. Attachments are
// opaque references owned by the upload collaborator.
type Message struct {
	ID          string   `json:"id"`
	Content     string   `json:"content"`
	SenderName  string   `json:"sender_name"`
	GroupID     string   `json:"group_id"`
	CreatedAt   string   `json:"created_at"` // RFC 3339
	Attachments []string `json:"attachments,omitempty"`
}

// SendResult is the backend's acknowledgement of a durable write.
type SendResult struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at"`
}

// Group is a chat channel.
type Group struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Task belongs to an objective. Status strings come from the backend
// verbatim, including legacy/locale spellings.
type Task struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Status  string `json:"status"`
	DueDate string `json:"due_date,omitempty"`
}

// Objective is a goal with embedded tasks.
type Objective struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	GroupID string `json:"group_id"`
	Tasks   []Task `json:"tasks"`
}

// Error is a non-2xx response. Callers do not distinguish retryable from
// terminal failures; every failed write stays retryable by user action.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api: HTTP %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api: HTTP %d", e.Status)
}

func (c *Client) FetchMessages(ctx context.Context) ([]Message, error) {
	var out []Message
	if err := c.get(ctx, "/messages", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SendMessage(ctx context.Context, content, groupID string) (*SendResult, error) {
	body := map[string]string{"content": content, "group_id": groupID}
	var out SendResult
	if err := c.post(ctx, "/messages", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) FetchGroups(ctx context.Context) ([]Group, error) {
	var out []Group
	if err := c.get(ctx, "/groups", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateGroup(ctx context.Context, name string) (*Group, error) {
	var out Group
	if err := c.post(ctx, "/groups", map[string]string{"name": name}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateGroup(ctx context.Context, id, name string) error {
	return c.do(ctx, http.MethodPut, "/groups/"+url.PathEscape(id), map[string]string{"name": name}, nil)
}

func (c *Client) DeleteGroup(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/groups/"+url.PathEscape(id), nil, nil)
}

func (c *Client) FetchObjectivesByGroup(ctx context.Context, groupID string) ([]Objective, error) {
	var out []Objective
	if err := c.get(ctx, "/objectives/group/"+url.PathEscape(groupID), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SubmitTaskForReview(ctx context.Context, taskID string) error {
	return c.do(ctx, http.MethodPost, "/tasks/"+url.PathEscape(taskID)+"/submit", nil, nil)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &Error{Status: resp.StatusCode}
		var e struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if json.NewDecoder(resp.Body).Decode(&e) == nil {
			apiErr.Message = e.Error
			if apiErr.Message == "" {
				apiErr.Message = e.Message
			}
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
