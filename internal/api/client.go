package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"triagedesk/internal/model"
)

// StatusError is a non-2xx response from the advising backend.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("backend returned %d: %s", e.Code, e.Body)
	}
	return fmt.Sprintf("backend returned %d", e.Code)
}

// Client talks to the advising backend's REST API. Every call takes a
// context and is bounded by the client timeout; a slow backend surfaces as a
// generic network failure, never a hang.
type Client struct {
	baseURL string
	http    *http.Client
	log     *zap.Logger
}

func NewClient(baseURL string, timeout time.Duration, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

// EmailUpdate is the PATCH /emails/{id} payload. Nil fields are omitted so
// status and reply can be updated independently.
type EmailUpdate struct {
	Status         *model.Status `json:"status,omitempty"`
	SuggestedReply *string       `json:"suggested_reply,omitempty"`
}

// ListEmails fetches the full authoritative email list.
func (c *Client) ListEmails(ctx context.Context) ([]model.Email, error) {
	var emails []model.Email
	if err := c.do(ctx, http.MethodGet, "/emails", nil, &emails); err != nil {
		return nil, fmt.Errorf("list emails: %w", err)
	}
	return emails, nil
}

// Metrics fetches the aggregate dashboard counts.
func (c *Client) Metrics(ctx context.Context) (model.Metrics, error) {
	var m model.Metrics
	if err := c.do(ctx, http.MethodGet, "/metrics", nil, &m); err != nil {
		return model.Metrics{}, fmt.Errorf("metrics: %w", err)
	}
	return m, nil
}

// UpdateEmail patches status and/or suggested reply on a record.
func (c *Client) UpdateEmail(ctx context.Context, id int, upd EmailUpdate) (model.Email, error) {
	var e model.Email
	if err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/emails/%d", id), upd, &e); err != nil {
		return model.Email{}, fmt.Errorf("update email %d: %w", id, err)
	}
	return e, nil
}

// SendEmail sends the reply for an email. A non-empty override supersedes
// the stored suggested reply as the outgoing text.
func (c *Client) SendEmail(ctx context.Context, id int, override string) error {
	body := struct {
		Text string `json:"text,omitempty"`
	}{Text: override}
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/emails/%d/send", id), body, nil); err != nil {
		return fmt.Errorf("send email %d: %w", id, err)
	}
	return nil
}

// DeleteEmail removes a record.
func (c *Client) DeleteEmail(ctx context.Context, id int) error {
	if err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/emails/%d", id), nil, nil); err != nil {
		return fmt.Errorf("delete email %d: %w", id, err)
	}
	return nil
}

// Assignments fetches the id -> advisor map.
func (c *Client) Assignments(ctx context.Context) (map[int]string, error) {
	raw := make(map[string]string)
	if err := c.do(ctx, http.MethodGet, "/emails/assignments", nil, &raw); err != nil {
		return nil, fmt.Errorf("assignments: %w", err)
	}
	out := make(map[int]string, len(raw))
	for k, v := range raw {
		id, err := strconv.Atoi(k)
		if err != nil {
			continue
		}
		out[id] = v
	}
	return out, nil
}

// Assign sets the advisor for an email.
func (c *Client) Assign(ctx context.Context, id int, person string) error {
	path := fmt.Sprintf("/emails/%d/assign?person=%s", id, url.QueryEscape(person))
	if err := c.do(ctx, http.MethodPost, path, nil, nil); err != nil {
		return fmt.Errorf("assign email %d: %w", id, err)
	}
	return nil
}

// Unassign clears the advisor for an email.
func (c *Client) Unassign(ctx context.Context, id int) error {
	if err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/emails/%d/assign", id), nil, nil); err != nil {
		return fmt.Errorf("unassign email %d: %w", id, err)
	}
	return nil
}

// MailboxStatus reports the backend's external mail connection state.
func (c *Client) MailboxStatus(ctx context.Context) (model.MailboxStatus, error) {
	var st model.MailboxStatus
	if err := c.do(ctx, http.MethodGet, "/gmail/status", nil, &st); err != nil {
		return model.MailboxStatus{}, fmt.Errorf("mailbox status: %w", err)
	}
	return st, nil
}

// TriggerFetch asks the backend to pull new inbound mail.
func (c *Client) TriggerFetch(ctx context.Context) (model.FetchResult, error) {
	var fr model.FetchResult
	if err := c.do(ctx, http.MethodGet, "/gmail/fetch", nil, &fr); err != nil {
		return model.FetchResult{}, fmt.Errorf("trigger fetch: %w", err)
	}
	return fr, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.log.Warn("backend request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
