package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://slack.com/api"
	defaultTimeout = 10 * time.Second

	postMessagePath = "/chat.postMessage"
)

var ErrEmptyToken = errors.New("slack token is empty")

// Field is a single row of an attachment.
type Field struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

// Attachment is a legacy message attachment.
type Attachment struct {
	Color      string  `json:"color"`
	AuthorName string  `json:"author_name"`
	AuthorLink string  `json:"author_link"`
	Title      string  `json:"title"`
	Fields     []Field `json:"fields"`
}

// Message is the chat.postMessage request body.
type Message struct {
	Channel     string       `json:"channel"`
	Attachments []Attachment `json:"attachments"`
}

// DeliveryError is returned when a message could not be delivered.
type DeliveryError struct {
	Channel    string
	StatusCode int
	Err        error
}

func (e *DeliveryError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("deliver slack message to %s: status %d: %v", e.Channel, e.StatusCode, e.Err)
	}

	return fmt.Sprintf("deliver slack message to %s: %v", e.Channel, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(u, "/")
	}
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

// WithTimeout overrides the request timeout. A client passed with WithHTTPClient
// is copied, never modified.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

func NewClient(token string, opts ...Option) *Client {
	c := Client{
		token:   token,
		baseURL: DefaultBaseURL,
	}

	for _, o := range opts {
		o(&c)
	}

	switch {
	case c.http == nil:
		timeout := c.timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}

		c.http = &http.Client{Timeout: timeout}
	case c.timeout > 0:
		h := *c.http
		h.Timeout = c.timeout
		c.http = &h
	}

	return &c
}

// Client posts messages with a bot token.
type Client struct {
	token   string
	baseURL string
	timeout time.Duration
	http    *http.Client
}

type apiResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// PostMessage sends msg to its channel. Slack reports most failures with a 200
// response and ok=false, both cases end up as a *DeliveryError.
func (c *Client) PostMessage(ctx context.Context, msg Message) error {
	if c.token == "" {
		return &DeliveryError{Channel: msg.Channel, Err: ErrEmptyToken}
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return &DeliveryError{Channel: msg.Channel, Err: fmt.Errorf("json.Marshal: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+postMessagePath, bytes.NewReader(data))
	if err != nil {
		return &DeliveryError{Channel: msg.Channel, Err: fmt.Errorf("http.NewRequestWithContext: %w", err)}
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	res, err := c.http.Do(req)
	if err != nil {
		return &DeliveryError{Channel: msg.Channel, Err: fmt.Errorf("http.Client Do: %w", err)}
	}

	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return &DeliveryError{Channel: msg.Channel, StatusCode: res.StatusCode, Err: fmt.Errorf("io.ReadAll: %w", err)}
	}

	if res.StatusCode >= http.StatusMultipleChoices {
		return &DeliveryError{
			Channel:    msg.Channel,
			StatusCode: res.StatusCode,
			Err:        fmt.Errorf("unexpected response: %s", strings.TrimSpace(string(body))),
		}
	}

	var payload apiResponse
	if err = json.Unmarshal(body, &payload); err != nil {
		return &DeliveryError{Channel: msg.Channel, StatusCode: res.StatusCode, Err: fmt.Errorf("json.Unmarshal: %w", err)}
	}

	if !payload.OK {
		return &DeliveryError{Channel: msg.Channel, Err: fmt.Errorf("slack api error: %s", payload.Error)}
	}

	return nil
}
