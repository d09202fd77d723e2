// Package chatclient talks to the chat backend's POST /chat endpoint the same
// way the browser page does.
package chatclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"autogen-chat/internal/domain"
)

const maxErrorBody = 4096

// StatusError is returned when the backend answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("chatclient: unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("chatclient: unexpected status %d: %s", e.StatusCode, e.Message)
}

func (e *StatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Reply is one assistant turn as returned by the backend.
type Reply struct {
	Text     string
	ImageURL string
	AudioURL string
}

// wireReply accepts both field spellings the backend has used.
type wireReply struct {
	Text          *string `json:"text"`
	ImageURL      *string `json:"imageUrl"`
	AudioURL      *string `json:"audioUrl"`
	ImageURLSnake *string `json:"image_url"`
	AudioURLSnake *string `json:"audio_url"`
}

func (w wireReply) reply() Reply {
	return Reply{
		Text:     deref(w.Text),
		ImageURL: firstNonEmpty(w.ImageURL, w.ImageURLSnake),
		AudioURL: firstNonEmpty(w.AudioURL, w.AudioURLSnake),
	}
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

func New(baseURL string, opts ...Option) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return nil, errors.New("chatclient: base URL must not be empty")
	}
	c := &Client{
		baseURL:    base,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Send posts one message. The generate_image hint is computed with the same
// keyword rule the backend applies.
func (c *Client) Send(ctx context.Context, message string) (Reply, error) {
	body, err := json.Marshal(domain.ChatRequest{
		Message:       message,
		GenerateImage: boolPtr(domain.WantsImage(message)),
	})
	if err != nil {
		return Reply{}, fmt.Errorf("chatclient: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat", bytes.NewReader(body))
	if err != nil {
		return Reply{}, fmt.Errorf("chatclient: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return Reply{}, fmt.Errorf("chatclient: request failed: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return Reply{}, &StatusError{StatusCode: res.StatusCode, Message: errorMessage(res.Body)}
	}

	var wire wireReply
	if err := json.NewDecoder(res.Body).Decode(&wire); err != nil {
		return Reply{}, fmt.Errorf("chatclient: decode response: %w", err)
	}
	if wire.Text == nil {
		return Reply{}, errors.New("chatclient: response has no text")
	}
	return wire.reply(), nil
}

func errorMessage(r io.Reader) string {
	buf, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	var payload domain.ErrorResponse
	if err := json.Unmarshal(buf, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return strings.TrimSpace(string(buf))
}

func firstNonEmpty(values ...*string) string {
	for _, v := range values {
		if s := deref(v); s != "" {
			return s
		}
	}
	return ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func boolPtr(v bool) *bool {
	return &v
}
