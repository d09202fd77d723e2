package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	goopenai "github.com/sashabaranov/go-openai"

	"autogen-chat/internal/domain"
)

const (
	defaultBaseURL     = "https://api.openai.com/v1"
	defaultChatModel   = "gpt-4"
	defaultTemperature = 0.7
	defaultImageModel  = goopenai.CreateImageModelDallE3
	defaultImageSize   = goopenai.CreateImageSize1024x1024
	defaultSpeechModel = goopenai.TTSModel1
	defaultSpeechVoice = goopenai.VoiceAlloy

	maxDownloadBytes = 20 << 20
	maxErrorBody     = 4096
)

// KeySource yields the API key used to authenticate against the provider.
type KeySource interface {
	APIKey(ctx context.Context) (string, error)
}

// StaticKey is a KeySource for a key known at startup.
type StaticKey string

func (k StaticKey) APIKey(_ context.Context) (string, error) {
	key := strings.TrimSpace(string(k))
	if key == "" {
		return "", errors.New("openai: API key is empty")
	}
	return key, nil
}

// HTTPStatusError captures non-2xx upstream responses with status-aware context.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("openai: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client covers the three provider capabilities the chat turn needs:
// completions, image generation and speech synthesis. It is read-only after
// construction apart from the lazily built SDK client.
type Client struct {
	keys        KeySource
	baseURL     string
	httpClient  *http.Client
	chatModel   string
	temperature float32
	imageModel  string
	imageSize   string
	speechModel goopenai.SpeechModel
	speechVoice goopenai.SpeechVoice

	apiMu sync.Mutex
	api   *goopenai.Client
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if v := strings.TrimSpace(baseURL); v != "" {
			c.baseURL = v
		}
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithChatModel(model string, temperature float32) Option {
	return func(c *Client) {
		if v := strings.TrimSpace(model); v != "" {
			c.chatModel = v
		}
		c.temperature = temperature
	}
}

func WithImageModel(model, size string) Option {
	return func(c *Client) {
		if v := strings.TrimSpace(model); v != "" {
			c.imageModel = v
		}
		if v := strings.TrimSpace(size); v != "" {
			c.imageSize = v
		}
	}
}

func WithSpeech(model, voice string) Option {
	return func(c *Client) {
		if v := strings.TrimSpace(model); v != "" {
			c.speechModel = goopenai.SpeechModel(v)
		}
		if v := strings.TrimSpace(voice); v != "" {
			c.speechVoice = goopenai.SpeechVoice(v)
		}
	}
}

// NewClient creates a Client. The key is requested from keys on the first
// call and reused for the lifetime of the process.
func NewClient(keys KeySource, opts ...Option) (*Client, error) {
	if keys == nil {
		return nil, errors.New("openai: key source must not be nil")
	}
	c := &Client{
		keys:        keys,
		baseURL:     defaultBaseURL,
		httpClient:  &http.Client{},
		chatModel:   defaultChatModel,
		temperature: defaultTemperature,
		imageModel:  defaultImageModel,
		imageSize:   defaultImageSize,
		speechModel: defaultSpeechModel,
		speechVoice: defaultSpeechVoice,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) resolvedHTTPClient() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return &http.Client{}
}

// resolveAPI builds the SDK client on first use so that a key stored in the
// parameter store is fetched once, when the first request needs it. A failed
// lookup is not remembered; the next call asks the key source again.
func (c *Client) resolveAPI(ctx context.Context) (*goopenai.Client, error) {
	c.apiMu.Lock()
	defer c.apiMu.Unlock()

	if c.api != nil {
		return c.api, nil
	}
	key, err := c.keys.APIKey(ctx)
	if err != nil {
		return nil, fmt.Errorf("openai: resolve API key: %w", err)
	}
	cfg := goopenai.DefaultConfig(key)
	cfg.BaseURL = apiBaseURL(c.baseURL)
	cfg.HTTPClient = c.resolvedHTTPClient()
	c.api = goopenai.NewClientWithConfig(cfg)
	return c.api, nil
}

func apiBaseURL(baseURL string) string {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return defaultBaseURL
	}
	if strings.HasSuffix(base, "/v1") {
		return base
	}
	return base + "/v1"
}

// Chat sends messages to the Chat Completions endpoint and returns the first
// choice's content.
func (c *Client) Chat(ctx context.Context, messages []domain.ChatMessage) (string, error) {
	api, err := c.resolveAPI(ctx)
	if err != nil {
		return "", err
	}

	req := goopenai.ChatCompletionRequest{
		Model:       c.chatModel,
		Messages:    make([]goopenai.ChatCompletionMessage, 0, len(messages)),
		Temperature: c.temperature,
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, goopenai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	resp, err := api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", wrapAPIError("chat completion", "/chat/completions", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: no choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}

// GenerateImage asks the Images endpoint for a single image and returns the
// URL it can be downloaded from.
func (c *Client) GenerateImage(ctx context.Context, prompt string) (string, error) {
	api, err := c.resolveAPI(ctx)
	if err != nil {
		return "", err
	}

	resp, err := api.CreateImage(ctx, goopenai.ImageRequest{
		Prompt:         prompt,
		Model:          c.imageModel,
		N:              1,
		Size:           c.imageSize,
		ResponseFormat: goopenai.CreateImageResponseFormatURL,
	})
	if err != nil {
		return "", wrapAPIError("image generation", "/images/generations", err)
	}
	if len(resp.Data) == 0 || strings.TrimSpace(resp.Data[0].URL) == "" {
		return "", errors.New("openai: no image URL in response")
	}
	return resp.Data[0].URL, nil
}

// Synthesize converts text to mp3 audio.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	api, err := c.resolveAPI(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := api.CreateSpeech(ctx, goopenai.CreateSpeechRequest{
		Model:          c.speechModel,
		Input:          text,
		Voice:          c.speechVoice,
		ResponseFormat: goopenai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, wrapAPIError("speech", "/audio/speech", err)
	}
	defer func() { _ = resp.Close() }()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("openai: read speech body: %w", err)
	}
	if len(audio) == 0 {
		return nil, errors.New("openai: empty speech body")
	}
	return audio, nil
}

// Download fetches a generated image. Bodies larger than 20 MiB are rejected.
func (c *Client) Download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("openai: create download request: %w", err)
	}

	res, err := c.resolvedHTTPClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai: download request failed: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		return nil, &HTTPStatusError{
			StatusCode: res.StatusCode,
			URL:        url,
			Body:       string(buf),
		}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, maxDownloadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("openai: read download body: %w", err)
	}
	if len(buf) > maxDownloadBytes {
		return nil, fmt.Errorf("openai: download exceeds %d bytes", maxDownloadBytes)
	}
	if len(buf) == 0 {
		return nil, errors.New("openai: empty download body")
	}
	return buf, nil
}

// wrapAPIError turns SDK errors that carry an HTTP status into
// *HTTPStatusError so callers can inspect the status without importing the SDK.
func wrapAPIError(op, path string, err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return fmt.Errorf("openai: %s: %w", op, &HTTPStatusError{
			StatusCode: apiErr.HTTPStatusCode,
			URL:        path,
			Body:       apiErr.Message,
		})
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return fmt.Errorf("openai: %s: %w", op, &HTTPStatusError{
			StatusCode: reqErr.HTTPStatusCode,
			URL:        path,
			Body:       string(reqErr.Body),
		})
	}
	return fmt.Errorf("openai: %s request failed: %w", op, err)
}
