package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/require"

	"autogen-chat/internal/usecase"
)

type stubUseCase struct {
	out    usecase.ChatOutput
	err    error
	in     usecase.ChatInput
	calls  int
	ctxErr error
}

func (s *stubUseCase) Chat(ctx context.Context, in usecase.ChatInput) (usecase.ChatOutput, error) {
	s.calls++
	s.in = in
	s.ctxErr = ctx.Err()
	return s.out, s.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestHandler(t *testing.T, uc UseCase) *Handler {
	t.Helper()
	h, err := NewHandler(uc, discardLogger())
	require.NoError(t, err)
	return h
}

func makeEvent(body string) events.APIGatewayProxyRequest {
	return events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost,
		Path:       "/chat",
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       body,
	}
}

func parseBody[T any](t *testing.T, body string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(body), &v))
	return v
}

func postChat(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestNewHandler_ValidatesDependency(t *testing.T) {
	_, err := NewHandler(nil, nil)
	require.Error(t, err)
}

// ---------------------------------------------------------------------------
// net/http
// ---------------------------------------------------------------------------

func TestServeHTTP_TextOnly(t *testing.T) {
	uc := &stubUseCase{out: usecase.ChatOutput{Text: "Hi!", AudioURL: "https://media.example.com/audio/1.mp3"}}
	h := newTestHandler(t, uc)

	rec := postChat(t, h, `{"message":"hello"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.NotEmpty(t, rec.Header().Get("X-Correlation-Id"))
	require.Equal(t, usecase.ChatInput{Message: "hello"}, uc.in)
	require.JSONEq(t, `{"text":"Hi!","imageUrl":null,"audioUrl":"https://media.example.com/audio/1.mp3"}`, rec.Body.String())
}

func TestServeHTTP_WithImage(t *testing.T) {
	uc := &stubUseCase{out: usecase.ChatOutput{
		Text:     "Here is your cat.",
		ImageURL: "https://media.example.com/images/1.png",
		AudioURL: "https://media.example.com/audio/1.mp3",
	}}
	h := newTestHandler(t, uc)

	rec := postChat(t, h, `{"message":"generate an image of a cat","generate_image":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{
		"text":"Here is your cat.",
		"imageUrl":"https://media.example.com/images/1.png",
		"audioUrl":"https://media.example.com/audio/1.mp3"
	}`, rec.Body.String())
}

func TestServeHTTP_ClientHintDoesNotDecide(t *testing.T) {
	uc := &stubUseCase{out: usecase.ChatOutput{Text: "ok", AudioURL: "https://a"}}
	h := newTestHandler(t, uc)

	rec := postChat(t, h, `{"message":"hello","generate_image":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, usecase.ChatInput{Message: "hello"}, uc.in)
}

func TestServeHTTP_FailuresCollapseTo500(t *testing.T) {
	cases := []struct {
		name  string
		body  string
		err   error
		calls int
	}{
		{name: "malformed json", body: `not-json`, calls: 0},
		{name: "empty message", body: `{"message":"  "}`, err: &usecase.Error{Code: usecase.ErrorInvalidInput, Reason: "empty_message"}, calls: 1},
		{name: "completion failure", body: `{"message":"hello"}`, err: &usecase.Error{Code: usecase.ErrorUpstream, Reason: "completion_error", Err: errors.New("boom")}, calls: 1},
		{name: "speech failure", body: `{"message":"hello"}`, err: &usecase.Error{Code: usecase.ErrorUpstream, Reason: "speech_error"}, calls: 1},
		{name: "unexpected", body: `{"message":"hello"}`, err: errors.New("boom"), calls: 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			uc := &stubUseCase{err: tc.err}
			h := newTestHandler(t, uc)

			rec := postChat(t, h, tc.body)
			require.Equal(t, http.StatusInternalServerError, rec.Code)
			require.JSONEq(t, `{"error":"Internal server error"}`, rec.Body.String())
			require.Equal(t, tc.calls, uc.calls)
		})
	}
}

func TestServeHTTP_DetachesFromClientCancellation(t *testing.T) {
	uc := &stubUseCase{out: usecase.ChatOutput{Text: "ok", AudioURL: "https://a"}}
	h := newTestHandler(t, uc)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":"hello"}`)).WithContext(ctx)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, uc.ctxErr)
}

func TestServeHTTP_ReusesCorrelationID(t *testing.T) {
	h := newTestHandler(t, &stubUseCase{out: usecase.ChatOutput{Text: "ok", AudioURL: "https://a"}})

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":"hello"}`))
	req.Header.Set("x-correlation-id", "corr-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, "corr-123", rec.Header().Get("X-Correlation-Id"))
}

// ---------------------------------------------------------------------------
// Lambda / API Gateway
// ---------------------------------------------------------------------------

func TestHandle_HappyPath(t *testing.T) {
	uc := &stubUseCase{out: usecase.ChatOutput{Text: "hello", AudioURL: "https://media.example.com/audio/1.mp3"}}
	h := newTestHandler(t, uc)

	resp, err := h.Handle(context.Background(), makeEvent(`{"message":"hi there"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, usecase.ChatInput{Message: "hi there"}, uc.in)
	require.NotEmpty(t, resp.Headers["X-Correlation-Id"])

	out := parseBody[map[string]any](t, resp.Body)
	require.Equal(t, "hello", out["text"])
	require.Nil(t, out["imageUrl"])
	require.Equal(t, "https://media.example.com/audio/1.mp3", out["audioUrl"])
}

func TestHandle_Base64Body(t *testing.T) {
	uc := &stubUseCase{out: usecase.ChatOutput{Text: "ok", AudioURL: "https://a"}}
	h := newTestHandler(t, uc)

	event := makeEvent(base64.StdEncoding.EncodeToString([]byte(`{"message":"hello"}`)))
	event.IsBase64Encoded = true
	resp, err := h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "hello", uc.in.Message)

	event = makeEvent("%%%")
	event.IsBase64Encoded = true
	resp, err = h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestHandle_UpstreamFailure(t *testing.T) {
	uc := &stubUseCase{err: &usecase.Error{Code: usecase.ErrorUpstream, Reason: "completion_error"}}
	h := newTestHandler(t, uc)

	resp, err := h.Handle(context.Background(), makeEvent(`{"message":"hello"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	out := parseBody[map[string]string](t, resp.Body)
	require.Equal(t, "Internal server error", out["error"])
}

func TestHandle_UsesProvidedCorrelationID_CaseInsensitive(t *testing.T) {
	h := newTestHandler(t, &stubUseCase{out: usecase.ChatOutput{Text: "ok", AudioURL: "https://a"}})

	event := makeEvent(`{"message":"hello"}`)
	event.Headers["x-correlation-id"] = "corr-123"
	resp, err := h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, "corr-123", resp.Headers["X-Correlation-Id"])
}

// ---------------------------------------------------------------------------
// Routes
// ---------------------------------------------------------------------------

func TestRoutes(t *testing.T) {
	uc := &stubUseCase{out: usecase.ChatOutput{Text: "ok", AudioURL: "https://a"}}
	h := newTestHandler(t, uc)
	ui := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ui"))
	})
	router := h.Routes(ui, []string{"*"})

	rec := postChat(t, router, `{"message":"hello"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, "ui", rec.Body.String())

	req = httptest.NewRequest(http.MethodOptions, "/chat", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRoutes_WithoutUI(t *testing.T) {
	h := newTestHandler(t, &stubUseCase{})
	router := h.Routes(nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)

	req = httptest.NewRequest(http.MethodOptions, "/chat", nil)
	req.Header.Set("Origin", "http://evil.example.com")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRoutes_AccessLogUsesHandlerLogger(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))
	h, err := NewHandler(&stubUseCase{out: usecase.ChatOutput{Text: "ok", AudioURL: "https://a"}}, log)
	require.NoError(t, err)

	rec := postChat(t, h.Routes(nil, []string{"*"}), `{"message":"hello"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, buf.String(), `"msg":"request completed"`)
	require.Contains(t, buf.String(), `"path":"/chat"`)
}
