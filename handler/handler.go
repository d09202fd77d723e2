package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"autogen-chat/internal/domain"
	"autogen-chat/internal/usecase"
)

const (
	correlationHeader   = "X-Correlation-Id"
	internalErrorText   = "Internal server error"
	maxRequestBodyBytes = 1 << 20
)

// UseCase is the chat turn the handler exposes.
type UseCase interface {
	Chat(ctx context.Context, in usecase.ChatInput) (usecase.ChatOutput, error)
}

// Handler serves POST /chat, both as an http.Handler and as an API Gateway
// proxy handler for Lambda. Every failure is reported as a bare 500.
type Handler struct {
	uc      UseCase
	log     *slog.Logger
	baseLog *slog.Logger
}

func NewHandler(uc UseCase, log *slog.Logger) (*Handler, error) {
	if uc == nil {
		return nil, errors.New("handler: use case must not be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Handler{uc: uc, log: log.With("component", "handler"), baseLog: log}, nil
}

// ServeHTTP handles POST /chat. Client disconnects do not cancel the
// upstream calls of a turn that has already started.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	correlationID := resolveCorrelationID(r.Header.Get(correlationHeader))
	w.Header().Set(correlationHeader, correlationID)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	if err != nil {
		h.log.Warn("chat request body unreadable", "correlation_id", correlationID, "error", err)
		writeJSON(w, http.StatusInternalServerError, domain.ErrorResponse{Error: internalErrorText})
		return
	}

	status, payload := h.chat(context.WithoutCancel(r.Context()), correlationID, body)
	writeJSON(w, status, payload)
}

// Handle is the Lambda entry point for API Gateway proxy events.
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	correlationID := resolveCorrelationID(headerValue(req.Headers, correlationHeader))

	body := []byte(req.Body)
	if req.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(req.Body)
		if err != nil {
			h.log.Warn("chat request body not base64", "correlation_id", correlationID, "error", err)
			return proxyResponse(http.StatusInternalServerError, correlationID, domain.ErrorResponse{Error: internalErrorText}), nil
		}
		body = decoded
	}

	status, payload := h.chat(ctx, correlationID, body)
	return proxyResponse(status, correlationID, payload), nil
}

func (h *Handler) chat(ctx context.Context, correlationID string, body []byte) (int, any) {
	log := h.log.With("correlation_id", correlationID)

	req, err := decodeChatRequest(body)
	if err != nil {
		log.Warn("chat request rejected", "error", err)
		return http.StatusInternalServerError, domain.ErrorResponse{Error: internalErrorText}
	}

	wantsImage := domain.WantsImage(req.Message)
	if req.GenerateImage != nil && *req.GenerateImage != wantsImage {
		log.Debug("client image hint ignored", "client_hint", *req.GenerateImage, "server_decision", wantsImage)
	}

	out, err := h.uc.Chat(ctx, usecase.ChatInput{Message: req.Message})
	if err != nil {
		logFailure(log, err)
		return http.StatusInternalServerError, domain.ErrorResponse{Error: internalErrorText}
	}

	log.Info("chat completed", "image", out.ImageURL != "", "text_len", len(out.Text))
	return http.StatusOK, domain.ChatResponse{
		Text:     out.Text,
		ImageURL: optional(out.ImageURL),
		AudioURL: optional(out.AudioURL),
	}
}

func decodeChatRequest(body []byte) (domain.ChatRequest, error) {
	var req domain.ChatRequest
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(&req); err != nil {
		return domain.ChatRequest{}, fmt.Errorf("handler: decode request: %w", err)
	}
	return req, nil
}

func logFailure(log *slog.Logger, err error) {
	var ue *usecase.Error
	if !errors.As(err, &ue) {
		log.Error("chat failed", "code", usecase.ErrorInternal, "error", err)
		return
	}
	attrs := []any{"code", ue.Code, "reason", ue.Reason, "error", err}
	if status, ok := ue.UpstreamStatus(); ok {
		attrs = append(attrs, "upstream_status", status)
	}
	if ue.Code == usecase.ErrorInvalidInput {
		log.Warn("chat request rejected", attrs...)
		return
	}
	log.Error("chat failed", attrs...)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func resolveCorrelationID(incoming string) string {
	if v := strings.TrimSpace(incoming); v != "" {
		return v
	}
	return newCorrelationID()
}

// headerValue looks up a header case-insensitively; API Gateway passes
// headers through with whatever casing the client used.
func headerValue(headers map[string]string, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("handler: failed to encode response", "error", err)
	}
}

func proxyResponse(status int, correlationID string, v any) events.APIGatewayProxyResponse {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":"` + internalErrorText + `"}`)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type":    "application/json",
			correlationHeader: correlationID,
		},
		Body: string(body),
	}
}

var newCorrelationID = func() string {
	return uuid.NewString()
}
