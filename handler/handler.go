// Package handler adapts API Gateway proxy events to the chat and webhook
// use cases.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"eco-assistant/internal/domain"
	"eco-assistant/internal/usecase"
	"eco-assistant/internal/wire"
)

type ChatUseCase interface {
	Start(ctx context.Context, in usecase.StartInput) (usecase.StartOutput, error)
	Send(ctx context.Context, in usecase.SendInput) (usecase.SendOutput, error)
	History(ctx context.Context, sessionID string) (domain.Session, error)
	Clear(ctx context.Context, sessionID string) error
}

type WebhookUseCase interface {
	Fulfill(ctx context.Context, in usecase.FulfillInput) (usecase.FulfillOutput, error)
}

const (
	webhookPath  = "/api/dialogflow-webhook"
	sessionsPath = "/api/chat/sessions"
	healthPath   = "/health"

	errNotFound         = "NOT_FOUND"
	errMethodNotAllowed = "METHOD_NOT_ALLOWED"
)

type Handler struct {
	chat    ChatUseCase
	webhook WebhookUseCase
	logger  *slog.Logger
}

func NewHandler(chat ChatUseCase, webhook WebhookUseCase, logger *slog.Logger) (*Handler, error) {
	if chat == nil {
		return nil, errors.New("handler: chat use case must not be nil")
	}
	if webhook == nil {
		return nil, errors.New("handler: webhook use case must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{chat: chat, webhook: webhook, logger: logger}, nil
}

// Handle routes one API Gateway proxy request.
func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	correlationID := header(event, wire.HeaderCorrelationID)
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	log := h.logger.With("correlation_id", correlationID, "method", event.HTTPMethod, "path", event.Path)

	resp := h.route(ctx, log, event)
	resp.Headers[wire.HeaderCorrelationID] = correlationID
	if resp.StatusCode >= http.StatusInternalServerError {
		log.Error("request failed", "status", resp.StatusCode)
	} else {
		log.Info("request handled", "status", resp.StatusCode)
	}
	return resp, nil
}

func (h *Handler) route(ctx context.Context, log *slog.Logger, event events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	path := strings.TrimRight(event.Path, "/")
	method := strings.ToUpper(event.HTTPMethod)

	switch {
	case path == healthPath:
		if method != http.MethodGet {
			return errorBody(http.StatusMethodNotAllowed, errMethodNotAllowed)
		}
		return jsonResponse(http.StatusOK, wire.HealthResponse{Status: "ok"})

	case path == webhookPath:
		if method != http.MethodPost {
			return errorBody(http.StatusMethodNotAllowed, errMethodNotAllowed)
		}
		return h.fulfill(ctx, log, event)

	case path == sessionsPath:
		if method != http.MethodPost {
			return errorBody(http.StatusMethodNotAllowed, errMethodNotAllowed)
		}
		return h.startSession(ctx, log, event)

	case strings.HasPrefix(path, sessionsPath+"/"):
		rest := strings.Split(strings.TrimPrefix(path, sessionsPath+"/"), "/")
		id := rest[0]
		if id == "" {
			return errorBody(http.StatusNotFound, errNotFound)
		}
		switch {
		case len(rest) == 1 && method == http.MethodGet:
			return h.history(ctx, log, id)
		case len(rest) == 1 && method == http.MethodDelete:
			return h.clear(ctx, log, id)
		case len(rest) == 2 && rest[1] == "messages" && method == http.MethodPost:
			return h.send(ctx, log, id, event)
		case len(rest) <= 2:
			return errorBody(http.StatusMethodNotAllowed, errMethodNotAllowed)
		}
	}
	return errorBody(http.StatusNotFound, errNotFound)
}

func (h *Handler) fulfill(ctx context.Context, log *slog.Logger, event events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	var req wire.WebhookRequest
	if err := wire.DecodeString(event.Body, &req); err != nil {
		log.Warn("invalid webhook body", "err", err)
		return errorBody(http.StatusBadRequest, string(usecase.ErrorInvalidInput))
	}
	out, err := h.webhook.Fulfill(ctx, usecase.FulfillInput{
		QueryText:  req.QueryResult.QueryText,
		Action:     req.QueryResult.Action,
		Parameters: req.QueryResult.Parameters,
		Session:    req.Session,
		UserID:     header(event, wire.HeaderUserID),
	})
	if err != nil {
		return useCaseError(log, err)
	}
	log.Info("webhook fulfilled", "action", out.Action, "user_id", out.UserID)
	return jsonResponse(http.StatusOK, wire.NewWebhookResponse(out.Response))
}

func (h *Handler) startSession(ctx context.Context, log *slog.Logger, event events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	var req wire.StartSessionRequest
	if strings.TrimSpace(event.Body) != "" {
		if err := wire.DecodeString(event.Body, &req); err != nil {
			log.Warn("invalid session body", "err", err)
			return errorBody(http.StatusBadRequest, string(usecase.ErrorInvalidInput))
		}
	}
	if req.UserID == "" {
		req.UserID = header(event, wire.HeaderUserID)
	}
	out, err := h.chat.Start(ctx, usecase.StartInput{UserID: req.UserID, SessionID: req.SessionID})
	if err != nil {
		return useCaseError(log, err)
	}
	status := http.StatusOK
	if out.Created {
		status = http.StatusCreated
	}
	return jsonResponse(status, wire.NewSessionResponse(out.Session, true))
}

func (h *Handler) history(ctx context.Context, log *slog.Logger, id string) events.APIGatewayProxyResponse {
	sess, err := h.chat.History(ctx, id)
	if err != nil {
		return useCaseError(log, err)
	}
	return jsonResponse(http.StatusOK, wire.NewSessionResponse(sess, true))
}

func (h *Handler) clear(ctx context.Context, log *slog.Logger, id string) events.APIGatewayProxyResponse {
	if err := h.chat.Clear(ctx, id); err != nil {
		return useCaseError(log, err)
	}
	return events.APIGatewayProxyResponse{StatusCode: http.StatusNoContent, Headers: map[string]string{}}
}

func (h *Handler) send(ctx context.Context, log *slog.Logger, id string, event events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	var req wire.SendMessageRequest
	if err := wire.DecodeString(event.Body, &req); err != nil {
		log.Warn("invalid message body", "err", err)
		return errorBody(http.StatusBadRequest, string(usecase.ErrorInvalidInput))
	}
	out, err := h.chat.Send(ctx, usecase.SendInput{SessionID: id, Text: req.Text})
	if err != nil {
		return useCaseError(log, err)
	}
	return jsonResponse(http.StatusOK, wire.NewSendMessageResponse(out))
}

func useCaseError(log *slog.Logger, err error) events.APIGatewayProxyResponse {
	status, code := wire.ErrorStatus(err)
	if status >= http.StatusInternalServerError {
		log.Error("use case failed", "err", err)
	} else {
		log.Warn("use case rejected request", "err", err)
	}
	return errorBody(status, code)
}

func errorBody(status int, code string) events.APIGatewayProxyResponse {
	return jsonResponse(status, wire.ErrorResponse{Error: code})
}

func jsonResponse(status int, v any) events.APIGatewayProxyResponse {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":"` + string(usecase.ErrorInternal) + `"}`)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(body),
	}
}

// header looks name up case-insensitively, as API Gateway preserves the
// client's casing.
func header(event events.APIGatewayProxyRequest, name string) string {
	for k, v := range event.Headers {
		if strings.EqualFold(k, name) {
			return strings.TrimSpace(v)
		}
	}
	for k, vs := range event.MultiValueHeaders {
		if strings.EqualFold(k, name) && len(vs) > 0 {
			return strings.TrimSpace(vs[0])
		}
	}
	return ""
}
