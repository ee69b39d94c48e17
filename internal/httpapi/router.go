// Package httpapi serves the chat and webhook routes over net/http for local
// runs.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
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

// Pinger reports whether the activity store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	chat    ChatUseCase
	webhook WebhookUseCase
	store   Pinger
	logger  *slog.Logger
}

// NewServer builds the route handlers. store may be nil, in which case
// /health reports only the API itself.
func NewServer(chat ChatUseCase, webhook WebhookUseCase, store Pinger, logger *slog.Logger) (*Server, error) {
	if chat == nil {
		return nil, errors.New("httpapi: chat use case must not be nil")
	}
	if webhook == nil {
		return nil, errors.New("httpapi: webhook use case must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{chat: chat, webhook: webhook, store: store, logger: logger}, nil
}

// Router returns the chi router with middleware and all routes mounted.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RealIP)
	r.Use(correlationID)
	r.Use(s.requestLogger)
	r.Use(chiMiddleware.Recoverer)

	r.Get("/health", s.health)
	r.Route("/api", func(r chi.Router) {
		r.Post("/dialogflow-webhook", s.fulfill)
		r.Route("/chat/sessions", func(r chi.Router) {
			r.Post("/", s.startSession)
			r.Get("/{id}", s.history)
			r.Delete("/{id}", s.clear)
			r.Post("/{id}/messages", s.send)
		})
	})
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		Error(w, http.StatusNotFound, "NOT_FOUND")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		Error(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED")
	})
	return r
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// Error writes the {"error": code} body.
func Error(w http.ResponseWriter, status int, code string) {
	JSON(w, status, wire.ErrorResponse{Error: code})
}

func (s *Server) useCaseError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := wire.ErrorStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "use case failed", "err", err)
	}
	Error(w, status, code)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if s.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := s.store.Ping(ctx); err != nil {
			s.logger.Error("health check failed", "err", err)
			JSON(w, http.StatusServiceUnavailable, wire.HealthResponse{Status: "degraded"})
			return
		}
	}
	JSON(w, http.StatusOK, wire.HealthResponse{Status: "ok"})
}

func (s *Server) fulfill(w http.ResponseWriter, r *http.Request) {
	var req wire.WebhookRequest
	if err := wire.Decode(r.Body, &req); err != nil {
		Error(w, http.StatusBadRequest, string(usecase.ErrorInvalidInput))
		return
	}
	out, err := s.webhook.Fulfill(r.Context(), usecase.FulfillInput{
		QueryText:  req.QueryResult.QueryText,
		Action:     req.QueryResult.Action,
		Parameters: req.QueryResult.Parameters,
		Session:    req.Session,
		UserID:     r.Header.Get(wire.HeaderUserID),
	})
	if err != nil {
		s.useCaseError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, wire.NewWebhookResponse(out.Response))
}

func (s *Server) startSession(w http.ResponseWriter, r *http.Request) {
	var req wire.StartSessionRequest
	if r.ContentLength != 0 {
		if err := wire.Decode(r.Body, &req); err != nil {
			Error(w, http.StatusBadRequest, string(usecase.ErrorInvalidInput))
			return
		}
	}
	if req.UserID == "" {
		req.UserID = r.Header.Get(wire.HeaderUserID)
	}
	out, err := s.chat.Start(r.Context(), usecase.StartInput{UserID: req.UserID, SessionID: req.SessionID})
	if err != nil {
		s.useCaseError(w, r, err)
		return
	}
	status := http.StatusOK
	if out.Created {
		status = http.StatusCreated
	}
	JSON(w, status, wire.NewSessionResponse(out.Session, true))
}

func (s *Server) history(w http.ResponseWriter, r *http.Request) {
	sess, err := s.chat.History(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.useCaseError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, wire.NewSessionResponse(sess, true))
}

func (s *Server) clear(w http.ResponseWriter, r *http.Request) {
	if err := s.chat.Clear(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.useCaseError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) send(w http.ResponseWriter, r *http.Request) {
	var req wire.SendMessageRequest
	if err := wire.Decode(r.Body, &req); err != nil {
		Error(w, http.StatusBadRequest, string(usecase.ErrorInvalidInput))
		return
	}
	out, err := s.chat.Send(r.Context(), usecase.SendInput{SessionID: chi.URLParam(r, "id"), Text: req.Text})
	if err != nil {
		s.useCaseError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, wire.NewSendMessageResponse(out))
}

// correlationID echoes X-Correlation-Id, creating one when absent.
func correlationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(wire.HeaderCorrelationID)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(wire.HeaderCorrelationID, id)
		}
		w.Header().Set(wire.HeaderCorrelationID, id)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("request handled",
			"correlation_id", r.Header.Get(wire.HeaderCorrelationID),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}
