// Package wire holds the JSON request and response bodies shared by the
// Lambda handler and the local HTTP server.
package wire

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"eco-assistant/internal/domain"
	"eco-assistant/internal/fulfillment"
	"eco-assistant/internal/usecase"
)

const (
	HeaderCorrelationID = "X-Correlation-Id"
	HeaderUserID        = "X-User-Id"

	maxBodyBytes = 64 << 10
)

// WebhookRequest is the subset of a Dialogflow ES fulfillment request we read.
type WebhookRequest struct {
	ResponseID  string      `json:"responseId,omitempty"`
	Session     string      `json:"session"`
	QueryResult QueryResult `json:"queryResult"`
}

type QueryResult struct {
	QueryText    string         `json:"queryText"`
	Action       string         `json:"action"`
	Parameters   map[string]any `json:"parameters"`
	LanguageCode string         `json:"languageCode,omitempty"`
}

type WebhookResponse struct {
	FulfillmentText     string               `json:"fulfillmentText"`
	FulfillmentMessages []FulfillmentMessage `json:"fulfillmentMessages,omitempty"`
}

// FulfillmentMessage carries exactly one of its fields.
type FulfillmentMessage struct {
	Text         *TextMessage  `json:"text,omitempty"`
	QuickReplies *QuickReplies `json:"quickReplies,omitempty"`
	Card         *CardMessage  `json:"card,omitempty"`
}

type TextMessage struct {
	Text []string `json:"text"`
}

type QuickReplies struct {
	Title        string   `json:"title"`
	QuickReplies []string `json:"quickReplies"`
}

type CardMessage struct {
	Title    string       `json:"title"`
	Subtitle string       `json:"subtitle"`
	Buttons  []CardButton `json:"buttons,omitempty"`
}

type CardButton struct {
	Text     string `json:"text"`
	Postback string `json:"postback"`
}

// NewWebhookResponse renders a dispatcher response as Dialogflow rich messages.
func NewWebhookResponse(r fulfillment.Response) WebhookResponse {
	out := WebhookResponse{
		FulfillmentText:     r.Text,
		FulfillmentMessages: []FulfillmentMessage{{Text: &TextMessage{Text: []string{r.Text}}}},
	}
	if r.Card != nil {
		card := &CardMessage{Title: r.Card.Title, Subtitle: r.Card.Subtitle}
		for _, b := range r.Card.Buttons {
			card.Buttons = append(card.Buttons, CardButton{Text: b, Postback: b})
		}
		out.FulfillmentMessages = append(out.FulfillmentMessages, FulfillmentMessage{Card: card})
	}
	if len(r.QuickReplies) > 0 {
		out.FulfillmentMessages = append(out.FulfillmentMessages, FulfillmentMessage{
			QuickReplies: &QuickReplies{Title: "Try asking:", QuickReplies: r.QuickReplies},
		})
	}
	return out
}

type StartSessionRequest struct {
	UserID    string `json:"userId"`
	SessionID string `json:"sessionId,omitempty"`
}

type SendMessageRequest struct {
	Text string `json:"text"`
}

type Message struct {
	ID         string            `json:"id"`
	Text       string            `json:"text"`
	Sender     domain.Sender     `json:"sender"`
	Timestamp  time.Time         `json:"timestamp"`
	Action     domain.Action     `json:"action,omitempty"`
	Parameters domain.Parameters `json:"parameters,omitempty"`
}

type Session struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	CreatedAt    time.Time `json:"createdAt"`
	LastActivity time.Time `json:"lastActivity"`
	MessageCount int       `json:"messageCount"`
}

type SessionResponse struct {
	Session  Session   `json:"session"`
	Messages []Message `json:"messages,omitempty"`
}

type Card struct {
	Title    string   `json:"title"`
	Subtitle string   `json:"subtitle"`
	Buttons  []string `json:"buttons,omitempty"`
}

type SendMessageResponse struct {
	UserMessage  Message  `json:"userMessage"`
	BotMessage   Message  `json:"botMessage"`
	QuickReplies []string `json:"quickReplies,omitempty"`
	Card         *Card    `json:"card,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

func NewMessage(m domain.Message) Message {
	return Message{
		ID:         m.ID,
		Text:       m.Text,
		Sender:     m.Sender,
		Timestamp:  m.Timestamp,
		Action:     m.Action,
		Parameters: m.Parameters,
	}
}

func NewSession(s domain.Session) Session {
	return Session{
		ID:           s.ID,
		UserID:       s.UserID,
		CreatedAt:    s.CreatedAt,
		LastActivity: s.LastActivity,
		MessageCount: len(s.Messages),
	}
}

// NewSessionResponse includes the transcript when withMessages is set.
func NewSessionResponse(s domain.Session, withMessages bool) SessionResponse {
	out := SessionResponse{Session: NewSession(s)}
	if withMessages {
		out.Messages = make([]Message, 0, len(s.Messages))
		for _, m := range s.Messages {
			out.Messages = append(out.Messages, NewMessage(m))
		}
	}
	return out
}

func NewSendMessageResponse(o usecase.SendOutput) SendMessageResponse {
	out := SendMessageResponse{
		UserMessage:  NewMessage(o.UserMessage),
		BotMessage:   NewMessage(o.BotMessage),
		QuickReplies: o.Response.QuickReplies,
	}
	if c := o.Response.Card; c != nil {
		out.Card = &Card{Title: c.Title, Subtitle: c.Subtitle, Buttons: c.Buttons}
	}
	return out
}

// Decode reads one JSON object into v. Numbers decode as json.Number so
// webhook amounts keep their literal value.
func Decode(r io.Reader, v any) error {
	dec := json.NewDecoder(io.LimitReader(r, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("wire: decode body: %w", err)
	}
	if dec.More() {
		return errors.New("wire: decode body: trailing data")
	}
	return nil
}

// DecodeString is Decode over an in-memory body.
func DecodeString(body string, v any) error {
	if strings.TrimSpace(body) == "" {
		return errors.New("wire: decode body: empty")
	}
	return Decode(bytes.NewReader([]byte(body)), v)
}

// ErrorStatus maps an error to an HTTP status and the public error code.
// Errors that are not *usecase.Error are reported as internal.
func ErrorStatus(err error) (int, string) {
	var ucErr *usecase.Error
	if !errors.As(err, &ucErr) {
		return http.StatusInternalServerError, string(usecase.ErrorInternal)
	}
	switch ucErr.Code {
	case usecase.ErrorInvalidInput:
		return http.StatusBadRequest, string(ucErr.Code)
	case usecase.ErrorSessionNotFound:
		return http.StatusNotFound, string(ucErr.Code)
	default:
		return http.StatusInternalServerError, string(usecase.ErrorInternal)
	}
}
