package usecase

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"eco-assistant/internal/domain"
	"eco-assistant/internal/fulfillment"
	"eco-assistant/internal/intent"
)

const (
	defaultMaxMessageLen = 1000
	AnonymousUserID      = "anonymous"
)

type IntentResolver interface {
	Resolve(text string) intent.Resolution
}

type Fulfiller interface {
	Dispatch(ctx context.Context, action domain.Action, params domain.Parameters, userID string) fulfillment.Response
}

type SessionStore interface {
	GetOrCreate(userID, sessionID string) (domain.Session, bool)
	Get(sessionID string) (domain.Session, bool)
	Append(sessionID string, msg domain.Message) bool
	Clear(sessionID string) bool
	LockTurn(sessionID string) (func(), bool)
}

type ChatService struct {
	resolver      IntentResolver
	fulfiller     Fulfiller
	sessions      SessionStore
	maxMessageLen int
	now           func() time.Time
}

type StartInput struct {
	UserID    string
	SessionID string
}

type StartOutput struct {
	Session domain.Session
	Created bool
}

type SendInput struct {
	SessionID string
	Text      string
}

type SendOutput struct {
	UserMessage domain.Message
	BotMessage  domain.Message
	Response    fulfillment.Response
}

func NewChatService(r IntentResolver, f Fulfiller, s SessionStore, maxMessageLen int) (*ChatService, error) {
	if r == nil {
		return nil, errors.New("usecase: intent resolver must not be nil")
	}
	if f == nil {
		return nil, errors.New("usecase: fulfiller must not be nil")
	}
	if s == nil {
		return nil, errors.New("usecase: session store must not be nil")
	}
	if maxMessageLen <= 0 {
		maxMessageLen = defaultMaxMessageLen
	}
	return &ChatService{
		resolver:      r,
		fulfiller:     f,
		sessions:      s,
		maxMessageLen: maxMessageLen,
		now:           time.Now,
	}, nil
}

// Start resumes the caller's session or opens a new one.
func (s *ChatService) Start(_ context.Context, in StartInput) (StartOutput, error) {
	userID := strings.TrimSpace(in.UserID)
	if userID == "" {
		userID = AnonymousUserID
	}
	sess, created := s.sessions.GetOrCreate(userID, strings.TrimSpace(in.SessionID))
	return StartOutput{Session: sess, Created: created}, nil
}

// Send runs one turn: record the utterance, resolve it, fulfil it, record the
// reply. Turns on one session run one at a time.
func (s *ChatService) Send(ctx context.Context, in SendInput) (SendOutput, error) {
	text := strings.TrimSpace(in.Text)
	if utf8.RuneCountInString(text) > s.maxMessageLen {
		return SendOutput{}, newError(ErrorInvalidInput, "message_too_long", nil)
	}

	unlock, ok := s.sessions.LockTurn(in.SessionID)
	if !ok {
		return SendOutput{}, newError(ErrorSessionNotFound, "unknown_session", nil)
	}
	defer unlock()

	sess, ok := s.sessions.Get(in.SessionID)
	if !ok {
		return SendOutput{}, newError(ErrorSessionNotFound, "unknown_session", nil)
	}

	userMsg := domain.Message{
		ID:        newUUID(),
		Text:      text,
		Sender:    domain.SenderUser,
		Timestamp: s.now(),
	}
	if !s.sessions.Append(sess.ID, userMsg) {
		return SendOutput{}, newError(ErrorSessionNotFound, "session_expired", nil)
	}

	res := s.resolver.Resolve(text)
	resp := s.fulfiller.Dispatch(ctx, res.Action, res.Parameters, sess.UserID)

	botMsg := domain.Message{
		ID:         newUUID(),
		Text:       resp.Text,
		Sender:     domain.SenderBot,
		Timestamp:  s.now(),
		Action:     res.Action,
		Parameters: res.Parameters.Clone(),
	}
	if !s.sessions.Append(sess.ID, botMsg) {
		return SendOutput{}, newError(ErrorSessionNotFound, "session_expired", nil)
	}
	return SendOutput{UserMessage: userMsg, BotMessage: botMsg, Response: resp}, nil
}

func (s *ChatService) History(_ context.Context, sessionID string) (domain.Session, error) {
	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.Session{}, newError(ErrorSessionNotFound, "unknown_session", nil)
	}
	return sess, nil
}

func (s *ChatService) Clear(_ context.Context, sessionID string) error {
	if !s.sessions.Clear(sessionID) {
		return newError(ErrorSessionNotFound, "unknown_session", nil)
	}
	return nil
}

var newUUID = func() string {
	return uuid.NewString()
}
