package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"eco-assistant/internal/domain"
	"eco-assistant/internal/fulfillment"
	"eco-assistant/internal/intent"
	"eco-assistant/internal/session"
)

type dispatchCall struct {
	action domain.Action
	params domain.Parameters
	userID string
}

type stubFulfiller struct {
	mu    sync.Mutex
	calls []dispatchCall
	text  string
}

func (f *stubFulfiller) Dispatch(_ context.Context, action domain.Action, params domain.Parameters, userID string) fulfillment.Response {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, dispatchCall{action: action, params: params, userID: userID})
	text := f.text
	if text == "" {
		text = "reply to " + action.String()
	}
	return fulfillment.Response{Text: text}
}

type vanishingSessions struct {
	*session.Manager
}

func (v vanishingSessions) Append(string, domain.Message) bool { return false }

func newTestSessions() *session.Manager {
	return session.NewManager(session.Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
}

func newTestChat(t *testing.T, f Fulfiller, s SessionStore, maxLen int) *ChatService {
	t.Helper()
	svc, err := NewChatService(intent.NewResolver(), f, s, maxLen)
	require.NoError(t, err)
	return svc
}

func TestNewChatServiceValidatesDependencies(t *testing.T) {
	_, err := NewChatService(nil, &stubFulfiller{}, newTestSessions(), 0)
	require.Error(t, err)
	_, err = NewChatService(intent.NewResolver(), nil, newTestSessions(), 0)
	require.Error(t, err)
	_, err = NewChatService(intent.NewResolver(), &stubFulfiller{}, nil, 0)
	require.Error(t, err)
}

func TestStartDefaultsToAnonymousAndResumes(t *testing.T) {
	svc := newTestChat(t, &stubFulfiller{}, newTestSessions(), 0)

	out, err := svc.Start(context.Background(), StartInput{})
	require.NoError(t, err)
	require.True(t, out.Created)
	require.Equal(t, AnonymousUserID, out.Session.UserID)

	again, err := svc.Start(context.Background(), StartInput{UserID: AnonymousUserID, SessionID: out.Session.ID})
	require.NoError(t, err)
	require.False(t, again.Created)
	require.Equal(t, out.Session.ID, again.Session.ID)
}

func TestSendRecordsTurnInOrder(t *testing.T) {
	f := &stubFulfiller{}
	sessions := newTestSessions()
	svc := newTestChat(t, f, sessions, 0)
	start, err := svc.Start(context.Background(), StartInput{UserID: "u1"})
	require.NoError(t, err)

	out, err := svc.Send(context.Background(), SendInput{SessionID: start.Session.ID, Text: "  I drove 25 km today "})
	require.NoError(t, err)

	require.Equal(t, "I drove 25 km today", out.UserMessage.Text)
	require.Equal(t, domain.SenderUser, out.UserMessage.Sender)
	require.Equal(t, domain.SenderBot, out.BotMessage.Sender)
	require.Equal(t, domain.ActionAddActivity, out.BotMessage.Action)
	require.Equal(t, "transport", out.BotMessage.Parameters[domain.ParamCategory])
	require.Equal(t, "reply to add.carbon.entry", out.BotMessage.Text)

	require.Len(t, f.calls, 1)
	require.Equal(t, "u1", f.calls[0].userID)

	transcript := sessions.Transcript(start.Session.ID)
	require.Len(t, transcript, 2)
	require.Equal(t, out.UserMessage.ID, transcript[0].ID)
	require.Equal(t, out.BotMessage.ID, transcript[1].ID)
}

func TestSendReplyParametersDoNotAliasTranscript(t *testing.T) {
	sessions := newTestSessions()
	svc := newTestChat(t, &stubFulfiller{}, sessions, 0)
	start, err := svc.Start(context.Background(), StartInput{UserID: "u1"})
	require.NoError(t, err)

	out, err := svc.Send(context.Background(), SendInput{SessionID: start.Session.ID, Text: "I drove 25 km today"})
	require.NoError(t, err)
	out.BotMessage.Parameters[domain.ParamCategory] = "energy"

	transcript := sessions.Transcript(start.Session.ID)
	require.Equal(t, "transport", transcript[1].Parameters[domain.ParamCategory])
}

func TestSendEmptyTextResolvesToUnknown(t *testing.T) {
	f := &stubFulfiller{}
	svc := newTestChat(t, f, newTestSessions(), 0)
	start, _ := svc.Start(context.Background(), StartInput{UserID: "u1"})

	out, err := svc.Send(context.Background(), SendInput{SessionID: start.Session.ID, Text: "   "})
	require.NoError(t, err)
	require.Equal(t, domain.ActionUnknown, out.BotMessage.Action)
	require.NotNil(t, out.BotMessage.Parameters)
	require.Empty(t, out.BotMessage.Parameters)
}

func TestSendRejectsLongText(t *testing.T) {
	f := &stubFulfiller{}
	svc := newTestChat(t, f, newTestSessions(), 10)
	start, _ := svc.Start(context.Background(), StartInput{UserID: "u1"})

	_, err := svc.Send(context.Background(), SendInput{SessionID: start.Session.ID, Text: strings.Repeat("a", 11)})

	var ucErr *Error
	require.True(t, errors.As(err, &ucErr))
	require.Equal(t, ErrorInvalidInput, ucErr.Code)
	require.Empty(t, f.calls)

	_, err = svc.Send(context.Background(), SendInput{SessionID: start.Session.ID, Text: strings.Repeat("é", 10)})
	require.NoError(t, err)
}

func TestSendUnknownSession(t *testing.T) {
	svc := newTestChat(t, &stubFulfiller{}, newTestSessions(), 0)

	_, err := svc.Send(context.Background(), SendInput{SessionID: "missing", Text: "hello"})

	var ucErr *Error
	require.True(t, errors.As(err, &ucErr))
	require.Equal(t, ErrorSessionNotFound, ucErr.Code)
}

func TestSendSessionExpiredMidTurn(t *testing.T) {
	sessions := newTestSessions()
	s := sessions.Create("u1")
	f := &stubFulfiller{}
	svc := newTestChat(t, f, vanishingSessions{sessions}, 0)

	_, err := svc.Send(context.Background(), SendInput{SessionID: s.ID, Text: "hello"})

	var ucErr *Error
	require.True(t, errors.As(err, &ucErr))
	require.Equal(t, ErrorSessionNotFound, ucErr.Code)
	require.Empty(t, f.calls)
}

func TestConcurrentSendsKeepPairsTogether(t *testing.T) {
	sessions := newTestSessions()
	svc := newTestChat(t, &stubFulfiller{}, sessions, 0)
	start, _ := svc.Start(context.Background(), StartInput{UserID: "u1"})

	const turns = 20
	var wg sync.WaitGroup
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Send(context.Background(), SendInput{SessionID: start.Session.ID, Text: "hello"}); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	transcript := sessions.Transcript(start.Session.ID)
	require.Len(t, transcript, 2*turns)
	for i := 0; i < len(transcript); i += 2 {
		require.Equal(t, domain.SenderUser, transcript[i].Sender)
		require.Equal(t, domain.SenderBot, transcript[i+1].Sender)
	}
}

func TestHistoryAndClear(t *testing.T) {
	svc := newTestChat(t, &stubFulfiller{}, newTestSessions(), 0)
	start, _ := svc.Start(context.Background(), StartInput{UserID: "u1"})
	_, err := svc.Send(context.Background(), SendInput{SessionID: start.Session.ID, Text: "hi"})
	require.NoError(t, err)

	hist, err := svc.History(context.Background(), start.Session.ID)
	require.NoError(t, err)
	require.Len(t, hist.Messages, 2)
	require.Equal(t, domain.ActionWelcome, hist.Messages[1].Action)

	require.NoError(t, svc.Clear(context.Background(), start.Session.ID))

	_, err = svc.History(context.Background(), start.Session.ID)
	var ucErr *Error
	require.True(t, errors.As(err, &ucErr))
	require.Equal(t, ErrorSessionNotFound, ucErr.Code)

	err = svc.Clear(context.Background(), start.Session.ID)
	require.True(t, errors.As(err, &ucErr))
	require.Equal(t, ErrorSessionNotFound, ucErr.Code)
}
