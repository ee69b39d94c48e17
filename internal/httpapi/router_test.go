package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"eco-assistant/internal/domain"
	"eco-assistant/internal/fulfillment"
	"eco-assistant/internal/usecase"
	"eco-assistant/internal/wire"
)

type stubChat struct {
	startOut usecase.StartOutput
	sendOut  usecase.SendOutput
	session  domain.Session
	err      error
	panicked bool

	startIn   usecase.StartInput
	sendIn    usecase.SendInput
	historyID string
	clearedID string
}

func (s *stubChat) Start(_ context.Context, in usecase.StartInput) (usecase.StartOutput, error) {
	s.startIn = in
	return s.startOut, s.err
}

func (s *stubChat) Send(_ context.Context, in usecase.SendInput) (usecase.SendOutput, error) {
	if s.panicked {
		panic("boom")
	}
	s.sendIn = in
	return s.sendOut, s.err
}

func (s *stubChat) History(_ context.Context, id string) (domain.Session, error) {
	s.historyID = id
	return s.session, s.err
}

func (s *stubChat) Clear(_ context.Context, id string) error {
	s.clearedID = id
	return s.err
}

type stubWebhook struct {
	out usecase.FulfillOutput
	err error
	in  usecase.FulfillInput
}

func (s *stubWebhook) Fulfill(_ context.Context, in usecase.FulfillInput) (usecase.FulfillOutput, error) {
	s.in = in
	return s.out, s.err
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func newTestServer(t *testing.T, chat *stubChat, webhook *stubWebhook, store Pinger) *httptest.Server {
	t.Helper()
	s, err := NewServer(chat, webhook, store, nil)
	require.NoError(t, err)
	srv := httptest.NewServer(s.Router())
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, body string, headers map[string]string) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, rd)
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestNewServer_ValidatesDependencies(t *testing.T) {
	_, err := NewServer(nil, &stubWebhook{}, nil, nil)
	require.Error(t, err)
	_, err = NewServer(&stubChat{}, nil, nil, nil)
	require.Error(t, err)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, &stubChat{}, &stubWebhook{}, stubPinger{})
	resp := do(t, http.MethodGet, srv.URL+"/health", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ok", decode[wire.HealthResponse](t, resp).Status)
	require.NotEmpty(t, resp.Header.Get(wire.HeaderCorrelationID))

	srv = newTestServer(t, &stubChat{}, &stubWebhook{}, stubPinger{err: errors.New("locked")})
	resp = do(t, http.MethodGet, srv.URL+"/health", "", map[string]string{wire.HeaderCorrelationID: "corr-1"})
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	require.Equal(t, "corr-1", resp.Header.Get(wire.HeaderCorrelationID))
}

func TestWebhook(t *testing.T) {
	wh := &stubWebhook{out: usecase.FulfillOutput{Response: fulfillment.Response{Text: "Your total carbon footprint"}}}
	srv := newTestServer(t, &stubChat{}, wh, nil)

	resp := do(t, http.MethodPost, srv.URL+"/api/dialogflow-webhook",
		`{"session":"s/u1_a","queryResult":{"queryText":"footprint","action":"get.carbon.footprint","parameters":{"time_period":"this week"}}}`,
		map[string]string{wire.HeaderUserID: "u9"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "u9", wh.in.UserID)
	require.Equal(t, "this week", wh.in.Parameters["time_period"])
	require.Equal(t, "Your total carbon footprint", decode[wire.WebhookResponse](t, resp).FulfillmentText)

	resp = do(t, http.MethodPost, srv.URL+"/api/dialogflow-webhook", `{`, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSessionLifecycle(t *testing.T) {
	chat := &stubChat{
		startOut: usecase.StartOutput{Session: domain.Session{ID: "s1", UserID: "u1"}, Created: true},
		sendOut: usecase.SendOutput{
			UserMessage: domain.Message{ID: "m1", Sender: domain.SenderUser, Text: "hi"},
			BotMessage:  domain.Message{ID: "m2", Sender: domain.SenderBot, Text: "hello", Action: domain.ActionWelcome},
		},
		session: domain.Session{ID: "s1", UserID: "u1"},
	}
	srv := newTestServer(t, chat, &stubWebhook{}, nil)

	resp := do(t, http.MethodPost, srv.URL+"/api/chat/sessions", `{"userId":"u1"}`, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, "s1", decode[wire.SessionResponse](t, resp).Session.ID)

	resp = do(t, http.MethodPost, srv.URL+"/api/chat/sessions", "", map[string]string{wire.HeaderUserID: "u7"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, "u7", chat.startIn.UserID)

	resp = do(t, http.MethodPost, srv.URL+"/api/chat/sessions/s1/messages", `{"text":"hi"}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, usecase.SendInput{SessionID: "s1", Text: "hi"}, chat.sendIn)
	turn := decode[wire.SendMessageResponse](t, resp)
	require.Equal(t, domain.ActionWelcome, turn.BotMessage.Action)

	resp = do(t, http.MethodGet, srv.URL+"/api/chat/sessions/s1", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "s1", chat.historyID)

	resp = do(t, http.MethodDelete, srv.URL+"/api/chat/sessions/s1", "", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Equal(t, "s1", chat.clearedID)
}

func TestErrorsAndRouting(t *testing.T) {
	srv := newTestServer(t, &stubChat{err: &usecase.Error{Code: usecase.ErrorSessionNotFound}}, &stubWebhook{}, nil)

	resp := do(t, http.MethodGet, srv.URL+"/api/chat/sessions/missing", "", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "SESSION_NOT_FOUND", decode[wire.ErrorResponse](t, resp).Error)

	resp = do(t, http.MethodPost, srv.URL+"/api/chat/sessions/s1/messages", `not-json`, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, http.MethodGet, srv.URL+"/nope", "", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "NOT_FOUND", decode[wire.ErrorResponse](t, resp).Error)

	resp = do(t, http.MethodPut, srv.URL+"/api/chat/sessions/s1", "", nil)
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestRecoversFromPanics(t *testing.T) {
	srv := newTestServer(t, &stubChat{panicked: true}, &stubWebhook{}, nil)
	resp := do(t, http.MethodPost, srv.URL+"/api/chat/sessions/s1/messages", `{"text":"hi"}`, nil)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}
