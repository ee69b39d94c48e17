package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"eco-assistant/internal/domain"
	"eco-assistant/internal/intent"
)

func newTestFulfillment(t *testing.T, f Fulfiller) *FulfillmentService {
	t.Helper()
	svc, err := NewFulfillmentService(intent.NewResolver(), f, 50)
	require.NoError(t, err)
	return svc
}

func TestNewFulfillmentServiceValidatesDependencies(t *testing.T) {
	_, err := NewFulfillmentService(nil, &stubFulfiller{}, 0)
	require.Error(t, err)
	_, err = NewFulfillmentService(intent.NewResolver(), nil, 0)
	require.Error(t, err)
}

func TestFulfillUsesPlatformAction(t *testing.T) {
	f := &stubFulfiller{text: "done"}
	svc := newTestFulfillment(t, f)
	in := FulfillInput{
		QueryText:  "hello",
		Action:     "add.carbon.entry",
		Parameters: map[string]any{"category": "energy", "amount": 15.0},
		UserID:     "u1",
	}

	out, err := svc.Fulfill(context.Background(), in)
	require.NoError(t, err)

	require.Equal(t, domain.ActionAddActivity, out.Action)
	require.Equal(t, "done", out.Response.Text)
	require.Len(t, f.calls, 1)
	require.Equal(t, "u1", f.calls[0].userID)
	require.Equal(t, 15.0, f.calls[0].params["amount"])

	out.Parameters["category"] = "food"
	require.Equal(t, "energy", in.Parameters["category"])
}

func TestFulfillResolvesLocallyWithoutAction(t *testing.T) {
	f := &stubFulfiller{}
	svc := newTestFulfillment(t, f)

	out, err := svc.Fulfill(context.Background(), FulfillInput{QueryText: "What's my carbon footprint this week?"})
	require.NoError(t, err)

	require.Equal(t, domain.ActionGetFootprint, out.Action)
	require.Equal(t, "this week", out.Parameters[domain.ParamTimePeriod])
	require.Equal(t, AnonymousUserID, out.UserID)
}

func TestFulfillUnknownActionFallsBack(t *testing.T) {
	f := &stubFulfiller{}
	svc := newTestFulfillment(t, f)

	out, err := svc.Fulfill(context.Background(), FulfillInput{Action: "projects.something.else"})
	require.NoError(t, err)
	require.Equal(t, domain.ActionUnknown, out.Action)
	require.NotNil(t, out.Parameters)
}

func TestFulfillUserIDPrecedence(t *testing.T) {
	f := &stubFulfiller{}
	svc := newTestFulfillment(t, f)
	const path = "projects/eco/agent/sessions/user42_1697040000"

	out, err := svc.Fulfill(context.Background(), FulfillInput{Action: "input.welcome", Session: path, UserID: "header-user"})
	require.NoError(t, err)
	require.Equal(t, "header-user", out.UserID)

	out, err = svc.Fulfill(context.Background(), FulfillInput{Action: "input.welcome", Session: path})
	require.NoError(t, err)
	require.Equal(t, "user42", out.UserID)

	out, err = svc.Fulfill(context.Background(), FulfillInput{Action: "input.welcome", Session: "projects/eco/agent/sessions/abc"})
	require.NoError(t, err)
	require.Equal(t, AnonymousUserID, out.UserID)
}

func TestFulfillRejectsLongQuery(t *testing.T) {
	f := &stubFulfiller{}
	svc := newTestFulfillment(t, f)

	_, err := svc.Fulfill(context.Background(), FulfillInput{QueryText: strings.Repeat("x", 51)})

	var ucErr *Error
	require.True(t, errors.As(err, &ucErr))
	require.Equal(t, ErrorInvalidInput, ucErr.Code)
	require.Empty(t, f.calls)
}

func TestUserIDFromSession(t *testing.T) {
	cases := map[string]string{
		"projects/p/agent/sessions/alice_123": "alice",
		"bob_a_b":                             "bob",
		"_123":                                "",
		"alice_":                              "",
		"no-underscore":                       "",
		"":                                    "",
		"projects/p/agent/sessions/":          "",
	}
	for in, want := range cases {
		require.Equal(t, want, UserIDFromSession(in), in)
	}
}

func TestErrorFormatting(t *testing.T) {
	err := newError(ErrorInternal, "boom", errors.New("cause"))
	require.Equal(t, "usecase: INTERNAL_ERROR (boom): cause", err.Error())
	require.EqualError(t, errors.Unwrap(err), "cause")
	require.Equal(t, "usecase: SESSION_NOT_FOUND (gone)", newError(ErrorSessionNotFound, "gone", nil).Error())
}
