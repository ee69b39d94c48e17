package usecase

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"eco-assistant/internal/domain"
	"eco-assistant/internal/fulfillment"
)

// FulfillmentService answers webhook calls from an external NLU platform.
type FulfillmentService struct {
	resolver      IntentResolver
	fulfiller     Fulfiller
	maxMessageLen int
}

type FulfillInput struct {
	QueryText  string
	Action     string
	Parameters map[string]any
	// Session is the platform session path, e.g.
	// "projects/p/agent/sessions/user42_abc".
	Session string
	UserID  string
}

type FulfillOutput struct {
	Action     domain.Action
	Parameters domain.Parameters
	UserID     string
	Response   fulfillment.Response
}

func NewFulfillmentService(r IntentResolver, f Fulfiller, maxMessageLen int) (*FulfillmentService, error) {
	if r == nil {
		return nil, errors.New("usecase: intent resolver must not be nil")
	}
	if f == nil {
		return nil, errors.New("usecase: fulfiller must not be nil")
	}
	if maxMessageLen <= 0 {
		maxMessageLen = defaultMaxMessageLen
	}
	return &FulfillmentService{resolver: r, fulfiller: f, maxMessageLen: maxMessageLen}, nil
}

// Fulfill dispatches the platform-resolved action. When the platform sent no
// action the query text is resolved locally.
func (s *FulfillmentService) Fulfill(ctx context.Context, in FulfillInput) (FulfillOutput, error) {
	if utf8.RuneCountInString(in.QueryText) > s.maxMessageLen {
		return FulfillOutput{}, newError(ErrorInvalidInput, "query_too_long", nil)
	}

	var action domain.Action
	var params domain.Parameters
	if strings.TrimSpace(in.Action) == "" {
		res := s.resolver.Resolve(in.QueryText)
		action, params = res.Action, res.Parameters
	} else {
		action = domain.ParseAction(strings.TrimSpace(in.Action))
		params = domain.Parameters(in.Parameters).Clone()
	}

	userID := strings.TrimSpace(in.UserID)
	if userID == "" {
		userID = UserIDFromSession(in.Session)
	}
	if userID == "" {
		userID = AnonymousUserID
	}

	return FulfillOutput{
		Action:     action,
		Parameters: params,
		UserID:     userID,
		Response:   s.fulfiller.Dispatch(ctx, action, params, userID),
	}, nil
}

// UserIDFromSession derives a user id from a session path whose last segment
// is "<userID>_<suffix>". It returns "" when the segment has no such prefix.
// This is a naming-convention heuristic; callers should prefer an explicit id.
func UserIDFromSession(session string) string {
	seg := session
	if i := strings.LastIndex(seg, "/"); i >= 0 {
		seg = seg[i+1:]
	}
	prefix, suffix, ok := strings.Cut(seg, "_")
	if !ok || prefix == "" || suffix == "" {
		return ""
	}
	return prefix
}
