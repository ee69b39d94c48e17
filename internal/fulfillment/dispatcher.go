// Package fulfillment turns a resolved action and its parameters into a reply.
// Every action maps to one handler; collaborator failures never escape
// Dispatch and are answered with FallbackText instead.
package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"eco-assistant/internal/domain"
)

// FallbackText is the reply for any collaborator failure, timeout or panic.
const FallbackText = "I'm sorry, I encountered an error while processing your request. Please try again later. 🤖"

const defaultLocation = "London"

type ActivityStore interface {
	ListActivities(ctx context.Context, userID string) ([]domain.TrackedActivity, error)
	AddActivity(ctx context.Context, a domain.TrackedActivity) (string, error)
}

type EnvironmentProvider interface {
	AirQuality(ctx context.Context, location string) (domain.AirQuality, error)
	Weather(ctx context.Context, location string) (domain.Weather, error)
	CarbonIntensity(ctx context.Context) (domain.CarbonIntensity, error)
}

type Card struct {
	Title    string
	Subtitle string
	Buttons  []string
}

// Response is a reply. Text is never empty.
type Response struct {
	Text         string
	QuickReplies []string
	Card         *Card
}

type Request struct {
	Action     domain.Action
	Parameters domain.Parameters
	UserID     string
	Now        time.Time
}

// HandlerFunc answers one action. A returned error is logged and replaced by
// FallbackText.
type HandlerFunc func(ctx context.Context, req Request) (Response, error)

type Options struct {
	Logger          *slog.Logger
	Content         *Content
	Timeout         time.Duration
	DefaultLocation string
	Now             func() time.Time
	// Intn returns a value in [0, n); used to pick facts.
	Intn func(n int) int
}

type Dispatcher struct {
	activities      ActivityStore
	env             EnvironmentProvider
	content         *Content
	logger          *slog.Logger
	timeout         time.Duration
	defaultLocation string
	now             func() time.Time
	intn            func(n int) int

	mu       sync.RWMutex
	handlers map[domain.Action]HandlerFunc
}

func NewDispatcher(activities ActivityStore, env EnvironmentProvider, opts Options) (*Dispatcher, error) {
	if activities == nil {
		return nil, errors.New("fulfillment: activity store must not be nil")
	}
	if env == nil {
		return nil, errors.New("fulfillment: environment provider must not be nil")
	}
	d := &Dispatcher{
		activities:      activities,
		env:             env,
		content:         opts.Content,
		logger:          opts.Logger,
		timeout:         opts.Timeout,
		defaultLocation: opts.DefaultLocation,
		now:             opts.Now,
		intn:            opts.Intn,
	}
	if d.content == nil {
		c, err := DefaultContent()
		if err != nil {
			return nil, err
		}
		d.content = c
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	if d.defaultLocation == "" {
		d.defaultLocation = defaultLocation
	}
	if d.now == nil {
		d.now = time.Now
	}
	if d.intn == nil {
		d.intn = rand.IntN
	}
	d.handlers = map[domain.Action]HandlerFunc{
		domain.ActionWelcome:           d.welcome,
		domain.ActionSmallTalk:         d.smallTalk,
		domain.ActionUnknown:           d.unknown,
		domain.ActionGetFootprint:      d.carbonFootprint,
		domain.ActionAddActivity:       d.addActivity,
		domain.ActionReports:           d.reports,
		domain.ActionAchievements:      d.achievements,
		domain.ActionEnvironmentalData: d.environmental,
		domain.ActionRecommendations:   d.recommendations,
		domain.ActionCarbonFacts:       d.facts,
		domain.ActionNavigationGuide:   d.navigation,
		domain.ActionTechnicalSupport:  d.support,
		domain.ActionFeatureDiscovery:  d.discovery,
	}
	return d, nil
}

// Handle replaces the handler for an action. It is safe to call while
// Dispatch is running.
func (d *Dispatcher) Handle(a domain.Action, h HandlerFunc) error {
	if !a.Valid() {
		return fmt.Errorf("fulfillment: unknown action %q", a)
	}
	if h == nil {
		return errors.New("fulfillment: handler must not be nil")
	}
	d.mu.Lock()
	d.handlers[a] = h
	d.mu.Unlock()
	return nil
}

// Dispatch runs the handler registered for action. Unregistered actions are
// answered by the unknown-action handler. It always returns a non-empty Text.
func (d *Dispatcher) Dispatch(ctx context.Context, action domain.Action, params domain.Parameters, userID string) Response {
	if params == nil {
		params = domain.Parameters{}
	}
	h, action := d.handler(action)
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	resp, err := d.run(ctx, h, Request{Action: action, Parameters: params, UserID: userID, Now: d.now()})
	if err != nil {
		d.logger.Error("fulfillment failed", "action", action, "user_id", userID, "err", err)
		return Response{Text: FallbackText}
	}
	if resp.Text == "" {
		d.logger.Warn("fulfillment returned empty text", "action", action)
		return Response{Text: FallbackText}
	}
	if resp.QuickReplies == nil {
		resp.QuickReplies = d.content.QuickReplies[action.String()]
	}
	return resp
}

// handler returns the registered handler, falling back to the unknown-action
// handler along with the action it answers as.
func (d *Dispatcher) handler(action domain.Action) (HandlerFunc, domain.Action) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if h, ok := d.handlers[action]; ok {
		return h, action
	}
	return d.handlers[domain.ActionUnknown], domain.ActionUnknown
}

func (d *Dispatcher) run(ctx context.Context, h HandlerFunc, req Request) (resp Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("fulfillment: handler panic: %v", r)
		}
	}()
	return h(ctx, req)
}

func (d *Dispatcher) pick(items []string) string {
	if len(items) == 0 {
		return ""
	}
	return items[d.intn(len(items))]
}
