// Package intent maps free-text utterances to an action and its parameters
// using an ordered list of keyword rules.
package intent

import (
	"errors"
	"fmt"

	"eco-assistant/internal/domain"
)

// Resolution is the outcome of resolving one utterance. Parameters is never
// nil.
type Resolution struct {
	Action     domain.Action
	Parameters domain.Parameters
}

// Resolver evaluates rules in order; the first match wins.
type Resolver struct {
	rules []Rule
}

// NewResolver returns a Resolver over DefaultRules.
func NewResolver() *Resolver {
	return &Resolver{rules: DefaultRules()}
}

// NewResolverWithRules returns a Resolver over a caller-supplied rule list.
func NewResolverWithRules(rules []Rule) (*Resolver, error) {
	if len(rules) == 0 {
		return nil, errors.New("intent: rules must not be empty")
	}
	for i, r := range rules {
		if r.Match == nil {
			return nil, fmt.Errorf("intent: rule %d (%s) has no matcher", i, r.Action)
		}
		if !r.Action.Valid() {
			return nil, fmt.Errorf("intent: rule %d has unknown action %q", i, r.Action)
		}
	}
	return &Resolver{rules: append([]Rule(nil), rules...)}, nil
}

// Resolve never fails: empty or unmatched input yields ActionUnknown with an
// empty bag.
func (r *Resolver) Resolve(text string) Resolution {
	u := normalize(text)
	params := domain.Parameters{}
	if u.text == "" {
		return Resolution{Action: domain.ActionUnknown, Parameters: params}
	}
	for _, rule := range r.rules {
		if !rule.Match(u) {
			continue
		}
		if rule.Extract != nil {
			rule.Extract(u, params)
		}
		return Resolution{Action: rule.Action, Parameters: params}
	}
	return Resolution{Action: domain.ActionUnknown, Parameters: params}
}

// Actions lists the rule actions in evaluation order.
func (r *Resolver) Actions() []domain.Action {
	out := make([]domain.Action, len(r.rules))
	for i, rule := range r.rules {
		out[i] = rule.Action
	}
	return out
}
