package domain

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Well-known parameter names.
const (
	ParamCategory        = "category"
	ParamAmount          = "amount"
	ParamTimePeriod      = "time_period"
	ParamDataType        = "data_type"
	ParamLocation        = "location"
	ParamFeatureName     = "feature_name"
	ParamActionType      = "action_type"
	ParamIssueType       = "issue_type"
	ParamFeatureAffected = "feature_affected"
	ParamFactCategory    = "fact_category"
	ParamUserGoal        = "user_goal"
	ParamReportType      = "report_type"
)

// Parameters is the slot bag extracted for one utterance. Values are strings
// or numbers; webhook callers may deliver numbers as float64 or json.Number.
type Parameters map[string]any

// String returns the trimmed string value for key, or "" when absent or not
// a string.
func (p Parameters) String(key string) string {
	if p == nil {
		return ""
	}
	s, ok := p[key].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

// Number returns the numeric value for key. Numeric strings are accepted so
// that loosely typed webhook payloads behave like resolver output.
func (p Parameters) Number(key string) (float64, bool) {
	if p == nil {
		return 0, false
	}
	switch v := p[key].(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Clone returns a shallow copy that is never nil.
func (p Parameters) Clone() Parameters {
	out := make(Parameters, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
