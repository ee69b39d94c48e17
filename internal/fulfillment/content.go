package fulfillment

import (
	_ "embed"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed content.yaml
var defaultContent []byte

// Guide is a titled list of steps shown for navigation and troubleshooting.
type Guide struct {
	Title       string   `yaml:"title"`
	Steps       []string `yaml:"steps"`
	Tip         string   `yaml:"tip"`
	Alternative string   `yaml:"alternative"`
}

// GoalFeature is the feature recommended for a stated user goal.
type GoalFeature struct {
	Feature     string `yaml:"feature"`
	Description string `yaml:"description"`
	Action      string `yaml:"action"`
}

// Content holds every static string the handlers draw from.
type Content struct {
	Recommendations map[string][]string `yaml:"recommendations"`
	Facts           struct {
		Categories map[string][]string `yaml:"categories"`
		Seasons    map[string][]string `yaml:"seasons"`
		General    []string            `yaml:"general"`
	} `yaml:"facts"`
	Guides          map[string]Guide       `yaml:"guides"`
	Troubleshooting map[string]Guide       `yaml:"troubleshooting"`
	GenericTrouble  Guide                  `yaml:"troubleshooting_generic"`
	Goals           map[string]GoalFeature `yaml:"goals"`
	Examples        map[string][]string    `yaml:"examples"`
	QuickReplies    map[string][]string    `yaml:"quick_replies"`
}

// ParseContent decodes YAML content and checks the sections handlers index
// without a fallback.
func ParseContent(raw []byte) (*Content, error) {
	var c Content
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("fulfillment: parse content: %w", err)
	}
	if len(c.Recommendations["general"]) == 0 {
		return nil, errors.New("fulfillment: content: general recommendations must not be empty")
	}
	if len(c.Facts.General) == 0 {
		return nil, errors.New("fulfillment: content: general facts must not be empty")
	}
	return &c, nil
}

// DefaultContent returns the embedded content.
func DefaultContent() (*Content, error) {
	return ParseContent(defaultContent)
}
