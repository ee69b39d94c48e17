package domain

// Action identifies what the user asked for. The set is closed; strings that
// are not listed here parse to ActionUnknown.
type Action string

const (
	ActionWelcome           Action = "input.welcome"
	ActionGetFootprint      Action = "get.carbon.footprint"
	ActionAddActivity       Action = "add.carbon.entry"
	ActionEnvironmentalData Action = "get.environmental.data"
	ActionRecommendations   Action = "get.recommendations"
	ActionReports           Action = "get.reports"
	ActionAchievements      Action = "get.achievements"
	ActionNavigationGuide   Action = "app.navigation.guide"
	ActionCarbonFacts       Action = "education.carbon.facts"
	ActionTechnicalSupport  Action = "support.technical.help"
	ActionFeatureDiscovery  Action = "app.feature.discovery"
	ActionSmallTalk         Action = "smalltalk.how.are.you"
	ActionUnknown           Action = "input.unknown"
)

// Actions lists the closed set in declaration order.
var Actions = []Action{
	ActionWelcome,
	ActionGetFootprint,
	ActionAddActivity,
	ActionEnvironmentalData,
	ActionRecommendations,
	ActionReports,
	ActionAchievements,
	ActionNavigationGuide,
	ActionCarbonFacts,
	ActionTechnicalSupport,
	ActionFeatureDiscovery,
	ActionSmallTalk,
	ActionUnknown,
}

var knownActions = map[Action]struct{}{
	ActionWelcome:           {},
	ActionGetFootprint:      {},
	ActionAddActivity:       {},
	ActionEnvironmentalData: {},
	ActionRecommendations:   {},
	ActionReports:           {},
	ActionAchievements:      {},
	ActionNavigationGuide:   {},
	ActionCarbonFacts:       {},
	ActionTechnicalSupport:  {},
	ActionFeatureDiscovery:  {},
	ActionSmallTalk:         {},
	ActionUnknown:           {},
}

// ParseAction maps an action identifier to an Action, falling back to
// ActionUnknown for empty or unrecognized input.
func ParseAction(s string) Action {
	a := Action(s)
	if _, ok := knownActions[a]; ok {
		return a
	}
	return ActionUnknown
}

// Valid reports whether a belongs to the closed action set.
func (a Action) Valid() bool {
	_, ok := knownActions[a]
	return ok
}

func (a Action) String() string {
	return string(a)
}
