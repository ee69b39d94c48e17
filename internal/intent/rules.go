package intent

import "eco-assistant/internal/domain"

// Rule binds a predicate to an action. Extract may be nil.
type Rule struct {
	Action  domain.Action
	Match   Matcher
	Extract Extractor
}

// DefaultRules returns the rule list in evaluation order. The first matching
// rule wins, so the order below is the precedence between overlapping
// triggers:
//
//  1. greetings, then small talk: short social openers answered directly.
//  2. technical support: problem words ("broken", "not working") outrank any
//     topic the user happens to name ("the carbon calculator is broken").
//  3. add activity: logging verbs ("drove", "used", "log") outrank topic
//     words ("log 5 kg of food emissions").
//  4. navigation and feature discovery: questions about the app itself.
//     "show me the ..." counts only when it names a part of the app, so
//     "show me the weather" still reaches environmental data.
//  5. achievements, reports, environmental data, recommendations, facts:
//     specific requests that may also mention carbon or emissions.
//  6. carbon footprint: the broadest topic group ("carbon", "emissions").
//
// A message containing both "carbon" and "help" therefore resolves to
// technical support only when it also says "fix" or "support", to
// recommendations when it says "help me", and to the footprint otherwise.
func DefaultRules() []Rule {
	return []Rule{
		{
			Action: domain.ActionWelcome,
			Match: anyOf(
				exactly("hello", "hi", "hey", "start", "begin"),
				phrases("hello", "hi there", "good morning", "good afternoon", "good evening", "greetings"),
			),
		},
		{
			Action: domain.ActionSmallTalk,
			Match:  phrases("how are you", "how's it going", "how is it going"),
		},
		{
			Action: domain.ActionTechnicalSupport,
			Match: anyOf(
				words("problem*", "issue", "issues", "broken", "bug*", "error*", "trouble"),
				phrases("not working", "isn't working", "doesn't work", "not loading", "isn't loading",
					"won't load", "not saving", "isn't saving", "can't log in", "cannot log in",
					"can't login", "contact support"),
				allOf(words("help"), words("fix", "support")),
			),
			Extract: extractSupport,
		},
		{
			Action:  domain.ActionAddActivity,
			Match:   words("track", "add", "log", "logged", "drove", "used", "ate", "threw", "recycled"),
			Extract: extractActivity,
		},
		{
			Action: domain.ActionNavigationGuide,
			Match: anyOf(
				phrases("how do i use", "how to use", "show me around", "guide me", "tour", "navigate",
					"take me to"),
				allOf(phrases("show me the"), words("calculator", "profile", "dashboard", "gamification",
					"suggestions", "feature", "page", "app", "settings")),
				allOf(phrases("how does"), words("work", "works")),
				allOf(words("feature"), words("calculator", "report", "reports", "gamification", "profile", "suggestions")),
				words("gamification"),
			),
			Extract: extractNavigation,
		},
		{
			Action:  domain.ActionFeatureDiscovery,
			Match:   phrases("what can", "features", "new here", "get started", "what should i do"),
			Extract: extractDiscovery,
		},
		{
			Action: domain.ActionAchievements,
			Match: anyOf(
				words("achievement*", "badge*", "streak*", "leaderboard"),
				phrases("green points", "my points", "my level"),
			),
		},
		{
			Action:  domain.ActionReports,
			Match:   words("report", "reports", "summary"),
			Extract: extractReport,
		},
		{
			Action: domain.ActionEnvironmentalData,
			Match: phrases("air quality", "aqi", "pollution", "weather", "temperature",
				"carbon intensity", "grid intensity", "environmental data", "environmental conditions"),
			Extract: extractEnvironmental,
		},
		{
			Action: domain.ActionRecommendations,
			Match: anyOf(
				words("reduce", "tips", "tip", "recommend*", "green", "sustainable", "suggestions", "advice"),
				phrases("eco-friendly", "help me"),
			),
			Extract: extractRecommendations,
		},
		{
			Action: domain.ActionCarbonFacts,
			Match: anyOf(
				words("fact", "facts", "interesting"),
				phrases("teach me", "why does", "did you know", "learn about", "tell me about"),
			),
			Extract: extractFacts,
		},
		{
			Action: domain.ActionGetFootprint,
			Match: anyOf(
				words("carbon", "footprint", "emissions", "emission", "co2", "compare"),
				phrases("my impact", "environmental impact", "my data", "week's data", "month's data"),
			),
			Extract: extractFootprint,
		},
	}
}
