package intent

import (
	"regexp"
	"strconv"
	"strings"

	"eco-assistant/internal/domain"
)

// Extractor adds parameters for an already chosen action.
type Extractor func(u utterance, p domain.Parameters)

type keywordValue struct {
	value    string
	keywords []string
}

// firstValue returns the value of the first entry (in slice order) whose
// keywords occur as tokens in u. Slice order is the tie-break when several
// entries match.
func firstValue(u utterance, table []keywordValue) string {
	for _, kv := range table {
		if firstWord(u, kv.keywords...) != "" {
			return kv.value
		}
	}
	return ""
}

type phraseValue struct {
	value   string
	phrases []string
}

func firstPhraseValue(u utterance, table []phraseValue) string {
	for _, pv := range table {
		for _, p := range pv.phrases {
			if strings.Contains(u.text, p) {
				return pv.value
			}
		}
	}
	return ""
}

var digitRun = regexp.MustCompile(`\d+`)

// firstInteger returns the first contiguous run of digits. Decimals, signs
// and units are not recognized: "0.5 kg" yields 0.
func firstInteger(text string) (int, bool) {
	m := digitRun.FindString(text)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Category keyword tables. Order is transport, energy, food, waste.

var activityCategories = []keywordValue{
	{string(domain.CategoryTransport), []string{"transport", "drove", "drive", "driving", "car", "km", "miles", "commute*"}},
	{string(domain.CategoryEnergy), []string{"energy", "electricity", "kwh", "power"}},
	{string(domain.CategoryFood), []string{"food", "ate", "eat", "meal*", "beef"}},
	{string(domain.CategoryWaste), []string{"waste", "trash", "garbage", "recycl*", "threw"}},
}

var queryCategories = []keywordValue{
	{string(domain.CategoryTransport), []string{"transport", "travel", "car", "driving"}},
	{string(domain.CategoryEnergy), []string{"energy", "electricity", "power"}},
	{string(domain.CategoryFood), []string{"food", "diet"}},
	{string(domain.CategoryWaste), []string{"waste", "trash"}},
}

var plainCategories = []keywordValue{
	{string(domain.CategoryTransport), []string{"transport"}},
	{string(domain.CategoryEnergy), []string{"energy"}},
	{string(domain.CategoryFood), []string{"food"}},
	{string(domain.CategoryWaste), []string{"waste"}},
}

// Time periods, most specific first so "last week" wins over "week".
var timePeriods = []phraseValue{
	{"today", []string{"today"}},
	{"yesterday", []string{"yesterday"}},
	{"last week", []string{"last week"}},
	{"this week", []string{"week"}},
	{"last month", []string{"last month"}},
	{"this month", []string{"month"}},
	{"this year", []string{"year"}},
	{"all time", []string{"all time", "overall"}},
}

const defaultTimePeriod = "this month"

var dataTypes = []phraseValue{
	{"air_quality", []string{"air quality", "aqi", "pollution"}},
	{"weather", []string{"weather", "temperature"}},
	{"carbon_intensity", []string{"carbon intensity", "grid intensity"}},
}

var navigationFeatures = []keywordValue{
	{"calculator", []string{"calculator"}},
	{"reports", []string{"report", "reports"}},
	{"gamification", []string{"gamification"}},
	{"profile", []string{"profile"}},
	{"suggestions", []string{"suggestion", "suggestions"}},
}

var supportFeatures = []keywordValue{
	{"calculator", []string{"calculator"}},
	{"reports", []string{"report", "reports"}},
	{"gamification", []string{"gamification"}},
	{"profile", []string{"profile"}},
}

func issueType(u utterance) string {
	switch {
	case phrases("login", "log in", "logging in", "sign in", "signing in", "password")(u):
		return "login"
	case words("saving", "save", "saved", "saves")(u):
		return "data not saving"
	case words("loading", "load", "loads", "loaded")(u):
		return "not loading"
	default:
		return ""
	}
}

var userGoals = []phraseValue{
	{"track progress", []string{"track progress"}},
	{"reduce emissions", []string{"reduce", "lower"}},
	{"stay motivated", []string{"motivated", "points"}},
	{"get started", []string{"started", "begin"}},
}

var locationSuffix = regexp.MustCompile(`\bin ([a-z][a-z .'-]*)$`)

var trailingTimeWords = []string{" right now", " today", " now", " currently"}

// location returns the place named after a final "in ...", if any.
func location(u utterance) string {
	text := strings.TrimRight(u.text, "?!. ")
	m := locationSuffix.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	loc := strings.TrimSpace(m[1])
	for _, w := range trailingTimeWords {
		loc = strings.TrimSpace(strings.TrimSuffix(loc, w))
	}
	if loc == "" || loc == "here" || loc == "the app" || loc == "general" || strings.HasPrefix(loc, "my ") {
		return ""
	}
	return loc
}

func setString(p domain.Parameters, key, value string) {
	if value != "" {
		p[key] = value
	}
}

func extractFootprint(u utterance, p domain.Parameters) {
	period := firstPhraseValue(u, timePeriods)
	if period == "" {
		period = defaultTimePeriod
	}
	p[domain.ParamTimePeriod] = period
	setString(p, domain.ParamCategory, firstValue(u, queryCategories))
}

func extractReport(u utterance, p domain.Parameters) {
	setString(p, domain.ParamTimePeriod, firstPhraseValue(u, timePeriods))
	if firstWord(u, "detailed", "full", "breakdown") != "" {
		p[domain.ParamReportType] = "detailed"
	}
}

func extractActivity(u utterance, p domain.Parameters) {
	setString(p, domain.ParamCategory, firstValue(u, activityCategories))
	if n, ok := firstInteger(u.text); ok {
		p[domain.ParamAmount] = n
	}
}

func extractEnvironmental(u utterance, p domain.Parameters) {
	setString(p, domain.ParamDataType, firstPhraseValue(u, dataTypes))
	setString(p, domain.ParamLocation, location(u))
}

func extractRecommendations(u utterance, p domain.Parameters) {
	setString(p, domain.ParamCategory, firstValue(u, queryCategories))
}

func extractNavigation(u utterance, p domain.Parameters) {
	setString(p, domain.ParamFeatureName, firstValue(u, navigationFeatures))
	if strings.Contains(u.text, "tour") || strings.Contains(u.text, "show me around") {
		p[domain.ParamActionType] = "tour"
	}
}

func extractFacts(u utterance, p domain.Parameters) {
	setString(p, domain.ParamFactCategory, firstValue(u, plainCategories))
}

func extractSupport(u utterance, p domain.Parameters) {
	setString(p, domain.ParamIssueType, issueType(u))
	setString(p, domain.ParamFeatureAffected, firstValue(u, supportFeatures))
}

func extractDiscovery(u utterance, p domain.Parameters) {
	setString(p, domain.ParamUserGoal, firstPhraseValue(u, userGoals))
}
