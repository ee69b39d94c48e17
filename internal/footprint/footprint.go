// Package footprint computes emission figures and aggregates over tracked
// activities. Everything here is pure; callers supply the activity snapshot
// and the current time.
package footprint

import (
	"math"
	"sort"
	"time"

	"eco-assistant/internal/domain"
)

// Factor describes how one unit of a category converts to kg CO2.
type Factor struct {
	Activity  string
	Unit      string
	KgPerUnit float64
}

var factors = map[domain.Category]Factor{
	domain.CategoryTransport: {Activity: "Car (Petrol)", Unit: "km", KgPerUnit: 0.21},
	domain.CategoryEnergy:    {Activity: "Electricity (kWh)", Unit: "kWh", KgPerUnit: 0.41},
	domain.CategoryFood:      {Activity: "Mixed Diet", Unit: "kg", KgPerUnit: 3.0},
	domain.CategoryWaste:     {Activity: "General Waste", Unit: "kg", KgPerUnit: 0.57},
}

// FactorFor returns the default factor for a category.
func FactorFor(c domain.Category) (Factor, bool) {
	f, ok := factors[c]
	return f, ok
}

// Emission returns amount converted to kg CO2 for the category, or 0 for an
// unknown category.
func Emission(c domain.Category, amount float64) float64 {
	f, ok := factors[c]
	if !ok {
		return 0
	}
	return amount * f.KgPerUnit
}

// GreenPoints awards two points per kg CO2 tracked, rounded down.
func GreenPoints(kg float64) int {
	return int(math.Floor(kg * 2))
}

// Level starts at 1 and increases every 100 points.
func Level(points int) int {
	return points/100 + 1
}

// PointsToNextLevel is the distance from points to the next level boundary.
func PointsToNextLevel(points int) int {
	return Level(points)*100 - points
}

// Period is a named reporting window.
type Period string

const (
	PeriodToday     Period = "today"
	PeriodYesterday Period = "yesterday"
	PeriodThisWeek  Period = "this week"
	PeriodLastWeek  Period = "last week"
	PeriodThisMonth Period = "this month"
	PeriodLastMonth Period = "last month"
	PeriodThisYear  Period = "this year"
	PeriodAllTime   Period = "all time"
)

const day = 24 * time.Hour

// Contains reports whether ts falls inside the period relative to now.
// Weeks and months are rolling 7 and 30 day windows; today and yesterday are
// UTC calendar days. Unrecognized periods contain everything.
func (p Period) Contains(ts, now time.Time) bool {
	ts, now = ts.UTC(), now.UTC()
	switch p {
	case PeriodToday:
		return sameDay(ts, now)
	case PeriodYesterday:
		return sameDay(ts, now.Add(-day))
	case PeriodThisWeek:
		return !ts.Before(now.Add(-7 * day))
	case PeriodLastWeek:
		return !ts.Before(now.Add(-14*day)) && ts.Before(now.Add(-7*day))
	case PeriodThisMonth:
		return !ts.Before(now.Add(-30 * day))
	case PeriodLastMonth:
		return !ts.Before(now.Add(-60*day)) && ts.Before(now.Add(-30*day))
	case PeriodThisYear:
		return !ts.Before(now.Add(-365 * day))
	default:
		return true
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Filter returns the activities inside the period, optionally restricted to
// one category. An empty category keeps all categories.
func Filter(activities []domain.TrackedActivity, p Period, c domain.Category, now time.Time) []domain.TrackedActivity {
	out := make([]domain.TrackedActivity, 0, len(activities))
	for _, a := range activities {
		if !p.Contains(a.Timestamp, now) {
			continue
		}
		if c != "" && a.Category != c {
			continue
		}
		out = append(out, a)
	}
	return out
}

// CategoryTotal is one row of a breakdown.
type CategoryTotal struct {
	Category domain.Category
	Kg       float64
	Count    int
}

// Summary aggregates a set of activities.
type Summary struct {
	TotalKg    float64
	Count      int
	ActiveDays int
	Breakdown  []CategoryTotal // fixed category order, only categories present
}

// Summarize totals activities and breaks them down by category.
func Summarize(activities []domain.TrackedActivity) Summary {
	byCat := make(map[domain.Category]*CategoryTotal)
	days := make(map[string]struct{})
	var s Summary
	for _, a := range activities {
		s.TotalKg += a.CO2Emission
		s.Count++
		days[a.Timestamp.UTC().Format(time.DateOnly)] = struct{}{}
		ct, ok := byCat[a.Category]
		if !ok {
			ct = &CategoryTotal{Category: a.Category}
			byCat[a.Category] = ct
		}
		ct.Kg += a.CO2Emission
		ct.Count++
	}
	s.ActiveDays = len(days)
	for _, c := range domain.Categories {
		if ct, ok := byCat[c]; ok {
			s.Breakdown = append(s.Breakdown, *ct)
			delete(byCat, c)
		}
	}
	// Categories outside the known set keep a stable order after the known ones.
	rest := make([]CategoryTotal, 0, len(byCat))
	for _, ct := range byCat {
		rest = append(rest, *ct)
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i].Category < rest[j].Category })
	s.Breakdown = append(s.Breakdown, rest...)
	return s
}

// ByImpact returns the breakdown sorted by descending emissions. Ties keep
// the fixed category order.
func (s Summary) ByImpact() []CategoryTotal {
	out := append([]CategoryTotal(nil), s.Breakdown...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Kg > out[j].Kg })
	return out
}

// CategoriesTracked counts distinct categories in the summary.
func (s Summary) CategoriesTracked() int {
	return len(s.Breakdown)
}

// MostTracked returns the category with the most entries, or "" when empty.
// Ties keep the fixed category order.
func (s Summary) MostTracked() domain.Category {
	var best CategoryTotal
	for _, ct := range s.Breakdown {
		if ct.Count > best.Count {
			best = ct
		}
	}
	return best.Category
}

// Badges returns the names of every badge the summary earns, in award order.
func Badges(s Summary) []string {
	points := GreenPoints(s.TotalKg)
	var out []string
	if s.Count >= 10 {
		out = append(out, "🌟 Tracking Enthusiast")
	}
	if s.ActiveDays >= 7 {
		out = append(out, "📅 Week Warrior")
	}
	if s.CategoriesTracked() >= 3 {
		out = append(out, "🌍 Eco Explorer")
	}
	if s.TotalKg >= 50 {
		out = append(out, "📊 Data Collector")
	}
	if points >= 100 {
		out = append(out, "🏆 Green Champion")
	}
	return out
}
