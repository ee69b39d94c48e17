package fulfillment

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"eco-assistant/internal/domain"
	"eco-assistant/internal/footprint"
)

// MaxActivityAmount is the largest amount accepted for one logged activity.
const MaxActivityAmount = 100000

const (
	noDataText = "You haven't tracked any carbon emissions yet! Start by telling me about your daily activities like 'I drove 20 km today' or 'I used 50 kWh of electricity'. 📊"

	noReportDataText = "You don't have any carbon tracking data yet to generate a report. Start by logging your daily activities like driving, energy usage, or food consumption! 📊"

	askCategoryText = "What category would you like to track? I can help with transport, energy, food, or waste emissions. 🚗🏠🍽️🗑️"
)

func (d *Dispatcher) carbonFootprint(ctx context.Context, req Request) (Response, error) {
	period := periodParam(req.Parameters)
	category, _ := domain.ParseCategory(req.Parameters.String(domain.ParamCategory))

	acts, err := d.activities.ListActivities(ctx, req.UserID)
	if err != nil {
		return Response{}, fmt.Errorf("list activities: %w", err)
	}
	if len(acts) == 0 {
		return Response{Text: noDataText}, nil
	}

	sum := footprint.Summarize(footprint.Filter(acts, period, category, req.Now))
	var b strings.Builder
	if category != "" {
		fmt.Fprintf(&b, "Your %s emissions %s: %.2f kg CO₂ from %d activities.", category, period, sum.TotalKg, sum.Count)
	} else {
		fmt.Fprintf(&b, "Your total carbon footprint %s: %.2f kg CO₂ from %d activities.", period, sum.TotalKg, sum.Count)
	}
	if category == "" && sum.Count > 0 {
		parts := make([]string, 0, len(sum.Breakdown))
		for _, ct := range sum.Breakdown {
			parts = append(parts, fmt.Sprintf("%s: %.1f kg", ct.Category, ct.Kg))
		}
		b.WriteString("\n\nBreakdown: " + strings.Join(parts, ", "))
	}
	if sum.TotalKg > 0 {
		fmt.Fprintf(&b, "\n\n🌱 Keep tracking to monitor your progress! You've earned %d green points so far.", footprint.GreenPoints(sum.TotalKg))
	}
	return Response{Text: b.String()}, nil
}

// addActivity writes only when both a known category and an in-range amount
// are present; otherwise it asks for what is missing.
func (d *Dispatcher) addActivity(ctx context.Context, req Request) (Response, error) {
	category, ok := domain.ParseCategory(req.Parameters.String(domain.ParamCategory))
	if !ok {
		return Response{Text: askCategoryText}, nil
	}
	amount, ok := req.Parameters.Number(domain.ParamAmount)
	if !ok || amount <= 0 || amount > MaxActivityAmount {
		return Response{Text: d.askAmountText(category)}, nil
	}

	factor, _ := footprint.FactorFor(category)
	emission := amount * factor.KgPerUnit
	_, err := d.activities.AddActivity(ctx, domain.TrackedActivity{
		UserID:        req.UserID,
		Category:      category,
		ActivityLabel: factor.Activity,
		Amount:        amount,
		CO2Emission:   emission,
		Timestamp:     req.Now,
	})
	if err != nil {
		return Response{}, fmt.Errorf("add activity: %w", err)
	}
	return Response{Text: fmt.Sprintf(
		"✅ Added %s %s of %s to your carbon tracking!\n\nEmissions: %.2f kg CO₂\nGreen Points Earned: %d 🌱\n\nKeep tracking to monitor your environmental impact!",
		strconv.FormatFloat(amount, 'f', -1, 64), factor.Unit, factor.Activity, emission, footprint.GreenPoints(emission),
	)}, nil
}

func (d *Dispatcher) askAmountText(c domain.Category) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Great! I'll help you track %s emissions. How much would you like to log? For example:", c)
	for _, ex := range d.content.Examples[string(c)] {
		fmt.Fprintf(&b, "\n• \"%s\"", ex)
	}
	b.WriteString("\n\nJust tell me the amount and I'll calculate the emissions! 🌱")
	return b.String()
}

func (d *Dispatcher) reports(ctx context.Context, req Request) (Response, error) {
	period := periodParam(req.Parameters)
	detailed := req.Parameters.String(domain.ParamReportType) == "detailed"

	acts, err := d.activities.ListActivities(ctx, req.UserID)
	if err != nil {
		return Response{}, fmt.Errorf("list activities: %w", err)
	}
	if len(acts) == 0 {
		return Response{Text: noReportDataText}, nil
	}
	sum := footprint.Summarize(footprint.Filter(acts, period, "", req.Now))
	if sum.Count == 0 {
		return Response{Text: fmt.Sprintf("📊 No activities were tracked %s. Try a longer period like \"all time\" or log something new! 🌱", period)}, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📊 Your Environmental Report (%s):\n\n", period)
	fmt.Fprintf(&b, "🌍 Total Emissions: %.2f kg CO₂\n", sum.TotalKg)
	fmt.Fprintf(&b, "📈 Activities Tracked: %d\n", sum.Count)
	fmt.Fprintf(&b, "🏆 Green Points Earned: %d\n\n", footprint.GreenPoints(sum.TotalKg))
	b.WriteString("📋 Category Breakdown:\n")
	ranked := sum.ByImpact()
	for _, ct := range ranked {
		pct := 0.0
		if sum.TotalKg > 0 {
			pct = ct.Kg / sum.TotalKg * 100
		}
		fmt.Fprintf(&b, "• %s: %.1f kg CO₂ (%.1f%%)", ct.Category, ct.Kg, pct)
		if detailed {
			fmt.Fprintf(&b, " across %d activities", ct.Count)
		}
		b.WriteString("\n")
	}
	if len(ranked) > 0 {
		fmt.Fprintf(&b, "\n💡 Your highest impact category is %s. Consider focusing on reducing these emissions first!", ranked[0].Category)
	}
	return Response{Text: strings.TrimRight(b.String(), "\n")}, nil
}

func (d *Dispatcher) achievements(ctx context.Context, req Request) (Response, error) {
	acts, err := d.activities.ListActivities(ctx, req.UserID)
	if err != nil {
		return Response{}, fmt.Errorf("list activities: %w", err)
	}
	sum := footprint.Summarize(acts)
	points := footprint.GreenPoints(sum.TotalKg)

	var b strings.Builder
	b.WriteString("🏆 Your Environmental Achievements:\n\n")
	fmt.Fprintf(&b, "🌱 Green Points: %d\n", points)
	fmt.Fprintf(&b, "📊 Level: %d\n", footprint.Level(points))
	fmt.Fprintf(&b, "⬆️ Points to next level: %d\n\n", footprint.PointsToNextLevel(points))
	b.WriteString("📈 Progress Milestones:\n")
	fmt.Fprintf(&b, "• Total CO₂ tracked: %.1f kg\n", sum.TotalKg)
	fmt.Fprintf(&b, "• Activities logged: %d\n", sum.Count)
	fmt.Fprintf(&b, "• Active tracking days: %d\n", sum.ActiveDays)
	fmt.Fprintf(&b, "• Categories explored: %d/%d\n\n", sum.CategoriesTracked(), len(domain.Categories))
	if badges := footprint.Badges(sum); len(badges) > 0 {
		b.WriteString("🎖️ Badges Earned:\n")
		for _, badge := range badges {
			b.WriteString("• " + badge + "\n")
		}
		b.WriteString("\n")
	}
	b.WriteString("🎯 Keep tracking to unlock more achievements and climb the leaderboard!")
	return Response{Text: b.String()}, nil
}

func periodParam(p domain.Parameters) footprint.Period {
	if v := p.String(domain.ParamTimePeriod); v != "" {
		return footprint.Period(strings.ToLower(v))
	}
	return footprint.PeriodThisMonth
}
