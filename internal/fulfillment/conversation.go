package fulfillment

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"eco-assistant/internal/domain"
	"eco-assistant/internal/footprint"
)

const (
	welcomeText = "👋 **Welcome to EcoCloudApp AI Assistant**\n\nI'm your intelligent environmental companion, ready to help you achieve your sustainability goals!\n\n**🎯 How I can assist you:**\n\n🧮 **Smart Carbon Analysis** - Track your footprint\n🌍 **Environmental Data** - Live updates\n💡 **AI Recommendations** - Personalized tips\n🧭 **App Navigation** - Expert guidance\n📚 **Educational Content** - Learn & grow\n🔧 **Technical Support** - Instant help\n\n*What would you like to explore first?* ✨"

	smallTalkText = "I'm doing great! I'm excited to help you track your environmental impact and make a positive difference for our planet! 🌱 How can I assist you with your carbon footprint today?"

	unknownText = "I'm not sure how to help with that. Try asking about your carbon footprint, environmental data, eco-friendly tips, app navigation, or if you need technical support! 🌱"

	tourText = "🌟 Welcome to EcoCloudApp! Here's what you can do:\n\n🧮 **Carbon Calculator**: Track your daily emissions\n📊 **Reports**: View your environmental progress\n🏆 **Gamification**: Earn points and badges\n💡 **AI Suggestions**: Get personalized eco advice\n👤 **Profile**: Manage your settings and goals\n🌍 **Environmental Data**: Check air quality and weather\n\nWhich feature would you like to explore first? Just say \"How do I use [feature name]\" and I'll guide you through it! 🚀"

	overviewText = "🧭 I can help you navigate EcoCloudApp! Here are the main features:\n\n• **Carbon Calculator** - Track your emissions\n• **Reports** - View your progress\n• **Gamification** - Earn rewards\n• **AI Suggestions** - Get eco advice\n• **Profile** - Manage settings\n\nTry asking: \"How do I use the carbon calculator?\" or \"Show me around the app\" for detailed guidance! 🌱"

	supportMenuText = "🔧 I'm here to help with technical issues!\n\nCommon problems I can help with:\n• **Login issues** - \"I can't log in\"\n• **Data not saving** - \"My entries aren't saving\"\n• **Features not loading** - \"The calculator won't load\"\n• **General app problems** - \"Something is broken\"\n\nPlease describe your specific issue and I'll provide step-by-step troubleshooting guidance!\n\nFor urgent issues, you can also contact our support team directly. 📧"

	discoveryFallbackText = "🔍 **Discover EcoCloudApp Features:**\n\n🧮 **Carbon Calculator** - Track daily emissions\n📊 **Reports** - View your progress over time\n🏆 **Gamification** - Earn points and badges\n💡 **AI Suggestions** - Get personalized eco advice\n👤 **Profile** - Set goals and preferences\n🌍 **Environmental Data** - Real-time air quality\n\nNew here? Start with the Carbon Calculator!\nWant detailed guidance? Ask \"How do I use [feature name]\"\n\nWhat interests you most? 😊"
)

func (d *Dispatcher) welcome(context.Context, Request) (Response, error) {
	return Response{Text: welcomeText}, nil
}

func (d *Dispatcher) smallTalk(context.Context, Request) (Response, error) {
	return Response{Text: smallTalkText}, nil
}

func (d *Dispatcher) unknown(context.Context, Request) (Response, error) {
	return Response{Text: unknownText, QuickReplies: d.content.QuickReplies[domain.ActionWelcome.String()]}, nil
}

func (d *Dispatcher) recommendations(_ context.Context, req Request) (Response, error) {
	category, ok := domain.ParseCategory(req.Parameters.String(domain.ParamCategory))
	var text string
	if ok && len(d.content.Recommendations[string(category)]) > 0 {
		text = fmt.Sprintf("💡 Here are some tips to reduce your %s emissions:\n\n%s", category,
			strings.Join(d.content.Recommendations[string(category)], "\n\n"))
	} else {
		text = "💡 Here are some general tips to reduce your carbon footprint:\n\n" +
			strings.Join(d.content.Recommendations["general"], "\n\n")
	}
	return Response{Text: text + "\n\n🌱 Start tracking these activities to see your impact!"}, nil
}

// facts prefers the requested category. Without one it mixes general and
// seasonal facts, or a fact about the user's most-tracked category when their
// history can be read.
func (d *Dispatcher) facts(ctx context.Context, req Request) (Response, error) {
	var fact, intro string
	category, ok := domain.ParseCategory(req.Parameters.String(domain.ParamFactCategory))
	if ok && len(d.content.Facts.Categories[string(category)]) > 0 {
		fact = d.pick(d.content.Facts.Categories[string(category)])
		intro = fmt.Sprintf("Here's an interesting fact about %s:", category)
	} else {
		pool := append(append([]string{}, d.content.Facts.General...), d.content.Facts.Seasons[season(req.Now)]...)
		fact = d.pick(pool)
		intro = "Here's a fascinating environmental fact:"

		if top := d.mostTracked(ctx, req.UserID); top != "" && len(d.content.Facts.Categories[string(top)]) > 0 {
			fact = d.pick(d.content.Facts.Categories[string(top)])
			intro = fmt.Sprintf("Since you track a lot of %s activities, here's a relevant fact:", top)
		}
	}
	return Response{Text: fmt.Sprintf("%s\n\n%s\n\n🌱 Want to learn more? Ask me about specific categories like \"Tell me about transport emissions\" or \"Share an energy fact\"!", intro, fact)}, nil
}

func (d *Dispatcher) mostTracked(ctx context.Context, userID string) domain.Category {
	acts, err := d.activities.ListActivities(ctx, userID)
	if err != nil {
		d.logger.Warn("personalising fact", "user_id", userID, "err", err)
		return ""
	}
	return footprint.Summarize(acts).MostTracked()
}

func season(t time.Time) string {
	switch t.Month() {
	case time.March, time.April, time.May:
		return "spring"
	case time.June, time.July, time.August:
		return "summer"
	case time.September, time.October, time.November:
		return "fall"
	default:
		return "winter"
	}
}

func (d *Dispatcher) navigation(_ context.Context, req Request) (Response, error) {
	feature := strings.ToLower(req.Parameters.String(domain.ParamFeatureName))
	actionType := strings.ToLower(req.Parameters.String(domain.ParamActionType))

	if g, ok := d.content.Guides[feature]; ok {
		var b strings.Builder
		b.WriteString(g.Title + "\n\n")
		b.WriteString("📋 Step-by-step instructions:\n")
		b.WriteString(strings.Join(g.Steps, "\n") + "\n\n")
		if g.Tip != "" {
			b.WriteString("💡 " + g.Tip + "\n\n")
		}
		b.WriteString("Need help with anything else? Just ask! 😊")
		return Response{
			Text: b.String(),
			Card: &Card{Title: g.Title, Subtitle: g.Tip, Buttons: []string{"Show me around the app"}},
		}, nil
	}
	if strings.Contains(actionType, "tour") || strings.Contains(feature, "tour") {
		return Response{Text: tourText}, nil
	}
	return Response{Text: overviewText}, nil
}

func (d *Dispatcher) support(_ context.Context, req Request) (Response, error) {
	issue := strings.ToLower(req.Parameters.String(domain.ParamIssueType))
	feature := strings.ToLower(req.Parameters.String(domain.ParamFeatureAffected))

	g, ok := d.content.Troubleshooting[issue]
	if !ok {
		g, ok = d.content.Troubleshooting[feature]
	}
	if !ok && (strings.Contains(issue, "not working") || strings.Contains(issue, "broken")) {
		g, ok = d.content.Troubleshooting["not loading"]
	}
	if !ok && feature != "" {
		g = d.content.GenericTrouble
		g.Title = fmt.Sprintf("🔧 %s Issues", capitalize(feature))
		ok = true
	}
	if !ok {
		return Response{Text: supportMenuText}, nil
	}

	var b strings.Builder
	b.WriteString(g.Title + "\n\n")
	b.WriteString("🛠️ **Troubleshooting Steps:**\n")
	b.WriteString(strings.Join(g.Steps, "\n") + "\n\n")
	if g.Alternative != "" {
		b.WriteString("💡 **Alternative:** " + g.Alternative + "\n\n")
	}
	b.WriteString("Still having trouble? Let me know and I can:\n")
	b.WriteString("• Guide you through more advanced solutions\n")
	b.WriteString("• Help you contact our support team\n")
	b.WriteString("• Suggest alternative ways to accomplish your task\n\n")
	b.WriteString("Just describe what's happening and I'll help! 😊")
	return Response{Text: b.String()}, nil
}

// discovery recommends a feature for a stated goal, otherwise suggestions
// shaped by the user's tracking history. A failed read degrades to a static
// feature list.
func (d *Dispatcher) discovery(ctx context.Context, req Request) (Response, error) {
	goal := strings.ToLower(req.Parameters.String(domain.ParamUserGoal))
	if rec, ok := d.content.Goals[goal]; ok {
		var b strings.Builder
		fmt.Fprintf(&b, "🎯 Perfect! To %s, I recommend the **%s** feature:\n\n", goal, rec.Feature)
		fmt.Fprintf(&b, "📝 **What it does:** %s\n\n", rec.Description)
		fmt.Fprintf(&b, "🚀 **How to use it:** %s\n\n", rec.Action)
		fmt.Fprintf(&b, "Want me to guide you through it step by step? Just ask \"How do I use %s\"! 😊", strings.ToLower(rec.Feature))
		return Response{Text: b.String()}, nil
	}

	acts, err := d.activities.ListActivities(ctx, req.UserID)
	if err != nil {
		d.logger.Warn("feature discovery without history", "user_id", req.UserID, "err", err)
		return Response{Text: discoveryFallbackText}, nil
	}
	sum := footprint.Summarize(acts)

	var b strings.Builder
	b.WriteString("🔍 **Feature Discovery for You**\n\n")
	if sum.Count == 0 {
		b.WriteString("🌟 **Get Started:**\n")
		b.WriteString("• **Carbon Calculator** - Start tracking your daily activities\n")
		b.WriteString("• **Profile Settings** - Set your environmental goals\n\n")
		b.WriteString("💡 **Tip:** Begin with the calculator to log a few activities, then explore other features!\n\n")
	} else {
		fmt.Fprintf(&b, "📊 **Your Progress:** %d entries across %d days\n\n", sum.Count, sum.ActiveDays)

		used := make(map[domain.Category]bool, len(sum.Breakdown))
		for _, ct := range sum.Breakdown {
			used[ct.Category] = true
		}
		if len(used) < len(domain.Categories) {
			b.WriteString("🆕 **Try These Categories:**\n")
			for _, c := range domain.Categories {
				if !used[c] {
					fmt.Fprintf(&b, "• **%s** - Track your %s impact\n", capitalize(string(c)), c)
				}
			}
			b.WriteString("\n")
		}

		if sum.Count >= 10 {
			b.WriteString("🏆 **Advanced Features for You:**\n")
			b.WriteString("• **Reports** - Analyze your trends and download PDFs\n")
			b.WriteString("• **AI Suggestions** - Get personalized reduction strategies\n")
			fmt.Fprintf(&b, "• **Gamification** - You've earned %d green points!\n\n", footprint.GreenPoints(sum.TotalKg))
		} else {
			b.WriteString("🌱 **Next Steps:**\n")
			b.WriteString("• **Keep Tracking** - Add more daily activities\n")
			b.WriteString("• **Set Goals** - Visit Profile to set reduction targets\n")
			b.WriteString("• **Learn Facts** - Ask me \"Tell me a carbon fact\"\n\n")
		}
	}
	b.WriteString("🌍 **Always Available:**\n")
	b.WriteString("• **Environmental Data** - Check air quality and weather\n")
	b.WriteString("• **Daily Tips** - Get bite-sized eco advice\n")
	b.WriteString("• **App Guidance** - Ask me \"How do I use [feature]\"\n\n")
	b.WriteString("What would you like to explore first? I can guide you through any feature! 🚀")
	return Response{Text: b.String()}, nil
}

func capitalize(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if n == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[n:]
}
