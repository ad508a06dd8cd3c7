package agents

import (
	"fmt"
	"strings"

	"github.com/Chative-core-poc-v1/travel-concierge/internal/agent/model"
)

// FormatItinerary renders an itinerary as markdown for the chat reply.
func FormatItinerary(destination, summary string, days []model.DayPlan) string {
	var b strings.Builder
	if summary != "" {
		b.WriteString(summary)
		b.WriteString("\n\n")
	} else {
		fmt.Fprintf(&b, "Here's your personalized %d-day itinerary for %s:\n\n", len(days), destination)
	}
	for _, d := range days {
		fmt.Fprintf(&b, "**Day %d (%s)**\n", d.Day, d.Date.Format(model.DateLayout))
		for _, a := range d.Activities {
			b.WriteString("- ")
			if a.Time != "" {
				b.WriteString(a.Time + " ")
			}
			b.WriteString(a.Name)
			if a.Location != "" {
				b.WriteString(" @ " + a.Location)
			}
			b.WriteString("\n")
		}
		for _, m := range d.Meals {
			fmt.Fprintf(&b, "- %s: %s\n", titleCase(m.Type), m.Place)
		}
		if d.Accommodation != "" {
			fmt.Fprintf(&b, "- Stay: %s\n", d.Accommodation)
		}
		if d.Notes != "" {
			fmt.Fprintf(&b, "_%s_\n", d.Notes)
		}
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

// FormatRecommendations renders recommendations grouped by category.
func FormatRecommendations(destination string, recs model.Recommendations) string {
	var b strings.Builder
	if destination != "" {
		fmt.Fprintf(&b, "Here are my recommendations for %s:\n\n", destination)
	} else {
		b.WriteString("Here are my recommendations:\n\n")
	}
	shown := 0
	for _, c := range model.Categories {
		items := recs[c]
		if len(items) == 0 {
			continue
		}
		fmt.Fprintf(&b, "**%s**\n", titleCase(string(c)))
		for _, it := range items {
			b.WriteString("- " + it.Name)
			if it.Price != "" {
				b.WriteString(" (" + it.Price + ")")
			}
			if it.Rating > 0 {
				fmt.Fprintf(&b, " ★%.1f", it.Rating)
			}
			if it.Description != "" {
				b.WriteString(": " + it.Description)
			}
			b.WriteString("\n")
			shown++
		}
		b.WriteString("\n")
	}
	if shown == 0 {
		b.WriteString("I couldn't find specific options yet. Tell me more about your budget or interests and I'll look again.")
	}
	return strings.TrimSpace(b.String())
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
