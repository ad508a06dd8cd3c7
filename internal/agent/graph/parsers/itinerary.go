package parsers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Chative-core-poc-v1/travel-concierge/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/travel-concierge/internal/core/error"
	logx "github.com/Chative-core-poc-v1/travel-concierge/pkg/logger"
)

type rawActivity struct {
	Time        looseString `json:"time"`
	Name        looseString `json:"name"`
	Description looseString `json:"description"`
	Location    looseString `json:"location"`
}

type rawMeal struct {
	Type  looseString `json:"type"`
	Place looseString `json:"place"`
	Notes looseString `json:"notes"`
}

type rawDay struct {
	Day           looseInt      `json:"day"`
	Activities    []rawActivity `json:"activities"`
	Meals         []rawMeal     `json:"meals"`
	Accommodation looseString   `json:"accommodation"`
	Notes         looseString   `json:"notes"`
}

type rawPlan struct {
	Summary looseString `json:"summary"`
	Days    []rawDay    `json:"days"`
}

// Plan is a parsed planner completion.
type Plan struct {
	Summary string
	Days    []model.DayPlan
	// Structured is false when the completion could not be parsed and the
	// days are placeholders carrying the raw narrative.
	Structured bool
}

// ParseItinerary turns a planner completion into exactly n day plans starting
// at start. Parsed days beyond n are dropped and missing days are filled with
// placeholders. Unparseable output yields placeholder days.
func ParseItinerary(content string, start time.Time, n int) (plan *Plan, err error) {
	defer func() {
		if r := recover(); r != nil {
			logx.Error().Str("component", "itinerary_parser").Msgf("panic recovered: %v", r)
			err = errx.New(fmt.Errorf("itinerary parser panic"), http.StatusInternalServerError, errx.SystemErrorMessage)
			plan = nil
		}
	}()
	if n <= 0 || n > MaxDays {
		return nil, fmt.Errorf("%w: %d days, want 1 to %d", ErrItineraryLength, n, MaxDays)
	}
	start = model.DateOnly(start)

	var raw rawPlan
	if derr := decodeObject(content, &raw); derr != nil || len(raw.Days) == 0 {
		logx.Warn().
			Str("component", "itinerary_parser").
			Str("snippet", safeSnippet(content)).
			Msg("unstructured planner output, using placeholder days")
		return &Plan{Summary: "", Days: PlaceholderDays(start, n, strings.TrimSpace(content))}, nil
	}

	byDay := indexDays(raw.Days, n)
	days := make([]model.DayPlan, n)
	for i := range days {
		if d, ok := byDay[i+1]; ok {
			days[i] = d
		} else {
			days[i] = placeholderDay(i + 1)
		}
		days[i].Day = i + 1
		days[i].Date = start.AddDate(0, 0, i)
	}
	return &Plan{Summary: string(raw.Summary), Days: days, Structured: true}, nil
}

// ParseDayPatch parses a modification completion into the days it returned,
// keyed by day number within [1, n]. Dates are left for the caller.
func ParseDayPatch(content string, n int) (summary string, patch map[int]model.DayPlan, err error) {
	var raw rawPlan
	if err := decodeObject(content, &raw); err != nil {
		return "", nil, err
	}
	patch = indexDays(raw.Days, n)
	if len(patch) == 0 {
		return "", nil, fmt.Errorf("modification returned no usable days: %s", safeSnippet(content))
	}
	return string(raw.Summary), patch, nil
}

// PlaceholderDays builds n empty days; the first carries the narrative.
func PlaceholderDays(start time.Time, n int, narrative string) []model.DayPlan {
	days := make([]model.DayPlan, n)
	for i := range days {
		days[i] = placeholderDay(i + 1)
		days[i].Date = model.DateOnly(start).AddDate(0, 0, i)
	}
	if narrative != "" && n > 0 {
		days[0].Notes = narrative
	}
	return days
}

func placeholderDay(day int) model.DayPlan {
	return model.DayPlan{
		Day:        day,
		Activities: []model.Activity{},
		Meals:      []model.Meal{},
		Notes:      fmt.Sprintf("Day %d: free to explore", day),
	}
}

// indexDays keeps the first occurrence of each day number within [1, n].
func indexDays(raw []rawDay, n int) map[int]model.DayPlan {
	out := make(map[int]model.DayPlan, len(raw))
	for i, rd := range raw {
		day := int(rd.Day)
		if day == 0 {
			day = i + 1
		}
		if day < 1 || day > n {
			continue
		}
		if _, dup := out[day]; dup {
			continue
		}
		out[day] = toDayPlan(day, rd)
	}
	return out
}

func toDayPlan(day int, rd rawDay) model.DayPlan {
	d := model.DayPlan{
		Day:           day,
		Activities:    make([]model.Activity, 0, len(rd.Activities)),
		Meals:         make([]model.Meal, 0, len(rd.Meals)),
		Accommodation: string(rd.Accommodation),
		Notes:         string(rd.Notes),
	}
	for _, a := range rd.Activities {
		if a.Name == "" || len(d.Activities) >= maxPerList {
			continue
		}
		d.Activities = append(d.Activities, model.Activity{
			Time:        string(a.Time),
			Name:        string(a.Name),
			Description: string(a.Description),
			Location:    string(a.Location),
		})
	}
	for _, m := range rd.Meals {
		if m.Type == "" && m.Place == "" || len(d.Meals) >= maxPerList {
			continue
		}
		d.Meals = append(d.Meals, model.Meal{Type: string(m.Type), Place: string(m.Place), Notes: string(m.Notes)})
	}
	return d
}
