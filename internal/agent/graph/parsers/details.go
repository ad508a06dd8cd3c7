package parsers

import (
	"time"

	"github.com/Chative-core-poc-v1/travel-concierge/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/travel-concierge/pkg/logger"
)

type rawDetails struct {
	Destination         looseString  `json:"destination"`
	StartDate           looseString  `json:"start_date"`
	EndDate             looseString  `json:"end_date"`
	DurationDays        looseInt     `json:"duration_days"`
	NumTravelers        looseInt     `json:"num_travelers"`
	Purpose             looseString  `json:"purpose"`
	Budget              looseString  `json:"budget"`
	TravelStyle         looseString  `json:"travel_style"`
	AccommodationType   looseString  `json:"accommodation_type"`
	Interests           looseStrings `json:"interests"`
	DietaryRestrictions looseStrings `json:"dietary_restrictions"`
	AccessibilityNeeds  looseStrings `json:"accessibility_needs"`
}

// Details is a partial update extracted from one user message.
type Details struct {
	Trip        model.TripDetails
	Preferences model.Preferences
}

// ParseDetails parses an extraction completion. Unparseable dates and
// non-positive counts are treated as not mentioned.
func ParseDetails(content string) (*Details, error) {
	var raw rawDetails
	if err := decodeObject(content, &raw); err != nil {
		return nil, err
	}
	d := &Details{
		Trip: model.TripDetails{
			Destination: string(raw.Destination),
			Purpose:     string(raw.Purpose),
			StartDate:   parseDate(string(raw.StartDate)),
			EndDate:     parseDate(string(raw.EndDate)),
		},
		Preferences: model.Preferences{
			Budget:              string(raw.Budget),
			TravelStyle:         string(raw.TravelStyle),
			AccommodationType:   string(raw.AccommodationType),
			Interests:           raw.Interests,
			DietaryRestrictions: raw.DietaryRestrictions,
			AccessibilityNeeds:  raw.AccessibilityNeeds,
		},
	}
	if n := int(raw.DurationDays); n > 0 && n <= MaxDays {
		d.Trip.DurationDays = n
	}
	if n := int(raw.NumTravelers); n > 0 {
		d.Trip.NumTravelers = n
	}
	return d, nil
}

var dateLayouts = []string{model.DateLayout, time.RFC3339, "2006/01/02", "January 2, 2006", "Jan 2, 2006", "2 January 2006"}

func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d := model.DateOnly(t)
			return &d
		}
	}
	logx.Debug().Str("component", "details_parser").Str("value", s).Msg("ignoring unparseable date")
	return nil
}
