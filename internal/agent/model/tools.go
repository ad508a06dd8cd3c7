package model

import (
	"fmt"
	"strings"
)

type FlightOption struct {
	ID          string `json:"id"`
	Airline     string `json:"airline"`
	Origin      string `json:"origin,omitempty"`
	Destination string `json:"destination"`
	Departure   string `json:"departure,omitempty"`
	Stops       int    `json:"stops"`
	Price       Money  `json:"price"`
}

type HotelOption struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Area        string   `json:"area"`
	Rating      float64  `json:"rating"`
	NightlyRate Money    `json:"nightly_rate"`
	Amenities   []string `json:"amenities,omitempty"`
}

type ActivityOption struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Category      string  `json:"category"`
	Description   string  `json:"description"`
	DurationHours float64 `json:"duration_hours"`
	Rating        float64 `json:"rating"`
	Price         Money   `json:"price"`
}

type WeatherReport struct {
	Destination string `json:"destination"`
	Month       string `json:"month"`
	HighC       int    `json:"high_c"`
	LowC        int    `json:"low_c"`
	Summary     string `json:"summary"`
}

func (f FlightOption) Recommendation() Recommendation {
	stops := "nonstop"
	if f.Stops > 0 {
		stops = fmt.Sprintf("%d stop(s)", f.Stops)
	}
	desc := strings.TrimSpace(fmt.Sprintf("%s %s", stops, f.Departure))
	return Recommendation{Name: f.Airline + " " + f.ID, Description: desc, Price: f.Price.String(), Location: f.Destination}
}

func (h HotelOption) Recommendation() Recommendation {
	return Recommendation{
		Name:        h.Name,
		Description: strings.Join(h.Amenities, ", "),
		Price:       h.NightlyRate.String() + "/night",
		Rating:      h.Rating,
		Location:    h.Area,
	}
}

func (a ActivityOption) Recommendation() Recommendation {
	return Recommendation{Name: a.Name, Description: a.Description, Price: a.Price.String(), Rating: a.Rating}
}

// Snippet renders the report as a context line for answers.
func (w WeatherReport) Snippet() string {
	return fmt.Sprintf("Weather in %s in %s: highs around %d°C, lows around %d°C. %s", w.Destination, w.Month, w.HighC, w.LowC, w.Summary)
}
