package parsers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chative-core-poc-v1/travel-concierge/internal/agent/model"
)

var june1 = time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)

func TestExtractJSON(t *testing.T) {
	cases := map[string]struct {
		in   string
		want string
	}{
		"plain":         {in: `{"a":1}`, want: `{"a":1}`},
		"fenced":        {in: "```json\n{\"a\": {\"b\": 2}}\n```", want: `{"a": {"b": 2}}`},
		"prose":         {in: `Sure! Here you go: {"a":"}"} hope it helps`, want: `{"a":"}"}`},
		"escaped quote": {in: `{"a":"say \"hi\" {"}`, want: `{"a":"say \"hi\" {"}`},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := ExtractJSON(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := ExtractJSON("no object here {")
	require.ErrorIs(t, err, ErrNoJSON)
}

func TestNormalizeLabel(t *testing.T) {
	assert.Equal(t, "plan_trip", NormalizeLabel(`  "Plan_Trip."  `))
	assert.Equal(t, "book_travel", NormalizeLabel("**book travel**\nbecause the user..."))
	assert.Equal(t, "ask_question", NormalizeLabel("`ask-question`"))
}

func TestParseItineraryExactLength(t *testing.T) {
	content := `{"summary":"Three days in Lisbon","days":[
		{"day":1,"activities":[{"time":"09:00","name":"Belem Tower"}],"meals":[{"type":"lunch","place":"Pasteis"}]},
		{"day":3,"activities":[{"name":"Sintra"}]},
		{"day":4,"activities":[{"name":"dropped"}]},
		{"day":"1","notes":"duplicate"}
	]}`

	plan, err := ParseItinerary(content, june1, 3)
	require.NoError(t, err)
	require.Len(t, plan.Days, 3)
	assert.True(t, plan.Structured)
	assert.Equal(t, "Three days in Lisbon", plan.Summary)

	for i, d := range plan.Days {
		assert.Equal(t, i+1, d.Day)
		assert.Equal(t, june1.AddDate(0, 0, i), d.Date)
	}
	assert.Equal(t, "Belem Tower", plan.Days[0].Activities[0].Name)
	assert.Empty(t, plan.Days[1].Activities)
	assert.Equal(t, "Sintra", plan.Days[2].Activities[0].Name)
	require.NoError(t, model.ValidateItinerary(plan.Days))
}

func TestParseItineraryUnstructured(t *testing.T) {
	plan, err := ParseItinerary("Day 1: wander around. Day 2: museums.", june1, 2)
	require.NoError(t, err)
	require.Len(t, plan.Days, 2)
	assert.False(t, plan.Structured)
	assert.Contains(t, plan.Days[0].Notes, "wander around")
	assert.Equal(t, june1.AddDate(0, 0, 1), plan.Days[1].Date)

	_, err = ParseItinerary("{}", june1, 0)
	require.ErrorIs(t, err, ErrItineraryLength)
	_, err = ParseItinerary("{}", june1, MaxDays+1)
	require.ErrorIs(t, err, ErrItineraryLength)
}

func TestParseDayPatch(t *testing.T) {
	summary, patch, err := ParseDayPatch(`{"summary":"Swapped day 2","days":[{"day":2,"activities":[{"name":"Beach"}]},{"day":9}]}`, 3)
	require.NoError(t, err)
	assert.Equal(t, "Swapped day 2", summary)
	require.Len(t, patch, 1)
	assert.Equal(t, "Beach", patch[2].Activities[0].Name)

	_, _, err = ParseDayPatch(`{"days":[]}`, 3)
	require.Error(t, err)
}

func TestParseRecommendations(t *testing.T) {
	recs, err := ParseRecommendations(`{"Hotels":[{"name":"Casa","price":120,"rating":"4.5/5"}],"spas":[{"name":"x"}],"flights":[{"name":""}]}`)
	require.NoError(t, err)

	assert.Len(t, recs, len(model.Categories))
	require.Len(t, recs[model.CategoryHotels], 1)
	assert.Equal(t, "120", recs[model.CategoryHotels][0].Price)
	assert.InDelta(t, 4.5, recs[model.CategoryHotels][0].Rating, 1e-9)
	assert.Empty(t, recs[model.CategoryFlights])
	assert.NotNil(t, recs[model.CategoryTransportation])
	assert.Equal(t, 1, recs.Total())

	_, err = ParseRecommendations("I recommend visiting in spring.")
	require.ErrorIs(t, err, ErrNoJSON)
}

func TestParseDetails(t *testing.T) {
	d, err := ParseDetails(`{"destination":"Tokyo","start_date":"2025-06-01","duration_days":"5","num_travelers":0,"interests":"food, anime","end_date":"sometime"}`)
	require.NoError(t, err)

	assert.Equal(t, "Tokyo", d.Trip.Destination)
	require.NotNil(t, d.Trip.StartDate)
	assert.Equal(t, june1, *d.Trip.StartDate)
	assert.Nil(t, d.Trip.EndDate)
	assert.Equal(t, 5, d.Trip.DurationDays)
	assert.Zero(t, d.Trip.NumTravelers)
	assert.Equal(t, []string{"food", "anime"}, d.Preferences.Interests)
}
