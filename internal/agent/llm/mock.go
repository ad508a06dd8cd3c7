package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/Chative-core-poc-v1/travel-concierge/internal/agent/model"
)

// MockCompleter answers without a model. It recognises which prompt it was
// given and returns canned but well-formed output, so the whole graph runs
// offline.
type MockCompleter struct{}

func NewMockCompleter() *MockCompleter { return &MockCompleter{} }

var (
	reUserMessage  = regexp.MustCompile(`(?m)^User message: (.*)$`)
	reQuestion     = regexp.MustCompile(`(?m)^Question: (.*)$`)
	reRequest      = regexp.MustCompile(`(?m)^Traveler request: (.*)$`)
	reDestination  = regexp.MustCompile(`(?m)^Destination: (.*)$`)
	reTripDest     = regexp.MustCompile(`(?m)^- Destination: (.*)$`)
	reItineraryFor = regexp.MustCompile(`(?m)^Current itinerary for (.*):$`)
	reExactDays    = regexp.MustCompile(`Return exactly (\d+) days`)
	reDayRange     = regexp.MustCompile(`between 1 and (\d+)`)
	reModRequest   = regexp.MustCompile(`(?s)User modification request:\n(.*?)\n\n`)

	reDuration  = regexp.MustCompile(`(?i)\b(\d{1,2})[- ]?(?:day|days|night|nights)\b`)
	reWeeks     = regexp.MustCompile(`(?i)\b(\d)[- ]?weeks?\b`)
	reISODate   = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`)
	reTravelers = regexp.MustCompile(`(?i)\b(\d{1,2})\s+(?:people|persons|travelers|travellers|adults|of us)\b`)
	reDayNumber = regexp.MustCompile(`(?i)\bday\s+(\d{1,2})\b`)
	rePlaceName = regexp.MustCompile(`\b(?:to|in|visit|visiting)\s+([A-Z][a-zA-Z]+(?:\s[A-Z][a-zA-Z]+)?)`)
)

var knownDestinations = []string{
	"Paris", "Tokyo", "Lisbon", "Rome", "London", "Barcelona", "Bali", "Kyoto",
	"New York", "Bangkok", "Amsterdam", "Berlin", "Sydney", "Istanbul",
}

var interestKeywords = map[string]string{
	"museum": "museums", "art": "art", "food": "food", "history": "history",
	"beach": "beaches", "hiking": "hiking", "nightlife": "nightlife", "shopping": "shopping",
	"anime": "anime", "architecture": "architecture", "nature": "nature",
}

func (m *MockCompleter) Complete(ctx context.Context, prompt string, _ model.CompletionOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	switch {
	case strings.HasPrefix(prompt, "Classify the following user message"):
		return mockIntent(capture(reUserMessage, prompt)), nil
	case strings.HasPrefix(prompt, "Extract travel details"):
		return mockDetails(capture(reUserMessage, prompt)), nil
	case strings.Contains(prompt, "Current itinerary for"):
		return mockModification(prompt), nil
	case strings.Contains(prompt, "day-by-day itinerary"):
		return mockItinerary(capture(reDestination, prompt), atoi(capture(reExactDays, prompt))), nil
	case strings.Contains(prompt, "recommendation specialist"):
		return mockRecommendations(capture(reTripDest, prompt), capture(reRequest, prompt)), nil
	case strings.Contains(prompt, "Answer the travel question"):
		return mockAnswer(capture(reQuestion, prompt)), nil
	}
	return mockResponses["default"], nil
}

func capture(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func containsAny(s string, words ...string) bool {
	return lo.SomeBy(words, func(w string) bool { return strings.Contains(s, w) })
}

func mockIntent(message string) string {
	msg := strings.ToLower(message)
	switch {
	case containsAny(msg, "book", "reserve") && !containsAny(msg, "itinerary"):
		return string(model.IntentBookTravel)
	case containsAny(msg, "change", "modify", "swap", "replace", "instead") && containsAny(msg, "day", "itinerary", "plan"):
		return string(model.IntentModifyItinerary)
	case containsAny(msg, "recommend", "suggest", "options for", "where should i stay", "hotel", "flight", "restaurant"):
		return string(model.IntentGetRecommendations)
	case containsAny(msg, "plan", "itinerary", "trip", "visit", "vacation", "holiday"):
		return string(model.IntentPlanTrip)
	}
	return string(model.IntentAskQuestion)
}

func mockDetails(message string) string {
	out := map[string]any{}
	if dest := findDestination(message); dest != "" {
		out["destination"] = dest
	}
	if d := capture(reISODate, message); d != "" {
		out["start_date"] = d
	}
	if n := atoi(capture(reDuration, message)); n > 0 {
		out["duration_days"] = n
	} else if w := atoi(capture(reWeeks, message)); w > 0 {
		out["duration_days"] = w * 7
	}
	if n := atoi(capture(reTravelers, message)); n > 0 {
		out["num_travelers"] = n
	}
	lower := strings.ToLower(message)
	words := strings.FieldsFunc(lower, func(r rune) bool { return r < 'a' || r > 'z' })
	var interests []string
	for kw, interest := range interestKeywords {
		if lo.SomeBy(words, func(w string) bool { return strings.HasPrefix(w, kw) }) {
			interests = append(interests, interest)
		}
	}
	if len(interests) > 0 {
		slices.Sort(interests)
		out["interests"] = interests
	}
	switch {
	case containsAny(lower, "cheap", "budget", "affordable"):
		out["budget"] = "budget"
	case containsAny(lower, "luxury", "splurge"):
		out["budget"] = "luxury"
	}
	b, _ := json.Marshal(out)
	return string(b)
}

func findDestination(message string) string {
	lower := strings.ToLower(message)
	if d, ok := lo.Find(knownDestinations, func(d string) bool { return strings.Contains(lower, strings.ToLower(d)) }); ok {
		return d
	}
	return capture(rePlaceName, message)
}

type mockActivity struct {
	Time        string `json:"time"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Location    string `json:"location"`
}

type mockMeal struct {
	Type  string `json:"type"`
	Place string `json:"place"`
}

type mockDay struct {
	Day           int            `json:"day"`
	Activities    []mockActivity `json:"activities"`
	Meals         []mockMeal     `json:"meals"`
	Accommodation string         `json:"accommodation"`
	Notes         string         `json:"notes"`
}

type mockPlan struct {
	Summary string    `json:"summary"`
	Days    []mockDay `json:"days"`
}

var dayThemes = []string{"Old town walking tour", "Main museum", "Local market", "Scenic viewpoint", "Neighbourhood food crawl", "Day trip", "Parks and gardens"}

func mockDayPlan(dest string, day int) mockDay {
	theme := dayThemes[(day-1)%len(dayThemes)]
	return mockDay{
		Day: day,
		Activities: []mockActivity{
			{Time: "09:00", Name: theme, Description: fmt.Sprintf("%s in %s", theme, dest), Location: dest},
			{Time: "15:00", Name: "Free afternoon", Description: "Explore at your own pace", Location: dest},
		},
		Meals: []mockMeal{
			{Type: "lunch", Place: "Local bistro"},
			{Type: "dinner", Place: "Neighbourhood restaurant"},
		},
		Accommodation: "Central hotel",
		Notes:         "Book popular sights in advance.",
	}
}

func mockItinerary(dest string, days int) string {
	if dest == "" {
		dest = "your destination"
	}
	if days <= 0 {
		days = 3
	}
	plan := mockPlan{Summary: fmt.Sprintf("A relaxed %d-day trip to %s.", days, dest)}
	for d := 1; d <= days; d++ {
		plan.Days = append(plan.Days, mockDayPlan(dest, d))
	}
	b, _ := json.Marshal(plan)
	return string(b)
}

func mockModification(prompt string) string {
	dest := capture(reItineraryFor, prompt)
	limit := atoi(capture(reDayRange, prompt))
	request := capture(reModRequest, prompt)
	day := atoi(capture(reDayNumber, request))
	if day < 1 || (limit > 0 && day > limit) {
		day = 1
	}
	patched := mockDayPlan(dest, day)
	patched.Activities[0] = mockActivity{Time: "10:00", Name: "Updated plan", Description: request, Location: dest}
	b, _ := json.Marshal(mockPlan{Summary: fmt.Sprintf("Updated day %d as requested.", day), Days: []mockDay{patched}})
	return string(b)
}

type mockOption struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       string  `json:"price"`
	Rating      float64 `json:"rating"`
	Location    string  `json:"location"`
}

func mockRecommendations(dest, request string) string {
	if dest == "" || dest == "not decided" {
		dest = findDestination(request)
	}
	if dest == "" {
		dest = "Tokyo"
	}
	out := map[string][]mockOption{
		"flights": {
			{Name: "ANA NH10", Description: "Direct flight with excellent service", Price: "$850", Rating: 4.7, Location: dest},
			{Name: "JAL JL5", Description: "One layover, saves over $100", Price: "$720", Rating: 4.5, Location: dest},
			{Name: "United UA79", Description: "Direct afternoon departure", Price: "$790", Rating: 4.1, Location: dest},
		},
		"hotels": {
			{Name: "Grand " + dest + " Hotel", Description: "Iconic views and world-class service", Price: "$450/night", Rating: 4.8, Location: "City centre"},
			{Name: dest + " Gracery Inn", Description: "Great location at a mid-range price", Price: "$150/night", Rating: 4.2, Location: "Old town"},
		},
		"activities": {
			{Name: "Guided walking tour", Description: "Three hours through the historic centre", Price: "$35", Rating: 4.6, Location: dest},
			{Name: "Cooking class", Description: "Learn local dishes with a chef", Price: "$80", Rating: 4.7, Location: dest},
		},
		"restaurants": {
			{Name: "Corner Bistro", Description: "Seasonal local menu", Price: "$$", Rating: 4.5, Location: dest},
			{Name: "Night Market Stalls", Description: "Street food favourites", Price: "$", Rating: 4.4, Location: dest},
		},
		"transportation": {
			{Name: "Transit day pass", Description: "Unlimited metro and bus rides", Price: "$12/day", Rating: 4.3, Location: dest},
			{Name: "Airport express", Description: "Fastest link to the centre", Price: "$25", Rating: 4.2, Location: dest},
		},
	}
	b, _ := json.Marshal(out)
	return string(b)
}

var mockResponses = map[string]string{
	"flight": "I found some great flight options for you! Here are the top results based on your search criteria:\n\n" +
		"**Best Overall:** ANA flight NH10 offers a direct route with excellent service.\n\n" +
		"**Budget Pick:** JAL flight JL5 has a layover but saves you over $100.",
	"weather": "Here's the current weather forecast for your destination. Looks like you'll have mostly pleasant weather!\n\n" +
		"**Current conditions:** Partly cloudy with comfortable temperatures.\n\n" +
		"Pack layers, since mornings and evenings can be cool.",
	"hotel": "I've found several excellent hotels for your stay. Here are my top picks:\n\n" +
		"**Luxury:** Park Hyatt Tokyo, with iconic views and world-class service.\n\n" +
		"**Mid-Range:** Hotel Gracery Shinjuku, a great location with Godzilla on the roof!",
	"default": "That's a great question! Let me help you with your travel planning.\n\n" +
		"I can assist with:\n" +
		"- **Trip planning**: day-by-day itineraries\n" +
		"- **Recommendations**: flights, hotels, activities, restaurants and transportation\n" +
		"- **Booking**: once you confirm a summary\n" +
		"- **Destination info**: weather, visas and getting around\n\n" +
		"What would you like to explore first?",
}

func mockAnswer(question string) string {
	msg := strings.ToLower(question)
	switch {
	case containsAny(msg, "flight", "fly", "airplane", "airport"):
		return mockResponses["flight"]
	case containsAny(msg, "weather", "forecast", "temperature", "rain"):
		return mockResponses["weather"]
	case containsAny(msg, "hotel", "stay", "accommodation", "room"):
		return mockResponses["hotel"]
	}
	return mockResponses["default"]
}

var _ model.Completer = (*MockCompleter)(nil)
