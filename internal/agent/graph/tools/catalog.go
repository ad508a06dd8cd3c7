package tools

import (
	"hash/fnv"
	"math"
	"strings"
)

// The catalog is generated from the destination name so every lookup for the
// same place returns the same options.

const currency = "USD"

var (
	airlines    = []string{"SkyBridge Air", "Meridian Airways", "Northwind", "Coastal Jet", "Atlas Connect"}
	departures  = []string{"07:10", "09:45", "13:20", "16:05", "21:30"}
	hotelStyles = []string{"Grand %s Hotel", "Hotel Lumen %s", "%s Riverside Suites", "Old Town Inn %s", "%s Garden Residences", "The %s Loft"}
	areas       = []string{"City Centre", "Old Town", "Waterfront", "Arts District", "Station Quarter"}
	amenities   = [][]string{{"free wifi", "breakfast"}, {"pool", "spa"}, {"rooftop bar"}, {"kitchenette", "laundry"}, {"gym", "late checkout"}}
)

type activityTemplate struct {
	name, category, description string
	hours                       float64
}

var activityTemplates = map[string][]activityTemplate{
	"food": {
		{"%s Food Market Tour", "food", "Tastings at the busiest market stalls with a local guide.", 3},
		{"Cooking Class in %s", "food", "Cook three regional dishes and eat what you make.", 4},
	},
	"art": {
		{"%s Gallery Walk", "art", "Highlights of the main museum and two smaller galleries.", 3},
		{"Street Art of %s", "art", "Murals and studios off the tourist trail.", 2},
	},
	"history": {
		{"Historic %s Walking Tour", "history", "The old quarter, its monuments and the stories behind them.", 2.5},
	},
	"nature": {
		{"%s Day Hike", "nature", "A guided hike to the best viewpoint near town.", 6},
		{"Sunset Cruise around %s", "nature", "Golden hour on the water with light snacks.", 2},
	},
	"nightlife": {
		{"%s After Dark", "nightlife", "Three bars and a late-night snack stop.", 3},
	},
	"shopping": {
		{"%s Design Districts", "shopping", "Independent boutiques and craft workshops.", 3},
	},
	"sightseeing": {
		{"%s Highlights Bus Tour", "sightseeing", "Hop-on hop-off loop past the main landmarks.", 4},
		{"Skip-the-line %s Landmark Pass", "sightseeing", "Timed entry to the most visited sight.", 2},
		{"%s by Bike", "sightseeing", "An easy ride through parks and neighbourhoods.", 3},
	},
}

// seed derives a stable pseudo-random value from the destination.
func seed(dest string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(strings.TrimSpace(dest))))
	return h.Sum32()
}

// pick returns a stable value in [0, n) for the i-th option of s.
func pick(s uint32, i, n int) int {
	return int((s>>uint(i%8*4))+uint32(i*7)) % n
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func code(airline string) string {
	var b strings.Builder
	for _, w := range strings.Fields(airline) {
		b.WriteByte(w[0])
	}
	return strings.ToUpper(b.String())
}
