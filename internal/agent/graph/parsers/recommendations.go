package parsers

import (
	"strings"

	"github.com/Chative-core-poc-v1/travel-concierge/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/travel-concierge/pkg/logger"
)

type rawRecommendation struct {
	Name        looseString `json:"name"`
	Description looseString `json:"description"`
	Price       looseString `json:"price"`
	Rating      looseFloat  `json:"rating"`
	Location    looseString `json:"location"`
}

// ParseRecommendations parses a recommender completion. The result always
// holds exactly the fixed categories; unknown keys are dropped.
func ParseRecommendations(content string) (model.Recommendations, error) {
	var raw map[string][]rawRecommendation
	if err := decodeObject(content, &raw); err != nil {
		return nil, err
	}
	out := model.NewRecommendations()
	for key, items := range raw {
		cat := model.Category(strings.ToLower(strings.TrimSpace(key)))
		if _, ok := out[cat]; !ok {
			logx.Debug().Str("component", "recommendation_parser").Str("category", key).Msg("dropping unknown category")
			continue
		}
		for _, it := range items {
			if it.Name == "" || len(out[cat]) >= maxPerList {
				continue
			}
			rating := float64(it.Rating)
			if rating < 0 || rating > 5 {
				rating = 0
			}
			out[cat] = append(out[cat], model.Recommendation{
				Name:        string(it.Name),
				Description: string(it.Description),
				Price:       string(it.Price),
				Rating:      rating,
				Location:    string(it.Location),
			})
		}
	}
	return out, nil
}
