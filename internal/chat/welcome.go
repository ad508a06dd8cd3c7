package chat

import (
	"context"

	"github.com/Chative-core-poc-v1/travel-concierge/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/travel-concierge/pkg/logger"
)

const welcomeTitle = "Welcome to Travel Concierge"

const welcomeMessage = `Welcome to **Travel Concierge**, your travel planning assistant!

I can help you:

- **Plan a trip** with a day-by-day itinerary
- **Recommend** flights, hotels, activities, restaurants and transportation
- **Book** what we planned, after you confirm the summary
- **Answer questions** about visas, weather and getting around

### Try asking me:

- "I want to visit Paris for 5 days starting 2026-06-01"
- "Recommend hotels and restaurants in Tokyo"
- "What's the weather like in Lisbon in spring?"

Type your travel question below to get started.`

// SeedWelcome creates a welcome conversation when the store is empty. It
// reports whether one was created.
func (s *Store) SeedWelcome(ctx context.Context) (bool, error) {
	existing, err := s.ListConversations(ctx)
	if err != nil {
		return false, err
	}
	if len(existing) > 0 {
		return false, nil
	}
	c, err := s.CreateConversation(ctx, welcomeTitle)
	if err != nil {
		return false, err
	}
	if _, err := s.AddMessage(ctx, c.ID, model.NewMessage{Role: "assistant", Content: welcomeMessage}); err != nil {
		return false, err
	}
	logx.Info().Str("conversation_id", c.ID).Msg("seeded welcome conversation")
	return true, nil
}
