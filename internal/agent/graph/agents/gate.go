package agents

import "github.com/Chative-core-poc-v1/travel-concierge/internal/agent/model"

// Field is a required piece of information.
type Field string

const (
	FieldDestination Field = "destination"
	FieldStartDate   Field = "start_date"
	FieldDuration    Field = "duration_days"
	FieldBookable    Field = "itinerary_or_recommendations"
)

// Label is the user-facing name of the field.
func (f Field) Label() string {
	switch f {
	case FieldDestination:
		return "destination"
	case FieldStartDate:
		return "start date"
	case FieldDuration:
		return "trip length in days"
	case FieldBookable:
		return "an itinerary or recommendations to book"
	}
	return string(f)
}

type Decision string

const (
	DecisionProceed Decision = "proceed"
	DecisionClarify Decision = "clarify"
)

// GateResult is the outcome of an information check.
type GateResult struct {
	Decision Decision
	// Intent is the intent whose requirements were evaluated.
	Intent  model.Intent
	Missing []Field
}

// Missing lists the required fields of intent that are unset in st.
func Missing(intent model.Intent, st *model.ConversationState) []Field {
	var missing []Field
	switch intent {
	case model.IntentPlanTrip:
		td := st.TripDetails
		if td.Destination == "" {
			missing = append(missing, FieldDestination)
		}
		if td.StartDate == nil {
			missing = append(missing, FieldStartDate)
		}
		if td.DurationDays <= 0 {
			missing = append(missing, FieldDuration)
		}
	case model.IntentBookTravel:
		if !st.HasItinerary() && !st.HasRecommendations() {
			missing = append(missing, FieldBookable)
		}
	}
	return missing
}

// EffectiveIntent is the intent whose requirements gate the turn: the
// pending one while clarification is outstanding. A pending booking yields to
// a request that produces something bookable, otherwise it could never be met.
func EffectiveIntent(st *model.ConversationState) model.Intent {
	if !st.NeedsMoreInfo || st.PendingIntent == "" {
		return st.CurrentIntent
	}
	if st.PendingIntent == model.IntentBookTravel {
		switch st.CurrentIntent {
		case model.IntentPlanTrip, model.IntentModifyItinerary, model.IntentGetRecommendations:
			return st.CurrentIntent
		}
	}
	return st.PendingIntent
}

// Check decides whether the turn can proceed. It is pure.
func Check(st *model.ConversationState) GateResult {
	intent := EffectiveIntent(st)
	missing := Missing(intent, st)
	if len(missing) > 0 {
		return GateResult{Decision: DecisionClarify, Intent: intent, Missing: missing}
	}
	return GateResult{Decision: DecisionProceed, Intent: intent}
}
