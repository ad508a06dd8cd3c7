package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Intent is the classified purpose of a user message.
type Intent string

const (
	IntentPlanTrip           Intent = "plan_trip"
	IntentGetRecommendations Intent = "get_recommendations"
	IntentBookTravel         Intent = "book_travel"
	IntentModifyItinerary    Intent = "modify_itinerary"
	IntentAskQuestion        Intent = "ask_question"
)

// Intents is the closed intent taxonomy in prompt order.
var Intents = []Intent{
	IntentPlanTrip,
	IntentGetRecommendations,
	IntentBookTravel,
	IntentModifyItinerary,
	IntentAskQuestion,
}

// ParseIntent matches an already normalised label against the taxonomy.
func ParseIntent(label string) (Intent, bool) {
	in := Intent(label)
	return in, lo.Contains(Intents, in)
}

var (
	ErrInvalidConversationID = errors.New("conversation id must be a UUID")
	ErrInvalidState          = errors.New("invalid conversation state")
)

// TripDetails holds what is known about the trip. Zero values mean unset,
// except NumTravelers which is always at least 1.
type TripDetails struct {
	Destination  string     `json:"destination,omitempty"`
	StartDate    *time.Time `json:"start_date,omitempty"`
	EndDate      *time.Time `json:"end_date,omitempty"`
	DurationDays int        `json:"duration_days,omitempty"`
	NumTravelers int        `json:"num_travelers"`
	Purpose      string     `json:"purpose,omitempty"`
}

// Merge applies the fields mentioned in u. An explicit end date wins over an
// explicit duration; the other one is derived. Moving only the start date
// keeps the known duration and shifts the end date.
func (t *TripDetails) Merge(u TripDetails) {
	if d := strings.TrimSpace(u.Destination); d != "" {
		t.Destination = d
	}
	if p := strings.TrimSpace(u.Purpose); p != "" {
		t.Purpose = p
	}
	if u.NumTravelers > 0 {
		t.NumTravelers = u.NumTravelers
	}
	if u.StartDate != nil {
		t.StartDate = lo.ToPtr(DateOnly(*u.StartDate))
	}
	switch {
	case u.EndDate != nil:
		t.EndDate = lo.ToPtr(DateOnly(*u.EndDate))
	case u.DurationDays > 0:
		t.DurationDays = u.DurationDays
		t.EndDate = nil
	case u.StartDate != nil && t.DurationDays > 0:
		t.EndDate = nil
	}
	t.Normalize()
}

// Normalize enforces the date/duration invariant and the traveler minimum.
// An end date before the start date is discarded.
func (t *TripDetails) Normalize() {
	if t.NumTravelers < 1 {
		t.NumTravelers = 1
	}
	if t.DurationDays < 0 {
		t.DurationDays = 0
	}
	if t.StartDate != nil && t.EndDate != nil {
		if t.EndDate.Before(*t.StartDate) {
			t.EndDate = nil
		} else {
			t.DurationDays = DaysBetween(*t.StartDate, *t.EndDate)
		}
	}
	if t.StartDate != nil && t.EndDate == nil && t.DurationDays > 0 {
		t.EndDate = lo.ToPtr(t.StartDate.AddDate(0, 0, t.DurationDays))
	}
}

// Validate checks the invariants without repairing them.
func (t TripDetails) Validate() error {
	if t.NumTravelers < 1 {
		return fmt.Errorf("%w: num_travelers must be >= 1", ErrInvalidState)
	}
	if t.DurationDays < 0 {
		return fmt.Errorf("%w: duration_days must be >= 0", ErrInvalidState)
	}
	if t.StartDate != nil && t.EndDate != nil && t.DurationDays != DaysBetween(*t.StartDate, *t.EndDate) {
		return fmt.Errorf("%w: duration_days does not match dates", ErrInvalidState)
	}
	return nil
}

// Preferences are the traveler's optional preferences. Set fields keep
// insertion order and are deduplicated case-insensitively.
type Preferences struct {
	Budget              string   `json:"budget,omitempty"`
	TravelStyle         string   `json:"travel_style,omitempty"`
	AccommodationType   string   `json:"accommodation_type,omitempty"`
	Interests           []string `json:"interests,omitempty"`
	DietaryRestrictions []string `json:"dietary_restrictions,omitempty"`
	AccessibilityNeeds  []string `json:"accessibility_needs,omitempty"`
}

// Merge applies non-empty scalars from u and unions the sets.
func (p *Preferences) Merge(u Preferences) {
	if v := strings.TrimSpace(u.Budget); v != "" {
		p.Budget = v
	}
	if v := strings.TrimSpace(u.TravelStyle); v != "" {
		p.TravelStyle = v
	}
	if v := strings.TrimSpace(u.AccommodationType); v != "" {
		p.AccommodationType = v
	}
	p.Interests = mergeSet(p.Interests, u.Interests)
	p.DietaryRestrictions = mergeSet(p.DietaryRestrictions, u.DietaryRestrictions)
	p.AccessibilityNeeds = mergeSet(p.AccessibilityNeeds, u.AccessibilityNeeds)
}

func mergeSet(dst, add []string) []string {
	all := lo.Filter(lo.Map(append(append([]string{}, dst...), add...), func(s string, _ int) string {
		return strings.TrimSpace(s)
	}), func(s string, _ int) bool { return s != "" })
	if len(all) == 0 {
		return nil
	}
	return lo.UniqBy(all, strings.ToLower)
}

// Activity is one scheduled item of a day plan.
type Activity struct {
	Time        string `json:"time,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`
}

// Meal is a dining suggestion of a day plan.
type Meal struct {
	Type  string `json:"type"`
	Place string `json:"place,omitempty"`
	Notes string `json:"notes,omitempty"`
}

// DayPlan is one itinerary entry.
type DayPlan struct {
	Day           int        `json:"day"`
	Date          time.Time  `json:"date"`
	Activities    []Activity `json:"activities"`
	Meals         []Meal     `json:"meals"`
	Accommodation string     `json:"accommodation,omitempty"`
	Notes         string     `json:"notes,omitempty"`
}

// ValidateItinerary checks day contiguity from 1 and date = start + (day-1).
func ValidateItinerary(days []DayPlan) error {
	if len(days) == 0 {
		return nil
	}
	start := DateOnly(days[0].Date)
	for i, d := range days {
		if d.Day != i+1 {
			return fmt.Errorf("%w: itinerary day %d at position %d", ErrInvalidState, d.Day, i)
		}
		if !DateOnly(d.Date).Equal(start.AddDate(0, 0, i)) {
			return fmt.Errorf("%w: itinerary day %d has date %s", ErrInvalidState, d.Day, d.Date.Format(DateLayout))
		}
	}
	return nil
}

// Category is one of the fixed recommendation categories.
type Category string

const (
	CategoryFlights        Category = "flights"
	CategoryHotels         Category = "hotels"
	CategoryActivities     Category = "activities"
	CategoryRestaurants    Category = "restaurants"
	CategoryTransportation Category = "transportation"
)

// Categories lists the recommendation categories in display order.
var Categories = []Category{
	CategoryFlights,
	CategoryHotels,
	CategoryActivities,
	CategoryRestaurants,
	CategoryTransportation,
}

// Recommendation is one suggested option.
type Recommendation struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Price       string  `json:"price,omitempty"`
	Rating      float64 `json:"rating,omitempty"`
	Location    string  `json:"location,omitempty"`
}

// Recommendations maps every category to an ordered list of options.
type Recommendations map[Category][]Recommendation

// NewRecommendations returns a mapping with all categories present and empty.
func NewRecommendations() Recommendations {
	r := make(Recommendations, len(Categories))
	for _, c := range Categories {
		r[c] = []Recommendation{}
	}
	return r
}

// Complete returns a copy holding exactly the fixed categories.
func (r Recommendations) Complete() Recommendations {
	out := NewRecommendations()
	for _, c := range Categories {
		if items := r[c]; len(items) > 0 {
			out[c] = append([]Recommendation{}, items...)
		}
	}
	return out
}

// Total counts options over all categories.
func (r Recommendations) Total() int {
	n := 0
	for _, items := range r {
		n += len(items)
	}
	return n
}

// BookingStatus is the lifecycle status of a booking record.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingModified  BookingStatus = "modified"
)

// Money is an amount in a currency.
type Money struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

func (m Money) String() string {
	return fmt.Sprintf("%.2f %s", m.Amount, m.Currency)
}

// Booking is a booking-result record.
type Booking struct {
	Reference   string        `json:"reference"`
	QuoteID     string        `json:"quote_id,omitempty"`
	Type        string        `json:"type"`
	Status      BookingStatus `json:"status"`
	Description string        `json:"description"`
	Total       Money         `json:"total"`
	Details     string        `json:"details,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// PendingBooking tracks a presented booking summary awaiting the traveler's answer.
type PendingBooking struct {
	Quote Quote `json:"quote"`
	// SummaryIndex is the position of the assistant summary in Messages.
	SummaryIndex int `json:"summary_index"`
	// BookingIndex is the position of the pending record in Bookings.
	BookingIndex int `json:"booking_index"`
}

// ToolResult is structured handler output attached to the turn's reply.
type ToolResult struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// TurnSummary is per-turn scratch data; it is never persisted.
type TurnSummary struct {
	ID                string
	StartMessageIndex int
	Path              []string
	ToolResults       []ToolResult
}

// ConversationState is the single mutable aggregate of one conversation.
type ConversationState struct {
	ConversationID string            `json:"conversation_id"`
	Messages       []*schema.Message `json:"messages"`

	CurrentIntent Intent `json:"current_intent,omitempty"`
	PendingIntent Intent `json:"pending_intent,omitempty"`
	CurrentAgent  string `json:"current_agent,omitempty"`

	TripDetails     TripDetails     `json:"trip_details"`
	Preferences     Preferences     `json:"user_preferences"`
	Itinerary       []DayPlan       `json:"itinerary"`
	Recommendations Recommendations `json:"recommendations,omitempty"`
	Bookings        []Booking       `json:"bookings"`
	PendingBooking  *PendingBooking `json:"pending_booking,omitempty"`

	RetrievedContext []string `json:"retrieved_context"`

	RetryCount int    `json:"retry_count"`
	LastError  string `json:"last_error,omitempty"`

	NeedsMoreInfo        bool `json:"needs_more_info"`
	ReadyToBook          bool `json:"ready_to_book"`
	ConversationComplete bool `json:"conversation_complete"`

	// HandledTurns holds the most recent completed turns, oldest first.
	HandledTurns []HandledTurn `json:"handled_turns,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Turn TurnSummary `json:"-"`
}

// MaxHandledTurns bounds the turn ids remembered for replay.
const MaxHandledTurns = 20

// HandledTurn is the stored outcome of a completed turn.
type HandledTurn struct {
	TurnID string     `json:"turn_id"`
	Result TurnResult `json:"result"`
}

// RememberTurn records res under its turn id, replacing an older entry with
// the same id and dropping the oldest beyond MaxHandledTurns.
func (s *ConversationState) RememberTurn(res TurnResult) {
	if res.TurnID == "" {
		return
	}
	turns := lo.Reject(s.HandledTurns, func(h HandledTurn, _ int) bool { return h.TurnID == res.TurnID })
	turns = append(turns, HandledTurn{TurnID: res.TurnID, Result: res})
	if n := len(turns) - MaxHandledTurns; n > 0 {
		turns = turns[n:]
	}
	s.HandledTurns = turns
}

// HandledTurn returns the stored result of a completed turn.
func (s *ConversationState) HandledTurn(turnID string) (TurnResult, bool) {
	h, ok := lo.Find(s.HandledTurns, func(h HandledTurn) bool { return h.TurnID == turnID })
	return h.Result, ok && turnID != ""
}

// NewConversationState creates the initial state for a conversation.
func NewConversationState(conversationID string) (*ConversationState, error) {
	if err := ValidateConversationID(conversationID); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &ConversationState{
		ConversationID:   conversationID,
		Messages:         []*schema.Message{},
		TripDetails:      TripDetails{NumTravelers: 1},
		Itinerary:        []DayPlan{},
		Bookings:         []Booking{},
		RetrievedContext: []string{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// ValidateConversationID checks the identifier is a UUID.
func ValidateConversationID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidConversationID, id)
	}
	return nil
}

// Validate checks the aggregate after it was reloaded from a store.
func (s *ConversationState) Validate() error {
	if err := ValidateConversationID(s.ConversationID); err != nil {
		return err
	}
	for i, m := range s.Messages {
		if m == nil || (m.Role != schema.User && m.Role != schema.Assistant) {
			return fmt.Errorf("%w: message %d has unsupported role", ErrInvalidState, i)
		}
	}
	if s.RetryCount < 0 {
		return fmt.Errorf("%w: negative retry count", ErrInvalidState)
	}
	if err := s.TripDetails.Validate(); err != nil {
		return err
	}
	return ValidateItinerary(s.Itinerary)
}

// BeginTurn resets per-turn fields before a new user message is processed.
func (s *ConversationState) BeginTurn(turnID string) {
	s.CurrentIntent = ""
	s.RetrievedContext = []string{}
	s.Turn = TurnSummary{ID: turnID, StartMessageIndex: len(s.Messages)}
}

// Reopen clears terminal flags so a finished conversation accepts new turns.
// Trip data, itinerary and bookings are kept.
func (s *ConversationState) Reopen() {
	s.ConversationComplete = false
	s.NeedsMoreInfo = false
	s.PendingIntent = ""
	s.RetryCount = 0
	s.LastError = ""
}

// AppendUserMessage appends a user message and returns its index.
func (s *ConversationState) AppendUserMessage(content string) int {
	s.Messages = append(s.Messages, schema.UserMessage(content))
	return len(s.Messages) - 1
}

// AppendAssistantMessage appends an assistant message and returns its index.
func (s *ConversationState) AppendAssistantMessage(content string) int {
	s.Messages = append(s.Messages, schema.AssistantMessage(content, nil))
	return len(s.Messages) - 1
}

// LatestUserMessage returns the content of the last user message.
func (s *ConversationState) LatestUserMessage() string {
	return s.latest(schema.User)
}

// LatestAssistantMessage returns the content of the last assistant message.
func (s *ConversationState) LatestAssistantMessage() string {
	return s.latest(schema.Assistant)
}

func (s *ConversationState) latest(role schema.RoleType) string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if m := s.Messages[i]; m != nil && m.Role == role {
			return m.Content
		}
	}
	return ""
}

// TurnMessages returns the messages appended since BeginTurn.
func (s *ConversationState) TurnMessages() []*schema.Message {
	if s.Turn.StartMessageIndex > len(s.Messages) {
		return nil
	}
	return s.Messages[s.Turn.StartMessageIndex:]
}

// AddToolResult attaches structured output to the current turn.
func (s *ConversationState) AddToolResult(kind string, data any) {
	s.Turn.ToolResults = append(s.Turn.ToolResults, ToolResult{Type: kind, Data: data})
}

// HasItinerary reports whether an itinerary exists.
func (s *ConversationState) HasItinerary() bool {
	return len(s.Itinerary) > 0
}

// HasRecommendations reports whether at least one recommendation exists.
func (s *ConversationState) HasRecommendations() bool {
	return s.Recommendations.Total() > 0
}

// DateLayout is the calendar date format used in prompts and messages.
const DateLayout = "2006-01-02"

// DateOnly truncates t to midnight UTC of its calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(DateOnly(b).Sub(DateOnly(a)).Hours() / 24)
}
