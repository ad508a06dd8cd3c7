package agents

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/samber/lo"

	"github.com/Chative-core-poc-v1/travel-concierge/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/travel-concierge/pkg/logger"
)

var bookingRefPattern = regexp.MustCompile(`(?i)\b(cancel|change|modify|update)\s+(?:my\s+|the\s+)?booking\s+#?([a-z0-9][a-z0-9-]{3,})`)

// Booker verifies and reserves bookings. A booking is only confirmed when
// the user explicitly agrees to a summary presented earlier in the history.
type Booker struct {
	provider model.BookingProvider
	now      func() time.Time
}

func NewBooker(provider model.BookingProvider) *Booker {
	return &Booker{provider: provider, now: time.Now}
}

func (b *Booker) Name() string { return AgentBooker }

func (b *Booker) Handle(ctx context.Context, st *model.ConversationState) error {
	msg := st.LatestUserMessage()
	if m := bookingRefPattern.FindStringSubmatch(msg); m != nil {
		return b.updateByReference(ctx, st, strings.ToLower(m[1]), strings.ToUpper(m[2]), msg)
	}
	if pb := st.PendingBooking; pb != nil && b.answersSummary(st, pb) {
		switch {
		case IsAffirmative(msg):
			return b.confirm(ctx, st, pb)
		case IsNegative(msg):
			return b.decline(st, pb)
		}
	}
	return b.quote(ctx, st)
}

// answersSummary reports whether the latest user message follows the
// presented summary.
func (b *Booker) answersSummary(st *model.ConversationState, pb *model.PendingBooking) bool {
	if pb.SummaryIndex < 0 || pb.SummaryIndex >= len(st.Messages) || st.Messages[pb.SummaryIndex].Role != schema.Assistant {
		return false
	}
	for i := len(st.Messages) - 1; i > pb.SummaryIndex; i-- {
		if st.Messages[i].Role == schema.User {
			return true
		}
	}
	return false
}

func (b *Booker) quote(ctx context.Context, st *model.ConversationState) error {
	req := bookingRequest(st)
	if len(req.Items) == 0 {
		return fmt.Errorf("%w: nothing to book", ErrInsufficientDetails)
	}
	q, err := b.provider.Quote(ctx, req)
	if err != nil {
		return fmt.Errorf("booking quote: %w", err)
	}

	now := b.now().UTC()
	if prev := st.PendingBooking; prev != nil {
		b.setStatus(st, prev.BookingIndex, model.BookingCancelled, "superseded by a new request")
	}
	st.Bookings = append(st.Bookings, model.Booking{
		Reference:   q.ID,
		QuoteID:     q.ID,
		Type:        "trip_package",
		Status:      model.BookingPending,
		Description: q.Description,
		Total:       q.Total,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	var sb strings.Builder
	fmt.Fprintf(&sb, "Here's your booking summary:\n\n**%s**\n", q.Description)
	for _, it := range q.Items {
		sb.WriteString("- " + it + "\n")
	}
	fmt.Fprintf(&sb, "\nTotal: %s for %d traveler(s). This quote is held until %s.\n\n", q.Total, req.NumTravelers, q.ExpiresAt.Format("2006-01-02 15:04 MST"))
	sb.WriteString(`Reply "yes" to confirm this booking or "no" to cancel it.`)
	idx := st.AppendAssistantMessage(sb.String())

	st.PendingBooking = &model.PendingBooking{Quote: q, SummaryIndex: idx, BookingIndex: len(st.Bookings) - 1}
	st.ReadyToBook = true
	st.AddToolResult(ToolResultBooking, st.Bookings[len(st.Bookings)-1])
	st.CurrentAgent = AgentBooker
	return nil
}

func (b *Booker) confirm(ctx context.Context, st *model.ConversationState, pb *model.PendingBooking) error {
	if pb.BookingIndex < 0 || pb.BookingIndex >= len(st.Bookings) {
		return fmt.Errorf("pending booking index %d out of range", pb.BookingIndex)
	}
	res, err := b.provider.Reserve(ctx, pb.Quote)
	if errors.Is(err, model.ErrQuoteExpired) {
		logx.Info().Str("conversation_id", st.ConversationID).Str("quote_id", pb.Quote.ID).Msg("quote expired, presenting a fresh one")
		return b.quote(ctx, st)
	}
	if err != nil {
		return fmt.Errorf("booking reserve: %w", err)
	}
	bk := &st.Bookings[pb.BookingIndex]
	bk.Reference = res.Reference
	bk.Status = model.BookingConfirmed
	bk.Total = res.Total
	bk.UpdatedAt = b.now().UTC()

	st.PendingBooking = nil
	st.ReadyToBook = false
	st.AppendAssistantMessage(fmt.Sprintf("Your booking is confirmed! Reference: **%s**. Total charged: %s.", res.Reference, res.Total))
	st.AddToolResult(ToolResultBooking, *bk)
	st.CurrentAgent = AgentBooker
	return nil
}

func (b *Booker) decline(st *model.ConversationState, pb *model.PendingBooking) error {
	b.setStatus(st, pb.BookingIndex, model.BookingCancelled, "declined by traveler")
	st.PendingBooking = nil
	st.ReadyToBook = false
	st.AppendAssistantMessage("No problem, I won't book that. Let me know if you'd like to change anything.")
	st.CurrentAgent = AgentBooker
	return nil
}

func (b *Booker) updateByReference(ctx context.Context, st *model.ConversationState, action, ref, msg string) error {
	idx := FindBooking(st, ref)
	if idx < 0 {
		logx.Warn().Str("conversation_id", st.ConversationID).Str("reference", ref).Msg("unknown booking reference")
		st.AppendAssistantMessage(fmt.Sprintf("I couldn't find a booking with reference %s. Please check the reference and try again.", ref))
		st.CurrentAgent = AgentBooker
		return nil
	}
	if action == "cancel" {
		if _, err := CancelBooking(ctx, b.provider, st, ref, b.now()); err != nil {
			return err
		}
		st.AppendAssistantMessage(fmt.Sprintf("Booking %s has been cancelled.", ref))
	} else {
		b.setStatus(st, idx, model.BookingModified, msg)
		st.AppendAssistantMessage(fmt.Sprintf("I've noted your change request for booking %s. Our team will follow up with the updated details.", ref))
	}
	st.AddToolResult(ToolResultBooking, st.Bookings[idx])
	st.CurrentAgent = AgentBooker
	return nil
}

func (b *Booker) setStatus(st *model.ConversationState, idx int, status model.BookingStatus, details string) {
	if idx < 0 || idx >= len(st.Bookings) {
		return
	}
	st.Bookings[idx].Status = status
	st.Bookings[idx].Details = details
	st.Bookings[idx].UpdatedAt = b.now().UTC()
}

// FindBooking returns the index of the booking with ref, or -1.
func FindBooking(st *model.ConversationState, ref string) int {
	_, idx, ok := lo.FindIndexOf(st.Bookings, func(bk model.Booking) bool {
		return strings.EqualFold(bk.Reference, ref)
	})
	if !ok {
		return -1
	}
	return idx
}

// CancelBooking cancels a booking at the provider and marks it cancelled.
// Unknown references return model.ErrBookingNotFound.
func CancelBooking(ctx context.Context, provider model.BookingProvider, st *model.ConversationState, ref string, now time.Time) (*model.Booking, error) {
	idx := FindBooking(st, ref)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", model.ErrBookingNotFound, ref)
	}
	bk := &st.Bookings[idx]
	if bk.Status == model.BookingCancelled {
		return bk, nil
	}
	if bk.Status != model.BookingPending {
		if err := provider.Cancel(ctx, bk.Reference); err != nil && !errors.Is(err, model.ErrBookingNotFound) {
			return nil, fmt.Errorf("booking cancel: %w", err)
		}
	}
	bk.Status = model.BookingCancelled
	bk.UpdatedAt = now.UTC()
	if st.PendingBooking != nil && st.PendingBooking.BookingIndex == idx {
		st.PendingBooking = nil
		st.ReadyToBook = false
	}
	return bk, nil
}

func bookingRequest(st *model.ConversationState) model.BookingRequest {
	td := st.TripDetails
	req := model.BookingRequest{
		ConversationID: st.ConversationID,
		Destination:    td.Destination,
		DurationDays:   td.DurationDays,
		NumTravelers:   max(td.NumTravelers, 1),
	}
	if td.StartDate != nil {
		req.StartDate = *td.StartDate
	}
	if st.HasItinerary() {
		req.DurationDays = len(st.Itinerary)
		req.Items = append(req.Items, fmt.Sprintf("%d-day itinerary in %s", len(st.Itinerary), lo.Ternary(td.Destination != "", td.Destination, "your destination")))
	}
	for _, c := range model.Categories {
		if items := st.Recommendations[c]; len(items) > 0 {
			req.Items = append(req.Items, fmt.Sprintf("%s: %s", titleCase(string(c)), items[0].Name))
		}
	}
	return req
}
