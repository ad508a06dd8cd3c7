package booking

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/Chative-core-poc-v1/travel-concierge/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/travel-concierge/pkg/logger"
)

const (
	DefaultQuoteTTL = 30 * time.Minute
	currency        = "USD"
)

// StubProvider prices trips deterministically and keeps reservations in
// memory. It never talks to a real supplier.
type StubProvider struct {
	quotes       *cache.Cache
	reservations *cache.Cache
	quoteTTL     time.Duration
	now          func() time.Time
}

func NewStubProvider(quoteTTL time.Duration) *StubProvider {
	if quoteTTL <= 0 {
		quoteTTL = DefaultQuoteTTL
	}
	return &StubProvider{
		quotes:       cache.New(quoteTTL, 2*quoteTTL),
		reservations: cache.New(cache.NoExpiration, 0),
		quoteTTL:     quoteTTL,
		now:          time.Now,
	}
}

// Price returns the deterministic total for a request.
func Price(req model.BookingRequest) model.Money {
	days := max(req.DurationDays, 1)
	travelers := max(req.NumTravelers, 1)
	daily := 80 + float64(destinationHash(req.Destination)%120)
	transport := 150.0
	total := (daily*float64(days) + transport) * float64(travelers)
	return model.Money{Amount: math.Round(total*100) / 100, Currency: currency}
}

func (p *StubProvider) Quote(ctx context.Context, req model.BookingRequest) (model.Quote, error) {
	if err := ctx.Err(); err != nil {
		return model.Quote{}, err
	}
	if len(req.Items) == 0 {
		return model.Quote{}, fmt.Errorf("booking request has no items")
	}
	desc := "Travel package"
	if req.Destination != "" {
		desc = "Travel package to " + req.Destination
	}
	if !req.StartDate.IsZero() {
		desc += fmt.Sprintf(" from %s", req.StartDate.Format(model.DateLayout))
	}
	q := model.Quote{
		ID:          "Q-" + shortID(),
		Description: desc,
		Items:       append([]string{}, req.Items...),
		Total:       Price(req),
		ExpiresAt:   p.now().UTC().Add(p.quoteTTL),
	}
	p.quotes.SetDefault(q.ID, q)
	logx.Debug().Str("quote_id", q.ID).Str("total", q.Total.String()).Msg("booking quote issued")
	return q, nil
}

// Reserve accepts a quote that has not expired. Quotes issued by this
// process keep their original total.
func (p *StubProvider) Reserve(ctx context.Context, q model.Quote) (model.Reservation, error) {
	if err := ctx.Err(); err != nil {
		return model.Reservation{}, err
	}
	if p.now().After(q.ExpiresAt) {
		return model.Reservation{}, fmt.Errorf("%w: %s", model.ErrQuoteExpired, q.ID)
	}
	if cached, ok := p.quotes.Get(q.ID); ok {
		q = cached.(model.Quote)
	}
	res := model.Reservation{
		Reference: "TC-" + shortID(),
		QuoteID:   q.ID,
		Total:     q.Total,
		CreatedAt: p.now().UTC(),
	}
	p.reservations.SetDefault(res.Reference, res)
	p.quotes.Delete(q.ID)
	return res, nil
}

func (p *StubProvider) Cancel(ctx context.Context, reference string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ref := strings.ToUpper(reference)
	if _, ok := p.reservations.Get(ref); !ok {
		return fmt.Errorf("%w: %s", model.ErrBookingNotFound, reference)
	}
	p.reservations.Delete(ref)
	return nil
}

func destinationHash(destination string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(strings.TrimSpace(destination))))
	return h.Sum32()
}

func shortID() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
