package agents

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Chative-core-poc-v1/travel-concierge/internal/agent/model"
)

const testConversationID = "7f1d0c1e-2b4c-4b8e-9a55-0d3c2a6f9e11"

var (
	june1       = time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	errUpstream = errors.New("upstream unavailable")
)

// scriptedCompleter returns canned outputs in order and records prompts.
type scriptedCompleter struct {
	outputs []string
	err     error
	prompts []string
	opts    []model.CompletionOptions
}

func (c *scriptedCompleter) Complete(_ context.Context, prompt string, opts model.CompletionOptions) (string, error) {
	c.prompts = append(c.prompts, prompt)
	c.opts = append(c.opts, opts)
	if c.err != nil {
		return "", c.err
	}
	if len(c.outputs) == 0 {
		return "", nil
	}
	out := c.outputs[0]
	c.outputs = c.outputs[1:]
	return out, nil
}

// blockingCompleter waits for its context and reports whether it had a deadline.
type blockingCompleter struct {
	hadDeadline bool
}

func (c *blockingCompleter) Complete(ctx context.Context, _ string, _ model.CompletionOptions) (string, error) {
	_, c.hadDeadline = ctx.Deadline()
	<-ctx.Done()
	return "", ctx.Err()
}

type fakeProvider struct {
	quotes    int
	reserves  int
	cancelled []string
	quoteErr  error
}

func (p *fakeProvider) Quote(_ context.Context, req model.BookingRequest) (model.Quote, error) {
	if p.quoteErr != nil {
		return model.Quote{}, p.quoteErr
	}
	p.quotes++
	return model.Quote{
		ID:          fmt.Sprintf("Q-%04d", p.quotes),
		Description: "Trip to " + req.Destination,
		Items:       req.Items,
		Total:       model.Money{Amount: 100 * float64(req.NumTravelers), Currency: "USD"},
		ExpiresAt:   june1,
	}, nil
}

func (p *fakeProvider) Reserve(_ context.Context, q model.Quote) (model.Reservation, error) {
	p.reserves++
	return model.Reservation{Reference: "BK-" + strings.TrimPrefix(q.ID, "Q-"), QuoteID: q.ID, Total: q.Total}, nil
}

func (p *fakeProvider) Cancel(_ context.Context, ref string) error {
	p.cancelled = append(p.cancelled, ref)
	return nil
}

type fakeSearcher struct {
	docs  []model.Document
	err   error
	calls int
}

func (s *fakeSearcher) Search(ctx context.Context, _ string, k int, _ model.Filters) ([]model.Document, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(s.docs) > k {
		return s.docs[:k], nil
	}
	return s.docs, nil
}

func newState(t *testing.T) *model.ConversationState {
	t.Helper()
	st, err := model.NewConversationState(testConversationID)
	require.NoError(t, err)
	return st
}

func plannedState(t *testing.T, days int) *model.ConversationState {
	t.Helper()
	st := newState(t)
	start := june1
	st.TripDetails.Merge(model.TripDetails{Destination: "Paris", StartDate: &start, DurationDays: days})
	return st
}
