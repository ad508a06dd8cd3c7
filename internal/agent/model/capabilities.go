package model

import (
	"context"
	"errors"
	"time"
)

// ================ Completion ================

// CompletionOptions tunes a single completion call. Zero values defer to the
// completer's configured defaults.
type CompletionOptions struct {
	Temperature *float32
	MaxTokens   int
	// Model selects a configured model profile ("classifier" or "generation").
	Model string
}

// Completer turns a prompt into text.
type Completer interface {
	Complete(ctx context.Context, prompt string, opts CompletionOptions) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, prompt string, opts CompletionOptions) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, prompt string, opts CompletionOptions) (string, error) {
	return f(ctx, prompt, opts)
}

const (
	ModelProfileClassifier = "classifier"
	ModelProfileGeneration = "generation"
)

// ================ Retrieval ================

// Document is a ranked knowledge-base hit.
type Document struct {
	ID          string   `json:"id" yaml:"id"`
	Title       string   `json:"title" yaml:"title"`
	Content     string   `json:"content" yaml:"content"`
	Destination string   `json:"destination,omitempty" yaml:"destination"`
	Category    string   `json:"category,omitempty" yaml:"category"`
	Tags        []string `json:"tags,omitempty" yaml:"tags"`
	Score       float64  `json:"score,omitempty" yaml:"-"`
}

// Filters narrows a search.
type Filters struct {
	Destination string
	Interests   []string
}

// Searcher performs similarity search over destination knowledge.
type Searcher interface {
	Search(ctx context.Context, query string, k int, filters Filters) ([]Document, error)
}

// ================ Booking ================

var (
	ErrBookingNotFound = errors.New("booking reference not found")
	ErrQuoteExpired    = errors.New("booking quote expired")
)

// BookingRequest describes what the traveler wants to book.
type BookingRequest struct {
	ConversationID string    `json:"conversation_id"`
	Destination    string    `json:"destination"`
	StartDate      time.Time `json:"start_date,omitempty"`
	DurationDays   int       `json:"duration_days"`
	NumTravelers   int       `json:"num_travelers"`
	Items          []string  `json:"items"`
}

// Quote is a verified, priced offer that can be reserved.
type Quote struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Items       []string  `json:"items"`
	Total       Money     `json:"total"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Reservation is a confirmed booking at the provider.
type Reservation struct {
	Reference string    `json:"reference"`
	QuoteID   string    `json:"quote_id"`
	Total     Money     `json:"total"`
	CreatedAt time.Time `json:"created_at"`
}

// BookingProvider verifies availability and reserves.
type BookingProvider interface {
	Quote(ctx context.Context, req BookingRequest) (Quote, error)
	Reserve(ctx context.Context, q Quote) (Reservation, error)
	Cancel(ctx context.Context, reference string) error
}
