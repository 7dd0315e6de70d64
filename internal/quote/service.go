// Package quote exposes the pricing engine as a stateless HTTP service: each
// request carries a full form configuration, a Cart is built from it, and
// the computed totals are returned.
package quote

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/checkout-pricing/internal/common"
	"github.com/noah-isme/checkout-pricing/internal/currency"
	"github.com/noah-isme/checkout-pricing/internal/obs"
	"github.com/noah-isme/checkout-pricing/internal/pricing"
)

const (
	codeTooManyLineItems = "too-many-line-items"
	codeEmptyQuote       = "empty-quote"
)

// FormatFunc renders a minor-unit amount for display.
type FormatFunc func(amount int64, code string) (string, error)

// ZeroDecimalFunc reports whether a currency has no minor unit.
type ZeroDecimalFunc func(code string) bool

// Service builds quotes.
type Service struct {
	DefaultCurrency string
	MaxLineItems    int
	Logger          zerolog.Logger
	Format          FormatFunc
	IsZeroDecimal   ZeroDecimalFunc
	NewID           func() string
}

// NewService returns a Service using the ISO 4217 display helpers.
func NewService(defaultCurrency string, maxLineItems int, logger zerolog.Logger) *Service {
	return &Service{
		DefaultCurrency: defaultCurrency,
		MaxLineItems:    maxLineItems,
		Logger:          logger,
		Format:          currency.Format,
		IsZeroDecimal:   currency.IsZeroDecimal,
		NewID:           func() string { return uuid.NewString() },
	}
}

// Build validates req, assembles a cart from it and computes every total.
func (s *Service) Build(ctx context.Context, req Request) (Quote, error) {
	_, span := otel.Tracer("quote.Service").Start(ctx, "QuoteService.Build")
	defer span.End()
	span.SetAttributes(attribute.Int("quote.line_items", len(req.LineItems)))

	q, err := s.build(req)
	result := "ok"
	if err != nil {
		result = "invalid"
		span.RecordError(err)
		span.SetStatus(codes.Error, "quote rejected")
	} else {
		span.SetAttributes(
			attribute.String("quote.id", q.QuoteID),
			attribute.String("quote.currency", q.Currency),
			attribute.Int64("quote.total_due_today", q.TotalDueToday),
		)
	}
	span.SetAttributes(attribute.String("quote.result", result))
	obs.RecordQuote(ctx, q.QuoteID, result)
	obs.ObserveQuote(result, len(req.LineItems), q.Currency, q.TotalDueToday)
	return q, err
}

func (s *Service) build(req Request) (Quote, error) {
	if len(req.LineItems) == 0 {
		return Quote{}, common.Unprocessable(codeEmptyQuote, "at least one line item is required", nil)
	}
	if s.MaxLineItems > 0 && len(req.LineItems) > s.MaxLineItems {
		return Quote{}, common.Unprocessable(codeTooManyLineItems,
			fmt.Sprintf("a quote may carry at most %d line items", s.MaxLineItems), nil)
	}

	args := req.CartArgs
	if args.Currency == nil && s.DefaultCurrency != "" {
		code := s.DefaultCurrency
		args.Currency = &code
	}
	if args.IsNonDecimalCurrency == nil && args.Currency != nil && s.IsZeroDecimal != nil {
		zero := s.IsZeroDecimal(*args.Currency)
		args.IsNonDecimalCurrency = &zero
	}

	cart, err := pricing.NewCart(args, pricing.WithLogger(s.Logger))
	if err != nil {
		return Quote{}, validationError(err)
	}
	for _, item := range req.LineItems {
		if _, err := cart.AddLineItem(item); err != nil {
			return Quote{}, validationError(err)
		}
	}
	breakdown, err := cart.Breakdown()
	if err != nil {
		return Quote{}, validationError(err)
	}

	q := Quote{QuoteID: s.NewID(), Breakdown: breakdown, Formatted: s.formatted(breakdown)}
	s.Logger.Info().
		Str("quote_id", q.QuoteID).
		Str("currency", q.Currency).
		Int("line_items", len(q.LineItems)).
		Int64("total_due_today", q.TotalDueToday).
		Msg("quote computed")
	return q, nil
}

func (s *Service) formatted(b pricing.Breakdown) map[string]string {
	if s.Format == nil {
		return nil
	}
	amounts := map[string]pricing.Money{
		"subtotal":      b.Subtotal,
		"discount":      b.Discount,
		"tax":           b.Tax,
		"total":         b.Total,
		"totalDueToday": b.TotalDueToday,
		"feeRecovery":   b.FeeRecovery,
	}
	if b.RecurringTotal != nil {
		amounts["recurringTotal"] = *b.RecurringTotal
		amounts["recurringNoDiscountTotal"] = *b.RecurringNoDiscountTotal
		amounts["nextInvoiceTotal"] = *b.NextInvoiceTotal
	}
	out := make(map[string]string, len(amounts))
	for key, amount := range amounts {
		text, err := s.Format(amount, b.Currency)
		if err != nil {
			s.Logger.Debug().Err(err).Str("currency", b.Currency).Msg("quote amounts left unformatted")
			return nil
		}
		out[key] = text
	}
	return out
}

// validationError converts engine validation failures into 422 responses
// carrying the engine's reason code.
func validationError(err error) error {
	var verr *pricing.ValidationError
	if errors.As(err, &verr) {
		return common.Unprocessable(verr.ID, verr.Message, err)
	}
	return err
}

// fieldValidationError maps a JSON decoding failure on the given field path
// to the matching engine reason code.
func fieldValidationError(field string) *pricing.ValidationError {
	if rest, ok := strings.CutPrefix(field, "lineItems."); ok {
		return pricing.LineItemFieldError(rest)
	}
	if field == "lineItems" {
		return pricing.ErrInvalidLineItem
	}
	return pricing.CartFieldError(field)
}
