package quote

import "github.com/noah-isme/checkout-pricing/internal/pricing"

// Request is the payment form configuration a quote is computed from.
type Request struct {
	pricing.CartArgs
	LineItems []pricing.LineItemArgs `json:"lineItems"`
}

// Quote is the computed result returned to the form.
type Quote struct {
	QuoteID string `json:"quoteId"`
	pricing.Breakdown
	Formatted map[string]string `json:"formatted,omitempty"`
}
