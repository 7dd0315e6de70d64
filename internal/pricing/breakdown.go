package pricing

import "errors"

// LineBreakdown is the computed view of one line item.
type LineBreakdown struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	UnitPrice    Money  `json:"unitPrice"`
	Quantity     int64  `json:"quantity"`
	Discount     Money  `json:"discount"`
	Subtotal     Money  `json:"subtotal"`
	InclusiveTax Money  `json:"inclusiveTax"`
	Tax          Money  `json:"tax"`
	Total        Money  `json:"total"`
	HasFreeTrial bool   `json:"hasFreeTrial"`
	IsRecurring  bool   `json:"isRecurring"`
}

// Breakdown gathers every figure a payment form or gateway request needs.
// Recurring figures are nil when the cart has no base line item.
type Breakdown struct {
	Currency                 string             `json:"currency"`
	IsNonDecimalCurrency     bool               `json:"isNonDecimalCurrency"`
	Subtotal                 Money              `json:"subtotal"`
	Discount                 Money              `json:"discount"`
	Tax                      Money              `json:"tax"`
	Total                    Money              `json:"total"`
	TotalDueToday            Money              `json:"totalDueToday"`
	FeeRecovery              Money              `json:"feeRecovery"`
	RecurringTotal           *Money             `json:"recurringTotal,omitempty"`
	RecurringNoDiscountTotal *Money             `json:"recurringNoDiscountTotal,omitempty"`
	NextInvoiceTotal         *Money             `json:"nextInvoiceTotal,omitempty"`
	HasFreeTrial             bool               `json:"hasFreeTrial"`
	AppliedTaxRates          map[string][]Money `json:"appliedTaxRates"`
	LineItems                []LineBreakdown    `json:"lineItems"`
}

// Breakdown computes the full set of totals with fee recovery applied where
// the payment method asks for it.
func (c *Cart) Breakdown() (Breakdown, error) {
	b := Breakdown{
		Currency:             c.currency,
		IsNonDecimalCurrency: c.isNonDecimalCurrency,
		Subtotal:             c.Subtotal(),
		Discount:             c.Discount(),
		Tax:                  c.Tax(),
		Total:                c.Total(),
		TotalDueToday:        c.TotalDueToday(),
		HasFreeTrial:         c.HasFreeTrial(),
		AppliedTaxRates:      c.AppliedTaxRates(),
		LineItems:            make([]LineBreakdown, 0, len(c.items)),
	}
	b.FeeRecovery = b.TotalDueToday - c.TotalDueToday(WithoutFeeRecovery())

	recurring, err := c.RecurringTotal()
	switch {
	case err == nil:
		noDiscount, err := c.RecurringNoDiscountTotal()
		if err != nil {
			return Breakdown{}, err
		}
		next, err := c.NextInvoiceTotal()
		if err != nil {
			return Breakdown{}, err
		}
		b.RecurringTotal = &recurring
		b.RecurringNoDiscountTotal = &noDiscount
		b.NextInvoiceTotal = &next
	case !errors.Is(err, ErrInvalidLineItem):
		return Breakdown{}, err
	}

	for _, item := range c.items {
		b.LineItems = append(b.LineItems, LineBreakdown{
			ID:           item.id,
			Title:        item.title,
			UnitPrice:    item.amount,
			Quantity:     item.quantity,
			Discount:     item.Discount(),
			Subtotal:     item.Subtotal(),
			InclusiveTax: item.InclusiveTaxAmount(),
			Tax:          item.Tax(),
			Total:        item.Total(),
			HasFreeTrial: item.HasFreeTrial(),
			IsRecurring:  item.IsRecurring(),
		})
	}
	return b, nil
}
