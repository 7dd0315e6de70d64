// Package pricing computes what a payment form charges: per-item and cart
// subtotals, discounts, inclusive and exclusive tax split across several
// rates, fee recovery, and the due-today versus next-invoice totals of
// subscriptions. All amounts are integers in minor currency units.
//
// A Cart is not safe for concurrent use; callers serialize access.
package pricing

import (
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// CartArgs are the fields accepted by NewCart and Cart.Update. Nil fields are
// left unchanged; TaxRates replaces the current rates only when non-nil.
type CartArgs struct {
	Currency             *string               `json:"currency,omitempty" validate:"omitnil,len=3,alpha"`
	TaxPercent           *float64              `json:"taxPercent,omitempty" validate:"omitnil,gte=0,lte=100"`
	TaxRates             []TaxRate             `json:"taxRates,omitempty" validate:"omitnil,unique=ID,dive"`
	TaxStatus            *TaxStatus            `json:"taxStatus,omitempty" validate:"omitnil,oneof=fixed-global automatic none"`
	TaxBehavior          *Calculation          `json:"taxBehavior,omitempty" validate:"omitnil,oneof=inclusive exclusive"`
	AutomaticTax         *AutomaticTax         `json:"automaticTax,omitempty"`
	Coupon               *Maybe[Coupon]        `json:"coupon,omitempty"`
	IsNonDecimalCurrency *bool                 `json:"isNonDecimalCurrency,omitempty"`
	PaymentMethod        *Maybe[PaymentMethod] `json:"paymentMethod,omitempty"`
	FeeRecoveryToggle    *FeeRecoveryToggle    `json:"feeRecoveryToggle,omitempty"`
}

// Option configures collaborators of a Cart.
type Option func(*Cart)

// WithLogger injects the logger used for debug output.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Cart) { c.log = l }
}

// Cart is the aggregate that owns the line items of one pricing context.
type Cart struct {
	log zerolog.Logger

	currency             string
	taxPercent           float64
	taxRates             []TaxRate
	taxStatus            TaxStatus
	taxBehavior          Calculation
	automaticTax         AutomaticTax
	coupon               *Coupon
	isNonDecimalCurrency bool
	paymentMethod        *PaymentMethod
	feeRecoveryToggle    FeeRecoveryToggle

	items []*LineItem
}

// NewCart returns an empty cart configured from args.
func NewCart(args CartArgs, opts ...Option) (*Cart, error) {
	c := newEmptyCart(zerolog.Nop())
	for _, opt := range opts {
		opt(c)
	}
	if _, err := c.Update(args); err != nil {
		return nil, err
	}
	return c, nil
}

func newEmptyCart(log zerolog.Logger) *Cart {
	return &Cart{
		log:         log,
		currency:    "usd",
		taxStatus:   TaxStatusFixedGlobal,
		taxBehavior: Exclusive,
	}
}

// Update validates args and, only if every field is valid, applies them.
// It returns the same cart for chaining.
func (c *Cart) Update(args CartArgs) (*Cart, error) {
	if err := checkStruct(args, cartFieldErrors); err != nil {
		c.log.Debug().Err(err).Msg("cart update rejected")
		return c, err
	}
	if args.Currency != nil {
		c.currency = strings.ToLower(*args.Currency)
	}
	if args.TaxPercent != nil {
		c.taxPercent = *args.TaxPercent
	}
	if args.TaxRates != nil {
		c.taxRates = append([]TaxRate(nil), args.TaxRates...)
	}
	if args.TaxStatus != nil {
		c.taxStatus = *args.TaxStatus
	}
	if args.TaxBehavior != nil {
		c.taxBehavior = *args.TaxBehavior
	}
	if args.AutomaticTax != nil {
		c.automaticTax = *args.AutomaticTax
	}
	if args.Coupon != nil {
		c.coupon = args.Coupon.V
	}
	if args.IsNonDecimalCurrency != nil {
		c.isNonDecimalCurrency = *args.IsNonDecimalCurrency
	}
	if args.PaymentMethod != nil {
		c.paymentMethod = args.PaymentMethod.V
	}
	if args.FeeRecoveryToggle != nil {
		c.feeRecoveryToggle = *args.FeeRecoveryToggle
	}
	c.log.Debug().
		Str("currency", c.currency).
		Int("tax_rates", len(c.taxRates)).
		Bool("coupon", c.coupon != nil).
		Msg("cart updated")
	return c, nil
}

// Reset discards all state and returns a brand-new empty cart sharing the
// same collaborators.
func (c *Cart) Reset() *Cart {
	c.log.Debug().Int("line_items", len(c.items)).Msg("cart reset")
	return newEmptyCart(c.log)
}

// Currency returns the lower-case currency code.
func (c *Cart) Currency() string { return c.currency }

// IsNonDecimalCurrency reports whether the currency has no minor unit.
func (c *Cart) IsNonDecimalCurrency() bool { return c.isNonDecimalCurrency }

// TaxStatus returns the configured tax status.
func (c *Cart) TaxStatus() TaxStatus { return c.taxStatus }

// TaxBehavior returns the configured tax behavior.
func (c *Cart) TaxBehavior() Calculation { return c.taxBehavior }

// TaxRates returns a copy of the configured tax rates.
func (c *Cart) TaxRates() []TaxRate { return append([]TaxRate(nil), c.taxRates...) }

// Coupon returns the applied coupon or nil.
func (c *Cart) Coupon() *Coupon { return c.coupon }

// LegacyTaxPercent returns the single global tax percent kept for forms that
// predate named tax rates.
func (c *Cart) LegacyTaxPercent() float64 { return c.taxPercent }

// AddLineItem validates args and appends a new line item.
func (c *Cart) AddLineItem(args LineItemArgs) (*LineItem, error) {
	item, err := NewLineItem(c, args)
	if err != nil {
		c.log.Debug().Err(err).Msg("line item rejected")
		return nil, err
	}
	if err := c.Add(item); err != nil {
		return nil, err
	}
	return item, nil
}

// Add appends an item created by NewLineItem for this cart.
func (c *Cart) Add(item *LineItem) error {
	if item == nil || item.cart != c {
		return ErrInvalidLineItemCart
	}
	if existing := c.find(item.id); existing != nil {
		if existing == item {
			return nil
		}
		return invalid(ErrInvalidLineItemID, "Line item %q already exists.", item.id)
	}
	if !c.fitsWith(item, item.gross()) {
		return invalid(ErrInvalidLineItemQuantity, "Cart subtotal must not exceed %d.", MaxSafeAmount)
	}
	c.items = append(c.items, item)
	c.log.Debug().Str("line_item", item.id).Int64("amount", item.amount).Int64("quantity", item.quantity).Msg("line item added")
	return nil
}

// LineItem returns the item with the given id.
func (c *Cart) LineItem(id string) (*LineItem, error) {
	if item := c.find(id); item != nil {
		return item, nil
	}
	return nil, invalid(ErrInvalidLineItem, "Line item %q not found.", id)
}

// LineItems returns the items in insertion order.
func (c *Cart) LineItems() []*LineItem {
	return append([]*LineItem(nil), c.items...)
}

// RemoveLineItem removes the item with the given id, if present.
func (c *Cart) RemoveLineItem(id string) {
	for i, item := range c.items {
		if item.id == id {
			c.items = append(c.items[:i], c.items[i+1:]...)
			c.log.Debug().Str("line_item", id).Msg("line item removed")
			return
		}
	}
}

func (c *Cart) find(id string) *LineItem {
	for _, item := range c.items {
		if item.id == id {
			return item
		}
	}
	return nil
}

// HasFreeTrial reports whether any line item starts with a trial.
func (c *Cart) HasFreeTrial() bool {
	for _, item := range c.items {
		if item.HasFreeTrial() {
			return true
		}
	}
	return false
}

func (c *Cart) allInTrial() bool {
	if len(c.items) == 0 {
		return false
	}
	for _, item := range c.items {
		if !item.HasFreeTrial() {
			return false
		}
	}
	return true
}

// Subtotal sums the undiscounted amount of every item not in trial.
func (c *Cart) Subtotal() Money {
	var subtotal Money
	for _, item := range c.items {
		if item.HasFreeTrial() {
			continue
		}
		subtotal += item.gross()
	}
	return subtotal
}

// fitsWith reports whether the gross amounts of every item, with skip's
// replaced by gross, sum to at most MaxSafeAmount.
func (c *Cart) fitsWith(skip *LineItem, gross Money) bool {
	sum := gross
	for _, item := range c.items {
		if item == skip {
			continue
		}
		sum += item.gross()
		if sum > MaxSafeAmount {
			return false
		}
	}
	return sum <= MaxSafeAmount
}

// Discount returns the coupon reduction on Subtotal, never more than Subtotal.
func (c *Cart) Discount() Money {
	if c.coupon == nil {
		return 0
	}
	subtotal := c.Subtotal()
	discount := c.coupon.DiscountOn(subtotal)
	if discount > subtotal {
		return subtotal
	}
	return discount
}

// TaxPercent sums the percentage of every rate with the given calculation.
func (c *Cart) TaxPercent(calc Calculation) float64 {
	return sumPercentage(ratesFor(c.taxRates, calc))
}

func (c *Cart) effectiveTaxPercent(calc Calculation) float64 {
	if c.taxStatus == TaxStatusNone {
		return 0
	}
	return c.TaxPercent(calc)
}

// AppliedTaxRates returns, per tax rate id, the amount each non-trial line
// item owes to that rate, in line item order. For every line item the
// exclusive allocations sum to its Tax and the inclusive allocations sum to
// its InclusiveTaxAmount.
func (c *Cart) AppliedTaxRates() map[string][]Money {
	applied := make(map[string][]Money, len(c.taxRates))
	exclusive := ratesFor(c.taxRates, Exclusive)
	inclusive := ratesFor(c.taxRates, Inclusive)
	for _, item := range c.items {
		if item.HasFreeTrial() {
			continue
		}
		allocateInto(applied, exclusive, item.Tax())
		allocateInto(applied, inclusive, item.InclusiveTaxAmount())
	}
	return applied
}

// AppliedTaxTotals sums AppliedTaxRates per rate.
func (c *Cart) AppliedTaxTotals() map[string]Money {
	totals := make(map[string]Money, len(c.taxRates))
	for id, amounts := range c.AppliedTaxRates() {
		var sum Money
		for _, a := range amounts {
			sum += a
		}
		totals[id] = sum
	}
	return totals
}

// Tax sums the exclusive tax of every non-trial item. Inclusive tax is part
// of the subtotal already.
func (c *Cart) Tax() Money {
	if c.taxStatus == TaxStatusNone {
		return 0
	}
	var tax Money
	for _, item := range c.items {
		if item.HasFreeTrial() {
			continue
		}
		tax += item.Tax()
	}
	return tax
}

// Total sums every item's Total and, unless disabled, adds fee recovery.
func (c *Cart) Total(opts ...TotalOption) Money {
	var total Money
	for _, item := range c.items {
		total += item.Total()
	}
	return c.withFeeRecovery(total, newTotalOptions(opts))
}

// TotalDueToday is the amount charged immediately: items in trial are
// skipped and, when the gateway computes tax, its tax figure is included.
func (c *Cart) TotalDueToday(opts ...TotalOption) Money {
	var total Money
	if c.taxStatus == TaxStatusAutomatic && !c.allInTrial() {
		total = c.automaticTax.AmountTax
	}
	for _, item := range c.items {
		if item.HasFreeTrial() {
			continue
		}
		total += item.Total()
	}
	return c.withFeeRecovery(total, newTotalOptions(opts))
}

// RecurringTotal is the first recurring invoice of the base item, reduced
// by the cart discount.
func (c *Cart) RecurringTotal(opts ...TotalOption) (Money, error) {
	base, err := c.LineItem(BaseLineItemID)
	if err != nil {
		return 0, err
	}
	subtotal := base.gross() - c.Discount()
	return c.recurringTotal(subtotal, nil, newTotalOptions(opts)), nil
}

// RecurringNoDiscountTotal is RecurringTotal without any coupon.
func (c *Cart) RecurringNoDiscountTotal(opts ...TotalOption) (Money, error) {
	base, err := c.LineItem(BaseLineItemID)
	if err != nil {
		return 0, err
	}
	return c.recurringTotal(base.gross(), c.upcomingInvoiceTax(), newTotalOptions(opts)), nil
}

// NextInvoiceTotal is the invoice after the first one. It carries the same
// cart discount as RecurringTotal unless the coupon only applies once.
func (c *Cart) NextInvoiceTotal(opts ...TotalOption) (Money, error) {
	base, err := c.LineItem(BaseLineItemID)
	if err != nil {
		return 0, err
	}
	subtotal := base.gross()
	if c.coupon.AppliesToNextInvoice() {
		subtotal -= c.Discount()
	}
	return c.recurringTotal(subtotal, c.upcomingInvoiceTax(), newTotalOptions(opts)), nil
}

// upcomingInvoiceTax returns the gateway's tax for the next invoice when the
// gateway owns tax and prices exclude it.
func (c *Cart) upcomingInvoiceTax() *Money {
	if c.taxStatus != TaxStatusAutomatic || c.taxBehavior != Exclusive {
		return nil
	}
	var tax Money
	if c.automaticTax.UpcomingInvoice != nil {
		tax = c.automaticTax.UpcomingInvoice.AmountTax
	}
	return &tax
}

func (c *Cart) recurringTotal(subtotal Money, taxOverride *Money, o totalOptions) Money {
	if subtotal < 0 {
		subtotal = 0
	}
	var tax Money
	if taxOverride != nil {
		tax = *taxOverride
	} else {
		taxable := subtotal - inclusiveTaxOf(subtotal, c.effectiveTaxPercent(Inclusive))
		tax = exclusiveTaxOf(taxable, c.effectiveTaxPercent(Exclusive))
	}
	return c.withFeeRecovery(subtotal+tax, o)
}

// FeeRecoveryForAmount returns the unrounded surcharge that lets the
// merchant net amount after the selected payment method's fees. It is zero
// when no payment method is selected, fee recovery is disabled, or the form
// offers a fee recovery checkbox that is not ticked.
func (c *Cart) FeeRecoveryForAmount(amount Money) decimal.Decimal {
	pm := c.paymentMethod
	if pm == nil || pm.FeeRecovery == nil || !bool(pm.FeeRecovery.Enabled) {
		return decimal.Zero
	}
	if c.feeRecoveryToggle.Present && !c.feeRecoveryToggle.Checked {
		return decimal.Zero
	}
	return SolveFeeRecovery(amount, pm.FeeRecovery.Amount, pm.FeeRecovery.Percent)
}

func (c *Cart) withFeeRecovery(total Money, o totalOptions) Money {
	if !o.includeFeeRecovery || total <= 0 {
		return total
	}
	return total + roundMinor(c.FeeRecoveryForAmount(total))
}
