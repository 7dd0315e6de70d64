package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// BaseLineItemID identifies the primary (possibly recurring) charge of a cart.
const BaseLineItemID = "base"

// Subscription describes the recurring behaviour of a line item.
type Subscription struct {
	IsTrial       bool   `json:"isTrial"`
	Interval      string `json:"interval" validate:"required,oneof=day week month year"`
	IntervalCount int64  `json:"intervalCount,omitempty" validate:"omitempty,gte=1"`
}

// PriceOption is the raw price option a line item was built from.
type PriceOption struct {
	ID        string          `json:"id,omitempty"`
	Recurring *RecurringPrice `json:"recurring,omitempty"`
}

// RecurringPrice holds the recurring part of a price option.
type RecurringPrice struct {
	Interval        string `json:"interval,omitempty"`
	IntervalCount   int64  `json:"interval_count,omitempty" validate:"gte=0"`
	TrialPeriodDays int    `json:"trial_period_days,omitempty" validate:"gte=0"`
}

// LineItemArgs are the fields accepted by AddLineItem and LineItem.Update.
// Nil fields are left unchanged.
type LineItemArgs struct {
	ID           *string              `json:"id,omitempty" validate:"omitnil,min=1"`
	Title        *string              `json:"title,omitempty" validate:"omitnil,min=1"`
	Amount       *Money               `json:"amount,omitempty" validate:"omitnil,gte=0,lte=9007199254740991"`
	Quantity     *int64               `json:"quantity,omitempty" validate:"omitnil,gte=1,lte=9007199254740991"`
	Subscription *Maybe[Subscription] `json:"subscription,omitempty"`
	Price        *PriceOption         `json:"price,omitempty"`
}

// LineItem is one priced component of a Cart. It keeps a non-owning
// reference to its cart to read the shared tax rates and coupon.
type LineItem struct {
	cart *Cart

	id           string
	title        string
	amount       Money
	quantity     int64
	subscription *Subscription
	price        *PriceOption
}

// NewLineItem validates args and returns a line item bound to c. The item is
// not part of the cart until it is passed to Cart.Add.
func NewLineItem(c *Cart, args LineItemArgs) (*LineItem, error) {
	if c == nil {
		return nil, ErrInvalidLineItemCart
	}
	if args.ID == nil {
		return nil, invalid(ErrInvalidLineItemID, "Line item id is required.")
	}
	if args.Title == nil {
		return nil, invalid(ErrInvalidLineItemTitle, "Line item title is required.")
	}
	if args.Amount == nil {
		return nil, invalid(ErrInvalidLineItemAmount, "Line item amount is required.")
	}
	item := &LineItem{cart: c, quantity: 1}
	if err := item.Update(args); err != nil {
		return nil, err
	}
	return item, nil
}

// Update validates every supplied field before committing any of them, so a
// failed update leaves the item untouched.
func (li *LineItem) Update(args LineItemArgs) error {
	if li.cart == nil {
		return ErrInvalidLineItemCart
	}
	if args.ID != nil && strings.TrimSpace(*args.ID) == "" {
		return ErrInvalidLineItemID
	}
	if args.Title != nil && strings.TrimSpace(*args.Title) == "" {
		return ErrInvalidLineItemTitle
	}
	if err := checkStruct(args, lineItemFieldErrors); err != nil {
		li.cart.log.Debug().Err(err).Str("line_item", li.id).Msg("line item update rejected")
		return err
	}
	if args.ID != nil && *args.ID != li.id {
		if existing := li.cart.find(*args.ID); existing != nil && existing != li {
			return invalid(ErrInvalidLineItemID, "Line item %q already exists.", *args.ID)
		}
	}
	amount, quantity := li.amount, li.quantity
	if args.Amount != nil {
		amount = *args.Amount
	}
	if args.Quantity != nil {
		quantity = *args.Quantity
	}
	gross, ok := safeProduct(amount, quantity)
	if !ok {
		return invalid(ErrInvalidLineItemQuantity, "Line item amount times quantity must not exceed %d.", MaxSafeAmount)
	}
	if !li.cart.fitsWith(li, gross) {
		return invalid(ErrInvalidLineItemQuantity, "Cart subtotal must not exceed %d.", MaxSafeAmount)
	}

	if args.ID != nil {
		li.id = *args.ID
	}
	if args.Title != nil {
		li.title = *args.Title
	}
	if args.Amount != nil {
		li.amount = *args.Amount
	}
	if args.Quantity != nil {
		li.quantity = *args.Quantity
	}
	if args.Subscription != nil {
		li.subscription = args.Subscription.V
		if li.subscription != nil && li.subscription.IntervalCount == 0 {
			sub := *li.subscription
			sub.IntervalCount = 1
			li.subscription = &sub
		}
	}
	if args.Price != nil {
		price := *args.Price
		li.price = &price
	}
	return nil
}

// ID returns the line item identifier.
func (li *LineItem) ID() string { return li.id }

// Title returns the display title.
func (li *LineItem) Title() string { return li.title }

// UnitPrice returns the unit amount in minor units.
func (li *LineItem) UnitPrice() Money { return li.amount }

// Quantity returns the quantity.
func (li *LineItem) Quantity() int64 { return li.quantity }

// Subscription returns the recurring settings, or nil for a one-time item.
func (li *LineItem) Subscription() *Subscription { return li.subscription }

// Price returns the raw price option, if any.
func (li *LineItem) Price() *PriceOption { return li.price }

// IsRecurring reports whether the item is billed on an interval.
func (li *LineItem) IsRecurring() bool { return li.subscription != nil }

// HasFreeTrial reports whether the item's price starts with a trial period.
func (li *LineItem) HasFreeTrial() bool {
	return li.price != nil && li.price.Recurring != nil && li.price.Recurring.TrialPeriodDays > 0
}

func (li *LineItem) contributesToDiscount() bool {
	return !li.HasFreeTrial() && li.amount != 0
}

// Discount returns this item's share of the cart discount. The cart
// discount is split evenly by count, not by price, across items that are
// not in trial and have a non-zero unit price.
func (li *LineItem) Discount() Money {
	total := li.cart.Discount()
	if total == 0 || !li.contributesToDiscount() {
		return 0
	}
	var contributing int64
	for _, item := range li.cart.items {
		if item.contributesToDiscount() {
			contributing++
		}
	}
	if contributing == 0 {
		return 0
	}
	return roundMinor(minor(total).Div(decimal.NewFromInt(contributing)))
}

// Subtotal returns the discounted amount of the item, including any
// inclusive tax. Items in trial have no subtotal.
func (li *LineItem) Subtotal() Money {
	if li.HasFreeTrial() {
		return 0
	}
	subtotal := li.gross() - li.Discount()
	if subtotal < 0 {
		return 0
	}
	return subtotal
}

// gross is amount times quantity. Update keeps it within MaxSafeAmount.
func (li *LineItem) gross() Money {
	return li.amount * li.quantity
}

// InclusiveTaxAmount returns the tax embedded in Subtotal by inclusive rates.
func (li *LineItem) InclusiveTaxAmount() Money {
	return inclusiveTaxOf(li.Subtotal(), li.cart.effectiveTaxPercent(Inclusive))
}

// TaxableAmount returns Subtotal without its inclusive tax.
func (li *LineItem) TaxableAmount() Money {
	return li.Subtotal() - li.InclusiveTaxAmount()
}

// Tax returns the exclusive tax added on top of TaxableAmount.
func (li *LineItem) Tax() Money {
	return exclusiveTaxOf(li.TaxableAmount(), li.cart.effectiveTaxPercent(Exclusive))
}

// Total returns Subtotal plus exclusive tax.
func (li *LineItem) Total() Money {
	return li.Subtotal() + li.Tax()
}

// Remove detaches the item from its cart.
func (li *LineItem) Remove() {
	if li.cart == nil {
		return
	}
	li.cart.RemoveLineItem(li.id)
}
