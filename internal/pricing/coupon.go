package pricing

// CouponDuration controls how many invoices a coupon reduces.
type CouponDuration string

const (
	// DurationOnce reduces the first invoice only.
	DurationOnce      CouponDuration = "once"
	DurationRepeating CouponDuration = "repeating"
	DurationForever   CouponDuration = "forever"
)

// Coupon is a gateway coupon applied to the whole cart.
type Coupon struct {
	ID               string         `json:"id,omitempty"`
	PercentOff       float64        `json:"percent_off,omitempty" validate:"gte=0,lte=100"`
	AmountOff        Money          `json:"amount_off,omitempty" validate:"gte=0,lte=9007199254740991"`
	Duration         CouponDuration `json:"duration" validate:"omitempty,oneof=once repeating forever"`
	DurationInMonths int            `json:"duration_in_months,omitempty" validate:"gte=0"`
}

// DiscountOn returns the reduction the coupon grants on amount. A percentage
// wins over a fixed amount when both are set.
func (c *Coupon) DiscountOn(amount Money) Money {
	if c == nil {
		return 0
	}
	if c.PercentOff > 0 {
		return roundMinor(minor(amount).Mul(rate(c.PercentOff)))
	}
	return c.AmountOff
}

// AppliesToNextInvoice reports whether the coupon still reduces invoices
// after the first one.
func (c *Coupon) AppliesToNextInvoice() bool {
	return c != nil && c.Duration != DurationOnce
}
