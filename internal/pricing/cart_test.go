package pricing

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestCart(t *testing.T, args CartArgs) *Cart {
	t.Helper()
	cart, err := NewCart(args)
	require.NoError(t, err)
	return cart
}

func addItem(t *testing.T, cart *Cart, id string, amount Money) *LineItem {
	t.Helper()
	item, err := cart.AddLineItem(LineItemArgs{ID: ptr(id), Title: ptr("Item " + id), Amount: ptr(amount)})
	require.NoError(t, err)
	return item
}

func monthly() *Maybe[Subscription] {
	return Some(Subscription{Interval: "month", IntervalCount: 1})
}

func TestNewCartDefaults(t *testing.T) {
	cart := newTestCart(t, CartArgs{})
	require.Equal(t, "usd", cart.Currency())
	require.Equal(t, TaxStatusFixedGlobal, cart.TaxStatus())
	require.Equal(t, Exclusive, cart.TaxBehavior())
	require.Nil(t, cart.Coupon())
	require.Empty(t, cart.LineItems())
	require.Zero(t, cart.Total())
	require.Zero(t, cart.TotalDueToday())
}

func TestCartTotalsWithTwoExclusiveRates(t *testing.T) {
	cart := newTestCart(t, CartArgs{TaxRates: []TaxRate{
		{ID: "a", Percentage: 5, Calculation: Exclusive},
		{ID: "b", Percentage: 3, Calculation: Exclusive},
	}})
	addItem(t, cart, "x", 1000)

	require.Equal(t, Money(1000), cart.Subtotal())
	require.Equal(t, Money(80), cart.Tax())
	require.Equal(t, Money(1080), cart.Total())
	require.Equal(t, map[string][]Money{"a": {50}, "b": {30}}, cart.AppliedTaxRates())
}

func TestCartTotalDecomposition(t *testing.T) {
	cart := newTestCart(t, CartArgs{
		TaxRates: []TaxRate{
			{ID: "a", Percentage: 7.5, Calculation: Exclusive},
			{ID: "b", Percentage: 12, Calculation: Inclusive},
		},
		Coupon: Some(Coupon{AmountOff: 250, Duration: DurationForever}),
	})
	addItem(t, cart, "x", 1999)
	addItem(t, cart, "y", 501)
	addItem(t, cart, "z", 0)

	var sum Money
	for _, item := range cart.LineItems() {
		require.Equal(t, item.Subtotal()-item.InclusiveTaxAmount(), item.TaxableAmount())
		require.Equal(t, item.Subtotal()+item.Tax(), item.Total())
		sum += item.Total()
	}
	require.Equal(t, sum, cart.Total())
	require.Equal(t, Money(2500), cart.Subtotal())
	require.Equal(t, Money(250), cart.Discount())

	zero, err := cart.LineItem("z")
	require.NoError(t, err)
	require.Zero(t, zero.Discount())
}

func TestCartDiscountSplitEvenlyAndCapped(t *testing.T) {
	cart := newTestCart(t, CartArgs{Coupon: Some(Coupon{AmountOff: 300, Duration: DurationOnce})})
	a := addItem(t, cart, "a", 1000)
	b := addItem(t, cart, "b", 500)

	require.Equal(t, Money(150), a.Discount())
	require.Equal(t, Money(150), b.Discount())
	require.Equal(t, Money(1200), cart.Total())

	_, err := cart.Update(CartArgs{Coupon: Some(Coupon{AmountOff: 5000})})
	require.NoError(t, err)
	require.Equal(t, Money(1500), cart.Discount())
	require.Equal(t, Money(250), a.Subtotal())
	require.Zero(t, b.Subtotal())
	require.Equal(t, Money(250), cart.Total())
}

func TestForeverCouponReducesRecurringAndNextInvoiceAlike(t *testing.T) {
	cart := newTestCart(t, CartArgs{Coupon: Some(Coupon{PercentOff: 10, Duration: DurationForever})})
	_, err := cart.AddLineItem(LineItemArgs{
		ID: ptr(BaseLineItemID), Title: ptr("Plan"), Amount: ptr(Money(2000)), Subscription: monthly(),
	})
	require.NoError(t, err)
	addItem(t, cart, "setup", 500)
	require.Equal(t, Money(250), cart.Discount())

	recurring, err := cart.RecurringTotal()
	require.NoError(t, err)
	next, err := cart.NextInvoiceTotal()
	require.NoError(t, err)
	require.Equal(t, Money(1750), recurring)
	require.Equal(t, recurring, next)
}

func TestCouponDurationAffectsNextInvoice(t *testing.T) {
	cart := newTestCart(t, CartArgs{Coupon: Some(Coupon{PercentOff: 10, Duration: DurationOnce})})
	_, err := cart.AddLineItem(LineItemArgs{
		ID: ptr(BaseLineItemID), Title: ptr("Plan"), Amount: ptr(Money(2000)), Subscription: monthly(),
	})
	require.NoError(t, err)

	recurring, err := cart.RecurringTotal()
	require.NoError(t, err)
	require.Equal(t, Money(1800), recurring)

	next, err := cart.NextInvoiceTotal()
	require.NoError(t, err)
	require.Equal(t, Money(2000), next)

	noDiscount, err := cart.RecurringNoDiscountTotal()
	require.NoError(t, err)
	require.Equal(t, Money(2000), noDiscount)

	_, err = cart.Update(CartArgs{Coupon: Some(Coupon{PercentOff: 10, Duration: DurationForever})})
	require.NoError(t, err)
	next, err = cart.NextInvoiceTotal()
	require.NoError(t, err)
	require.Equal(t, Money(1800), next)
}

func TestRecurringTotalsRequireBaseItem(t *testing.T) {
	cart := newTestCart(t, CartArgs{})
	addItem(t, cart, "setup", 500)

	_, err := cart.RecurringTotal()
	require.ErrorIs(t, err, ErrInvalidLineItem)
	_, err = cart.RecurringNoDiscountTotal()
	require.ErrorIs(t, err, ErrInvalidLineItem)
	_, err = cart.NextInvoiceTotal()
	require.ErrorIs(t, err, ErrInvalidLineItem)
}

func TestTrialItemsAreNotChargedToday(t *testing.T) {
	cart := newTestCart(t, CartArgs{TaxRates: []TaxRate{{ID: "vat", Percentage: 10, Calculation: Exclusive}}})
	base, err := cart.AddLineItem(LineItemArgs{
		ID:           ptr(BaseLineItemID),
		Title:        ptr("Plan"),
		Amount:       ptr(Money(2000)),
		Subscription: Some(Subscription{IsTrial: true, Interval: "month"}),
		Price:        &PriceOption{ID: "price_1", Recurring: &RecurringPrice{Interval: "month", TrialPeriodDays: 14}},
	})
	require.NoError(t, err)
	addItem(t, cart, "setup", 500)

	require.True(t, base.HasFreeTrial())
	require.True(t, cart.HasFreeTrial())
	require.Zero(t, base.Subtotal())
	require.Equal(t, Money(500), cart.Subtotal())
	require.Equal(t, Money(550), cart.TotalDueToday())
	require.Equal(t, map[string][]Money{"vat": {50}}, cart.AppliedTaxRates())
}

func TestAutomaticTax(t *testing.T) {
	status := TaxStatusAutomatic
	cart := newTestCart(t, CartArgs{
		TaxStatus: &status,
		AutomaticTax: &AutomaticTax{
			AmountTax:       123,
			UpcomingInvoice: &UpcomingInvoice{AmountTax: 150},
		},
	})
	_, err := cart.AddLineItem(LineItemArgs{
		ID: ptr(BaseLineItemID), Title: ptr("Plan"), Amount: ptr(Money(1000)), Subscription: monthly(),
	})
	require.NoError(t, err)

	require.Equal(t, Money(1000), cart.Total())
	require.Equal(t, Money(1123), cart.TotalDueToday())

	next, err := cart.NextInvoiceTotal()
	require.NoError(t, err)
	require.Equal(t, Money(1150), next)

	noDiscount, err := cart.RecurringNoDiscountTotal()
	require.NoError(t, err)
	require.Equal(t, Money(1150), noDiscount)

	inclusive := Inclusive
	_, err = cart.Update(CartArgs{TaxBehavior: &inclusive})
	require.NoError(t, err)
	next, err = cart.NextInvoiceTotal()
	require.NoError(t, err)
	require.Equal(t, Money(1000), next)
}

func TestAutomaticTaxSkippedWhenEverythingIsInTrial(t *testing.T) {
	status := TaxStatusAutomatic
	cart := newTestCart(t, CartArgs{TaxStatus: &status, AutomaticTax: &AutomaticTax{AmountTax: 99}})
	_, err := cart.AddLineItem(LineItemArgs{
		ID:     ptr(BaseLineItemID),
		Title:  ptr("Plan"),
		Amount: ptr(Money(1000)),
		Price:  &PriceOption{Recurring: &RecurringPrice{TrialPeriodDays: 7}},
	})
	require.NoError(t, err)
	require.Zero(t, cart.TotalDueToday())
}

func TestCartFeeRecovery(t *testing.T) {
	cart := newTestCart(t, CartArgs{
		PaymentMethod: Some(PaymentMethod{
			ID:          "card",
			FeeRecovery: &FeeRecovery{Enabled: true, Amount: 30, Percent: 2.9},
		}),
	})
	addItem(t, cart, "a", 1000)

	require.Equal(t, Money(1061), cart.Total())
	require.Equal(t, Money(1061), cart.TotalDueToday())
	require.Equal(t, Money(1000), cart.Total(WithoutFeeRecovery()))
	require.Equal(t, Money(1000), cart.Total(WithFeeRecovery(false)))

	_, err := cart.Update(CartArgs{FeeRecoveryToggle: &FeeRecoveryToggle{Present: true}})
	require.NoError(t, err)
	require.Equal(t, Money(1000), cart.Total())

	_, err = cart.Update(CartArgs{FeeRecoveryToggle: &FeeRecoveryToggle{Present: true, Checked: true}})
	require.NoError(t, err)
	require.Equal(t, Money(1061), cart.Total())

	_, err = cart.Update(CartArgs{PaymentMethod: None[PaymentMethod]()})
	require.NoError(t, err)
	require.Equal(t, Money(1000), cart.Total())
}

func TestFeeRecoveryNotAddedToZeroTotal(t *testing.T) {
	cart := newTestCart(t, CartArgs{
		PaymentMethod: Some(PaymentMethod{ID: "card", FeeRecovery: &FeeRecovery{Enabled: true, Amount: 30}}),
	})
	require.Zero(t, cart.Total())
	addItem(t, cart, "free", 0)
	require.Zero(t, cart.TotalDueToday())
}

func TestCartUpdateValidation(t *testing.T) {
	cases := []struct {
		name string
		args CartArgs
		want error
	}{
		{"currency", CartArgs{Currency: ptr("us")}, ErrInvalidCurrency},
		{"tax percent", CartArgs{TaxPercent: ptr(120.0)}, ErrInvalidTaxPercent},
		{"tax rate percentage", CartArgs{TaxRates: []TaxRate{{ID: "a", Percentage: 101, Calculation: Exclusive}}}, ErrInvalidTaxRates},
		{"tax rate calculation", CartArgs{TaxRates: []TaxRate{{ID: "a", Percentage: 1, Calculation: "mixed"}}}, ErrInvalidTaxRates},
		{"duplicate tax rate", CartArgs{TaxRates: []TaxRate{
			{ID: "a", Percentage: 1, Calculation: Exclusive},
			{ID: "a", Percentage: 2, Calculation: Exclusive},
		}}, ErrInvalidTaxRates},
		{"tax status", CartArgs{TaxStatus: ptr(TaxStatus("manual"))}, ErrInvalidTaxStatus},
		{"tax behavior", CartArgs{TaxBehavior: ptr(Calculation("both"))}, ErrInvalidTaxBehavior},
		{"coupon", CartArgs{Coupon: Some(Coupon{PercentOff: 150})}, ErrInvalidCoupon},
		{"payment method", CartArgs{PaymentMethod: Some(PaymentMethod{
			ID: "card", FeeRecovery: &FeeRecovery{Enabled: true, Percent: 100},
		})}, ErrInvalidPaymentMethod},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cart := newTestCart(t, CartArgs{Currency: ptr("EUR")})
			_, err := cart.Update(tc.args)
			require.ErrorIs(t, err, tc.want)
			require.True(t, IsValidationError(err))
			require.Equal(t, "eur", cart.Currency())
		})
	}
}

func TestCartUpdateIsAtomic(t *testing.T) {
	cart := newTestCart(t, CartArgs{Currency: ptr("usd")})
	_, err := cart.Update(CartArgs{Currency: ptr("gbp"), TaxPercent: ptr(-1.0)})
	require.ErrorIs(t, err, ErrInvalidTaxPercent)
	require.Equal(t, "usd", cart.Currency())
	require.Zero(t, cart.LegacyTaxPercent())
}

func TestCartLineItemLookupAndRemoval(t *testing.T) {
	cart := newTestCart(t, CartArgs{})
	a := addItem(t, cart, "a", 100)
	addItem(t, cart, "b", 200)

	_, err := cart.LineItem("missing")
	require.ErrorIs(t, err, ErrInvalidLineItem)

	got, err := cart.LineItem("a")
	require.NoError(t, err)
	require.Same(t, a, got)

	a.Remove()
	require.Len(t, cart.LineItems(), 1)
	require.Equal(t, Money(200), cart.Total())

	cart.RemoveLineItem("unknown")
	require.Len(t, cart.LineItems(), 1)
}

func TestCartRejectsDuplicateLineItem(t *testing.T) {
	cart := newTestCart(t, CartArgs{})
	addItem(t, cart, "a", 100)
	_, err := cart.AddLineItem(LineItemArgs{ID: ptr("a"), Title: ptr("Again"), Amount: ptr(Money(1))})
	require.ErrorIs(t, err, ErrInvalidLineItemID)
	require.Len(t, cart.LineItems(), 1)

	other := newTestCart(t, CartArgs{})
	foreign, err := NewLineItem(other, LineItemArgs{ID: ptr("f"), Title: ptr("F"), Amount: ptr(Money(1))})
	require.NoError(t, err)
	require.ErrorIs(t, cart.Add(foreign), ErrInvalidLineItemCart)
}

func TestCartReset(t *testing.T) {
	cart := newTestCart(t, CartArgs{
		Currency: ptr("jpy"),
		Coupon:   Some(Coupon{AmountOff: 10}),
		TaxRates: []TaxRate{{ID: "a", Percentage: 5, Calculation: Exclusive}},
	})
	addItem(t, cart, "a", 100)

	fresh := cart.Reset()
	require.NotSame(t, cart, fresh)
	require.Equal(t, "usd", fresh.Currency())
	require.Nil(t, fresh.Coupon())
	require.Empty(t, fresh.TaxRates())
	require.Empty(t, fresh.LineItems())
	require.Len(t, cart.LineItems(), 1)
}

func TestCartArgsFromJSON(t *testing.T) {
	payload := `{
		"currency": "EUR",
		"coupon": false,
		"paymentMethod": {"id": "card", "fee_recovery": {"enabled": "yes", "amount": 30, "percent": 2.9}},
		"taxRates": [{"id": "vat", "percentage": 20, "calculation": "inclusive"}]
	}`
	var args CartArgs
	require.NoError(t, json.Unmarshal([]byte(payload), &args))
	require.NotNil(t, args.Coupon)
	require.Nil(t, args.Coupon.V)

	cart := newTestCart(t, args)
	require.Equal(t, "eur", cart.Currency())
	addItem(t, cart, "a", 1200)
	require.Equal(t, map[string]Money{"vat": 200}, cart.AppliedTaxTotals())
	require.Equal(t, Money(1200), cart.Total(WithoutFeeRecovery()))
	require.Greater(t, cart.Total(), Money(1200))

	var bad CartArgs
	err := json.Unmarshal([]byte(`{"coupon": "SAVE10"}`), &bad)
	var typeErr *json.UnmarshalTypeError
	require.True(t, errors.As(err, &typeErr))
	require.ErrorIs(t, CartFieldError(typeErr.Field), ErrInvalidCoupon)
}

func TestBreakdown(t *testing.T) {
	cart := newTestCart(t, CartArgs{
		TaxRates: []TaxRate{{ID: "vat", Percentage: 10, Calculation: Exclusive}},
		Coupon:   Some(Coupon{PercentOff: 10, Duration: DurationOnce}),
	})
	_, err := cart.AddLineItem(LineItemArgs{
		ID: ptr(BaseLineItemID), Title: ptr("Plan"), Amount: ptr(Money(2000)), Subscription: monthly(),
	})
	require.NoError(t, err)

	b, err := cart.Breakdown()
	require.NoError(t, err)
	require.Equal(t, Money(2000), b.Subtotal)
	require.Equal(t, Money(200), b.Discount)
	require.Equal(t, Money(180), b.Tax)
	require.Equal(t, Money(1980), b.Total)
	require.Zero(t, b.FeeRecovery)
	require.NotNil(t, b.RecurringTotal)
	require.Equal(t, Money(1980), *b.RecurringTotal)
	require.Equal(t, Money(2200), *b.NextInvoiceTotal)
	require.Len(t, b.LineItems, 1)
	require.True(t, b.LineItems[0].IsRecurring)

	cart.RemoveLineItem(BaseLineItemID)
	addItem(t, cart, "one-off", 100)
	b, err = cart.Breakdown()
	require.NoError(t, err)
	require.Nil(t, b.RecurringTotal)
	require.Nil(t, b.NextInvoiceTotal)
}
