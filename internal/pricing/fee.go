package pricing

import "github.com/shopspring/decimal"

// FeeRecovery is the fee recovery configuration of a payment method.
type FeeRecovery struct {
	Enabled YesNo   `json:"enabled"`
	Amount  Money   `json:"amount" validate:"gte=0,lte=9007199254740991"`
	Percent float64 `json:"percent" validate:"gte=0,lt=100"`
}

// PaymentMethod is the payment method currently selected on the form.
type PaymentMethod struct {
	ID          string       `json:"id" validate:"required"`
	FeeRecovery *FeeRecovery `json:"fee_recovery,omitempty"`
}

// FeeRecoveryToggle reflects the optional "cover the processing fee" checkbox.
// When the form shows the checkbox, fees are only recovered once it is ticked.
type FeeRecoveryToggle struct {
	Present bool `json:"present"`
	Checked bool `json:"checked"`
}

// SolveFeeRecovery returns the surcharge X such that, after the gateway keeps
// fixedFee plus percentFee percent of amount+X, the merchant nets amount:
//
//	X = (amount + fixedFee) / (1 - percentFee/100) - amount
//
// The result is intentionally left unrounded; callers round before treating
// it as a currency amount. Percentages of 100 or more have no solution and
// yield zero.
func SolveFeeRecovery(amount, fixedFee Money, percentFee float64) decimal.Decimal {
	if percentFee < 0 || percentFee >= 100 || fixedFee < 0 {
		return decimal.Zero
	}
	kept := one.Sub(rate(percentFee))
	return minor(amount + fixedFee).Div(kept).Sub(minor(amount))
}
