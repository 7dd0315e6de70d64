package pricing

import "github.com/shopspring/decimal"

// Calculation tells whether a tax rate is embedded in the price or added on top.
type Calculation string

const (
	Inclusive Calculation = "inclusive"
	Exclusive Calculation = "exclusive"
)

// TaxStatus selects who computes tax for the form.
type TaxStatus string

const (
	TaxStatusFixedGlobal TaxStatus = "fixed-global"
	// TaxStatusAutomatic delegates tax to the gateway; the gateway reports the
	// amounts back through AutomaticTax.
	TaxStatusAutomatic TaxStatus = "automatic"
	TaxStatusNone      TaxStatus = "none"
)

// TaxRate is one named rate applied to the cart.
type TaxRate struct {
	ID          string      `json:"id" validate:"required"`
	DisplayName string      `json:"display_name,omitempty"`
	Percentage  float64     `json:"percentage" validate:"gte=0,lte=100"`
	Calculation Calculation `json:"calculation" validate:"oneof=inclusive exclusive"`
}

// AutomaticTax carries the figures the gateway computed when tax status is
// automatic.
type AutomaticTax struct {
	AmountTax       Money            `json:"amount_tax" validate:"gte=0"`
	UpcomingInvoice *UpcomingInvoice `json:"upcomingInvoice,omitempty"`
}

// UpcomingInvoice is the gateway's preview of the next recurring invoice.
type UpcomingInvoice struct {
	AmountTax Money `json:"amount_tax" validate:"gte=0"`
}

func sumPercentage(rates []TaxRate) float64 {
	var total decimal.Decimal
	for _, r := range rates {
		total = total.Add(decimal.NewFromFloat(r.Percentage))
	}
	f, _ := total.Float64()
	return f
}

func ratesFor(rates []TaxRate, calc Calculation) []TaxRate {
	out := make([]TaxRate, 0, len(rates))
	for _, r := range rates {
		if r.Calculation == calc {
			out = append(out, r)
		}
	}
	return out
}

// AllocateTax splits groupTax across rates that together produced it.
// Every rate but the last receives the floor of its proportional share; the
// last rate receives whatever remains, so the shares always sum to groupTax.
// Rates are taken in the given order.
func AllocateTax(groupTax Money, rates []TaxRate) []Money {
	if len(rates) == 0 {
		return nil
	}
	shares := make([]Money, len(rates))
	groupPercent := decimal.Zero
	for _, r := range rates {
		groupPercent = groupPercent.Add(decimal.NewFromFloat(r.Percentage))
	}
	last := len(rates) - 1
	var allocated Money
	if !groupPercent.IsZero() {
		tax := minor(groupTax)
		for i := 0; i < last; i++ {
			share := tax.Mul(decimal.NewFromFloat(rates[i].Percentage)).Div(groupPercent)
			shares[i] = floorMinor(share)
			allocated += shares[i]
		}
	}
	shares[last] = groupTax - allocated
	return shares
}

func allocateInto(into map[string][]Money, rates []TaxRate, groupTax Money) {
	for i, share := range AllocateTax(groupTax, rates) {
		id := rates[i].ID
		into[id] = append(into[id], share)
	}
}
