package pricing

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError is raised by the validating setters of Cart and LineItem.
// ID is a stable reason code suitable for callers to branch on.
type ValidationError struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// Is reports whether target carries the same reason code, so errors.Is works
// against the exported sentinels regardless of the message.
func (e *ValidationError) Is(target error) bool {
	var other *ValidationError
	if !errors.As(target, &other) || e == nil || other == nil {
		return false
	}
	return e.ID == other.ID
}

var (
	// ErrInvalidCurrency reports a currency code that is not a three-letter code.
	ErrInvalidCurrency = &ValidationError{ID: "invalid-currency", Message: "Currency must be a three-letter ISO 4217 code."}
	// ErrInvalidTaxPercent reports a tax percent outside 0-100.
	ErrInvalidTaxPercent = &ValidationError{ID: "invalid-tax-percent", Message: "Tax percent must be a number between 0 and 100."}
	// ErrInvalidTaxRates reports a malformed tax rate list.
	ErrInvalidTaxRates = &ValidationError{ID: "invalid-tax-rates", Message: "Tax rates must have unique ids, a percentage between 0 and 100 and an inclusive or exclusive calculation."}
	// ErrInvalidTaxStatus reports an unknown tax status.
	ErrInvalidTaxStatus = &ValidationError{ID: "invalid-tax-status", Message: "Tax status must be fixed-global, automatic or none."}
	// ErrInvalidTaxBehavior reports an unknown tax behavior.
	ErrInvalidTaxBehavior = &ValidationError{ID: "invalid-tax-behavior", Message: "Tax behavior must be inclusive or exclusive."}
	// ErrInvalidCoupon reports a coupon that is neither false nor a well-formed object.
	ErrInvalidCoupon = &ValidationError{ID: "invalid-coupon", Message: "Coupon must be false or a valid coupon object."}
	// ErrInvalidNonDecimalCurrency reports a non-boolean zero-decimal flag.
	ErrInvalidNonDecimalCurrency = &ValidationError{ID: "invalid-non-decimal-currency", Message: "Non-decimal currency flag must be a boolean."}
	// ErrInvalidPaymentMethod reports a malformed payment method or fee recovery configuration.
	ErrInvalidPaymentMethod = &ValidationError{ID: "invalid-payment-method", Message: "Payment method must be false or an object with a valid fee recovery configuration."}

	// ErrInvalidLineItemID reports a missing or duplicate line item id.
	ErrInvalidLineItemID = &ValidationError{ID: "invalid-line-item-id", Message: "Line item id must be a non-empty string."}
	// ErrInvalidLineItemTitle reports a missing line item title.
	ErrInvalidLineItemTitle = &ValidationError{ID: "invalid-line-item-title", Message: "Line item title must be a non-empty string."}
	// ErrInvalidLineItemAmount reports a unit price that is not a safe integer.
	ErrInvalidLineItemAmount = &ValidationError{ID: "invalid-line-item-amount", Message: "Line item amount must be a non-negative safe integer."}
	// ErrInvalidLineItemQuantity reports a quantity below one or not a safe integer.
	ErrInvalidLineItemQuantity = &ValidationError{ID: "invalid-line-item-quantity", Message: "Line item quantity must be a safe integer of at least 1."}
	// ErrInvalidLineItemSubscription reports a subscription that is neither false nor an object.
	ErrInvalidLineItemSubscription = &ValidationError{ID: "invalid-line-item-subscription", Message: "Line item subscription must be false or a subscription object."}
	// ErrInvalidLineItemPrice reports a malformed price option.
	ErrInvalidLineItemPrice = &ValidationError{ID: "invalid-line-item-price", Message: "Line item price must be a price option object."}
	// ErrInvalidLineItemCart reports a line item without an owning cart.
	ErrInvalidLineItemCart = &ValidationError{ID: "invalid-line-item-cart", Message: "Line item must belong to a cart."}
	// ErrInvalidLineItem reports a lookup miss.
	ErrInvalidLineItem = &ValidationError{ID: "invalid-line-item", Message: "Line item not found."}
)

func invalid(base *ValidationError, format string, args ...any) *ValidationError {
	return &ValidationError{ID: base.ID, Message: fmt.Sprintf(format, args...)}
}

// IsValidationError reports whether err carries a pricing reason code.
func IsValidationError(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

var cartFieldErrors = map[string]*ValidationError{
	"currency":             ErrInvalidCurrency,
	"taxpercent":           ErrInvalidTaxPercent,
	"taxrates":             ErrInvalidTaxRates,
	"taxstatus":            ErrInvalidTaxStatus,
	"taxbehavior":          ErrInvalidTaxBehavior,
	"automatictax":         ErrInvalidTaxStatus,
	"coupon":               ErrInvalidCoupon,
	"isnondecimalcurrency": ErrInvalidNonDecimalCurrency,
	"paymentmethod":        ErrInvalidPaymentMethod,
	"feerecoverytoggle":    ErrInvalidPaymentMethod,
}

var lineItemFieldErrors = map[string]*ValidationError{
	"id":           ErrInvalidLineItemID,
	"title":        ErrInvalidLineItemTitle,
	"amount":       ErrInvalidLineItemAmount,
	"quantity":     ErrInvalidLineItemQuantity,
	"subscription": ErrInvalidLineItemSubscription,
	"price":        ErrInvalidLineItemPrice,
}

// CartFieldError returns the reason code for a failure on the given cart
// field path (JSON or Go field names, dot separated). It returns nil for
// unknown fields.
func CartFieldError(path string) *ValidationError {
	return fieldError(cartFieldErrors, path)
}

// LineItemFieldError is CartFieldError for line item fields.
func LineItemFieldError(path string) *ValidationError {
	return fieldError(lineItemFieldErrors, path)
}

func fieldError(table map[string]*ValidationError, path string) *ValidationError {
	head, _, _ := strings.Cut(strings.TrimSpace(path), ".")
	return table[strings.ToLower(head)]
}
