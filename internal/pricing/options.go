package pricing

// TotalOption adjusts how a cart total is computed.
type TotalOption func(*totalOptions)

type totalOptions struct {
	includeFeeRecovery bool
}

func newTotalOptions(opts []TotalOption) totalOptions {
	o := totalOptions{includeFeeRecovery: true}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithoutFeeRecovery excludes the fee recovery surcharge from a total.
func WithoutFeeRecovery() TotalOption {
	return func(o *totalOptions) { o.includeFeeRecovery = false }
}

// WithFeeRecovery sets whether the fee recovery surcharge is included.
func WithFeeRecovery(include bool) TotalOption {
	return func(o *totalOptions) { o.includeFeeRecovery = include }
}
