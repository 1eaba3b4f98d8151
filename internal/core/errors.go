package core

import "errors"

// Sentinel errors for the core's error taxonomy. Use errors.Is against
// these to classify a returned error; CoreError additionally carries
// context via its Symbol/Price fields.
var (
	ErrMalformedSymbol       = errors.New("symbol lacks '-' separator or has an empty side")
	ErrUnknownCurrency       = errors.New("currency is not in the symbol registry")
	ErrInvalidPrice          = errors.New("price is non-positive, NaN, or infinite")
	ErrInternalInconsistency = errors.New("cycle reconstruction found predecessor = -1")
)

// CoreError wraps one of the sentinel errors above with the symbol/price
// that triggered it, so callers get both errors.Is classification and a
// human-readable message.
type CoreError struct {
	Kind   error
	Symbol string
	Price  float64
}

func (e *CoreError) Error() string {
	if e.Symbol == "" {
		return e.Kind.Error()
	}
	return e.Symbol + ": " + e.Kind.Error()
}

// Unwrap supports errors.Is(err, core.ErrMalformedSymbol) etc.
func (e *CoreError) Unwrap() error {
	return e.Kind
}

func newCoreError(kind error, symbol string, price float64) *CoreError {
	return &CoreError{Kind: kind, Symbol: symbol, Price: price}
}

// ErrorKind classifies err against the sentinel taxonomy and returns a
// short, metric-label-friendly string. Unrecognised errors (including nil)
// map to "unknown" rather than panicking, so callers can use this directly
// as a Prometheus label value.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrMalformedSymbol):
		return "malformed_symbol"
	case errors.Is(err, ErrUnknownCurrency):
		return "unknown_currency"
	case errors.Is(err, ErrInvalidPrice):
		return "invalid_price"
	case errors.Is(err, ErrInternalInconsistency):
		return "internal_inconsistency"
	default:
		return "unknown"
	}
}
