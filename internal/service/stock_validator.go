package service

// stock_validator.go — pure validation of requested quantities against
// available stock and the configured maximum-fraction-per-transfer rule.
// No I/O: callers supply the live available quantity.

import (
	"fmt"
	"math"
)

// StockCheck is the outcome of validating one requested quantity.
type StockCheck int

const (
	StockOK StockCheck = iota
	StockInsufficient
	StockExceedsLimit
)

// MaxAllowed computes the transfer ceiling: floor(available × fraction).
func MaxAllowed(available float64, fraction float64) int {
	return int(math.Floor(available * fraction))
}

// ValidateQuantity checks one requested quantity against available stock.
// The insufficient check runs first: a quantity above the whole stock is
// reported as insufficient, not as exceeding the fraction limit.
func ValidateQuantity(requested int, available float64, maxFraction float64) (StockCheck, int) {
	maxAllowed := MaxAllowed(available, maxFraction)
	switch {
	case float64(requested) > available:
		return StockInsufficient, maxAllowed
	case requested > maxAllowed:
		return StockExceedsLimit, maxAllowed
	default:
		return StockOK, maxAllowed
	}
}

// TransferWarning returns a non-empty warning string when the requested
// quantity is valid but above the warn fraction of available stock.
func TransferWarning(name string, requested int, available float64, warnFraction float64) string {
	if available <= 0 || float64(requested) <= available*warnFraction {
		return ""
	}
	pct := int(float64(requested) / available * 100)
	return fmt.Sprintf("%s: transferring %d/%.0f (%d%%)", name, requested, available, pct)
}
