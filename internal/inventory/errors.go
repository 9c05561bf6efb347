package inventory

import (
	"errors"
	"fmt"
	"strings"
)

// PurgeToken is the literal sentinel required to permanently delete an
// archived entity.
const PurgeToken = "CONFIRM_PURGE"

// minPurgeReasonLen is the shortest acceptable purge justification.
const minPurgeReasonLen = 10

// ErrNotFound is returned when the target entity does not exist — or, for
// sale archival, when the sale has no line items at all, which is treated
// the same way.
var ErrNotFound = errors.New("entity not found")

// ErrStockConflict is the store-level signal that a guarded stock update
// would have driven stock negative.
var ErrStockConflict = errors.New("stock adjustment would make stock negative")

// PreconditionError rejects an operation before any mutation occurs.
type PreconditionError struct {
	Op     string // the refused operation
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s refused: %s", e.Op, e.Reason)
}

// IsPrecondition reports whether err is (or wraps) a PreconditionError.
func IsPrecondition(err error) bool {
	var pe *PreconditionError
	return errors.As(err, &pe)
}

// StockShortfall describes one line item that cannot be covered by
// current stock.
type StockShortfall struct {
	ProductID string
	Required  int64
	Available int64
}

// InsufficientStockError reports every offending line item of a refused
// sale restore, not just the first.
type InsufficientStockError struct {
	SaleID     string
	Shortfalls []StockShortfall
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, len(e.Shortfalls))
	for i, s := range e.Shortfalls {
		parts[i] = fmt.Sprintf("product %s needs %d, has %d", s.ProductID, s.Required, s.Available)
	}
	return fmt.Sprintf("insufficient stock to restore sale %s: %s", e.SaleID, strings.Join(parts, "; "))
}

// IsInsufficientStock reports whether err is (or wraps) an
// InsufficientStockError.
func IsInsufficientStock(err error) bool {
	var ie *InsufficientStockError
	return errors.As(err, &ie)
}
