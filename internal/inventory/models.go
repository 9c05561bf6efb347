package inventory

import "time"

// Product is a stock-bearing catalog entry. Soft deletion archives the
// row without removing it, so historical sales keep a valid reference.
type Product struct {
	ID         string
	SKU        string
	Name       string
	PriceCents int64
	Stock      int64
	IsDeleted  bool
	DeletedAt  *time.Time
	DeletedBy  *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Sale is a recorded transaction. Archiving a sale returns its quantities
// to stock; restoring it deducts them again.
type Sale struct {
	ID         string
	TotalCents int64
	CreatedBy  string
	IsDeleted  bool
	DeletedAt  *time.Time
	DeletedBy  *string
	CreatedAt  time.Time
}

// SaleItem is one line of a sale: a product and the quantity sold.
type SaleItem struct {
	ID             string
	SaleID         string
	ProductID      string
	Quantity       int64
	UnitPriceCents int64
}

// StockMovement is the immutable record of one inventory adjustment,
// including the compensating movements made when a sale is archived or
// restored.
type StockMovement struct {
	ID          string
	ProductID   string
	Change      int64 // signed quantity delta
	StockBefore int64
	StockAfter  int64
	Reason      string // e.g. "sale", "sale-archived", "sale-restored"
	ReferenceID string // the sale that caused the movement, if any
	CreatedBy   string
	CreatedAt   time.Time
}

// Movement reasons written by the lifecycle manager.
const (
	ReasonSale         = "sale"
	ReasonSaleArchived = "sale-archived"
	ReasonSaleRestored = "sale-restored"
)

// Table names as they appear in the audit trail.
const (
	TableProducts = "products"
	TableSales    = "sales"
)
