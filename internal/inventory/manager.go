// Package inventory governs the delete → archive → restore lifecycle of
// stock-bearing entities and the compensating stock movements that keep
// inventory counts consistent across delete/restore cycles.
package inventory

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"aurum/internal/audit"
)

// Store is the persistence the lifecycle manager needs. Implementations
// return (nil, nil) for lookups that find nothing.
type Store interface {
	CreateProduct(p *Product) error
	UpdateProduct(p *Product) error
	GetProduct(id string) (*Product, error)
	SetProductDeleted(id string, deleted bool, at *time.Time, by *string) error
	DeleteProduct(id string) error
	CountActiveSalesForProduct(productID string) (int64, error)
	CountSalesForProduct(productID string) (int64, error)
	CountStockMovementsForProduct(productID string) (int64, error)

	CreateSale(s *Sale, items []*SaleItem) error
	GetSale(id string) (*Sale, error)
	ListSaleItems(saleID string) ([]*SaleItem, error)
	SetSaleDeleted(id string, deleted bool, at *time.Time, by *string) error
	DeleteSale(id string) error

	// AdjustStock atomically applies m.Change to the product's stock and
	// records the movement, filling StockBefore and StockAfter. Returns
	// ErrStockConflict when the change would drive stock negative.
	AdjustStock(m *StockMovement) error
}

// Auditor records lifecycle actions in the audit trail. Implementations
// never return an error: auditing is best-effort by design.
type Auditor interface {
	Record(table, recordID, action string, oldValues, newValues any, actorID string, reqCtx *audit.RequestContext)
}

// Logger provides structured logging, slog-convention args.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Clock abstracts time retrieval so lifecycle logic is deterministic in tests.
type Clock interface {
	Now() time.Time
}

// SystemClock returns the actual current time.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// IDGenerator abstracts unique ID generation so tests are deterministic.
type IDGenerator interface {
	New() string
}

// UUIDGenerator produces random UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) New() string { return uuid.New().String() }

// SaleLine is the caller-facing shape of one line of a new sale.
type SaleLine struct {
	ProductID string
	Quantity  int64
}

// archiveRecord is the audit snapshot written when an entity is archived
// or purged, carrying the administrator's stated reason alongside the
// entity's last state.
type archiveRecord struct {
	Record any    `json:"record"`
	Reason string `json:"reason,omitempty"`
}

// Manager is the soft-delete lifecycle manager for products and sales.
// Mutations run as ordered pipelines of result-returning steps that
// short-circuit on first failure; compensation (stock rollback) executes
// only for steps that already committed.
type Manager struct {
	store   Store
	auditor Auditor
	logger  Logger
	clock   Clock
	idgen   IDGenerator
	locks   *productLocks
}

// NewManager creates a lifecycle manager with the provided dependencies.
func NewManager(store Store, auditor Auditor, logger Logger, clock Clock, idgen IDGenerator) *Manager {
	return &Manager{
		store:   store,
		auditor: auditor,
		logger:  logger,
		clock:   clock,
		idgen:   idgen,
		locks:   newProductLocks(),
	}
}

// CreateProduct registers a new product with its opening stock.
func (m *Manager) CreateProduct(sku, name string, priceCents, stock int64, actorID string, reqCtx *audit.RequestContext) (*Product, error) {
	if sku == "" || name == "" {
		return nil, &PreconditionError{Op: "create product", Reason: "sku and name are required"}
	}
	if stock < 0 || priceCents < 0 {
		return nil, &PreconditionError{Op: "create product", Reason: "stock and price must not be negative"}
	}

	now := m.clock.Now().UTC()
	p := &Product{
		ID:         m.idgen.New(),
		SKU:        sku,
		Name:       name,
		PriceCents: priceCents,
		Stock:      stock,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := m.store.CreateProduct(p); err != nil {
		return nil, fmt.Errorf("creating product: %w", err)
	}

	m.auditor.Record(TableProducts, p.ID, audit.ActionCreate, nil, p, actorID, reqCtx)
	m.logger.Info("product created", "product_id", p.ID, "sku", sku)
	return p, nil
}

// UpdateProduct changes a product's name and price.
func (m *Manager) UpdateProduct(id, name string, priceCents int64, actorID string, reqCtx *audit.RequestContext) (*Product, error) {
	p, err := m.store.GetProduct(id)
	if err != nil {
		return nil, fmt.Errorf("fetching product: %w", err)
	}
	if p == nil {
		return nil, ErrNotFound
	}

	old := *p
	if name != "" {
		p.Name = name
	}
	if priceCents >= 0 {
		p.PriceCents = priceCents
	}
	p.UpdatedAt = m.clock.Now().UTC()

	if err := m.store.UpdateProduct(p); err != nil {
		return nil, fmt.Errorf("updating product: %w", err)
	}

	m.auditor.Record(TableProducts, p.ID, audit.ActionUpdate, &old, p, actorID, reqCtx)
	return p, nil
}

// RecordSale creates a sale, deducting stock for every line item. Stock
// deductions already applied are reversed if a later step fails.
func (m *Manager) RecordSale(lines []SaleLine, actorID string, reqCtx *audit.RequestContext) (*Sale, error) {
	if len(lines) == 0 {
		return nil, &PreconditionError{Op: "record sale", Reason: "a sale needs at least one line item"}
	}
	for _, l := range lines {
		if l.Quantity <= 0 {
			return nil, &PreconditionError{Op: "record sale", Reason: "line quantities must be positive"}
		}
	}

	productIDs := make([]string, len(lines))
	for i, l := range lines {
		productIDs[i] = l.ProductID
	}
	unlock := m.locks.lockAll(productIDs)
	defer unlock()

	now := m.clock.Now().UTC()
	sale := &Sale{ID: m.idgen.New(), CreatedBy: actorID, CreatedAt: now}

	var items []*SaleItem
	for _, l := range lines {
		p, err := m.store.GetProduct(l.ProductID)
		if err != nil {
			return nil, fmt.Errorf("fetching product %s: %w", l.ProductID, err)
		}
		if p == nil || p.IsDeleted {
			return nil, &PreconditionError{Op: "record sale", Reason: fmt.Sprintf("product %s is not available", l.ProductID)}
		}
		items = append(items, &SaleItem{
			ID:             m.idgen.New(),
			SaleID:         sale.ID,
			ProductID:      l.ProductID,
			Quantity:       l.Quantity,
			UnitPriceCents: p.PriceCents,
		})
		sale.TotalCents += p.PriceCents * l.Quantity
	}

	applied, err := m.applyMovements(items, -1, ReasonSale, sale.ID, actorID, now)
	if err != nil {
		m.compensate(applied, ReasonSale, sale.ID, actorID)
		if errors.Is(err, ErrStockConflict) {
			return nil, m.shortfallError(sale.ID, items)
		}
		return nil, err
	}

	if err := m.store.CreateSale(sale, items); err != nil {
		m.compensate(applied, ReasonSale, sale.ID, actorID)
		return nil, fmt.Errorf("recording sale: %w", err)
	}

	m.auditor.Record(TableSales, sale.ID, audit.ActionCreate, nil, saleSnapshot(sale, items), actorID, reqCtx)
	m.logger.Info("sale recorded", "sale_id", sale.ID, "items", len(items), "total_cents", sale.TotalCents)
	return sale, nil
}

// ArchiveSale soft-deletes a sale, returning every line item's quantity
// to the referenced product's stock as a compensating movement. A sale
// without line items is not a valid deletable sale and reports ErrNotFound.
func (m *Manager) ArchiveSale(saleID, actorID, reason string, reqCtx *audit.RequestContext) error {
	sale, err := m.store.GetSale(saleID)
	if err != nil {
		return fmt.Errorf("fetching sale: %w", err)
	}
	if sale == nil {
		return ErrNotFound
	}
	if sale.IsDeleted {
		return &PreconditionError{Op: "archive sale", Reason: "sale is already archived"}
	}

	items, err := m.store.ListSaleItems(saleID)
	if err != nil {
		return fmt.Errorf("fetching sale items: %w", err)
	}
	if len(items) == 0 {
		return ErrNotFound
	}

	unlock := m.locks.lockAll(itemProductIDs(items))
	defer unlock()

	now := m.clock.Now().UTC()
	applied, err := m.applyMovements(items, +1, ReasonSaleArchived, saleID, actorID, now)
	if err != nil {
		m.compensate(applied, ReasonSaleArchived, saleID, actorID)
		return fmt.Errorf("returning stock for sale %s: %w", saleID, err)
	}

	if err := m.store.SetSaleDeleted(saleID, true, &now, &actorID); err != nil {
		m.compensate(applied, ReasonSaleArchived, saleID, actorID)
		return fmt.Errorf("archiving sale: %w", err)
	}

	m.auditor.Record(TableSales, saleID, audit.ActionSoftDelete,
		archiveRecord{Record: saleSnapshot(sale, items), Reason: reason}, nil, actorID, reqCtx)
	m.logger.Info("sale archived", "sale_id", saleID, "actor", actorID)
	return nil
}

// RestoreSale reinstates an archived sale, re-deducting every line item's
// quantity. The restore is refused — listing every offending item — when
// current stock cannot cover it, and nothing is applied partially.
func (m *Manager) RestoreSale(saleID, actorID string, reqCtx *audit.RequestContext) error {
	sale, err := m.store.GetSale(saleID)
	if err != nil {
		return fmt.Errorf("fetching sale: %w", err)
	}
	if sale == nil {
		return ErrNotFound
	}
	if !sale.IsDeleted {
		return &PreconditionError{Op: "restore sale", Reason: "sale is not archived"}
	}

	items, err := m.store.ListSaleItems(saleID)
	if err != nil {
		return fmt.Errorf("fetching sale items: %w", err)
	}
	if len(items) == 0 {
		return ErrNotFound
	}

	// Stock pre-checks and the deductions below are serialized per
	// product, so concurrent restores sharing a product cannot both pass
	// the check and then over-deduct.
	unlock := m.locks.lockAll(itemProductIDs(items))
	defer unlock()

	var shortfalls []StockShortfall
	for _, item := range items {
		p, err := m.store.GetProduct(item.ProductID)
		if err != nil {
			return fmt.Errorf("fetching product %s: %w", item.ProductID, err)
		}
		if p == nil {
			return &PreconditionError{Op: "restore sale", Reason: fmt.Sprintf("product %s no longer exists", item.ProductID)}
		}
		if p.IsDeleted {
			return &PreconditionError{Op: "restore sale", Reason: fmt.Sprintf("product %s is archived", item.ProductID)}
		}
		if p.Stock < item.Quantity {
			shortfalls = append(shortfalls, StockShortfall{
				ProductID: item.ProductID,
				Required:  item.Quantity,
				Available: p.Stock,
			})
		}
	}
	if len(shortfalls) > 0 {
		return &InsufficientStockError{SaleID: saleID, Shortfalls: shortfalls}
	}

	now := m.clock.Now().UTC()
	applied, err := m.applyMovements(items, -1, ReasonSaleRestored, saleID, actorID, now)
	if err != nil {
		m.compensate(applied, ReasonSaleRestored, saleID, actorID)
		return fmt.Errorf("re-deducting stock for sale %s: %w", saleID, err)
	}

	if err := m.store.SetSaleDeleted(saleID, false, nil, nil); err != nil {
		m.compensate(applied, ReasonSaleRestored, saleID, actorID)
		return fmt.Errorf("restoring sale: %w", err)
	}

	restored := *sale
	restored.IsDeleted = false
	restored.DeletedAt = nil
	restored.DeletedBy = nil
	m.auditor.Record(TableSales, saleID, audit.ActionRestore, sale, &restored, actorID, reqCtx)
	m.logger.Info("sale restored", "sale_id", saleID, "actor", actorID)
	return nil
}

// ArchiveProduct soft-deletes a product. Refused while any non-deleted
// sale still references it.
func (m *Manager) ArchiveProduct(productID, actorID, reason string, reqCtx *audit.RequestContext) error {
	p, err := m.store.GetProduct(productID)
	if err != nil {
		return fmt.Errorf("fetching product: %w", err)
	}
	if p == nil {
		return ErrNotFound
	}
	if p.IsDeleted {
		return &PreconditionError{Op: "archive product", Reason: "product is already archived"}
	}

	active, err := m.store.CountActiveSalesForProduct(productID)
	if err != nil {
		return fmt.Errorf("counting active sales: %w", err)
	}
	if active > 0 {
		return &PreconditionError{
			Op:     "archive product",
			Reason: fmt.Sprintf("%d active sale(s) still reference it", active),
		}
	}

	now := m.clock.Now().UTC()
	if err := m.store.SetProductDeleted(productID, true, &now, &actorID); err != nil {
		return fmt.Errorf("archiving product: %w", err)
	}

	m.auditor.Record(TableProducts, productID, audit.ActionSoftDelete,
		archiveRecord{Record: p, Reason: reason}, nil, actorID, reqCtx)
	m.logger.Info("product archived", "product_id", productID, "actor", actorID)
	return nil
}

// RestoreProduct reinstates an archived product.
func (m *Manager) RestoreProduct(productID, actorID string, reqCtx *audit.RequestContext) error {
	p, err := m.store.GetProduct(productID)
	if err != nil {
		return fmt.Errorf("fetching product: %w", err)
	}
	if p == nil {
		return ErrNotFound
	}
	if !p.IsDeleted {
		return &PreconditionError{Op: "restore product", Reason: "product is not archived"}
	}

	if err := m.store.SetProductDeleted(productID, false, nil, nil); err != nil {
		return fmt.Errorf("restoring product: %w", err)
	}

	restored := *p
	restored.IsDeleted = false
	restored.DeletedAt = nil
	restored.DeletedBy = nil
	m.auditor.Record(TableProducts, productID, audit.ActionRestore, p, &restored, actorID, reqCtx)
	m.logger.Info("product restored", "product_id", productID, "actor", actorID)
	return nil
}

// PurgeProduct permanently deletes an archived product. Administrator
// only: requires the exact confirmation token and a substantive reason,
// and is refused if any sale — deleted or not — has ever referenced the
// product.
func (m *Manager) PurgeProduct(productID, actorID, confirmationToken, reason string, reqCtx *audit.RequestContext) error {
	if err := validatePurge(confirmationToken, reason); err != nil {
		return err
	}

	p, err := m.store.GetProduct(productID)
	if err != nil {
		return fmt.Errorf("fetching product: %w", err)
	}
	if p == nil {
		return ErrNotFound
	}
	if !p.IsDeleted {
		return &PreconditionError{Op: "purge product", Reason: "only archived products can be purged"}
	}

	refs, err := m.store.CountSalesForProduct(productID)
	if err != nil {
		return fmt.Errorf("counting historical sales: %w", err)
	}
	if refs > 0 {
		return &PreconditionError{
			Op:     "purge product",
			Reason: fmt.Sprintf("%d historical sale reference(s) exist", refs),
		}
	}

	// Stock movements reference the product too, and can exist without
	// any sale item (compensation after a failed sale pipeline, purged
	// sales). They are history and block the purge the same way.
	moves, err := m.store.CountStockMovementsForProduct(productID)
	if err != nil {
		return fmt.Errorf("counting stock movements: %w", err)
	}
	if moves > 0 {
		return &PreconditionError{
			Op:     "purge product",
			Reason: fmt.Sprintf("%d stock movement record(s) exist", moves),
		}
	}

	if err := m.store.DeleteProduct(productID); err != nil {
		return fmt.Errorf("purging product: %w", err)
	}

	m.auditor.Record(TableProducts, productID, audit.ActionDelete,
		archiveRecord{Record: p, Reason: reason}, nil, actorID, reqCtx)
	m.logger.Info("product purged", "product_id", productID, "actor", actorID)
	return nil
}

// PurgeSale permanently deletes an archived sale and its line items.
func (m *Manager) PurgeSale(saleID, actorID, confirmationToken, reason string, reqCtx *audit.RequestContext) error {
	if err := validatePurge(confirmationToken, reason); err != nil {
		return err
	}

	sale, err := m.store.GetSale(saleID)
	if err != nil {
		return fmt.Errorf("fetching sale: %w", err)
	}
	if sale == nil {
		return ErrNotFound
	}
	if !sale.IsDeleted {
		return &PreconditionError{Op: "purge sale", Reason: "only archived sales can be purged"}
	}

	items, err := m.store.ListSaleItems(saleID)
	if err != nil {
		return fmt.Errorf("fetching sale items: %w", err)
	}

	if err := m.store.DeleteSale(saleID); err != nil {
		return fmt.Errorf("purging sale: %w", err)
	}

	m.auditor.Record(TableSales, saleID, audit.ActionDelete,
		archiveRecord{Record: saleSnapshot(sale, items), Reason: reason}, nil, actorID, reqCtx)
	m.logger.Info("sale purged", "sale_id", saleID, "actor", actorID)
	return nil
}

// validatePurge rejects a purge before anything is touched.
func validatePurge(confirmationToken, reason string) error {
	if confirmationToken != PurgeToken {
		return &PreconditionError{Op: "purge", Reason: "confirmation token does not match"}
	}
	if len(strings.TrimSpace(reason)) < minPurgeReasonLen {
		return &PreconditionError{
			Op:     "purge",
			Reason: fmt.Sprintf("a reason of at least %d characters is required", minPurgeReasonLen),
		}
	}
	return nil
}

// applyMovements adjusts stock by sign*item.Quantity for each line item in
// order, short-circuiting on the first failure. It returns the items whose
// movements committed; on error the caller compensates exactly those.
func (m *Manager) applyMovements(items []*SaleItem, sign int64, reason, saleID, actorID string, at time.Time) ([]*SaleItem, error) {
	var applied []*SaleItem
	for _, item := range items {
		mv := &StockMovement{
			ID:          m.idgen.New(),
			ProductID:   item.ProductID,
			Change:      sign * item.Quantity,
			Reason:      reason,
			ReferenceID: saleID,
			CreatedBy:   actorID,
			CreatedAt:   at,
		}
		if err := m.store.AdjustStock(mv); err != nil {
			return applied, err
		}
		applied = append(applied, item)
	}
	return applied, nil
}

// compensate reverses committed movements after a mid-pipeline failure.
// Compensation failures are logged loudly: they mean stock needs manual
// correction.
func (m *Manager) compensate(applied []*SaleItem, reason, saleID, actorID string) {
	now := m.clock.Now().UTC()
	for i := len(applied) - 1; i >= 0; i-- {
		item := applied[i]
		var change int64
		switch reason {
		case ReasonSaleArchived:
			change = -item.Quantity
		default:
			change = item.Quantity
		}
		mv := &StockMovement{
			ID:          m.idgen.New(),
			ProductID:   item.ProductID,
			Change:      change,
			Reason:      reason,
			ReferenceID: saleID,
			CreatedBy:   actorID,
			CreatedAt:   now,
		}
		if err := m.store.AdjustStock(mv); err != nil {
			m.logger.Error("stock compensation failed, manual correction needed",
				"product_id", item.ProductID, "sale_id", saleID, "change", change, "error", err)
		}
	}
}

// shortfallError builds the full shortfall list for a failed deduction.
func (m *Manager) shortfallError(saleID string, items []*SaleItem) error {
	e := &InsufficientStockError{SaleID: saleID}
	for _, item := range items {
		p, err := m.store.GetProduct(item.ProductID)
		if err != nil || p == nil {
			continue
		}
		if p.Stock < item.Quantity {
			e.Shortfalls = append(e.Shortfalls, StockShortfall{
				ProductID: item.ProductID,
				Required:  item.Quantity,
				Available: p.Stock,
			})
		}
	}
	if len(e.Shortfalls) == 0 {
		return ErrStockConflict
	}
	return e
}

// saleSnapshot is the audited shape of a sale with its line items.
func saleSnapshot(sale *Sale, items []*SaleItem) map[string]any {
	return map[string]any{"sale": sale, "items": items}
}

func itemProductIDs(items []*SaleItem) []string {
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ProductID
	}
	return ids
}
