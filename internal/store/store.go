package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"aurum/internal/audit"
	"aurum/internal/inventory"
)

// Product operations

func (s *Store) CreateProduct(p *inventory.Product) error {
	_, err := s.db.Exec(`
		INSERT INTO products (id, sku, name, price_cents, stock, is_deleted, deleted_at, deleted_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.SKU, p.Name, p.PriceCents, p.Stock, p.IsDeleted, nullTime(p.DeletedAt), nullString(p.DeletedBy), p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting product: %w", err)
	}
	return nil
}

func (s *Store) UpdateProduct(p *inventory.Product) error {
	res, err := s.db.Exec(`
		UPDATE products SET sku = ?, name = ?, price_cents = ?, updated_at = ?
		WHERE id = ?`,
		p.SKU, p.Name, p.PriceCents, p.UpdatedAt, p.ID)
	if err != nil {
		return fmt.Errorf("updating product: %w", err)
	}
	return requireOneRow(res, "product", p.ID)
}

func (s *Store) GetProduct(id string) (*inventory.Product, error) {
	row := s.db.QueryRow(`
		SELECT id, sku, name, price_cents, stock, is_deleted, deleted_at, deleted_by, created_at, updated_at
		FROM products WHERE id = ?`, id)

	var p inventory.Product
	var deletedAt sql.NullTime
	var deletedBy sql.NullString
	err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.PriceCents, &p.Stock, &p.IsDeleted, &deletedAt, &deletedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding product: %w", err)
	}
	p.DeletedAt = timePtr(deletedAt)
	p.DeletedBy = stringPtr(deletedBy)
	return &p, nil
}

func (s *Store) SetProductDeleted(id string, deleted bool, at *time.Time, by *string) error {
	res, err := s.db.Exec(`
		UPDATE products SET is_deleted = ?, deleted_at = ?, deleted_by = ?, updated_at = ?
		WHERE id = ?`,
		deleted, nullTime(at), nullString(by), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("flagging product: %w", err)
	}
	return requireOneRow(res, "product", id)
}

func (s *Store) DeleteProduct(id string) error {
	res, err := s.db.Exec(`DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting product: %w", err)
	}
	return requireOneRow(res, "product", id)
}

func (s *Store) CountActiveSalesForProduct(productID string) (int64, error) {
	var n int64
	err := s.db.QueryRow(`
		SELECT count(*)
		FROM sale_items si JOIN sales sa ON sa.id = si.sale_id
		WHERE si.product_id = ? AND sa.is_deleted = 0`, productID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting active sales: %w", err)
	}
	return n, nil
}

func (s *Store) CountSalesForProduct(productID string) (int64, error) {
	var n int64
	err := s.db.QueryRow(`
		SELECT count(*) FROM sale_items WHERE product_id = ?`, productID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting sales: %w", err)
	}
	return n, nil
}

func (s *Store) CountStockMovementsForProduct(productID string) (int64, error) {
	var n int64
	err := s.db.QueryRow(`
		SELECT count(*) FROM stock_movements WHERE product_id = ?`, productID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting stock movements: %w", err)
	}
	return n, nil
}

// Sale operations

func (s *Store) CreateSale(sale *inventory.Sale, items []*inventory.SaleItem) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO sales (id, total_cents, created_by, is_deleted, deleted_at, deleted_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sale.ID, sale.TotalCents, sale.CreatedBy, sale.IsDeleted, nullTime(sale.DeletedAt), nullString(sale.DeletedBy), sale.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting sale: %w", err)
	}

	for _, item := range items {
		_, err = tx.Exec(`
			INSERT INTO sale_items (id, sale_id, product_id, quantity, unit_price_cents)
			VALUES (?, ?, ?, ?, ?)`,
			item.ID, item.SaleID, item.ProductID, item.Quantity, item.UnitPriceCents)
		if err != nil {
			return fmt.Errorf("inserting sale item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing sale: %w", err)
	}
	return nil
}

func (s *Store) GetSale(id string) (*inventory.Sale, error) {
	row := s.db.QueryRow(`
		SELECT id, total_cents, created_by, is_deleted, deleted_at, deleted_by, created_at
		FROM sales WHERE id = ?`, id)

	var sale inventory.Sale
	var deletedAt sql.NullTime
	var deletedBy sql.NullString
	err := row.Scan(&sale.ID, &sale.TotalCents, &sale.CreatedBy, &sale.IsDeleted, &deletedAt, &deletedBy, &sale.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding sale: %w", err)
	}
	sale.DeletedAt = timePtr(deletedAt)
	sale.DeletedBy = stringPtr(deletedBy)
	return &sale, nil
}

func (s *Store) ListSaleItems(saleID string) ([]*inventory.SaleItem, error) {
	rows, err := s.db.Query(`
		SELECT id, sale_id, product_id, quantity, unit_price_cents
		FROM sale_items WHERE sale_id = ? ORDER BY id`, saleID)
	if err != nil {
		return nil, fmt.Errorf("listing sale items: %w", err)
	}
	defer rows.Close()

	var items []*inventory.SaleItem
	for rows.Next() {
		var item inventory.SaleItem
		if err := rows.Scan(&item.ID, &item.SaleID, &item.ProductID, &item.Quantity, &item.UnitPriceCents); err != nil {
			return nil, fmt.Errorf("scanning sale item: %w", err)
		}
		items = append(items, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading sale items: %w", err)
	}
	return items, nil
}

func (s *Store) SetSaleDeleted(id string, deleted bool, at *time.Time, by *string) error {
	res, err := s.db.Exec(`
		UPDATE sales SET is_deleted = ?, deleted_at = ?, deleted_by = ?
		WHERE id = ?`,
		deleted, nullTime(at), nullString(by), id)
	if err != nil {
		return fmt.Errorf("flagging sale: %w", err)
	}
	return requireOneRow(res, "sale", id)
}

func (s *Store) DeleteSale(id string) error {
	// sale_items cascade on delete.
	res, err := s.db.Exec(`DELETE FROM sales WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting sale: %w", err)
	}
	return requireOneRow(res, "sale", id)
}

// Stock operations

// AdjustStock applies the movement's change to the product's stock and
// records the movement atomically. The UPDATE predicate guards against
// driving stock negative; a guarded miss reports ErrStockConflict.
func (s *Store) AdjustStock(m *inventory.StockMovement) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	var before int64
	err = tx.QueryRow(`SELECT stock FROM products WHERE id = ?`, m.ProductID).Scan(&before)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("product not found: %s", m.ProductID)
		}
		return fmt.Errorf("reading stock: %w", err)
	}

	res, err := tx.Exec(`
		UPDATE products SET stock = stock + ?, updated_at = ?
		WHERE id = ? AND stock + ? >= 0`,
		m.Change, m.CreatedAt, m.ProductID, m.Change)
	if err != nil {
		return fmt.Errorf("updating stock: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking stock update: %w", err)
	}
	if affected == 0 {
		return inventory.ErrStockConflict
	}

	m.StockBefore = before
	m.StockAfter = before + m.Change

	_, err = tx.Exec(`
		INSERT INTO stock_movements (id, product_id, change, stock_before, stock_after, reason, reference_id, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.ProductID, m.Change, m.StockBefore, m.StockAfter, m.Reason, m.ReferenceID, m.CreatedBy, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("recording stock movement: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing stock adjustment: %w", err)
	}
	return nil
}

// ListStockMovements returns a product's movements, newest first.
func (s *Store) ListStockMovements(productID string, limit int) ([]*inventory.StockMovement, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(`
		SELECT id, product_id, change, stock_before, stock_after, reason, reference_id, created_by, created_at
		FROM stock_movements WHERE product_id = ?
		ORDER BY created_at DESC, id DESC LIMIT ?`, productID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing stock movements: %w", err)
	}
	defer rows.Close()

	var movements []*inventory.StockMovement
	for rows.Next() {
		var m inventory.StockMovement
		if err := rows.Scan(&m.ID, &m.ProductID, &m.Change, &m.StockBefore, &m.StockAfter, &m.Reason, &m.ReferenceID, &m.CreatedBy, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning stock movement: %w", err)
		}
		movements = append(movements, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading stock movements: %w", err)
	}
	return movements, nil
}

// Audit trail

func (s *Store) InsertAuditLog(e *audit.Entry) error {
	_, err := s.db.Exec(`
		INSERT INTO audit_logs (id, table_name, record_id, action, old_values, new_values, actor_id, source_ip, user_agent, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.TableName, e.RecordID, e.Action, nullString(e.OldValues), nullString(e.NewValues),
		e.ActorID, nullString(e.SourceIP), nullString(e.UserAgent), e.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting audit log: %w", err)
	}
	return nil
}

// QueryAuditLogs returns entries matching the filter, newest first. The
// filter combinations vary per call, so the statement is built
// dynamically.
func (s *Store) QueryAuditLogs(f audit.Filter) ([]*audit.Entry, error) {
	q := sq.Select("id", "table_name", "record_id", "action", "old_values", "new_values",
		"actor_id", "source_ip", "user_agent", "created_at").
		From("audit_logs").
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(f.Limit))

	if f.TableName != "" {
		q = q.Where(sq.Eq{"table_name": f.TableName})
	}
	if f.RecordID != "" {
		q = q.Where(sq.Eq{"record_id": f.RecordID})
	}
	if f.ActorID != "" {
		q = q.Where(sq.Eq{"actor_id": f.ActorID})
	}
	if !f.From.IsZero() {
		q = q.Where(sq.GtOrEq{"created_at": f.From})
	}
	if !f.To.IsZero() {
		q = q.Where(sq.LtOrEq{"created_at": f.To})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building audit query: %w", err)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying audit logs: %w", err)
	}
	defer rows.Close()

	var entries []*audit.Entry
	for rows.Next() {
		var e audit.Entry
		var oldV, newV, ip, ua sql.NullString
		if err := rows.Scan(&e.ID, &e.TableName, &e.RecordID, &e.Action, &oldV, &newV, &e.ActorID, &ip, &ua, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning audit log: %w", err)
		}
		e.OldValues = stringPtr(oldV)
		e.NewValues = stringPtr(newV)
		e.SourceIP = stringPtr(ip)
		e.UserAgent = stringPtr(ua)
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading audit logs: %w", err)
	}
	return entries, nil
}

// Helpers

func requireOneRow(res sql.Result, entity, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

// Compile-time checks that Store satisfies the domain contracts.
var _ inventory.Store = (*Store)(nil)
var _ audit.Store = (*Store)(nil)
