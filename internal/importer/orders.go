package importer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/order-importer/internal/address"
)

// ImportRetailOrders processes one retail order history CSV: products,
// orders and order items, plus address reconciliation when the file
// carries address columns.
func (im *Importer) ImportRetailOrders(ctx context.Context, path string) error {
	im.logger.Info("importing retail orders", zap.String("file", path))

	t, err := ReadCSV(path)
	if err != nil {
		return err
	}

	if err := im.processProducts(ctx, t); err != nil {
		return err
	}
	if err := im.processOrders(ctx, t); err != nil {
		return err
	}
	if err := im.processOrderItems(ctx, t); err != nil {
		return err
	}
	if _, ok := t.Column(shippingColumns...); ok {
		if err := im.processAddresses(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

const upsertProductSQL = `
	INSERT INTO products (asin, product_name)
	VALUES ($1, $2)
	ON CONFLICT (asin) DO UPDATE
	SET product_name = EXCLUDED.product_name,
	    updated_at = CURRENT_TIMESTAMP
`

// processProducts upserts the unique products referenced by the file,
// keeping the last product name seen per ASIN.
func (im *Importer) processProducts(ctx context.Context, t *Table) error {
	nameCol, ok := t.Column("ProductName", "Product Name")
	if !ok {
		return fmt.Errorf("no product name column in %s", t.path)
	}

	// last name wins per ASIN
	names := make(map[string]string)
	var asins []string
	for i := 0; i < t.Len(); i++ {
		asin := t.Value(i, "ASIN")
		if asin == "" {
			continue
		}
		if _, seen := names[asin]; !seen {
			asins = append(asins, asin)
		}
		names[asin] = t.Value(i, nameCol)
	}

	tx, err := im.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertProductSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare product upsert: %w", err)
	}
	defer stmt.Close()

	for _, asin := range asins {
		if _, err := stmt.ExecContext(ctx, asin, nullIfMissing(names[asin])); err != nil {
			return fmt.Errorf("failed to upsert product %s: %w", asin, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit products: %w", err)
	}

	im.logger.Info("products imported", zap.Int("count", len(asins)))
	return nil
}

const insertOrderSQL = `
	INSERT INTO orders (
		order_id, website, order_date, currency,
		total_owed, shipping_charge, total_discounts
	) VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (order_id) DO NOTHING
`

// processOrders inserts the unique orders in the file. Existing orders are
// left untouched.
func (im *Importer) processOrders(ctx context.Context, t *Table) error {
	tx, err := im.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertOrderSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare order insert: %w", err)
	}
	defer stmt.Close()

	seen := make(map[string]bool)
	inserted := 0
	for i := 0; i < t.Len(); i++ {
		orderID := t.Value(i, "Order ID")
		if orderID == "" || seen[orderID] {
			continue
		}
		seen[orderID] = true

		_, err := stmt.ExecContext(ctx,
			orderID,
			t.Value(i, "Website"),
			parseDate(t.Value(i, "Order Date")),
			t.Value(i, "Currency"),
			cleanMoney(t.Value(i, "Total Owed")),
			cleanMoney(t.Value(i, "Shipping Charge")),
			cleanMoney(t.Value(i, "Total Discounts")),
		)
		if err != nil {
			return fmt.Errorf("failed to insert order %s: %w", orderID, err)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit orders: %w", err)
	}

	im.logger.Info("orders imported", zap.Int("count", inserted))
	return nil
}

const insertOrderItemSQL = `
	INSERT INTO order_items (
		order_id, product_id, quantity, unit_price,
		unit_price_tax, shipment_status, ship_date
	)
	SELECT $1, p.id, $2, $3, $4, $5::shipment_status_enum, $6
	FROM products p
	WHERE p.asin = $7
	ON CONFLICT DO NOTHING
`

// processOrderItems inserts line items, resolving each ASIN against the
// products table. Rows that fail are logged and skipped, not fatal.
func (im *Importer) processOrderItems(ctx context.Context, t *Table) error {
	tx, err := im.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertOrderItemSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare order item insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	skipped := 0
	for i := 0; i < t.Len(); i++ {
		orderID := t.Value(i, "Order ID")
		asin := t.Value(i, "ASIN")
		if orderID == "" || asin == "" {
			skipped++
			continue
		}

		_, err := stmt.ExecContext(ctx,
			orderID,
			clampQuantity(t.Value(i, "Quantity")),
			cleanMoney(t.Value(i, "Unit Price")),
			cleanMoney(t.Value(i, "Unit Price Tax")),
			mapShipmentStatus(t.Value(i, "Shipment Status")),
			parseDate(t.Value(i, "Ship Date")),
			asin,
		)
		if err != nil {
			im.logger.Warn("skipping order item",
				zap.String("order_id", orderID),
				zap.String("asin", asin),
				zap.Error(err))
			skipped++
			continue
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit order items: %w", err)
	}

	im.logger.Info("order items imported",
		zap.Int("count", inserted), zap.Int("skipped", skipped))
	return nil
}

// Column spellings vary between export versions.
var (
	shippingColumns = []string{"ShippingAddress", "Shipping Address", "Ship-Address", "Ship Address"}
	billingColumns  = []string{"BillingAddress", "Billing Address", "Bill-Address", "Bill Address"}
	orderIDColumns  = []string{"Order ID", "OrderId", "Order-ID", "order_id"}
)

// processAddresses hands the file's order rows to the address reconciler.
func (im *Importer) processAddresses(ctx context.Context, t *Table) error {
	orderCol, ok := t.Column(orderIDColumns...)
	if !ok {
		return fmt.Errorf("no order id column in %s", t.path)
	}
	shipCol, _ := t.Column(shippingColumns...)
	billCol, _ := t.Column(billingColumns...)
	if shipCol == "" && billCol == "" {
		im.logger.Warn("no address columns found", zap.String("file", t.path))
		return nil
	}

	rows := make([]address.OrderRow, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		orderID := t.Value(i, orderCol)
		if orderID == "" {
			continue
		}
		rows = append(rows, address.OrderRow{
			OrderID:     orderID,
			ShippingRaw: t.Value(i, shipCol),
			BillingRaw:  t.Value(i, billCol),
		})
	}

	if _, err := im.reconciler.Reconcile(ctx, rows); err != nil {
		return fmt.Errorf("reconciling addresses from %s: %w", t.path, err)
	}
	return nil
}
