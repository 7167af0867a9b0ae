package importer

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// ImportDigitalOrders processes the three files of one digital ordering
// export: orders, items and payments.
func (im *Importer) ImportDigitalOrders(ctx context.Context, ordersPath, itemsPath, paymentsPath string) error {
	im.logger.Info("importing digital orders",
		zap.String("orders", ordersPath),
		zap.String("items", itemsPath),
		zap.String("payments", paymentsPath))

	orders, err := ReadCSV(ordersPath)
	if err != nil {
		return err
	}
	items, err := ReadCSV(itemsPath)
	if err != nil {
		return err
	}
	payments, err := ReadCSV(paymentsPath)
	if err != nil {
		return err
	}

	if err := im.processDigitalOrders(ctx, orders); err != nil {
		return err
	}
	if err := im.processDigitalItems(ctx, items); err != nil {
		return err
	}
	return im.processDigitalPayments(ctx, payments)
}

const upsertDigitalOrderSQL = `
	INSERT INTO digital_orders (
		order_id, delivery_packet_id, marketplace, order_date,
		fulfilled_date, is_fulfilled, currency
	) VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (order_id) DO UPDATE
	SET fulfilled_date = EXCLUDED.fulfilled_date,
	    is_fulfilled = EXCLUDED.is_fulfilled
`

func (im *Importer) processDigitalOrders(ctx context.Context, t *Table) error {
	tx, err := im.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertDigitalOrderSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare digital order upsert: %w", err)
	}
	defer stmt.Close()

	seen := make(map[string]bool)
	inserted := 0
	for i := 0; i < t.Len(); i++ {
		orderID := t.Value(i, "OrderId")
		if orderID == "" || seen[orderID] {
			continue
		}
		seen[orderID] = true

		_, err := stmt.ExecContext(ctx,
			orderID,
			t.Value(i, "DeliveryPacketId"),
			t.Value(i, "Marketplace"),
			parseDate(t.Value(i, "OrderDate")),
			parseDate(t.Value(i, "DeliveryDate")),
			t.Value(i, "DeliveryStatus") == "Delivery Complete",
			"USD",
		)
		if err != nil {
			return fmt.Errorf("failed to upsert digital order %s: %w", orderID, err)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit digital orders: %w", err)
	}

	im.logger.Info("digital orders imported", zap.Int("count", inserted))
	return nil
}

const insertDigitalItemSQL = `
	INSERT INTO digital_order_items (
		digital_order_id, product_id, quantity, unit_price
	)
	SELECT dor.id, p.id, $1, $2
	FROM digital_orders dor
	JOIN products p ON p.asin = $3
	WHERE dor.order_id = $4
	ON CONFLICT DO NOTHING
`

func (im *Importer) processDigitalItems(ctx context.Context, t *Table) error {
	// Products must exist before the item insert-select can resolve them.
	if err := im.processProducts(ctx, t); err != nil {
		return err
	}

	tx, err := im.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertDigitalItemSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare digital item insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for i := 0; i < t.Len(); i++ {
		orderID := t.Value(i, "OrderId")
		asin := t.Value(i, "ASIN")
		if orderID == "" || asin == "" {
			continue
		}

		_, err := stmt.ExecContext(ctx,
			clampQuantity(t.Value(i, "QuantityOrdered")),
			cleanMoney(t.Value(i, "OurPrice")),
			asin,
			orderID,
		)
		if err != nil {
			im.logger.Warn("skipping digital item",
				zap.String("item_id", t.Value(i, "DigitalOrderItemId")),
				zap.Error(err))
			continue
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit digital items: %w", err)
	}

	im.logger.Info("digital items imported", zap.Int("count", inserted))
	return nil
}

const insertDigitalPaymentSQL = `
	INSERT INTO digital_order_payments (
		digital_order_id, transaction_amount, currency,
		claim_code, monetary_component_type, offer_type
	)
	SELECT dor.id, $1, $2, $3, $4, $5
	FROM digital_orders dor
	WHERE dor.delivery_packet_id = $6
	ON CONFLICT DO NOTHING
`

func (im *Importer) processDigitalPayments(ctx context.Context, t *Table) error {
	tx, err := im.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertDigitalPaymentSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare digital payment insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for i := 0; i < t.Len(); i++ {
		packetID := t.Value(i, "DeliveryPacketId")
		if packetID == "" {
			continue
		}

		currency := t.Value(i, "BaseCurrencyCode")
		if isMissing(currency) {
			currency = "USD"
		}

		_, err := stmt.ExecContext(ctx,
			cleanMoney(t.Value(i, "TransactionAmount")),
			currency,
			nullIfMissing(t.Value(i, "ClaimCode")),
			t.Value(i, "MonetaryComponentTypeCode"),
			nullIfMissing(t.Value(i, "OfferTypeCode")),
			packetID,
		)
		if err != nil {
			im.logger.Warn("skipping digital payment",
				zap.String("delivery_packet_id", packetID),
				zap.Error(err))
			continue
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit digital payments: %w", err)
	}

	im.logger.Info("digital payments imported", zap.Int("count", inserted))
	return nil
}

const insertBorrowSQL = `
	INSERT INTO digital_borrows (
		asin, loan_creation_date, loan_acceptance_date,
		loan_status, loan_program, end_date,
		delivery_device_name, content_type, is_first_content_loan
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT DO NOTHING
`

// ImportDigitalBorrows processes one digital borrows CSV.
func (im *Importer) ImportDigitalBorrows(ctx context.Context, path string) error {
	im.logger.Info("importing digital borrows", zap.String("file", path))

	t, err := ReadCSV(path)
	if err != nil {
		return err
	}

	if err := im.processProducts(ctx, t); err != nil {
		return err
	}

	tx, err := im.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertBorrowSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare borrow insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for i := 0; i < t.Len(); i++ {
		asin := t.Value(i, "ASIN")
		if asin == "" {
			continue
		}

		_, err := stmt.ExecContext(ctx,
			asin,
			parseDate(t.Value(i, "LoanCreationDate")),
			parseDate(t.Value(i, "LoanAcceptanceDate")),
			nullIfMissing(t.Value(i, "LoanStatus")),
			nullIfMissing(t.Value(i, "LoanProgram")),
			parseDate(t.Value(i, "EndDate")),
			nullIfMissing(t.Value(i, "DeliveryDeviceName")),
			nullIfMissing(t.Value(i, "ContentType")),
			parseYesNo(t.Value(i, "IsFirstContentLoan")),
		)
		if err != nil {
			return fmt.Errorf("failed to insert digital borrow for %s: %w", asin, err)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit digital borrows: %w", err)
	}

	im.logger.Info("digital borrows imported", zap.Int("count", inserted))
	return nil
}
