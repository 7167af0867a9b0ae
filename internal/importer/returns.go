package importer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ImportReturns processes one returns/refunds CSV: addresses first (the
// returns export carries shipping and billing columns), then the return
// and refund records themselves.
func (im *Importer) ImportReturns(ctx context.Context, path string) error {
	im.logger.Info("importing returns", zap.String("file", path))

	t, err := ReadCSV(path)
	if err != nil {
		return err
	}

	if _, ok := t.Column(shippingColumns...); ok {
		if err := im.processAddresses(ctx, t); err != nil {
			return err
		}
	}
	if err := im.processReturns(ctx, t); err != nil {
		return err
	}
	return im.processRefunds(ctx, t)
}

var returnColumns = map[string][]string{
	"auth":       {"ReturnAuthorizationId", "Return Authorization ID", "Return-Auth-ID", "return_authorization_id"},
	"date":       {"ReturnDate", "Return Date", "return_date"},
	"reason":     {"ReturnReason", "Return Reason", "reason", "return_reason"},
	"status":     {"ReturnStatus", "Return Status", "Status", "return_status"},
	"tracking":   {"TrackingId", "Tracking ID", "tracking_id"},
	"shipOption": {"ReturnShipOption", "Return Ship Option", "ShipOption", "ship_option"},
}

const insertReturnSQL = `
	INSERT INTO returns (
		return_authorization_id, order_item_id, return_date,
		return_status, return_reason, tracking_id, return_ship_option
	)
	SELECT $1, oi.id, $2, $3::return_status_enum, $4, $5, $6
	FROM order_items oi
	JOIN orders o ON o.order_id = oi.order_id
	WHERE o.order_id = $7
	ON CONFLICT (return_authorization_id) DO NOTHING
`

// processReturns inserts return records, joined to the order items they
// reverse. Rows without a resolvable order are logged and skipped.
func (im *Importer) processReturns(ctx context.Context, t *Table) error {
	orderCol, orderOK := t.Column(orderIDColumns...)
	authCol, authOK := t.Column(returnColumns["auth"]...)
	dateCol, dateOK := t.Column(returnColumns["date"]...)
	if !orderOK || !authOK || !dateOK {
		return fmt.Errorf("missing required return columns in %s", t.path)
	}
	reasonCol, _ := t.Column(returnColumns["reason"]...)
	statusCol, _ := t.Column(returnColumns["status"]...)
	trackingCol, _ := t.Column(returnColumns["tracking"]...)
	shipOptCol, _ := t.Column(returnColumns["shipOption"]...)

	tx, err := im.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertReturnSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare return insert: %w", err)
	}
	defer stmt.Close()

	seen := make(map[string]bool)
	inserted := 0
	for i := 0; i < t.Len(); i++ {
		authID := t.Value(i, authCol)
		if authID == "" || seen[authID] {
			continue
		}
		seen[authID] = true

		_, err := stmt.ExecContext(ctx,
			authID,
			parseDate(t.Value(i, dateCol)),
			mapReturnStatus(t.Value(i, statusCol)),
			nullIfMissing(t.Value(i, reasonCol)),
			nullIfMissing(t.Value(i, trackingCol)),
			nullIfMissing(t.Value(i, shipOptCol)),
			t.Value(i, orderCol),
		)
		if err != nil {
			im.logger.Warn("skipping return",
				zap.String("return_authorization_id", authID),
				zap.Error(err))
			continue
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit returns: %w", err)
	}

	im.logger.Info("returns imported", zap.Int("count", inserted))
	return nil
}

var refundColumns = map[string][]string{
	"auth":     {"ReturnAuthorizationId", "Return Authorization ID", "Return-Auth-ID", "return_authorization_id"},
	"reversal": {"ReversalId", "Reversal ID", "Reversal-ID", "reversal_id", "RefundId", "Refund ID"},
	"amount":   {"RefundAmount", "Refund Amount", "Amount", "refund_amount", "Amount Refunded"},
	"date":     {"RefundDate", "Refund Date", "Date", "refund_date"},
	"status":   {"RefundStatus", "Refund Status", "Status", "refund_status"},
	"currency": {"Currency", "currency", "CurrencyCode"},
}

const insertRefundSQL = `
	INSERT INTO refunds (
		return_id, reversal_id, amount_refunded,
		refund_date, status, currency
	)
	SELECT r.id, $1, $2, $3, $4, $5
	FROM returns r
	WHERE r.return_authorization_id = $6
	ON CONFLICT (reversal_id) DO NOTHING
`

// processRefunds inserts refund records against previously imported
// returns. Missing optional columns fall back to defaults: a synthetic
// REV-<auth> reversal id, the import time, Completed status and USD.
func (im *Importer) processRefunds(ctx context.Context, t *Table) error {
	authCol, authOK := t.Column(refundColumns["auth"]...)
	amountCol, amountOK := t.Column(refundColumns["amount"]...)
	if !authOK || !amountOK {
		return fmt.Errorf("missing required refund columns in %s", t.path)
	}
	reversalCol, _ := t.Column(refundColumns["reversal"]...)
	dateCol, _ := t.Column(refundColumns["date"]...)
	statusCol, _ := t.Column(refundColumns["status"]...)
	currencyCol, _ := t.Column(refundColumns["currency"]...)

	tx, err := im.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertRefundSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare refund insert: %w", err)
	}
	defer stmt.Close()

	seen := make(map[string]bool)
	inserted := 0
	for i := 0; i < t.Len(); i++ {
		authID := t.Value(i, authCol)
		if authID == "" || seen[authID] {
			continue
		}
		seen[authID] = true

		reversalID := t.Value(i, reversalCol)
		if isMissing(reversalID) {
			reversalID = "REV-" + authID
		}
		refundDate := parseDate(t.Value(i, dateCol))
		if refundDate == nil {
			now := time.Now().UTC()
			refundDate = &now
		}
		status := t.Value(i, statusCol)
		if isMissing(status) {
			status = "Completed"
		}
		currency := t.Value(i, currencyCol)
		if isMissing(currency) {
			currency = "USD"
		}

		_, err := stmt.ExecContext(ctx,
			reversalID,
			cleanMoney(t.Value(i, amountCol)),
			refundDate,
			status,
			currency,
			authID,
		)
		if err != nil {
			im.logger.Warn("skipping refund",
				zap.String("return_authorization_id", authID),
				zap.Error(err))
			continue
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit refunds: %w", err)
	}

	im.logger.Info("refunds imported", zap.Int("count", inserted))
	return nil
}
