// Package store implements the persistence port over Postgres.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/order-importer/internal/address"
)

// Postgres persists addresses and order-address links. Each upsert batch
// runs inside its own transaction; a failure mid-batch rolls the whole
// batch back so a partial import is never visible.
type Postgres struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostgres creates a store on top of an open connection pool.
func NewPostgres(db *sql.DB, logger *zap.Logger) *Postgres {
	return &Postgres{db: db, logger: logger}
}

const upsertAddressSQL = `
	INSERT INTO addresses (
		address_line1, address_line2, city, state, postal_code, country
	) VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (address_line1, city, state, postal_code)
	DO UPDATE SET
		address_line2 = EXCLUDED.address_line2,
		country = EXCLUDED.country
	RETURNING id
`

// UpsertAddresses inserts or updates one batch of unique addresses and
// returns the identity-key -> id lookup. On conflict the existing row's id
// is preserved and its mutable fields take the new values.
func (s *Postgres) UpsertAddresses(ctx context.Context, addrs []address.Components) (map[string]int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertAddressSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare address upsert: %w", err)
	}
	defer stmt.Close()

	ids := make(map[string]int64, len(addrs))
	for _, a := range addrs {
		var id int64
		err := stmt.QueryRowContext(ctx,
			a.Line1, nullIfEmpty(a.Line2), a.City, a.State, a.PostalCode, a.Country,
		).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("failed to upsert address %q: %w", a.Line1, err)
		}
		ids[a.IdentityKey()] = id
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit address batch: %w", err)
	}

	s.logger.Debug("address batch committed", zap.Int("count", len(ids)))
	return ids, nil
}

const upsertLinkSQL = `
	INSERT INTO order_addresses (order_id, shipping_address_id, billing_address_id)
	VALUES ($1, $2, $3)
	ON CONFLICT (order_id)
	DO UPDATE SET
		shipping_address_id = EXCLUDED.shipping_address_id,
		billing_address_id = EXCLUDED.billing_address_id
`

// UpsertOrderLinks writes one batch of order-to-address links with
// last-write-wins semantics on the two id columns.
func (s *Postgres) UpsertOrderLinks(ctx context.Context, links []address.Link) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertLinkSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare link upsert: %w", err)
	}
	defer stmt.Close()

	for _, l := range links {
		if _, err := stmt.ExecContext(ctx, l.OrderID, l.ShippingAddressID, l.BillingAddressID); err != nil {
			return fmt.Errorf("failed to upsert link for order %s: %w", l.OrderID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit link batch: %w", err)
	}

	s.logger.Debug("link batch committed", zap.Int("count", len(links)))
	return nil
}

// nullIfEmpty maps an empty string to SQL NULL.
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
