package importer

import (
	"database/sql"

	"go.uber.org/zap"

	"github.com/order-importer/internal/address"
)

// Importer loads order export CSV files into the database. Address
// reconciliation is delegated to the injected reconciler; everything else
// is field transformation and batched upserts.
type Importer struct {
	db         *sql.DB
	reconciler *address.Reconciler
	logger     *zap.Logger
}

// New creates an importer writing through the given connection pool.
func New(db *sql.DB, reconciler *address.Reconciler, logger *zap.Logger) *Importer {
	return &Importer{db: db, reconciler: reconciler, logger: logger}
}
