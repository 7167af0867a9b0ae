package address

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// OrderRow is the slice of an imported order row the reconciler needs.
// Either raw address may be empty when the export had no value.
type OrderRow struct {
	OrderID     string
	ShippingRaw string
	BillingRaw  string
}

// Link joins one order to its persisted shipping and billing addresses.
type Link struct {
	OrderID           string
	ShippingAddressID int64
	BillingAddressID  int64
}

// Store is the persistence port the reconciler writes through.
//
// UpsertAddresses must be atomic per batch: on identity-key conflict the
// mutable fields (line2, country) are overwritten and the existing id kept.
// The returned map is keyed by Components.IdentityKey. UpsertOrderLinks
// overwrites both address ids on order_id conflict. Both calls roll back
// the whole batch on failure.
type Store interface {
	UpsertAddresses(ctx context.Context, addrs []Components) (map[string]int64, error)
	UpsertOrderLinks(ctx context.Context, links []Link) error
}

// Stats are the counts reported after one reconciliation run.
type Stats struct {
	AddressesPersisted int
	OrdersLinked       int
	OrdersSkipped      int
}

const parseCacheSize = 4096

// Reconciler deduplicates the addresses referenced by one batch of order
// rows, persists the unique set and links each order to its shipping and
// billing address ids. State is per-batch only; nothing survives a run
// except what the store commits.
type Reconciler struct {
	parser Parser
	store  Store
	logger *zap.Logger
	cache  *lru.Cache[string, parseOutcome]
	stats  Stats
}

// parse results are cached so the linking pass reuses the collection
// pass's work instead of parsing every string twice
type parseOutcome struct {
	components Components
	ok         bool
}

// NewReconciler creates a reconciler writing through the given store.
func NewReconciler(parser Parser, store Store, logger *zap.Logger) *Reconciler {
	cache, _ := lru.New[string, parseOutcome](parseCacheSize)
	return &Reconciler{
		parser: parser,
		store:  store,
		logger: logger,
		cache:  cache,
	}
}

func (r *Reconciler) parse(raw string, role Role) (Components, bool) {
	key := string(role) + "|" + raw
	if out, hit := r.cache.Get(key); hit {
		return out.components, out.ok
	}
	c, ok := r.parser.Parse(raw, role)
	r.cache.Add(key, parseOutcome{components: c, ok: ok})
	return c, ok
}

// Stats returns the counts from the most recent Reconcile call.
func (r *Reconciler) Stats() Stats {
	return r.stats
}

// Reconcile runs the four passes over one batch: collect unique raw
// references, parse and dedup by identity key, persist the unique
// addresses, then resolve and persist per-order links. Per-row parse and
// lookup problems are logged and skipped; only store failures abort the
// run, in which case nothing from the failed pass is committed.
func (r *Reconciler) Reconcile(ctx context.Context, rows []OrderRow) (map[string]Link, error) {
	r.stats = Stats{}

	type ref struct {
		raw  string
		role Role
	}

	// Collection pass: textual dedup of (raw, role) pairs, order preserved.
	seen := make(map[ref]struct{})
	var refs []ref
	for _, row := range rows {
		for _, candidate := range []ref{
			{raw: row.ShippingRaw, role: RoleShipping},
			{raw: row.BillingRaw, role: RoleBilling},
		} {
			if candidate.raw == "" {
				continue
			}
			if _, dup := seen[candidate]; dup {
				continue
			}
			seen[candidate] = struct{}{}
			refs = append(refs, candidate)
		}
	}

	// Parse pass: identity-key dedup, first parse wins.
	seenKeys := make(map[string]struct{})
	var unique []Components
	for _, rf := range refs {
		c, ok := r.parse(rf.raw, rf.role)
		if !ok {
			r.logger.Warn("dropping unparseable address",
				zap.String("role", string(rf.role)),
				zap.String("raw", rf.raw))
			continue
		}
		key := c.IdentityKey()
		if _, dup := seenKeys[key]; dup {
			continue
		}
		seenKeys[key] = struct{}{}
		unique = append(unique, c)
	}

	// Persist pass: one batched upsert, identity key -> id lookup.
	lookup := make(map[string]int64)
	if len(unique) > 0 {
		var err error
		lookup, err = r.store.UpsertAddresses(ctx, unique)
		if err != nil {
			return nil, fmt.Errorf("upserting addresses: %w", err)
		}
	} else {
		r.logger.Warn("no valid addresses in batch")
	}
	r.stats.AddressesPersisted = len(unique)

	// Linking pass: all-or-nothing per order.
	links := make(map[string]Link, len(rows))
	var batch []Link
	for _, row := range rows {
		ship, shipOK := r.parse(row.ShippingRaw, RoleShipping)
		bill, billOK := r.parse(row.BillingRaw, RoleBilling)
		if !shipOK || !billOK {
			r.stats.OrdersSkipped++
			r.logger.Warn("order left unlinked: address unparseable",
				zap.String("order_id", row.OrderID))
			continue
		}
		shipID, shipFound := lookup[ship.IdentityKey()]
		billID, billFound := lookup[bill.IdentityKey()]
		if !shipFound || !billFound {
			r.stats.OrdersSkipped++
			r.logger.Warn("order left unlinked: address not resolved",
				zap.String("order_id", row.OrderID))
			continue
		}
		link := Link{
			OrderID:           row.OrderID,
			ShippingAddressID: shipID,
			BillingAddressID:  billID,
		}
		links[row.OrderID] = link
		batch = append(batch, link)
	}

	if len(batch) > 0 {
		if err := r.store.UpsertOrderLinks(ctx, batch); err != nil {
			return nil, fmt.Errorf("upserting order links: %w", err)
		}
	}
	r.stats.OrdersLinked = len(batch)

	r.logger.Info("address reconciliation complete",
		zap.Int("addresses_persisted", r.stats.AddressesPersisted),
		zap.Int("orders_linked", r.stats.OrdersLinked),
		zap.Int("orders_skipped", r.stats.OrdersSkipped))

	return links, nil
}
