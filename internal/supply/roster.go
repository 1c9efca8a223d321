// Package supply manages what is owed to suppliers: the cached roster used
// for transfer attribution, pending payment rounds, and the settlement flow.
package supply

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/mavrykpremium/orderbot/internal/cache"
	"github.com/mavrykpremium/orderbot/internal/logging"
	"github.com/mavrykpremium/orderbot/internal/models"
)

const defaultRosterTTL = 5 * time.Minute

// SupplierLister is the database side of the roster.
type SupplierLister interface {
	ListSuppliers(ctx context.Context) ([]models.Supplier, error)
}

// Roster serves the supplier list through the cache so every webhook does
// not hit the database. Staleness up to the TTL is acceptable: suppliers
// change rarely and a miss only delays attribution by one round.
type Roster struct {
	source SupplierLister
	cache  cache.Provider
	ttl    time.Duration
	logger *slog.Logger
}

func NewRoster(source SupplierLister, provider cache.Provider, logger *slog.Logger) *Roster {
	return &Roster{source: source, cache: provider, ttl: defaultRosterTTL, logger: logger}
}

func (r *Roster) Suppliers(ctx context.Context) ([]models.Supplier, error) {
	log := logging.FromContext(ctx, r.logger)

	if raw, err := r.cache.Get(ctx, cache.RosterKey()); err == nil {
		var roster []models.Supplier
		if err := json.Unmarshal([]byte(raw), &roster); err == nil {
			return roster, nil
		}
		log.Warn("cached roster is corrupt, reloading")
	}

	roster, err := r.source.ListSuppliers(ctx)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(roster); err == nil {
		if err := r.cache.Set(ctx, cache.RosterKey(), string(raw), r.ttl); err != nil {
			log.Warn("roster cache write failed", slog.Any("error", err))
		}
	}
	return roster, nil
}

// Invalidate drops the cached snapshot, for use after roster edits.
func (r *Roster) Invalidate(ctx context.Context) error {
	return r.cache.Delete(ctx, cache.RosterKey())
}
