package mrp

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"hash"

	"github.com/vsinha/mrpbom/pkg/application/dto"
	"github.com/vsinha/mrpbom/pkg/domain/entities"
	"github.com/vsinha/mrpbom/pkg/domain/repositories"
)

// ResultCache stores finished run results by fingerprint
type ResultCache interface {
	GetResult(ctx context.Context, key string) (*dto.MRPResult, bool, error)
	SetResult(ctx context.Context, key string, result *dto.MRPResult) error
}

// Fingerprint hashes everything a run's output depends on: the catalog
// snapshot, the orders, the engine policies and, for the global date
// policy without orders, the clock's current day.
func (s *MRPService) Fingerprint(
	catalog repositories.CatalogReader,
	orders []*entities.ProductionOrder,
) (string, error) {
	h := sha1.New()
	cfg := s.config

	fmt.Fprintf(h, "cfg|%s|%s|%s|%s|%d\n", cfg.QuantityPolicy, cfg.DatePolicy, cfg.CycleGuard, cfg.Strictness, cfg.MaxDepth)
	fmt.Fprintf(h, "today|%s\n", cfg.Clock().Format("2006-01-02"))

	if err := hashCatalog(h, catalog); err != nil {
		return "", err
	}
	for _, o := range orders {
		if o == nil {
			continue
		}
		fmt.Fprintf(h, "o|%d|%d|%s|%s\n", o.ID, o.TargetListID, o.Quantity.String(), o.DueDate.Format("2006-01-02"))
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func hashCatalog(h hash.Hash, catalog repositories.CatalogReader) error {
	components, err := catalog.GetAllComponents()
	if err != nil {
		return fmt.Errorf("failed to load components: %w", err)
	}
	for _, c := range components {
		fmt.Fprintf(h, "c|%d|%s|%s|%s|%s|%d|%s\n",
			c.ID, c.Code, c.Name, c.UnitOfMeasure, c.StockQuantity.String(), c.LeadTimeDays, c.Kind)
	}

	lists, err := catalog.GetAllLists()
	if err != nil {
		return fmt.Errorf("failed to load lists: %w", err)
	}
	for _, l := range lists {
		fmt.Fprintf(h, "l|%d|%s|%s|%d\n", l.ID, l.Code, l.Name, l.Category)
	}

	lines, err := catalog.GetAllBOMLines()
	if err != nil {
		return fmt.Errorf("failed to load bom lines: %w", err)
	}
	for _, line := range lines {
		weighting := "-"
		if line.Weighting.Valid {
			weighting = line.Weighting.Decimal.String()
		}
		fmt.Fprintf(h, "b|%d|%d|%d|%d|%s|%s\n",
			line.ID, line.ParentListID, line.ChildComponentID, line.ChildListID, line.Quantity.String(), weighting)
	}
	return nil
}

// RunCached returns a stored result for an identical input, or runs the
// engine and stores the result. Cache failures are logged and never fail
// the run.
func (s *MRPService) RunCached(
	ctx context.Context,
	cache ResultCache,
	catalog repositories.CatalogReader,
	orders []*entities.ProductionOrder,
) (*dto.MRPResult, bool, error) {
	key, err := s.Fingerprint(catalog, orders)
	if err != nil {
		return nil, false, err
	}
	log := s.logger.With().Str("fingerprint", key).Logger()

	cached, ok, err := cache.GetResult(ctx, key)
	if err != nil {
		log.Warn().Err(err).Msg("result cache lookup failed")
	} else if ok {
		log.Debug().Str("run_id", cached.RunID).Msg("serving cached mrp result")
		return cached, true, nil
	}

	result, err := s.Run(ctx, catalog, orders)
	if err != nil {
		return nil, false, err
	}
	if err := cache.SetResult(ctx, key, result); err != nil {
		log.Warn().Err(err).Msg("result cache store failed")
	}
	return result, false, nil
}
