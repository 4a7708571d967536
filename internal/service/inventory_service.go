// internal/service/inventory_service.go
package service

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/plateiq/restock/internal/cache"
	"github.com/plateiq/restock/internal/domain"
	"github.com/plateiq/restock/internal/repository"
)

// InventoryService fans usage and delivery events out to the two ledgers.
// The daily log is the system of record for balances; the batch ledger
// deduction is best-effort and independent of it.
type InventoryService struct {
	batches repository.BatchRepository
	logs    repository.DailyLogRepository
	cache   cache.RecommendationCache
}

func NewInventoryService(batches repository.BatchRepository, logs repository.DailyLogRepository, cacheImpl cache.RecommendationCache) *InventoryService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopRecommendationCache()
	}
	return &InventoryService{batches: batches, logs: logs, cache: cacheImpl}
}

// RecordUsage posts usage to the daily log, then deducts matching stock from
// the batch ledger in FIFO order. A failed deduction does not undo the log
// post; the log keeps the arithmetic balance either way and the failure is
// logged for reconciliation.
func (s *InventoryService) RecordUsage(ctx context.Context, restaurantID, ingredientID int64, qty decimal.Decimal) (*domain.DailyLogRow, *domain.ConsumeResult, error) {
	row, err := s.logs.PostUsage(ctx, restaurantID, ingredientID, qty)
	if err != nil {
		return nil, nil, err
	}

	result, err := s.batches.ConsumeFIFO(ctx, restaurantID, ingredientID, qty)
	if err != nil {
		log.Warn().
			Err(err).
			Int64("restaurant_id", restaurantID).
			Int64("ingredient_id", ingredientID).
			Str("qty", qty.String()).
			Msg("usage logged but batch deduction failed")
		result = nil
	} else if result.Shortfall.Sign() > 0 {
		log.Info().
			Int64("restaurant_id", restaurantID).
			Int64("ingredient_id", ingredientID).
			Str("shortfall", result.Shortfall.String()).
			Msg("recorded stock could not cover usage")
	}

	s.invalidate(ctx, restaurantID)
	return row, result, nil
}

// ReceiveDelivery creates a batch for the delivery and posts the restock to
// the daily log.
func (s *InventoryService) ReceiveDelivery(ctx context.Context, params repository.ReceiveParams) (*domain.Batch, *domain.DailyLogRow, error) {
	batch, err := s.batches.Receive(ctx, params)
	if err != nil {
		return nil, nil, err
	}

	row, err := s.logs.PostRestock(ctx, params.RestaurantID, params.IngredientID, params.Qty)
	if err != nil {
		return nil, nil, err
	}

	s.invalidate(ctx, params.RestaurantID)
	return batch, row, nil
}

// SweepExpired flips expired batches and reports the affected ids.
func (s *InventoryService) SweepExpired(ctx context.Context, restaurantID int64) ([]int64, error) {
	ids, err := s.batches.SweepExpired(ctx, restaurantID)
	if err != nil {
		return nil, err
	}
	if len(ids) > 0 {
		log.Info().
			Int64("restaurant_id", restaurantID).
			Int("count", len(ids)).
			Msg("marked batches expired")
		s.invalidate(ctx, restaurantID)
	}
	return ids, nil
}

// ExpiringAlerts lists active batches expiring within the horizon.
func (s *InventoryService) ExpiringAlerts(ctx context.Context, restaurantID int64, horizonDays int) ([]domain.Batch, error) {
	if horizonDays <= 0 {
		horizonDays = 3
	}
	return s.batches.ExpiringSoon(ctx, restaurantID, horizonDays)
}

func (s *InventoryService) invalidate(ctx context.Context, restaurantID int64) {
	if err := s.cache.Invalidate(ctx, restaurantID); err != nil {
		log.Warn().Err(err).Int64("restaurant_id", restaurantID).Msg("recommendation cache invalidation failed")
	}
}
