// internal/service/recommendation_service.go
package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/plateiq/restock/internal/cache"
	"github.com/plateiq/restock/internal/domain"
	"github.com/plateiq/restock/internal/engine"
	"github.com/plateiq/restock/internal/forecast"
	"github.com/plateiq/restock/internal/repository"
)

// expiryLookaheadDays bounds how far ahead batch expirations can tighten the
// spoilage horizon; anything further out than the longest category shelf
// life is irrelevant to prioritization.
const expiryLookaheadDays = 30

// RecommendationService runs the full decision pipeline: merge forecast
// tiers, join the ledger snapshot, classify, recommend, rank. It is
// read-only over both ledgers.
type RecommendationService struct {
	aggregator *forecast.Aggregator
	batches    repository.BatchRepository
	engine     *engine.Engine
	cache      cache.RecommendationCache
}

func NewRecommendationService(aggregator *forecast.Aggregator, batches repository.BatchRepository, eng *engine.Engine, cacheImpl cache.RecommendationCache) *RecommendationService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopRecommendationCache()
	}
	return &RecommendationService{
		aggregator: aggregator,
		batches:    batches,
		engine:     eng,
		cache:      cacheImpl,
	}
}

// Recommend produces the ranked recommendation list for a restaurant.
func (s *RecommendationService) Recommend(ctx context.Context, restaurantID int64) ([]domain.RestockRecommendation, error) {
	if cached, ok, err := s.cache.Get(ctx, restaurantID); err == nil && ok {
		return cached, nil
	} else if err != nil {
		log.Warn().Err(err).Int64("restaurant_id", restaurantID).Msg("recommendation cache get failed")
	}

	merged, err := s.aggregator.Merge(ctx, restaurantID)
	if err != nil {
		return nil, err
	}

	soonestExpiry, err := s.soonestExpiryByIngredient(ctx, restaurantID)
	if err != nil {
		// Prioritization degrades to policy-derived spoilage horizons.
		log.Warn().Err(err).Int64("restaurant_id", restaurantID).Msg("could not load batch expirations")
		soonestExpiry = nil
	}

	inputs := make([]engine.Input, 0, len(merged.Merged))
	for _, entry := range merged.Merged {
		in := engine.Input{
			IngredientID:          entry.IngredientID,
			IngredientName:        entry.IngredientName,
			CurrentInventory:      entry.CurrentInventory,
			PredictedInventoryEnd: entry.PredictedInventory,
			AvgDailyUsage:         entry.AvgDailyUsage,
		}
		if days, ok := soonestExpiry[entry.IngredientID]; ok {
			d := days
			in.SoonestExpiryDays = &d
		}
		inputs = append(inputs, in)
	}

	recommendations := s.engine.RecommendAll(inputs)

	if err := s.cache.Set(ctx, restaurantID, recommendations); err != nil {
		log.Warn().Err(err).Int64("restaurant_id", restaurantID).Msg("recommendation cache set failed")
	}

	return recommendations, nil
}

// Forecasts exposes the merged forecast view without running the engine.
func (s *RecommendationService) Forecasts(ctx context.Context, restaurantID int64) (*forecast.Result, error) {
	return s.aggregator.Merge(ctx, restaurantID)
}

func (s *RecommendationService) soonestExpiryByIngredient(ctx context.Context, restaurantID int64) (map[int64]float64, error) {
	batches, err := s.batches.ExpiringSoon(ctx, restaurantID, expiryLookaheadDays)
	if err != nil {
		return nil, err
	}

	today := time.Now().Truncate(24 * time.Hour)
	soonest := make(map[int64]float64, len(batches))
	for _, batch := range batches {
		if batch.ExpirationDate == nil {
			continue
		}
		days := batch.ExpirationDate.Sub(today).Hours() / 24
		if days < 0 {
			days = 0
		}
		if current, ok := soonest[batch.IngredientID]; !ok || days < current {
			soonest[batch.IngredientID] = days
		}
	}

	return soonest, nil
}
