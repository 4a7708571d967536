// internal/forecast/aggregator.go
//
// Merges the two forecast tiers into one per-ingredient view. The model tier
// comes from a training pipeline the core does not own; the heuristic tier is
// computed on the fly for every tracked ingredient so the merged view always
// covers the full catalog.
package forecast

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/plateiq/restock/internal/domain"
	"github.com/plateiq/restock/internal/repository"
)

// Aggregator merges model forecasts with the heuristic fallback tier.
// It performs no persistence.
type Aggregator struct {
	forecasts repository.ForecastRepository
	logs      repository.DailyLogRepository
}

func NewAggregator(forecasts repository.ForecastRepository, logs repository.DailyLogRepository) *Aggregator {
	return &Aggregator{forecasts: forecasts, logs: logs}
}

// Result carries both tiers plus the merged per-ingredient view.
type Result struct {
	Model     []domain.ForecastEntry `json:"model"`
	Heuristic []domain.ForecastEntry `json:"heuristic"`
	Merged    []domain.ForecastEntry `json:"all"`
}

// Merge builds the per-ingredient forecast view for a restaurant. Exactly one
// entry per ingredient survives in Merged; high-confidence entries shadow
// low-confidence ones.
func (a *Aggregator) Merge(ctx context.Context, restaurantID int64) (*Result, error) {
	levels, err := a.logs.CurrentLevels(ctx, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load current levels: %w", err)
	}

	model, err := a.forecasts.LatestModelForecasts(ctx, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load model forecasts: %w", err)
	}

	byIngredient := make(map[int64]domain.IngredientLevel, len(levels))
	for _, lvl := range levels {
		byIngredient[lvl.IngredientID] = lvl
	}

	// Model entries carry only prediction figures; usage and stock context
	// come from the reconciliation log.
	for i := range model {
		if lvl, ok := byIngredient[model[i].IngredientID]; ok {
			enrichFromLevel(&model[i], lvl)
		}
	}

	heuristic := make([]domain.ForecastEntry, 0, len(levels))
	for _, lvl := range levels {
		heuristic = append(heuristic, HeuristicEntry(lvl))
	}

	merged := mergeByIngredient(model, heuristic)

	return &Result{Model: model, Heuristic: heuristic, Merged: merged}, nil
}

// HeuristicEntry computes the low-confidence fallback forecast from the
// ingredient's latest reconciliation row: available stock is current plus
// on-order, and the stockout horizon is available divided by average daily
// usage. With no usage signal the stockout horizon is left unset (no
// stockout risk). The ending-inventory estimate is the no-change projection.
func HeuristicEntry(lvl domain.IngredientLevel) domain.ForecastEntry {
	entry := domain.ForecastEntry{
		IngredientID:   lvl.IngredientID,
		IngredientName: lvl.Name,
		Unit:           lvl.Unit,
		Confidence:     domain.ConfidenceLow,
		PredictionDate: lvl.LogDate,
	}
	enrichFromLevel(&entry, lvl)
	entry.PredictedInventory = entry.CurrentInventory + entry.OnOrderQty

	if entry.AvgDailyUsage > 0 {
		days := math.Round(entry.PredictedInventory / entry.AvgDailyUsage)
		entry.DaysUntilStockout = &days
	}

	return entry
}

func enrichFromLevel(entry *domain.ForecastEntry, lvl domain.IngredientLevel) {
	entry.CurrentInventory = lvl.InventoryEnd.InexactFloat64()
	entry.OnOrderQty = lvl.OnOrderQty.InexactFloat64()
	entry.AvgDailyUsage = lvl.AvgDailyUsage7
	if entry.AvgDailyUsage == 0 {
		entry.AvgDailyUsage = lvl.AvgDailyUsage28
	}
}

// mergeByIngredient applies the tier precedence rule over a keyed mapping:
// a model entry always shadows the heuristic entry for the same ingredient.
// Output order is by ingredient name then id, independent of input order.
func mergeByIngredient(model, heuristic []domain.ForecastEntry) []domain.ForecastEntry {
	chosen := make(map[int64]domain.ForecastEntry, len(model)+len(heuristic))
	for _, entry := range model {
		chosen[entry.IngredientID] = entry
	}
	for _, entry := range heuristic {
		if _, shadowed := chosen[entry.IngredientID]; !shadowed {
			chosen[entry.IngredientID] = entry
		}
	}

	merged := make([]domain.ForecastEntry, 0, len(chosen))
	for _, entry := range chosen {
		merged = append(merged, entry)
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].IngredientName != merged[j].IngredientName {
			return merged[i].IngredientName < merged[j].IngredientName
		}
		return merged[i].IngredientID < merged[j].IngredientID
	})

	return merged
}
