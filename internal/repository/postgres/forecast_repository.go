// internal/repository/postgres/forecast_repository.go
package postgres

import (
	"context"
	"fmt"

	"github.com/plateiq/restock/internal/domain"
	"github.com/plateiq/restock/internal/repository"
)

type forecastRepository struct {
	db *DB
}

func NewForecastRepository(db *DB) repository.ForecastRepository {
	return &forecastRepository{db: db}
}

// LatestModelForecasts reads the model-tier predictions written by the
// training pipeline, restricted to the restaurant's most recent prediction
// date so stale rows never shadow fresh ones.
func (r *forecastRepository) LatestModelForecasts(ctx context.Context, restaurantID int64) ([]domain.ForecastEntry, error) {
	query := `
		SELECT p.ingredient_id, i.ingredient_name, i.unit,
		       p.prediction_date, p.predicted_inventory_end,
		       p.reorder_point, p.target_stock_level, p.days_until_stockout
		FROM predictions p
		JOIN ingredients i ON i.ingredient_id = p.ingredient_id
		WHERE p.restaurant_id = $1
		  AND p.prediction_date = (
		      SELECT MAX(prediction_date) FROM predictions
		      WHERE restaurant_id = $1
		  )
		ORDER BY i.ingredient_name
	`

	var entries []domain.ForecastEntry
	if err := r.db.SelectContext(ctx, &entries, query, restaurantID); err != nil {
		return nil, fmt.Errorf("failed to get model forecasts: %w", err)
	}

	for i := range entries {
		entries[i].Confidence = domain.ConfidenceHigh
	}

	return entries, nil
}
