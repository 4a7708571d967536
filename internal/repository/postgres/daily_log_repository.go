// internal/repository/postgres/daily_log_repository.go
package postgres

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/plateiq/restock/internal/domain"
	"github.com/plateiq/restock/internal/repository"
)

const logColumns = `
	id, restaurant_id, ingredient_id, log_date,
	inventory_start, qty_used, inventory_end, on_order_qty,
	COALESCE(avg_daily_usage_7d, 0) AS avg_daily_usage_7d,
	COALESCE(avg_daily_usage_28d, 0) AS avg_daily_usage_28d`

type dailyLogRepository struct {
	db *DB
}

func NewDailyLogRepository(db *DB) repository.DailyLogRepository {
	return &dailyLogRepository{db: db}
}

// PostUsage upserts today's row in one atomic statement: the INSERT seeds
// inventory_start from the most recent prior day's inventory_end, the
// conflict branch accumulates. Concurrent same-day posts serialize on the
// row without losing updates.
//
// inventory_end is deliberately not clamped: the log is an arithmetic
// balance sheet and a negative balance signals an over-commitment.
func (r *dailyLogRepository) PostUsage(ctx context.Context, restaurantID, ingredientID int64, qty decimal.Decimal) (*domain.DailyLogRow, error) {
	if qty.Sign() <= 0 {
		return nil, fmt.Errorf("usage qty %s: %w", qty, domain.ErrInvalidQuantity)
	}

	query := `
		INSERT INTO daily_inventory_log
			(restaurant_id, ingredient_id, log_date, inventory_start, qty_used, inventory_end)
		SELECT $1, $2, CURRENT_DATE, carry.prev_end, $3, carry.prev_end - $3
		FROM (
			SELECT COALESCE(
				(SELECT inventory_end FROM daily_inventory_log
				 WHERE restaurant_id = $1 AND ingredient_id = $2
				   AND log_date < CURRENT_DATE
				 ORDER BY log_date DESC LIMIT 1),
				0
			) AS prev_end
		) carry
		ON CONFLICT (restaurant_id, ingredient_id, log_date)
		DO UPDATE SET qty_used      = daily_inventory_log.qty_used + EXCLUDED.qty_used,
		              inventory_end = daily_inventory_log.inventory_end - EXCLUDED.qty_used
		RETURNING ` + logColumns

	var row domain.DailyLogRow
	if err := r.db.GetContext(ctx, &row, query, restaurantID, ingredientID, qty); err != nil {
		return nil, mapConflict(fmt.Errorf("failed to post usage: %w", err))
	}

	return &row, nil
}

// PostRestock follows the same seeding rule; it accumulates on_order_qty and
// adds to inventory_end.
func (r *dailyLogRepository) PostRestock(ctx context.Context, restaurantID, ingredientID int64, qty decimal.Decimal) (*domain.DailyLogRow, error) {
	if qty.Sign() <= 0 {
		return nil, fmt.Errorf("restock qty %s: %w", qty, domain.ErrInvalidQuantity)
	}

	query := `
		INSERT INTO daily_inventory_log
			(restaurant_id, ingredient_id, log_date, inventory_start, qty_used, inventory_end, on_order_qty)
		SELECT $1, $2, CURRENT_DATE, carry.prev_end, 0, carry.prev_end + $3, $3
		FROM (
			SELECT COALESCE(
				(SELECT inventory_end FROM daily_inventory_log
				 WHERE restaurant_id = $1 AND ingredient_id = $2
				   AND log_date < CURRENT_DATE
				 ORDER BY log_date DESC LIMIT 1),
				0
			) AS prev_end
		) carry
		ON CONFLICT (restaurant_id, ingredient_id, log_date)
		DO UPDATE SET inventory_end = daily_inventory_log.inventory_end + EXCLUDED.on_order_qty,
		              on_order_qty  = daily_inventory_log.on_order_qty + EXCLUDED.on_order_qty
		RETURNING ` + logColumns

	var row domain.DailyLogRow
	if err := r.db.GetContext(ctx, &row, query, restaurantID, ingredientID, qty); err != nil {
		return nil, mapConflict(fmt.Errorf("failed to post restock: %w", err))
	}

	return &row, nil
}

func (r *dailyLogRepository) History(ctx context.Context, restaurantID, ingredientID int64, days int) ([]domain.DailyLogRow, error) {
	if days <= 0 {
		days = 30
	}

	query := `
		SELECT ` + logColumns + `
		FROM daily_inventory_log
		WHERE restaurant_id = $1 AND ingredient_id = $2
		  AND log_date >= CURRENT_DATE - $3 * INTERVAL '1 day'
		ORDER BY log_date
	`

	var rows []domain.DailyLogRow
	if err := r.db.SelectContext(ctx, &rows, query, restaurantID, ingredientID, days); err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}

	return rows, nil
}

func (r *dailyLogRepository) CurrentLevels(ctx context.Context, restaurantID int64) ([]domain.IngredientLevel, error) {
	query := `
		SELECT DISTINCT ON (d.ingredient_id)
		       d.ingredient_id, i.ingredient_name, i.unit,
		       COALESCE(i.shelf_life_days, 0) AS shelf_life_days,
		       d.log_date, d.inventory_start, d.qty_used,
		       d.inventory_end, d.on_order_qty,
		       COALESCE(d.avg_daily_usage_7d, 0) AS avg_daily_usage_7d,
		       COALESCE(d.avg_daily_usage_28d, 0) AS avg_daily_usage_28d
		FROM daily_inventory_log d
		JOIN ingredients i ON i.ingredient_id = d.ingredient_id
		JOIN restaurant_ingredients ri
		  ON ri.restaurant_id = d.restaurant_id
		 AND ri.ingredient_id = d.ingredient_id
		 AND ri.is_active = TRUE
		WHERE d.restaurant_id = $1
		ORDER BY d.ingredient_id, d.log_date DESC
	`

	var levels []domain.IngredientLevel
	if err := r.db.SelectContext(ctx, &levels, query, restaurantID); err != nil {
		return nil, fmt.Errorf("failed to get current levels: %w", err)
	}

	return levels, nil
}
