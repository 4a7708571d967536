// internal/repository/postgres/ingredient_repository.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/plateiq/restock/internal/domain"
	"github.com/plateiq/restock/internal/repository"
)

type ingredientRepository struct {
	db *DB
}

func NewIngredientRepository(db *DB) repository.IngredientRepository {
	return &ingredientRepository{db: db}
}

func (r *ingredientRepository) ListCatalog(ctx context.Context) ([]domain.Ingredient, error) {
	query := `
		SELECT ingredient_id, ingredient_name, unit,
		       COALESCE(unit_cost, 0) AS unit_cost, is_active
		FROM ingredients
		WHERE is_active = TRUE
		ORDER BY ingredient_name
	`

	var ingredients []domain.Ingredient
	if err := r.db.SelectContext(ctx, &ingredients, query); err != nil {
		return nil, fmt.Errorf("failed to list catalog: %w", err)
	}

	return ingredients, nil
}

func (r *ingredientRepository) ListForRestaurant(ctx context.Context, restaurantID int64) ([]domain.RestaurantIngredient, error) {
	query := `
		SELECT ri.restaurant_id, i.ingredient_id, i.ingredient_name, i.unit,
		       ri.lead_time_days, ri.safety_stock_days, ri.first_stocked_date,
		       ri.is_active
		FROM restaurant_ingredients ri
		JOIN ingredients i ON i.ingredient_id = ri.ingredient_id
		WHERE ri.restaurant_id = $1 AND ri.is_active = TRUE
		ORDER BY i.ingredient_name
	`

	var ingredients []domain.RestaurantIngredient
	if err := r.db.SelectContext(ctx, &ingredients, query, restaurantID); err != nil {
		return nil, fmt.Errorf("failed to list restaurant ingredients: %w", err)
	}

	return ingredients, nil
}

func (r *ingredientRepository) GetForRestaurant(ctx context.Context, restaurantID, ingredientID int64) (*domain.RestaurantIngredient, error) {
	query := `
		SELECT ri.restaurant_id, i.ingredient_id, i.ingredient_name, i.unit,
		       ri.lead_time_days, ri.safety_stock_days, ri.first_stocked_date,
		       ri.is_active
		FROM restaurant_ingredients ri
		JOIN ingredients i ON i.ingredient_id = ri.ingredient_id
		WHERE ri.restaurant_id = $1 AND ri.ingredient_id = $2
	`

	var ingredient domain.RestaurantIngredient
	if err := r.db.GetContext(ctx, &ingredient, query, restaurantID, ingredientID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("ingredient %d for restaurant %d: %w",
				ingredientID, restaurantID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get restaurant ingredient: %w", err)
	}

	return &ingredient, nil
}

// Attach adds an ingredient to a restaurant, reactivating a soft-removed row
// if one exists.
func (r *ingredientRepository) Attach(ctx context.Context, restaurantID, ingredientID int64, leadTimeDays, safetyStockDays int) (*domain.RestaurantIngredient, error) {
	query := `
		INSERT INTO restaurant_ingredients
			(restaurant_id, ingredient_id, lead_time_days, safety_stock_days)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (restaurant_id, ingredient_id)
		DO UPDATE SET is_active = TRUE,
		              lead_time_days = EXCLUDED.lead_time_days,
		              safety_stock_days = EXCLUDED.safety_stock_days
		RETURNING restaurant_id, ingredient_id, lead_time_days,
		          safety_stock_days, first_stocked_date, is_active
	`

	var row struct {
		RestaurantID     int64        `db:"restaurant_id"`
		IngredientID     int64        `db:"ingredient_id"`
		LeadTimeDays     int          `db:"lead_time_days"`
		SafetyStockDays  int          `db:"safety_stock_days"`
		FirstStockedDate sql.NullTime `db:"first_stocked_date"`
		IsActive         bool         `db:"is_active"`
	}
	if err := r.db.GetContext(ctx, &row, query, restaurantID, ingredientID, leadTimeDays, safetyStockDays); err != nil {
		return nil, fmt.Errorf("failed to attach ingredient: %w", err)
	}

	out := &domain.RestaurantIngredient{
		RestaurantID:    row.RestaurantID,
		IngredientID:    row.IngredientID,
		LeadTimeDays:    row.LeadTimeDays,
		SafetyStockDays: row.SafetyStockDays,
		IsActive:        row.IsActive,
	}
	if row.FirstStockedDate.Valid {
		out.FirstStockedDate = &row.FirstStockedDate.Time
	}
	return out, nil
}

// Detach soft-removes an ingredient from a restaurant.
func (r *ingredientRepository) Detach(ctx context.Context, restaurantID, ingredientID int64) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE restaurant_ingredients
		SET is_active = FALSE
		WHERE restaurant_id = $1 AND ingredient_id = $2
	`, restaurantID, ingredientID)
	if err != nil {
		return fmt.Errorf("failed to detach ingredient: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check detach result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("ingredient %d for restaurant %d: %w",
			ingredientID, restaurantID, domain.ErrNotFound)
	}

	return nil
}
