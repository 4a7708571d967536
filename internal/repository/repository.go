// internal/repository/repository.go
package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/plateiq/restock/internal/domain"
)

// ReceiveParams describes a new batch delivery.
type ReceiveParams struct {
	RestaurantID    int64
	IngredientID    int64
	Qty             decimal.Decimal
	SupplierName    *string
	SupplierContact *string
	CostPerUnit     decimal.Decimal
	ReceivedDate    *time.Time // defaults to today
	ExpirationDate  *time.Time // nil = no expiration
}

// BatchRepository owns all batch (lot) mutation. Batches are scoped by
// (restaurant, ingredient) and never physically deleted.
type BatchRepository interface {
	// Receive creates an active batch with qty_remaining = qty.
	Receive(ctx context.Context, params ReceiveParams) (*domain.Batch, error)

	// ConsumeFIFO deducts qty from active batches, earliest-expiring first
	// (nil expirations last, ties by received date). The affected row set is
	// locked and updated atomically; insufficient stock is reported as
	// shortfall, not as an error.
	ConsumeFIFO(ctx context.Context, restaurantID, ingredientID int64, qty decimal.Decimal) (*domain.ConsumeResult, error)

	// SweepExpired transitions active batches past their expiration date to
	// expired and returns the affected batch ids. Idempotent.
	SweepExpired(ctx context.Context, restaurantID int64) ([]int64, error)

	// ExpiringSoon returns active batches expiring within horizonDays of
	// today, soonest first.
	ExpiringSoon(ctx context.Context, restaurantID int64, horizonDays int) ([]domain.Batch, error)

	// ListBatches returns batches for an ingredient in FIFO order,
	// optionally filtered by status.
	ListBatches(ctx context.Context, restaurantID, ingredientID int64, status *domain.BatchStatus) ([]domain.Batch, error)

	GetBatch(ctx context.Context, batchID int64) (*domain.Batch, error)
}

// DailyLogRepository owns the per-(restaurant, ingredient, day)
// reconciliation rows.
type DailyLogRepository interface {
	// PostUsage records usage for today. The first post of the day seeds
	// inventory_start from the most recent prior day's inventory_end (0 if
	// none); later posts the same day accumulate.
	PostUsage(ctx context.Context, restaurantID, ingredientID int64, qty decimal.Decimal) (*domain.DailyLogRow, error)

	// PostRestock records a restock for today with the same seeding and
	// accumulation rules.
	PostRestock(ctx context.Context, restaurantID, ingredientID int64, qty decimal.Decimal) (*domain.DailyLogRow, error)

	// History returns rows for the last days calendar days, chronological.
	History(ctx context.Context, restaurantID, ingredientID int64, days int) ([]domain.DailyLogRow, error)

	// CurrentLevels returns the most recent row per active ingredient.
	CurrentLevels(ctx context.Context, restaurantID int64) ([]domain.IngredientLevel, error)
}

// IngredientRepository reads catalog reference data and manages which
// ingredients a restaurant stocks. Rows are soft-removed, never deleted.
type IngredientRepository interface {
	ListCatalog(ctx context.Context) ([]domain.Ingredient, error)
	ListForRestaurant(ctx context.Context, restaurantID int64) ([]domain.RestaurantIngredient, error)
	GetForRestaurant(ctx context.Context, restaurantID, ingredientID int64) (*domain.RestaurantIngredient, error)
	Attach(ctx context.Context, restaurantID, ingredientID int64, leadTimeDays, safetyStockDays int) (*domain.RestaurantIngredient, error)
	Detach(ctx context.Context, restaurantID, ingredientID int64) error
}

// ForecastRepository reads model-produced forecasts. The core never writes
// forecasts; a training pipeline emits them out of band.
type ForecastRepository interface {
	// LatestModelForecasts returns the model-tier entries for the most
	// recent prediction date of the restaurant.
	LatestModelForecasts(ctx context.Context, restaurantID int64) ([]domain.ForecastEntry, error)
}
