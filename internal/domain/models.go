// internal/domain/models.go
package domain

import (
	"encoding/json"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// BatchStatus is the lifecycle state of an ingredient batch.
type BatchStatus string

const (
	BatchActive   BatchStatus = "active"
	BatchDepleted BatchStatus = "depleted"
	BatchExpired  BatchStatus = "expired"
)

// Category groups ingredients by shelf-life and ordering pattern.
type Category string

const (
	CategoryProduce       Category = "produce"
	CategoryProtein       Category = "protein"
	CategoryDairy         Category = "dairy"
	CategoryNonPerishable Category = "non_perishable"
	CategoryAlcoholDry    Category = "alcohol_dry"
)

// Priority is the urgency of a restock recommendation, worst first.
type Priority string

const (
	PriorityCritical Priority = "CRITICAL"
	PriorityHigh     Priority = "HIGH"
	PriorityMedium   Priority = "MEDIUM"
	PriorityLow      Priority = "LOW"
)

// Rank orders priorities for sorting, 0 = most urgent.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	default:
		return 3
	}
}

// Confidence tags a forecast with its source tier.
type Confidence string

const (
	ConfidenceHigh Confidence = "high" // trained model with sufficient history
	ConfidenceLow  Confidence = "low"  // heuristic fallback
)

// Ingredient is catalog reference data. Never deleted, only deactivated.
type Ingredient struct {
	ID       int64           `json:"ingredient_id" db:"ingredient_id"`
	Name     string          `json:"ingredient_name" db:"ingredient_name"`
	Unit     string          `json:"unit" db:"unit"`
	UnitCost decimal.Decimal `json:"unit_cost" db:"unit_cost"`
	IsActive bool            `json:"is_active" db:"is_active"`
}

// RestaurantIngredient is an ingredient actively stocked by a restaurant,
// with per-restaurant ordering parameters.
type RestaurantIngredient struct {
	RestaurantID     int64      `json:"restaurant_id" db:"restaurant_id"`
	IngredientID     int64      `json:"ingredient_id" db:"ingredient_id"`
	Name             string     `json:"ingredient_name" db:"ingredient_name"`
	Unit             string     `json:"unit" db:"unit"`
	LeadTimeDays     int        `json:"lead_time_days" db:"lead_time_days"`
	SafetyStockDays  int        `json:"safety_stock_days" db:"safety_stock_days"`
	FirstStockedDate *time.Time `json:"first_stocked_date" db:"first_stocked_date"`
	IsActive         bool       `json:"is_active" db:"is_active"`
}

// Batch is a discrete receipt (lot) of an ingredient, tracked independently
// for FIFO consumption and expiration.
//
// Invariant: 0 <= QtyRemaining <= QtyReceived. QtyRemaining only decreases
// after creation; the expiry sweep flips status without touching quantity.
type Batch struct {
	ID              int64           `json:"batch_id" db:"batch_id"`
	RestaurantID    int64           `json:"restaurant_id" db:"restaurant_id"`
	IngredientID    int64           `json:"ingredient_id" db:"ingredient_id"`
	SupplierName    *string         `json:"supplier_name" db:"supplier_name"`
	SupplierContact *string         `json:"supplier_contact" db:"supplier_contact"`
	CostPerUnit     decimal.Decimal `json:"purchase_cost_per_unit" db:"purchase_cost_per_unit"`
	QtyReceived     decimal.Decimal `json:"qty_received" db:"qty_received"`
	QtyRemaining    decimal.Decimal `json:"qty_remaining" db:"qty_remaining"`
	ReceivedDate    time.Time       `json:"received_date" db:"received_date"`
	ExpirationDate  *time.Time      `json:"expiration_date" db:"expiration_date"`
	Status          BatchStatus     `json:"status" db:"status"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
}

// BatchDelta records the effect of a FIFO consumption on one batch.
type BatchDelta struct {
	BatchID      int64           `json:"batch_id"`
	QtyDeducted  decimal.Decimal `json:"qty_deducted"`
	QtyRemaining decimal.Decimal `json:"qty_remaining"`
	Status       BatchStatus     `json:"status"`
}

// ConsumeResult is the outcome of a FIFO consumption. A positive shortfall
// means recorded stock could not cover the request; it is a normal outcome,
// not an error.
type ConsumeResult struct {
	Affected      []BatchDelta    `json:"affected_batches"`
	TotalDeducted decimal.Decimal `json:"total_deducted"`
	Shortfall     decimal.Decimal `json:"shortfall"`
}

// DailyLogRow is the reconciliation row for one (restaurant, ingredient, day).
//
// InventoryEnd is an arithmetic balance and may go negative to signal an
// over-commitment; only batch-level quantities are clamped at zero.
type DailyLogRow struct {
	ID             int64           `json:"id" db:"id"`
	RestaurantID   int64           `json:"restaurant_id" db:"restaurant_id"`
	IngredientID   int64           `json:"ingredient_id" db:"ingredient_id"`
	LogDate        time.Time       `json:"log_date" db:"log_date"`
	InventoryStart decimal.Decimal `json:"inventory_start" db:"inventory_start"`
	QtyUsed        decimal.Decimal `json:"qty_used" db:"qty_used"`
	InventoryEnd   decimal.Decimal `json:"inventory_end" db:"inventory_end"`
	OnOrderQty     decimal.Decimal `json:"on_order_qty" db:"on_order_qty"`
	AvgDailyUsage7 float64         `json:"avg_daily_usage_7d" db:"avg_daily_usage_7d"`
	AvgDailyUsage28 float64        `json:"avg_daily_usage_28d" db:"avg_daily_usage_28d"`
}

// IngredientLevel is the most recent log row per ingredient, joined with
// catalog data. One per active ingredient in CurrentLevels.
type IngredientLevel struct {
	IngredientID    int64           `json:"ingredient_id" db:"ingredient_id"`
	Name            string          `json:"ingredient_name" db:"ingredient_name"`
	Unit            string          `json:"unit" db:"unit"`
	ShelfLifeDays   int             `json:"shelf_life_days" db:"shelf_life_days"`
	LogDate         time.Time       `json:"log_date" db:"log_date"`
	InventoryStart  decimal.Decimal `json:"inventory_start" db:"inventory_start"`
	QtyUsed         decimal.Decimal `json:"qty_used" db:"qty_used"`
	InventoryEnd    decimal.Decimal `json:"inventory_end" db:"inventory_end"`
	OnOrderQty      decimal.Decimal `json:"on_order_qty" db:"on_order_qty"`
	AvgDailyUsage7  float64         `json:"avg_daily_usage_7d" db:"avg_daily_usage_7d"`
	AvgDailyUsage28 float64         `json:"avg_daily_usage_28d" db:"avg_daily_usage_28d"`
}

// ForecastEntry is the per-ingredient forecast view after tier merging.
// Exactly one entry per ingredient is active at a time; high-confidence
// entries shadow low-confidence ones.
type ForecastEntry struct {
	IngredientID       int64      `json:"ingredient_id" db:"ingredient_id"`
	IngredientName     string     `json:"ingredient_name" db:"ingredient_name"`
	Unit               string     `json:"unit" db:"unit"`
	Confidence         Confidence `json:"confidence" db:"-"`
	PredictionDate     time.Time  `json:"prediction_date" db:"prediction_date"`
	PredictedInventory float64    `json:"predicted_inventory_end" db:"predicted_inventory_end"`
	CurrentInventory   float64    `json:"current_inventory" db:"current_inventory"`
	OnOrderQty         float64    `json:"on_order_qty" db:"on_order_qty"`
	AvgDailyUsage      float64    `json:"avg_daily_usage" db:"avg_daily_usage"`
	ReorderPoint       *float64   `json:"reorder_point" db:"reorder_point"`
	TargetStockLevel   *float64   `json:"target_stock_level" db:"target_stock_level"`
	DaysUntilStockout  *float64   `json:"days_until_stockout" db:"days_until_stockout"`
}

// RestockRecommendation is the decision engine's output for one ingredient.
// Derived, never persisted by the core.
type RestockRecommendation struct {
	IngredientID          int64    `json:"ingredient_id"`
	IngredientName        string   `json:"ingredient_name"`
	Category              Category `json:"category"`
	Priority              Priority `json:"priority"`
	CurrentInventory      float64  `json:"current_inventory"`
	PredictedInventoryEnd float64  `json:"predicted_inventory_end"`
	ShelfLifeDays         int      `json:"shelf_life_days"`
	DaysUntilSpoilage     float64  `json:"days_until_spoilage"`
	ReorderPoint          float64  `json:"reorder_point"`
	TargetStockLevel      float64  `json:"target_stock_level"`
	RestockNeeded         bool     `json:"restock_needed"`
	SuggestedOrderQty     float64  `json:"suggested_order_qty"`
	DaysUntilStockout     float64  `json:"-"`
	ConfidenceLow         float64  `json:"confidence_low"`
	ConfidenceHigh        float64  `json:"confidence_high"`
	LeadTimeDays          int      `json:"lead_time_days"`
	DeliveryFrequencyDays int      `json:"delivery_frequency_days"`
	WasteRisk             bool     `json:"waste_risk"`
}

// recommendationAlias breaks the MarshalJSON recursion; the wire format
// carries DaysUntilStockout as a nullable field because +Inf (no stockout
// risk) cannot cross JSON as a number.
type recommendationAlias RestockRecommendation

type restockRecommendationJSON struct {
	recommendationAlias
	DaysUntilStockout *float64 `json:"days_until_stockout"`
}

func (r RestockRecommendation) MarshalJSON() ([]byte, error) {
	out := restockRecommendationJSON{recommendationAlias: recommendationAlias(r)}
	if !math.IsInf(r.DaysUntilStockout, 1) {
		d := r.DaysUntilStockout
		out.DaysUntilStockout = &d
	}
	return json.Marshal(out)
}

func (r *RestockRecommendation) UnmarshalJSON(data []byte) error {
	var in restockRecommendationJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*r = RestockRecommendation(in.recommendationAlias)
	if in.DaysUntilStockout != nil {
		r.DaysUntilStockout = *in.DaysUntilStockout
	} else {
		r.DaysUntilStockout = math.Inf(1)
	}
	return nil
}
