// Integration tests against a real Postgres. Skipped unless TEST_DATABASE_URL
// is set; the schema is applied on first connect (idempotent).
package postgres_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/plateiq/restock/internal/domain"
	"github.com/plateiq/restock/internal/repository"
	"github.com/plateiq/restock/internal/repository/postgres"
)

func testDB(t *testing.T) *postgres.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schema, err := os.ReadFile("../../../migrations/schema.sql")
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}
	// One statement per Exec: the pgx stdlib driver rejects multi-statement
	// strings in its default protocol mode.
	for _, stmt := range strings.Split(string(schema), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}

	return postgres.Wrap(db)
}

func seedRestaurant(t *testing.T, db *postgres.DB) int64 {
	t.Helper()

	var id int64
	err := db.Get(&id, `
		INSERT INTO restaurants (restaurant_name)
		VALUES ('integration test kitchen')
		RETURNING restaurant_id`)
	if err != nil {
		t.Fatalf("seed restaurant: %v", err)
	}

	t.Cleanup(func() {
		for _, table := range []string{"daily_inventory_log", "predictions", "ingredient_batches", "restaurant_ingredients"} {
			db.MustExec(fmt.Sprintf("DELETE FROM %s WHERE restaurant_id = $1", table), id)
		}
		db.MustExec("DELETE FROM restaurants WHERE restaurant_id = $1", id)
	})

	return id
}

func seedIngredient(t *testing.T, db *postgres.DB, name string) int64 {
	t.Helper()

	var id int64
	err := db.Get(&id, `
		INSERT INTO ingredients (ingredient_name, unit)
		VALUES ($1, 'kg')
		RETURNING ingredient_id`, name)
	if err != nil {
		t.Fatalf("seed ingredient: %v", err)
	}

	t.Cleanup(func() {
		for _, table := range []string{"daily_inventory_log", "predictions", "ingredient_batches", "restaurant_ingredients"} {
			db.MustExec(fmt.Sprintf("DELETE FROM %s WHERE ingredient_id = $1", table), id)
		}
		db.MustExec("DELETE FROM ingredients WHERE ingredient_id = $1", id)
	})

	return id
}

func receive(t *testing.T, repo repository.BatchRepository, restaurantID, ingredientID int64, qty int64, expiry *time.Time) *domain.Batch {
	t.Helper()

	batch, err := repo.Receive(context.Background(), repository.ReceiveParams{
		RestaurantID:   restaurantID,
		IngredientID:   ingredientID,
		Qty:            decimal.NewFromInt(qty),
		ExpirationDate: expiry,
	})
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	return batch
}

func daysFromNow(n int) *time.Time {
	d := time.Now().AddDate(0, 0, n)
	return &d
}

func TestBatchRepository_ConsumeFIFO(t *testing.T) {
	db := testDB(t)
	restaurantID := seedRestaurant(t, db)
	ingredientID := seedIngredient(t, db, "Chicken Breast")
	repo := postgres.NewBatchRepository(db)
	ctx := context.Background()

	b1 := receive(t, repo, restaurantID, ingredientID, 10, daysFromNow(5))
	b2 := receive(t, repo, restaurantID, ingredientID, 5, nil)
	b3 := receive(t, repo, restaurantID, ingredientID, 8, daysFromNow(3))

	result, err := repo.ConsumeFIFO(ctx, restaurantID, ingredientID, decimal.NewFromInt(12))
	if err != nil {
		t.Fatalf("ConsumeFIFO: %v", err)
	}

	// Soonest expiration first, nil expiration last: b3 fully, then b1.
	if len(result.Affected) != 2 {
		t.Fatalf("affected %d batches, want 2", len(result.Affected))
	}
	if result.Affected[0].BatchID != b3.ID || result.Affected[1].BatchID != b1.ID {
		t.Errorf("consumption order: got [%d, %d], want [%d, %d]",
			result.Affected[0].BatchID, result.Affected[1].BatchID, b3.ID, b1.ID)
	}
	if !result.TotalDeducted.Equal(decimal.NewFromInt(12)) {
		t.Errorf("total_deducted = %s, want 12", result.TotalDeducted)
	}
	if !result.Shortfall.IsZero() {
		t.Errorf("shortfall = %s, want 0", result.Shortfall)
	}

	first, err := repo.GetBatch(ctx, b3.ID)
	if err != nil {
		t.Fatalf("GetBatch: %v", err)
	}
	if first.Status != domain.BatchDepleted || !first.QtyRemaining.IsZero() {
		t.Errorf("b3: status %s remaining %s, want depleted 0", first.Status, first.QtyRemaining)
	}

	second, err := repo.GetBatch(ctx, b1.ID)
	if err != nil {
		t.Fatalf("GetBatch: %v", err)
	}
	if second.Status != domain.BatchActive || !second.QtyRemaining.Equal(decimal.NewFromInt(6)) {
		t.Errorf("b1: status %s remaining %s, want active 6", second.Status, second.QtyRemaining)
	}

	untouched, err := repo.GetBatch(ctx, b2.ID)
	if err != nil {
		t.Fatalf("GetBatch: %v", err)
	}
	if !untouched.QtyRemaining.Equal(decimal.NewFromInt(5)) {
		t.Errorf("b2 remaining = %s, want untouched 5", untouched.QtyRemaining)
	}
}

func TestBatchRepository_ConsumeShortfall(t *testing.T) {
	db := testDB(t)
	restaurantID := seedRestaurant(t, db)
	ingredientID := seedIngredient(t, db, "Heavy Cream")
	repo := postgres.NewBatchRepository(db)

	receive(t, repo, restaurantID, ingredientID, 5, nil)
	receive(t, repo, restaurantID, ingredientID, 3, nil)

	result, err := repo.ConsumeFIFO(context.Background(), restaurantID, ingredientID, decimal.NewFromInt(15))
	if err != nil {
		t.Fatalf("ConsumeFIFO: %v", err)
	}

	if !result.TotalDeducted.Equal(decimal.NewFromInt(8)) {
		t.Errorf("total_deducted = %s, want 8", result.TotalDeducted)
	}
	if !result.Shortfall.Equal(decimal.NewFromInt(7)) {
		t.Errorf("shortfall = %s, want 7", result.Shortfall)
	}
	for _, delta := range result.Affected {
		if delta.Status != domain.BatchDepleted {
			t.Errorf("batch %d status = %s, want depleted", delta.BatchID, delta.Status)
		}
	}
}

func TestBatchRepository_InvalidQuantity(t *testing.T) {
	db := testDB(t)
	restaurantID := seedRestaurant(t, db)
	ingredientID := seedIngredient(t, db, "Romaine Lettuce")
	repo := postgres.NewBatchRepository(db)
	ctx := context.Background()

	_, err := repo.Receive(ctx, repository.ReceiveParams{
		RestaurantID: restaurantID,
		IngredientID: ingredientID,
		Qty:          decimal.Zero,
	})
	if !errors.Is(err, domain.ErrInvalidQuantity) {
		t.Errorf("Receive(0) error = %v, want ErrInvalidQuantity", err)
	}

	_, err = repo.ConsumeFIFO(ctx, restaurantID, ingredientID, decimal.NewFromInt(-1))
	if !errors.Is(err, domain.ErrInvalidQuantity) {
		t.Errorf("ConsumeFIFO(-1) error = %v, want ErrInvalidQuantity", err)
	}
}

func TestBatchRepository_SweepExpired_Idempotent(t *testing.T) {
	db := testDB(t)
	restaurantID := seedRestaurant(t, db)
	ingredientID := seedIngredient(t, db, "Baby Spinach")
	repo := postgres.NewBatchRepository(db)
	ctx := context.Background()

	stale := receive(t, repo, restaurantID, ingredientID, 4, daysFromNow(-1))
	fresh := receive(t, repo, restaurantID, ingredientID, 6, daysFromNow(5))

	swept, err := repo.SweepExpired(ctx, restaurantID)
	if err != nil {
		t.Fatalf("SweepExpired: %v", err)
	}
	if len(swept) != 1 || swept[0] != stale.ID {
		t.Fatalf("swept = %v, want [%d]", swept, stale.ID)
	}

	batch, err := repo.GetBatch(ctx, stale.ID)
	if err != nil {
		t.Fatalf("GetBatch: %v", err)
	}
	if batch.Status != domain.BatchExpired {
		t.Errorf("status = %s, want expired", batch.Status)
	}
	// The sweep flips status only; remaining quantity records the loss.
	if !batch.QtyRemaining.Equal(decimal.NewFromInt(4)) {
		t.Errorf("qty_remaining = %s, want 4", batch.QtyRemaining)
	}

	again, err := repo.SweepExpired(ctx, restaurantID)
	if err != nil {
		t.Fatalf("second SweepExpired: %v", err)
	}
	if len(again) != 0 {
		t.Errorf("second sweep = %v, want empty", again)
	}

	kept, err := repo.GetBatch(ctx, fresh.ID)
	if err != nil {
		t.Fatalf("GetBatch: %v", err)
	}
	if kept.Status != domain.BatchActive {
		t.Errorf("fresh batch status = %s, want active", kept.Status)
	}
}

func TestDailyLog_AccumulationAndCarryForward(t *testing.T) {
	db := testDB(t)
	restaurantID := seedRestaurant(t, db)
	ingredientID := seedIngredient(t, db, "Cheddar Cheese")
	repo := postgres.NewDailyLogRepository(db)
	ctx := context.Background()

	// Yesterday closed at 42; today's first post must carry that forward.
	db.MustExec(`
		INSERT INTO daily_inventory_log
			(restaurant_id, ingredient_id, log_date, inventory_start, qty_used, inventory_end)
		VALUES ($1, $2, CURRENT_DATE - 1, 0, 0, 42)`,
		restaurantID, ingredientID)

	row, err := repo.PostUsage(ctx, restaurantID, ingredientID, decimal.NewFromInt(5))
	if err != nil {
		t.Fatalf("PostUsage: %v", err)
	}
	if !row.InventoryStart.Equal(decimal.NewFromInt(42)) {
		t.Errorf("inventory_start = %s, want carried 42", row.InventoryStart)
	}
	if !row.InventoryEnd.Equal(decimal.NewFromInt(37)) {
		t.Errorf("inventory_end = %s, want 37", row.InventoryEnd)
	}

	// Same-day posts accumulate into the one row.
	row, err = repo.PostUsage(ctx, restaurantID, ingredientID, decimal.NewFromInt(3))
	if err != nil {
		t.Fatalf("second PostUsage: %v", err)
	}
	if !row.QtyUsed.Equal(decimal.NewFromInt(8)) {
		t.Errorf("qty_used = %s, want 8", row.QtyUsed)
	}
	if !row.InventoryEnd.Equal(decimal.NewFromInt(34)) {
		t.Errorf("inventory_end = %s, want 34", row.InventoryEnd)
	}

	row, err = repo.PostRestock(ctx, restaurantID, ingredientID, decimal.NewFromInt(10))
	if err != nil {
		t.Fatalf("PostRestock: %v", err)
	}
	if !row.OnOrderQty.Equal(decimal.NewFromInt(10)) {
		t.Errorf("on_order_qty = %s, want 10", row.OnOrderQty)
	}
	if !row.InventoryEnd.Equal(decimal.NewFromInt(44)) {
		t.Errorf("inventory_end = %s, want 44", row.InventoryEnd)
	}
	if !row.InventoryStart.Equal(decimal.NewFromInt(42)) {
		t.Errorf("inventory_start = %s, restock must not reseed", row.InventoryStart)
	}

	history, err := repo.History(ctx, restaurantID, ingredientID, 2)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history has %d rows, want 2", len(history))
	}
	if !history[0].LogDate.Before(history[1].LogDate) {
		t.Error("history not chronological")
	}
}

// The log is a balance sheet: usage beyond recorded stock drives the balance
// negative instead of clamping.
func TestDailyLog_NegativeBalanceAllowed(t *testing.T) {
	db := testDB(t)
	restaurantID := seedRestaurant(t, db)
	ingredientID := seedIngredient(t, db, "Atlantic Salmon")
	repo := postgres.NewDailyLogRepository(db)

	row, err := repo.PostUsage(context.Background(), restaurantID, ingredientID, decimal.NewFromInt(50))
	if err != nil {
		t.Fatalf("PostUsage: %v", err)
	}

	if !row.InventoryStart.IsZero() {
		t.Errorf("inventory_start = %s, want 0 with no prior day", row.InventoryStart)
	}
	if !row.InventoryEnd.Equal(decimal.NewFromInt(-50)) {
		t.Errorf("inventory_end = %s, want -50", row.InventoryEnd)
	}
}

func TestIngredientRepository_AttachDetach(t *testing.T) {
	db := testDB(t)
	restaurantID := seedRestaurant(t, db)
	ingredientID := seedIngredient(t, db, "Basmati Rice")
	repo := postgres.NewIngredientRepository(db)
	ctx := context.Background()

	row, err := repo.Attach(ctx, restaurantID, ingredientID, 3, 4)
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if row.LeadTimeDays != 3 || row.SafetyStockDays != 4 || !row.IsActive {
		t.Errorf("attached row = %+v, want lead 3 safety 4 active", row)
	}

	if err := repo.Detach(ctx, restaurantID, ingredientID); err != nil {
		t.Fatalf("Detach: %v", err)
	}
	stocked, err := repo.ListForRestaurant(ctx, restaurantID)
	if err != nil {
		t.Fatalf("ListForRestaurant: %v", err)
	}
	for _, s := range stocked {
		if s.IngredientID == ingredientID {
			t.Error("detached ingredient still listed as stocked")
		}
	}

	// Re-attach reactivates the soft-removed row with new parameters.
	row, err = repo.Attach(ctx, restaurantID, ingredientID, 1, 1)
	if err != nil {
		t.Fatalf("re-Attach: %v", err)
	}
	if !row.IsActive || row.LeadTimeDays != 1 {
		t.Errorf("reactivated row = %+v, want active with lead 1", row)
	}

	if err := repo.Detach(ctx, restaurantID+1, ingredientID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Detach(unknown restaurant) error = %v, want ErrNotFound", err)
	}
}

func TestDailyLog_InvalidQuantity(t *testing.T) {
	db := testDB(t)
	restaurantID := seedRestaurant(t, db)
	ingredientID := seedIngredient(t, db, "Olive Oil")
	repo := postgres.NewDailyLogRepository(db)

	if _, err := repo.PostUsage(context.Background(), restaurantID, ingredientID, decimal.Zero); !errors.Is(err, domain.ErrInvalidQuantity) {
		t.Errorf("PostUsage(0) error = %v, want ErrInvalidQuantity", err)
	}
	if _, err := repo.PostRestock(context.Background(), restaurantID, ingredientID, decimal.NewFromInt(-2)); !errors.Is(err, domain.ErrInvalidQuantity) {
		t.Errorf("PostRestock(-2) error = %v, want ErrInvalidQuantity", err)
	}
}
