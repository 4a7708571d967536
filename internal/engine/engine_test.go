package engine

import (
	"math"
	"testing"

	"github.com/plateiq/restock/internal/domain"
)

func testEngine() *Engine {
	return New(1.1, DefaultBand)
}

func floatPtr(f float64) *float64 { return &f }

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// One batch of chicken breast, 10 remaining, expiring in 2 days, average
// usage 6/day: protein, restock needed, and the batch expiry pulls the
// spoilage horizon to zero, which makes the recommendation critical even
// though the stock lasts ~1.67 days.
func TestRecommend_SpoilageAdjacentChicken(t *testing.T) {
	rec, err := testEngine().Recommend(Input{
		IngredientID:          7,
		IngredientName:        "Chicken Breast",
		CurrentInventory:      10,
		PredictedInventoryEnd: 10,
		AvgDailyUsage:         6,
		SoonestExpiryDays:     floatPtr(2),
	})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}

	if rec.Category != domain.CategoryProtein {
		t.Errorf("category = %s, want protein", rec.Category)
	}
	if !rec.RestockNeeded {
		t.Error("restock_needed = false, want true")
	}
	if !almostEqual(rec.DaysUntilStockout, 10.0/6.0) {
		t.Errorf("days_until_stockout = %f, want %f", rec.DaysUntilStockout, 10.0/6.0)
	}
	if rec.DaysUntilSpoilage != 0 {
		t.Errorf("days_until_spoilage = %f, want 0", rec.DaysUntilSpoilage)
	}
	if rec.Priority != domain.PriorityCritical {
		t.Errorf("priority = %s, want CRITICAL", rec.Priority)
	}
}

// Without batch expiry data the spoilage horizon comes from category policy
// alone: protein is shelf life 4 minus waste buffer 2.
func TestRecommend_PolicySpoilageHorizon(t *testing.T) {
	rec, err := testEngine().Recommend(Input{
		IngredientName:        "Chicken Breast",
		CurrentInventory:      10,
		PredictedInventoryEnd: 10,
		AvgDailyUsage:         6,
	})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}

	if rec.DaysUntilSpoilage != 2 {
		t.Errorf("days_until_spoilage = %f, want 2", rec.DaysUntilSpoilage)
	}
	if rec.Priority != domain.PriorityHigh {
		t.Errorf("priority = %s, want HIGH", rec.Priority)
	}
}

func TestRecommend_ReorderAndTargetFormulas(t *testing.T) {
	// Protein policy: delivery 2, lead 1, waste 2.
	rec, err := testEngine().Recommend(Input{
		IngredientName:        "Ground Beef",
		CurrentInventory:      40,
		PredictedInventoryEnd: 35,
		AvgDailyUsage:         4,
	})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}

	if want := 4.0 * 5; !almostEqual(rec.ReorderPoint, want) {
		t.Errorf("reorder_point = %f, want %f", rec.ReorderPoint, want)
	}
	if want := 4.0 * 5; !almostEqual(rec.TargetStockLevel, want) {
		t.Errorf("target_stock = %f, want %f", rec.TargetStockLevel, want)
	}
	// Protein's spoilage horizon (2) sits inside waste buffer + 1, so a
	// restock is flagged even though predicted stock clears the reorder
	// point; the cycle need is already covered, so the order clamps to 0.
	if !rec.RestockNeeded {
		t.Error("restock_needed = false, want true")
	}
	if rec.SuggestedOrderQty != 0 {
		t.Errorf("suggested_order_qty = %f, want 0", rec.SuggestedOrderQty)
	}
	if rec.Priority != domain.PriorityMedium {
		t.Errorf("priority = %s, want MEDIUM", rec.Priority)
	}
}

func TestRecommend_ZeroUsageFallbacks(t *testing.T) {
	rec, err := testEngine().Recommend(Input{
		IngredientName:        "Jasmine Rice",
		CurrentInventory:      10,
		PredictedInventoryEnd: 10,
		AvgDailyUsage:         0,
	})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}

	if !almostEqual(rec.ReorderPoint, 3) {
		t.Errorf("reorder_point = %f, want 3 (current × 0.3)", rec.ReorderPoint)
	}
	if !almostEqual(rec.TargetStockLevel, 15) {
		t.Errorf("target_stock = %f, want 15 (current × 1.5)", rec.TargetStockLevel)
	}
	if !math.IsInf(rec.DaysUntilStockout, 1) {
		t.Errorf("days_until_stockout = %f, want +Inf", rec.DaysUntilStockout)
	}
	if rec.RestockNeeded {
		t.Error("restock_needed = true, want false")
	}
	if rec.Priority != domain.PriorityLow {
		t.Errorf("priority = %s, want LOW", rec.Priority)
	}
}

// Perishables are sized only to cover the next delivery cycle; everything
// else fills the gap to target stock. Both apply the safety factor and clamp
// at zero.
func TestRecommend_OrderSizing(t *testing.T) {
	t.Run("perishable covers next cycle", func(t *testing.T) {
		// Produce policy: delivery 2, lead 1 → order period 3 days.
		rec, err := testEngine().Recommend(Input{
			IngredientName:        "Roma Tomato",
			CurrentInventory:      5,
			PredictedInventoryEnd: 2,
			AvgDailyUsage:         4,
		})
		if err != nil {
			t.Fatalf("Recommend: %v", err)
		}
		if !rec.RestockNeeded {
			t.Fatal("restock_needed = false, want true")
		}
		// needed = 4 × 3 = 12, shortfall = 10, × 1.1 = 11
		if !almostEqual(rec.SuggestedOrderQty, 11) {
			t.Errorf("suggested_order_qty = %f, want 11", rec.SuggestedOrderQty)
		}
	})

	t.Run("non-perishable fills to target", func(t *testing.T) {
		// Non-perishable policy: delivery 14, lead 3 → target days 31.
		rec, err := testEngine().Recommend(Input{
			IngredientName:        "Jasmine Rice",
			CurrentInventory:      12,
			PredictedInventoryEnd: 10,
			AvgDailyUsage:         2,
		})
		if err != nil {
			t.Fatalf("Recommend: %v", err)
		}
		if !rec.RestockNeeded {
			t.Fatal("restock_needed = false, want true")
		}
		// target = 2 × 31 = 62, shortfall = 52, × 1.1 = 57.2
		if !almostEqual(rec.SuggestedOrderQty, 57.2) {
			t.Errorf("suggested_order_qty = %f, want 57.2", rec.SuggestedOrderQty)
		}
	})

	t.Run("clamped at zero", func(t *testing.T) {
		// Spoilage forces a restock even when predicted stock already
		// exceeds the cycle need; the order size must not go negative.
		rec, err := testEngine().Recommend(Input{
			IngredientName:        "Baby Spinach",
			CurrentInventory:      30,
			PredictedInventoryEnd: 30,
			AvgDailyUsage:         2,
			SoonestExpiryDays:     floatPtr(1),
		})
		if err != nil {
			t.Fatalf("Recommend: %v", err)
		}
		if !rec.RestockNeeded {
			t.Fatal("restock_needed = false, want true")
		}
		if rec.SuggestedOrderQty != 0 {
			t.Errorf("suggested_order_qty = %f, want 0", rec.SuggestedOrderQty)
		}
	})
}

func TestRecommend_WasteRisk(t *testing.T) {
	rec, err := testEngine().Recommend(Input{
		IngredientName:        "Heavy Cream",
		CurrentInventory:      20,
		PredictedInventoryEnd: 18,
		AvgDailyUsage:         3,
		SoonestExpiryDays:     floatPtr(4), // 4 - buffer 3 = 1 day of margin
	})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}

	if !rec.WasteRisk {
		t.Error("waste_risk = false, want true (spoilage < 3d, stock > 2 days usage)")
	}
}

func TestRecommend_ConfidenceBand(t *testing.T) {
	rec, err := testEngine().Recommend(Input{
		IngredientName:        "Jasmine Rice",
		CurrentInventory:      100,
		PredictedInventoryEnd: 100,
		AvgDailyUsage:         1,
	})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}

	if !almostEqual(rec.ConfidenceLow, 100-1.96*15) {
		t.Errorf("confidence_low = %f, want %f", rec.ConfidenceLow, 100-1.96*15)
	}
	if !almostEqual(rec.ConfidenceHigh, 100+1.96*15) {
		t.Errorf("confidence_high = %f, want %f", rec.ConfidenceHigh, 100+1.96*15)
	}
}

func TestRecommend_MalformedInputSkipped(t *testing.T) {
	cases := []struct {
		name string
		in   Input
	}{
		{"empty name", Input{IngredientName: "", PredictedInventoryEnd: 1}},
		{"NaN forecast", Input{IngredientName: "Rice", PredictedInventoryEnd: math.NaN()}},
		{"negative usage", Input{IngredientName: "Rice", AvgDailyUsage: -1}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := testEngine().Recommend(tc.in)
			if err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestRecommendAll_SkipsBadRowsWithoutAborting(t *testing.T) {
	recs := testEngine().RecommendAll([]Input{
		{IngredientName: "Chicken Breast", CurrentInventory: 10, PredictedInventoryEnd: 4, AvgDailyUsage: 6},
		{IngredientName: "", PredictedInventoryEnd: 1}, // skipped
		{IngredientName: "Jasmine Rice", CurrentInventory: 50, PredictedInventoryEnd: 50, AvgDailyUsage: 1},
	})

	if len(recs) != 2 {
		t.Fatalf("got %d recommendations, want 2", len(recs))
	}
}

// For a fixed category with restock needed, shrinking the stockout horizon
// must never lower the assigned severity.
func TestPriority_MonotoneInStockout(t *testing.T) {
	categories := []domain.Category{
		domain.CategoryProduce,
		domain.CategoryProtein,
		domain.CategoryDairy,
		domain.CategoryNonPerishable,
		domain.CategoryAlcoholDry,
	}

	for _, category := range categories {
		spoilage := float64(PolicyFor(category).ShelfLifeDays - PolicyFor(category).WasteBufferDays)
		prevRank := domain.PriorityLow.Rank()
		for days := 20.0; days >= 0; days -= 0.25 {
			p := priorityFor(days, spoilage, true, category)
			if p.Rank() > prevRank {
				t.Fatalf("%s: severity dropped from rank %d to %d at stockout %.2f",
					category, prevRank, p.Rank(), days)
			}
			prevRank = p.Rank()
		}
	}
}

func TestRankAll_Ordering(t *testing.T) {
	recs := []domain.RestockRecommendation{
		{IngredientName: "rice", Category: domain.CategoryNonPerishable, Priority: domain.PriorityMedium, DaysUntilStockout: 10},
		{IngredientName: "wine", Category: domain.CategoryAlcoholDry, Priority: domain.PriorityCritical, DaysUntilStockout: 0.5},
		{IngredientName: "chicken", Category: domain.CategoryProtein, Priority: domain.PriorityHigh, DaysUntilStockout: 2},
		{IngredientName: "lettuce", Category: domain.CategoryProduce, Priority: domain.PriorityHigh, DaysUntilStockout: 1},
		{IngredientName: "milk", Category: domain.CategoryDairy, Priority: domain.PriorityHigh, DaysUntilStockout: 1, SuggestedOrderQty: 5},
		{IngredientName: "cheese", Category: domain.CategoryDairy, Priority: domain.PriorityHigh, DaysUntilStockout: 1, SuggestedOrderQty: 9},
	}

	RankAll(recs)

	want := []string{"wine", "chicken", "lettuce", "cheese", "milk", "rice"}
	for i, name := range want {
		if recs[i].IngredientName != name {
			t.Fatalf("position %d: got %s, want %s", i, recs[i].IngredientName, name)
		}
	}
}
