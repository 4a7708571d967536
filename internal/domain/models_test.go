package domain

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
)

// +Inf means "no stockout risk" and cannot cross JSON as a number; it travels
// as null and must survive a cache round trip.
func TestRestockRecommendationJSON_InfiniteStockout(t *testing.T) {
	rec := RestockRecommendation{
		IngredientName:    "Jasmine Rice",
		Category:          CategoryNonPerishable,
		Priority:          PriorityLow,
		DaysUntilStockout: math.Inf(1),
	}

	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"days_until_stockout":null`) {
		t.Fatalf("wire form should carry null stockout: %s", data)
	}

	var back RestockRecommendation
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !math.IsInf(back.DaysUntilStockout, 1) {
		t.Errorf("days_until_stockout = %f, want +Inf", back.DaysUntilStockout)
	}
	if back.IngredientName != rec.IngredientName || back.Priority != rec.Priority {
		t.Errorf("round trip lost fields: %+v", back)
	}
}

func TestRestockRecommendationJSON_FiniteStockout(t *testing.T) {
	rec := RestockRecommendation{
		IngredientName:    "Chicken Breast",
		Category:          CategoryProtein,
		Priority:          PriorityCritical,
		DaysUntilStockout: 1.5,
	}

	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"days_until_stockout":1.5`) {
		t.Fatalf("wire form should carry the numeric stockout: %s", data)
	}

	var back RestockRecommendation
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.DaysUntilStockout != 1.5 {
		t.Errorf("days_until_stockout = %f, want 1.5", back.DaysUntilStockout)
	}
}

func TestPriorityRank_Ordering(t *testing.T) {
	order := []Priority{PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow}
	for i := 1; i < len(order); i++ {
		if order[i-1].Rank() >= order[i].Rank() {
			t.Errorf("%s rank %d not more urgent than %s rank %d",
				order[i-1], order[i-1].Rank(), order[i], order[i].Rank())
		}
	}
}
