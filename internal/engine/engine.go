// internal/engine/engine.go
//
// The restock decision engine. Pure computation over forecast and ledger
// snapshots: it classifies ingredients, derives reorder points and target
// stock from category policy, sizes orders, and assigns priorities. It never
// mutates the batch ledger or the reconciliation log.
package engine

import (
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/plateiq/restock/internal/domain"
)

// Input is the per-ingredient feature row the engine consumes.
type Input struct {
	IngredientID          int64
	IngredientName        string
	CurrentInventory      float64
	PredictedInventoryEnd float64
	AvgDailyUsage         float64
	// SoonestExpiryDays is the number of days until the earliest active
	// batch expires, when the caller has ledger data. It tightens the
	// policy-derived spoilage horizon; nil means no batch-level signal.
	SoonestExpiryDays *float64
	ConfidenceLow     *float64
	ConfidenceHigh    *float64
}

// Engine holds the decision tunables.
type Engine struct {
	safetyFactor float64
	band         BandStrategy
}

// New builds an engine. safetyFactor multiplies the order shortfall and must
// be greater than 1; band supplies the confidence interval when the input
// carries none.
func New(safetyFactor float64, band BandStrategy) *Engine {
	if safetyFactor <= 1 {
		safetyFactor = 1.1
	}
	if band == nil {
		band = DefaultBand
	}
	return &Engine{safetyFactor: safetyFactor, band: band}
}

// Recommend computes the restock recommendation for one ingredient.
// Malformed inputs return an error wrapping domain.ErrComputationSkipped.
func (e *Engine) Recommend(in Input) (*domain.RestockRecommendation, error) {
	if err := validate(in); err != nil {
		return nil, err
	}

	category := Classify(in.IngredientName)
	policy := PolicyFor(category)

	usage := in.AvgDailyUsage
	current := in.CurrentInventory
	predicted := in.PredictedInventoryEnd

	minStockDays := float64(policy.DeliveryFrequencyDays + policy.OrderLeadTimeDays + policy.WasteBufferDays)
	reorderPoint := current * 0.3
	if usage > 0 {
		reorderPoint = usage * minStockDays
	}

	targetStockDays := float64(policy.DeliveryFrequencyDays*2 + policy.OrderLeadTimeDays)
	targetStock := current * 1.5
	if usage > 0 {
		targetStock = usage * targetStockDays
	}

	// Policy-derived horizon; the earliest actual batch expiry tightens it
	// when the ledger is ahead of the category assumption.
	daysUntilSpoilage := float64(policy.ShelfLifeDays - policy.WasteBufferDays)
	if in.SoonestExpiryDays != nil {
		if actual := *in.SoonestExpiryDays - float64(policy.WasteBufferDays); actual < daysUntilSpoilage {
			daysUntilSpoilage = actual
		}
	}

	restockNeeded := predicted < reorderPoint ||
		daysUntilSpoilage < float64(policy.WasteBufferDays)+1

	var suggestedQty float64
	if restockNeeded {
		var shortfall float64
		if perishable(category) {
			// Order only enough to cover the next delivery cycle to
			// minimize waste.
			orderPeriodDays := float64(policy.DeliveryFrequencyDays + policy.OrderLeadTimeDays)
			needed := targetStock * 0.5
			if usage > 0 {
				needed = usage * orderPeriodDays
			}
			shortfall = needed - predicted
		} else {
			shortfall = targetStock - predicted
		}
		suggestedQty = math.Max(0, shortfall*e.safetyFactor)
	}

	stockoutDays := daysUntilStockout(predicted, usage)
	wasteRisk := daysUntilSpoilage < 3 && current > usage*2
	priority := priorityFor(stockoutDays, daysUntilSpoilage, restockNeeded, category)

	low, high := e.band.Band(predicted)
	if in.ConfidenceLow != nil && in.ConfidenceHigh != nil {
		low, high = *in.ConfidenceLow, *in.ConfidenceHigh
	}

	return &domain.RestockRecommendation{
		IngredientID:          in.IngredientID,
		IngredientName:        in.IngredientName,
		Category:              category,
		Priority:              priority,
		CurrentInventory:      current,
		PredictedInventoryEnd: predicted,
		ShelfLifeDays:         policy.ShelfLifeDays,
		DaysUntilSpoilage:     daysUntilSpoilage,
		ReorderPoint:          reorderPoint,
		TargetStockLevel:      targetStock,
		RestockNeeded:         restockNeeded,
		SuggestedOrderQty:     suggestedQty,
		DaysUntilStockout:     stockoutDays,
		ConfidenceLow:         low,
		ConfidenceHigh:        high,
		LeadTimeDays:          policy.OrderLeadTimeDays,
		DeliveryFrequencyDays: policy.DeliveryFrequencyDays,
		WasteRisk:             wasteRisk,
	}, nil
}

// RecommendAll computes recommendations for a batch of inputs and ranks
// them. A row that cannot be computed is logged and excluded; it never
// aborts the run for the other ingredients.
func (e *Engine) RecommendAll(inputs []Input) []domain.RestockRecommendation {
	recommendations := make([]domain.RestockRecommendation, 0, len(inputs))
	for _, in := range inputs {
		rec, err := e.Recommend(in)
		if err != nil {
			log.Warn().
				Err(err).
				Int64("ingredient_id", in.IngredientID).
				Str("ingredient_name", in.IngredientName).
				Msg("skipping recommendation")
			continue
		}
		recommendations = append(recommendations, *rec)
	}

	RankAll(recommendations)
	return recommendations
}

// RankAll sorts recommendations in place: priority first, then fixed
// category importance (protein > produce > dairy > non-perishable >
// alcohol/dry), then soonest stockout, then largest suggested order. The
// sort is stable, so equal rows keep a deterministic order.
func RankAll(recommendations []domain.RestockRecommendation) {
	sort.SliceStable(recommendations, func(i, j int) bool {
		a, b := recommendations[i], recommendations[j]
		if a.Priority.Rank() != b.Priority.Rank() {
			return a.Priority.Rank() < b.Priority.Rank()
		}
		if categoryImportance(a.Category) != categoryImportance(b.Category) {
			return categoryImportance(a.Category) < categoryImportance(b.Category)
		}
		if a.DaysUntilStockout != b.DaysUntilStockout {
			return a.DaysUntilStockout < b.DaysUntilStockout
		}
		return a.SuggestedOrderQty > b.SuggestedOrderQty
	})
}

func validate(in Input) error {
	switch {
	case in.IngredientName == "":
		return fmt.Errorf("%w: empty ingredient name", domain.ErrComputationSkipped)
	case math.IsNaN(in.PredictedInventoryEnd) || math.IsInf(in.PredictedInventoryEnd, 0):
		return fmt.Errorf("%w: invalid forecast %f", domain.ErrComputationSkipped, in.PredictedInventoryEnd)
	case in.AvgDailyUsage < 0 || math.IsNaN(in.AvgDailyUsage):
		return fmt.Errorf("%w: invalid avg daily usage %f", domain.ErrComputationSkipped, in.AvgDailyUsage)
	}
	return nil
}

func perishable(category domain.Category) bool {
	return category == domain.CategoryProduce || category == domain.CategoryProtein
}

// daysUntilStockout is +Inf when there is no usage signal: the stock never
// runs out at the current burn rate.
func daysUntilStockout(predicted, usage float64) float64 {
	if usage <= 0 {
		return math.Inf(1)
	}
	return math.Max(0, predicted/usage)
}

// priorityFor assigns urgency with category-specific thresholds: tighter for
// produce and protein, looser for dairy, loosest for non-perishables and
// alcohol.
func priorityFor(stockoutDays, spoilageDays float64, restockNeeded bool, category domain.Category) domain.Priority {
	if !restockNeeded && spoilageDays > 3 {
		return domain.PriorityLow
	}

	if spoilageDays < 1 || stockoutDays < 1 {
		return domain.PriorityCritical
	}

	switch {
	case perishable(category):
		if stockoutDays < 3 || spoilageDays < 2 {
			return domain.PriorityHigh
		}
		if stockoutDays < 5 || restockNeeded {
			return domain.PriorityMedium
		}
	case category == domain.CategoryDairy:
		if stockoutDays < 5 || spoilageDays < 3 {
			return domain.PriorityHigh
		}
		if stockoutDays < 7 || restockNeeded {
			return domain.PriorityMedium
		}
	default:
		if stockoutDays < 7 {
			return domain.PriorityHigh
		}
		if stockoutDays < 14 || restockNeeded {
			return domain.PriorityMedium
		}
	}

	return domain.PriorityLow
}
