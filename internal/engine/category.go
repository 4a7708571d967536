// internal/engine/category.go
package engine

import (
	"strings"

	"github.com/plateiq/restock/internal/domain"
)

// CategoryPolicy holds the shelf-life and delivery cadence parameters for an
// ingredient category. The table is static and read-only; it needs no
// locking.
type CategoryPolicy struct {
	Category              domain.Category
	ShelfLifeDays         int
	DeliveryFrequencyDays int
	OrderLeadTimeDays     int
	WasteBufferDays       int
	Description           string
}

// Policies is the category policy table, values from restaurant industry
// delivery patterns.
var Policies = map[domain.Category]CategoryPolicy{
	domain.CategoryProduce: {
		Category:              domain.CategoryProduce,
		ShelfLifeDays:         5,
		DeliveryFrequencyDays: 2,
		OrderLeadTimeDays:     1,
		WasteBufferDays:       2,
		Description:           "Fresh produce - high perishability, frequent delivery",
	},
	domain.CategoryProtein: {
		Category:              domain.CategoryProtein,
		ShelfLifeDays:         4,
		DeliveryFrequencyDays: 2,
		OrderLeadTimeDays:     1,
		WasteBufferDays:       2,
		Description:           "Meat/Fish - very perishable, frequent prep cycles",
	},
	domain.CategoryDairy: {
		Category:              domain.CategoryDairy,
		ShelfLifeDays:         10,
		DeliveryFrequencyDays: 7,
		OrderLeadTimeDays:     2,
		WasteBufferDays:       3,
		Description:           "Dairy products - moderate shelf life, weekly delivery",
	},
	domain.CategoryNonPerishable: {
		Category:              domain.CategoryNonPerishable,
		ShelfLifeDays:         90,
		DeliveryFrequencyDays: 14,
		OrderLeadTimeDays:     3,
		WasteBufferDays:       0,
		Description:           "Staples - rice, pasta, canned goods",
	},
	domain.CategoryAlcoholDry: {
		Category:              domain.CategoryAlcoholDry,
		ShelfLifeDays:         365,
		DeliveryFrequencyDays: 30,
		OrderLeadTimeDays:     5,
		WasteBufferDays:       0,
		Description:           "Alcohol and dry goods - long shelf life, bulk ordering",
	},
}

// PolicyFor returns the policy row for a category, falling back to the
// non-perishable policy for anything unknown.
func PolicyFor(category domain.Category) CategoryPolicy {
	if policy, ok := Policies[category]; ok {
		return policy
	}
	return Policies[domain.CategoryNonPerishable]
}

var produceKeywords = []string{
	"lettuce", "tomato", "onion", "bell", "pepper", "cucumber", "carrot",
	"spinach", "arugula", "romaine", "basil", "cilantro", "parsley", "herb",
	"mushroom", "avocado", "lime", "lemon", "potato", "celery",
}

var proteinKeywords = []string{
	"chicken", "beef", "pork", "fish", "salmon", "tuna", "shrimp",
	"turkey", "duck", "lamb", "bacon", "sausage", "ham", "meat",
}

var dairyKeywords = []string{
	"cheese", "milk", "cream", "butter", "yogurt", "mozzarella",
	"cheddar", "parmesan", "swiss", "goat", "feta", "ricotta",
}

var alcoholDryKeywords = []string{
	"wine", "beer", "vodka", "whiskey", "rum", "gin", "liquor",
	"alcohol", "spirit", "cocktail", "mix",
}

var nonPerishableKeywords = []string{
	"rice", "pasta", "flour", "sugar", "salt", "oil", "vinegar",
	"sauce", "dressing", "spice", "seasoning", "bread", "bun",
	"crouton", "noodle", "grain",
}

// Classify maps an ingredient name to a category by keyword matching over
// the lowercased name. Checks run in priority order: produce, protein,
// dairy, alcohol/dry, non-perishable; first match wins.
//
// Unmatched names fall back to non-perishable. A dedicated "unclassified"
// category with short-shelf-life defaults would be safer for unknown
// ingredients, but no upstream data defines a policy row for it.
func Classify(ingredientName string) domain.Category {
	name := strings.ToLower(ingredientName)

	switch {
	case matchesAny(name, produceKeywords):
		return domain.CategoryProduce
	case matchesAny(name, proteinKeywords):
		return domain.CategoryProtein
	case matchesAny(name, dairyKeywords):
		return domain.CategoryDairy
	case matchesAny(name, alcoholDryKeywords):
		return domain.CategoryAlcoholDry
	case matchesAny(name, nonPerishableKeywords):
		return domain.CategoryNonPerishable
	default:
		return domain.CategoryNonPerishable
	}
}

func matchesAny(name string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(name, keyword) {
			return true
		}
	}
	return false
}

// categoryImportance ranks categories for recommendation ordering,
// 0 = most important.
func categoryImportance(category domain.Category) int {
	switch category {
	case domain.CategoryProtein:
		return 0
	case domain.CategoryProduce:
		return 1
	case domain.CategoryDairy:
		return 2
	case domain.CategoryNonPerishable:
		return 3
	default:
		return 4
	}
}
