package nutrition

import "strings"

// FoodItem is one free-text food entry from a diet submission.
type FoodItem struct {
	Kind          string `json:"kind"`
	Quantity      string `json:"quantity,omitempty"`
	CookingMethod string `json:"cooking_method,omitempty"`
}

// DrinkItem is one free-text drink entry from a diet submission.
type DrinkItem struct {
	Kind     string `json:"kind"`
	Quantity string `json:"quantity,omitempty"`
}

// Estimate is the macro-nutrient breakdown of a day of eating.
type Estimate struct {
	CarbohydratePercent float64 `json:"carbohydrate_percent"`
	ProteinGram         float64 `json:"protein_gram"`
	FatPercent          float64 `json:"fat_percent"`
}

// Clamped returns a copy with percentages in [0,100] and protein >= 0.
func (e Estimate) Clamped() Estimate {
	return Estimate{
		CarbohydratePercent: clampRange(e.CarbohydratePercent, 0, 100),
		ProteinGram:         clampMin(e.ProteinGram, 0),
		FatPercent:          clampRange(e.FatPercent, 0, 100),
	}
}

// FilterFoods drops entries whose kind is blank.
func FilterFoods(items []FoodItem) []FoodItem {
	out := make([]FoodItem, 0, len(items))
	for _, it := range items {
		if strings.TrimSpace(it.Kind) == "" {
			continue
		}
		out = append(out, it)
	}
	return out
}

// FilterDrinks drops entries whose kind is blank.
func FilterDrinks(items []DrinkItem) []DrinkItem {
	out := make([]DrinkItem, 0, len(items))
	for _, it := range items {
		if strings.TrimSpace(it.Kind) == "" {
			continue
		}
		out = append(out, it)
	}
	return out
}

// HasItems reports whether at least one food or drink has a non-blank kind.
func HasItems(foods []FoodItem, drinks []DrinkItem) bool {
	return len(FilterFoods(foods)) > 0 || len(FilterDrinks(drinks)) > 0
}

func clampRange(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampMin(v, lo float64) float64 {
	if v < lo {
		return lo
	}
	return v
}
