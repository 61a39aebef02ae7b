// Package aggregate sums per-ingredient nutrient contributions into a
// dish-level profile. Summation order is the input order: the running
// totals are an observable contract, not just a path to the final sum.
package aggregate

import "github.com/gather-kitchen/nutrition-label-server/internal/types"

// BoundIngredient is one ingredient after database binding and gram
// resolution: a gram weight, the candidate's per-100g nutrient profile and
// an optional raw-to-cooked yield factor (zero means 1.0).
type BoundIngredient struct {
	Name        string
	Grams       float64
	Per100g     types.NutrientProfile
	YieldFactor float64
}

// SubRecipeUse is a nested sub-recipe's already-aggregated total scaled
// into the final dish by usage ratio: one cup taken from a 500 g batch
// contributes that fraction of the batch, never the whole batch.
type SubRecipeUse struct {
	Name           string
	Total          types.NutrientProfile
	TotalGrams     float64
	RequestedGrams float64
}

// Result is the dish total plus one cumulative snapshot per contribution
// in input order (ingredients first, then sub-recipes).
type Result struct {
	Total         types.NutrientProfile
	RunningTotals []types.NutrientProfile
	TotalGrams    float64
}

// Aggregate sums ingredient and sub-recipe contributions. All arithmetic
// is total: absent nutrients are zeros in the profile, so nothing here can
// fail or skip a field.
func Aggregate(ingredients []BoundIngredient, subRecipes []SubRecipeUse) Result {
	result := Result{
		RunningTotals: make([]types.NutrientProfile, 0, len(ingredients)+len(subRecipes)),
	}

	for _, ing := range ingredients {
		result.Total = result.Total.Add(Contribution(ing))
		result.TotalGrams += ing.Grams
		result.RunningTotals = append(result.RunningTotals, result.Total)
	}

	for _, sub := range subRecipes {
		result.Total = result.Total.Add(SubRecipeContribution(sub))
		result.TotalGrams += sub.RequestedGrams
		result.RunningTotals = append(result.RunningTotals, result.Total)
	}

	return result
}

// Contribution is one ingredient's absolute nutrient amounts:
// per100g × grams/100 × yield factor.
func Contribution(ing BoundIngredient) types.NutrientProfile {
	yield := ing.YieldFactor
	if yield <= 0 {
		yield = 1
	}
	return ing.Per100g.Scale(ing.Grams / 100 * yield)
}

// SubRecipeContribution scales the sub-recipe total by the usage ratio.
// An unknown batch weight contributes nothing rather than everything.
func SubRecipeContribution(sub SubRecipeUse) types.NutrientProfile {
	if sub.TotalGrams <= 0 {
		return types.NutrientProfile{}
	}
	return sub.Total.Scale(sub.RequestedGrams / sub.TotalGrams)
}
