package fooddata

import "github.com/gather-kitchen/nutrition-label-server/internal/types"

// FoodData Central nutrient numbers for the label nutrients.
const (
	NutrientIDEnergy       = 1008 // kcal
	NutrientIDTotalFat     = 1004 // g
	NutrientIDSaturatedFat = 1258 // g
	NutrientIDTransFat     = 1257 // g
	NutrientIDCholesterol  = 1253 // mg
	NutrientIDSodium       = 1093 // mg
	NutrientIDCarbohydrate = 1005 // g
	NutrientIDFiber        = 1079 // g
	NutrientIDTotalSugars  = 2000 // g
	NutrientIDAddedSugars  = 1235 // g
	NutrientIDProtein      = 1003 // g
	NutrientIDVitaminD     = 1114 // mcg (D2 + D3)
	NutrientIDCalcium      = 1087 // mg
	NutrientIDIron         = 1089 // mg
	NutrientIDPotassium    = 1092 // mg
)

// nutrientFields maps FDC nutrient numbers onto profile field names.
var nutrientFields = map[int64]string{
	NutrientIDEnergy:       "calories",
	NutrientIDTotalFat:     "totalFat",
	NutrientIDSaturatedFat: "saturatedFat",
	NutrientIDTransFat:     "transFat",
	NutrientIDCholesterol:  "cholesterol",
	NutrientIDSodium:       "sodium",
	NutrientIDCarbohydrate: "totalCarbohydrate",
	NutrientIDFiber:        "dietaryFiber",
	NutrientIDTotalSugars:  "totalSugars",
	NutrientIDAddedSugars:  "addedSugars",
	NutrientIDProtein:      "protein",
	NutrientIDVitaminD:     "vitaminD",
	NutrientIDCalcium:      "calcium",
	NutrientIDIron:         "iron",
	NutrientIDPotassium:    "potassium",
}

// ProfileFromNutrients builds a per-100g profile from FDC (nutrient
// number, amount) pairs. Unknown numbers are skipped; missing ones stay
// zero so downstream arithmetic is total.
func ProfileFromNutrients(amounts map[int64]float64) types.NutrientProfile {
	var profile types.NutrientProfile
	for id, amount := range amounts {
		if field, ok := nutrientFields[id]; ok {
			profile.SetValue(field, amount)
		}
	}
	return profile
}
