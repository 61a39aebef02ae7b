// Package rounding formats nutrient values for display per the FDA
// nutrition-labeling rounding rules (21 CFR 101.9). It is purely a
// presentation layer: the full-precision calculated values are never
// mutated, only rendered.
package rounding

import (
	"fmt"
	"math"
	"strconv"
)

// nutrientUnits maps profile fields to their label units. Calories carry
// no unit on a label.
var nutrientUnits = map[string]string{
	"totalFat":          "g",
	"saturatedFat":      "g",
	"transFat":          "g",
	"cholesterol":       "mg",
	"sodium":            "mg",
	"totalCarbohydrate": "g",
	"dietaryFiber":      "g",
	"totalSugars":       "g",
	"addedSugars":       "g",
	"protein":           "g",
	"vitaminD":          "mcg",
	"calcium":           "mg",
	"iron":              "mg",
	"potassium":         "mg",
}

// dailyValues are the FDA reference daily values used for %DV. Nutrients
// without an entry (calories, trans fat, total sugars) show no percent.
var dailyValues = map[string]float64{
	"totalFat":          78,
	"saturatedFat":      20,
	"cholesterol":       300,
	"sodium":            2300,
	"totalCarbohydrate": 275,
	"dietaryFiber":      28,
	"addedSugars":       50,
	"protein":           50,
	"vitaminD":          20,
	"calcium":           1300,
	"iron":              18,
	"potassium":         4700,
}

// Format renders one nutrient value as its rounded display string,
// including the unit. Unknown names render the raw value.
func Format(name string, value float64) string {
	if value < 0 {
		value = 0
	}
	unit := nutrientUnits[name]

	switch name {
	case "calories":
		return trim(roundCalories(value))
	case "totalFat", "saturatedFat", "transFat":
		return trim(roundFat(value)) + unit
	case "cholesterol":
		if value >= 2 && value < 5 {
			return "less than 5" + unit
		}
		return trim(roundBelow(value, 2, 5)) + unit
	case "sodium", "potassium":
		return trim(roundSodium(value)) + unit
	case "totalCarbohydrate", "dietaryFiber", "totalSugars", "addedSugars", "protein":
		if value >= 0.5 && value < 1 {
			return "less than 1" + unit
		}
		return trim(roundBelow(value, 0.5, 1)) + unit
	case "vitaminD", "iron":
		return trim(roundIncrement(value, 0.1)) + unit
	case "calcium":
		return trim(roundIncrement(value, 10)) + unit
	}
	return trim(value) + unit
}

// PercentDailyValue renders the whole-number %DV string for a nutrient, or
// "" when no reference daily value applies.
func PercentDailyValue(name string, value float64) string {
	dv, ok := dailyValues[name]
	if !ok || dv <= 0 {
		return ""
	}
	if value < 0 {
		value = 0
	}
	return fmt.Sprintf("%d%%", int(math.Round(value/dv*100)))
}

// HasDailyValue reports whether a %DV is defined for the nutrient.
func HasDailyValue(name string) bool {
	_, ok := dailyValues[name]
	return ok
}

// Unit returns the label unit of a nutrient ("" for calories).
func Unit(name string) string {
	return nutrientUnits[name]
}

// roundCalories: below 5 shows 0, up to 50 rounds to 5, above rounds to 10.
func roundCalories(v float64) float64 {
	switch {
	case v < 5:
		return 0
	case v <= 50:
		return roundIncrement(v, 5)
	default:
		return roundIncrement(v, 10)
	}
}

// roundFat: below 0.5 g shows 0, under 5 g rounds to 0.5, above rounds to 1.
func roundFat(v float64) float64 {
	switch {
	case v < 0.5:
		return 0
	case v < 5:
		return roundIncrement(v, 0.5)
	default:
		return roundIncrement(v, 1)
	}
}

// roundSodium: below 5 mg shows 0, up to 140 rounds to 5, above rounds to 10.
func roundSodium(v float64) float64 {
	switch {
	case v < 5:
		return 0
	case v <= 140:
		return roundIncrement(v, 5)
	default:
		return roundIncrement(v, 10)
	}
}

// roundBelow handles the shared "below floor shows 0, otherwise round to
// inc" shape used by cholesterol and the gram nutrients.
func roundBelow(v, floor, inc float64) float64 {
	if v < floor {
		return 0
	}
	return roundIncrement(v, inc)
}

func roundIncrement(v, inc float64) float64 {
	return math.Round(v/inc) * inc
}

// trim formats a float without trailing zeros.
func trim(v float64) string {
	// Guard against -0 and float noise like 2.5000000000000004.
	v = math.Round(v*1000) / 1000
	if v == 0 {
		v = 0
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
