// Package units resolves a (quantity, unit) pair to a gram weight through
// a tiered fallback chain. Resolution always succeeds: an unmatched unit
// produces a flagged conservative estimate rather than an error, so a
// single odd unit can never abort a whole recipe.
package units

import "strings"

// Tier identifies which resolution tier produced a gram weight.
type Tier string

const (
	TierCustomRatio Tier = "custom_ratio"    // caller-supplied grams per unit
	TierPortion     Tier = "database_portion" // ingredient-specific portion match
	TierStandard    Tier = "standard_table"   // static unit table
	TierFallback    Tier = "default_estimate" // flagged last resort
)

// defaultGramsPerUnit is the conservative estimate used when nothing else
// matches. Deliberately small: underestimating an unknown unit is safer on
// a label than overestimating it, and the warning flag surfaces it anyway.
const defaultGramsPerUnit = 10.0

// Portion is an ingredient-specific measure from the food database, e.g.
// "1 cup, sifted = 115 g".
type Portion struct {
	Unit       string  `json:"unit"`
	Modifier   string  `json:"modifier,omitempty"`
	GramWeight float64 `json:"gramWeight"`
}

// Options carries the optional higher-priority conversion sources.
type Options struct {
	// CustomGramsPerUnit overrides everything when positive.
	CustomGramsPerUnit float64
	// Portions are database measures for the exact ingredient.
	Portions []Portion
}

// Conversion is the resolved result. Estimated is true only for the
// fallback tier, signalling degraded confidence to the caller.
type Conversion struct {
	Grams     float64 `json:"grams"`
	Tier      Tier    `json:"tier"`
	Estimated bool    `json:"estimated"`
}

// standardEntry pairs a case-insensitive substring key with grams per one
// unit. Ordered: longer keys come before substrings they contain
// ("kilogram" before "gram", "fluid ounce" before "ounce").
type standardEntry struct {
	key   string
	grams float64
}

var standardTable = []standardEntry{
	{"tablespoon", 15},
	{"teaspoon", 5},
	{"fluid ounce", 30},
	{"fl oz", 30},
	{"cup", 240},
	{"gallon", 3785},
	{"quart", 946},
	{"pint", 473},
	{"milliliter", 1},
	{"liter", 1000},
	{"kilogram", 1000},
	{"gram", 1},
	{"pound", 453.6},
	{"ounce", 28.35},
	{"pinch", 0.3},
	{"dash", 0.6},
	{"stick", 113},
	{"clove", 5},
	{"slice", 25},
	{"small", 50},
	{"medium", 100},
	{"large", 150},
	{"whole", 100},
	{"piece", 50},
}

// exactUnits are short abbreviations that would misfire under substring
// matching ("large" contains "g"), so they only match the whole token.
var exactUnits = map[string]float64{
	"g":    1,
	"kg":   1000,
	"ml":   1,
	"l":    1000,
	"oz":   28.35,
	"lb":   453.6,
	"lbs":  453.6,
	"tsp":  5,
	"tbsp": 15,
}

// ToGrams resolves quantity of unit to grams. The tiers are strictly
// ordered: a custom ratio wins over a portion match, which wins over the
// standard table, which wins over the flagged default.
func ToGrams(quantity float64, unit string, opts Options) Conversion {
	if opts.CustomGramsPerUnit > 0 {
		return Conversion{Grams: quantity * opts.CustomGramsPerUnit, Tier: TierCustomRatio}
	}

	unit = singular(unit)

	if grams, ok := matchPortion(unit, opts.Portions); ok {
		return Conversion{Grams: quantity * grams, Tier: TierPortion}
	}

	if grams, ok := matchStandard(unit); ok {
		return Conversion{Grams: quantity * grams, Tier: TierStandard}
	}

	return Conversion{
		Grams:     quantity * defaultGramsPerUnit,
		Tier:      TierFallback,
		Estimated: true,
	}
}

// singular strips a plain plural suffix so "cups" matches a "cup" portion.
// Short tokens like "lbs" are left alone; they are handled exactly.
func singular(unit string) string {
	u := strings.TrimSpace(unit)
	if len(u) > 3 && strings.HasSuffix(u, "es") && !strings.HasSuffix(u, "ces") {
		return strings.TrimSuffix(u, "es")
	}
	if len(u) > 3 && strings.HasSuffix(u, "s") && !strings.HasSuffix(u, "ss") {
		return strings.TrimSuffix(u, "s")
	}
	return u
}

// matchPortion finds a database portion whose unit (or modifier) contains
// the requested unit string, case-insensitive, first match wins.
func matchPortion(unit string, portions []Portion) (float64, bool) {
	needle := strings.ToLower(strings.TrimSpace(unit))
	if needle == "" {
		return 0, false
	}
	for _, p := range portions {
		if p.GramWeight <= 0 {
			continue
		}
		if strings.Contains(strings.ToLower(p.Unit), needle) ||
			strings.Contains(strings.ToLower(p.Modifier), needle) {
			return p.GramWeight, true
		}
	}
	return 0, false
}

// matchStandard looks the unit up in the static table by case-insensitive
// substring in table order.
func matchStandard(unit string) (float64, bool) {
	needle := strings.ToLower(strings.TrimSpace(unit))
	if needle == "" {
		return 0, false
	}
	if grams, ok := exactUnits[needle]; ok {
		return grams, true
	}
	for _, entry := range standardTable {
		if strings.Contains(needle, entry.key) {
			return entry.grams, true
		}
	}
	return 0, false
}
