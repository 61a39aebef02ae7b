// Package recipetext parses multi-line recipe input: the first line names
// the dish, every following line is an ingredient statement. A line whose
// parenthetical holds its own ingredient list becomes a sub-recipe.
package recipetext

import (
	"regexp"
	"strconv"
	"strings"
)

// UnitItem is the sentinel unit for count-only quantities ("2 eggs").
const UnitItem = "item"

// IngredientLine is one parsed ingredient statement.
type IngredientLine struct {
	Quantity     float64 `json:"quantity"`
	Unit         string  `json:"unit"`
	Ingredient   string  `json:"ingredient"`
	OriginalLine string  `json:"originalLine"`
}

// SubRecipe is a parenthetical ingredient group attached to one line of
// the outer recipe. It belongs to exactly one parse result.
type SubRecipe struct {
	Name                string           `json:"name"`
	Ingredients         []IngredientLine `json:"ingredients"`
	QuantityInFinalDish float64          `json:"quantityInFinalDish"`
	UnitInFinalDish     string           `json:"unitInFinalDish"`
}

// DishIngredient is a final-dish entry: either a plain ingredient or a
// reference to a sub-recipe carrying its parsed data.
type DishIngredient struct {
	IngredientLine
	IsSubRecipe bool       `json:"isSubRecipe"`
	SubRecipe   *SubRecipe `json:"subRecipeData,omitempty"`
}

// FinalDish is the outer recipe.
type FinalDish struct {
	Name        string           `json:"name"`
	Ingredients []DishIngredient `json:"ingredients"`
}

// Result is the complete parse output. Errors collects every line or
// parenthetical piece that could not be interpreted; parsing never aborts.
type Result struct {
	FinalDish  FinalDish   `json:"finalDish"`
	SubRecipes []SubRecipe `json:"subRecipes"`
	Errors     []string    `json:"errors"`
}

// subRecipeLine matches `<anything> (<content>)` at end of line. Whether
// the content is an ingredient list (vs a descriptor like "sifted") is
// decided by looking for quantity-led pieces inside it.
var subRecipeLine = regexp.MustCompile(`^(.*\S)\s*\(([^()]+)\)\s*$`)

var fractionTerm = regexp.MustCompile(`^(\d+)/(\d+)$`)
var decimalTerm = regexp.MustCompile(`^\d+(\.\d+)?$`)

// Parse parses recipe text. Sub-recipes are detected one level deep only:
// pieces inside a parenthetical are always treated as plain ingredients.
func Parse(text string) Result {
	result := Result{
		FinalDish:  FinalDish{Ingredients: []DishIngredient{}},
		SubRecipes: []SubRecipe{},
		Errors:     []string{},
	}

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	if len(lines) == 0 {
		result.Errors = append(result.Errors, "empty recipe text")
		return result
	}

	result.FinalDish.Name = lines[0]

	for _, line := range lines[1:] {
		if sub, ok := parseSubRecipe(line, &result); ok {
			result.SubRecipes = append(result.SubRecipes, *sub)
			result.FinalDish.Ingredients = append(result.FinalDish.Ingredients, DishIngredient{
				IngredientLine: IngredientLine{
					Quantity:     sub.QuantityInFinalDish,
					Unit:         sub.UnitInFinalDish,
					Ingredient:   sub.Name,
					OriginalLine: line,
				},
				IsSubRecipe: true,
				SubRecipe:   sub,
			})
			continue
		}

		ing, err := parseIngredientLine(line)
		if err != "" {
			result.Errors = append(result.Errors, err)
			continue
		}
		result.FinalDish.Ingredients = append(result.FinalDish.Ingredients, DishIngredient{IngredientLine: ing})
	}

	return result
}

// parseSubRecipe tests one line against the sub-recipe pattern. The
// parenthetical qualifies when at least one comma-separated piece starts
// with a digit; otherwise the parens are descriptor text and the line is
// left for ordinary ingredient parsing.
func parseSubRecipe(line string, result *Result) (*SubRecipe, bool) {
	m := subRecipeLine.FindStringSubmatch(line)
	if m == nil {
		return nil, false
	}

	pieces := strings.Split(m[2], ",")
	quantityLed := false
	for _, piece := range pieces {
		if p := strings.TrimSpace(piece); p != "" && p[0] >= '0' && p[0] <= '9' {
			quantityLed = true
			break
		}
	}
	if !quantityLed {
		return nil, false
	}

	outer, err := parseIngredientLine(m[1])
	if err != "" {
		return nil, false
	}

	sub := &SubRecipe{
		Name:                outer.Ingredient,
		Ingredients:         []IngredientLine{},
		QuantityInFinalDish: outer.Quantity,
		UnitInFinalDish:     outer.Unit,
	}
	for _, piece := range pieces {
		ing, pieceErr := parseIngredientLine(strings.TrimSpace(piece))
		if pieceErr != "" {
			result.Errors = append(result.Errors, "sub-recipe "+sub.Name+": "+pieceErr)
			continue
		}
		sub.Ingredients = append(sub.Ingredients, ing)
	}

	return sub, true
}

// parseIngredientLine parses `<quantity>? <unit>? <ingredient>`. Quantity
// accepts decimals, simple fractions and whitespace-separated fraction
// sums ("1 1/2"). Missing quantity defaults to 1, missing unit to the
// item sentinel. The returned error string is empty on success.
func parseIngredientLine(line string) (IngredientLine, string) {
	tokens := strings.Fields(line)
	if len(tokens) == 0 {
		return IngredientLine{}, "empty ingredient line"
	}

	quantity := 0.0
	sawQuantity := false
	i := 0
	for i < len(tokens) {
		term, ok := parseQuantityTerm(tokens[i])
		if !ok {
			break
		}
		quantity += term
		sawQuantity = true
		i++
	}
	if !sawQuantity {
		quantity = 1
	}

	unit := UnitItem
	if i < len(tokens) {
		if u, consumed := matchUnit(tokens[i:]); consumed > 0 {
			unit = u
			i += consumed
		}
	}

	name := strings.TrimSpace(strings.Join(tokens[i:], " "))
	if name == "" {
		return IngredientLine{}, "no ingredient name in line: " + line
	}

	return IngredientLine{
		Quantity:     quantity,
		Unit:         unit,
		Ingredient:   name,
		OriginalLine: line,
	}, ""
}

func parseQuantityTerm(tok string) (float64, bool) {
	if m := fractionTerm.FindStringSubmatch(tok); m != nil {
		num, _ := strconv.ParseFloat(m[1], 64)
		den, _ := strconv.ParseFloat(m[2], 64)
		if den == 0 {
			return 0, false
		}
		return num / den, true
	}
	if decimalTerm.MatchString(tok) {
		v, err := strconv.ParseFloat(tok, 64)
		return v, err == nil
	}
	return 0, false
}

// unitWords are the unit tokens recognized after a quantity. The raw token
// from the line is preserved as the unit string; this set only decides
// whether a token is a unit at all.
var unitWords = map[string]bool{
	"cup": true, "cups": true,
	"tablespoon": true, "tablespoons": true, "tbsp": true,
	"teaspoon": true, "teaspoons": true, "tsp": true,
	"ounce": true, "ounces": true, "oz": true,
	"pound": true, "pounds": true, "lb": true, "lbs": true,
	"gram": true, "grams": true, "g": true,
	"kilogram": true, "kilograms": true, "kg": true,
	"milliliter": true, "milliliters": true, "ml": true,
	"liter": true, "liters": true, "l": true,
	"pint": true, "pints": true,
	"quart": true, "quarts": true,
	"gallon": true, "gallons": true,
	"pinch": true, "pinches": true,
	"dash": true, "dashes": true,
	"clove": true, "cloves": true,
	"slice": true, "slices": true,
	"can": true, "cans": true,
	"stick": true, "sticks": true,
	"piece": true, "pieces": true,
	"whole": true, "small": true, "medium": true, "large": true,
}

// matchUnit returns the unit string and how many tokens it consumed.
// "fl oz" is the one two-token unit.
func matchUnit(tokens []string) (string, int) {
	first := strings.ToLower(tokens[0])
	if first == "fl" && len(tokens) > 1 {
		second := strings.ToLower(tokens[1])
		if second == "oz" || second == "ounce" || second == "ounces" {
			return tokens[0] + " " + tokens[1], 2
		}
	}
	if unitWords[first] {
		return tokens[0], 1
	}
	return "", 0
}
