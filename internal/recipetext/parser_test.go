package recipetext

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_SingleIngredient(t *testing.T) {
	result := Parse("Dish\n2 cups sugar")

	assert.Equal(t, "Dish", result.FinalDish.Name)
	assert.Empty(t, result.Errors)
	assert.Empty(t, result.SubRecipes)
	require.Len(t, result.FinalDish.Ingredients, 1)

	ing := result.FinalDish.Ingredients[0]
	assert.Equal(t, 2.0, ing.Quantity)
	assert.Equal(t, "cups", ing.Unit)
	assert.Equal(t, "sugar", ing.Ingredient)
	assert.Equal(t, "2 cups sugar", ing.OriginalLine)
	assert.False(t, ing.IsSubRecipe)
}

func TestParse_SubRecipeDetection(t *testing.T) {
	result := Parse("Dish\n1 cup salsa (1/2 cup tomato, 1 tbsp onion)")

	require.Len(t, result.SubRecipes, 1)
	sub := result.SubRecipes[0]
	assert.Equal(t, "salsa", sub.Name)
	assert.Equal(t, 1.0, sub.QuantityInFinalDish)
	assert.Equal(t, "cup", sub.UnitInFinalDish)

	require.Len(t, sub.Ingredients, 2)
	assert.Equal(t, 0.5, sub.Ingredients[0].Quantity)
	assert.Equal(t, "tomato", sub.Ingredients[0].Ingredient)
	assert.Equal(t, 1.0, sub.Ingredients[1].Quantity)
	assert.Equal(t, "onion", sub.Ingredients[1].Ingredient)

	require.Len(t, result.FinalDish.Ingredients, 1)
	entry := result.FinalDish.Ingredients[0]
	assert.True(t, entry.IsSubRecipe)
	require.NotNil(t, entry.SubRecipe)
	assert.Equal(t, "salsa", entry.SubRecipe.Name)
}

func TestParse_DescriptorParensAreNotSubRecipes(t *testing.T) {
	result := Parse("Dish\n2 cups flour (sifted)")

	assert.Empty(t, result.SubRecipes)
	require.Len(t, result.FinalDish.Ingredients, 1)
	assert.Equal(t, "flour (sifted)", result.FinalDish.Ingredients[0].Ingredient)
}

func TestParse_Quantities(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		quantity float64
		unit     string
		ing      string
	}{
		{"decimal", "1.5 cups milk", 1.5, "cups", "milk"},
		{"simple fraction", "1/2 tsp salt", 0.5, "tsp", "salt"},
		{"mixed fraction", "1 1/2 cups flour", 1.5, "cups", "flour"},
		{"count without unit", "2 eggs", 2, UnitItem, "eggs"},
		{"no quantity at all", "salt", 1, UnitItem, "salt"},
		{"two token unit", "4 fl oz cream", 4, "fl oz", "cream"},
		{"weight unit", "200 g butter", 200, "g", "butter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Parse("Dish\n" + tt.line)
			require.Empty(t, result.Errors)
			require.Len(t, result.FinalDish.Ingredients, 1)

			ing := result.FinalDish.Ingredients[0]
			assert.InDelta(t, tt.quantity, ing.Quantity, 1e-9)
			assert.Equal(t, tt.unit, ing.Unit)
			assert.Equal(t, tt.ing, ing.Ingredient)
		})
	}
}

func TestParse_EmptyInput(t *testing.T) {
	result := Parse("   \n  ")
	assert.Equal(t, "", result.FinalDish.Name)
	assert.Empty(t, result.FinalDish.Ingredients)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "empty recipe")
}

func TestParse_BadLinesAreCollectedNotFatal(t *testing.T) {
	result := Parse("Dish\n2\n1 cup sugar")

	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "no ingredient name")
	require.Len(t, result.FinalDish.Ingredients, 1)
	assert.Equal(t, "sugar", result.FinalDish.Ingredients[0].Ingredient)
}

func TestParse_BadSubRecipePieceReported(t *testing.T) {
	result := Parse("Dish\n1 cup mix (1/2 cup oats, 3)")

	require.Len(t, result.SubRecipes, 1)
	assert.Len(t, result.SubRecipes[0].Ingredients, 1)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "sub-recipe mix")
}

func TestParse_DepthStopsAtOneLevel(t *testing.T) {
	// A parenthetical inside a sub-recipe piece is never expanded again;
	// the regex only captures the innermost group, so the piece stays a
	// plain ingredient.
	result := Parse("Dish\n1 cup sauce (1 cup base, 2 tbsp oil)")
	require.Len(t, result.SubRecipes, 1)
	for _, ing := range result.SubRecipes[0].Ingredients {
		assert.NotContains(t, ing.Ingredient, "(")
	}
}
