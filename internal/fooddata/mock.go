package fooddata

import (
	"context"
	"log/slog"
	"strings"

	"github.com/gather-kitchen/nutrition-label-server/internal/types"
	"github.com/gather-kitchen/nutrition-label-server/internal/units"
)

// MockLookup is a deterministic in-memory lookup for tests and local
// development.
type MockLookup struct {
	foods []Food
	err   error
	log   *slog.Logger
}

var _ Lookup = (*MockLookup)(nil)

// NewMockLookup creates a mock seeded with a small pantry of staples.
func NewMockLookup(logger *slog.Logger) *MockLookup {
	return &MockLookup{
		log: logger,
		foods: []Food{
			{
				FdcID:       168894,
				Description: "Wheat flour, white, all-purpose, enriched, bleached",
				DataType:    "SR Legacy",
				Category:    "Cereal Grains and Pasta",
				Per100g: types.NutrientProfile{
					Calories:          364,
					TotalFat:          1,
					TotalCarbohydrate: 76.3,
					DietaryFiber:      2.7,
					TotalSugars:       0.3,
					Protein:           10.3,
					Sodium:            2,
					Calcium:           15,
					Iron:              4.6,
					Potassium:         107,
				},
				Portions: []units.Portion{
					{Unit: "cup", GramWeight: 125},
					{Unit: "cup", Modifier: "sifted", GramWeight: 115},
				},
			},
			{
				FdcID:       170687,
				Description: "Almond flour",
				DataType:    "Foundation",
				Category:    "Nut and Seed Products",
				Per100g: types.NutrientProfile{
					Calories:          571,
					TotalFat:          50,
					SaturatedFat:      3.8,
					TotalCarbohydrate: 21.4,
					DietaryFiber:      10.7,
					TotalSugars:       4.3,
					Protein:           21.4,
					Calcium:           232,
					Iron:              3.9,
					Potassium:         659,
				},
				Portions: []units.Portion{{Unit: "cup", GramWeight: 96}},
			},
			{
				FdcID:       169655,
				Description: "Sugars, granulated",
				DataType:    "SR Legacy",
				Category:    "Sweets",
				Per100g: types.NutrientProfile{
					Calories:          387,
					TotalCarbohydrate: 100,
					TotalSugars:       99.8,
				},
				Portions: []units.Portion{{Unit: "cup", GramWeight: 200}},
			},
			{
				FdcID:       173410,
				Description: "Butter, without salt",
				DataType:    "SR Legacy",
				Category:    "Dairy and Egg Products",
				Per100g: types.NutrientProfile{
					Calories:     717,
					TotalFat:     81.1,
					SaturatedFat: 51.4,
					TransFat:     3.3,
					Cholesterol:  215,
					Sodium:       11,
					Protein:      0.9,
				},
				Portions: []units.Portion{
					{Unit: "stick", GramWeight: 113},
					{Unit: "tbsp", GramWeight: 14.2},
				},
			},
			{
				FdcID:       170457,
				Description: "Tomatoes, red, ripe, raw",
				DataType:    "SR Legacy",
				Category:    "Vegetables and Vegetable Products",
				Per100g: types.NutrientProfile{
					Calories:          18,
					TotalCarbohydrate: 3.9,
					TotalSugars:       2.6,
					DietaryFiber:      1.2,
					Protein:           0.9,
					Sodium:            5,
					Potassium:         237,
				},
				Portions: []units.Portion{{Unit: "cup, chopped", GramWeight: 180}},
			},
			{
				FdcID:       170000,
				Description: "Onions, raw",
				DataType:    "SR Legacy",
				Category:    "Vegetables and Vegetable Products",
				Per100g: types.NutrientProfile{
					Calories:          40,
					TotalCarbohydrate: 9.3,
					TotalSugars:       4.2,
					DietaryFiber:      1.7,
					Protein:           1.1,
					Sodium:            4,
					Potassium:         146,
				},
				Portions: []units.Portion{{Unit: "cup, chopped", GramWeight: 160}},
			},
		},
	}
}

// SearchFoods matches the query case-insensitively against descriptions.
func (m *MockLookup) SearchFoods(ctx context.Context, query string, limit int) ([]Food, error) {
	if m.err != nil {
		return nil, m.err
	}

	var results []Food
	for _, food := range m.foods {
		if query != "" && !containsAllWords(food.Description, query) {
			continue
		}
		results = append(results, food)
		if len(results) >= limit {
			break
		}
	}
	return results, nil
}

// HealthCheck always succeeds unless an error has been injected.
func (m *MockLookup) HealthCheck(ctx context.Context) error {
	return m.err
}

// Close closes the mock lookup (no-op)
func (m *MockLookup) Close() error {
	return nil
}

// SetError injects an error to be returned by every call.
func (m *MockLookup) SetError(err error) {
	m.err = err
}

// SetFoods replaces the seeded foods.
func (m *MockLookup) SetFoods(foods []Food) {
	m.foods = foods
}

// containsAllWords reports whether every word of the query appears in the
// description, case-insensitive.
func containsAllWords(description, query string) bool {
	desc := strings.ToLower(description)
	for _, word := range strings.Fields(strings.ToLower(query)) {
		if !strings.Contains(desc, word) {
			return false
		}
	}
	return true
}
