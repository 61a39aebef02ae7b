package fooddata

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/gather-kitchen/nutrition-label-server/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestProfileFromNutrients(t *testing.T) {
	profile := ProfileFromNutrients(map[int64]float64{
		NutrientIDEnergy:       364,
		NutrientIDProtein:      10.3,
		NutrientIDCarbohydrate: 76.3,
		NutrientIDSodium:       2,
		9999:                   42, // unknown id ignored
	})

	assert.Equal(t, 364.0, profile.Calories)
	assert.Equal(t, 10.3, profile.Protein)
	assert.Equal(t, 76.3, profile.TotalCarbohydrate)
	assert.Equal(t, 2.0, profile.Sodium)
	assert.Equal(t, 0.0, profile.TotalFat)
}

func TestMockLookup_SearchFoods(t *testing.T) {
	mock := NewMockLookup(testLogger())
	ctx := context.Background()

	foods, err := mock.SearchFoods(ctx, "all-purpose flour", 10)
	require.NoError(t, err)
	require.Len(t, foods, 1)
	assert.Equal(t, "Wheat flour, white, all-purpose, enriched, bleached", foods[0].Description)
	assert.NotEmpty(t, foods[0].Portions)

	foods, err = mock.SearchFoods(ctx, "flour", 10)
	require.NoError(t, err)
	assert.Len(t, foods, 2)

	foods, err = mock.SearchFoods(ctx, "flour", 1)
	require.NoError(t, err)
	assert.Len(t, foods, 1)

	foods, err = mock.SearchFoods(ctx, "no such ingredient", 10)
	require.NoError(t, err)
	assert.Empty(t, foods)
}

func TestMockLookup_InjectedError(t *testing.T) {
	mock := NewMockLookup(testLogger())
	mock.SetError(errors.New("lookup down"))

	_, err := mock.SearchFoods(context.Background(), "flour", 1)
	assert.Error(t, err)
	assert.Error(t, mock.HealthCheck(context.Background()))
}

func TestParseSearchResponse(t *testing.T) {
	body := []byte(`{
		"foods": [
			{
				"fdcId": 168894,
				"description": "Wheat flour, white, all-purpose, enriched, bleached",
				"dataType": "SR Legacy",
				"foodCategory": "Cereal Grains and Pasta",
				"foodNutrients": [
					{"nutrientId": 1008, "value": 364},
					{"nutrientId": 1003, "value": 10.3}
				],
				"foodMeasures": [
					{"disseminationText": "1 cup", "modifier": "unsifted", "gramWeight": 125}
				]
			}
		]
	}`)

	foods := parseSearchResponse(body)
	require.Len(t, foods, 1)

	food := foods[0]
	assert.Equal(t, int64(168894), food.FdcID)
	assert.Equal(t, "SR Legacy", food.DataType)
	assert.Equal(t, "Cereal Grains and Pasta", food.Category)
	assert.Equal(t, 364.0, food.Per100g.Calories)
	assert.Equal(t, 10.3, food.Per100g.Protein)
	require.Len(t, food.Portions, 1)
	assert.Equal(t, "1 cup", food.Portions[0].Unit)
	assert.Equal(t, 125.0, food.Portions[0].GramWeight)
}

func TestParseSearchResponse_Malformed(t *testing.T) {
	assert.Empty(t, parseSearchResponse([]byte("not json")))
	assert.Empty(t, parseSearchResponse([]byte(`{"foods": []}`)))
}

func TestNewLookup_MockSelection(t *testing.T) {
	t.Setenv("FOODDATA_MOCK", "true")

	lookup, err := NewLookup(&config.Config{}, testLogger())
	require.NoError(t, err)
	defer lookup.Close()

	_, ok := lookup.(*MockLookup)
	assert.True(t, ok)
}

func TestNewLookup_RemoteSelection(t *testing.T) {
	t.Setenv("FOODDATA_MOCK", "false")

	lookup, err := NewLookup(&config.Config{
		FDCBaseURL: "https://api.nal.usda.gov/fdc",
		FDCApiKey:  "demo-key",
	}, testLogger())
	require.NoError(t, err)
	defer lookup.Close()

	_, ok := lookup.(*RemoteClient)
	assert.True(t, ok)
}
