package fooddata

import (
	"context"
	"log/slog"
	"os"

	"github.com/gather-kitchen/nutrition-label-server/internal/config"
	"github.com/gather-kitchen/nutrition-label-server/internal/types"
	"github.com/gather-kitchen/nutrition-label-server/internal/units"
)

// Food is one ingredient-database candidate: identity, source tier,
// per-100g nutrient profile and the measures the converter can use.
type Food struct {
	FdcID       int64                 `json:"fdcId"`
	Description string                `json:"description"`
	DataType    string                `json:"dataType"`
	Category    string                `json:"category,omitempty"`
	Per100g     types.NutrientProfile `json:"per100g"`
	Portions    []units.Portion       `json:"portions,omitempty"`
}

// Lookup defines the interface for searching the ingredient database
type Lookup interface {
	SearchFoods(ctx context.Context, query string, limit int) ([]Food, error)
	HealthCheck(ctx context.Context) error
	Close() error
}

// NewLookup creates a lookup implementation based on configuration.
// FOODDATA_MOCK forces the in-memory mock (used by tests and local dev);
// a configured FDC API key selects the remote client; otherwise queries go
// to the local snapshot through DuckDB.
func NewLookup(cfg *config.Config, logger *slog.Logger) (Lookup, error) {
	if os.Getenv("FOODDATA_MOCK") == "true" {
		return NewMockLookup(logger), nil
	}
	if cfg.UseRemoteLookup() {
		return NewRemoteClient(cfg.FDCBaseURL, cfg.FDCApiKey, logger), nil
	}
	return NewEngine(cfg.ParquetPath, logger)
}
