package fooddata

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/gather-kitchen/nutrition-label-server/internal/units"
)

// Engine answers ingredient searches from the local FoodData Central
// parquet snapshot through DuckDB.
type Engine struct {
	db          *sql.DB
	parquetPath string
	log         *slog.Logger
}

var _ Lookup = (*Engine)(nil)

// snapshotNutrient is one entry of the snapshot's nutrients JSON column.
type snapshotNutrient struct {
	NutrientID int64   `json:"nutrient_id"`
	Amount     float64 `json:"amount"`
}

// snapshotPortion is one entry of the snapshot's portions JSON column.
type snapshotPortion struct {
	Unit       string  `json:"measure_unit"`
	Modifier   string  `json:"modifier"`
	GramWeight float64 `json:"gram_weight"`
}

// NewEngine creates a DuckDB-backed lookup over the snapshot at parquetPath.
func NewEngine(parquetPath string, logger *slog.Logger) (*Engine, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb: %w", err)
	}

	return &Engine{
		db:          db,
		parquetPath: parquetPath,
		log:         logger,
	}, nil
}

// Close closes the database connection
func (e *Engine) Close() error {
	return e.db.Close()
}

// SearchFoods returns snapshot entries whose description matches the query
// as a case-insensitive substring, with nutrients and portions decoded.
func (e *Engine) SearchFoods(ctx context.Context, query string, limit int) ([]Food, error) {
	start := time.Now()
	e.log.Debug("SearchFoods starting", "query", query, "limit", limit)

	sqlQuery := `
		SELECT fdc_id, description, data_type, food_category, nutrients, portions
		FROM read_parquet(?)
		WHERE description ILIKE ?
		LIMIT ?`

	rows, err := e.db.QueryContext(ctx, sqlQuery, e.parquetPath, "%"+query+"%", limit)
	if err != nil {
		e.log.Error("DuckDB query failed", "error", err, "duration", time.Since(start))
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var results []Food
	for rows.Next() {
		food, err := e.scanFood(rows)
		if err != nil {
			e.log.Error("Row scan failed", "error", err)
			continue
		}
		results = append(results, food)
	}

	if err := rows.Err(); err != nil {
		e.log.Error("Rows iteration failed", "error", err)
		return nil, fmt.Errorf("rows error: %w", err)
	}

	e.log.Info("SearchFoods completed", "count", len(results), "duration", time.Since(start))
	return results, nil
}

func (e *Engine) scanFood(rows *sql.Rows) (Food, error) {
	var (
		food         Food
		descStr      sql.NullString
		dataTypeStr  sql.NullString
		categoryStr  sql.NullString
		nutrientsStr sql.NullString
		portionsStr  sql.NullString
	)

	if err := rows.Scan(&food.FdcID, &descStr, &dataTypeStr, &categoryStr, &nutrientsStr, &portionsStr); err != nil {
		return Food{}, err
	}

	food.Description = descStr.String
	food.DataType = dataTypeStr.String
	food.Category = categoryStr.String

	if nutrientsStr.Valid && nutrientsStr.String != "" {
		var entries []snapshotNutrient
		if err := json.Unmarshal([]byte(nutrientsStr.String), &entries); err != nil {
			e.log.Debug("Failed to parse nutrients JSON", "error", err, "fdc_id", food.FdcID)
		} else {
			amounts := make(map[int64]float64, len(entries))
			for _, n := range entries {
				amounts[n.NutrientID] = n.Amount
			}
			food.Per100g = ProfileFromNutrients(amounts)
		}
	}

	if portionsStr.Valid && portionsStr.String != "" {
		var entries []snapshotPortion
		if err := json.Unmarshal([]byte(portionsStr.String), &entries); err != nil {
			e.log.Debug("Failed to parse portions JSON", "error", err, "fdc_id", food.FdcID)
		} else {
			for _, p := range entries {
				food.Portions = append(food.Portions, units.Portion{
					Unit:       p.Unit,
					Modifier:   p.Modifier,
					GramWeight: p.GramWeight,
				})
			}
		}
	}

	return food, nil
}

// HealthCheck verifies the database connection and snapshot access.
func (e *Engine) HealthCheck(ctx context.Context) error {
	start := time.Now()
	e.log.Debug("Testing DuckDB connection and snapshot")

	var count int64
	if err := e.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM read_parquet(?)`, e.parquetPath).Scan(&count); err != nil {
		e.log.Error("Health check failed", "error", err, "duration", time.Since(start))
		return fmt.Errorf("health check failed: %w", err)
	}

	e.log.Info("Health check successful", "total_foods", count, "duration", time.Since(start))
	return nil
}
