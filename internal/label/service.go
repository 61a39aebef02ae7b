// Package label orchestrates the full recipe-to-label pipeline: parse the
// recipe text, resolve each ingredient against the food database, convert
// quantities to grams, aggregate nutrients and persist the result with its
// audit trail.
package label

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gather-kitchen/nutrition-label-server/internal/aggregate"
	"github.com/gather-kitchen/nutrition-label-server/internal/audit"
	"github.com/gather-kitchen/nutrition-label-server/internal/canonical"
	"github.com/gather-kitchen/nutrition-label-server/internal/config"
	"github.com/gather-kitchen/nutrition-label-server/internal/fooddata"
	"github.com/gather-kitchen/nutrition-label-server/internal/recipetext"
	"github.com/gather-kitchen/nutrition-label-server/internal/rounding"
	"github.com/gather-kitchen/nutrition-label-server/internal/score"
	"github.com/gather-kitchen/nutrition-label-server/internal/store"
	"github.com/gather-kitchen/nutrition-label-server/internal/types"
	"github.com/gather-kitchen/nutrition-label-server/internal/units"
)

// searchLimit caps how many candidates the scorer considers per ingredient.
const searchLimit = 10

// ResolvedIngredient records how one ingredient line was matched,
// converted and weighed. Kept alongside the label so a reviewer can audit
// every step from raw text to grams.
type ResolvedIngredient struct {
	Input          string                `json:"input"`
	Query          string                `json:"query"`
	Qualifiers     []string              `json:"qualifiers,omitempty"`
	FdcID          int64                 `json:"fdcId,omitempty"`
	Match          string                `json:"match,omitempty"`
	DataType       string                `json:"dataType,omitempty"`
	Score          *score.Breakdown      `json:"score,omitempty"`
	Quantity       float64               `json:"quantity"`
	Unit           string                `json:"unit"`
	Grams          float64               `json:"grams"`
	ConversionTier units.Tier            `json:"conversionTier,omitempty"`
	Estimated      bool                  `json:"estimated,omitempty"`
	Per100g        types.NutrientProfile `json:"per100g"`
	Unmatched      bool                  `json:"unmatched,omitempty"`
}

// SubRecipeResult is an aggregated nested component and its usage in the
// final dish.
type SubRecipeResult struct {
	Name           string                `json:"name"`
	Ingredients    []ResolvedIngredient  `json:"ingredients"`
	BatchGrams     float64               `json:"batchGrams"`
	RequestedGrams float64               `json:"requestedGrams"`
	Total          types.NutrientProfile `json:"total"`
}

// Components is the persisted ingredient breakdown behind a record. It
// carries enough to recompute the label without re-querying the database.
type Components struct {
	Ingredients []ResolvedIngredient `json:"ingredients"`
	SubRecipes  []SubRecipeResult    `json:"subRecipes,omitempty"`
}

// Analysis is the complete result of analyzing one recipe.
type Analysis struct {
	RecordID    string                   `json:"recordId"`
	DishName    string                   `json:"dishName"`
	Ingredients []ResolvedIngredient     `json:"ingredients"`
	SubRecipes  []SubRecipeResult        `json:"subRecipes,omitempty"`
	TotalGrams  float64                  `json:"totalGrams"`
	Label       types.NutritionLabelData `json:"label"`
	Warnings    []string                 `json:"warnings,omitempty"`
}

// LabelLine is one display row of a formatted nutrition label. Amount is
// the rounded display string with its unit, e.g. "11g" or "less than 5mg".
type LabelLine struct {
	Nutrient     string `json:"nutrient"`
	Amount       string `json:"amount"`
	PercentDaily string `json:"percentDailyValue,omitempty"`
}

// Service runs the pipeline against one food lookup and one record store.
type Service struct {
	lookup    fooddata.Lookup
	store     *store.Store
	tolerance audit.Tolerance
	log       *slog.Logger
}

func NewService(lookup fooddata.Lookup, st *store.Store, cfg *config.Config, logger *slog.Logger) *Service {
	tol := audit.DefaultTolerance
	if cfg != nil {
		tol = audit.Tolerance{AbsoluteFloor: cfg.DiscrepancyFloor, Percent: cfg.DiscrepancyPercent}
	}
	return &Service{lookup: lookup, store: st, tolerance: tol, log: logger}
}

// AnalyzeRecipe parses the recipe text, resolves and weighs every
// ingredient, aggregates the nutrient totals and saves the resulting
// record. Unresolvable lines become warnings, never hard failures.
func (s *Service) AnalyzeRecipe(ctx context.Context, recipeText string) (*Analysis, error) {
	parsed := recipetext.Parse(recipeText)
	if parsed.FinalDish.Name == "" && len(parsed.FinalDish.Ingredients) == 0 {
		return nil, fmt.Errorf("recipe text is empty or has no parseable lines: %s", strings.Join(parsed.Errors, "; "))
	}

	analysis := &Analysis{
		DishName: parsed.FinalDish.Name,
		Warnings: parsed.Errors,
	}

	subTotals := make(map[string]*SubRecipeResult, len(parsed.SubRecipes))
	for i := range parsed.SubRecipes {
		sub := &parsed.SubRecipes[i]
		result := s.aggregateSubRecipe(ctx, sub, analysis)
		subTotals[sub.Name] = result
		analysis.SubRecipes = append(analysis.SubRecipes, *result)
	}

	var bound []aggregate.BoundIngredient
	var uses []aggregate.SubRecipeUse
	for _, ing := range parsed.FinalDish.Ingredients {
		if ing.IsSubRecipe && ing.SubRecipe != nil {
			sub, ok := subTotals[ing.SubRecipe.Name]
			if !ok {
				continue
			}
			uses = append(uses, aggregate.SubRecipeUse{
				Name:           sub.Name,
				Total:          sub.Total,
				TotalGrams:     sub.BatchGrams,
				RequestedGrams: sub.RequestedGrams,
			})
			continue
		}

		resolved := s.resolveIngredient(ctx, ing.IngredientLine, analysis)
		analysis.Ingredients = append(analysis.Ingredients, resolved)
		if resolved.Unmatched {
			continue
		}
		bound = append(bound, aggregate.BoundIngredient{
			Name:    resolved.Query,
			Grams:   resolved.Grams,
			Per100g: resolved.Per100g,
		})
	}

	agg := aggregate.Aggregate(bound, uses)
	analysis.TotalGrams = agg.TotalGrams
	analysis.Label = audit.Initialize(agg.Total)

	components, err := json.Marshal(Components{
		Ingredients: analysis.Ingredients,
		SubRecipes:  analysis.SubRecipes,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to serialize components: %w", err)
	}

	labelCopy := analysis.Label
	recordID, err := s.store.SaveRecord(&store.Record{
		DishName:   analysis.DishName,
		Label:      &labelCopy,
		Components: components,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save record: %w", err)
	}
	analysis.RecordID = recordID

	s.log.Info("Recipe analyzed",
		"record_id", recordID,
		"dish", analysis.DishName,
		"ingredients", len(analysis.Ingredients),
		"sub_recipes", len(analysis.SubRecipes),
		"total_grams", agg.TotalGrams,
		"warnings", len(analysis.Warnings))
	return analysis, nil
}

// aggregateSubRecipe resolves a nested component's own ingredient list and
// works out how much of the batch the final dish actually uses.
func (s *Service) aggregateSubRecipe(ctx context.Context, sub *recipetext.SubRecipe, analysis *Analysis) *SubRecipeResult {
	result := &SubRecipeResult{Name: sub.Name}

	var bound []aggregate.BoundIngredient
	for _, line := range sub.Ingredients {
		resolved := s.resolveIngredient(ctx, line, analysis)
		result.Ingredients = append(result.Ingredients, resolved)
		if resolved.Unmatched {
			continue
		}
		bound = append(bound, aggregate.BoundIngredient{
			Name:    resolved.Query,
			Grams:   resolved.Grams,
			Per100g: resolved.Per100g,
		})
	}

	agg := aggregate.Aggregate(bound, nil)
	result.Total = agg.Total
	result.BatchGrams = agg.TotalGrams

	requested := units.ToGrams(sub.QuantityInFinalDish, normalizeUnit(sub.UnitInFinalDish), units.Options{})
	result.RequestedGrams = requested.Grams
	if requested.Estimated {
		analysis.Warnings = append(analysis.Warnings,
			fmt.Sprintf("estimated gram weight for %q of sub-recipe %q", sub.UnitInFinalDish, sub.Name))
	}

	return result
}

// resolveIngredient runs one line through canonicalization, database
// search, scoring and gram conversion.
func (s *Service) resolveIngredient(ctx context.Context, line recipetext.IngredientLine, analysis *Analysis) ResolvedIngredient {
	form := canonical.Canonicalize(line.Ingredient)
	resolved := ResolvedIngredient{
		Input:      line.OriginalLine,
		Query:      form.Base,
		Qualifiers: form.Qualifiers,
		Quantity:   line.Quantity,
		Unit:       line.Unit,
	}

	foods, err := s.lookup.SearchFoods(ctx, form.Base, searchLimit)
	if err != nil {
		s.log.Warn("Ingredient search failed", "query", form.Base, "error", err)
		analysis.Warnings = append(analysis.Warnings, fmt.Sprintf("lookup failed for %q: %v", form.Base, err))
		resolved.Unmatched = true
		return resolved
	}
	if len(foods) == 0 {
		analysis.Warnings = append(analysis.Warnings, fmt.Sprintf("no match found for %q", form.Base))
		resolved.Unmatched = true
		return resolved
	}

	best, breakdown := pickBest(form.Base, foods)
	resolved.FdcID = best.FdcID
	resolved.Match = best.Description
	resolved.DataType = best.DataType
	resolved.Score = &breakdown
	resolved.Per100g = best.Per100g

	conv := units.ToGrams(line.Quantity, normalizeUnit(line.Unit), units.Options{
		Portions: orderPortions(best.Portions, form.Qualifiers),
	})
	resolved.Grams = conv.Grams
	resolved.ConversionTier = conv.Tier
	resolved.Estimated = conv.Estimated
	if conv.Estimated {
		analysis.Warnings = append(analysis.Warnings,
			fmt.Sprintf("estimated gram weight for %q of %q", line.Unit, form.Base))
	}

	return resolved
}

// pickBest scores every candidate and keeps the highest. Ties keep the
// earlier candidate, preserving the database's own relevance order.
func pickBest(base string, foods []fooddata.Food) (fooddata.Food, score.Breakdown) {
	domain := score.DomainFor(base)

	best := foods[0]
	bestBreakdown := domain.Score(score.Candidate{
		Description: best.Description,
		DataType:    best.DataType,
		Category:    best.Category,
	})
	for _, food := range foods[1:] {
		breakdown := domain.Score(score.Candidate{
			Description: food.Description,
			DataType:    food.DataType,
			Category:    food.Category,
		})
		if breakdown.FinalScore > bestBreakdown.FinalScore {
			best = food
			bestBreakdown = breakdown
		}
	}
	return best, bestBreakdown
}

// orderPortions puts portions whose modifier matches a prep qualifier
// first, so "1 cup, sifted" wins over plain "1 cup" for sifted flour.
func orderPortions(portions []units.Portion, qualifiers []string) []units.Portion {
	if len(portions) == 0 || len(qualifiers) == 0 {
		return portions
	}

	var preferred, rest []units.Portion
	for _, p := range portions {
		matched := false
		for _, q := range qualifiers {
			if q != "" && strings.Contains(strings.ToLower(p.Modifier), q) {
				matched = true
				break
			}
		}
		if matched {
			preferred = append(preferred, p)
		} else {
			rest = append(rest, p)
		}
	}
	return append(preferred, rest...)
}

// normalizeUnit maps the count sentinel onto the converter's coarse
// per-item bucket.
func normalizeUnit(unit string) string {
	if unit == recipetext.UnitItem {
		return "whole"
	}
	return unit
}

// GetRecord loads a stored record.
func (s *Service) GetRecord(recordID string) (*store.Record, error) {
	return s.store.GetRecord(recordID)
}

// FormatLabel renders a record's displayed values as label rows using the
// regulatory rounding rules. The stored numbers stay full precision.
func (s *Service) FormatLabel(record *store.Record) []LabelLine {
	lines := make([]LabelLine, 0, len(types.NutrientFields))
	for _, field := range types.NutrientFields {
		value := record.Label.Values.Value(field)
		lines = append(lines, LabelLine{
			Nutrient:     field,
			Amount:       rounding.Format(field, value),
			PercentDaily: rounding.PercentDailyValue(field, value),
		})
	}
	return lines
}

// ApplyOverride applies a manual edit to a record and logs the event.
func (s *Service) ApplyOverride(recordID string, req audit.OverrideRequest) (*store.Record, error) {
	record, err := s.store.GetRecord(recordID)
	if err != nil {
		return nil, err
	}

	event, err := audit.ApplyOverride(record.Label, req)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateLabel(recordID, record.Label, &event); err != nil {
		return nil, err
	}

	s.log.Info("Manual override applied",
		"record_id", recordID,
		"fields", record.Label.ManualEditMetadata.EditedFields,
		"edited_by", req.EditedBy)
	return record, nil
}

// Revert restores a record's calculated values and logs the event.
func (s *Service) Revert(recordID, reason string) (*store.Record, error) {
	record, err := s.store.GetRecord(recordID)
	if err != nil {
		return nil, err
	}

	event := audit.Revert(record.Label, reason)
	if err := s.store.UpdateLabel(recordID, record.Label, &event); err != nil {
		return nil, err
	}

	s.log.Info("Record reverted to calculated values", "record_id", recordID)
	return record, nil
}

// Recompute re-aggregates a record from its stored ingredient breakdown
// and refreshes the calculated side. A manual override, if present,
// survives untouched.
func (s *Service) Recompute(recordID string) (*store.Record, error) {
	record, err := s.store.GetRecord(recordID)
	if err != nil {
		return nil, err
	}

	var components Components
	if len(record.Components) > 0 {
		if err := json.Unmarshal(record.Components, &components); err != nil {
			return nil, fmt.Errorf("failed to parse stored components: %w", err)
		}
	}

	var bound []aggregate.BoundIngredient
	for _, ing := range components.Ingredients {
		if ing.Unmatched {
			continue
		}
		bound = append(bound, aggregate.BoundIngredient{
			Name:    ing.Query,
			Grams:   ing.Grams,
			Per100g: ing.Per100g,
		})
	}
	var uses []aggregate.SubRecipeUse
	for _, sub := range components.SubRecipes {
		uses = append(uses, aggregate.SubRecipeUse{
			Name:           sub.Name,
			Total:          sub.Total,
			TotalGrams:     sub.BatchGrams,
			RequestedGrams: sub.RequestedGrams,
		})
	}

	agg := aggregate.Aggregate(bound, uses)
	event := audit.Recompute(record.Label, agg.Total)
	if err := s.store.UpdateLabel(recordID, record.Label, &event); err != nil {
		return nil, err
	}

	s.log.Info("Record recomputed", "record_id", recordID, "source", record.Label.Source)
	return record, nil
}

// CheckDiscrepancies reports fields where displayed and calculated values
// diverge beyond the configured tolerance.
func (s *Service) CheckDiscrepancies(recordID string) ([]audit.Discrepancy, error) {
	record, err := s.store.GetRecord(recordID)
	if err != nil {
		return nil, err
	}
	return audit.Discrepancies(*record.Label, s.tolerance), nil
}

// History returns a record's edit events, oldest first.
func (s *Service) History(recordID string) ([]types.EditEvent, error) {
	return s.store.Events(recordID)
}
