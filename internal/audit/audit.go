// Package audit owns the state machine over a nutrition record's source:
// calculated vs manual_override. Displayed values and calculated values
// are tracked in parallel forever; overrides never contaminate the
// calculated side, and recomputes never clobber an override.
package audit

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gather-kitchen/nutrition-label-server/internal/types"
)

// ErrReasonRequired rejects an override without a human-authored reason.
var ErrReasonRequired = errors.New("manual override requires a non-empty reason")

// OverrideRequest is the external override payload. Values arrive as
// strings from the edit surface and are validated here before any state
// mutation.
type OverrideRequest struct {
	Overrides map[string]string `json:"overrides"`
	Reason    string            `json:"reason"`
	EditedBy  string            `json:"editedBy,omitempty"`
}

// Discrepancy is one field where displayed and calculated values diverge
// beyond tolerance. Surfaced to the caller, never auto-resolved.
type Discrepancy struct {
	Field      string  `json:"field"`
	Calculated float64 `json:"calculated"`
	Displayed  float64 `json:"displayed"`
	Delta      float64 `json:"delta"`
}

// Tolerance controls discrepancy detection: a field is flagged when the
// difference exceeds max(AbsoluteFloor, Percent × calculated).
type Tolerance struct {
	AbsoluteFloor float64
	Percent       float64
}

// DefaultTolerance flags differences beyond 2 units or 5% of calculated,
// whichever is larger. Small hand-tweaks stay quiet; real divergence
// surfaces.
var DefaultTolerance = Tolerance{AbsoluteFloor: 2, Percent: 0.05}

// Initialize builds a fresh record from an aggregated profile.
func Initialize(profile types.NutrientProfile) types.NutritionLabelData {
	return types.NutritionLabelData{
		Values:           profile,
		CalculatedValues: profile,
		Source:           types.SourceCalculated,
		LastCalculated:   time.Now().UTC(),
	}
}

// Recompute refreshes the calculated side after ingredient changes. When
// the record is in calculated state the displayed values follow; under a
// manual override the displayed values and edit metadata are left alone —
// the override survives until explicitly reverted.
func Recompute(rec *types.NutritionLabelData, profile types.NutrientProfile) types.EditEvent {
	rec.CalculatedValues = profile
	rec.LastCalculated = time.Now().UTC()
	if rec.Source == types.SourceCalculated {
		rec.Values = profile
	}
	return types.EditEvent{
		Kind:         types.EditEventRecompute,
		At:           rec.LastCalculated,
		Recalculated: &profile,
	}
}

// ApplyOverride validates and applies a manual override. On any validation
// failure the record is left untouched. EditedFields covers exactly the
// fields whose value actually changed; PreviousValues snapshots those same
// fields so a reviewer can see what was replaced.
func ApplyOverride(rec *types.NutritionLabelData, req OverrideRequest) (types.EditEvent, error) {
	if strings.TrimSpace(req.Reason) == "" {
		return types.EditEvent{}, ErrReasonRequired
	}

	parsed, err := parseOverrides(req.Overrides)
	if err != nil {
		return types.EditEvent{}, err
	}

	edited := make([]string, 0, len(parsed))
	previous := make(map[string]float64, len(parsed))
	for _, field := range types.NutrientFields {
		newValue, ok := parsed[field]
		if !ok || newValue == rec.Values.Value(field) {
			continue
		}
		edited = append(edited, field)
		previous[field] = rec.Values.Value(field)
	}

	for field, v := range parsed {
		rec.Values.SetValue(field, v)
	}
	rec.Source = types.SourceManualOverride
	rec.ManualEditMetadata = &types.ManualEditMetadata{
		Timestamp:      time.Now().UTC(),
		EditedBy:       req.EditedBy,
		Reason:         req.Reason,
		EditedFields:   edited,
		PreviousValues: previous,
	}

	return types.EditEvent{
		Kind:      types.EditEventOverride,
		At:        rec.ManualEditMetadata.Timestamp,
		Reason:    req.Reason,
		EditedBy:  req.EditedBy,
		Overrides: parsed,
	}, nil
}

// Revert restores the calculated values as the displayed ones and drops
// the override metadata entirely. Only the most recent override's metadata
// ever exists; full history lives in the external audit log.
func Revert(rec *types.NutritionLabelData, reason string) types.EditEvent {
	rec.Values = rec.CalculatedValues
	rec.Source = types.SourceCalculated
	rec.ManualEditMetadata = nil
	return types.EditEvent{
		Kind:   types.EditEventRevert,
		At:     time.Now().UTC(),
		Reason: reason,
	}
}

// Discrepancies compares displayed to calculated values per field under
// the given tolerance.
func Discrepancies(rec types.NutritionLabelData, tol Tolerance) []Discrepancy {
	var found []Discrepancy
	for _, field := range types.NutrientFields {
		calc := rec.CalculatedValues.Value(field)
		disp := rec.Values.Value(field)
		delta := disp - calc
		if delta < 0 {
			delta = -delta
		}

		allowed := tol.AbsoluteFloor
		if pct := tol.Percent * abs(calc); pct > allowed {
			allowed = pct
		}
		if delta > allowed {
			found = append(found, Discrepancy{
				Field:      field,
				Calculated: calc,
				Displayed:  disp,
				Delta:      delta,
			})
		}
	}
	return found
}

// parseOverrides validates field names and numeric values up front so a
// half-bad request cannot partially mutate the record.
func parseOverrides(overrides map[string]string) (map[string]float64, error) {
	if len(overrides) == 0 {
		return nil, errors.New("override request contains no fields")
	}
	parsed := make(map[string]float64, len(overrides))
	for field, raw := range overrides {
		if !types.IsNutrientField(field) {
			return nil, fmt.Errorf("unknown nutrient field %q", field)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("non-numeric value %q for field %q", raw, field)
		}
		if v < 0 {
			return nil, fmt.Errorf("negative value %v for field %q", v, field)
		}
		parsed[field] = v
	}
	return parsed, nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
