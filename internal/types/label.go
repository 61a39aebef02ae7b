package types

import "time"

// Source identifies whether the displayed values of a nutrition record are
// the calculated ones or a manual override.
type Source string

const (
	SourceCalculated     Source = "calculated"
	SourceManualOverride Source = "manual_override"
)

// ManualEditMetadata records the most recent manual override. Reason is
// mandatory; an override without one is rejected before any mutation.
type ManualEditMetadata struct {
	Timestamp      time.Time          `json:"timestamp"`
	EditedBy       string             `json:"editedBy,omitempty"`
	Reason         string             `json:"reason"`
	EditedFields   []string           `json:"editedFields"`
	PreviousValues map[string]float64 `json:"previousValues,omitempty"`
}

// NutritionLabelData is the audited nutrition record for one dish.
//
// Values is what gets displayed. CalculatedValues is written only by the
// recompute path; a manual override must never touch it. The two are equal
// whenever Source is "calculated".
type NutritionLabelData struct {
	Values             NutrientProfile     `json:"values"`
	CalculatedValues   NutrientProfile     `json:"calculatedValues"`
	Source             Source              `json:"source"`
	LastCalculated     time.Time           `json:"lastCalculated"`
	ManualEditMetadata *ManualEditMetadata `json:"manualEditMetadata,omitempty"`
}

// EditEventKind tags the closed set of audit-trail transitions.
type EditEventKind string

const (
	EditEventOverride  EditEventKind = "override"
	EditEventRevert    EditEventKind = "revert"
	EditEventRecompute EditEventKind = "recompute"
)

// EditEvent is one transition applied to a nutrition record. Only the
// fields relevant to its kind are set: Overrides/Reason/EditedBy for an
// override, Reason (optional) for a revert, Recalculated for a recompute.
type EditEvent struct {
	Kind         EditEventKind      `json:"kind"`
	At           time.Time          `json:"at"`
	Reason       string             `json:"reason,omitempty"`
	EditedBy     string             `json:"editedBy,omitempty"`
	Overrides    map[string]float64 `json:"overrides,omitempty"`
	Recalculated *NutrientProfile   `json:"recalculated,omitempty"`
}
