package types

// NutrientProfile is the fixed-shape nutrient record used throughout the
// pipeline. Depending on the stage it holds per-100g densities or absolute
// amounts. Every field defaults to zero so addition and scaling are total;
// there is no "missing" state.
type NutrientProfile struct {
	Calories          float64 `json:"calories"`
	TotalFat          float64 `json:"totalFat"`
	SaturatedFat      float64 `json:"saturatedFat"`
	TransFat          float64 `json:"transFat"`
	Cholesterol       float64 `json:"cholesterol"`
	Sodium            float64 `json:"sodium"`
	TotalCarbohydrate float64 `json:"totalCarbohydrate"`
	DietaryFiber      float64 `json:"dietaryFiber"`
	TotalSugars       float64 `json:"totalSugars"`
	AddedSugars       float64 `json:"addedSugars"`
	Protein           float64 `json:"protein"`
	VitaminD          float64 `json:"vitaminD"`
	Calcium           float64 `json:"calcium"`
	Iron              float64 `json:"iron"`
	Potassium         float64 `json:"potassium"`
}

// NutrientFields lists every profile field in label order. Iteration over a
// profile always uses this slice so output ordering is deterministic.
var NutrientFields = []string{
	"calories",
	"totalFat",
	"saturatedFat",
	"transFat",
	"cholesterol",
	"sodium",
	"totalCarbohydrate",
	"dietaryFiber",
	"totalSugars",
	"addedSugars",
	"protein",
	"vitaminD",
	"calcium",
	"iron",
	"potassium",
}

// IsNutrientField reports whether name is a known profile field.
func IsNutrientField(name string) bool {
	for _, f := range NutrientFields {
		if f == name {
			return true
		}
	}
	return false
}

// Value returns the named field, or zero for an unknown name.
func (p NutrientProfile) Value(name string) float64 {
	switch name {
	case "calories":
		return p.Calories
	case "totalFat":
		return p.TotalFat
	case "saturatedFat":
		return p.SaturatedFat
	case "transFat":
		return p.TransFat
	case "cholesterol":
		return p.Cholesterol
	case "sodium":
		return p.Sodium
	case "totalCarbohydrate":
		return p.TotalCarbohydrate
	case "dietaryFiber":
		return p.DietaryFiber
	case "totalSugars":
		return p.TotalSugars
	case "addedSugars":
		return p.AddedSugars
	case "protein":
		return p.Protein
	case "vitaminD":
		return p.VitaminD
	case "calcium":
		return p.Calcium
	case "iron":
		return p.Iron
	case "potassium":
		return p.Potassium
	}
	return 0
}

// SetValue sets the named field. Unknown names are ignored.
func (p *NutrientProfile) SetValue(name string, v float64) {
	switch name {
	case "calories":
		p.Calories = v
	case "totalFat":
		p.TotalFat = v
	case "saturatedFat":
		p.SaturatedFat = v
	case "transFat":
		p.TransFat = v
	case "cholesterol":
		p.Cholesterol = v
	case "sodium":
		p.Sodium = v
	case "totalCarbohydrate":
		p.TotalCarbohydrate = v
	case "dietaryFiber":
		p.DietaryFiber = v
	case "totalSugars":
		p.TotalSugars = v
	case "addedSugars":
		p.AddedSugars = v
	case "protein":
		p.Protein = v
	case "vitaminD":
		p.VitaminD = v
	case "calcium":
		p.Calcium = v
	case "iron":
		p.Iron = v
	case "potassium":
		p.Potassium = v
	}
}

// Add returns the component-wise sum of p and other.
func (p NutrientProfile) Add(other NutrientProfile) NutrientProfile {
	var sum NutrientProfile
	for _, f := range NutrientFields {
		sum.SetValue(f, p.Value(f)+other.Value(f))
	}
	return sum
}

// Scale returns p with every component multiplied by factor.
func (p NutrientProfile) Scale(factor float64) NutrientProfile {
	var scaled NutrientProfile
	for _, f := range NutrientFields {
		scaled.SetValue(f, p.Value(f)*factor)
	}
	return scaled
}

// Map returns the profile as a field-name keyed map.
func (p NutrientProfile) Map() map[string]float64 {
	m := make(map[string]float64, len(NutrientFields))
	for _, f := range NutrientFields {
		m[f] = p.Value(f)
	}
	return m
}
