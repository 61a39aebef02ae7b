// Package score ranks ingredient-database candidates against a canonical
// ingredient using an ordered, additive rule sequence. It is deliberately
// not a similarity metric: every rule either fires with a fixed delta or
// stays silent, and the breakdown records each one that fired so a
// selection can be explained after the fact.
package score

import "strings"

// BaseType classifies a candidate as the domain's generic/default identity,
// a specialty/alternative identity, or neither.
type BaseType string

const (
	BaseAllPurpose BaseType = "all_purpose"
	BaseSpecialty  BaseType = "specialty"
	BaseUnknown    BaseType = "unknown"
)

// Candidate is one ingredient-database entry under consideration, as
// returned by the lookup service.
type Candidate struct {
	Description string
	DataType    string
	Category    string
}

// Tier is one scoring rule that fired, with the delta it contributed.
type Tier struct {
	Name  string `json:"name"`
	Delta int    `json:"delta"`
}

// Breakdown is the full scoring audit for one (ingredient, candidate)
// pair. FinalScore is the sum of every tier delta.
type Breakdown struct {
	BaseType   BaseType `json:"baseType"`
	Positives  []string `json:"positives"`
	Negatives  []string `json:"negatives"`
	Tiers      []Tier   `json:"tiers"`
	FinalScore int      `json:"finalScore"`
}

// Rule deltas. The base-type delta must stay strictly larger than the sum
// of every other possible bonus (currently 50+100+100=250) so that generic
// vs specialty identity dominates all tie-breaks.
const (
	deltaGenericBase   = 500
	deltaSpecialtyBase = -500
	deltaCategoryMatch = 50
	deltaLexicalBonus  = 25
)

// Source-reliability deltas keyed by normalized FDC data type.
var dataTypeDeltas = map[string]int{
	"foundation":   100,
	"sr legacy":    80,
	"survey fndds": 40,
	"branded":      -50,
}

// Domain carries the token sets that define generic vs specialty identity
// for one ingredient family. New families register via Register without
// touching the scoring sequence.
type Domain struct {
	Name            string
	Category        string
	GenericTokens   []string
	SpecialtyTokens []string
	// BonusTokens are high-confidence lexical markers scored individually.
	// Order matters: an earlier token shadows any later token it contains,
	// so "unbleached" must precede "bleached".
	BonusTokens []string
}

var registry = []Domain{
	{
		Name:     "flour",
		Category: "cereal grains and pasta",
		GenericTokens: []string{
			"all-purpose", "all purpose", "wheat flour, white", "flour, wheat",
		},
		SpecialtyTokens: []string{
			"almond", "coconut", "rice flour", "oat flour", "gluten-free",
			"gluten free", "spelt", "rye", "buckwheat", "cassava", "chickpea",
			"hazelnut", "tapioca",
		},
		BonusTokens: []string{"all-purpose", "enriched", "unbleached", "bleached", "white"},
	},
	{
		Name:     "sugar",
		Category: "sweets",
		GenericTokens: []string{
			"sugars, granulated", "granulated", "white sugar",
		},
		SpecialtyTokens: []string{
			"coconut sugar", "date sugar", "turbinado", "demerara", "muscovado",
			"monk fruit", "stevia",
		},
		BonusTokens: []string{"granulated", "white"},
	},
}

// Register adds a domain to the registry. Later registrations win when two
// domains would match the same base string.
func Register(d Domain) {
	registry = append([]Domain{d}, registry...)
}

// DomainFor finds the domain whose name appears in the canonical base
// string. The zero Domain (no token sets) is returned for ingredients
// outside every registered family; scoring still runs, it just cannot
// classify a base type.
func DomainFor(base string) Domain {
	lower := strings.ToLower(base)
	for _, d := range registry {
		if strings.Contains(lower, d.Name) {
			return d
		}
	}
	return Domain{}
}

// Score evaluates the rule sequence for one candidate. It never fails: an
// empty or unrecognizable description yields BaseUnknown and a score built
// from whatever rules could still fire.
func (d Domain) Score(c Candidate) Breakdown {
	b := Breakdown{
		BaseType:  BaseUnknown,
		Positives: []string{},
		Negatives: []string{},
		Tiers:     []Tier{},
	}
	desc := strings.ToLower(c.Description)

	// Base type first so its delta dominates everything that follows.
	// Specialty tokens are checked before generic ones: an "almond flour,
	// all purpose" style description is still a specialty ingredient.
	switch {
	case matchAny(desc, d.SpecialtyTokens):
		b.BaseType = BaseSpecialty
		b.apply("base_type_specialty", deltaSpecialtyBase, "specialty/alternative "+d.Name)
	case matchAny(desc, d.GenericTokens):
		b.BaseType = BaseAllPurpose
		b.apply("base_type_generic", deltaGenericBase, "generic "+d.Name)
	}

	if d.Category != "" && strings.Contains(strings.ToLower(c.Category), d.Category) {
		b.apply("category_match", deltaCategoryMatch, "expected category")
	}

	if delta, ok := dataTypeDeltas[normalizeDataType(c.DataType)]; ok && delta != 0 {
		b.apply("data_type_"+normalizeDataType(c.DataType), delta, c.DataType+" source")
	}

	matched := ""
	for _, tok := range d.BonusTokens {
		if strings.Contains(matched, tok) {
			continue // shadowed by an earlier, longer match
		}
		if strings.Contains(desc, tok) {
			b.apply("lexical_"+tok, deltaLexicalBonus, "mentions "+tok)
			matched += tok + " "
		}
	}

	return b
}

// apply records one fired rule in the audit trail and the running score.
func (b *Breakdown) apply(rule string, delta int, tag string) {
	b.Tiers = append(b.Tiers, Tier{Name: rule, Delta: delta})
	b.FinalScore += delta
	if delta >= 0 {
		b.Positives = append(b.Positives, tag)
	} else {
		b.Negatives = append(b.Negatives, tag)
	}
}

func matchAny(desc string, tokens []string) bool {
	for _, tok := range tokens {
		if strings.Contains(desc, tok) {
			return true
		}
	}
	return false
}

func normalizeDataType(dt string) string {
	s := strings.ToLower(strings.TrimSpace(dt))
	s = strings.ReplaceAll(s, "_", " ")
	s = strings.ReplaceAll(s, "(", "")
	s = strings.ReplaceAll(s, ")", "")
	return strings.Join(strings.Fields(s), " ")
}
