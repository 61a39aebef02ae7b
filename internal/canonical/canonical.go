// Package canonical normalizes raw ingredient text into a searchable base
// plus an ordered list of qualifiers.
package canonical

import "strings"

// Form is the normalized decomposition of one ingredient line. Base is the
// searchable identity; Qualifiers are descriptors (preparation methods,
// named varieties) kept in input order. Qualifiers are preserved rather
// than stripped because they are what separates a specialty ingredient
// from the generic one during candidate selection.
type Form struct {
	Base       string   `json:"base"`
	Qualifiers []string `json:"qualifiers"`
}

// prepMethods are preparation-method tokens that get lifted out of the base
// into qualifiers when they appear there.
var prepMethods = map[string]bool{
	"sifted":   true,
	"chopped":  true,
	"diced":    true,
	"minced":   true,
	"sliced":   true,
	"shredded": true,
	"grated":   true,
	"finely":   true,
	"coarse":   true,
	"crushed":  true,
	"ground":   true,
	"melted":   true,
	"softened": true,
	"packed":   true,
}

// Canonicalize decomposes raw ingredient text into a Form. It always
// returns a value; when splitting yields nothing the trimmed input becomes
// the base and the qualifier list is empty.
func Canonicalize(raw string) Form {
	text := strings.ToLower(strings.Join(strings.Fields(raw), " "))

	parts := splitParts(text)
	if len(parts) == 0 {
		return Form{Base: strings.TrimSpace(strings.ToLower(raw)), Qualifiers: []string{}}
	}

	base, lifted := extractPrepMethods(parts[0])
	if base == "" {
		// The first part was nothing but prep tokens; keep it whole as the
		// base rather than emitting an empty identity.
		base = parts[0]
		lifted = nil
	}

	qualifiers := append([]string{}, lifted...)
	qualifiers = append(qualifiers, parts[1:]...)

	return Form{Base: base, Qualifiers: qualifiers}
}

// splitParts splits on parentheses and commas, dropping empty pieces.
func splitParts(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == '(' || r == ')' || r == ','
	})
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		if trimmed := strings.TrimSpace(f); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}

// extractPrepMethods pulls preparation-method tokens out of the provisional
// base, returning the remaining base text and the lifted tokens in order.
func extractPrepMethods(base string) (string, []string) {
	var kept, lifted []string
	for _, tok := range strings.Fields(base) {
		if prepMethods[tok] {
			lifted = append(lifted, tok)
		} else {
			kept = append(kept, tok)
		}
	}
	return strings.Join(kept, " "), lifted
}
