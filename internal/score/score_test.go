package score

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScore_GenericBeatsSpecialty(t *testing.T) {
	domain := DomainFor("flour")
	require.Equal(t, "flour", domain.Name)

	// Stack every possible bonus on the specialty candidate; the generic
	// one must still win.
	generic := domain.Score(Candidate{
		Description: "Wheat flour, white, all-purpose",
		DataType:    "Branded",
	})
	specialty := domain.Score(Candidate{
		Description: "Almond flour, unbleached, white, enriched",
		DataType:    "Foundation",
		Category:    "Cereal Grains and Pasta",
	})

	assert.Equal(t, BaseAllPurpose, generic.BaseType)
	assert.Equal(t, BaseSpecialty, specialty.BaseType)
	assert.Greater(t, generic.FinalScore, specialty.FinalScore)
}

func TestScore_TierAuditTrail(t *testing.T) {
	domain := DomainFor("all-purpose flour")
	b := domain.Score(Candidate{
		Description: "Wheat flour, white, all-purpose, enriched, bleached",
		DataType:    "SR Legacy",
		Category:    "Cereal Grains and Pasta",
	})

	assert.Equal(t, BaseAllPurpose, b.BaseType)

	// Every fired rule is recorded and the final score is their sum.
	sum := 0
	for _, tier := range b.Tiers {
		sum += tier.Delta
	}
	assert.Equal(t, sum, b.FinalScore)

	names := make([]string, 0, len(b.Tiers))
	for _, tier := range b.Tiers {
		names = append(names, tier.Name)
	}
	assert.Equal(t, []string{
		"base_type_generic",
		"category_match",
		"data_type_sr legacy",
		"lexical_all-purpose",
		"lexical_enriched",
		"lexical_bleached",
		"lexical_white",
	}, names)
	assert.NotEmpty(t, b.Positives)
	assert.Empty(t, b.Negatives)
}

func TestScore_UnbleachedShadowsBleached(t *testing.T) {
	domain := DomainFor("flour")
	b := domain.Score(Candidate{
		Description: "Wheat flour, white, all-purpose, unbleached",
		DataType:    "Foundation",
	})

	for _, tier := range b.Tiers {
		assert.NotEqual(t, "lexical_bleached", tier.Name)
	}
}

func TestScore_DataTypeDeltas(t *testing.T) {
	domain := DomainFor("flour")
	tests := []struct {
		dataType string
		delta    int
	}{
		{"Foundation", 100},
		{"SR Legacy", 80},
		{"sr_legacy", 80},
		{"Survey (FNDDS)", 40},
		{"Branded", -50},
		{"Experimental", 0},
	}

	for _, tt := range tests {
		t.Run(tt.dataType, func(t *testing.T) {
			with := domain.Score(Candidate{Description: "spelt flour", DataType: tt.dataType})
			without := domain.Score(Candidate{Description: "spelt flour"})
			assert.Equal(t, tt.delta, with.FinalScore-without.FinalScore)
		})
	}
}

func TestScore_UnknownNeverFails(t *testing.T) {
	domain := DomainFor("dragon fruit")
	assert.Equal(t, "", domain.Name)

	b := domain.Score(Candidate{})
	assert.Equal(t, BaseUnknown, b.BaseType)
	assert.Equal(t, 0, b.FinalScore)
	assert.Empty(t, b.Tiers)
}

func TestScore_BrandedGenericStillBeatsFoundationSpecialty(t *testing.T) {
	// "All-purpose flour, SR Legacy" must beat
	// "Almond flour, Foundation".
	domain := DomainFor("flour")
	srLegacy := domain.Score(Candidate{Description: "Wheat flour, white, all-purpose", DataType: "SR Legacy"})
	foundation := domain.Score(Candidate{Description: "Almond flour", DataType: "Foundation"})
	assert.Greater(t, srLegacy.FinalScore, foundation.FinalScore)
}

func TestRegister_NewDomainWins(t *testing.T) {
	Register(Domain{
		Name:            "milk",
		Category:        "dairy and egg products",
		GenericTokens:   []string{"milk, whole"},
		SpecialtyTokens: []string{"oat milk", "almond milk", "soy"},
	})

	domain := DomainFor("whole milk")
	require.Equal(t, "milk", domain.Name)

	b := domain.Score(Candidate{Description: "Oat milk, unsweetened", DataType: "Branded"})
	assert.Equal(t, BaseSpecialty, b.BaseType)
}
