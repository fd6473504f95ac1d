package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve_FirstNonEmptyWins(t *testing.T) {
	lookup := MapLookup(map[string]string{
		"SANITY_DATASET_STAGING": "",
		"SANITY_DATASET":         "staging-ds",
		"PUBLIC_SANITY_DATASET":  "public-ds",
	})

	got := Resolve(lookup, Chain("SANITY_DATASET", TierStaging), "production")
	assert.Equal(t, "staging-ds", got)
}

func TestResolve_TierSpecificTakesPriority(t *testing.T) {
	lookup := MapLookup(map[string]string{
		"SANITY_DATASET_PREVIEW": "preview-ds",
		"SANITY_DATASET":         "base-ds",
	})

	assert.Equal(t, "preview-ds", Resolve(lookup, Chain("SANITY_DATASET", TierPreview), "production"))
	assert.Equal(t, "base-ds", Resolve(lookup, Chain("SANITY_DATASET", TierProduction), "production"))
}

func TestResolve_FallbackWhenAllEmpty(t *testing.T) {
	lookup := MapLookup(map[string]string{
		"SANITY_DATASET_STAGING": "   ",
		"SANITY_DATASET":         "",
	})

	assert.Equal(t, "production", Resolve(lookup, Chain("SANITY_DATASET", TierStaging), "production"))
	assert.Equal(t, "fallback", Resolve(nil, []string{"A"}, "fallback"))
	assert.Equal(t, "fallback", Resolve(lookup, nil, "fallback"))
}

func TestChain_Order(t *testing.T) {
	assert.Equal(t,
		[]string{"SANITY_PROJECT_ID_STAGING", "SANITY_PROJECT_ID", "PUBLIC_SANITY_PROJECT_ID"},
		Chain("SANITY_PROJECT_ID", TierStaging))
}

func TestParseTier(t *testing.T) {
	cases := map[string]Tier{
		"":           TierDevelopment,
		"dev":        TierDevelopment,
		"Staging":    TierStaging,
		"stage":      TierStaging,
		"preview":    TierPreview,
		" prod ":     TierProduction,
		"production": TierProduction,
		"qa":         TierDevelopment,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseTier(in), "input %q", in)
	}
}
