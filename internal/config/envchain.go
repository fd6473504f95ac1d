// internal/config/envchain.go
//
// Per-tier environment fallback chains.
//
// Context
// -------
// The hosting platform will not bind one variable name to different values
// per deployment tier, so the staging dataset lives in
// `SANITY_DATASET_STAGING` while production reads `SANITY_DATASET`.  Callers
// build an ordered candidate list with `Chain` and hand it to `Resolve`,
// which returns the first defined, non-empty value or the fallback.
//
// Notes
// -----
//   - Resolve is pure.  The lookup function is injected so tests never touch
//     the process environment.
//   - Oxford commas, two spaces after periods.
package config

import "strings"

// Tier names one deployment tier on the hosting platform.
type Tier string

const (
	TierDevelopment Tier = "development"
	TierStaging     Tier = "staging"
	TierPreview     Tier = "preview"
	TierProduction  Tier = "production"
)

// ParseTier maps common spellings onto a Tier.  Unknown or empty input is
// treated as development.
func ParseTier(s string) Tier {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "prod", "production":
		return TierProduction
	case "stage", "staging":
		return TierStaging
	case "preview":
		return TierPreview
	default:
		return TierDevelopment
	}
}

// LookupFunc has the shape of os.LookupEnv.
type LookupFunc func(string) (string, bool)

// Resolve returns the first candidate whose value is defined and non-empty,
// otherwise fallback.
func Resolve(lookup LookupFunc, candidates []string, fallback string) string {
	if lookup == nil {
		return fallback
	}
	for _, name := range candidates {
		if v, ok := lookup(name); ok {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return fallback
}

// Chain lists the candidate names for base, most specific first:
//
//	<BASE>_<TIER>, <BASE>, PUBLIC_<BASE>
func Chain(base string, tier Tier) []string {
	return []string{
		base + "_" + strings.ToUpper(string(tier)),
		base,
		"PUBLIC_" + base,
	}
}

// MapLookup adapts a plain map to LookupFunc.
func MapLookup(m map[string]string) LookupFunc {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}
