package sites

import "strings"

// DefaultSiteType is the fallback category for raw type strings no keyword
// matches.
const DefaultSiteType = "archaeological site"

// typeKeyword maps a lowercase keyword to a normalized site type. The table
// is ordered and the first match wins: "megalithic standing stone" must
// classify as "standing stone", not the generic "megalith", so the more
// specific keywords sit above the catch-alls they overlap with.
type typeKeyword struct {
	keyword  string
	siteType string
}

var typeKeywords = []typeKeyword{
	{"stone circle", "stone circle"},
	{"standing stone", "standing stone"},
	{"stone row", "stone row"},
	{"passage grave", "passage grave"},
	{"passage tomb", "passage grave"},
	{"chambered tomb", "passage grave"},
	{"chambered cairn", "passage grave"},
	{"dolmen", "dolmen"},
	{"cromlech", "dolmen"},
	{"portal tomb", "dolmen"},
	{"burial mound", "burial mound"},
	{"tumulus", "burial mound"},
	{"barrow", "burial mound"},
	{"kurgan", "burial mound"},
	{"cairn", "cairn"},
	{"menhir", "standing stone"},
	{"obelisk", "standing stone"},
	{"henge", "henge"},
	{"megalith", "megalith"},
	{"pyramid", "pyramid"},
	{"ziggurat", "pyramid"},
	{"temple", "temple"},
	{"sanctuary", "temple"},
	{"hillfort", "hillfort"},
	{"hill fort", "hillfort"},
	{"fortification", "hillfort"},
	{"petroglyph", "rock art"},
	{"rock art", "rock art"},
	{"rock carving", "rock art"},
	{"ruin", "archaeological site"},
	{"archaeological", "archaeological site"},
}

// ClassifySiteType maps a raw source type string into the controlled site
// type vocabulary. Matching is a case-insensitive substring scan over the
// ordered keyword table; unmatched (or empty) input falls back to
// DefaultSiteType. OSM-style underscores and hyphens are treated as spaces
// so "standing_stone" matches "standing stone".
func ClassifySiteType(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	lowered = strings.NewReplacer("_", " ", "-", " ").Replace(lowered)
	if lowered == "" {
		return DefaultSiteType
	}
	for _, entry := range typeKeywords {
		if strings.Contains(lowered, entry.keyword) {
			return entry.siteType
		}
	}
	return DefaultSiteType
}

// topTierDesignations are heritage designations strong enough to mark a
// record verified on import. Matched case-insensitively as substrings of the
// raw heritage status.
var topTierDesignations = []string{
	"world heritage",
	"unesco",
	"scheduled monument",
	"scheduled ancient monument",
	"monument historique",
	"national monument",
	"grade i",
	"kulturdenkmal",
}

// hasTopTierDesignation reports whether the heritage status names a
// recognized top-tier protection designation.
func hasTopTierDesignation(heritageStatus string) bool {
	lowered := strings.ToLower(heritageStatus)
	if strings.TrimSpace(lowered) == "" {
		return false
	}
	for _, d := range topTierDesignations {
		if strings.Contains(lowered, d) {
			return true
		}
	}
	return false
}

// LayerFor returns "official" when the record carries any recognized
// heritage/protection designation, otherwise "community".
func LayerFor(heritageStatus string) Layer {
	if strings.TrimSpace(heritageStatus) != "" {
		return LayerOfficial
	}
	return LayerCommunity
}

// VerificationFor derives the initial review state from source metadata:
// a top-tier heritage designation verifies the record outright, an
// encyclopedia reference puts it under review, anything else starts
// unverified.
func VerificationFor(heritageStatus, wikipediaURL string) Verification {
	if hasTopTierDesignation(heritageStatus) {
		return VerificationVerified
	}
	if strings.TrimSpace(wikipediaURL) != "" {
		return VerificationUnderReview
	}
	return VerificationUnverified
}

// TrustTierFor assigns the import trust tier from the origin source and
// heritage metadata. Knowledge-graph records with heritage designations are
// promoted; plain knowledge-graph records rate silver. Geospatial records
// with a protection tag rate silver, the rest bronze.
func TrustTierFor(sourceTag, heritageStatus string) TrustTier {
	protected := strings.TrimSpace(heritageStatus) != ""
	switch sourceTag {
	case SourceWikidata:
		if protected {
			return TierPromoted
		}
		return TierSilver
	case SourceOSM:
		if protected {
			return TierSilver
		}
		return TierBronze
	default:
		return TierBronze
	}
}
