package sites

import (
	"strings"
	"time"
)

// Layer classifies how a site entered the atlas.
type Layer string

const (
	LayerOfficial  Layer = "official"
	LayerCommunity Layer = "community"
)

// Verification is the review state of a record.
type Verification string

const (
	VerificationVerified    Verification = "verified"
	VerificationUnderReview Verification = "under_review"
	VerificationUnverified  Verification = "unverified"
)

// TrustTier is the coarse community-trust ranking assigned at import time.
// The empty string means no tier was assigned.
type TrustTier string

const (
	TierPromoted TrustTier = "promoted"
	TierGold     TrustTier = "gold"
	TierSilver   TrustTier = "silver"
	TierBronze   TrustTier = "bronze"
)

// Source tags for imported records.
const (
	SourceWikidata = "wikidata"
	SourceOSM      = "osm"
)

// Record is the unified site schema every source normalizes into.
//
// ID is source-qualified ("wikidata-Q123", "osm-987") and unique within a
// single import run only; the same real-world site carries different IDs per
// source until deduplication collapses them. Slug is assigned at the output
// stage and is unique across the whole output set.
type Record struct {
	ID           string
	Slug         string
	Name         string
	Summary      string
	SiteType     string
	Latitude     float64
	Longitude    float64
	Layer        Layer
	Verification Verification
	TrustTier    TrustTier

	// Sources holds origin tags in first-seen order and grows on merge.
	Sources []string

	WikidataID     string
	OSMID          string
	WikipediaURL   string
	ImageURL       string
	Country        string
	CountryCode    string
	Inception      string
	HeritageStatus string

	ImportedAt time.Time
}

// ValidCoordinates reports whether lat/lon are inside WGS84 bounds.
func ValidCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// HasSource reports whether tag is already present in the record's sources.
func (r Record) HasSource(tag string) bool {
	for _, s := range r.Sources {
		if s == tag {
			return true
		}
	}
	return false
}

// cloneSources copies the source list so merged records never share slices
// with their inputs.
func cloneSources(src []string) []string {
	out := make([]string, len(src))
	copy(out, src)
	return out
}

// Cluster groups records judged to describe the same real-world site. The
// anchor is the highest-quality record; Members holds every other record in
// attachment order. Clusters exist only between the similarity pass and the
// merge pass.
type Cluster struct {
	Anchor  Record
	Members []Record
}

// Size returns the total number of records in the cluster.
func (c Cluster) Size() int {
	return 1 + len(c.Members)
}

// verificationRank orders verification states from weakest to strongest.
func verificationRank(v Verification) int {
	switch v {
	case VerificationVerified:
		return 2
	case VerificationUnderReview:
		return 1
	default:
		return 0
	}
}

// sourceRank orders origin sources by trustworthiness. Knowledge-graph
// records carry curated identity and sourcing, so they sort ahead of
// geospatial extracts and become cluster anchors.
func sourceRank(r Record) int {
	if r.HasSource(SourceWikidata) {
		return 1
	}
	return 0
}

// StrongerVerification returns the stronger of two verification states.
func StrongerVerification(a, b Verification) Verification {
	if verificationRank(b) > verificationRank(a) {
		return b
	}
	return a
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return a
	}
	return b
}
