package importer

import (
	"fmt"
	"strings"
	"time"

	"github.com/megalith-foundation/server/internal/domain/sites"
	"github.com/megalith-foundation/server/internal/sources/overpass"
	"github.com/megalith-foundation/server/internal/sources/wikidata"
)

// normalizeWikidata maps one SPARQL intermediate record into the unified
// schema. Returns false when the record fails coordinate bounds and must be
// dropped (silently, per the invalid-record policy).
func normalizeWikidata(site wikidata.Site, importedAt time.Time) (sites.Record, bool) {
	if !sites.ValidCoordinates(site.Latitude, site.Longitude) {
		return sites.Record{}, false
	}

	siteType := sites.ClassifySiteType(site.RawType)
	return sites.Record{
		ID:             fmt.Sprintf("%s-%s", sites.SourceWikidata, site.QID),
		Name:           site.Name,
		Summary:        summaryFor(site.Description, siteType, site.Country),
		SiteType:       siteType,
		Latitude:       site.Latitude,
		Longitude:      site.Longitude,
		Layer:          sites.LayerFor(site.HeritageStatus),
		Verification:   sites.VerificationFor(site.HeritageStatus, site.WikipediaURL),
		TrustTier:      sites.TrustTierFor(sites.SourceWikidata, site.HeritageStatus),
		Sources:        []string{sites.SourceWikidata},
		WikidataID:     site.QID,
		WikipediaURL:   site.WikipediaURL,
		ImageURL:       site.ImageURL,
		Country:        site.Country,
		CountryCode:    site.CountryCode,
		Inception:      site.Inception,
		HeritageStatus: site.HeritageStatus,
		ImportedAt:     importedAt,
	}, true
}

// normalizeOverpass maps one Overpass intermediate record into the unified
// schema.
func normalizeOverpass(site overpass.Site, importedAt time.Time) (sites.Record, bool) {
	if !sites.ValidCoordinates(site.Latitude, site.Longitude) {
		return sites.Record{}, false
	}

	siteType := sites.ClassifySiteType(site.RawType)
	return sites.Record{
		ID:             fmt.Sprintf("%s-%s", sites.SourceOSM, strings.ReplaceAll(site.OSMID, "/", "-")),
		Name:           site.Name,
		Summary:        summaryFor(site.Description, siteType, ""),
		SiteType:       siteType,
		Latitude:       site.Latitude,
		Longitude:      site.Longitude,
		Layer:          sites.LayerFor(site.HeritageStatus),
		Verification:   sites.VerificationFor(site.HeritageStatus, site.WikipediaURL),
		TrustTier:      sites.TrustTierFor(sites.SourceOSM, site.HeritageStatus),
		Sources:        []string{sites.SourceOSM},
		OSMID:          site.OSMID,
		WikidataID:     site.WikidataID,
		WikipediaURL:   site.WikipediaURL,
		ImageURL:       site.ImageURL,
		CountryCode:    site.CountryCode,
		Inception:      site.Inception,
		HeritageStatus: site.HeritageStatus,
		ImportedAt:     importedAt,
	}, true
}

// summaryFor passes a source description through, or synthesizes one from
// the site type and country so every unified record carries a non-empty
// summary.
func summaryFor(description, siteType, country string) string {
	if desc := strings.TrimSpace(description); desc != "" {
		return desc
	}
	location := strings.TrimSpace(country)
	if location == "" {
		location = "unknown location"
	}
	return fmt.Sprintf("%s in %s.", capitalize(siteType), location)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
