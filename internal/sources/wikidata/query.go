package wikidata

import (
	"fmt"
	"strconv"
	"strings"
)

// sparqlResponse is the standard SPARQL 1.1 JSON results envelope.
type sparqlResponse struct {
	Results struct {
		Bindings []binding `json:"bindings"`
	} `json:"results"`
}

// binding is one variable-bound result row.
type binding map[string]sparqlValue

type sparqlValue struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

func (b binding) str(name string) string {
	if v, ok := b[name]; ok {
		return strings.TrimSpace(v.Value)
	}
	return ""
}

// buildCategoryQuery selects transitive instances of the given class that
// carry coordinates. Entities with an inception on or after the modern
// cutoff are filtered out server-side so unrelated modern structures
// sharing a class (churches, follies, reconstructions) never arrive.
func buildCategoryQuery(qid string) string {
	return fmt.Sprintf(`SELECT ?item ?itemLabel ?itemDescription ?coord ?typeLabel ?countryLabel ?countryCode ?inception ?article ?image ?heritageLabel WHERE {
  ?item wdt:P31/wdt:P279* wd:%s .
  ?item wdt:P625 ?coord .
  OPTIONAL { ?item wdt:P31 ?type . }
  OPTIONAL {
    ?item wdt:P17 ?country .
    OPTIONAL { ?country wdt:P297 ?countryCode . }
  }
  OPTIONAL { ?item wdt:P571 ?inception . }
  OPTIONAL { ?item wdt:P18 ?image . }
  OPTIONAL { ?item wdt:P1435 ?heritage . }
  OPTIONAL {
    ?article schema:about ?item ;
             schema:isPartOf <https://en.wikipedia.org/> .
  }
  FILTER(!BOUND(?inception) || YEAR(?inception) < %d)
  SERVICE wikibase:label { bd:serviceParam wikibase:language "en". }
}`, qid, ModernCutoffYear)
}

// parseBindings converts result rows into Site records, dropping rows
// without a usable coordinate or without both a name and a type. Noise is
// excluded here, at the source boundary, before normalization.
func parseBindings(rows []binding, categoryLabel string) []Site {
	siteList := make([]Site, 0, len(rows))
	for _, row := range rows {
		qid := qidFromURI(row.str("item"))
		if qid == "" {
			continue
		}

		lat, lon, ok := parsePointWKT(row.str("coord"))
		if !ok {
			continue
		}

		name := row.str("itemLabel")
		// A bare QID label means the entity has no English label.
		if name == qid {
			name = ""
		}
		// Rows with neither a usable name nor a type statement of their
		// own are pure noise.
		rawType := row.str("typeLabel")
		if name == "" && rawType == "" {
			continue
		}
		if rawType == "" {
			rawType = categoryLabel
		}

		siteList = append(siteList, Site{
			QID:            qid,
			Name:           name,
			Description:    row.str("itemDescription"),
			Latitude:       lat,
			Longitude:      lon,
			RawType:        rawType,
			Country:        row.str("countryLabel"),
			CountryCode:    strings.ToUpper(row.str("countryCode")),
			Inception:      row.str("inception"),
			WikipediaURL:   row.str("article"),
			ImageURL:       row.str("image"),
			HeritageStatus: row.str("heritageLabel"),
		})
	}
	return siteList
}

// qidFromURI extracts "Q123" from "http://www.wikidata.org/entity/Q123".
func qidFromURI(uri string) string {
	idx := strings.LastIndex(uri, "/")
	if idx < 0 {
		return strings.TrimSpace(uri)
	}
	return uri[idx+1:]
}

// parsePointWKT parses the wktLiteral coordinate form "Point(lon lat)".
func parsePointWKT(value string) (lat, lon float64, ok bool) {
	trimmed := strings.TrimSpace(value)
	if !strings.HasPrefix(trimmed, "Point(") || !strings.HasSuffix(trimmed, ")") {
		return 0, 0, false
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(trimmed, "Point("), ")")
	parts := strings.Fields(inner)
	if len(parts) != 2 {
		return 0, 0, false
	}

	lon, lonErr := strconv.ParseFloat(parts[0], 64)
	lat, latErr := strconv.ParseFloat(parts[1], 64)
	if lonErr != nil || latErr != nil {
		return 0, 0, false
	}
	return lat, lon, true
}
