package overpass

import (
	"fmt"
	"strconv"
	"strings"
)

// tagFilters are the OR'd historic/megalithic selectors applied to nodes,
// ways, and relations.
var tagFilters = []string{
	`["historic"="archaeological_site"]`,
	`["historic"="megalith"]`,
	`["historic"="standing_stone"]`,
	`["historic"="stone_circle"]`,
	`["historic"="tumulus"]`,
	`["megalith_type"]`,
	`["site_type"="megalith"]`,
}

// buildQuery assembles an Overpass QL query over nodes, ways, and relations
// for every tag filter. scope is an optional spatial suffix such as
// "(around:500,51.1,-1.8)" or a bbox; empty means a global query.
func buildQuery(scope string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[out:json][timeout:%d];\n(\n", queryTimeoutSeconds)
	for _, filter := range tagFilters {
		for _, kind := range []string{"node", "way", "relation"} {
			fmt.Fprintf(&b, "  %s%s%s;\n", kind, filter, scope)
		}
	}
	b.WriteString(");\nout center tags;")
	return b.String()
}

// buildCountryQuery scopes the tag filters to an ISO 3166-1 country area.
func buildCountryQuery(isoCode string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[out:json][timeout:%d];\n", queryTimeoutSeconds)
	fmt.Fprintf(&b, "area[\"ISO3166-1\"=%q][admin_level=2]->.country;\n(\n", isoCode)
	for _, filter := range tagFilters {
		for _, kind := range []string{"node", "way", "relation"} {
			fmt.Fprintf(&b, "  %s%s(area.country);\n", kind, filter)
		}
	}
	b.WriteString(");\nout center tags;")
	return b.String()
}

// overpassResponse is the Overpass JSON envelope.
type overpassResponse struct {
	Elements []element `json:"elements"`
}

// element is one node, way, or relation. Ways and relations carry their
// centroid in the center sub-object instead of direct lat/lon.
type element struct {
	Type   string            `json:"type"`
	ID     int64             `json:"id"`
	Lat    float64           `json:"lat"`
	Lon    float64           `json:"lon"`
	Center *center           `json:"center,omitempty"`
	Tags   map[string]string `json:"tags,omitempty"`
}

type center struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// coordinates resolves an element's position, preferring direct lat/lon and
// falling back to the way/relation center.
func (e element) coordinates() (lat, lon float64, ok bool) {
	if e.Lat != 0 || e.Lon != 0 {
		return e.Lat, e.Lon, true
	}
	if e.Center != nil && (e.Center.Lat != 0 || e.Center.Lon != 0) {
		return e.Center.Lat, e.Center.Lon, true
	}
	return 0, 0, false
}

// parseElements converts Overpass elements into Site records. Elements
// without usable coordinates, or with neither a name nor a type tag, are
// dropped here at the source boundary.
func parseElements(elements []element) []Site {
	siteList := make([]Site, 0, len(elements))
	for _, el := range elements {
		lat, lon, ok := el.coordinates()
		if !ok {
			continue
		}

		tags := el.Tags
		name := strings.TrimSpace(tags["name"])
		rawType := rawTypeFromTags(tags)
		if name == "" && rawType == "" {
			continue
		}

		siteList = append(siteList, Site{
			OSMID:          fmt.Sprintf("%s/%s", el.Type, strconv.FormatInt(el.ID, 10)),
			Name:           name,
			Description:    strings.TrimSpace(tags["description"]),
			Latitude:       lat,
			Longitude:      lon,
			RawType:        rawType,
			CountryCode:    strings.ToUpper(strings.TrimSpace(tags["ISO3166-1"])),
			Inception:      strings.TrimSpace(tags["start_date"]),
			WikidataID:     strings.TrimSpace(tags["wikidata"]),
			WikipediaURL:   wikipediaURLFromTag(tags["wikipedia"]),
			ImageURL:       strings.TrimSpace(tags["image"]),
			HeritageStatus: heritageFromTags(tags),
		})
	}
	return siteList
}

// rawTypeFromTags picks the most specific type tag available.
func rawTypeFromTags(tags map[string]string) string {
	if v := strings.TrimSpace(tags["megalith_type"]); v != "" {
		return v
	}
	if v := strings.TrimSpace(tags["site_type"]); v != "" {
		return v
	}
	if v := strings.TrimSpace(tags["historic"]); v != "" {
		return v
	}
	return ""
}

// heritageFromTags resolves the protection designation. The numeric
// heritage=* admin level alone is meaningless to readers, so the operator
// tag or designation is preferred when present.
func heritageFromTags(tags map[string]string) string {
	designation := strings.TrimSpace(tags["heritage:operator"])
	if designation == "" {
		designation = strings.TrimSpace(tags["designation"])
	}
	if designation != "" {
		return designation
	}
	if v := strings.TrimSpace(tags["heritage"]); v != "" {
		return "heritage " + v
	}
	return ""
}

// wikipediaURLFromTag expands the OSM "lang:Title" wikipedia tag convention
// into a full article URL. Full URLs are passed through.
func wikipediaURLFromTag(value string) string {
	v := strings.TrimSpace(value)
	if v == "" {
		return ""
	}
	if strings.HasPrefix(v, "http://") || strings.HasPrefix(v, "https://") {
		return v
	}
	lang, title, found := strings.Cut(v, ":")
	if !found || lang == "" || title == "" {
		return ""
	}
	return fmt.Sprintf("https://%s.wikipedia.org/wiki/%s", lang, strings.ReplaceAll(title, " ", "_"))
}
