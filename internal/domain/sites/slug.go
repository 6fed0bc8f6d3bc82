package sites

import (
	"fmt"
	"regexp"
	"strings"
)

// maxSlugLength caps generated slugs; long names are truncated before
// collision suffixes are applied.
const maxSlugLength = 80

var nonSlugRunes = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a URL-safe slug from a site name: lowercase, runs of
// non-alphanumeric characters collapsed to single hyphens, trimmed, and
// length-capped. An empty or fully non-alphanumeric name yields "site".
func Slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = nonSlugRunes.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > maxSlugLength {
		slug = strings.Trim(slug[:maxSlugLength], "-")
	}
	if slug == "" {
		return "site"
	}
	return slug
}

// AssignSlugs gives every record a slug unique within the output set.
// Collisions are resolved deterministically by appending -2, -3, … to the
// candidate slug. The input slice is not mutated.
func AssignSlugs(records []Record) []Record {
	out := make([]Record, len(records))
	taken := make(map[string]struct{}, len(records))

	for i, record := range records {
		candidate := Slugify(record.Name)
		slug := candidate
		for suffix := 2; ; suffix++ {
			if _, exists := taken[slug]; !exists {
				break
			}
			slug = fmt.Sprintf("%s-%d", candidate, suffix)
		}
		taken[slug] = struct{}{}

		record.Slug = slug
		out[i] = record
	}
	return out
}
