package sites

// Merge collapses a duplicate cluster into a single record. The anchor wins
// outright for identity and quality fields (ID, coordinates, site type,
// layer, trust tier, import timestamp); members are folded in cluster order
// for everything else:
//
//   - Summary: the longer of the two survives.
//   - Reference fields (Wikipedia/image URLs, external IDs, country,
//     heritage status): first non-empty wins, so a value is never
//     overwritten once set.
//   - Sources: set union, preserving first-seen order.
//   - Verification: strongest across all members; a verified corroborating
//     source upgrades the merged record even when the anchor was weaker.
//
// The inputs are never mutated; Merge returns a fresh record.
func Merge(cluster Cluster) Record {
	merged := cluster.Anchor
	merged.Sources = cloneSources(cluster.Anchor.Sources)

	for _, member := range cluster.Members {
		if len(member.Summary) > len(merged.Summary) {
			merged.Summary = member.Summary
		}

		merged.WikipediaURL = firstNonEmpty(merged.WikipediaURL, member.WikipediaURL)
		merged.ImageURL = firstNonEmpty(merged.ImageURL, member.ImageURL)
		merged.WikidataID = firstNonEmpty(merged.WikidataID, member.WikidataID)
		merged.OSMID = firstNonEmpty(merged.OSMID, member.OSMID)
		merged.Country = firstNonEmpty(merged.Country, member.Country)
		merged.CountryCode = firstNonEmpty(merged.CountryCode, member.CountryCode)
		merged.Inception = firstNonEmpty(merged.Inception, member.Inception)
		merged.HeritageStatus = firstNonEmpty(merged.HeritageStatus, member.HeritageStatus)

		for _, tag := range member.Sources {
			if !merged.HasSource(tag) {
				merged.Sources = append(merged.Sources, tag)
			}
		}

		merged.Verification = StrongerVerification(merged.Verification, member.Verification)
	}

	return merged
}

// MergeClusters merges every cluster and returns the deduplicated record
// set in cluster order.
func MergeClusters(clusters []Cluster) []Record {
	merged := make([]Record, 0, len(clusters))
	for _, cluster := range clusters {
		merged = append(merged, Merge(cluster))
	}
	return merged
}
