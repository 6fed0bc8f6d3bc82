package sites

// ImportStats aggregates operator-facing totals for one import run. Nothing
// downstream branches on these numbers; they exist for run reports and logs.
type ImportStats struct {
	Total          int
	BySource       map[string]int
	BySiteType     map[string]int
	ByCountry      map[string]int
	ByVerification map[Verification]int
}

// ComputeStats tallies the final record set. Records carrying several source
// tags count once per tag under BySource, so merged records show up in every
// contributing source's total.
func ComputeStats(records []Record) ImportStats {
	stats := ImportStats{
		Total:          len(records),
		BySource:       make(map[string]int),
		BySiteType:     make(map[string]int),
		ByCountry:      make(map[string]int),
		ByVerification: make(map[Verification]int),
	}

	for _, record := range records {
		for _, tag := range record.Sources {
			stats.BySource[tag]++
		}
		stats.BySiteType[record.SiteType]++
		if record.Country != "" {
			stats.ByCountry[record.Country]++
		}
		stats.ByVerification[record.Verification]++
	}
	return stats
}
