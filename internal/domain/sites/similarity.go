package sites

import (
	"math"
	"sort"
	"strings"
)

const (
	// earthRadiusMeters is the mean Earth radius used for haversine.
	earthRadiusMeters = 6371000.0

	// DuplicateDistanceMeters is the hard geospatial gate: record pairs
	// farther apart than this are never considered duplicates, however
	// similar their names.
	DuplicateDistanceMeters = 100.0

	// minTokenLength filters short connective tokens ("the", "de", "of")
	// out of the shared-token name comparison.
	minTokenLength = 3
)

// HaversineMeters returns the great-circle distance in meters between two
// WGS84 coordinate pairs.
func HaversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	const degToRad = math.Pi / 180

	dLat := (lat2 - lat1) * degToRad
	dLon := (lon2 - lon1) * degToRad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*degToRad)*math.Cos(lat2*degToRad)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMeters * c
}

// Similar applies the two-gate duplicate test.
//
// Gate one is geospatial: pairs beyond DuplicateDistanceMeters are never
// similar. Gate two is textual and only runs when gate one passes: case-fold
// equal names match, substring containment in either direction matches, and
// otherwise the names must share at least one whitespace token longer than
// three characters. Two distinct monuments inside the same small site pass
// gate one but fail gate two.
func Similar(a, b Record) bool {
	if HaversineMeters(a.Latitude, a.Longitude, b.Latitude, b.Longitude) > DuplicateDistanceMeters {
		return false
	}
	return namesMatch(a.Name, b.Name)
}

func namesMatch(a, b string) bool {
	na := strings.ToLower(strings.TrimSpace(a))
	nb := strings.ToLower(strings.TrimSpace(b))
	if na == "" || nb == "" {
		return false
	}
	if na == nb {
		return true
	}
	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		return true
	}

	tokens := make(map[string]struct{})
	for _, tok := range strings.Fields(na) {
		if len(tok) > minTokenLength {
			tokens[tok] = struct{}{}
		}
	}
	for _, tok := range strings.Fields(nb) {
		if len(tok) <= minTokenLength {
			continue
		}
		if _, ok := tokens[tok]; ok {
			return true
		}
	}
	return false
}

// ClusterOptions controls the clustering pass.
type ClusterOptions struct {
	// TransitiveClosure switches from greedy anchor comparison to
	// union-find over the full pairwise-similar graph. The greedy default
	// only tests candidates against each cluster's anchor, so a chain
	// A~B, B~C can pull C into A's cluster even when A and C would not
	// match directly.
	TransitiveClosure bool
}

// ClusterRecords partitions records into duplicate clusters. Every input
// record lands in exactly one cluster; singleton clusters mean no duplicate
// was found.
//
// Records are first stable-sorted by quality so each cluster's anchor is the
// best record available: knowledge-graph sources ahead of geospatial ones,
// then stronger verification first. Ties keep input (I/O arrival) order,
// which makes the partition deterministic for a fixed input slice.
//
// The pairwise scan is O(n²); fine for the hundreds-to-low-thousands of
// candidates a run produces. A grid-bucket prefilter in front of the scan is
// the natural next step if source volumes grow an order of magnitude.
func ClusterRecords(records []Record, opts ClusterOptions) []Cluster {
	sorted := make([]Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sourceRank(sorted[i]) != sourceRank(sorted[j]) {
			return sourceRank(sorted[i]) > sourceRank(sorted[j])
		}
		return verificationRank(sorted[i].Verification) > verificationRank(sorted[j].Verification)
	})

	if opts.TransitiveClosure {
		return clusterTransitive(sorted)
	}
	return clusterGreedy(sorted)
}

func clusterGreedy(sorted []Record) []Cluster {
	clusters := make([]Cluster, 0, len(sorted))
	assigned := make([]bool, len(sorted))

	for i := range sorted {
		if assigned[i] {
			continue
		}
		assigned[i] = true
		cluster := Cluster{Anchor: sorted[i]}

		for j := i + 1; j < len(sorted); j++ {
			if assigned[j] {
				continue
			}
			if Similar(sorted[i], sorted[j]) {
				cluster.Members = append(cluster.Members, sorted[j])
				assigned[j] = true
			}
		}
		clusters = append(clusters, cluster)
	}
	return clusters
}

// clusterTransitive builds connected components of the pairwise-similar
// graph with union-find, then emits each component in quality order so the
// best record is still the anchor.
func clusterTransitive(sorted []Record) []Cluster {
	parent := make([]int, len(sorted))
	for i := range parent {
		parent[i] = i
	}

	var find func(int) int
	find = func(x int) int {
		if parent[x] != x {
			parent[x] = find(parent[x])
		}
		return parent[x]
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra != rb {
			// Attach the later root under the earlier one so the
			// component root stays the highest-quality record.
			if ra > rb {
				ra, rb = rb, ra
			}
			parent[rb] = ra
		}
	}

	for i := range sorted {
		for j := i + 1; j < len(sorted); j++ {
			if Similar(sorted[i], sorted[j]) {
				union(i, j)
			}
		}
	}

	byRoot := make(map[int][]int)
	roots := make([]int, 0, len(sorted))
	for i := range sorted {
		root := find(i)
		if _, seen := byRoot[root]; !seen {
			roots = append(roots, root)
		}
		byRoot[root] = append(byRoot[root], i)
	}

	clusters := make([]Cluster, 0, len(roots))
	for _, root := range roots {
		indexes := byRoot[root]
		cluster := Cluster{Anchor: sorted[indexes[0]]}
		for _, idx := range indexes[1:] {
			cluster.Members = append(cluster.Members, sorted[idx])
		}
		clusters = append(clusters, cluster)
	}
	return clusters
}
