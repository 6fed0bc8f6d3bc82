// Package importer orchestrates the external site reconciliation pipeline:
// fetch candidates from every enabled source, normalize them into the
// unified schema, cluster duplicates, merge each cluster, and emit a
// slug-keyed deduplicated record set plus import statistics.
package importer

import (
	"context"
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/megalith-foundation/server/internal/domain/sites"
	"github.com/megalith-foundation/server/internal/sources/overpass"
	"github.com/megalith-foundation/server/internal/sources/wikidata"
)

// WikidataSource fetches knowledge-graph candidates.
type WikidataSource interface {
	FetchCandidates(ctx context.Context) ([]wikidata.Site, error)
}

// OverpassSource fetches geospatial candidates.
type OverpassSource interface {
	FetchCandidates(ctx context.Context) ([]overpass.Site, error)
}

// Options selects sources and clustering behaviour for one run.
type Options struct {
	EnableWikidata bool
	EnableOverpass bool

	// OverpassCategories restricts geospatial records to the named
	// normalized site types. Empty means no restriction.
	OverpassCategories []string

	// TransitiveClosure switches clustering to union-find connected
	// components instead of the greedy anchor scan.
	TransitiveClosure bool
}

// Result is the outcome of one pipeline run.
type Result struct {
	RunID   string
	Records []sites.Record
	Stats   sites.ImportStats
}

// Importer wires the source adapters to the domain pipeline.
type Importer struct {
	wikidata WikidataSource
	overpass OverpassSource
	logger   zerolog.Logger
	now      func() time.Time
}

// New constructs an Importer. Either source may be nil when the
// corresponding option is disabled.
func New(wd WikidataSource, op OverpassSource, logger zerolog.Logger) *Importer {
	return &Importer{
		wikidata: wd,
		overpass: op,
		logger:   logger,
		now:      time.Now,
	}
}

// Run executes the full pipeline. Source fetches run concurrently
// (fork-join); a failing source degrades to an empty contribution with a
// warning rather than aborting the run, so a run against zero healthy
// sources still returns a valid empty Result.
func (imp *Importer) Run(ctx context.Context, opts Options) (Result, error) {
	runID := newRunID()
	importedAt := imp.now().UTC()
	logger := imp.logger.With().Str("run_id", runID).Logger()

	var wikidataRecords, overpassRecords []sites.Record

	var g errgroup.Group
	if opts.EnableWikidata && imp.wikidata != nil {
		g.Go(func() error {
			fetched, err := imp.wikidata.FetchCandidates(ctx)
			if err != nil {
				logger.Warn().Err(err).Str("source", sites.SourceWikidata).
					Msg("source fetch failed, continuing without it")
				return nil
			}
			wikidataRecords = normalizeWikidataBatch(fetched, importedAt)
			logger.Info().Str("source", sites.SourceWikidata).
				Int("fetched", len(fetched)).
				Int("normalized", len(wikidataRecords)).
				Msg("source fetch complete")
			return nil
		})
	}
	if opts.EnableOverpass && imp.overpass != nil {
		g.Go(func() error {
			fetched, err := imp.overpass.FetchCandidates(ctx)
			if err != nil {
				logger.Warn().Err(err).Str("source", sites.SourceOSM).
					Msg("source fetch failed, continuing without it")
				return nil
			}
			overpassRecords = filterCategories(normalizeOverpassBatch(fetched, importedAt), opts.OverpassCategories)
			logger.Info().Str("source", sites.SourceOSM).
				Int("fetched", len(fetched)).
				Int("normalized", len(overpassRecords)).
				Msg("source fetch complete")
			return nil
		})
	}
	_ = g.Wait()

	// Single-threaded from here: each fetch goroutine wrote only its own
	// slice, and concatenation happens after the join.
	unified := make([]sites.Record, 0, len(wikidataRecords)+len(overpassRecords))
	unified = append(unified, wikidataRecords...)
	unified = append(unified, overpassRecords...)

	clusters := sites.ClusterRecords(unified, sites.ClusterOptions{
		TransitiveClosure: opts.TransitiveClosure,
	})
	merged := sites.MergeClusters(clusters)
	merged = sites.AssignSlugs(merged)
	stats := sites.ComputeStats(merged)

	logger.Info().
		Int("candidates", len(unified)).
		Int("clusters", len(clusters)).
		Int("sites", len(merged)).
		Msg("import run complete")

	return Result{
		RunID:   runID,
		Records: merged,
		Stats:   stats,
	}, nil
}

func normalizeWikidataBatch(fetched []wikidata.Site, importedAt time.Time) []sites.Record {
	records := make([]sites.Record, 0, len(fetched))
	for _, site := range fetched {
		if record, ok := normalizeWikidata(site, importedAt); ok {
			records = append(records, record)
		}
	}
	return records
}

func normalizeOverpassBatch(fetched []overpass.Site, importedAt time.Time) []sites.Record {
	records := make([]sites.Record, 0, len(fetched))
	for _, site := range fetched {
		if record, ok := normalizeOverpass(site, importedAt); ok {
			records = append(records, record)
		}
	}
	return records
}

// filterCategories keeps only records whose normalized site type is in the
// allow list. An empty list keeps everything.
func filterCategories(records []sites.Record, categories []string) []sites.Record {
	if len(categories) == 0 {
		return records
	}
	allowed := make(map[string]struct{}, len(categories))
	for _, cat := range categories {
		allowed[cat] = struct{}{}
	}
	kept := records[:0]
	for _, record := range records {
		if _, ok := allowed[record.SiteType]; ok {
			kept = append(kept, record)
		}
	}
	return kept
}

func newRunID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}
