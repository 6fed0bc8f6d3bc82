package importer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/megalith-foundation/server/internal/domain/sites"
	"github.com/megalith-foundation/server/internal/sources/overpass"
	"github.com/megalith-foundation/server/internal/sources/wikidata"
)

type fakeWikidata struct {
	siteList []wikidata.Site
	err      error
}

func (f *fakeWikidata) FetchCandidates(ctx context.Context) ([]wikidata.Site, error) {
	return f.siteList, f.err
}

type fakeOverpass struct {
	siteList []overpass.Site
	err      error
}

func (f *fakeOverpass) FetchCandidates(ctx context.Context) ([]overpass.Site, error) {
	return f.siteList, f.err
}

func newTestImporter(wd *fakeWikidata, op *fakeOverpass) *Importer {
	imp := New(wd, op, zerolog.Nop())
	imp.now = func() time.Time {
		return time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)
	}
	return imp
}

func allEnabled() Options {
	return Options{EnableWikidata: true, EnableOverpass: true}
}

// aveburyFixture reproduces the canonical cross-source duplicate: both
// sources report the same henge under slightly different names, ~40 m apart,
// with the knowledge-graph record carrying the heritage designation.
func aveburyFixture() (*fakeWikidata, *fakeOverpass) {
	wd := &fakeWikidata{siteList: []wikidata.Site{{
		QID:            "Q183504",
		Name:           "Avebury Henge",
		Description:    "Neolithic henge monument containing three stone circles.",
		Latitude:       51.428611,
		Longitude:      -1.854167,
		RawType:        "henge",
		Country:        "United Kingdom",
		CountryCode:    "GB",
		WikipediaURL:   "https://en.wikipedia.org/wiki/Avebury",
		HeritageStatus: "World Heritage Site",
	}}}
	op := &fakeOverpass{siteList: []overpass.Site{{
		OSMID:     "way/5678",
		Name:      "Avebury Stone Circle",
		Latitude:  51.428611 + 40.0/111320.0,
		Longitude: -1.854167,
		RawType:   "archaeological_site",
		ImageURL:  "https://example.org/avebury.jpg",
	}}}
	return wd, op
}

func TestRun_MergesCrossSourceDuplicate(t *testing.T) {
	imp := newTestImporter(aveburyFixture())

	result, err := imp.Run(context.Background(), allEnabled())
	require.NoError(t, err)
	require.Len(t, result.Records, 1, "both source records describe one site")

	record := result.Records[0]
	assert.ElementsMatch(t, []string{sites.SourceWikidata, sites.SourceOSM}, record.Sources)
	assert.Equal(t, sites.LayerOfficial, record.Layer)
	assert.Equal(t, sites.VerificationVerified, record.Verification)
	assert.Equal(t, sites.TierPromoted, record.TrustTier)
	assert.Equal(t, "Q183504", record.WikidataID)
	assert.Equal(t, "way/5678", record.OSMID, "OSM id gap-filled from the member")
	assert.Equal(t, "https://example.org/avebury.jpg", record.ImageURL)

	// Anchor choice is deterministic but a matter of quality ordering, so
	// accept a slug derived from either source's name.
	validSlugs := []string{"avebury-henge", "avebury-stone-circle"}
	assert.Contains(t, validSlugs, record.Slug)

	assert.Equal(t, 1, result.Stats.Total)
	assert.Equal(t, 1, result.Stats.BySource[sites.SourceWikidata])
	assert.Equal(t, 1, result.Stats.BySource[sites.SourceOSM])
	assert.NotEmpty(t, result.RunID)
}

func TestRun_Idempotent(t *testing.T) {
	imp := newTestImporter(aveburyFixture())

	first, err := imp.Run(context.Background(), allEnabled())
	require.NoError(t, err)
	second, err := imp.Run(context.Background(), allEnabled())
	require.NoError(t, err)

	require.Equal(t, len(first.Records), len(second.Records))
	for i := range first.Records {
		assert.Equal(t, first.Records[i], second.Records[i],
			"identical adapter responses must produce identical output")
	}
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestRun_SourceFailureDegradesToEmpty(t *testing.T) {
	wd := &fakeWikidata{err: errors.New("endpoint down")}
	op := &fakeOverpass{siteList: []overpass.Site{{
		OSMID:    "node/1",
		Name:     "Poulnabrone Dolmen",
		Latitude: 53.048611, Longitude: -9.140000,
		RawType: "dolmen",
	}}}

	result, err := newTestImporter(wd, op).Run(context.Background(), allEnabled())
	require.NoError(t, err, "a failing source must not fail the run")
	require.Len(t, result.Records, 1)
	assert.Equal(t, []string{sites.SourceOSM}, result.Records[0].Sources)
}

func TestRun_AllSourcesFailed(t *testing.T) {
	wd := &fakeWikidata{err: errors.New("down")}
	op := &fakeOverpass{err: errors.New("also down")}

	result, err := newTestImporter(wd, op).Run(context.Background(), allEnabled())
	require.NoError(t, err, "total source failure is an empty result, not an error")
	assert.Empty(t, result.Records)
	assert.Equal(t, 0, result.Stats.Total)
}

func TestRun_DisabledSourcesAreSkipped(t *testing.T) {
	wd, op := aveburyFixture()
	result, err := newTestImporter(wd, op).Run(context.Background(), Options{EnableOverpass: true})
	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	assert.Equal(t, []string{sites.SourceOSM}, result.Records[0].Sources)
}

func TestRun_DropsOutOfBoundCoordinates(t *testing.T) {
	op := &fakeOverpass{siteList: []overpass.Site{
		{OSMID: "node/1", Name: "Broken", Latitude: 95.0, Longitude: 0, RawType: "dolmen"},
		{OSMID: "node/2", Name: "Also Broken", Latitude: 0, Longitude: -190.0, RawType: "dolmen"},
		{OSMID: "node/3", Name: "Fine", Latitude: 53.0, Longitude: -9.0, RawType: "dolmen"},
	}}

	result, err := newTestImporter(&fakeWikidata{}, op).Run(context.Background(), allEnabled())
	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	assert.Equal(t, "Fine", result.Records[0].Name)
	assert.True(t, sites.ValidCoordinates(result.Records[0].Latitude, result.Records[0].Longitude))
}

func TestRun_CategoryFilter(t *testing.T) {
	op := &fakeOverpass{siteList: []overpass.Site{
		{OSMID: "node/1", Name: "A Dolmen", Latitude: 53.0, Longitude: -9.0, RawType: "dolmen"},
		{OSMID: "node/2", Name: "A Cairn", Latitude: 54.0, Longitude: -8.0, RawType: "cairn"},
	}}

	result, err := newTestImporter(&fakeWikidata{}, op).Run(context.Background(), Options{
		EnableOverpass:     true,
		OverpassCategories: []string{"dolmen"},
	})
	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	assert.Equal(t, "dolmen", result.Records[0].SiteType)
}

func TestRun_SummarySynthesis(t *testing.T) {
	wd := &fakeWikidata{siteList: []wikidata.Site{{
		QID:      "Q1",
		Name:     "Nameless Mound",
		Latitude: 48.0, Longitude: 2.0,
		RawType: "tumulus",
		Country: "France",
	}}}

	result, err := newTestImporter(wd, &fakeOverpass{}).Run(context.Background(), allEnabled())
	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	assert.Equal(t, "Burial mound in France.", result.Records[0].Summary)

	op := &fakeOverpass{siteList: []overpass.Site{{
		OSMID: "node/7", Name: "Lone Stone", Latitude: 50.0, Longitude: 1.0, RawType: "standing_stone",
	}}}
	result, err = newTestImporter(&fakeWikidata{}, op).Run(context.Background(), allEnabled())
	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	assert.Equal(t, "Standing stone in unknown location.", result.Records[0].Summary)
}

func TestRun_SlugUniquenessAcrossOutput(t *testing.T) {
	// Two distinct stone rows share a name but sit kilometers apart, so
	// they stay separate records and need distinct slugs.
	op := &fakeOverpass{siteList: []overpass.Site{
		{OSMID: "node/1", Name: "The Nine Maidens", Latitude: 50.5, Longitude: -4.9, RawType: "stone_row"},
		{OSMID: "node/2", Name: "The Nine Maidens", Latitude: 50.2, Longitude: -5.5, RawType: "stone_circle"},
	}}

	result, err := newTestImporter(&fakeWikidata{}, op).Run(context.Background(), allEnabled())
	require.NoError(t, err)
	require.Len(t, result.Records, 2)
	assert.NotEqual(t, result.Records[0].Slug, result.Records[1].Slug)
}
