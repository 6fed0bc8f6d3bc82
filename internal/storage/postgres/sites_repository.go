package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/megalith-foundation/server/internal/domain/sites"
	"github.com/megalith-foundation/server/internal/storage"
)

var _ storage.SiteRepository = (*SiteRepository)(nil)

// SiteRepository persists deduplicated site records.
type SiteRepository struct {
	pool *pgxpool.Pool
}

// NewSiteRepository constructs a SiteRepository.
func NewSiteRepository(pool *pgxpool.Pool) (*SiteRepository, error) {
	if pool == nil {
		return nil, fmt.Errorf("postgres site repository: pool is nil")
	}
	return &SiteRepository{pool: pool}, nil
}

const upsertSiteQuery = `
INSERT INTO sites (
    slug, name, summary, site_type, latitude, longitude,
    layer, verification_status, trust_tier, sources,
    wikidata_id, osm_id, wikipedia_url, image_url,
    country, country_code, inception, heritage_status, imported_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
ON CONFLICT (slug) DO UPDATE SET
    name = EXCLUDED.name,
    summary = EXCLUDED.summary,
    site_type = EXCLUDED.site_type,
    latitude = EXCLUDED.latitude,
    longitude = EXCLUDED.longitude,
    layer = EXCLUDED.layer,
    verification_status = EXCLUDED.verification_status,
    trust_tier = EXCLUDED.trust_tier,
    sources = EXCLUDED.sources,
    wikidata_id = EXCLUDED.wikidata_id,
    osm_id = EXCLUDED.osm_id,
    wikipedia_url = EXCLUDED.wikipedia_url,
    image_url = EXCLUDED.image_url,
    country = EXCLUDED.country,
    country_code = EXCLUDED.country_code,
    inception = EXCLUDED.inception,
    heritage_status = EXCLUDED.heritage_status,
    updated_at = now()`

// UpsertBatch writes the full record set in one transaction using a
// slug-keyed insert-or-update batch. Re-running the pipeline against a
// populated store updates rows in place; the batch applies atomically or not
// at all.
func (r *SiteRepository) UpsertBatch(ctx context.Context, records []sites.Record) error {
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, record := range records {
		batch.Queue(upsertSiteQuery, upsertArgs(record)...)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	results := tx.SendBatch(ctx, batch)
	for i := range records {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return fmt.Errorf("upsert site %s: %w", records[i].Slug, err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// upsertArgs flattens a record into positional arguments for
// upsertSiteQuery. Empty optional strings and trust tiers are stored as
// NULL.
func upsertArgs(record sites.Record) []any {
	return []any{
		record.Slug,
		record.Name,
		record.Summary,
		record.SiteType,
		record.Latitude,
		record.Longitude,
		string(record.Layer),
		string(record.Verification),
		nullable(string(record.TrustTier)),
		record.Sources,
		nullable(record.WikidataID),
		nullable(record.OSMID),
		nullable(record.WikipediaURL),
		nullable(record.ImageURL),
		nullable(record.Country),
		nullable(record.CountryCode),
		nullable(record.Inception),
		nullable(record.HeritageStatus),
		record.ImportedAt,
	}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
