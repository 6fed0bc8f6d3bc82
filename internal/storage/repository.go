// Package storage defines the persistence boundary the pipeline writes to.
package storage

import (
	"context"

	"github.com/megalith-foundation/server/internal/domain/sites"
)

// SiteRepository accepts the deduplicated output of an import run as a
// slug-keyed upsert batch with insert-or-update-on-conflict semantics. The
// batch applies atomically: a failed run never leaves a partial write.
type SiteRepository interface {
	UpsertBatch(ctx context.Context, records []sites.Record) error
}
