// Package internal holds the site reconciliation pipeline internals.
//
// The internal tree is organized by responsibility:
// - sources: adapters for external open-data providers (Wikidata, Overpass)
// - importer: pipeline orchestration and per-source normalization
// - domain: unified site schema, deduplication, and merge logic
// - storage: database access and the slug-keyed upsert batch
// - config: environment configuration and logging
//
// Code in internal/ is not meant for external import.
package internal
