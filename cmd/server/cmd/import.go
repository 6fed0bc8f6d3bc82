package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/megalith-foundation/server/internal/config"
	"github.com/megalith-foundation/server/internal/importer"
	"github.com/megalith-foundation/server/internal/sources/overpass"
	"github.com/megalith-foundation/server/internal/sources/wikidata"
	"github.com/megalith-foundation/server/internal/storage/postgres"
)

var (
	importDryRun     bool
	importTransitive bool
	importCategories []string
	importTimeout    int
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Run the external site reconciliation pipeline",
	Long: `Fetch candidate sites from every enabled source, deduplicate and merge
them, and upsert the result into the atlas database.

A failing source degrades to an empty contribution; the run only errors on
configuration or persistence problems.

Examples:
  # Full run against the configured database
  server import

  # Inspect the merged record set without touching the database
  server import --dry-run

  # Restrict the OSM source to a few site types
  server import --categories "stone circle,dolmen"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runImport(cmd.Context())
	},
}

func init() {
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "run the pipeline without writing to the database")
	importCmd.Flags().BoolVar(&importTransitive, "transitive", false, "cluster with union-find transitive closure instead of the greedy anchor scan")
	importCmd.Flags().StringSliceVar(&importCategories, "categories", nil, "restrict the OSM source to these normalized site types")
	importCmd.Flags().IntVar(&importTimeout, "timeout", 600, "overall run timeout in seconds")
}

func runImport(parent context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := config.NewLogger(loggingOverrides(cfg.Logging))

	ctx, cancel := context.WithTimeout(parent, time.Duration(importTimeout)*time.Second)
	defer cancel()

	wikidataClient := wikidata.NewClient(cfg.Wikidata.Endpoint,
		wikidata.WithRateLimit(cfg.Wikidata.RatePerSecond))
	overpassClient := overpass.NewClient(cfg.Overpass.Endpoints,
		overpass.WithRateLimit(cfg.Overpass.RatePerSecond))

	imp := importer.New(wikidataClient, overpassClient, logger)
	result, err := imp.Run(ctx, importer.Options{
		EnableWikidata:     cfg.Wikidata.Enabled,
		EnableOverpass:     cfg.Overpass.Enabled,
		OverpassCategories: importCategories,
		TransitiveClosure:  importTransitive,
	})
	if err != nil {
		return fmt.Errorf("import run: %w", err)
	}

	reportStats(logger, result)

	if importDryRun {
		logger.Info().Msg("dry run: skipping database write")
		return nil
	}
	if cfg.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required unless --dry-run is set")
	}

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	repo, err := postgres.NewSiteRepository(pool)
	if err != nil {
		return err
	}
	if err := repo.UpsertBatch(ctx, result.Records); err != nil {
		return fmt.Errorf("persist sites: %w", err)
	}

	logger.Info().Int("sites", len(result.Records)).Msg("upsert batch applied")
	return nil
}

func reportStats(logger zerolog.Logger, result importer.Result) {
	logger.Info().
		Str("run_id", result.RunID).
		Int("total", result.Stats.Total).
		Interface("by_source", result.Stats.BySource).
		Interface("by_site_type", result.Stats.BySiteType).
		Interface("by_verification", result.Stats.ByVerification).
		Msg("import statistics")
}

func loggingOverrides(cfg config.LoggingConfig) config.LoggingConfig {
	if logLevel != "" {
		cfg.Level = logLevel
	}
	if logFormat != "" {
		cfg.Format = logFormat
	}
	return cfg
}
