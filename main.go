package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"idx_sync/config"
	"idx_sync/logging"
	"idx_sync/models"
	"idx_sync/pipeline"
	"idx_sync/services"
	"idx_sync/storage"
)

const (
	exitFailure   = 1
	exitConfig    = 2
	exitCancelled = 130
)

var (
	dbEnv    = flag.String("db", "", "Target environment: dev or live")
	feedPath = flag.String("feed", "config/feed.yaml", "Feed configuration file")
)

func main() {
	flag.Parse()
	os.Exit(run())
}

func run() int {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := config.Load(*dbEnv, *feedPath)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load config")
		if errors.Is(err, models.ErrConfiguration) {
			return exitConfig
		}
		return exitFailure
	}

	logFile, err := logging.Setup(cfg.LogPath, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Warn().Err(err).Msg("Could not set up file logging")
	} else {
		defer logFile.Close()
	}

	log.Info().Str("env", cfg.Env).Str("feed", *feedPath).Msg("Starting idx_sync")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgStore, err := storage.NewPostgresStore(ctx, cfg.Database, cfg.Feed.Table)
	if err != nil {
		log.Error().Err(err).Msg("Failed to connect to Postgres")
		return exitFailure
	}
	defer pgStore.Close()
	log.Info().
		Str("url", maskConnectionString(cfg.Database.URL)).
		Int32("max_conns", cfg.Database.MaxConns).
		Int32("min_conns", cfg.Database.MinConns).
		Str("table", pgStore.Table()).
		Msg("Connected to Postgres")

	journal, err := storage.NewJournal(cfg.JournalPath)
	if err != nil {
		log.Error().Err(err).Str("path", cfg.JournalPath).Msg("Failed to open run journal")
		return exitFailure
	}
	defer journal.Close()

	if last, err := journal.LastRun(cfg.Env); err != nil {
		log.Warn().Err(err).Msg("Could not read previous run")
	} else if last != nil {
		log.Info().Str("run_id", last.ID.String()).Time("started_at", last.StartedAt).Str("status", string(last.Status)).Msg("Previous run")
	}

	listingService := services.NewListingService(pgStore)
	stalenessService := services.NewStalenessService(pgStore, cfg.Feed.RetiredStatus)
	orchestrator := pipeline.NewOrchestrator(cfg, listingService, stalenessService, journal)

	report, err := orchestrator.Run(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Sync failed")
		return exitFailure
	}

	for _, r := range report.Types {
		log.Info().
			Str("listing_type", string(r.Type)).
			Int("rows", r.Rows).
			Int("upserted", r.Upserted).
			Int("inserted", r.Inserted).
			Int("malformed", r.Malformed).
			Int("store_errors", r.StoreErrors).
			Int64("retired", r.Retired).
			Bool("swept", r.Swept).
			Msg("Extract summary")
	}

	if report.Run.Status == models.RunStatusCompleted && cfg.Archive.Bucket != "" {
		archiveExtracts(ctx, cfg, report.Run)
	}

	if report.Run.Status == models.RunStatusCancelled {
		log.Warn().Msg("Sync cancelled")
		return exitCancelled
	}
	log.Info().Str("status", string(report.Run.Status)).Msg("Sync complete")
	return 0
}

func archiveExtracts(ctx context.Context, cfg *config.Config, run *models.SyncRun) {
	archive, err := storage.NewExtractArchive(ctx, cfg.Archive)
	if err != nil {
		log.Warn().Err(err).Msg("Extract archive unavailable")
		return
	}
	keys, err := archive.Archive(ctx, run, cfg.Feed.Files())
	if err != nil {
		log.Warn().Err(err).Int("archived", len(keys)).Msg("Extract archive incomplete")
		return
	}
	log.Info().Str("bucket", cfg.Archive.Bucket).Int("files", len(keys)).Msgf("Archived extracts for run %s", run.ID)
}

// maskConnectionString masks password in connection string for logging
func maskConnectionString(connStr string) string {
	start := 0
	for i := 0; i < len(connStr)-3; i++ {
		if connStr[i:i+3] == "://" {
			start = i + 3
			break
		}
	}
	if start == 0 {
		return connStr
	}

	colonIdx := -1
	atIdx := -1
	for i := start; i < len(connStr); i++ {
		if connStr[i] == ':' && colonIdx == -1 {
			colonIdx = i
		}
		if connStr[i] == '@' {
			atIdx = i
			break
		}
	}

	if colonIdx > 0 && atIdx > colonIdx {
		return connStr[:colonIdx+1] + "****" + connStr[atIdx:]
	}
	return connStr
}
