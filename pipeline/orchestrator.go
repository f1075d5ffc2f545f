// Package pipeline runs the sync: each extract type in turn, its rows through
// the transformer and the upsert engine in bounded chunks, then the
// staleness sweep for that type.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"idx_sync/config"
	"idx_sync/extract"
	"idx_sync/models"
	"idx_sync/reference"
	"idx_sync/services"
	"idx_sync/transform"
)

const defaultWidth = 20

type Upserter interface {
	Upsert(ctx context.Context, l *models.Listing) (*services.UpsertResult, error)
}

type Sweeper interface {
	Sweep(ctx context.Context, t models.ListingType, runStart time.Time) (int64, error)
}

type Journal interface {
	CreateRun(run *models.SyncRun) error
	FinishRun(run *models.SyncRun) error
	SaveTypeResult(r *models.TypeResult) error
	Log(entry *models.SyncLog) error
}

type Orchestrator struct {
	cfg      *config.Config
	listings Upserter
	sweeper  Sweeper
	journal  Journal
	retry    Retry
	width    int

	now func() time.Time
}

func NewOrchestrator(cfg *config.Config, listings Upserter, sweeper Sweeper, journal Journal) *Orchestrator {
	width := cfg.Feed.Workers
	if width < 1 {
		width = defaultWidth
	}
	return &Orchestrator{
		cfg:      cfg,
		listings: listings,
		sweeper:  sweeper,
		journal:  journal,
		retry: Retry{
			MaxAttempts: cfg.Sync.UpsertAttempts,
			BaseDelay:   cfg.Sync.RetryDelay,
		},
		width: width,
		now:   time.Now,
	}
}

// Report is the outcome of one run
type Report struct {
	Run   *models.SyncRun
	Types []*models.TypeResult
}

// Rows is the number of listing rows read across all types
func (r *Report) Rows() int {
	n := 0
	for _, t := range r.Types {
		n += t.Rows
	}
	return n
}

// Failed is the number of rows that never reached the store
func (r *Report) Failed() int {
	n := 0
	for _, t := range r.Types {
		n += t.Failed()
	}
	return n
}

// runState is what one run's workers share. It is never written after Run
// creates it.
type runState struct {
	run    *models.SyncRun
	rc     *transform.RunContext
	logger zerolog.Logger
}

// Run processes every configured extract type in order. Row failures are
// logged and counted and never fail the run. The returned error is set only
// when the reference data cannot be loaded. When ctx is cancelled the chunk
// in flight finishes, nothing else starts and the run ends cancelled.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	startedAt := o.now()
	run := &models.SyncRun{
		ID:        uuid.New(),
		Env:       o.cfg.Env,
		StartedAt: startedAt,
		Status:    models.RunStatusRunning,
		NextRunAt: o.cfg.NextRun(startedAt),
	}
	report := &Report{Run: run}

	st := &runState{
		run:    run,
		logger: log.With().Str("run_id", run.ID.String()).Str("env", run.Env).Logger(),
	}
	if err := o.journal.CreateRun(run); err != nil {
		st.logger.Warn().Err(err).Msg("journal: create run")
	}
	defer o.finish(st)

	rc, err := LoadRunContext(o.cfg.Feed, startedAt)
	if err != nil {
		run.Status = models.RunStatusFailed
		o.log(st, models.LogLevelError, "", "", fmt.Sprintf("load reference data: %v", err))
		return report, err
	}
	st.rc = rc
	o.log(st, models.LogLevelInfo, "", "", fmt.Sprintf(
		"reference data: %d listings with open houses (rejected %s), %d with tours (rejected %s), %d hashtags",
		rc.OpenHouses.Len(), formatCounts(rc.OpenHouses.Rejected()),
		rc.Tours.Len(), formatCounts(rc.Tours.Rejected()),
		rc.Vocabulary.Len()))

	status := models.RunStatusCompleted
	for _, t := range models.ListingTypes {
		name, ok := o.cfg.Feed.Extracts[t]
		if !ok {
			continue
		}
		if ctx.Err() != nil {
			status = models.RunStatusCancelled
			break
		}

		rows, err := extract.ReadListings(o.cfg.Feed.Path(name))
		if err != nil {
			o.log(st, models.LogLevelError, t, "", fmt.Sprintf("read extract: %v", err))
			status = models.RunStatusFailed
			continue
		}

		result, complete := o.runExtract(ctx, st, rows, t)
		report.Types = append(report.Types, result)
		if err := o.journal.SaveTypeResult(result); err != nil {
			st.logger.Warn().Err(err).Str("listing_type", string(t)).Msg("journal: save type result")
		}
		if !complete {
			status = models.RunStatusCancelled
			break
		}
	}

	if run.Status == models.RunStatusRunning {
		run.Status = status
	}
	o.log(st, models.LogLevelInfo, "", "", fmt.Sprintf("run %s: %d rows, %d failed", run.Status, report.Rows(), report.Failed()))
	return report, nil
}

// RunExtract pushes one extract type's rows through the pipeline in chunks
// and sweeps the type afterwards. The bool is false when ctx was cancelled
// before every row had its turn; the sweep is then skipped so a partial type
// never retires listings it did not get to.
func (o *Orchestrator) RunExtract(ctx context.Context, run *models.SyncRun, rc *transform.RunContext, rows []models.RawRow, t models.ListingType) (*models.TypeResult, bool) {
	st := &runState{
		run:    run,
		rc:     rc,
		logger: log.With().Str("run_id", run.ID.String()).Str("env", run.Env).Logger(),
	}
	return o.runExtract(ctx, st, rows, t)
}

func (o *Orchestrator) runExtract(ctx context.Context, st *runState, rows []models.RawRow, t models.ListingType) (*models.TypeResult, bool) {
	result := &models.TypeResult{RunID: st.run.ID, Type: t, Rows: len(rows)}
	o.log(st, models.LogLevelInfo, t, "", fmt.Sprintf("processing %d rows, %d at a time", len(rows), o.width))

	// Workers outlive a cancellation so the chunk in flight can finish.
	work := context.WithoutCancel(ctx)
	var mu sync.Mutex

	for start := 0; start < len(rows); start += o.width {
		if ctx.Err() != nil {
			o.log(st, models.LogLevelWarn, t, "", fmt.Sprintf("cancelled after %d of %d rows, sweep skipped", start, len(rows)))
			result.SweepError = "run cancelled"
			return result, false
		}

		end := min(start+o.width, len(rows))
		var g errgroup.Group
		for _, row := range rows[start:end] {
			g.Go(func() error {
				o.processRow(work, st, row, t, result, &mu)
				return nil
			})
		}
		g.Wait()
	}

	retired, err := o.sweeper.Sweep(work, t, st.run.StartedAt)
	if err != nil {
		result.SweepError = err.Error()
		o.log(st, models.LogLevelError, t, "", fmt.Sprintf("staleness sweep: %v", err))
		return result, true
	}
	result.Swept = true
	result.Retired = retired
	o.log(st, models.LogLevelInfo, t, "", fmt.Sprintf(
		"done: %d upserted (%d new), %d malformed, %d store errors, %d retired",
		result.Upserted, result.Inserted, result.Malformed, result.StoreErrors, result.Retired))
	return result, true
}

func (o *Orchestrator) processRow(ctx context.Context, st *runState, row models.RawRow, t models.ListingType, result *models.TypeResult, mu *sync.Mutex) {
	listing, err := transform.Transform(row, t, st.rc)
	if err != nil {
		mu.Lock()
		result.Malformed++
		mu.Unlock()
		o.log(st, models.LogLevelWarn, t, rowID(row), fmt.Sprintf("skipping row: %v", err))
		return
	}

	var res *services.UpsertResult
	err = o.retry.Do(ctx, st.logger, "upsert "+listing.ListingID, func() error {
		var err error
		res, err = o.listings.Upsert(ctx, listing)
		return err
	})
	if err != nil {
		mu.Lock()
		result.StoreErrors++
		mu.Unlock()
		o.log(st, models.LogLevelError, t, listing.ListingID, fmt.Sprintf("upsert: %v", err))
		return
	}

	mu.Lock()
	result.Upserted++
	if res.Inserted {
		result.Inserted++
	}
	mu.Unlock()
}

func (o *Orchestrator) finish(st *runState) {
	now := o.now()
	st.run.FinishedAt = &now
	if st.run.Status == models.RunStatusRunning {
		st.run.Status = models.RunStatusFailed
	}
	if err := o.journal.FinishRun(st.run); err != nil {
		st.logger.Warn().Err(err).Msg("journal: finish run")
	}
}

// log writes to the process log and the run journal
func (o *Orchestrator) log(st *runState, level models.LogLevel, t models.ListingType, listingID, message string) {
	var event *zerolog.Event
	switch level {
	case models.LogLevelError:
		event = st.logger.Error()
	case models.LogLevelWarn:
		event = st.logger.Warn()
	default:
		event = st.logger.Info()
	}
	if t != "" {
		event = event.Str("listing_type", string(t))
	}
	if listingID != "" {
		event = event.Str("listing_id", listingID)
	}
	event.Msg(message)

	err := o.journal.Log(&models.SyncLog{
		RunID:       st.run.ID,
		Timestamp:   time.Now(),
		Level:       level,
		Message:     message,
		ListingType: t,
		ListingID:   listingID,
	})
	if err != nil {
		st.logger.Debug().Err(err).Msg("journal: log")
	}
}

func rowID(row models.RawRow) string {
	if row.ListNo == nil {
		return ""
	}
	return strings.TrimSpace(*row.ListNo)
}

func formatCounts(counts map[string]int) string {
	if len(counts) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(counts))
	for _, reason := range []string{
		reference.RejectMissingField,
		reference.RejectNotVirtual,
		reference.RejectURL,
		reference.RejectTimestamp,
	} {
		if n := counts[reason]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", reason, n))
		}
	}
	return strings.Join(parts, " ")
}
