package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/quake-data-etl/internal/domain"
	"github.com/couchcryptid/quake-data-etl/internal/observability"
)

// SkipEnrichFailed is the skip reason recorded for events that parsed but
// could not be scored.
const SkipEnrichFailed = "enrich_failed"

// ErrRunInProgress is returned by RunOnce when another run is active.
var ErrRunInProgress = errors.New("ingestion run already in progress")

// FeedFetcher returns the raw observatory table.
type FeedFetcher interface {
	Fetch(ctx context.Context) (string, error)
}

// Enricher attaches an assessment to a parsed event.
type Enricher interface {
	Enrich(ev domain.SeismicEvent) (domain.SeismicEvent, error)
}

// EventStore upserts events by ID and reports how many were new.
type EventStore interface {
	UpsertBatch(ctx context.Context, events []domain.SeismicEvent) (int, error)
}

// BookmarkStore persists the date of the newest processed event.
type BookmarkStore interface {
	LastDate(ctx context.Context) (time.Time, bool, error)
	SetLastDate(ctx context.Context, day time.Time) error
}

// EventCounter is implemented by event stores that can report how many
// events they hold.
type EventCounter interface {
	Count(ctx context.Context) (int, error)
}

// RunResult summarises one ingestion run.
type RunResult struct {
	Parsed    int    `json:"parsed"`   // records emitted by the parser
	Filtered  int    `json:"filtered"` // records outside the region of interest
	Skipped   int    `json:"skipped"`  // malformed or unscorable records
	Enriched  int    `json:"enriched"`
	Persisted int    `json:"persisted"`
	Created   int    `json:"created"`  // records that were new to the event store
	Bookmark  string `json:"bookmark"` // bookmark date after the run, empty if none
}

// Status is a point-in-time view of the orchestrator.
type Status struct {
	State     string     `json:"state"`
	LastRunAt time.Time  `json:"last_run_at,omitzero"`
	LastRun   *RunResult `json:"last_run,omitempty"`
	LastError string     `json:"last_error,omitempty"`

	// StoredEvents is set when the event store implements EventCounter.
	StoredEvents *int `json:"stored_events,omitempty"`
}

// Orchestrator runs the fetch-parse-enrich-persist-bookmark cycle.
type Orchestrator struct {
	fetcher   FeedFetcher
	enricher  Enricher
	events    EventStore
	bookmarks BookmarkStore
	logger    *slog.Logger
	metrics   *observability.Metrics
	batchSize int

	state   atomic.Int32
	running atomic.Bool
	ready   atomic.Bool

	mu        sync.Mutex
	lastAt    time.Time
	lastRun   *RunResult
	lastError string
}

// New creates an Orchestrator. Events are persisted in chunks of batchSize.
func New(f FeedFetcher, e Enricher, events EventStore, bookmarks BookmarkStore, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Orchestrator {
	if batchSize <= 0 {
		batchSize = 1
	}
	return &Orchestrator{
		fetcher:   f,
		enricher:  e,
		events:    events,
		bookmarks: bookmarks,
		logger:    logger,
		metrics:   metrics,
		batchSize: batchSize,
	}
}

// CheckReadiness returns nil once a run has completed successfully.
func (o *Orchestrator) CheckReadiness(_ context.Context) error {
	if !o.ready.Load() {
		return errors.New("no ingestion run has completed yet")
	}
	return nil
}

// State returns the stage of the active run, or StateIdle.
func (o *Orchestrator) State() State {
	return State(o.state.Load())
}

// Status reports the current stage and the outcome of the last run.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	st := Status{State: o.State().String(), LastRunAt: o.lastAt, LastError: o.lastError}
	if o.lastRun != nil {
		res := *o.lastRun
		st.LastRun = &res
	}
	o.mu.Unlock()

	if c, ok := o.events.(EventCounter); ok {
		if n, err := c.Count(context.Background()); err == nil {
			st.StoredEvents = &n
		} else {
			o.logger.Warn("failed to count stored events", "error", err)
		}
	}
	return st
}

func (o *Orchestrator) record(at time.Time, res RunResult, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.lastAt = at
	o.lastRun = &res
	o.lastError = ""
	if err != nil {
		o.lastError = err.Error()
	}
}

func (o *Orchestrator) setState(s State) {
	o.state.Store(int32(s))
	o.metrics.PipelineState.Set(float64(s))
	if s != StateIdle {
		o.logger.Debug("pipeline stage", "state", s.String())
	}
}

// RunOnce performs a single ingestion run. A returned error means the run
// failed and the bookmark was not advanced.
func (o *Orchestrator) RunOnce(ctx context.Context) (RunResult, error) {
	if !o.running.CompareAndSwap(false, true) {
		return RunResult{}, ErrRunInProgress
	}
	defer o.running.Store(false)
	defer o.setState(StateIdle)

	start := time.Now()
	res, err := o.run(ctx)
	o.metrics.RunDuration.Observe(time.Since(start).Seconds())
	o.record(start, res, err)

	if err != nil {
		o.metrics.RunsTotal.WithLabelValues(observability.OutcomeFailure).Inc()
		o.logger.Error("ingestion run failed", "error", err,
			"parsed", res.Parsed, "enriched", res.Enriched, "persisted", res.Persisted)
		return res, err
	}

	o.metrics.RunsTotal.WithLabelValues(observability.OutcomeSuccess).Inc()
	o.metrics.LastSuccessfulRun.Set(float64(time.Now().Unix()))
	o.ready.Store(true)
	o.logger.Info("ingestion run complete",
		"parsed", res.Parsed,
		"filtered", res.Filtered,
		"skipped", res.Skipped,
		"enriched", res.Enriched,
		"persisted", res.Persisted,
		"created", res.Created,
		"bookmark", res.Bookmark,
		"duration", time.Since(start),
	)
	return res, nil
}

func (o *Orchestrator) run(ctx context.Context) (RunResult, error) {
	var res RunResult

	o.setState(StateFetching)
	bookmark, ok, err := o.bookmarks.LastDate(ctx)
	if err != nil {
		return res, fmt.Errorf("read bookmark: %w", err)
	}
	if ok {
		res.Bookmark = bookmark.Format(domain.DateLayout)
	}

	table, err := o.fetcher.Fetch(ctx)
	if err != nil {
		return res, fmt.Errorf("fetch feed: %w", err)
	}

	o.setState(StateParsing)
	batch, err := domain.ParseFeed(table, bookmark)
	if err != nil {
		return res, fmt.Errorf("parse feed: %w", err)
	}
	res.Parsed = len(batch.Events)
	res.Filtered = batch.Filtered
	o.metrics.RecordsParsed.Add(float64(res.Parsed))
	o.metrics.RecordsFiltered.Add(float64(res.Filtered))
	for _, s := range batch.Skipped {
		o.skip(s.Reason, "skipping malformed feed line", "line", s.Line, "error", s.Err)
	}
	res.Skipped = len(batch.Skipped)

	o.setState(StateEnriching)
	enriched := make([]domain.SeismicEvent, 0, len(batch.Events))
	for _, ev := range batch.Events {
		out, err := o.enricher.Enrich(ev)
		if err != nil {
			o.skip(SkipEnrichFailed, "enrichment failed, skipping event", "event_id", ev.ID, "error", err)
			res.Skipped++
			continue
		}
		o.metrics.ScoreValue.Observe(out.S)
		if out.IsFatalRisk {
			o.metrics.FatalRiskEvents.Inc()
		}
		enriched = append(enriched, out)
	}
	res.Enriched = len(enriched)
	o.metrics.EventsEnriched.Add(float64(res.Enriched))

	o.setState(StatePersisting)
	for start := 0; start < len(enriched); start += o.batchSize {
		chunk := enriched[start:min(start+o.batchSize, len(enriched))]
		created, err := o.events.UpsertBatch(ctx, chunk)
		if err != nil {
			return res, fmt.Errorf("persist events: %w", err)
		}
		res.Persisted += len(chunk)
		res.Created += created
		o.metrics.EventsPersisted.Add(float64(len(chunk)))
		o.metrics.EventsCreated.Add(float64(created))
	}

	o.setState(StateBookmarkUpdate)
	newest, ok := batch.Newest()
	if !ok {
		return res, nil
	}
	if err := o.bookmarks.SetLastDate(ctx, newest); err != nil {
		return res, fmt.Errorf("write bookmark: %w", err)
	}
	res.Bookmark = newest.Format(domain.DateLayout)
	return res, nil
}

func (o *Orchestrator) skip(reason, msg string, args ...any) {
	o.metrics.RecordsSkipped.WithLabelValues(reason).Inc()
	o.logger.Warn(msg, append([]any{"reason", reason}, args...)...)
}
