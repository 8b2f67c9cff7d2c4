package builder

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/xmatch/internal/catalog"
	"github.com/roach88/xmatch/internal/store"
	"github.com/roach88/xmatch/internal/xmatch"
)

// Builder runs one cross-match build. A Builder is single-use.
type Builder struct {
	cfg     Config
	source  catalog.Source
	matcher *xmatch.Matcher

	logger   *slog.Logger
	sleep    SleepFunc
	runIDs   RunIDGenerator
	now      func() time.Time
	progress ProgressFunc

	mu    sync.Mutex
	state State
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger for state transitions and progress.
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithSleeper replaces the pacing sleep. Tests use it to record pauses.
func WithSleeper(fn SleepFunc) Option {
	return func(b *Builder) {
		if fn != nil {
			b.sleep = fn
		}
	}
}

// WithRunIDGenerator sets the run identifier source.
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(b *Builder) {
		if g != nil {
			b.runIDs = g
		}
	}
}

// WithClock sets the time source for durations and record timestamps.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) {
		if now != nil {
			b.now = now
		}
	}
}

// WithProgress registers a callback invoked every ProgressEvery entries.
func WithProgress(fn ProgressFunc) Option {
	return func(b *Builder) {
		b.progress = fn
	}
}

// New creates a Builder. Zero fields in cfg take their defaults.
func New(cfg Config, source catalog.Source, opts ...Option) *Builder {
	b := &Builder{
		cfg:    cfg.withDefaults(),
		source: source,
		logger: slog.Default(),
		sleep:  catalog.SleepContext,
		runIDs: UUIDv7Generator{},
		now:    time.Now,
		state:  StateCreated,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.matcher = xmatch.New(source,
		xmatch.WithRadius(b.cfg.RadiusArcsec),
		xmatch.WithSelection(b.cfg.Selection),
		xmatch.WithLogger(b.logger),
	)
	return b
}

// Config returns the effective configuration.
func (b *Builder) Config() Config {
	return b.cfg
}

// State returns the current state. Safe for concurrent use.
func (b *Builder) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// step moves to the next state on the happy path.
func (b *Builder) step() {
	b.advance(b.State().next())
}

func (b *Builder) advance(to State) {
	b.mu.Lock()
	from := b.state
	b.state = to
	b.mu.Unlock()
	b.logger.Info("build state", "from", from.String(), "to", to.String())
}

// fail records err against the step being attempted and moves to Failed.
func (b *Builder) fail(sum *Summary, step State, err error) error {
	b.advance(StateFailed)
	sum.State = StateFailed
	sum.Status = StateFailed.String()
	sum.Error = err.Error()
	b.logger.Error("build failed", "step", step.String(), "error", err)
	return &StepError{Step: step, Err: err}
}

// Run executes the build. The returned Summary is never nil.
//
// Cancelling ctx stops dispatching new entries. Entries already in flight
// complete, buffered records are flushed, and Run returns an error wrapping
// ctx.Err(). The store file is kept in every failure past creation.
func (b *Builder) Run(ctx context.Context) (*Summary, error) {
	start := b.now()
	sum := &Summary{
		RunID:  b.runIDs.Generate(),
		Output: b.cfg.Output,
		State:  StateCreated,
	}
	defer func() {
		sum.Duration = b.now().Sub(start)
	}()

	if b.State() != StateCreated {
		return sum, fmt.Errorf("builder already used (state %s)", b.State())
	}

	b.logger.Info("build starting",
		"run_id", sum.RunID, "output", b.cfg.Output,
		"max_magnitude", b.cfg.MaxMagnitude, "radius_arcsec", b.cfg.RadiusArcsec,
		"selection", string(b.cfg.Selection), "workers", b.cfg.Workers)

	st, err := store.Create(ctx, b.cfg.Output, store.Metadata{
		MaxMagnitude:  b.cfg.MaxMagnitude,
		RunID:         sum.RunID,
		SourceCatalog: b.cfg.SourceCatalog,
		TargetCatalog: b.cfg.TargetCatalog,
		RadiusArcsec:  b.cfg.RadiusArcsec,
		Selection:     string(b.cfg.Selection),
	})
	if err != nil {
		return sum, b.fail(sum, StateStoreReady, err)
	}
	st.Now = b.now
	defer func() {
		if cerr := st.Close(); cerr != nil {
			b.logger.Warn("closing store", "error", cerr)
		}
	}()
	b.step()

	entries, err := b.fetch(ctx, sum)
	if err != nil {
		return sum, b.fail(sum, StateCatalogFetched, err)
	}
	b.step()

	b.step()
	matchErr := b.crossMatch(ctx, st, entries, sum)
	if matchErr != nil {
		b.collectStats(st, sum)
		return sum, b.fail(sum, StateCrossMatching, matchErr)
	}

	if err := st.BuildIndices(ctx); err != nil {
		b.collectStats(st, sum)
		return sum, b.fail(sum, StateIndexed, err)
	}
	b.step()

	if err := st.Compact(ctx); err != nil {
		b.collectStats(st, sum)
		return sum, b.fail(sum, StateCompacted, err)
	}
	b.step()

	b.collectStats(st, sum)
	b.step()
	sum.State = StateDone
	sum.Status = StateDone.String()

	b.logger.Info("build complete",
		"run_id", sum.RunID, "matched", sum.Matched, "failed", sum.Failed,
		"total", sum.Total, "success_rate", sum.SuccessRate())
	return sum, nil
}

func (b *Builder) fetch(ctx context.Context, sum *Summary) ([]catalog.SourceEntry, error) {
	b.logger.Info("fetching source catalog",
		"catalog", b.cfg.SourceCatalog, "max_magnitude", b.cfg.MaxMagnitude)

	res, err := b.source.FetchAllBelowMagnitude(ctx, b.cfg.SourceCatalog, b.cfg.MaxMagnitude)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", b.cfg.SourceCatalog, err)
	}
	if res == nil || len(res.Entries) == 0 {
		return nil, fmt.Errorf("fetch %s: %w", b.cfg.SourceCatalog, catalog.ErrEmptyResult)
	}

	entries := res.Entries
	truncated := b.cfg.Limit > 0 && len(entries) > b.cfg.Limit
	if truncated {
		entries = entries[:b.cfg.Limit]
	}

	// Malformed rows count as failures only when the whole catalog is run.
	sum.Skipped = len(res.Skipped)
	if !truncated {
		sum.Failed = sum.Skipped
	}
	sum.Total = len(entries) + sum.Failed

	b.logger.Info("source catalog fetched",
		"entries", len(res.Entries), "using", len(entries), "skipped", sum.Skipped)
	return entries, nil
}

// sequenced is one outcome tagged with its position in the source order.
type sequenced struct {
	idx int
	out xmatch.Outcome
}

// crossMatch dispatches entries to up to Workers concurrent matches and
// writes the outcomes in source order from a single goroutine.
//
// Dispatch stops when ctx is cancelled or the first write fails.
func (b *Builder) crossMatch(ctx context.Context, st *store.Store, entries []catalog.SourceEntry, sum *Summary) error {
	writer := store.NewWriter(st, b.cfg.BatchSize)
	pace := newPacer(b.cfg.PauseEvery, b.cfg.PauseDuration, b.cfg.RequestsPerSecond, b.sleep)

	// In-flight matches and the final flush outlive cancellation.
	detached := context.WithoutCancel(ctx)
	dispatchCtx, stop := context.WithCancelCause(ctx)
	defer stop(nil)

	results := make(chan sequenced, b.cfg.Workers)
	writeDone := make(chan error, 1)
	go func() {
		writeDone <- b.consume(detached, writer, results, len(entries), sum, stop)
	}()

	var g errgroup.Group
	g.SetLimit(b.cfg.Workers)
	settle := func() { _ = g.Wait() }

	stopped := false
	for i, entry := range entries {
		if dispatchCtx.Err() != nil {
			stopped = true
			break
		}
		if err := pace.Wait(dispatchCtx); err != nil {
			stopped = true
			break
		}
		i, entry := i, entry
		g.Go(func() error {
			results <- sequenced{idx: i, out: b.matcher.Match(detached, entry)}
			return nil
		})
		if err := pace.Tick(dispatchCtx, settle); err != nil {
			stopped = true
			break
		}
	}

	settle()
	close(results)
	writeErr := <-writeDone

	if err := writer.Flush(detached); err != nil && writeErr == nil {
		writeErr = err
	}
	sum.Pauses = pace.Pauses()
	sum.Flushed = writer.Flushed()
	sum.Batches = writer.Batches()

	if writeErr != nil {
		b.logger.Error("store write failed",
			"processed", sum.Processed, "total", len(entries), "flushed", sum.Flushed, "error", writeErr)
		return fmt.Errorf("write matches: %w", writeErr)
	}
	if stopped {
		b.logger.Warn("cross-match interrupted",
			"processed", sum.Processed, "total", len(entries), "flushed", sum.Flushed)
		return fmt.Errorf("cross-match interrupted after %d of %d entries: %w",
			sum.Processed, len(entries), context.Cause(dispatchCtx))
	}
	return nil
}

// consume re-sequences outcomes and records them. It always drains results.
// The first write error is passed to stop and later matches are counted but
// not written; the failed batch stays buffered for the final flush.
func (b *Builder) consume(ctx context.Context, w *store.Writer, results <-chan sequenced, total int, sum *Summary, stop context.CancelCauseFunc) error {
	pending := make(map[int]xmatch.Outcome)
	next := 0
	var writeErr error

	for r := range results {
		pending[r.idx] = r.out
		for {
			out, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			next++

			rec, ok := b.record(out, sum)
			if ok && writeErr == nil {
				if err := w.Append(ctx, rec); err != nil {
					writeErr = err
					stop(err)
				}
			}
			sum.Processed++
			if sum.Processed%b.cfg.ProgressEvery == 0 {
				b.report(sum, total)
			}
		}
	}
	return writeErr
}

// record counts out and returns the store row for a match.
func (b *Builder) record(out xmatch.Outcome, sum *Summary) (store.Record, bool) {
	if !out.Matched() {
		sum.Failed++
		switch out.Reason {
		case xmatch.ReasonNoCandidates:
			sum.NoCandidates++
		case xmatch.ReasonInvalidEntry:
			sum.InvalidEntries++
		default:
			sum.ServiceErrors++
		}
		b.logger.Debug("no match", "sao", out.Entry.ID, "reason", string(out.Reason), "error", out.Err)
		return store.Record{}, false
	}

	sum.Matched++
	m := out.Match
	return store.Record{
		GaiaSourceID: m.TargetID,
		SAONumber:    m.SourceID,
		RA:           m.RA,
		Dec:          m.Dec,
		Magnitude:    m.Magnitude,
		Separation:   m.Separation,
	}, true
}

func (b *Builder) report(sum *Summary, total int) {
	p := Progress{
		Processed: sum.Processed,
		Total:     total,
		Matched:   sum.Matched,
		Failed:    sum.Failed,
	}
	b.logger.Info("progress", "processed", p.Processed, "total", p.Total, "matched", p.Matched, "failed", p.Failed)
	if b.progress != nil {
		b.progress(p)
	}
}

// collectStats fills the store section of the summary. Errors are logged.
func (b *Builder) collectStats(st *store.Store, sum *Summary) {
	ctx := context.Background()
	stats, err := st.Stats(ctx)
	if err != nil {
		b.logger.Warn("reading store statistics", "error", err)
	} else {
		sum.Store = stats
	}
	size, err := st.SizeBytes()
	if err != nil {
		b.logger.Warn("reading store size", "error", err)
		return
	}
	sum.FileSizeBytes = size
}
