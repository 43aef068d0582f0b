package tracker

import (
	"context"
	"time"

	"ai-scorecard/activity"
	"ai-scorecard/model"
	"ai-scorecard/store"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config parameterizes one tracker instance. The original deployment ran
// several near-identical variants; their policy deltas live here as plain
// values instead of separate types.
type Config struct {
	Label        string // instance name, used in logs and the data_source field
	Epoch        time.Time
	Floor        time.Time
	WindowLength time.Duration
	WeeksBack    int // 0 = every window since the epoch
	EventName    string
	MaxResults   int
	Filter       activity.Filter
	PerApp       bool // maintain per-app breakdowns (deep-dive mode)
	TopApps      int
	TopActions   int
	TopUsers     int
	IncludeRaw   bool

	// Preflight runs once before any window is fetched; a failure aborts
	// the whole run. Wired to the credential check: without a token no
	// window can be fetched anyway.
	Preflight func(ctx context.Context) error

	// Now is the injectable clock; defaults to time.Now.
	Now func() time.Time
}

// Tracker runs the weekly aggregation pipeline: generate windows, serve
// completed ones from cache, recompute the current one live, and build the
// aggregate report. One invocation processes windows sequentially in
// chronological order.
type Tracker struct {
	cfg   Config
	agg   *Aggregator
	store store.Store
}

func New(cfg Config, fetcher Fetcher, st store.Store) *Tracker {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.TopUsers == 0 {
		cfg.TopUsers = 10
	}
	return &Tracker{
		cfg:   cfg,
		agg:   NewAggregator(fetcher, cfg.Filter, cfg.EventName, cfg.MaxResults, cfg.PerApp),
		store: st,
	}
}

// Run executes one full aggregation pass and always returns a well-formed
// report; run-level failures are recorded in the report's Error field.
func (t *Tracker) Run(ctx context.Context) model.AggregateReport {
	now := t.cfg.Now().UTC()
	logger := log.With().Str("run_id", uuid.NewString()).Str("tracker", t.cfg.Label).Logger()

	if t.cfg.Preflight != nil {
		if err := t.cfg.Preflight(ctx); err != nil {
			logger.Error().Err(err).Msg("Preflight failed, aborting run")
			return ErrorReport(err, t.dataSource(), now)
		}
	}

	windows := GenerateWindows(t.cfg.Epoch, now, t.cfg.WindowLength, t.cfg.Floor)
	if t.cfg.WeeksBack > 0 && len(windows) > t.cfg.WeeksBack {
		windows = windows[len(windows)-t.cfg.WeeksBack:]
	}
	logger.Info().Int("windows", len(windows)).Time("now", now).Msg("Starting aggregation run")

	historicalCached := true
	entries := make([]WindowStats, 0, len(windows))
	for _, w := range windows {
		stats, fromCache := t.windowStats(ctx, &logger, w, now)
		if w.IsComplete && !fromCache {
			historicalCached = false
		}
		entries = append(entries, WindowStats{Window: w, Stats: stats})
	}

	report := BuildReport(entries, BuildOptions{
		TopApps:          t.cfg.TopApps,
		TopActions:       t.cfg.TopActions,
		TopUsers:         t.cfg.TopUsers,
		DataSource:       t.dataSource(),
		IncludeRaw:       t.cfg.IncludeRaw,
		HistoricalCached: historicalCached,
		Now:              now,
	})
	logger.Info().
		Int("weeks", report.Summary.TotalWeeksTracked).
		Int("latest_week_users", report.Summary.LatestWeekUsers).
		Int("warnings", len(report.Warnings)).
		Msg("Aggregation run finished")
	return report
}

// windowStats applies the caching policy for one window: completed windows
// are fetched at most once ever, the current window is always recomputed
// and its cache slot overwritten.
func (t *Tracker) windowStats(ctx context.Context, logger *zerolog.Logger, w model.TimeWindow, now time.Time) (model.WeekStats, bool) {
	if w.IsComplete {
		entry, ok, err := t.store.GetHistorical(ctx, w.Label)
		if err != nil {
			// A broken cache read is a miss, never fatal.
			logger.Warn().Str("window", w.Label).Err(err).Msg("Cache read failed, refetching window")
		} else if ok {
			logger.Debug().Str("window", w.Label).Msg("Using cached historical window")
			return entry.Stats, true
		}

		stats := t.agg.Aggregate(ctx, w)
		if stats.FetchError == "" {
			// Never freeze a failed fetch into the permanent cache.
			if err := t.store.PutHistorical(ctx, newCacheEntry(w, stats, now)); err != nil {
				logger.Warn().Str("window", w.Label).Err(err).Msg("Cache write failed")
			}
		}
		return stats, false
	}

	stats := t.agg.Aggregate(ctx, w)
	if err := t.store.PutCurrent(ctx, newCacheEntry(w, stats, now)); err != nil {
		logger.Warn().Str("window", w.Label).Err(err).Msg("Cache write failed")
	}
	return stats, false
}

func (t *Tracker) dataSource() string {
	return t.cfg.Label + ": cached historical + live current week"
}

func newCacheEntry(w model.TimeWindow, stats model.WeekStats, now time.Time) model.CacheEntry {
	return model.CacheEntry{
		WindowLabel: w.Label,
		StartTime:   w.Start,
		EndTime:     w.End,
		FetchedAt:   now,
		Stats:       stats,
	}
}
