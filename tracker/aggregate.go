package tracker

import (
	"context"
	"sort"

	"ai-scorecard/activity"
	"ai-scorecard/model"
	"ai-scorecard/reports"

	"github.com/rs/zerolog/log"
)

// Fetcher is the slice of the reports client the aggregator needs.
type Fetcher interface {
	FetchAll(ctx context.Context, q reports.Query) reports.Result
}

// Aggregator reduces one window's activity feed into week statistics.
type Aggregator struct {
	fetcher    Fetcher
	filter     activity.Filter
	eventName  string
	maxResults int
	perApp     bool // maintain apps_breakdown sub-aggregates
}

func NewAggregator(fetcher Fetcher, filter activity.Filter, eventName string, maxResults int, perApp bool) *Aggregator {
	return &Aggregator{
		fetcher:    fetcher,
		filter:     filter,
		eventName:  eventName,
		maxResults: maxResults,
		perApp:     perApp,
	}
}

// Aggregate fetches, parses and reduces one window. A fetch failure before
// any page succeeded degrades to a zeroed WeekStats carrying the error
// rather than propagating it; a mid-pagination failure keeps the partial
// counts and flags them. A single bad window must not abort the run.
func (a *Aggregator) Aggregate(ctx context.Context, w model.TimeWindow) model.WeekStats {
	res := a.fetcher.FetchAll(ctx, reports.Query{
		EventName:  a.eventName,
		MaxResults: a.maxResults,
		StartTime:  w.Start,
		EndTime:    w.End,
		Filters:    a.filter.ServerFilter(),
	})

	stats := model.NewWeekStats(w.Label, a.perApp)
	users := map[string]struct{}{}
	appUsers := map[string]map[string]struct{}{}

	for _, item := range res.Items {
		for _, rec := range activity.Parse(item) {
			if !a.filter.Keep(rec.AppName) {
				continue
			}

			stats.TotalActivities++
			users[rec.UserEmail] = struct{}{}
			stats.Actions[rec.Action]++
			stats.Categories[rec.EventCategory]++

			if a.perApp {
				app := stats.AppsBreakdown[rec.AppName]
				if app == nil {
					app = &model.AppStats{
						UserList:   []string{},
						Actions:    map[string]int{},
						Categories: map[string]int{},
					}
					stats.AppsBreakdown[rec.AppName] = app
					appUsers[rec.AppName] = map[string]struct{}{}
				}
				app.ActivityCount++
				app.Actions[rec.Action]++
				app.Categories[rec.EventCategory]++
				appUsers[rec.AppName][rec.UserEmail] = struct{}{}
			}
		}
	}

	stats.UserList = sortedKeys(users)
	stats.UniqueUsers = len(stats.UserList)
	for name, app := range stats.AppsBreakdown {
		app.UserList = sortedKeys(appUsers[name])
		app.UniqueUsers = len(app.UserList)
	}

	stats.Truncated = res.Truncated
	if res.Err != nil {
		stats.FetchError = res.Err.Error()
		stats.Truncated = true
		log.Warn().Str("window", w.Label).Err(res.Err).
			Int("partial_activities", stats.TotalActivities).
			Msg("Window degraded to partial data")
	}

	log.Debug().Str("window", w.Label).
		Int("activities", stats.TotalActivities).
		Int("users", stats.UniqueUsers).
		Int("pages", res.Pages).
		Msg("Window aggregated")
	return stats
}

// sortedKeys makes user lists order-independent of page arrival and stable
// across runs.
func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
