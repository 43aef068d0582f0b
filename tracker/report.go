package tracker

import (
	"fmt"
	"math"
	"sort"
	"time"

	"ai-scorecard/model"
)

// WindowStats pairs a window with its statistics, cached or live.
type WindowStats struct {
	Window model.TimeWindow
	Stats  model.WeekStats
}

// BuildOptions parameterizes report assembly.
type BuildOptions struct {
	TopApps          int
	TopActions       int
	TopUsers         int
	DataSource       string
	IncludeRaw       bool
	HistoricalCached bool
	Now              time.Time
}

// BuildReport combines all windows' statistics into the dashboard document.
// Pure function of its inputs; it never touches the cache or the network.
func BuildReport(entries []WindowStats, opts BuildOptions) model.AggregateReport {
	ordered := make([]WindowStats, len(entries))
	copy(ordered, entries)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Window.Start.Before(ordered[j].Window.Start)
	})

	report := model.AggregateReport{
		TimeSeries: model.TimeSeries{
			Weeks:             []string{},
			WeeklyActivities:  []int{},
			WeeklyUniqueUsers: []int{},
			WoWGrowthPercent:  []float64{},
		},
		LatestWeekBreakdown: model.WeekBreakdown{
			Actions:    map[string]int{},
			Categories: map[string]int{},
			TopUsers:   []string{},
		},
		LastUpdated: opts.Now,
		DataSource:  opts.DataSource,
		CacheStatus: model.CacheStatus{
			HistoricalCached: opts.HistoricalCached,
			CurrentWeekLive:  true,
		},
	}

	allUsers := map[string]struct{}{}
	apps := newRollupIndex()
	actions := newRollupIndex()

	for _, e := range ordered {
		report.TimeSeries.Weeks = append(report.TimeSeries.Weeks, e.Window.Label)
		report.TimeSeries.WeeklyActivities = append(report.TimeSeries.WeeklyActivities, e.Stats.TotalActivities)
		report.TimeSeries.WeeklyUniqueUsers = append(report.TimeSeries.WeeklyUniqueUsers, e.Stats.UniqueUsers)

		for _, u := range e.Stats.UserList {
			allUsers[u] = struct{}{}
		}

		// Accumulate rollups in chronological window order; names within a
		// window are visited sorted so ranking ties stay deterministic.
		for _, name := range sortedNames(e.Stats.AppsBreakdown) {
			app := e.Stats.AppsBreakdown[name]
			apps.add(name, app.ActivityCount, app.UniqueUsers)
		}
		for _, name := range sortedCountKeys(e.Stats.Actions) {
			actions.add(name, e.Stats.Actions[name], 0)
		}

		if e.Stats.FetchError != "" {
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("%s: %s", e.Window.Label, e.Stats.FetchError))
		} else if e.Stats.Truncated {
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("%s: results truncated at page ceiling", e.Window.Label))
		}
	}

	// Week-over-week growth of unique users, guarded against empty weeks.
	users := report.TimeSeries.WeeklyUniqueUsers
	for i := 1; i < len(users); i++ {
		growth := 0.0
		if users[i-1] > 0 {
			growth = round1(float64(users[i]-users[i-1]) / float64(users[i-1]) * 100)
		}
		report.TimeSeries.WoWGrowthPercent = append(report.TimeSeries.WoWGrowthPercent, growth)
	}

	report.Summary = model.Summary{
		TotalCumulativeUsers: len(allUsers),
		TotalWeeksTracked:    len(ordered),
	}
	if len(ordered) > 0 {
		latest := ordered[len(ordered)-1].Stats
		report.Summary.LatestWeekActivities = latest.TotalActivities
		report.Summary.LatestWeekUsers = latest.UniqueUsers
		report.LatestWeekBreakdown.Actions = latest.Actions
		report.LatestWeekBreakdown.Categories = latest.Categories
		report.LatestWeekBreakdown.TopUsers = headOf(latest.UserList, opts.TopUsers)
	}

	report.TopApps = apps.topApps(opts.TopApps)
	report.TopActions = actions.topActions(opts.TopActions)

	if opts.IncludeRaw {
		report.RawWeeklyData = make(map[string]model.WeekStats, len(ordered))
		for _, e := range ordered {
			report.RawWeeklyData[e.Window.Label] = e.Stats
		}
	}
	return report
}

// ErrorReport produces the same document shape with zeroed numbers and the
// error recorded as data. Downstream consumers always get a well-formed
// document, even when the whole run failed.
func ErrorReport(err error, dataSource string, now time.Time) model.AggregateReport {
	report := BuildReport(nil, BuildOptions{DataSource: dataSource, Now: now})
	report.CacheStatus.CurrentWeekLive = false
	report.Error = err.Error()
	return report
}

// rollupIndex accumulates cross-window totals while remembering first-seen
// order, which breaks ranking ties.
type rollupIndex struct {
	order  []string
	totals map[string]int
	maxAux map[string]int // per-app max weekly users
}

func newRollupIndex() *rollupIndex {
	return &rollupIndex{totals: map[string]int{}, maxAux: map[string]int{}}
}

func (r *rollupIndex) add(name string, count, aux int) {
	if _, seen := r.totals[name]; !seen {
		r.order = append(r.order, name)
	}
	r.totals[name] += count
	if aux > r.maxAux[name] {
		r.maxAux[name] = aux
	}
}

func (r *rollupIndex) ranked(n int) []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	sort.SliceStable(names, func(i, j int) bool {
		return r.totals[names[i]] > r.totals[names[j]]
	})
	if n > 0 && len(names) > n {
		names = names[:n]
	}
	return names
}

func (r *rollupIndex) topApps(n int) []model.AppRollup {
	rollups := []model.AppRollup{}
	for _, name := range r.ranked(n) {
		rollups = append(rollups, model.AppRollup{
			App:             name,
			TotalActivities: r.totals[name],
			MaxWeeklyUsers:  r.maxAux[name],
		})
	}
	return rollups
}

func (r *rollupIndex) topActions(n int) []model.ActionRollup {
	rollups := []model.ActionRollup{}
	for _, name := range r.ranked(n) {
		rollups = append(rollups, model.ActionRollup{Action: name, Count: r.totals[name]})
	}
	return rollups
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func headOf(list []string, n int) []string {
	if n <= 0 {
		n = 10
	}
	if len(list) > n {
		return list[:n]
	}
	return list
}

func sortedNames(m map[string]*model.AppStats) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func sortedCountKeys(m map[string]int) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
