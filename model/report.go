package model

import "time"

// Summary holds the headline numbers of an aggregate report.
type Summary struct {
	TotalCumulativeUsers int `json:"total_cumulative_users"` // union of all weekly user sets
	LatestWeekActivities int `json:"latest_week_activities"`
	LatestWeekUsers      int `json:"latest_week_users"`
	TotalWeeksTracked    int `json:"total_weeks_tracked"`
}

// TimeSeries is parallel weekly arrays ordered chronologically.
type TimeSeries struct {
	Weeks             []string  `json:"weeks"`
	WeeklyActivities  []int     `json:"weekly_activities"`
	WeeklyUniqueUsers []int     `json:"weekly_unique_users"`
	WoWGrowthPercent  []float64 `json:"wow_growth_percent"` // one entry per adjacent pair, 1 decimal
}

// WeekBreakdown is the action/category detail of a single week.
type WeekBreakdown struct {
	Actions    map[string]int `json:"actions"`
	Categories map[string]int `json:"categories"`
	TopUsers   []string       `json:"top_users"`
}

// AppRollup is one application's cross-window total, ranked by activity.
type AppRollup struct {
	App             string `json:"app"`
	TotalActivities int    `json:"total_activities"`
	MaxWeeklyUsers  int    `json:"max_weekly_users"`
}

// ActionRollup is one action's cross-window total, ranked by count.
type ActionRollup struct {
	Action string `json:"action"`
	Count  int    `json:"count"`
}

// CacheStatus reports how the underlying weeks were sourced.
type CacheStatus struct {
	HistoricalCached bool `json:"historical_cached"` // every completed window came from cache
	CurrentWeekLive  bool `json:"current_week_live"`
}

// AggregateReport is the dashboard document. It always has this shape: a
// failed run produces zeroed numbers plus the Error field rather than no
// output at all.
type AggregateReport struct {
	Summary             Summary              `json:"summary"`
	TimeSeries          TimeSeries           `json:"time_series"`
	LatestWeekBreakdown WeekBreakdown        `json:"latest_week_breakdown"`
	TopApps             []AppRollup          `json:"top_apps,omitempty"`
	TopActions          []ActionRollup       `json:"top_actions,omitempty"`
	RawWeeklyData       map[string]WeekStats `json:"raw_weekly_data,omitempty"`
	Warnings            []string             `json:"warnings,omitempty"` // per-window fetch problems, reported as data
	LastUpdated         time.Time            `json:"last_updated"`
	DataSource          string               `json:"data_source"`
	CacheStatus         CacheStatus          `json:"cache_status"`
	Error               string               `json:"error,omitempty"` // set only when the whole run failed
}
