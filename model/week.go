package model

import "time"

// TimeWindow is one fixed weekly span of the activity log. Windows are
// contiguous and non-overlapping; at most one window is current, and a
// current window's End is clipped to the run's "now".
type TimeWindow struct {
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	IsComplete bool      `json:"is_complete"` // fully elapsed, safe to cache forever
	IsCurrent  bool      `json:"is_current"`  // in progress, must be refetched live
	Label      string    `json:"label"`
}

// AppStats is the per-application sub-aggregate inside a week.
type AppStats struct {
	ActivityCount int            `json:"activity_count"`
	UniqueUsers   int            `json:"unique_users"`
	UserList      []string       `json:"user_list"` // sorted for stable serialization
	Actions       map[string]int `json:"actions"`
	Categories    map[string]int `json:"categories"`
}

// WeekStats is the reduction of one window's activity records.
//
// Invariant: TotalActivities == sum(Actions) == sum(Categories), and
// UniqueUsers == len(UserList) <= TotalActivities.
type WeekStats struct {
	WindowLabel     string               `json:"window_label"`
	TotalActivities int                  `json:"total_activities"`
	UniqueUsers     int                  `json:"unique_users"`
	UserList        []string             `json:"user_list"` // sorted for stable serialization
	Actions         map[string]int       `json:"actions"`
	Categories      map[string]int       `json:"categories"`
	AppsBreakdown   map[string]*AppStats `json:"apps_breakdown,omitempty"` // all-apps mode only
	Truncated       bool                 `json:"truncated,omitempty"`      // pagination stopped early, counts may undershoot
	FetchError      string               `json:"fetch_error,omitempty"`    // distinguishes "no activity" from "fetch failed"
}

// NewWeekStats returns an empty, fully initialized reduction for a window.
func NewWeekStats(label string, perApp bool) WeekStats {
	s := WeekStats{
		WindowLabel: label,
		UserList:    []string{},
		Actions:     map[string]int{},
		Categories:  map[string]int{},
	}
	if perApp {
		s.AppsBreakdown = map[string]*AppStats{}
	}
	return s
}

// CacheEntry is the persisted form of one window's statistics. Historical
// entries are written once and never mutated; the current-window entry is
// replaced on every run.
type CacheEntry struct {
	WindowLabel string    `json:"window_label"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	FetchedAt   time.Time `json:"fetched_at"`
	Stats       WeekStats `json:"stats"`
}
