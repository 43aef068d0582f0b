package activity

import (
	"ai-scorecard/model"
	"ai-scorecard/reports"
)

// FilterMode selects which applications survive parsing.
type FilterMode string

const (
	// FilterAllApps keeps the fixed workspace allow-list.
	FilterAllApps FilterMode = "all_apps"
	// FilterSingleApp keeps exactly one application identifier.
	FilterSingleApp FilterMode = "single_app"
)

// Filter is the post-parse application predicate. It is authoritative: the
// server-side filter expression is only a fetch optimization and the
// predicate must hold even when the server ignores it.
type Filter struct {
	Mode    FilterMode
	Allowed map[string]bool // FilterAllApps: identifiers kept
	App     string          // FilterSingleApp: the one identifier kept
}

// NewAllAppsFilter builds the workspace allow-list predicate.
func NewAllAppsFilter(apps []string) Filter {
	allowed := make(map[string]bool, len(apps))
	for _, app := range apps {
		allowed[app] = true
	}
	return Filter{Mode: FilterAllApps, Allowed: allowed}
}

// NewSingleAppFilter builds the one-app predicate.
func NewSingleAppFilter(app string) Filter {
	return Filter{Mode: FilterSingleApp, App: app}
}

// Keep reports whether records for the given application are retained.
func (f Filter) Keep(appName string) bool {
	switch f.Mode {
	case FilterSingleApp:
		return appName == f.App
	default:
		if len(f.Allowed) == 0 {
			return true
		}
		return f.Allowed[appName]
	}
}

// ServerFilter returns the filter expression pushed through the fetcher in
// single-app mode, or "" when everything must be fetched.
func (f Filter) ServerFilter() string {
	if f.Mode == FilterSingleApp && f.App != "" {
		return "app_name==" + f.App
	}
	return ""
}

// Parse flattens one raw feed item into activity records, one per nested
// event group. Parameters are looked up by name; absent names resolve to
// "Unknown", never to an empty field.
func Parse(item reports.Item) []model.ActivityRecord {
	records := make([]model.ActivityRecord, 0, len(item.Events))
	for _, ev := range item.Events {
		params := make(map[string]string, len(ev.Parameters))
		for _, p := range ev.Parameters {
			params[p.Name] = p.Value
		}
		records = append(records, model.ActivityRecord{
			Timestamp:     item.ID.Time,
			UserEmail:     orUnknown(item.Actor.Email),
			AppName:       orUnknown(params["app_name"]),
			Action:        orUnknown(params["action"]),
			EventCategory: orUnknown(params["event_category"]),
			FeatureSource: orUnknown(params["feature_source"]),
		})
	}
	return records
}

func orUnknown(v string) string {
	if v == "" {
		return model.Unknown
	}
	return v
}
