package tracker

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"ai-scorecard/activity"
	"ai-scorecard/model"
	"ai-scorecard/reports"
)

// fakeFetcher returns canned results keyed by window start and records the
// queries it saw.
type fakeFetcher struct {
	results map[time.Time]reports.Result
	queries []reports.Query
	calls   int
}

func (f *fakeFetcher) FetchAll(ctx context.Context, q reports.Query) reports.Result {
	f.calls++
	f.queries = append(f.queries, q)
	if f.results == nil {
		return reports.Result{}
	}
	return f.results[q.StartTime]
}

func item(email, ts string, events ...reports.Event) reports.Item {
	return reports.Item{
		ID:     reports.ItemID{Time: ts},
		Actor:  reports.Actor{Email: email},
		Events: events,
	}
}

func event(app, action, category string) reports.Event {
	var params []reports.Parameter
	if app != "" {
		params = append(params, reports.Parameter{Name: "app_name", Value: app})
	}
	if action != "" {
		params = append(params, reports.Parameter{Name: "action", Value: action})
	}
	if category != "" {
		params = append(params, reports.Parameter{Name: "event_category", Value: category})
	}
	return reports.Event{Name: "feature_utilization", Parameters: params}
}

func testWindow(t *testing.T) model.TimeWindow {
	t.Helper()
	return model.TimeWindow{
		Start:      mustTime(t, "2025-06-23T00:00:00Z"),
		End:        mustTime(t, "2025-06-30T00:00:00Z"),
		IsComplete: true,
		Label:      "Jun 23-29",
	}
}

func allAppsFilter() activity.Filter {
	return activity.NewAllAppsFilter([]string{"gemini_app", "gmail", "docs"})
}

func TestAggregate_Reduce(t *testing.T) {
	w := testWindow(t)
	items := []reports.Item{
		item("a@corp.com", "2025-06-23T10:00:00Z", event("gemini_app", "ask", "standalone")),
		item("b@corp.com", "2025-06-24T11:00:00Z", event("gmail", "help_me_write", "smart_compose")),
		item("a@corp.com", "2025-06-25T09:00:00Z",
			event("docs", "help_me_write", "docs_ai"),
			event("gmail", "summarize", "smart_compose"),
		),
	}
	ff := &fakeFetcher{results: map[time.Time]reports.Result{w.Start: {Items: items, Pages: 1}}}

	agg := NewAggregator(ff, allAppsFilter(), "feature_utilization", 1000, true)
	stats := agg.Aggregate(context.Background(), w)

	if stats.TotalActivities != 4 {
		t.Errorf("TotalActivities = %d, want 4", stats.TotalActivities)
	}
	if stats.UniqueUsers != 2 {
		t.Errorf("UniqueUsers = %d, want 2", stats.UniqueUsers)
	}
	if got := len(stats.UserList); got != stats.UniqueUsers {
		t.Errorf("len(UserList) = %d, want %d", got, stats.UniqueUsers)
	}

	sumActions, sumCategories := 0, 0
	for _, n := range stats.Actions {
		sumActions += n
	}
	for _, n := range stats.Categories {
		sumCategories += n
	}
	if sumActions != stats.TotalActivities || sumCategories != stats.TotalActivities {
		t.Errorf("count invariant broken: total=%d actions=%d categories=%d",
			stats.TotalActivities, sumActions, sumCategories)
	}

	if stats.Actions["help_me_write"] != 2 {
		t.Errorf("Actions[help_me_write] = %d, want 2", stats.Actions["help_me_write"])
	}

	gmail := stats.AppsBreakdown["gmail"]
	if gmail == nil || gmail.ActivityCount != 2 || gmail.UniqueUsers != 2 {
		t.Errorf("gmail breakdown = %+v, want 2 activities from 2 users", gmail)
	}
}

func TestAggregate_OrderIndependent(t *testing.T) {
	w := testWindow(t)
	items := []reports.Item{
		item("a@corp.com", "2025-06-23T10:00:00Z", event("gemini_app", "ask", "standalone")),
		item("c@corp.com", "2025-06-24T11:00:00Z", event("gmail", "summarize", "smart_compose")),
		item("b@corp.com", "2025-06-25T09:00:00Z", event("docs", "help_me_write", "docs_ai")),
	}
	reversed := []reports.Item{items[2], items[1], items[0]}

	run := func(in []reports.Item) model.WeekStats {
		ff := &fakeFetcher{results: map[time.Time]reports.Result{w.Start: {Items: in, Pages: 2}}}
		agg := NewAggregator(ff, allAppsFilter(), "feature_utilization", 1000, true)
		return agg.Aggregate(context.Background(), w)
	}

	forward := run(items)
	backward := run(reversed)
	if !reflect.DeepEqual(forward, backward) {
		t.Errorf("aggregation depends on record order:\nforward:  %+v\nbackward: %+v", forward, backward)
	}
}

func TestAggregate_SingleAppFilter(t *testing.T) {
	w := testWindow(t)
	items := []reports.Item{
		item("a@corp.com", "2025-06-23T10:00:00Z", event("gemini_app", "ask", "standalone")),
		item("b@corp.com", "2025-06-24T11:00:00Z", event("gmail", "help_me_write", "smart_compose")),
	}
	ff := &fakeFetcher{results: map[time.Time]reports.Result{w.Start: {Items: items, Pages: 1}}}

	agg := NewAggregator(ff, activity.NewSingleAppFilter("gemini_app"), "feature_utilization", 1000, false)
	stats := agg.Aggregate(context.Background(), w)

	// The predicate is authoritative even though the fake server returned
	// an unfiltered page.
	if stats.TotalActivities != 1 || stats.UniqueUsers != 1 {
		t.Errorf("stats = %d activities / %d users, want 1/1", stats.TotalActivities, stats.UniqueUsers)
	}
	if stats.AppsBreakdown != nil {
		t.Error("single-app mode should not build an apps breakdown")
	}

	// The server-side filter is still pushed for efficiency.
	if got := ff.queries[0].Filters; got != "app_name==gemini_app" {
		t.Errorf("query filter = %q, want %q", got, "app_name==gemini_app")
	}
}

func TestAggregate_UnknownDefaults(t *testing.T) {
	w := testWindow(t)
	items := []reports.Item{
		item("", "2025-06-23T10:00:00Z", reports.Event{Name: "feature_utilization"}),
	}
	ff := &fakeFetcher{results: map[time.Time]reports.Result{w.Start: {Items: items, Pages: 1}}}

	agg := NewAggregator(ff, activity.Filter{}, "feature_utilization", 1000, false)
	stats := agg.Aggregate(context.Background(), w)

	if stats.Actions[model.Unknown] != 1 || stats.Categories[model.Unknown] != 1 {
		t.Errorf("missing parameters should count under %q, got %+v / %+v",
			model.Unknown, stats.Actions, stats.Categories)
	}
	if len(stats.UserList) != 1 || stats.UserList[0] != model.Unknown {
		t.Errorf("missing actor email should become %q, got %v", model.Unknown, stats.UserList)
	}
}

func TestAggregate_FetchFailureDegrades(t *testing.T) {
	w := testWindow(t)
	ff := &fakeFetcher{results: map[time.Time]reports.Result{
		w.Start: {Err: errors.New("activity feed returned 403: forbidden"), Pages: 1},
	}}

	agg := NewAggregator(ff, allAppsFilter(), "feature_utilization", 1000, true)
	stats := agg.Aggregate(context.Background(), w)

	if stats.TotalActivities != 0 || stats.UniqueUsers != 0 {
		t.Errorf("failed window should zero out, got %+v", stats)
	}
	if stats.FetchError == "" {
		t.Error("failed window must carry its fetch error")
	}
	if !stats.Truncated {
		t.Error("failed window must be flagged truncated")
	}
}

func TestAggregate_PartialPageFailureKeepsAccumulated(t *testing.T) {
	w := testWindow(t)
	ff := &fakeFetcher{results: map[time.Time]reports.Result{
		w.Start: {
			Items: []reports.Item{item("a@corp.com", "2025-06-23T10:00:00Z", event("gmail", "summarize", "smart_compose"))},
			Pages: 2,
			Err:   errors.New("activity feed returned 500: boom"),
		},
	}}

	agg := NewAggregator(ff, allAppsFilter(), "feature_utilization", 1000, false)
	stats := agg.Aggregate(context.Background(), w)

	if stats.TotalActivities != 1 {
		t.Errorf("partial data should survive, got %d activities", stats.TotalActivities)
	}
	if stats.FetchError == "" || !stats.Truncated {
		t.Errorf("partial window must be flagged, got error=%q truncated=%v", stats.FetchError, stats.Truncated)
	}
}
