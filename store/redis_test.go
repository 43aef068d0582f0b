package store

import (
	"context"
	"testing"
	"time"

	"ai-scorecard/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

func testRedisStore(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRedis(client, "scorecard", 5*time.Second), mr
}

func testEntry(label string, activities int) model.CacheEntry {
	stats := model.NewWeekStats(label, false)
	stats.TotalActivities = activities
	stats.UniqueUsers = 1
	stats.UserList = []string{"a@corp.com"}
	stats.Actions["ask"] = activities
	stats.Categories["standalone"] = activities
	return model.CacheEntry{
		WindowLabel: label,
		StartTime:   time.Date(2025, 6, 23, 0, 0, 0, 0, time.UTC),
		EndTime:     time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
		FetchedAt:   time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC),
		Stats:       stats,
	}
}

func TestRedis_HistoricalRoundTrip(t *testing.T) {
	st, _ := testRedisStore(t)
	ctx := context.Background()

	if _, ok, err := st.GetHistorical(ctx, "Jun 23-29"); ok || err != nil {
		t.Fatalf("GetHistorical on empty store = %v, %v", ok, err)
	}

	if err := st.PutHistorical(ctx, testEntry("Jun 23-29", 7)); err != nil {
		t.Fatalf("PutHistorical() error = %v", err)
	}

	entry, ok, err := st.GetHistorical(ctx, "Jun 23-29")
	if err != nil || !ok {
		t.Fatalf("GetHistorical() = %v, %v", ok, err)
	}
	if entry.Stats.TotalActivities != 7 {
		t.Errorf("TotalActivities = %d, want 7", entry.Stats.TotalActivities)
	}
	if entry.Stats.Actions["ask"] != 7 {
		t.Errorf("Actions[ask] = %d, want 7", entry.Stats.Actions["ask"])
	}
}

func TestRedis_HistoricalFirstWriteWins(t *testing.T) {
	st, _ := testRedisStore(t)
	ctx := context.Background()

	if err := st.PutHistorical(ctx, testEntry("Jun 23-29", 7)); err != nil {
		t.Fatalf("PutHistorical() error = %v", err)
	}
	// A later writer must not replace the entry.
	if err := st.PutHistorical(ctx, testEntry("Jun 23-29", 999)); err != nil {
		t.Fatalf("second PutHistorical() error = %v", err)
	}

	entry, _, _ := st.GetHistorical(ctx, "Jun 23-29")
	if entry.Stats.TotalActivities != 7 {
		t.Errorf("TotalActivities = %d, first write must win", entry.Stats.TotalActivities)
	}
}

func TestRedis_CurrentOverwrites(t *testing.T) {
	st, _ := testRedisStore(t)
	ctx := context.Background()

	if _, ok, err := st.GetCurrent(ctx); ok || err != nil {
		t.Fatalf("GetCurrent on empty store = %v, %v", ok, err)
	}

	if err := st.PutCurrent(ctx, testEntry("Jun 30-Current (Live)", 3)); err != nil {
		t.Fatalf("PutCurrent() error = %v", err)
	}
	if err := st.PutCurrent(ctx, testEntry("Jun 30-Current (Live)", 9)); err != nil {
		t.Fatalf("second PutCurrent() error = %v", err)
	}

	entry, ok, err := st.GetCurrent(ctx)
	if err != nil || !ok {
		t.Fatalf("GetCurrent() = %v, %v", ok, err)
	}
	if entry.Stats.TotalActivities != 9 {
		t.Errorf("TotalActivities = %d, current slot must be last-write-wins", entry.Stats.TotalActivities)
	}
}

func TestRedis_CorruptEntryIsAMiss(t *testing.T) {
	st, mr := testRedisStore(t)
	ctx := context.Background()

	mr.HSet("scorecard:historical_weeks", "Jun 23-29", "{not json")
	if _, ok, err := st.GetHistorical(ctx, "Jun 23-29"); ok || err != nil {
		t.Errorf("corrupt entry should read as a plain miss, got ok=%v err=%v", ok, err)
	}

	mr.Set("scorecard:current_week", "also not json")
	if _, ok, err := st.GetCurrent(ctx); ok || err != nil {
		t.Errorf("corrupt current entry should read as a plain miss, got ok=%v err=%v", ok, err)
	}
}

func TestRedis_PrefixesIsolateTrackers(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	scorecard := NewRedis(client, "scorecard", 5*time.Second)
	deepDive := NewRedis(client, "deepdive", 5*time.Second)
	ctx := context.Background()

	if err := scorecard.PutHistorical(ctx, testEntry("Jun 23-29", 7)); err != nil {
		t.Fatalf("PutHistorical() error = %v", err)
	}
	if _, ok, _ := deepDive.GetHistorical(ctx, "Jun 23-29"); ok {
		t.Error("trackers must not see each other's cache entries")
	}
}
