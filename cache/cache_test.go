package cache

import (
	"testing"
	"time"

	"ai-scorecard/config"
)

func TestReportCacheBasicOperations(t *testing.T) {
	cfg := config.CacheConfig{
		Enabled:     true,
		MaxSizeMB:   10,
		TTLSeconds:  60,
		CounterSize: 1000,
	}

	c, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	defer c.Close()

	t.Run("Set_and_Get", func(t *testing.T) {
		doc := []byte(`{"summary":{"total_cumulative_users":42}}`)
		if ok := c.Set("report:scorecard", doc); !ok {
			t.Error("Failed to set document in cache")
		}

		// Wait for async admission
		time.Sleep(10 * time.Millisecond)

		got, found := c.Get("report:scorecard")
		if !found {
			t.Fatal("Document not found in cache")
		}
		if string(got) != string(doc) {
			t.Errorf("Got %s, want %s", got, doc)
		}
	})

	t.Run("Get_NonExistent", func(t *testing.T) {
		if _, found := c.Get("report:nope"); found {
			t.Error("Expected key not to be found")
		}
	})
}

func TestReportCacheTTL(t *testing.T) {
	cfg := config.CacheConfig{
		Enabled:     true,
		MaxSizeMB:   10,
		TTLSeconds:  1,
		CounterSize: 1000,
	}

	c, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	defer c.Close()

	c.Set("report:scorecard", []byte("{}"))
	time.Sleep(10 * time.Millisecond)

	if _, found := c.Get("report:scorecard"); !found {
		t.Fatal("Document should exist before TTL expires")
	}

	time.Sleep(1100 * time.Millisecond)
	if _, found := c.Get("report:scorecard"); found {
		t.Error("Document should have expired")
	}
}

func TestNilCacheIsSafe(t *testing.T) {
	var c *ReportCache

	if _, found := c.Get("anything"); found {
		t.Error("nil cache must miss")
	}
	if ok := c.Set("anything", []byte("{}")); ok {
		t.Error("nil cache must reject writes")
	}
	c.Close()

	if snap := c.Snapshot(); snap.Hits != 0 {
		t.Errorf("nil cache snapshot = %+v", snap)
	}
}
