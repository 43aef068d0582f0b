package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"ai-scorecard/cache"
	"ai-scorecard/model"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
)

// report keys in the in-process cache
const (
	scorecardKey = "report:scorecard"
	deepDiveKey  = "report:deepdive"
)

// how long one aggregation run may take before the request gives up
const runTimeout = 120 * time.Second

// Runner produces an aggregate report; satisfied by *tracker.Tracker.
type Runner interface {
	Run(ctx context.Context) model.AggregateReport
}

// ReportHandler serves the dashboard API.
type ReportHandler struct {
	scorecard Runner
	deepDive  Runner
	reports   *cache.ReportCache
	redis     *redis.Client // nil when running on the in-memory store
}

func NewReportHandler(scorecard, deepDive Runner, reports *cache.ReportCache, rdb *redis.Client) *ReportHandler {
	return &ReportHandler{
		scorecard: scorecard,
		deepDive:  deepDive,
		reports:   reports,
		redis:     rdb,
	}
}

// GetScorecard handles GET /api/scorecard: the single-app weekly report.
func (h *ReportHandler) GetScorecard(w http.ResponseWriter, r *http.Request) {
	h.serveReport(w, r, scorecardKey, h.scorecard)
}

// GetDeepDive handles GET /api/deepdive: the all-apps weekly report.
func (h *ReportHandler) GetDeepDive(w http.ResponseWriter, r *http.Request) {
	h.serveReport(w, r, deepDiveKey, h.deepDive)
}

func (h *ReportHandler) serveReport(w http.ResponseWriter, r *http.Request, key string, runner Runner) {
	if data, found := h.reports.Get(key); found {
		writeJSONBytes(w, http.StatusOK, data)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), runTimeout)
	defer cancel()

	report := runner.Run(ctx)
	data, err := json.Marshal(report)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to encode report")
		return
	}

	// An errored run is served but not cached, so the next request retries.
	if report.Error == "" {
		h.reports.Set(key, data)
	}
	writeJSONBytes(w, http.StatusOK, data)
}

// HealthCheck handles GET /health.
func (h *ReportHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok", "cache_store": "memory"}
	code := http.StatusOK

	if h.redis != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.redis.Ping(ctx).Err(); err != nil {
			status["status"] = "degraded"
			status["cache_store"] = "redis: " + err.Error()
			code = http.StatusServiceUnavailable
		} else {
			status["cache_store"] = "redis"
		}
	}
	writeJSON(w, code, status)
}

// CacheMetrics handles GET /cache/metrics.
func (h *ReportHandler) CacheMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.reports.Snapshot())
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeJSONBytes(w http.ResponseWriter, statusCode int, data []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if _, err := w.Write(data); err != nil {
		log.Error().Err(err).Msg("Failed to write response")
	}
}

func writeJSONError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}
