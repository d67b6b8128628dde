package observability

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/fynix-backend/internal/platform/envutil"
	"github.com/yungbote/fynix-backend/internal/platform/logger"
)

type Metrics struct {
	apiRequests *series
	apiLatency  *histogramVec
	apiInflight *series
	apiErrors   *series

	aiRequests *series
	aiLatency  *histogramVec

	fallbacks *series
	refills   *series
	quizzes   *series
	answers   *series
	dbStats   *series
	redisUp   *series
	redisPing *series
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	return envutil.Bool("METRICS_ENABLED", false)
}

// Current returns the process metrics, or nil when disabled. Every method
// is nil-safe.
func Current() *Metrics {
	return instance
}

func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = newMetrics()
		if log != nil {
			log.Info("metrics enabled")
		}
	})
	return instance
}

func newMetrics() *Metrics {
	latency := []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30}
	return &Metrics{
		apiRequests: newCounter("fx_api_requests_total", "Total API requests by method/route/status.", "method", "route", "status"),
		apiLatency:  newHistogram("fx_api_request_duration_seconds", "API request latency in seconds.", latency, "method", "route", "status"),
		apiInflight: newGauge("fx_api_inflight_requests", "In-flight API requests."),
		apiErrors:   newCounter("fx_api_server_errors_total", "API responses with a 5xx status."),
		aiRequests:  newCounter("fx_ai_requests_total", "Upstream AI calls by provider/operation/status.", "provider", "op", "status"),
		aiLatency:   newHistogram("fx_ai_request_duration_seconds", "Upstream AI call latency in seconds.", latency, "provider", "op"),
		fallbacks:   newCounter("fx_fallback_total", "Fallback tier activations by component/reason.", "component", "reason"),
		refills:     newCounter("fx_feed_refills_total", "Feed buffer refills by outcome.", "outcome"),
		quizzes:     newCounter("fx_quiz_sessions_total", "Material quiz sessions by input kind and result.", "input", "result"),
		answers:     newCounter("fx_answers_total", "Answered questions by surface and correctness.", "surface", "correct"),
		dbStats:     newGauge("fx_db_pool", "Database pool statistics.", "stat"),
		redisUp:     newGauge("fx_redis_up", "Redis reachability (1 up, 0 down)."),
		redisPing:   newGauge("fx_redis_ping_seconds", "Last Redis ping latency in seconds."),
	}
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, _ *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

type promWriter interface {
	WritePrometheus(w io.Writer) error
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, c := range []promWriter{
		m.apiRequests, m.apiLatency, m.apiInflight, m.apiErrors,
		m.aiRequests, m.aiLatency,
		m.fallbacks, m.refills, m.quizzes, m.answers,
		m.dbStats, m.redisUp, m.redisPing,
	} {
		if err := c.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	method = orUnknown(method)
	route = orUnknown(route)
	if status == "" {
		status = "0"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route, status)
	if isServerErrorStatus(status) {
		m.apiErrors.Inc()
	}
}

func (m *Metrics) APIInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) APIInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

// ObserveAI records one upstream AI call. status is "ok" or "failed".
func (m *Metrics) ObserveAI(provider, op, status string, dur time.Duration) {
	if m == nil {
		return
	}
	provider, op = orUnknown(provider), orUnknown(op)
	m.aiRequests.Inc(provider, op, orUnknown(status))
	if dur > 0 {
		m.aiLatency.Observe(dur.Seconds(), provider, op)
	}
}

// IncFallback counts a fallback tier taking over, e.g. ("quiz", "too_few_items").
func (m *Metrics) IncFallback(component, reason string) {
	if m == nil {
		return
	}
	m.fallbacks.Inc(orUnknown(component), orUnknown(reason))
}

// IncRefill counts one feed buffer refill by how it ended: ok, empty, full,
// stale, timeout, canceled or failed.
func (m *Metrics) IncRefill(outcome string) {
	if m == nil {
		return
	}
	m.refills.Inc(orUnknown(outcome))
}

func (m *Metrics) IncQuizSession(input, result string) {
	if m == nil {
		return
	}
	m.quizzes.Inc(orUnknown(input), orUnknown(result))
}

func (m *Metrics) IncAnswer(surface string, correct bool) {
	if m == nil {
		return
	}
	c := "false"
	if correct {
		c = "true"
	}
	m.answers.Inc(orUnknown(surface), c)
}

func scrapeInterval() time.Duration {
	return envutil.Seconds("METRICS_SCRAPE_INTERVAL_SECONDS", 10*time.Second)
}

func (m *Metrics) StartDBCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	interval := scrapeInterval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sqlDB, err := db.DB()
				if err != nil {
					if log != nil {
						log.Warn("metrics: db stats unavailable", "error", err)
					}
					continue
				}
				stats := sqlDB.Stats()
				m.dbStats.Set(float64(stats.OpenConnections), "open_connections")
				m.dbStats.Set(float64(stats.InUse), "in_use")
				m.dbStats.Set(float64(stats.Idle), "idle")
				m.dbStats.Set(float64(stats.WaitCount), "wait_count")
				m.dbStats.Set(stats.WaitDuration.Seconds(), "wait_duration_seconds")
			}
		}
	}()
}

// StartRedisCollector pings rdb on the scrape interval. The client is owned
// by the caller.
func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb *redis.Client) {
	if m == nil || rdb == nil {
		return
	}
	interval := scrapeInterval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				start := time.Now()
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisUp.Set(0)
					if log != nil {
						log.Warn("metrics: redis ping failed", "error", err)
					}
					continue
				}
				m.redisUp.Set(1)
				m.redisPing.Set(time.Since(start).Seconds())
			}
		}
	}()
}

func orUnknown(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "unknown"
	}
	return s
}
