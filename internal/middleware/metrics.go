package middleware

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"
)

// Metrics holds process-wide counters for the API server.
type Metrics struct {
	RequestsTotal      atomic.Uint64
	RequestsInProgress atomic.Int64
	RequestsSuccess    atomic.Uint64
	RequestsFailed     atomic.Uint64
	AnalysesTotal      atomic.Uint64
	AnalysesFailed     atomic.Uint64
	ControlsAnalyzed   atomic.Uint64
	NotAnalyzed        atomic.Uint64
	StartTime          time.Time
}

func NewMetrics() *Metrics {
	return &Metrics{StartTime: time.Now()}
}

// RecordAnalysis counts a finished batch.
func (m *Metrics) RecordAnalysis(controls, notAnalyzed int) {
	m.AnalysesTotal.Add(1)
	m.ControlsAnalyzed.Add(uint64(controls))
	m.NotAnalyzed.Add(uint64(notAnalyzed))
}

// RecordAnalysisFailure counts a batch that returned an error.
func (m *Metrics) RecordAnalysisFailure() {
	m.AnalysesTotal.Add(1)
	m.AnalysesFailed.Add(1)
}

// Snapshot returns current metrics
func (m *Metrics) Snapshot() map[string]any {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return map[string]any{
		"requests_total":           m.RequestsTotal.Load(),
		"requests_in_progress":     m.RequestsInProgress.Load(),
		"requests_success":         m.RequestsSuccess.Load(),
		"requests_failed":          m.RequestsFailed.Load(),
		"analyses_total":           m.AnalysesTotal.Load(),
		"analyses_failed":          m.AnalysesFailed.Load(),
		"controls_analyzed":        m.ControlsAnalyzed.Load(),
		"dimensions_not_analyzed":  m.NotAnalyzed.Load(),
		"uptime_seconds":           time.Since(m.StartTime).Seconds(),
		"goroutines":               runtime.NumGoroutine(),
		"memory_alloc_bytes":       mem.Alloc,
		"memory_total_alloc_bytes": mem.TotalAlloc,
	}
}

// Middleware tracks request metrics
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.RequestsTotal.Add(1)
		m.RequestsInProgress.Add(1)
		defer m.RequestsInProgress.Add(-1)

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		if wrapped.statusCode >= 200 && wrapped.statusCode < 400 {
			m.RequestsSuccess.Add(1)
		} else {
			m.RequestsFailed.Add(1)
		}
	})
}

// Handler returns metrics as JSON
func (m *Metrics) Handler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(m.Snapshot())
}
