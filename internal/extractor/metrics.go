package extractor

import (
	"sync"
	"time"
)

// WebsiteMetrics holds counters for one retailer within a run
type WebsiteMetrics struct {
	WebsiteName string
	Attempted   int
	Succeeded   int
	Failed      int
	LastError   string
}

// MetricsCollector aggregates extraction outcomes per website across a run
type MetricsCollector struct {
	mu          sync.RWMutex
	currentRun  map[string]*WebsiteMetrics
	lastRun     map[string]*WebsiteMetrics
	totalRuns   int
	lastRunTime time.Time
}

// NewMetricsCollector creates a new MetricsCollector
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		currentRun: make(map[string]*WebsiteMetrics),
		lastRun:    make(map[string]*WebsiteMetrics),
	}
}

func (mc *MetricsCollector) forWebsite(websiteName string) *WebsiteMetrics {
	m, ok := mc.currentRun[websiteName]
	if !ok {
		m = &WebsiteMetrics{WebsiteName: websiteName}
		mc.currentRun[websiteName] = m
	}
	return m
}

// RecordAttempt records that a record was dispatched to an extractor
func (mc *MetricsCollector) RecordAttempt(websiteName string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.forWebsite(websiteName).Attempted++
}

// RecordSuccess records a successful extraction
func (mc *MetricsCollector) RecordSuccess(websiteName string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.forWebsite(websiteName).Succeeded++
}

// RecordFailure records a failed extraction
func (mc *MetricsCollector) RecordFailure(websiteName string, err error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	m := mc.forWebsite(websiteName)
	m.Failed++
	if err != nil {
		m.LastError = err.Error()
	}
}

// FinishRun rolls the current counters into the last-run snapshot
func (mc *MetricsCollector) FinishRun() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.lastRun = mc.currentRun
	mc.currentRun = make(map[string]*WebsiteMetrics)
	mc.totalRuns++
	mc.lastRunTime = time.Now()
}

// LastRun returns a copy of the most recent finished run's counters
func (mc *MetricsCollector) LastRun() []WebsiteMetrics {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	out := make([]WebsiteMetrics, 0, len(mc.lastRun))
	for _, m := range mc.lastRun {
		out = append(out, *m)
	}
	return out
}

// TotalRuns returns the number of finished runs
func (mc *MetricsCollector) TotalRuns() int {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return mc.totalRuns
}
