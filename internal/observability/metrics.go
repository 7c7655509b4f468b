package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu            sync.Mutex
	requestCount  map[string]int64
	requestTime   map[string]time.Duration
	errorCount    map[string]int64
	notifications map[string]int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount:  make(map[string]int64),
		requestTime:   make(map[string]time.Duration),
		errorCount:    make(map[string]int64),
		notifications: make(map[string]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, strconv.Itoa(status))
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
	m.requestTime[key] += duration
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := pathKey(path, method, code)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordNotification counts notification deliveries by event type and outcome.
func (m *Metrics) RecordNotification(eventType string, delivered bool) {
	if m == nil {
		return
	}
	outcome := "failed"
	if delivered {
		outcome = "delivered"
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications[eventType+"|"+outcome]++
}

// RequestCount returns how many requests finished with status.
func (m *Metrics) RequestCount(path, method string, status int) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requestCount[pathKey(path, method, strconv.Itoa(status))]
}

// AverageLatency returns the mean latency of requests finished with status.
func (m *Metrics) AverageLatency(path, method string, status int) time.Duration {
	key := pathKey(path, method, strconv.Itoa(status))
	m.mu.Lock()
	defer m.mu.Unlock()
	count := m.requestCount[key]
	if count == 0 {
		return 0
	}
	return m.requestTime[key] / time.Duration(count)
}

// ErrorCount returns how many requests failed with code.
func (m *Metrics) ErrorCount(path, method, code string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errorCount[pathKey(path, method, code)]
}

// NotificationCount returns delivery counters for eventType.
func (m *Metrics) NotificationCount(eventType string, delivered bool) int64 {
	outcome := "failed"
	if delivered {
		outcome = "delivered"
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.notifications[eventType+"|"+outcome]
}

func pathKey(path, method, suffix string) string {
	return path + "|" + method + "|" + suffix
}
