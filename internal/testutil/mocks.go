package testutil

import (
	"sync"
	"time"
	"viewguard/internal/providers"
)

// MockLogger implements providers.Logger and records calls.
type MockLogger struct {
	mu   sync.Mutex
	Logs []LogEntry
}

type LogEntry struct {
	Level  string
	Type   providers.TypeEnum
	Format string
	Args   []interface{}
}

func (m *MockLogger) record(level string, t providers.TypeEnum, format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Logs = append(m.Logs, LogEntry{Level: level, Type: t, Format: format, Args: args})
}

func (m *MockLogger) Errorf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("error", t, format, args...)
}
func (m *MockLogger) Warnf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("warn", t, format, args...)
}
func (m *MockLogger) Debugf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("debug", t, format, args...)
}
func (m *MockLogger) Infof(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("info", t, format, args...)
}
func (m *MockLogger) Fatalf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("fatal", t, format, args...)
}
func (m *MockLogger) Close() {}

// Count returns how many entries were logged at level on channel t.
func (m *MockLogger) Count(level string, t providers.TypeEnum) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.Logs {
		if e.Level == level && e.Type == t {
			n++
		}
	}
	return n
}

// MockMetrics implements providers.MetricsProviderInterface and counts calls.
type MockMetrics struct {
	mu            sync.Mutex
	Requests      map[string]int
	CacheHits     int
	CacheMisses   int
	TokensIssued  int
	IssueDenied   map[string]int
	Outcomes      map[string]int
	CheckFailures map[string]int
	Alerts        map[string]int
	LastViews     int64
}

func NewMockMetrics() *MockMetrics {
	return &MockMetrics{
		Requests:      map[string]int{},
		IssueDenied:   map[string]int{},
		Outcomes:      map[string]int{},
		CheckFailures: map[string]int{},
		Alerts:        map[string]int{},
	}
}

func (m *MockMetrics) IncRequestsTotal(endpoint string, _ int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests[endpoint]++
}

func (m *MockMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}

func (m *MockMetrics) IncCacheHits() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheHits++
}

func (m *MockMetrics) IncCacheMisses() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheMisses++
}

func (m *MockMetrics) IncViewTokensIssued() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TokensIssued++
}

func (m *MockMetrics) IncViewTokenIssueDenied(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.IssueDenied[reason]++
}

func (m *MockMetrics) IncViewOutcome(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Outcomes[reason]++
}

func (m *MockMetrics) IncAntifraudCheckFailure(check string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CheckFailures[check]++
}

func (m *MockMetrics) SetPromptViews(views int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastViews = views
}

func (m *MockMetrics) IncAntifraudAlert(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Alerts[kind]++
}

// MockCache implements providers.CacheProviderInterface.
type MockCache struct {
	mu   sync.Mutex
	Data map[string][]byte
}

func NewMockCache() *MockCache {
	return &MockCache{Data: make(map[string][]byte)}
}

func (m *MockCache) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.Data[key]
	return val, ok
}

func (m *MockCache) Set(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Data[key] = value
}

func (m *MockCache) Del(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Data, key)
}
