package twincore

import (
	"math/rand/v2"
	"sync"
	"time"
)

// RequestLogEntry is one request as seen by the admin plane.
type RequestLogEntry struct {
	Timestamp  time.Time         `json:"timestamp"`
	Method     string            `json:"method"`
	Path       string            `json:"path"`
	Headers    map[string]string `json:"headers,omitempty"`
	StatusCode int               `json:"status_code"`
	Duration   time.Duration     `json:"duration_ns"`
	RequestID  string            `json:"request_id,omitempty"`
}

// RequestLog is a bounded ring of recent requests.
type RequestLog struct {
	mu      sync.RWMutex
	entries []RequestLogEntry
	maxSize int
}

func NewRequestLog(maxSize int) *RequestLog {
	return &RequestLog{
		entries: make([]RequestLogEntry, 0, maxSize),
		maxSize: maxSize,
	}
}

// Add appends entry, evicting the oldest once full.
func (rl *RequestLog) Add(entry RequestLogEntry) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if len(rl.entries) >= rl.maxSize {
		rl.entries = rl.entries[1:]
	}
	rl.entries = append(rl.entries, entry)
}

// Entries returns a copy of the log, oldest first.
func (rl *RequestLog) Entries() []RequestLogEntry {
	rl.mu.RLock()
	defer rl.mu.RUnlock()
	out := make([]RequestLogEntry, len(rl.entries))
	copy(out, rl.entries)
	return out
}

func (rl *RequestLog) Clear() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.entries = rl.entries[:0]
}

// FaultConfig is an injected failure for one path.
type FaultConfig struct {
	StatusCode int           `json:"status_code"`
	Body       string        `json:"body,omitempty"`
	Delay      time.Duration `json:"delay_ms,omitempty"`
	Rate       float64       `json:"rate"` // 0.0-1.0
}

// FaultRegistry maps request paths to injected faults.
type FaultRegistry struct {
	mu     sync.RWMutex
	faults map[string]FaultConfig
}

func NewFaultRegistry() *FaultRegistry {
	return &FaultRegistry{faults: make(map[string]FaultConfig)}
}

// Set registers fault for path. A zero rate means always.
func (fr *FaultRegistry) Set(path string, fault FaultConfig) {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	if fault.Rate == 0 {
		fault.Rate = 1.0
	}
	fr.faults[path] = fault
}

// Remove deletes the fault for path and reports whether one existed.
func (fr *FaultRegistry) Remove(path string) bool {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	_, existed := fr.faults[path]
	delete(fr.faults, path)
	return existed
}

// Check returns the fault to apply to path, or nil.
func (fr *FaultRegistry) Check(path string) *FaultConfig {
	fr.mu.RLock()
	defer fr.mu.RUnlock()
	if f, ok := fr.faults[path]; ok {
		if f.Rate >= 1.0 || rand.Float64() < f.Rate {
			return &f
		}
	}
	return nil
}

func (fr *FaultRegistry) All() map[string]FaultConfig {
	fr.mu.RLock()
	defer fr.mu.RUnlock()
	out := make(map[string]FaultConfig, len(fr.faults))
	for k, v := range fr.faults {
		out[k] = v
	}
	return out
}

func (fr *FaultRegistry) Reset() {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	fr.faults = make(map[string]FaultConfig)
}

// IdempotencyTracker caches responses by idempotency key.
type IdempotencyTracker struct {
	mu      sync.RWMutex
	entries map[string]idempotencyEntry
}

type idempotencyEntry struct {
	StatusCode int
	Body       []byte
	CreatedAt  time.Time
}

func NewIdempotencyTracker() *IdempotencyTracker {
	return &IdempotencyTracker{entries: make(map[string]idempotencyEntry)}
}

// Check returns the cached response for key.
func (it *IdempotencyTracker) Check(key string) (int, []byte, bool) {
	it.mu.RLock()
	defer it.mu.RUnlock()
	if e, ok := it.entries[key]; ok {
		return e.StatusCode, e.Body, true
	}
	return 0, nil, false
}

// Store caches a response under key.
func (it *IdempotencyTracker) Store(key string, statusCode int, body []byte) {
	it.mu.Lock()
	defer it.mu.Unlock()
	it.entries[key] = idempotencyEntry{
		StatusCode: statusCode,
		Body:       append([]byte(nil), body...),
		CreatedAt:  time.Now(),
	}
}

// Len reports the number of cached keys.
func (it *IdempotencyTracker) Len() int {
	it.mu.RLock()
	defer it.mu.RUnlock()
	return len(it.entries)
}

func (it *IdempotencyTracker) Reset() {
	it.mu.Lock()
	defer it.mu.Unlock()
	it.entries = make(map[string]idempotencyEntry)
}
