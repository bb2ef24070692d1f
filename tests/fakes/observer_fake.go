package fakes

import (
	"fmt"
	"sync"
	"time"

	"github.com/systmms/secretcache/internal/breaker"
	"github.com/systmms/secretcache/internal/classify"
)

// RecordingObserver records resolver events as short strings:
// "cache_hit", "cache_miss", "success", "not_found", "error:<category>",
// "retry:<attempt>:<category>" and "breaker:<state>".
type RecordingObserver struct {
	mu        sync.Mutex
	events    []string
	latencies []time.Duration
}

// NewRecordingObserver returns an empty recorder.
func NewRecordingObserver() *RecordingObserver {
	return &RecordingObserver{}
}

func (r *RecordingObserver) add(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *RecordingObserver) addTimed(event string, latency time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	r.latencies = append(r.latencies, latency)
}

func (r *RecordingObserver) CacheHit(string)  { r.add("cache_hit") }
func (r *RecordingObserver) CacheMiss(string) { r.add("cache_miss") }

func (r *RecordingObserver) Success(_ string, latency time.Duration) {
	r.addTimed("success", latency)
}

func (r *RecordingObserver) NotFound(_ string, latency time.Duration) {
	r.addTimed("not_found", latency)
}

func (r *RecordingObserver) Error(_ string, latency time.Duration, category classify.Category) {
	r.addTimed("error:"+category.String(), latency)
}

func (r *RecordingObserver) RetryAttempt(_ string, attempt int, category classify.Category) {
	r.add(fmt.Sprintf("retry:%d:%s", attempt, category))
}

func (r *RecordingObserver) BreakerStateChanged(_ string, state breaker.State) {
	r.add("breaker:" + state.String())
}

// Events returns a copy of everything recorded so far.
func (r *RecordingObserver) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

// Latencies returns the latencies of success, not_found and error events.
func (r *RecordingObserver) Latencies() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.latencies...)
}

// Count returns how many times event was recorded.
func (r *RecordingObserver) Count(event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e == event {
			n++
		}
	}
	return n
}

// Reset forgets everything recorded.
func (r *RecordingObserver) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
	r.latencies = nil
}
