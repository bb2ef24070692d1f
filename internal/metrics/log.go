package metrics

import (
	"time"

	"github.com/systmms/secretcache/internal/breaker"
	"github.com/systmms/secretcache/internal/classify"
	"github.com/systmms/secretcache/internal/logging"
)

// Log writes every event as a debug line, except breaker transitions which
// are logged at warn level when opening and info level otherwise.
type Log struct {
	logger *logging.Logger
}

// NewLog returns an observer writing to logger.
func NewLog(logger *logging.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) CacheHit(store string) {
	l.logger.WithField("store", store).Debug("Cache hit")
}

func (l *Log) CacheMiss(store string) {
	l.logger.WithField("store", store).Debug("Cache miss")
}

func (l *Log) Success(store string, latency time.Duration) {
	l.logger.WithField("store", store).Debug("Recorded successful request (latency: %dms)", latency.Milliseconds())
}

func (l *Log) NotFound(store string, latency time.Duration) {
	l.logger.WithField("store", store).Debug("Recorded not found request (latency: %dms)", latency.Milliseconds())
}

func (l *Log) Error(store string, latency time.Duration, category classify.Category) {
	l.logger.WithField("store", store).Debug("Recorded failed request - category: %s, latency: %dms", category, latency.Milliseconds())
}

func (l *Log) RetryAttempt(store string, attempt int, category classify.Category) {
	l.logger.WithField("store", store).Debug("Retry attempt %d after %s", attempt, category)
}

func (l *Log) BreakerStateChanged(store string, state breaker.State) {
	entry := l.logger.WithField("store", store)
	if state == breaker.StateOpen {
		entry.Warn("Circuit breaker opened; requests fail fast until recovery")
		return
	}
	entry.Info("Circuit breaker is now %s", state)
}
