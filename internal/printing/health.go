package printing

import (
	"sync"
	"time"
)

// Health tracks print attempt outcomes for the metrics endpoint. It only
// observes: printing is a single attempt per sale with no gating, so
// unlike a circuit breaker these counters never block a print.
type Health struct {
	mutex        sync.RWMutex
	successCount int64
	failureCount int64
	lastError    string
	lastAttempt  time.Time
}

func NewHealth() *Health {
	return &Health{}
}

func (h *Health) RecordSuccess() {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.successCount++
	h.lastError = ""
	h.lastAttempt = time.Now()
}

func (h *Health) RecordFailure(err error) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.failureCount++
	if err != nil {
		h.lastError = err.Error()
	}
	h.lastAttempt = time.Now()
}

func (h *Health) GetStats() map[string]interface{} {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	stats := map[string]interface{}{
		"success_count": h.successCount,
		"failure_count": h.failureCount,
	}
	if h.lastError != "" {
		stats["last_error"] = h.lastError
	}
	if !h.lastAttempt.IsZero() {
		stats["last_attempt"] = h.lastAttempt.UTC().Format(time.RFC3339)
	}
	return stats
}
