package throttle

import (
	"sync"
	"time"

	"github.com/boz/go-throttle"
)

// ThrottleMap coalesces triggers per key. The callback runs at most once per
// interval for each key, on the trailing edge.
type ThrottleMap[K comparable] struct {
	throttles map[K]*throttleEntry
	interval  time.Duration
	ttl       time.Duration
	mu        sync.Mutex
	callback  func(K)
	stop      chan struct{}
	stopOnce  sync.Once
}

type throttleEntry struct {
	driver        throttle.ThrottleDriver
	lastTriggered time.Time
}

// NewThrottleMap creates a new ThrottleMap and starts its gc loop.
// Keys that have not been triggered for ttl are dropped.
func NewThrottleMap[K comparable](interval, ttl time.Duration, callback func(K)) *ThrottleMap[K] {
	t := &ThrottleMap[K]{
		throttles: make(map[K]*throttleEntry),
		interval:  interval,
		ttl:       ttl,
		callback:  callback,
		stop:      make(chan struct{}),
	}
	go t.gcLoop()
	return t
}

// Trigger schedules the callback for key.
func (tm *ThrottleMap[K]) Trigger(key K) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	entry, exists := tm.throttles[key]
	if !exists {
		entry = &throttleEntry{
			driver: throttle.ThrottleFunc(tm.interval, true, func() {
				tm.callback(key)
			}),
		}
		tm.throttles[key] = entry
	}
	entry.lastTriggered = time.Now()
	entry.driver.Trigger()
}

// Len returns the number of tracked keys.
func (tm *ThrottleMap[K]) Len() int {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return len(tm.throttles)
}

// Stop stops every pending throttle and the gc loop.
func (tm *ThrottleMap[K]) Stop() {
	tm.stopOnce.Do(func() {
		close(tm.stop)
		tm.mu.Lock()
		defer tm.mu.Unlock()
		for key, entry := range tm.throttles {
			entry.driver.Stop()
			delete(tm.throttles, key)
		}
	})
}

func (tm *ThrottleMap[K]) gcLoop() {
	ticker := time.NewTicker(tm.ttl / 2)
	defer ticker.Stop()
	for {
		select {
		case <-tm.stop:
			return
		case now := <-ticker.C:
			tm.gc(now)
		}
	}
}

func (tm *ThrottleMap[K]) gc(now time.Time) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	for key, entry := range tm.throttles {
		if now.Sub(entry.lastTriggered) > tm.ttl {
			entry.driver.Stop()
			delete(tm.throttles, key)
		}
	}
}
