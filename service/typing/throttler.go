package typing

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DefaultCooldown 入力開始イベントの最小送信間隔
const DefaultCooldown = 3000 * time.Millisecond

var throttledCounter = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "hibiki",
	Name:      "typing_throttled_total",
})

type key struct {
	userID string
	roomID string
}

// Throttler (ユーザー, ルーム)ごとの入力中イベントの間引き
type Throttler struct {
	cooldown time.Duration
	ttl      time.Duration
	now      func() time.Time

	mu   sync.Mutex
	last map[key]time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// NewThrottler Throttlerを生成します
func NewThrottler(cooldown time.Duration) *Throttler {
	return newThrottler(cooldown, time.Now)
}

func newThrottler(cooldown time.Duration, now func() time.Time) *Throttler {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	t := &Throttler{
		cooldown: cooldown,
		ttl:      10 * cooldown,
		now:      now,
		last:     map[key]time.Time{},
		stop:     make(chan struct{}),
	}
	go t.gcLoop()
	return t
}

// Observe 入力状態イベントを記録し、間引くべきかどうかを返します
//
// typing=trueの場合、前回から cooldown 未満であれば間引きます。どちらの場合も時刻は更新されます。
// typing=falseの場合は間引かず、記録された時刻を消去します。
func (t *Throttler) Observe(userID, roomID string, typing bool) (throttled bool) {
	k := key{userID: userID, roomID: roomID}
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	if !typing {
		delete(t.last, k)
		return false
	}

	last, ok := t.last[k]
	t.last[k] = now
	if ok && now.Sub(last) < t.cooldown {
		throttledCounter.Inc()
		return true
	}
	return false
}

// Len 記録中のキー数
func (t *Throttler) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.last)
}

// Close gcを停止します
func (t *Throttler) Close() {
	t.stopOnce.Do(func() { close(t.stop) })
}

func (t *Throttler) gcLoop() {
	ticker := time.NewTicker(t.ttl / 2)
	defer ticker.Stop()
	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			t.gc(t.now())
		}
	}
}

func (t *Throttler) gc(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for k, last := range t.last {
		if now.Sub(last) > t.ttl {
			delete(t.last, k)
		}
	}
}
