package exevent

import (
	"sync"
	"time"

	"github.com/leandro-lugaresi/hub"

	"github.com/hibiki-social/hibiki/event"
	"github.com/hibiki-social/hibiki/service/call"
	"github.com/hibiki-social/hibiki/utils/throttle"
)

const eventPublishInterval = 1 * time.Second

const statsKey = "calls"

// StatsProvider 通話の集計元
type StatsProvider interface {
	Stats() call.Stats
}

// CallStatsThrottler 通話イベントをまとめてCallStatsUpdatedとして再発行します
type CallStatsThrottler struct {
	bus       *hub.Hub
	cm        StatsProvider
	throttles *throttle.ThrottleMap[string]
	sub       hub.Subscription
	stop      chan struct{}
	done      chan struct{}

	// mu 停止後にCallStatsUpdatedを発行しないためのロック
	mu     sync.RWMutex
	closed bool
}

func NewCallStatsThrottler(bus *hub.Hub, cm StatsProvider) *CallStatsThrottler {
	return newCallStatsThrottler(bus, cm, eventPublishInterval)
}

func newCallStatsThrottler(bus *hub.Hub, cm StatsProvider, interval time.Duration) *CallStatsThrottler {
	ct := &CallStatsThrottler{
		bus:  bus,
		cm:   cm,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	ct.throttles = throttle.NewThrottleMap(interval, 5*interval, ct.publishCallStatsUpdated)
	return ct
}

func (ct *CallStatsThrottler) Start() {
	ct.sub = ct.bus.Subscribe(100,
		event.CallIncoming,
		event.CallAccepted,
		event.CallRejected,
		event.CallEnded,
	)
	go ct.run()
}

func (ct *CallStatsThrottler) Close() {
	close(ct.stop)
	<-ct.done
	ct.throttles.Stop()

	// 実行中のコールバックの発行を待つ
	ct.mu.Lock()
	ct.closed = true
	ct.mu.Unlock()
}

func (ct *CallStatsThrottler) run() {
	defer close(ct.done)
	for {
		select {
		case <-ct.stop:
			event.Unsubscribe(ct.bus, ct.sub)
			return
		case _, ok := <-ct.sub.Receiver:
			if !ok {
				return
			}
			ct.throttles.Trigger(statsKey)
		}
	}
}

func (ct *CallStatsThrottler) publishCallStatsUpdated(string) {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	if ct.closed {
		return
	}
	ct.bus.Publish(hub.Message{
		Name: event.CallStatsUpdated,
		Fields: hub.Fields{
			"stats": ct.cm.Stats(),
		},
	})
}
