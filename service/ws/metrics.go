package ws

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	webSocketReadBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "hibiki",
		Name:      "ws_read_bytes_total",
	})
	webSocketWriteBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "hibiki",
		Name:      "ws_write_bytes_total",
	})
	webSocketDiscardedMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hibiki",
		Name:      "ws_discarded_messages_total",
	}, []string{"type"})
)

func incWebSocketReadBytesTotal(bytes int) {
	webSocketReadBytesTotal.Add(float64(bytes))
}

func incWebSocketWriteBytesTotal(bytes int) {
	webSocketWriteBytesTotal.Add(float64(bytes))
}
