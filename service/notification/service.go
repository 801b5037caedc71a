package notification

import (
	"sync"

	"github.com/leandro-lugaresi/hub"
	"go.uber.org/zap"

	"github.com/hibiki-social/hibiki/event"
	"github.com/hibiki-social/hibiki/service/ws"
	"github.com/hibiki-social/hibiki/utils/mediaurl"
)

// Writer WebSocketフレームの送信先
type Writer interface {
	WriteMessage(t string, body interface{}, targetFunc ws.TargetFunc)
}

// Service 通知サービス
//
// イベントバスのイベントを発行順に1つずつWebSocketのフレームに変換して送信します。
// 送信前に全てのペイロードのメディアパスを絶対URLに変換します。
type Service struct {
	hub      *hub.Hub
	logger   *zap.Logger
	ws       Writer
	resolver *mediaurl.Resolver
	sub      hub.Subscription

	closeOnce sync.Once
	stop      chan struct{}
	done      chan struct{}
}

// NewService 通知サービスを作成して起動します
func NewService(hub *hub.Hub, logger *zap.Logger, ws Writer, resolver *mediaurl.Resolver) *Service {
	service := &Service{
		hub:      hub,
		logger:   logger.Named("notification"),
		ws:       ws,
		resolver: resolver,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	topics := make([]string, 0, len(handlerMap))
	for k := range handlerMap {
		topics = append(topics, k)
	}
	service.sub = hub.Subscribe(1000, topics...)
	go service.run()
	return service
}

func (ns *Service) run() {
	defer close(ns.done)
	for {
		select {
		case <-ns.stop:
			event.Unsubscribe(ns.hub, ns.sub)
			return
		case msg, ok := <-ns.sub.Receiver:
			if !ok {
				return
			}
			ns.handle(msg)
		}
	}
}

func (ns *Service) handle(msg hub.Message) {
	h, ok := handlerMap[msg.Topic()]
	if !ok {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			ns.logger.Error("panic while handling event", zap.String("topic", msg.Topic()), zap.Any("recovered", r))
		}
	}()
	h(ns, msg)
}

// Close 通知サービスを停止します
//
// 発行側を全て止めてから呼び出してください。
func (ns *Service) Close() {
	ns.closeOnce.Do(func() {
		close(ns.stop)
		<-ns.done
	})
}

func (ns *Service) send(t string, body interface{}, target ws.TargetFunc) {
	ns.ws.WriteMessage(t, ns.resolver.Payload(body), target)
}
