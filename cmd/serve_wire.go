//go:build wireinject
// +build wireinject

package cmd

import (
	"github.com/google/wire"
	"github.com/leandro-lugaresi/hub"
	"go.uber.org/zap"

	"github.com/hibiki-social/hibiki/repository"
	"github.com/hibiki-social/hibiki/router"
	"github.com/hibiki-social/hibiki/service/call"
	"github.com/hibiki-social/hibiki/service/exevent"
	"github.com/hibiki-social/hibiki/service/message"
	"github.com/hibiki-social/hibiki/service/notification"
	"github.com/hibiki-social/hibiki/service/presence"
	"github.com/hibiki-social/hibiki/service/room"
	"github.com/hibiki-social/hibiki/service/signaling"
	"github.com/hibiki-social/hibiki/service/typing"
	"github.com/hibiki-social/hibiki/service/ws"
)

func newServer(hub *hub.Hub, repo repository.Repository, logger *zap.Logger, c *Config) (*Server, error) {
	wire.Build(
		presence.NewRegistry,
		room.NewBroker,
		message.NewPipeline,
		typing.NewService,
		call.NewManager,
		exevent.NewCallStatsThrottler,
		signaling.NewHandlers,
		ws.NewStreamer,
		notification.NewService,
		router.Setup,
		provideTypingThrottler,
		provideCallConfig,
		provideMediaResolver,
		provideVerifier,
		provideRouterConfig,
		wire.Struct(new(Server), "*"),
		wire.Bind(new(repository.MessageRepository), new(repository.Repository)),
		wire.Bind(new(repository.ChatRepository), new(repository.Repository)),
		wire.Bind(new(call.Presence), new(*presence.Registry)),
		wire.Bind(new(exevent.StatsProvider), new(*call.Manager)),
		wire.Bind(new(notification.Writer), new(*ws.Streamer)),
	)
	return nil, nil
}
