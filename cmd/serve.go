package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/leandro-lugaresi/hub"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hibiki-social/hibiki/service/call"
	"github.com/hibiki-social/hibiki/service/exevent"
	"github.com/hibiki-social/hibiki/service/notification"
	"github.com/hibiki-social/hibiki/service/presence"
	"github.com/hibiki-social/hibiki/service/typing"
	"github.com/hibiki-social/hibiki/service/ws"
)

// serveCommand サーバー起動コマンド
func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve hibiki realtime API",
		Run: func(cmd *cobra.Command, args []string) {
			// Logger
			logger := getLogger()
			defer logger.Sync()

			logger.Info(fmt.Sprintf("hibiki %s (revision %s)", Version, Revision))

			if len(c.JWT.Secret) == 0 {
				logger.Fatal("jwt.secret must be set")
			}

			// Message Hub
			hub := hub.New()

			// Repository
			logger.Info("setting up repository...", zap.String("storage", c.Storage.Type))
			repo, init, closeRepo, err := c.getRepository(logger)
			if err != nil {
				logger.Fatal("failed to setup repository", zap.Error(err))
			}
			defer closeRepo()
			if init {
				logger.Info("repository was initialized")
			}
			logger.Info("repository was set up")

			// サーバー作成
			server, err := newServer(hub, repo, logger, &c)
			if err != nil {
				logger.Fatal("failed to create server", zap.Error(err))
			}

			go func() {
				if err := server.Start(fmt.Sprintf(":%d", c.Port)); err != nil {
					logger.Info("shutting down the server")
				}
			}()

			logger.Info("hibiki started", zap.Int("port", c.Port))
			waitSIGINT()
			logger.Info("hibiki shutting down...")

			ctx, cancel := context.WithTimeout(context.Background(), time.Duration(c.ShutdownTimeout)*time.Second)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				logger.Warn("abnormal shutdown", zap.Error(err))
			}
			logger.Info("hibiki shutdown")
		},
	}
}

// Server リアルタイムサーバー
type Server struct {
	L            *zap.Logger
	Router       *echo.Echo
	Hub          *hub.Hub
	Registry     *presence.Registry
	WS           *ws.Streamer
	Calls        *call.Manager
	Stats        *exevent.CallStatsThrottler
	Notification *notification.Service
	Typing       *typing.Service
}

// Start バックグラウンド処理を開始し、HTTPサーバーを起動します
func (s *Server) Start(address string) error {
	s.Calls.Start()
	s.Stats.Start()
	return s.Router.Start(address)
}

// Shutdown サーバーを停止します
//
// イベントの発行側から順に止め、購読側は発行側が全て止まってから停止します。
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.Router.Shutdown(ctx); err != nil {
		s.L.Warn("Router shutdown", zap.Error(err))
	} else {
		s.L.Info("Router shutdown")
	}

	// セッションの切断処理が終わるまで待つ
	var result error
	if err := s.WS.Close(); err != nil {
		result = err
	}
	s.L.Info("WebSocket shutdown")

	eg, _ := errgroup.WithContext(ctx)
	eg.Go(func() error {
		s.Calls.Close()
		s.L.Info("Call manager shutdown")
		return nil
	})
	eg.Go(func() error {
		s.Typing.Close()
		s.L.Info("Typing service shutdown")
		return nil
	})
	_ = eg.Wait()

	// 通話イベントの発行が止まってから止める
	s.Stats.Close()
	s.L.Info("Call stats throttler shutdown")
	s.Notification.Close()
	s.L.Info("Notification service shutdown")
	s.Hub.Close()
	return result
}
