package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kamaqiyasov/vkinder/internal/app"
	"github.com/kamaqiyasov/vkinder/internal/bot"
	"github.com/kamaqiyasov/vkinder/internal/cache"
	"github.com/kamaqiyasov/vkinder/internal/config"
	"github.com/kamaqiyasov/vkinder/internal/db"
	"github.com/kamaqiyasov/vkinder/internal/logger"
	"github.com/kamaqiyasov/vkinder/internal/server"
	"github.com/kamaqiyasov/vkinder/internal/session"
	"github.com/kamaqiyasov/vkinder/internal/vk"
)

func main() {
	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L()

	// Init DB
	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		return
	}

	// Init Redis
	redisCache := cache.NewRedisCache(cfg)
	if err := redisCache.Ping(context.Background()); err != nil {
		log.Error("failed to connect to redis", "err", err)
		return
	}

	appCtx := app.New(database, redisCache, log)

	// Directory clients: the group token drives messaging and long polling,
	// the service user token drives search until users grant their own.
	groupClient := vk.NewClient(cfg, cfg.VK.GroupToken, log)
	userClient := groupClient.WithToken(cfg.VK.UserToken)

	messenger := vk.NewMessenger(groupClient)
	poller := vk.NewLongPoller(groupClient, cfg.VK.GroupID, log)

	store := session.NewStore()
	sessions := session.NewManager(store, database, redisCache, log)
	dialogue := bot.New(cfg, appCtx, messenger, userClient, sessions)

	httpServer := server.New(cfg, appCtx)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return httpServer.Run(ctx)
	})

	g.Go(func() error {
		store.RunSweeper(ctx, cfg.Bot.SweepInterval, cfg.Bot.SessionTTL, log)
		return nil
	})

	g.Go(func() error {
		return pollLoop(ctx, poller, dialogue, log)
	})

	log.Info("bot started")
	if err := g.Wait(); err != nil && ctx.Err() == nil {
		log.Error("bot stopped", "err", err)
		return
	}
	log.Info("bot stopped")
}

// pollLoop pumps long-poll events into the dialogue router. Poll errors get
// a short backoff instead of killing the process; the feed recovers on its
// own once the directory is reachable again.
func pollLoop(ctx context.Context, poller *vk.LongPoller, dialogue *bot.Bot, log *slog.Logger) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		events, err := poller.Poll(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Warn("long poll cycle failed", "err", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(3 * time.Second):
			}
			continue
		}

		for _, ev := range events {
			// Turns for the same user serialize inside the router.
			go dialogue.HandleMessage(ctx, ev.UserID, ev.Text)
		}
	}
}
