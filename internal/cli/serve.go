package cli

import (
	"context"
	"fmt"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"motomaster/internal/config"
	"motomaster/internal/conversation"
	"motomaster/internal/notification"
	"motomaster/internal/order"
	"motomaster/internal/server"
	"motomaster/internal/transport"
)

const drainTimeout = 10 * time.Second

func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bot in the configured mode",
		Long: `Run the bot.

BOT_MODE=polling removes any webhook and long-polls getUpdates.
BOT_MODE=webhook registers https://$RENDER_EXTERNAL_HOSTNAME/telegram_webhook
and processes deliveries from an in-process queue.

The HTTP server (health check and webhook route) runs in both modes.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), rootOpts)
		},
	}
}

func runServe(parent context.Context, opts *RootOptions) error {
	if parent == nil {
		parent = context.Background()
	}
	cfg, zapLogger, err := loadConfig(opts)
	if err != nil {
		return err
	}
	defer zapLogger.Sync()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, dialect, err := openDatabase(ctx, cfg, zapLogger)
	if err != nil {
		return err
	}
	defer db.Close()

	client := newTelegramClient(cfg)
	notifier := notification.NewNotifier(client, cfg.Telegram.ChatID, cfg.Telegram.NotifyTimeout, zapLogger.Named("notifier"))
	dispatcher := conversation.NewDispatcher(conversation.DispatcherOptions{
		Placer:      order.NewModule(db, dialect, cfg, zapLogger),
		Notifier:    notifier,
		Replier:     transport.NewTelegramReplier(client, 0),
		Logger:      zapLogger.Named("conversation"),
		IdleTimeout: cfg.Conversation.SessionIdleTimeout,
	})

	webhookMode := cfg.Telegram.Mode == config.ModeWebhook
	queue := transport.NewUpdateQueue(cfg.Webhook.QueueCapacity)
	webhookCtrl := transport.NewWebhookController(webhookMode, cfg.Webhook.Secret, queue, zapLogger.Named("webhook"))

	router := server.NewRouter(server.RouterOptions{
		WebhookPath: cfg.Webhook.Path,
		Webhook:     webhookCtrl,
		Queue:       queue,
		Mode:        cfg.Telegram.Mode,
		Logger:      zapLogger.Named("http"),
	})
	srv := server.New(cfg.Server.Port, router, zapLogger)

	sweepInterval := cfg.Conversation.SessionIdleTimeout / 2

	var wg sync.WaitGroup
	if webhookMode {
		if err := client.SetWebhook(ctx, cfg.WebhookURL(), cfg.Webhook.Secret); err != nil {
			return fmt.Errorf("registering webhook: %w", err)
		}
		zapLogger.Info("webhook registered", zap.String("url", cfg.WebhookURL()))

		// The consumer outlives ctx so queued updates are drained after the
		// HTTP server stops accepting new ones.
		consumerCtx, cancelConsumer := context.WithCancel(context.Background())
		defer cancelConsumer()
		consumerDone := make(chan struct{})
		go func() {
			defer close(consumerDone)
			transport.NewConsumer(transport.ConsumerOptions{
				Queue:         queue,
				Dispatcher:    dispatcher,
				Workers:       cfg.Webhook.DispatchWorkers,
				SweepInterval: sweepInterval,
				Logger:        zapLogger.Named("consumer"),
			}).Run(consumerCtx)
		}()
		defer func() {
			queue.Close()
			select {
			case <-consumerDone:
			case <-time.After(drainTimeout):
				zapLogger.Warn("queue drain timed out", zap.Int("pending", queue.Depth()))
				cancelConsumer()
				<-consumerDone
			}
		}()
	} else {
		wg.Add(1)
		go func() {
			defer wg.Done()
			transport.NewPoller(transport.PollerOptions{
				Client:        client,
				Dispatcher:    dispatcher,
				PollTimeout:   cfg.Telegram.PollTimeout,
				SweepInterval: sweepInterval,
				Logger:        zapLogger.Named("poller"),
			}).Run(ctx)
		}()
	}

	zapLogger.Info("bot started", zap.String("mode", cfg.Telegram.Mode))
	err = srv.Run(ctx)
	// A server failure must also stop the poller.
	stop()
	wg.Wait()

	if err != nil {
		return err
	}
	zapLogger.Info("bot stopped gracefully")
	return nil
}
