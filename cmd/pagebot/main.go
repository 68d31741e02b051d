package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pagebot/internal/config"
	"pagebot/internal/dispatch"
	"pagebot/internal/forward"
	"pagebot/internal/metrics"
	"pagebot/internal/processor"
	"pagebot/internal/server"
	"pagebot/internal/telegram"
)

var version = "0.1.0"

func main() {
	root := &cobra.Command{
		Use:   "pagebot",
		Short: "pagebot: Telegram webhook bot that echoes text and summarizes HTML documents",
		Long: `pagebot receives Telegram webhook updates, echoes text messages,
downloads HTML document attachments, and replies with a readable-text
summary. Configuration comes from the environment (TELEGRAM_TOKEN,
PUBLIC_URL, FORWARD_URL, LISTEN_ADDR, LOG_LEVEL, HOSTED).`,
	}

	root.AddCommand(serveCmd())
	root.AddCommand(setWebhookCmd())
	root.AddCommand(sendTestCmd())
	root.AddCommand(versionCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func buildClient(cfg *config.Config, logger *slog.Logger) (*telegram.Client, *telegram.Registrar) {
	client := telegram.NewClient(telegram.ClientConfig{
		Token:   cfg.Token,
		APIHost: cfg.APIHost,
		Logger:  logger,
	})
	registrar := telegram.NewRegistrar(client, cfg.PublicBaseURL(), logger)
	return client, registrar
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg.LogLevel)
			client, registrar := buildClient(cfg, logger)

			coll := metrics.New()
			dispatcher := dispatch.New(dispatch.Config{
				Messenger: client,
				Files:     client,
				Processor: processor.New(),
				Forwarder: forward.New(forward.Config{URL: cfg.ForwardURL, Logger: logger}),
				Logger:    logger,
				Metrics:   coll,
			})
			srv := server.New(server.Config{
				Cfg:        cfg,
				Dispatcher: dispatcher,
				Messenger:  client,
				Registrar:  registrar,
				Metrics:    coll,
				Logger:     logger,
			})

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if cfg.Hosted {
				if res := registrar.Register(ctx); !res.OK {
					logger.Warn("startup webhook registration failed", "detail", res.Detail)
				}
			}

			return srv.Run(ctx)
		},
	}
}

func setWebhookCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-webhook",
		Short: "Register the webhook callback with Telegram",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg.LogLevel)
			_, registrar := buildClient(cfg, logger)

			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()

			res := registrar.Register(ctx)
			if !res.OK {
				return fmt.Errorf("webhook registration failed: %s", res.Detail)
			}
			fmt.Printf("Webhook set: %s\n", registrar.CallbackURL())
			return nil
		},
	}
}

func sendTestCmd() *cobra.Command {
	var chatID int64
	cmd := &cobra.Command{
		Use:   "send-test",
		Short: "Send a canned test message to a chat",
		RunE: func(cmd *cobra.Command, args []string) error {
			if chatID == 0 {
				return fmt.Errorf("--chat-id is required")
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg.LogLevel)
			client, _ := buildClient(cfg, logger)

			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()

			res := client.SendMessage(ctx, chatID, server.TestMessage)
			if !res.Delivered {
				return fmt.Errorf("send failed: %s", res.Detail)
			}
			fmt.Println("Test message sent.")
			return nil
		},
	}
	cmd.Flags().Int64Var(&chatID, "chat-id", 0, "target chat ID")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("pagebot v%s\n", version)
		},
	}
}
