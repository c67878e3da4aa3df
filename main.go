package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
	"github.com/spf13/cobra"

	"github.com/pivolan/eda_dashboard/backend"
	"github.com/pivolan/eda_dashboard/config"
	"github.com/pivolan/eda_dashboard/session"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "eda",
	Short: "EDA dashboard: upload a CSV, inspect its columns and chart aggregations",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		config.Init(cfgFile, cmd.Flags())
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web dashboard, and the Telegram bot when a token is configured",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.GetConfig()
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		store := newStore(cfg)
		go expireSessions(ctx, store, cfg.SessionTTL())

		if cfg.TgToken != "" {
			bot, err := newTelegramBot(cfg, store)
			if err != nil {
				return err
			}
			go bot.run(ctx)
		} else {
			log.Println("tg_token is empty, Telegram bot disabled")
		}

		srv := &http.Server{Addr: cfg.ListenAddr, Handler: newRouter(store)}
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
		log.Printf("listen on: %s, backend %s", cfg.ListenAddr, cfg.BackendURL)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("listen %s: %w", cfg.ListenAddr, err)
		}
		return nil
	},
}

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Run only the Telegram bot",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.GetConfig()
		if cfg.TgToken == "" {
			return fmt.Errorf("tg_token is not set (EDA_TG_TOKEN, TG_TOKEN or --tg-token)")
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		store := newStore(cfg)
		go expireSessions(ctx, store, cfg.SessionTTL())

		bot, err := newTelegramBot(cfg, store)
		if err != nil {
			return err
		}
		bot.run(ctx)
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	pf.String("backend-url", "", "EDA backend base URL")
	pf.String("listen", "", "dashboard listen address")
	pf.String("tg-token", "", "Telegram bot token")
	pf.String("public-url", "", "dashboard URL used in bot links")

	rootCmd.AddCommand(serveCmd, botCmd, aggregateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newStore(cfg *config.Config) *session.Store {
	client := backend.NewClient(cfg.BackendURL, cfg.RequestTimeout())
	return session.NewStore(client, cfg.UploadLimit())
}

func newTelegramBot(cfg *config.Config, store *session.Store) (*telegramBot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TgToken)
	if err != nil {
		return nil, fmt.Errorf("tg error: %w", err)
	}
	log.Printf("Authorized on account %s", api.Self.UserName)
	return &telegramBot{
		api:       api,
		files:     api,
		updates:   api,
		store:     store,
		publicURL: cfg.PublicURL,
		client:    &http.Client{Timeout: cfg.RequestTimeout()},
	}, nil
}

// expireSessions раз в минуту удаляет сессии, которые давно не трогали
func expireSessions(ctx context.Context, store *session.Store, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := store.Expire(ttl); n > 0 {
				log.Printf("expired %d sessions", n)
			}
		}
	}
}
